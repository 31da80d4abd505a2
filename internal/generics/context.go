// Package generics implements the generic type context and the substituting
// type resolver. Resolution is pure substitution: the caller must already
// know what every parameter denotes (a declared variable type, a constructor
// argument type, or a call-site argument type). No inference happens here.
package generics

import (
	"quill/internal/types"
)

// Context is an ordered stack of scopes mapping context keys to resolved
// types. Keys are either bare parameter names ("T") or qualified payload
// paths ("Result.Ok"). Lookup searches innermost-to-outermost. Nested
// generics need nested scopes: the binding for an inner Option's Some-type
// must never be confused with the enclosing Result's Ok-type.
type Context struct {
	scopes []map[string]types.TypeID
}

func NewContext() *Context {
	return &Context{scopes: []map[string]types.TypeID{make(map[string]types.TypeID)}}
}

// Depth returns the number of live scopes. Tests use it to assert that every
// push was matched by exactly one pop.
func (c *Context) Depth() int { return len(c.scopes) }

// Bind writes into the innermost scope.
func (c *Context) Bind(key string, t types.TypeID) {
	c.scopes[len(c.scopes)-1][key] = t
}

// Lookup searches scopes inward-out.
func (c *Context) Lookup(key string) (types.TypeID, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if t, ok := c.scopes[i][key]; ok {
			return t, true
		}
	}
	return types.NoTypeID, false
}

// Scope pushes a fresh scope and returns its guard. Callers must release the
// guard on every exit path, normally with defer:
//
//	sc := ctx.Scope()
//	defer sc.Release()
//
// Release pops everything pushed at or above the guard's depth, so an inner
// scope leaked by a forgotten release cannot corrupt outer bindings. A
// missing pop on an early-error path is exactly the defect that once made
// nested payload extraction read the wrong binding; the guard makes that
// class of bug unrepresentable.
func (c *Context) Scope() *ScopeGuard {
	c.scopes = append(c.scopes, make(map[string]types.TypeID))
	return &ScopeGuard{ctx: c, depth: len(c.scopes)}
}

// ScopeGuard pops its scope exactly once, on success and error paths alike.
type ScopeGuard struct {
	ctx      *Context
	depth    int
	released bool
}

// Release pops the guard's scope (and any scope leaked above it). Safe to
// call more than once; only the first call has an effect.
func (g *ScopeGuard) Release() {
	if g == nil || g.released {
		return
	}
	g.released = true
	if len(g.ctx.scopes) >= g.depth {
		g.ctx.scopes = g.ctx.scopes[:g.depth-1]
	}
}
