package mono

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// DumpInstantiations writes a deterministic listing of every recorded
// instantiation: one line per (function, type args) pair plus its use sites.
func DumpInstantiations(w io.Writer, m *InstantiationMap) {
	if w == nil || m == nil {
		return
	}
	entries := make([]*InstEntry, 0, len(m.Entries))
	for _, e := range m.Entries {
		entries = append(entries, e)
	}
	slices.SortStableFunc(entries, func(a, b *InstEntry) int {
		if a.Key.Func != b.Key.Func {
			return strings.Compare(a.Key.Func, b.Key.Func)
		}
		return strings.Compare(a.Key.ArgsKey, b.Key.ArgsKey)
	})
	for _, e := range entries {
		if len(e.TypeArgs) == 0 {
			fmt.Fprintf(w, "%s\n", e.Key.Func)
		} else {
			fmt.Fprintf(w, "%s<%s>\n", e.Key.Func, strings.Join(e.TypeArgs, ", "))
		}
		for _, u := range e.UseSites {
			fmt.Fprintf(w, "  use at %s", u.Span)
			if u.Caller != "" {
				fmt.Fprintf(w, " in %s", u.Caller)
			}
			if u.Note != "" {
				fmt.Fprintf(w, " (%s)", u.Note)
			}
			fmt.Fprintln(w)
		}
	}
}
