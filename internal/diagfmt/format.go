// Package diagfmt renders diagnostic bags for terminal and plain output.
package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"quill/internal/diag"
)

// Mode selects colorization.
type Mode uint8

const (
	ModeAuto Mode = iota
	ModeOn
	ModeOff
)

// ParseMode reads a --color flag value.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "auto":
		return ModeAuto, nil
	case "on", "always":
		return ModeOn, nil
	case "off", "never":
		return ModeOff, nil
	default:
		return ModeAuto, fmt.Errorf("invalid color mode %q (expected auto|on|off)", s)
	}
}

var (
	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	infoColor  = color.New(color.FgCyan)
	codeColor  = color.New(color.Faint)
)

// Render writes one line per diagnostic plus its notes. isTerminal decides
// colorization under ModeAuto.
func Render(w io.Writer, bag *diag.Bag, mode Mode, isTerminal bool) {
	if bag == nil {
		return
	}
	useColor := mode == ModeOn || (mode == ModeAuto && isTerminal)
	for _, d := range bag.Items() {
		sev := severityLabel(d.Severity)
		if useColor {
			sev = severityColor(d.Severity).Sprint(sev)
		}
		code := d.Code.ID()
		if useColor {
			code = codeColor.Sprint(code)
		}
		if d.Primary.Empty() {
			fmt.Fprintf(w, "%s[%s]: %s\n", sev, code, d.Message)
		} else {
			fmt.Fprintf(w, "%s[%s]: %s (at %s)\n", sev, code, d.Message, d.Primary)
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  note: %s (at %s)\n", n.Msg, n.Span)
		}
	}
}

// Summary writes the error/warning tally, matching Render's coloring.
func Summary(w io.Writer, bag *diag.Bag, mode Mode, isTerminal bool) {
	if bag == nil || bag.Len() == 0 {
		return
	}
	var errs, warns int
	for _, d := range bag.Items() {
		switch {
		case d.Severity >= diag.SevError:
			errs++
		case d.Severity == diag.SevWarning:
			warns++
		}
	}
	useColor := mode == ModeOn || (mode == ModeAuto && isTerminal)
	line := fmt.Sprintf("%d error(s), %d warning(s)", errs, warns)
	if bag.Len() >= int(bag.Cap()) {
		line += " (diagnostic limit reached)"
	}
	if useColor && errs > 0 {
		line = errorColor.Sprint(line)
	}
	fmt.Fprintln(w, line)
}

func severityLabel(s diag.Severity) string {
	switch s {
	case diag.SevWarning:
		return "warning"
	case diag.SevError:
		return "error"
	default:
		return "info"
	}
}

func severityColor(s diag.Severity) *color.Color {
	switch s {
	case diag.SevWarning:
		return warnColor
	case diag.SevError:
		return errorColor
	default:
		return infoColor
	}
}
