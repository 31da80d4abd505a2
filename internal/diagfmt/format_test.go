package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"quill/internal/diag"
	"quill/internal/source"
)

func sampleBag() *diag.Bag {
	bag := diag.NewBag(10)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.GenUnknownIdentifier,
		Message:  "reference to undeclared identifier x",
		Primary:  source.Span{File: 1, Start: 10, End: 11},
	})
	bag.Add(diag.Diagnostic{
		Severity: diag.SevWarning,
		Code:     diag.TypeMismatch,
		Message:  "suspicious conversion",
		Notes: []diag.Note{
			{Msg: "declared here", Span: source.Span{File: 1, Start: 2, End: 5}},
		},
	})
	return bag
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"":       ModeAuto,
		"auto":   ModeAuto,
		"on":     ModeOn,
		"always": ModeOn,
		"off":    ModeOff,
		"never":  ModeOff,
	}
	for in, want := range cases {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseMode("sometimes"); err == nil {
		t.Error("ParseMode accepted an invalid mode")
	}
}

func TestRenderPlain(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, sampleBag(), ModeOff, false)
	out := buf.String()

	if !strings.Contains(out, "error[GEN4001]: reference to undeclared identifier x") {
		t.Fatalf("missing error line:\n%s", out)
	}
	if !strings.Contains(out, "warning[TYP3003]: suspicious conversion") {
		t.Fatalf("missing warning line:\n%s", out)
	}
	if !strings.Contains(out, "note: declared here") {
		t.Fatalf("missing note line:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("plain render contains escape codes:\n%q", out)
	}
}

func TestRenderEmptyBag(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, diag.NewBag(1), ModeOff, false)
	Render(&buf, nil, ModeOff, false)
	if buf.Len() != 0 {
		t.Fatalf("empty bag rendered %q", buf.String())
	}
}

func TestSummaryTalliesBySeverity(t *testing.T) {
	var buf bytes.Buffer
	Summary(&buf, sampleBag(), ModeOff, false)
	if got := strings.TrimSpace(buf.String()); got != "1 error(s), 1 warning(s)" {
		t.Fatalf("summary = %q", got)
	}

	buf.Reset()
	Summary(&buf, diag.NewBag(1), ModeOff, false)
	if buf.Len() != 0 {
		t.Fatalf("empty summary rendered %q", buf.String())
	}
}

func TestSummaryNotesDiagnosticLimit(t *testing.T) {
	bag := diag.NewBag(1)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.GenUnknownIdentifier,
		Message:  "reference to undeclared identifier y",
	})
	var buf bytes.Buffer
	Summary(&buf, bag, ModeOff, false)
	if !strings.Contains(buf.String(), "diagnostic limit reached") {
		t.Fatalf("summary missing limit note: %q", buf.String())
	}
}
