package diag

import (
	"strings"
	"testing"

	"flatns/internal/source"
)

func TestFormatGoldenStableOrder(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("unit.toml", []byte("line one\nline two\n"))

	diags := []Diagnostic{
		NewError(NameClash, source.Span{File: id, Start: 9, End: 13}, "clash on 'foo'"),
		NewError(SyntheticNameClash, source.Span{File: id, Start: 0, End: 4}, "inherited clash"),
	}

	got := FormatGolden(diags, fs, false)
	want := strings.Join([]string{
		"error NAM2002 unit.toml:1:1 inherited clash",
		"error NAM2001 unit.toml:2:1 clash on 'foo'",
	}, "\n")
	if got != want {
		t.Fatalf("golden mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestFormatGoldenIncludesNotes(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("unit.toml", []byte("abcdef\n"))

	d := NewError(NameClash, source.Span{File: id, Start: 0, End: 3}, "clash").
		WithNote(source.Span{File: id, Start: 3, End: 6}, "conflicting declaration here")

	got := FormatGolden([]Diagnostic{d}, fs, true)
	if !strings.Contains(got, "note NAM2001 unit.toml:1:4 conflicting declaration here") {
		t.Fatalf("expected note line, got:\n%s", got)
	}
}

func TestFormatGoldenEmpty(t *testing.T) {
	fs := source.NewFileSet()
	if got := FormatGolden(nil, fs, true); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestFormatGoldenSanitizesNewlines(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("unit.toml", []byte("x\n"))

	d := NewError(GraphSyntax, source.Span{File: id, Start: 0, End: 1}, "broken\nmultiline")
	got := FormatGolden([]Diagnostic{d}, fs, false)
	if strings.Count(got, "\n") != 0 {
		t.Fatalf("expected single-line entry, got %q", got)
	}
}
