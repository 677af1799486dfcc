package diagfmt

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"flatns/internal/diag"
	"flatns/internal/source"
)

var (
	errorPaint   = color.New(color.FgRed, color.Bold)
	warningPaint = color.New(color.FgYellow, color.Bold)
	infoPaint    = color.New(color.FgCyan, color.Bold)
	gutterPaint  = color.New(color.FgBlue)
	notePaint    = color.New(color.FgHiBlack)
)

// Pretty renders diagnostics with the source line and a caret underline
// beneath the primary span:
//
//	error[NAM2001]: generated name "render" clashes with function 'app.render'
//	  --> unit.toml:12:9
//	   |
//	12 | name = "render"
//	   |         ^~~~~~
//	   = note: conflicting declaration here (unit.toml:20:9)
//
// The bag is expected to be sorted already.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		prettyOne(w, &d, fs, opts)
	}
}

func prettyOne(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	head := fmt.Sprintf("%s[%s]", severityWord(d.Severity), d.Code.ID())
	fmt.Fprintf(w, "%s: %s\n", paint(severityColor(d.Severity), head, opts.Color), d.Message)

	if fs != nil && !d.Primary.Empty() {
		writeSnippet(w, fs, d.Primary, severityColor(d.Severity), opts)
	}

	if opts.ShowNotes {
		for _, n := range d.Notes {
			loc := ""
			if fs != nil && !n.Span.Empty() {
				start, _ := fs.Resolve(n.Span)
				loc = fmt.Sprintf(" (%s:%d:%d)", displayPath(fs.Get(n.Span.File), opts.PathMode), start.Line, start.Col)
			}
			fmt.Fprintf(w, "   %s %s%s\n", paint(notePaint, "= note:", opts.Color), n.Msg, loc)
		}
	}
	fmt.Fprintln(w)
}

func writeSnippet(w io.Writer, fs *source.FileSet, span source.Span, sev *color.Color, opts PrettyOpts) {
	file := fs.Get(span.File)
	start, end := fs.Resolve(span)
	line := file.GetLine(start.Line)

	fmt.Fprintf(w, "  %s %s:%d:%d\n", paint(gutterPaint, "-->", opts.Color), displayPath(file, opts.PathMode), start.Line, start.Col)

	lineNum := fmt.Sprintf("%d", start.Line)
	pad := strings.Repeat(" ", len(lineNum))
	fmt.Fprintf(w, "%s %s\n", pad, paint(gutterPaint, "|", opts.Color))
	fmt.Fprintf(w, "%s %s %s\n", paint(gutterPaint, lineNum, opts.Color), paint(gutterPaint, "|", opts.Color), strings.TrimRight(line, "\n"))

	// Caret alignment in display columns, so wide runes still line up.
	col := int(start.Col) - 1
	if col < 0 || col > len(line) {
		col = 0
	}
	indent := runewidth.StringWidth(line[:col])

	width := 1
	if end.Line == start.Line && int(end.Col) > int(start.Col) {
		to := int(end.Col) - 1
		if to > len(line) {
			to = len(line)
		}
		width = runewidth.StringWidth(line[col:to])
	}
	if width < 1 {
		width = 1
	}
	underline := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, "%s %s %s%s\n", pad, paint(gutterPaint, "|", opts.Color), strings.Repeat(" ", indent), paint(sev, underline, opts.Color))
}

// Short renders one line per diagnostic, grep-friendly:
//
//	unit.toml:12:9: error[NAM2001]: generated name "render" clashes ...
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		loc := "-"
		if fs != nil && !d.Primary.Empty() {
			start, _ := fs.Resolve(d.Primary)
			loc = fmt.Sprintf("%s:%d:%d", displayPath(fs.Get(d.Primary.File), opts.PathMode), start.Line, start.Col)
		}
		head := fmt.Sprintf("%s[%s]", severityWord(d.Severity), d.Code.ID())
		fmt.Fprintf(w, "%s: %s: %s\n", loc, paint(severityColor(d.Severity), head, opts.Color), d.Message)
	}
}

func severityColor(sev diag.Severity) *color.Color {
	switch {
	case sev.IsError():
		return errorPaint
	case sev.IsWarning():
		return warningPaint
	default:
		return infoPaint
	}
}

func severityWord(sev diag.Severity) string {
	switch {
	case sev.IsError():
		return "error"
	case sev.IsWarning():
		return "warning"
	default:
		return "info"
	}
}

func paint(c *color.Color, s string, enabled bool) string {
	if !enabled {
		return s
	}
	return c.Sprint(s)
}

func displayPath(f *source.File, mode PathMode) string {
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(f.Path); err == nil {
			return abs
		}
		return f.Path
	case PathModeRelative:
		if wd, err := os.Getwd(); err == nil {
			if rel, err := filepath.Rel(wd, f.Path); err == nil {
				return rel
			}
		}
		return f.Path
	case PathModeBasename:
		return filepath.Base(f.Path)
	default:
		return f.DisplayPath()
	}
}
