package driver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flatns/internal/diag"
)

const clashUnit = `
unit = "clashy"

[[package]]
path = "app"

[[class]]
name = "First"
package = "app"

[[member]]
owner = "app"
kind = "function"
name = "render"

[[member]]
owner = "app"
kind = "property"
name = "render"
`

const cleanUnit = `
unit = "clean"

[[package]]
path = "app"

[[member]]
owner = "app"
kind = "function"
name = "render"
`

func writeUnit(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCheckUnitFindsClash(t *testing.T) {
	path := writeUnit(t, t.TempDir(), "clashy.toml", clashUnit)
	res, err := CheckUnit(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("CheckUnit: %v", err)
	}
	if res.Unit != "clashy" {
		t.Fatalf("unit = %q", res.Unit)
	}
	if !res.Bag.HasErrors() {
		t.Fatal("no errors for clashing unit")
	}
	clashes := 0
	for _, d := range res.Bag.Items() {
		if d.Code == diag.NameClash {
			clashes++
		}
	}
	if clashes != 2 {
		t.Fatalf("NameClash count = %d, want symmetric pair", clashes)
	}
}

func TestCheckUnitCleanHasNoDiagnostics(t *testing.T) {
	path := writeUnit(t, t.TempDir(), "clean.toml", cleanUnit)
	res, err := CheckUnit(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("CheckUnit: %v", err)
	}
	if res.Bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Bag.Items())
	}
}

func TestCheckUnitMissingFile(t *testing.T) {
	res, err := CheckUnit(context.Background(), filepath.Join(t.TempDir(), "absent.toml"), Options{})
	if err != nil {
		t.Fatalf("CheckUnit: %v", err)
	}
	if res.Bag.Len() != 1 || res.Bag.Items()[0].Code != diag.IOLoadFileError {
		t.Fatalf("want a single IOLoadFileError, got %v", res.Bag.Items())
	}
}

func TestCheckUnitTimings(t *testing.T) {
	path := writeUnit(t, t.TempDir(), "clean.toml", cleanUnit)
	res, err := CheckUnit(context.Background(), path, Options{Timings: true})
	if err != nil {
		t.Fatalf("CheckUnit: %v", err)
	}
	if res.Timing == nil || len(res.Timing.Phases) == 0 {
		t.Fatal("timings requested but absent")
	}
}

func TestCheckDirSortedAndComplete(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "b.toml", clashUnit)
	writeUnit(t, dir, "a.toml", cleanUnit)

	results, err := CheckDir(context.Background(), dir, Options{Jobs: 2})
	if err != nil {
		t.Fatalf("CheckDir: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d", len(results))
	}
	if !strings.HasSuffix(results[0].Path, "a.toml") || !strings.HasSuffix(results[1].Path, "b.toml") {
		t.Fatalf("order: %s, %s", results[0].Path, results[1].Path)
	}
	if results[0].Bag.HasErrors() {
		t.Error("clean unit reported errors")
	}
	if !results[1].Bag.HasErrors() {
		t.Error("clashing unit reported none")
	}
}

func TestCheckDirEvents(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "a.toml", cleanUnit)
	writeUnit(t, dir, "b.toml", cleanUnit)

	events := make(chan Event, 16)
	if _, err := CheckDir(context.Background(), dir, Options{Events: events}); err != nil {
		t.Fatalf("CheckDir: %v", err)
	}
	close(events)

	started, finished := 0, 0
	for ev := range events {
		switch ev.Kind {
		case EventUnitStarted:
			started++
		case EventUnitFinished:
			finished++
		}
		if ev.Total != 2 {
			t.Errorf("total = %d", ev.Total)
		}
	}
	if started != 2 || finished != 2 {
		t.Fatalf("events: %d started, %d finished", started, finished)
	}
}

func TestCheckUnitGoldenPositions(t *testing.T) {
	path := writeUnit(t, t.TempDir(), "clashy.toml", clashUnit)
	res, err := CheckUnit(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("CheckUnit: %v", err)
	}
	golden := diag.FormatGolden(res.Bag.Items(), res.FileSet, false)
	lines := strings.Split(golden, "\n")
	if len(lines) != 2 {
		t.Fatalf("golden lines = %d:\n%s", len(lines), golden)
	}
	// Fixture line 14 holds the function's name, line 19 the property's.
	if !strings.Contains(lines[0], ":14:9 ") || !strings.HasPrefix(lines[0], "error NAM2001 ") {
		t.Errorf("first golden line: %s", lines[0])
	}
	if !strings.Contains(lines[1], ":19:9 ") {
		t.Errorf("second golden line: %s", lines[1])
	}
}

func TestCheckDirEmpty(t *testing.T) {
	results, err := CheckDir(context.Background(), t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("CheckDir: %v", err)
	}
	if results != nil {
		t.Fatalf("results = %v", results)
	}
}

func TestCheckDirCanceled(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "a.toml", cleanUnit)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := CheckDir(ctx, dir, Options{}); err == nil {
		t.Fatal("expected cancellation error")
	}
}
