package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"flatns/internal/diagfmt"
	"flatns/internal/driver"
	"flatns/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <unit.toml|directory>",
	Short: "Run clash analysis over unit fixtures",
	Long:  "Check one unit fixture, or every *.toml under a directory, for generated-name clashes",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|short|json)")
	checkCmd.Flags().Int("jobs", 0, "max parallel workers for directory processing (0=auto)")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("disk-cache", false, "reuse cached results for unchanged units")
	checkCmd.Flags().Bool("ui", false, "interactive progress display for directories")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
}

func runCheck(cmd *cobra.Command, args []string) error {
	path := args[0]

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	switch format {
	case "pretty", "short", "json":
	default:
		return fmt.Errorf("unsupported format %q (must be pretty, short or json)", format)
	}

	jobs, _ := cmd.Flags().GetInt("jobs")
	withNotes, _ := cmd.Flags().GetBool("with-notes")
	useDiskCache, _ := cmd.Flags().GetBool("disk-cache")
	withUI, _ := cmd.Flags().GetBool("ui")
	fullPath, _ := cmd.Flags().GetBool("fullpath")
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	timings, _ := cmd.Root().PersistentFlags().GetBool("timings")
	maxDiagnostics, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")

	opts := driver.Options{
		MaxDiagnostics: maxDiagnostics,
		Jobs:           jobs,
		Timings:        timings,
	}
	if useDiskCache {
		cache, err := driver.OpenDiskCache("flatns")
		if err != nil {
			return fmt.Errorf("failed to open disk cache: %w", err)
		}
		opts.Cache = cache
	}

	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	var results []*driver.UnitResult
	if info.IsDir() {
		results, err = checkDirectory(cmd.Context(), path, opts, withUI)
	} else {
		var res *driver.UnitResult
		res, err = driver.CheckUnit(cmd.Context(), path, opts)
		if res != nil {
			results = append(results, res)
		}
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	hadErrors := false
	for _, res := range results {
		if res == nil {
			continue
		}
		if res.Bag.HasErrors() {
			hadErrors = true
		}
		switch format {
		case "json":
			jerr := diagfmt.JSON(out, res.Bag, res.FileSet, diagfmt.JSONOpts{
				IncludePositions: true,
				PathMode:         pathMode,
				IncludeNotes:     withNotes,
			})
			if jerr != nil {
				return jerr
			}
		case "short":
			diagfmt.Short(out, res.Bag, res.FileSet, diagfmt.PrettyOpts{
				Color:    useColor(cmd, os.Stdout),
				PathMode: pathMode,
			})
		default:
			diagfmt.Pretty(out, res.Bag, res.FileSet, diagfmt.PrettyOpts{
				Color:     useColor(cmd, os.Stdout),
				PathMode:  pathMode,
				ShowNotes: withNotes,
			})
		}
		if timings && res.Timing != nil && !quiet {
			fmt.Fprintf(out, "%s: total %.2f ms\n", res.Path, res.Timing.TotalMS)
		}
	}

	if !quiet && format != "json" {
		summarize(out, results)
	}
	if hadErrors {
		// Diagnostics already printed; a bare non-zero exit is enough.
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		os.Exit(1)
	}
	return nil
}

func checkDirectory(ctx context.Context, dir string, opts driver.Options, withUI bool) ([]*driver.UnitResult, error) {
	if !withUI || !isTerminal(os.Stdout) {
		return driver.CheckDir(ctx, dir, opts)
	}

	files, err := driver.ListUnitFiles(dir)
	if err != nil {
		return nil, err
	}

	events := make(chan driver.Event, 256)
	opts.Events = events

	type outcome struct {
		results []*driver.UnitResult
		err     error
	}
	outcomeCh := make(chan outcome, 1)
	go func() {
		results, err := driver.CheckDir(ctx, dir, opts)
		outcomeCh <- outcome{results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("checking units", files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	res := <-outcomeCh
	if uiErr != nil {
		return res.results, uiErr
	}
	return res.results, res.err
}

func summarize(out io.Writer, results []*driver.UnitResult) {
	units, errors, warnings, cached := 0, 0, 0, 0
	for _, res := range results {
		if res == nil {
			continue
		}
		units++
		if res.CacheHit {
			cached++
		}
		for _, d := range res.Bag.Items() {
			switch {
			case d.Severity.IsError():
				errors++
			case d.Severity.IsWarning():
				warnings++
			}
		}
	}
	fmt.Fprintf(out, "checked %d unit(s): %d error(s), %d warning(s)", units, errors, warnings)
	if cached > 0 {
		fmt.Fprintf(out, ", %d cached", cached)
	}
	fmt.Fprintln(out)
}
