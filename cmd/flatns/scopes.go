package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"flatns/internal/clash"
	"flatns/internal/decl"
	"flatns/internal/diag"
	"flatns/internal/diagfmt"
	"flatns/internal/graph"
	"flatns/internal/naming"
	"flatns/internal/source"
)

var scopesCmd = &cobra.Command{
	Use:   "scopes <unit.toml>",
	Short: "Dump the flattened scope tables of a unit fixture",
	Long:  "Load a unit fixture and print, per class and root package, the generated-name table the clash analysis sees",
	Args:  cobra.ExactArgs(1),
	RunE:  runScopes,
}

func runScopes(cmd *cobra.Command, args []string) error {
	path := args[0]
	maxDiagnostics, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")

	fset := source.NewFileSet()
	bag := diag.NewBag(maxDiagnostics)
	res, err := graph.Load(fset, path, diag.BagReporter{Bag: bag})
	if err != nil || bag.HasErrors() {
		bag.Sort()
		diagfmt.Pretty(cmd.ErrOrStderr(), bag, fset, diagfmt.PrettyOpts{
			Color:     useColor(cmd, os.Stderr),
			ShowNotes: true,
		})
		cmd.SilenceUsage = true
		return fmt.Errorf("cannot load %q", path)
	}

	checker := clash.NewChecker(clash.Env{
		Decls:     res.Arena,
		Suggester: naming.NewRules(res.Arena),
		Reporter:  diag.NopReporter{},
	})

	// Root packages first, then classes in declaration order.
	owners := append([]decl.ID(nil), res.Roots...)
	res.Arena.All(func(id decl.ID, d *decl.Decl) bool {
		if d.Kind == decl.KindClass {
			owners = append(owners, id)
		}
		return true
	})

	out := cmd.OutOrStdout()
	enabled := useColor(cmd, os.Stdout)
	for i, owner := range owners {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := dumpScope(out, checker, res.Arena, owner, enabled); err != nil {
			return err
		}
	}
	return nil
}

func dumpScope(out io.Writer, checker *clash.Checker, arena *decl.Arena, owner decl.ID, colored bool) error {
	table, err := checker.ScopeTable(owner)
	if err != nil {
		return err
	}

	od := arena.Get(owner)
	header := fmt.Sprintf("%s %s", od.Kind, arena.Path(owner))
	if colored {
		header = color.New(color.Bold).Sprint(header)
	}
	fmt.Fprintf(out, "%s (%d name(s))\n", header, len(table))

	names := make([]string, 0, len(table))
	byName := make(map[string]decl.ID, len(table))
	for nameID, target := range table {
		name := arena.Strings().MustLookup(nameID)
		names = append(names, name)
		byName[name] = target
	}
	sort.Strings(names)

	for _, name := range names {
		target := byName[name]
		td := arena.Get(target)
		origin := ""
		if td.IsFakeOverride() {
			origin = " (inherited)"
		}
		fmt.Fprintf(out, "  %-24s -> %s %s%s\n", name, td.Kind, arena.Path(target), origin)
	}
	return nil
}
