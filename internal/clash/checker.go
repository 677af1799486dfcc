package clash

import (
	"fmt"

	"flatns/internal/decl"
	"flatns/internal/diag"
	"flatns/internal/naming"
	"flatns/internal/source"
)

// Env carries the collaborators a Checker consumes. All of them must be
// pure over the immutable declaration graph of one compilation pass.
type Env struct {
	Decls     *decl.Arena
	Suggester naming.Suggester
	Reporter  diag.Reporter

	// Presents reports whether a declaration produces generated code.
	// Nil defaults to the flag-based predicate (native and library
	// declarations have no generated body).
	Presents func(decl.ID) bool

	// HasAccessorRename reports whether a property carries per-accessor
	// rename annotations. Nil defaults to the flag-based predicate.
	HasAccessorRename func(decl.ID) bool
}

type clashPair struct {
	existing decl.ID
	ancestor decl.ID
}

// Checker detects generated-name clashes between distinct declarations
// sharing a flattened class or package scope, including clashes
// introduced only through inheritance. One instance serves one
// compilation pass; all state below is discarded with it.
type Checker struct {
	env Env

	// scopes memoizes the flattened name table per owner.
	scopes map[decl.ID]map[source.StringID]decl.ID

	// clashedFakeOverrides records, per fake override, the pair that
	// first caused its conflict during table population, so a later
	// check of any inheriting class can report it once.
	clashedFakeOverrides map[decl.ID]clashPair

	// flagged collects occupants that already received a symmetric
	// report, so one popular name is not flagged per clashing newcomer.
	flagged map[decl.ID]struct{}
}

// NewChecker constructs a checker for one pass over env's graph.
func NewChecker(env Env) *Checker {
	if env.Presents == nil {
		arena := env.Decls
		env.Presents = func(id decl.ID) bool {
			d := arena.Get(id)
			return d != nil && d.Flags&(decl.FlagNative|decl.FlagLibrary) == 0
		}
	}
	if env.HasAccessorRename == nil {
		arena := env.Decls
		env.HasAccessorRename = func(id decl.ID) bool {
			d := arena.Get(id)
			return d != nil && d.HasAccessorRename()
		}
	}
	return &Checker{
		env:                  env,
		scopes:               make(map[decl.ID]map[source.StringID]decl.ID),
		clashedFakeOverrides: make(map[decl.ID]clashPair),
		flagged:              make(map[decl.ID]struct{}),
	}
}

// Check runs clash analysis for one source declaration. The returned
// error signals a collaborator contract violation (no suggestion for a
// supported declaration kind), never a user-facing clash: those go to
// the reporter and analysis continues.
func (c *Checker) Check(id decl.ID) error {
	d := c.env.Decls.Get(id)
	if d == nil {
		return fmt.Errorf("clash: check of unknown declaration %d", id)
	}

	// Primary constructors map to the class's construction mechanism,
	// not a named member; they never clash.
	if !d.IsPrimaryConstructor() {
		if err := c.checkDirect(id, d); err != nil {
			return err
		}
	}

	if d.Kind == decl.KindClass {
		return c.checkFakeOverrides(id, d)
	}
	return nil
}

// checkDirect looks the declaration's suggested leaf name up in its
// target scope and reports a NameClash against any distinct occupant.
func (c *Checker) checkDirect(id decl.ID, d *decl.Decl) error {
	sugg, ok := c.env.Suggester.Suggest(id)
	if !ok {
		return fmt.Errorf("clash: no name suggestion for %s %q", d.Kind, c.env.Decls.Path(id))
	}

	scopeDecl := c.env.Decls.Get(sugg.Scope)
	if !sugg.Stable || scopeDecl == nil || !scopeDecl.Kind.IsScope() || !c.env.Presents(sugg.Target) {
		return nil
	}

	table, err := c.scope(sugg.Scope)
	if err != nil {
		return err
	}
	name := sugg.Leaf()
	existing := table[name]
	if !existing.IsValid() || existing == sugg.Target {
		return nil
	}

	nameStr := c.env.Decls.Strings().MustLookup(name)
	existingDecl := c.env.Decls.Get(existing)

	b := diag.ReportError(c.env.Reporter, diag.NameClash, d.Span,
		fmt.Sprintf("generated name %q clashes with %s '%s'", nameStr, existingDecl.Kind, c.env.Decls.Path(existing)))
	if !existingDecl.Span.Empty() {
		b.WithNote(existingDecl.Span, "conflicting declaration here")
	}
	b.Emit()

	// Symmetric report, at most once per occupant across the pass.
	if _, done := c.flagged[existing]; done {
		return nil
	}
	c.flagged[existing] = struct{}{}

	switch {
	case existingDecl.Span.Empty():
		// No discoverable source site for the occupant; attach the
		// symmetric report to the newcomer instead.
		diag.ReportError(c.env.Reporter, diag.NameClash, d.Span,
			fmt.Sprintf("generated name %q clashes with %s '%s'", nameStr, d.Kind, c.env.Decls.Path(id))).
			Emit()
	case existingDecl.Span != d.Span:
		diag.ReportError(c.env.Reporter, diag.NameClash, existingDecl.Span,
			fmt.Sprintf("generated name %q clashes with %s '%s'", nameStr, d.Kind, c.env.Decls.Path(id))).
			WithNote(d.Span, "conflicting declaration here").
			Emit()
	}
	return nil
}

// checkFakeOverrides scans a class's inherited-but-not-overridden
// members for generated-name conflicts with ancestors' names. At most
// one SyntheticNameClash is reported per class per call: the scan stops
// at the first conflicting member.
func (c *Checker) checkFakeOverrides(classID decl.ID, class *decl.Decl) error {
	for _, m := range class.Members {
		md := c.env.Decls.Get(m)
		if md == nil || !md.IsFakeOverride() || !md.Kind.IsCallable() {
			continue
		}

		sugg, ok := c.env.Suggester.Suggest(m)
		if !ok {
			return fmt.Errorf("clash: no name suggestion for inherited %s %q", md.Kind, c.env.Decls.Path(m))
		}
		scopeDecl := c.env.Decls.Get(sugg.Scope)
		if scopeDecl == nil || !scopeDecl.Kind.IsScope() {
			continue
		}
		table, err := c.scope(sugg.Scope)
		if err != nil {
			return err
		}
		name := sugg.Leaf()
		nameStr := c.env.Decls.Strings().MustLookup(name)

		if existing := table[name]; existing.IsValid() && existing != sugg.Target {
			c.reportSynthetic(classID, class, nameStr, m, existing)
			return nil
		}

		if pair, recorded := c.clashedFakeOverrides[m]; recorded {
			c.reportSynthetic(classID, class, nameStr, pair.existing, pair.ancestor)
			return nil
		}
	}
	return nil
}

func (c *Checker) reportSynthetic(classID decl.ID, class *decl.Decl, name string, first, second decl.ID) {
	arena := c.env.Decls
	firstDecl := arena.Get(first)
	secondDecl := arena.Get(second)

	b := diag.ReportError(c.env.Reporter, diag.SyntheticNameClash, class.Span,
		fmt.Sprintf("class %q inherits a member whose generated name %q clashes: %s '%s' vs %s '%s'",
			arena.Name(classID), name,
			firstDecl.Kind, arena.Path(first),
			secondDecl.Kind, arena.Path(second)))
	if !firstDecl.Span.Empty() {
		b.WithNote(firstDecl.Span, "first declaration here")
	}
	if !secondDecl.Span.Empty() {
		b.WithNote(secondDecl.Span, "second declaration here")
	}
	b.Emit()
}
