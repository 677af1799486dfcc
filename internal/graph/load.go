package graph

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"
	"golang.org/x/text/unicode/norm"

	"flatns/internal/decl"
	"flatns/internal/diag"
	"flatns/internal/source"
)

// Result is one loaded compilation unit: its declaration arena, the
// source declarations in fixture order, and the dotted-path index used
// by debug commands.
type Result struct {
	Unit  string
	File  source.FileID
	Arena *decl.Arena

	// Order lists every source declaration (packages, classes, members,
	// property accessors) in the order it appeared in the fixture.
	// Synthesized fake overrides are reachable through class members but
	// never listed here.
	Order []decl.ID

	// Roots are the top-level packages of the unit.
	Roots []decl.ID

	// ByPath resolves a dotted declaration path to its ID.
	ByPath map[string]decl.ID
}

type loader struct {
	arena    *decl.Arena
	in       *source.Interner
	reporter diag.Reporter
	loc      *locator

	byPath map[string]decl.ID
	order  []decl.ID
	roots  []decl.ID
}

// Load reads a unit fixture from disk into fset and builds its
// declaration graph. Semantic problems (unknown references, bad kinds,
// inheritance cycles) are reported as diagnostics and the offending
// entries skipped; the returned error covers only I/O and TOML syntax
// failures, which are reported too.
func Load(fset *source.FileSet, path string, reporter diag.Reporter) (*Result, error) {
	fileID, err := fset.Load(path)
	if err != nil {
		diag.ReportError(reporter, diag.IOLoadFileError, source.Span{},
			fmt.Sprintf("cannot load %q: %v", path, err)).Emit()
		return nil, err
	}
	return LoadFile(fset, fileID, reporter)
}

// LoadFile builds the declaration graph of a unit already present in
// the file set.
func LoadFile(fset *source.FileSet, fileID source.FileID, reporter diag.Reporter) (*Result, error) {
	file := fset.Get(fileID)

	var uf unitFile
	meta, err := toml.Decode(string(file.Content), &uf)
	if err != nil {
		sp := source.Span{File: fileID}
		var pe toml.ParseError
		if errors.As(err, &pe) {
			sp = parseErrorSpan(fileID, file, pe)
		}
		diag.ReportError(reporter, diag.GraphSyntax, sp,
			fmt.Sprintf("malformed unit fixture: %v", err)).Emit()
		return nil, err
	}
	for _, key := range meta.Undecoded() {
		diag.ReportWarning(reporter, diag.GraphSyntax, source.Span{File: fileID},
			fmt.Sprintf("unknown key %q ignored", key.String())).Emit()
	}

	arena := decl.NewArena(0, nil)
	ld := &loader{
		arena:    arena,
		in:       arena.Strings(),
		reporter: reporter,
		loc:      newLocator(fileID, file.Content),
		byPath:   make(map[string]decl.ID),
	}

	ld.loadPackages(uf.Packages)
	classIDs := ld.loadClasses(uf.Classes)
	ld.resolveSupertypes(uf.Classes, classIDs)
	memberIDs := ld.loadMembers(uf.Members)
	ld.resolveOverrides(uf.Members, memberIDs)
	ld.synthesize(classIDs)

	unit := strings.TrimSpace(uf.Unit)
	if unit == "" {
		unit = strings.TrimSuffix(filepath.Base(file.Path), filepath.Ext(file.Path))
	}
	return &Result{
		Unit:   unit,
		File:   fileID,
		Arena:  ld.arena,
		Order:  ld.order,
		Roots:  ld.roots,
		ByPath: ld.byPath,
	}, nil
}

// ident normalizes an identifier to NFC before interning, so visually
// equal names from differently-encoded fixtures land on one StringID.
func (ld *loader) ident(s string) source.StringID {
	s = strings.TrimSpace(s)
	if s == "" {
		return source.NoStringID
	}
	return ld.in.Intern(norm.NFC.String(s))
}

// ensurePackage creates the package chain for a dotted path, reusing
// segments that already exist, and returns the leaf package.
func (ld *loader) ensurePackage(path string, sp source.Span) decl.ID {
	path = norm.NFC.String(strings.TrimSpace(path))
	if path == "" {
		return decl.NoID
	}

	owner := decl.NoID
	full := ""
	for _, seg := range strings.Split(path, ".") {
		if full == "" {
			full = seg
		} else {
			full += "." + seg
		}
		if id, ok := ld.byPath[full]; ok {
			owner = id
			continue
		}
		id := ld.arena.New(&decl.Decl{
			Kind:  decl.KindPackage,
			Name:  ld.in.Intern(seg),
			Owner: owner,
		})
		ld.byPath[full] = id
		ld.order = append(ld.order, id)
		if !owner.IsValid() {
			ld.roots = append(ld.roots, id)
		}
		owner = id
	}

	// An explicit [[package]] section pins the span of its leaf; chains
	// created on the way keep empty spans.
	if leaf := ld.arena.Get(owner); leaf != nil && leaf.Span.Empty() {
		leaf.Span = sp
	}
	return owner
}

func (ld *loader) loadPackages(secs []packageSection) {
	for i, p := range secs {
		sp := spanIn(ld.loc.packages, i, "path")
		if strings.TrimSpace(p.Path) == "" {
			diag.ReportError(ld.reporter, diag.GraphMissingName, spanIn(ld.loc.packages, i, ""),
				"package section without a path").Emit()
			continue
		}
		ld.ensurePackage(p.Path, sp)
	}
}

func (ld *loader) loadClasses(secs []classSection) []decl.ID {
	ids := make([]decl.ID, len(secs))
	for i, c := range secs {
		sp := spanIn(ld.loc.classes, i, "name")
		name := ld.ident(c.Name)
		if name == source.NoStringID {
			diag.ReportError(ld.reporter, diag.GraphMissingName, spanIn(ld.loc.classes, i, ""),
				"class section without a name").Emit()
			continue
		}
		vis, ok := parseVisibility(c.Visibility)
		if !ok {
			diag.ReportError(ld.reporter, diag.GraphBadVisibility, spanIn(ld.loc.classes, i, "visibility"),
				fmt.Sprintf("unknown visibility %q", c.Visibility)).Emit()
			continue
		}
		if strings.TrimSpace(c.Package) == "" {
			diag.ReportError(ld.reporter, diag.GraphUnknownPackage, sp,
				fmt.Sprintf("class %q declares no package", c.Name)).Emit()
			continue
		}
		pkg, ok := ld.byPath[norm.NFC.String(strings.TrimSpace(c.Package))]
		if !ok || ld.arena.Get(pkg).Kind != decl.KindPackage {
			diag.ReportError(ld.reporter, diag.GraphUnknownPackage, spanIn(ld.loc.classes, i, "package"),
				fmt.Sprintf("class %q references unknown package %q", c.Name, c.Package)).Emit()
			continue
		}

		var flags decl.Flags
		if c.Native {
			flags |= decl.FlagNative
		}
		if c.Library {
			flags |= decl.FlagLibrary
		}
		id := ld.arena.New(&decl.Decl{
			Kind:   decl.KindClass,
			Vis:    vis,
			Flags:  flags,
			Name:   name,
			Rename: ld.ident(c.Rename),
			Owner:  pkg,
			Span:   sp,
		})
		path := ld.arena.Path(id)
		if prev, dup := ld.byPath[path]; dup {
			diag.ReportError(ld.reporter, diag.GraphDuplicateDecl, sp,
				fmt.Sprintf("duplicate declaration path %q", path)).
				WithNote(ld.arena.Get(prev).Span, "first declared here").
				Emit()
			continue
		}
		ld.byPath[path] = id
		ld.order = append(ld.order, id)
		ids[i] = id
	}
	return ids
}

func (ld *loader) resolveSupertypes(secs []classSection, ids []decl.ID) {
	for i, c := range secs {
		id := ids[i]
		if !id.IsValid() {
			continue
		}
		d := ld.arena.Get(id)
		for _, super := range c.Extends {
			ref := norm.NFC.String(strings.TrimSpace(super))
			sid, ok := ld.byPath[ref]
			if !ok || ld.arena.Get(sid).Kind != decl.KindClass {
				diag.ReportError(ld.reporter, diag.GraphUnknownSupertype, spanIn(ld.loc.classes, i, "extends"),
					fmt.Sprintf("class %q extends unknown class %q", c.Name, super)).Emit()
				continue
			}
			d.Supertypes = append(d.Supertypes, sid)
		}
	}
}

func (ld *loader) loadMembers(secs []memberSection) []decl.ID {
	ids := make([]decl.ID, len(secs))
	for i, m := range secs {
		ids[i] = ld.loadMember(i, m)
	}
	return ids
}

func (ld *loader) loadMember(i int, m memberSection) decl.ID {
	sp := spanIn(ld.loc.members, i, "name")
	kind, ok := parseMemberKind(m.Kind)
	if !ok {
		diag.ReportError(ld.reporter, diag.GraphBadKind, spanIn(ld.loc.members, i, "kind"),
			fmt.Sprintf("unknown member kind %q", m.Kind)).Emit()
		return decl.NoID
	}
	vis, ok := parseVisibility(m.Visibility)
	if !ok {
		diag.ReportError(ld.reporter, diag.GraphBadVisibility, spanIn(ld.loc.members, i, "visibility"),
			fmt.Sprintf("unknown visibility %q", m.Visibility)).Emit()
		return decl.NoID
	}

	owner, ok := ld.byPath[norm.NFC.String(strings.TrimSpace(m.Owner))]
	if !ok {
		diag.ReportError(ld.reporter, diag.GraphUnknownOwner, spanIn(ld.loc.members, i, "owner"),
			fmt.Sprintf("member %q references unknown owner %q", m.Name, m.Owner)).Emit()
		return decl.NoID
	}
	ownerDecl := ld.arena.Get(owner)
	switch {
	case !ownerDecl.Kind.IsScope():
		diag.ReportError(ld.reporter, diag.GraphMemberOwnerKind, spanIn(ld.loc.members, i, "owner"),
			fmt.Sprintf("member %q owner %q is a %s, not a class or package", m.Name, m.Owner, ownerDecl.Kind)).Emit()
		return decl.NoID
	case kind == decl.KindConstructor && ownerDecl.Kind != decl.KindClass:
		diag.ReportError(ld.reporter, diag.GraphMemberOwnerKind, spanIn(ld.loc.members, i, "owner"),
			fmt.Sprintf("constructor owner %q is not a class", m.Owner)).Emit()
		return decl.NoID
	}

	name := ld.ident(m.Name)
	if name == source.NoStringID {
		if kind == decl.KindConstructor {
			// Constructors are anonymous; they borrow the class name for
			// paths and dumps.
			name = ownerDecl.Name
		} else {
			diag.ReportError(ld.reporter, diag.GraphMissingName, spanIn(ld.loc.members, i, ""),
				"member section without a name").Emit()
			return decl.NoID
		}
	}

	var flags decl.Flags
	if m.Native {
		flags |= decl.FlagNative
	}
	if m.Library {
		flags |= decl.FlagLibrary
	}
	if m.Extension {
		flags |= decl.FlagExtension
	}
	if m.Primary {
		flags |= decl.FlagPrimary
	}
	if m.Mutable {
		flags |= decl.FlagMutable
	}

	id := ld.arena.New(&decl.Decl{
		Kind:         kind,
		Vis:          vis,
		Flags:        flags,
		Name:         name,
		Rename:       ld.ident(m.Rename),
		Owner:        owner,
		Span:         sp,
		GetterRename: ld.ident(m.GetterRename),
		SetterRename: ld.ident(m.SetterRename),
	})

	if kind != decl.KindConstructor {
		path := ld.arena.Path(id)
		if prev, dup := ld.byPath[path]; dup {
			diag.ReportError(ld.reporter, diag.GraphDuplicateDecl, sp,
				fmt.Sprintf("duplicate declaration path %q", path)).
				WithNote(ld.arena.Get(prev).Span, "first declared here").
				Emit()
		} else {
			ld.byPath[path] = id
		}
	}
	ld.order = append(ld.order, id)

	if kind == decl.KindProperty {
		ld.addAccessors(id, sp, m.Mutable)
	}
	return id
}

// addAccessors attaches a getter (always) and a setter (for mutable
// properties) to a source property. Accessors are owned by the property
// itself, never by the enclosing scope, so they only enter a flattened
// table when the property is represented by them.
func (ld *loader) addAccessors(prop decl.ID, sp source.Span, mutable bool) {
	pd := ld.arena.Get(prop)
	base, _ := ld.in.Lookup(pd.Name)

	getter := ld.arena.New(&decl.Decl{
		Kind:       decl.KindAccessor,
		Vis:        pd.Vis,
		Name:       ld.in.Intern("<get-" + base + ">"),
		Owner:      prop,
		Span:       sp,
		AccessorOf: prop,
		Role:       decl.RoleGetter,
	})
	pd = ld.arena.Get(prop) // New may have grown the arena
	pd.Getter = getter
	ld.order = append(ld.order, getter)

	if mutable {
		setter := ld.arena.New(&decl.Decl{
			Kind:       decl.KindAccessor,
			Vis:        pd.Vis,
			Name:       ld.in.Intern("<set-" + base + ">"),
			Owner:      prop,
			Span:       sp,
			AccessorOf: prop,
			Role:       decl.RoleSetter,
		})
		pd = ld.arena.Get(prop)
		pd.Setter = setter
		ld.order = append(ld.order, setter)
	}
}

func (ld *loader) resolveOverrides(secs []memberSection, ids []decl.ID) {
	for i, m := range secs {
		id := ids[i]
		if !id.IsValid() || len(m.Overrides) == 0 {
			continue
		}
		d := ld.arena.Get(id)
		for _, ref := range m.Overrides {
			path := norm.NFC.String(strings.TrimSpace(ref))
			target, ok := ld.byPath[path]
			if !ok || !ld.arena.Get(target).Kind.IsCallable() {
				diag.ReportError(ld.reporter, diag.GraphUnknownOverride, spanIn(ld.loc.members, i, "overrides"),
					fmt.Sprintf("member %q overrides unknown member %q", m.Name, ref)).Emit()
				continue
			}
			d.Overridden = appendUnique(d.Overridden, target)
		}
	}
}

func parseMemberKind(s string) (decl.Kind, bool) {
	switch strings.TrimSpace(s) {
	case "function":
		return decl.KindFunction, true
	case "property":
		return decl.KindProperty, true
	case "constructor":
		return decl.KindConstructor, true
	default:
		return decl.KindInvalid, false
	}
}

func parseVisibility(s string) (decl.Vis, bool) {
	switch strings.TrimSpace(s) {
	case "", "public":
		return decl.VisPublic, true
	case "private":
		return decl.VisPrivate, true
	default:
		return decl.VisPublic, false
	}
}

func appendUnique(ids []decl.ID, id decl.ID) []decl.ID {
	for _, have := range ids {
		if have == id {
			return ids
		}
	}
	return append(ids, id)
}

// parseErrorSpan converts a TOML parse error position into a span so
// syntax diagnostics point at the offending bytes.
func parseErrorSpan(fileID source.FileID, file *source.File, pe toml.ParseError) source.Span {
	start, err := safecast.Conv[uint32](max(pe.Position.Start, 0))
	if err != nil {
		return source.Span{File: fileID}
	}
	length, err := safecast.Conv[uint32](max(pe.Position.Len, 0))
	if err != nil {
		length = 0
	}
	limit := uint32(len(file.Content)) // #nosec G115 -- file sizes fit uint32 by FileSet invariant
	if start > limit {
		start = limit
	}
	end := start + length
	if end > limit {
		end = limit
	}
	return source.Span{File: fileID, Start: start, End: end}
}
