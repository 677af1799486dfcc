package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"flatns/internal/decl"
	"flatns/internal/source"
)

// Rules is the default deterministic suggestion policy:
//
//   - public (or explicitly renamed) declarations keep a stable leaf,
//     the rename annotation winning over the source name;
//   - private members get an unstable mangled leaf derived from their
//     owner-qualified path;
//   - extension properties and properties with per-accessor renames
//     resolve to their accessors;
//   - accessors default to get<Name>/set<Name>;
//   - primary constructors have no flattened scope, secondary
//     constructors land in the enclosing package as <Class>_init.
type Rules struct {
	arena *decl.Arena
	title cases.Caser
}

// NewRules builds the default policy over one declaration arena.
func NewRules(arena *decl.Arena) *Rules {
	return &Rules{
		arena: arena,
		title: cases.Title(language.Und, cases.NoLower),
	}
}

var _ Suggester = (*Rules)(nil)

// Suggest implements Suggester.
func (r *Rules) Suggest(id decl.ID) (Suggestion, bool) {
	d := r.arena.Get(id)
	if d == nil {
		return Suggestion{}, false
	}

	switch d.Kind {
	case decl.KindPackage:
		return r.suggestPlain(id, d, true), true

	case decl.KindClass:
		return r.suggestPlain(id, d, r.stable(d)), true

	case decl.KindFunction:
		return r.suggestPlain(id, d, r.stable(d)), true

	case decl.KindProperty:
		if d.Flags&decl.FlagExtension != 0 || d.HasAccessorRename() {
			// Represented in generated code by its accessors.
			if d.Getter.IsValid() {
				return r.Suggest(d.Getter)
			}
			return Suggestion{}, false
		}
		return r.suggestPlain(id, d, r.stable(d)), true

	case decl.KindAccessor:
		return r.suggestAccessor(id, d)

	case decl.KindConstructor:
		return r.suggestConstructor(id, d), true

	case decl.KindInvalid:
		return Suggestion{}, false
	}
	return Suggestion{}, false
}

// stable reports whether the declaration keeps its unmangled name.
func (r *Rules) stable(d *decl.Decl) bool {
	return d.Vis == decl.VisPublic || d.Rename != source.NoStringID
}

func (r *Rules) suggestPlain(id decl.ID, d *decl.Decl, stable bool) Suggestion {
	leaf := d.EffectiveName()
	if !stable {
		leaf = r.mangle(id, leaf)
	}
	return Suggestion{
		Target:   id,
		Scope:    r.scopeOf(d),
		Segments: r.segments(d.Owner, leaf),
		Stable:   stable,
	}
}

func (r *Rules) suggestAccessor(id decl.ID, d *decl.Decl) (Suggestion, bool) {
	prop := r.arena.Get(d.AccessorOf)
	if prop == nil {
		return Suggestion{}, false
	}

	rename := prop.GetterRename
	prefix := "get"
	if d.Role == decl.RoleSetter {
		rename = prop.SetterRename
		prefix = "set"
	}

	var leaf source.StringID
	stable := true
	switch {
	case rename != source.NoStringID:
		leaf = rename
	case prop.Vis == decl.VisPublic || prop.Rename != source.NoStringID:
		in := r.arena.Strings()
		base, _ := in.Lookup(prop.EffectiveName())
		leaf = in.Intern(prefix + r.title.String(base))
	default:
		in := r.arena.Strings()
		base, _ := in.Lookup(prop.Name)
		leaf = r.mangle(id, in.Intern(prefix+r.title.String(base)))
		stable = false
	}

	return Suggestion{
		Target:   id,
		Scope:    r.scopeOf(d),
		Segments: r.segments(d.Owner, leaf),
		Stable:   stable,
	}, true
}

func (r *Rules) suggestConstructor(id decl.ID, d *decl.Decl) Suggestion {
	in := r.arena.Strings()
	class := r.arena.Get(d.Owner)

	if d.Flags&decl.FlagPrimary != 0 {
		// Primary constructors are the class's own construction
		// mechanism, never a named scope member.
		leaf := d.Name
		if class != nil {
			leaf = class.EffectiveName()
		}
		return Suggestion{
			Target:   id,
			Scope:    decl.NoID,
			Segments: []source.StringID{leaf},
			Stable:   true,
		}
	}

	// Secondary constructors become package-level factory functions.
	pkg := decl.NoID
	className := ""
	if class != nil {
		pkg = r.enclosingPackage(d.Owner)
		className, _ = in.Lookup(class.EffectiveName())
	}
	leaf := in.Intern(className + "_init")
	stable := class == nil || class.Vis == decl.VisPublic
	if !stable {
		leaf = r.mangle(id, leaf)
	}
	var ownerForPath decl.ID
	if class != nil {
		ownerForPath = class.Owner
	}
	return Suggestion{
		Target:   id,
		Scope:    pkg,
		Segments: r.segments(ownerForPath, leaf),
		Stable:   stable,
	}
}

// scopeOf returns the nearest owner that is a class or package.
func (r *Rules) scopeOf(d *decl.Decl) decl.ID {
	owner := d.Owner
	for owner.IsValid() {
		od := r.arena.Get(owner)
		if od == nil {
			return decl.NoID
		}
		if od.Kind.IsScope() {
			return owner
		}
		owner = od.Owner
	}
	return decl.NoID
}

// enclosingPackage walks owners up to the first package.
func (r *Rules) enclosingPackage(id decl.ID) decl.ID {
	for id.IsValid() {
		d := r.arena.Get(id)
		if d == nil {
			return decl.NoID
		}
		if d.Kind == decl.KindPackage {
			return id
		}
		id = d.Owner
	}
	return decl.NoID
}

// segments renders the generated path from the root down to leaf.
func (r *Rules) segments(owner decl.ID, leaf source.StringID) []source.StringID {
	var prefix []source.StringID
	for id := owner; id.IsValid(); {
		d := r.arena.Get(id)
		if d == nil {
			break
		}
		prefix = append(prefix, d.EffectiveName())
		id = d.Owner
	}
	// prefix is bottom-up; reverse into path order.
	out := make([]source.StringID, 0, len(prefix)+1)
	for i := len(prefix) - 1; i >= 0; i-- {
		out = append(out, prefix[i])
	}
	return append(out, leaf)
}

// mangle derives an unstable leaf from the owner-qualified path and the
// declaration identity, so two privates with equal source names never
// share a generated name. Deterministic for a fixed graph.
func (r *Rules) mangle(id decl.ID, leaf source.StringID) source.StringID {
	in := r.arena.Strings()
	base, _ := in.Lookup(leaf)
	sum := sha256.Sum256(fmt.Appendf(nil, "%s#%d", r.arena.Path(id), id))
	return in.Intern(base + "_" + hex.EncodeToString(sum[:])[:6])
}
