package decl

import (
	"flatns/internal/source"
)

// Decl describes one declaration in the semantic graph. Identity is the
// arena ID, never the name: two declarations may suggest the same
// generated name and still be distinct.
type Decl struct {
	Kind   Kind
	Origin Origin
	Vis    Vis
	Flags  Flags

	// Name is the source name; Rename is an explicit rename annotation
	// overriding it in generated code (NoStringID when absent).
	Name   source.StringID
	Rename source.StringID

	// Owner is the enclosing class or package, immutable after creation.
	Owner ID

	// Span is the declaration site. Zero-length for declarations with no
	// source (fake overrides, library members).
	Span source.Span

	// Members lists the full surface of a class (declared plus
	// synthesized fake overrides) or the direct members of a package,
	// sub-packages included.
	Members []ID

	// Supertypes lists direct superclasses of a class.
	Supertypes []ID

	// Overridden is the ordered set of members this callable overrides.
	Overridden []ID

	// Getter/Setter are the accessor declarations of a property;
	// GetterRename/SetterRename carry per-accessor rename annotations.
	Getter       ID
	Setter       ID
	GetterRename source.StringID
	SetterRename source.StringID

	// AccessorOf points an accessor back at its property.
	AccessorOf ID
	Role       AccessorRole
}

// EffectiveName returns the rename annotation when present, otherwise
// the source name.
func (d *Decl) EffectiveName() source.StringID {
	if d.Rename != source.NoStringID {
		return d.Rename
	}
	return d.Name
}

// IsFakeOverride reports whether the declaration was synthesized by
// inheritance rather than written in source.
func (d *Decl) IsFakeOverride() bool {
	return d.Origin == OriginFakeOverride
}

// IsPrimaryConstructor reports whether the declaration is a class's
// primary constructor.
func (d *Decl) IsPrimaryConstructor() bool {
	return d.Kind == KindConstructor && d.Flags&FlagPrimary != 0
}

// HasAccessorRename reports whether any accessor carries its own rename
// annotation, which forces the property to be represented in generated
// code by its accessors.
func (d *Decl) HasAccessorRename() bool {
	return d.GetterRename != source.NoStringID || d.SetterRename != source.NoStringID
}
