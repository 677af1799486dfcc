package naming

import (
	"flatns/internal/decl"
	"flatns/internal/source"
)

// Suggestion is the result of the mangling policy for one declaration.
type Suggestion struct {
	// Target is the declaration the name belongs to. It may differ from
	// the suggested declaration when resolution redirects, e.g. an
	// extension property resolves to its accessors.
	Target decl.ID

	// Scope is the class or package the name is generated into, NoID
	// when the name does not land in a flattened scope.
	Scope decl.ID

	// Segments is the non-empty generated name path; only the last
	// segment (the leaf) matters for clash detection within Scope.
	Segments []source.StringID

	// Stable marks deterministic, unmangled names. Only stable names
	// participate in clash detection; mangled names cannot collide by
	// construction.
	Stable bool
}

// Leaf returns the final path segment.
func (s Suggestion) Leaf() source.StringID {
	return s.Segments[len(s.Segments)-1]
}

// Suggester is the injected mangling policy. Suggest must be a pure,
// deterministic function of the immutable declaration graph. The second
// result is false when the policy has no name for the declaration
// (local-only, not exported); for every supported declaration kind a
// result is part of the collaborator contract.
type Suggester interface {
	Suggest(id decl.ID) (Suggestion, bool)
}
