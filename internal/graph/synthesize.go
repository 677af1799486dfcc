package graph

import (
	"fmt"
	"iter"
	"slices"

	"flatns/internal/decl"
	"flatns/internal/diag"
	"flatns/internal/source"
)

// surfaceKey identifies a member slot within a class surface. Two
// members occupy the same slot when they agree on kind and source name;
// a local member in an inherited slot overrides instead of shadowing.
type surfaceKey struct {
	kind decl.Kind
	name source.StringID
}

type synthesizer struct {
	ld *loader

	// surfaces memoizes the full member surface per class.
	surfaces map[decl.ID]map[surfaceKey]decl.ID

	// building guards against inheritance cycles.
	building map[decl.ID]struct{}
}

// synthesize completes every class surface with fake overrides: for
// each inherited member slot with no local re-declaration, a synthetic
// member is added with OriginFakeOverride, no span, and an Overridden
// chain into the supertype. Local members landing in an inherited slot
// get the inherited member linked into their Overridden list even when
// the fixture omitted an explicit overrides entry.
func (ld *loader) synthesize(classIDs []decl.ID) {
	syn := &synthesizer{
		ld:       ld,
		surfaces: make(map[decl.ID]map[surfaceKey]decl.ID),
		building: make(map[decl.ID]struct{}),
	}
	for _, id := range classIDs {
		if id.IsValid() {
			syn.surface(id)
		}
	}
}

func (s *synthesizer) surface(classID decl.ID) map[surfaceKey]decl.ID {
	if done, ok := s.surfaces[classID]; ok {
		return done
	}
	if _, inProgress := s.building[classID]; inProgress {
		class := s.ld.arena.Get(classID)
		diag.ReportError(s.ld.reporter, diag.GraphInheritanceCycle, class.Span,
			fmt.Sprintf("class %q participates in an inheritance cycle", s.ld.arena.Path(classID))).Emit()
		return nil
	}
	s.building[classID] = struct{}{}
	defer delete(s.building, classID)

	table := make(map[surfaceKey]decl.ID)
	for _, m := range s.ld.arena.Get(classID).Members {
		md := s.ld.arena.Get(m)
		if md.Kind == decl.KindConstructor || md.Kind == decl.KindAccessor {
			continue
		}
		table[surfaceKey{kind: md.Kind, name: md.Name}] = m
	}

	// Supertypes is stable fixture order, so synthesis is deterministic.
	supers := s.ld.arena.Get(classID).Supertypes
	for _, super := range supers {
		for key, inherited := range sortedSurface(s.surface(super)) {
			if !s.inheritable(inherited) {
				continue
			}
			if local, taken := table[key]; taken {
				s.link(local, inherited)
				continue
			}
			table[key] = s.fakeOverride(classID, inherited)
		}
	}

	s.surfaces[classID] = table
	return table
}

// inheritable reports whether a supertype member propagates into
// subclass surfaces. Privates and constructors stay with their class.
func (s *synthesizer) inheritable(id decl.ID) bool {
	d := s.ld.arena.Get(id)
	if d == nil {
		return false
	}
	return d.Vis != decl.VisPrivate && d.Kind != decl.KindConstructor
}

// link records that a local member overrides an inherited one. Accessor
// chains are linked alongside their properties.
func (s *synthesizer) link(local, inherited decl.ID) {
	arena := s.ld.arena
	d := arena.Get(local)
	d.Overridden = appendUnique(d.Overridden, inherited)

	inh := arena.Get(inherited)
	if d.Kind != decl.KindProperty || inh.Kind != decl.KindProperty {
		return
	}
	if d.Getter.IsValid() && inh.Getter.IsValid() {
		g := arena.Get(d.Getter)
		g.Overridden = appendUnique(g.Overridden, inh.Getter)
	}
	if d.Setter.IsValid() && inh.Setter.IsValid() {
		st := arena.Get(d.Setter)
		st.Overridden = appendUnique(st.Overridden, inh.Setter)
	}
}

// fakeOverride materializes one inherited member on classID's surface.
func (s *synthesizer) fakeOverride(classID, inherited decl.ID) decl.ID {
	arena := s.ld.arena
	inh := arena.Get(inherited)

	fake := arena.New(&decl.Decl{
		Kind:         inh.Kind,
		Origin:       decl.OriginFakeOverride,
		Vis:          inh.Vis,
		Flags:        inh.Flags,
		Name:         inh.Name,
		Rename:       inh.Rename,
		Owner:        classID,
		Overridden:   []decl.ID{inherited},
		GetterRename: inh.GetterRename,
		SetterRename: inh.SetterRename,
	})

	if inh.Kind == decl.KindProperty {
		// Re-read pointers after every New: the arena may reallocate.
		inh = arena.Get(inherited)
		if inh.Getter.IsValid() {
			g := s.fakeAccessor(fake, inh.Getter, decl.RoleGetter)
			arena.Get(fake).Getter = g
		}
		inh = arena.Get(inherited)
		if inh.Setter.IsValid() {
			st := s.fakeAccessor(fake, inh.Setter, decl.RoleSetter)
			arena.Get(fake).Setter = st
		}
	}
	return fake
}

// sortedSurface iterates a surface in (kind, name) order so fake
// overrides are allocated deterministically regardless of map layout.
func sortedSurface(m map[surfaceKey]decl.ID) iter.Seq2[surfaceKey, decl.ID] {
	keys := make([]surfaceKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b surfaceKey) int {
		if a.kind != b.kind {
			return int(a.kind) - int(b.kind)
		}
		return int(a.name) - int(b.name)
	})
	return func(yield func(surfaceKey, decl.ID) bool) {
		for _, k := range keys {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}

func (s *synthesizer) fakeAccessor(fakeProp, inherited decl.ID, role decl.AccessorRole) decl.ID {
	arena := s.ld.arena
	inh := arena.Get(inherited)
	return arena.New(&decl.Decl{
		Kind:       decl.KindAccessor,
		Origin:     decl.OriginFakeOverride,
		Vis:        inh.Vis,
		Name:       inh.Name,
		Owner:      fakeProp,
		Overridden: []decl.ID{inherited},
		AccessorOf: fakeProp,
		Role:       role,
	})
}
