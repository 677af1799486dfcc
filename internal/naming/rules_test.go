package naming

import (
	"testing"

	"flatns/internal/decl"
	"flatns/internal/source"
)

type fixture struct {
	arena *decl.Arena
	rules *Rules
	pkg   decl.ID
	class decl.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	arena := decl.NewArena(0, nil)
	in := arena.Strings()
	pkg := arena.New(&decl.Decl{Kind: decl.KindPackage, Name: in.Intern("app")})
	class := arena.New(&decl.Decl{Kind: decl.KindClass, Owner: pkg, Name: in.Intern("Widget")})
	return &fixture{arena: arena, rules: NewRules(arena), pkg: pkg, class: class}
}

func (f *fixture) intern(s string) source.StringID {
	return f.arena.Strings().Intern(s)
}

func (f *fixture) leafString(s Suggestion) string {
	return f.arena.Strings().MustLookup(s.Leaf())
}

func TestSuggestPublicFunctionIsStable(t *testing.T) {
	f := newFixture(t)
	fn := f.arena.New(&decl.Decl{Kind: decl.KindFunction, Owner: f.class, Name: f.intern("render")})

	s, ok := f.rules.Suggest(fn)
	if !ok {
		t.Fatal("expected a suggestion")
	}
	if !s.Stable {
		t.Error("public function should be stable")
	}
	if s.Scope != f.class {
		t.Errorf("expected class scope %d, got %d", f.class, s.Scope)
	}
	if got := f.leafString(s); got != "render" {
		t.Errorf("expected leaf 'render', got %q", got)
	}
	if s.Target != fn {
		t.Errorf("expected target %d, got %d", fn, s.Target)
	}
}

func TestSuggestRenameWinsAndForcesStability(t *testing.T) {
	f := newFixture(t)
	fn := f.arena.New(&decl.Decl{
		Kind:   decl.KindFunction,
		Owner:  f.class,
		Vis:    decl.VisPrivate,
		Name:   f.intern("internalRefresh"),
		Rename: f.intern("refresh"),
	})

	s, ok := f.rules.Suggest(fn)
	if !ok {
		t.Fatal("expected a suggestion")
	}
	if !s.Stable {
		t.Error("renamed declaration must be stable")
	}
	if got := f.leafString(s); got != "refresh" {
		t.Errorf("expected rename leaf, got %q", got)
	}
}

func TestSuggestPrivateFunctionIsMangled(t *testing.T) {
	f := newFixture(t)
	fn := f.arena.New(&decl.Decl{Kind: decl.KindFunction, Owner: f.class, Vis: decl.VisPrivate, Name: f.intern("helper")})

	s, ok := f.rules.Suggest(fn)
	if !ok {
		t.Fatal("expected a suggestion")
	}
	if s.Stable {
		t.Error("private function must be unstable")
	}
	got := f.leafString(s)
	if got == "helper" {
		t.Error("expected a mangled leaf, got the plain name")
	}
	// Deterministic across repeated calls.
	again, _ := f.rules.Suggest(fn)
	if f.leafString(again) != got {
		t.Error("mangled leaf must be deterministic")
	}
}

func TestSuggestAccessorNames(t *testing.T) {
	f := newFixture(t)
	in := f.arena.Strings()
	prop := f.arena.New(&decl.Decl{
		Kind:  decl.KindProperty,
		Owner: f.class,
		Name:  in.Intern("title"),
		Flags: decl.FlagMutable,
	})
	getter := f.arena.New(&decl.Decl{Kind: decl.KindAccessor, Owner: prop, AccessorOf: prop, Role: decl.RoleGetter})
	setter := f.arena.New(&decl.Decl{Kind: decl.KindAccessor, Owner: prop, AccessorOf: prop, Role: decl.RoleSetter})
	f.arena.Get(prop).Getter = getter
	f.arena.Get(prop).Setter = setter

	gs, ok := f.rules.Suggest(getter)
	if !ok {
		t.Fatal("expected getter suggestion")
	}
	if got := f.leafString(gs); got != "getTitle" {
		t.Errorf("expected 'getTitle', got %q", got)
	}
	ss, ok := f.rules.Suggest(setter)
	if !ok {
		t.Fatal("expected setter suggestion")
	}
	if got := f.leafString(ss); got != "setTitle" {
		t.Errorf("expected 'setTitle', got %q", got)
	}
}

func TestSuggestPerAccessorRenameWins(t *testing.T) {
	f := newFixture(t)
	in := f.arena.Strings()
	prop := f.arena.New(&decl.Decl{
		Kind:         decl.KindProperty,
		Owner:        f.class,
		Name:         in.Intern("count"),
		GetterRename: in.Intern("size"),
	})
	getter := f.arena.New(&decl.Decl{Kind: decl.KindAccessor, Owner: prop, AccessorOf: prop, Role: decl.RoleGetter})
	f.arena.Get(prop).Getter = getter

	s, ok := f.rules.Suggest(getter)
	if !ok {
		t.Fatal("expected a suggestion")
	}
	if got := f.leafString(s); got != "size" {
		t.Errorf("expected rename leaf 'size', got %q", got)
	}
}

func TestSuggestExtensionPropertyRedirectsToGetter(t *testing.T) {
	f := newFixture(t)
	in := f.arena.Strings()
	prop := f.arena.New(&decl.Decl{
		Kind:  decl.KindProperty,
		Owner: f.pkg,
		Name:  in.Intern("bar"),
		Flags: decl.FlagExtension,
	})
	getter := f.arena.New(&decl.Decl{Kind: decl.KindAccessor, Owner: prop, AccessorOf: prop, Role: decl.RoleGetter})
	f.arena.Get(prop).Getter = getter

	s, ok := f.rules.Suggest(prop)
	if !ok {
		t.Fatal("expected a suggestion")
	}
	if s.Target != getter {
		t.Fatalf("expected redirect target %d (getter), got %d", getter, s.Target)
	}
	if got := f.leafString(s); got != "getBar" {
		t.Errorf("expected 'getBar', got %q", got)
	}
}

func TestSuggestPrimaryConstructorHasNoScope(t *testing.T) {
	f := newFixture(t)
	ctor := f.arena.New(&decl.Decl{Kind: decl.KindConstructor, Owner: f.class, Flags: decl.FlagPrimary})

	s, ok := f.rules.Suggest(ctor)
	if !ok {
		t.Fatal("expected a suggestion")
	}
	if s.Scope != decl.NoID {
		t.Errorf("primary constructor must not target a flattened scope, got %d", s.Scope)
	}
}

func TestSuggestSecondaryConstructorLandsInPackage(t *testing.T) {
	f := newFixture(t)
	ctor := f.arena.New(&decl.Decl{Kind: decl.KindConstructor, Owner: f.class})

	s, ok := f.rules.Suggest(ctor)
	if !ok {
		t.Fatal("expected a suggestion")
	}
	if s.Scope != f.pkg {
		t.Errorf("expected package scope %d, got %d", f.pkg, s.Scope)
	}
	if got := f.leafString(s); got != "Widget_init" {
		t.Errorf("expected 'Widget_init', got %q", got)
	}
	if !s.Stable {
		t.Error("secondary constructor of a public class should be stable")
	}
}

func TestSuggestSegmentsSpellFullPath(t *testing.T) {
	f := newFixture(t)
	fn := f.arena.New(&decl.Decl{Kind: decl.KindFunction, Owner: f.class, Name: f.intern("draw")})

	s, _ := f.rules.Suggest(fn)
	in := f.arena.Strings()
	var got []string
	for _, seg := range s.Segments {
		got = append(got, in.MustLookup(seg))
	}
	want := []string{"app", "Widget", "draw"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
