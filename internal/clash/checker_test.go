package clash

import (
	"fmt"
	"testing"

	"flatns/internal/decl"
	"flatns/internal/diag"
	"flatns/internal/naming"
	"flatns/internal/source"
)

// stubSuggester pins exact suggestions per declaration for tests that
// need full control over stability and leaf names.
type stubSuggester struct {
	byID map[decl.ID]naming.Suggestion
}

func (s stubSuggester) Suggest(id decl.ID) (naming.Suggestion, bool) {
	sg, ok := s.byID[id]
	return sg, ok
}

type world struct {
	arena *decl.Arena
	bag   *diag.Bag
	pkg   decl.ID
	spans uint32
}

func newWorld() *world {
	return &world{
		arena: decl.NewArena(0, nil),
		bag:   diag.NewBag(100),
	}
}

// span hands out distinct non-empty spans in declaration order.
func (w *world) span() source.Span {
	w.spans += 10
	return source.Span{File: 1, Start: w.spans, End: w.spans + 4}
}

func (w *world) add(d decl.Decl) decl.ID {
	if d.Span.Empty() && d.Origin == decl.OriginSource {
		d.Span = w.span()
	}
	return w.arena.New(&d)
}

func (w *world) checker() *Checker {
	return NewChecker(Env{
		Decls:     w.arena,
		Suggester: naming.NewRules(w.arena),
		Reporter:  diag.BagReporter{Bag: w.bag},
	})
}

func (w *world) checkerWith(s naming.Suggester) *Checker {
	return NewChecker(Env{
		Decls:     w.arena,
		Suggester: s,
		Reporter:  diag.BagReporter{Bag: w.bag},
	})
}

func (w *world) intern(s string) source.StringID {
	return w.arena.Strings().Intern(s)
}

func mustCheck(t *testing.T, c *Checker, ids ...decl.ID) {
	t.Helper()
	for _, id := range ids {
		if err := c.Check(id); err != nil {
			t.Fatalf("check %d: %v", id, err)
		}
	}
}

func countAt(bag *diag.Bag, span source.Span) int {
	n := 0
	for _, d := range bag.Items() {
		if d.Primary == span {
			n++
		}
	}
	return n
}

func TestScopeIndexMemoized(t *testing.T) {
	w := newWorld()
	pkg := w.add(decl.Decl{Kind: decl.KindPackage, Name: w.intern("app")})
	w.add(decl.Decl{Kind: decl.KindFunction, Owner: pkg, Name: w.intern("run")})

	c := w.checker()
	first, err := c.ScopeTable(pkg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.ScopeTable(pkg)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprintf("%p", first) != fmt.Sprintf("%p", second) {
		t.Fatal("expected the same memoized table instance")
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(first))
	}
}

func TestNoFalsePositiveOnSelf(t *testing.T) {
	w := newWorld()
	pkg := w.add(decl.Decl{Kind: decl.KindPackage, Name: w.intern("app")})
	fn := w.add(decl.Decl{Kind: decl.KindFunction, Owner: pkg, Name: w.intern("solo")})

	mustCheck(t, w.checker(), fn)

	if w.bag.Len() != 0 {
		t.Fatalf("expected no diagnostics, got %d", w.bag.Len())
	}
}

func TestDirectClashSymmetricReportOnce(t *testing.T) {
	w := newWorld()
	pkg := w.add(decl.Decl{Kind: decl.KindPackage, Name: w.intern("app")})
	outer := w.add(decl.Decl{Kind: decl.KindClass, Owner: pkg, Name: w.intern("Outer")})

	// fun foo() and val foo both map to generated name "foo".
	a := w.add(decl.Decl{Kind: decl.KindFunction, Owner: outer, Name: w.intern("foo")})
	b := w.add(decl.Decl{Kind: decl.KindProperty, Owner: outer, Name: w.intern("foo")})

	c := w.checker()
	mustCheck(t, c, a, b)

	if w.bag.Len() != 2 {
		t.Fatalf("expected exactly 2 diagnostics for the pair, got %d", w.bag.Len())
	}
	aSpan := w.arena.Get(a).Span
	bSpan := w.arena.Get(b).Span
	if countAt(w.bag, aSpan) != 1 {
		t.Errorf("expected exactly one report at A, got %d", countAt(w.bag, aSpan))
	}
	if countAt(w.bag, bSpan) != 1 {
		t.Errorf("expected exactly one report at B, got %d", countAt(w.bag, bSpan))
	}
	for _, d := range w.bag.Items() {
		if d.Code != diag.NameClash {
			t.Errorf("expected NameClash, got %v", d.Code)
		}
	}
}

func TestSymmetricReportCappedWithThirdClasher(t *testing.T) {
	w := newWorld()
	pkg := w.add(decl.Decl{Kind: decl.KindPackage, Name: w.intern("app")})
	outer := w.add(decl.Decl{Kind: decl.KindClass, Owner: pkg, Name: w.intern("Outer")})

	a := w.add(decl.Decl{Kind: decl.KindFunction, Owner: outer, Name: w.intern("foo")})
	b := w.add(decl.Decl{Kind: decl.KindProperty, Owner: outer, Name: w.intern("foo")})
	third := w.add(decl.Decl{Kind: decl.KindFunction, Owner: outer, Name: w.intern("other"), Rename: w.intern("foo")})

	c := w.checker()
	mustCheck(t, c, a, b, third)

	// The provisional occupant (last inserted) receives at most one
	// symmetric report no matter how many newcomers clash with it.
	thirdSpan := w.arena.Get(third).Span
	if got := countAt(w.bag, thirdSpan); got != 1 {
		t.Errorf("expected exactly one symmetric report at the occupant, got %d", got)
	}
	if w.bag.Len() != 3 {
		t.Fatalf("expected 3 diagnostics total, got %d", w.bag.Len())
	}
}

func TestUnstableNamesNeverClash(t *testing.T) {
	w := newWorld()
	pkg := w.add(decl.Decl{Kind: decl.KindPackage, Name: w.intern("app")})
	a := w.add(decl.Decl{Kind: decl.KindFunction, Owner: pkg, Name: w.intern("f")})
	b := w.add(decl.Decl{Kind: decl.KindFunction, Owner: pkg, Name: w.intern("g")})

	// Both suggest the same textual leaf, but unstable.
	leaf := w.intern("mangled$1")
	stub := stubSuggester{byID: map[decl.ID]naming.Suggestion{
		a: {Target: a, Scope: pkg, Segments: []source.StringID{leaf}, Stable: false},
		b: {Target: b, Scope: pkg, Segments: []source.StringID{leaf}, Stable: false},
	}}

	mustCheck(t, w.checkerWith(stub), a, b)

	if w.bag.Len() != 0 {
		t.Fatalf("unstable names must never clash, got %d diagnostics", w.bag.Len())
	}
}

func TestPrimaryConstructorExempt(t *testing.T) {
	w := newWorld()
	pkg := w.add(decl.Decl{Kind: decl.KindPackage, Name: w.intern("app")})
	cls := w.add(decl.Decl{Kind: decl.KindClass, Owner: pkg, Name: w.intern("Widget")})
	ctor := w.add(decl.Decl{Kind: decl.KindConstructor, Owner: cls, Flags: decl.FlagPrimary})
	fn := w.add(decl.Decl{Kind: decl.KindFunction, Owner: pkg, Name: w.intern("Widget_init")})

	// Even a suggester that WOULD clash the primary constructor with an
	// unrelated member must be short-circuited before lookup.
	leaf := w.intern("Widget_init")
	stub := stubSuggester{byID: map[decl.ID]naming.Suggestion{
		ctor: {Target: ctor, Scope: pkg, Segments: []source.StringID{leaf}, Stable: true},
		fn:   {Target: fn, Scope: pkg, Segments: []source.StringID{leaf}, Stable: true},
	}}

	mustCheck(t, w.checkerWith(stub), ctor)

	if w.bag.Len() != 0 {
		t.Fatalf("primary constructor must produce zero diagnostics, got %d", w.bag.Len())
	}
}

func TestExtensionPropertyRoutedToAccessors(t *testing.T) {
	w := newWorld()
	pkg := w.add(decl.Decl{Kind: decl.KindPackage, Name: w.intern("p")})
	prop := w.add(decl.Decl{Kind: decl.KindProperty, Owner: pkg, Name: w.intern("bar"), Flags: decl.FlagExtension})
	getter := w.add(decl.Decl{Kind: decl.KindAccessor, Owner: prop, AccessorOf: prop, Role: decl.RoleGetter})
	w.arena.Get(prop).Getter = getter

	c := w.checker()
	table, err := c.ScopeTable(pkg)
	if err != nil {
		t.Fatal(err)
	}

	if occupant, ok := table[w.intern("getBar")]; !ok || occupant != getter {
		t.Errorf("expected 'getBar' -> getter %d, got %d (present=%v)", getter, occupant, ok)
	}
	if _, ok := table[w.intern("bar")]; ok {
		t.Error("expected no unified 'bar' entry for an extension property")
	}
}

func TestNativeDeclarationAbsentFromScope(t *testing.T) {
	w := newWorld()
	pkg := w.add(decl.Decl{Kind: decl.KindPackage, Name: w.intern("app")})
	w.add(decl.Decl{Kind: decl.KindFunction, Owner: pkg, Name: w.intern("ambient"), Flags: decl.FlagNative})
	fn := w.add(decl.Decl{Kind: decl.KindFunction, Owner: pkg, Name: w.intern("ambient")})

	// The native declaration has no generated body, so the source
	// function occupies the name alone.
	c := w.checker()
	mustCheck(t, c, fn)

	if w.bag.Len() != 0 {
		t.Fatalf("expected no clash against a native declaration, got %d", w.bag.Len())
	}
	table, _ := c.ScopeTable(pkg)
	if occupant := table[w.intern("ambient")]; occupant != fn {
		t.Errorf("expected the source function to own the name, got %d", occupant)
	}
}

func TestSubPackagesFoldIntoOneTable(t *testing.T) {
	w := newWorld()
	root := w.add(decl.Decl{Kind: decl.KindPackage, Name: w.intern("app")})
	sub := w.add(decl.Decl{Kind: decl.KindPackage, Owner: root, Name: w.intern("util")})
	a := w.add(decl.Decl{Kind: decl.KindFunction, Owner: root, Name: w.intern("top")})
	b := w.add(decl.Decl{Kind: decl.KindFunction, Owner: sub, Name: w.intern("nested")})

	c := w.checker()
	table, err := c.ScopeTable(root)
	if err != nil {
		t.Fatal(err)
	}
	if table[w.intern("top")] != a {
		t.Error("expected root member in flat table")
	}
	if table[w.intern("nested")] != b {
		t.Error("expected sub-package member folded into the root table")
	}
}

func TestSyntheticClashDirect(t *testing.T) {
	w := newWorld()
	pkg := w.add(decl.Decl{Kind: decl.KindPackage, Name: w.intern("app")})
	base := w.add(decl.Decl{Kind: decl.KindClass, Owner: pkg, Name: w.intern("Base")})
	baseRun := w.add(decl.Decl{Kind: decl.KindFunction, Owner: base, Name: w.intern("run")})

	sub := w.add(decl.Decl{Kind: decl.KindClass, Owner: pkg, Name: w.intern("Sub"), Supertypes: []decl.ID{base}})
	// Inherited, not re-declared in source.
	fake := w.add(decl.Decl{Kind: decl.KindFunction, Owner: sub, Name: w.intern("run"),
		Origin: decl.OriginFakeOverride, Overridden: []decl.ID{baseRun}})
	// A source member whose generated name collides with the inherited one.
	w.add(decl.Decl{Kind: decl.KindFunction, Owner: sub, Name: w.intern("launch"), Rename: w.intern("run")})

	c := w.checker()
	mustCheck(t, c, sub)

	if w.bag.Len() != 1 {
		t.Fatalf("expected exactly 1 synthetic clash, got %d", w.bag.Len())
	}
	d := w.bag.Items()[0]
	if d.Code != diag.SyntheticNameClash {
		t.Fatalf("expected SyntheticNameClash, got %v", d.Code)
	}
	if d.Primary != w.arena.Get(sub).Span {
		t.Error("synthetic clash must be reported at the inheriting class")
	}
	_ = fake
}

func TestSyntheticClashShortCircuit(t *testing.T) {
	w := newWorld()
	pkg := w.add(decl.Decl{Kind: decl.KindPackage, Name: w.intern("app")})
	base := w.add(decl.Decl{Kind: decl.KindClass, Owner: pkg, Name: w.intern("Base")})
	m1 := w.add(decl.Decl{Kind: decl.KindFunction, Owner: base, Name: w.intern("m1")})
	m2 := w.add(decl.Decl{Kind: decl.KindFunction, Owner: base, Name: w.intern("m2")})

	d := w.add(decl.Decl{Kind: decl.KindClass, Owner: pkg, Name: w.intern("D"), Supertypes: []decl.ID{base}})
	w.add(decl.Decl{Kind: decl.KindFunction, Owner: d, Name: w.intern("m1"),
		Origin: decl.OriginFakeOverride, Overridden: []decl.ID{m1}})
	w.add(decl.Decl{Kind: decl.KindFunction, Owner: d, Name: w.intern("m2"),
		Origin: decl.OriginFakeOverride, Overridden: []decl.ID{m2}})
	// Two independent collisions against both inherited members.
	w.add(decl.Decl{Kind: decl.KindFunction, Owner: d, Name: w.intern("x1"), Rename: w.intern("m1")})
	w.add(decl.Decl{Kind: decl.KindFunction, Owner: d, Name: w.intern("x2"), Rename: w.intern("m2")})

	c := w.checker()
	if err := c.Check(d); err != nil {
		t.Fatal(err)
	}

	synthetic := 0
	for _, item := range w.bag.Items() {
		if item.Code == diag.SyntheticNameClash {
			synthetic++
		}
	}
	if synthetic != 1 {
		t.Fatalf("expected the scan to stop after the first synthetic clash, got %d", synthetic)
	}
}

func TestSyntheticClashViaAncestorChainRegistry(t *testing.T) {
	w := newWorld()
	pkg := w.add(decl.Decl{Kind: decl.KindPackage, Name: w.intern("app")})

	// Root declares run(); Mid overrides it under the rename "go".
	root := w.add(decl.Decl{Kind: decl.KindClass, Owner: pkg, Name: w.intern("Root")})
	rootRun := w.add(decl.Decl{Kind: decl.KindFunction, Owner: root, Name: w.intern("run")})
	mid := w.add(decl.Decl{Kind: decl.KindClass, Owner: pkg, Name: w.intern("Mid"), Supertypes: []decl.ID{root}})
	midGo := w.add(decl.Decl{Kind: decl.KindFunction, Owner: mid, Name: w.intern("go"),
		Overridden: []decl.ID{rootRun}})

	// Sub inherits Mid.go as a fake override and declares its own
	// member occupying the ancestor leaf "run".
	sub := w.add(decl.Decl{Kind: decl.KindClass, Owner: pkg, Name: w.intern("Sub"), Supertypes: []decl.ID{mid}})
	own := w.add(decl.Decl{Kind: decl.KindFunction, Owner: sub, Name: w.intern("run")})
	w.add(decl.Decl{Kind: decl.KindFunction, Owner: sub, Name: w.intern("go"),
		Origin: decl.OriginFakeOverride, Overridden: []decl.ID{midGo}})

	c := w.checker()
	if err := c.Check(sub); err != nil {
		t.Fatal(err)
	}

	synthetic := 0
	for _, item := range w.bag.Items() {
		if item.Code == diag.SyntheticNameClash {
			synthetic++
			if item.Primary != w.arena.Get(sub).Span {
				t.Error("registry-recorded clash must surface at the inheriting class")
			}
		}
	}
	if synthetic != 1 {
		t.Fatalf("expected 1 synthetic clash via the registry, got %d", synthetic)
	}
	_ = own
}

func TestDeterministicAcrossRuns(t *testing.T) {
	build := func() (*world, []decl.ID) {
		w := newWorld()
		pkg := w.add(decl.Decl{Kind: decl.KindPackage, Name: w.intern("app")})
		outer := w.add(decl.Decl{Kind: decl.KindClass, Owner: pkg, Name: w.intern("Outer")})
		a := w.add(decl.Decl{Kind: decl.KindFunction, Owner: outer, Name: w.intern("foo")})
		b := w.add(decl.Decl{Kind: decl.KindProperty, Owner: outer, Name: w.intern("foo")})
		ctor := w.add(decl.Decl{Kind: decl.KindConstructor, Owner: outer, Flags: decl.FlagPrimary})
		return w, []decl.ID{outer, a, b, ctor}
	}

	render := func() string {
		w, order := build()
		fs := source.NewFileSet()
		fs.AddVirtual("pad", nil) // file 0; spans in tests use file 1
		fs.AddVirtual("unit.toml", make([]byte, 256))
		mustCheck(t, w.checker(), order...)
		w.bag.Sort()
		return diag.FormatGolden(w.bag.Items(), fs, true)
	}

	first := render()
	second := render()
	if first != second {
		t.Fatalf("expected identical diagnostics across runs:\n%s\n---\n%s", first, second)
	}
	if first == "" {
		t.Fatal("expected some diagnostics in the determinism scenario")
	}
}

func TestMissingSuggestionIsContractViolation(t *testing.T) {
	w := newWorld()
	pkg := w.add(decl.Decl{Kind: decl.KindPackage, Name: w.intern("app")})
	fn := w.add(decl.Decl{Kind: decl.KindFunction, Owner: pkg, Name: w.intern("orphan")})

	stub := stubSuggester{byID: map[decl.ID]naming.Suggestion{}}
	err := w.checkerWith(stub).Check(fn)
	if err == nil {
		t.Fatal("expected a contract-violation error for a missing suggestion")
	}
}
