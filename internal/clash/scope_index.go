package clash

import (
	"fmt"

	"flatns/internal/decl"
	"flatns/internal/source"
)

// ScopeTable exposes the flattened name table for an owner, building it
// on demand. Used by debug dumps; the returned map is the checker's own
// memoized instance and must not be modified.
func (c *Checker) ScopeTable(owner decl.ID) (map[source.StringID]decl.ID, error) {
	return c.scope(owner)
}

// scope returns the memoized flattened name table for owner, building
// it on first access. The graph is immutable during a pass, so a built
// table is never invalidated.
func (c *Checker) scope(owner decl.ID) (map[source.StringID]decl.ID, error) {
	if table, ok := c.scopes[owner]; ok {
		return table, nil
	}

	table := make(map[source.StringID]decl.ID)
	od := c.env.Decls.Get(owner)
	if od != nil {
		var err error
		switch od.Kind {
		case decl.KindPackage:
			err = c.collectPackage(owner, table)
		case decl.KindClass:
			err = c.collectMembers(od.Members, table)
		default:
			err = fmt.Errorf("clash: scope owner %q is a %s, not a class or package", c.env.Decls.Path(owner), od.Kind)
		}
		if err != nil {
			return nil, err
		}
	}
	c.scopes[owner] = table
	return table, nil
}

// collectPackage folds the package's own members and, transitively, the
// members of every sub-package into one flat table.
func (c *Checker) collectPackage(pkg decl.ID, table map[source.StringID]decl.ID) error {
	pd := c.env.Decls.Get(pkg)
	if pd == nil {
		return nil
	}
	for _, m := range pd.Members {
		md := c.env.Decls.Get(m)
		if md != nil && md.Kind == decl.KindPackage {
			if err := c.collectPackage(m, table); err != nil {
				return err
			}
			continue
		}
		if err := c.collect(m, table); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) collectMembers(members []decl.ID, table map[source.StringID]decl.ID) error {
	for _, m := range members {
		if err := c.collect(m, table); err != nil {
			return err
		}
	}
	return nil
}

// collect inserts one declaration's stable generated leaf into the
// table. Properties represented by their accessors (extensions, or
// per-accessor renames) contribute the accessors instead of a unified
// property entry. Insertion is last-wins: construction order sets a
// provisional occupant, corrected at check time, not build time.
func (c *Checker) collect(id decl.ID, table map[source.StringID]decl.ID) error {
	d := c.env.Decls.Get(id)
	if d == nil {
		return nil
	}

	// Constructors are not named scope members: the primary one maps to
	// the class's construction mechanism and secondary ones land in the
	// package as generated factories.
	if d.Kind == decl.KindConstructor {
		return nil
	}

	if d.Kind == decl.KindProperty && (d.Flags&decl.FlagExtension != 0 || c.env.HasAccessorRename(id)) {
		if d.Getter.IsValid() {
			if err := c.collect(d.Getter, table); err != nil {
				return err
			}
		}
		if d.Setter.IsValid() {
			if err := c.collect(d.Setter, table); err != nil {
				return err
			}
		}
		return nil
	}

	sugg, ok := c.env.Suggester.Suggest(id)
	if !ok {
		// Inapplicable for this declaration; it owns no generated name.
		return nil
	}
	if !sugg.Stable || !c.env.Presents(sugg.Target) {
		return nil
	}

	table[sugg.Leaf()] = sugg.Target

	target := c.env.Decls.Get(sugg.Target)
	if target != nil && target.Kind.IsCallable() && len(target.Overridden) > 0 {
		return c.walkOverrides(sugg.Target, target, table)
	}
	return nil
}

// walkOverrides explores the transitive override chain of one member
// breadth-first, claiming each stable ancestor leaf in the table being
// populated. A claimed leaf already held by a distinct declaration is
// recorded in the registry when the member is a fake override, so a
// later check of any inheriting class can surface it.
func (c *Checker) walkOverrides(id decl.ID, d *decl.Decl, table map[source.StringID]decl.ID) error {
	seen := make(map[decl.ID]struct{})
	frontier := append([]decl.ID(nil), d.Overridden...)

	for len(frontier) > 0 {
		var next []decl.ID
		for _, anc := range frontier {
			if _, done := seen[anc]; done {
				continue
			}
			seen[anc] = struct{}{}

			ad := c.env.Decls.Get(anc)
			if ad == nil {
				return fmt.Errorf("clash: override chain of %q references unknown declaration %d", c.env.Decls.Path(id), anc)
			}

			asugg, ok := c.env.Suggester.Suggest(anc)
			if !ok {
				return fmt.Errorf("clash: no name suggestion for overridden %s %q", ad.Kind, c.env.Decls.Path(anc))
			}
			if asugg.Stable {
				name := asugg.Leaf()
				if existing, occupied := table[name]; occupied {
					if existing != id && d.IsFakeOverride() {
						// Keep the pair that first caused the conflict.
						if _, recorded := c.clashedFakeOverrides[id]; !recorded {
							c.clashedFakeOverrides[id] = clashPair{existing: existing, ancestor: anc}
						}
					}
				} else {
					table[name] = id
				}
			}

			next = append(next, ad.Overridden...)
		}
		frontier = next
	}
	return nil
}
