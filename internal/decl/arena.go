package decl

import (
	"fmt"

	"fortio.org/safecast"

	"flatns/internal/source"
)

// Arena stores all declarations of one compilation pass in a compact
// slice. IDs index into it; index 0 is reserved for NoID.
type Arena struct {
	data    []Decl
	strings *source.Interner
}

// NewArena creates an arena with an optional capacity hint. If strings
// is nil, a fresh interner is allocated.
func NewArena(capacity uint32, strings *source.Interner) *Arena {
	if capacity == 0 {
		capacity = 64
	}
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Arena{
		data:    make([]Decl, 1, capacity+1), // index 0 reserved for NoID
		strings: strings,
	}
}

// New allocates a declaration and returns its ID.
func (a *Arena) New(d *Decl) ID {
	if d == nil {
		panic("decl.Arena.New: nil declaration")
	}
	value, err := safecast.Conv[uint32](len(a.data))
	if err != nil {
		panic(fmt.Errorf("declaration arena overflow: %w", err))
	}
	id := ID(value)
	a.data = append(a.data, *d)
	if d.Owner.IsValid() {
		if owner := a.Get(d.Owner); owner != nil {
			owner.Members = append(owner.Members, id)
		}
	}
	return id
}

// Get returns the declaration pointer or nil for an invalid ID.
func (a *Arena) Get(id ID) *Decl {
	if !id.IsValid() || int(id) >= len(a.data) {
		return nil
	}
	return &a.data[id]
}

// Len reports the number of declarations excluding the sentinel.
func (a *Arena) Len() int { return len(a.data) - 1 }

// Strings exposes the shared interner.
func (a *Arena) Strings() *source.Interner { return a.strings }

// Name returns the interned source name of a declaration, or "".
func (a *Arena) Name(id ID) string {
	d := a.Get(id)
	if d == nil {
		return ""
	}
	s, _ := a.strings.Lookup(d.Name)
	return s
}

// Path renders the dotted owner path of a declaration for messages and
// debug dumps, e.g. "app.Controller.refresh".
func (a *Arena) Path(id ID) string {
	d := a.Get(id)
	if d == nil {
		return ""
	}
	name := a.Name(id)
	if !d.Owner.IsValid() {
		return name
	}
	ownerPath := a.Path(d.Owner)
	if ownerPath == "" {
		return name
	}
	return ownerPath + "." + name
}

// All iterates over every allocated declaration in allocation order.
func (a *Arena) All(fn func(ID, *Decl) bool) {
	for i := 1; i < len(a.data); i++ {
		if !fn(ID(i), &a.data[i]) { // #nosec G115 -- bounded by arena allocation
			return
		}
	}
}
