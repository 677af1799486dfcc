package decl

// ID identifies a declaration inside the arena.
type ID uint32

const (
	// NoID marks the absence of a declaration reference.
	NoID ID = 0
)

// IsValid reports whether the ID refers to an allocated declaration.
func (id ID) IsValid() bool { return id != NoID }
