package decl

// Kind classifies a declaration. The set is closed: every consumer
// switches exhaustively over it.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPackage
	KindClass
	KindFunction
	KindProperty
	KindAccessor
	KindConstructor
)

func (k Kind) String() string {
	switch k {
	case KindPackage:
		return "package"
	case KindClass:
		return "class"
	case KindFunction:
		return "function"
	case KindProperty:
		return "property"
	case KindAccessor:
		return "accessor"
	case KindConstructor:
		return "constructor"
	default:
		return "invalid"
	}
}

// IsCallable reports whether the kind participates in override chains.
func (k Kind) IsCallable() bool {
	switch k {
	case KindFunction, KindProperty, KindAccessor, KindConstructor:
		return true
	default:
		return false
	}
}

// IsScope reports whether the kind can own a flattened namespace.
func (k Kind) IsScope() bool {
	return k == KindClass || k == KindPackage
}

// Origin distinguishes source-written members from members synthesized
// into a class surface by inheritance.
type Origin uint8

const (
	OriginSource Origin = iota
	OriginFakeOverride
)

func (o Origin) String() string {
	switch o {
	case OriginFakeOverride:
		return "fake-override"
	default:
		return "source"
	}
}

// Vis is declaration visibility; it feeds name stability in the default
// suggestion policy.
type Vis uint8

const (
	VisPublic Vis = iota
	VisPrivate
)

func (v Vis) String() string {
	switch v {
	case VisPrivate:
		return "private"
	default:
		return "public"
	}
}

// Flags encode misc attributes for quick checks.
type Flags uint16

const (
	// FlagNative marks an ambient declaration with no generated body.
	FlagNative Flags = 1 << iota
	// FlagLibrary marks a member of a pre-existing external surface.
	FlagLibrary
	// FlagExtension marks an extension property.
	FlagExtension
	// FlagPrimary marks a primary constructor.
	FlagPrimary
	// FlagMutable marks a property with a setter.
	FlagMutable
)

// Strings returns textual flag labels for debug output.
func (f Flags) Strings() []string {
	if f == 0 {
		return nil
	}
	labels := make([]string, 0, 5)
	if f&FlagNative != 0 {
		labels = append(labels, "native")
	}
	if f&FlagLibrary != 0 {
		labels = append(labels, "library")
	}
	if f&FlagExtension != 0 {
		labels = append(labels, "extension")
	}
	if f&FlagPrimary != 0 {
		labels = append(labels, "primary")
	}
	if f&FlagMutable != 0 {
		labels = append(labels, "mutable")
	}
	return labels
}

// AccessorRole tells a getter from a setter.
type AccessorRole uint8

const (
	RoleNone AccessorRole = iota
	RoleGetter
	RoleSetter
)

func (r AccessorRole) String() string {
	switch r {
	case RoleGetter:
		return "getter"
	case RoleSetter:
		return "setter"
	default:
		return "none"
	}
}
