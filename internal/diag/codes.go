package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Declaration graph loading (1000-series)
	GraphInfo            Code = 1000
	GraphSyntax          Code = 1001
	GraphMissingName     Code = 1002
	GraphBadKind         Code = 1003
	GraphBadVisibility   Code = 1004
	GraphUnknownPackage  Code = 1005
	GraphUnknownOwner    Code = 1006
	GraphUnknownSupertype Code = 1007
	GraphUnknownOverride Code = 1008
	GraphDuplicateDecl   Code = 1009
	GraphMemberOwnerKind Code = 1010
	GraphInheritanceCycle Code = 1011

	// Name analysis (2000-series)
	NameInfo           Code = 2000
	NameClash          Code = 2001
	SyntheticNameClash Code = 2002

	// I/O errors
	IOLoadFileError Code = 4001
)

var codeDescription = map[Code]string{
	UnknownCode:           "Unknown error",
	GraphInfo:             "Declaration graph information",
	GraphSyntax:           "Malformed declaration graph",
	GraphMissingName:      "Declaration without a name",
	GraphBadKind:          "Unknown member kind",
	GraphBadVisibility:    "Unknown visibility",
	GraphUnknownPackage:   "Unknown package reference",
	GraphUnknownOwner:     "Unknown owner reference",
	GraphUnknownSupertype: "Unknown supertype reference",
	GraphUnknownOverride:  "Unknown override reference",
	GraphDuplicateDecl:    "Duplicate declaration path",
	GraphMemberOwnerKind:  "Member owner is not a class or package",
	GraphInheritanceCycle: "Inheritance cycle",
	NameInfo:              "Name analysis information",
	NameClash:             "Generated name clash",
	SyntheticNameClash:    "Inherited member clashes with a generated name",
	IOLoadFileError:       "Cannot load file",
}

// ID returns a compact range-prefixed identifier, stable across runs.
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("GRF%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("NAM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IOE%04d", ic)
	default:
		return fmt.Sprintf("UNK%04d", ic)
	}
}

// Title returns a short human-readable summary for the code.
func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
