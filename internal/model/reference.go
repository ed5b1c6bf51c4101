package model

import "strings"

type RefKind string

const (
	RefImport RefKind = "import"
	RefCall   RefKind = "call"
	RefMacro  RefKind = "macro"
	RefType   RefKind = "type"
	RefValue  RefKind = "value"
)

// WildcardMarker stands in for the item name of a glob import.
const WildcardMarker = "*"

type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

func (l Location) Less(other Location) bool {
	if l.File != other.File {
		return l.File < other.File
	}
	return l.Line < other.Line
}

// SourceReference is one mention of an external symbol. Condition is an opaque
// predicate; only its presence matters. Aliased marks a Path whose root is a
// package alias bound where the reference was written.
type SourceReference struct {
	Path      []string
	Kind      RefKind
	Location  Location
	Condition string
	Wildcard  bool
	Aliased   bool
}

func (r SourceReference) Conditional() bool {
	return r.Condition != ""
}

func (r SourceReference) Root() string {
	if len(r.Path) == 0 {
		return ""
	}
	return r.Path[0]
}

func (r SourceReference) String() string {
	path := strings.Join(r.Path, "::")
	if r.Wildcard {
		path += "::" + WildcardMarker
	}
	return path
}

type Resolution int

const (
	Unmatched Resolution = iota
	Matched
	Builtin
	Internal
)

func (r Resolution) String() string {
	switch r {
	case Matched:
		return "matched"
	case Builtin:
		return "builtin"
	case Internal:
		return "internal"
	default:
		return "unmatched"
	}
}

// ResolvedUsage pairs a reference with the dependency that claims it. Symbol
// holds the segments after the dependency's own prefix.
type ResolvedUsage struct {
	Reference  SourceReference
	Status     Resolution
	Dependency string
	Root       string
	Symbol     []string
}

// SourceFile is one entry supplied by the file-system collaborator.
type SourceFile struct {
	ID        string
	Condition string
}
