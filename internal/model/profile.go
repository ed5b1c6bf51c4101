package model

// Profile is the aggregated evidence for one declared dependency. It is sealed
// once aggregation ends and scored exactly once; after that it is read-only.
type Profile struct {
	Dependency       DeclaredDependency
	ReferenceCount   int
	Files            []string
	Symbols          []string
	ConditionalCount int
	Conditions       []string
	KindCounts       map[RefKind]int
	Locations        []Location

	ImportanceScore float64
	Removable       bool
	LowImportance   bool
	UsedFlags       []string
	UnusedFlags     []string

	Sealed bool
	Scored bool
}

func (p Profile) Name() string {
	return p.Dependency.Name
}

func (p Profile) FileCount() int {
	return len(p.Files)
}

// ConditionalOnly reports whether every reference sits behind a predicate.
func (p Profile) ConditionalOnly() bool {
	return p.ReferenceCount > 0 && p.ConditionalCount == p.ReferenceCount
}

func (p Profile) Unused() bool {
	return p.ReferenceCount == 0
}

// UnmatchedRoot groups references whose root matched no declared dependency.
type UnmatchedRoot struct {
	Root   string
	Count  int
	Files  []string
	Sample Location
}

type SkippedFile struct {
	File   string
	Reason string
}
