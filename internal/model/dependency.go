package model

import (
	"slices"
	"strings"
)

type Kind string

const (
	KindRuntime Kind = "runtime"
	KindDev     Kind = "dev"
	KindBuild   Kind = "build"
)

// rank orders kinds from least to most permissive when a manifest declares the
// same name in several sections.
func (k Kind) rank() int {
	switch k {
	case KindRuntime:
		return 2
	case KindBuild:
		return 1
	default:
		return 0
	}
}

func ParseKind(value string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(KindRuntime), "normal":
		return KindRuntime, true
	case string(KindDev), "development":
		return KindDev, true
	case string(KindBuild):
		return KindBuild, true
	default:
		return "", false
	}
}

// DeclaredDependency is one manifest entry. It is immutable for the duration of
// a run; Features is sorted and deduplicated by Normalize.
type DeclaredDependency struct {
	Name     string
	Version  string
	Features []string
	Kind     Kind
	Optional bool
	Package  string
}

func (d DeclaredDependency) Normalize() DeclaredDependency {
	d.Name = strings.TrimSpace(d.Name)
	d.Version = strings.TrimSpace(d.Version)
	if d.Kind == "" {
		d.Kind = KindRuntime
	}
	d.Features = sortedUnique(d.Features)
	return d
}

// Merge combines two declarations of the same name. The result keeps the most
// permissive kind and the union of features.
func (d DeclaredDependency) Merge(other DeclaredDependency) DeclaredDependency {
	merged := d
	if other.Kind.rank() > d.Kind.rank() {
		merged.Kind = other.Kind
	}
	if merged.Version == "" {
		merged.Version = other.Version
	}
	if merged.Package == "" {
		merged.Package = other.Package
	}
	merged.Optional = d.Optional && other.Optional
	merged.Features = sortedUnique(append(append([]string{}, d.Features...), other.Features...))
	return merged
}

// MergeDeclared folds duplicate names and returns the list sorted by name.
func MergeDeclared(deps []DeclaredDependency) []DeclaredDependency {
	byName := make(map[string]DeclaredDependency, len(deps))
	for _, dep := range deps {
		dep = dep.Normalize()
		if dep.Name == "" {
			continue
		}
		if existing, ok := byName[dep.Name]; ok {
			dep = existing.Merge(dep)
		}
		byName[dep.Name] = dep
	}
	merged := make([]DeclaredDependency, 0, len(byName))
	for _, dep := range byName {
		merged = append(merged, dep)
	}
	slices.SortFunc(merged, func(a, b DeclaredDependency) int { return strings.Compare(a.Name, b.Name) })
	return merged
}

func sortedUnique(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	slices.Sort(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
