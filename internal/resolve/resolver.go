package resolve

import (
	"strings"

	"github.com/ben-ranford/why/internal/model"
)

const keySeparator = "/"

// Conventions captures how one ecosystem names packages in source code.
type Conventions struct {
	// Separator joins symbol segments for display ("::" or ".").
	Separator string
	// Normalize canonicalizes a package name for comparison.
	Normalize func(string) string
	// Split turns a declared package name into path segments.
	Split func(string) []string
	// Builtin reports toolchain roots that never belong to a manifest.
	Builtin func(root string) bool
}

func (c Conventions) normalize(value string) string {
	if c.Normalize == nil {
		return value
	}
	return c.Normalize(value)
}

func (c Conventions) split(name string) []string {
	if c.Split == nil {
		return []string{name}
	}
	return c.Split(name)
}

func (c Conventions) builtin(root string) bool {
	return c.Builtin != nil && c.Builtin(root)
}

// Resolver attributes references to declared dependencies by exact,
// longest-prefix matching. It is read-only after construction and safe to
// share between goroutines.
type Resolver struct {
	conv     Conventions
	declared map[string]string
	internal map[string]struct{}
	depth    int
}

// New indexes the declared dependencies. Internal names are the project's own
// packages; references to them are neither matched nor unmatched.
func New(conv Conventions, declared []model.DeclaredDependency, internal []string) *Resolver {
	r := &Resolver{
		conv:     conv,
		declared: make(map[string]string, len(declared)),
		internal: make(map[string]struct{}, len(internal)),
		depth:    1,
	}
	for _, dep := range declared {
		segments := conv.split(dep.Name)
		r.declared[r.key(segments)] = dep.Name
		if len(segments) > r.depth {
			r.depth = len(segments)
		}
	}
	for _, name := range internal {
		segments := conv.split(name)
		r.internal[r.key(segments)] = struct{}{}
		if len(segments) > r.depth {
			r.depth = len(segments)
		}
	}
	return r
}

func (r *Resolver) key(segments []string) string {
	normalized := make([]string, len(segments))
	for i, segment := range segments {
		normalized[i] = r.conv.normalize(segment)
	}
	return strings.Join(normalized, keySeparator)
}

// Resolve maps one reference to at most one dependency. The root of an aliased
// reference is first rewritten through the file's alias table.
func (r *Resolver) Resolve(ref model.SourceReference, aliases map[string]string) model.ResolvedUsage {
	usage := model.ResolvedUsage{Reference: ref, Status: model.Unmatched}
	path := ref.Path
	if ref.Aliased {
		path = r.canonicalPath(ref.Path, aliases)
	}
	if len(path) == 0 {
		return usage
	}
	usage.Root = r.rootOf(path)

	limit := min(r.depth, len(path))
	for k := limit; k >= 1; k-- {
		key := r.key(path[:k])
		if name, ok := r.declared[key]; ok {
			usage.Status = model.Matched
			usage.Dependency = name
			usage.Symbol = append([]string(nil), path[k:]...)
			return usage
		}
		if _, ok := r.internal[key]; ok {
			usage.Status = model.Internal
			return usage
		}
	}
	if r.conv.builtin(path[0]) {
		usage.Status = model.Builtin
	}
	return usage
}

func (r *Resolver) canonicalPath(path []string, aliases map[string]string) []string {
	if len(path) == 0 {
		return nil
	}
	canonical, ok := aliases[path[0]]
	if !ok || canonical == path[0] {
		return path
	}
	out := append([]string{}, r.conv.split(canonical)...)
	return append(out, path[1:]...)
}

// rootOf names the package a path starts with; for scoped names that is the
// first two segments.
func (r *Resolver) rootOf(path []string) string {
	if strings.HasPrefix(path[0], "@") && len(path) > 1 {
		return path[0] + keySeparator + path[1]
	}
	return path[0]
}

// Symbol renders the part of a matched path below the dependency, using the
// wildcard marker for glob imports.
func Symbol(usage model.ResolvedUsage, separator string) string {
	segments := usage.Symbol
	if usage.Reference.Wildcard {
		segments = append(append([]string{}, segments...), model.WildcardMarker)
	}
	return strings.Join(segments, separator)
}
