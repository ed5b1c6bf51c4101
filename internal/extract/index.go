package extract

import (
	"slices"
	"strings"

	"github.com/ben-ranford/why/internal/syntax"
)

// MaxReexportDepth bounds how many bindings and glob imports are followed
// when tracing a path to its origin.
const MaxReexportDepth = 8

// Options tune extraction for one ecosystem.
type Options struct {
	// ImplicitRoots treats an unbound, lowercase path root as the name of an
	// external package, the way Rust 2018 paths name extern crates.
	ImplicitRoots bool
}

// Origin is where a path written in the project ultimately points. Local
// origins carry the absolute module path when one is known.
type Origin struct {
	Path       []string
	External   bool
	Unresolved bool

	implicit bool
}

type binding struct {
	name   string
	target []string
	module []string
}

type scope struct {
	bindings map[string]binding
	defs     map[string]struct{}
	globs    []binding
}

// Index is the project-wide table of module bindings, definitions and glob
// imports. It is built once and read-only afterwards, so one Index may be
// shared by every extractor of a run.
type Index struct {
	opts    Options
	modules map[string]*scope
}

func moduleKey(crate string, module []string) string {
	return crate + "\x00" + strings.Join(module, "::")
}

func join(prefix, rest []string) []string {
	out := make([]string, 0, len(prefix)+len(rest))
	out = append(out, prefix...)
	return append(out, rest...)
}

// BuildIndex records every module of the given trees. Nil trees are ignored.
func BuildIndex(trees []*syntax.Tree, opts Options) *Index {
	ix := &Index{opts: opts, modules: make(map[string]*scope)}
	for _, tree := range trees {
		if tree == nil || tree.Root == nil {
			continue
		}
		ix.add(tree.Crate, tree.Module, tree.Root)
	}
	return ix
}

// Modules reports how many distinct modules the index holds.
func (ix *Index) Modules() int {
	return len(ix.modules)
}

func (ix *Index) scope(crate string, module []string) *scope {
	key := moduleKey(crate, module)
	s, ok := ix.modules[key]
	if !ok {
		s = &scope{bindings: make(map[string]binding), defs: make(map[string]struct{})}
		ix.modules[key] = s
	}
	return s
}

func (ix *Index) add(crate string, module []string, node *syntax.Node) {
	s := ix.scope(crate, module)
	for _, child := range node.Children {
		switch child.Kind {
		case syntax.NodeImport:
			imp := child.Import
			if imp == nil {
				continue
			}
			b := binding{name: imp.Alias, target: imp.Path, module: module}
			switch {
			case imp.Wildcard:
				s.globs = append(s.globs, b)
			case imp.Alias != "" && !imp.SideEffect:
				if _, exists := s.bindings[imp.Alias]; !exists {
					s.bindings[imp.Alias] = b
				}
			}
		case syntax.NodeModule:
			if child.Name != "" {
				s.defs[child.Name] = struct{}{}
			}
			ix.add(crate, join(module, []string{child.Name}), child)
		case syntax.NodeModuleDecl:
			if child.Name != "" {
				s.defs[child.Name] = struct{}{}
			}
		case syntax.NodeDefinition:
			if child.Name != "" {
				s.defs[child.Name] = struct{}{}
			}
			ix.add(crate, module, child)
		default:
			ix.add(crate, module, child)
		}
	}
}

// Resolve traces a path as written inside module.
func (ix *Index) Resolve(crate string, module, path []string) Origin {
	return ix.resolve(crate, module, path, 0, "")
}

// Import traces the target of an import declared inside module.
func (ix *Index) Import(crate string, module []string, imp syntax.Import) Origin {
	return ix.follow(crate, binding{name: imp.Alias, target: imp.Path, module: module}, nil, 0)
}

// Local traces a bare name used inside module. Only bindings, definitions and
// glob imports of project modules can supply it; a glob import of an external
// module never claims a bare name.
func (ix *Index) Local(crate string, module []string, name string) Origin {
	return ix.lookup(crate, join(module, []string{name}), 0, false)
}

// Lookup traces an absolute module path.
func (ix *Index) Lookup(crate string, abs []string) Origin {
	return ix.lookup(crate, abs, 0, true)
}

func (ix *Index) resolve(crate string, module, raw []string, depth int, skip string) Origin {
	if len(raw) == 0 {
		return Origin{}
	}
	if depth > MaxReexportDepth {
		return Origin{Unresolved: true}
	}
	switch raw[0] {
	case "crate":
		return ix.lookup(crate, raw, depth, true)
	case "self":
		return ix.lookup(crate, join(module, raw[1:]), depth, true)
	case "super":
		abs := slices.Clone(module)
		rest := raw
		for len(rest) > 0 && rest[0] == "super" {
			if len(abs) <= 1 {
				return Origin{}
			}
			abs = abs[:len(abs)-1]
			rest = rest[1:]
		}
		return ix.lookup(crate, join(abs, rest), depth, true)
	}
	if s := ix.modules[moduleKey(crate, module)]; s != nil {
		if b, ok := s.bindings[raw[0]]; ok && raw[0] != skip {
			return ix.follow(crate, b, raw[1:], depth+1)
		}
		if _, ok := s.defs[raw[0]]; ok {
			return ix.lookup(crate, join(module, raw), depth, true)
		}
	}
	return Origin{Path: slices.Clone(raw), External: true, implicit: true}
}

func (ix *Index) follow(crate string, b binding, rest []string, depth int) Origin {
	origin := ix.resolve(crate, b.module, join(b.target, rest), depth, b.name)
	origin.implicit = false
	return origin
}

func (ix *Index) lookup(crate string, abs []string, depth int, externalGlobs bool) Origin {
	if depth > MaxReexportDepth {
		return Origin{Unresolved: true}
	}
	local := Origin{Path: slices.Clone(abs)}
	k := len(abs)
	var s *scope
	for ; k > 0; k-- {
		if s = ix.modules[moduleKey(crate, abs[:k])]; s != nil {
			break
		}
	}
	if s == nil || k == len(abs) {
		return local
	}
	name, rest := abs[k], abs[k+1:]
	if b, ok := s.bindings[name]; ok {
		return ix.follow(crate, b, rest, depth+1)
	}
	if _, ok := s.defs[name]; ok {
		return local
	}

	var external []Origin
	for _, glob := range s.globs {
		target := ix.follow(crate, glob, nil, depth+1)
		switch {
		case target.Unresolved:
			return target
		case target.External:
			if externalGlobs {
				external = append(external, Origin{Path: join(target.Path, abs[k:]), External: true})
			}
		case target.Path != nil:
			if origin := ix.lookup(crate, join(target.Path, abs[k:]), depth+1, externalGlobs); origin.External || origin.Unresolved {
				return origin
			}
		}
	}
	if len(external) == 1 {
		return external[0]
	}
	return local
}
