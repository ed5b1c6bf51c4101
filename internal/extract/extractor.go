package extract

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ben-ranford/why/internal/model"
	"github.com/ben-ranford/why/internal/syntax"
)

type fileBinding struct {
	imp       syntax.Import
	module    []string
	location  model.Location
	condition string
	origin    Origin
	uses      int
}

// Extractor produces the references of one parsed file. It is single use:
// References may be ranged over exactly once.
type Extractor struct {
	tree     *syntax.Tree
	index    *Index
	opts     Options
	gates    []string
	scopes   map[string]map[string]*fileBinding
	imports  []*fileBinding
	aliases  map[string]string
	warnings []model.Warning
	consumed bool
}

// New prepares extraction of tree against the project index. condition is
// the file-level predicate supplied by the caller, or "".
func New(tree *syntax.Tree, index *Index, opts Options, condition string) *Extractor {
	x := &Extractor{
		tree:    tree,
		index:   index,
		opts:    opts,
		scopes:  make(map[string]map[string]*fileBinding),
		aliases: make(map[string]string),
	}
	if condition != "" {
		x.gates = []string{condition}
	}
	if tree != nil && tree.Root != nil {
		x.collect(tree.Root, tree.Module, x.gates)
	}
	x.buildAliases()
	return x
}

// Aliases maps local names that stand for a whole package to that package's
// canonical root, for example `use serde_json as json` gives json → serde_json.
// Only references marked Aliased are meant to be rewritten through it.
func (x *Extractor) Aliases() map[string]string {
	return maps.Clone(x.aliases)
}

// Warnings returns the warnings raised so far. It is complete once the
// reference sequence has been fully consumed.
func (x *Extractor) Warnings() []model.Warning {
	return slices.Clone(x.warnings)
}

// References returns the file's reference sequence. Ranging over it a second
// time panics with a contract violation.
func (x *Extractor) References() iter.Seq[model.SourceReference] {
	return func(yield func(model.SourceReference) bool) {
		if x.consumed {
			panic(model.Violation("extract.References", "reference sequence for %s already consumed", x.file()))
		}
		x.consumed = true
		if x.tree == nil || x.tree.Root == nil {
			return
		}
		if !x.walk(x.tree.Root, x.tree.Module, x.gates, yield) {
			return
		}
		x.finish(yield)
	}
}

func (x *Extractor) file() string {
	if x.tree == nil {
		return ""
	}
	return x.tree.File
}

func (x *Extractor) crate() string {
	return x.tree.Crate
}

func withGate(gates []string, gate string) []string {
	if gate == "" {
		return gates
	}
	return append(slices.Clip(gates), gate)
}

func (x *Extractor) collect(node *syntax.Node, module []string, gates []string) {
	gates = withGate(gates, node.Gate())
	switch node.Kind {
	case syntax.NodeImport:
		if node.Import != nil {
			x.declare(node, module, syntax.Combine(gates...))
		}
		return
	case syntax.NodeModule:
		if node.Name != "" {
			module = join(module, []string{node.Name})
		}
	}
	for _, child := range node.Children {
		x.collect(child, module, gates)
	}
}

func (x *Extractor) declare(node *syntax.Node, module []string, condition string) {
	b := &fileBinding{
		imp:       *node.Import,
		module:    module,
		location:  model.Location{File: x.file(), Line: node.Line},
		condition: condition,
		origin:    x.index.Import(x.crate(), module, *node.Import),
	}
	x.imports = append(x.imports, b)
	if b.imp.Wildcard || b.imp.SideEffect || b.imp.Alias == "" {
		return
	}
	key := moduleKey(x.crate(), module)
	names, ok := x.scopes[key]
	if !ok {
		names = make(map[string]*fileBinding)
		x.scopes[key] = names
	}
	if _, exists := names[b.imp.Alias]; !exists {
		names[b.imp.Alias] = b
	}
}

// buildAliases keeps a local name as a root alias only when every binding of
// that name in the file points at the same single-segment package root.
func (x *Extractor) buildAliases() {
	roots := make(map[string]string)
	conflicts := make(map[string]bool)
	for _, names := range x.scopes {
		for name, b := range names {
			root, ok := rootAlias(name, b)
			if !ok {
				conflicts[name] = true
				continue
			}
			if prev, seen := roots[name]; seen && prev != root {
				conflicts[name] = true
			}
			roots[name] = root
		}
	}
	for name, root := range roots {
		if !conflicts[name] {
			x.aliases[name] = root
		}
	}
}

func rootAlias(name string, b *fileBinding) (string, bool) {
	if !b.origin.External || len(b.origin.Path) != 1 || b.origin.Path[0] == name {
		return "", false
	}
	return b.origin.Path[0], true
}

func (x *Extractor) binding(module []string, name string) *fileBinding {
	return x.scopes[moduleKey(x.crate(), module)][name]
}

var nodeRefKinds = map[syntax.NodeKind]model.RefKind{
	syntax.NodeCall:  model.RefCall,
	syntax.NodeMacro: model.RefMacro,
	syntax.NodeType:  model.RefType,
	syntax.NodePath:  model.RefValue,
	syntax.NodeIdent: model.RefValue,
}

func (x *Extractor) walk(node *syntax.Node, module []string, gates []string, yield func(model.SourceReference) bool) bool {
	gates = withGate(gates, node.Gate())
	condition := syntax.Combine(gates...)

	for _, attr := range node.Attrs {
		attrCondition := condition
		if attr.Name == syntax.AttrCfgAttr {
			attrCondition = syntax.Combine(withGate(gates, attr.Args)...)
		}
		for _, path := range attr.Paths {
			if !x.emit(path, model.RefMacro, node.Line, module, attrCondition, yield) {
				return false
			}
		}
	}

	switch node.Kind {
	case syntax.NodeImport:
		return true
	case syntax.NodeModule:
		if node.Name != "" {
			module = join(module, []string{node.Name})
		}
	case syntax.NodeIdent:
		if !x.emit([]string{node.Name}, model.RefValue, node.Line, module, condition, yield) {
			return false
		}
	default:
		if kind, ok := nodeRefKinds[node.Kind]; ok && len(node.Path) > 0 {
			if !x.emit(node.Path, kind, node.Line, module, condition, yield) {
				return false
			}
		}
	}

	for _, child := range node.Children {
		if !x.walk(child, module, gates, yield) {
			return false
		}
	}
	return true
}

func (x *Extractor) emit(path []string, kind model.RefKind, line int, module []string, condition string, yield func(model.SourceReference) bool) bool {
	origin, ok := x.origin(path, module, line)
	if !ok || len(origin) == 0 {
		return true
	}
	return yield(model.SourceReference{
		Path:      origin,
		Kind:      kind,
		Location:  model.Location{File: x.file(), Line: line},
		Condition: condition,
		Aliased:   x.aliasedIn(module, origin[0]),
	})
}

// aliasedIn reports whether root is a package alias bound in module's scope.
// The same name written where no binding reaches it is left alone.
func (x *Extractor) aliasedIn(module []string, root string) bool {
	target, ok := x.aliases[root]
	if !ok {
		return false
	}
	b := x.binding(module, root)
	return b != nil && b.origin.External && len(b.origin.Path) == 1 && b.origin.Path[0] == target
}

// origin maps a written path to the external path it names. Paths that name
// project items, local variables or nothing known are dropped.
func (x *Extractor) origin(path, module []string, line int) ([]string, bool) {
	if len(path) == 0 || path[0] == "" {
		return nil, false
	}
	root := path[0]
	if b := x.binding(module, root); b != nil {
		b.uses++
		switch {
		case b.origin.Unresolved:
			x.unresolved(path, line)
			return nil, false
		case b.origin.External:
			if target, aliased := x.aliases[root]; aliased && b.origin.Path[0] == target {
				return slices.Clone(path), true
			}
			return join(b.origin.Path, path[1:]), true
		default:
			if len(path) == 1 || b.origin.Path == nil {
				return nil, false
			}
			return x.accept(x.index.Lookup(x.crate(), join(b.origin.Path, path[1:])), path, line)
		}
	}

	var origin Origin
	switch {
	case root == "crate" || root == "self" || root == "super":
		origin = x.index.Resolve(x.crate(), module, path)
	case len(path) == 1:
		origin = x.index.Local(x.crate(), module, root)
	default:
		origin = x.index.Resolve(x.crate(), module, path)
		if origin.implicit && (!x.opts.ImplicitRoots || !packageLike(root)) {
			return nil, false
		}
	}
	return x.accept(origin, path, line)
}

func (x *Extractor) accept(origin Origin, path []string, line int) ([]string, bool) {
	if origin.Unresolved {
		x.unresolved(path, line)
		return nil, false
	}
	if !origin.External {
		return nil, false
	}
	return origin.Path, true
}

func (x *Extractor) unresolved(path []string, line int) {
	x.warn(model.WarnReexportUnresolved, line, fmt.Sprintf("could not trace %s within %d re-exports; treated as local", strings.Join(path, "::"), MaxReexportDepth))
}

func (x *Extractor) warn(code model.WarningCode, line int, message string) {
	x.warnings = append(x.warnings, model.Warning{Code: code, File: x.file(), Line: line, Message: message})
}

// packageLike reports whether an unbound root can name a package: package
// names start lowercase, while type and variant roots are capitalized.
func packageLike(root string) bool {
	r, _ := utf8.DecodeRuneInString(root)
	return r == '_' || unicode.IsLower(r)
}

// finish emits one import reference for each external import that no later
// use accounted for, each public re-export, each side-effect import and each
// wildcard import, in declaration order.
func (x *Extractor) finish(yield func(model.SourceReference) bool) {
	for _, b := range x.imports {
		if b.origin.Unresolved {
			x.unresolved(b.imp.Path, b.location.Line)
			continue
		}
		if !b.origin.External {
			continue
		}
		ref := model.SourceReference{
			Path:      slices.Clone(b.origin.Path),
			Kind:      model.RefImport,
			Location:  b.location,
			Condition: b.condition,
		}
		switch {
		case b.imp.Wildcard:
			ref.Wildcard = true
			x.warn(model.WarnWildcardImport, b.location.Line, "wildcard import of "+strings.Join(b.origin.Path, "::")+" counted once without item detail")
		case b.uses > 0 && !b.imp.Public && !b.imp.SideEffect:
			continue
		}
		if !yield(ref) {
			return
		}
	}
}
