package syntax

import (
	"context"
	"slices"
	"strings"
)

type NodeKind uint8

const (
	NodeUnit NodeKind = iota
	NodeModule
	NodeModuleDecl
	NodeDefinition
	NodeImport
	NodeCall
	NodeMacro
	NodeType
	NodePath
	NodeIdent
	NodeBlock
)

var nodeKindNames = map[NodeKind]string{
	NodeUnit:       "unit",
	NodeModule:     "module",
	NodeModuleDecl: "module_decl",
	NodeDefinition: "definition",
	NodeImport:     "import",
	NodeCall:       "call",
	NodeMacro:      "macro",
	NodeType:       "type",
	NodePath:       "path",
	NodeIdent:      "ident",
	NodeBlock:      "block",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Tree is the ecosystem-neutral shape of one parsed source file. Crate names
// the package root that owns the file and Module is the file's module path
// below it, always starting with "crate".
type Tree struct {
	File     string
	Language string
	Crate    string
	Module   []string
	Root     *Node
}

// Node is one structural element. Which fields are meaningful depends on Kind:
// Name for modules, definitions and identifiers, Path for calls, macros, types
// and value paths, Import for imports.
type Node struct {
	Kind     NodeKind
	Name     string
	Path     []string
	Import   *Import
	Public   bool
	Attrs    []Attr
	Line     int
	Offset   int
	Children []*Node
}

// Import is one binding introduced by an import or use declaration. Path is the
// full imported path; Alias is the local name it binds, empty for wildcard and
// side-effect imports.
type Import struct {
	Path       []string
	Alias      string
	Wildcard   bool
	Public     bool
	SideEffect bool
}

// Attr is an attribute attached to a node. Args holds the normalized argument
// text (the predicate for cfg) and Paths any symbol paths named inside it.
type Attr struct {
	Name  string
	Args  string
	Paths [][]string
}

const (
	AttrCfg     = "cfg"
	AttrCfgAttr = "cfg_attr"
	AttrDerive  = "derive"
	AttrTest    = "test"
	AttrMacro   = "macro"
)

// TestPredicate is the predicate assigned to test-only code.
const TestPredicate = "test"

// Gate returns the conditional-compilation predicate that gates n, or "".
func (n *Node) Gate() string {
	if n == nil {
		return ""
	}
	var predicates []string
	for _, attr := range n.Attrs {
		switch attr.Name {
		case AttrCfg:
			if attr.Args != "" {
				predicates = append(predicates, attr.Args)
			}
		case AttrTest:
			predicates = append(predicates, TestPredicate)
		}
	}
	return Combine(predicates...)
}

// Combine joins nested predicates, dropping blanks and repeats. A single
// predicate is returned as is.
func Combine(predicates ...string) string {
	parts := make([]string, 0, len(predicates))
	for _, predicate := range predicates {
		if predicate = strings.TrimSpace(predicate); predicate != "" && !slices.Contains(parts, predicate) {
			parts = append(parts, predicate)
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return "all(" + strings.Join(parts, ", ") + ")"
	}
}

// Walk visits n and its descendants depth first. Returning false from visit
// skips the node's children.
func Walk(n *Node, visit func(*Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, child := range n.Children {
		Walk(child, visit)
	}
}

// Parser turns one source file into a Tree. Implementations must be safe to
// call from several goroutines.
type Parser interface {
	Parse(ctx context.Context, file string, src []byte) (*Tree, error)
}
