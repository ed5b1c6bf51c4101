package rust

import (
	"context"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	rustlang "github.com/smacker/go-tree-sitter/rust"

	"github.com/ben-ranford/why/internal/lang/shared"
	"github.com/ben-ranford/why/internal/syntax"
)

const languageID = "rust"

var definitionTypes = map[string]bool{
	"function_item":           true,
	"function_signature_item": true,
	"struct_item":             true,
	"enum_item":               true,
	"union_item":              true,
	"trait_item":              true,
	"type_item":               true,
	"const_item":              true,
	"static_item":             true,
}

var skippedTypes = map[string]bool{
	"line_comment":        true,
	"block_comment":       true,
	"lifetime":            true,
	"string_literal":      true,
	"raw_string_literal":  true,
	"char_literal":        true,
	"integer_literal":     true,
	"float_literal":       true,
	"boolean_literal":     true,
	"primitive_type":      true,
	"field_identifier":    true,
	"label":               true,
	"macro_definition":    true,
	"self_parameter":      true,
	"visibility_modifier": true,
}

// Parser converts Rust sources into syntax trees. The zero value is ready to
// use and safe for concurrent calls.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(ctx context.Context, file string, src []byte) (*syntax.Tree, error) {
	tree, err := shared.ParseTree(ctx, rustlang.GetLanguage(), file, src)
	if err != nil {
		return nil, err
	}
	conv := converter{src: src}
	root := tree.RootNode()
	unit := &syntax.Node{Kind: syntax.NodeUnit, Line: 1}
	unit.Attrs, unit.Children = conv.items(root)

	crate, module := ModulePath(file)
	return &syntax.Tree{
		File:     file,
		Language: languageID,
		Crate:    crate,
		Module:   module,
		Root:     unit,
	}, nil
}

// ModulePath maps a slash-separated file identifier to its crate root and
// module path. Files under src/ belong to the crate that owns src; each
// integration test, bench and example is its own crate.
func ModulePath(file string) (string, []string) {
	parts := strings.Split(path.Clean(strings.TrimPrefix(file, "./")), "/")
	anchor := -1
	for i := len(parts) - 2; i >= 0; i-- {
		switch parts[i] {
		case "src", "tests", "benches", "examples":
			anchor = i
		}
		if anchor >= 0 {
			break
		}
	}

	var crate string
	var rest []string
	switch {
	case anchor < 0:
		crate = path.Dir(path.Join(parts...))
		rest = parts[len(parts)-1:]
	case parts[anchor] == "src":
		crate = path.Join(parts[:anchor]...)
		rest = parts[anchor+1:]
	default:
		stem := strings.TrimSuffix(parts[anchor+1], ".rs")
		crate = path.Join(append(append([]string{}, parts[:anchor+1]...), stem)...)
		rest = nil
		if len(parts) > anchor+2 {
			rest = parts[anchor+2:]
		}
	}
	if crate == "." {
		crate = ""
	}

	module := []string{"crate"}
	for i, part := range rest {
		last := i == len(rest)-1
		if last {
			part = strings.TrimSuffix(part, ".rs")
			if part == "mod" || (i == 0 && (part == "lib" || part == "main")) {
				continue
			}
		}
		module = append(module, part)
	}
	return crate, module
}

type converter struct {
	src []byte
}

func (c converter) text(node *sitter.Node) string {
	return shared.Text(node, c.src)
}

func (c converter) base(kind syntax.NodeKind, node *sitter.Node) *syntax.Node {
	return &syntax.Node{Kind: kind, Line: shared.Line(node), Offset: int(node.StartByte())}
}

// items converts the named children of a container. Outer attributes are
// siblings of the item they annotate, so they are buffered and attached to the
// next item; inner attributes belong to the container itself.
func (c converter) items(container *sitter.Node) ([]syntax.Attr, []*syntax.Node) {
	var inner []syntax.Attr
	var pending []syntax.Attr
	var pendingNode *sitter.Node
	var out []*syntax.Node

	for i := 0; i < int(container.NamedChildCount()); i++ {
		child := container.NamedChild(i)
		switch child.Type() {
		case "inner_attribute_item":
			inner = append(inner, c.attributes(child)...)
			continue
		case "attribute_item":
			if pendingNode == nil {
				pendingNode = child
			}
			pending = append(pending, c.attributes(child)...)
			continue
		}

		converted := c.convert(child)
		if len(pending) > 0 {
			block := c.base(syntax.NodeBlock, pendingNode)
			block.Attrs = pending
			block.Children = converted
			converted = []*syntax.Node{block}
			pending = nil
			pendingNode = nil
		}
		out = append(out, converted...)
	}
	return inner, out
}

func (c converter) children(node *sitter.Node, skip ...*sitter.Node) []*syntax.Node {
	var out []*syntax.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if isSkipped(child, skip) {
			continue
		}
		out = append(out, c.convert(child)...)
	}
	return out
}

func isSkipped(child *sitter.Node, skip []*sitter.Node) bool {
	for _, s := range skip {
		if shared.SameNode(child, s) {
			return true
		}
	}
	return false
}

func (c converter) field(node *sitter.Node, name string) []*syntax.Node {
	child := node.ChildByFieldName(name)
	if child == nil {
		return nil
	}
	return c.convert(child)
}

func (c converter) convert(node *sitter.Node) []*syntax.Node {
	if node == nil {
		return nil
	}
	kind := node.Type()
	if skippedTypes[kind] {
		return nil
	}
	if definitionTypes[kind] {
		return []*syntax.Node{c.definition(node)}
	}

	switch kind {
	case "declaration_list", "block":
		_, children := c.items(node)
		if len(children) == 0 {
			return nil
		}
		block := c.base(syntax.NodeBlock, node)
		block.Children = children
		return []*syntax.Node{block}
	case "use_declaration":
		return c.useDeclaration(node)
	case "extern_crate_declaration":
		return c.externCrate(node)
	case "mod_item":
		return []*syntax.Node{c.module(node)}
	case "impl_item":
		return c.children(node)
	case "let_declaration":
		return append(append(c.field(node, "type"), c.field(node, "value")...), c.field(node, "alternative")...)
	case "parameter":
		return c.field(node, "type")
	case "closure_parameters":
		return nil
	case "for_expression":
		return append(c.field(node, "value"), c.field(node, "body")...)
	case "call_expression":
		return c.call(node)
	case "macro_invocation":
		return c.macro(node)
	case "scoped_identifier":
		return c.pathNode(syntax.NodePath, node)
	case "scoped_type_identifier":
		return c.pathNode(syntax.NodeType, node)
	case "type_identifier":
		n := c.base(syntax.NodeType, node)
		n.Path = []string{c.text(node)}
		return []*syntax.Node{n}
	case "identifier":
		n := c.base(syntax.NodeIdent, node)
		n.Name = c.text(node)
		return []*syntax.Node{n}
	case "generic_type":
		return append(c.field(node, "type"), c.field(node, "type_arguments")...)
	case "generic_function":
		return append(c.field(node, "function"), c.field(node, "type_arguments")...)
	case "struct_expression":
		return append(c.pathField(syntax.NodeType, node, "name"), c.field(node, "body")...)
	default:
		return c.children(node)
	}
}

func (c converter) definition(node *sitter.Node) *syntax.Node {
	def := c.base(syntax.NodeDefinition, node)
	nameNode := node.ChildByFieldName("name")
	def.Name = c.text(nameNode)
	def.Public = hasVisibility(node)
	def.Children = c.children(node, nameNode)
	return def
}

func (c converter) module(node *sitter.Node) *syntax.Node {
	nameNode := node.ChildByFieldName("name")
	body := node.ChildByFieldName("body")
	if body == nil {
		decl := c.base(syntax.NodeModuleDecl, node)
		decl.Name = c.text(nameNode)
		decl.Public = hasVisibility(node)
		return decl
	}
	mod := c.base(syntax.NodeModule, node)
	mod.Name = c.text(nameNode)
	mod.Public = hasVisibility(node)
	mod.Attrs, mod.Children = c.items(body)
	return mod
}

func (c converter) call(node *sitter.Node) []*syntax.Node {
	function := node.ChildByFieldName("function")
	var out []*syntax.Node
	switch {
	case function == nil:
	case function.Type() == "identifier" || function.Type() == "scoped_identifier":
		out = c.pathNode(syntax.NodeCall, function)
	case function.Type() == "generic_function":
		inner := function.ChildByFieldName("function")
		if inner != nil && (inner.Type() == "identifier" || inner.Type() == "scoped_identifier") {
			out = c.pathNode(syntax.NodeCall, inner)
			out = append(out, c.field(function, "type_arguments")...)
		} else {
			out = c.convert(function)
		}
	default:
		out = c.convert(function)
	}
	return append(out, c.field(node, "arguments")...)
}

func (c converter) macro(node *sitter.Node) []*syntax.Node {
	var out []*syntax.Node
	if target := node.ChildByFieldName("macro"); target != nil {
		out = c.pathNode(syntax.NodeMacro, target)
	}
	if tokens := shared.FirstNamedChildOfType(node, "token_tree"); tokens != nil {
		out = append(out, c.tokenPaths(tokens)...)
	}
	return out
}

// pathNode emits one node for a whole path without descending into its
// prefix, so `a::b::c` is never also reported as `a::b`.
func (c converter) pathNode(kind syntax.NodeKind, node *sitter.Node) []*syntax.Node {
	segments := c.pathSegments(node)
	if len(segments) == 0 {
		return c.children(node)
	}
	n := c.base(kind, node)
	if len(segments) == 1 && kind == syntax.NodePath {
		n.Kind = syntax.NodeIdent
		n.Name = segments[0]
		return []*syntax.Node{n}
	}
	n.Path = segments
	out := []*syntax.Node{n}
	if path := node.ChildByFieldName("path"); path != nil && path.Type() == "generic_type" {
		out = append(out, c.field(path, "type_arguments")...)
	}
	return out
}

func (c converter) pathField(kind syntax.NodeKind, node *sitter.Node, field string) []*syntax.Node {
	child := node.ChildByFieldName(field)
	if child == nil {
		return nil
	}
	return c.pathNode(kind, child)
}

func (c converter) pathSegments(node *sitter.Node) []string {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case "identifier", "type_identifier", "crate", "self", "super", "metavariable", "primitive_type":
		return []string{c.text(node)}
	case "scoped_identifier", "scoped_type_identifier", "scoped_use_list":
		prefix := c.pathSegments(node.ChildByFieldName("path"))
		if node.ChildByFieldName("path") != nil && prefix == nil {
			return nil
		}
		name := node.ChildByFieldName("name")
		if name == nil {
			return prefix
		}
		return append(prefix, c.pathSegments(name)...)
	case "generic_type":
		return c.pathSegments(node.ChildByFieldName("type"))
	case "generic_function":
		return c.pathSegments(node.ChildByFieldName("function"))
	default:
		return nil
	}
}

// tokenPaths recovers paths from a macro token tree, where `a::b` is a flat
// run of identifier and `::` tokens.
func (c converter) tokenPaths(tokens *sitter.Node) []*syntax.Node {
	var out []*syntax.Node
	var current []string
	var start *sitter.Node
	separated := false

	flush := func(kind syntax.NodeKind) {
		if len(current) == 0 {
			return
		}
		n := c.base(kind, start)
		if len(current) == 1 && kind != syntax.NodeMacro {
			n.Kind = syntax.NodeIdent
			n.Name = current[0]
		} else {
			n.Path = current
		}
		out = append(out, n)
		current = nil
		start = nil
		separated = false
	}

	for i := 0; i < int(tokens.ChildCount()); i++ {
		child := tokens.Child(i)
		switch child.Type() {
		case "identifier", "crate", "self", "super":
			if len(current) > 0 && separated {
				current = append(current, c.text(child))
				separated = false
				continue
			}
			flush(syntax.NodePath)
			current = []string{c.text(child)}
			start = child
		case "::":
			if len(current) > 0 {
				separated = true
			}
		case "!":
			flush(syntax.NodeMacro)
		case "token_tree":
			if len(current) > 1 && strings.HasPrefix(c.text(child), "(") {
				flush(syntax.NodeCall)
			} else {
				flush(syntax.NodePath)
			}
			out = append(out, c.tokenPaths(child)...)
		default:
			flush(syntax.NodePath)
		}
	}
	flush(syntax.NodePath)
	return out
}

func (c converter) useDeclaration(node *sitter.Node) []*syntax.Node {
	public := hasVisibility(node)
	argument := node.ChildByFieldName("argument")
	if argument == nil {
		return nil
	}
	var imports []syntax.Import
	c.expandUse(argument, nil, &imports)

	out := make([]*syntax.Node, 0, len(imports))
	for i := range imports {
		imp := imports[i]
		imp.Public = public
		n := c.base(syntax.NodeImport, node)
		n.Public = public
		n.Import = &imp
		out = append(out, n)
	}
	return out
}

func (c converter) expandUse(node *sitter.Node, prefix []string, out *[]syntax.Import) {
	switch node.Type() {
	case "use_as_clause":
		segments := c.joinUse(prefix, c.pathSegments(node.ChildByFieldName("path")))
		if len(segments) == 0 {
			return
		}
		alias := c.text(node.ChildByFieldName("alias"))
		if alias == "_" {
			*out = append(*out, syntax.Import{Path: segments, SideEffect: true})
			return
		}
		*out = append(*out, syntax.Import{Path: segments, Alias: alias})
	case "use_wildcard":
		var segments []string
		if inner := firstPathChild(node); inner != nil {
			segments = c.pathSegments(inner)
		}
		*out = append(*out, syntax.Import{Path: c.joinUse(prefix, segments), Wildcard: true})
	case "scoped_use_list":
		next := prefix
		if path := node.ChildByFieldName("path"); path != nil {
			next = c.joinUse(prefix, c.pathSegments(path))
		}
		if list := node.ChildByFieldName("list"); list != nil {
			c.expandUse(list, next, out)
		}
	case "use_list":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			c.expandUse(node.NamedChild(i), prefix, out)
		}
	default:
		segments := c.joinUse(prefix, c.pathSegments(node))
		if len(segments) == 0 {
			return
		}
		*out = append(*out, syntax.Import{Path: segments, Alias: segments[len(segments)-1]})
	}
}

// joinUse appends segments to a use prefix, folding a trailing `self`.
func (c converter) joinUse(prefix, segments []string) []string {
	joined := append(append([]string{}, prefix...), segments...)
	if n := len(joined); n > 1 && joined[n-1] == "self" {
		joined = joined[:n-1]
	}
	return joined
}

func firstPathChild(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier", "scoped_identifier", "crate", "self", "super", "metavariable":
			return child
		}
	}
	return nil
}

func (c converter) externCrate(node *sitter.Node) []*syntax.Node {
	name := c.text(node.ChildByFieldName("name"))
	if name == "" || name == "self" {
		return nil
	}
	alias := name
	if aliasNode := node.ChildByFieldName("alias"); aliasNode != nil {
		alias = c.text(aliasNode)
	}
	n := c.base(syntax.NodeImport, node)
	n.Public = hasVisibility(node)
	n.Import = &syntax.Import{Path: []string{name}, Alias: alias, Public: n.Public}
	return []*syntax.Node{n}
}

func hasVisibility(node *sitter.Node) bool {
	return shared.FirstNamedChildOfType(node, "visibility_modifier") != nil
}
