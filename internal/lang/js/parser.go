package js

import (
	"context"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	tsxlang "github.com/smacker/go-tree-sitter/typescript/tsx"
	tslang "github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/ben-ranford/why/internal/lang/shared"
	"github.com/ben-ranford/why/internal/syntax"
)

const languageID = "js-ts"

var definitionTypes = map[string]bool{
	"function_declaration":           true,
	"generator_function_declaration": true,
	"class_declaration":              true,
	"abstract_class_declaration":     true,
	"interface_declaration":          true,
	"type_alias_declaration":         true,
	"enum_declaration":               true,
	"function_signature":             true,
}

var functionTypes = map[string]bool{
	"function":                  true,
	"function_expression":       true,
	"generator_function":        true,
	"arrow_function":            true,
	"method_definition":         true,
	"method_signature":          true,
	"abstract_method_signature": true,
}

var skippedTypes = map[string]bool{
	"comment":                               true,
	"hash_bang_line":                        true,
	"html_comment":                          true,
	"string":                                true,
	"number":                                true,
	"regex":                                 true,
	"true":                                  true,
	"false":                                 true,
	"null":                                  true,
	"undefined":                             true,
	"this":                                  true,
	"super":                                 true,
	"import":                                true,
	"property_identifier":                   true,
	"private_property_identifier":           true,
	"shorthand_property_identifier_pattern": true,
	"statement_identifier":                  true,
	"object_pattern":                        true,
	"array_pattern":                         true,
	"rest_pattern":                          true,
	"assignment_pattern":                    true,
	"jsx_text":                              true,
	"jsx_closing_element":                   true,
	"jsx_namespace_name":                    true,
	"predefined_type":                       true,
	"literal_type":                          true,
	"type_parameters":                       true,
	"accessibility_modifier":                true,
}

// Parser converts JavaScript and TypeScript sources into syntax trees. The
// grammar is chosen by file extension; JSX is accepted in .js and .jsx files.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func grammarFor(file string) *sitter.Language {
	switch strings.ToLower(path.Ext(file)) {
	case ".ts", ".mts", ".cts":
		return tslang.GetLanguage()
	case ".tsx":
		return tsxlang.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

func (p *Parser) Parse(ctx context.Context, file string, src []byte) (*syntax.Tree, error) {
	tree, err := shared.ParseTree(ctx, grammarFor(file), file, src)
	if err != nil {
		return nil, err
	}
	conv := converter{src: src, dir: path.Dir(file)}
	unit := &syntax.Node{Kind: syntax.NodeUnit, Line: 1}
	unit.Children = conv.children(tree.RootNode())

	return &syntax.Tree{
		File:     file,
		Language: languageID,
		Module:   ModulePath(file),
		Root:     unit,
	}, nil
}

type converter struct {
	src []byte
	dir string
}

func (c converter) text(node *sitter.Node) string {
	return shared.Text(node, c.src)
}

func (c converter) base(kind syntax.NodeKind, node *sitter.Node) *syntax.Node {
	return &syntax.Node{Kind: kind, Line: shared.Line(node), Offset: int(node.StartByte())}
}

func (c converter) children(node *sitter.Node, skip ...*sitter.Node) []*syntax.Node {
	var out []*syntax.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if skipped(child, skip) {
			continue
		}
		out = append(out, c.convert(child)...)
	}
	return out
}

func skipped(child *sitter.Node, skip []*sitter.Node) bool {
	for _, s := range skip {
		if shared.SameNode(child, s) {
			return true
		}
	}
	return false
}

func (c converter) field(node *sitter.Node, names ...string) []*syntax.Node {
	var out []*syntax.Node
	for _, name := range names {
		if child := node.ChildByFieldName(name); child != nil {
			out = append(out, c.convert(child)...)
		}
	}
	return out
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
	if functionTypes[kind] {
		return c.function(node)
	}

	switch kind {
	case "import_statement":
		return c.importStatement(node)
	case "export_statement":
		return c.exportStatement(node)
	case "lexical_declaration", "variable_declaration":
		var out []*syntax.Node
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if child := node.NamedChild(i); child.Type() == "variable_declarator" {
				out = append(out, c.declarator(child)...)
			}
		}
		return out
	case "formal_parameters":
		return c.parameters(node)
	case "required_parameter", "optional_parameter":
		return c.field(node, "type", "value")
	case "call_expression":
		return c.call(node)
	case "new_expression":
		out := c.pathOrConvert(syntax.NodeCall, node.ChildByFieldName("constructor"))
		return append(out, c.field(node, "type_arguments", "arguments")...)
	case "member_expression":
		return c.pathOrConvert(syntax.NodePath, node)
	case "identifier":
		return []*syntax.Node{c.ident(node)}
	case "shorthand_property_identifier":
		return []*syntax.Node{c.ident(node)}
	case "pair":
		out := c.field(node, "value")
		if key := node.ChildByFieldName("key"); key != nil && key.Type() == "computed_property_name" {
			out = append(c.convert(key), out...)
		}
		return out
	case "template_string":
		var out []*syntax.Node
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if child := node.NamedChild(i); child.Type() == "template_substitution" {
				out = append(out, c.children(child)...)
			}
		}
		return out
	case "jsx_opening_element", "jsx_self_closing_element":
		name := node.ChildByFieldName("name")
		return append(c.jsxName(name), c.children(node, name)...)
	case "type_identifier":
		n := c.base(syntax.NodeType, node)
		n.Path = []string{c.text(node)}
		return []*syntax.Node{n}
	case "nested_type_identifier", "nested_identifier":
		return c.pathOrConvert(syntax.NodeType, node)
	case "catch_clause":
		return c.field(node, "body")
	case "for_in_statement":
		return c.field(node, "right", "body")
	case "labeled_statement":
		return c.field(node, "body")
	default:
		return c.children(node)
	}
}

func (c converter) ident(node *sitter.Node) *syntax.Node {
	n := c.base(syntax.NodeIdent, node)
	n.Name = c.text(node)
	return n
}

func (c converter) definition(node *sitter.Node) *syntax.Node {
	def := c.base(syntax.NodeDefinition, node)
	nameNode := node.ChildByFieldName("name")
	def.Name = c.text(nameNode)
	if strings.Contains(node.Type(), "function") {
		def.Children = c.functionParts(node)
	} else {
		def.Children = c.children(node, nameNode)
	}
	return def
}

func (c converter) function(node *sitter.Node) []*syntax.Node {
	var out []*syntax.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child.Type() == "decorator" {
			out = append(out, c.convert(child)...)
		}
	}
	if name := node.ChildByFieldName("name"); name != nil && name.Type() == "computed_property_name" {
		out = append(out, c.convert(name)...)
	}
	return append(out, c.functionParts(node)...)
}

// functionParts converts what a function references: parameter types and
// defaults, the return type and the body. Parameter names bind locals and
// are not references.
func (c converter) functionParts(node *sitter.Node) []*syntax.Node {
	return c.field(node, "parameters", "return_type", "body")
}

func (c converter) parameters(node *sitter.Node) []*syntax.Node {
	var out []*syntax.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier", "object_pattern", "array_pattern", "rest_pattern":
		case "assignment_pattern":
			out = append(out, c.field(child, "right")...)
		default:
			out = append(out, c.convert(child)...)
		}
	}
	return out
}

// declarator turns `const x = ...` into a definition of x, and recognizes
// `const x = require("pkg")` and its destructured form as imports.
func (c converter) declarator(node *sitter.Node) []*syntax.Node {
	name := node.ChildByFieldName("name")
	value := node.ChildByFieldName("value")
	if spec, ok := c.requireCall(value); ok {
		return c.requireBinding(node, name, spec)
	}
	if name == nil || name.Type() != "identifier" {
		return c.field(node, "type", "value")
	}
	def := c.base(syntax.NodeDefinition, node)
	def.Name = c.text(name)
	def.Children = c.field(node, "type", "value")
	return []*syntax.Node{def}
}

func (c converter) requireCall(node *sitter.Node) (string, bool) {
	for node != nil && (node.Type() == "await_expression" || node.Type() == "parenthesized_expression") {
		node = node.NamedChild(0)
	}
	if node == nil || node.Type() != "call_expression" {
		return "", false
	}
	function := node.ChildByFieldName("function")
	if function == nil || function.Type() != "identifier" || c.text(function) != "require" {
		return "", false
	}
	return c.firstStringArgument(node)
}

func (c converter) firstStringArgument(call *sitter.Node) (string, bool) {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return "", false
	}
	first := args.NamedChild(0)
	if first.Type() != "string" && first.Type() != "template_string" {
		return "", false
	}
	spec := shared.StripQuotes(c.text(first))
	if strings.Contains(spec, "${") {
		return "", false
	}
	return spec, true
}

func (c converter) requireBinding(node, name *sitter.Node, spec string) []*syntax.Node {
	target := specifierPath(c.dir, spec)
	if len(target) == 0 {
		return nil
	}
	switch {
	case name != nil && name.Type() == "identifier":
		return []*syntax.Node{c.importNode(node, syntax.Import{Path: target, Alias: c.text(name)})}
	case name != nil && name.Type() == "object_pattern":
		var out []*syntax.Node
		for i := 0; i < int(name.NamedChildCount()); i++ {
			child := name.NamedChild(i)
			switch child.Type() {
			case "shorthand_property_identifier_pattern":
				member := c.text(child)
				out = append(out, c.importNode(child, syntax.Import{Path: memberPath(target, member), Alias: member}))
			case "pair_pattern":
				key, value := child.ChildByFieldName("key"), child.ChildByFieldName("value")
				if key == nil || value == nil || value.Type() != "identifier" {
					continue
				}
				out = append(out, c.importNode(child, syntax.Import{Path: memberPath(target, shared.StripQuotes(c.text(key))), Alias: c.text(value)}))
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return []*syntax.Node{c.importNode(node, syntax.Import{Path: target, SideEffect: true})}
}

func (c converter) call(node *sitter.Node) []*syntax.Node {
	function := node.ChildByFieldName("function")
	args := c.field(node, "type_arguments", "arguments")
	switch {
	case function == nil:
		return args
	case function.Type() == "import":
		// Dynamic import: the module is loaded but no binding is visible.
		if spec, ok := c.firstStringArgument(node); ok {
			if target := specifierPath(c.dir, spec); len(target) > 0 {
				return []*syntax.Node{c.importNode(node, syntax.Import{Path: target, SideEffect: true})}
			}
		}
		return args
	case function.Type() == "identifier" && c.text(function) == "require":
		if spec, ok := c.firstStringArgument(node); ok {
			if target := specifierPath(c.dir, spec); len(target) > 0 {
				return []*syntax.Node{c.importNode(node, syntax.Import{Path: target, SideEffect: true})}
			}
		}
		return args
	}
	return append(c.pathOrConvert(syntax.NodeCall, function), args...)
}

// pathOrConvert emits one node for a dotted name such as `a.b.c`, or
// converts node normally when it is not a plain name chain.
func (c converter) pathOrConvert(kind syntax.NodeKind, node *sitter.Node) []*syntax.Node {
	if node == nil {
		return nil
	}
	segments := c.segments(node)
	if len(segments) == 0 {
		if node.Type() == "member_expression" {
			return c.field(node, "object")
		}
		return c.children(node)
	}
	n := c.base(kind, node)
	if len(segments) == 1 && kind == syntax.NodePath {
		n.Kind = syntax.NodeIdent
		n.Name = segments[0]
		return []*syntax.Node{n}
	}
	n.Path = segments
	return []*syntax.Node{n}
}

func (c converter) segments(node *sitter.Node) []string {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case "identifier", "type_identifier", "property_identifier":
		return []string{c.text(node)}
	case "member_expression":
		prefix := c.segments(node.ChildByFieldName("object"))
		property := node.ChildByFieldName("property")
		if prefix == nil || property == nil || property.Type() == "private_property_identifier" {
			return nil
		}
		return append(prefix, c.text(property))
	case "nested_identifier", "nested_type_identifier":
		var out []string
		for i := 0; i < int(node.NamedChildCount()); i++ {
			part := c.segments(node.NamedChild(i))
			if part == nil {
				return nil
			}
			out = append(out, part...)
		}
		return out
	default:
		return nil
	}
}

// jsxName reports component references. Lowercase names are intrinsic
// elements such as div.
func (c converter) jsxName(name *sitter.Node) []*syntax.Node {
	segments := c.segments(name)
	if len(segments) == 0 {
		return nil
	}
	if len(segments) == 1 && !startsUpper(segments[0]) {
		return nil
	}
	n := c.base(syntax.NodeType, name)
	n.Path = segments
	return []*syntax.Node{n}
}

func startsUpper(value string) bool {
	return value != "" && value[0] >= 'A' && value[0] <= 'Z'
}

func (c converter) importNode(node *sitter.Node, imp syntax.Import) *syntax.Node {
	n := c.base(syntax.NodeImport, node)
	n.Public = imp.Public
	n.Import = &imp
	return n
}

// memberPath names one export of target. A package's default export stands
// for the package itself.
func memberPath(target []string, name string) []string {
	if name == "default" && (len(target) == 0 || target[0] != "crate") {
		return target
	}
	out := make([]string, 0, len(target)+1)
	out = append(out, target...)
	return append(out, name)
}

func (c converter) importStatement(node *sitter.Node) []*syntax.Node {
	if req := shared.FirstNamedChildOfType(node, "import_require_clause"); req != nil {
		alias := shared.FirstNamedChildOfType(req, "identifier")
		target := specifierPath(c.dir, shared.StripQuotes(c.text(req.ChildByFieldName("source"))))
		if alias == nil || len(target) == 0 {
			return nil
		}
		return []*syntax.Node{c.importNode(node, syntax.Import{Path: target, Alias: c.text(alias)})}
	}

	target := specifierPath(c.dir, shared.StripQuotes(c.text(node.ChildByFieldName("source"))))
	if len(target) == 0 {
		return nil
	}
	clause := shared.FirstNamedChildOfType(node, "import_clause")
	if clause == nil {
		return []*syntax.Node{c.importNode(node, syntax.Import{Path: target, SideEffect: true})}
	}

	var out []*syntax.Node
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		child := clause.NamedChild(i)
		switch child.Type() {
		case "identifier":
			out = append(out, c.importNode(child, syntax.Import{Path: memberPath(target, "default"), Alias: c.text(child)}))
		case "namespace_import":
			if alias := shared.FirstNamedChildOfType(child, "identifier"); alias != nil {
				out = append(out, c.importNode(child, syntax.Import{Path: target, Alias: c.text(alias)}))
			}
		case "named_imports":
			out = append(out, c.specifiers(child, "import_specifier", target, false)...)
		}
	}
	if len(out) == 0 {
		return []*syntax.Node{c.importNode(node, syntax.Import{Path: target, SideEffect: true})}
	}
	return out
}

// specifiers converts `{ a, b as c }` lists of imports and re-exports.
func (c converter) specifiers(list *sitter.Node, kind string, target []string, public bool) []*syntax.Node {
	var out []*syntax.Node
	for i := 0; i < int(list.NamedChildCount()); i++ {
		spec := list.NamedChild(i)
		if spec.Type() != kind {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		name := shared.StripQuotes(c.text(nameNode))
		if name == "" {
			continue
		}
		alias := name
		if aliasNode := spec.ChildByFieldName("alias"); aliasNode != nil {
			alias = shared.StripQuotes(c.text(aliasNode))
		}
		out = append(out, c.importNode(spec, syntax.Import{Path: memberPath(target, name), Alias: alias, Public: public}))
	}
	return out
}

func (c converter) exportStatement(node *sitter.Node) []*syntax.Node {
	if source := node.ChildByFieldName("source"); source != nil {
		target := specifierPath(c.dir, shared.StripQuotes(c.text(source)))
		if len(target) == 0 {
			return nil
		}
		if clause := shared.FirstNamedChildOfType(node, "export_clause"); clause != nil {
			return c.specifiers(clause, "export_specifier", target, true)
		}
		if ns := shared.FirstNamedChildOfType(node, "namespace_export"); ns != nil {
			alias := shared.StripQuotes(c.text(ns.NamedChild(0)))
			return []*syntax.Node{c.importNode(node, syntax.Import{Path: target, Alias: alias, Public: true})}
		}
		return []*syntax.Node{c.importNode(node, syntax.Import{Path: target, Wildcard: true, Public: true})}
	}

	var out []*syntax.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "decorator" {
			out = append(out, c.convert(child)...)
		}
	}
	if decl := node.ChildByFieldName("declaration"); decl != nil {
		converted := c.convert(decl)
		for _, n := range converted {
			if n.Kind == syntax.NodeDefinition {
				n.Public = true
			}
		}
		if isDefaultExport(node) {
			converted = []*syntax.Node{c.defaultExport(node, converted)}
		}
		return append(out, converted...)
	}
	if value := node.ChildByFieldName("value"); value != nil {
		return append(out, c.defaultExport(node, c.convert(value)))
	}
	if clause := shared.FirstNamedChildOfType(node, "export_clause"); clause != nil {
		for i := 0; i < int(clause.NamedChildCount()); i++ {
			spec := clause.NamedChild(i)
			if name := spec.ChildByFieldName("name"); spec.Type() == "export_specifier" && name != nil && name.Type() == "identifier" {
				out = append(out, c.ident(name))
			}
		}
	}
	return out
}

func isDefaultExport(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "default" {
			return true
		}
	}
	return false
}

func (c converter) defaultExport(node *sitter.Node, children []*syntax.Node) *syntax.Node {
	def := c.base(syntax.NodeDefinition, node)
	def.Name = "default"
	def.Public = true
	def.Children = children
	return def
}
