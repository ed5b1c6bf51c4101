package shared

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ben-ranford/why/internal/syntax"
)

const maxErrorSnippet = 24

// ParseTree runs a fresh tree-sitter parser over src. A tree containing error
// or missing nodes is reported as a *syntax.ParseError.
func ParseTree(ctx context.Context, lang *sitter.Language, file string, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree for %s", file)
	}
	root := tree.RootNode()
	if root.HasError() {
		return nil, ParseErrorAt(file, root, src)
	}
	return tree, nil
}

// ParseErrorAt locates the first error or missing node below root.
func ParseErrorAt(file string, root *sitter.Node, src []byte) *syntax.ParseError {
	node := firstErrorNode(root)
	if node == nil {
		node = root
	}
	cause := "invalid syntax"
	switch {
	case node.IsMissing():
		cause = fmt.Sprintf("missing %s", node.Type())
	case node.Type() == "ERROR":
		cause = fmt.Sprintf("unexpected syntax near %q", snippet(Text(node, src)))
	}
	return &syntax.ParseError{File: file, Offset: int(node.StartByte()), Cause: cause}
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Type() == "ERROR" || node.IsMissing() {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if found := firstErrorNode(node.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxErrorSnippet {
		return text[:maxErrorSnippet] + "..."
	}
	return text
}

func Text(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	start, end := int(node.StartByte()), int(node.EndByte())
	if start < 0 || end > len(src) || start > end {
		return ""
	}
	return string(src[start:end])
}

func Line(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

// SameNode compares nodes by span and type; tree-sitter hands out fresh
// wrappers for the same node.
func SameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func FirstNamedChildOfType(node *sitter.Node, types ...string) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		for _, want := range types {
			if child.Type() == want {
				return child
			}
		}
	}
	return nil
}

func StripQuotes(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'' || first == '`') && first == last {
			return value[1 : len(value)-1]
		}
	}
	return value
}
