package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGateCombinesAttributes(t *testing.T) {
	node := &Node{Attrs: []Attr{{Name: AttrCfg, Args: `feature = "x"`}, {Name: AttrTest}}}
	assert.Equal(t, `all(feature = "x", test)`, node.Gate())

	assert.Equal(t, "", (&Node{Attrs: []Attr{{Name: AttrDerive}}}).Gate())
	assert.Equal(t, "", (*Node)(nil).Gate())
}

func TestCombine(t *testing.T) {
	assert.Equal(t, "", Combine("", " "))
	assert.Equal(t, "unix", Combine("", "unix"))
	assert.Equal(t, "all(unix, test)", Combine("unix", "test"))
	assert.Equal(t, "test", Combine("test", "test"))
	assert.Equal(t, "all(unix, test)", Combine("unix", "test", "unix"))
}

func TestWalkSkipsChildren(t *testing.T) {
	leaf := &Node{Kind: NodeIdent, Name: "x"}
	root := &Node{Kind: NodeUnit, Children: []*Node{
		{Kind: NodeModule, Name: "skip", Children: []*Node{leaf}},
		{Kind: NodeCall, Path: []string{"a", "b"}},
	}}

	var kinds []NodeKind
	Walk(root, func(n *Node) bool {
		kinds = append(kinds, n.Kind)
		return n.Kind != NodeModule
	})
	assert.Equal(t, []NodeKind{NodeUnit, NodeModule, NodeCall}, kinds)
}

func TestParseErrorMessage(t *testing.T) {
	err := &ParseError{File: "src/lib.rs", Offset: 12, Cause: "unexpected token"}
	assert.Equal(t, "src/lib.rs: parse error at byte 12: unexpected token", err.Error())
}
