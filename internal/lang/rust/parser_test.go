package rust

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ben-ranford/why/internal/syntax"
)

func mustParse(t *testing.T, file, src string) *syntax.Tree {
	t.Helper()
	tree, err := NewParser().Parse(context.Background(), file, []byte(src))
	require.NoError(t, err)
	return tree
}

func importsOf(tree *syntax.Tree) []syntax.Import {
	var imports []syntax.Import
	syntax.Walk(tree.Root, func(n *syntax.Node) bool {
		if n.Kind == syntax.NodeImport {
			imports = append(imports, *n.Import)
		}
		return true
	})
	return imports
}

func pathsOf(tree *syntax.Tree, kind syntax.NodeKind) [][]string {
	var paths [][]string
	syntax.Walk(tree.Root, func(n *syntax.Node) bool {
		if n.Kind == kind {
			paths = append(paths, n.Path)
		}
		return true
	})
	return paths
}

// gatedCalls maps each call path to the combined predicate of its ancestors.
func gatedCalls(tree *syntax.Tree) map[string]string {
	out := make(map[string]string)
	var visit func(n *syntax.Node, gates []string)
	visit = func(n *syntax.Node, gates []string) {
		if gate := n.Gate(); gate != "" {
			gates = append(append([]string{}, gates...), gate)
		}
		if n.Kind == syntax.NodeCall {
			key := ""
			for i, segment := range n.Path {
				if i > 0 {
					key += "::"
				}
				key += segment
			}
			out[key] = syntax.Combine(gates...)
		}
		for _, child := range n.Children {
			visit(child, gates)
		}
	}
	visit(tree.Root, nil)
	return out
}

func TestParseUseTrees(t *testing.T) {
	tree := mustParse(t, "src/lib.rs", `
use serde::{Deserialize, Serialize as Ser, de::{self, Visitor}};
pub use reqwest::Client;
use tokio::prelude::*;
use std::fmt::Write as _;
extern crate serde_json as json;
`)

	assert.Equal(t, []syntax.Import{
		{Path: []string{"serde", "Deserialize"}, Alias: "Deserialize"},
		{Path: []string{"serde", "Serialize"}, Alias: "Ser"},
		{Path: []string{"serde", "de"}, Alias: "de"},
		{Path: []string{"serde", "de", "Visitor"}, Alias: "Visitor"},
		{Path: []string{"reqwest", "Client"}, Alias: "Client", Public: true},
		{Path: []string{"tokio", "prelude"}, Wildcard: true},
		{Path: []string{"std", "fmt", "Write"}, SideEffect: true},
		{Path: []string{"serde_json"}, Alias: "json"},
	}, importsOf(tree))
}

func TestParseCallsTypesAndMacros(t *testing.T) {
	tree := mustParse(t, "src/main.rs", `
fn main() {
    let client: reqwest::Client = reqwest::Client::new();
    let value = serde_json::json!({"a": 1});
    println!("{}", serde_json::to_string(&value).unwrap());
    let parsed = serde_json::from_str::<Config>("{}");
}
`)

	calls := pathsOf(tree, syntax.NodeCall)
	assert.Contains(t, calls, []string{"reqwest", "Client", "new"})
	assert.Contains(t, calls, []string{"serde_json", "to_string"})
	assert.Contains(t, calls, []string{"serde_json", "from_str"})
	assert.NotContains(t, calls, []string{"reqwest", "Client"})

	assert.Contains(t, pathsOf(tree, syntax.NodeType), []string{"reqwest", "Client"})
	assert.Contains(t, pathsOf(tree, syntax.NodeType), []string{"Config"})

	macros := pathsOf(tree, syntax.NodeMacro)
	assert.Contains(t, macros, []string{"serde_json", "json"})
	assert.Contains(t, macros, []string{"println"})
}

func TestParseConditionalAttributes(t *testing.T) {
	tree := mustParse(t, "src/lib.rs", `
pub fn always() { log::info("x"); }

#[cfg(feature = "metrics")]
pub fn metrics() { prometheus::register(); }

#[cfg(test)]
mod tests {
    #[test]
    fn works() { proptest::run(); }
}
`)

	gates := gatedCalls(tree)
	assert.Equal(t, "", gates["log::info"])
	assert.Equal(t, `feature = "metrics"`, gates["prometheus::register"])
	assert.Equal(t, "test", gates["proptest::run"])
}

func TestParseDeriveAndAttributeMacros(t *testing.T) {
	tree := mustParse(t, "src/main.rs", `
#[derive(Debug, serde::Serialize)]
#[cfg_attr(test, derive(Arbitrary))]
struct Config;

#[tokio::main]
async fn main() {}
`)

	var attrs []syntax.Attr
	syntax.Walk(tree.Root, func(n *syntax.Node) bool {
		attrs = append(attrs, n.Attrs...)
		return true
	})

	assert.Contains(t, attrs, syntax.Attr{Name: syntax.AttrDerive, Paths: [][]string{{"Debug"}, {"serde", "Serialize"}}})
	assert.Contains(t, attrs, syntax.Attr{Name: syntax.AttrCfgAttr, Args: "test", Paths: [][]string{{"Arbitrary"}}})
	assert.Contains(t, attrs, syntax.Attr{Name: syntax.AttrMacro, Paths: [][]string{{"tokio", "main"}}})
}

func TestParseModules(t *testing.T) {
	tree := mustParse(t, "src/lib.rs", `
pub mod client;
mod inner {
    pub fn helper() {}
}
`)

	require.Len(t, tree.Root.Children, 2)
	assert.Equal(t, syntax.NodeModuleDecl, tree.Root.Children[0].Kind)
	assert.Equal(t, "client", tree.Root.Children[0].Name)
	assert.True(t, tree.Root.Children[0].Public)

	inner := tree.Root.Children[1]
	assert.Equal(t, syntax.NodeModule, inner.Kind)
	assert.Equal(t, "inner", inner.Name)
	require.Len(t, inner.Children, 1)
	assert.Equal(t, syntax.NodeDefinition, inner.Children[0].Kind)
	assert.Equal(t, "helper", inner.Children[0].Name)
}

func TestParseErrorReportsOffset(t *testing.T) {
	_, err := NewParser().Parse(context.Background(), "src/broken.rs", []byte("fn main( {\n"))
	require.Error(t, err)

	var parseErr *syntax.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "src/broken.rs", parseErr.File)
	assert.GreaterOrEqual(t, parseErr.Offset, 0)
}

func TestModulePath(t *testing.T) {
	tests := []struct {
		file   string
		crate  string
		module []string
	}{
		{file: "src/lib.rs", crate: "", module: []string{"crate"}},
		{file: "src/main.rs", crate: "", module: []string{"crate"}},
		{file: "src/net/mod.rs", crate: "", module: []string{"crate", "net"}},
		{file: "src/net/client.rs", crate: "", module: []string{"crate", "net", "client"}},
		{file: "crates/core/src/lib.rs", crate: "crates/core", module: []string{"crate"}},
		{file: "tests/api.rs", crate: "tests/api", module: []string{"crate"}},
		{file: "tests/api/helpers.rs", crate: "tests/api", module: []string{"crate", "helpers"}},
		{file: "build.rs", crate: "", module: []string{"crate", "build"}},
	}
	for _, tc := range tests {
		t.Run(tc.file, func(t *testing.T) {
			crate, module := ModulePath(tc.file)
			assert.Equal(t, tc.crate, crate)
			assert.Equal(t, tc.module, module)
		})
	}
}
