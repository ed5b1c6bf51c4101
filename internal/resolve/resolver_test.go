package resolve

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ben-ranford/why/internal/model"
)

func rustLike() Conventions {
	return Conventions{
		Separator: "::",
		Normalize: func(v string) string { return strings.ReplaceAll(strings.ToLower(v), "-", "_") },
		Builtin:   func(root string) bool { return root == "std" || root == "core" },
	}
}

func jsLike() Conventions {
	return Conventions{
		Separator: ".",
		Split:     func(name string) []string { return strings.Split(name, "/") },
	}
}

func ref(path ...string) model.SourceReference {
	return model.SourceReference{Path: path, Kind: model.RefCall, Location: model.Location{File: "src/lib.rs", Line: 1}}
}

func TestResolveNormalizesDashes(t *testing.T) {
	r := New(rustLike(), []model.DeclaredDependency{{Name: "serde-json"}, {Name: "serde"}}, nil)

	usage := r.Resolve(ref("serde_json", "to_string"), nil)
	require.Equal(t, model.Matched, usage.Status)
	assert.Equal(t, "serde-json", usage.Dependency)
	assert.Equal(t, []string{"to_string"}, usage.Symbol)
}

func TestResolveUsesFileAliasTable(t *testing.T) {
	r := New(rustLike(), []model.DeclaredDependency{{Name: "serde_json"}}, nil)

	aliased := ref("json", "Value")
	aliased.Aliased = true
	usage := r.Resolve(aliased, map[string]string{"json": "serde_json"})
	require.Equal(t, model.Matched, usage.Status)
	assert.Equal(t, "serde_json", usage.Dependency)
	assert.Equal(t, []string{"Value"}, usage.Symbol)
	assert.Equal(t, []string{"json", "Value"}, usage.Reference.Path, "reference must not be rewritten")
}

func TestResolveIgnoresAliasTableForUnboundRoot(t *testing.T) {
	r := New(rustLike(), []model.DeclaredDependency{{Name: "serde_json"}, {Name: "json"}}, nil)

	usage := r.Resolve(ref("json", "parse"), map[string]string{"json": "serde_json"})
	require.Equal(t, model.Matched, usage.Status)
	assert.Equal(t, "json", usage.Dependency)
	assert.Equal(t, []string{"parse"}, usage.Symbol)
}

func TestResolveLongestPrefixWins(t *testing.T) {
	r := New(jsLike(), []model.DeclaredDependency{{Name: "@babel/core"}, {Name: "lodash"}}, nil)

	usage := r.Resolve(ref("@babel", "core", "transform"), nil)
	require.Equal(t, model.Matched, usage.Status)
	assert.Equal(t, "@babel/core", usage.Dependency)
	assert.Equal(t, []string{"transform"}, usage.Symbol)

	usage = r.Resolve(ref("@babel", "parser"), nil)
	assert.Equal(t, model.Unmatched, usage.Status)
	assert.Equal(t, "@babel/parser", usage.Root)
}

func TestResolveNeverMatchesSubstrings(t *testing.T) {
	r := New(rustLike(), []model.DeclaredDependency{{Name: "serde"}}, nil)

	usage := r.Resolve(ref("serde_yaml", "from_str"), nil)
	assert.Equal(t, model.Unmatched, usage.Status)
	assert.Equal(t, "serde_yaml", usage.Root)
	assert.Empty(t, usage.Dependency)
}

func TestResolveBuiltinAndInternal(t *testing.T) {
	r := New(rustLike(), []model.DeclaredDependency{{Name: "serde"}}, []string{"my-app"})

	assert.Equal(t, model.Builtin, r.Resolve(ref("std", "fs", "read"), nil).Status)
	assert.Equal(t, model.Internal, r.Resolve(ref("my_app", "run"), nil).Status)
}

func TestSymbolMarksWildcards(t *testing.T) {
	usage := model.ResolvedUsage{
		Reference: model.SourceReference{Path: []string{"serde", "de"}, Wildcard: true},
		Symbol:    []string{"de"},
	}
	assert.Equal(t, "de::*", Symbol(usage, "::"))

	usage.Symbol = nil
	assert.Equal(t, "*", Symbol(usage, "::"))
}
