package js

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ben-ranford/why/internal/extract"
	"github.com/ben-ranford/why/internal/model"
	"github.com/ben-ranford/why/internal/resolve"
	"github.com/ben-ranford/why/internal/syntax"
	"github.com/ben-ranford/why/internal/testutil"
)

func TestLoadManifestSections(t *testing.T) {
	repo := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(repo, packageJSONName), `{
  "name": "web",
  "dependencies": {"react": "^18.2.0", "@mui/material": "5.15.0"},
  "devDependencies": {"vitest": "^1.0.0", "react": "^18.2.0"},
  "optionalDependencies": {"fsevents": "2.3.3"},
  "peerDependencies": {"react-dom": ">=18"}
}`)

	manifest, err := NewAdapter().LoadManifest(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, "web", manifest.Package)
	assert.Equal(t, []string{"web"}, manifest.Internal)
	assert.Empty(t, manifest.Warnings)

	byName := make(map[string]model.DeclaredDependency)
	for _, dep := range manifest.Dependencies {
		byName[dep.Name] = dep
	}
	require.Len(t, byName, 5)
	assert.Equal(t, model.KindRuntime, byName["react"].Kind)
	assert.Equal(t, model.KindRuntime, byName["react-dom"].Kind)
	assert.Equal(t, model.KindDev, byName["vitest"].Kind)
	assert.True(t, byName["fsevents"].Optional)
	assert.Equal(t, "5.15.0", byName["@mui/material"].Version)
}

func TestLoadManifestWorkspaces(t *testing.T) {
	repo := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(repo, packageJSONName), `{
  "name": "mono",
  "private": true,
  "workspaces": {"packages": ["packages/*", "tools/missing"]},
  "devDependencies": {"typescript": "5.4.0"}
}`)
	testutil.MustWriteFile(t, filepath.Join(repo, "packages", "ui", packageJSONName), `{
  "name": "@mono/ui",
  "dependencies": {"clsx": "2.0.0", "@mono/core": "*"}
}`)
	testutil.MustWriteFile(t, filepath.Join(repo, "packages", "core", packageJSONName), `{
  "name": "@mono/core",
  "dependencies": {"zod": "3.22.0"}
}`)
	testutil.MustWriteFile(t, filepath.Join(repo, "packages", "notes", "README.md"), "not a package\n")

	manifest, err := NewAdapter().LoadManifest(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, []string{"@mono/core", "@mono/ui", "mono"}, manifest.Internal)

	names := make([]string, 0, len(manifest.Dependencies))
	for _, dep := range manifest.Dependencies {
		names = append(names, dep.Name)
	}
	assert.Equal(t, []string{"clsx", "typescript", "zod"}, names)
	require.Len(t, manifest.Warnings, 1)
	assert.Contains(t, manifest.Warnings[0].Message, `"tools/missing"`)
}

func TestLoadManifestMissingAndInvalid(t *testing.T) {
	manifest, err := NewAdapter().LoadManifest(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, manifest.Dependencies)
	require.Len(t, manifest.Warnings, 1)
	assert.Equal(t, model.WarnInputUnavailable, manifest.Warnings[0].Code)

	repo := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(repo, packageJSONName), `{"dependencies": [}`)
	_, err = NewAdapter().LoadManifest(context.Background(), repo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse package.json")
}

func TestDetectWithConfidence(t *testing.T) {
	repo := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(repo, packageJSONName), `{"name":"x"}`)
	testutil.MustWriteFile(t, filepath.Join(repo, "tsconfig.json"), `{}`)
	testutil.MustWriteFile(t, filepath.Join(repo, "src", "index.ts"), "export {};\n")
	testutil.MustWriteFile(t, filepath.Join(repo, "node_modules", "dep", "index.js"), "module.exports = 1;\n")

	detection, err := NewAdapter().DetectWithConfidence(context.Background(), repo)
	require.NoError(t, err)
	assert.True(t, detection.Matched)
	assert.GreaterOrEqual(t, detection.Confidence, 65)
	assert.Equal(t, []string{repo}, detection.Roots)

	matched, err := NewAdapter().Detect(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.False(t, matched)

	_, err = NewAdapter().DetectWithConfidence(testutil.CanceledContext(), repo)
	require.ErrorIs(t, err, context.Canceled)
}

func TestConventions(t *testing.T) {
	conv := NewAdapter().Conventions()
	assert.Equal(t, ".", conv.Separator)
	assert.Equal(t, []string{"@scope", "pkg"}, conv.Split("@scope/pkg"))
	assert.True(t, conv.Builtin("fs"))
	assert.True(t, conv.Builtin("node:test"))
	assert.False(t, conv.Builtin("react"))
	assert.False(t, NewAdapter().ExtractOptions().ImplicitRoots)
	assert.Contains(t, NewAdapter().Extensions(), ".mts")
}

// resolveAll runs the parser, extractor and resolver over files and returns
// the matched symbols per dependency.
func resolveAll(t *testing.T, declared []string, files map[string]string) (map[string][]string, []model.ResolvedUsage) {
	t.Helper()
	parser := NewParser()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	trees := make([]*syntax.Tree, 0, len(names))
	for _, name := range names {
		tree, err := parser.Parse(context.Background(), name, []byte(files[name]))
		require.NoError(t, err, name)
		trees = append(trees, tree)
	}

	deps := make([]model.DeclaredDependency, 0, len(declared))
	for _, name := range declared {
		deps = append(deps, model.DeclaredDependency{Name: name, Kind: model.KindRuntime})
	}
	adapter := NewAdapter()
	resolver := resolve.New(adapter.Conventions(), deps, []string{"@app/shared"})
	index := extract.BuildIndex(trees, adapter.ExtractOptions())

	symbols := make(map[string][]string)
	var usages []model.ResolvedUsage
	for _, tree := range trees {
		x := extract.New(tree, index, adapter.ExtractOptions(), "")
		aliases := x.Aliases()
		for ref := range x.References() {
			usage := resolver.Resolve(ref, aliases)
			usages = append(usages, usage)
			if usage.Status == model.Matched {
				symbols[usage.Dependency] = append(symbols[usage.Dependency], resolve.Symbol(usage, "."))
			}
		}
	}
	return symbols, usages
}

func TestResolveJavaScriptReferences(t *testing.T) {
	symbols, usages := resolveAll(t, []string{"react", "lodash", "@mui/material", "left-pad"}, map[string]string{
		"src/app.jsx": `
import React, { useState } from "react";
import { Button } from "@mui/material";
import fs from "node:fs";
import { helper } from "@app/shared";
const _ = require("lodash");

export function App() {
  const [n] = useState(0);
  _.map([n], helper);
  return <Button>{React.version}</Button>;
}
`,
	})

	assert.ElementsMatch(t, []string{"useState", "version"}, symbols["react"])
	assert.Equal(t, []string{"map"}, symbols["lodash"])
	assert.Equal(t, []string{"Button"}, symbols["@mui/material"])
	assert.Empty(t, symbols["left-pad"])

	counts := make(map[model.Resolution]int)
	for _, usage := range usages {
		counts[usage.Status]++
	}
	assert.Equal(t, 1, counts[model.Builtin])
	assert.Equal(t, 1, counts[model.Internal])
	assert.Zero(t, counts[model.Unmatched])
}

func TestResolveFollowsReexports(t *testing.T) {
	symbols, _ := resolveAll(t, []string{"lodash", "date-fns"}, map[string]string{
		"src/utils/index.ts": `
export { debounce } from "lodash";
export * from "date-fns";
export function local(): number { return 1; }
`,
		"src/main.ts": `
import { debounce, format, local } from "./utils";
debounce(local);
format(new Date());
`,
	})

	assert.Equal(t, []string{"debounce", "debounce"}, symbols["lodash"])
	assert.Contains(t, symbols["date-fns"], "format")
}
