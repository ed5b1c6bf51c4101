package analysis

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ben-ranford/why/internal/language"
	"github.com/ben-ranford/why/internal/model"
	"github.com/ben-ranford/why/internal/testutil"
)

const cargoManifest = `[package]
name = "app"
version = "0.1.0"

[dependencies]
serde = { version = "1", features = ["derive", "rc"] }
unused_dep = "0.3"

[dev-dependencies]
pretty_assertions = "1"
`

func writeRustRepo(t *testing.T) string {
	t.Helper()
	repo := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(repo, "Cargo.toml"), cargoManifest)
	testutil.MustWriteFile(t, filepath.Join(repo, "src", "lib.rs"), `use serde::Deserialize;

#[derive(Deserialize)]
pub struct Config;

#[cfg(test)]
mod tests {
    use pretty_assertions::assert_eq;

    #[test]
    fn works() { assert_eq!(1, 1); }
}
`)
	testutil.MustWriteFile(t, filepath.Join(repo, "src", "broken.rs"), "fn ( {\n")
	return repo
}

func TestServiceAnalyseRustRepository(t *testing.T) {
	repo := writeRustRepo(t)
	service := NewService()

	result, err := service.Analyse(context.Background(), Request{RepoPath: repo, Language: "rust", IncludeDev: true})
	require.NoError(t, err)
	assert.Equal(t, "rust", result.Language)

	names := make([]string, 0, len(result.Profiles))
	for _, profile := range result.Profiles {
		names = append(names, profile.Name())
	}
	assert.Equal(t, []string{"pretty_assertions", "serde", "unused_dep"}, names)

	serde, _ := result.Profile("serde")
	assert.Positive(t, serde.ReferenceCount)
	assert.False(t, serde.Removable)
	assert.Equal(t, []string{"derive"}, serde.UsedFlags)

	unused, _ := result.Profile("unused_dep")
	assert.True(t, unused.Removable)

	pretty, _ := result.Profile("pretty_assertions")
	assert.True(t, pretty.ConditionalOnly())
	assert.Equal(t, model.KindDev, pretty.Dependency.Kind)

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "src/broken.rs", result.Skipped[0].File)
}

func TestServiceFiltersProfiles(t *testing.T) {
	repo := writeRustRepo(t)
	service := NewService()

	full, err := service.Analyse(context.Background(), Request{RepoPath: repo, Language: "rust", IncludeDev: true})
	require.NoError(t, err)
	runtimeOnly, err := service.Analyse(context.Background(), Request{RepoPath: repo, Language: "rust"})
	require.NoError(t, err)
	assert.Len(t, runtimeOnly.Profiles, 2)
	assert.NotEqual(t, full.Fingerprint, runtimeOnly.Fingerprint)

	one, err := service.Analyse(context.Background(), Request{RepoPath: repo, Language: "rust", Dependencies: []string{"serde"}})
	require.NoError(t, err)
	require.Len(t, one.Profiles, 1)
	assert.Equal(t, "serde", one.Profiles[0].Name())

	_, err = service.Analyse(context.Background(), Request{RepoPath: repo, Language: "rust", Dependencies: []string{"rand"}})
	require.ErrorIs(t, err, ErrDependencyNotDeclared)
}

func TestServiceDetectsLanguage(t *testing.T) {
	repo := writeRustRepo(t)

	result, err := NewService().Analyse(context.Background(), Request{RepoPath: repo})
	require.NoError(t, err)
	assert.Equal(t, "rust", result.Language)

	_, err = NewService().Analyse(context.Background(), Request{RepoPath: t.TempDir()})
	require.ErrorIs(t, err, language.ErrNoLanguageMatch)

	_, err = NewService().Analyse(context.Background(), Request{RepoPath: repo, Language: "cobol"})
	require.ErrorIs(t, err, language.ErrUnknownLanguage)
}

func TestServiceAnalyseJavaScriptRepository(t *testing.T) {
	repo := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(repo, "package.json"), `{
  "name": "web",
  "dependencies": {"react": "^18.0.0", "left-pad": "1.3.0"},
  "devDependencies": {"vitest": "^1.0.0"}
}`)
	testutil.MustWriteFile(t, filepath.Join(repo, "src", "app.jsx"), `import React, { useState } from "react";
import fs from "node:fs";

export function App() {
  const [n] = useState(0);
  return <div>{n}</div>;
}
`)
	testutil.MustWriteFile(t, filepath.Join(repo, "src", "app.test.js"), `import { test } from "vitest";
test("renders", () => {});
`)

	result, err := NewService().Analyse(context.Background(), Request{RepoPath: repo, IncludeDev: true})
	require.NoError(t, err)
	assert.Equal(t, "js-ts", result.Language)

	react, _ := result.Profile("react")
	assert.Positive(t, react.ReferenceCount)
	assert.False(t, react.Removable)

	pad, _ := result.Profile("left-pad")
	assert.True(t, pad.Removable)

	vitest, _ := result.Profile("vitest")
	assert.True(t, vitest.ConditionalOnly())
	assert.Positive(t, result.Builtin)
}

func TestServiceReportsInitError(t *testing.T) {
	service := &Service{InitErr: assert.AnError}
	_, err := service.Analyse(context.Background(), Request{})
	require.ErrorIs(t, err, assert.AnError)

	_, err = (&Service{}).Analyse(context.Background(), Request{})
	require.Error(t, err)
}
