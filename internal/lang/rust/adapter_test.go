package rust

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ben-ranford/why/internal/model"
	"github.com/ben-ranford/why/internal/testutil"
)

func TestLoadManifestSections(t *testing.T) {
	repo := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(repo, cargoTomlName), `
[package]
name = "demo-app"
version = "0.1.0"

[dependencies]
serde = { version = "1.0", features = ["derive"] }
json = { package = "serde_json", version = "1" }
log = "0.4"
metrics = { version = "0.21", optional = true }
local = { path = "../local" }

[dev-dependencies]
proptest = "1"
log = "0.4"

[build-dependencies]
cc = "1"

[target.'cfg(unix)'.dependencies]
nix = "0.27"
`)

	manifest, err := NewAdapter().LoadManifest(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, "demo-app", manifest.Package)
	assert.Equal(t, []string{"demo-app"}, manifest.Internal)
	assert.Empty(t, manifest.Warnings)

	byName := make(map[string]model.DeclaredDependency)
	for _, dep := range manifest.Dependencies {
		byName[dep.Name] = dep
	}
	require.Len(t, byName, 8)
	assert.Equal(t, []string{"derive"}, byName["serde"].Features)
	assert.Equal(t, "serde_json", byName["json"].Package)
	assert.Equal(t, model.KindRuntime, byName["log"].Kind, "runtime wins over dev")
	assert.True(t, byName["metrics"].Optional)
	assert.Equal(t, "path:../local", byName["local"].Version)
	assert.Equal(t, model.KindDev, byName["proptest"].Kind)
	assert.Equal(t, model.KindBuild, byName["cc"].Kind)
	assert.Equal(t, model.KindRuntime, byName["nix"].Kind)
}

func TestLoadManifestWorkspace(t *testing.T) {
	repo := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(repo, cargoTomlName), `
[workspace]
members = ["crates/*", "missing"]

[workspace.dependencies]
tokio = { version = "1.35", features = ["rt"] }
`)
	testutil.MustWriteFile(t, filepath.Join(repo, "crates", "api", cargoTomlName), `
[package]
name = "api"

[dependencies]
tokio = { workspace = true, features = ["macros"] }
core-lib = { path = "../core" }
`)
	testutil.MustWriteFile(t, filepath.Join(repo, "crates", "core", cargoTomlName), `
[package]
name = "core-lib"

[dependencies]
anyhow = "1"
`)

	manifest, err := NewAdapter().LoadManifest(context.Background(), repo)
	require.NoError(t, err)
	assert.Empty(t, manifest.Package)
	assert.Equal(t, []string{"api", "core-lib"}, manifest.Internal)
	require.Len(t, manifest.Warnings, 1)
	assert.Contains(t, manifest.Warnings[0].Message, `"missing"`)

	names := make([]string, 0, len(manifest.Dependencies))
	for _, dep := range manifest.Dependencies {
		names = append(names, dep.Name)
		if dep.Name == "tokio" {
			assert.Equal(t, "1.35", dep.Version)
			assert.Equal(t, []string{"macros", "rt"}, dep.Features)
		}
	}
	assert.Equal(t, []string{"anyhow", "core-lib", "tokio"}, names)
}

func TestLoadManifestRejectsInvalidToml(t *testing.T) {
	repo := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(repo, cargoTomlName), "[package\nname = 1")

	_, err := NewAdapter().LoadManifest(context.Background(), repo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse Cargo manifest")
}

func TestDetectWithConfidence(t *testing.T) {
	repo := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(repo, cargoTomlName), "[package]\nname = \"x\"\n")
	testutil.MustWriteFile(t, filepath.Join(repo, "src", "lib.rs"), "pub fn x() {}\n")
	testutil.MustWriteFile(t, filepath.Join(repo, "target", "debug", "build.rs"), "fn main() {}\n")

	detection, err := NewAdapter().DetectWithConfidence(context.Background(), repo)
	require.NoError(t, err)
	assert.True(t, detection.Matched)
	assert.GreaterOrEqual(t, detection.Confidence, 60)
	assert.LessOrEqual(t, detection.Confidence, 95)
	assert.Equal(t, []string{repo}, detection.Roots)

	empty := t.TempDir()
	matched, err := NewAdapter().Detect(context.Background(), empty)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestConventions(t *testing.T) {
	conv := NewAdapter().Conventions()
	assert.Equal(t, "serde_json", conv.Normalize("Serde-JSON"))
	assert.True(t, conv.Builtin("std"))
	assert.True(t, conv.Builtin("u8"))
	assert.False(t, conv.Builtin("serde"))
}
