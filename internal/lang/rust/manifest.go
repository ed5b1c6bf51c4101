package rust

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ben-ranford/why/internal/lang/shared"
	"github.com/ben-ranford/why/internal/language"
	"github.com/ben-ranford/why/internal/model"
	"github.com/ben-ranford/why/internal/safeio"
)

type cargoManifest struct {
	Package           *cargoPackage          `toml:"package"`
	Dependencies      map[string]any         `toml:"dependencies"`
	DevDependencies   map[string]any         `toml:"dev-dependencies"`
	BuildDependencies map[string]any         `toml:"build-dependencies"`
	Target            map[string]cargoTarget `toml:"target"`
	Workspace         *cargoWorkspace        `toml:"workspace"`
}

type cargoPackage struct {
	Name string `toml:"name"`
}

type cargoTarget struct {
	Dependencies      map[string]any `toml:"dependencies"`
	DevDependencies   map[string]any `toml:"dev-dependencies"`
	BuildDependencies map[string]any `toml:"build-dependencies"`
}

type cargoWorkspace struct {
	Members      []string       `toml:"members"`
	Exclude      []string       `toml:"exclude"`
	Dependencies map[string]any `toml:"dependencies"`
}

// LoadManifest reads the root Cargo.toml and every workspace member, or every
// Cargo.toml below the repository when there is no root manifest.
func (a *Adapter) LoadManifest(ctx context.Context, repoPath string) (language.Manifest, error) {
	repoPath = shared.DefaultRepoPath(repoPath)
	paths, warnings, err := discoverManifestPaths(repoPath)
	if err != nil {
		return language.Manifest{}, err
	}

	var inherited map[string]any
	if root, err := readCargoManifest(repoPath, filepath.Join(repoPath, cargoTomlName)); err == nil && root.Workspace != nil {
		inherited = root.Workspace.Dependencies
	}

	result := language.Manifest{Warnings: warnings}
	internal := make(map[string]struct{})
	var declared []model.DeclaredDependency
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return language.Manifest{}, err
		}
		manifest, err := readCargoManifest(repoPath, path)
		if err != nil {
			return language.Manifest{}, err
		}
		if manifest.Package != nil && manifest.Package.Name != "" {
			internal[manifest.Package.Name] = struct{}{}
			if samePath(filepath.Dir(path), repoPath) {
				result.Package = manifest.Package.Name
			}
		}
		declared = append(declared, manifest.declared(inherited)...)
	}
	result.Internal = shared.SortedKeys(internal)
	result.Dependencies = model.MergeDeclared(declared)
	return result, nil
}

func readCargoManifest(repoPath, manifestPath string) (cargoManifest, error) {
	content, err := safeio.ReadFileUnder(repoPath, manifestPath)
	if err != nil {
		return cargoManifest{}, fmt.Errorf("read Cargo manifest %s: %w", manifestPath, err)
	}
	return parseCargoManifest(manifestPath, content)
}

func parseCargoManifest(name string, content []byte) (cargoManifest, error) {
	var manifest cargoManifest
	if err := toml.Unmarshal(content, &manifest); err != nil {
		return cargoManifest{}, fmt.Errorf("parse Cargo manifest %s: %w", name, err)
	}
	return manifest, nil
}

func (m cargoManifest) declared(inherited map[string]any) []model.DeclaredDependency {
	var deps []model.DeclaredDependency
	add := func(section map[string]any, kind model.Kind) {
		for _, name := range sortedNames(section) {
			deps = append(deps, cargoDependency(name, section[name], kind, inherited))
		}
	}
	add(m.Dependencies, model.KindRuntime)
	add(m.DevDependencies, model.KindDev)
	add(m.BuildDependencies, model.KindBuild)

	targets := make([]string, 0, len(m.Target))
	for target := range m.Target {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	for _, target := range targets {
		section := m.Target[target]
		add(section.Dependencies, model.KindRuntime)
		add(section.DevDependencies, model.KindDev)
		add(section.BuildDependencies, model.KindBuild)
	}
	return deps
}

// cargoDependency accepts both `name = "1.0"` and the table form. A table with
// `workspace = true` takes its version and features from the workspace root.
func cargoDependency(name string, value any, kind model.Kind, inherited map[string]any) model.DeclaredDependency {
	dep := model.DeclaredDependency{Name: name, Kind: kind}
	switch v := value.(type) {
	case string:
		dep.Version = v
	case map[string]any:
		if workspace, _ := v["workspace"].(bool); workspace {
			if base, ok := inherited[name]; ok {
				dep = dep.Merge(cargoDependency(name, base, kind, nil))
			}
		}
		if version, ok := v["version"].(string); ok {
			dep.Version = version
		} else if dep.Version == "" {
			if path, ok := v["path"].(string); ok {
				dep.Version = "path:" + path
			} else if git, ok := v["git"].(string); ok {
				dep.Version = "git:" + git
			}
		}
		if optional, ok := v["optional"].(bool); ok {
			dep.Optional = optional
		}
		if pkg, ok := v["package"].(string); ok {
			dep.Package = pkg
		}
		if features, ok := v["features"].([]any); ok {
			for _, feature := range features {
				if text, ok := feature.(string); ok {
					dep.Features = append(dep.Features, text)
				}
			}
		}
	}
	return dep.Normalize()
}

func sortedNames(section map[string]any) []string {
	names := make([]string, 0, len(section))
	for name := range section {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func discoverManifestPaths(repoPath string) ([]string, []model.Warning, error) {
	var warnings []model.Warning
	rootManifest := filepath.Join(repoPath, cargoTomlName)
	if _, err := os.Stat(rootManifest); err == nil {
		manifest, parseErr := readCargoManifest(repoPath, rootManifest)
		if parseErr != nil {
			return nil, nil, parseErr
		}

		var members []string
		if manifest.Workspace != nil {
			members = manifest.Workspace.Members
		}
		paths := make([]string, 0, 1+len(members))
		if manifest.Package != nil || len(members) == 0 {
			paths = append(paths, rootManifest)
		}
		for _, member := range members {
			memberRoots := resolveWorkspaceMembers(repoPath, member)
			if len(memberRoots) == 0 {
				warnings = append(warnings, model.Warning{
					Code:    model.WarnInputUnavailable,
					File:    cargoTomlName,
					Message: fmt.Sprintf("workspace member pattern %q did not resolve to a Cargo.toml", member),
				})
			}
			for _, root := range memberRoots {
				paths = append(paths, filepath.Join(root, cargoTomlName))
			}
		}
		return uniquePaths(paths), warnings, nil
	} else if !os.IsNotExist(err) {
		return nil, nil, err
	}

	var paths []string
	count := 0
	err := filepath.WalkDir(repoPath, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			if shouldSkipDir(entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(entry.Name(), cargoTomlName) {
			return nil
		}
		count++
		if count > maxManifestCount {
			return fs.SkipAll
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil && err != fs.SkipAll {
		return nil, nil, err
	}
	if count > maxManifestCount {
		warnings = append(warnings, model.Warning{
			Code:    model.WarnInputUnavailable,
			Message: fmt.Sprintf("cargo manifest discovery capped at %d manifests", maxManifestCount),
		})
	}
	if len(paths) == 0 {
		warnings = append(warnings, model.Warning{Code: model.WarnInputUnavailable, Message: "no Cargo.toml files found for analysis"})
	}
	return uniquePaths(paths), warnings, nil
}

func resolveWorkspaceMembers(repoPath, pattern string) []string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(repoPath, pattern))
	if err != nil {
		return nil
	}
	roots := make(map[string]struct{})
	for _, match := range matches {
		match = filepath.Clean(match)
		info, statErr := os.Stat(match)
		if statErr != nil || !info.IsDir() {
			continue
		}
		if !shared.IsPathWithin(repoPath, match) {
			continue
		}
		if _, manifestErr := os.Stat(filepath.Join(match, cargoTomlName)); manifestErr != nil {
			continue
		}
		roots[match] = struct{}{}
	}
	return shared.SortedKeys(roots)
}

func uniquePaths(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = filepath.Clean(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	sort.Strings(result)
	return result
}
