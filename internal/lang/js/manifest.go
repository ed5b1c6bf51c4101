package js

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ben-ranford/why/internal/lang/shared"
	"github.com/ben-ranford/why/internal/language"
	"github.com/ben-ranford/why/internal/model"
	"github.com/ben-ranford/why/internal/safeio"
)

type packageJSON struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	Workspaces           workspaces        `json:"workspaces"`
}

// workspaces accepts both `"workspaces": ["a/*"]` and the
// `{"packages": [...]}` object form.
type workspaces []string

func (w *workspaces) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*w = list
		return nil
	}
	var object struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(data, &object); err != nil {
		return fmt.Errorf("workspaces must be a list or an object with packages: %w", err)
	}
	*w = object.Packages
	return nil
}

// LoadManifest reads the root package.json and the package.json of every
// workspace it names. Workspace package names are internal.
func (a *Adapter) LoadManifest(ctx context.Context, repoPath string) (language.Manifest, error) {
	repoPath = shared.DefaultRepoPath(repoPath)
	if !hasPackageJSON(repoPath) {
		return language.Manifest{Warnings: []model.Warning{{
			Code:    model.WarnInputUnavailable,
			Message: "no package.json found; no dependencies declared",
		}}}, nil
	}
	root, err := readPackageJSON(repoPath, filepath.Join(repoPath, packageJSONName))
	if err != nil {
		return language.Manifest{}, err
	}

	result := language.Manifest{Package: root.Name}
	internal := make(map[string]struct{})
	if root.Name != "" {
		internal[root.Name] = struct{}{}
	}
	declared := root.declared()
	for _, pattern := range root.Workspaces {
		if err := ctx.Err(); err != nil {
			return language.Manifest{}, err
		}
		dirs := resolveWorkspaces(repoPath, pattern)
		if len(dirs) == 0 {
			result.Warnings = append(result.Warnings, model.Warning{
				Code:    model.WarnInputUnavailable,
				File:    packageJSONName,
				Message: fmt.Sprintf("workspace pattern %q matched no packages", pattern),
			})
			continue
		}
		for _, dir := range dirs {
			member, err := readPackageJSON(repoPath, filepath.Join(dir, packageJSONName))
			if err != nil {
				return language.Manifest{}, err
			}
			if member.Name != "" {
				internal[member.Name] = struct{}{}
			}
			declared = append(declared, member.declared()...)
		}
	}

	// A workspace depending on a sibling names it like a registry package.
	deps := declared[:0]
	for _, dep := range declared {
		if _, ok := internal[dep.Name]; !ok {
			deps = append(deps, dep)
		}
	}
	result.Internal = shared.SortedKeys(internal)
	result.Dependencies = model.MergeDeclared(deps)
	return result, nil
}

func readPackageJSON(repoPath, manifestPath string) (packageJSON, error) {
	content, err := safeio.ReadFileUnder(repoPath, manifestPath)
	if err != nil {
		return packageJSON{}, fmt.Errorf("read package.json %s: %w", manifestPath, err)
	}
	return parsePackageJSON(manifestPath, content)
}

func parsePackageJSON(name string, content []byte) (packageJSON, error) {
	var pkg packageJSON
	if err := json.Unmarshal(content, &pkg); err != nil {
		return packageJSON{}, fmt.Errorf("parse package.json %s: %w", name, err)
	}
	return pkg, nil
}

func (p packageJSON) declared() []model.DeclaredDependency {
	var deps []model.DeclaredDependency
	add := func(section map[string]string, kind model.Kind, optional bool) {
		names := make([]string, 0, len(section))
		for name := range section {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			deps = append(deps, model.DeclaredDependency{
				Name:     name,
				Version:  section[name],
				Kind:     kind,
				Optional: optional,
			})
		}
	}
	add(p.Dependencies, model.KindRuntime, false)
	add(p.PeerDependencies, model.KindRuntime, false)
	add(p.OptionalDependencies, model.KindRuntime, true)
	add(p.DevDependencies, model.KindDev, false)
	return deps
}

// resolveWorkspaces expands one workspace pattern into directories that hold a
// package.json. Only a trailing `*` or `**` is understood, which covers the
// layouts npm, yarn and pnpm generate.
func resolveWorkspaces(repoPath, pattern string) []string {
	pattern = strings.TrimSuffix(strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(pattern)), "./"), "/")
	if pattern == "" || strings.HasPrefix(pattern, "!") {
		return nil
	}
	var candidates []string
	switch {
	case strings.HasSuffix(pattern, "/**"), strings.HasSuffix(pattern, "/*"):
		base := filepath.Join(repoPath, filepath.FromSlash(strings.TrimRight(pattern, "*/")))
		entries, err := os.ReadDir(base)
		if err != nil {
			return nil
		}
		for _, entry := range entries {
			if entry.IsDir() {
				candidates = append(candidates, filepath.Join(base, entry.Name()))
			}
		}
	default:
		candidates = []string{filepath.Join(repoPath, filepath.FromSlash(pattern))}
	}

	var dirs []string
	for _, dir := range candidates {
		if !shared.IsPathWithin(repoPath, dir) {
			continue
		}
		if hasPackageJSON(dir) {
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}
