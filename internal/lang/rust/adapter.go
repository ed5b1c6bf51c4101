package rust

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ben-ranford/why/internal/extract"
	"github.com/ben-ranford/why/internal/lang/shared"
	"github.com/ben-ranford/why/internal/language"
	"github.com/ben-ranford/why/internal/resolve"
	"github.com/ben-ranford/why/internal/syntax"
)

const (
	cargoTomlName     = "Cargo.toml"
	cargoLockName     = "Cargo.lock"
	maxDetectionFiles = 2048
	maxManifestCount  = 256
)

type Adapter struct {
	parser *Parser
}

func NewAdapter() *Adapter {
	return &Adapter{parser: NewParser()}
}

func (a *Adapter) ID() string {
	return languageID
}

func (a *Adapter) Aliases() []string {
	return []string{"rs", "cargo"}
}

func (a *Adapter) Extensions() []string {
	return []string{".rs"}
}

func (a *Adapter) Parser() syntax.Parser {
	return a.parser
}

func (a *Adapter) ExtractOptions() extract.Options {
	return extract.Options{ImplicitRoots: true}
}

func (a *Adapter) Conventions() resolve.Conventions {
	return Conventions()
}

// Conventions normalizes crate names the way rustc does: `-` in a package
// name becomes `_` in source paths.
func Conventions() resolve.Conventions {
	return resolve.Conventions{
		Separator: "::",
		Normalize: NormalizeCrateName,
		Builtin:   IsBuiltinRoot,
	}
}

func NormalizeCrateName(value string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
}

var builtinRoots = map[string]bool{
	"alloc":      true,
	"core":       true,
	"proc_macro": true,
	"std":        true,
	"test":       true,
	"Self":       true,
	"bool":       true,
	"char":       true,
	"str":        true,
	"f32":        true,
	"f64":        true,
	"i8":         true,
	"i16":        true,
	"i32":        true,
	"i64":        true,
	"i128":       true,
	"isize":      true,
	"u8":         true,
	"u16":        true,
	"u32":        true,
	"u64":        true,
	"u128":       true,
	"usize":      true,
}

// IsBuiltinRoot reports toolchain crates and primitive types.
func IsBuiltinRoot(root string) bool {
	return builtinRoots[root]
}

func (a *Adapter) Detect(ctx context.Context, repoPath string) (bool, error) {
	return shared.DetectMatched(ctx, repoPath, a.DetectWithConfidence)
}

func (a *Adapter) DetectWithConfidence(ctx context.Context, repoPath string) (language.Detection, error) {
	repoPath = shared.DefaultRepoPath(repoPath)

	detection := language.Detection{}
	roots := make(map[string]struct{})
	workspaceOnlyRoot, err := applyRustRootSignals(repoPath, &detection, roots)
	if err != nil {
		return language.Detection{}, err
	}

	visited := 0
	err = filepath.WalkDir(repoPath, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		return walkRustDetectionEntry(path, entry, repoPath, workspaceOnlyRoot, roots, &detection, &visited)
	})
	if err != nil && err != fs.SkipAll {
		return language.Detection{}, err
	}

	return shared.FinalizeDetection(repoPath, detection, roots), nil
}

func applyRustRootSignals(repoPath string, detection *language.Detection, roots map[string]struct{}) (bool, error) {
	workspaceOnlyRoot := false
	cargoTomlPath := filepath.Join(repoPath, cargoTomlName)
	if _, err := os.Stat(cargoTomlPath); err == nil {
		detection.Matched = true
		detection.Confidence += 60

		manifest, parseErr := readCargoManifest(repoPath, cargoTomlPath)
		if parseErr != nil {
			return false, parseErr
		}
		if manifest.Package != nil {
			roots[repoPath] = struct{}{}
		}
		if manifest.Workspace != nil && len(manifest.Workspace.Members) > 0 {
			workspaceOnlyRoot = manifest.Package == nil
			for _, member := range manifest.Workspace.Members {
				for _, root := range resolveWorkspaceMembers(repoPath, member) {
					roots[root] = struct{}{}
				}
			}
		}
	} else if !os.IsNotExist(err) {
		return false, err
	}

	if err := shared.ApplyRootSignals(repoPath, []shared.RootSignal{{Name: cargoLockName, Confidence: 20}}, detection, nil); err != nil {
		return false, err
	}
	if detection.Matched && !workspaceOnlyRoot {
		roots[repoPath] = struct{}{}
	}
	return workspaceOnlyRoot, nil
}

func walkRustDetectionEntry(path string, entry fs.DirEntry, repoPath string, workspaceOnlyRoot bool, roots map[string]struct{}, detection *language.Detection, visited *int) error {
	if entry.IsDir() {
		if shouldSkipDir(entry.Name()) {
			return filepath.SkipDir
		}
		return nil
	}

	(*visited)++
	if *visited > maxDetectionFiles {
		return fs.SkipAll
	}

	switch {
	case strings.EqualFold(entry.Name(), cargoTomlName):
		detection.Matched = true
		detection.Confidence += 12
		dir := filepath.Dir(path)
		if workspaceOnlyRoot && samePath(dir, repoPath) {
			return nil
		}
		roots[dir] = struct{}{}
	case strings.EqualFold(entry.Name(), cargoLockName):
		detection.Matched = true
		detection.Confidence += 6
	case strings.EqualFold(filepath.Ext(path), ".rs"):
		detection.Matched = true
		detection.Confidence += 2
	}
	return nil
}

func shouldSkipDir(name string) bool {
	switch strings.ToLower(name) {
	case ".git", ".idea", "node_modules", "vendor", "target", "dist", "build":
		return true
	default:
		return false
	}
}

func samePath(left, right string) bool {
	leftAbs, leftErr := filepath.Abs(left)
	rightAbs, rightErr := filepath.Abs(right)
	if leftErr != nil || rightErr != nil {
		return filepath.Clean(left) == filepath.Clean(right)
	}
	return filepath.Clean(leftAbs) == filepath.Clean(rightAbs)
}
