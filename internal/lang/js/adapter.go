package js

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
	packageJSONName   = "package.json"
	maxDetectionFiles = 256
)

var extensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}

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
	return []string{"js", "ts", "javascript", "typescript", "node"}
}

func (a *Adapter) Extensions() []string {
	return append([]string(nil), extensions...)
}

func (a *Adapter) Parser() syntax.Parser {
	return a.parser
}

// ExtractOptions leaves implicit roots off: an unbound `console.log` or
// `process.env` never names a package.
func (a *Adapter) ExtractOptions() extract.Options {
	return extract.Options{}
}

func (a *Adapter) Conventions() resolve.Conventions {
	return Conventions()
}

func Conventions() resolve.Conventions {
	return resolve.Conventions{
		Separator: ".",
		Normalize: strings.ToLower,
		Split:     SplitPackageName,
		Builtin:   IsBuiltinRoot,
	}
}

// SplitPackageName splits a package name into specifier segments, so
// `@scope/pkg` becomes two segments.
func SplitPackageName(name string) []string {
	return strings.Split(strings.Trim(name, "/"), "/")
}

func (a *Adapter) Detect(ctx context.Context, repoPath string) (bool, error) {
	return shared.DetectMatched(ctx, repoPath, a.DetectWithConfidence)
}

func (a *Adapter) DetectWithConfidence(ctx context.Context, repoPath string) (language.Detection, error) {
	repoPath = shared.DefaultRepoPath(repoPath)

	detection := language.Detection{}
	roots := make(map[string]struct{})
	signals := []shared.RootSignal{
		{Name: packageJSONName, Confidence: 45},
		{Name: "tsconfig.json", Confidence: 20},
		{Name: "jsconfig.json", Confidence: 20},
	}
	if err := shared.ApplyRootSignals(repoPath, signals[:1], &detection, roots); err != nil {
		return language.Detection{}, err
	}
	if err := shared.ApplyRootSignals(repoPath, signals[1:], &detection, nil); err != nil {
		return language.Detection{}, err
	}

	visited := 0
	err := filepath.WalkDir(repoPath, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			if shouldSkipDir(entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		visited++
		if visited > maxDetectionFiles {
			return fs.SkipAll
		}
		if strings.EqualFold(entry.Name(), packageJSONName) {
			detection.Matched = true
			detection.Confidence += 10
			roots[filepath.Dir(path)] = struct{}{}
			return nil
		}
		if isSourceFile(entry.Name()) {
			detection.Matched = true
			detection.Confidence += 2
		}
		return nil
	})
	if err != nil && err != fs.SkipAll {
		return language.Detection{}, err
	}
	return shared.FinalizeDetection(repoPath, detection, roots), nil
}

func isSourceFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range extensions {
		if ext == known {
			return true
		}
	}
	return false
}

func shouldSkipDir(name string) bool {
	switch name {
	case ".git", ".idea", "dist", "build", "vendor", "node_modules", ".next", ".turbo", "coverage", "target":
		return true
	default:
		return false
	}
}

// hasPackageJSON reports whether dir holds a package.json file.
func hasPackageJSON(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, packageJSONName))
	return err == nil && !info.IsDir()
}
