package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ben-ranford/why/internal/model"
)

// TestCondition is the predicate carried by files under test-only paths.
const TestCondition = "test"

type Options struct {
	Extensions     []string
	Exclude        []string
	MaxFiles       int
	FollowSymlinks bool
}

var skippedDirs = map[string]bool{
	".git":         true,
	".idea":        true,
	"build":        true,
	"dist":         true,
	"node_modules": true,
	"target":       true,
	"vendor":       true,
}

var testDirs = map[string]bool{
	"__tests__": true,
	"benches":   true,
	"examples":  true,
	"tests":     true,
}

// Collect lists the source files under repoPath whose extension is one of
// opts.Extensions, as slash-separated paths relative to the root in lexical
// order.
func Collect(ctx context.Context, repoPath string, opts Options) ([]model.SourceFile, []model.Warning, error) {
	exclude := opts.Exclude
	if len(exclude) == 0 {
		exclude = DefaultExclude
	}
	compiled, err := compileGlobPatterns(exclude)
	if err != nil {
		return nil, nil, err
	}

	walker := &collector{
		ctx:        ctx,
		root:       repoPath,
		opts:       opts,
		exclude:    compiled,
		extensions: extensionSet(opts.Extensions),
	}
	if err := filepath.WalkDir(repoPath, walker.handle); err != nil && err != fs.SkipAll {
		return nil, nil, fmt.Errorf("collect source files: %w", err)
	}

	slices.SortFunc(walker.files, func(a, b model.SourceFile) int {
		return strings.Compare(a.ID, b.ID)
	})
	return walker.files, walker.warnings, nil
}

type collector struct {
	ctx        context.Context
	root       string
	opts       Options
	exclude    []compiledPattern
	extensions map[string]bool
	files      []model.SourceFile
	warnings   []model.Warning
}

func (c *collector) handle(path string, entry fs.DirEntry, walkErr error) error {
	if c.ctx != nil && c.ctx.Err() != nil {
		return c.ctx.Err()
	}
	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		return err
	}
	id := filepath.ToSlash(rel)
	if walkErr != nil {
		return c.unavailable(id, entry, walkErr)
	}
	if entry.IsDir() {
		if id != "." && (skippedDirs[strings.ToLower(entry.Name())] || c.excluded(id+"/")) {
			return filepath.SkipDir
		}
		return nil
	}
	if !c.extensions[strings.ToLower(filepath.Ext(entry.Name()))] || c.excluded(id) {
		return nil
	}
	if !c.regular(path, entry) {
		return nil
	}
	if c.opts.MaxFiles > 0 && len(c.files) >= c.opts.MaxFiles {
		c.warnings = append(c.warnings, model.Warning{
			Code:    model.WarnFileLimit,
			Message: fmt.Sprintf("file limit of %d reached; remaining files not analyzed", c.opts.MaxFiles),
		})
		return fs.SkipAll
	}

	file := model.SourceFile{ID: id}
	if IsTestPath(id) {
		file.Condition = TestCondition
	}
	c.files = append(c.files, file)
	return nil
}

// unavailable records an entry the walk could not read and moves past it.
// Only a failure on the root itself ends the collection.
func (c *collector) unavailable(id string, entry fs.DirEntry, walkErr error) error {
	if id == "." {
		return walkErr
	}
	c.warnings = append(c.warnings, model.Warning{
		Code:    model.WarnInputUnavailable,
		File:    id,
		Message: fmt.Sprintf("skipped: %v", walkErr),
	})
	if entry != nil && entry.IsDir() {
		return filepath.SkipDir
	}
	return nil
}

func (c *collector) excluded(id string) bool {
	_, matched := matchFirst(id, c.exclude)
	return matched
}

// regular reports whether entry is a file to analyze. Symlinks count only
// when following is enabled and they point at a regular file; the reader
// still refuses targets outside the root.
func (c *collector) regular(path string, entry fs.DirEntry) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.Type().IsRegular()
	}
	if !c.opts.FollowSymlinks {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// IsTestPath reports whether a slash-separated relative path is test-only
// code: a file under tests/, benches/, examples/ or __tests__/, or a file
// named like name.test.ts or name.spec.js.
func IsTestPath(id string) bool {
	segments := strings.Split(id, "/")
	for _, dir := range segments[:len(segments)-1] {
		if testDirs[dir] {
			return true
		}
	}
	name := segments[len(segments)-1]
	return strings.Contains(name, ".test.") || strings.Contains(name, ".spec.")
}

func extensionSet(extensions []string) map[string]bool {
	set := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		set[strings.ToLower(ext)] = true
	}
	return set
}
