package js

import (
	"path"
	"strings"
)

var sourceExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}

// ModulePath maps a slash-separated file identifier to its module path.
// `index` files stand for their directory.
func ModulePath(file string) []string {
	clean := path.Clean(strings.TrimPrefix(file, "./"))
	dir, name := path.Split(clean)
	module := []string{"crate"}
	if dir = strings.Trim(dir, "/"); dir != "" && dir != "." {
		module = append(module, strings.Split(dir, "/")...)
	}
	if stem := trimSourceExt(name); stem != "index" {
		module = append(module, stem)
	}
	return module
}

func trimSourceExt(name string) string {
	for _, ext := range []string{".d.ts", ".d.mts", ".d.cts"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	ext := path.Ext(name)
	for _, known := range sourceExtensions {
		if strings.EqualFold(ext, known) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// specifierPath turns a module specifier into a path usable by the index.
// Relative specifiers, resolved against the importing file's directory,
// become absolute module paths below "crate"; package specifiers split on "/"
// so a scoped name takes two segments.
func specifierPath(dir string, spec string) []string {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}
	if local, ok := projectAlias(spec); ok {
		return projectPath("", local)
	}
	if spec == "." || spec == ".." || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || strings.HasPrefix(spec, "/") {
		if strings.HasPrefix(spec, "/") {
			dir = ""
		}
		return projectPath(dir, spec)
	}
	if strings.HasPrefix(spec, "node:") {
		return []string{spec}
	}
	var segments []string
	for _, part := range strings.Split(spec, "/") {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// projectAlias recognizes the common path aliases that point back into the
// project: `@/x`, `~/x` and `#x` package imports.
func projectAlias(spec string) (string, bool) {
	for _, prefix := range []string{"@/", "~/"} {
		if rest, ok := strings.CutPrefix(spec, prefix); ok {
			return rest, true
		}
	}
	if rest, ok := strings.CutPrefix(spec, "#"); ok {
		return rest, true
	}
	return "", false
}

func projectPath(dir string, spec string) []string {
	joined := path.Join("/", dir, spec)
	module := []string{"crate"}
	for _, part := range strings.Split(strings.Trim(joined, "/"), "/") {
		if part != "" {
			module = append(module, part)
		}
	}
	if n := len(module); n > 1 {
		stem := trimSourceExt(module[n-1])
		if stem == "index" {
			module = module[:n-1]
		} else {
			module[n-1] = stem
		}
	}
	return module
}
