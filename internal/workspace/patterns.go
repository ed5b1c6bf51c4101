package workspace

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultExclude is applied when the caller passes no exclude patterns.
var DefaultExclude = []string{"**/target/**", "**/node_modules/**", "**/.git/**"}

type compiledPattern struct {
	pattern string
	regex   *regexp.Regexp
}

func normalizePatterns(patterns []string) []string {
	seen := make(map[string]struct{}, len(patterns))
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		trimmed := strings.TrimSpace(pattern)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, filepath.ToSlash(trimmed))
	}
	return result
}

func compileGlobPatterns(patterns []string) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range normalizePatterns(patterns) {
		regex, err := regexp.Compile(globToRegexp(pattern))
		if err != nil {
			return nil, fmt.Errorf("compile exclude pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, compiledPattern{pattern: pattern, regex: regex})
	}
	return compiled, nil
}

func matchFirst(path string, patterns []compiledPattern) (string, bool) {
	for _, pattern := range patterns {
		if pattern.regex.MatchString(path) {
			return pattern.pattern, true
		}
	}
	return "", false
}

// globToRegexp anchors a slash glob: `**/` spans zero or more directories,
// `**` anything, `*` and `?` stay inside one segment.
func globToRegexp(pattern string) string {
	var builder strings.Builder
	builder.Grow(len(pattern) * 2)
	builder.WriteString("^")
	for index := 0; index < len(pattern); index++ {
		char := pattern[index]
		switch {
		case char == '*':
			segment, next := asteriskSegment(pattern, index)
			builder.WriteString(segment)
			index = next
		case char == '?':
			builder.WriteString("[^/]")
		default:
			if strings.ContainsRune(`.+()|[]{}^$\`, rune(char)) {
				builder.WriteByte('\\')
			}
			builder.WriteByte(char)
		}
	}
	builder.WriteString("$")
	return builder.String()
}

func asteriskSegment(pattern string, index int) (string, int) {
	if index+1 < len(pattern) && pattern[index+1] == '*' {
		if index+2 < len(pattern) && pattern[index+2] == '/' {
			return "(?:.*/)?", index + 2
		}
		return ".*", index + 1
	}
	return "[^/]*", index
}
