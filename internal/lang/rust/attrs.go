package rust

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ben-ranford/why/internal/lang/shared"
	"github.com/ben-ranford/why/internal/syntax"
)

func (c converter) attributes(item *sitter.Node) []syntax.Attr {
	attr := shared.FirstNamedChildOfType(item, "attribute", "meta_item")
	if attr == nil {
		return nil
	}
	pathNode := shared.FirstNamedChildOfType(attr, "identifier", "scoped_identifier")
	segments := c.pathSegments(pathNode)
	if len(segments) == 0 {
		return nil
	}
	args := ""
	if tokens := attr.ChildByFieldName("arguments"); tokens != nil {
		args = unwrapParens(c.text(tokens))
	} else if tokens := shared.FirstNamedChildOfType(attr, "token_tree"); tokens != nil {
		args = unwrapParens(c.text(tokens))
	}

	switch name := strings.Join(segments, "::"); name {
	case "cfg":
		return []syntax.Attr{{Name: syntax.AttrCfg, Args: normalizePredicate(args)}}
	case "cfg_attr":
		parts := splitTopLevel(args)
		if len(parts) == 0 {
			return nil
		}
		var paths [][]string
		for _, part := range parts[1:] {
			if inner, ok := strings.CutPrefix(strings.TrimSpace(part), "derive"); ok {
				paths = append(paths, derivePaths(unwrapParens(strings.TrimSpace(inner)))...)
			}
		}
		return []syntax.Attr{{Name: syntax.AttrCfgAttr, Args: normalizePredicate(parts[0]), Paths: paths}}
	case "derive":
		return []syntax.Attr{{Name: syntax.AttrDerive, Paths: derivePaths(args)}}
	case "test", "bench":
		return []syntax.Attr{{Name: syntax.AttrTest}}
	default:
		attrs := []syntax.Attr{{Name: syntax.AttrMacro, Paths: [][]string{segments}}}
		if len(segments) > 1 && segments[len(segments)-1] == "test" {
			attrs = append(attrs, syntax.Attr{Name: syntax.AttrTest})
		}
		return attrs
	}
}

func unwrapParens(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 && value[0] == '(' && value[len(value)-1] == ')' {
		return value[1 : len(value)-1]
	}
	return value
}

func derivePaths(args string) [][]string {
	var paths [][]string
	for _, part := range splitTopLevel(args) {
		part = strings.Join(strings.Fields(part), "")
		if part == "" {
			continue
		}
		segments := strings.Split(strings.TrimPrefix(part, "::"), "::")
		valid := true
		for _, segment := range segments {
			if !isIdentifier(segment) {
				valid = false
				break
			}
		}
		if valid {
			paths = append(paths, segments)
		}
	}
	return paths
}

func isIdentifier(value string) bool {
	if value == "" {
		return false
	}
	for i, r := range value {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// splitTopLevel splits on commas outside brackets and string literals.
func splitTopLevel(value string) []string {
	var parts []string
	depth := 0
	quoted := false
	start := 0
	for i := 0; i < len(value); i++ {
		switch ch := value[i]; {
		case ch == '"' && (i == 0 || value[i-1] != '\\'):
			quoted = !quoted
		case quoted:
		case ch == '(' || ch == '[' || ch == '{':
			depth++
		case ch == ')' || ch == ']' || ch == '}':
			depth--
		case ch == ',' && depth == 0:
			parts = append(parts, value[start:i])
			start = i + 1
		}
	}
	if tail := value[start:]; strings.TrimSpace(tail) != "" {
		parts = append(parts, tail)
	}
	return parts
}

// normalizePredicate renders a cfg predicate with canonical spacing so the
// same condition written differently yields the same tag.
func normalizePredicate(value string) string {
	var b strings.Builder
	quoted := false
	for i := 0; i < len(value); i++ {
		ch := value[i]
		switch {
		case ch == '"' && (i == 0 || value[i-1] != '\\'):
			quoted = !quoted
			b.WriteByte(ch)
		case quoted:
			b.WriteByte(ch)
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
		case ch == ',':
			b.WriteString(", ")
		case ch == '=':
			b.WriteString(" = ")
		default:
			b.WriteByte(ch)
		}
	}
	return strings.TrimSuffix(strings.TrimSpace(b.String()), ",")
}
