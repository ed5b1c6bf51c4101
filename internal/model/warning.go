package model

import (
	"fmt"
	"slices"
	"strings"
)

type WarningCode string

const (
	WarnParseError         WarningCode = "parse_error"
	WarnInputUnavailable   WarningCode = "input_unavailable"
	WarnUnmatchedReference WarningCode = "unmatched_reference"
	WarnWildcardImport     WarningCode = "wildcard_import"
	WarnReexportUnresolved WarningCode = "reexport_unresolved"
	WarnFileLimit          WarningCode = "file_limit"
)

type Warning struct {
	Code    WarningCode
	File    string
	Line    int
	Message string
}

func (w Warning) String() string {
	switch {
	case w.File != "" && w.Line > 0:
		return fmt.Sprintf("%s:%d: %s", w.File, w.Line, w.Message)
	case w.File != "":
		return fmt.Sprintf("%s: %s", w.File, w.Message)
	default:
		return w.Message
	}
}

func compareWarnings(a, b Warning) int {
	if c := strings.Compare(a.File, b.File); c != 0 {
		return c
	}
	if a.Line != b.Line {
		return a.Line - b.Line
	}
	if c := strings.Compare(string(a.Code), string(b.Code)); c != 0 {
		return c
	}
	return strings.Compare(a.Message, b.Message)
}

// SortWarnings orders warnings by file, line, code and message and drops exact
// duplicates.
func SortWarnings(warnings []Warning) []Warning {
	sorted := slices.Clone(warnings)
	slices.SortFunc(sorted, compareWarnings)
	return slices.Compact(sorted)
}
