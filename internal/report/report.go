package report

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ben-ranford/why/internal/analysis"
	"github.com/ben-ranford/why/internal/model"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

const SchemaVersion = "1.0.0"

var ErrUnknownFormat = errors.New("unknown format")

func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatCSV):
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, value)
	}
}

// ParseExportFormat accepts only the file formats Load can read back.
func ParseExportFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(FormatJSON):
		return FormatJSON, nil
	case string(FormatCSV):
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s (export supports json and csv)", ErrUnknownFormat, value)
	}
}

type Document struct {
	SchemaVersion string        `json:"schemaVersion"`
	GeneratedAt   time.Time     `json:"generatedAt"`
	RepoPath      string        `json:"repoPath"`
	Language      string        `json:"language"`
	Fingerprint   string        `json:"fingerprint"`
	FileCount     int           `json:"fileCount"`
	Dependencies  []Dependency  `json:"dependencies"`
	Unmatched     []Unmatched   `json:"unmatched,omitempty"`
	Warnings      []Warning     `json:"warnings,omitempty"`
	SkippedFiles  []SkippedFile `json:"skippedFiles,omitempty"`
}

// Dependency is the exported record for one declared dependency.
type Dependency struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	UsageCount      int      `json:"usage_count"`
	ImportanceScore float64  `json:"importance_score"`
	Removable       bool     `json:"removable"`
	UsedFeatures    []string `json:"used_features"`
	UnusedFeatures  []string `json:"unused_features"`
}

type Unmatched struct {
	Root  string   `json:"root"`
	Count int      `json:"count"`
	Files []string `json:"files,omitempty"`
}

type Warning struct {
	Code    string `json:"code"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

type SkippedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// Build converts an analysis result into an export document.
func Build(result *analysis.Result, repoPath string, now time.Time) Document {
	doc := Document{
		SchemaVersion: SchemaVersion,
		GeneratedAt:   now.UTC(),
		RepoPath:      repoPath,
		Language:      result.Language,
		Fingerprint:   result.Fingerprint,
		FileCount:     result.FileCount,
		Dependencies:  make([]Dependency, 0, len(result.Profiles)),
	}
	for _, profile := range result.Profiles {
		doc.Dependencies = append(doc.Dependencies, FromProfile(profile))
	}
	for _, root := range result.Unmatched {
		doc.Unmatched = append(doc.Unmatched, Unmatched{Root: root.Root, Count: root.Count, Files: slices.Clone(root.Files)})
	}
	for _, warning := range result.Warnings {
		doc.Warnings = append(doc.Warnings, Warning{Code: string(warning.Code), File: warning.File, Line: warning.Line, Message: warning.Message})
	}
	for _, skipped := range result.Skipped {
		doc.SkippedFiles = append(doc.SkippedFiles, SkippedFile{File: skipped.File, Reason: skipped.Reason})
	}
	return doc
}

func FromProfile(profile model.Profile) Dependency {
	return Dependency{
		Name:            profile.Name(),
		Version:         profile.Dependency.Version,
		UsageCount:      profile.ReferenceCount,
		ImportanceScore: profile.ImportanceScore,
		Removable:       profile.Removable,
		UsedFeatures:    nonNil(profile.Symbols),
		UnusedFeatures:  nonNil(profile.UnusedFlags),
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return slices.Clone(values)
}
