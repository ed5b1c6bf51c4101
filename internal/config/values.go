package config

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/ben-ranford/why/internal/score"
	"github.com/ben-ranford/why/internal/workspace"
)

const (
	DefaultLanguage      = "auto"
	DefaultExportFormat  = "json"
	DefaultOutputDir     = "."
	DefaultPageSize      = 10
	DefaultSort          = "importance"
	DefaultMaxFileBytes  = workspace.DefaultMaxFileBytes
	DefaultEnabledConfig = workspace.TestCondition
)

var (
	exportFormats = []string{"json", "csv"}
	sortModes     = []string{"importance", "name", "usage"}
)

type Values struct {
	General  General  `toml:"general"`
	Analysis Analysis `toml:"analysis"`
	Scoring  Scoring  `toml:"scoring"`
	Export   Export   `toml:"export"`
	TUI      TUI      `toml:"tui"`
}

type General struct {
	IncludeDevDependencies   bool   `toml:"include_dev_dependencies"`
	IncludeBuildDependencies bool   `toml:"include_build_dependencies"`
	Language                 string `toml:"language" comment:"auto, rust or js-ts"`
}

type Analysis struct {
	RemovalThreshold      float64  `toml:"removal_threshold"`
	Workers               int      `toml:"workers" comment:"0 uses one worker per CPU"`
	FollowSymlinks        bool     `toml:"follow_symlinks"`
	ExcludePatterns       []string `toml:"exclude_patterns"`
	MaxFileBytes          int64    `toml:"max_file_bytes"`
	EnabledConfigurations []string `toml:"enabled_configurations" comment:"predicates treated as enabled when judging removability"`
}

type Scoring struct {
	BreadthWeight      float64 `toml:"breadth_weight"`
	DepthWeight        float64 `toml:"depth_weight"`
	SymbolCap          int     `toml:"symbol_cap"`
	ConditionalPenalty float64 `toml:"conditional_penalty"`
}

type Export struct {
	DefaultFormat string `toml:"default_format" comment:"json or csv"`
	OutputDir     string `toml:"output_dir"`
}

type TUI struct {
	PageSize int    `toml:"page_size"`
	Sort     string `toml:"sort" comment:"importance, name or usage"`
	Color    bool   `toml:"color"`
}

func Defaults() Values {
	return Values{
		General: General{
			IncludeDevDependencies:   true,
			IncludeBuildDependencies: true,
			Language:                 DefaultLanguage,
		},
		Analysis: Analysis{
			RemovalThreshold:      score.DefaultRemovalThreshold,
			ExcludePatterns:       slices.Clone(workspace.DefaultExclude),
			MaxFileBytes:          DefaultMaxFileBytes,
			EnabledConfigurations: []string{DefaultEnabledConfig},
		},
		Scoring: Scoring{
			BreadthWeight:      score.DefaultBreadthWeight,
			DepthWeight:        score.DefaultDepthWeight,
			SymbolCap:          score.DefaultSymbolCap,
			ConditionalPenalty: score.DefaultConditionalPenalty,
		},
		Export: Export{
			DefaultFormat: DefaultExportFormat,
			OutputDir:     DefaultOutputDir,
		},
		TUI: TUI{
			PageSize: DefaultPageSize,
			Sort:     DefaultSort,
			Color:    true,
		},
	}
}

// LanguageID returns the configured language, or "" for auto-detection.
func (v Values) LanguageID() string {
	language := strings.TrimSpace(v.General.Language)
	if strings.EqualFold(language, DefaultLanguage) {
		return ""
	}
	return language
}

func (v Values) ScoringOptions() score.Options {
	return score.Options{
		Weights:            score.Weights{Breadth: v.Scoring.BreadthWeight, Depth: v.Scoring.DepthWeight},
		SymbolCap:          v.Scoring.SymbolCap,
		ConditionalPenalty: v.Scoring.ConditionalPenalty,
		EnabledConditions:  slices.Clone(v.Analysis.EnabledConfigurations),
		RemovalThreshold:   v.Analysis.RemovalThreshold,
	}
}

func (v *Values) Validate() error {
	if err := validateUnit("analysis.removal_threshold", v.Analysis.RemovalThreshold); err != nil {
		return err
	}
	if v.Analysis.Workers < 0 {
		return fmt.Errorf("invalid analysis.workers: %d (must be >= 0)", v.Analysis.Workers)
	}
	if v.Analysis.MaxFileBytes <= 0 {
		return fmt.Errorf("invalid analysis.max_file_bytes: %d (must be > 0)", v.Analysis.MaxFileBytes)
	}
	for _, pattern := range v.Analysis.ExcludePatterns {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("invalid analysis.exclude_patterns: %q (entries must not be empty)", pattern)
		}
	}
	for _, condition := range v.Analysis.EnabledConfigurations {
		if strings.TrimSpace(condition) == "" {
			return fmt.Errorf("invalid analysis.enabled_configurations: %q (entries must not be empty)", condition)
		}
	}
	if err := validateWeight("scoring.breadth_weight", v.Scoring.BreadthWeight); err != nil {
		return err
	}
	if err := validateWeight("scoring.depth_weight", v.Scoring.DepthWeight); err != nil {
		return err
	}
	if v.Scoring.BreadthWeight+v.Scoring.DepthWeight <= 0 {
		return fmt.Errorf("invalid scoring weights: %v + %v (at least one weight must be greater than 0)", v.Scoring.BreadthWeight, v.Scoring.DepthWeight)
	}
	if v.Scoring.SymbolCap < 1 {
		return fmt.Errorf("invalid scoring.symbol_cap: %d (must be >= 1)", v.Scoring.SymbolCap)
	}
	if err := validateUnit("scoring.conditional_penalty", v.Scoring.ConditionalPenalty); err != nil {
		return err
	}
	if err := validateChoice("export.default_format", v.Export.DefaultFormat, exportFormats); err != nil {
		return err
	}
	if strings.TrimSpace(v.Export.OutputDir) == "" {
		return fmt.Errorf("invalid export.output_dir: %q (must not be empty)", v.Export.OutputDir)
	}
	if v.TUI.PageSize < 1 {
		return fmt.Errorf("invalid tui.page_size: %d (must be >= 1)", v.TUI.PageSize)
	}
	return validateChoice("tui.sort", v.TUI.Sort, sortModes)
}

func validateWeight(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("invalid %s: %v (must be finite)", name, value)
	}
	if value < 0 {
		return fmt.Errorf("invalid %s: %v (must be >= 0)", name, value)
	}
	return nil
}

func validateUnit(name string, value float64) error {
	if math.IsNaN(value) || value < 0 || value > 1 {
		return fmt.Errorf("invalid %s: %v (must be between 0 and 1)", name, value)
	}
	return nil
}

func validateChoice(name, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("invalid %s: %q (must be one of: %s)", name, value, strings.Join(allowed, ", "))
}

// Overrides mirrors Values with optional fields; only keys present in a
// config file are set.
type Overrides struct {
	General  GeneralOverrides  `toml:"general" yaml:"general"`
	Analysis AnalysisOverrides `toml:"analysis" yaml:"analysis"`
	Scoring  ScoringOverrides  `toml:"scoring" yaml:"scoring"`
	Export   ExportOverrides   `toml:"export" yaml:"export"`
	TUI      TUIOverrides      `toml:"tui" yaml:"tui"`
}

type GeneralOverrides struct {
	IncludeDevDependencies   *bool   `toml:"include_dev_dependencies" yaml:"include_dev_dependencies"`
	IncludeBuildDependencies *bool   `toml:"include_build_dependencies" yaml:"include_build_dependencies"`
	Language                 *string `toml:"language" yaml:"language"`
}

type AnalysisOverrides struct {
	RemovalThreshold      *float64  `toml:"removal_threshold" yaml:"removal_threshold"`
	Workers               *int      `toml:"workers" yaml:"workers"`
	FollowSymlinks        *bool     `toml:"follow_symlinks" yaml:"follow_symlinks"`
	ExcludePatterns       *[]string `toml:"exclude_patterns" yaml:"exclude_patterns"`
	MaxFileBytes          *int64    `toml:"max_file_bytes" yaml:"max_file_bytes"`
	EnabledConfigurations *[]string `toml:"enabled_configurations" yaml:"enabled_configurations"`
}

type ScoringOverrides struct {
	BreadthWeight      *float64 `toml:"breadth_weight" yaml:"breadth_weight"`
	DepthWeight        *float64 `toml:"depth_weight" yaml:"depth_weight"`
	SymbolCap          *int     `toml:"symbol_cap" yaml:"symbol_cap"`
	ConditionalPenalty *float64 `toml:"conditional_penalty" yaml:"conditional_penalty"`
}

type ExportOverrides struct {
	DefaultFormat *string `toml:"default_format" yaml:"default_format"`
	OutputDir     *string `toml:"output_dir" yaml:"output_dir"`
}

type TUIOverrides struct {
	PageSize *int    `toml:"page_size" yaml:"page_size"`
	Sort     *string `toml:"sort" yaml:"sort"`
	Color    *bool   `toml:"color" yaml:"color"`
}

func (o *Overrides) Apply(base Values) Values {
	resolved := base
	set(&resolved.General.IncludeDevDependencies, o.General.IncludeDevDependencies)
	set(&resolved.General.IncludeBuildDependencies, o.General.IncludeBuildDependencies)
	set(&resolved.General.Language, o.General.Language)

	set(&resolved.Analysis.RemovalThreshold, o.Analysis.RemovalThreshold)
	set(&resolved.Analysis.Workers, o.Analysis.Workers)
	set(&resolved.Analysis.FollowSymlinks, o.Analysis.FollowSymlinks)
	set(&resolved.Analysis.MaxFileBytes, o.Analysis.MaxFileBytes)
	if o.Analysis.ExcludePatterns != nil {
		resolved.Analysis.ExcludePatterns = slices.Clone(*o.Analysis.ExcludePatterns)
	}
	if o.Analysis.EnabledConfigurations != nil {
		resolved.Analysis.EnabledConfigurations = slices.Clone(*o.Analysis.EnabledConfigurations)
	}

	set(&resolved.Scoring.BreadthWeight, o.Scoring.BreadthWeight)
	set(&resolved.Scoring.DepthWeight, o.Scoring.DepthWeight)
	set(&resolved.Scoring.SymbolCap, o.Scoring.SymbolCap)
	set(&resolved.Scoring.ConditionalPenalty, o.Scoring.ConditionalPenalty)

	set(&resolved.Export.DefaultFormat, o.Export.DefaultFormat)
	set(&resolved.Export.OutputDir, o.Export.OutputDir)

	set(&resolved.TUI.PageSize, o.TUI.PageSize)
	set(&resolved.TUI.Sort, o.TUI.Sort)
	set(&resolved.TUI.Color, o.TUI.Color)
	return resolved
}

func set[T any](target *T, value *T) {
	if value != nil {
		*target = *value
	}
}
