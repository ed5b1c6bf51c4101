package score

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/ben-ranford/why/internal/model"
)

const (
	DefaultBreadthWeight      = 0.6
	DefaultDepthWeight        = 0.4
	DefaultSymbolCap          = 10
	DefaultConditionalPenalty = 0.5
	DefaultRemovalThreshold   = 0.1

	precision = 10000
)

type Weights struct {
	Breadth float64
	Depth   float64
}

type Options struct {
	Weights            Weights
	SymbolCap          int
	ConditionalPenalty float64
	// EnabledConditions are the predicates the caller builds with. Matching is
	// exact string comparison.
	EnabledConditions []string
	RemovalThreshold  float64
}

func DefaultOptions() Options {
	return Options{
		Weights:            Weights{Breadth: DefaultBreadthWeight, Depth: DefaultDepthWeight},
		SymbolCap:          DefaultSymbolCap,
		ConditionalPenalty: DefaultConditionalPenalty,
		EnabledConditions:  []string{"test"},
		RemovalThreshold:   DefaultRemovalThreshold,
	}
}

func (o Options) Validate() error {
	if o.Weights.Breadth < 0 || o.Weights.Depth < 0 || o.Weights.Breadth+o.Weights.Depth <= 0 {
		return fmt.Errorf("invalid scoring weights: breadth %.2f, depth %.2f (must be non-negative with a positive sum)", o.Weights.Breadth, o.Weights.Depth)
	}
	if o.SymbolCap < 1 {
		return fmt.Errorf("invalid symbol cap: %d (must be >= 1)", o.SymbolCap)
	}
	if o.ConditionalPenalty < 0 || o.ConditionalPenalty > 1 {
		return fmt.Errorf("invalid conditional penalty: %.2f (must be between 0 and 1)", o.ConditionalPenalty)
	}
	if o.RemovalThreshold < 0 || o.RemovalThreshold > 1 {
		return fmt.Errorf("invalid removal threshold: %.2f (must be between 0 and 1)", o.RemovalThreshold)
	}
	return nil
}

// Scorer turns sealed profiles into verdicts. It keeps no state between calls;
// the scored marker travels with the profile.
type Scorer struct {
	opts    Options
	enabled map[string]struct{}
}

func New(opts Options) *Scorer {
	enabled := make(map[string]struct{}, len(opts.EnabledConditions))
	for _, condition := range opts.EnabledConditions {
		enabled[condition] = struct{}{}
	}
	return &Scorer{opts: opts, enabled: enabled}
}

// Score returns profile with its score, removability, low-importance hint and
// flag evidence filled in. totalFiles is the number of files analyzed.
func (s *Scorer) Score(profile model.Profile, totalFiles int) (model.Profile, error) {
	if !profile.Sealed {
		return profile, model.Violation("score.Score", "profile %s is not sealed", profile.Name())
	}
	if profile.Scored {
		return profile, model.Violation("score.Score", "profile %s already scored", profile.Name())
	}

	profile.UsedFlags, profile.UnusedFlags = s.flagEvidence(profile)
	profile.Scored = true
	if profile.Unused() {
		profile.ImportanceScore = 0
		profile.Removable = true
		profile.LowImportance = false
		return profile, nil
	}

	profile.ImportanceScore = s.importance(profile, totalFiles)
	profile.Removable = s.removable(profile)
	profile.LowImportance = profile.ImportanceScore < s.opts.RemovalThreshold
	return profile, nil
}

func (s *Scorer) importance(profile model.Profile, totalFiles int) float64 {
	breadth := 0.0
	if totalFiles > 0 {
		breadth = math.Min(float64(profile.FileCount())/float64(totalFiles), 1)
	}
	limit := max(s.opts.SymbolCap, 1)
	depth := float64(min(len(profile.Symbols), limit)) / float64(limit)

	wb, wd := s.opts.Weights.Breadth, s.opts.Weights.Depth
	if sum := wb + wd; sum > 0 {
		wb, wd = wb/sum, wd/sum
	} else {
		wb, wd = DefaultBreadthWeight, DefaultDepthWeight
	}

	value := wb*breadth + wd*depth
	if profile.ConditionalOnly() {
		value *= s.opts.ConditionalPenalty
	}
	value = math.Max(0, math.Min(1, value))
	return math.Round(value*precision) / precision
}

// removable holds for a zero-use dependency, or a dev-only dependency whose
// every use sits behind predicates the caller does not enable.
func (s *Scorer) removable(profile model.Profile) bool {
	if profile.Unused() {
		return true
	}
	if profile.Dependency.Kind != model.KindDev || !profile.ConditionalOnly() {
		return false
	}
	for _, condition := range profile.Conditions {
		if _, ok := s.enabled[condition]; ok {
			return false
		}
	}
	return true
}

func normalizeFlag(value string) string {
	return strings.ReplaceAll(strings.ToLower(value), "-", "_")
}

var macroFlags = map[string]bool{"derive": true, "macros": true}

// flagEvidence splits declared feature flags into those with evidence in the
// referenced symbols and those without.
func (s *Scorer) flagEvidence(profile model.Profile) ([]string, []string) {
	if len(profile.Dependency.Features) == 0 {
		return nil, nil
	}
	segments := make(map[string]struct{})
	for _, symbol := range profile.Symbols {
		for _, segment := range strings.FieldsFunc(symbol, func(r rune) bool { return r == ':' || r == '.' || r == '/' }) {
			segments[normalizeFlag(segment)] = struct{}{}
		}
	}
	hasMacro := profile.KindCounts[model.RefMacro] > 0

	var used, unused []string
	for _, flag := range profile.Dependency.Features {
		_, named := segments[normalizeFlag(flag)]
		if named || (hasMacro && macroFlags[normalizeFlag(flag)]) {
			used = append(used, flag)
		} else {
			unused = append(unused, flag)
		}
	}
	return slices.Clip(used), slices.Clip(unused)
}
