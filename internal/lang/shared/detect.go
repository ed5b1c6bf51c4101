package shared

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ben-ranford/why/internal/language"
)

type RootSignal struct {
	Name       string
	Confidence int
}

// ApplyRootSignals adds confidence for every marker file present at repoPath.
func ApplyRootSignals(repoPath string, signals []RootSignal, detection *language.Detection, roots map[string]struct{}) error {
	for _, signal := range signals {
		path := filepath.Join(repoPath, signal.Name)
		if _, err := os.Stat(path); err == nil {
			if detection != nil {
				detection.Matched = true
				detection.Confidence += signal.Confidence
			}
			if roots != nil {
				roots[repoPath] = struct{}{}
			}
		} else if !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func FinalizeDetection(repoPath string, detection language.Detection, roots map[string]struct{}) language.Detection {
	if detection.Matched && detection.Confidence < 35 {
		detection.Confidence = 35
	}
	if detection.Confidence > 95 {
		detection.Confidence = 95
	}
	if len(roots) == 0 && detection.Matched {
		roots[repoPath] = struct{}{}
	}
	detection.Roots = SortedKeys(roots)
	return detection
}

func DetectMatched(
	ctx context.Context,
	repoPath string,
	detectWithConfidence func(context.Context, string) (language.Detection, error),
) (bool, error) {
	detection, err := detectWithConfidence(ctx, repoPath)
	if err != nil {
		return false, err
	}
	return detection.Matched, nil
}

func DefaultRepoPath(repoPath string) string {
	if repoPath == "" {
		return "."
	}
	return repoPath
}

func SortedKeys(values map[string]struct{}) []string {
	if len(values) == 0 {
		return nil
	}
	items := make([]string, 0, len(values))
	for value := range values {
		items = append(items, value)
	}
	sort.Strings(items)
	return items
}

func IsPathWithin(root, candidate string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absCandidate, err := filepath.Abs(candidate)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absCandidate)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(os.PathSeparator)) && rel != "..")
}
