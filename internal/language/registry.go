package language

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownLanguage   = errors.New("unknown language")
	ErrNoLanguageMatch   = errors.New("no language adapter matched")
	ErrMultipleLanguages = errors.New("multiple language adapters matched")
)

type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return errors.New("adapter is nil")
	}

	ids := append([]string{adapter.ID()}, adapter.Aliases()...)
	for _, id := range ids {
		key := normalizeID(id)
		if key == "" {
			return errors.New("adapter id cannot be empty")
		}
		if _, exists := r.adapters[key]; exists {
			return fmt.Errorf("adapter id already registered: %s", id)
		}
	}

	for _, id := range ids {
		r.adapters[normalizeID(id)] = adapter
	}

	return nil
}

// Select returns the adapter registered under languageID, or detects one when
// languageID is empty or "auto".
func (r *Registry) Select(ctx context.Context, repoPath string, languageID string) (Adapter, error) {
	if r == nil {
		return nil, errors.New("language registry is nil")
	}

	languageID = normalizeID(languageID)
	if languageID == "" || languageID == Auto {
		return r.detect(ctx, repoPath)
	}

	adapter, ok := r.adapters[languageID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, languageID)
	}
	return adapter, nil
}

func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}

	ids := make([]string, 0, len(r.adapters))
	for _, adapter := range r.unique() {
		ids = append(ids, adapter.ID())
	}

	sort.Strings(ids)
	return ids
}

func (r *Registry) unique() []Adapter {
	seen := make(map[Adapter]struct{}, len(r.adapters))
	items := make([]Adapter, 0, len(r.adapters))
	for _, adapter := range r.adapters {
		if _, ok := seen[adapter]; ok {
			continue
		}
		seen[adapter] = struct{}{}
		items = append(items, adapter)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID() < items[j].ID() })
	return items
}

// detect picks the single matching adapter. Adapters that report confidence
// break ties; equal top confidence is ambiguous.
func (r *Registry) detect(ctx context.Context, repoPath string) (Adapter, error) {
	if len(r.adapters) == 0 {
		return nil, ErrNoLanguageMatch
	}

	var best []Adapter
	bestConfidence := -1
	for _, adapter := range r.unique() {
		detection, err := detectAdapter(ctx, adapter, repoPath)
		if err != nil {
			return nil, err
		}
		if !detection.Matched {
			continue
		}
		switch {
		case detection.Confidence > bestConfidence:
			best = []Adapter{adapter}
			bestConfidence = detection.Confidence
		case detection.Confidence == bestConfidence:
			best = append(best, adapter)
		}
	}

	switch len(best) {
	case 0:
		return nil, ErrNoLanguageMatch
	case 1:
		return best[0], nil
	default:
		ids := make([]string, 0, len(best))
		for _, adapter := range best {
			ids = append(ids, adapter.ID())
		}
		return nil, fmt.Errorf("%w: %s", ErrMultipleLanguages, strings.Join(ids, ", "))
	}
}

func detectAdapter(ctx context.Context, adapter Adapter, repoPath string) (Detection, error) {
	if detector, ok := adapter.(ConfidenceDetector); ok {
		return detector.DetectWithConfidence(ctx, repoPath)
	}
	matched, err := adapter.Detect(ctx, repoPath)
	if err != nil {
		return Detection{}, err
	}
	return Detection{Matched: matched}, nil
}

func normalizeID(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
