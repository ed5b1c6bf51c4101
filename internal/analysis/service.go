package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/ben-ranford/why/internal/lang/js"
	"github.com/ben-ranford/why/internal/lang/rust"
	"github.com/ben-ranford/why/internal/language"
	"github.com/ben-ranford/why/internal/model"
	"github.com/ben-ranford/why/internal/score"
	"github.com/ben-ranford/why/internal/workspace"
)

var ErrDependencyNotDeclared = errors.New("dependency not declared")

type Analyzer interface {
	Analyse(ctx context.Context, req Request) (*Result, error)
}

type Service struct {
	Registry *language.Registry
	InitErr  error
	Logger   *slog.Logger
}

func NewService() *Service {
	registry := language.NewRegistry()
	err := errors.Join(
		registry.Register(rust.NewAdapter()),
		registry.Register(js.NewAdapter()),
	)

	return &Service{
		Registry: registry,
		InitErr:  err,
	}
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

func (s *Service) Analyse(ctx context.Context, req Request) (*Result, error) {
	if s.InitErr != nil {
		return nil, s.InitErr
	}
	if s.Registry == nil {
		return nil, errors.New("language registry is not configured")
	}

	repoPath, err := workspace.NormalizeRepoPath(req.RepoPath)
	if err != nil {
		return nil, err
	}
	adapter, err := s.Registry.Select(ctx, repoPath, req.Language)
	if err != nil {
		return nil, err
	}
	logger := s.logger().With("language", adapter.ID())

	manifest, err := adapter.LoadManifest(ctx, repoPath)
	if err != nil {
		return nil, fmt.Errorf("load %s manifest: %w", adapter.ID(), err)
	}
	if err := checkRequested(req.Dependencies, manifest.Dependencies); err != nil {
		return nil, err
	}

	files, collectWarnings, err := workspace.Collect(ctx, repoPath, workspace.Options{
		Extensions:     adapter.Extensions(),
		Exclude:        req.Exclude,
		MaxFiles:       req.MaxFiles,
		FollowSymlinks: req.FollowSymlinks,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("workspace collected", "files", len(files), "dependencies", len(manifest.Dependencies))

	scoring := score.DefaultOptions()
	if req.Scoring != nil {
		scoring = *req.Scoring
	}
	engine := NewEngine(Config{
		Workers:  req.Workers,
		Logger:   logger,
		Scoring:  scoring,
		Progress: req.Progress,
	})
	result, err := engine.Run(ctx, Input{
		Language:    adapter.ID(),
		Parser:      adapter.Parser(),
		Conventions: adapter.Conventions(),
		Extract:     adapter.ExtractOptions(),
		Declared:    manifest.Dependencies,
		Internal:    manifest.Internal,
		Files:       files,
		Reader:      workspace.NewReader(repoPath, req.MaxFileBytes),
	})
	if err != nil {
		return nil, err
	}

	warnings := slices.Concat(manifest.Warnings, collectWarnings, result.Warnings)
	return result.selectProfiles(req.keep, warnings), nil
}

func checkRequested(requested []string, declared []model.DeclaredDependency) error {
	for _, name := range requested {
		if !slices.ContainsFunc(declared, func(dep model.DeclaredDependency) bool { return dep.Name == name }) {
			return fmt.Errorf("%w: %s", ErrDependencyNotDeclared, name)
		}
	}
	return nil
}

func (req Request) keep(profile model.Profile) bool {
	if len(req.Dependencies) > 0 && !slices.Contains(req.Dependencies, profile.Name()) {
		return false
	}
	switch profile.Dependency.Kind {
	case model.KindDev:
		return req.IncludeDev
	case model.KindBuild:
		return req.IncludeBuild
	default:
		return true
	}
}

// selectProfiles returns a copy of r reporting only the kept profiles, with
// the given warnings and a fingerprint of what remains.
func (r *Result) selectProfiles(keep func(model.Profile) bool, warnings []model.Warning) *Result {
	out := *r
	out.Profiles = nil
	for _, profile := range r.Profiles {
		if keep(profile) {
			out.Profiles = append(out.Profiles, profile)
		}
	}
	out.Warnings = model.SortWarnings(warnings)
	out.Fingerprint = Fingerprint(out.Profiles, out.Unmatched)
	return &out
}
