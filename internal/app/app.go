package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/ben-ranford/why/internal/analysis"
	"github.com/ben-ranford/why/internal/config"
	"github.com/ben-ranford/why/internal/progress"
	"github.com/ben-ranford/why/internal/report"
	"github.com/ben-ranford/why/internal/ui"
)

var (
	ErrUnknownMode        = errors.New("unknown mode")
	ErrExportPathRequired = errors.New("export output path is required")
)

type App struct {
	Analyzer  analysis.Analyzer
	Formatter report.Formatter
	TUI       ui.TUI
	Err       io.Writer
	Logger    *slog.Logger
	// Color reports whether the output is a terminal that accepts color.
	Color bool
	Now   func() time.Time
}

func New(out io.Writer, errOut io.Writer, in io.Reader, logger *slog.Logger) *App {
	service := analysis.NewService()
	service.Logger = logger
	formatter := report.NewFormatter()

	return &App{
		Analyzer:  service,
		Formatter: formatter,
		TUI:       ui.NewSummary(out, in, service, formatter),
		Err:       errOut,
		Logger:    logger,
		Color:     !color.NoColor,
		Now:       time.Now,
	}
}

func (a *App) Execute(ctx context.Context, req Request) (string, error) {
	if req.Mode == ModeConfig {
		return a.executeConfig(req)
	}

	values, err := a.resolveValues(req)
	if err != nil {
		return "", err
	}
	switch req.Mode {
	case ModeAnalyse:
		return a.executeAnalyse(ctx, req, values)
	case ModeExport:
		return a.executeExport(ctx, req, values)
	case ModeTUI:
		return "", a.executeTUI(ctx, req, values)
	default:
		return "", ErrUnknownMode
	}
}

func (a *App) resolveValues(req Request) (config.Values, error) {
	loaded, err := config.Load(req.RepoPath, req.ConfigPath)
	if err != nil {
		return config.Values{}, err
	}
	if loaded.ConfigPath != "" {
		a.logger().Debug("config loaded", "path", loaded.ConfigPath)
	}
	values := req.Flags.Apply(loaded.Resolved)
	if err := values.Validate(); err != nil {
		return config.Values{}, err
	}
	return values, nil
}

func buildAnalysisRequest(repoPath string, values config.Values, dependencies []string) analysis.Request {
	scoring := values.ScoringOptions()
	return analysis.Request{
		RepoPath:       repoPath,
		Language:       values.LanguageID(),
		Dependencies:   dependencies,
		IncludeDev:     values.General.IncludeDevDependencies,
		IncludeBuild:   values.General.IncludeBuildDependencies,
		Workers:        values.Analysis.Workers,
		Exclude:        values.Analysis.ExcludePatterns,
		MaxFileBytes:   values.Analysis.MaxFileBytes,
		FollowSymlinks: values.Analysis.FollowSymlinks,
		Scoring:        &scoring,
	}
}

func (a *App) executeAnalyse(ctx context.Context, req Request, values config.Values) (string, error) {
	analysisReq := buildAnalysisRequest(req.RepoPath, values, req.Analyse.Dependencies)
	if req.Analyse.Progress {
		tracker := progress.NewTracker(a.errWriter())
		defer tracker.Done()
		analysisReq.Progress = tracker.Observe
	}

	result, err := a.Analyzer.Analyse(ctx, analysisReq)
	if err != nil {
		return "", err
	}
	formatter := a.Formatter
	formatter.Color = a.Color && values.TUI.Color
	return formatter.Format(report.Build(result, req.RepoPath, a.now()), req.Analyse.Format)
}

func (a *App) executeExport(ctx context.Context, req Request, values config.Values) (string, error) {
	if req.Export.OutputPath == "" {
		return "", ErrExportPathRequired
	}
	formatName := req.Export.Format
	if formatName == "" {
		formatName = values.Export.DefaultFormat
	}
	format, err := report.ParseExportFormat(formatName)
	if err != nil {
		return "", err
	}

	result, err := a.Analyzer.Analyse(ctx, buildAnalysisRequest(req.RepoPath, values, req.Export.Dependencies))
	if err != nil {
		return "", err
	}
	doc := report.Build(result, req.RepoPath, a.now())
	payload, err := a.Formatter.Format(doc, format)
	if err != nil {
		return "", err
	}

	path := exportPath(values.Export.OutputDir, req.Export.OutputPath)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create export directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		return "", fmt.Errorf("write export %s: %w", path, err)
	}
	a.logger().Debug("export written", "path", path, "format", string(format))
	return fmt.Sprintf("Exported %d dependencies to %s", len(doc.Dependencies), path), nil
}

// exportPath places relative output paths under the configured output
// directory.
func exportPath(outputDir, outputPath string) string {
	if filepath.IsAbs(outputPath) || outputDir == "" {
		return outputPath
	}
	return filepath.Join(outputDir, outputPath)
}

func (a *App) executeTUI(ctx context.Context, req Request, values config.Values) error {
	opts := ui.Options{
		Request:  buildAnalysisRequest(req.RepoPath, values, nil),
		Filter:   req.TUI.Filter,
		Sort:     values.TUI.Sort,
		PageSize: values.TUI.PageSize,
		Color:    a.Color && values.TUI.Color,
	}
	if req.TUI.SnapshotPath != "" {
		return a.TUI.Snapshot(ctx, opts, req.TUI.SnapshotPath)
	}
	return a.TUI.Start(ctx, opts)
}

func (a *App) executeConfig(req Request) (string, error) {
	path := req.Config.OutputPath
	if path == "" {
		path = config.DefaultFileName
	}
	if err := config.WriteDefault(path); err != nil {
		return "", err
	}
	return fmt.Sprintf("Wrote default config to %s", path), nil
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func (a *App) errWriter() io.Writer {
	if a.Err == nil {
		return os.Stderr
	}
	return a.Err
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.Logger
}
