package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/ben-ranford/why/internal/aggregate"
	"github.com/ben-ranford/why/internal/extract"
	"github.com/ben-ranford/why/internal/model"
	"github.com/ben-ranford/why/internal/resolve"
	"github.com/ben-ranford/why/internal/score"
	"github.com/ben-ranford/why/internal/syntax"
)

// FileReader returns the contents of a file named by its identifier.
type FileReader interface {
	ReadFile(id string) ([]byte, error)
}

// ProgressFunc observes per-file progress of the parallel stages. Calls are
// serialized by the engine.
type ProgressFunc func(stage Stage, done, total int)

type Config struct {
	Workers  int
	Logger   *slog.Logger
	Scoring  score.Options
	Progress ProgressFunc
}

// Input is everything one run reads. Declared, Internal and Files are not
// modified.
type Input struct {
	Language    string
	Parser      syntax.Parser
	Conventions resolve.Conventions
	Extract     extract.Options
	Declared    []model.DeclaredDependency
	Internal    []string
	Files       []model.SourceFile
	Reader      FileReader
}

// Result is the immutable outcome of a run.
type Result struct {
	Language    string
	Profiles    []model.Profile
	Unmatched   []model.UnmatchedRoot
	Warnings    []model.Warning
	Skipped     []model.SkippedFile
	FileCount   int
	Builtin     int
	Internal    int
	Fingerprint string
}

func (r *Result) Profile(name string) (model.Profile, bool) {
	for _, profile := range r.Profiles {
		if profile.Name() == name {
			return profile, true
		}
	}
	return model.Profile{}, false
}

type Engine struct {
	cfg    Config
	logger *slog.Logger
}

func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Engine{cfg: cfg, logger: logger}
}

type parsedFile struct {
	file    model.SourceFile
	tree    *syntax.Tree
	skipped *model.SkippedFile
	warning *model.Warning
}

type resolvedFile struct {
	partial  *aggregate.Partial
	warnings []model.Warning
}

// Run executes one full analysis. Per-file failures become skipped files and
// warnings; only cancellation and contract violations abort the run.
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	if in.Parser == nil || in.Reader == nil {
		return nil, errors.New("analysis input requires a parser and a reader")
	}
	if err := e.cfg.Scoring.Validate(); err != nil {
		return nil, err
	}
	r := &run{logger: e.logger}
	progress := e.progress()

	if err := r.advance(StageParsing); err != nil {
		return nil, err
	}
	parsed, err := e.parse(ctx, in, progress)
	if err != nil {
		return nil, err
	}

	if err := r.advance(StageResolving); err != nil {
		return nil, err
	}
	trees := make([]*syntax.Tree, 0, len(parsed))
	result := &Result{Language: in.Language}
	for _, p := range parsed {
		switch {
		case p.skipped != nil:
			result.Skipped = append(result.Skipped, *p.skipped)
			result.Warnings = append(result.Warnings, *p.warning)
		case p.tree != nil:
			trees = append(trees, p.tree)
		}
	}
	result.FileCount = len(trees)
	index := extract.BuildIndex(trees, in.Extract)
	e.logger.Debug("export index built", "modules", index.Modules(), "files", len(trees))

	resolver := resolve.New(in.Conventions, in.Declared, in.Internal)
	resolved, err := e.resolve(ctx, in, parsed, index, resolver, progress)
	if err != nil {
		return nil, err
	}

	if err := r.advance(StageAggregating); err != nil {
		return nil, err
	}
	table := aggregate.NewTable(in.Declared, in.Conventions.Separator)
	for _, file := range resolved {
		if file.partial == nil {
			continue
		}
		if err := table.Fold(file.partial); err != nil {
			return nil, err
		}
		result.Warnings = append(result.Warnings, file.warnings...)
	}
	snapshot, err := table.Seal()
	if err != nil {
		return nil, err
	}

	if err := r.advance(StageScoring); err != nil {
		return nil, err
	}
	scorer := score.New(e.cfg.Scoring)
	result.Profiles = make([]model.Profile, 0, len(snapshot.Profiles))
	for _, profile := range snapshot.Profiles {
		scored, err := scorer.Score(profile, result.FileCount)
		if err != nil {
			return nil, err
		}
		result.Profiles = append(result.Profiles, scored)
	}
	result.Unmatched = snapshot.Unmatched
	result.Builtin = snapshot.Builtin
	result.Internal = snapshot.Internal
	for _, root := range snapshot.Unmatched {
		result.Warnings = append(result.Warnings, model.Warning{
			Code:    model.WarnUnmatchedReference,
			File:    root.Sample.File,
			Line:    root.Sample.Line,
			Message: fmt.Sprintf("%s is referenced %d time(s) but not declared; possible indirect dependency", root.Root, root.Count),
		})
	}

	if err := r.advance(StageFinalized); err != nil {
		return nil, err
	}
	result.Warnings = model.SortWarnings(result.Warnings)
	result.Fingerprint = Fingerprint(result.Profiles, result.Unmatched)
	e.logger.Debug("analysis finished", "files", result.FileCount, "skipped", len(result.Skipped), "fingerprint", result.Fingerprint)
	return result, nil
}

func (e *Engine) progress() func(Stage, int) {
	if e.cfg.Progress == nil {
		return func(Stage, int) {}
	}
	var mu sync.Mutex
	done := make(map[Stage]int)
	return func(stage Stage, total int) {
		mu.Lock()
		defer mu.Unlock()
		done[stage]++
		e.cfg.Progress(stage, done[stage], total)
	}
}

func (e *Engine) newPool(ctx context.Context) *pool.ContextPool {
	return pool.New().WithMaxGoroutines(e.cfg.Workers).WithContext(ctx).WithCancelOnError()
}

// parse reads and parses every file into its own slot, so the slice order
// matches the input order whatever the scheduling.
func (e *Engine) parse(ctx context.Context, in Input, progress func(Stage, int)) ([]parsedFile, error) {
	slots := make([]parsedFile, len(in.Files))
	p := e.newPool(ctx)
	for i, file := range in.Files {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			slot, err := e.parseOne(ctx, in, file)
			if err != nil {
				return err
			}
			slots[i] = slot
			progress(StageParsing, len(in.Files))
			return nil
		})
	}
	waitErr := p.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if waitErr != nil {
		return nil, waitErr
	}
	return slots, nil
}

func (e *Engine) parseOne(ctx context.Context, in Input, file model.SourceFile) (parsedFile, error) {
	slot := parsedFile{file: file}
	src, err := in.Reader.ReadFile(file.ID)
	if err != nil {
		e.logger.Debug("file skipped", "file", file.ID, "reason", err)
		slot.skip(model.WarnInputUnavailable, err)
		return slot, nil
	}
	tree, err := in.Parser.Parse(ctx, file.ID, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return slot, ctxErr
		}
		e.logger.Debug("file skipped", "file", file.ID, "reason", err)
		slot.skip(model.WarnParseError, err)
		return slot, nil
	}
	slot.tree = tree
	return slot, nil
}

func (p *parsedFile) skip(code model.WarningCode, err error) {
	p.skipped = &model.SkippedFile{File: p.file.ID, Reason: err.Error()}
	p.warning = &model.Warning{Code: code, File: p.file.ID, Message: err.Error()}
	var parseErr *syntax.ParseError
	if errors.As(err, &parseErr) {
		p.warning.Message = fmt.Sprintf("analysis skipped: %s", parseErr.Error())
	}
}

// resolve extracts and resolves every parsed file into a private partial
// table. The index and resolver are shared read-only.
func (e *Engine) resolve(ctx context.Context, in Input, parsed []parsedFile, index *extract.Index, resolver *resolve.Resolver, progress func(Stage, int)) ([]resolvedFile, error) {
	slots := make([]resolvedFile, len(parsed))
	total := 0
	for _, file := range parsed {
		if file.tree != nil {
			total++
		}
	}
	p := e.newPool(ctx)
	for i, file := range parsed {
		if file.tree == nil {
			continue
		}
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			x := extract.New(file.tree, index, in.Extract, file.file.Condition)
			aliases := x.Aliases()
			partial := aggregate.NewPartial(in.Conventions.Separator)
			for ref := range x.References() {
				partial.Add(resolver.Resolve(ref, aliases))
			}
			slots[i] = resolvedFile{partial: partial, warnings: x.Warnings()}
			progress(StageResolving, total)
			return nil
		})
	}
	waitErr := p.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if waitErr != nil {
		return nil, waitErr
	}
	return slots, nil
}
