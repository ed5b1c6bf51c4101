package analysis

import (
	"log/slog"

	"github.com/ben-ranford/why/internal/model"
)

// Stage is a step of one engine run. Runs move through the stages strictly in
// order; Finalized is terminal.
type Stage int

const (
	StageNotStarted Stage = iota
	StageParsing
	StageResolving
	StageAggregating
	StageScoring
	StageFinalized
)

var stageNames = [...]string{
	StageNotStarted:  "not_started",
	StageParsing:     "parsing",
	StageResolving:   "resolving",
	StageAggregating: "aggregating",
	StageScoring:     "scoring",
	StageFinalized:   "finalized",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

type run struct {
	stage  Stage
	logger *slog.Logger
}

func (r *run) advance(next Stage) error {
	if r.stage == StageFinalized || next != r.stage+1 {
		return model.Violation("analysis.advance", "cannot move from %s to %s", r.stage, next)
	}
	r.stage = next
	r.logger.Debug("analysis stage", "stage", next.String())
	return nil
}
