package ui

import (
	"context"

	"github.com/ben-ranford/why/internal/analysis"
)

type TUI interface {
	Start(ctx context.Context, opts Options) error
	Snapshot(ctx context.Context, opts Options, outputPath string) error
}

type Options struct {
	Request  analysis.Request
	Filter   string
	Sort     string
	PageSize int
	// Color enables highlighting in the rendered table. Snapshots written to
	// a file never carry color.
	Color bool
}
