package app

import (
	"github.com/ben-ranford/why/internal/config"
	"github.com/ben-ranford/why/internal/report"
)

type Mode string

const (
	ModeAnalyse Mode = "analyse"
	ModeExport  Mode = "export"
	ModeTUI     Mode = "tui"
	ModeConfig  Mode = "config"
)

type Request struct {
	Mode       Mode
	RepoPath   string
	ConfigPath string
	// Flags holds command-line settings. They win over the config file.
	Flags   config.Overrides
	Analyse AnalyseRequest
	Export  ExportRequest
	TUI     TUIRequest
	Config  ConfigRequest
}

type AnalyseRequest struct {
	Dependencies []string
	Format       report.Format
	Progress     bool
}

type ExportRequest struct {
	Dependencies []string
	OutputPath   string
	// Format is empty to use export.default_format.
	Format string
}

type TUIRequest struct {
	SnapshotPath string
	Filter       string
}

type ConfigRequest struct {
	OutputPath string
}

func DefaultRequest() Request {
	return Request{
		Mode:     ModeAnalyse,
		RepoPath: ".",
		Analyse: AnalyseRequest{
			Format: report.FormatTable,
		},
		Config: ConfigRequest{
			OutputPath: config.DefaultFileName,
		},
	}
}
