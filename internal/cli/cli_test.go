package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ben-ranford/why/internal/app"
	"github.com/ben-ranford/why/internal/config"
	"github.com/ben-ranford/why/internal/report"
)

type fakeRunner struct {
	output string
	err    error
	calls  []app.Request
}

func (f *fakeRunner) Execute(_ context.Context, req app.Request) (string, error) {
	f.calls = append(f.calls, req)
	return f.output, f.err
}

func (f *fakeRunner) last(t *testing.T) app.Request {
	t.Helper()
	require.NotEmpty(t, f.calls, "expected the runner to be called")
	return f.calls[len(f.calls)-1]
}

func run(t *testing.T, runner *fakeRunner, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := New(runner, &out, &errOut).Run(context.Background(), args)
	return code, out.String(), errOut.String()
}

func TestAnalyzeDefaults(t *testing.T) {
	runner := &fakeRunner{output: "report"}
	code, out, errOut := run(t, runner, "analyze")
	require.Equal(t, exitOK, code, errOut)
	assert.Equal(t, "report\n", out)

	req := runner.last(t)
	assert.Equal(t, app.ModeAnalyse, req.Mode)
	assert.Equal(t, ".", req.RepoPath)
	assert.Equal(t, report.FormatTable, req.Analyse.Format)
	assert.Empty(t, req.Analyse.Dependencies)
	assert.Nil(t, req.Flags.General.Language, "unset flags must not override the config file")
	assert.Nil(t, req.Flags.Analysis.Workers)
	assert.Nil(t, req.Flags.Analysis.EnabledConfigurations)
}

func TestAnalyzeFlags(t *testing.T) {
	runner := &fakeRunner{}
	code, _, errOut := run(t, runner,
		"--config", "custom.toml",
		"analyze", "tokio",
		"--path", "repo",
		"--dep", "serde", "-d", "anyhow",
		"--language", "rust",
		"--format", "json",
		"--workers", "2",
		"--enable", "test", "--enable", `feature="std"`,
		"--progress",
	)
	require.Equal(t, exitOK, code, errOut)

	req := runner.last(t)
	assert.Equal(t, "repo", req.RepoPath)
	assert.Equal(t, "custom.toml", req.ConfigPath)
	assert.Equal(t, []string{"serde", "anyhow", "tokio"}, req.Analyse.Dependencies)
	assert.Equal(t, report.FormatJSON, req.Analyse.Format)
	assert.True(t, req.Analyse.Progress)
	require.NotNil(t, req.Flags.General.Language)
	assert.Equal(t, "rust", *req.Flags.General.Language)
	require.NotNil(t, req.Flags.Analysis.Workers)
	assert.Equal(t, 2, *req.Flags.Analysis.Workers)
	require.NotNil(t, req.Flags.Analysis.EnabledConfigurations)
	assert.Equal(t, []string{"test", `feature="std"`}, *req.Flags.Analysis.EnabledConfigurations)
}

func TestAnalyseAlias(t *testing.T) {
	runner := &fakeRunner{}
	code, _, _ := run(t, runner, "analyse", "--format", "csv")
	require.Equal(t, exitOK, code)
	assert.Equal(t, report.FormatCSV, runner.last(t).Analyse.Format)
}

func TestExportFlags(t *testing.T) {
	runner := &fakeRunner{output: "Exported 2 dependencies to deps.csv"}
	code, out, errOut := run(t, runner, "export", "--output", "deps.csv", "--format", "csv", "--dep", "serde", "--path", "repo")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Exported 2 dependencies")

	req := runner.last(t)
	assert.Equal(t, app.ModeExport, req.Mode)
	assert.Equal(t, "repo", req.RepoPath)
	assert.Equal(t, app.ExportRequest{Dependencies: []string{"serde"}, OutputPath: "deps.csv", Format: "csv"}, req.Export)
}

func TestConfigCommand(t *testing.T) {
	runner := &fakeRunner{}
	code, _, _ := run(t, runner, "config")
	require.Equal(t, exitOK, code)
	assert.Equal(t, app.ModeConfig, runner.last(t).Mode)
	assert.Equal(t, config.DefaultFileName, runner.last(t).Config.OutputPath)

	code, _, _ = run(t, runner, "config", "--output", "conf/why.toml")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "conf/why.toml", runner.last(t).Config.OutputPath)
}

func TestTUIFlags(t *testing.T) {
	runner := &fakeRunner{}
	code, _, errOut := run(t, runner, "tui", "--snapshot", "-", "--page-size", "5", "--sort", "usage", "--filter", "ser")
	require.Equal(t, exitOK, code, errOut)

	req := runner.last(t)
	assert.Equal(t, app.ModeTUI, req.Mode)
	assert.Equal(t, app.TUIRequest{SnapshotPath: "-", Filter: "ser"}, req.TUI)
	require.NotNil(t, req.Flags.TUI.PageSize)
	assert.Equal(t, 5, *req.Flags.TUI.PageSize)
	require.NotNil(t, req.Flags.TUI.Sort)
	assert.Equal(t, "usage", *req.Flags.TUI.Sort)

	code, _, _ = run(t, runner, "tui")
	require.Equal(t, exitOK, code)
	assert.Nil(t, runner.last(t).Flags.TUI.PageSize)
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown command", args: []string{"nope"}, want: "unknown command"},
		{name: "unknown flag", args: []string{"analyze", "--bogus"}, want: "unknown flag"},
		{name: "bad format", args: []string{"analyze", "--format", "xml"}, want: "unknown format"},
		{name: "bad workers", args: []string{"analyze", "--workers", "-1"}, want: "invalid analysis.workers"},
		{name: "export without output", args: []string{"export"}, want: `required flag(s) "output" not set`},
		{name: "export table", args: []string{"export", "--output", "x", "--format", "table"}, want: "export supports json and csv"},
		{name: "bad sort", args: []string{"tui", "--sort", "size"}, want: "invalid tui.sort"},
		{name: "bad page size", args: []string{"tui", "--page-size", "0"}, want: "invalid tui.page_size"},
		{name: "bad log level", args: []string{"--log-level", "loud", "analyze"}, want: "invalid --log-level"},
		{name: "stray args", args: []string{"config", "extra"}, want: "unknown command"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{}
			code, out, errOut := run(t, runner, tc.args...)
			assert.Equal(t, exitUsage, code)
			assert.Contains(t, errOut, "error: ")
			assert.Contains(t, errOut, tc.want)
			assert.Contains(t, errOut, "Usage:")
			assert.Empty(t, out)
			assert.Empty(t, runner.calls)
		})
	}
}

func TestRuntimeErrorExitCode(t *testing.T) {
	runner := &fakeRunner{output: "partial", err: errors.New("analysis failed")}
	code, out, errOut := run(t, runner, "analyze")
	assert.Equal(t, exitRuntime, code)
	assert.Equal(t, "partial\n", out)
	assert.Equal(t, "analysis failed\n", errOut)
}

func TestHelp(t *testing.T) {
	code, out, errOut := run(t, &fakeRunner{}, "--help")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "analyze")
	assert.Empty(t, errOut)

	code, out, _ = run(t, &fakeRunner{}, "export", "--help")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "--output")
}

func TestLogLevelFlag(t *testing.T) {
	level := new(slog.LevelVar)
	cli := New(&fakeRunner{}, &bytes.Buffer{}, &bytes.Buffer{})
	cli.Level = level

	require.Equal(t, exitOK, cli.Run(context.Background(), []string{"--log-level", "debug", "analyze"}))
	assert.Equal(t, slog.LevelDebug, level.Level())
	require.Equal(t, exitOK, cli.Run(context.Background(), []string{"analyze"}))
	assert.Equal(t, slog.LevelWarn, level.Level())
}

func TestParseLogLevel(t *testing.T) {
	for input, want := range map[string]slog.Level{"debug": slog.LevelDebug, " INFO ": slog.LevelInfo, "warning": slog.LevelWarn, "error": slog.LevelError} {
		got, err := parseLogLevel(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := parseLogLevel("trace")
	assert.Error(t, err)
}
