package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ben-ranford/why/internal/app"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
)

type Runner interface {
	Execute(ctx context.Context, req app.Request) (string, error)
}

type CLI struct {
	Runner Runner
	Out    io.Writer
	Err    io.Writer
	// Level is adjusted by --log-level. It may be nil.
	Level *slog.LevelVar
}

func New(runner Runner, out io.Writer, errOut io.Writer) *CLI {
	return &CLI{
		Runner: runner,
		Out:    out,
		Err:    errOut,
	}
}

// runtimeError marks failures of the runner itself. Every other error comes
// from the command line and is reported with usage text.
type runtimeError struct {
	err error
}

func (e runtimeError) Error() string { return e.err.Error() }

func (e runtimeError) Unwrap() error { return e.err }

func (c *CLI) Run(ctx context.Context, args []string) int {
	if args == nil {
		args = []string{}
	}
	root := c.newRootCommand()
	root.SetArgs(args)
	root.SetOut(c.Out)
	root.SetErr(c.Err)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return exitOK
	}
	var failure runtimeError
	if errors.As(err, &failure) {
		fmt.Fprintln(c.Err, failure.Error())
		return exitRuntime
	}
	if cmd == nil {
		cmd = root
	}
	fmt.Fprintf(c.Err, "error: %v\n\n", err)
	fmt.Fprint(c.Err, cmd.UsageString())
	return exitUsage
}

func (c *CLI) execute(ctx context.Context, req app.Request) error {
	output, err := c.Runner.Execute(ctx, req)
	if output != "" {
		fmt.Fprint(c.Out, output)
		if !strings.HasSuffix(output, "\n") {
			fmt.Fprintln(c.Out)
		}
	}
	if err != nil {
		return runtimeError{err: err}
	}
	return nil
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid --log-level %q (must be one of: debug, info, warn, error)", value)
	}
}
