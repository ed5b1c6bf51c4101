package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/ben-ranford/why/internal/app"
	"github.com/ben-ranford/why/internal/cli"
)

var exitFunc = os.Exit

func run(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	runner := app.New(out, errOut, in, logger)
	commandLine := cli.New(runner, out, errOut)
	commandLine.Level = level
	return commandLine.Run(context.Background(), args)
}

func main() {
	exitFunc(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
