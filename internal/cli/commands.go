package cli

import (
	"github.com/spf13/cobra"

	"github.com/ben-ranford/why/internal/app"
	"github.com/ben-ranford/why/internal/config"
	"github.com/ben-ranford/why/internal/report"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func (c *CLI) newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "why",
		Short: "Explain how much each declared dependency is actually used",
		Long: `why maps the imports of a Rust or JavaScript/TypeScript project back to the
dependencies declared in Cargo.toml or package.json, scores how important
each one is and flags the ones that can be removed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			level, err := parseLogLevel(opts.logLevel)
			if err != nil {
				return err
			}
			if c.Level != nil {
				c.Level.Set(level)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: .why.toml, .why.yml or .why.yaml in the repository)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(
		c.newAnalyzeCommand(opts),
		c.newExportCommand(opts),
		c.newConfigCommand(),
		c.newTUICommand(opts),
	)
	return root
}

func (o *rootOptions) request(mode app.Mode, repoPath string) app.Request {
	req := app.DefaultRequest()
	req.Mode = mode
	req.RepoPath = repoPath
	req.ConfigPath = o.configPath
	return req
}

// validateFlags checks command-line settings on their own so bad values are
// reported as usage errors.
func validateFlags(overrides config.Overrides) error {
	values := overrides.Apply(config.Defaults())
	return values.Validate()
}

type analyzeOptions struct {
	path         string
	dependencies []string
	language     string
	format       string
	workers      int
	enable       []string
	progress     bool
}

func (c *CLI) newAnalyzeCommand(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:     "analyze [dependency...]",
		Aliases: []string{"analyse"},
		Short:   "Analyze dependency usage",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			req := root.request(app.ModeAnalyse, opts.path)
			req.Analyse.Dependencies = append(append([]string{}, opts.dependencies...), args...)
			req.Analyse.Format = format
			req.Analyse.Progress = opts.progress
			opts.applyFlags(cmd, &req.Flags)
			if err := validateFlags(req.Flags); err != nil {
				return err
			}
			return c.execute(cmd.Context(), req)
		},
	}
	cmd.Flags().StringVarP(&opts.path, "path", "p", ".", "repository path")
	cmd.Flags().StringSliceVarP(&opts.dependencies, "dep", "d", nil, "only report these dependencies (repeatable)")
	cmd.Flags().StringVarP(&opts.language, "language", "l", config.DefaultLanguage, "language adapter: auto, rust or js-ts")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(report.FormatTable), "output format: table, json or csv")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "parallel workers (0 uses one per CPU)")
	cmd.Flags().StringArrayVarP(&opts.enable, "enable", "e", nil, "predicates treated as enabled, e.g. test or feature=\"std\" (repeatable)")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "show a progress bar on stderr")
	return cmd
}

// applyFlags copies only the flags given on the command line, so unset
// flags leave the config file in charge.
func (o *analyzeOptions) applyFlags(cmd *cobra.Command, overrides *config.Overrides) {
	if cmd.Flags().Changed("language") {
		overrides.General.Language = &o.language
	}
	if cmd.Flags().Changed("workers") {
		overrides.Analysis.Workers = &o.workers
	}
	if cmd.Flags().Changed("enable") {
		enabled := append([]string{}, o.enable...)
		overrides.Analysis.EnabledConfigurations = &enabled
	}
}

type exportOptions struct {
	path         string
	output       string
	format       string
	dependencies []string
}

func (c *CLI) newExportCommand(root *rootOptions) *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write dependency records as JSON or CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.format != "" {
				if _, err := report.ParseExportFormat(opts.format); err != nil {
					return err
				}
			}
			req := root.request(app.ModeExport, opts.path)
			req.Export = app.ExportRequest{
				Dependencies: opts.dependencies,
				OutputPath:   opts.output,
				Format:       opts.format,
			}
			return c.execute(cmd.Context(), req)
		},
	}
	cmd.Flags().StringVarP(&opts.path, "path", "p", ".", "repository path")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file, relative to export.output_dir unless absolute")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "export format: json or csv (default: export.default_format)")
	cmd.Flags().StringSliceVarP(&opts.dependencies, "dep", "d", nil, "only export these dependencies (repeatable)")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func (c *CLI) newConfigCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write a default " + config.DefaultFileName,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := app.DefaultRequest()
			req.Mode = app.ModeConfig
			req.Config.OutputPath = output
			return c.execute(cmd.Context(), req)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", config.DefaultFileName, "where to write the config file")
	return cmd
}

type tuiOptions struct {
	path     string
	snapshot string
	pageSize int
	sort     string
	filter   string
}

func (c *CLI) newTUICommand(root *rootOptions) *cobra.Command {
	opts := &tuiOptions{}
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse dependency usage interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := root.request(app.ModeTUI, opts.path)
			req.TUI = app.TUIRequest{SnapshotPath: opts.snapshot, Filter: opts.filter}
			if cmd.Flags().Changed("page-size") {
				req.Flags.TUI.PageSize = &opts.pageSize
			}
			if cmd.Flags().Changed("sort") {
				req.Flags.TUI.Sort = &opts.sort
			}
			if err := validateFlags(req.Flags); err != nil {
				return err
			}
			return c.execute(cmd.Context(), req)
		},
	}
	cmd.Flags().StringVarP(&opts.path, "path", "p", ".", "repository path")
	cmd.Flags().StringVar(&opts.snapshot, "snapshot", "", "write a non-interactive snapshot to this file (- for stdout)")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", config.DefaultPageSize, "rows per page")
	cmd.Flags().StringVar(&opts.sort, "sort", config.DefaultSort, "sort order: importance, name or usage")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "initial filter on name or kind")
	return cmd
}
