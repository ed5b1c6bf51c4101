package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ben-ranford/why/internal/analysis"
	"github.com/ben-ranford/why/internal/model"
	"github.com/ben-ranford/why/internal/report"
)

type Summary struct {
	Analyzer  analysis.Analyzer
	Formatter report.Formatter
	Out       io.Writer
	In        io.Reader
	PageSize  int
}

func NewSummary(out io.Writer, in io.Reader, analyzer analysis.Analyzer, formatter report.Formatter) *Summary {
	return &Summary{
		Analyzer:  analyzer,
		Formatter: formatter,
		Out:       out,
		In:        in,
		PageSize:  10,
	}
}

func (s *Summary) Start(ctx context.Context, opts Options) error {
	opts = s.applyDefaults(opts)

	result, err := s.Analyzer.Analyse(ctx, opts.Request)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(s.In)
	state := buildSummaryState(opts)
	refreshInPlace := supportsScreenRefresh(s.Out)
	for {
		if refreshInPlace {
			if err := clearSummaryScreen(s.Out); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprint(s.Out, s.renderSummary(result, opts.Request.RepoPath, state)); err != nil {
			return err
		}

		input, err := readSummaryInput(reader)
		if err != nil {
			return err
		}
		quit, err := s.handleSummaryInput(result, &state, input)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

func readSummaryInput(reader *bufio.Reader) (string, error) {
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func (s *Summary) handleSummaryInput(result *analysis.Result, state *summaryState, input string) (bool, error) {
	if input == "" || input == "refresh" {
		return false, nil
	}
	if input == "q" || input == "quit" {
		return true, nil
	}
	if dependency, ok := isDetailCommand(input); ok {
		return false, NewDetail(s.Out, result).Show(dependency)
	}
	if !applySummaryCommand(state, input) {
		if _, err := fmt.Fprintln(s.Out, "Unknown command. Type 'help' for options."); err != nil {
			return false, err
		}
	}
	return false, nil
}

type sortMode string

const (
	sortByImportance sortMode = "importance"
	sortByName       sortMode = "name"
	sortByUsage      sortMode = "usage"
)

var sortCycle = []sortMode{sortByImportance, sortByName, sortByUsage}

type summaryState struct {
	filter        string
	sortMode      sortMode
	removableOnly bool
	page          int
	pageSize      int
	showHelp      bool
	color         bool
}

func applySummaryCommand(state *summaryState, input string) bool {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return true
	}

	switch fields[0] {
	case "help", "h", "?":
		state.showHelp = true
		return true
	case "filter":
		state.filter = strings.Join(fields[1:], " ")
		state.page = 1
		return true
	case "removable", "r":
		state.removableOnly = !state.removableOnly
		state.page = 1
		return true
	case "sort":
		if len(fields) < 2 {
			return false
		}
		mode, ok := parseSortModeStrict(fields[1])
		if !ok {
			return false
		}
		setSortMode(state, mode)
		return true
	case "page":
		return handleNumberCommand(fields, func(page int) { state.page = page })
	case "size":
		return handleNumberCommand(fields, func(size int) {
			state.pageSize = size
			state.page = 1
		})
	case "next", "n":
		state.page++
		return true
	case "prev", "p":
		state.page--
		return true
	case "s":
		setSortMode(state, toggleSortMode(state.sortMode))
		return true
	case "i":
		setSortMode(state, sortByImportance)
		return true
	case "a":
		setSortMode(state, sortByName)
		return true
	case "u":
		setSortMode(state, sortByUsage)
		return true
	default:
		return false
	}
}

func handleNumberCommand(fields []string, apply func(int)) bool {
	if len(fields) < 2 {
		return false
	}
	value, err := parsePositiveInt(fields[1])
	if err != nil {
		return false
	}
	apply(value)
	return true
}

func setSortMode(state *summaryState, mode sortMode) {
	state.sortMode = mode
	state.page = 1
}

func supportsScreenRefresh(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func clearSummaryScreen(out io.Writer) error {
	_, err := fmt.Fprint(out, "\033[H\033[2J")
	return err
}

func summaryHelpText() string {
	return "Commands:\n" +
		"  filter <text>               Filter dependencies by name or kind\n" +
		"  removable | r               Toggle removable-only view\n" +
		"  sort importance|name|usage  Change sort order\n" +
		"  s                           Cycle sort mode\n" +
		"  i | a | u                   Sort by importance, name or usage\n" +
		"  page <n>                    Jump to page number\n" +
		"  next | prev                 Page navigation\n" +
		"  n | p                       Page shortcuts\n" +
		"  size <n>                    Change page size\n" +
		"  open <dependency>           Show dependency detail\n" +
		"  refresh                     Re-render the current view\n" +
		"  q                           Quit\n\n"
}

func parsePositiveInt(value string) (int, error) {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("invalid number")
	}
	return parsed, nil
}

func filterProfiles(profiles []model.Profile, filter string, removableOnly bool) []model.Profile {
	filter = strings.ToLower(filter)
	filtered := make([]model.Profile, 0, len(profiles))
	for _, profile := range profiles {
		if removableOnly && !profile.Removable {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(profile.Name()+" "+string(profile.Dependency.Kind)), filter) {
			continue
		}
		filtered = append(filtered, profile)
	}
	return filtered
}

func sortProfiles(profiles []model.Profile, mode sortMode) []model.Profile {
	sorted := slices.Clone(profiles)
	byName := func(a, b model.Profile) int { return strings.Compare(a.Name(), b.Name()) }
	switch mode {
	case sortByName:
		slices.SortStableFunc(sorted, byName)
	case sortByUsage:
		slices.SortStableFunc(sorted, func(a, b model.Profile) int {
			if a.ReferenceCount != b.ReferenceCount {
				return b.ReferenceCount - a.ReferenceCount
			}
			return byName(a, b)
		})
	default:
		slices.SortStableFunc(sorted, func(a, b model.Profile) int {
			switch {
			case a.ImportanceScore > b.ImportanceScore:
				return -1
			case a.ImportanceScore < b.ImportanceScore:
				return 1
			default:
				return byName(a, b)
			}
		})
	}
	return sorted
}

func pageCount(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

func paginateProfiles(profiles []model.Profile, page int, pageSize int) []model.Profile {
	if pageSize <= 0 {
		return profiles
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(profiles) {
		return nil
	}
	end := min(start+pageSize, len(profiles))
	return profiles[start:end]
}

func (s *Summary) Snapshot(ctx context.Context, opts Options, outputPath string) error {
	if outputPath == "" {
		return fmt.Errorf("snapshot output path is required")
	}
	opts = s.applyDefaults(opts)

	result, err := s.Analyzer.Analyse(ctx, opts.Request)
	if err != nil {
		return err
	}
	state := buildSummaryState(opts)
	if outputPath != "-" {
		state.color = false
	}
	output := s.renderSummary(result, opts.Request.RepoPath, state)

	if outputPath == "-" {
		writer := s.Out
		if writer == nil {
			writer = os.Stdout
		}
		_, err := io.WriteString(writer, output)
		return err
	}

	if err := os.WriteFile(outputPath, []byte(output), 0o600); err != nil {
		return err
	}
	if s.Out != nil {
		fmt.Fprintf(s.Out, "Snapshot written to %s\n", outputPath)
	}
	return nil
}

func (s *Summary) applyDefaults(opts Options) Options {
	if opts.Request.RepoPath == "" {
		opts.Request.RepoPath = "."
	}
	if opts.PageSize <= 0 {
		opts.PageSize = s.PageSize
	}
	if opts.Sort == "" {
		opts.Sort = string(sortByImportance)
	}
	return opts
}

func buildSummaryState(opts Options) summaryState {
	return summaryState{
		filter:   opts.Filter,
		sortMode: parseSortMode(opts.Sort),
		page:     1,
		pageSize: opts.PageSize,
		color:    opts.Color,
	}
}

func parseSortMode(value string) sortMode {
	mode, ok := parseSortModeStrict(value)
	if !ok {
		return sortByImportance
	}
	return mode
}

func parseSortModeStrict(value string) (sortMode, bool) {
	mode := sortMode(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(sortCycle, mode) {
		return mode, true
	}
	return sortByImportance, false
}

func toggleSortMode(mode sortMode) sortMode {
	index := slices.Index(sortCycle, mode)
	return sortCycle[(index+1)%len(sortCycle)]
}

func runSummaryPipeline(result *analysis.Result, state summaryState) ([]model.Profile, []model.Profile, summaryState, int) {
	filtered := filterProfiles(result.Profiles, state.filter, state.removableOnly)
	sorted := sortProfiles(filtered, state.sortMode)
	totalPages := pageCount(len(sorted), state.pageSize)
	state.page = min(max(state.page, 1), totalPages)
	paged := paginateProfiles(sorted, state.page, state.pageSize)
	return sorted, paged, state, totalPages
}

func (s *Summary) renderSummary(result *analysis.Result, repoPath string, state summaryState) string {
	sorted, paged, state, totalPages := runSummaryPipeline(result, state)

	display := *result
	display.Profiles = paged
	display.Warnings = nil
	doc := report.Build(&display, repoPath, time.Time{})
	formatter := s.Formatter
	formatter.Color = state.color
	formatted, _ := formatter.Format(doc, report.FormatTable)

	var builder strings.Builder
	fmt.Fprintln(&builder, "why TUI (summary)")
	fmt.Fprintf(&builder, "Sort: %s | Page: %d/%d | Page size: %d | Total deps: %d\n", state.sortMode, state.page, totalPages, state.pageSize, len(sorted))
	switch {
	case state.filter == "" && !state.removableOnly:
		fmt.Fprintln(&builder, "Filter: (none)")
	case state.removableOnly:
		fmt.Fprintf(&builder, "Filter: %q (removable only)\n", state.filter)
	default:
		fmt.Fprintf(&builder, "Filter: %q\n", state.filter)
	}
	builder.WriteString(formatted)
	if len(result.Warnings) > 0 {
		fmt.Fprintf(&builder, "\n%d warning(s); open a dependency to see those in its files.\n", len(result.Warnings))
	}
	if state.showHelp {
		builder.WriteString("\n" + summaryHelpText())
	} else {
		builder.WriteString("\nCommands: help | open <dependency> | q\n")
	}
	return builder.String()
}
