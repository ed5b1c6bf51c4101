package ui

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/ben-ranford/why/internal/analysis"
	"github.com/ben-ranford/why/internal/model"
)

const maxDetailLocations = 10

type Detail struct {
	Out    io.Writer
	Result *analysis.Result
}

func NewDetail(out io.Writer, result *analysis.Result) *Detail {
	return &Detail{Out: out, Result: result}
}

func (d *Detail) Show(dependency string) error {
	if dependency == "" {
		return fmt.Errorf("dependency name is required")
	}
	profile, ok := d.Result.Profile(dependency)
	if !ok {
		_, err := fmt.Fprintf(d.Out, "No data for dependency %q\n", dependency)
		return err
	}

	var b strings.Builder
	dep := profile.Dependency
	fmt.Fprintf(&b, "Dependency detail: %s\n", dep.Name)
	fmt.Fprintf(&b, "Version: %s | Kind: %s | Optional: %s\n", orNone(dep.Version), dep.Kind, yesNo(dep.Optional))
	fmt.Fprintf(&b, "References: %d in %d file(s), conditional: %d\n", profile.ReferenceCount, profile.FileCount(), profile.ConditionalCount)
	fmt.Fprintf(&b, "Importance: %.2f | Removable: %s | Conditional only: %s\n", profile.ImportanceScore, yesNo(profile.Removable), yesNo(profile.ConditionalOnly()))
	if len(profile.KindCounts) > 0 {
		kinds := slices.Sorted(maps.Keys(profile.KindCounts))
		parts := make([]string, 0, len(kinds))
		for _, kind := range kinds {
			parts = append(parts, fmt.Sprintf("%s=%d", kind, profile.KindCounts[kind]))
		}
		fmt.Fprintf(&b, "Kinds: %s\n", strings.Join(parts, ", "))
	}
	b.WriteString("\n")

	printList(&b, "Symbols", profile.Symbols)
	printList(&b, "Files", profile.Files)
	printLocations(&b, profile.Locations)
	printList(&b, "Predicates", profile.Conditions)
	printList(&b, "Features used", profile.UsedFlags)
	printList(&b, "Features unused", profile.UnusedFlags)
	printList(&b, "Warnings", relevantWarnings(d.Result.Warnings, profile.Files))

	_, err := io.WriteString(d.Out, b.String())
	return err
}

func printList(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "%s (%d)\n", title, len(items))
	if len(items) == 0 {
		b.WriteString("  (none)\n\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
	b.WriteString("\n")
}

func printLocations(b *strings.Builder, locations []model.Location) {
	fmt.Fprintf(b, "Locations (%d)\n", len(locations))
	if len(locations) == 0 {
		b.WriteString("  (none)\n\n")
		return
	}
	for i, location := range locations {
		if i == maxDetailLocations {
			fmt.Fprintf(b, "  ... %d more\n", len(locations)-maxDetailLocations)
			break
		}
		fmt.Fprintf(b, "  - %s:%d\n", location.File, location.Line)
	}
	b.WriteString("\n")
}

func relevantWarnings(warnings []model.Warning, files []string) []string {
	var out []string
	for _, warning := range warnings {
		if slices.Contains(files, warning.File) {
			out = append(out, warning.String())
		}
	}
	return out
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func orNone(value string) string {
	if value == "" {
		return "(none)"
	}
	return value
}

func isDetailCommand(input string) (string, bool) {
	fields := strings.Fields(input)
	if len(fields) < 2 {
		return "", false
	}
	if fields[0] != "open" && fields[0] != "detail" {
		return "", false
	}
	return fields[1], true
}
