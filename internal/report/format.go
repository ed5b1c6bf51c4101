package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

const featureSeparator = ";"

var csvHeader = []string{"name", "version", "usage_count", "importance_score", "removable", "used_features", "unused_features"}

type Formatter struct {
	Color bool
}

func NewFormatter() Formatter {
	return Formatter{}
}

func (f Formatter) Format(doc Document, format Format) (string, error) {
	switch format {
	case FormatTable:
		return f.formatTable(doc), nil
	case FormatJSON:
		payload, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", err
		}
		return string(payload) + "\n", nil
	case FormatCSV:
		return formatCSV(doc.Dependencies)
	default:
		return "", ErrUnknownFormat
	}
}

func (f Formatter) formatTable(doc Document) string {
	var buffer bytes.Buffer
	_, _ = fmt.Fprintf(&buffer, "Language: %s, files analyzed: %d, skipped: %d\n\n", doc.Language, doc.FileCount, len(doc.SkippedFiles))
	if len(doc.Dependencies) == 0 {
		buffer.WriteString("No dependencies to report.\n")
		appendWarnings(&buffer, doc)
		return buffer.String()
	}

	highlight := color.New(color.FgYellow, color.Bold)
	if f.Color {
		highlight.EnableColor()
	} else {
		highlight.DisableColor()
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Dependency", "Version", "Usage", "Importance", "Removable", "Used Features", "Unused Features"})
	removable := 0
	for _, dep := range doc.Dependencies {
		name := dep.Name
		verdict := "no"
		if dep.Removable {
			removable++
			name = highlight.Sprint(dep.Name)
			verdict = highlight.Sprint("yes")
		}
		tbl.AppendRow(table.Row{
			name,
			dep.Version,
			dep.UsageCount,
			fmt.Sprintf("%.2f", dep.ImportanceScore),
			verdict,
			joinOrDash(dep.UsedFeatures),
			joinOrDash(dep.UnusedFeatures),
		})
	}
	buffer.WriteString(tbl.Render())
	_, _ = fmt.Fprintf(&buffer, "\n%d deps, %d removable\n", len(doc.Dependencies), removable)

	appendUnmatched(&buffer, doc.Unmatched)
	appendWarnings(&buffer, doc)
	return buffer.String()
}

func appendUnmatched(buffer *bytes.Buffer, unmatched []Unmatched) {
	if len(unmatched) == 0 {
		return
	}
	buffer.WriteString("\nUndeclared roots:\n")
	for _, root := range unmatched {
		_, _ = fmt.Fprintf(buffer, "- %s (%d references)\n", root.Root, root.Count)
	}
}

func appendWarnings(buffer *bytes.Buffer, doc Document) {
	if len(doc.Warnings) == 0 {
		return
	}
	buffer.WriteString("\nWarnings:\n")
	for _, warning := range doc.Warnings {
		buffer.WriteString("- ")
		switch {
		case warning.File != "" && warning.Line > 0:
			_, _ = fmt.Fprintf(buffer, "%s:%d: ", warning.File, warning.Line)
		case warning.File != "":
			_, _ = fmt.Fprintf(buffer, "%s: ", warning.File)
		}
		buffer.WriteString(warning.Message)
		buffer.WriteString("\n")
	}
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

func formatCSV(dependencies []Dependency) (string, error) {
	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)
	if err := writer.Write(csvHeader); err != nil {
		return "", err
	}
	for _, dep := range dependencies {
		record := []string{
			dep.Name,
			dep.Version,
			strconv.Itoa(dep.UsageCount),
			strconv.FormatFloat(dep.ImportanceScore, 'f', -1, 64),
			strconv.FormatBool(dep.Removable),
			strings.Join(dep.UsedFeatures, featureSeparator),
			strings.Join(dep.UnusedFeatures, featureSeparator),
		}
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return buffer.String(), nil
}
