package report

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ben-ranford/why/internal/safeio"
)

//go:embed schema.json
var documentSchema []byte

var ErrSchemaMismatch = errors.New("report does not match schema")

// Load reads an exported report. CSV files carry only dependency records, so
// the returned document has no metadata.
func Load(path string) (Document, error) {
	data, err := safeio.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read report %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		deps, err := parseCSV(data)
		if err != nil {
			return Document{}, fmt.Errorf("parse report %s: %w", path, err)
		}
		return Document{Dependencies: deps}, nil
	}
	doc, err := Decode(data)
	if err != nil {
		return Document{}, fmt.Errorf("parse report %s: %w", path, err)
	}
	return doc, nil
}

// Decode validates data against the embedded schema and decodes it.
func Decode(data []byte) (Document, error) {
	if err := Validate(data); err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func Validate(data []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(documentSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate report: %w", err)
	}
	if result.Valid() {
		return nil
	}
	messages := make([]string, 0, len(result.Errors()))
	for _, item := range result.Errors() {
		messages = append(messages, item.String())
	}
	slices.Sort(messages)
	return fmt.Errorf("%w: %s", ErrSchemaMismatch, strings.Join(messages, "; "))
}

func parseCSV(data []byte) ([]Dependency, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = len(csvHeader)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || !slices.Equal(records[0], csvHeader) {
		return nil, fmt.Errorf("unexpected header, want %s", strings.Join(csvHeader, ","))
	}

	deps := make([]Dependency, 0, len(records)-1)
	for i, record := range records[1:] {
		dep, err := parseCSVRecord(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

func parseCSVRecord(record []string) (Dependency, error) {
	usage, err := strconv.Atoi(record[2])
	if err != nil {
		return Dependency{}, fmt.Errorf("invalid usage_count %q", record[2])
	}
	score, err := strconv.ParseFloat(record[3], 64)
	if err != nil {
		return Dependency{}, fmt.Errorf("invalid importance_score %q", record[3])
	}
	removable, err := strconv.ParseBool(record[4])
	if err != nil {
		return Dependency{}, fmt.Errorf("invalid removable %q", record[4])
	}
	return Dependency{
		Name:            record[0],
		Version:         record[1],
		UsageCount:      usage,
		ImportanceScore: score,
		Removable:       removable,
		UsedFeatures:    splitFeatures(record[5]),
		UnusedFeatures:  splitFeatures(record[6]),
	}, nil
}

func splitFeatures(value string) []string {
	if value == "" {
		return []string{}
	}
	return strings.Split(value, featureSeparator)
}
