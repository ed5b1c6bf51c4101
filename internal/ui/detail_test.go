package ui

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/ben-ranford/why/internal/model"
)

func TestDetailShowsEvidence(t *testing.T) {
	var out bytes.Buffer
	if err := NewDetail(&out, sampleResult()).Show("serde"); err != nil {
		t.Fatalf("show detail: %v", err)
	}

	output := out.String()
	for _, want := range []string{
		"Dependency detail: serde",
		"Version: 1 | Kind: runtime | Optional: no",
		"References: 5 in 1 file(s), conditional: 0",
		"Importance: 0.60 | Removable: no | Conditional only: no",
		"Kinds: import=1, type=4",
		"Symbols (2)\n  - Deserialize\n  - Serialize",
		"  - src/lib.rs:9",
		"Predicates (0)\n  (none)",
		"Features used (1)\n  - derive",
		"Features unused (1)\n  - rc",
		"Warnings (1)\n  - src/lib.rs:1: wildcard import of serde::de",
	} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in detail output:\n%s", want, output)
		}
	}
	if strings.Contains(output, "src/broken.rs") {
		t.Fatalf("expected warnings from unrelated files to be hidden")
	}
}

func TestDetailConditionalProfile(t *testing.T) {
	var out bytes.Buffer
	if err := NewDetail(&out, sampleResult()).Show("proptest"); err != nil {
		t.Fatalf("show detail: %v", err)
	}
	output := out.String()
	if !strings.Contains(output, "Kind: dev") || !strings.Contains(output, "Conditional only: yes") {
		t.Fatalf("expected conditional dev profile, got:\n%s", output)
	}
	if !strings.Contains(output, "Predicates (1)\n  - test") {
		t.Fatalf("expected predicate list, got:\n%s", output)
	}
}

func TestDetailTruncatesLocations(t *testing.T) {
	result := sampleResult()
	for i := range result.Profiles {
		if result.Profiles[i].Name() != "anyhow" {
			continue
		}
		for line := 1; line <= maxDetailLocations+3; line++ {
			result.Profiles[i].Locations = append(result.Profiles[i].Locations, model.Location{File: "src/main.rs", Line: line})
		}
	}

	var out bytes.Buffer
	if err := NewDetail(&out, result).Show("anyhow"); err != nil {
		t.Fatalf("show detail: %v", err)
	}
	output := out.String()
	if !strings.Contains(output, fmt.Sprintf("Locations (%d)", maxDetailLocations+3)) || !strings.Contains(output, "... 3 more") {
		t.Fatalf("expected truncated locations, got:\n%s", output)
	}
	if strings.Contains(output, fmt.Sprintf("src/main.rs:%d\n", maxDetailLocations+1)) {
		t.Fatalf("expected locations past the limit to be hidden")
	}
}

func TestDetailCommandParsing(t *testing.T) {
	if dep, ok := isDetailCommand("open serde"); !ok || dep != "serde" {
		t.Fatalf("expected open command to parse, got %q %v", dep, ok)
	}
	if dep, ok := isDetailCommand("detail @scope/pkg"); !ok || dep != "@scope/pkg" {
		t.Fatalf("expected detail alias to parse, got %q %v", dep, ok)
	}
	if _, ok := isDetailCommand("open"); ok {
		t.Fatalf("expected open without dependency to be rejected")
	}
	if err := NewDetail(&bytes.Buffer{}, sampleResult()).Show(""); err == nil {
		t.Fatalf("expected empty dependency name to fail")
	}
}
