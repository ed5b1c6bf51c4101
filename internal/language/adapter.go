package language

import (
	"context"

	"github.com/ben-ranford/why/internal/extract"
	"github.com/ben-ranford/why/internal/model"
	"github.com/ben-ranford/why/internal/resolve"
	"github.com/ben-ranford/why/internal/syntax"
)

const Auto = "auto"

type Detection struct {
	Matched    bool
	Confidence int
	Roots      []string
}

// Manifest is what an adapter reads from a project's declaration files.
type Manifest struct {
	// Package is the project's own package name, when it has one.
	Package string
	// Internal lists names the project provides itself, such as workspace
	// members and local path dependencies.
	Internal     []string
	Dependencies []model.DeclaredDependency
	Warnings     []model.Warning
}

// Adapter binds one ecosystem's parser, naming conventions and manifest format
// to the language-neutral engine.
type Adapter interface {
	ID() string
	Aliases() []string
	Detect(ctx context.Context, repoPath string) (bool, error)
	Extensions() []string
	Parser() syntax.Parser
	Conventions() resolve.Conventions
	ExtractOptions() extract.Options
	LoadManifest(ctx context.Context, repoPath string) (Manifest, error)
}

type ConfidenceDetector interface {
	DetectWithConfidence(ctx context.Context, repoPath string) (Detection, error)
}
