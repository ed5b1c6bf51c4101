package analysis

import "github.com/ben-ranford/why/internal/score"

type Request struct {
	RepoPath string
	Language string
	// Dependencies limits the reported profiles to these names. Every
	// declared dependency is still analyzed so references are attributed
	// correctly.
	Dependencies   []string
	IncludeDev     bool
	IncludeBuild   bool
	Workers        int
	Exclude        []string
	MaxFiles       int
	MaxFileBytes   int64
	FollowSymlinks bool
	Scoring        *score.Options
	Progress       ProgressFunc
}
