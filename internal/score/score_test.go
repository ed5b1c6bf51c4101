package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ben-ranford/why/internal/model"
)

func sealed(dep model.DeclaredDependency, refs int, files []string, symbols []string) model.Profile {
	return model.Profile{
		Dependency:     dep,
		ReferenceCount: refs,
		Files:          files,
		Symbols:        symbols,
		KindCounts:     map[model.RefKind]int{model.RefCall: refs},
		Sealed:         true,
	}
}

func TestZeroUsageIsRemovableWithZeroScore(t *testing.T) {
	s := New(DefaultOptions())
	profile, err := s.Score(sealed(model.DeclaredDependency{Name: "unused_dep", Kind: model.KindRuntime, Features: []string{"std"}}, 0, nil, nil), 10)
	require.NoError(t, err)

	assert.True(t, profile.Scored)
	assert.True(t, profile.Removable)
	assert.Zero(t, profile.ImportanceScore)
	assert.False(t, profile.LowImportance)
	assert.Equal(t, []string{"std"}, profile.UnusedFlags)
}

func TestImportanceCombinesBreadthAndDepth(t *testing.T) {
	s := New(DefaultOptions())
	profile, err := s.Score(sealed(model.DeclaredDependency{Name: "serde"}, 6, []string{"a", "b", "c", "d", "e"}, []string{"Deserialize", "Serialize"}), 10)
	require.NoError(t, err)

	// 0.6*5/10 + 0.4*2/10
	assert.InDelta(t, 0.38, profile.ImportanceScore, 1e-9)
	assert.False(t, profile.Removable)
	assert.False(t, profile.LowImportance)
}

func TestSymbolCapAndRounding(t *testing.T) {
	opts := DefaultOptions()
	opts.SymbolCap = 3
	s := New(opts)
	profile, err := s.Score(sealed(model.DeclaredDependency{Name: "tokio"}, 9, []string{"a"}, []string{"a", "b", "c", "d", "e"}), 3)
	require.NoError(t, err)

	// 0.6/3 + 0.4 = 0.6
	assert.InDelta(t, 0.6, profile.ImportanceScore, 1e-9)

	profile, err = s.Score(sealed(model.DeclaredDependency{Name: "log"}, 1, []string{"a"}, nil), 7)
	require.NoError(t, err)
	assert.Equal(t, 0.0857, profile.ImportanceScore)
	assert.True(t, profile.LowImportance)
	assert.False(t, profile.Removable, "low importance never implies removable")
}

func TestConditionalOnlyScoresLower(t *testing.T) {
	s := New(DefaultOptions())
	dep := model.DeclaredDependency{Name: "metrics", Kind: model.KindRuntime}

	plain, err := s.Score(sealed(dep, 2, []string{"a", "b"}, []string{"counter"}), 4)
	require.NoError(t, err)

	gated := sealed(dep, 2, []string{"a", "b"}, []string{"counter"})
	gated.ConditionalCount = 2
	gated.Conditions = []string{`feature = "metrics"`}
	conditional, err := s.Score(gated, 4)
	require.NoError(t, err)

	assert.Less(t, conditional.ImportanceScore, plain.ImportanceScore)
	assert.InDelta(t, plain.ImportanceScore*DefaultConditionalPenalty, conditional.ImportanceScore, 1e-4)
	assert.False(t, conditional.Removable, "runtime dependencies are never removable while used")
}

func TestDevDependencyRemovableUnlessConditionEnabled(t *testing.T) {
	dep := model.DeclaredDependency{Name: "criterion", Kind: model.KindDev}
	profile := sealed(dep, 3, []string{"benches/a.rs"}, []string{"Criterion"})
	profile.ConditionalCount = 3
	profile.Conditions = []string{"bench"}

	scored, err := New(DefaultOptions()).Score(profile, 10)
	require.NoError(t, err)
	assert.True(t, scored.Removable)

	opts := DefaultOptions()
	opts.EnabledConditions = []string{"bench"}
	scored, err = New(opts).Score(profile, 10)
	require.NoError(t, err)
	assert.False(t, scored.Removable)
}

func TestScoreContractViolations(t *testing.T) {
	s := New(DefaultOptions())
	_, err := s.Score(model.Profile{Dependency: model.DeclaredDependency{Name: "serde"}}, 1)
	require.ErrorIs(t, err, model.ErrContractViolation)

	scored, err := s.Score(sealed(model.DeclaredDependency{Name: "serde"}, 1, []string{"a"}, nil), 1)
	require.NoError(t, err)
	_, err = s.Score(scored, 1)
	require.ErrorIs(t, err, model.ErrContractViolation)
}

func TestFlagEvidence(t *testing.T) {
	dep := model.DeclaredDependency{Name: "tokio", Features: []string{"fs", "macros", "process", "rt-multi-thread"}}
	profile := sealed(dep, 3, []string{"a"}, []string{"fs::read", "main", "runtime::Builder"})
	profile.KindCounts[model.RefMacro] = 1

	scored, err := New(DefaultOptions()).Score(profile, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"fs", "macros"}, scored.UsedFlags)
	assert.Equal(t, []string{"process", "rt-multi-thread"}, scored.UnusedFlags)
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())

	opts := DefaultOptions()
	opts.Weights = Weights{}
	require.Error(t, opts.Validate())

	opts = DefaultOptions()
	opts.SymbolCap = 0
	require.Error(t, opts.Validate())

	opts = DefaultOptions()
	opts.ConditionalPenalty = 1.5
	require.Error(t, opts.Validate())
}
