package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func hardOnlyOverrides() *WeightOverrides {
	return &WeightOverrides{
		FinalScoreWeights: map[string]float64{KeySkillsScore: 1, KeyOverallSimilarity: 0},
		SkillScoreWeights: map[string]float64{
			KeyHardSkills:                1,
			KeySoftSkills:                0,
			KeyExtractedSkills:           0,
			KeySkillsEmbeddingSimilarity: 0,
		},
	}
}

func orderingPool() []*Candidate {
	return []*Candidate{
		{CandidateName: "A"},
		{CandidateName: "B", Skills: hardSkills("Python")},
		{CandidateName: "C", Skills: hardSkills("Python", "SQL")},
		{CandidateName: "D", Skills: hardSkills("python")},
	}
}

func names(results []MatchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.CandidateName)
	}
	return out
}

func TestRanker_EmptyCandidatesSkipsWork(t *testing.T) {
	renderer := &stubRenderer{}
	ranker := NewRanker(NewScorer(nil, constEmbedder{}, renderer, nil), nil)

	got := ranker.Rank(context.Background(), nil, nil, nil, DefaultFuzzyThreshold)

	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, renderer.jobCalls.Load())
}

func TestRanker_OrdersByScoreWithStableTies(t *testing.T) {
	renderer := &stubRenderer{}
	ranker := NewRanker(NewScorer(nil, constEmbedder{}, renderer, nil), nil)

	got := ranker.Rank(context.Background(), backendJob(), orderingPool(), hardOnlyOverrides(), 100)

	require.Len(t, got, 4)
	assert.Equal(t, []string{"C", "B", "D", "A"}, names(got))
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.InDelta(t, 0.5, got[1].Score, 1e-9)
	assert.InDelta(t, 0.5, got[2].Score, 1e-9)
	assert.Zero(t, got[3].Score)
	assert.Equal(t, WeightMap{KeyHardSkills: 1}, got[0].WeightsUsed.Skill)
	assert.EqualValues(t, 1, renderer.jobCalls.Load())
}

func TestRanker_IsIdempotent(t *testing.T) {
	ranker := NewRanker(NewScorer(nil, letterEmbedder{}, &stubRenderer{}, nil), nil)
	ctx := context.Background()

	first := ranker.Rank(ctx, backendJob(), orderingPool(), nil, DefaultFuzzyThreshold)
	second := ranker.Rank(ctx, backendJob(), orderingPool(), nil, DefaultFuzzyThreshold)

	assert.Equal(t, first, second)
}

func TestRanker_ConcurrentMatchesSequential(t *testing.T) {
	ctx := context.Background()
	scorer := NewScorer(nil, letterEmbedder{}, &stubRenderer{}, nil)

	sequential := NewRanker(scorer, nil).Rank(ctx, backendJob(), orderingPool(), nil, DefaultFuzzyThreshold)
	concurrent := NewRanker(scorer, nil, WithConcurrency(4)).Rank(ctx, backendJob(), orderingPool(), nil, DefaultFuzzyThreshold)

	assert.Equal(t, sequential, concurrent)
}

func TestRanker_FailSoftOnJobError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	renderer := &stubRenderer{jobErr: errors.New("template broken")}
	ranker := NewRanker(NewScorer(nil, constEmbedder{}, renderer, nil), zap.New(core))

	got := ranker.Rank(context.Background(), backendJob(), orderingPool(), nil, DefaultFuzzyThreshold)

	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 1, logs.FilterMessage("ranking failed; returning empty result").Len())
}

func TestRanker_StrictReturnsErrors(t *testing.T) {
	ctx := context.Background()
	renderErr := errors.New("template broken")

	ranker := NewRanker(NewScorer(nil, constEmbedder{}, &stubRenderer{jobErr: renderErr}, nil), nil)
	_, err := ranker.RankStrict(ctx, backendJob(), orderingPool(), nil, DefaultFuzzyThreshold)
	assert.ErrorIs(t, err, renderErr)

	ranker = NewRanker(NewScorer(nil, failingEmbedder{}, &stubRenderer{}, nil), nil)
	_, err = ranker.RankStrict(ctx, backendJob(), orderingPool(), nil, DefaultFuzzyThreshold)
	assert.Error(t, err)
}

func TestRanker_CandidateFailureFailsWholeCall(t *testing.T) {
	ranker := NewRanker(NewScorer(nil, constEmbedder{}, &stubRenderer{candidateErr: errors.New("broken")}, nil), nil, WithConcurrency(2))

	got := ranker.Rank(context.Background(), backendJob(), orderingPool(), nil, DefaultFuzzyThreshold)
	assert.Empty(t, got)

	_, err := ranker.RankStrict(context.Background(), backendJob(), orderingPool(), nil, DefaultFuzzyThreshold)
	assert.Error(t, err)
}

func TestRanker_NilCandidateIsAnError(t *testing.T) {
	ranker := NewRanker(NewScorer(nil, constEmbedder{}, &stubRenderer{}, nil), nil)

	_, err := ranker.RankStrict(context.Background(), backendJob(), []*Candidate{{CandidateName: "ok"}, nil}, nil, DefaultFuzzyThreshold)
	assert.Error(t, err)
}

func TestRanker_AnalysisOption(t *testing.T) {
	ctx := context.Background()
	scorer := NewScorer(nil, constEmbedder{}, &stubRenderer{}, nil)

	plain := NewRanker(scorer, nil).Rank(ctx, backendJob(), orderingPool(), nil, DefaultFuzzyThreshold)
	for _, r := range plain {
		assert.Nil(t, r.Analysis)
	}

	detailed := NewRanker(scorer, nil, WithAnalysis(true)).Rank(ctx, backendJob(), orderingPool(), nil, DefaultFuzzyThreshold)
	require.Len(t, detailed, 4)
	for _, r := range detailed {
		assert.NotNil(t, r.Analysis)
	}
}

func TestRanker_PanickingEmbedderIsRecovered(t *testing.T) {
	ranker := NewRanker(NewScorer(nil, panicEmbedder{}, &stubRenderer{}, nil), nil)

	got := ranker.Rank(context.Background(), backendJob(), orderingPool(), nil, DefaultFuzzyThreshold)
	assert.Empty(t, got)
}

type panicEmbedder struct{}

func (panicEmbedder) Embed(context.Context, string) ([]float32, error) {
	panic("embedding backend crashed")
}

func TestRanker_CandidateWithoutSkillsScoresAlongsideOthers(t *testing.T) {
	embedder := &blankRejectingEmbedder{}
	ranker := NewRanker(NewScorer(nil, embedder, &stubRenderer{}, nil), nil, WithAnalysis(true))

	job := &Job{Title: "Go developer", Skills: JobSkills{HardSkills: []string{"Go"}}}
	candidates := []*Candidate{
		{CandidateName: "Ada", Skills: hardSkills("Go")},
		{CandidateName: "NoSkills"},
	}

	got, err := ranker.RankStrict(context.Background(), job, candidates, nil, DefaultFuzzyThreshold)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"Ada", "NoSkills"}, names(got))

	empty := got[1]
	require.NotNil(t, empty.Analysis)
	assert.Zero(t, empty.Analysis.SkillsEmbeddingSimilarity)
	assert.Equal(t, []string{"go"}, empty.MissingSkills)
	assert.Zero(t, embedder.blankCalls.Load())
}

func TestRanker_JobWithoutSkillsStillRanks(t *testing.T) {
	embedder := &blankRejectingEmbedder{}
	ranker := NewRanker(NewScorer(nil, embedder, &stubRenderer{}, nil), nil, WithAnalysis(true))

	got := ranker.Rank(context.Background(), &Job{Title: "Generalist"}, []*Candidate{{CandidateName: "Ada", Skills: hardSkills("Go")}}, nil, DefaultFuzzyThreshold)

	require.Len(t, got, 1)
	assert.Zero(t, got[0].Analysis.SkillsEmbeddingSimilarity)
	assert.Zero(t, embedder.blankCalls.Load())
}
