package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/skill-ranker/internal/logger"
)

// DefaultFuzzyThreshold is the ranker's fuzzy threshold on the 0-100 scale.
const DefaultFuzzyThreshold = 60.0

// Ranker scores every candidate against one job and orders them by score.
type Ranker struct {
	scorer          *Scorer
	logger          *zap.Logger
	concurrency     int
	includeAnalysis bool
}

type RankerOption func(*Ranker)

// WithConcurrency scores up to n candidates at once. Values below 2 keep
// scoring sequential.
func WithConcurrency(n int) RankerOption {
	return func(r *Ranker) {
		if n < 1 {
			n = 1
		}
		r.concurrency = n
	}
}

// WithAnalysis keeps the per-category breakdown in every result.
func WithAnalysis(enabled bool) RankerOption {
	return func(r *Ranker) {
		r.includeAnalysis = enabled
	}
}

func NewRanker(scorer *Scorer, log *zap.Logger, opts ...RankerOption) *Ranker {
	r := &Ranker{
		scorer:      scorer,
		logger:      logger.WithFields(log),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank is RankStrict with failures absorbed: any error is logged and reported
// as an empty ranking, so callers cannot tell "no candidates" from "failed".
func (r *Ranker) Rank(ctx context.Context, job *Job, candidates []*Candidate, overrides *WeightOverrides, threshold float64) []MatchResult {
	results, err := r.RankStrict(ctx, job, candidates, overrides, threshold)
	if err != nil {
		r.logger.Error("ranking failed; returning empty result",
			zap.Int("candidates", len(candidates)),
			zap.Error(err),
		)
		return []MatchResult{}
	}
	return results
}

// RankStrict scores all candidates and returns them sorted by score, highest
// first. Candidates with equal scores keep their input order.
func (r *Ranker) RankStrict(ctx context.Context, job *Job, candidates []*Candidate, overrides *WeightOverrides, threshold float64) (results []MatchResult, err error) {
	if len(candidates) == 0 {
		return []MatchResult{}, nil
	}

	runLog := logger.WithRun(r.logger, uuid.NewString())

	defer func() {
		if rec := recover(); rec != nil {
			results, err = nil, recoveredError(rec)
		}
	}()

	weights := ResolveOverrides(overrides)

	profile, err := r.scorer.Profile(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("building job profile: %w", err)
	}

	runLog.Info("ranking candidates",
		zap.Int("candidates", len(candidates)),
		zap.Float64("fuzzy_threshold", threshold),
		zap.Int("concurrency", r.concurrency),
	)

	results = make([]MatchResult, len(candidates))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, candidate := range candidates {
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = recoveredError(rec)
				}
			}()

			result, err := r.scorer.Score(gCtx, profile, candidate, weights, threshold)
			if err != nil {
				return fmt.Errorf("scoring candidate #%d: %w", i, err)
			}
			if !r.includeAnalysis {
				result.Analysis = nil
			}
			results[i] = *result

			runLog.Debug("candidate scored",
				zap.String("candidate", result.CandidateName),
				zap.Float64("score", result.Score),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	runLog.Info("ranking completed", zap.Int("results", len(results)))

	return results, nil
}
