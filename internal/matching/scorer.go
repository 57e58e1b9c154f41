package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/skill-ranker/internal/logger"
)

// Scorer builds job profiles and scores single candidates against them.
// It holds no mutable state and is safe for concurrent use when its
// collaborators are.
type Scorer struct {
	extractor SkillExtractor
	embedder  Embedder
	renderer  Renderer
	logger    *zap.Logger
}

func NewScorer(extractor SkillExtractor, embedder Embedder, renderer Renderer, log *zap.Logger) *Scorer {
	return &Scorer{
		extractor: extractor,
		embedder:  embedder,
		renderer:  renderer,
		logger:    logger.WithFields(log),
	}
}

// Profile builds the cached view of a job: declared skills, skills found in its
// text that were not declared, and embeddings of both text forms.
func (s *Scorer) Profile(ctx context.Context, job *Job) (*JobProfile, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}
	if s.embedder == nil || s.renderer == nil {
		return nil, errors.New("scorer is not initialized")
	}

	fullText, err := s.renderer.RenderJob(job)
	if err != nil {
		return nil, fmt.Errorf("rendering job: %w", err)
	}

	hard := NewSkillSet(job.Skills.HardSkills...)
	soft := NewSkillSet(job.Skills.SoftSkills...)
	extracted := extractSkills(ctx, s.extractor, s.logger, fullText).Difference(hard.Union(soft))
	allSkillsText := joinSkillSets(hard, soft, extracted)

	skillsEmbedding, err := embed(ctx, s.embedder, allSkillsText)
	if err != nil {
		return nil, fmt.Errorf("embedding job skills: %w", err)
	}

	fullTextEmbedding, err := embed(ctx, s.embedder, fullText)
	if err != nil {
		return nil, fmt.Errorf("embedding job text: %w", err)
	}

	s.logger.Debug("job profile built",
		zap.Int("hard_skills", hard.Len()),
		zap.Int("soft_skills", soft.Len()),
		zap.Int("extracted_skills", extracted.Len()),
	)

	return &JobProfile{
		HardSkills:        hard,
		SoftSkills:        soft,
		ExtractedSkills:   extracted,
		AllSkillsText:     allSkillsText,
		FullText:          fullText,
		SkillsEmbedding:   skillsEmbedding,
		FullTextEmbedding: fullTextEmbedding,
	}, nil
}

// Score computes the final score and the full breakdown of one candidate.
// Extraction failures degrade to no extracted skills; any other failure is
// returned to the caller.
func (s *Scorer) Score(ctx context.Context, profile *JobProfile, candidate *Candidate, weights Weights, threshold float64) (*MatchResult, error) {
	if profile == nil {
		return nil, errors.New("job profile is required")
	}
	if candidate == nil {
		return nil, errors.New("candidate is required")
	}

	hard, soft := partitionSkills(candidate.Skills)

	fullText, err := s.renderer.RenderCandidate(candidate)
	if err != nil {
		return nil, fmt.Errorf("rendering candidate %q: %w", candidate.Name(), err)
	}

	extracted := extractSkills(ctx, s.extractor, logger.WithCandidate(s.logger, candidate.Name()), fullText)
	allSkillsText := joinSkillSets(hard, soft, extracted)

	hardReport := MatchSkills(profile.HardSkills.Sorted(), hard.Sorted(), threshold)
	softReport := MatchSkills(profile.SoftSkills.Sorted(), soft.Sorted(), threshold)
	extractedReport := MatchSkills(profile.ExtractedSkills.Sorted(), extracted.Sorted(), threshold)

	skillsSim, err := similarityTo(ctx, s.embedder, allSkillsText, profile.SkillsEmbedding)
	if err != nil {
		return nil, fmt.Errorf("embedding skills of candidate %q: %w", candidate.Name(), err)
	}

	overallSim, err := similarityTo(ctx, s.embedder, fullText, profile.FullTextEmbedding)
	if err != nil {
		return nil, fmt.Errorf("embedding text of candidate %q: %w", candidate.Name(), err)
	}

	skillsScore := composite(weights.Skill, map[string]float64{
		KeyHardSkills:                hardReport.MatchPercentage / 100,
		KeySoftSkills:                softReport.MatchPercentage / 100,
		KeyExtractedSkills:           extractedReport.MatchPercentage / 100,
		KeySkillsEmbeddingSimilarity: skillsSim,
	})

	finalScore := composite(weights.Final, map[string]float64{
		KeySkillsScore:       skillsScore,
		KeyOverallSimilarity: overallSim,
	})
	finalScore = max(finalScore, 0)

	result := &MatchResult{
		CandidateName: candidate.Name(),
		Score:         round(finalScore, 3),
		ScoreBreakdown: ScoreBreakdown{
			SkillsScore:       round(skillsScore, 3),
			OverallSimilarity: round(overallSim, 3),
		},
		MissingSkills:  unionSorted(hardReport.MissingSkills, softReport.MissingSkills, extractedReport.MissingSkills),
		ExtraSkills:    unionSorted(hardReport.ExtraSkills, softReport.ExtraSkills, extractedReport.ExtraSkills),
		MatchingSkills: unionSorted(hardReport.MatchingSkills, softReport.MatchingSkills, extractedReport.MatchingSkills),
		WeightsUsed:    weights,
		Analysis: &Analysis{
			HardSkills:                hardReport,
			SoftSkills:                softReport,
			ExtractedSkills:           extractedReport,
			SkillsEmbeddingSimilarity: round(skillsSim, 3),
		},
	}

	return result, nil
}

// partitionSkills splits declared skills by type. Skills without a name are
// dropped, as are types other than Hard and Soft.
func partitionSkills(declared []Skill) (hard, soft SkillSet) {
	hard, soft = SkillSet{}, SkillSet{}
	for _, skill := range declared {
		if strings.TrimSpace(skill.Name) == "" {
			continue
		}
		switch {
		case strings.EqualFold(strings.TrimSpace(skill.Type), SkillTypeHard):
			hard.Add(skill.Name)
		case strings.EqualFold(strings.TrimSpace(skill.Type), SkillTypeSoft):
			soft.Add(skill.Name)
		}
	}
	return hard, soft
}

func unionSorted(lists ...[]string) []string {
	set := SkillSet{}
	for _, list := range lists {
		for _, name := range list {
			set[name] = struct{}{}
		}
	}
	return set.Sorted()
}
