// Package matching ranks candidates against a job posting by combining fuzzy
// skill-set matching with embedding similarity.
package matching

import "context"

const (
	SkillTypeHard = "Hard"
	SkillTypeSoft = "Soft"
)

// SkillExtractor finds skill mentions in free text. Implementations may fail;
// the engine treats extraction as best-effort.
type SkillExtractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

// Embedder turns text into a fixed-length vector. Implementations must be safe
// for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Renderer flattens a job or a candidate into a single text blob.
type Renderer interface {
	RenderJob(job *Job) (string, error)
	RenderCandidate(candidate *Candidate) (string, error)
}

type JobSkills struct {
	HardSkills []string `json:"hard_skills" mapstructure:"hard_skills"`
	SoftSkills []string `json:"soft_skills" mapstructure:"soft_skills"`
}

// Job is an immutable input of a ranking call. Extra carries the free-form
// fields that only matter for text rendering.
type Job struct {
	Title            string         `json:"title,omitempty" mapstructure:"title"`
	Description      string         `json:"description,omitempty" mapstructure:"description"`
	Responsibilities []string       `json:"responsibilities,omitempty" mapstructure:"responsibilities"`
	Skills           JobSkills      `json:"skills" mapstructure:"skills"`
	Extra            map[string]any `json:"-" mapstructure:",remain"`
}

type Skill struct {
	Name string `json:"name" mapstructure:"name"`
	Type string `json:"type" mapstructure:"type"`
}

// Candidate is never mutated by the engine.
type Candidate struct {
	CandidateName string         `json:"candidate_name,omitempty" mapstructure:"candidate_name"`
	FullName      string         `json:"full_name,omitempty" mapstructure:"full_name"`
	Skills        []Skill        `json:"skills" mapstructure:"skills"`
	WorkHistory   []any          `json:"work_history,omitempty" mapstructure:"work_history"`
	Extra         map[string]any `json:"-" mapstructure:",remain"`
}

// Name resolves the display name, preferring candidate_name over full_name.
func (c *Candidate) Name() string {
	if c == nil {
		return ""
	}
	if c.CandidateName != "" {
		return c.CandidateName
	}
	return c.FullName
}

// JobProfile is the per-call cached view of a job. It is built once per
// ranking call and only read afterwards.
type JobProfile struct {
	HardSkills        SkillSet
	SoftSkills        SkillSet
	ExtractedSkills   SkillSet
	AllSkillsText     string
	FullText          string
	SkillsEmbedding   []float32
	FullTextEmbedding []float32
}

type ScoreBreakdown struct {
	SkillsScore       float64 `json:"skills_score"`
	OverallSimilarity float64 `json:"overall_similarity"`
}

// Analysis exposes the sub-scores behind skills_score.
type Analysis struct {
	HardSkills                SkillMatchReport `json:"hard_skills"`
	SoftSkills                SkillMatchReport `json:"soft_skills"`
	ExtractedSkills           SkillMatchReport `json:"extracted_skills"`
	SkillsEmbeddingSimilarity float64          `json:"skills_embedding_similarity"`
}

type MatchResult struct {
	CandidateName  string         `json:"candidate_name"`
	Score          float64        `json:"score"`
	ScoreBreakdown ScoreBreakdown `json:"score_breakdown"`
	MissingSkills  []string       `json:"missing_skills"`
	ExtraSkills    []string       `json:"extra_skills"`
	MatchingSkills []string       `json:"matching_skills"`
	WeightsUsed    Weights        `json:"weights_used"`
	Analysis       *Analysis      `json:"analysis,omitempty"`
}
