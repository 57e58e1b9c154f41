package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/skill-ranker/internal/ai/gemini"
	"github.com/spigell/skill-ranker/internal/filtering"
	"github.com/spigell/skill-ranker/internal/matching"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func testResults() []matching.MatchResult {
	return []matching.MatchResult{
		{
			CandidateName:  "Ada",
			Score:          0.912,
			ScoreBreakdown: matching.ScoreBreakdown{SkillsScore: 0.88, OverallSimilarity: 0.944},
			MissingSkills:  []string{},
			MatchingSkills: []string{"Python", "SQL"},
		},
		{
			CandidateName:  "Bo",
			Score:          0.5,
			ScoreBreakdown: matching.ScoreBreakdown{SkillsScore: 0.4, OverallSimilarity: 0.6},
			MissingSkills:  []string{"SQL"},
			MatchingSkills: []string{"Python"},
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestGetConfigDefaults(t *testing.T) {
	config, err := getConfig(newTestViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Ranking.FuzzyThreshold != 80 || config.Ranking.Concurrency != 4 {
		t.Fatalf("unexpected ranking defaults: %+v", config.Ranking)
	}
	if config.Extractor.Provider != providerDictionary {
		t.Fatalf("expected dictionary provider, got %q", config.Extractor.Provider)
	}
	if config.Filters.MaxMissingSkills != -1 {
		t.Fatalf("expected max missing skills filter off, got %d", config.Filters.MaxMissingSkills)
	}

	g := config.AI.Gemini
	if g.Model != gemini.DefaultModel || g.EmbeddingModel != gemini.DefaultEmbeddingModel {
		t.Fatalf("unexpected models: %s, %s", g.Model, g.EmbeddingModel)
	}
	if !g.CircuitBreaker.Enabled || g.CircuitBreaker.Interval.Seconds() != 60 || g.CircuitBreaker.Timeout.Seconds() != 30 {
		t.Fatalf("unexpected circuit breaker config: %+v", g.CircuitBreaker)
	}
}

func TestGetConfigOverrides(t *testing.T) {
	v := newTestViper()
	v.Set("extractor.provider", " Gemini ")
	v.Set("ranking.weights.final-score-weights", map[string]any{"skills_score": 0.7})
	v.Set("ai.gemini.max-retries", 5)

	config, err := getConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Extractor.Provider != providerGemini {
		t.Fatalf("expected provider to be normalized, got %q", config.Extractor.Provider)
	}
	if got := config.Ranking.Weights.FinalScoreWeights["skills_score"]; got != 0.7 {
		t.Fatalf("expected skills_score weight 0.7, got %v", got)
	}
	if config.AI.Gemini.MaxRetries != 5 {
		t.Fatalf("expected 5 retries, got %d", config.AI.Gemini.MaxRetries)
	}
}

func TestGetConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{name: "unknown provider", key: "extractor.provider", value: "openai"},
		{name: "threshold above 100", key: "ranking.fuzzy-threshold", value: 101},
		{name: "zero concurrency", key: "ranking.concurrency", value: 0},
		{name: "minimum score above one", key: "filters.minimum-score", value: 2},
		{name: "failure threshold above one", key: "ai.gemini.circuit-breaker.failure-threshold", value: 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestViper()
			v.Set(tt.key, tt.value)
			if _, err := getConfig(v); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadInputs(t *testing.T) {
	dir := t.TempDir()
	jobPath := writeFile(t, dir, "job.json", `{"title": "Backend Engineer", "skills": {"hard_skills": ["Python"]}}`)
	candidatesPath := writeFile(t, dir, "candidates.json", `[{"candidate_name": "Ada", "skills": [{"name": "Python", "type": "Hard"}]}]`)
	weightsPath := writeFile(t, dir, "weights.json", `{"final_score_weights": {"overall_similarity": 0.2}}`)

	base := &matching.WeightOverrides{FinalScoreWeights: map[string]float64{"skills_score": 0.8, "overall_similarity": 0.5}}

	job, candidates, overrides, err := loadInputs(jobPath, candidatesPath, weightsPath, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Title != "Backend Engineer" || len(candidates) != 1 || candidates[0].Name() != "Ada" {
		t.Fatalf("unexpected inputs: %+v %+v", job, candidates)
	}

	want := map[string]float64{"skills_score": 0.8, "overall_similarity": 0.2}
	if !reflect.DeepEqual(overrides.FinalScoreWeights, want) {
		t.Fatalf("expected %v, got %v", want, overrides.FinalScoreWeights)
	}
	if base.FinalScoreWeights["overall_similarity"] != 0.5 {
		t.Fatalf("base overrides were mutated")
	}

	if _, _, _, err := loadInputs(filepath.Join(dir, "missing.json"), candidatesPath, "", nil); err == nil {
		t.Fatalf("expected error for missing job file")
	}
	badJob := writeFile(t, dir, "bad.json", `{"title": "no skills"}`)
	if _, _, _, err := loadInputs(badJob, candidatesPath, "", nil); err == nil {
		t.Fatalf("expected schema error for job without skills")
	}
}

func TestMergeOverrides(t *testing.T) {
	got := mergeOverrides(nil, nil)
	if got == nil || got.FinalScoreWeights != nil || got.SkillScoreWeights != nil {
		t.Fatalf("expected empty overrides, got %+v", got)
	}

	got = mergeOverrides(
		&matching.WeightOverrides{SkillScoreWeights: map[string]float64{"hard_skills": 1}},
		&matching.WeightOverrides{SkillScoreWeights: map[string]float64{"soft_skills": 2}},
	)
	want := map[string]float64{"hard_skills": 1, "soft_skills": 2}
	if !reflect.DeepEqual(got.SkillScoreWeights, want) {
		t.Fatalf("expected %v, got %v", want, got.SkillScoreWeights)
	}
}

func TestNewExtractorDictionary(t *testing.T) {
	vocabulary := writeFile(t, t.TempDir(), "vocabulary.txt", "# team\ntemporal = Temporal\n")

	config, err := getConfig(newTestViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	config.Extractor.VocabularyFile = vocabulary

	extractor, err := newExtractor(config, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := extractor.Extract(context.Background(), "Workflows on temporal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Temporal"}) {
		t.Fatalf("expected vocabulary entry to be extracted, got %v", got)
	}

	config.Extractor.VocabularyFile = filepath.Join(t.TempDir(), "missing.txt")
	if _, err := newExtractor(config, nil, zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing vocabulary file")
	}

	config.Extractor.Provider = "openai"
	if _, err := newExtractor(config, nil, zap.NewNop()); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestPrintRanking(t *testing.T) {
	var buf bytes.Buffer
	if err := printRanking(&buf, testResults()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "#") || !strings.Contains(lines[0], "CANDIDATE") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "Ada") || !strings.Contains(lines[1], "0.912") || !strings.HasSuffix(lines[1], "-") {
		t.Fatalf("unexpected first row: %q", lines[1])
	}
	if !strings.Contains(lines[2], "Bo") || !strings.HasSuffix(lines[2], "SQL") {
		t.Fatalf("unexpected second row: %q", lines[2])
	}
}

func TestHandleAction(t *testing.T) {
	dir := t.TempDir()
	s := &session{
		results:     testResults(),
		jobTitle:    "Backend Engineer",
		outputPath:  filepath.Join(dir, "ranking"),
		jsonPath:    filepath.Join(dir, "ranking.json"),
		excludeFile: filepath.Join(dir, "exclude.txt"),
		steps:       filtering.Default(),
	}
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	var out bytes.Buffer

	if err := handleAction(PromptExportWorkbook, &out, logger, s); err != nil {
		t.Fatalf("export workbook: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "ranking.xlsx")); err != nil {
		t.Fatalf("expected workbook to be written: %v", err)
	}

	if err := handleAction(PromptDumpJSON, &out, logger, s); err != nil {
		t.Fatalf("dump json: %v", err)
	}
	data, err := os.ReadFile(s.jsonPath)
	if err != nil {
		t.Fatalf("read json report: %v", err)
	}
	var report struct {
		Job     string                 `json:"job"`
		Results []matching.MatchResult `json:"results"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode json report: %v", err)
	}
	if report.Job != "Backend Engineer" || len(report.Results) != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}

	if err := handleAction(PromptAppendToExclude, &out, logger, s); err != nil {
		t.Fatalf("append to exclude file: %v", err)
	}
	excluded, err := os.ReadFile(s.excludeFile)
	if err != nil {
		t.Fatalf("read exclude file: %v", err)
	}
	if string(excluded) != "Ada\nBo\n" {
		t.Fatalf("unexpected exclude file: %q", excluded)
	}

	if err := handleAction(PromptShowRanking, &out, logger, s); err != nil {
		t.Fatalf("show ranking: %v", err)
	}
	if !strings.Contains(out.String(), "Ada") {
		t.Fatalf("expected ranking to be printed, got %q", out.String())
	}

	if err := handleAction(PromptShowFilters, &out, logger, s); err != nil {
		t.Fatalf("show filters: %v", err)
	}
	if logs.FilterField(zap.Int("candidates count", 2)).Len() != 1 {
		t.Fatalf("expected filter statuses to be logged")
	}

	if err := handleAction(PromptExit, &out, logger, s); !errors.Is(err, errExit) {
		t.Fatalf("expected exit error, got %v", err)
	}
	if err := handleAction("unknown", &out, logger, s); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestHandleActionWithoutExcludeFile(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := &session{results: testResults()}

	if err := handleAction(PromptAppendToExclude, &bytes.Buffer{}, zap.New(core), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logs.FilterMessage("exclude file is not configured").Len() != 1 {
		t.Fatalf("expected warning about missing exclude file")
	}
}
