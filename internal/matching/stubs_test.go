package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

type extractorFunc func(ctx context.Context, text string) ([]string, error)

func (f extractorFunc) Extract(ctx context.Context, text string) ([]string, error) {
	return f(ctx, text)
}

func noSkills(context.Context, string) ([]string, error) { return nil, nil }

// letterEmbedder embeds text as a histogram of latin letters.
type letterEmbedder struct{}

func (letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	return vec, nil
}

// constEmbedder maps every text to the same vector.
type constEmbedder struct{}

func (constEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 2, 3}, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding backend unavailable")
}

type stubRenderer struct {
	jobErr       error
	candidateErr error
	jobCalls     atomic.Int32
}

func (r *stubRenderer) RenderJob(job *Job) (string, error) {
	r.jobCalls.Add(1)
	if r.jobErr != nil {
		return "", r.jobErr
	}
	if job == nil {
		return "", errors.New("nil job")
	}
	parts := []string{job.Title, job.Description}
	parts = append(parts, job.Responsibilities...)
	parts = append(parts, job.Skills.HardSkills...)
	parts = append(parts, job.Skills.SoftSkills...)
	return strings.Join(parts, "\n"), nil
}

func (r *stubRenderer) RenderCandidate(c *Candidate) (string, error) {
	if r.candidateErr != nil {
		return "", r.candidateErr
	}
	parts := []string{c.Name()}
	for _, s := range c.Skills {
		parts = append(parts, s.Name)
	}
	for _, w := range c.WorkHistory {
		parts = append(parts, fmt.Sprint(w))
	}
	return strings.Join(parts, "\n"), nil
}

func hardSkills(names ...string) []Skill {
	out := make([]Skill, 0, len(names))
	for _, n := range names {
		out = append(out, Skill{Name: n, Type: SkillTypeHard})
	}
	return out
}

func containsFold(text, word string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(word))
}

// blankRejectingEmbedder fails on blank text the way the remote API does.
type blankRejectingEmbedder struct {
	letterEmbedder
	blankCalls atomic.Int32
}

func (e *blankRejectingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		e.blankCalls.Add(1)
		return nil, errors.New("empty content part")
	}
	return e.letterEmbedder.Embed(ctx, text)
}
