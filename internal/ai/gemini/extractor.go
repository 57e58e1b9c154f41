package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/skill-ranker/internal/logger"
	"github.com/spigell/skill-ranker/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

// SkillExtractor implements matching.SkillExtractor by asking a Gemini model
// to list the skills a text mentions.
type SkillExtractor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewSkillExtractor(generator contentGenerator, log *zap.Logger, maxLogLength int) *SkillExtractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &SkillExtractor{
		generator: generator,
		logger:    logger.WithFields(log),
		maxLogLen: maxLogLength,
	}
}

func (e *SkillExtractor) Extract(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}

	prompt := buildPrompt(text)

	e.logger.Debug("gemini skill extraction request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini skill extraction response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	return parseSkills(raw)
}

func buildPrompt(text string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "List the skills mentioned in the text as JSON {\"skills\": []}.\n\nText:\n{{TEXT}}\n\nJSON Response:"
	}
	return strings.ReplaceAll(template, "{{TEXT}}", text)
}

// parseSkills accepts {"skills": [...]} or a bare JSON array. Non-string and
// blank entries are skipped.
func parseSkills(raw string) ([]string, error) {
	cleaned := extractJSON(raw)

	var items []any
	if strings.HasPrefix(cleaned, "[") {
		if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
			return nil, fmt.Errorf("parse gemini response: %w", err)
		}
	} else {
		var data map[string]any
		if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
			return nil, fmt.Errorf("parse gemini response: %w", err)
		}
		list, ok := data["skills"].([]any)
		if !ok {
			return nil, fmt.Errorf("parse gemini response: missing skills list")
		}
		items = list
	}

	skills := make([]string, 0, len(items))
	for _, item := range items {
		name, ok := item.(string)
		if !ok {
			continue
		}
		if name = strings.TrimSpace(name); name != "" {
			skills = append(skills, name)
		}
	}
	return skills, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
