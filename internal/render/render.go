// Package render flattens jobs and candidates into the plain text that skill
// extraction and embeddings work on.
package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/spigell/skill-ranker/internal/matching"
)

// Text renders records as "Label: value" lines. Output depends only on the
// record's contents, so equal records always render to equal text.
type Text struct{}

func New() Text {
	return Text{}
}

func (Text) RenderJob(job *matching.Job) (string, error) {
	if job == nil {
		return "", fmt.Errorf("job is nil")
	}

	var b builder
	b.line("Title", job.Title)
	b.line("Description", job.Description)
	b.list("Responsibilities", job.Responsibilities)
	b.line("Hard skills", strings.Join(job.Skills.HardSkills, ", "))
	b.line("Soft skills", strings.Join(job.Skills.SoftSkills, ", "))
	if err := b.extra(job.Extra); err != nil {
		return "", fmt.Errorf("rendering job fields: %w", err)
	}
	return b.String(), nil
}

func (Text) RenderCandidate(candidate *matching.Candidate) (string, error) {
	if candidate == nil {
		return "", fmt.Errorf("candidate is nil")
	}

	var b builder
	b.line("Name", candidate.Name())

	skills := make([]string, 0, len(candidate.Skills))
	for _, s := range candidate.Skills {
		if strings.TrimSpace(s.Name) == "" {
			continue
		}
		if s.Type != "" {
			skills = append(skills, fmt.Sprintf("%s (%s)", s.Name, s.Type))
			continue
		}
		skills = append(skills, s.Name)
	}
	b.line("Skills", strings.Join(skills, ", "))

	if len(candidate.WorkHistory) > 0 {
		b.heading("Work history")
		for i, entry := range candidate.WorkHistory {
			if err := b.value(strconv.Itoa(i+1), entry, 1); err != nil {
				return "", fmt.Errorf("rendering work history: %w", err)
			}
		}
	}

	if err := b.extra(candidate.Extra); err != nil {
		return "", fmt.Errorf("rendering candidate fields: %w", err)
	}
	return b.String(), nil
}

type builder struct {
	strings.Builder
}

func (b *builder) line(label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteByte('\n')
}

func (b *builder) heading(label string) {
	b.WriteString(label)
	b.WriteString(":\n")
}

func (b *builder) list(label string, items []string) {
	var kept []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		return
	}
	b.heading(label)
	for _, item := range kept {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteByte('\n')
	}
}

func (b *builder) extra(fields map[string]any) error {
	for _, key := range sortedKeys(fields) {
		if err := b.value(humanize(key), fields[key], 0); err != nil {
			return err
		}
	}
	return nil
}

const maxDepth = 16

// value writes v under label, indenting nested maps and slices. Map keys are
// visited in sorted order.
func (b *builder) value(label string, v any, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("value nested deeper than %d levels", maxDepth)
	}

	indent := strings.Repeat("  ", depth)

	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		if len(val) == 0 {
			return nil
		}
		b.WriteString(indent)
		b.heading(label)
		for _, key := range sortedKeys(val) {
			if err := b.value(humanize(key), val[key], depth+1); err != nil {
				return err
			}
		}
	case []any:
		if len(val) == 0 {
			return nil
		}
		b.WriteString(indent)
		b.heading(label)
		for i, item := range val {
			if err := b.value(strconv.Itoa(i+1), item, depth+1); err != nil {
				return err
			}
		}
	default:
		text := strings.TrimSpace(scalar(val))
		if text == "" {
			return nil
		}
		b.WriteString(indent)
		b.line(label, text)
	}
	return nil
}

func scalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// humanize turns a snake_case key into "Snake case".
func humanize(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	if len(words) == 0 {
		return key
	}
	first := []rune(words[0])
	first[0] = unicode.ToUpper(first[0])
	words[0] = string(first)
	return strings.Join(words, " ")
}
