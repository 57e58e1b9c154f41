package filtering

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/skill-ranker/internal/matching"
)

const notConfiguredMsg = "not configured"

// toggle carries the enabled flag and the reason it was switched off.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

type minimumScoreFilter struct {
	toggle
	minimum float64
}

// NewMinimumScore creates a filter that drops results scoring below the
// configured minimum.
func NewMinimumScore() Filter {
	return &minimumScoreFilter{}
}

func (f *minimumScoreFilter) Name() string { return "minimum_score" }

func (f *minimumScoreFilter) Validate(cfg *Config) error {
	if cfg.MinimumScore < 0 || cfg.MinimumScore > 1 {
		return fmt.Errorf("minimum score must be within [0, 1], got %v", cfg.MinimumScore)
	}
	f.minimum = cfg.MinimumScore
	return nil
}

func (f *minimumScoreFilter) Apply(_ context.Context, deps Deps, results []matching.MatchResult) ([]matching.MatchResult, Step, error) {
	initial := len(results)
	if f.minimum <= 0 {
		return results, Step{Initial: initial, Left: initial}, nil
	}

	kept, dropped := keep(results, func(r matching.MatchResult) bool {
		return r.Score >= f.minimum
	})
	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Debug("excluding candidates below minimum score",
			zap.Float64("minimum_score", f.minimum),
			zap.Strings("excluded_candidates", dropped),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *minimumScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"minimum_score": strconv.FormatFloat(f.minimum, 'f', -1, 64)},
	}
}

type maxMissingSkillsFilter struct {
	toggle
	max int
}

// NewMaxMissingSkills creates a filter that drops results missing more
// required skills than allowed.
func NewMaxMissingSkills() Filter {
	return &maxMissingSkillsFilter{max: -1}
}

func (f *maxMissingSkillsFilter) Name() string { return "max_missing_skills" }

func (f *maxMissingSkillsFilter) Validate(cfg *Config) error {
	if cfg.MaxMissingSkills < -1 {
		return fmt.Errorf("max missing skills must be -1 or greater, got %d", cfg.MaxMissingSkills)
	}
	f.max = cfg.MaxMissingSkills
	return nil
}

func (f *maxMissingSkillsFilter) Apply(_ context.Context, deps Deps, results []matching.MatchResult) ([]matching.MatchResult, Step, error) {
	initial := len(results)
	if f.max < 0 {
		return results, Step{Initial: initial, Left: initial}, nil
	}

	kept, dropped := keep(results, func(r matching.MatchResult) bool {
		return len(r.MissingSkills) <= f.max
	})
	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Debug("excluding candidates missing too many skills",
			zap.Int("max_missing_skills", f.max),
			zap.Strings("excluded_candidates", dropped),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *maxMissingSkillsFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"max_missing_skills": strconv.Itoa(f.max)},
	}
}

type topFilter struct {
	toggle
	top int
}

// NewTop creates a filter that keeps only the first N results.
func NewTop() Filter {
	return &topFilter{}
}

func (f *topFilter) Name() string { return "top" }

func (f *topFilter) Validate(cfg *Config) error {
	if cfg.Top < 0 {
		return fmt.Errorf("top must not be negative, got %d", cfg.Top)
	}
	f.top = cfg.Top
	return nil
}

func (f *topFilter) Apply(_ context.Context, _ Deps, results []matching.MatchResult) ([]matching.MatchResult, Step, error) {
	initial := len(results)
	if f.top == 0 || initial <= f.top {
		return results, Step{Initial: initial, Left: initial}, nil
	}
	return results[:f.top], Step{Initial: initial, Dropped: initial - f.top, Left: f.top}, nil
}

func (f *topFilter) Status() Status {
	details := map[string]string{}
	reason := f.reason
	if f.top > 0 {
		details["top"] = strconv.Itoa(f.top)
	} else if reason == "" {
		reason = notConfiguredMsg
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: reason, Details: details}
}

type excludeFileFilter struct {
	toggle
	path string
}

// NewExcludeFile creates a filter that removes candidates listed by name in
// a file, one name per line. Names are compared case-insensitively.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = strings.TrimSpace(cfg.ExcludeFile)
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, results []matching.MatchResult) ([]matching.MatchResult, Step, error) {
	initial := len(results)
	if f.path == "" {
		return results, Step{Initial: initial, Left: initial}, nil
	}

	names, err := readExcluded(f.path)
	if err != nil {
		return nil, Step{}, fmt.Errorf("getting excluded candidates from file: %w", err)
	}

	kept, dropped := keep(results, func(r matching.MatchResult) bool {
		_, excluded := names[strings.ToLower(strings.TrimSpace(r.CandidateName))]
		return !excluded
	})
	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding candidates based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_candidates", dropped),
			zap.Int("candidates_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	reason := f.reason
	if f.path != "" {
		details["path"] = f.path
	} else if reason == "" {
		reason = notConfiguredMsg
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: reason, Details: details}
}

func readExcluded(path string) (map[string]struct{}, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	names := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names[strings.ToLower(line)] = struct{}{}
	}
	return names, scanner.Err()
}

// AppendExcluded adds names to the exclude file at path, creating it when
// needed. Names already listed are not written twice.
func AppendExcluded(path string, names []string) (int, error) {
	existing, err := readExcluded(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("reading exclude file: %w", err)
	}
	if existing == nil {
		existing = make(map[string]struct{})
	}

	var b strings.Builder
	added := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" {
			continue
		}
		if _, ok := existing[key]; ok {
			continue
		}
		existing[key] = struct{}{}
		b.WriteString(name)
		b.WriteByte('\n')
		added++
	}
	if added == 0 {
		return 0, nil
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("opening exclude file: %w", err)
	}
	if _, err := file.WriteString(b.String()); err != nil {
		file.Close()
		return 0, fmt.Errorf("writing exclude file: %w", err)
	}
	return added, file.Close()
}
