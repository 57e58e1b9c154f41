// Package filtering trims a ranked candidate list down to what the caller
// wants to review. Filters run after ranking and never reorder results.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/skill-ranker/internal/matching"
)

// Filter represents a single filtering step applied to ranked results.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, results []matching.MatchResult) ([]matching.MatchResult, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains configuration settings consumed by the filters. Zero values
// switch a filter off, except MaxMissingSkills where a negative value does.
type Config struct {
	MinimumScore     float64 `mapstructure:"minimum-score" validate:"gte=0,lte=1"`
	MaxMissingSkills int     `mapstructure:"max-missing-skills" validate:"gte=-1"`
	Top              int     `mapstructure:"top" validate:"gte=0"`
	ExcludeFile      string  `mapstructure:"exclude-file"`
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Default returns the standard pipeline in the order it should run. Top goes
// last so it counts only candidates that passed every other filter.
func Default() []Filter {
	return []Filter{
		NewExcludeFile(),
		NewMinimumScore(),
		NewMaxMissingSkills(),
		NewTop(),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run validates all enabled filters, then applies them in order.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, results []matching.MatchResult) ([]matching.MatchResult, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			if deps.Logger != nil {
				deps.Logger.Debug("filter disabled", zap.String("name", step.Name()))
			}
			continue
		}

		next, info, err := step.Apply(ctx, deps, results)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if deps.Logger != nil {
			deps.Logger.Info("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		results = next
	}

	return results, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// keep returns the results for which pred holds, preserving order.
func keep(results []matching.MatchResult, pred func(matching.MatchResult) bool) ([]matching.MatchResult, []string) {
	kept := make([]matching.MatchResult, 0, len(results))
	var dropped []string
	for _, r := range results {
		if pred(r) {
			kept = append(kept, r)
			continue
		}
		dropped = append(dropped, r.CandidateName)
	}
	return kept, dropped
}
