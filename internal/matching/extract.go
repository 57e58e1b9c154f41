package matching

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// extractSkills runs the extractor and never fails: errors and panics are
// logged and degrade to an empty set.
func extractSkills(ctx context.Context, extractor SkillExtractor, logger *zap.Logger, text string) (set SkillSet) {
	set = SkillSet{}
	if extractor == nil {
		return set
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("skill extraction panicked", zap.Any("panic", r))
			set = SkillSet{}
		}
	}()

	found, err := extractor.Extract(ctx, text)
	if err != nil {
		logger.Warn("skill extraction failed", zap.Error(err))
		return set
	}

	return NewSkillSet(found...)
}

func recoveredError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
