package matching

import (
	"math"
	"sort"
)

// Weight keys recognized by the scorer. Unknown keys survive resolution but
// contribute nothing.
const (
	KeySkillsScore       = "skills_score"
	KeyOverallSimilarity = "overall_similarity"

	KeyHardSkills                = "hard_skills"
	KeySoftSkills                = "soft_skills"
	KeyExtractedSkills           = "extracted_skills"
	KeySkillsEmbeddingSimilarity = "skills_embedding_similarity"
)

// WeightMap maps a score component to its weight.
type WeightMap map[string]float64

// Weights holds the two resolved weight maps. Both contain only strictly
// positive entries summing to 1, or nothing at all.
type Weights struct {
	Final WeightMap `json:"final_weights"`
	Skill WeightMap `json:"skill_weights"`
}

// WeightOverrides are caller-supplied partial weight maps.
type WeightOverrides struct {
	FinalScoreWeights map[string]float64 `json:"final_score_weights,omitempty" mapstructure:"final-score-weights"`
	SkillScoreWeights map[string]float64 `json:"skill_score_weights,omitempty" mapstructure:"skill-score-weights"`
}

func DefaultFinalWeights() WeightMap {
	return WeightMap{
		KeySkillsScore:       0.5,
		KeyOverallSimilarity: 0.5,
	}
}

func DefaultSkillWeights() WeightMap {
	return WeightMap{
		KeyHardSkills:                0.05,
		KeySoftSkills:                0.05,
		KeyExtractedSkills:           0.05,
		KeySkillsEmbeddingSimilarity: 0.85,
	}
}

// ResolveWeights merges overrides on top of the defaults and renormalizes each
// map independently. It is total: any input yields valid Weights.
func ResolveWeights(final, skill map[string]float64) Weights {
	return Weights{
		Final: resolveWeightMap(DefaultFinalWeights(), final),
		Skill: resolveWeightMap(DefaultSkillWeights(), skill),
	}
}

// ResolveOverrides is ResolveWeights for an optional overrides value.
func ResolveOverrides(overrides *WeightOverrides) Weights {
	if overrides == nil {
		return ResolveWeights(nil, nil)
	}
	return ResolveWeights(overrides.FinalScoreWeights, overrides.SkillScoreWeights)
}

func resolveWeightMap(defaults WeightMap, overrides map[string]float64) WeightMap {
	merged := make(WeightMap, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}

	sum, peak := 0.0, 0.0
	for k, v := range merged {
		// NaN fails v > 0 as well.
		if !(v > 0) || math.IsInf(v, 1) {
			delete(merged, k)
			continue
		}
		peak = max(peak, v)
	}

	if len(merged) == 0 {
		return WeightMap{}
	}

	// Scale by the largest weight first so the sum stays finite.
	for k, v := range merged {
		merged[k] = v / peak
		sum += merged[k]
	}
	for k, v := range merged {
		merged[k] = v / sum
	}
	return merged
}

// composite sums weight*component over the keys present in weights, in sorted
// key order.
func composite(weights WeightMap, components map[string]float64) float64 {
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	total := 0.0
	for _, k := range keys {
		total += weights[k] * components[k]
	}
	return total
}
