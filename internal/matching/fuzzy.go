package matching

import (
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// SkillPair records which candidate skill satisfied a required skill.
type SkillPair struct {
	Required  string  `json:"required"`
	Candidate string  `json:"candidate"`
	Score     float64 `json:"score"`
}

// FuzzyMatch is the raw outcome of MatchFuzzy.
type FuzzyMatch struct {
	Matches []SkillPair
	Missing SkillSet
	Extra   SkillSet
}

// Matching returns the required-side names of all matches.
func (m FuzzyMatch) Matching() SkillSet {
	set := make(SkillSet, len(m.Matches))
	for _, pair := range m.Matches {
		set[pair.Required] = struct{}{}
	}
	return set
}

// SkillMatchReport is the list form of a fuzzy match plus its coverage.
type SkillMatchReport struct {
	MatchingSkills  []string `json:"matching_skills"`
	MissingSkills   []string `json:"missing_skills"`
	ExtraSkills     []string `json:"extra_skills"`
	MatchPercentage float64  `json:"match_percentage"`
}

// Ratio scores the similarity of two strings on a 0-100 scale derived from
// their Levenshtein distance relative to the longer string.
func Ratio(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 100
	}
	distance := levenshtein.ComputeDistance(a, b)
	// Integer numerator keeps integral ratios exact for threshold comparison.
	return 100 * float64(longest-distance) / float64(longest)
}

// MatchFuzzy matches required skills against candidate skills. The threshold
// is on the 0-100 Ratio scale and a score equal to it counts as a match.
//
// A candidate skill is not removed from the pool once used, so one candidate
// skill may satisfy several required skills.
func MatchFuzzy(required, candidate []string, threshold float64) FuzzyMatch {
	requiredSet := NewSkillSet(required...)
	candidateSet := NewSkillSet(candidate...)

	if candidateSet.Len() == 0 {
		return FuzzyMatch{
			Matches: []SkillPair{},
			Missing: requiredSet,
			Extra:   SkillSet{},
		}
	}

	// Sorted pool keeps tie-breaking stable: the first best candidate wins.
	pool := candidateSet.Sorted()

	missing := requiredSet.Union()
	consumed := make(SkillSet)
	matches := make([]SkillPair, 0, requiredSet.Len())

	for _, skill := range requiredSet.Sorted() {
		best, score := bestMatch(skill, pool)
		if score < threshold {
			continue
		}
		matches = append(matches, SkillPair{Required: skill, Candidate: best, Score: score})
		delete(missing, skill)
		consumed[best] = struct{}{}
	}

	return FuzzyMatch{
		Matches: matches,
		Missing: missing,
		Extra:   candidateSet.Difference(consumed),
	}
}

func bestMatch(skill string, pool []string) (string, float64) {
	best := ""
	bestScore := math.Inf(-1)
	for _, option := range pool {
		if score := Ratio(skill, option); score > bestScore {
			best, bestScore = option, score
		}
	}
	return best, bestScore
}

// MatchSkills runs MatchFuzzy and reports the required-side matches together
// with the share of required skills that were matched, rounded to one decimal.
func MatchSkills(required, candidate []string, threshold float64) SkillMatchReport {
	match := MatchFuzzy(required, candidate, threshold)
	matching := match.Matching()

	percentage := 0.0
	if total := NewSkillSet(required...).Len(); total > 0 {
		percentage = round(float64(matching.Len())/float64(total)*100, 1)
	}

	return SkillMatchReport{
		MatchingSkills:  matching.Sorted(),
		MissingSkills:   match.Missing.Sorted(),
		ExtraSkills:     match.Extra.Sorted(),
		MatchPercentage: percentage,
	}
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
