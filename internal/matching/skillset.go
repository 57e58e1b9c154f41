package matching

import (
	"sort"
	"strings"

	"github.com/spigell/skill-ranker/internal/skills"
)

// SkillSet is a set of normalized skill names.
type SkillSet map[string]struct{}

// NewSkillSet normalizes and deduplicates the given names. Empty names are dropped.
func NewSkillSet(names ...string) SkillSet {
	set := make(SkillSet, len(names))
	for _, name := range names {
		set.Add(name)
	}
	return set
}

func (s SkillSet) Add(name string) {
	if normalized := skills.Normalize(name); normalized != "" {
		s[normalized] = struct{}{}
	}
}

func (s SkillSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s SkillSet) Len() int { return len(s) }

// Sorted returns the members in lexical order. Never nil.
func (s SkillSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s SkillSet) Union(others ...SkillSet) SkillSet {
	out := make(SkillSet, len(s))
	for name := range s {
		out[name] = struct{}{}
	}
	for _, other := range others {
		for name := range other {
			out[name] = struct{}{}
		}
	}
	return out
}

func (s SkillSet) Difference(other SkillSet) SkillSet {
	out := make(SkillSet, len(s))
	for name := range s {
		if !other.Has(name) {
			out[name] = struct{}{}
		}
	}
	return out
}

// joinSkillSets renders sets as one space-separated string, each set sorted.
func joinSkillSets(sets ...SkillSet) string {
	parts := make([]string, 0)
	for _, set := range sets {
		parts = append(parts, set.Sorted()...)
	}
	return strings.Join(parts, " ")
}
