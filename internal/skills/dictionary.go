package skills

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"
)

// builtinVocabulary maps a canonical skill name to the aliases that also
// identify it. The canonical name itself is an alias unless listed in
// aliasOnly.
var builtinVocabulary = map[string][]string{
	"Go":               {"golang"},
	"Python":           nil,
	"Java":             nil,
	"Kotlin":           nil,
	"Scala":            nil,
	"Rust":             nil,
	"C++":              {"cpp"},
	"C#":               {"csharp", "c sharp"},
	"JavaScript":       {"js", "ecmascript"},
	"TypeScript":       {"ts"},
	"Node.js":          {"nodejs", "node"},
	"React":            {"reactjs", "react.js"},
	"Vue":              {"vuejs", "vue.js"},
	"Angular":          {"angularjs"},
	"Ruby":             nil,
	"PHP":              nil,
	"Swift":            nil,
	"SQL":              nil,
	"PostgreSQL":       {"postgres", "psql"},
	"MySQL":            nil,
	"MongoDB":          {"mongo"},
	"Redis":            nil,
	"Elasticsearch":    {"elastic search", "elk"},
	"ClickHouse":       nil,
	"Kafka":            {"apache kafka"},
	"RabbitMQ":         {"rabbit mq"},
	"gRPC":             nil,
	"GraphQL":          nil,
	"REST API":         {"restful", "rest apis"},
	"Docker":           nil,
	"Kubernetes":       {"k8s"},
	"Helm":             nil,
	"Terraform":        nil,
	"Ansible":          nil,
	"Linux":            nil,
	"Git":              nil,
	"CI/CD":            {"ci cd", "continuous integration"},
	"AWS":              {"amazon web services"},
	"GCP":              {"google cloud", "google cloud platform"},
	"Azure":            {"microsoft azure"},
	"Prometheus":       nil,
	"Grafana":          nil,
	"Microservices":    {"microservice"},
	"Machine Learning": {"ml"},
	"Deep Learning":    nil,
	"TensorFlow":       nil,
	"PyTorch":          nil,
	"Pandas":           nil,
	"Spark":            {"apache spark", "pyspark"},
	"Airflow":          {"apache airflow"},
	"Communication":    {"communication skills"},
	"Teamwork":         {"team work", "team player", "collaboration"},
	"Leadership":       {"team leadership"},
	"Mentoring":        {"mentorship"},
	"Problem Solving":  {"problem-solving"},
	"Agile":            nil,
	"Scrum":            nil,
	"Time Management":  nil,
}

// aliasOnly holds canonical names that are ordinary English words and are
// matched through their aliases only.
var aliasOnly = map[string]bool{
	"Go": true,
}

// Dictionary is an offline SkillExtractor. It looks up every run of up to
// maxWords consecutive tokens in a vocabulary of folded phrases, longest
// phrase first, and reports the canonical names it finds.
type Dictionary struct {
	phrases  map[string]string
	maxWords int
}

// NewDictionary builds a dictionary from the built-in vocabulary plus extra
// entries. An extra entry is either a plain skill name or "alias=Canonical".
func NewDictionary(extra ...string) *Dictionary {
	d := &Dictionary{phrases: make(map[string]string)}

	canonicals := make([]string, 0, len(builtinVocabulary))
	for canonical := range builtinVocabulary {
		canonicals = append(canonicals, canonical)
	}
	sort.Strings(canonicals)

	for _, canonical := range canonicals {
		if !aliasOnly[canonical] {
			d.add(canonical, canonical)
		}
		for _, alias := range builtinVocabulary[canonical] {
			d.add(alias, canonical)
		}
	}

	for _, entry := range extra {
		alias, canonical, found := strings.Cut(entry, "=")
		if !found {
			canonical = alias
		}
		d.add(alias, strings.TrimSpace(canonical))
	}

	return d
}

// LoadVocabulary reads extra dictionary entries from a file, one per line.
// Blank lines and lines starting with '#' are skipped.
func LoadVocabulary(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vocabulary file: %w", err)
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading vocabulary file: %w", err)
	}
	return entries, nil
}

func (d *Dictionary) add(alias, canonical string) {
	key := strings.Join(tokenize(alias), " ")
	if key == "" || canonical == "" {
		return
	}
	d.phrases[key] = canonical
	if words := strings.Count(key, " ") + 1; words > d.maxWords {
		d.maxWords = words
	}
}

// Len reports the number of distinct phrases the dictionary recognizes.
func (d *Dictionary) Len() int {
	return len(d.phrases)
}

// Extract returns the sorted canonical names of all skills mentioned in text.
func (d *Dictionary) Extract(ctx context.Context, text string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := tokenize(text)
	found := make(map[string]struct{})

	for i := 0; i < len(tokens); {
		matched := 0
		for n := min(d.maxWords, len(tokens)-i); n > 0; n-- {
			if canonical, ok := d.phrases[strings.Join(tokens[i:i+n], " ")]; ok {
				found[canonical] = struct{}{}
				matched = n
				break
			}
		}
		if matched == 0 {
			matched = 1
		}
		i += matched
	}

	out := make([]string, 0, len(found))
	for name := range found {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// tokenize folds text and splits it into words. '+', '#', '.', '/' and '-'
// stay inside words so that "c++", "node.js" and "ci/cd" survive; trailing
// punctuation is trimmed.
func tokenize(text string) []string {
	folded := Fold(text)
	words := strings.FieldsFunc(folded, func(r rune) bool {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
		switch r {
		case '+', '#', '.', '/', '-':
			return false
		}
		return true
	})

	out := words[:0]
	for _, w := range words {
		w = strings.TrimRight(w, ".-/")
		w = strings.TrimLeft(w, ".-/")
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
