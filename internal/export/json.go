package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spigell/skill-ranker/internal/matching"
)

// Report is the JSON document written by WriteJSON.
type Report struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Job         string                 `json:"job,omitempty"`
	Results     []matching.MatchResult `json:"results"`
}

// WriteJSON encodes results as an indented Report.
func WriteJSON(w io.Writer, results []matching.MatchResult, jobTitle string, now time.Time) error {
	if results == nil {
		results = []matching.MatchResult{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Report{GeneratedAt: now.UTC(), Job: jobTitle, Results: results}); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// SaveJSON writes the report to path, replacing any existing file.
func SaveJSON(path string, results []matching.MatchResult, jobTitle string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}

	if err := WriteJSON(f, results, jobTitle, time.Now()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
