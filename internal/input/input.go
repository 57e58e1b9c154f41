// Package input loads jobs, candidates and weight overrides from JSON files.
// Documents are checked against embedded JSON Schemas before decoding.
package input

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"

	"github.com/spigell/skill-ranker/internal/matching"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	jobSchema        = "schemas/job.schema.json"
	candidatesSchema = "schemas/candidates.schema.json"
	weightsSchema    = "schemas/weights.schema.json"
)

// ValidationError lists every schema violation found in a document.
type ValidationError struct {
	Document string
	Errors   []FieldError
}

type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s validation failed:\n", ve.Document)
	for i, err := range ve.Errors {
		fmt.Fprintf(&sb, "  %d. %s: %s\n", i+1, err.Field, err.Message)
	}
	return sb.String()
}

// LoadJob reads and validates a job document.
func LoadJob(path string) (*matching.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading job file: %w", err)
	}
	return ParseJob(data)
}

func ParseJob(data []byte) (*matching.Job, error) {
	if err := validate(jobSchema, "job", data); err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing job: %w", err)
	}

	job := &matching.Job{}
	if err := decode(raw, job); err != nil {
		return nil, fmt.Errorf("decoding job: %w", err)
	}
	return job, nil
}

// LoadCandidates reads and validates a JSON array of candidates.
func LoadCandidates(path string) ([]*matching.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading candidates file: %w", err)
	}
	return ParseCandidates(data)
}

func ParseCandidates(data []byte) ([]*matching.Candidate, error) {
	if err := validate(candidatesSchema, "candidates", data); err != nil {
		return nil, err
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing candidates: %w", err)
	}

	candidates := make([]*matching.Candidate, 0, len(raw))
	for i, record := range raw {
		candidate := &matching.Candidate{}
		if err := decode(record, candidate); err != nil {
			return nil, fmt.Errorf("decoding candidate #%d: %w", i, err)
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// LoadWeights reads partial weight overrides. Values are not range checked
// here; non-positive weights are dropped during weight resolution.
func LoadWeights(path string) (*matching.WeightOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading weights file: %w", err)
	}
	return ParseWeights(data)
}

func ParseWeights(data []byte) (*matching.WeightOverrides, error) {
	if err := validate(weightsSchema, "weights", data); err != nil {
		return nil, err
	}

	overrides := &matching.WeightOverrides{}
	if err := json.Unmarshal(data, overrides); err != nil {
		return nil, fmt.Errorf("parsing weights: %w", err)
	}
	return overrides, nil
}

func validate(schemaPath, document string, data []byte) error {
	schema, err := schemaFS.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("loading %s schema: %w", document, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validating %s: %w", document, err)
	}
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Document: document,
		Errors:   make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}

func decode(input map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
