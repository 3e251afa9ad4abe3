// Package schemas holds the JSON Schemas that Generator output is checked
// against before it is decoded, and the validation helpers around them.
package schemas

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Schema names.
const (
	Likelihood = "likelihood"
	Evaluation = "evaluation"
	Breakdown  = "breakdown"
)

//go:embed *.schema.json
var files embed.FS

var (
	compiledMu sync.Mutex
	compiled   = map[string]*gojsonschema.Schema{}
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Schema string
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	if ve.Schema != "" {
		fmt.Fprintf(&sb, "%s validation failed:\n", ve.Schema)
	} else {
		sb.WriteString("validation failed:\n")
	}
	for i, err := range ve.Errors {
		fmt.Fprintf(&sb, "  %d. %s: %s\n", i+1, err.Field, err.Message)
	}
	return sb.String()
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Name    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Name, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Name, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// DocumentError reports a document that is not valid JSON.
type DocumentError struct {
	Cause error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document is not valid JSON: %v", e.Cause)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// Names lists the embedded schemas.
func Names() []string {
	return []string{Likelihood, Evaluation, Breakdown}
}

// Validate checks a JSON document against the named embedded schema.
func Validate(name, document string) error {
	schema, err := load(name)
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(document))
	if err != nil {
		return &DocumentError{Cause: err}
	}
	return toError(name, result)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaContent)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Name:    "(string schema)",
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}
	return toError("", result)
}

func load(name string) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if s, ok := compiled[name]; ok {
		return s, nil
	}
	data, err := files.ReadFile(name + ".schema.json")
	if err != nil {
		return nil, &SchemaLoadError{Name: name, Message: "unknown schema", Cause: err}
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &SchemaLoadError{Name: name, Message: "invalid schema", Cause: err}
	}
	compiled[name] = s
	return s, nil
}

func toError(name string, result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}
	validationErr := &ValidationError{
		Schema: name,
		Errors: make([]FieldError, 0, len(result.Errors())),
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
