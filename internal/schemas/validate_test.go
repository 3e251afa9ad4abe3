package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSchemasCompile(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			_, err := load(name)
			assert.NoError(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		doc     string
		wantErr bool
	}{
		{
			name:   "likelihood array",
			schema: Likelihood,
			doc:    `[{"assessment":"High","percentage":80},{"assessment":"Low","percentage":5}]`,
		},
		{
			name:   "empty likelihood array",
			schema: Likelihood,
			doc:    `[]`,
		},
		{
			name:    "likelihood percentage as string",
			schema:  Likelihood,
			doc:     `[{"assessment":"High","percentage":"80%"}]`,
			wantErr: true,
		},
		{
			name:    "likelihood object instead of array",
			schema:  Likelihood,
			doc:     `{"assessment":"High","percentage":80}`,
			wantErr: true,
		},
		{
			name:   "evaluation report",
			schema: Evaluation,
			doc: `{"overallScore":72,"clarityScore":70,"pacingScore":65,
				"strengths":["concise"],"areasForImprovement":["examples"],
				"suggestedResources":[{"title":"Go blog","url":"https://go.dev/blog"}],
				"summary":"Solid.","aiLikelihood":{"score":10,"description":"natural","assessment":"Low"}}`,
		},
		{
			name:    "evaluation missing summary",
			schema:  Evaluation,
			doc:     `{"overallScore":72,"clarityScore":70,"pacingScore":65,"strengths":[],"areasForImprovement":[],"aiLikelihood":{"score":1,"assessment":"Low"}}`,
			wantErr: true,
		},
		{
			name:   "breakdown",
			schema: Breakdown,
			doc:    `[{"question":"Q1","userAnswer":"A1","score":80,"clarityScore":75,"strengths":["clear"],"improvements":[]}]`,
		},
		{
			name:    "breakdown entry without score",
			schema:  Breakdown,
			doc:     `[{"question":"Q1","userAnswer":"A1"}]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.schema, tt.doc)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %T: %v", err, err)
			assert.Equal(t, tt.schema, verr.Schema)
			assert.NotEmpty(t, verr.Errors)
		})
	}
}

func TestValidate_MalformedDocument(t *testing.T) {
	err := Validate(Evaluation, `{ invalid json }`)

	var derr *DocumentError
	assert.True(t, errors.As(err, &derr))
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("cover_letter", `{}`)

	var lerr *SchemaLoadError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, "cover_letter", lerr.Name)
}

func TestValidateJSONString(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["person"],
		"properties": {
			"person": {
				"type": "object",
				"required": ["name"],
				"properties": {"name": {"type": "string"}}
			}
		}
	}`

	assert.NoError(t, ValidateJSONString(schemaContent, `{"person":{"name":"Ada"}}`))

	err := ValidateJSONString(schemaContent, `{"person":{}}`)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.NotEmpty(t, verr.Errors)
	assert.NotEqual(t, "(root)", verr.Errors[0].Field)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Schema: Evaluation,
		Errors: []FieldError{
			{Field: "summary", Message: "is required"},
			{Field: "overallScore", Message: "must be a number"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "evaluation validation failed")
	assert.Contains(t, msg, "1. summary: is required")
	assert.Contains(t, msg, "2. overallScore")
}
