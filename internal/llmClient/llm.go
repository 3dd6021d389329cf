package llmclient

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrInvalidJSON = errors.New("invalid json from LLM")

// PermanentError indicates an error that will not resolve by sending the same request again.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// LLMClient is a structured-inference backend. GenerateJSON sends prompt and
// input to the model, constrains the answer to schema when the backend
// supports it, and returns the model's JSON verbatim.
type LLMClient interface {
	Name() string
	Close() error
	GenerateJSON(ctx context.Context, prompt string, input any, schema *Schema) (json.RawMessage, error)
}

func marshalInput(input any) string {
	if input == nil {
		return "null"
	}
	b, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "null"
	}
	return string(b)
}
