package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	llmclient "heartwise/internal/llmClient"
)

// Example captures an optional input/output example.
type Example struct {
	InputJSON  string
	OutputJSON string
}

// Spec defines the sections of a structured prompt.
type Spec struct {
	Purpose      string
	Background   string
	Instructions []string
	Constraints  []string
	Assumptions  []string
	OutputFormat string
	Language     string
	Examples     []Example
}

// Render builds the prompt text: fixed sections, the input as JSON and the
// output fields taken from schema.
func Render(spec Spec, input any, schema *llmclient.Schema) (string, error) {
	if strings.TrimSpace(spec.Purpose) == "" {
		return "", fmt.Errorf("prompt: purpose is empty")
	}
	if schema == nil || len(schema.Properties) == 0 {
		return "", fmt.Errorf("prompt: output fields are empty")
	}
	inputJSON, err := formatAnyJSON(input)
	if err != nil {
		return "", fmt.Errorf("prompt: encode input: %w", err)
	}

	var buf bytes.Buffer
	writeSection(&buf, "PURPOSE", spec.Purpose)
	writeSection(&buf, "BACKGROUND", spec.Background)
	writeSection(&buf, "INPUT", inputJSON)
	writeSection(&buf, "INSTRUCTIONS", formatList(spec.Instructions))
	writeSection(&buf, "OUTPUT", formatFields(schema))
	writeSection(&buf, "CONSTRAINTS", formatList(spec.Constraints))
	writeSection(&buf, "ASSUMPTIONS", formatList(spec.Assumptions))
	writeSection(&buf, "OUTPUT_FORMAT", spec.OutputFormat)
	writeSection(&buf, "LANGUAGE", spec.Language)
	if len(spec.Examples) > 0 {
		writeSection(&buf, "EXAMPLES", formatExamples(spec.Examples))
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}

func formatAnyJSON(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func formatFields(schema *llmclient.Schema) string {
	var buf strings.Builder
	for _, name := range schema.PropertyNames() {
		field := schema.Properties[name]
		req := "optional"
		if schema.IsRequired(name) {
			req = "required"
		}
		desc := ""
		if field != nil {
			desc = strings.TrimSpace(field.Description)
		}
		if desc != "" {
			fmt.Fprintf(&buf, "- %s (%s, %s): %s\n", name, field.TypeLabel(), req, desc)
		} else {
			fmt.Fprintf(&buf, "- %s (%s, %s)\n", name, field.TypeLabel(), req)
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

func formatList(items []string) string {
	var buf strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(&buf, "- %s\n", item)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func formatExamples(examples []Example) string {
	var buf strings.Builder
	for i, ex := range examples {
		fmt.Fprintf(&buf, "Example %d:\n", i+1)
		if in := strings.TrimSpace(ex.InputJSON); in != "" {
			buf.WriteString("INPUT:\n" + in + "\n")
		}
		if out := strings.TrimSpace(ex.OutputJSON); out != "" {
			buf.WriteString("OUTPUT:\n" + out + "\n")
		}
		buf.WriteString("\n")
	}
	return strings.TrimRight(buf.String(), "\n")
}

func writeSection(buf *bytes.Buffer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	buf.WriteString("[" + title + "]\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
}
