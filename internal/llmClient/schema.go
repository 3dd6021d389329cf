package llmclient

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
)

type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
)

// Schema is the provider-neutral description of a structured output.
// Backends translate it to their own schema dialect; Check validates a
// decoded answer against it.
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	// Order keeps property rendering stable in prompts and provider schemas.
	Order    []string
	Required []string
	Enum     []string
	Minimum  *float64
	Maximum  *float64
}

// Field is one named property of an object schema.
type Field struct {
	Name     string
	Schema   *Schema
	Required bool
}

func Object(description string, fields ...Field) *Schema {
	s := &Schema{Type: TypeObject, Description: description, Properties: make(map[string]*Schema, len(fields))}
	for _, f := range fields {
		s.Properties[f.Name] = f.Schema
		s.Order = append(s.Order, f.Name)
		if f.Required {
			s.Required = append(s.Required, f.Name)
		}
	}
	return s
}

func Required(name string, schema *Schema) Field { return Field{Name: name, Schema: schema, Required: true} }
func Optional(name string, schema *Schema) Field { return Field{Name: name, Schema: schema} }

func String(description string) *Schema { return &Schema{Type: TypeString, Description: description} }
func Number(description string) *Schema { return &Schema{Type: TypeNumber, Description: description} }

func Enum(description string, values ...string) *Schema {
	return &Schema{Type: TypeString, Description: description, Enum: values}
}

// Between bounds a numeric schema to [min, max].
func (s *Schema) Between(min, max float64) *Schema {
	s.Minimum = &min
	s.Maximum = &max
	return s
}

// PropertyNames returns property names in declaration order, then any
// undeclared ones sorted.
func (s *Schema) PropertyNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Properties))
	for _, n := range s.Order {
		if _, ok := s.Properties[n]; ok {
			names = append(names, n)
		}
	}
	var rest []string
	for n := range s.Properties {
		if !slices.Contains(names, n) {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// TypeLabel renders the type for prompt text, e.g. `enum(low|medium|high)` or `number[0,1]`.
func (s *Schema) TypeLabel() string {
	if s == nil {
		return "any"
	}
	if len(s.Enum) > 0 {
		return "enum(" + strings.Join(s.Enum, "|") + ")"
	}
	label := string(s.Type)
	if s.Minimum != nil || s.Maximum != nil {
		lo, hi := "-inf", "+inf"
		if s.Minimum != nil {
			lo = formatNumber(*s.Minimum)
		}
		if s.Maximum != nil {
			hi = formatNumber(*s.Maximum)
		}
		label += "[" + lo + "," + hi + "]"
	}
	return label
}

func (s *Schema) IsRequired(name string) bool {
	return s != nil && slices.Contains(s.Required, name)
}

// SchemaError describes the first place where a value breaks its schema.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "schema: " + e.Reason
	}
	return "schema: " + e.Path + ": " + e.Reason
}

// CheckJSON decodes raw and validates it against s.
func (s *Schema) CheckJSON(raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return s.Check(v)
}

// Check validates a value produced by encoding/json (map[string]any,
// float64, string, bool, nil) against s.
func (s *Schema) Check(v any) error {
	return s.check("", v)
}

func (s *Schema) check(path string, v any) error {
	if s == nil {
		return nil
	}
	switch s.Type {
	case TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("expected object, got %s", kindOf(v))}
		}
		for _, name := range s.Required {
			if val, ok := obj[name]; !ok || val == nil {
				return &SchemaError{Path: join(path, name), Reason: "required field missing"}
			}
		}
		for _, name := range s.PropertyNames() {
			val, ok := obj[name]
			if !ok || val == nil {
				continue
			}
			if err := s.Properties[name].check(join(path, name), val); err != nil {
				return err
			}
		}
	case TypeString:
		str, ok := v.(string)
		if !ok {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("expected string, got %s", kindOf(v))}
		}
		if len(s.Enum) > 0 && !slices.Contains(s.Enum, str) {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("value %q not in %v", str, s.Enum)}
		}
	case TypeNumber, TypeInteger:
		n, ok := v.(float64)
		if !ok {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("expected number, got %s", kindOf(v))}
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return &SchemaError{Path: path, Reason: "number is not finite"}
		}
		if s.Type == TypeInteger && n != math.Trunc(n) {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("expected integer, got %v", n)}
		}
		if s.Minimum != nil && n < *s.Minimum {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("%v below minimum %v", n, *s.Minimum)}
		}
		if s.Maximum != nil && n > *s.Maximum {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("%v above maximum %v", n, *s.Maximum)}
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("expected boolean, got %s", kindOf(v))}
		}
	}
	return nil
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func formatNumber(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.6f", f), "0"), ".")
}
