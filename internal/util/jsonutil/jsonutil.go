package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoJSON = errors.New("jsonutil: no JSON object found")

// MarshalNoEscape encodes v into JSON without HTML-escaping <, > and &.
func MarshalNoEscape(v any) ([]byte, error) {
	return encode(v, "")
}

// MarshalNoEscapeIndent is MarshalNoEscape with two-space indentation.
func MarshalNoEscapeIndent(v any) ([]byte, error) {
	return encode(v, "  ")
}

func encode(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ExtractObject trims model chatter around a JSON payload: markdown code
// fences and any prose before the first '{' or after the last '}'.
func ExtractObject(raw []byte) ([]byte, error) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return nil, ErrNoJSON
	}
	return []byte(s[start : end+1]), nil
}

// UnmarshalFlex tries to unmarshal model JSON into v with best effort:
// 1) direct unmarshal
// 2) a JSON string holding the object (double-encoded answers)
// 3) the object extracted from fenced or chatty text
func UnmarshalFlex(raw []byte, v any) error {
	firstErr := json.Unmarshal(raw, v)
	if firstErr == nil {
		return nil
	}
	var inner string
	if err := json.Unmarshal(raw, &inner); err == nil {
		if err := json.Unmarshal([]byte(inner), v); err == nil {
			return nil
		}
		raw = []byte(inner)
	}
	obj, err := ExtractObject(raw)
	if err != nil {
		return firstErr
	}
	if err := json.Unmarshal(obj, v); err != nil {
		return err
	}
	return nil
}

// Normalize returns the JSON object carried by raw in canonical form, or an
// error when raw holds no decodable object.
func Normalize(raw []byte) (json.RawMessage, error) {
	var obj map[string]any
	if err := UnmarshalFlex(raw, &obj); err != nil {
		return nil, err
	}
	out, err := MarshalNoEscape(obj)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(out), nil
}
