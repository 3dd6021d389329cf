package jsonutil

import (
	"errors"
	"testing"

	"heartwise/internal/tester"
)

type answer struct {
	RiskLevel string `json:"riskLevel"`
}

func TestUnmarshalFlex(t *testing.T) {
	cases := map[string]string{
		"plain":          `{"riskLevel":"low"}`,
		"fenced":         "```json\n{\"riskLevel\":\"low\"}\n```",
		"chatty":         "Here is the result: {\"riskLevel\":\"low\"} Hope it helps.",
		"double encoded": `"{\"riskLevel\":\"low\"}"`,
	}
	for name, raw := range cases {
		var a answer
		tester.NoErr(t, UnmarshalFlex([]byte(raw), &a), name)
		tester.Eq(t, a.RiskLevel, "low", name)
	}
}

func TestUnmarshalFlexFailure(t *testing.T) {
	var a answer
	err := UnmarshalFlex([]byte("no json here"), &a)
	tester.True(t, err != nil, "expected error")
}

func TestExtractObject(t *testing.T) {
	_, err := ExtractObject([]byte("}{"))
	tester.True(t, errors.Is(err, ErrNoJSON), "reversed braces")

	got, err := ExtractObject([]byte("```\n{\"a\":1}\n```"))
	tester.NoErr(t, err)
	tester.Eq(t, string(got), `{"a":1}`)
}

func TestNormalize(t *testing.T) {
	out, err := Normalize([]byte("```json\n{\"b\":\"<x>\",\"a\":1}\n```"))
	tester.NoErr(t, err)
	tester.Eq(t, string(out), `{"a":1,"b":"<x>"}`)

	_, err = Normalize([]byte(`[1,2]`))
	tester.True(t, err != nil, "arrays are not objects")
}

func TestMarshalNoEscapeIndent(t *testing.T) {
	out, err := MarshalNoEscapeIndent(map[string]string{"a": "<b>"})
	tester.NoErr(t, err)
	tester.Eq(t, string(out), "{\n  \"a\": \"<b>\"\n}")
}
