package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"heartwise/internal/tester"
)

func TestFakeClient_DefaultAnswers(t *testing.T) {
	f := NewFakeClient()
	ctx := WithCapability(context.Background(), "predictHeartAttackRisk")

	raw, err := f.GenerateJSON(ctx, "p", map[string]any{
		"userData":      "Age: 70",
		"heartRateData": map[string]any{"bpm": 130},
	}, nil)
	tester.NoErr(t, err)
	var pred map[string]any
	tester.NoErr(t, json.Unmarshal(raw, &pred))
	tester.Eq(t, pred["riskLevel"], any("high"))
	tester.Eq(t, pred["estimatedTimeWindow"], any("within 24 hours"))

	ctx = WithCapability(context.Background(), "estimateTimeToHeartAttack")
	raw, err = f.GenerateJSON(ctx, "p", map[string]any{"heartRateBpm": 65}, nil)
	tester.NoErr(t, err)
	var est map[string]any
	tester.NoErr(t, json.Unmarshal(raw, &est))
	tester.Eq(t, est["riskLevel"], any("low"))
	tester.Eq(t, est["confidenceLevel"], any(0.4))

	tester.Eq(t, len(f.Calls()), 2)
	tester.Eq(t, f.Calls()[1].Capability, "estimateTimeToHeartAttack")
}

func TestFakeClient_ScriptedInOrder(t *testing.T) {
	boom := errors.New("boom")
	f := NewFakeClient().
		ScriptJSON("cap", `{"n":1}`).
		Script("cap", FakeResponse{Err: boom})
	ctx := WithCapability(context.Background(), "cap")

	raw, err := f.GenerateJSON(ctx, "p", nil, nil)
	tester.NoErr(t, err)
	tester.Eq(t, string(raw), `{"n":1}`)

	_, err = f.GenerateJSON(ctx, "p", nil, nil)
	tester.ErrIs(t, err, boom)

	raw, err = f.GenerateJSON(ctx, "p", nil, nil)
	tester.NoErr(t, err)
	tester.Eq(t, string(raw), `{}`, "script exhausted falls back to default")
}

func TestFakeClient_DelayHonorsContext(t *testing.T) {
	f := NewFakeClient().Script("cap", FakeResponse{Raw: json.RawMessage(`{}`), Delay: time.Second})
	ctx, cancel := context.WithTimeout(WithCapability(context.Background(), "cap"), 20*time.Millisecond)
	defer cancel()
	_, err := f.GenerateJSON(ctx, "p", nil, nil)
	tester.ErrIs(t, err, context.DeadlineExceeded)
}

func TestOptionsResolveProvider(t *testing.T) {
	tester.Eq(t, Options{}.ResolveProvider(), ProviderFake)
	tester.Eq(t, Options{Provider: "auto", GroqAPIKey: "g"}.ResolveProvider(), ProviderGroq)
	tester.Eq(t, Options{GeminiAPIKey: "x", GroqAPIKey: "g"}.ResolveProvider(), ProviderGemini)
	tester.Eq(t, Options{Provider: " Groq "}.ResolveProvider(), ProviderGroq)
}

func TestNewClient_Fake(t *testing.T) {
	fake := NewFakeClient().ScriptJSON("cap", `{"ok":true}`)
	cli, err := NewClient(context.Background(), Options{Provider: ProviderFake, Fake: fake, Timeout: time.Second})
	tester.NoErr(t, err)
	t.Cleanup(func() { _ = cli.Close() })
	tester.Eq(t, cli.Name(), "FakeLLM")

	raw, err := cli.GenerateJSON(WithCapability(context.Background(), "cap"), "p", nil, nil)
	tester.NoErr(t, err)
	tester.Eq(t, string(raw), `{"ok":true}`)
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), Options{Provider: "openai"})
	tester.True(t, err != nil, "unknown provider should fail")
}

func TestNewClient_GeminiWithoutKey(t *testing.T) {
	_, err := NewClient(context.Background(), Options{Provider: ProviderGemini})
	tester.True(t, err != nil, "gemini without key should fail")
}
