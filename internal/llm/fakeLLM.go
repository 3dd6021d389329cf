package llm

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	llmclient "heartwise/internal/llmClient"
)

// FakeResponse is one scripted answer of FakeClient.
type FakeResponse struct {
	Raw   json.RawMessage
	Err   error
	Delay time.Duration
}

// FakeCall records a request that reached FakeClient.
type FakeCall struct {
	Capability string
	Prompt     string
	Input      any
	Schema     *llmclient.Schema
}

// FakeClient returns deterministic JSON payloads per capability for offline
// runs and tests. Scripted responses are consumed first, in order; after that
// it answers from the heart rate found in the input.
type FakeClient struct {
	mu     sync.Mutex
	script map[string][]FakeResponse
	calls  []FakeCall
}

func NewFakeClient() *FakeClient {
	return &FakeClient{script: make(map[string][]FakeResponse)}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// Script queues responses for a capability.
func (f *FakeClient) Script(capability string, responses ...FakeResponse) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script[capability] = append(f.script[capability], responses...)
	return f
}

// ScriptJSON queues a raw JSON answer for a capability.
func (f *FakeClient) ScriptJSON(capability, raw string) *FakeClient {
	return f.Script(capability, FakeResponse{Raw: json.RawMessage(raw)})
}

// Calls returns a copy of the recorded requests.
func (f *FakeClient) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, input any, schema *llmclient.Schema) (json.RawMessage, error) {
	capability := CapabilityFrom(ctx)

	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Capability: capability, Prompt: prompt, Input: input, Schema: schema})
	var next *FakeResponse
	if q := f.script[capability]; len(q) > 0 {
		next = &q[0]
		f.script[capability] = q[1:]
	}
	f.mu.Unlock()

	if next != nil {
		if next.Delay > 0 {
			t := time.NewTimer(next.Delay)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-t.C:
			}
		}
		return next.Raw, next.Err
	}
	return defaultFakeAnswer(capability, input)
}

func defaultFakeAnswer(capability string, input any) (json.RawMessage, error) {
	bpm := bpmFromInput(input)
	level, window := "low", "no immediate risk"
	switch {
	case bpm >= 120:
		level, window = "high", "within 24 hours"
	case bpm >= 100:
		level, window = "medium", "within the next few weeks"
	}

	var obj any
	switch capability {
	case "predictHeartAttackRisk":
		obj = map[string]any{
			"riskLevel":           level,
			"estimatedTimeWindow": window,
			"explanation":         "offline estimate from heart rate only; based on limited information",
		}
	case "estimateTimeToHeartAttack":
		obj = map[string]any{
			"estimatedTimeWindow": window,
			"riskLevel":           level,
			"confidenceLevel":     0.4,
			"rationale":           "offline estimate from heart rate only; limited data",
		}
	default:
		obj = map[string]any{}
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func bpmFromInput(input any) float64 {
	b, err := json.Marshal(input)
	if err != nil {
		return 0
	}
	var probe struct {
		HeartRateBPM  float64 `json:"heartRateBpm"`
		HeartRateData struct {
			BPM float64 `json:"bpm"`
		} `json:"heartRateData"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return 0
	}
	if probe.HeartRateBPM > 0 {
		return probe.HeartRateBPM
	}
	return probe.HeartRateData.BPM
}
