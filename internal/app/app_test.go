package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"heartwise/internal/cardiac"
	"heartwise/internal/config"
	"heartwise/internal/controller"
	"heartwise/internal/llm"
	"heartwise/internal/server"
)

type promptCounter struct {
	mu     sync.Mutex
	before map[string]int
}

func (p *promptCounter) Before(_ context.Context, capability, _ string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.before == nil {
		p.before = map[string]int{}
	}
	p.before[capability]++
}

func (p *promptCounter) After(context.Context, string, json.RawMessage, error) {}

func (p *promptCounter) count(capability string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.before[capability]
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.LLM.Provider = llm.ProviderFake
	cfg.LLM.RPS = 0
	cfg.LLM.Timeout = 5 * time.Second
	cfg.HeartRate.StubBPM = 130
	return cfg
}

func TestRunServesUntilCanceled(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	fake := llm.NewFakeClient()
	hook := &promptCounter{}
	a, err := New(context.Background(), testConfig(), zap.New(core), WithFakeLLM(fake), WithPromptHook(hook))
	require.NoError(t, err)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunListener(ctx, l) }()

	client := server.NewClient(http.DefaultClient, "http://"+l.Addr().String())
	require.Eventually(t, func() bool {
		v, err := client.GetState(context.Background())
		return err == nil && v.HeartRate == 130
	}, 3*time.Second, 20*time.Millisecond)

	v, err := client.PredictRisk(context.Background(), &server.PredictRiskRequest{})
	require.NoError(t, err)
	assert.Equal(t, controller.AlertRaised, v.State)
	assert.Equal(t, 1, hook.count(cardiac.CapabilityPredictRisk))
	assert.Len(t, fake.Calls(), 1)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.NotZero(t, logs.FilterMessage("inference backend ready").Len())
	assert.NotZero(t, logs.FilterMessage("risk predicted").Len())
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.Provider = "openai"
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestGeminiWithoutKeyFails(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.Provider = llm.ProviderGemini
	cfg.LLM.GeminiAPIKey = ""
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestCloseWithoutRun(t *testing.T) {
	a, err := New(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	assert.NoError(t, a.Close())
}
