package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"heartwise/internal/tester"
)

var envKeys = []string{
	"PORT", "APP_ENV", "LOG_LEVEL", "LOG_FORMAT", "LLM_PROVIDER",
	"GEMINI_API_KEY", "GEMINI_MODEL", "GROQ_API_KEY", "GROQ_MODEL", "GROQ_BASE_URL",
	"LLM_RPS", "LLM_BURST", "LLM_TIMEOUT", "HEART_RATE_STUB_BPM", "DEFAULT_USER_DATA", "EVENT_HISTORY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	tester.NoErr(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg, err := Load(Options{EnvFile: filepath.Join(dir, "missing.env"), File: write(t, dir, "empty.yaml", "")})
	tester.NoErr(t, err)
	tester.Eq(t, cfg.Port, ":8081")
	tester.Eq(t, cfg.LLM.Provider, "auto")
	tester.Eq(t, cfg.HeartRate.StubBPM, 72.0)
	tester.Eq(t, cfg.DefaultUserData, "Age: 30, Gender: Male, Medical History: None")
	tester.Eq(t, cfg.LLM.Timeout, 60*time.Second)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	file := write(t, dir, "heartwise.yaml", `
port: "9090"
log:
  level: debug
llm:
  provider: groq
  groq_model: llama-test
  timeout: 15s
  rps: 3
heart_rate:
  stub_bpm: 88
event_history: 10
`)
	t.Setenv("LLM_RPS", "0.5")
	t.Setenv("DEFAULT_USER_DATA", "Age: 44")

	cfg, err := Load(Options{EnvFile: filepath.Join(dir, "missing.env"), File: file})
	tester.NoErr(t, err)
	tester.Eq(t, cfg.Port, ":9090")
	tester.Eq(t, cfg.Log.Level, "debug")
	tester.Eq(t, cfg.LLM.Provider, "groq")
	tester.Eq(t, cfg.LLM.GroqModel, "llama-test")
	tester.Eq(t, cfg.LLM.Timeout, 15*time.Second)
	tester.Eq(t, cfg.LLM.RPS, 0.5)
	tester.Eq(t, cfg.HeartRate.StubBPM, 88.0)
	tester.Eq(t, cfg.EventHistory, 10)
	tester.Eq(t, cfg.DefaultUserData, "Age: 44")
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := write(t, dir, ".env", "HEART_RATE_STUB_BPM=101\nLLM_PROVIDER=FAKE\n")
	// godotenv never overrides variables that are already set, even when empty.
	os.Unsetenv("HEART_RATE_STUB_BPM")
	os.Unsetenv("LLM_PROVIDER")
	t.Cleanup(func() {
		os.Unsetenv("HEART_RATE_STUB_BPM")
		os.Unsetenv("LLM_PROVIDER")
	})

	cfg, err := Load(Options{EnvFile: envFile, File: write(t, dir, "empty.yaml", "")})
	tester.NoErr(t, err)
	tester.Eq(t, cfg.HeartRate.StubBPM, 101.0)
	tester.Eq(t, cfg.LLM.Provider, "fake")
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	missingEnv := filepath.Join(dir, "missing.env")
	cases := map[string]func(t *testing.T) Options{
		"missing explicit file": func(t *testing.T) Options {
			return Options{EnvFile: missingEnv, File: filepath.Join(dir, "nope.yaml")}
		},
		"bad yaml": func(t *testing.T) Options {
			return Options{EnvFile: missingEnv, File: write(t, dir, "bad.yaml", "port: [")}
		},
		"bad provider": func(t *testing.T) Options {
			t.Setenv("LLM_PROVIDER", "openai")
			return Options{EnvFile: missingEnv, File: write(t, dir, "ok.yaml", "")}
		},
		"bad duration": func(t *testing.T) Options {
			t.Setenv("LLM_TIMEOUT", "soon")
			return Options{EnvFile: missingEnv, File: write(t, dir, "ok.yaml", "")}
		},
		"non-positive bpm": func(t *testing.T) Options {
			t.Setenv("HEART_RATE_STUB_BPM", "0")
			return Options{EnvFile: missingEnv, File: write(t, dir, "ok.yaml", "")}
		},
	}
	for name, mk := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(mk(t))
			tester.True(t, err != nil, "expected error")
		})
	}
}

func TestNormalizePort(t *testing.T) {
	tester.Eq(t, NormalizePort("8080"), ":8080")
	tester.Eq(t, NormalizePort(":8080"), ":8080")
	tester.Eq(t, NormalizePort("127.0.0.1:8080"), "127.0.0.1:8080")
}
