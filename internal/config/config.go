package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when present and no other file is given.
const DefaultFile = "heartwise.yaml"

type Config struct {
	Port            string          `yaml:"port"`
	Env             string          `yaml:"env"`
	Log             LogConfig       `yaml:"log"`
	LLM             LLMConfig       `yaml:"llm"`
	HeartRate       HeartRateConfig `yaml:"heart_rate"`
	DefaultUserData string          `yaml:"default_user_data"`
	EventHistory    int             `yaml:"event_history"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type LLMConfig struct {
	Provider     string        `yaml:"provider"`
	GeminiAPIKey string        `yaml:"gemini_api_key"`
	GeminiModel  string        `yaml:"gemini_model"`
	GroqAPIKey   string        `yaml:"groq_api_key"`
	GroqModel    string        `yaml:"groq_model"`
	GroqBaseURL  string        `yaml:"groq_base_url"`
	RPS          float64       `yaml:"rps"`
	Burst        int           `yaml:"burst"`
	Timeout      time.Duration `yaml:"timeout"`
}

type HeartRateConfig struct {
	StubBPM float64 `yaml:"stub_bpm"`
}

// ValidProviders lists the accepted values of llm.provider.
var ValidProviders = []string{"auto", "gemini", "groq", "fake"}

func Default() *Config {
	return &Config{
		Port: ":8081",
		Env:  "local",
		Log:  LogConfig{Level: "info", Format: "json"},
		LLM: LLMConfig{
			Provider: "auto",
			RPS:      1,
			Burst:    2,
			Timeout:  60 * time.Second,
		},
		HeartRate:       HeartRateConfig{StubBPM: 72},
		DefaultUserData: "Age: 30, Gender: Male, Medical History: None",
		EventHistory:    64,
	}
}

// Options controls where Load looks.
type Options struct {
	// EnvFile is loaded with godotenv; missing files are ignored.
	EnvFile string
	// File is a YAML file. When empty, DefaultFile is used if it exists.
	File string
}

// Load builds the configuration: defaults, then the YAML file, then the
// environment. Command-line flags are applied by the caller afterwards.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := Default()
	path, required := opts.File, true
	if path == "" {
		path, required = DefaultFile, false
	}
	if err := cfg.loadFile(path, required); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	setString(&c.Port, "PORT")
	setString(&c.Env, "APP_ENV")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.LLM.GeminiModel, "GEMINI_MODEL")
	setString(&c.LLM.GroqAPIKey, "GROQ_API_KEY")
	setString(&c.LLM.GroqModel, "GROQ_MODEL")
	setString(&c.LLM.GroqBaseURL, "GROQ_BASE_URL")
	setString(&c.DefaultUserData, "DEFAULT_USER_DATA")

	if v := env("LLM_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("LLM_RPS: %w", err)
		}
		c.LLM.RPS = f
	}
	if v := env("LLM_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LLM_BURST: %w", err)
		}
		c.LLM.Burst = n
	}
	if v := env("LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LLM_TIMEOUT: %w", err)
		}
		c.LLM.Timeout = d
	}
	if v := env("HEART_RATE_STUB_BPM"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("HEART_RATE_STUB_BPM: %w", err)
		}
		c.HeartRate.StubBPM = f
	}
	if v := env("EVENT_HISTORY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EVENT_HISTORY: %w", err)
		}
		c.EventHistory = n
	}
	return nil
}

func (c *Config) normalize() {
	c.Port = NormalizePort(c.Port)
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = "auto"
	}
	if strings.TrimSpace(c.Env) == "" {
		c.Env = "local"
	}
}

// NormalizePort accepts "8081" or ":8081" or "host:8081".
func NormalizePort(port string) string {
	port = strings.TrimSpace(port)
	if port == "" || strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func (c *Config) Validate() error {
	valid := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	if c.Port == "" {
		return fmt.Errorf("port is empty")
	}
	if c.HeartRate.StubBPM <= 0 {
		return fmt.Errorf("heart_rate.stub_bpm must be positive, got %v", c.HeartRate.StubBPM)
	}
	if c.LLM.RPS < 0 || c.LLM.Burst < 0 {
		return fmt.Errorf("llm rps and burst must not be negative")
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm timeout must not be negative")
	}
	if c.EventHistory < 0 {
		return fmt.Errorf("event_history must not be negative")
	}
	return nil
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func setString(dst *string, key string) {
	if v := env(key); v != "" {
		*dst = v
	}
}
