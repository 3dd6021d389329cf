package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"heartwise/internal/app"
	"heartwise/internal/config"
	"heartwise/internal/logger"
	"heartwise/internal/util/jsonutil"
)

type rootOptions struct {
	configFile string
	envFile    string
	logLevel   string
	logFormat  string
	provider   string
	stubBPM    float64
	serverURL  string

	appOptions []app.Option
}

func newRootCmd(appOpts ...app.Option) *cobra.Command {
	opts := &rootOptions{appOptions: appOpts}
	cmd := &cobra.Command{
		Use:           "heartwise",
		Short:         "Heart-rate based heart attack risk demo",
		Long:          "HeartWise shows a simulated heart-rate reading and asks a generative model for a risk level and a time estimate.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "YAML config file (default "+config.DefaultFile+" when present)")
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format: json or console")
	pf.StringVar(&opts.provider, "provider", "", "inference backend: auto, gemini, groq, fake")
	pf.Float64Var(&opts.stubBPM, "stub-bpm", 0, "heart rate reported by the stub source")
	pf.StringVar(&opts.serverURL, "server", "", "call a running server at this URL instead of running locally")

	cmd.AddCommand(
		newServeCmd(opts),
		newReadingCmd(opts),
		newPredictCmd(opts),
		newEstimateCmd(opts),
	)
	return cmd
}

// loadConfig reads the configuration and applies the flags that were set.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.Options{EnvFile: o.envFile, File: o.configFile})
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}
	if flags.Changed("provider") {
		cfg.LLM.Provider = o.provider
	}
	if flags.Changed("stub-bpm") {
		cfg.HeartRate.StubBPM = o.stubBPM
	}
	if flags.Lookup("port") != nil && flags.Changed("port") {
		port, _ := flags.GetString("port")
		cfg.Port = config.NormalizePort(port)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *rootOptions) newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "heartwise")
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return log, nil
}

// localApp builds an App for one-shot commands. The caller must Close it.
func (o *rootOptions) localApp(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logger.NewStderr(cfg.Log.Level, cfg.Log.Format, "heartwise")
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	a, err := app.New(ctx, cfg, log, o.appOptions...)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := jsonutil.MarshalNoEscapeIndent(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
