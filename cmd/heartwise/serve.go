package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"heartwise/internal/app"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the RPC server and event stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := opts.newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			a, err := app.New(cmd.Context(), cfg, log, opts.appOptions...)
			if err != nil {
				return err
			}
			log.Info("heartwise starting", zap.String("env", cfg.Env), zap.String("port", cfg.Port))
			if err := a.Run(cmd.Context()); err != nil {
				return err
			}
			log.Info("heartwise stopped")
			return nil
		},
	}
	cmd.Flags().String("port", "", "listen address, e.g. 8081 or :8081")
	return cmd
}
