package main

import (
	"context"

	"github.com/spf13/cobra"

	"heartwise/internal/app"
	"heartwise/internal/cardiac"
	"heartwise/internal/controller"
	"heartwise/internal/heartrate"
	"heartwise/internal/notify"
	"heartwise/internal/server"
)

type actionResult struct {
	View   controller.View `json:"view"`
	Events []notify.Event  `json:"events,omitempty"`
}

func newReadingCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reading",
		Short: "Print the current heart-rate reading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var (
				r   heartrate.Reading
				err error
			)
			if opts.serverURL != "" {
				r, err = server.NewClient(nil, opts.serverURL).GetReading(ctx)
			} else {
				err = opts.withLocalApp(ctx, cmd, func(a *app.App) error {
					r, err = a.Service.Reading(ctx)
					return err
				})
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), r)
		},
	}
}

func newPredictCmd(opts *rootOptions) *cobra.Command {
	var userData string
	var showEvents bool
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the heart attack risk level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var profile *cardiac.UserProfile
			if cmd.Flags().Changed("user-data") {
				p := cardiac.UserProfile(userData)
				profile = &p
			}
			ctx := cmd.Context()
			if opts.serverURL != "" {
				req := &server.PredictRiskRequest{}
				if profile != nil {
					s := string(*profile)
					req.UserData = &s
				}
				v, err := server.NewClient(nil, opts.serverURL).PredictRisk(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), actionResult{View: v})
			}
			return opts.runLocalAction(ctx, cmd, showEvents, func(c *controller.Controller) (controller.View, error) {
				return c.PredictRisk(ctx, profile)
			})
		},
	}
	cmd.Flags().StringVar(&userData, "user-data", "", "profile text such as age, gender and medical history")
	cmd.Flags().BoolVar(&showEvents, "events", false, "include the emitted events in the output")
	return cmd
}

func newEstimateCmd(opts *rootOptions) *cobra.Command {
	var (
		bpm, hrv   float64
		userData   string
		showEvents bool
	)
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the time window before a potential heart attack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			var in cardiac.EstimationInput
			if flags.Changed("bpm") {
				in.BPM = &bpm
			}
			if flags.Changed("hrv") {
				in.Variability = &hrv
			}
			if flags.Changed("user-data") {
				p := cardiac.UserProfile(userData)
				in.Profile = &p
			}
			ctx := cmd.Context()
			if opts.serverURL != "" {
				req := &server.EstimateTimeRequest{HeartRateBPM: in.BPM, HeartRateVariability: in.Variability}
				if in.Profile != nil {
					s := string(*in.Profile)
					req.UserData = &s
				}
				v, err := server.NewClient(nil, opts.serverURL).EstimateTime(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), actionResult{View: v})
			}
			return opts.runLocalAction(ctx, cmd, showEvents, func(c *controller.Controller) (controller.View, error) {
				return c.EstimateTime(ctx, in)
			})
		},
	}
	cmd.Flags().Float64Var(&bpm, "bpm", 0, "heart rate in beats per minute (default: current reading)")
	cmd.Flags().Float64Var(&hrv, "hrv", 0, "heart rate variability")
	cmd.Flags().StringVar(&userData, "user-data", "", "profile text such as age, gender and medical history")
	cmd.Flags().BoolVar(&showEvents, "events", false, "include the emitted events in the output")
	return cmd
}

func (o *rootOptions) withLocalApp(ctx context.Context, cmd *cobra.Command, fn func(*app.App) error) error {
	a, err := o.localApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
		_ = a.Log.Sync()
	}()
	return fn(a)
}

// runLocalAction reads the heart rate, runs one controller action and
// prints the resulting view, also when the action failed.
func (o *rootOptions) runLocalAction(ctx context.Context, cmd *cobra.Command, showEvents bool, action func(*controller.Controller) (controller.View, error)) error {
	return o.withLocalApp(ctx, cmd, func(a *app.App) error {
		a.Init(ctx)
		v, actionErr := action(a.Controller)
		res := actionResult{View: v}
		if showEvents {
			res.Events = a.Hub.History()
		}
		if err := printJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		return actionErr
	})
}
