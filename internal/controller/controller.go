// Package controller owns the view state and runs the user actions against
// the cardiac service.
//
// State machine:
//
//	Idle|Ready|AlertRaised --action--> Loading
//	Loading --success--> Ready, or AlertRaised when the risk is high
//	Loading --failure--> the state held before the action, fields untouched
//	AlertRaised --dismiss--> Ready
//
// Only one action runs at a time; a second one fails with ErrBusy.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"heartwise/internal/cardiac"
	"heartwise/internal/heartrate"
	"heartwise/internal/logger"
	"heartwise/internal/notify"
)

var ErrBusy = errors.New("controller: another action is in flight")

// Cardiac is what the controller needs from the cardiac service.
type Cardiac interface {
	Reading(ctx context.Context) (heartrate.Reading, error)
	PredictRisk(ctx context.Context, profile cardiac.UserProfile) (cardiac.RiskPrediction, error)
	EstimateTime(ctx context.Context, in cardiac.EstimationInput) (cardiac.TimeEstimate, error)
}

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option { return func(c *Controller) { c.log = logger.OrNop(l) } }

// WithNotifier sets where events go. The notifier is called with the
// controller lock held and must not call back into the controller.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithProfile sets the initial user profile text.
func WithProfile(p cardiac.UserProfile) Option { return func(c *Controller) { c.profile = p } }

type Controller struct {
	svc      Cardiac
	notifier notify.Notifier
	log      *zap.Logger
	now      func() time.Time
	profile  cardiac.UserProfile

	mu   sync.Mutex
	view View
	// prev is the view before the in-flight action, restored on failure.
	prev View
	// measured is set once the heart rate came from the source.
	measured bool
}

func New(svc Cardiac, opts ...Option) *Controller {
	c := &Controller{
		svc:      svc,
		notifier: notify.Discard,
		log:      zap.NewNop(),
		now:      time.Now,
		profile:  cardiac.DefaultUserProfile,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.view = initialView(c.profile, c.now())
	return c
}

// Snapshot returns a copy of the current view.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.clone()
}

// Init reads the heart rate once. On failure the defaults stay in place.
func (c *Controller) Init(ctx context.Context) error {
	r, err := c.svc.Reading(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.log.Warn("initial heart rate read failed", zap.Error(err))
		c.emitLocked(notify.Event{
			Kind:        notify.KindError,
			Title:       "Error",
			Description: "Failed to read heart rate.",
			Variant:     notify.VariantDestructive,
			Payload:     c.view.clone(),
		})
		return err
	}
	c.view.HeartRate = r.BPM
	c.view.UpdatedAt = c.now()
	c.measured = true
	if c.view.State == Loading {
		c.prev.HeartRate = r.BPM
		c.prev.UpdatedAt = c.view.UpdatedAt
	}
	c.log.Info("heart rate read", zap.Float64("bpm", r.BPM))
	c.emitStateLocked()
	return nil
}

// PredictRisk classifies the risk for profile, or for the stored profile
// when profile is nil.
func (c *Controller) PredictRisk(ctx context.Context, profile *cardiac.UserProfile) (View, error) {
	prev, err := c.begin(ActionPredict)
	if err != nil {
		return c.Snapshot(), err
	}
	p := prev.UserData
	if profile != nil {
		p = *profile
	}

	pred, err := c.svc.PredictRisk(ctx, p)
	if err != nil {
		return c.fail(ActionPredict, "Failed to predict risk. Please try again.", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.UserData = p
	c.view.RiskLevel = pred.RiskLevel
	c.view.EstimatedTime = pred.EstimatedTimeWindow
	c.view.Explanation = pred.Explanation
	c.view.ConfidenceLevel = nil
	c.view.Rationale = ""
	c.finishLocked(ActionPredict, pred.RiskLevel)
	return c.view.clone(), nil
}

// EstimateTime estimates the time window. A nil BPM or profile in in is
// taken from the view: the measured heart rate and the stored profile.
// Without a measured heart rate the source is queried.
func (c *Controller) EstimateTime(ctx context.Context, in cardiac.EstimationInput) (View, error) {
	prev, err := c.begin(ActionEstimate)
	if err != nil {
		return c.Snapshot(), err
	}
	c.mu.Lock()
	measured := c.measured
	c.mu.Unlock()
	if in.BPM == nil && measured {
		bpm := prev.HeartRate
		in.BPM = &bpm
	}
	if in.Profile == nil {
		p := prev.UserData
		in.Profile = &p
	}

	est, err := c.svc.EstimateTime(ctx, in)
	if err != nil {
		return c.fail(ActionEstimate, "Failed to estimate time. Please try again.", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.RiskLevel = est.RiskLevel
	c.view.EstimatedTime = est.EstimatedTimeWindow
	confidence := est.ConfidenceLevel
	c.view.ConfidenceLevel = &confidence
	c.view.Rationale = est.Rationale
	c.view.Explanation = ""
	c.finishLocked(ActionEstimate, est.RiskLevel)
	return c.view.clone(), nil
}

// DismissAlert hides the emergency notice and keeps every field. It is a
// no-op when no alert is shown.
func (c *Controller) DismissAlert() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.view.AlertVisible {
		return c.view.clone()
	}
	c.view.AlertVisible = false
	c.view.Alert = nil
	if c.view.State == AlertRaised {
		c.view.State = Ready
	}
	if c.view.State == Loading && c.prev.State == AlertRaised {
		c.prev.State = Ready
		c.prev.AlertVisible = false
		c.prev.Alert = nil
	}
	c.view.UpdatedAt = c.now()
	c.log.Info("alert dismissed")
	c.emitStateLocked()
	return c.view.clone()
}

// SetProfile replaces the stored profile text.
func (c *Controller) SetProfile(p cardiac.UserProfile) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view.State == Loading {
		return c.view.clone(), ErrBusy
	}
	c.view.UserData = p
	c.view.UpdatedAt = c.now()
	c.emitStateLocked()
	return c.view.clone(), nil
}

func (c *Controller) begin(a Action) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view.State == Loading {
		c.log.Debug("action rejected", zap.String("action", string(a)), zap.String("in_flight", string(c.view.InFlight)))
		return View{}, ErrBusy
	}
	c.prev = c.view.clone()
	c.view.State = Loading
	c.view.Loading = true
	c.view.InFlight = a
	c.log.Info("action started", zap.String("action", string(a)), zap.String("from", string(c.prev.State)))
	c.emitStateLocked()
	return c.prev.clone(), nil
}

func (c *Controller) fail(a Action, notice string, err error) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = c.prev.clone()
	c.log.Warn("action failed", zap.String("action", string(a)), zap.String("restored", string(c.view.State)), zap.Error(err))
	c.emitLocked(notify.Event{
		Kind:        notify.KindError,
		Title:       "Error",
		Description: notice,
		Variant:     notify.VariantDestructive,
		Payload:     c.view.clone(),
	})
	return c.view.clone(), err
}

func (c *Controller) finishLocked(a Action, level cardiac.RiskLevel) {
	c.view.Loading = false
	c.view.InFlight = ""
	c.view.UpdatedAt = c.now()
	if level == cardiac.RiskHigh {
		c.view.State = AlertRaised
		c.view.AlertVisible = true
		alert := emergencyAlert
		c.view.Alert = &alert
	} else {
		c.view.State = Ready
		c.view.AlertVisible = false
		c.view.Alert = nil
	}
	c.log.Info("action finished",
		zap.String("action", string(a)),
		zap.String("risk_level", string(level)),
		zap.String("state", string(c.view.State)),
	)
	c.emitStateLocked()
	if c.view.State == AlertRaised {
		c.emitLocked(notify.Event{
			Kind:        notify.KindAlert,
			Title:       "High Risk Detected",
			Description: "A high heart attack risk has been detected. Please seek medical attention immediately.",
			Variant:     notify.VariantDestructive,
			Payload:     c.view.clone(),
		})
	}
}

func (c *Controller) emitStateLocked() {
	c.emitLocked(notify.Event{
		Kind:    notify.KindState,
		Title:   string(c.view.State),
		Payload: c.view.clone(),
	})
}

func (c *Controller) emitLocked(e notify.Event) {
	if e.Time.IsZero() {
		e.Time = c.now()
	}
	c.notifier.Notify(e)
}
