package heartrate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultStubBPM is the reading reported by StubSource when no value is configured.
const DefaultStubBPM = 72

// ErrSourceUnavailable wraps every failure to produce a reading.
var ErrSourceUnavailable = errors.New("heart rate source unavailable")

// Reading is a single heart-rate measurement.
type Reading struct {
	BPM       float64   `json:"bpm"`
	Timestamp time.Time `json:"timestamp"`
}

// Source produces the current heart-rate reading.
// Implementations backed by hardware must report read failures wrapped
// with ErrSourceUnavailable.
type Source interface {
	Reading(ctx context.Context) (Reading, error)
}

// StubSource returns a constant BPM stamped with the current time.
type StubSource struct {
	bpm float64
	now func() time.Time
}

func NewStubSource(bpm float64) *StubSource {
	if bpm <= 0 {
		bpm = DefaultStubBPM
	}
	return &StubSource{bpm: bpm, now: time.Now}
}

// WithClock replaces the clock used to stamp readings.
func (s *StubSource) WithClock(now func() time.Time) *StubSource {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *StubSource) Reading(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return Reading{BPM: s.bpm, Timestamp: s.now()}, nil
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Reading, error)

func (f SourceFunc) Reading(ctx context.Context) (Reading, error) { return f(ctx) }

// Validate reports whether r carries a usable measurement.
func (r Reading) Validate() error {
	if r.BPM <= 0 {
		return fmt.Errorf("%w: non-positive bpm %v", ErrSourceUnavailable, r.BPM)
	}
	return nil
}

// Read queries src and checks the reading it returns.
func Read(ctx context.Context, src Source) (Reading, error) {
	if src == nil {
		return Reading{}, fmt.Errorf("%w: no source configured", ErrSourceUnavailable)
	}
	r, err := src.Reading(ctx)
	if err != nil {
		if errors.Is(err, ErrSourceUnavailable) {
			return Reading{}, err
		}
		return Reading{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	if err := r.Validate(); err != nil {
		return Reading{}, err
	}
	return r, nil
}
