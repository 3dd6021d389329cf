package heartrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"heartwise/internal/tester"
)

func TestStubSourceDefaults(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	src := NewStubSource(0).WithClock(func() time.Time { return at })

	r, err := src.Reading(context.Background())
	tester.NoErr(t, err)
	tester.Eq(t, r.BPM, float64(DefaultStubBPM))
	tester.True(t, r.Timestamp.Equal(at), "timestamp should come from the clock")
}

func TestStubSourceConfiguredBPM(t *testing.T) {
	r, err := NewStubSource(130).Reading(context.Background())
	tester.NoErr(t, err)
	tester.Eq(t, r.BPM, 130.0)
}

func TestStubSourceCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStubSource(72).Reading(ctx)
	tester.ErrIs(t, err, ErrSourceUnavailable)
	tester.ErrIs(t, err, context.Canceled)
}

func TestReadWrapsForeignErrors(t *testing.T) {
	boom := errors.New("sensor disconnected")
	src := SourceFunc(func(context.Context) (Reading, error) { return Reading{}, boom })

	_, err := Read(context.Background(), src)
	tester.ErrIs(t, err, ErrSourceUnavailable)
	tester.ErrIs(t, err, boom)
}

func TestReadRejectsNonPositiveBPM(t *testing.T) {
	src := SourceFunc(func(context.Context) (Reading, error) { return Reading{BPM: 0}, nil })
	_, err := Read(context.Background(), src)
	tester.ErrIs(t, err, ErrSourceUnavailable)
}

func TestReadNilSource(t *testing.T) {
	_, err := Read(context.Background(), nil)
	tester.ErrIs(t, err, ErrSourceUnavailable)
}
