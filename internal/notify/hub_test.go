package notify

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"heartwise/internal/tester"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestHub(t *testing.T, history int) *Hub {
	t.Helper()
	h, err := NewHub(history, nil)
	tester.NoErr(t, err)
	t.Cleanup(h.Close)
	return h
}

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func waitClosed(t *testing.T, ch <-chan Event) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("channel not closed")
		}
	}
}

func TestPublishStampsEvent(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	h := newTestHub(t, 4).WithClock(func() time.Time { return at })

	a := h.Publish(Event{Kind: KindInfo, Title: "hello"})
	b := h.Publish(Event{Kind: KindInfo, Title: "again"})
	tester.True(t, a.ID != "" && a.ID != b.ID, "ids must be unique")
	tester.True(t, a.Time.Equal(at), "time from clock")
	tester.Eq(t, a.Variant, VariantDefault)

	kept := h.Publish(Event{ID: "fixed", Kind: KindAlert, Variant: VariantDestructive})
	tester.Eq(t, kept.ID, "fixed")
	tester.Eq(t, kept.Variant, VariantDestructive)
}

func TestSubscribeReceivesLiveEvents(t *testing.T) {
	h := newTestHub(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, replay := h.Subscribe(ctx)
	tester.Eq(t, len(replay), 0)
	tester.Eq(t, h.Subscribers(), 1)

	h.Notify(Event{Kind: KindState, Title: "loading"})
	tester.Eq(t, recv(t, ch).Title, "loading")
}

func TestReplayIsBoundedAndOrdered(t *testing.T) {
	h := newTestHub(t, 3)
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		h.Publish(Event{Kind: KindInfo, Title: title})
	}
	_, replay := h.Subscribe(context.Background())
	titles := make([]string, len(replay))
	for i, e := range replay {
		titles[i] = e.Title
	}
	tester.Eq(t, titles, []string{"c", "d", "e"})
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	h := newTestHub(t, 1)
	ch, _ := h.Subscribe(context.Background())

	total := subscriberBuffer + 5
	for i := 0; i < total; i++ {
		h.Publish(Event{Kind: KindInfo, Description: string(rune('A' + i))})
	}
	first := recv(t, ch)
	tester.Eq(t, first.Description, string(rune('A'+total-subscriberBuffer)))
	var last Event
	for i := 1; i < subscriberBuffer; i++ {
		last = recv(t, ch)
	}
	tester.Eq(t, last.Description, string(rune('A'+total-1)))
}

func TestCancelUnsubscribes(t *testing.T) {
	h := newTestHub(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := h.Subscribe(ctx)
	cancel()
	waitClosed(t, ch)
	tester.Eq(t, h.Subscribers(), 0)

	h.Publish(Event{Kind: KindInfo})
}

func TestCloseEndsSubscriptions(t *testing.T) {
	h, err := NewHub(0, nil)
	tester.NoErr(t, err)
	ch, _ := h.Subscribe(context.Background())
	h.Publish(Event{Kind: KindInfo, Title: "before"})

	h.Close()
	h.Close()
	tester.Eq(t, recv(t, ch).Title, "before")
	waitClosed(t, ch)

	h.Publish(Event{Kind: KindInfo, Title: "after"})
	late, replay := h.Subscribe(context.Background())
	waitClosed(t, late)
	tester.Eq(t, len(replay), 1)
}

func TestRecorderAndMulti(t *testing.T) {
	var a, b Recorder
	n := Multi(&a, nil, &b)
	n.Notify(Event{Kind: KindAlert})
	n.Notify(Event{Kind: KindError})

	tester.Eq(t, a.Kinds(), []Kind{KindAlert, KindError})
	tester.Eq(t, len(b.Events()), 2)
	a.Reset()
	tester.Eq(t, len(a.Events()), 0)
}
