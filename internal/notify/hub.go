// Package notify carries user-facing events from the controller to whoever
// listens: the websocket stream, the CLI or a test.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"heartwise/internal/logger"
)

type Kind string

const (
	KindState Kind = "state"
	KindAlert Kind = "alert"
	KindError Kind = "error"
	KindInfo  Kind = "info"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Event is one notice. Payload usually holds a view snapshot.
type Event struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Variant     Variant   `json:"variant"`
	Payload     any       `json:"payload,omitempty"`
	Time        time.Time `json:"time"`
}

// Notifier receives events. Implementations must not block.
type Notifier interface {
	Notify(Event)
}

type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

// Discard drops every event.
var Discard Notifier = NotifierFunc(func(Event) {})

const (
	DefaultHistory   = 64
	subscriberBuffer = 16
)

type subscriber struct {
	ch   chan Event
	stop func() bool
}

// Hub fans events out to subscribers and keeps the most recent ones for
// replay. A slow subscriber loses its oldest pending event, never blocks
// the publisher.
type Hub struct {
	mu      sync.Mutex
	subs    map[uint64]*subscriber
	nextSub uint64
	seq     uint64
	history *lru.Cache[uint64, Event]
	closed  bool
	now     func() time.Time
	log     *zap.Logger
}

func NewHub(historySize int, log *zap.Logger) (*Hub, error) {
	if historySize <= 0 {
		historySize = DefaultHistory
	}
	history, err := lru.New[uint64, Event](historySize)
	if err != nil {
		return nil, err
	}
	return &Hub{
		subs:    make(map[uint64]*subscriber),
		history: history,
		now:     time.Now,
		log:     logger.OrNop(log),
	}, nil
}

// WithClock replaces the clock used to stamp events.
func (h *Hub) WithClock(now func() time.Time) *Hub {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *Hub) Notify(e Event) { h.Publish(e) }

// Publish stamps e with an id and time when missing, records it and delivers
// it to every subscriber. It returns the stamped event.
func (h *Hub) Publish(e Event) Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = h.now()
	}
	if e.Variant == "" {
		e.Variant = VariantDefault
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return e
	}
	h.seq++
	h.history.Add(h.seq, e)
	for id, s := range h.subs {
		if !push(s.ch, e) {
			h.log.Debug("subscriber dropped event", zap.Uint64("subscriber", id), zap.String("kind", string(e.Kind)))
		}
	}
	return e
}

// Subscribe registers a listener until ctx is done or the hub closes, and
// returns the recorded history, oldest first.
func (h *Hub) Subscribe(ctx context.Context) (<-chan Event, []Event) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	replay := h.historyLocked()
	if h.closed {
		close(ch)
		return ch, replay
	}
	h.nextSub++
	id := h.nextSub
	s := &subscriber{ch: ch}
	h.subs[id] = s
	s.stop = context.AfterFunc(ctx, func() { h.unsubscribe(id) })
	return ch, replay
}

// History returns the recorded events, oldest first.
func (h *Hub) History() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.historyLocked()
}

func (h *Hub) historyLocked() []Event {
	keys := h.history.Keys()
	out := make([]Event, 0, len(keys))
	for _, k := range keys {
		if e, ok := h.history.Peek(k); ok {
			out = append(out, e)
		}
	}
	return out
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.ch)
	}
}

// Close ends every subscription. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		if s.stop != nil {
			s.stop()
		}
		close(s.ch)
		delete(h.subs, id)
	}
}

// push delivers e, dropping the oldest queued event when ch is full.
// It reports false when something was dropped.
func push(ch chan Event, e Event) bool {
	select {
	case ch <- e:
		return true
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- e:
	default:
	}
	return false
}
