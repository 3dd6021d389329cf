package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"heartwise/internal/logger"
	"heartwise/internal/notify"
)

const (
	eventsWSWriteWait = 10 * time.Second
	eventsWSPongWait  = 60 * time.Second
	eventsWSPingEvery = (eventsWSPongWait * 9) / 10
	eventsWSQueue     = 32
)

var eventsWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type eventsWSInbound struct {
	Type string `json:"type"`
}

type eventsWSOutbound struct {
	Type    string        `json:"type"`
	Event   *notify.Event `json:"event,omitempty"`
	Replay  bool          `json:"replay,omitempty"`
	Code    string        `json:"code,omitempty"`
	Message string        `json:"message,omitempty"`
}

// EventsHandler streams controller events over a websocket.
type EventsHandler struct {
	hub *notify.Hub
	log *zap.Logger
	// pingEvery is overridden in tests.
	pingEvery time.Duration
}

func NewEventsHandler(hub *notify.Hub, log *zap.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, log: logger.OrNop(log), pingEvery: eventsWSPingEvery}
}

// HandleEvents upgrades the connection, replays recent events unless
// ?replay=false and then forwards live ones until either side closes.
func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	replay := !strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("replay")), "false")

	conn, err := eventsWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("events ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(eventsWSPongWait)); err != nil {
		h.log.Warn("events ws set read deadline failed", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsWSPongWait))
	})

	writeCh := make(chan eventsWSOutbound, eventsWSQueue)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		ticker := time.NewTicker(h.pingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(eventsWSWriteWait))
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	subCh, history := h.hub.Subscribe(ctx)
	pushEventsWS(writeCh, eventsWSOutbound{Type: "subscribed"})
	if replay {
		for i := range history {
			pushEventsWS(writeCh, eventsWSOutbound{Type: "event", Event: &history[i], Replay: true})
		}
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-subCh:
				if !ok {
					cancel()
					return
				}
				pushEventsWS(writeCh, eventsWSOutbound{Type: "event", Event: &evt})
			}
		}
	}()

	// The read loop only serves pings from clients and notices disconnects.
	go func() {
		for {
			var in eventsWSInbound
			if err := conn.ReadJSON(&in); err != nil {
				cancel()
				return
			}
			switch strings.ToLower(strings.TrimSpace(in.Type)) {
			case "ping":
				pushEventsWS(writeCh, eventsWSOutbound{Type: "pong"})
			default:
				pushEventsWS(writeCh, eventsWSOutbound{
					Type:    "error",
					Code:    "invalid_argument",
					Message: "unsupported type: " + in.Type,
				})
			}
		}
	}()

	<-writerDone
	h.log.Debug("events ws closed")
}

// pushEventsWS queues out, dropping the oldest queued message when full.
func pushEventsWS(writeCh chan eventsWSOutbound, out eventsWSOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
