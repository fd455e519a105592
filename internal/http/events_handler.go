package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/example/meetings-dashboard/internal/application"
)

const eventWriteTimeout = 5 * time.Second

type eventSource interface {
	Subscribe(filter application.EventFilter) (<-chan application.Event, func())
}

// EventsHandler streams the caller's auth and meeting events over a
// WebSocket as JSON messages. The stream is one-way; anything the client
// sends is ignored.
type EventsHandler struct {
	source        eventSource
	allowInsecure bool
	logger        *slog.Logger
	responder     responder
}

// NewEventsHandler builds the handler. allowInsecure disables the origin
// check and is meant for local development only.
func NewEventsHandler(source eventSource, allowInsecure bool, logger *slog.Logger) *EventsHandler {
	base := defaultLogger(logger)
	return &EventsHandler{source: source, allowInsecure: allowInsecure, logger: base, responder: newResponder(base)}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_REQUIRED",
			Message:   statusMessage(http.StatusUnauthorized),
		})
		return
	}

	connID := uuid.NewString()
	logger := handlerLogger(ctx, h.logger, "EventsHandler", "Stream", "user_id", principal.UserID, "connection_id", connID)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: h.allowInsecure,
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to accept websocket", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	events, cancel := h.source.Subscribe(application.EventFilter{UserID: principal.UserID})
	defer cancel()

	// CloseRead discards client frames and cancels ctx once the peer goes away.
	ctx = conn.CloseRead(ctx)
	logger.InfoContext(ctx, "event stream opened")

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "event stream closed")
			return
		case event, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "subscription ended")
				return
			}
			if err := h.send(ctx, conn, event); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.WarnContext(ctx, "failed to send event", "kind", event.Kind, "error", err)
				}
				return
			}
		}
	}
}

func (h *EventsHandler) send(ctx context.Context, conn *websocket.Conn, event application.Event) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, event)
}
