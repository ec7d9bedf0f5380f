package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/middleware/cors"
	"github.com/noah-isme/scholarship-api/pkg/response"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4 * 1024
)

type eventSubscriber interface {
	Subscribe(types ...models.EventType) (<-chan models.Event, func())
}

type snapshotSource interface {
	Balance(ctx context.Context) (*models.PoolBalance, error)
}

// StreamMessage is one frame sent to a live refresh client.
type StreamMessage struct {
	Type  string              `json:"type"`
	Event *models.Event       `json:"event,omitempty"`
	Pool  *models.PoolBalance `json:"pool,omitempty"`
	At    time.Time           `json:"at"`
}

// EventsHandler streams workflow events over websockets.
type EventsHandler struct {
	events       eventSubscriber
	snapshots    snapshotSource
	pollInterval time.Duration
	upgrader     websocket.Upgrader
	logger       *zap.Logger
}

// NewEventsHandler constructs the handler. A nil subscriber disables the stream.
func NewEventsHandler(events eventSubscriber, snapshots snapshotSource, pollInterval time.Duration, allowedOrigins []string, logger *zap.Logger) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	policy := cors.NewPolicy(allowedOrigins)
	return &EventsHandler{
		events:       events,
		snapshots:    snapshots,
		pollInterval: pollInterval,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || policy.Allows(origin)
			},
		},
	}
}

// Stream godoc
// @Summary Live workflow events
// @Description Websocket stream. Send "refresh" to receive a snapshot; a snapshot is also sent when no event arrived within the poll interval.
// @Tags Events
// @Param types query string false "Comma separated event types"
// @Success 101
// @Router /events/ws [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	if h.events == nil {
		featureDisabled(c, "live events")
		return
	}
	types, err := parseEventTypes(c.Query("types"))
	if err != nil {
		response.Error(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	events, cancel := h.events.Subscribe(types...)
	defer cancel()

	refresh := make(chan struct{}, 1)
	closed := make(chan struct{})
	go h.readLoop(conn, refresh, closed)
	h.writeLoop(c.Request.Context(), conn, events, refresh, closed)
}

// readLoop only consumes client frames; a close or read error ends the stream.
func (h *EventsHandler) readLoop(conn *websocket.Conn, refresh chan<- struct{}, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(maxMessageSize)
	deadline := 2*h.pollInterval + writeWait
	_ = conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(deadline))
		if isRefreshRequest(message) {
			select {
			case refresh <- struct{}{}:
			default:
			}
		}
	}
}

// writeLoop owns the connection writer and the single fallback ticker.
func (h *EventsHandler) writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan models.Event, refresh <-chan struct{}, closed <-chan struct{}) {
	ticker := time.NewTicker(h.pollInterval)
	defer func() {
		ticker.Stop()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		conn.Close()
	}()

	delivered := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			ev := event
			if err := h.write(conn, StreamMessage{Type: "event", Event: &ev, At: time.Now().UTC()}); err != nil {
				return
			}
			delivered = true
		case <-refresh:
			if err := h.sendSnapshot(ctx, conn); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
			if !delivered {
				if err := h.sendSnapshot(ctx, conn); err != nil {
					return
				}
			}
			delivered = false
		}
	}
}

func (h *EventsHandler) sendSnapshot(ctx context.Context, conn *websocket.Conn) error {
	msg := StreamMessage{Type: "snapshot", At: time.Now().UTC()}
	if h.snapshots != nil {
		pool, err := h.snapshots.Balance(ctx)
		if err != nil {
			h.logger.Warn("snapshot read failed", zap.Error(err))
		} else {
			msg.Pool = pool
		}
	}
	return h.write(conn, msg)
}

func (h *EventsHandler) write(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

func isRefreshRequest(message []byte) bool {
	text := strings.TrimSpace(string(message))
	return strings.EqualFold(text, "refresh") || strings.Contains(strings.ReplaceAll(text, " ", ""), `"type":"refresh"`)
}

func parseEventTypes(raw string) ([]models.EventType, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	known := map[models.EventType]struct{}{
		models.EventApplicationSubmitted: {},
		models.EventVerificationOccurred: {},
		models.EventApprovalOccurred:     {},
		models.EventFundsDisbursed:       {},
		models.EventPoolDeposited:        {},
		models.EventRoleChanged:          {},
	}
	types := make([]models.EventType, 0)
	for _, part := range strings.Split(raw, ",") {
		t := models.EventType(strings.TrimSpace(part))
		if t == "" {
			continue
		}
		if _, ok := known[t]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown event type "+string(t))
		}
		types = append(types, t)
	}
	return types, nil
}
