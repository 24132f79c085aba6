package events

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Tatenda/fullstori/pkg/apperror"
	"github.com/Tatenda/fullstori/pkg/logger"
	"github.com/Tatenda/fullstori/pkg/metrics"
	"github.com/Tatenda/fullstori/pkg/sse"
)

// HeartbeatInterval is how often idle streams receive a heartbeat
const HeartbeatInterval = 30 * time.Second

// Handler serves per-graph change streams over SSE
type Handler struct {
	svc       *Service
	log       *slog.Logger
	heartbeat time.Duration

	connMu      sync.Mutex
	connections map[string]chan struct{}
}

// NewHandler creates a new events handler
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{
		svc:         svc,
		log:         log.With(logger.Scope("events.handler")),
		heartbeat:   HeartbeatInterval,
		connections: make(map[string]chan struct{}),
	}
}

// Stop closes every open stream.
func (h *Handler) Stop() {
	h.connMu.Lock()
	defer h.connMu.Unlock()

	for id, done := range h.connections {
		close(done)
		delete(h.connections, id)
	}
}

// ConnectionCount returns the number of open streams.
func (h *Handler) ConnectionCount() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return len(h.connections)
}

// HandleStream handles GET /api/graphs/:graphId/stream
func (h *Handler) HandleStream(c echo.Context) error {
	graphID := c.Param("graphId")
	if graphID == "" {
		return apperror.NewBadRequest("graphId is required")
	}

	w := sse.NewWriter(c.Response())
	if err := w.Start(); err != nil {
		return apperror.ErrInternal.WithMessage("streaming not supported")
	}
	defer w.Close()

	connID := generateConnectionID()
	done := make(chan struct{})
	h.connMu.Lock()
	h.connections[connID] = done
	h.connMu.Unlock()
	metrics.StreamSubscribers.Inc()

	defer func() {
		h.connMu.Lock()
		if _, ok := h.connections[connID]; ok {
			delete(h.connections, connID)
		}
		h.connMu.Unlock()
		metrics.StreamSubscribers.Dec()
	}()

	log := h.log.With(slog.String("connection_id", connID), slog.String("graph_id", graphID))
	log.Info("stream opened")

	if err := w.WriteEvent(sse.EventConnected, sse.ConnectedEvent{ConnectionID: connID, Topic: graphID}); err != nil {
		return nil
	}

	unsubscribe := h.svc.Subscribe(graphID, func(e ChangeEvent) {
		if err := w.WriteEvent(string(e.Type), e); err != nil && err != sse.ErrClosed {
			log.Warn("failed to write change event", logger.Error(err))
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			log.Info("stream closed by client")
			return nil
		case <-done:
			log.Info("stream closed by server")
			return nil
		case <-ticker.C:
			if err := w.WriteEvent(sse.EventHeartbeat, sse.NewHeartbeat()); err != nil {
				log.Warn("heartbeat failed, closing stream", logger.Error(err))
				return nil
			}
		}
	}
}

// HandleConnectionsCount handles GET /api/streams/count
func (h *Handler) HandleConnectionsCount(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]int{
		"connections": h.ConnectionCount(),
		"subscribers": h.svc.GetTotalSubscriberCount(),
	})
}

func generateConnectionID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return fmt.Sprintf("sse_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(b))
}
