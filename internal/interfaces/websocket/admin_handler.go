// Package websocket streams bot lifecycle events to the admin dashboard.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/btcbuzzbot/bot/internal/domain/repositories"
	"github.com/btcbuzzbot/bot/internal/infrastructure/messaging"
)

const statusPollInterval = 5 * time.Second

// AdminWebSocketHandler pushes post/price/news events to connected admin
// clients. When no Redis-backed broadcaster is configured it degrades to
// polling Store for the latest status, the same degrade-gracefully pattern
// messaging.JobLock uses for scheduling.
type AdminWebSocketHandler struct {
	broadcaster messaging.EventBroadcaster
	store       repositories.Store
	logger      *slog.Logger
}

// NewAdminWebSocketHandler constructs an AdminWebSocketHandler. broadcaster
// may be nil.
func NewAdminWebSocketHandler(broadcaster messaging.EventBroadcaster, store repositories.Store, logger *slog.Logger) *AdminWebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminWebSocketHandler{broadcaster: broadcaster, store: store, logger: logger.With(slog.String("component", "admin_websocket"))}
}

// Handle processes one admin WebSocket connection for its lifetime.
func (h *AdminWebSocketHandler) Handle(c *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.WriteJSON(fiberConnectedMessage()); err != nil {
		h.logger.Error("failed to send connection confirmation", slog.String("error", err.Error()))
		return
	}

	if h.broadcaster != nil {
		h.streamEvents(ctx, c)
	} else {
		go h.pollStatus(ctx, c)
	}

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			h.logger.Info("admin websocket closed", slog.String("error", err.Error()))
			cancel()
			return
		}
	}
}

func (h *AdminWebSocketHandler) streamEvents(ctx context.Context, c *websocket.Conn) {
	forward := func(channel string, payload []byte) error {
		var msg map[string]any
		if err := json.Unmarshal(payload, &msg); err != nil {
			return err
		}
		return c.WriteJSON(msg)
	}

	for _, channel := range []string{messaging.PostPublishedChannel, messaging.PriceFetchedChannel, messaging.NewsFetchedChannel} {
		if err := h.broadcaster.Subscribe(ctx, channel, forward); err != nil {
			h.logger.Error("failed to subscribe to channel", slog.String("channel", channel), slog.String("error", err.Error()))
		}
	}
}

func (h *AdminWebSocketHandler) pollStatus(ctx context.Context, c *websocket.Conn) {
	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status, err := h.store.GetLatestBotStatus(ctx)
			if err != nil {
				continue
			}
			msg := map[string]any{
				"event": "status",
				"data": map[string]any{
					"status":    status.GetStatus(),
					"message":   status.GetMessage(),
					"timestamp": status.GetTimestamp(),
				},
				"timestamp": time.Now().UTC(),
			}
			if err := c.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

func fiberConnectedMessage() map[string]any {
	return map[string]any{
		"event":     "connected",
		"data":      map[string]any{"server_time": time.Now().UTC().Format(time.RFC3339)},
		"timestamp": time.Now().UTC(),
	}
}
