package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Axeist/cuephoria-pos/internal/models"
	"github.com/Axeist/cuephoria-pos/internal/monitoring"
)

// Hub tracks dashboard connections and fans out station snapshots after
// every reconciled change.
type Hub struct {
	mu           sync.RWMutex
	clients      map[*Client]struct{}
	pingInterval time.Duration
	logger       *zap.Logger
}

// NewHub builds the connection hub.
func NewHub(pingInterval time.Duration, logger *zap.Logger) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		clients:      make(map[*Client]struct{}),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	monitoring.WSClientConnected(1)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		monitoring.WSClientConnected(-1)
	}
	h.mu.Unlock()
}

// BroadcastStations sends the settled station collection to every client.
// Slow clients are dropped rather than allowed to stall the fan-out.
func (h *Hub) BroadcastStations(stations []*models.Station) {
	payload, err := json.Marshal(map[string]interface{}{
		"type": "stations",
		"data": stations,
	})
	if err != nil {
		h.logger.Warn("station broadcast encode failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(payload) {
			h.logger.Warn("dropping slow dashboard client")
			c.close()
			h.remove(c)
		}
	}
}

// Start blocks until ctx is cancelled, then closes every connection. Keepalive
// pings are each client's own business: writePump owns the connection's write
// side, ticker included.
func (h *Hub) Start(ctx context.Context) {
	<-ctx.Done()
	h.mu.Lock()
	for c := range h.clients {
		c.close()
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()
}
