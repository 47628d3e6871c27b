package ws

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"message-service/internal/observability"
)

// Hub is the in-process registry of broadcast groups. A group exists while
// it has at least one client.
type Hub struct {
	groups map[string]map[*Client]struct{}
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		groups: make(map[string]map[*Client]struct{}),
		logger: logger.With(zap.String("component", "hub")),
	}
}

// Join registers a client to a group, creating the group on first join.
func (h *Hub) Join(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.groups[group]; !ok {
		h.groups[group] = make(map[*Client]struct{})
	}
	h.groups[group][c] = struct{}{}
}

// Leave removes a client and drops the group once empty.
func (h *Hub) Leave(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.groups[group]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.groups, group)
		}
	}
}

// Publish delivers payload to the local members of group. It never blocks
// on a slow client.
func (h *Hub) Publish(_ context.Context, group string, payload []byte) error {
	h.Deliver(group, payload)
	return nil
}

// Deliver enqueues payload to every client in group and returns how many accepted it.
func (h *Hub) Deliver(group string, payload []byte) int {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.groups[group]))
	for c := range h.groups[group] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range clients {
		if c.Enqueue(payload) {
			delivered++
			continue
		}
		observability.IncFanout(groupKind(group), "dropped")
		h.logger.Warn("dropping message for slow client", zap.String("group", group), zap.String("conn_id", c.Info.ConnID))
	}
	return delivered
}

func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// Groups snapshots group sizes.
func (h *Hub) Groups() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]int, len(h.groups))
	for name, clients := range h.groups {
		out[name] = len(clients)
	}
	return out
}

func groupKind(group string) string {
	if strings.HasPrefix(group, "inbox_") {
		return kindInbox
	}
	return kindConversation
}
