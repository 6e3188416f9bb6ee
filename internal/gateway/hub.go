package gateway

import (
	"log/slog"
	"sync"
)

// Hub tracks which local clients are subscribed to which channels and
// delivers channel broadcasts to them. Channel names cover both room
// channels and private user channels; the hub does not distinguish them.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Client]struct{}
	clients  map[*Client]map[string]struct{}
	logger   *slog.Logger
}

func newHub(logger *slog.Logger) *Hub {
	return &Hub{
		channels: make(map[string]map[*Client]struct{}),
		clients:  make(map[*Client]map[string]struct{}),
		logger:   logger.With(slog.String("component", "hub")),
	}
}

// Join subscribes the client to a channel. Returns false when the client
// was already subscribed, which is the single point where duplicate joins
// collapse.
func (h *Hub) Join(c *Client, channel string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.clients[c]
	if !ok {
		subs = make(map[string]struct{})
		h.clients[c] = subs
	}
	if _, joined := subs[channel]; joined {
		return false
	}
	subs[channel] = struct{}{}

	members, ok := h.channels[channel]
	if !ok {
		members = make(map[*Client]struct{})
		h.channels[channel] = members
	}
	members[c] = struct{}{}

	h.logger.Debug("client joined channel",
		slog.Int64("user_id", c.identity.ID),
		slog.String("channel", channel))
	return true
}

// Leave unsubscribes the client from a channel. Leaving a channel the
// client never joined is a no-op.
func (h *Hub) Leave(c *Client, channel string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.leaveLocked(c, channel)
}

func (h *Hub) leaveLocked(c *Client, channel string) bool {
	subs, ok := h.clients[c]
	if !ok {
		return false
	}
	if _, joined := subs[channel]; !joined {
		return false
	}
	delete(subs, channel)

	if members, ok := h.channels[channel]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.channels, channel)
		}
	}
	return true
}

// Remove drops all of the client's subscriptions. Called on disconnect so
// a vanished client releases its bookkeeping without further interaction.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for channel := range h.clients[c] {
		h.leaveLocked(c, channel)
	}
	delete(h.clients, c)
}

// Broadcast queues a frame for every client subscribed to the channel and
// returns the delivery count. Slow consumers are skipped rather than
// stalling the hub.
func (h *Hub) Broadcast(channel string, frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.channels[channel] {
		if c.trySend(frame) {
			delivered++
		} else {
			h.logger.Warn("dropping frame for slow client",
				slog.Int64("user_id", c.identity.ID),
				slog.String("channel", channel))
		}
	}
	return delivered
}

// Channels returns the channels the client is currently subscribed to
func (h *Hub) Channels(c *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	channels := make([]string, 0, len(h.clients[c]))
	for channel := range h.clients[c] {
		channels = append(channels, channel)
	}
	return channels
}

// ClientCount returns the number of clients subscribed to a channel
func (h *Hub) ClientCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// closeConns closes the underlying connection of every tracked client,
// letting each read pump unwind and release its registrations
func (h *Hub) closeConns() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		_ = c.conn.Close()
	}
}
