package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/averho/chatgate/internal/api/apierr"
	"github.com/averho/chatgate/internal/auth"
	"github.com/averho/chatgate/internal/gateway/fanout"
	"github.com/averho/chatgate/internal/model"
	"github.com/averho/chatgate/internal/storage"
)

const membershipQueryTimeout = 10 * time.Second

// Config holds gateway behavior settings
type Config struct {
	// AutoJoinRooms joins each new connection to all rooms its user
	// participates in
	AutoJoinRooms bool

	// AllowedOrigins restricts which origins may open websocket
	// connections. Empty means same-origin only.
	AllowedOrigins []string

	// RedisURL enables the fanout adapter when non-empty
	RedisURL string
}

// Gateway authenticates inbound websocket connections, binds them to room
// channels, and relays room broadcasts. It is the sole owner of the hub and
// of the optional fanout adapter.
type Gateway struct {
	cfg      Config
	verifier *auth.Verifier
	store    storage.MembershipStore
	hub      *Hub
	fanout   *fanout.Adapter
	upgrader websocket.Upgrader
	logger   *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// New wires a gateway onto its collaborators. When cfg.RedisURL is set the
// fanout adapter is constructed here; its subscription proceeds in the
// background and connection acceptance never waits for it.
func New(cfg Config, verifier *auth.Verifier, store storage.MembershipStore, logger *slog.Logger) (*Gateway, error) {
	g := &Gateway{
		cfg:      cfg,
		verifier: verifier,
		store:    store,
		logger:   logger.With(slog.String("component", "gateway")),
	}
	g.hub = newHub(logger)
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}

	if cfg.RedisURL != "" {
		adapter, err := fanout.New(cfg.RedisURL, g.deliverRemote, logger)
		if err != nil {
			return nil, err
		}
		g.fanout = adapter
	}

	return g, nil
}

// originChecker accepts requests with no Origin header (non-browser
// clients) or an origin from the allowed list
func originChecker(allowed []string) func(*http.Request) bool {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		allowedSet[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowedSet[origin]
		return ok
	}
}

// ServeHTTP is the websocket handshake endpoint. The credential is
// extracted and verified before the upgrade; a connection that fails
// verification is refused and never reaches any room-scoped operation.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := g.verifier.Verify(auth.ExtractToken(r))
	if err != nil {
		if errors.Is(err, model.ErrMissingSecret) {
			g.logger.Error("handshake refused: misconfigured secret")
		} else {
			g.logger.Debug("handshake refused", slog.String("error", err.Error()))
		}
		apierr.WriteError(w, err)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := newClient(g, conn, identity)

	// The private user channel is joined before the pumps start so other
	// subsystems can target this user immediately.
	g.hub.Join(client, model.UserChannel(identity.ID))

	g.logger.Info("connection established",
		slog.Int64("user_id", identity.ID),
		slog.String("username", identity.Username))

	go client.writePump()
	go func() {
		// Auto-join runs in the connection's own goroutine: it must finish
		// before commands are read, but it never blocks other connections.
		if g.cfg.AutoJoinRooms {
			g.autoJoin(client)
		}
		client.readPump()
	}()
}

// autoJoin subscribes the client to every distinct room its user
// participates in. The participant data may contain repeated rows; each
// distinct room is joined exactly once.
func (g *Gateway) autoJoin(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), membershipQueryTimeout)
	defer cancel()

	roomIDs, err := g.store.RoomsForUser(ctx, c.identity.ID)
	if err != nil {
		// Fail closed: the connection stays up but joins nothing
		g.logger.Warn("room auto-join failed",
			slog.Int64("user_id", c.identity.ID),
			slog.String("error", err.Error()))
		return
	}

	for _, id := range roomIDs {
		g.joinChannel(c, model.RoomChannel(id))
	}
}

// dispatch routes one inbound frame. The command set is closed; unknown
// events are answered with an error frame rather than passed through.
func (g *Gateway) dispatch(c *Client, data []byte) {
	var frame model.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		g.sendError(c, "malformed frame")
		return
	}

	switch frame.Event {
	case model.CmdJoinRoom:
		g.handleJoinRoom(c, frame.Data)
	case model.CmdLeaveRoom:
		g.handleLeaveRoom(c, frame.Data)
	case model.CmdJoinRooms:
		g.handleJoinRooms(c, frame.Data)
	default:
		g.sendError(c, "unknown event")
	}
}

func (g *Gateway) handleJoinRoom(c *Client, data json.RawMessage) {
	id, err := decodeRoomID(data)
	if err != nil {
		g.sendError(c, "invalid room id")
		return
	}
	g.joinChannel(c, model.RoomChannel(id))
}

func (g *Gateway) handleLeaveRoom(c *Client, data json.RawMessage) {
	id, err := decodeRoomID(data)
	if err != nil {
		g.sendError(c, "invalid room id")
		return
	}
	channel := model.RoomChannel(id)
	if g.hub.Leave(c, channel) {
		g.ack(c, model.EventLeft, channel)
	}
}

// handleJoinRooms is the bulk join. Null and empty entries are skipped
// rather than failing the whole command; duplicates collapse to a single
// join inside the hub.
func (g *Gateway) handleJoinRooms(c *Client, data json.RawMessage) {
	var entries []any
	if err := json.Unmarshal(data, &entries); err != nil {
		g.sendError(c, "invalid room list")
		return
	}

	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if s, ok := entry.(string); ok && s == "" {
			continue
		}
		id, err := model.ParseRoomID(entry)
		if err != nil {
			g.sendError(c, "invalid room id")
			continue
		}
		g.joinChannel(c, model.RoomChannel(id))
	}
}

func (g *Gateway) joinChannel(c *Client, channel string) {
	if g.hub.Join(c, channel) {
		g.ack(c, model.EventJoined, channel)
	}
}

// decodeRoomID unmarshals a command payload that is a bare room id, as a
// JSON number or numeric string
func decodeRoomID(data json.RawMessage) (int64, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, model.ErrInvalidRoomID
	}
	return model.ParseRoomID(raw)
}

func (g *Gateway) ack(c *Client, event, channel string) {
	frame, err := json.Marshal(model.Frame{Event: event, Channel: channel})
	if err != nil {
		return
	}
	c.trySend(frame)
}

func (g *Gateway) sendError(c *Client, message string) {
	data, _ := json.Marshal(model.ErrorPayload{Message: message})
	frame, err := json.Marshal(model.Frame{Event: model.EventError, Data: data})
	if err != nil {
		return
	}
	c.trySend(frame)
}

// Broadcast relays an event to every connection subscribed to the channel,
// locally and, when the fanout adapter is enabled, on peer processes.
func (g *Gateway) Broadcast(ctx context.Context, channel, event string, data json.RawMessage) error {
	frame, err := json.Marshal(model.Frame{Event: event, Channel: channel, Data: data})
	if err != nil {
		return err
	}

	g.hub.Broadcast(channel, frame)

	if g.fanout != nil {
		return g.fanout.Publish(ctx, channel, frame)
	}
	return nil
}

// deliverRemote feeds broadcasts arriving from peer processes into the
// local hub
func (g *Gateway) deliverRemote(channel string, frame []byte) {
	g.hub.Broadcast(channel, frame)
}

// disconnect releases the client's hub registrations and closes its send
// channel, which stops the write pump and closes the socket. Runs when the
// read pump unwinds, whatever the reason for the disconnect.
func (g *Gateway) disconnect(c *Client) {
	g.hub.Remove(c)
	close(c.send)
	g.logger.Info("connection closed", slog.Int64("user_id", c.identity.ID))
}

// Hub exposes the channel registry, mainly for handlers that need presence
// information and for tests
func (g *Gateway) Hub() *Hub {
	return g.hub
}

// Close shuts the gateway down: the fanout adapter's broker connections
// first (when enabled), then every live client connection. Safe to call
// when the adapter was never enabled, and subsequent calls return the
// first result.
func (g *Gateway) Close() error {
	g.closeOnce.Do(func() {
		if g.fanout != nil {
			g.closeErr = g.fanout.Close()
		}
		g.hub.closeConns()
		g.logger.Info("gateway closed")
	})
	return g.closeErr
}
