package gateway

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/averho/chatgate/internal/model"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Ping interval; must be less than pongWait
	pingPeriod = 54 * time.Second

	// Maximum inbound frame size
	maxMessageSize = 4096

	// Buffer size for outgoing frames
	sendBufferSize = 256
)

// Client is one authenticated websocket connection. It owns an immutable
// Identity and lives exactly as long as the underlying transport session.
type Client struct {
	identity model.Identity
	conn     *websocket.Conn
	send     chan []byte
	gw       *Gateway
}

func newClient(gw *Gateway, conn *websocket.Conn, identity model.Identity) *Client {
	return &Client{
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		gw:       gw,
	}
}

// Identity returns the identity bound at handshake time
func (c *Client) Identity() model.Identity {
	return c.identity
}

// trySend queues a frame without blocking. Returns false when the client's
// buffer is full, in which case the frame is dropped for this client.
func (c *Client) trySend(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// readPump reads command frames for the lifetime of the connection.
// Commands are dispatched in the order received. Any read error, including
// a normal close, tears the connection down.
func (c *Client) readPump() {
	defer c.gw.disconnect(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.gw.dispatch(c, data)
	}
}

// writePump drains the send buffer onto the wire and keeps the connection
// alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
