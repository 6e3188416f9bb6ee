package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/averho/chatgate/internal/auth"
	"github.com/averho/chatgate/internal/model"
	"github.com/averho/chatgate/internal/storage/memory"
	"github.com/averho/chatgate/internal/testutil"
)

const testSecret = "sekret"

type GatewaySuite struct {
	suite.Suite

	store   *memory.Storage
	gateway *Gateway
	server  *httptest.Server
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	s.store = memory.New()
	verifier := auth.NewVerifier(testSecret, testutil.NopLogger())

	cfg := Config{
		AutoJoinRooms:  true,
		AllowedOrigins: []string{"http://localhost:5173"},
	}
	gw, err := New(cfg, verifier, s.store, testutil.NopLogger())
	s.Require().NoError(err)
	s.gateway = gw
	s.server = httptest.NewServer(gw)
}

func (s *GatewaySuite) TearDownTest() {
	s.Require().NoError(s.gateway.Close())
	s.server.Close()
}

func (s *GatewaySuite) token(userID int64, username string) string {
	token, err := auth.Mint(testSecret, model.Identity{ID: userID, Username: username}, time.Minute)
	s.Require().NoError(err)
	return token
}

func (s *GatewaySuite) wsURL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http")
}

// dial opens an authenticated connection and waits for the handshake to
// complete
func (s *GatewaySuite) dial(token string) *websocket.Conn {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(s.wsURL(), header)
	s.Require().NoError(err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	s.T().Cleanup(func() { conn.Close() })
	return conn
}

func (s *GatewaySuite) readFrame(conn *websocket.Conn) model.Frame {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, data, err := conn.ReadMessage()
	s.Require().NoError(err)
	var frame model.Frame
	s.Require().NoError(json.Unmarshal(data, &frame))
	return frame
}

func (s *GatewaySuite) sendFrame(conn *websocket.Conn, event string, data any) {
	payload, err := json.Marshal(data)
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteJSON(model.Frame{Event: event, Data: payload}))
}

func (s *GatewaySuite) TestHandshakeJoinsUserChannel() {
	s.dial(s.token(123, "julian"))

	s.True(testutil.Eventually(func() bool {
		return s.gateway.Hub().ClientCount(model.UserChannel(123)) == 1
	}, 2*time.Second))
}

func (s *GatewaySuite) TestHandshakeWithoutToken() {
	_, resp, err := websocket.DefaultDialer.Dial(s.wsURL(), nil)
	s.Require().Error(err)
	s.Require().NotNil(resp)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *GatewaySuite) TestHandshakeWithInvalidToken() {
	header := http.Header{}
	header.Set("Authorization", "Bearer not-a-jwt")
	_, resp, err := websocket.DefaultDialer.Dial(s.wsURL(), header)
	s.Require().Error(err)
	s.Require().NotNil(resp)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *GatewaySuite) TestHandshakeRejectsUnknownOrigin() {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.token(1, "u"))
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(s.wsURL(), header)
	s.Require().Error(err)
	s.Require().NotNil(resp)
	defer resp.Body.Close()
	s.Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *GatewaySuite) TestHandshakeWithQueryToken() {
	conn, resp, err := websocket.DefaultDialer.Dial(s.wsURL()+"?token="+s.token(42, "q"), nil)
	s.Require().NoError(err)
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	s.True(testutil.Eventually(func() bool {
		return s.gateway.Hub().ClientCount(model.UserChannel(42)) == 1
	}, 2*time.Second))
}

func (s *GatewaySuite) TestAutoJoinCollapsesDuplicateRows() {
	// Two rows for room 7 mirror duplicate participant data
	s.store.Add(model.Membership{UserID: 123, RoomID: 7, Role: model.RoleMember})
	s.store.Add(model.Membership{UserID: 123, RoomID: 7, Role: model.RoleMember})
	s.store.Add(model.Membership{UserID: 123, RoomID: 8, Role: model.RoleMember})

	conn := s.dial(s.token(123, "julian"))

	joined := map[string]int{}
	for i := 0; i < 2; i++ {
		frame := s.readFrame(conn)
		s.Equal(model.EventJoined, frame.Event)
		joined[frame.Channel]++
	}
	s.Equal(map[string]int{"7": 1, "8": 1}, joined)
	s.Equal(1, s.gateway.Hub().ClientCount("7"))
	s.Equal(1, s.gateway.Hub().ClientCount("8"))
}

func (s *GatewaySuite) TestJoinRoomCommand() {
	conn := s.dial(s.token(1, "u"))

	s.sendFrame(conn, model.CmdJoinRoom, 7)

	frame := s.readFrame(conn)
	s.Equal(model.EventJoined, frame.Event)
	s.Equal("7", frame.Channel)
	s.Equal(1, s.gateway.Hub().ClientCount("7"))
}

func (s *GatewaySuite) TestJoinRoomAcceptsNumericString() {
	conn := s.dial(s.token(1, "u"))

	s.sendFrame(conn, model.CmdJoinRoom, "7")

	frame := s.readFrame(conn)
	s.Equal(model.EventJoined, frame.Event)
	s.Equal("7", frame.Channel)
}

func (s *GatewaySuite) TestLeaveRoomCommand() {
	conn := s.dial(s.token(1, "u"))

	s.sendFrame(conn, model.CmdJoinRoom, 7)
	s.Equal(model.EventJoined, s.readFrame(conn).Event)

	s.sendFrame(conn, model.CmdLeaveRoom, 7)

	frame := s.readFrame(conn)
	s.Equal(model.EventLeft, frame.Event)
	s.Equal("7", frame.Channel)
	s.Equal(0, s.gateway.Hub().ClientCount("7"))
}

func (s *GatewaySuite) TestBulkJoinSkipsNullAndEmptyEntries() {
	conn := s.dial(s.token(1, "u"))

	s.sendFrame(conn, model.CmdJoinRooms, []any{"5", nil, "", 6, 6})

	joined := map[string]int{}
	for i := 0; i < 2; i++ {
		frame := s.readFrame(conn)
		s.Equal(model.EventJoined, frame.Event)
		joined[frame.Channel]++
	}
	s.Equal(map[string]int{"5": 1, "6": 1}, joined)
	s.Equal(1, s.gateway.Hub().ClientCount("5"))
	s.Equal(1, s.gateway.Hub().ClientCount("6"))
}

func (s *GatewaySuite) TestBulkJoinReportsInvalidEntriesAndContinues() {
	conn := s.dial(s.token(1, "u"))

	s.sendFrame(conn, model.CmdJoinRooms, []any{"nope", 9})

	errFrame := s.readFrame(conn)
	s.Equal(model.EventError, errFrame.Event)

	frame := s.readFrame(conn)
	s.Equal(model.EventJoined, frame.Event)
	s.Equal("9", frame.Channel)
}

func (s *GatewaySuite) TestUnknownEvent() {
	conn := s.dial(s.token(1, "u"))

	s.sendFrame(conn, "shutdown", nil)

	frame := s.readFrame(conn)
	s.Equal(model.EventError, frame.Event)
	var payload model.ErrorPayload
	s.Require().NoError(json.Unmarshal(frame.Data, &payload))
	s.Equal("unknown event", payload.Message)
}

func (s *GatewaySuite) TestMalformedFrame() {
	conn := s.dial(s.token(1, "u"))

	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	frame := s.readFrame(conn)
	s.Equal(model.EventError, frame.Event)
	var payload model.ErrorPayload
	s.Require().NoError(json.Unmarshal(frame.Data, &payload))
	s.Equal("malformed frame", payload.Message)
}

func (s *GatewaySuite) TestBroadcastReachesRoomSubscribers() {
	member := s.dial(s.token(1, "in"))
	outsider := s.dial(s.token(2, "out"))

	s.sendFrame(member, model.CmdJoinRoom, 7)
	s.Equal(model.EventJoined, s.readFrame(member).Event)

	err := s.gateway.Broadcast(context.Background(), "7", "message", json.RawMessage(`{"body":"hi"}`))
	s.Require().NoError(err)

	frame := s.readFrame(member)
	s.Equal("message", frame.Event)
	s.Equal("7", frame.Channel)
	s.JSONEq(`{"body":"hi"}`, string(frame.Data))

	// The outsider never joined room 7 and must see nothing
	s.Require().NoError(outsider.SetReadDeadline(time.Now().Add(100 * time.Millisecond)))
	_, _, err = outsider.ReadMessage()
	s.Error(err)
}

func (s *GatewaySuite) TestDisconnectReleasesSubscriptions() {
	conn := s.dial(s.token(1, "u"))

	s.sendFrame(conn, model.CmdJoinRoom, 7)
	s.Equal(model.EventJoined, s.readFrame(conn).Event)

	conn.Close()

	s.True(testutil.Eventually(func() bool {
		return s.gateway.Hub().ClientCount("7") == 0 &&
			s.gateway.Hub().ClientCount(model.UserChannel(1)) == 0
	}, 2*time.Second))
}

func (s *GatewaySuite) TestCloseIsIdempotent() {
	s.Require().NoError(s.gateway.Close())
	s.Require().NoError(s.gateway.Close())
}
