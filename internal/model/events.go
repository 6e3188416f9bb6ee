package model

import "encoding/json"

// Client-issued command names. The dispatch set is closed: anything else
// arriving on the wire is rejected with an error frame.
const (
	CmdJoinRoom  = "join_room"
	CmdLeaveRoom = "leave_room"
	CmdJoinRooms = "join:rooms"
)

// Server-issued event names
const (
	EventJoined = "joined"
	EventLeft   = "left"
	EventError  = "error"
)

// Frame is the envelope for every message exchanged on a connection.
// For client commands Data carries the command payload; for server events
// Channel names the room channel the event belongs to.
type Frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ErrorPayload is the Data shape of an EventError frame
type ErrorPayload struct {
	Message string `json:"message"`
}
