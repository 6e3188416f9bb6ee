package request

import "encoding/json"

// BroadcastRequest is the request body for broadcasting an event to a room
type BroadcastRequest struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}
