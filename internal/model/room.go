package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Clients send room identifiers as either JSON numbers or numeric strings.
// Everything downstream of the command handlers works with the canonical
// forms produced here.

// ParseRoomID normalizes a duck-typed room identifier to an int64.
// Accepted inputs are JSON numbers (integral, non-negative) and strings
// containing a base-10 integer. Anything else is ErrInvalidRoomID.
func ParseRoomID(v any) (int64, error) {
	switch t := v.(type) {
	case json.Number:
		id, err := strconv.ParseInt(t.String(), 10, 64)
		if err != nil || id < 0 {
			return 0, ErrInvalidRoomID
		}
		return id, nil
	case float64:
		if t != math.Trunc(t) || t < 0 || t > math.MaxInt64 {
			return 0, ErrInvalidRoomID
		}
		return int64(t), nil
	case int:
		if t < 0 {
			return 0, ErrInvalidRoomID
		}
		return int64(t), nil
	case int64:
		if t < 0 {
			return 0, ErrInvalidRoomID
		}
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, ErrInvalidRoomID
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id < 0 {
			return 0, ErrInvalidRoomID
		}
		return id, nil
	default:
		return 0, ErrInvalidRoomID
	}
}

// RoomChannel returns the canonical broadcast channel name for a room
func RoomChannel(roomID int64) string {
	return strconv.FormatInt(roomID, 10)
}

// UserChannel returns the private per-user channel name. Every connection
// is joined to its identity's user channel at handshake time so other
// subsystems can target a user without knowing their rooms.
func UserChannel(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}
