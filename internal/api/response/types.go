package response

import (
	"github.com/averho/chatgate/internal/model"
)

// Identity represents an authenticated identity in API responses
type Identity struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	GlobalRole string `json:"global_role"`
}

// IdentityFromModel converts a model.Identity to a response Identity
func IdentityFromModel(i model.Identity) Identity {
	return Identity{
		ID:         i.ID,
		Username:   i.Username,
		GlobalRole: string(i.GlobalRole),
	}
}

// Broadcast acknowledges an accepted room broadcast
type Broadcast struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
}

// Presence reports how many connections are subscribed to a room channel
// on this process
type Presence struct {
	Channel     string `json:"channel"`
	Connections int    `json:"connections"`
}
