package storage

import (
	"context"

	"github.com/averho/chatgate/internal/model"
)

// MembershipStore reads participant membership records from the persistence
// layer. The gateway and the authorization service only ever read; rooms and
// memberships are written by other parts of the system. Implementations must
// be safe for concurrent use.
type MembershipStore interface {
	// RoomsForUser returns the ids of every room the user participates in.
	// The result may contain duplicates; callers de-duplicate.
	RoomsForUser(ctx context.Context, userID int64) ([]int64, error)

	// RoomRole looks up the membership by composite key. ok is false when no
	// membership record exists for (userID, roomID).
	RoomRole(ctx context.Context, userID, roomID int64) (role model.Role, ok bool, err error)
}
