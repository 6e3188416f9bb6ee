package memory

import (
	"context"
	"sync"

	"github.com/averho/chatgate/internal/model"
	"github.com/averho/chatgate/internal/storage"
)

// Storage is an in-memory membership store used for local development and
// tests
type Storage struct {
	mu sync.RWMutex

	// roomsByUser preserves insertion order and repeated rows the way the
	// backing participant table can, so de-duplication stays the caller's
	// responsibility
	roomsByUser map[int64][]int64
	roles       map[membershipKey]model.Role
}

type membershipKey struct {
	userID int64
	roomID int64
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		roomsByUser: make(map[int64][]int64),
		roles:       make(map[membershipKey]model.Role),
	}
}

// Ensure Storage implements the interface
var _ storage.MembershipStore = (*Storage)(nil)

// Add records a participant membership. Adding the same (user, room) pair
// again updates the role and appends another room row, mirroring duplicate
// source data.
func (s *Storage) Add(m model.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomsByUser[m.UserID] = append(s.roomsByUser[m.UserID], m.RoomID)
	s.roles[membershipKey{m.UserID, m.RoomID}] = m.Role
}

// Remove deletes a participant membership and all its room rows
func (s *Storage) Remove(userID, roomID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, membershipKey{userID, roomID})
	rooms := s.roomsByUser[userID][:0]
	for _, id := range s.roomsByUser[userID] {
		if id != roomID {
			rooms = append(rooms, id)
		}
	}
	s.roomsByUser[userID] = rooms
}

func (s *Storage) RoomsForUser(ctx context.Context, userID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]int64, len(s.roomsByUser[userID]))
	copy(rooms, s.roomsByUser[userID])
	return rooms, nil
}

func (s *Storage) RoomRole(ctx context.Context, userID, roomID int64) (model.Role, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roles[membershipKey{userID, roomID}]
	return role, ok, nil
}
