package authz

import (
	"context"
	"log/slog"

	"github.com/averho/chatgate/internal/model"
	"github.com/averho/chatgate/internal/storage"
)

// Service resolves a user's effective role within a room. It is stateless
// and consumed by HTTP handlers and background jobs independently of any
// live connection.
type Service struct {
	store  storage.MembershipStore
	logger *slog.Logger
}

// New creates a new authorization service
func New(store storage.MembershipStore, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With(slog.String("component", "authz")),
	}
}

// RoomRole resolves the identity's effective role in a room. ok is false
// when the identity holds no role there.
//
// Global admins resolve to RoleAdmin without touching the store. The
// short-circuit keeps administrative access working even when membership
// rows are missing or inconsistent. Store errors propagate unmodified:
// resolution fails closed, never defaulting to an allow.
func (s *Service) RoomRole(ctx context.Context, identity *model.Identity, roomID int64) (model.Role, bool, error) {
	if identity == nil {
		return "", false, nil
	}
	if identity.IsGlobalAdmin() {
		return model.RoleAdmin, true, nil
	}
	return s.store.RoomRole(ctx, identity.ID, roomID)
}

// RequireRoomMember returns model.ErrNotRoomMember unless the identity
// holds any role in the room.
func (s *Service) RequireRoomMember(ctx context.Context, identity *model.Identity, roomID int64) error {
	_, ok, err := s.RoomRole(ctx, identity, roomID)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrNotRoomMember
	}
	return nil
}

// RequireRoomAdmin is the call-site variant of the admin check for
// consumers that aren't HTTP middleware, such as background jobs. Room
// moderators and room admins are equivalent for this check; members are
// strictly below both.
func (s *Service) RequireRoomAdmin(ctx context.Context, identity *model.Identity, roomID int64) error {
	role, ok, err := s.RoomRole(ctx, identity, roomID)
	if err != nil {
		return err
	}
	if !ok || !role.AtLeast(model.RoleModerator) {
		return model.ErrInsufficientRole
	}
	return nil
}
