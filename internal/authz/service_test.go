package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/averho/chatgate/internal/model"
	"github.com/averho/chatgate/internal/storage/memory"
	"github.com/averho/chatgate/internal/testutil"
)

// countingStore wraps the memory store and counts role lookups, so tests
// can assert the global-admin short-circuit never touches the store
type countingStore struct {
	*memory.Storage
	roleLookups int
	failWith    error
}

func (c *countingStore) RoomRole(ctx context.Context, userID, roomID int64) (model.Role, bool, error) {
	c.roleLookups++
	if c.failWith != nil {
		return "", false, c.failWith
	}
	return c.Storage.RoomRole(ctx, userID, roomID)
}

type ServiceSuite struct {
	suite.Suite
	store   *countingStore
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = &countingStore{Storage: memory.New()}
	s.service = New(s.store, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ServiceSuite) member(role model.Role) *model.Identity {
	s.store.Add(model.Membership{UserID: 10, RoomID: 7, Role: role})
	return &model.Identity{ID: 10, Username: "u", GlobalRole: model.RoleMember}
}

func (s *ServiceSuite) TestNilIdentity() {
	_, ok, err := s.service.RoomRole(s.ctx, nil, 7)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ServiceSuite) TestGlobalAdminShortCircuits() {
	admin := &model.Identity{ID: 99, Username: "root", GlobalRole: model.RoleAdmin}

	for _, roomID := range []int64{1, 7, 123456} {
		role, ok, err := s.service.RoomRole(s.ctx, admin, roomID)
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(model.RoleAdmin, role)
	}

	// The short-circuit must not perform any store read
	s.Equal(0, s.store.roleLookups)
}

func (s *ServiceSuite) TestRoomRoleFromStore() {
	identity := s.member(model.RoleModerator)

	role, ok, err := s.service.RoomRole(s.ctx, identity, 7)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(model.RoleModerator, role)
	s.Equal(1, s.store.roleLookups)
}

func (s *ServiceSuite) TestRoomRoleNoMembership() {
	identity := &model.Identity{ID: 10, GlobalRole: model.RoleMember}

	_, ok, err := s.service.RoomRole(s.ctx, identity, 7)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ServiceSuite) TestStoreErrorPropagates() {
	storeErr := errors.New("connection refused")
	s.store.failWith = storeErr
	identity := &model.Identity{ID: 10, GlobalRole: model.RoleMember}

	_, _, err := s.service.RoomRole(s.ctx, identity, 7)
	s.Require().ErrorIs(err, storeErr)

	// Resolution fails closed: the error surfaces through the checks too
	s.ErrorIs(s.service.RequireRoomMember(s.ctx, identity, 7), storeErr)
	s.ErrorIs(s.service.RequireRoomAdmin(s.ctx, identity, 7), storeErr)
}

func (s *ServiceSuite) TestRequireRoomMember() {
	identity := s.member(model.RoleMember)
	s.NoError(s.service.RequireRoomMember(s.ctx, identity, 7))

	stranger := &model.Identity{ID: 11, GlobalRole: model.RoleMember}
	s.ErrorIs(s.service.RequireRoomMember(s.ctx, stranger, 7), model.ErrNotRoomMember)
}

func (s *ServiceSuite) TestRequireRoomAdmin() {
	s.store.Add(model.Membership{UserID: 20, RoomID: 7, Role: model.RoleModerator})
	s.store.Add(model.Membership{UserID: 21, RoomID: 7, Role: model.RoleAdmin})
	s.store.Add(model.Membership{UserID: 22, RoomID: 7, Role: model.RoleMember})

	// Moderator and room admin are equivalent for the admin check
	s.NoError(s.service.RequireRoomAdmin(s.ctx, &model.Identity{ID: 20}, 7))
	s.NoError(s.service.RequireRoomAdmin(s.ctx, &model.Identity{ID: 21}, 7))

	// Member is strictly below both
	s.ErrorIs(s.service.RequireRoomAdmin(s.ctx, &model.Identity{ID: 22}, 7), model.ErrInsufficientRole)
	s.ErrorIs(s.service.RequireRoomAdmin(s.ctx, &model.Identity{ID: 23}, 7), model.ErrInsufficientRole)
}

func (s *ServiceSuite) TestGlobalAdminPassesAdminCheckWithoutRows() {
	admin := &model.Identity{ID: 99, GlobalRole: model.RoleAdmin}
	s.NoError(s.service.RequireRoomAdmin(s.ctx, admin, 7))
	s.Equal(0, s.store.roleLookups)
}
