package model

// Role is a permission level within a room, ordered member < moderator < admin
type Role string

const (
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

var roleRank = map[Role]int{
	RoleMember:    1,
	RoleModerator: 2,
	RoleAdmin:     3,
}

// ParseRole converts a stored or claimed role string into a Role.
// Unknown values are rejected rather than mapped to a default.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleRank[r]; !ok {
		return "", ErrInvalidRole
	}
	return r, nil
}

// AtLeast reports whether r grants the privileges of min
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

// Identity is the trusted principal produced by the handshake. It is bound
// to a connection once and never changes for the connection's lifetime.
type Identity struct {
	ID         int64
	Username   string
	GlobalRole Role
}

// IsGlobalAdmin reports whether the identity bypasses room-level checks
func (i Identity) IsGlobalAdmin() bool {
	return i.GlobalRole == RoleAdmin
}

// Membership is the persisted participant record granting a user a role
// within one room. The composite key (UserID, RoomID) is unique. This
// service only ever reads memberships; they are written elsewhere.
type Membership struct {
	UserID int64
	RoomID int64
	Role   Role
}
