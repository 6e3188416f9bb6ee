package redis

import "fmt"

// Key prefix for all membership data
const keyPrefix = "chatgate"

// userRoomsKey returns the key for the LIST of room ids a user participates
// in. A list, not a set: repeated participant rows stay repeated, matching
// the relational source.
func userRoomsKey(userID int64) string {
	return fmt.Sprintf("%s:user_rooms:%d", keyPrefix, userID)
}

// userRolesKey returns the key for the HASH mapping room id to the user's
// role in that room
func userRolesKey(userID int64) string {
	return fmt.Sprintf("%s:user_roles:%d", keyPrefix, userID)
}
