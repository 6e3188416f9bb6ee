package model

import "errors"

// Common errors used across the application
var (
	// Handshake errors. ErrMissingSecret is a server misconfiguration and is
	// kept distinct from the client-caused unauthorized errors so operators
	// can alert on it separately.
	ErrNoToken       = errors.New("Unauthorized: no token")
	ErrInvalidToken  = errors.New("Unauthorized: invalid token")
	ErrMissingSecret = errors.New("auth token secret is not set")

	// Authorization errors
	ErrNotRoomMember    = errors.New("not a member of this room")
	ErrInsufficientRole = errors.New("insufficient room permissions")

	// Validation errors
	ErrInvalidRole   = errors.New("invalid role")
	ErrInvalidRoomID = errors.New("invalid room id")
	ErrMissingRoomID = errors.New("room id not provided")
)
