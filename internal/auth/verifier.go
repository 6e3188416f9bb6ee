package auth

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/averho/chatgate/internal/model"
)

// Claims is the payload carried in a chatgate access token
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// Verifier checks handshake credentials against the configured secret and
// produces trusted identities. Verification runs once per connection,
// before any room-scoped operation is permitted.
type Verifier struct {
	secret []byte
	logger *slog.Logger
}

// NewVerifier creates a Verifier. An empty secret is tolerated at
// construction so the server can start, but every Verify call will then
// fail with model.ErrMissingSecret.
func NewVerifier(secret string, logger *slog.Logger) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		logger: logger.With(slog.String("component", "auth")),
	}
}

// Verify validates a bearer token and decodes its claims into an Identity.
// The error taxonomy is deliberate: a missing token and an invalid token
// are routine client failures, while a missing secret is a server
// misconfiguration logged at error severity. Invalid tokens never leak
// verification internals to the caller.
func (v *Verifier) Verify(token string) (model.Identity, error) {
	if token == "" {
		return model.Identity{}, model.ErrNoToken
	}
	if len(v.secret) == 0 {
		v.logger.Error("rejecting connection: no token secret configured")
		return model.Identity{}, model.ErrMissingSecret
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		v.logger.Debug("token verification failed", slog.String("error", fmt.Sprint(err)))
		return model.Identity{}, model.ErrInvalidToken
	}

	identity := model.Identity{
		ID:         claims.UserID,
		Username:   claims.Username,
		GlobalRole: model.RoleMember,
	}
	if claims.Role != "" {
		role, err := model.ParseRole(claims.Role)
		if err != nil {
			return model.Identity{}, model.ErrInvalidToken
		}
		identity.GlobalRole = role
	}
	return identity, nil
}

// Mint signs a token for the given identity. The production system issues
// tokens elsewhere; this exists for the CLI and for tests.
func Mint(secret string, identity model.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:   identity.ID,
		Username: identity.Username,
	}
	if identity.GlobalRole != "" && identity.GlobalRole != model.RoleMember {
		claims.Role = string(identity.GlobalRole)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
