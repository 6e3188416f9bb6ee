package auth

import (
	"net/http"
	"strings"
)

const (
	// TokenCookie is the cookie name checked as the last credential location
	TokenCookie = "chatgate_token"

	tokenQueryParam = "token"
	bearerPrefix    = "bearer "
)

// ExtractToken pulls the bearer credential out of a handshake request.
// Locations are checked in fixed precedence: the Authorization header, the
// token query parameter, then the chatgate_token cookie. Returns "" when no
// credential is present anywhere. Pure function of the request.
func ExtractToken(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		if strings.HasPrefix(strings.ToLower(h), bearerPrefix) {
			if tok := strings.TrimSpace(h[len(bearerPrefix):]); tok != "" {
				return tok
			}
		}
	}

	if tok := r.URL.Query().Get(tokenQueryParam); tok != "" {
		return tok
	}

	return cookieToken(r.Header.Get("Cookie"))
}

// cookieToken parses a raw Cookie header as "key=value; key=value" pairs and
// returns the value of the token cookie, or ""
func cookieToken(header string) string {
	for _, pair := range strings.Split(header, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && key == TokenCookie && value != "" {
			return value
		}
	}
	return ""
}
