package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/averho/chatgate/internal/api/apierr"
	"github.com/averho/chatgate/internal/auth"
	"github.com/averho/chatgate/internal/model"
)

// RoomIDSource tells the middleware where to find the room id on a request.
// The route variable is checked first, then the named JSON body field.
type RoomIDSource struct {
	RouteVar  string
	BodyField string
}

// DefaultRoomIDSource matches the route and payload conventions of the
// room handlers
func DefaultRoomIDSource() RoomIDSource {
	return RoomIDSource{RouteVar: "room_id", BodyField: "roomId"}
}

// RequireRoomMember creates middleware that rejects requests whose identity
// holds no role in the resolved room. The 403 message is stable contract.
func RequireRoomMember(service *Service, src RoomIDSource) func(http.Handler) http.Handler {
	return requireRoom(service, src, (*Service).RequireRoomMember)
}

// RequireRoomAdmin creates middleware that rejects requests whose identity
// is not a moderator or admin of the resolved room
func RequireRoomAdmin(service *Service, src RoomIDSource) func(http.Handler) http.Handler {
	return requireRoom(service, src, (*Service).RequireRoomAdmin)
}

type roomCheck func(*Service, context.Context, *model.Identity, int64) error

func requireRoom(service *Service, src RoomIDSource, check roomCheck) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				apierr.WriteError(w, model.ErrNoToken)
				return
			}

			roomID, err := resolveRoomID(r, src)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			if err := check(service, r.Context(), &identity, roomID); err != nil {
				apierr.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// resolveRoomID finds the room id on the request: named route variable
// first, falling back to a named field of a JSON body. Ids arrive as
// numbers or numeric strings and are normalized in one place.
func resolveRoomID(r *http.Request, src RoomIDSource) (int64, error) {
	if src.RouteVar != "" {
		if raw, ok := mux.Vars(r)[src.RouteVar]; ok && raw != "" {
			return model.ParseRoomID(raw)
		}
	}

	if src.BodyField != "" && r.Body != nil {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return 0, apierr.NewInvalidRequestError("could not read request body")
		}
		// Restore the body for the downstream handler
		r.Body = io.NopCloser(bytes.NewReader(body))

		var fields map[string]any
		if len(body) > 0 && json.Unmarshal(body, &fields) == nil {
			if raw, ok := fields[src.BodyField]; ok {
				return model.ParseRoomID(raw)
			}
		}
	}

	return 0, model.ErrMissingRoomID
}
