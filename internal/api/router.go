package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/averho/chatgate/internal/api/handler"
	"github.com/averho/chatgate/internal/api/response"
	"github.com/averho/chatgate/internal/auth"
	"github.com/averho/chatgate/internal/authz"
	"github.com/averho/chatgate/internal/gateway"
	"github.com/averho/chatgate/internal/middleware"
)

// RouterConfig holds configuration for the HTTP router
type RouterConfig struct {
	Logger         *slog.Logger
	Verifier       *auth.Verifier
	Authz          *authz.Service
	Gateway        *gateway.Gateway
	AllowedOrigins []string
}

// NewRouter creates the router serving the websocket handshake endpoint and
// the REST surface around it
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Websocket handshake; authentication happens inside the gateway,
	// before the upgrade
	r.Handle("/ws", cfg.Gateway).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	me := api.PathPrefix("/me").Subrouter()
	me.Use(auth.Middleware(cfg.Verifier))
	me.HandleFunc("", meHandler).Methods(http.MethodGet)

	roomHandler := handler.NewRoomHandler(cfg.Gateway, cfg.Logger)
	src := authz.DefaultRoomIDSource()

	rooms := api.PathPrefix("/rooms/{room_id}").Subrouter()
	rooms.Use(auth.Middleware(cfg.Verifier))
	rooms.Handle("/presence",
		authz.RequireRoomMember(cfg.Authz, src)(http.HandlerFunc(roomHandler.Presence))).
		Methods(http.MethodGet)
	rooms.Handle("/broadcast",
		authz.RequireRoomAdmin(cfg.Authz, src)(http.HandlerFunc(roomHandler.Broadcast))).
		Methods(http.MethodPost)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// meHandler echoes the authenticated identity, mainly for clients checking
// their credential before opening a websocket
func meHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// Unreachable behind the auth middleware
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	response.JSON(w, http.StatusOK, response.IdentityFromModel(identity))
}
