package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/averho/chatgate/internal/api/request"
	"github.com/averho/chatgate/internal/api/response"
	"github.com/averho/chatgate/internal/gateway"
	"github.com/averho/chatgate/internal/model"
)

// RoomHandler handles room-scoped endpoints. Authentication and room
// authorization run in middleware before these methods; by the time a
// request lands here its identity has already been checked against the
// room in the route.
type RoomHandler struct {
	gateway *gateway.Gateway
	logger  *slog.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(gw *gateway.Gateway, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{
		gateway: gw,
		logger:  logger.With(slog.String("component", "room_handler")),
	}
}

// Broadcast handles POST /api/v1/rooms/{room_id}/broadcast
func (h *RoomHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	roomID, err := model.ParseRoomID(mux.Vars(r)["room_id"])
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Event == "" {
		WriteError(w, NewInvalidRequestError("event is required"))
		return
	}

	channel := model.RoomChannel(roomID)
	if err := h.gateway.Broadcast(r.Context(), channel, req.Event, req.Data); err != nil {
		h.logger.Error("room broadcast failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()))
		WriteError(w, NewInternalError())
		return
	}

	// Delivery to peer processes is fire-and-forget past this point
	response.JSON(w, http.StatusAccepted, response.Broadcast{
		Channel: channel,
		Event:   req.Event,
	})
}

// Presence handles GET /api/v1/rooms/{room_id}/presence
func (h *RoomHandler) Presence(w http.ResponseWriter, r *http.Request) {
	roomID, err := model.ParseRoomID(mux.Vars(r)["room_id"])
	if err != nil {
		WriteError(w, err)
		return
	}

	channel := model.RoomChannel(roomID)
	response.JSON(w, http.StatusOK, response.Presence{
		Channel:     channel,
		Connections: h.gateway.Hub().ClientCount(channel),
	})
}
