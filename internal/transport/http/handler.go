package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/call-service/internal/domain"
	"github.com/cwrk-planet/call-service/internal/service"
	"github.com/cwrk-planet/call-service/internal/turn"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RoomSvc interface {
	CreateRoom(ctx context.Context, id string) (service.RoomInfo, error)
	GetRoom(ctx context.Context, id string) (service.RoomInfo, error)
	ListRooms(ctx context.Context) ([]service.RoomInfo, error)
}

type Handler struct {
	roomSvc RoomSvc
	ice     *turn.Provider
}

func NewHandler(rooms RoomSvc, ice *turn.Provider) *Handler {
	return &Handler{roomSvc: rooms, ice: ice}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := statusFromErr(err)
	if status >= http.StatusInternalServerError {
		slog.Error("handler."+op, "req_id", middleware.GetReqID(r.Context()), "err", err)
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func statusFromErr(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return http.StatusNotFound, "room not found"
	case errors.Is(err, domain.ErrRoomExists):
		return http.StatusConflict, "room already exists"
	case errors.Is(err, domain.ErrInvalidRoomID):
		return http.StatusBadRequest, "invalid room id"
	case errors.Is(err, turn.ErrNotConfigured):
		return http.StatusServiceUnavailable, "ice servers are not configured"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func toItem(info service.RoomInfo) RoomItem {
	return RoomItem{
		RoomID:                 info.ID,
		CreatedAt:              info.CreatedAt,
		Participants:           info.Participants,
		DestructionScheduledAt: info.DestructionScheduledAt,
	}
}

// POST /create-room
// Тело необязательно: {"roomId": "abc-defg-hij"} запрашивает конкретный id.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if r.Body != nil {
		if err := json.NewDecoder(io.LimitReader(r.Body, 4<<10)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
	}

	room, err := h.roomSvc.CreateRoom(r.Context(), req.RoomID)
	if err != nil {
		writeErr(w, r, "CreateRoom", err)
		return
	}
	slog.Info("room created", "room", room.ID, "req_id", middleware.GetReqID(r.Context()))

	writeJSON(w, http.StatusCreated, CreateRoomResponse{RoomID: room.ID})
}

// GET /rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomSvc.ListRooms(r.Context())
	if err != nil {
		writeErr(w, r, "ListRooms", err)
		return
	}
	resp := RoomsListResponse{Items: make([]RoomItem, 0, len(rooms))}
	for _, rm := range rooms {
		resp.Items = append(resp.Items, toItem(rm))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.roomSvc.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, "GetRoom", err)
		return
	}
	writeJSON(w, http.StatusOK, toItem(room))
}

// GET /turn-credentials
func (h *Handler) TurnCredentials(w http.ResponseWriter, r *http.Request) {
	if h.ice == nil {
		writeErr(w, r, "TurnCredentials", turn.ErrNotConfigured)
		return
	}
	creds, err := h.ice.ICEServers("")
	if err != nil {
		writeErr(w, r, "TurnCredentials", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, TurnCredentialsResponse{
		ICEServers: creds.ICEServers,
		TTL:        int64(creds.TTL.Seconds()),
	})
}
