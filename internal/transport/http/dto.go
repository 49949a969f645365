package http

import (
	"time"

	"github.com/pion/webrtc/v4"
)

type CreateRoomRequest struct {
	RoomID string `json:"roomId,omitempty"`
}

type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
}

type RoomItem struct {
	RoomID                 string     `json:"roomId"`
	CreatedAt              time.Time  `json:"createdAt"`
	Participants           int        `json:"participants"`
	DestructionScheduledAt *time.Time `json:"destructionScheduledAt,omitempty"`
}

type RoomsListResponse struct {
	Items []RoomItem `json:"items"`
}

type TurnCredentialsResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
	TTL        int64              `json:"ttl"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
