package signaling

import (
	"time"

	"github.com/cwrk-planet/call-service/internal/domain"

	"github.com/pion/webrtc/v4"
)

// Входящие события (клиент -> сервер)
const (
	EventJoinRoom           = "join-room"
	EventMessage            = "message"
	EventWebRTCReady        = "webrtc-ready"
	EventMuteStatusChanged  = "mute-status-changed"
	EventWebRTCOffer        = "webrtc-offer"
	EventWebRTCAnswer       = "webrtc-answer"
	EventWebRTCICECandidate = "webrtc-ice-candidate"
)

// Исходящие события (сервер -> клиент). message и webrtc-* совпадают с входящими.
const (
	EventRoomJoinSuccess    = "room-join-success"
	EventRoomNotFound       = "room-not-found"
	EventRoomFull           = "room-full"
	EventRoomUsersUpdate    = "room-users-update"
	EventUserLeft           = "user-left"
	EventInitiateWebRTCCall = "initiate-webrtc-call"
	EventError              = "error"
)

// Message: конверт любого сообщения по сокету.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type RoomJoinSuccessPayload struct {
	RoomID string `json:"roomId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type ChatPayload = domain.ChatMessage

type OfferRelayPayload struct {
	Offer      webrtc.SessionDescription `json:"offer"`
	FromUserID string                    `json:"fromUserId"`
}

type AnswerRelayPayload struct {
	Answer     webrtc.SessionDescription `json:"answer"`
	FromUserID string                    `json:"fromUserId"`
}

type ICECandidateRelayPayload struct {
	Candidate  webrtc.ICECandidateInit `json:"candidate"`
	FromUserID string                  `json:"fromUserId"`
}

func errorMessage(text string) Message {
	return Message{Type: EventError, Payload: ErrorPayload{Message: text}}
}

func rosterMessage(room domain.Room) Message {
	return Message{Type: EventRoomUsersUpdate, Payload: room.Roster()}
}

func chatMessage(text, userID string, ts time.Time) Message {
	return Message{Type: EventMessage, Payload: ChatPayload{Text: text, UserID: userID, Timestamp: ts}}
}
