package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Event: закрытое множество входящих событий. Реализации только в этом пакете.
type Event interface {
	Name() string
	isEvent()
}

type JoinRoom struct {
	RoomID string
}

type ChatMessage struct {
	Text string `json:"text"`
}

type WebRTCReady struct{}

type MuteStatusChanged struct {
	IsMuted bool `json:"isMuted"`
}

type WebRTCOffer struct {
	Offer    webrtc.SessionDescription `json:"offer"`
	ToUserID string                    `json:"toUserId"`
}

type WebRTCAnswer struct {
	Answer   webrtc.SessionDescription `json:"answer"`
	ToUserID string                    `json:"toUserId"`
}

type WebRTCICECandidate struct {
	Candidate webrtc.ICECandidateInit `json:"candidate"`
	ToUserID  string                  `json:"toUserId"`
}

func (JoinRoom) Name() string           { return EventJoinRoom }
func (ChatMessage) Name() string        { return EventMessage }
func (WebRTCReady) Name() string        { return EventWebRTCReady }
func (MuteStatusChanged) Name() string  { return EventMuteStatusChanged }
func (WebRTCOffer) Name() string        { return EventWebRTCOffer }
func (WebRTCAnswer) Name() string       { return EventWebRTCAnswer }
func (WebRTCICECandidate) Name() string { return EventWebRTCICECandidate }

func (JoinRoom) isEvent()           {}
func (ChatMessage) isEvent()        {}
func (WebRTCReady) isEvent()        {}
func (MuteStatusChanged) isEvent()  {}
func (WebRTCOffer) isEvent()        {}
func (WebRTCAnswer) isEvent()       {}
func (WebRTCICECandidate) isEvent() {}

// KnownEvent сообщает, является ли имя входящим событием протокола.
func KnownEvent(name string) bool {
	switch name {
	case EventJoinRoom, EventMessage, EventWebRTCReady, EventMuteStatusChanged,
		EventWebRTCOffer, EventWebRTCAnswer, EventWebRTCICECandidate:
		return true
	}
	return false
}

// Decode собирает типизированное событие из имени и сырого payload.
func Decode(name string, raw []byte) (Event, error) {
	raw = bytes.TrimSpace(raw)

	switch name {
	case EventJoinRoom:
		return decodeJoin(raw)
	case EventMessage:
		var ev ChatMessage
		if err := decodeObject(raw, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventWebRTCReady:
		return WebRTCReady{}, nil
	case EventMuteStatusChanged:
		var p struct {
			IsMuted *bool `json:"isMuted"`
		}
		if err := decodeObject(raw, &p); err != nil {
			return nil, err
		}
		if p.IsMuted == nil {
			return nil, fmt.Errorf("%w: isMuted is required", ErrInvalidPayload)
		}
		return MuteStatusChanged{IsMuted: *p.IsMuted}, nil
	case EventWebRTCOffer:
		var ev WebRTCOffer
		if err := decodeObject(raw, &ev); err != nil {
			return nil, err
		}
		if ev.ToUserID == "" || ev.Offer.Type == webrtc.SDPTypeUnknown {
			return nil, fmt.Errorf("%w: offer and toUserId are required", ErrInvalidPayload)
		}
		return ev, nil
	case EventWebRTCAnswer:
		var ev WebRTCAnswer
		if err := decodeObject(raw, &ev); err != nil {
			return nil, err
		}
		if ev.ToUserID == "" || ev.Answer.Type == webrtc.SDPTypeUnknown {
			return nil, fmt.Errorf("%w: answer and toUserId are required", ErrInvalidPayload)
		}
		return ev, nil
	case EventWebRTCICECandidate:
		var ev WebRTCICECandidate
		if err := decodeObject(raw, &ev); err != nil {
			return nil, err
		}
		if ev.ToUserID == "" {
			return nil, fmt.Errorf("%w: toUserId is required", ErrInvalidPayload)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
}

// join-room принимает как голую строку, так и {"roomId": "..."}.
func decodeJoin(raw []byte) (Event, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: roomId is required", ErrInvalidPayload)
	}
	var id string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	} else {
		var p struct {
			RoomID string `json:"roomId"`
		}
		if err := decodeObject(raw, &p); err != nil {
			return nil, err
		}
		id = p.RoomID
	}
	if id == "" {
		return nil, fmt.Errorf("%w: roomId is required", ErrInvalidPayload)
	}
	return JoinRoom{RoomID: id}, nil
}

func decodeObject(raw []byte, dst any) error {
	if len(raw) == 0 || raw[0] != '{' {
		return fmt.Errorf("%w: expected object", ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
