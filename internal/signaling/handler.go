package signaling

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cwrk-planet/call-service/internal/domain"
	"github.com/cwrk-planet/call-service/internal/ratelimit"
	"github.com/cwrk-planet/call-service/internal/registry"
)

// Destroyer: отложенное удаление опустевших комнат.
type Destroyer interface {
	Schedule(roomID string) time.Time
	Cancel(roomID string) bool
}

type Config struct {
	Rules      map[string]ratelimit.Rule
	MaxChatLen int
	Now        func() time.Time
}

// Handler: машина состояний сигналинга. Все события обрабатываются под
// одним мьютексом: мутация реестра и рассылка по её итогам идут единым шагом.
type Handler struct {
	mu sync.Mutex

	rooms     *registry.Registry
	limiter   *ratelimit.Limiter
	destroyer Destroyer
	hub       *Hub

	rules      map[string]ratelimit.Rule
	maxChatLen int
	now        func() time.Time
}

func NewHandler(rooms *registry.Registry, limiter *ratelimit.Limiter, destroyer Destroyer, cfg Config) *Handler {
	if cfg.Rules == nil {
		cfg.Rules = ratelimit.DefaultRules()
	}
	if cfg.MaxChatLen <= 0 {
		cfg.MaxChatLen = domain.MaxChatMessageLen
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{
		rooms:      rooms,
		limiter:    limiter,
		destroyer:  destroyer,
		hub:        NewHub(),
		rules:      cfg.Rules,
		maxChatLen: cfg.MaxChatLen,
		now:        cfg.Now,
	}
}

func (h *Handler) Hub() *Hub { return h.hub }

// Connect регистрирует соединение и возвращает его сессию.
func (h *Handler) Connect(p Peer) *Session {
	h.hub.Add(p)
	slog.Debug("peer connected", "peer", p.ID())
	return &Session{peer: p}
}

// Dispatch обрабатывает сырое событие из транспорта: лимит, декодирование, обработка.
func (h *Handler) Dispatch(s *Session, name string, raw []byte) error {
	if !KnownEvent(name) {
		h.send(s.peer, errorMessage("Unknown event: "+name))
		return fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.allowLocked(s, name); err != nil {
		return err
	}
	ev, err := Decode(name, raw)
	if err != nil {
		h.send(s.peer, errorMessage(fmt.Sprintf("Invalid %s payload", name)))
		return err
	}
	return h.handleLocked(s, ev)
}

// Handle обрабатывает уже декодированное событие.
func (h *Handler) Handle(s *Session, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.allowLocked(s, ev.Name()); err != nil {
		return err
	}
	return h.handleLocked(s, ev)
}

func (h *Handler) allowLocked(s *Session, name string) error {
	if s.closed {
		return ErrNotJoined
	}
	if !h.limiter.Allow(s.ID(), name, h.rules[name]) {
		slog.Warn("signaling event throttled", "peer", s.ID(), "event", name)
		h.send(s.peer, errorMessage("Rate limit exceeded for "+name))
		return fmt.Errorf("%w: %s", ErrRateLimited, name)
	}
	return nil
}

func (h *Handler) handleLocked(s *Session, ev Event) error {
	switch e := ev.(type) {
	case JoinRoom:
		return h.joinRoom(s, e)
	case WebRTCReady:
		return h.webrtcReady(s)
	case WebRTCOffer:
		return h.relay(s, e.ToUserID, Message{
			Type:    EventWebRTCOffer,
			Payload: OfferRelayPayload{Offer: e.Offer, FromUserID: s.ID()},
		})
	case WebRTCAnswer:
		return h.relay(s, e.ToUserID, Message{
			Type:    EventWebRTCAnswer,
			Payload: AnswerRelayPayload{Answer: e.Answer, FromUserID: s.ID()},
		})
	case WebRTCICECandidate:
		return h.relay(s, e.ToUserID, Message{
			Type:    EventWebRTCICECandidate,
			Payload: ICECandidateRelayPayload{Candidate: e.Candidate, FromUserID: s.ID()},
		})
	case ChatMessage:
		return h.chat(s, e)
	case MuteStatusChanged:
		return h.muteStatusChanged(s, e)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
}

func (h *Handler) joinRoom(s *Session, e JoinRoom) error {
	if s.roomID != "" {
		h.send(s.peer, errorMessage("Already joined a room"))
		return domain.ErrAlreadyJoined
	}
	roomID := strings.TrimSpace(e.RoomID)

	room, err := h.rooms.Join(roomID, s.ID())
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		h.send(s.peer, Message{Type: EventRoomNotFound, Payload: "Room not found"})
		return err
	case errors.Is(err, domain.ErrRoomFull):
		h.send(s.peer, Message{Type: EventRoomFull, Payload: "Room is full"})
		return err
	case err != nil:
		h.send(s.peer, errorMessage("Could not join room"))
		return err
	}

	s.roomID = roomID
	h.destroyer.Cancel(roomID)
	slog.Info("peer joined room", "room", roomID, "peer", s.ID(), "size", room.Size())

	h.broadcast(room, rosterMessage(room))
	h.send(s.peer, Message{Type: EventRoomJoinSuccess, Payload: RoomJoinSuccessPayload{RoomID: roomID}})
	return nil
}

func (h *Handler) webrtcReady(s *Session) error {
	if err := h.requireJoined(s); err != nil {
		return err
	}
	initiator, target, ok := h.rooms.SetReady(s.roomID, s.ID())
	if !ok {
		return nil
	}
	p, found := h.hub.Get(initiator)
	if !found {
		slog.Warn("call initiator is not connected", "room", s.roomID, "peer", initiator)
		return nil
	}
	slog.Info("initiating webrtc call", "room", s.roomID, "initiator", initiator, "target", target)
	h.send(p, Message{Type: EventInitiateWebRTCCall, Payload: target})
	return nil
}

// relay пересылает сигнальное сообщение 1:1 внутри комнаты отправителя.
// Содержимое SDP/ICE сервер не интерпретирует.
func (h *Handler) relay(s *Session, toUserID string, msg Message) error {
	if err := h.requireJoined(s); err != nil {
		return err
	}
	room, ok := h.rooms.Get(s.roomID)
	if !ok || toUserID == s.ID() || !room.Has(toUserID) {
		h.send(s.peer, errorMessage("Target user not in room"))
		return ErrTargetNotInRoom
	}
	target, ok := h.hub.Get(toUserID)
	if !ok {
		h.send(s.peer, errorMessage("Target user not in room"))
		return ErrTargetNotInRoom
	}
	h.send(target, msg)
	return nil
}

func (h *Handler) chat(s *Session, e ChatMessage) error {
	if err := h.requireJoined(s); err != nil {
		return err
	}
	if strings.TrimSpace(e.Text) == "" {
		h.send(s.peer, errorMessage("Message cannot be empty"))
		return fmt.Errorf("%w: empty message", ErrInvalidPayload)
	}
	if utf8.RuneCountInString(e.Text) > h.maxChatLen {
		h.send(s.peer, errorMessage(fmt.Sprintf("Message too long (max %d characters)", h.maxChatLen)))
		return fmt.Errorf("%w: message too long", ErrInvalidPayload)
	}
	room, ok := h.rooms.Get(s.roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	// единый broadcast всем, включая отправителя
	h.broadcast(room, chatMessage(e.Text, s.ID(), h.now().UTC()))
	return nil
}

func (h *Handler) muteStatusChanged(s *Session, e MuteStatusChanged) error {
	if err := h.requireJoined(s); err != nil {
		return err
	}
	room, ok := h.rooms.SetMuted(s.roomID, s.ID(), e.IsMuted)
	if !ok {
		return domain.ErrNotInRoom
	}
	h.broadcast(room, rosterMessage(room))
	return nil
}

// Disconnect отрабатывает штатный переход жизненного цикла, это не ошибка.
// Повторный вызов для той же сессии ничего не делает.
func (h *Handler) Disconnect(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	h.hub.Remove(s.peer)
	h.limiter.Forget(s.ID())

	roomID := s.roomID
	if roomID == "" {
		slog.Debug("peer disconnected", "peer", s.ID())
		return
	}
	s.roomID = ""

	room, removed := h.rooms.Leave(roomID, s.ID())
	if !removed {
		return
	}
	slog.Info("peer left room", "room", roomID, "peer", s.ID(), "remaining", room.Size())

	h.broadcast(room, rosterMessage(room))
	h.broadcast(room, Message{Type: EventUserLeft, Payload: s.ID()})

	if room.IsEmpty() {
		h.destroyer.Schedule(roomID)
	}
}

func (h *Handler) requireJoined(s *Session) error {
	if s.roomID == "" {
		h.send(s.peer, errorMessage("You must join a room first"))
		return ErrNotJoined
	}
	return nil
}

func (h *Handler) broadcast(room domain.Room, msg Message) {
	for _, part := range room.Participants {
		if p, ok := h.hub.Get(part.ID); ok {
			h.send(p, msg)
		}
	}
}

func (h *Handler) send(p Peer, msg Message) {
	if err := p.Send(msg); err != nil {
		slog.Debug("signaling send failed", "peer", p.ID(), "type", msg.Type, "err", err)
	}
}
