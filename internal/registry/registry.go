package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cwrk-planet/call-service/internal/domain"
)

// сколько раз перегенерировать id при коллизии, прежде чем сдаться
const maxIDAttempts = 16

type room struct {
	id           string
	createdAt    time.Time
	participants []*domain.Participant
}

func (r *room) find(participantID string) int {
	for i, p := range r.participants {
		if p.ID == participantID {
			return i
		}
	}
	return -1
}

func (r *room) snapshot() domain.Room {
	out := domain.Room{
		ID:           r.id,
		CreatedAt:    r.createdAt,
		Participants: make([]domain.Participant, 0, len(r.participants)),
	}
	for _, p := range r.participants {
		out.Participants = append(out.Participants, *p)
	}
	return out
}

// Registry: единственный источник правды о комнатах и их участниках.
// Все операции атомарны относительно друг друга.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room

	newID func() (string, error)
	now   func() time.Time
}

type Option func(*Registry)

// WithIDGenerator подменяет генератор идентификаторов (для тестов).
func WithIDGenerator(fn func() (string, error)) Option {
	return func(r *Registry) { r.newID = fn }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func New(opts ...Option) *Registry {
	r := &Registry{
		rooms: make(map[string]*room),
		newID: domain.NewRoomID,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create заводит пустую комнату. Для пустого id генерируется новый.
func (r *Registry) Create(id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id != "" {
		if !domain.ValidRoomID(id) {
			return "", domain.ErrInvalidRoomID
		}
		if _, ok := r.rooms[id]; ok {
			return "", domain.ErrRoomExists
		}
		r.insertLocked(id)
		return id, nil
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		candidate, err := r.newID()
		if err != nil {
			return "", err
		}
		if _, taken := r.rooms[candidate]; taken {
			continue
		}
		r.insertLocked(candidate)
		return candidate, nil
	}
	return "", fmt.Errorf("allocate room id after %d attempts: %w", maxIDAttempts, domain.ErrRoomExists)
}

func (r *Registry) insertLocked(id string) {
	r.rooms[id] = &room{
		id:           id,
		createdAt:    r.now(),
		participants: make([]*domain.Participant, 0, domain.MaxParticipants),
	}
}

func (r *Registry) Get(id string) (domain.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[id]
	if !ok {
		return domain.Room{}, false
	}
	return rm.snapshot(), true
}

// Join добавляет участника. Проверка вместимости и вставка идут под одним локом.
func (r *Registry) Join(roomID, participantID string) (domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if rm.find(participantID) >= 0 {
		return domain.Room{}, domain.ErrAlreadyJoined
	}
	if len(rm.participants) >= domain.MaxParticipants {
		return domain.Room{}, domain.ErrRoomFull
	}
	rm.participants = append(rm.participants, &domain.Participant{
		ID:       participantID,
		JoinedAt: r.now(),
	})
	return rm.snapshot(), nil
}

// Leave идемпотентен: повторный вызов ничего не меняет и возвращает removed=false.
func (r *Registry) Leave(roomID, participantID string) (domain.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return domain.Room{}, false
	}
	i := rm.find(participantID)
	if i < 0 {
		return rm.snapshot(), false
	}
	rm.participants = append(rm.participants[:i], rm.participants[i+1:]...)
	return rm.snapshot(), true
}

// SetReady помечает участника готовым. Если именно этот вызов сделал готовыми
// всех и их ровно двое, возвращает инициатора (первый вошедший) и цель звонка.
// Повторный ready от уже готового участника звонок не инициирует.
func (r *Registry) SetReady(roomID, participantID string) (initiator, target string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, found := r.rooms[roomID]
	if !found {
		return "", "", false
	}
	i := rm.find(participantID)
	if i < 0 || rm.participants[i].WebRTCReady {
		return "", "", false
	}
	rm.participants[i].WebRTCReady = true

	if len(rm.participants) != domain.MaxParticipants {
		return "", "", false
	}
	for _, p := range rm.participants {
		if !p.WebRTCReady {
			return "", "", false
		}
	}
	return rm.participants[0].ID, rm.participants[1].ID, true
}

func (r *Registry) SetMuted(roomID, participantID string, muted bool) (domain.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return domain.Room{}, false
	}
	i := rm.find(participantID)
	if i < 0 {
		return domain.Room{}, false
	}
	rm.participants[i].IsMuted = muted
	return rm.snapshot(), true
}

// IsEmpty для несуществующей комнаты возвращает false.
func (r *Registry) IsEmpty(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	return ok && len(rm.participants) == 0
}

// Delete удаляет комнату безусловно.
func (r *Registry) Delete(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
}

// DeleteIfEmpty удаляет комнату, только если в ней никого нет.
func (r *Registry) DeleteIfEmpty(roomID string) (deleted, existed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return false, false
	}
	if len(rm.participants) > 0 {
		return false, true
	}
	delete(r.rooms, roomID)
	return true, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Rooms: снапшот всех комнат, для админки.
func (r *Registry) Rooms() []domain.Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		out = append(out, rm.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
