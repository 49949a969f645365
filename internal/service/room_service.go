package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cwrk-planet/call-service/internal/domain"
	"github.com/cwrk-planet/call-service/internal/registry"
)

// Destructions: планировщик удаления в том объёме, что нужен сервису.
type Destructions interface {
	Schedule(roomID string) time.Time
	Pending(roomID string) (time.Time, bool)
}

// RoomInfo: публичное представление комнаты для HTTP и gRPC.
type RoomInfo struct {
	ID                     string
	CreatedAt              time.Time
	Participants           int
	DestructionScheduledAt *time.Time
}

type RoomService struct {
	rooms        *registry.Registry
	destructions Destructions
}

func NewRoomService(rooms *registry.Registry, destructions Destructions) *RoomService {
	return &RoomService{rooms: rooms, destructions: destructions}
}

// CreateRoom создаёт пустую комнату. Для пустого id генерируется новый.
// Новая комната сразу ставится на удаление: если никто не зайдёт,
// она исчезнет по истечении grace period.
func (s *RoomService) CreateRoom(ctx context.Context, id string) (RoomInfo, error) {
	if err := ctx.Err(); err != nil {
		return RoomInfo{}, err
	}
	roomID, err := s.rooms.Create(id)
	if err != nil {
		return RoomInfo{}, fmt.Errorf("rooms.Create: %w", err)
	}
	s.destructions.Schedule(roomID)

	return s.GetRoom(ctx, roomID)
}

// GetRoom возвращает комнату по ID.
func (s *RoomService) GetRoom(ctx context.Context, id string) (RoomInfo, error) {
	if err := ctx.Err(); err != nil {
		return RoomInfo{}, err
	}
	room, ok := s.rooms.Get(id)
	if !ok {
		return RoomInfo{}, domain.ErrRoomNotFound
	}
	return s.info(room), nil
}

// ListRooms возвращает все комнаты в порядке создания.
func (s *RoomService) ListRooms(ctx context.Context) ([]RoomInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rooms := s.rooms.Rooms()
	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, s.info(r))
	}
	return out, nil
}

func (s *RoomService) info(r domain.Room) RoomInfo {
	info := RoomInfo{
		ID:           r.ID,
		CreatedAt:    r.CreatedAt,
		Participants: r.Size(),
	}
	if at, ok := s.destructions.Pending(r.ID); ok {
		info.DestructionScheduledAt = &at
	}
	return info
}
