package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultGracePeriod   = 2 * time.Hour
	DefaultSweepInterval = time.Minute
)

// Rooms: то, что планировщику нужно от реестра.
type Rooms interface {
	DeleteIfEmpty(roomID string) (deleted, existed bool)
}

// Result: итог одного прохода Sweep.
type Result struct {
	Deleted         []string
	SkippedNotEmpty []string
	SkippedMissing  []string
}

// Scheduler откладывает удаление опустевших комнат на grace period,
// чтобы клиент успел переподключиться после сетевого сбоя.
type Scheduler struct {
	rooms Rooms
	grace time.Duration
	every time.Duration
	now   func() time.Time

	mu      sync.Mutex
	pending map[string]time.Time
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(rooms Rooms, grace, every time.Duration, opts ...Option) *Scheduler {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	if every <= 0 {
		every = DefaultSweepInterval
	}
	s := &Scheduler{
		rooms:   rooms,
		grace:   grace,
		every:   every,
		now:     time.Now,
		pending: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule ставит комнату на удаление. Повторный вызов перезаписывает срок.
func (s *Scheduler) Schedule(roomID string) time.Time {
	at := s.now().Add(s.grace)

	s.mu.Lock()
	s.pending[roomID] = at
	s.mu.Unlock()

	slog.Debug("room destruction scheduled", "room", roomID, "at", at)
	return at
}

// Cancel снимает комнату с удаления. Возвращает true, если запись была.
func (s *Scheduler) Cancel(roomID string) bool {
	s.mu.Lock()
	_, ok := s.pending[roomID]
	delete(s.pending, roomID)
	s.mu.Unlock()

	if ok {
		slog.Debug("room destruction cancelled", "room", roomID)
	}
	return ok
}

func (s *Scheduler) Pending(roomID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.pending[roomID]
	return at, ok
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Sweep удаляет комнаты, чей срок наступил к now. Перед удалением реестр
// ещё раз проверяет, что комната пуста: непустые не трогаем никогда.
func (s *Scheduler) Sweep(now time.Time) Result {
	s.mu.Lock()
	var due []string
	for id, at := range s.pending {
		if !now.Before(at) {
			due = append(due, id)
			delete(s.pending, id)
		}
	}
	s.mu.Unlock()

	var res Result
	for _, id := range due {
		deleted, existed := s.rooms.DeleteIfEmpty(id)
		switch {
		case deleted:
			res.Deleted = append(res.Deleted, id)
			slog.Info("room destroyed", "room", id)
		case existed:
			res.SkippedNotEmpty = append(res.SkippedNotEmpty, id)
			slog.Warn("scheduled destruction skipped: room is not empty", "room", id)
		default:
			res.SkippedMissing = append(res.SkippedMissing, id)
			slog.Warn("scheduled destruction skipped: room no longer exists", "room", id)
		}
	}
	return res
}

// Run крутит Sweep по тикеру до отмены ctx.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	slog.Info("destruction scheduler started", "grace", s.grace.String(), "every", s.every.String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("destruction scheduler stopped", "pending", s.Len())
			return nil
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}
