package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval: как часто чистим протухшие окна.
const DefaultSweepInterval = 5 * time.Minute

// Rule: не больше Max событий за окно Window.
type Rule struct {
	Max    int
	Window time.Duration
}

type key struct {
	conn  string
	event string
}

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter: фиксированное окно со сбросом по истечении (не скользящее):
// всплеск на границе окон допустим.
type Limiter struct {
	mu      sync.Mutex
	clock   Clock
	entries map[key]*entry
}

func New(clock Clock) *Limiter {
	if clock == nil {
		clock = RealClock{}
	}
	return &Limiter{
		clock:   clock,
		entries: make(map[key]*entry),
	}
}

// Allow учитывает событие и сообщает, укладывается ли оно в лимит.
// Rule с Max <= 0 лимит не ограничивает.
func (l *Limiter) Allow(connID, event string, rule Rule) bool {
	if rule.Max <= 0 || rule.Window <= 0 {
		return true
	}
	now := l.clock.Now()
	k := key{conn: connID, event: event}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[k]
	if !ok || now.After(e.resetAt) {
		l.entries[k] = &entry{count: 1, resetAt: now.Add(rule.Window)}
		return true
	}
	if e.count >= rule.Max {
		return false
	}
	e.count++
	return true
}

// Forget убирает все счётчики соединения.
func (l *Limiter) Forget(connID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k := range l.entries {
		if k.conn == connID {
			delete(l.entries, k)
		}
	}
}

// Sweep удаляет окна, истёкшие к моменту now. Возвращает число удалённых.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for k, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, k)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Run периодически вызывает Sweep, пока не отменён ctx.
func (l *Limiter) Run(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = DefaultSweepInterval
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := l.Sweep(l.clock.Now()); n > 0 {
				slog.Debug("rate limiter sweep", "removed", n)
			}
		}
	}
}
