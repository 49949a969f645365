package registry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cwrk-planet/call-service/internal/domain"
)

func newRoom(t *testing.T, r *Registry) string {
	t.Helper()
	id, err := r.Create("")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return id
}

func TestCreate_GeneratesValidID(t *testing.T) {
	r := New()
	id := newRoom(t, r)
	if !domain.ValidRoomID(id) {
		t.Fatalf("invalid generated id %q", id)
	}
	rm, ok := r.Get(id)
	if !ok || !rm.IsEmpty() || rm.CreatedAt.IsZero() {
		t.Fatalf("unexpected room: %+v ok=%v", rm, ok)
	}
}

func TestCreate_RegeneratesOnCollision(t *testing.T) {
	ids := []string{"aaa-aaaa-aaa", "aaa-aaaa-aaa", "bbb-bbbb-bbb"}
	var calls int
	r := New(WithIDGenerator(func() (string, error) {
		id := ids[calls]
		calls++
		return id, nil
	}))

	first := newRoom(t, r)
	second := newRoom(t, r)
	if first != "aaa-aaaa-aaa" || second != "bbb-bbbb-bbb" {
		t.Fatalf("got %q and %q", first, second)
	}
	if calls != 3 {
		t.Fatalf("expected generator to be retried, calls=%d", calls)
	}
}

func TestCreate_GivesUpAfterPersistentCollision(t *testing.T) {
	r := New(WithIDGenerator(func() (string, error) { return "aaa-aaaa-aaa", nil }))
	newRoom(t, r)
	if _, err := r.Create(""); !errors.Is(err, domain.ErrRoomExists) {
		t.Fatalf("expected ErrRoomExists, got %v", err)
	}
}

func TestCreate_ExplicitID(t *testing.T) {
	r := New()
	if _, err := r.Create("abc-defg-hij"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := r.Create("abc-defg-hij"); !errors.Is(err, domain.ErrRoomExists) {
		t.Fatalf("expected ErrRoomExists, got %v", err)
	}
	if _, err := r.Create("bad id"); !errors.Is(err, domain.ErrInvalidRoomID) {
		t.Fatalf("expected ErrInvalidRoomID, got %v", err)
	}
}

func TestJoin_CapacityIsTwo(t *testing.T) {
	r := New()
	id := newRoom(t, r)

	if _, err := r.Join(id, "a"); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if _, err := r.Join(id, "b"); err != nil {
		t.Fatalf("join b: %v", err)
	}
	if _, err := r.Join(id, "c"); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}

	rm, _ := r.Get(id)
	if rm.Size() != 2 || rm.Participants[0].ID != "a" || rm.Participants[1].ID != "b" {
		t.Fatalf("existing members changed: %+v", rm.Participants)
	}
}

func TestJoin_UnknownRoomDoesNotMutate(t *testing.T) {
	r := New()
	if _, err := r.Join("zzz-zzzz-zzz", "a"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("registry mutated: %d rooms", r.Len())
	}
}

func TestJoin_Twice(t *testing.T) {
	r := New()
	id := newRoom(t, r)
	if _, err := r.Join(id, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Join(id, "a"); !errors.Is(err, domain.ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
}

func TestJoin_ConcurrentNeverExceedsCapacity(t *testing.T) {
	r := New()
	id := newRoom(t, r)

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := r.Join(id, fmt.Sprintf("p%d", i)); err == nil {
				ok.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if ok.Load() != 2 {
		t.Fatalf("expected exactly 2 successful joins, got %d", ok.Load())
	}
	rm, _ := r.Get(id)
	if rm.Size() != 2 {
		t.Fatalf("room size %d", rm.Size())
	}
}

func TestLeave_Idempotent(t *testing.T) {
	r := New()
	id := newRoom(t, r)
	_, _ = r.Join(id, "a")
	_, _ = r.Join(id, "b")

	rm, removed := r.Leave(id, "a")
	if !removed || rm.Size() != 1 || rm.Participants[0].ID != "b" {
		t.Fatalf("unexpected leave result: %+v removed=%v", rm, removed)
	}
	if _, removed := r.Leave(id, "a"); removed {
		t.Fatalf("second leave must be a no-op")
	}
	if _, removed := r.Leave("zzz-zzzz-zzz", "a"); removed {
		t.Fatalf("leave on unknown room must be a no-op")
	}
}

func TestSetReady_FirstJoinerInitiates(t *testing.T) {
	r := New()
	id := newRoom(t, r)
	_, _ = r.Join(id, "first")
	_, _ = r.Join(id, "second")

	if _, _, ok := r.SetReady(id, "second"); ok {
		t.Fatalf("call must not start until both are ready")
	}
	initiator, target, ok := r.SetReady(id, "first")
	if !ok || initiator != "first" || target != "second" {
		t.Fatalf("got initiator=%q target=%q ok=%v", initiator, target, ok)
	}
}

func TestSetReady_RepeatedReadyDoesNotRestart(t *testing.T) {
	r := New()
	id := newRoom(t, r)
	_, _ = r.Join(id, "first")
	_, _ = r.Join(id, "second")
	r.SetReady(id, "first")
	r.SetReady(id, "second")

	if _, _, ok := r.SetReady(id, "first"); ok {
		t.Fatal("repeated ready must not start another call")
	}

	// второй ушёл, пришёл новый: готовность первого сохраняется
	r.Leave(id, "second")
	_, _ = r.Join(id, "third")
	initiator, target, ok := r.SetReady(id, "third")
	if !ok || initiator != "first" || target != "third" {
		t.Fatalf("got initiator=%q target=%q ok=%v", initiator, target, ok)
	}
}

func TestSetReady_AloneDoesNotStart(t *testing.T) {
	r := New()
	id := newRoom(t, r)
	_, _ = r.Join(id, "a")
	if _, _, ok := r.SetReady(id, "a"); ok {
		t.Fatalf("single participant must not trigger a call")
	}
	if _, _, ok := r.SetReady(id, "ghost"); ok {
		t.Fatalf("unknown participant must be a no-op")
	}
}

func TestSetMuted_PreservesOtherFlags(t *testing.T) {
	r := New()
	id := newRoom(t, r)
	_, _ = r.Join(id, "a")
	_, _ = r.Join(id, "b")
	r.SetReady(id, "a")

	rm, ok := r.SetMuted(id, "a", true)
	if !ok {
		t.Fatal("SetMuted failed")
	}
	a, b := rm.Participants[0], rm.Participants[1]
	if !a.IsMuted || !a.WebRTCReady {
		t.Fatalf("a flags wrong: %+v", a)
	}
	if b.IsMuted || b.WebRTCReady {
		t.Fatalf("b flags changed: %+v", b)
	}
}

func TestDeleteIfEmpty(t *testing.T) {
	r := New()
	id := newRoom(t, r)
	_, _ = r.Join(id, "a")

	if deleted, existed := r.DeleteIfEmpty(id); deleted || !existed {
		t.Fatalf("non-empty room deleted=%v existed=%v", deleted, existed)
	}
	r.Leave(id, "a")
	if !r.IsEmpty(id) {
		t.Fatalf("room should be empty")
	}
	if deleted, _ := r.DeleteIfEmpty(id); !deleted {
		t.Fatalf("empty room should be deleted")
	}
	if deleted, existed := r.DeleteIfEmpty(id); deleted || existed {
		t.Fatalf("missing room: deleted=%v existed=%v", deleted, existed)
	}
	if r.IsEmpty(id) {
		t.Fatalf("IsEmpty must be false for a missing room")
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	r := New()
	id := newRoom(t, r)
	_, _ = r.Join(id, "a")

	rm, _ := r.Get(id)
	rm.Participants[0].IsMuted = true

	again, _ := r.Get(id)
	if again.Participants[0].IsMuted {
		t.Fatalf("snapshot leaked internal state")
	}
}
