package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/call-service/internal/domain"
	"github.com/cwrk-planet/call-service/internal/registry"
	"github.com/cwrk-planet/call-service/internal/scheduler"
	"github.com/cwrk-planet/call-service/internal/service"
	"github.com/cwrk-planet/call-service/internal/turn"
)

func newRouter(t *testing.T, ice *turn.Provider) (http.Handler, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	svc := service.NewRoomService(reg, scheduler.New(reg, time.Hour, time.Minute))
	ws := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }
	return NewRouter(NewHandler(svc, ice), ws, RouterOptions{}), reg
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateRoom_Generated(t *testing.T) {
	h, reg := newRouter(t, nil)

	rec := do(t, h, http.MethodPost, "/create-room", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var resp CreateRoomResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !domain.ValidRoomID(resp.RoomID) {
		t.Fatalf("bad room id %q", resp.RoomID)
	}
	if _, ok := reg.Get(resp.RoomID); !ok {
		t.Fatal("room not registered")
	}
}

func TestCreateRoom_ExplicitAndConflicts(t *testing.T) {
	h, _ := newRouter(t, nil)

	if rec := do(t, h, http.MethodPost, "/create-room", `{"roomId":"abc-defg-hij"}`); rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	if rec := do(t, h, http.MethodPost, "/create-room", `{"roomId":"abc-defg-hij"}`); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/create-room", `{"roomId":"nope"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/create-room", `{`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", rec.Code)
	}
}

func TestGetRoom(t *testing.T) {
	h, reg := newRouter(t, nil)
	id, _ := reg.Create("")
	if _, err := reg.Join(id, "p1"); err != nil {
		t.Fatal(err)
	}

	rec := do(t, h, http.MethodGet, "/rooms/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var item RoomItem
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatal(err)
	}
	if item.RoomID != id || item.Participants != 1 {
		t.Fatalf("unexpected item: %+v", item)
	}

	if rec := do(t, h, http.MethodGet, "/rooms/zzz-zzzz-zzz", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListRooms(t *testing.T) {
	h, _ := newRouter(t, nil)
	do(t, h, http.MethodPost, "/create-room", "")
	do(t, h, http.MethodPost, "/create-room", "")

	rec := do(t, h, http.MethodGet, "/rooms", "")
	var resp RoomsListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Items) != 2 || resp.Items[0].DestructionScheduledAt == nil {
		t.Fatalf("unexpected list: %+v", resp.Items)
	}
}

func TestTurnCredentials(t *testing.T) {
	ice, err := turn.NewProvider(turn.Config{
		Secret:   "s",
		TTL:      time.Hour,
		URLs:     []string{"turn:turn.example.com:3478"},
		STUNURLs: []string{"stun:stun.example.com:3478"},
	})
	if err != nil {
		t.Fatal(err)
	}
	h, _ := newRouter(t, ice)

	rec := do(t, h, http.MethodGet, "/turn-credentials", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		ICEServers []struct {
			URLs       []string `json:"urls"`
			Username   string   `json:"username"`
			Credential string   `json:"credential"`
		} `json:"iceServers"`
		TTL int64 `json:"ttl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TTL != 3600 || len(resp.ICEServers) != 2 {
		t.Fatalf("unexpected response: %s", rec.Body)
	}
	if resp.ICEServers[1].Username == "" || resp.ICEServers[1].Credential == "" {
		t.Fatalf("turn entry without credentials: %s", rec.Body)
	}
}

func TestTurnCredentials_NotConfigured(t *testing.T) {
	h, _ := newRouter(t, nil)
	if rec := do(t, h, http.MethodGet, "/turn-credentials", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHealthzAndWSRoute(t *testing.T) {
	h, _ := newRouter(t, nil)
	if rec := do(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body)
	}
	if rec := do(t, h, http.MethodGet, "/ws", ""); rec.Code != http.StatusTeapot {
		t.Fatalf("ws route not wired: %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newRouter(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/create-room", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("missing CORS header, headers=%v", rec.Header())
	}
}
