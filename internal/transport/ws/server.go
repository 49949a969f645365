package ws

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/cwrk-planet/call-service/internal/signaling"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

const (
	writeWait = 10 * time.Second

	DefaultPingInterval   = 25 * time.Second
	DefaultSendBuffer     = 64
	DefaultMaxMessageSize = 64 * 1024 // SDP целиком влезает
)

type Options struct {
	PingInterval   time.Duration
	SendBuffer     int
	MaxMessageSize int64
	AllowedOrigins []string // пусто или "*" означает любые
}

type Server struct {
	upgrader websocket.Upgrader
	handler  *signaling.Handler

	pingEvery  time.Duration
	sendBuffer int
	readLimit  int64
}

func NewServer(handler *signaling.Handler, opts Options) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = DefaultPingInterval
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Server{
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(opts.AllowedOrigins),
		},
		pingEvery:  opts.PingInterval,
		sendBuffer: opts.SendBuffer,
		readLimit:  opts.MaxMessageSize,
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// WS endpoint: GET /ws
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		slog.Warn("ws upgrade failed", "err", err, "remote", r.RemoteAddr)
		return
	}

	c := newWsConn(conn, uuid.NewString(), s.sendBuffer)
	sess := s.handler.Connect(c)
	slog.Info("ws connected", "peer", c.id, "remote", r.RemoteAddr)

	go c.writePump(s.pingEvery)
	s.readPump(c, sess)

	s.handler.Disconnect(sess)
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "peer", c.id, "err", err)
	}
	slog.Info("ws disconnected", "peer", c.id)
}

func (s *Server) readPump(c *wsConn, sess *signaling.Session) {
	pongWait := 2 * s.pingEvery

	c.conn.SetReadLimit(s.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Debug("ws read failed", "peer", c.id, "err", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		name, payload, ok := parseEnvelope(data)
		if !ok {
			_ = c.Send(signaling.Message{
				Type:    signaling.EventError,
				Payload: signaling.ErrorPayload{Message: "Invalid message format"},
			})
			continue
		}
		if err := s.handler.Dispatch(sess, name, payload); err != nil {
			slog.Debug("signaling event rejected", "peer", c.id, "event", name, "err", err)
		}
	}
}

// parseEnvelope достаёт type и сырой payload из {"type": ..., "payload": ...}.
func parseEnvelope(data []byte) (name string, payload []byte, ok bool) {
	if !gjson.ValidBytes(data) {
		return "", nil, false
	}
	res := gjson.GetManyBytes(data, "type", "payload")
	if res[0].Type != gjson.String || res[0].Str == "" {
		return "", nil, false
	}
	if res[1].Exists() {
		payload = []byte(res[1].Raw)
	}
	return res[0].Str, payload, true
}
