package ws

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/call-service/internal/signaling"

	"github.com/gorilla/websocket"
)

var (
	ErrConnClosed     = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// wsConn: одно websocket-соединение. Пишет в сокет только writePump.
type wsConn struct {
	id   string
	conn *websocket.Conn

	send      chan signaling.Message
	done      chan struct{}
	closeOnce sync.Once
}

func newWsConn(conn *websocket.Conn, id string, buffer int) *wsConn {
	return &wsConn{
		id:   id,
		conn: conn,
		send: make(chan signaling.Message, buffer),
		done: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

// Send ставит сообщение в очередь и никогда не блокируется:
// при переполненной очереди сообщение отбрасывается.
func (c *wsConn) Send(msg signaling.Message) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		slog.Warn("ws send buffer full, message dropped", "peer", c.id, "type", msg.Type)
		return ErrSendBufferFull
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) writePump(pingEvery time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				slog.Debug("ws write failed", "peer", c.id, "err", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
