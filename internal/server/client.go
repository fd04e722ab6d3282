package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"github.com/dqtoy/crazy-eights/internal/game"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 16 * 1024
	sendBuffer     = 256
)

// client is one WebSocket connection bound to a seat.
type client struct {
	seat uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn, seat uuid.UUID) *client {
	conn.SetReadLimit(maxMessageSize)
	return &client{seat: seat, conn: conn, send: make(chan []byte, sendBuffer)}
}

// enqueue must be called with the owning table's lock held.
func (c *client) enqueue(data []byte, log logrus.FieldLogger) {
	select {
	case c.send <- data:
	default:
		log.WithField("seat", c.seat).Warn("client send buffer full, dropping event")
	}
}

// readLoop decodes actions until the connection fails or ctx ends.
func (c *client) readLoop(ctx context.Context, log logrus.FieldLogger, handle func(game.Action) error) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				log.WithError(err).Debug("ws read ended")
			}
			return
		}
		var a game.Action
		if err := json.Unmarshal(data, &a); err != nil {
			log.WithError(err).Warn("dropping malformed action")
			continue
		}
		if err := handle(a); err != nil {
			log.WithError(err).WithField("action", a.ActionType).Error("action failed")
		}
	}
}

// writeLoop drains the send buffer and pings until the buffer is closed or ctx ends.
func (c *client) writeLoop(ctx context.Context, log logrus.FieldLogger) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		case <-ping.C:
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(wctx)
			cancel()
			if err != nil {
				log.WithError(err).Debug("ws ping failed")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
