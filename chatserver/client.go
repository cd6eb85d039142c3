package chatserver

import (
	"errors"
	"net"
	"time"

	"github.com/gbrlsnchs/wschat"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 << 10
	sendQueueSize  = 256

	textOnlyNotice = "Server only accepts text data! Closing connection."
)

// client is one upgraded connection. Its send channel is closed by the hub,
// which makes the write pump send a close frame and release the socket.
type client struct {
	id   string
	addr string
	role wschat.Role
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	pingInterval time.Duration
	timeout      time.Duration
	logger       zerolog.Logger
}

// readDeadline is zero when pings are disabled.
func (c *client) readDeadline() time.Time {
	if c.pingInterval <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.pingInterval + c.timeout)
}

func (c *client) readPump() {
	defer enqueue(c.hub, c.hub.unregister, c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(c.readDeadline())
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(c.readDeadline())
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logClosed(err)
			return
		}
		c.conn.SetReadDeadline(c.readDeadline())
		if !c.role.Produces() {
			continue
		}
		if kind != websocket.TextMessage {
			c.logger.Warn().Int("type", kind).Msg("non-text message")
			enqueue(c.hub, c.hub.dismiss, message{source: c, data: []byte(textOnlyNotice)})
			return
		}
		c.logger.Debug().Int("len", len(data)).Msg("message received")
		line := append([]byte(c.addr+": "), data...)
		if !enqueue(c.hub, c.hub.broadcast, message{source: c, data: line}) {
			return
		}
	}
}

func (c *client) logClosed(err error) {
	var ce *websocket.CloseError
	switch {
	case errors.As(err, &ce):
		c.logger.Debug().Int("code", ce.Code).Str("reason", ce.Text).Msg("client closed the connection")
	case errors.Is(err, net.ErrClosed):
		c.logger.Debug().Msg("connection released")
	default:
		c.logger.Warn().Err(err).Msg("connection lost")
	}
}

func (c *client) writePump() {
	var tick <-chan time.Time
	if c.pingInterval > 0 {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer c.conn.Close()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug().Err(err).Msg("write failed")
				return
			}
		case <-tick:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
