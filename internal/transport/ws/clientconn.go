package ws

import (
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kiryu-dev/roomchat/internal/domain"
	"github.com/kiryu-dev/roomchat/pkg/wire"
	"github.com/pkg/errors"
)

type client struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	pending      *[]string
}

func newClient(conn *websocket.Conn, writeTimeout time.Duration) client {
	return client{
		conn:         conn,
		writeTimeout: writeTimeout,
		pending:      new([]string),
	}
}

// ReadMessage splits text frames like the TCP transport splits reads, so a
// frame holding "name\nroom" completes the handshake at once.
func (c client) ReadMessage() (string, error) {
	for len(*c.pending) == 0 {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "", domain.ErrConnectionClosed
			}
			return "", errors.WithMessage(err, "websocket conn read")
		}
		*c.pending = append(*c.pending, wire.Split(data)...)
	}
	msg := (*c.pending)[0]
	*c.pending = (*c.pending)[1:]
	return msg, nil
}

func (c client) WriteMessage(msg []byte) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return errors.WithMessage(err, "set write deadline")
		}
	}
	text := strings.TrimSuffix(string(msg), "\n")
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return errors.WithMessage(err, "websocket conn write")
	}
	return nil
}

func (c client) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c client) Close() error {
	return c.conn.Close()
}
