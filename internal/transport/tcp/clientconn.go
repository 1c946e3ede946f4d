package tcp

import (
	"io"
	"net"
	"time"

	"github.com/kiryu-dev/roomchat/internal/domain"
	"github.com/kiryu-dev/roomchat/pkg/wire"
	"github.com/pkg/errors"
)

type client struct {
	conn         net.Conn
	reader       *wire.Reader
	writeTimeout time.Duration
}

func newClient(conn net.Conn, writeTimeout time.Duration) client {
	return client{
		conn:         conn,
		reader:       wire.NewReader(conn),
		writeTimeout: writeTimeout,
	}
}

func (c client) ReadMessage() (string, error) {
	msg, err := c.reader.Next()
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		return "", domain.ErrConnectionClosed
	case err != nil:
		return "", errors.WithMessage(err, "tcp conn read")
	}
	return msg, nil
}

func (c client) WriteMessage(msg []byte) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return errors.WithMessage(err, "set write deadline")
		}
	}
	if _, err := c.conn.Write(msg); err != nil {
		return errors.WithMessage(err, "tcp conn write")
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
