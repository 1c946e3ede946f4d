package domain

import (
	"time"

	"github.com/kiryu-dev/roomchat/pkg/wire"
	"github.com/pkg/errors"
)

var (
	ErrConnectionClosed     = errors.New("connection closed")
	ErrMalformedHandshake   = wire.ErrMalformedHandshake
	ErrRecipientUnreachable = errors.New("recipient unreachable")
)

// Conn is a transport-neutral client connection. ReadMessage yields one
// message per call; WriteMessage sends the bytes as they are.
type Conn interface {
	ReadMessage() (string, error)
	WriteMessage(msg []byte) error
	SetReadDeadline(t time.Time) error
	RemoteAddr() string
	Close() error
}
