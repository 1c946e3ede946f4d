package domain

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

type SessionState int32

const (
	Connected = SessionState(iota)
	Handshaking
	Active
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Handshaking:
		return "handshaking"
	case Active:
		return "active"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type Session struct {
	id      string
	name    *atomic.String
	room    *atomic.String
	state   *atomic.Int32
	conn    Conn
	writeMu *sync.Mutex
}

func NewSession(conn Conn) *Session {
	return &Session{
		id:      uuid.NewString(),
		name:    atomic.NewString(""),
		room:    atomic.NewString(""),
		state:   atomic.NewInt32(int32(Connected)),
		conn:    conn,
		writeMu: &sync.Mutex{},
	}
}

func (s *Session) Id() string {
	return s.id
}

func (s *Session) Name() string {
	return s.name.Load()
}

func (s *Session) SetName(name string) {
	s.name.Store(name)
}

// Room is the room the session currently belongs to, or "" when it belongs
// to none. Only RoomUseCase implementations should call SetRoom.
func (s *Session) Room() string {
	return s.room.Load()
}

func (s *Session) SetRoom(room string) {
	s.room.Store(room)
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) SetState(state SessionState) {
	s.state.Store(int32(state))
}

func (s *Session) Conn() Conn {
	return s.conn
}

// Send writes one line to the session. Writes from concurrent broadcasts
// are serialized per session.
func (s *Session) Send(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage([]byte(line)); err != nil {
		return errors.WithMessagef(ErrRecipientUnreachable, "write to '%s': %s", s.Name(), err)
	}
	return nil
}

func (s *Session) Close() {
	s.SetState(Closed)
	_ = s.conn.Close()
}
