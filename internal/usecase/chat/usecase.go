package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kiryu-dev/roomchat/internal/domain"
	"github.com/kiryu-dev/roomchat/pkg/wire"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const helpText = `Available commands:
#help         - show this help
#list         - list rooms on this server
#room <name>  - switch to another room
#exit         - leave the chat
`

type useCase struct {
	rooms            domain.RoomUseCase
	handshakeTimeout time.Duration
	logger           *zap.Logger
}

func New(rooms domain.RoomUseCase, handshakeTimeout time.Duration, logger *zap.Logger) useCase {
	return useCase{
		rooms:            rooms,
		handshakeTimeout: handshakeTimeout,
		logger:           logger,
	}
}

// Handle drives one connection from handshake to close. It returns when
// the client exits, the connection fails or ctx is done.
func (u useCase) Handle(ctx context.Context, conn domain.Conn) error {
	session := domain.NewSession(conn)
	defer u.close(session)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			session.Close()
		case <-stop:
		}
	}()

	session.SetState(domain.Handshaking)
	if u.handshakeTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(u.handshakeTimeout))
	}
	hs, err := wire.ReadHandshake(conn.ReadMessage)
	if err != nil {
		return errors.WithMessagef(err, "handshake from '%s'", conn.RemoteAddr())
	}
	_ = conn.SetReadDeadline(time.Time{})

	if hs.IsLoadQuery() {
		return u.answerLoadQuery(session)
	}

	session.SetName(hs.Name)
	u.rooms.Join(session, hs.Room)
	session.SetState(domain.Active)
	u.logger.Info("client connected", zap.String("session", session.Id()),
		zap.String("name", hs.Name), zap.String("room", hs.Room), zap.String("addr", conn.RemoteAddr()))

	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			u.logger.Info("client disconnected", zap.String("session", session.Id()),
				zap.String("name", session.Name()), zap.Error(err))
			return nil
		}
		directive, ok := domain.ParseDirective(msg)
		if !ok {
			u.rooms.Broadcast(ctx, session, msg)
			continue
		}
		if directive.Kind == domain.DirectiveExit {
			u.logger.Info("client exited", zap.String("session", session.Id()),
				zap.String("name", session.Name()))
			return nil
		}
		if err := u.execute(session, directive); err != nil {
			u.logger.Info("dropping session", zap.String("session", session.Id()), zap.Error(err))
			return nil
		}
	}
}

func (u useCase) execute(session *domain.Session, d domain.Directive) error {
	switch d.Kind {
	case domain.DirectiveHelp:
		return session.Send(helpText)
	case domain.DirectiveList:
		return session.Send(formatRooms(u.rooms.Rooms(), session.Room()))
	case domain.DirectiveRoom:
		if d.Arg == "" {
			return session.Send("usage: #room <name>\n")
		}
		if d.Arg == session.Room() {
			return session.Send(fmt.Sprintf("already in room %s\n", d.Arg))
		}
		previous := u.rooms.Join(session, d.Arg)
		return session.Send(fmt.Sprintf("switched from room %s to room %s\n", previous, d.Arg))
	default:
		return session.Send(fmt.Sprintf("unknown command '#%s', type #help for available commands\n", d.Name))
	}
}

func (u useCase) answerLoadQuery(session *domain.Session) error {
	load := u.rooms.SessionCount()
	if err := session.Conn().WriteMessage(wire.EncodePort(uint32(load))); err != nil {
		return errors.WithMessage(err, "write load reply")
	}
	return nil
}

func (u useCase) close(session *domain.Session) {
	u.rooms.Leave(session)
	session.Close()
}

func formatRooms(rooms []domain.RoomInfo, current string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Rooms (%d):\n", len(rooms)))
	for _, r := range rooms {
		marker := ""
		if r.Name == current {
			marker = " *"
		}
		sb.WriteString(fmt.Sprintf("  %s (%d users)%s\n", r.Name, r.Members, marker))
	}
	return sb.String()
}
