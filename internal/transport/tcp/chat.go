package tcp

import (
	"context"
	"net"
	"time"

	"github.com/kiryu-dev/roomchat/internal/domain"
	"go.uber.org/zap"
)

// NewChat serves the chat protocol: every accepted connection becomes a
// session driven by chat.
func NewChat(addr string, chat domain.ChatUseCase, writeTimeout time.Duration, logger *zap.Logger) *server {
	var s *server
	s = newServer("chat", addr, func(ctx context.Context, conn net.Conn) {
		s.logger.Info("new connection", zap.String("addr", conn.RemoteAddr().String()))
		if err := chat.Handle(ctx, newClient(conn, writeTimeout)); err != nil {
			s.logger.Info(err.Error())
		}
	}, logger)
	return s
}
