package tcp

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/kiryu-dev/roomchat/internal/domain"
	"github.com/kiryu-dev/roomchat/pkg/wire"
	"go.uber.org/zap"
)

// NewBalancer serves the redirect protocol: read name and room, answer
// with the assigned server's port as a 4-byte big-endian integer, close.
// A malformed handshake or an empty pool closes without an answer.
func NewBalancer(addr string, table domain.AssignmentUseCase, handshakeTimeout time.Duration,
	logger *zap.Logger) *server {
	var s *server
	s = newServer("balancer", addr, func(_ context.Context, conn net.Conn) {
		redirect(conn, table, handshakeTimeout, s.logger)
	}, logger)
	return s
}

func redirect(conn net.Conn, table domain.AssignmentUseCase, handshakeTimeout time.Duration, logger *zap.Logger) {
	defer func() {
		_ = conn.Close()
	}()
	logger = logger.With(zap.String("conn", uuid.NewString()), zap.String("addr", conn.RemoteAddr().String()))
	if handshakeTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	}
	hs, err := wire.ReadHandshake(wire.NewReader(conn).Next)
	if err != nil {
		logger.Info("dropping client", zap.Error(err))
		return
	}
	logger.Info("client connected", zap.String("name", hs.Name), zap.String("room", hs.Room))
	ep, err := table.Resolve(hs.Room)
	if err != nil {
		logger.Warn("cannot resolve room", zap.String("room", hs.Room), zap.Error(err))
		return
	}
	if _, err := conn.Write(wire.EncodePort(uint32(ep.Port))); err != nil {
		logger.Warn("write port", zap.Error(err))
		return
	}
	logger.Info("directed client", zap.String("name", hs.Name), zap.String("room", hs.Room),
		zap.Int("port", ep.Port))
}
