package ws

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kiryu-dev/roomchat/internal/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type server struct {
	srv          *http.Server
	chat         domain.ChatUseCase
	rooms        domain.RoomUseCase
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	logger       *zap.Logger
}

// New exposes the chat over WebSocket on /chat and a JSON health report
// on /health.
func New(addr string, chat domain.ChatUseCase, rooms domain.RoomUseCase, writeTimeout time.Duration,
	logger *zap.Logger) *server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &server{
		chat:  chat,
		rooms: rooms,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		writeTimeout: writeTimeout,
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger.With(zap.String("listener", "ws")),
	}
	s.srv = &http.Server{Addr: addr, Handler: s.routes()}
	return s
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.serveWs)
	mux.HandleFunc("GET /health", s.healthCheck)
	return mux
}

func (s *server) Serve(ln net.Listener) error {
	s.logger.Info("starting listening address: " + ln.Addr().String())
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.WithMessage(err, "serve websocket")
	}
	return nil
}

func (s *server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return errors.WithMessagef(err, "listen '%s'", s.srv.Addr)
	}
	return s.Serve(ln)
}

// Shutdown stops accepting and closes live websocket sessions; hijacked
// connections are not tracked by http.Server.
func (s *server) Shutdown() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
