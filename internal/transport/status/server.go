package status

import (
	"context"
	"net"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/kiryu-dev/roomchat/internal/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type endpointStatus struct {
	domain.Endpoint
	Addr  string `json:"addr"`
	Rooms int    `json:"rooms"`
}

type response struct {
	Endpoints   []endpointStatus    `json:"endpoints"`
	Assignments []domain.Assignment `json:"assignments"`
}

type server struct {
	srv      *http.Server
	registry domain.ServerRegistry
	table    domain.AssignmentUseCase
	logger   *zap.Logger
}

// New serves GET /status with the pool and the room assignments.
func New(addr string, registry domain.ServerRegistry, table domain.AssignmentUseCase, logger *zap.Logger) *server {
	s := &server{
		registry: registry,
		table:    table,
		logger:   logger.With(zap.String("listener", "status")),
	}
	s.srv = &http.Server{Addr: addr, Handler: s.routes()}
	return s
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.status)
	return mux
}

func (s *server) status(w http.ResponseWriter, _ *http.Request) {
	counts := s.table.Counts()
	resp := response{
		Assignments: s.table.Assignments(),
	}
	for _, ep := range s.registry.All() {
		resp.Endpoints = append(resp.Endpoints, endpointStatus{
			Endpoint: ep,
			Addr:     ep.Addr(),
			Rooms:    counts[ep.ID],
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := jsoniter.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		s.logger.Warn(err.Error())
	}
}

func (s *server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return errors.WithMessagef(err, "listen '%s'", s.srv.Addr)
	}
	s.logger.Info("starting listening address: " + ln.Addr().String())
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.WithMessage(err, "serve status")
	}
	return nil
}

func (s *server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
