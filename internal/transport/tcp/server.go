package tcp

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type handlerFunc func(ctx context.Context, conn net.Conn)

// server accepts TCP connections and runs handler on a goroutine per
// connection.
type server struct {
	addr     string
	name     string
	listener net.Listener
	handler  handlerFunc
	closing  *atomic.Bool
	cancel   context.CancelFunc
	wg       *sync.WaitGroup
	mu       *sync.Mutex
	logger   *zap.Logger
}

func newServer(name, addr string, handler handlerFunc, logger *zap.Logger) *server {
	return &server{
		addr:    addr,
		name:    name,
		handler: handler,
		closing: atomic.NewBool(false),
		cancel:  func() {},
		wg:      &sync.WaitGroup{},
		mu:      &sync.Mutex{},
		logger:  logger.With(zap.String("listener", name)),
	}
}

func (s *server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.WithMessagef(err, "listen '%s'", s.addr)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("starting listening address: " + ln.Addr().String())
	return nil
}

// Addr is the bound address, valid after Listen.
func (s *server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve accepts until Shutdown is called or ctx is done. Connection
// handlers get a context that is canceled on shutdown.
func (s *server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	connCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	if ln == nil {
		cancel()
		return errors.New("serve called before listen")
	}
	defer cancel()
	go func() {
		<-connCtx.Done()
		s.closing.Store(true)
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing.Load() {
				s.wg.Wait()
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.logger.Warn("accept: " + err.Error())
				continue
			}
			return errors.WithMessage(err, "accept")
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handler(connCtx, conn)
		}()
	}
}

func (s *server) Shutdown() error {
	s.closing.Store(true)
	s.mu.Lock()
	cancel := s.cancel
	ln := s.listener
	s.mu.Unlock()
	cancel()
	if ln != nil {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
	}
	return nil
}
