package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/kiryu-dev/roomchat/internal/domain"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultInterval = 5 * time.Second
	defaultTimeout  = time.Second
)

type Config struct {
	Interval    time.Duration
	Timeout     time.Duration
	MaxFailures int
}

type invalidator interface {
	Invalidate(endpointID int) int
}

type useCase struct {
	registry    domain.ServerRegistry
	prober      domain.Prober
	assignments invalidator
	cfg         Config
	failures    map[int]int
	rounds      *atomic.Uint64
	mu          *sync.Mutex
	logger      *zap.Logger
}

func New(registry domain.ServerRegistry, prober domain.Prober, assignments invalidator, cfg Config,
	logger *zap.Logger) *useCase {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &useCase{
		registry:    registry,
		prober:      prober,
		assignments: assignments,
		cfg:         cfg,
		failures:    make(map[int]int),
		rounds:      atomic.NewUint64(0),
		mu:          &sync.Mutex{},
		logger:      logger,
	}
}

// Run probes every registered server once immediately and then every
// interval until ctx is done.
func (u *useCase) Run(ctx context.Context) error {
	ticker := time.NewTicker(u.cfg.Interval)
	defer ticker.Stop()
	u.logger.Info("heartbeat monitor started", zap.Duration("interval", u.cfg.Interval))
	u.CheckAll(ctx)
	for {
		select {
		case <-ticker.C:
			u.CheckAll(ctx)
		case <-ctx.Done():
			u.logger.Info("heartbeat monitor stopped")
			return nil
		}
	}
}

// CheckAll runs one probe round over every registered server, Dead ones
// included so that a registry allowing revival can bring them back.
func (u *useCase) CheckAll(ctx context.Context) {
	errGroup := new(errgroup.Group)
	for _, ep := range u.registry.All() {
		ep := ep
		errGroup.Go(func() error {
			u.check(ctx, ep)
			return nil
		})
	}
	_ = errGroup.Wait()
	u.rounds.Inc()
}

func (u *useCase) Rounds() uint64 {
	return u.rounds.Load()
}

func (u *useCase) check(ctx context.Context, ep domain.Endpoint) {
	probeCtx, cancel := context.WithTimeout(ctx, u.cfg.Timeout)
	defer cancel()
	load, err := u.prober.Probe(probeCtx, ep.Addr())
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		u.fail(ep, err)
		return
	}
	u.mu.Lock()
	delete(u.failures, ep.ID)
	u.mu.Unlock()
	if _, err := u.registry.MarkAlive(ep.ID); err != nil {
		u.logger.Warn(err.Error())
		return
	}
	if load >= 0 {
		if err := u.registry.SetLoad(ep.ID, load); err != nil {
			u.logger.Warn(err.Error())
		}
	}
}

func (u *useCase) fail(ep domain.Endpoint, probeErr error) {
	u.mu.Lock()
	u.failures[ep.ID]++
	failures := u.failures[ep.ID]
	u.mu.Unlock()
	u.logger.Warn("probe failed", zap.Int("id", ep.ID), zap.String("addr", ep.Addr()),
		zap.Int("failures", failures), zap.Int("max failures", u.cfg.MaxFailures), zap.Error(probeErr))

	if failures < u.cfg.MaxFailures {
		if _, err := u.registry.MarkSuspect(ep.ID); err != nil {
			u.logger.Warn(err.Error())
		}
		return
	}
	changed, err := u.registry.MarkDead(ep.ID)
	if err != nil {
		u.logger.Warn(err.Error())
		return
	}
	if !changed {
		return
	}
	removed := u.assignments.Invalidate(ep.ID)
	u.logger.Warn("server marked dead", zap.Int("id", ep.ID), zap.String("addr", ep.Addr()),
		zap.Int("invalidated rooms", removed))
}
