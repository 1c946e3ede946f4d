package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/kiryu-dev/roomchat/internal/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type useCase struct {
	endpoints  map[int]*domain.Endpoint
	order      []int
	reviveDead bool
	mu         *sync.RWMutex
	logger     *zap.Logger
}

// New creates an empty registry. With reviveDead unset a Dead endpoint
// stays Dead until the process restarts.
func New(reviveDead bool, logger *zap.Logger) *useCase {
	return &useCase{
		endpoints:  make(map[int]*domain.Endpoint),
		reviveDead: reviveDead,
		mu:         &sync.RWMutex{},
		logger:     logger,
	}
}

func (u *useCase) Register(endpoint domain.Endpoint) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.endpoints[endpoint.ID]; ok {
		return errors.WithMessagef(domain.ErrDuplicateEndpoint, "id %d", endpoint.ID)
	}
	ep := endpoint
	u.endpoints[ep.ID] = &ep
	u.order = append(u.order, ep.ID)
	sort.Ints(u.order)
	u.logger.Info("registered server", zap.Int("id", ep.ID), zap.String("addr", ep.Addr()),
		zap.Stringer("state", ep.State))
	return nil
}

func (u *useCase) MarkAlive(id int) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	ep, ok := u.endpoints[id]
	if !ok {
		return false, errors.WithMessagef(domain.ErrUnknownEndpoint, "id %d", id)
	}
	if ep.State == domain.Dead && !u.reviveDead {
		return false, nil
	}
	ep.LastProbe = time.Now()
	if ep.State == domain.Alive {
		return false, nil
	}
	u.logger.Info("server is alive", zap.Int("id", id), zap.Stringer("previous", ep.State))
	ep.State = domain.Alive
	return true, nil
}

func (u *useCase) MarkSuspect(id int) (bool, error) {
	return u.transition(id, domain.Suspect)
}

func (u *useCase) MarkDead(id int) (bool, error) {
	return u.transition(id, domain.Dead)
}

func (u *useCase) transition(id int, state domain.Liveness) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	ep, ok := u.endpoints[id]
	if !ok {
		return false, errors.WithMessagef(domain.ErrUnknownEndpoint, "id %d", id)
	}
	if ep.State == state || ep.State == domain.Dead {
		return false, nil
	}
	u.logger.Warn("server state changed", zap.Int("id", id),
		zap.Stringer("from", ep.State), zap.Stringer("to", state))
	ep.State = state
	return true, nil
}

func (u *useCase) SetLoad(id int, load int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	ep, ok := u.endpoints[id]
	if !ok {
		return errors.WithMessagef(domain.ErrUnknownEndpoint, "id %d", id)
	}
	ep.Load = load
	return nil
}

func (u *useCase) Get(id int) (domain.Endpoint, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	ep, ok := u.endpoints[id]
	if !ok {
		return domain.Endpoint{}, errors.WithMessagef(domain.ErrUnknownEndpoint, "id %d", id)
	}
	return *ep, nil
}

// ListAlive returns copies of the Alive endpoints ordered by id.
func (u *useCase) ListAlive() []domain.Endpoint {
	u.mu.RLock()
	defer u.mu.RUnlock()
	result := make([]domain.Endpoint, 0, len(u.order))
	for _, id := range u.order {
		if ep := u.endpoints[id]; ep.State == domain.Alive {
			result = append(result, *ep)
		}
	}
	return result
}

func (u *useCase) All() []domain.Endpoint {
	u.mu.RLock()
	defer u.mu.RUnlock()
	result := make([]domain.Endpoint, 0, len(u.order))
	for _, id := range u.order {
		result = append(result, *u.endpoints[id])
	}
	return result
}
