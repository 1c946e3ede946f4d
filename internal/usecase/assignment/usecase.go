package assignment

import (
	"sort"
	"sync"
	"time"

	"github.com/kiryu-dev/roomchat/internal/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type useCase struct {
	registry    domain.ServerRegistry
	assignments map[string]domain.Assignment
	counts      map[int]int
	mu          *sync.Mutex
	logger      *zap.Logger
}

func New(registry domain.ServerRegistry, logger *zap.Logger) *useCase {
	return &useCase{
		registry:    registry,
		assignments: make(map[string]domain.Assignment),
		counts:      make(map[int]int),
		mu:          &sync.Mutex{},
		logger:      logger,
	}
}

// Resolve returns the server for room, assigning one when the room has no
// valid assignment. The whole lookup-or-assign step holds the table lock, so
// concurrent first requests for a room observe a single winner.
func (u *useCase) Resolve(room string) (domain.Endpoint, error) {
	if room == "" {
		return domain.Endpoint{}, errors.WithMessage(domain.ErrMalformedHandshake, "empty room")
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if a, ok := u.assignments[room]; ok {
		ep, err := u.registry.Get(a.EndpointID)
		if err == nil && ep.State != domain.Dead {
			return ep, nil
		}
		u.logger.Info("dropping stale assignment", zap.String("room", room), zap.Int("endpoint", a.EndpointID))
		u.remove(room)
	}
	ep, err := u.pick()
	if err != nil {
		return domain.Endpoint{}, err
	}
	u.assignments[room] = domain.Assignment{
		Room:       room,
		EndpointID: ep.ID,
		CreatedAt:  time.Now(),
	}
	u.counts[ep.ID]++
	u.logger.Info("assigned room", zap.String("room", room), zap.Int("endpoint", ep.ID),
		zap.Int("port", ep.Port), zap.Int("rooms on endpoint", u.counts[ep.ID]))
	return ep, nil
}

// pick selects the Alive endpoint with the fewest assignments, the lowest
// id winning ties. Callers hold u.mu.
func (u *useCase) pick() (domain.Endpoint, error) {
	alive := u.registry.ListAlive()
	if len(alive) == 0 {
		return domain.Endpoint{}, domain.ErrNoServersAvailable
	}
	best := alive[0]
	for _, ep := range alive[1:] {
		if u.counts[ep.ID] < u.counts[best.ID] {
			best = ep
		}
	}
	return best, nil
}

func (u *useCase) remove(room string) {
	a, ok := u.assignments[room]
	if !ok {
		return
	}
	delete(u.assignments, room)
	u.counts[a.EndpointID]--
	if u.counts[a.EndpointID] <= 0 {
		delete(u.counts, a.EndpointID)
	}
}

// Invalidate drops every assignment held by endpointID so the next request
// for those rooms picks a new server.
func (u *useCase) Invalidate(endpointID int) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	removed := 0
	for room, a := range u.assignments {
		if a.EndpointID == endpointID {
			u.remove(room)
			removed++
		}
	}
	return removed
}

func (u *useCase) Assignments() []domain.Assignment {
	u.mu.Lock()
	defer u.mu.Unlock()
	result := make([]domain.Assignment, 0, len(u.assignments))
	for _, a := range u.assignments {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Room < result[j].Room
	})
	return result
}

func (u *useCase) Counts() map[int]int {
	u.mu.Lock()
	defer u.mu.Unlock()
	result := make(map[int]int, len(u.counts))
	for id, n := range u.counts {
		result[id] = n
	}
	return result
}
