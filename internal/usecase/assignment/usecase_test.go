package assignment

import (
	"fmt"
	"sync"
	"testing"

	"github.com/kiryu-dev/roomchat/internal/domain"
	"github.com/kiryu-dev/roomchat/internal/usecase/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T, n int) (*useCase, domain.ServerRegistry) {
	t.Helper()
	reg := registry.New(false, zap.NewNop())
	for i := 0; i < n; i++ {
		require.NoError(t, reg.Register(domain.Endpoint{ID: i, Host: "127.0.0.1", Port: 8000 + i}))
	}
	return New(reg, zap.NewNop()), reg
}

func TestResolveIsSticky(t *testing.T) {
	table, _ := setup(t, 3)

	a, err := table.Resolve("R1")
	require.NoError(t, err)
	assert.Contains(t, []int{8000, 8001, 8002}, a.Port)

	b, err := table.Resolve("R1")
	require.NoError(t, err)
	assert.Equal(t, a.Port, b.Port)

	assert.Len(t, table.Assignments(), 1)
}

func TestResolveSpreadsRooms(t *testing.T) {
	table, _ := setup(t, 3)

	got := make(map[int]int)
	for i := 0; i < 6; i++ {
		ep, err := table.Resolve(fmt.Sprintf("room-%d", i))
		require.NoError(t, err)
		got[ep.Port]++
	}
	assert.Equal(t, map[int]int{8000: 2, 8001: 2, 8002: 2}, got)
	assert.Equal(t, map[int]int{0: 2, 1: 2, 2: 2}, table.Counts())
}

func TestResolveTieBreaksOnLowestId(t *testing.T) {
	table, _ := setup(t, 3)
	ep, err := table.Resolve("first")
	require.NoError(t, err)
	assert.Equal(t, 0, ep.ID)

	ep, err = table.Resolve("second")
	require.NoError(t, err)
	assert.Equal(t, 1, ep.ID)
}

func TestResolveRoomsAreCaseSensitive(t *testing.T) {
	table, _ := setup(t, 2)
	lower, err := table.Resolve("lobby")
	require.NoError(t, err)
	upper, err := table.Resolve("Lobby")
	require.NoError(t, err)
	assert.NotEqual(t, lower.ID, upper.ID)
}

func TestFailover(t *testing.T) {
	table, reg := setup(t, 3)
	original, err := table.Resolve("R1")
	require.NoError(t, err)

	_, err = reg.MarkDead(original.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Invalidate(original.ID))

	for i := 0; i < 5; i++ {
		next, err := table.Resolve("R1")
		require.NoError(t, err)
		assert.NotEqual(t, original.Port, next.Port)
		assert.Equal(t, domain.Alive, next.State)
	}
}

func TestFailoverBeforeInvalidation(t *testing.T) {
	table, reg := setup(t, 2)
	original, err := table.Resolve("R1")
	require.NoError(t, err)

	// the registry already knows, the invalidation has not run yet
	_, err = reg.MarkDead(original.ID)
	require.NoError(t, err)

	next, err := table.Resolve("R1")
	require.NoError(t, err)
	assert.NotEqual(t, original.ID, next.ID)
	assert.Equal(t, map[int]int{next.ID: 1}, table.Counts())
}

func TestSuspectKeepsAssignment(t *testing.T) {
	table, reg := setup(t, 2)
	original, err := table.Resolve("R1")
	require.NoError(t, err)

	_, err = reg.MarkSuspect(original.ID)
	require.NoError(t, err)

	again, err := table.Resolve("R1")
	require.NoError(t, err)
	assert.Equal(t, original.ID, again.ID)

	other, err := table.Resolve("R2")
	require.NoError(t, err)
	assert.NotEqual(t, original.ID, other.ID)
}

func TestNoServersAvailable(t *testing.T) {
	table, reg := setup(t, 2)
	for _, ep := range reg.All() {
		_, err := reg.MarkDead(ep.ID)
		require.NoError(t, err)
	}
	_, err := table.Resolve("R1")
	assert.ErrorIs(t, err, domain.ErrNoServersAvailable)
	assert.Empty(t, table.Assignments())

	empty, _ := setup(t, 0)
	_, err = empty.Resolve("R1")
	assert.ErrorIs(t, err, domain.ErrNoServersAvailable)
}

func TestResolveEmptyRoom(t *testing.T) {
	table, _ := setup(t, 1)
	_, err := table.Resolve("")
	assert.ErrorIs(t, err, domain.ErrMalformedHandshake)
}

func TestInvalidateOnlyTouchesEndpoint(t *testing.T) {
	table, _ := setup(t, 2)
	for i := 0; i < 4; i++ {
		_, err := table.Resolve(fmt.Sprintf("room-%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, table.Invalidate(0))
	assert.Equal(t, 0, table.Invalidate(0))
	for _, a := range table.Assignments() {
		assert.Equal(t, 1, a.EndpointID)
	}
}

func TestConcurrentResolveSingleWinner(t *testing.T) {
	table, _ := setup(t, 4)
	const workers = 32
	results := make([]int, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			ep, err := table.Resolve("contended")
			if assert.NoError(t, err) {
				results[i] = ep.Port
			}
		}(i)
	}
	close(start)
	wg.Wait()

	for _, port := range results {
		assert.Equal(t, results[0], port)
	}
	assert.Len(t, table.Assignments(), 1)
	assert.Equal(t, map[int]int{0: 1}, table.Counts())
}
