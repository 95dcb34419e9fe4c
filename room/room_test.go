package room

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/gameengine/engine"
	"github.com/wfunc/gameengine/timer"
)

type noopGame struct{}

func (noopGame) ExecuteMove(c *engine.Context, playerID string, move engine.Move) error {
	return nil
}

func (noopGame) CheckGameEnd(c *engine.Context) bool { return false }

func (noopGame) DetermineWinner(c *engine.Context) string { return "" }

// MockMetrics records the last reported room count.
type MockMetrics struct {
	mu    sync.Mutex
	count int
	calls int
}

func (m *MockMetrics) SetActiveRooms(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count = count
	m.calls++
}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := NewCatalog()
	require.NoError(t, c.Register(Definition{
		GameType: "noop",
		NewGame:  func() engine.Game { return noopGame{} },
		Strategy: engine.TurnBased,
		Settings: engine.Settings{MinPlayers: 2, MaxPlayers: 2, TimeLimit: 10 * time.Second},
	}))
	return c
}

func newTestManager(t *testing.T) (*Manager, *MockMetrics, *timer.Manual) {
	clock := timer.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	metrics := &MockMetrics{}
	return NewManager(newTestCatalog(t), clock, metrics), metrics, clock
}

func TestCatalogRegister(t *testing.T) {
	c := newTestCatalog(t)

	err := c.Register(Definition{
		GameType: "noop",
		NewGame:  func() engine.Game { return noopGame{} },
		Strategy: engine.Realtime,
		Settings: engine.Settings{MinPlayers: 1, MaxPlayers: 4},
	})
	assert.ErrorIs(t, err, ErrDuplicateGame)

	err = c.Register(Definition{GameType: "broken", NewGame: func() engine.Game { return noopGame{} }})
	assert.ErrorIs(t, err, engine.ErrInvalidSettings)

	err = c.Register(Definition{
		GameType: "bad-settings",
		NewGame:  func() engine.Game { return noopGame{} },
		Strategy: engine.Realtime,
	})
	assert.ErrorIs(t, err, engine.ErrInvalidSettings)

	_, err = c.Lookup("chess")
	assert.ErrorIs(t, err, ErrUnknownGame)
	assert.Equal(t, []string{"noop"}, c.Types())
}

func TestManagerCreateAndGet(t *testing.T) {
	m, metrics, _ := newTestManager(t)

	s, err := m.Create("room-1", "noop", []engine.Player{{ID: "A"}, {ID: "B"}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "room-1", s.RoomID())
	assert.Len(t, s.Snapshot().Players, 2)

	got, ok := m.Get("room-1")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, metrics.count)
}

func TestManagerRejectsSecondSession(t *testing.T) {
	m, _, _ := newTestManager(t)

	first, err := m.Create("room-1", "noop", nil, Options{})
	require.NoError(t, err)
	_, err = m.Create("room-1", "noop", nil, Options{})
	assert.ErrorIs(t, err, ErrRoomExists)

	got, _ := m.Get("room-1")
	assert.Same(t, first, got)
}

func TestManagerCreateUnknownGame(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.Create("room-1", "chess", nil, Options{})
	assert.ErrorIs(t, err, ErrUnknownGame)
	assert.Zero(t, m.Len())
}

func TestManagerCreateUndoesOnJoinFailure(t *testing.T) {
	m, metrics, _ := newTestManager(t)

	_, err := m.Create("room-1", "noop", []engine.Player{{ID: "A"}, {ID: "A"}}, Options{})
	assert.True(t, errors.Is(err, engine.ErrPlayerExists))
	_, ok := m.Get("room-1")
	assert.False(t, ok)
	assert.Zero(t, metrics.count)
}

func TestManagerSettingsOverride(t *testing.T) {
	m, _, _ := newTestManager(t)
	settings := engine.Settings{MinPlayers: 1, MaxPlayers: 6}

	s, err := m.Create("room-1", "noop", nil, Options{Settings: &settings})
	require.NoError(t, err)
	assert.Equal(t, 6, s.Settings().MaxPlayers)
}

func TestManagerRemoveCleansUp(t *testing.T) {
	m, metrics, clock := newTestManager(t)

	var events []engine.EventType
	s, err := m.Create("room-1", "noop", []engine.Player{{ID: "A", Ready: true}, {ID: "B", Ready: true}}, Options{
		Handlers: engine.Handlers{OnGameEvent: func(e engine.Event) { events = append(events, e.Type) }},
	})
	require.NoError(t, err)
	require.Equal(t, engine.StatusInProgress, s.Status())
	require.Equal(t, 1, clock.Pending(), "turn timer armed")

	assert.True(t, m.Remove("room-1"))
	assert.False(t, m.Remove("room-1"))
	assert.True(t, s.Closed())
	assert.Zero(t, clock.Pending())
	assert.Zero(t, metrics.count)

	n := len(events)
	clock.Advance(time.Minute)
	assert.Len(t, events, n, "no callbacks after removal")
}

func TestManagerIDs(t *testing.T) {
	m, _, _ := newTestManager(t)
	for _, id := range []string{"c", "a", "b"} {
		_, err := m.Create(id, "noop", nil, Options{})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b", "c"}, m.IDs())
}

func TestManagerConcurrentCreate(t *testing.T) {
	m, _, _ := newTestManager(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Create("room-1", "noop", nil, Options{}); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, m.Len())
}
