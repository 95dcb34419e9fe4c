// room/manager.go
package room

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/wfunc/gameengine/engine"
	"github.com/wfunc/gameengine/logger"
	"github.com/wfunc/gameengine/random"
	"github.com/wfunc/gameengine/timer"
)

var (
	ErrRoomExists   = errors.New("room already has a session")
	ErrRoomNotFound = errors.New("room not found")
	// ErrSessionEnded reports a room whose session was lost and could not
	// be rebuilt.
	ErrSessionEnded = errors.New("session ended")
)

// Options tune one Create call.
type Options struct {
	// Settings replace the game type's defaults when set.
	Settings *engine.Settings
	Handlers engine.Handlers
	Random   random.Random
}

// Manager 管理所有房间. It is the only index of live sessions, holding at
// most one per room id.
type Manager struct {
	catalog *Catalog
	sched   timer.Scheduler
	metrics Metrics
	rooms   map[string]*engine.Session
	mutex   sync.RWMutex
}

// NewManager creates a registry whose sessions share sched. metrics may be
// nil.
func NewManager(catalog *Catalog, sched timer.Scheduler, metrics Metrics) *Manager {
	if sched == nil {
		sched = timer.NewManager()
	}
	return &Manager{
		catalog: catalog,
		sched:   sched,
		metrics: metrics,
		rooms:   make(map[string]*engine.Session),
	}
}

// Create builds the session of roomID and admits players in order. The
// session is indexed before the players join so handlers can look it up.
func (m *Manager) Create(roomID, gameType string, players []engine.Player, opts Options) (*engine.Session, error) {
	def, err := m.catalog.Lookup(gameType)
	if err != nil {
		return nil, err
	}
	settings := def.Settings
	if opts.Settings != nil {
		settings = *opts.Settings
	}

	m.mutex.Lock()
	if _, exists := m.rooms[roomID]; exists {
		m.mutex.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrRoomExists, roomID)
	}
	s, err := engine.New(roomID, gameType, def.NewGame(), engine.Options{
		Settings:  settings,
		Strategy:  def.Strategy(),
		Teams:     def.Teams,
		Handlers:  opts.Handlers,
		Scheduler: m.sched,
		Random:    opts.Random,
		Logger:    logger.Named("engine"),
	})
	if err != nil {
		m.mutex.Unlock()
		return nil, err
	}
	m.rooms[roomID] = s
	count := len(m.rooms)
	m.mutex.Unlock()

	m.report(count)
	logger.Log.Infow("room created", "room_id", roomID, "game_type", gameType, "rooms", count)

	for _, p := range players {
		if err := s.AddPlayer(p); err != nil {
			m.Remove(roomID)
			return nil, fmt.Errorf("add player %s: %w", p.ID, err)
		}
	}
	return s, nil
}

// Get 从管理器中获取一个房间的会话
func (m *Manager) Get(roomID string) (*engine.Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	s, exists := m.rooms[roomID]
	return s, exists
}

// Remove drops the session of roomID and cleans it up. It reports whether
// there was one.
func (m *Manager) Remove(roomID string) bool {
	m.mutex.Lock()
	s, exists := m.rooms[roomID]
	if exists {
		delete(m.rooms, roomID)
	}
	count := len(m.rooms)
	m.mutex.Unlock()

	if !exists {
		return false
	}
	s.Cleanup()
	m.report(count)
	logger.Log.Infow("room removed", "room_id", roomID, "rooms", count)
	return true
}

func (m *Manager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// IDs returns the ids of all live rooms, sorted.
func (m *Manager) IDs() []string {
	m.mutex.RLock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	m.mutex.RUnlock()
	sort.Strings(ids)
	return ids
}

// Catalog returns the catalog rooms are built from.
func (m *Manager) Catalog() *Catalog {
	return m.catalog
}

func (m *Manager) report(count int) {
	if m.metrics != nil {
		m.metrics.SetActiveRooms(count)
	}
}
