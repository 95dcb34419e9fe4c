// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/gameengine/network"
)

// Session is one client connection. PlayerID defaults to the session id
// until the client logs in with its own.
type Session struct {
	ID         string
	Conn       network.Connection
	CreatedAt  time.Time
	mutex      sync.RWMutex
	playerID   string
	name       string
	roomID     string
	lastActive time.Time
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		playerID:   id,
		lastActive: now,
	}
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) PlayerID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.playerID
}

func (s *Session) Name() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.name
}

// Login binds the connection to a player identity.
func (s *Session) Login(playerID, name string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if playerID != "" {
		s.playerID = playerID
	}
	s.name = name
}

func (s *Session) RoomID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomID
}

func (s *Session) SetRoomID(roomID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.roomID = roomID
}

func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.Touch()
	return s.Conn.Send(msgID, data)
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// GetByPlayerID returns every connection of a player.
func (m *Manager) GetByPlayerID(playerID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.PlayerID() == playerID {
			result = append(result, session)
		}
	}
	return result
}

// InRoom returns the connections currently bound to roomID.
func (m *Manager) InRoom(roomID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.RoomID() == roomID {
			result = append(result, session)
		}
	}
	return result
}

// SendToRoom sends to every connection bound to roomID. It returns the
// last send error, if any; one broken connection does not stop the rest.
func (m *Manager) SendToRoom(roomID string, msgID uint16, data []byte) error {
	var lastErr error
	for _, session := range m.InRoom(roomID) {
		if err := session.Send(msgID, data); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// SendToPlayer sends to the player's connections bound to roomID.
func (m *Manager) SendToPlayer(roomID, playerID string, msgID uint16, data []byte) error {
	var lastErr error
	for _, session := range m.GetByPlayerID(playerID) {
		if session.RoomID() != roomID {
			continue
		}
		if err := session.Send(msgID, data); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// All returns every open connection.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}
