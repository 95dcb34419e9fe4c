package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/wfunc/gameengine/models"
)

// Memory is an in-process Store. Records do not survive a restart.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string]models.RoomRecord
	games map[string][]models.GameRecord
}

func NewMemory() *Memory {
	return &Memory{
		rooms: make(map[string]models.RoomRecord),
		games: make(map[string][]models.GameRecord),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) SaveRoom(ctx context.Context, rec models.RoomRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Players = append([]models.PlayerInfo(nil), rec.Players...)
	m.rooms[rec.RoomID] = rec
	return nil
}

func (m *Memory) LoadRoom(ctx context.Context, roomID string) (models.RoomRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.rooms[roomID]
	if !ok {
		return models.RoomRecord{}, ErrRecordNotFound
	}
	rec.Players = append([]models.PlayerInfo(nil), rec.Players...)
	return rec, nil
}

func (m *Memory) DeleteRoom(ctx context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
	return nil
}

func (m *Memory) ListRooms(ctx context.Context, status string) ([]models.RoomRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.RoomRecord
	for _, rec := range m.rooms {
		if status == "" || rec.Status == status {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out, nil
}

func (m *Memory) SaveGameRecord(ctx context.Context, rec models.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[rec.RoomID] = append(m.games[rec.RoomID], rec)
	return nil
}

func (m *Memory) GameRecords(ctx context.Context, roomID string) ([]models.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.GameRecord(nil), m.games[roomID]...), nil
}

func (m *Memory) Close() error { return nil }
