package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/wfunc/gameengine/config"
	"github.com/wfunc/gameengine/engine"
	"github.com/wfunc/gameengine/models"
)

// StoreSuite runs the same contract against every store that needs no
// external server.
type StoreSuite struct {
	suite.Suite
	newStore func() Store
	store    Store
	ctx      context.Context
}

func (s *StoreSuite) SetupTest() {
	s.store = s.newStore()
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

func roomRecord(id, status string) models.RoomRecord {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return models.RoomRecord{
		RoomID:    id,
		GameType:  "tictactoe",
		Status:    status,
		Players:   []models.PlayerInfo{{ID: "A", Name: "Ann"}, {ID: "B", Name: "Bob"}},
		Settings:  engine.Settings{MinPlayers: 2, MaxPlayers: 2, TimeLimit: 30 * time.Second},
		Stake:     10,
		CreatedAt: created,
		UpdatedAt: created.Add(time.Minute),
	}
}

func (s *StoreSuite) TestSaveAndLoadRoom() {
	rec := roomRecord("room-1", models.RoomInProgress)
	s.Require().NoError(s.store.SaveRoom(s.ctx, rec))

	got, err := s.store.LoadRoom(s.ctx, "room-1")
	s.Require().NoError(err)
	s.Equal(rec, got)
}

func (s *StoreSuite) TestSaveRoomOverwrites() {
	s.Require().NoError(s.store.SaveRoom(s.ctx, roomRecord("room-1", models.RoomWaiting)))
	s.Require().NoError(s.store.SaveRoom(s.ctx, roomRecord("room-1", models.RoomFinished)))

	got, err := s.store.LoadRoom(s.ctx, "room-1")
	s.Require().NoError(err)
	s.Equal(models.RoomFinished, got.Status)
}

func (s *StoreSuite) TestLoadMissingRoom() {
	_, err := s.store.LoadRoom(s.ctx, "nope")
	s.ErrorIs(err, ErrRecordNotFound)
}

func (s *StoreSuite) TestDeleteRoom() {
	s.Require().NoError(s.store.SaveRoom(s.ctx, roomRecord("room-1", models.RoomWaiting)))
	s.Require().NoError(s.store.DeleteRoom(s.ctx, "room-1"))

	_, err := s.store.LoadRoom(s.ctx, "room-1")
	s.ErrorIs(err, ErrRecordNotFound)
	rooms, err := s.store.ListRooms(s.ctx, "")
	s.Require().NoError(err)
	s.Empty(rooms)
}

func (s *StoreSuite) TestListRoomsByStatus() {
	s.Require().NoError(s.store.SaveRoom(s.ctx, roomRecord("room-2", models.RoomInProgress)))
	s.Require().NoError(s.store.SaveRoom(s.ctx, roomRecord("room-1", models.RoomInProgress)))
	s.Require().NoError(s.store.SaveRoom(s.ctx, roomRecord("room-3", models.RoomFinished)))

	live, err := s.store.ListRooms(s.ctx, models.RoomInProgress)
	s.Require().NoError(err)
	s.Require().Len(live, 2)
	s.Equal("room-1", live[0].RoomID)
	s.Equal("room-2", live[1].RoomID)

	all, err := s.store.ListRooms(s.ctx, "")
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *StoreSuite) TestGameRecordsAppend() {
	first := models.GameRecord{RoomID: "room-1", GameType: "rps", Winner: "A", Reason: "completed", Moves: 6}
	second := models.GameRecord{RoomID: "room-1", GameType: "rps", Winner: engine.Draw, Reason: "timeout", Moves: 2}
	s.Require().NoError(s.store.SaveGameRecord(s.ctx, first))
	s.Require().NoError(s.store.SaveGameRecord(s.ctx, second))

	got, err := s.store.GameRecords(s.ctx, "room-1")
	s.Require().NoError(err)
	s.Equal([]models.GameRecord{first, second}, got)

	none, err := s.store.GameRecords(s.ctx, "room-2")
	s.Require().NoError(err)
	s.Empty(none)
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func() Store { return NewMemory() }})
}

func TestRedisStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func() Store {
		mini := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
		return NewRedisWithClient(client, RedisConfig{RecordTTL: time.Hour})
	}})
}

func TestRedisRecordTTL(t *testing.T) {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	store := NewRedisWithClient(client, RedisConfig{RecordTTL: time.Hour})
	defer store.Close()
	ctx := context.Background()

	if err := store.SaveRoom(ctx, roomRecord("room-1", models.RoomWaiting)); err != nil {
		t.Fatal(err)
	}
	mini.FastForward(2 * time.Hour)

	if _, err := store.LoadRoom(ctx, "room-1"); err != ErrRecordNotFound {
		t.Fatalf("expected expired record, got %v", err)
	}
	rooms, err := store.ListRooms(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 0 {
		t.Fatalf("expected no rooms, got %d", len(rooms))
	}
	if ok, _ := mini.SIsMember(roomsIndexKey(), "room-1"); ok {
		t.Fatal("expired id should be dropped from the index")
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	store, err := Open(config.StorageConfig{Driver: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*Memory); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	mini := miniredis.RunT(t)
	store, err = Open(config.StorageConfig{Driver: "redis", Redis: config.RedisConfig{URL: "redis://" + mini.Addr()}})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if _, ok := store.(*Redis); !ok {
		t.Fatalf("expected redis store, got %T", store)
	}

	if _, err := Open(config.StorageConfig{Driver: "sqlite"}); err == nil {
		t.Fatal("unknown driver should fail")
	}
}
