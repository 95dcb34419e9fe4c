package rpc

import (
	"context"
	"net/rpc/jsonrpc"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/gameengine/engine"
	"github.com/wfunc/gameengine/games"
	"github.com/wfunc/gameengine/models"
	"github.com/wfunc/gameengine/persistence"
	"github.com/wfunc/gameengine/random"
	"github.com/wfunc/gameengine/room"
	"github.com/wfunc/gameengine/timer"
)

func startServer(t *testing.T) (*Server, *room.Manager, *persistence.Memory) {
	t.Helper()
	rooms := room.NewManager(games.Catalog(0, 0), timer.NewManual(time.Now()), nil)
	store := persistence.NewMemory()

	srv, err := NewServer("127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, srv.Register(NewRoomService(rooms, store)))
	go srv.Start()
	t.Cleanup(srv.Stop)
	return srv, rooms, store
}

func TestRoomService(t *testing.T) {
	srv, rooms, store := startServer(t)
	ctx := context.Background()

	_, err := rooms.Create("r1", games.RPSType, []engine.Player{
		{ID: "a", Ready: true},
		{ID: "b", Ready: true},
	}, room.Options{Random: random.NewSequence()})
	require.NoError(t, err)
	require.NoError(t, store.SaveRoom(ctx, models.RoomRecord{RoomID: "old", GameType: games.TicTacToeType, Status: models.RoomFinished}))
	require.NoError(t, store.SaveGameRecord(ctx, models.GameRecord{RoomID: "old", Winner: "a", Moves: 5}))

	client, err := jsonrpc.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	var list ListReply
	require.NoError(t, client.Call("RoomService.List", &ListArgs{}, &list))
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, RoomSummary{RoomID: "r1", GameType: games.RPSType, Status: engine.StatusInProgress, Players: 2, Live: true}, list.Rooms[0])

	list = ListReply{}
	require.NoError(t, client.Call("RoomService.List", &ListArgs{Status: models.RoomFinished}, &list))
	require.Len(t, list.Rooms, 2)
	assert.Equal(t, "old", list.Rooms[1].RoomID)
	assert.False(t, list.Rooms[1].Live)

	var snap engine.Snapshot
	require.NoError(t, client.Call("RoomService.Snapshot", &SnapshotArgs{RoomID: "r1", Viewer: "a"}, &snap))
	assert.Equal(t, "a", snap.Viewer)
	assert.Equal(t, engine.StatusInProgress, snap.Status)

	err = client.Call("RoomService.Snapshot", &SnapshotArgs{RoomID: "nope"}, &snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NotFound")

	var recs []models.GameRecord
	require.NoError(t, client.Call("RoomService.GameRecords", &GameRecordsArgs{RoomID: "old"}, &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, 5, recs[0].Moves)
}

func TestStatusError(t *testing.T) {
	assert.NoError(t, statusError(nil))
	assert.Contains(t, statusError(room.ErrRoomNotFound).Error(), "code = NotFound")
	assert.Contains(t, statusError(engine.ErrNotWaiting).Error(), "code = FailedPrecondition")
}
