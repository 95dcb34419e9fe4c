// broadcast/broadcast.go
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wfunc/gameengine/engine"
	"github.com/wfunc/gameengine/logger"
	"github.com/wfunc/gameengine/models"
	"github.com/wfunc/gameengine/network"
	"github.com/wfunc/gameengine/persistence"
	"github.com/wfunc/gameengine/random"
	"github.com/wfunc/gameengine/room"
)

const storeTimeout = 5 * time.Second

// Transport delivers framed messages to connected players.
type Transport interface {
	SendToRoom(roomID string, msgID uint16, data []byte) error
	SendToPlayer(roomID, playerID string, msgID uint16, data []byte) error
}

// Observer is told about events and settlements, e.g. for metrics.
type Observer interface {
	ObserveEvent(gameType string, e engine.Event)
	ObserveSettlement(duration time.Duration, err error)
}

// Config tunes a Driver. Stake is what every participant puts in per game.
// Settlement is optional; without it games end without moving coins.
// Random seeds every session, nil meaning a fresh default source.
type Config struct {
	Stake      int64
	Settlement engine.Settlement
	Observer   Observer
	Random     random.Random
	Logger     *zap.SugaredLogger
}

// Driver keeps players' views in sync with their sessions. It builds the
// engine handlers of every room it creates, forwards player actions to
// sessions and rebuilds sessions from durable room records when the
// registry has lost them.
type Driver struct {
	rooms     *room.Manager
	transport Transport
	store     persistence.Store
	cfg       Config
	log       *zap.SugaredLogger

	savedMutex sync.Mutex
	saved      map[string]string // room id -> fingerprint of the last saved record
	rebuilding map[string]int // room id -> running rebuilds

	settling sync.WaitGroup
}

func NewDriver(rooms *room.Manager, transport Transport, store persistence.Store, cfg Config) *Driver {
	log := cfg.Logger
	if log == nil {
		log = logger.Named("broadcast")
	}
	return &Driver{
		rooms:      rooms,
		transport:  transport,
		store:      store,
		cfg:        cfg,
		log:        log,
		saved:      make(map[string]string),
		rebuilding: make(map[string]int),
	}
}

// Handlers returns the engine handlers for one room. Games with private
// state get one view per player, taken when the change was committed.
//
// Settlement works from the snapshot delivered with game_finished, so the
// result names whoever took part when the game ended.
func (d *Driver) Handlers(roomID, gameType string) engine.Handlers {
	private := d.isPrivate(gameType)
	// deliveries of one session never overlap
	finished := false
	return engine.Handlers{
		OnStateChange: func(snap engine.Snapshot) {
			if !private {
				d.send(roomID, "", network.MsgTypeRoomState, snap)
			}
			d.persist(roomID, snap)
			if finished {
				finished = false
				d.settling.Add(1)
				go d.settle(d.result(snap), snap)
			}
		},
		OnGameEvent: func(e engine.Event) {
			if d.cfg.Observer != nil {
				d.cfg.Observer.ObserveEvent(gameType, e)
			}
			d.send(roomID, "", network.MsgTypeGameEvent, e)
			if e.Type == engine.EventGameFinished {
				finished = true
			}
		},
		OnPlayerView: func(playerID string, view engine.Snapshot) {
			d.send(roomID, playerID, network.MsgTypeRoomState, view)
		},
	}
}

func (d *Driver) isPrivate(gameType string) bool {
	def, err := d.rooms.Catalog().Lookup(gameType)
	if err != nil {
		return false
	}
	_, ok := def.NewGame().(engine.PrivateStater)
	return ok
}

func (d *Driver) send(roomID, playerID string, msgID uint16, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		d.log.Errorw("failed to encode push", "room_id", roomID, "msg_id", msgID, "error", err)
		return
	}
	if playerID == "" {
		err = d.transport.SendToRoom(roomID, msgID, data)
	} else {
		err = d.transport.SendToPlayer(roomID, playerID, msgID, data)
	}
	if err != nil {
		d.log.Warnw("push failed", "room_id", roomID, "player_id", playerID, "msg_id", msgID, "error", err)
	}
}

func fingerprint(rec models.RoomRecord) string {
	fp := rec.Status
	for _, p := range rec.Players {
		fp += "|" + p.ID
	}
	return fp
}

// persist saves the durable room record when status or roster changed.
// The finished record is written by settle. A room being rebuilt keeps
// its stored record until the game has restarted.
func (d *Driver) persist(roomID string, snap engine.Snapshot) {
	if snap.Status == engine.StatusFinished {
		return
	}
	rec := models.NewRoomRecord(snap, d.cfg.Stake, time.Now())
	fp := fingerprint(rec)

	d.savedMutex.Lock()
	if d.rebuilding[roomID] > 0 || d.saved[roomID] == fp {
		d.savedMutex.Unlock()
		return
	}
	d.saved[roomID] = fp
	d.savedMutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := d.store.SaveRoom(ctx, rec); err != nil {
		d.log.Errorw("failed to save room record", "room_id", roomID, "error", err)
	}
}

func (d *Driver) setRebuilding(roomID string, on bool) {
	d.savedMutex.Lock()
	defer d.savedMutex.Unlock()
	if on {
		d.rebuilding[roomID]++
		return
	}
	d.rebuilding[roomID]--
	if d.rebuilding[roomID] <= 0 {
		delete(d.rebuilding, roomID)
	}
}

func (d *Driver) forget(roomID string) {
	d.savedMutex.Lock()
	delete(d.saved, roomID)
	d.savedMutex.Unlock()
}

func (d *Driver) result(snap engine.Snapshot) engine.Result {
	ids := make([]string, 0, len(snap.Players))
	for _, p := range snap.Participants() {
		ids = append(ids, p.ID)
	}
	return engine.Result{
		RoomID:       snap.RoomID,
		GameType:     snap.GameType,
		Winner:       snap.Winner,
		Reason:       snap.Reason,
		Participants: ids,
		Stake:        d.cfg.Stake,
	}
}

// settle runs once per finished game: settlement, game record, room
// record, balances push, then the session leaves the registry.
func (d *Driver) settle(result engine.Result, snap engine.Snapshot) {
	defer d.settling.Done()
	roomID := result.RoomID

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	var (
		balances  map[string]int64
		settleErr error
	)
	if d.cfg.Settlement != nil {
		start := time.Now()
		balances, settleErr = d.cfg.Settlement.Settle(ctx, result)
		if d.cfg.Observer != nil {
			d.cfg.Observer.ObserveSettlement(time.Since(start), settleErr)
		}
		if settleErr != nil {
			d.log.Errorw("settlement failed", "room_id", roomID, "winner", result.Winner, "error", settleErr)
		}
	}

	if err := d.store.SaveGameRecord(ctx, models.NewGameRecord(snap, d.cfg.Stake, balances)); err != nil {
		d.log.Errorw("failed to save game record", "room_id", roomID, "error", err)
	}
	rec := models.NewRoomRecord(snap, d.cfg.Stake, time.Now())
	rec.Status = models.RoomFinished
	if err := d.store.SaveRoom(ctx, rec); err != nil {
		d.log.Errorw("failed to save room record", "room_id", roomID, "error", err)
	}

	push := network.SettlementResult{RoomID: roomID, Winner: result.Winner, Balances: balances}
	if settleErr != nil {
		msg := network.ErrorPayload(settleErr)
		push.Error = &msg
	}
	d.send(roomID, "", network.MsgTypeSettlement, push)

	d.rooms.Remove(roomID)
	d.forget(roomID)
	d.log.Infow("room settled", "room_id", roomID, "winner", result.Winner, "reason", result.Reason)
}

// Wait blocks until every running settlement has finished.
func (d *Driver) Wait() {
	d.settling.Wait()
}

// CreateRoom opens a room with creator as its first player. An empty
// roomID gets a generated one.
func (d *Driver) CreateRoom(ctx context.Context, roomID, gameType string, creator engine.Player) (*engine.Session, error) {
	if roomID == "" {
		roomID = uuid.New().String()
	}
	if _, err := d.store.LoadRoom(ctx, roomID); err == nil {
		return nil, fmt.Errorf("%w: %s", room.ErrRoomExists, roomID)
	} else if !errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, err
	}

	s, err := d.rooms.Create(roomID, gameType, []engine.Player{creator}, room.Options{
		Handlers: d.Handlers(roomID, gameType),
		Random:   d.cfg.Random,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Join admits p to a room. Joining a game in progress makes p an observer.
// A player who already holds a seat gets it back, which is how clients
// reconnect.
func (d *Driver) Join(ctx context.Context, roomID string, p engine.Player) (observer bool, err error) {
	s, err := d.Resolve(ctx, roomID)
	if err != nil {
		return false, err
	}
	if err := s.AddPlayer(p); err != nil && !errors.Is(err, engine.ErrPlayerExists) {
		return false, err
	}
	for _, pl := range s.Snapshot().Players {
		if pl.ID == p.ID {
			return pl.IsObserver, nil
		}
	}
	return false, nil
}

// View is the room as playerID sees it.
func (d *Driver) View(ctx context.Context, roomID, playerID string) (engine.Snapshot, error) {
	s, err := d.Resolve(ctx, roomID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	return s.ViewFor(playerID), nil
}

// Leave removes a player. A waiting room left empty is closed and its
// record deleted. Leaving a finished game succeeds but keeps the seat in
// the final roster that is being settled.
func (d *Driver) Leave(ctx context.Context, roomID, playerID string) error {
	s, ok := d.rooms.Get(roomID)
	if !ok {
		return room.ErrRoomNotFound
	}
	if err := s.RemovePlayer(playerID); errors.Is(err, engine.ErrGameFinished) {
		return nil
	} else if err != nil {
		return err
	}

	snap := s.Snapshot()
	if len(snap.Players) == 0 && snap.Status == engine.StatusWaiting {
		d.rooms.Remove(roomID)
		d.forget(roomID)
		if err := d.store.DeleteRoom(ctx, roomID); err != nil {
			d.log.Errorw("failed to delete room record", "room_id", roomID, "error", err)
		}
	}
	return nil
}

// Disconnect handles a player's connection going away. Seats in a game in
// progress are kept so the player can reconnect; the turn or round clock
// covers the absence. In a waiting room the player leaves.
func (d *Driver) Disconnect(ctx context.Context, roomID, playerID string) error {
	s, ok := d.rooms.Get(roomID)
	if !ok || s.Status() != engine.StatusWaiting {
		return nil
	}
	return d.Leave(ctx, roomID, playerID)
}

func (d *Driver) Ready(ctx context.Context, roomID, playerID string, ready bool) error {
	s, err := d.Resolve(ctx, roomID)
	if err != nil {
		return err
	}
	return s.SetReady(playerID, ready)
}

func (d *Driver) Start(ctx context.Context, roomID string) error {
	s, err := d.Resolve(ctx, roomID)
	if err != nil {
		return err
	}
	return s.StartGame()
}

func (d *Driver) Move(ctx context.Context, roomID, playerID string, move engine.Move) error {
	s, err := d.Resolve(ctx, roomID)
	if err != nil {
		return err
	}
	return s.MakeMove(playerID, move)
}

// MoveJSON decodes raw with the game type's decoder and submits it.
func (d *Driver) MoveJSON(ctx context.Context, roomID, playerID string, raw json.RawMessage) error {
	s, err := d.Resolve(ctx, roomID)
	if err != nil {
		return err
	}
	def, err := d.rooms.Catalog().Lookup(s.GameType())
	if err != nil {
		return err
	}
	var move engine.Move = raw
	if def.DecodeMove != nil {
		if move, err = def.DecodeMove(raw); err != nil {
			return fmt.Errorf("%w: %w", engine.ErrIllegalMove, err)
		}
	}
	return s.MakeMove(playerID, move)
}

func (d *Driver) ForceRoundEnd(ctx context.Context, roomID string) error {
	s, err := d.Resolve(ctx, roomID)
	if err != nil {
		return err
	}
	return s.ForceRoundEnd()
}

// Resolve returns the live session of roomID. When the registry has none
// but the durable record says the game is in progress, the session is
// rebuilt from the stored roster and settings: every player ready, the
// game restarted, no history. With fewer than MinPlayers left the record
// is marked abandoned and ErrSessionEnded returned.
func (d *Driver) Resolve(ctx context.Context, roomID string) (*engine.Session, error) {
	if s, ok := d.rooms.Get(roomID); ok {
		return s, nil
	}

	rec, err := d.store.LoadRoom(ctx, roomID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", room.ErrRoomNotFound, roomID)
	}
	if err != nil {
		return nil, err
	}
	if rec.Status != models.RoomInProgress {
		return nil, fmt.Errorf("%w: room %s is %s", room.ErrSessionEnded, roomID, rec.Status)
	}

	if len(rec.Players) < rec.Settings.MinPlayers {
		rec.Status = models.RoomAbandoned
		rec.UpdatedAt = time.Now()
		if err := d.store.SaveRoom(ctx, rec); err != nil {
			d.log.Errorw("failed to mark room abandoned", "room_id", roomID, "error", err)
		}
		d.log.Warnw("room abandoned", "room_id", roomID, "players", len(rec.Players))
		return nil, fmt.Errorf("%w: room %s has too few players", room.ErrSessionEnded, roomID)
	}

	// Players join unready so nobody becomes an observer of an early
	// auto-start; the last ready flag restarts the game.
	players := make([]engine.Player, 0, len(rec.Players))
	for _, p := range rec.Players {
		players = append(players, engine.Player{ID: p.ID, Name: p.Name, Avatar: p.Avatar})
	}
	settings := rec.Settings
	d.setRebuilding(roomID, true)
	s, err := d.rooms.Create(roomID, rec.GameType, players, room.Options{
		Settings: &settings,
		Handlers: d.Handlers(roomID, rec.GameType),
		Random:   d.cfg.Random,
	})
	if err != nil {
		d.setRebuilding(roomID, false)
		if errors.Is(err, room.ErrRoomExists) {
			// rebuilt concurrently
			if s, ok := d.rooms.Get(roomID); ok {
				return s, nil
			}
		}
		return nil, err
	}
	for _, p := range players {
		if err := s.SetReady(p.ID, true); err != nil {
			d.log.Warnw("recovered player not ready", "room_id", roomID, "player_id", p.ID, "error", err)
		}
	}
	d.setRebuilding(roomID, false)
	d.persist(roomID, s.Snapshot())
	d.log.Infow("room recovered", "room_id", roomID, "game_type", rec.GameType, "players", len(players))
	return s, nil
}
