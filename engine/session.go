package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/gameengine/logger"
	"github.com/wfunc/gameengine/random"
	"github.com/wfunc/gameengine/state"
	"github.com/wfunc/gameengine/timer"
)

// Options configure a session. Strategy is required; everything else has
// a default.
type Options struct {
	Settings  Settings
	Strategy  Strategy
	Teams     *TeamConfig
	Handlers  Handlers
	Scheduler timer.Scheduler
	Random    random.Random
	Logger    *zap.SugaredLogger
}

// delivery is what one operation hands to the handlers.
type delivery struct {
	events   []Event
	snapshot Snapshot
	views    []Snapshot // one per player, private games only
}

// Session is one live game in one room. All methods are safe for
// concurrent use; operations on a session are serialized.
type Session struct {
	mu sync.Mutex

	roomID   string
	gameType string
	settings Settings
	game     Game
	strategy Strategy
	teams    *Teams

	players []*Player
	history []MoveRecord
	winner  string
	reason  FinishReason

	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
	lastMoveAt time.Time

	lifecycle *state.Machine[Status]
	timers    timers
	sched     timer.Scheduler
	rnd       random.Random
	log       *zap.SugaredLogger
	closed    bool

	// events emitted by the operation in progress
	events []Event

	outMu      sync.Mutex
	outbox     []delivery
	delivering bool
	handlers   Handlers
}

// New builds a session in the waiting state.
func New(roomID, gameType string, game Game, opts Options) (*Session, error) {
	if game == nil {
		return nil, fmt.Errorf("%w: game is required", ErrInvalidSettings)
	}
	if opts.Strategy == nil {
		return nil, fmt.Errorf("%w: strategy is required", ErrInvalidSettings)
	}
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	if opts.Teams != nil {
		if err := opts.Teams.validate(opts.Settings); err != nil {
			return nil, err
		}
	}

	s := &Session{
		roomID:   roomID,
		gameType: gameType,
		settings: opts.Settings,
		game:     game,
		strategy: opts.Strategy,
		sched:    opts.Scheduler,
		rnd:      opts.Random,
		log:      opts.Logger,
		handlers: opts.Handlers,
	}
	if s.sched == nil {
		s.sched = timer.NewManager()
	}
	if s.rnd == nil {
		s.rnd = random.New()
	}
	if s.log == nil {
		s.log = logger.Log
	}
	s.log = s.log.With("room_id", roomID, "game_type", gameType)
	s.timers = newTimers(s.sched)
	s.createdAt = s.sched.Now()
	if opts.Teams != nil {
		s.teams = newTeams(s, *opts.Teams)
	}

	s.lifecycle = state.NewMachine(StatusWaiting)
	s.lifecycle.AddTransition(StatusWaiting, StatusInProgress, nil)
	s.lifecycle.AddTransition(StatusInProgress, StatusFinished, nil)
	s.lifecycle.OnEnter(StatusInProgress, func(Status) {
		s.startedAt = s.sched.Now()
	})
	s.lifecycle.OnEnter(StatusFinished, func(Status) {
		s.finishedAt = s.sched.Now()
		s.strategy.stop(s)
		s.timers.cancelAll()
	})

	return s, nil
}

func (s *Session) RoomID() string   { return s.roomID }
func (s *Session) GameType() string { return s.gameType }

// Settings are immutable so no lock is needed.
func (s *Session) Settings() Settings { return s.settings }

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lifecycle.Current()
}

// IsPrivate reports whether views differ per viewer.
func (s *Session) IsPrivate() bool {
	_, ok := s.game.(PrivateStater)
	return ok
}

// --- operation plumbing ---

// mutate runs fn under the session lock, queues whatever it emitted and
// then delivers it.
func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	err := fn()
	s.commitLocked()
	s.mu.Unlock()

	s.flush()
	return err
}

func (s *Session) emit(typ EventType, playerID string, data any) {
	s.events = append(s.events, Event{
		Type:      typ,
		PlayerID:  playerID,
		Data:      data,
		Timestamp: s.sched.Now(),
	})
}

// commitLocked moves the pending events and one snapshot to the outbox.
// Called with mu held so the outbox follows operation order.
func (s *Session) commitLocked() {
	if len(s.events) == 0 {
		return
	}
	d := delivery{events: s.events, snapshot: s.snapshotLocked("")}
	if _, ok := s.game.(PrivateStater); ok {
		d.views = make([]Snapshot, 0, len(s.players))
		for _, p := range s.players {
			d.views = append(d.views, s.snapshotLocked(p.ID))
		}
	}
	s.events = nil

	s.outMu.Lock()
	s.outbox = append(s.outbox, d)
	s.outMu.Unlock()
}

// flush delivers queued deliveries. Only one goroutine delivers at a time;
// others leave their deliveries for it.
func (s *Session) flush() {
	s.outMu.Lock()
	if s.delivering {
		s.outMu.Unlock()
		return
	}
	s.delivering = true
	for len(s.outbox) > 0 {
		d := s.outbox[0]
		s.outbox = s.outbox[1:]
		h := s.handlers
		s.outMu.Unlock()
		s.deliver(h, d)
		s.outMu.Lock()
	}
	s.delivering = false
	s.outMu.Unlock()
}

func (s *Session) deliver(h Handlers, d delivery) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("session handler panicked", "panic", r)
		}
	}()
	if h.OnGameEvent != nil {
		for _, e := range d.events {
			h.OnGameEvent(e)
		}
	}
	if h.OnStateChange != nil {
		h.OnStateChange(d.snapshot)
	}
	if h.OnPlayerView != nil {
		for _, v := range d.views {
			h.OnPlayerView(v.Viewer, v)
		}
	}
}

// fire runs a timer callback as an operation. Callbacks for a closed
// session, a finished game or a superseded timer do nothing.
func (s *Session) fire(kind timerKind, gen uint64, fn func()) {
	s.mu.Lock()
	if s.closed || !s.timers.live(kind, gen) || s.lifecycle.Current() != StatusInProgress {
		s.mu.Unlock()
		return
	}
	s.timers.clear(kind)
	fn()
	s.commitLocked()
	s.mu.Unlock()

	s.flush()
}

// arm schedules fn as the only live timer of its kind.
func (s *Session) arm(kind timerKind, d time.Duration, fn func()) {
	s.timers.arm(kind, d, func(gen uint64) {
		s.fire(kind, gen, fn)
	})
}

func (s *Session) ctx() *Context {
	return &Context{s: s}
}

// --- roster helpers (mu held) ---

func (s *Session) indexOf(id string) int {
	for i, p := range s.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) player(id string) *Player {
	if i := s.indexOf(id); i >= 0 {
		return s.players[i]
	}
	return nil
}

func (s *Session) participantCount() int {
	n := 0
	for _, p := range s.players {
		if !p.IsObserver {
			n++
		}
	}
	return n
}

// isActive reports whether a participant takes part in play right now.
func (s *Session) isActive(id string) bool {
	p := s.player(id)
	if p == nil || p.IsObserver {
		return false
	}
	if ac, ok := s.game.(ActivityChecker); ok {
		return ac.IsActive(s.ctx(), id)
	}
	return true
}

// --- public operations ---

// AddPlayer admits p. While a game is in progress the entrant becomes a
// non-ready observer.
func (s *Session) AddPlayer(p Player) error {
	return s.mutate(func() error {
		status := s.lifecycle.Current()
		if status == StatusFinished {
			return ErrGameFinished
		}
		if s.indexOf(p.ID) >= 0 {
			return ErrPlayerExists
		}
		if len(s.players) >= s.settings.MaxPlayers {
			return ErrRoomFull
		}

		np := p.clone()
		np.JoinedAt = s.sched.Now()

		if status == StatusInProgress || np.IsObserver {
			np.Ready = false
			np.IsObserver = true
			s.players = append(s.players, &np)
			s.emit(EventObserverJoined, np.ID, np.clone())
			s.log.Infow("observer joined", "player_id", np.ID)
			return nil
		}

		var team *Team
		if s.teams != nil {
			team = s.teams.pick()
			if team == nil {
				return ErrTeamsFull
			}
		}

		s.players = append(s.players, &np)
		s.emit(EventPlayerJoined, np.ID, np.clone())
		if team != nil {
			s.teams.add(team, np.ID)
		}
		s.log.Infow("player joined", "player_id", np.ID, "players", len(s.players))

		s.maybeAutoStart()
		return nil
	})
}

// RemovePlayer drops a player. A game left with too few participants ends
// without a winner. The roster of a finished game is final.
func (s *Session) RemovePlayer(id string) error {
	return s.mutate(func() error {
		if s.lifecycle.Current() == StatusFinished {
			return ErrGameFinished
		}
		idx := s.indexOf(id)
		if idx < 0 {
			return ErrPlayerNotFound
		}
		p := s.players[idx]
		s.players = append(s.players[:idx], s.players[idx+1:]...)
		if s.teams != nil {
			s.teams.remove(id)
		}
		s.emit(EventPlayerLeft, id, PlayerLeftPayload{PlayerID: id, Name: p.Name, Observer: p.IsObserver})
		s.log.Infow("player left", "player_id", id, "players", len(s.players))

		switch s.lifecycle.Current() {
		case StatusWaiting:
			s.maybeAutoStart()
		case StatusInProgress:
			if !p.IsObserver && s.participantCount() < s.settings.MinPlayers {
				s.log.Infow("too few players left, aborting game", "remaining", s.participantCount())
				s.finishLocked("", ReasonAborted)
				return nil
			}
			s.strategy.playerRemoved(s, id, idx)
		}
		return nil
	})
}

func (s *Session) SetReady(id string, ready bool) error {
	return s.mutate(func() error {
		p := s.player(id)
		if p == nil {
			return ErrPlayerNotFound
		}
		if s.lifecycle.Current() != StatusWaiting {
			return ErrNotWaiting
		}
		p.Ready = ready
		s.emit(EventPlayerReady, id, ReadyPayload{Ready: ready})
		s.maybeAutoStart()
		return nil
	})
}

// StartGame starts a waiting session whose players are all ready.
func (s *Session) StartGame() error {
	return s.mutate(func() error {
		if err := s.startErr(); err != nil {
			return err
		}
		return s.startLocked()
	})
}

// MakeMove submits a move. What happens next depends on the strategy.
func (s *Session) MakeMove(id string, move Move) error {
	return s.mutate(func() error {
		if s.lifecycle.Current() != StatusInProgress {
			return ErrNotInProgress
		}
		p := s.player(id)
		if p == nil || p.IsObserver {
			return ErrNotParticipant
		}
		return s.strategy.move(s, p, move)
	})
}

// ForceRoundEnd fills missing moves with defaults and resolves the current
// round now.
func (s *Session) ForceRoundEnd() error {
	return s.mutate(func() error {
		if s.lifecycle.Current() != StatusInProgress {
			return ErrNotInProgress
		}
		r, ok := s.strategy.(*roundStrategy)
		if !ok {
			return ErrNotRealtime
		}
		r.fillDefaults(s)
		r.resolve(s)
		return nil
	})
}

// Finish ends a game in progress with the given winner.
func (s *Session) Finish(winner string) error {
	return s.mutate(func() error {
		if s.lifecycle.Current() != StatusInProgress {
			return ErrNotInProgress
		}
		s.finishLocked(winner, ReasonEnded)
		return nil
	})
}

// Cleanup cancels every timer and detaches the handlers. Later operations
// fail with ErrSessionClosed and late timer callbacks do nothing.
func (s *Session) Cleanup() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.timers.cancelAll()
	s.events = nil
	s.mu.Unlock()

	s.outMu.Lock()
	s.handlers = Handlers{}
	s.outbox = nil
	s.outMu.Unlock()

	s.log.Debug("session cleaned up")
}

// Closed reports whether Cleanup has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// --- lifecycle (mu held) ---

func (s *Session) startErr() error {
	if s.lifecycle.Current() != StatusWaiting {
		return ErrNotWaiting
	}
	if s.teams != nil {
		if !s.teams.allFull() {
			return ErrTeamsNotFull
		}
	} else if s.participantCount() < s.settings.MinPlayers {
		return ErrNotEnoughPlayers
	}
	for _, p := range s.players {
		if !p.IsObserver && !p.Ready {
			return ErrPlayersNotReady
		}
	}
	return nil
}

func (s *Session) maybeAutoStart() {
	if s.startErr() != nil {
		return
	}
	if err := s.startLocked(); err != nil {
		s.log.Warnw("auto start failed", "error", err)
	}
}

func (s *Session) startLocked() error {
	if err := s.lifecycle.ChangeState(StatusInProgress); err != nil {
		return err
	}
	ids := make([]string, 0, len(s.players))
	for _, p := range s.players {
		if !p.IsObserver {
			ids = append(ids, p.ID)
		}
	}
	s.emit(EventGameStarted, "", GameStartedPayload{Players: ids})
	s.log.Infow("game started", "players", len(ids))

	if in, ok := s.game.(Initializer); ok {
		in.Setup(s.ctx())
	}
	s.strategy.start(s)
	return nil
}

func (s *Session) finishLocked(winner string, reason FinishReason) {
	if s.lifecycle.Current() != StatusInProgress {
		return
	}
	s.winner = winner
	s.reason = reason
	if err := s.lifecycle.ChangeState(StatusFinished); err != nil {
		s.log.Errorw("finish transition failed", "error", err)
		return
	}
	s.emit(EventGameFinished, "", GameFinishedPayload{Winner: winner, Reason: reason})
	s.log.Infow("game finished", "winner", winner, "reason", reason, "moves", len(s.history))
}

// checkEnd finishes the game when the rules say it is over.
func (s *Session) checkEnd() bool {
	c := s.ctx()
	if !s.game.CheckGameEnd(c) {
		return false
	}
	s.finishLocked(s.game.DetermineWinner(c), ReasonCompleted)
	return true
}

// apply executes one move through the game and records it.
func (s *Session) apply(playerID string, move Move) error {
	if err := s.game.ExecuteMove(s.ctx(), playerID, move); err != nil {
		return wrapIllegal(err)
	}
	rec := MoveRecord{PlayerID: playerID, Move: move, Timestamp: s.sched.Now()}
	s.history = append(s.history, rec)
	s.lastMoveAt = rec.Timestamp
	s.emit(EventMoveMade, playerID, rec)
	return nil
}

// wrapIllegal marks a game error as ErrIllegalMove while keeping the
// game's own error matchable.
func wrapIllegal(err error) error {
	if errors.Is(err, ErrIllegalMove) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrIllegalMove, err)
}
