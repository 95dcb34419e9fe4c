package engine

import (
	"sort"
	"time"

	"github.com/wfunc/gameengine/random"
)

// roundStrategy collects one move from every active participant, then
// executes them together.
type roundStrategy struct {
	round     int
	pending   map[string]PendingMove
	order     []string // submission order
	startedAt time.Time
}

// Realtime returns the simultaneous-round strategy. TimeLimit bounds each
// round and GameTimeLimit, when set, bounds the whole game.
func Realtime() Strategy {
	return &roundStrategy{pending: make(map[string]PendingMove)}
}

func (r *roundStrategy) Name() string { return "realtime" }

func (r *roundStrategy) start(s *Session) {
	r.round = 1
	if s.settings.GameTimeLimit > 0 {
		s.arm(gameTimer, s.settings.GameTimeLimit, func() { r.gameTimeout(s) })
	}
	r.beginRound(s)
}

func (r *roundStrategy) beginRound(s *Session) {
	r.startedAt = s.sched.Now()
	if s.settings.TimeLimit > 0 {
		s.arm(roundTimer, s.settings.TimeLimit, func() { r.roundTimeout(s) })
	}
	s.emit(EventRoundStarted, "", RoundPayload{Round: r.round})
}

func (r *roundStrategy) move(s *Session, p *Player, move Move) error {
	if !s.isActive(p.ID) {
		return ErrPlayerInactive
	}
	if im, ok := s.game.(ImmediateMover); ok && im.ExecutesImmediately() {
		if err := s.apply(p.ID, move); err != nil {
			return err
		}
		s.checkEnd()
		return nil
	}
	if _, ok := r.pending[p.ID]; ok {
		return ErrAlreadyMoved
	}
	if v, ok := s.game.(MoveValidator); ok {
		if err := v.ValidateMove(s.ctx(), p.ID, move); err != nil {
			return wrapIllegal(err)
		}
	}

	r.submit(s, p.ID, move)
	s.emit(EventMoveSubmitted, p.ID, RoundPayload{Round: r.round})

	if r.complete(s) {
		r.resolve(s)
	}
	return nil
}

func (r *roundStrategy) submit(s *Session, id string, move Move) {
	r.pending[id] = PendingMove{PlayerID: id, Move: move, SubmittedAt: s.sched.Now()}
	r.order = append(r.order, id)
}

// complete reports whether every active participant has a pending move.
func (r *roundStrategy) complete(s *Session) bool {
	active := 0
	for _, p := range s.players {
		if !s.isActive(p.ID) {
			continue
		}
		active++
		if _, ok := r.pending[p.ID]; !ok {
			return false
		}
	}
	return active > 0
}

// fillDefaults asks the game for a move on behalf of every active
// participant who has not submitted one.
func (r *roundStrategy) fillDefaults(s *Session) {
	dm, ok := s.game.(DefaultMover)
	if !ok {
		return
	}
	for _, p := range s.players {
		if !s.isActive(p.ID) {
			continue
		}
		if _, ok := r.pending[p.ID]; ok {
			continue
		}
		if move, ok := dm.DefaultMove(s.ctx(), p.ID); ok {
			r.submit(s, p.ID, move)
		}
	}
}

// resolve drains the pending set, executes its moves and opens the next
// round unless the game is over.
func (r *roundStrategy) resolve(s *Session) {
	moves := make([]PendingMove, 0, len(r.order))
	for _, id := range r.order {
		moves = append(moves, r.pending[id])
	}
	r.pending = make(map[string]PendingMove)
	r.order = nil
	s.timers.cancel(roundTimer)

	if o, ok := s.game.(MoveOrderer); ok {
		moves = o.OrderMoves(s.ctx(), moves)
	} else {
		random.Shuffle(s.rnd, len(moves), func(i, j int) { moves[i], moves[j] = moves[j], moves[i] })
	}

	executed := make([]MoveRecord, 0, len(moves))
	for _, m := range moves {
		if err := s.apply(m.PlayerID, m.Move); err != nil {
			s.log.Warnw("round move rejected", "player_id", m.PlayerID, "round", r.round, "error", err)
			continue
		}
		executed = append(executed, s.history[len(s.history)-1])
	}
	s.emit(EventRoundCompleted, "", RoundCompletedPayload{Round: r.round, Moves: executed})

	if s.checkEnd() {
		return
	}
	r.round++
	r.beginRound(s)
}

func (r *roundStrategy) roundTimeout(s *Session) {
	s.emit(EventRoundTimeout, "", RoundPayload{Round: r.round})
	s.log.Infow("round timed out", "round", r.round, "submitted", len(r.pending))
	r.fillDefaults(s)
	r.resolve(s)
}

func (r *roundStrategy) gameTimeout(s *Session) {
	s.emit(EventGameTimeout, "", RoundPayload{Round: r.round})
	s.finishLocked(s.game.DetermineWinner(s.ctx()), ReasonTimeout)
}

func (r *roundStrategy) playerRemoved(s *Session, id string, index int) {
	if _, ok := r.pending[id]; ok {
		delete(r.pending, id)
		for i, pid := range r.order {
			if pid == id {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	if len(r.pending) > 0 && r.complete(s) {
		r.resolve(s)
	}
}

func (r *roundStrategy) stop(s *Session) {
	s.timers.cancel(roundTimer)
	s.timers.cancel(gameTimer)
}

func (r *roundStrategy) fill(s *Session, snap *Snapshot) {
	if r.round == 0 {
		return
	}
	submitted := make([]string, 0, len(r.pending))
	for id := range r.pending {
		submitted = append(submitted, id)
	}
	sort.Strings(submitted)
	snap.Round = &RoundInfo{
		Number:       r.round,
		Submitted:    submitted,
		StartedAt:    r.startedAt,
		Deadline:     s.timers.deadline(roundTimer),
		GameDeadline: s.timers.deadline(gameTimer),
	}
}
