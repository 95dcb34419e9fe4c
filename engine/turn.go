package engine

import "time"

// turnStrategy lets one participant act at a time.
type turnStrategy struct {
	current   int
	started   bool
	startedAt time.Time
}

// TurnBased returns the sequential strategy: a random participant starts,
// each turn has TimeLimit to act, and turn order skips observers and
// participants the game reports inactive.
func TurnBased() Strategy {
	return &turnStrategy{}
}

func (t *turnStrategy) Name() string { return "turn_based" }

func (t *turnStrategy) start(s *Session) {
	t.started = true
	eligible := t.eligible(s)
	if len(eligible) == 0 {
		t.current = 0
	} else {
		t.current = eligible[s.rnd.Intn(len(eligible))]
	}
	t.beginTurn(s)
}

func (t *turnStrategy) eligible(s *Session) []int {
	var out []int
	for i, p := range s.players {
		if s.isActive(p.ID) {
			out = append(out, i)
		}
	}
	return out
}

func (t *turnStrategy) currentID(s *Session) string {
	if !t.started || t.current < 0 || t.current >= len(s.players) {
		return ""
	}
	return s.players[t.current].ID
}

func (t *turnStrategy) beginTurn(s *Session) {
	t.startedAt = s.sched.Now()
	if s.settings.TimeLimit > 0 {
		s.arm(turnTimer, s.settings.TimeLimit, func() { t.timeout(s) })
	}
	id := t.currentID(s)
	s.emit(EventTurnChanged, id, TurnPayload{PlayerID: id, Index: t.current})
}

func (t *turnStrategy) move(s *Session, p *Player, move Move) error {
	if t.currentID(s) != p.ID {
		return ErrNotYourTurn
	}
	if err := s.apply(p.ID, move); err != nil {
		return err
	}
	t.afterAction(s)
	return nil
}

func (t *turnStrategy) afterAction(s *Session) {
	if s.checkEnd() {
		return
	}
	t.advance(s)
}

// advance hands the turn to the next eligible participant after the
// current one. If nobody else is eligible the current participant keeps it.
func (t *turnStrategy) advance(s *Session) {
	if next := t.seek(s, t.current+1); next >= 0 {
		t.current = next
	}
	t.beginTurn(s)
}

// seek scans the roster circularly starting at from and returns the first
// eligible index, or -1.
func (t *turnStrategy) seek(s *Session, from int) int {
	n := len(s.players)
	for step := 0; step < n; step++ {
		i := ((from+step)%n + n) % n
		if s.isActive(s.players[i].ID) {
			return i
		}
	}
	return -1
}

func (t *turnStrategy) timeout(s *Session) {
	id := t.currentID(s)
	s.emit(EventTurnTimeout, id, TurnPayload{PlayerID: id, Index: t.current})
	s.log.Infow("turn timed out", "player_id", id)

	if dm, ok := s.game.(DefaultMover); ok && id != "" {
		if move, ok := dm.DefaultMove(s.ctx(), id); ok {
			if err := s.apply(id, move); err != nil {
				s.log.Warnw("default move rejected", "player_id", id, "error", err)
			}
		}
	}
	t.afterAction(s)
}

func (t *turnStrategy) playerRemoved(s *Session, id string, index int) {
	if len(s.players) == 0 {
		return
	}
	switch {
	case index < t.current:
		t.current--
	case index == t.current:
		if t.current >= len(s.players) {
			t.current = 0
		}
		if next := t.seek(s, t.current); next >= 0 {
			t.current = next
		}
		t.beginTurn(s)
	}
}

func (t *turnStrategy) stop(s *Session) {
	s.timers.cancel(turnTimer)
}

func (t *turnStrategy) fill(s *Session, snap *Snapshot) {
	if !t.started {
		return
	}
	snap.Turn = &TurnInfo{
		PlayerID:  t.currentID(s),
		Index:     t.current,
		StartedAt: t.startedAt,
		Deadline:  s.timers.deadline(turnTimer),
	}
}
