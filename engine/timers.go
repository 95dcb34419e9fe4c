package engine

import (
	"time"

	"github.com/wfunc/gameengine/timer"
)

type timerKind int

const (
	turnTimer timerKind = iota
	roundTimer
	gameTimer
)

func (k timerKind) String() string {
	switch k {
	case turnTimer:
		return "turn"
	case roundTimer:
		return "round"
	case gameTimer:
		return "game"
	}
	return "unknown"
}

// timers keeps at most one live handle per kind. Every arm or cancel bumps
// the kind's generation so a callback already in flight can tell it has
// been superseded.
type timers struct {
	sched     timer.Scheduler
	ids       map[timerKind]timer.ID
	gens      map[timerKind]uint64
	deadlines map[timerKind]time.Time
}

func newTimers(sched timer.Scheduler) timers {
	return timers{
		sched:     sched,
		ids:       make(map[timerKind]timer.ID),
		gens:      make(map[timerKind]uint64),
		deadlines: make(map[timerKind]time.Time),
	}
}

func (t *timers) arm(kind timerKind, d time.Duration, fn func(gen uint64)) {
	t.cancel(kind)
	gen := t.gens[kind]
	t.deadlines[kind] = t.sched.Now().Add(d)
	t.ids[kind] = t.sched.AfterFunc(d, func() { fn(gen) })
}

func (t *timers) cancel(kind timerKind) {
	if id, ok := t.ids[kind]; ok {
		t.sched.Cancel(id)
	}
	t.clear(kind)
}

// clear forgets the kind's handle without cancelling it.
func (t *timers) clear(kind timerKind) {
	delete(t.ids, kind)
	delete(t.deadlines, kind)
	t.gens[kind]++
}

func (t *timers) cancelAll() {
	for _, kind := range []timerKind{turnTimer, roundTimer, gameTimer} {
		t.cancel(kind)
	}
}

func (t *timers) live(kind timerKind, gen uint64) bool {
	_, ok := t.ids[kind]
	return ok && t.gens[kind] == gen
}

func (t *timers) deadline(kind timerKind) *time.Time {
	if d, ok := t.deadlines[kind]; ok {
		return &d
	}
	return nil
}
