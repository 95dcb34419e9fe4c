package timer

import (
	"container/heap"
	"sync"
	"time"
)

// Manual is a Scheduler whose clock only moves when Advance is called.
// Callbacks run synchronously on the goroutine calling Advance.
type Manual struct {
	mutex  sync.Mutex
	now    time.Time
	queue  queue
	byID   map[ID]*task
	nextID ID
}

func NewManual(start time.Time) *Manual {
	return &Manual{
		now:    start,
		byID:   make(map[ID]*task),
		nextID: 1,
	}
}

func (m *Manual) Now() time.Time {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(delay time.Duration, callback func()) ID {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	t := &task{id: m.nextID, execute: m.now.Add(delay), callback: callback}
	m.nextID++
	heap.Push(&m.queue, t)
	m.byID[t.id] = t
	return t.id
}

func (m *Manual) Cancel(id ID) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if t, ok := m.byID[id]; ok {
		heap.Remove(&m.queue, t.index)
		delete(m.byID, id)
	}
}

// Pending returns the number of scheduled callbacks.
func (m *Manual) Pending() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.queue.Len()
}

// Advance moves the clock forward by d, firing every callback that falls
// due in deadline order. Callbacks scheduled while advancing fire too if
// they are due before the target time.
func (m *Manual) Advance(d time.Duration) {
	m.mutex.Lock()
	target := m.now.Add(d)
	for m.queue.Len() > 0 && !m.queue[0].execute.After(target) {
		t := heap.Pop(&m.queue).(*task)
		delete(m.byID, t.id)
		m.now = t.execute
		m.mutex.Unlock()
		t.callback()
		m.mutex.Lock()
	}
	m.now = target
	m.mutex.Unlock()
}
