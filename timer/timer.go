// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

// ID identifies a scheduled callback. The zero ID is never issued.
type ID int64

// Scheduler runs callbacks after a delay and lets them be cancelled.
type Scheduler interface {
	AfterFunc(delay time.Duration, callback func()) ID
	Cancel(id ID)
	Now() time.Time
}

type task struct {
	id       ID
	execute  time.Time
	callback func()
	index    int
}

type queue []*task

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].execute.Equal(q[j].execute) {
		return q[i].id < q[j].id
	}
	return q[i].execute.Before(q[j].execute)
}

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue) Push(x interface{}) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *queue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

// Manager is a heap-backed Scheduler. A single goroutine sleeps until the
// earliest deadline and fires due callbacks on their own goroutines.
type Manager struct {
	mutex  sync.Mutex
	queue  queue
	byID   map[ID]*task
	nextID ID
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func NewManager() *Manager {
	m := &Manager{
		queue:  make(queue, 0),
		byID:   make(map[ID]*task),
		nextID: 1,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	heap.Init(&m.queue)
	go m.process()
	return m
}

func (m *Manager) Now() time.Time {
	return time.Now()
}

func (m *Manager) AfterFunc(delay time.Duration, callback func()) ID {
	m.mutex.Lock()
	t := &task{
		id:       m.nextID,
		execute:  time.Now().Add(delay),
		callback: callback,
	}
	m.nextID++
	heap.Push(&m.queue, t)
	m.byID[t.id] = t
	m.mutex.Unlock()

	m.poke()
	return t.id
}

func (m *Manager) Cancel(id ID) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if t, ok := m.byID[id]; ok {
		heap.Remove(&m.queue, t.index)
		delete(m.byID, id)
	}
}

// Pending returns the number of scheduled callbacks.
func (m *Manager) Pending() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.queue.Len()
}

// Stop halts the scheduling goroutine. Pending callbacks never fire.
func (m *Manager) Stop() {
	m.once.Do(func() { close(m.done) })
}

func (m *Manager) poke() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) process() {
	sleep := time.NewTimer(time.Hour)
	defer sleep.Stop()

	for {
		m.mutex.Lock()
		now := time.Now()
		var due []*task
		for m.queue.Len() > 0 && !m.queue[0].execute.After(now) {
			t := heap.Pop(&m.queue).(*task)
			delete(m.byID, t.id)
			due = append(due, t)
		}
		wait := time.Hour
		if m.queue.Len() > 0 {
			wait = m.queue[0].execute.Sub(now)
		}
		m.mutex.Unlock()

		for _, t := range due {
			go t.callback()
		}

		if !sleep.Stop() {
			select {
			case <-sleep.C:
			default:
			}
		}
		sleep.Reset(wait)

		select {
		case <-sleep.C:
		case <-m.wake:
		case <-m.done:
			return
		}
	}
}
