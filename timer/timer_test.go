package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_FiresCallback(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	fired := make(chan struct{})
	m.AfterFunc(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not fire")
	}
	assert.Equal(t, 0, m.Pending())
}

func TestManager_CancelPreventsFiring(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var count atomic.Int32
	id := m.AfterFunc(20*time.Millisecond, func() { count.Add(1) })
	m.Cancel(id)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), count.Load())
	assert.Equal(t, 0, m.Pending())
}

func TestManager_EarlierTimerWakesLoop(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	m.AfterFunc(time.Hour, func() {})
	fired := make(chan struct{})
	m.AfterFunc(5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("short timer was starved by the long one")
	}
}

func TestManual_AdvanceFiresInOrder(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewManual(start)

	var order []string
	m.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	m.AfterFunc(1*time.Second, func() { order = append(order, "a") })
	m.AfterFunc(2*time.Second, func() { order = append(order, "b") })

	m.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, start.Add(2*time.Second), m.Now())

	m.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestManual_CallbackCanReschedule(t *testing.T) {
	m := NewManual(time.Unix(0, 0))

	var fired int
	var tick func()
	tick = func() {
		fired++
		m.AfterFunc(time.Second, tick)
	}
	m.AfterFunc(time.Second, tick)

	m.Advance(3 * time.Second)
	assert.Equal(t, 3, fired)
	require.Equal(t, 1, m.Pending())
}

func TestManual_Cancel(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	fired := false
	id := m.AfterFunc(time.Second, func() { fired = true })
	m.Cancel(id)
	m.Cancel(id)

	m.Advance(time.Minute)
	assert.False(t, fired)
}
