package random

import "math/rand/v2"

// Random provides the randomness the engine needs so tests can pin it.
type Random interface {
	// Intn returns a random int in [0, n)
	Intn(n int) int
}

// Default draws from the process-wide math/rand/v2 source.
type Default struct{}

// New creates a Default.
func New() Default {
	return Default{}
}

func (Default) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return rand.IntN(n)
}

// Shuffle permutes n elements with a Fisher-Yates pass driven by r.
func Shuffle(r Random, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		swap(i, j)
	}
}

// Sequence replays queued values, for tests. Values are reduced modulo n;
// once the queue is exhausted it returns 0.
type Sequence struct {
	values []int
	next   int
}

// NewSequence creates a Sequence that yields values in order.
func NewSequence(values ...int) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) Intn(n int) int {
	if n <= 0 || s.next >= len(s.values) {
		return 0
	}
	v := s.values[s.next] % n
	s.next++
	return v
}

// Queue appends values to the sequence.
func (s *Sequence) Queue(values ...int) {
	s.values = append(s.values, values...)
}
