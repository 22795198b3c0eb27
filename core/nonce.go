package core

import (
	"sync"
	"time"
)

// Nonce is the strictly increasing number attached to every signed request
type Nonce uint64

// NonceSequencer hands out nonces seeded from wall-clock microseconds.
// Values issued by one sequencer are strictly increasing even when the clock
// stalls or steps backwards.
type NonceSequencer struct {
	mu   sync.Mutex
	now  func() time.Time
	last uint64
}

// NewNonceSequencer creates a sequencer. A nil clock uses time.Now.
func NewNonceSequencer(now func() time.Time) *NonceSequencer {
	if now == nil {
		now = time.Now
	}
	return &NonceSequencer{
		now:  now,
		last: micros(now),
	}
}

// Next returns max(last+1, now in microseconds)
func (s *NonceSequencer) Next() Nonce {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.last + 1
	if t := micros(s.now); t > next {
		next = t
	}
	s.last = next
	return Nonce(next)
}

func micros(now func() time.Time) uint64 {
	us := now().UnixMicro()
	if us < 0 {
		return 0
	}
	return uint64(us)
}
