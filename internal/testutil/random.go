package testutil

import (
	"sync"
)

// StubRandomSource fills buffers with a deterministic counting pattern.
// Each call continues where the previous one left off, so consecutive
// draws (salts, nonces, keys) are distinct but reproducible.
type StubRandomSource struct {
	mu   sync.Mutex
	next byte
}

func NewStubRandomSource() *StubRandomSource {
	return &StubRandomSource{}
}

func (s *StubRandomSource) Read(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range b {
		b[i] = s.next
		s.next++
	}
	return nil
}
