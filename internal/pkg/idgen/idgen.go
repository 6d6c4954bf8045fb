package idgen

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator produces unique identifiers for records.
type Generator interface {
	NewID() string
}

// Func adapts a plain function to Generator
type Func func() string

func (f Func) NewID() string { return f() }

// UUID returns a Generator of random v4 UUID strings
func UUID() Generator {
	return Func(uuid.NewString)
}

// Sequence yields prefix-1, prefix-2, ... and is safe for concurrent use.
type Sequence struct {
	prefix string

	mu   sync.Mutex
	next int
}

// NewSequence creates a deterministic generator for tests and fixtures
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%s-%d", s.prefix, s.next)
}
