package metis

import (
	"math"
	"sync"

	"github.com/iti/rngstream"
)

// SeedSource hands out partitioner seeds.
type SeedSource interface {
	Next() int
}

// StreamSeeds draws seeds from a named rngstream. It is safe for
// concurrent use.
type StreamSeeds struct {
	mu     sync.Mutex
	stream *rngstream.RngStream
}

// NewStreamSeeds creates a seed source on its own random stream.
func NewStreamSeeds(name string) *StreamSeeds {
	return &StreamSeeds{stream: rngstream.New(name)}
}

// Next returns a seed in [0, MaxInt32].
func (s *StreamSeeds) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream.RandInt(0, math.MaxInt32)
}
