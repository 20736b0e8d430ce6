package schedule

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Sampler yields uniform floats in [0, 1).
type Sampler interface {
	Float64() float64
}

type lockedSampler struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSampler returns a goroutine-safe PCG sampler. The same seed yields the
// same sequence, which tests rely on.
func NewSampler(seed uint64) Sampler {
	return &lockedSampler{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func newTimeSampler() Sampler { return NewSampler(uint64(time.Now().UnixNano())) }

func (s *lockedSampler) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}
