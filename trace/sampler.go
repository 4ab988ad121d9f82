package trace

import (
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Sampler forwards at most a rate-limited share of events to another
// Recorder. Events over the limit are counted and discarded.
type Sampler struct {
	next    Recorder
	limiter *rate.Limiter
	dropped atomic.Uint64
}

// NewSampler forwards up to perSecond events per second to next, with bursts
// of up to burst events.
func NewSampler(next Recorder, perSecond float64, burst int) *Sampler {
	if burst <= 0 {
		burst = 1
	}
	return &Sampler{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Record implements Recorder.
func (s *Sampler) Record(e Event) {
	if !s.limiter.Allow() {
		s.dropped.Add(1)
		return
	}
	s.next.Record(e)
}

// Dropped returns the number of discarded events.
func (s *Sampler) Dropped() uint64 {
	return s.dropped.Load()
}
