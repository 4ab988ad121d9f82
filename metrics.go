package procheap

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/procheap/heap"
)

// MetricsCollector defines an interface for collecting runtime metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// The heap events come from every process heap of the runtime, possibly from
// several goroutines at once; implementations must be safe for concurrent use.
type MetricsCollector interface {
	heap.MetricsObserver

	// RecordSpawn is called after each spawn attempt.
	RecordSpawn(err error)

	// RecordExit is called once per process. reason is nil for a normal exit.
	RecordExit(reason error)

	// RecordSend is called after each message copy. words is the size of the
	// copy in the receiver's heap.
	RecordSend(words int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use &NoopMetricsCollector{} when metrics collection is not needed.
type NoopMetricsCollector struct {
	heap.NoopMetricsObserver
}

func (NoopMetricsCollector) RecordSpawn(error)                    {}
func (NoopMetricsCollector) RecordExit(error)                     {}
func (NoopMetricsCollector) RecordSend(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	MinorCollections atomic.Int64
	MinorTotalNanos  atomic.Int64
	SurvivedWords    atomic.Int64
	PromotedWords    atomic.Int64
	MajorCollections atomic.Int64
	MajorTotalNanos  atomic.Int64
	ReclaimedWords   atomic.Int64
	Growths          atomic.Int64
	Exhaustions      atomic.Int64
	Spawns           atomic.Int64
	SpawnErrors      atomic.Int64
	Exits            atomic.Int64
	AbnormalExits    atomic.Int64
	Sends            atomic.Int64
	SendErrors       atomic.Int64
	SentWords        atomic.Int64
}

// OnMinorGC implements heap.MetricsObserver.
func (b *BasicMetricsCollector) OnMinorGC(duration time.Duration, survivedWords, promotedWords int) {
	b.MinorCollections.Add(1)
	b.MinorTotalNanos.Add(duration.Nanoseconds())
	b.SurvivedWords.Add(int64(survivedWords))
	b.PromotedWords.Add(int64(promotedWords))
}

// OnMajorGC implements heap.MetricsObserver.
func (b *BasicMetricsCollector) OnMajorGC(duration time.Duration, liveWords, reclaimedWords int) {
	b.MajorCollections.Add(1)
	b.MajorTotalNanos.Add(duration.Nanoseconds())
	b.ReclaimedWords.Add(int64(reclaimedWords))
}

// OnGrow implements heap.MetricsObserver.
func (b *BasicMetricsCollector) OnGrow(oldWords, newWords int) {
	b.Growths.Add(1)
}

// OnExhausted implements heap.MetricsObserver.
func (b *BasicMetricsCollector) OnExhausted(requestedWords, footprintWords int) {
	b.Exhaustions.Add(1)
}

// RecordSpawn implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSpawn(err error) {
	b.Spawns.Add(1)
	if err != nil {
		b.SpawnErrors.Add(1)
	}
}

// RecordExit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExit(reason error) {
	b.Exits.Add(1)
	if reason != nil {
		b.AbnormalExits.Add(1)
	}
}

// RecordSend implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSend(words int, duration time.Duration, err error) {
	b.Sends.Add(1)
	if err != nil {
		b.SendErrors.Add(1)
		return
	}
	b.SentWords.Add(int64(words))
}

// BasicMetricsStats is a point-in-time copy of BasicMetricsCollector.
type BasicMetricsStats struct {
	MinorCollections int64
	MinorAvgNanos    int64
	PromotedWords    int64
	MajorCollections int64
	MajorAvgNanos    int64
	ReclaimedWords   int64
	Growths          int64
	Exhaustions      int64
	Spawns           int64
	Exits            int64
	AbnormalExits    int64
	Sends            int64
	SentWords        int64
}

// GetStats returns a snapshot of the collected metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		MinorCollections: b.MinorCollections.Load(),
		PromotedWords:    b.PromotedWords.Load(),
		MajorCollections: b.MajorCollections.Load(),
		ReclaimedWords:   b.ReclaimedWords.Load(),
		Growths:          b.Growths.Load(),
		Exhaustions:      b.Exhaustions.Load(),
		Spawns:           b.Spawns.Load(),
		Exits:            b.Exits.Load(),
		AbnormalExits:    b.AbnormalExits.Load(),
		Sends:            b.Sends.Load(),
		SentWords:        b.SentWords.Load(),
	}
	if s.MinorCollections > 0 {
		s.MinorAvgNanos = b.MinorTotalNanos.Load() / s.MinorCollections
	}
	if s.MajorCollections > 0 {
		s.MajorAvgNanos = b.MajorTotalNanos.Load() / s.MajorCollections
	}
	return s
}
