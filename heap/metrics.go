package heap

import "time"

// MetricsObserver defines the interface for observing heap events.
type MetricsObserver interface {
	// OnMinorGC is called after each minor collection.
	OnMinorGC(duration time.Duration, survivedWords, promotedWords int)

	// OnMajorGC is called after each major collection.
	OnMajorGC(duration time.Duration, liveWords, reclaimedWords int)

	// OnGrow is called when the young generation changes capacity.
	OnGrow(oldWords, newWords int)

	// OnExhausted is called once when the heap fails an allocation for good.
	OnExhausted(requestedWords, footprintWords int)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (o *NoopMetricsObserver) OnMinorGC(duration time.Duration, survivedWords, promotedWords int) {}
func (o *NoopMetricsObserver) OnMajorGC(duration time.Duration, liveWords, reclaimedWords int)    {}
func (o *NoopMetricsObserver) OnGrow(oldWords, newWords int)                                      {}
func (o *NoopMetricsObserver) OnExhausted(requestedWords, footprintWords int)                     {}
