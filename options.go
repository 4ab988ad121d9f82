package procheap

import (
	"log/slog"

	"github.com/hupe1980/procheap/heap"
	"github.com/hupe1980/procheap/trace"
)

type options struct {
	heapConfig       heap.Config
	memoryLimit      int64
	heapBacking      bool
	maxAtoms         int
	literalWords     int
	recorder         trace.Recorder
	metricsCollector MetricsCollector
	logger           *Logger
	onExit           func(pid uint64, reason error)
}

// Option configures a Runtime.
type Option func(*options)

// WithHeapConfig sets the configuration every spawned heap starts from.
// Zero fields take the heap package defaults.
func WithHeapConfig(cfg heap.Config) Option {
	return func(o *options) {
		o.heapConfig = cfg
	}
}

// WithMemoryLimit caps the arena memory of all heaps of the runtime, in
// bytes. A heap whose arena cannot be charged against the limit fails its
// allocation as if it had reached its growth ceiling.
//
// If limit <= 0, arena memory is tracked but not limited.
func WithMemoryLimit(limit int64) Option {
	return func(o *options) {
		o.memoryLimit = limit
	}
}

// WithHeapBacking keeps every arena in Go memory instead of anonymous
// mappings. Useful on platforms without mmap and in tests.
func WithHeapBacking() Option {
	return func(o *options) {
		o.heapBacking = true
	}
}

// WithMaxAtoms bounds the atom table.
func WithMaxAtoms(n int) Option {
	return func(o *options) {
		o.maxAtoms = n
	}
}

// WithLiteralWords sets the initial size of the literal area in words.
func WithLiteralWords(n int) Option {
	return func(o *options) {
		o.literalWords = n
	}
}

// WithTraceRecorder installs an allocation trace recorder on every heap.
//
// Example streaming zstd-compressed records to a file:
//
//	sink, _ := trace.NewStreamSink(f, func(o *trace.StreamSinkOptions) {
//	    o.Compression = trace.CompressionZstd
//	})
//	rt, _ := procheap.New(procheap.WithTraceRecorder(trace.NewSampler(sink, 1000, 100)))
func WithTraceRecorder(r trace.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithMetricsCollector configures a metrics collector shared by all heaps.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &procheap.BasicMetricsCollector{}
//	rt, _ := procheap.New(procheap.WithMetricsCollector(metrics))
//	// ... run processes ...
//	stats := metrics.GetStats()
//	fmt.Printf("Minor GCs: %d, avg pause: %dns\n", stats.MinorCollections, stats.MinorAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = &NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// OnExit sets the callback fired once per process when it leaves the
// runtime. reason is nil for Exit and the fatal heap error otherwise.
// The callback runs on the goroutine that drove the process, possibly in the
// middle of a failing allocation; it must not touch the exiting process.
func OnExit(fn func(pid uint64, reason error)) Option {
	return func(o *options) {
		o.onExit = fn
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: &NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
