package procheap

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/procheap/heap"
	"github.com/hupe1980/procheap/internal/resource"
	"github.com/hupe1980/procheap/literal"
	"github.com/hupe1980/procheap/offheap"
	"github.com/hupe1980/procheap/term"
)

// Runtime owns the state shared by process heaps: the off-heap binary
// registry, the literal area, the atom table and the memory budget. It
// spawns processes and copies messages between them.
//
// Spawn, Exit, Close and the accessors are safe for concurrent use. A
// Process and its heap belong to one goroutine at a time; Send touches two
// heaps and must not run while either process is running.
type Runtime struct {
	opts     options
	registry *offheap.Registry
	literals *literal.Area
	atoms    *literal.AtomTable
	budget   *resource.Controller

	mu     sync.Mutex
	procs  map[uint64]*Process
	dead   map[*Process]struct{}
	closed bool
}

// New creates a runtime.
func New(optFns ...Option) (*Runtime, error) {
	o := applyOptions(optFns)
	if err := o.heapConfig.Validate(); err != nil {
		return nil, err
	}
	area, err := literal.NewArea(o.literalWords)
	if err != nil {
		return nil, fmt.Errorf("procheap: literal area: %w", err)
	}
	return &Runtime{
		opts:     o,
		registry: offheap.NewRegistry(),
		literals: area,
		atoms:    literal.NewAtomTable(o.maxAtoms),
		budget:   resource.NewController(resource.Config{MemoryLimitBytes: o.memoryLimit}),
		procs:    make(map[uint64]*Process),
		dead:     make(map[*Process]struct{}),
	}, nil
}

// Registry returns the off-heap binary registry shared by all heaps.
func (r *Runtime) Registry() *offheap.Registry { return r.registry }

// Literals returns the literal area.
func (r *Runtime) Literals() *literal.Area { return r.literals }

// Atom returns the atom named name.
func (r *Runtime) Atom(name string) (term.Term, error) {
	return r.atoms.Intern(name)
}

// AtomName returns the name of atom a.
func (r *Runtime) AtomName(a term.Term) (string, bool) {
	return r.atoms.Name(a)
}

// MemoryUsage returns the arena bytes currently charged by all heaps.
func (r *Runtime) MemoryUsage() int64 { return r.budget.MemoryUsage() }

// MemoryPeak returns the highest MemoryUsage observed.
func (r *Runtime) MemoryPeak() int64 { return r.budget.MemoryPeak() }

// Processes returns the number of live processes.
func (r *Runtime) Processes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}

// Process returns the live process pid.
func (r *Runtime) Process(pid uint64) (*Process, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.procs[pid]
	return p, ok
}

// Literal builds a term on a scratch heap and interns it into the literal
// area. build must keep the terms it still needs on roots while it
// allocates. Literal fails with ErrSealed once a process has been spawned.
func (r *Runtime) Literal(build func(h *heap.Heap, roots *heap.RootStack) (term.Term, error)) (term.Term, error) {
	if r.literals.Sealed() {
		return term.None, ErrSealed
	}
	roots := &heap.RootStack{}
	h, err := heap.New(0, r.opts.heapConfig, append(r.heapOptions(), heap.WithRootSet(roots))...)
	if err != nil {
		return term.None, err
	}
	defer h.Close()

	t, err := build(h, roots)
	if err != nil {
		return term.None, err
	}
	return r.literals.Intern(h, t)
}

// Spawn creates process pid with a fresh heap. heapOpts are applied after
// the runtime's own heap options; the root set and the termination handler
// always belong to the runtime. The first spawn seals the literal area.
func (r *Runtime) Spawn(pid uint64, heapOpts ...heap.Option) (*Process, error) {
	p, err := r.spawn(pid, heapOpts)
	r.opts.metricsCollector.RecordSpawn(err)
	young := 0
	if p != nil {
		young = p.heap.Config().InitialYoungWords
	}
	r.opts.logger.LogSpawn(context.Background(), pid, young, err)
	return p, err
}

func (r *Runtime) spawn(pid uint64, heapOpts []heap.Option) (*Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRuntimeClosed
	}
	if _, ok := r.procs[pid]; ok {
		return nil, fmt.Errorf("%w: pid %d", ErrProcessExists, pid)
	}
	r.literals.Seal()

	p := &Process{pid: pid, rt: r, stack: &heap.RootStack{}}
	opts := append(r.heapOptions(), heapOpts...)
	opts = append(opts,
		heap.WithRootSet(heap.MultiRoots{p.stack, &p.mailbox}),
		heap.WithTerminationHandler(func(_ uint64, reason error) {
			r.terminated(p, reason)
		}),
	)
	h, err := heap.New(pid, r.opts.heapConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("procheap: spawn pid %d: %w", pid, err)
	}
	p.heap = h
	r.procs[pid] = p
	return p, nil
}

func (r *Runtime) heapOptions() []heap.Option {
	opts := []heap.Option{
		heap.WithRegistry(r.registry),
		heap.WithLiterals(r.literals),
		heap.WithMemoryAcquirer(r.budget),
		heap.WithLogger(r.opts.logger.Logger),
		heap.WithMetricsObserver(r.opts.metricsCollector),
	}
	if r.opts.recorder != nil {
		opts = append(opts, heap.WithRecorder(r.opts.recorder))
	}
	if r.opts.heapBacking {
		opts = append(opts, heap.WithHeapBacking())
	}
	return opts
}

// terminated runs when the heap of p dies. The process leaves the runtime
// at once; its heap is freed by Exit or Close.
func (r *Runtime) terminated(p *Process, reason error) {
	r.mu.Lock()
	if r.procs[p.pid] == p {
		delete(r.procs, p.pid)
		r.dead[p] = struct{}{}
	}
	r.mu.Unlock()
	r.exited(p, reason)
}

// exited reports the exit of p once.
func (r *Runtime) exited(p *Process, reason error) {
	if !p.exited.CompareAndSwap(false, true) {
		return
	}
	ctx := context.Background()
	var ex *heap.AllocationExhaustedError
	if errors.As(reason, &ex) {
		r.opts.logger.LogExhausted(ctx, p.pid, ex.Requested, ex.Footprint)
	}
	r.opts.logger.LogExit(ctx, p.pid, reason)
	r.opts.metricsCollector.RecordExit(reason)
	if r.opts.onExit != nil {
		r.opts.onExit(p.pid, reason)
	}
}

// Exit ends p normally and frees its heap in one step. Exiting a process
// whose heap already died frees the heap without reporting a second exit.
// Exit is idempotent.
func (r *Runtime) Exit(p *Process) error {
	if p.rt != r {
		return ErrForeignProcess
	}

	r.mu.Lock()
	owned := false
	if r.procs[p.pid] == p {
		delete(r.procs, p.pid)
		owned = true
	}
	if _, ok := r.dead[p]; ok {
		delete(r.dead, p)
		owned = true
	}
	r.mu.Unlock()
	if !owned {
		return nil
	}

	err := p.heap.Close()
	r.exited(p, nil)
	return err
}

// Send copies msg from the heap of from into the mailbox of to. The copy
// shares nothing with from except literals and off-heap binaries.
//
// If the copy exhausts the heap of to, to exits with ErrAllocationExhausted
// and Send returns that error; from is never affected.
func (r *Runtime) Send(from, to *Process, msg term.Term) error {
	if from.rt != r || to.rt != r {
		return ErrForeignProcess
	}

	start := time.Now()
	before := to.heap.Stats().WordsAllocated
	out, err := from.heap.CopyTo(to.heap, msg)
	if err == nil {
		to.mailbox.push(out)
	} else {
		err = fmt.Errorf("procheap: send %d -> %d: %w", from.pid, to.pid, err)
	}
	words := int(to.heap.Stats().WordsAllocated - before)
	r.opts.metricsCollector.RecordSend(words, time.Since(start), err)
	return err
}

// Close exits every process, frees the literal area and closes the
// registry. It reports ErrLiveBinaries if off-heap binaries were leaked
// outside any heap.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	procs := make([]*Process, 0, len(r.procs)+len(r.dead))
	for _, p := range r.procs {
		procs = append(procs, p)
	}
	for p := range r.dead {
		procs = append(procs, p)
	}
	clear(r.procs)
	clear(r.dead)
	r.mu.Unlock()

	slices.SortFunc(procs, func(a, b *Process) int {
		switch {
		case a.pid < b.pid:
			return -1
		case a.pid > b.pid:
			return 1
		}
		return 0
	})

	var errs []error
	for _, p := range procs {
		errs = append(errs, p.heap.Close())
		r.exited(p, nil)
	}
	r.literals.Close()
	errs = append(errs, r.registry.Close())
	return errors.Join(errs...)
}
