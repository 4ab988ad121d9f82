package procheap

import (
	"iter"
	"sync/atomic"

	"github.com/hupe1980/procheap/heap"
	"github.com/hupe1980/procheap/term"
)

// Process is a lightweight process: a private heap, a stack of root slots and
// a mailbox. Everything reachable from the stack and the mailbox survives
// collections.
type Process struct {
	pid     uint64
	rt      *Runtime
	heap    *heap.Heap
	stack   *heap.RootStack
	mailbox mailbox
	exited  atomic.Bool
}

// PID returns the process id.
func (p *Process) PID() uint64 { return p.pid }

// Heap returns the process heap.
func (p *Process) Heap() *heap.Heap { return p.heap }

// Roots returns the process stack. Terms held outside the stack or the
// mailbox are not roots and may be invalidated by any allocation.
func (p *Process) Roots() *heap.RootStack { return p.stack }

// Alive reports whether the process has not exited.
func (p *Process) Alive() bool { return !p.exited.Load() }

// Err returns the reason the heap stopped working, or nil.
func (p *Process) Err() error { return p.heap.Err() }

// Send copies msg into the mailbox of to.
func (p *Process) Send(to *Process, msg term.Term) error {
	return p.rt.Send(p, to, msg)
}

// Receive removes the oldest message from the mailbox.
func (p *Process) Receive() (term.Term, bool) {
	return p.mailbox.pop()
}

// Pending returns the number of queued messages.
func (p *Process) Pending() int {
	return p.mailbox.len()
}

// mailbox is a FIFO of messages living in the owner's heap.
type mailbox struct {
	msgs []term.Term
	head int
}

func (m *mailbox) push(t term.Term) {
	m.msgs = append(m.msgs, t)
}

func (m *mailbox) pop() (term.Term, bool) {
	if m.head == len(m.msgs) {
		return term.None, false
	}
	t := m.msgs[m.head]
	m.msgs[m.head] = term.None
	m.head++
	if m.head == len(m.msgs) {
		m.msgs = m.msgs[:0]
		m.head = 0
	}
	return t, true
}

func (m *mailbox) len() int {
	return len(m.msgs) - m.head
}

// Roots implements heap.RootSet.
func (m *mailbox) Roots() iter.Seq[*term.Term] {
	return func(yield func(*term.Term) bool) {
		for i := m.head; i < len(m.msgs); i++ {
			if !yield(&m.msgs[i]) {
				return
			}
		}
	}
}
