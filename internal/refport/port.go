// Package refport is a reference CPU port (spec.md §6's port contract)
// for running PrettyOS on an ordinary Linux goroutine instead of real
// hardware. It backs cmd/prettyos-sim and the kernel package's own
// scenario tests; a real embedded build supplies its own port and never
// imports this package.
//
// Each task is backed by one goroutine, parked on its own channel
// whenever it is not the kernel's current task. ContextSwitch is always
// called from the outgoing task's own goroutine, so "park current" is
// simply "receive on the channel the caller is already running on" -
// the coroutine ping-pong this relies on only works because of that
// calling convention.
package refport

import (
	"math/bits"
	"sync"

	"github.com/yahiafarghaly/prettyos-go/internal/kernel"
)

type taskCtrl struct {
	run chan struct{}
}

// SimPort is a goroutine-backed kernel.Port. The zero value is not
// usable; construct with New.
type SimPort struct {
	mu      sync.Mutex
	cs      sync.Mutex // the kernel's critical section
	ctrls   []*taskCtrl
	byTop   map[uintptr]*taskCtrl
	nextTop uintptr
}

// New constructs an empty SimPort.
func New() *SimPort {
	return &SimPort{byTop: make(map[uintptr]*taskCtrl)}
}

func (p *SimPort) ctrlFor(t *kernel.TCB) *taskCtrl {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byTop[t.StackTop()]
}

// StackInit spawns the task's goroutine immediately, parked on its run
// channel until the kernel first schedules it. stack is unused - the
// simulated task runs on its own real goroutine stack - but is still
// required to be non-empty by the kernel's Create, matching a real
// port's contract of needing backing memory.
func (p *SimPort) StackInit(fn func(arg any), arg any, stack []byte, onReturn func()) uintptr {
	ctrl := &taskCtrl{run: make(chan struct{}, 1)}

	p.mu.Lock()
	p.nextTop++
	top := p.nextTop
	p.byTop[top] = ctrl
	p.mu.Unlock()

	go func() {
		<-ctrl.run
		fn(arg)
		onReturn()
	}()

	return top
}

// ContextSwitch wakes next and, unless next is the caller itself, parks
// the caller (current) on its own channel. The caller must be current's
// goroutine - true for every task-level call site in internal/kernel.
// The Idle task has no goroutine on this port, so a switch to Idle only
// parks the caller.
func (p *SimPort) ContextSwitch(current, next *kernel.TCB) {
	if nc := p.ctrlFor(next); nc != nil {
		nc.run <- struct{}{}
	}
	if current == next {
		return
	}
	cc := p.ctrlFor(current)
	<-cc.run
}

// InterruptContextSwitch wakes next but never parks the caller: an
// interrupt-level switch is driven from the tick source's own goroutine
// (see ticker_linux.go), not from current's goroutine, so there is no
// channel this port could safely block the caller on. This means the
// reference port only approximates preemption - an application task
// that never calls back into the kernel runs concurrently with the tick
// source until it does. Real hardware ports do not share this
// limitation; it is specific to simulating a single core with
// goroutines.
func (p *SimPort) InterruptContextSwitch(current, next *kernel.TCB) {
	if current == next {
		return
	}
	nc := p.ctrlFor(next)
	select {
	case nc.run <- struct{}{}:
	default:
	}
}

// FirstStart wakes next and returns immediately, handing control of the
// calling goroutine back to whatever drives the tick source - the
// goroutine equivalent of "enable interrupts and fall through to the
// idle loop" on a real port, except here the caller keeps running
// instead of becoming the idle task itself.
func (p *SimPort) FirstStart(next *kernel.TCB) {
	nc := p.ctrlFor(next)
	nc.run <- struct{}{}
}

func (p *SimPort) CriticalEnter() { p.cs.Lock() }
func (p *SimPort) CriticalLeave() { p.cs.Unlock() }

// CountLeadingZeros64 has no emulated-hardware intrinsic on this port;
// it falls back to math/bits, the same fallback bitmap.go documents for
// a port without a dedicated CLZ instruction.
func (p *SimPort) CountLeadingZeros64(word uint64) int {
	return bits.LeadingZeros64(word)
}

var _ kernel.Port = (*SimPort)(nil)
