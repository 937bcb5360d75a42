package kernel

/*
Kernel is the single encapsulated instance of every piece of mutable
kernel state: the TCB table, the ready/time-blocked bitmaps, the event
and flag-group pools, the memory partitions, and the scheduler's
current/next pointers. Everything here is accessed with k.mu held,
mostly through critical(), the scoped critical-section guard - the Go analogue
of the port's CriticalEnter/CriticalLeave pair, grounded on the teacher's
own mutex-guarded shared queues (dlq.go's dlq_mutex, tq.go's tq_mutex).

There is deliberately only one lock in this implementation: spec.md's
open question about mutex-raise ordering ("the interaction with a third
task posting that event during the raise is subtle") is resolved by
construction, because the raise-and-requeue sequence in mutex.go and any
concurrent post both run inside the same critical() region - see
DESIGN.md's Open Question decisions.
*/

import "sync"

// Kernel is the RTOS singleton: Init builds one, Run starts it, and
// every exported method thereafter is a kernel service call.
type Kernel struct {
	cfg   Config
	port  Port
	log   Logger
	hooks Hooks

	mu sync.Mutex

	idle            *TCB
	prioTable       []*TCB // current priority -> owning TCB; nil means the slot is empty
	ceilingReserved []bool // slot reserved as some mutex's PCP landing priority

	ready   bitmap
	blocked bitmap

	current *TCB
	next    *TCB

	intNest  int
	lockNest int

	ecbs     []ecb
	ecbFree  *ecb
	flags    []flagGroup
	flagFree *flagGroup

	partitions []Partition

	tick Tick

	edf edfHeap

	running bool
}

// Init allocates every statically-sized structure the configuration
// calls for and registers the Idle task at priority 0. It must be called
// exactly once, before Run.
func Init(cfg Config, port Port, log Logger, hooks Hooks) (*Kernel, Code) {
	if code := cfg.validate(); !code.OK() {
		return nil, code
	}
	if port == nil {
		return nil, CodeParam
	}

	k := &Kernel{
		cfg:             cfg,
		port:            port,
		log:             log,
		hooks:           hooks,
		prioTable:       make([]*TCB, cfg.TaskCount),
		ceilingReserved: make([]bool, cfg.TaskCount),
		ready:           newBitmap(cfg.TaskCount),
		blocked:         newBitmap(cfg.TaskCount),
		ecbs:            make([]ecb, cfg.MaxECBs),
		flags:           make([]flagGroup, cfg.MaxFlagGroups),
		partitions:      make([]Partition, cfg.MaxPartitions),
	}
	k.initEventPool()
	k.initFlagPool()
	if cfg.EDFEnabled {
		k.edf = newEDFHeap()
	}

	idle := &TCB{priority: IdlePriority, homeSlot: IdlePriority, state: StateReady}
	idle.entryFn = func(any) { k.idleLoop() }
	k.idle = idle
	k.prioTable[IdlePriority] = idle
	k.ready.set(IdlePriority)
	k.ceilingReserved[MutexReservedPriority] = true // never creatable or usable as a ceiling

	k.current = idle
	k.next = idle
	return k, CodeNone
}

func (k *Kernel) idleLoop() {
	for {
		if k.hooks.OnIdle != nil {
			k.critical(k.hooks.OnIdle)
		}
	}
}

// Run hands control to the port to launch the first task. It does not
// return on a real port; the goroutine-backed reference port
// (internal/refport) returns as soon as it has woken the first task.
func (k *Kernel) Run() {
	k.mu.Lock()
	k.running = true
	k.scheduleHighest()
	next := k.next
	k.current = next
	k.mu.Unlock()

	k.port.FirstStart(next)
}

// critical runs fn with the kernel's single critical section held. The
// scheduler entry points (schedule, IntEnter/IntExit, SchedLock/
// SchedUnlock) take the same section directly rather than through this
// helper. No service holds the section across one of its own suspension
// points (spec.md §5) - every pend-family operation here releases it (by
// returning from critical) strictly before invoking the scheduler.
func (k *Kernel) critical(fn func()) {
	k.port.CriticalEnter()
	k.mu.Lock()
	fn()
	k.mu.Unlock()
	k.port.CriticalLeave()
}

// scheduleHighest recomputes k.next from the ready bitmap (priority mode)
// or the EDF heap (EDF mode). Must be called with the critical section
// held.
func (k *Kernel) scheduleHighest() {
	if k.cfg.EDFEnabled {
		if t := k.edf.peekEarliest(); t != nil {
			k.next = t
			return
		}
		k.next = k.idle
		return
	}
	if p, ok := k.ready.highest(); ok {
		k.next = k.prioTable[p]
		return
	}
	k.next = k.idle
}

// schedule is spec.md §4.2's task-level preemption point: called at the
// tail of any service that may have made a higher-priority task ready.
// While locked or ISR-nested it only updates k.next; the deferred switch
// happens when lockNest/intNest reach zero (see SchedUnlock/IntExit).
func (k *Kernel) schedule() {
	k.port.CriticalEnter()
	k.mu.Lock()
	if k.intNest != 0 || k.lockNest != 0 {
		k.scheduleHighest()
		k.mu.Unlock()
		k.port.CriticalLeave()
		return
	}
	k.scheduleHighest()
	cur, nxt := k.current, k.next
	switched := nxt != cur
	if switched {
		k.current = nxt
		k.callTaskSwitch(cur, nxt)
		k.checkStackGuard(cur)
	}
	k.mu.Unlock()
	k.port.CriticalLeave()
	if switched {
		k.port.ContextSwitch(cur, nxt)
	}
}

// IntEnter brackets an ISR. Nesting is tracked up to 255 levels as
// spec.md §5 describes; the kernel does not itself enforce the ceiling
// beyond the counter's natural int range.
func (k *Kernel) IntEnter() {
	k.port.CriticalEnter()
	k.mu.Lock()
	k.intNest++
	k.mu.Unlock()
	k.port.CriticalLeave()
}

// IntExit closes an IntEnter. At nesting level zero it performs the
// interrupt-level reschedule check.
func (k *Kernel) IntExit() {
	k.port.CriticalEnter()
	k.mu.Lock()
	k.intNest--
	if k.intNest < 0 {
		k.intNest = 0
	}
	if k.intNest != 0 {
		k.mu.Unlock()
		k.port.CriticalLeave()
		return
	}
	if k.lockNest != 0 {
		k.scheduleHighest()
		k.mu.Unlock()
		k.port.CriticalLeave()
		return
	}
	k.scheduleHighest()
	cur, nxt := k.current, k.next
	switched := nxt != cur
	if switched {
		k.current = nxt
		k.callTaskSwitch(cur, nxt)
		k.checkStackGuard(cur)
	}
	k.mu.Unlock()
	k.port.CriticalLeave()
	if switched {
		k.port.InterruptContextSwitch(cur, nxt)
	}
}

// SchedLock prevents task-level preemption; ISRs still run. Up to 255
// nested locks are supported (spec.md §5).
func (k *Kernel) SchedLock() {
	k.port.CriticalEnter()
	k.mu.Lock()
	k.lockNest++
	k.mu.Unlock()
	k.port.CriticalLeave()
}

// SchedUnlock releases one nesting level; at zero it performs the
// deferred reschedule if scheduleHighest picked a different task while
// locked.
func (k *Kernel) SchedUnlock() {
	k.port.CriticalEnter()
	k.mu.Lock()
	if k.lockNest > 0 {
		k.lockNest--
	}
	if k.lockNest != 0 {
		k.mu.Unlock()
		k.port.CriticalLeave()
		return
	}
	k.scheduleHighest()
	cur, nxt := k.current, k.next
	switched := nxt != cur
	if switched {
		k.current = nxt
		k.callTaskSwitch(cur, nxt)
		k.checkStackGuard(cur)
	}
	k.mu.Unlock()
	k.port.CriticalLeave()
	if switched {
		k.port.ContextSwitch(cur, nxt)
	}
}

// Current returns the task the kernel believes is presently executing.
func (k *Kernel) Current() *TCB {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current
}

// TickCount returns the wall-clock tick counter.
func (k *Kernel) TickCount() Tick {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tick
}

func (k *Kernel) inISR() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.intNest > 0
}
