package kernel

/*
Earliest-deadline-first scheduling, an opt-in alternative to the fixed
priority bitmap (spec.md §3's EDF-mode addition). This is grounded on
the timer min-heap in other_examples' gaio/watcher.go, which keeps
pending timeout callbacks ordered by absolute fire time in a
container/heap and re-peeks the earliest after every mutation - the same
shape as picking the earliest absolute deadline here. Each TCB's heap
position is cached in edfParams.heapIndex so a woken or completing task
can be removed in O(log n) instead of scanned for.

A task's `priority` field is still its identity/indexing slot in
prioTable even in EDF mode; it no longer drives scheduling order, only
deadlines do.
*/

import "container/heap"

type edfHeap struct {
	items []*TCB
	dirty bool
}

func newEDFHeap() edfHeap { return edfHeap{} }

func (h *edfHeap) Len() int { return len(h.items) }

func (h *edfHeap) Less(i, j int) bool {
	return h.items[i].edf.absoluteDeadline < h.items[j].edf.absoluteDeadline
}

func (h *edfHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].edf.heapIndex = i
	h.items[j].edf.heapIndex = j
}

func (h *edfHeap) Push(x any) {
	t := x.(*TCB)
	t.edf.heapIndex = len(h.items)
	h.items = append(h.items, t)
}

func (h *edfHeap) Pop() any {
	old := h.items
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	t.edf.heapIndex = -1
	return t
}

func (h *edfHeap) peekEarliest() *TCB {
	if len(h.items) == 0 {
		return nil
	}
	return h.items[0]
}

func (k *Kernel) edfPush(t *TCB) {
	if t.edf == nil || t.edf.heapIndex >= 0 {
		return
	}
	heap.Push(&k.edf, t)
	k.edf.dirty = true
}

func (k *Kernel) edfRemove(t *TCB) {
	if t.edf == nil || t.edf.heapIndex < 0 {
		return
	}
	heap.Remove(&k.edf, t.edf.heapIndex)
	k.edf.dirty = true
}

// edfTick runs once per tick, under the critical section, and only logs
// a miss - it never forcibly preempts or kills the offending task, since
// spec.md's error philosophy is report-don't-panic throughout.
func (k *Kernel) edfTick(tick Tick) {
	if earliest := k.edf.peekEarliest(); earliest != nil && earliest.edf.absoluteDeadline < tick {
		k.logErrorf("edf: deadline missed for task at priority %d (deadline=%d now=%d)", earliest.priority, earliest.edf.absoluteDeadline, tick)
	}
}

// CreateEDF installs an EDF-scheduled task. arrival is the tick offset
// (from now) of the task's first release; relativeDeadline is added to
// the absolute arrival tick to produce its deadline; period is only
// meaningful for TaskPeriodic and is used by EDFWaitNextPeriod.
func (k *Kernel) CreateEDF(priority Priority, fn func(arg any), arg any, stack []byte, taskType TaskType, arrival, relativeDeadline, period Tick) Code {
	if !k.cfg.EDFEnabled {
		return CodeParam
	}
	if fn == nil || len(stack) == 0 {
		return CodeParam
	}
	if priority <= MutexReservedPriority || int(priority) >= k.cfg.TaskCount {
		return CodePrioInvalid
	}
	if k.inISR() {
		return CodeTaskCreateISR
	}

	var code Code
	k.critical(func() {
		if k.ceilingReserved[priority] || k.prioTable[priority] != nil {
			code = CodeTaskCreateExist
			return
		}
		if k.cfg.StackOverflowDetection {
			paintStackGuard(stack)
		}
		t := &TCB{
			priority: priority,
			homeSlot: priority,
			state:    StateReady,
			entryFn:  fn,
			entryArg: arg,
			stack:    stack,
			edf: &edfParams{
				arrival:          k.tick + arrival,
				relativeDeadline: relativeDeadline,
				absoluteDeadline: k.tick + arrival + relativeDeadline,
				taskType:         taskType,
				period:           period,
				heapIndex:        -1,
			},
		}
		onReturn := func() { k.taskReturned(t) }
		t.stackTop = k.port.StackInit(fn, arg, stack, onReturn)
		k.prioTable[priority] = t
		if arrival == 0 {
			k.edfPush(t)
		} else {
			t.state = 0
			k.blockCurrentTask(t, arrival)
		}
		k.callTaskCreated(t)
	})
	if code != CodeNone {
		return code
	}
	if k.running {
		k.schedule()
	}
	return CodeNone
}

// blockCurrentTask is blockCurrent generalized to an arbitrary TCB
// (needed because CreateEDF arms a future task's first arrival, not the
// caller's own block).
func (k *Kernel) blockCurrentTask(t *TCB, timeout Tick) {
	t.state |= StateDelay
	t.ticksRemaining = timeout
	k.blocked.set(t.priority)
}

// EDFWaitNextPeriod ends the calling periodic task's current job and
// blocks it until its next period's arrival tick, rearming its absolute
// deadline. Non-periodic tasks are a no-op.
func (k *Kernel) EDFWaitNextPeriod() Code {
	if !k.cfg.EDFEnabled {
		return CodeParam
	}
	if k.inISR() {
		return CodeEventPendISR
	}
	var wait bool
	k.critical(func() {
		t := k.current
		if t.edf == nil || t.edf.taskType != TaskPeriodic {
			return
		}
		k.edfRemove(t)
		t.edf.arrival += t.edf.period
		t.edf.absoluteDeadline = t.edf.arrival + t.edf.relativeDeadline
		delay := int64(t.edf.arrival) - int64(k.tick)
		if delay <= 0 {
			delay = 1
		}
		k.blockCurrent(nil, 0, Tick(delay))
		wait = true
	})
	if wait {
		k.schedule()
	}
	return CodeNone
}
