package kernel

/*
ecb (event control block) is the Go re-expression of the original
kernel's OS_EVENT union: one struct, a type tag, and every primitive's
payload fields side by side - spec.md §9 calls this out explicitly as a
"tagged variant" rather than a real union, with the tag as the sole
source of truth for which payload fields are live. Semaphore, mutex and
mailbox all share this type and its intrusive wait list; event flag
groups use the separate flagGroup/flagWaitNode pair in flag.go because
their wake discipline (any task whose wait condition the new flag value
satisfies, not just the head) doesn't fit a single ordered list.

The wait list is priority-sorted, head-is-most-urgent, matching
OS_Event_TaskInsert/OS_Event_TaskRemove in the original source: ties are
broken FIFO by inserting a task after every existing waiter of equal or
higher priority.
*/

type ecbType uint8

const (
	ecbFree ecbType = iota
	ecbSem
	ecbMutex
	ecbMailbox
)

type ecb struct {
	typ  ecbType
	next *ecb // free-list link when typ == ecbFree

	waitHead *TCB

	// semaphore payload
	semCount    uint16
	semCountMax uint16

	// mutex payload
	mutexOwner          *TCB
	mutexLocked         bool
	mutexCeiling        Priority
	mutexCeilingEnabled bool

	// mailbox payload
	mbMsg  any
	mbFull bool
}

func (k *Kernel) initEventPool() {
	for i := range k.ecbs {
		k.ecbs[i].typ = ecbFree
		k.ecbs[i].next = k.ecbFree
		k.ecbFree = &k.ecbs[i]
	}
}

// allocECB removes one block from the free list. Must be called with the
// critical section held.
func (k *Kernel) allocECB(typ ecbType) (*ecb, Code) {
	if k.ecbFree == nil {
		return nil, CodeEventPoolEmpty
	}
	e := k.ecbFree
	k.ecbFree = e.next
	*e = ecb{typ: typ}
	return e, CodeNone
}

// freeECB returns a block to the pool. Callers must first guarantee the
// wait list is empty. No kernel service calls it: there is no event
// delete operation, so an allocated block is never returned to the pool.
func (k *Kernel) freeECB(e *ecb) {
	*e = ecb{typ: ecbFree, next: k.ecbFree}
	k.ecbFree = e
}

// waitInsert adds t to e's priority-sorted wait list. Held under the
// critical section.
func (k *Kernel) waitInsert(e *ecb, t *TCB) {
	t.event = e
	t.nextInWait = nil
	if e.waitHead == nil || t.priority > e.waitHead.priority {
		t.nextInWait = e.waitHead
		e.waitHead = t
		return
	}
	prev := e.waitHead
	for prev.nextInWait != nil && prev.nextInWait.priority >= t.priority {
		prev = prev.nextInWait
	}
	t.nextInWait = prev.nextInWait
	prev.nextInWait = t
}

// waitRemove unlinks t from e's wait list without waking it (used by
// Delete, ChangePriority and the tick engine's timeout path). Returns false if
// t was not found on the list.
func (k *Kernel) waitRemove(e *ecb, t *TCB) bool {
	if e.waitHead == t {
		e.waitHead = t.nextInWait
		t.nextInWait = nil
		return true
	}
	prev := e.waitHead
	for prev != nil && prev.nextInWait != t {
		prev = prev.nextInWait
	}
	if prev == nil {
		return false
	}
	prev.nextInWait = t.nextInWait
	t.nextInWait = nil
	return true
}

// waitPopHighest removes and returns the most urgent waiter, or nil.
func (k *Kernel) waitPopHighest(e *ecb) *TCB {
	t := e.waitHead
	if t == nil {
		return nil
	}
	e.waitHead = t.nextInWait
	t.nextInWait = nil
	return t
}

// makeReady clears a task's pend/delay state and admits it back onto the
// ready bitmap with the given outcome - the Go equivalent of
// OS_Event_TaskMakeReady. Held under the critical section; does not by
// itself invoke the scheduler, so callers batch several wakeups (e.g.
// OS_FLAG_WAIT_SET_ALL across many waiters) before calling schedule once.
func (k *Kernel) makeReady(t *TCB, result PendResult) {
	t.state &^= statePendAny | StateDelay
	t.event = nil
	t.pendResult = result
	t.ticksRemaining = 0
	k.blocked.clear(t.priority)
	if !t.state.has(StateSuspended) {
		t.state = StateReady
		k.ready.set(t.priority)
		// In EDF mode scheduleHighest() ignores the ready bitmap entirely
		// and picks from k.edf instead (edf.go), so a woken EDF task must
		// be pushed back onto the heap here or it would sit ready forever
		// without ever being scheduled. edfPush is a no-op for a
		// priority-mode TCB (t.edf == nil).
		if k.cfg.EDFEnabled {
			k.edfPush(t)
		}
	}
}

// blockCurrent parks the running task on e under stateBit, arming a
// timeout if timeout != 0. Held under the critical section. The caller
// must invoke k.schedule() immediately after the enclosing critical()
// call returns; schedule() performs the actual switch away and does not
// return to the blocked task's Pend call until it is made ready again.
func (k *Kernel) blockCurrent(e *ecb, stateBit TaskState, timeout Tick) *TCB {
	t := k.current
	t.state |= stateBit
	k.ready.clear(t.priority)
	// Mirror makeReady's heap bookkeeping: a blocked EDF task must leave
	// k.edf too, or scheduleHighest's peekEarliest would keep handing the
	// CPU to a task that is actually parked on a wait list.
	if k.cfg.EDFEnabled {
		k.edfRemove(t)
	}
	if e != nil {
		k.waitInsert(e, t)
	}
	if timeout != 0 {
		t.state |= StateDelay
		t.ticksRemaining = timeout
		k.blocked.set(t.priority)
	}
	return t
}
