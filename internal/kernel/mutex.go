package kernel

/*
Priority-ceiling mutex, grounded on pretty_mutex.c's OS_MutexCreate/
OS_MutexPend/OS_MutexPost. This is the priority-ceiling protocol, not
priority inheritance: a mutex is created with a fixed ceiling priority
that must dominate every task that will ever contend for it, and on
contention the current owner is raised to exactly that ceiling rather
than to the requester's priority.

The raise/restore dance only repositions the owner in the ready bitmap
and the prioTable indirection (tcb.go's homeSlot/priority split); if the
owner is itself blocked on a different event when raised, its entry in
that event's wait list is left at its original priority order, matching
the original source, which never walks a foreign wait list either. A
task that relies on cross-primitive inheritance needs a design that
doesn't nest blocking calls this way; PrettyOS never promised it.
*/

// Mutex is an opaque handle to a priority-ceiling mutex.
type Mutex struct{ e *ecb }

// MutexCreate allocates a mutex whose ceiling is ceilingPrio. ceilingPrio
// must be an application priority (>= LowestAppPriority) with no task
// ever created there and no other mutex already claiming it - the
// reserved landing slot for any owner this mutex raises.
func (k *Kernel) MutexCreate(ceilingPrio Priority) (Mutex, Code) {
	if !k.cfg.MutexEnabled {
		return Mutex{}, CodeParam
	}
	if ceilingPrio < LowestAppPriority || int(ceilingPrio) >= k.cfg.TaskCount {
		return Mutex{}, CodePrioInvalid
	}
	var out Mutex
	var code Code
	k.critical(func() {
		if k.ceilingReserved[ceilingPrio] || k.prioTable[ceilingPrio] != nil {
			code = CodePrioExist
			return
		}
		e, c := k.allocECB(ecbMutex)
		if c != CodeNone {
			code = c
			return
		}
		e.mutexCeiling = ceilingPrio
		e.mutexCeilingEnabled = true
		k.ceilingReserved[ceilingPrio] = true
		out = Mutex{e: e}
	})
	return out, code
}

// MutexPend acquires m, blocking if it is already held. timeout 0 waits
// forever.
func (k *Kernel) MutexPend(m Mutex, timeout Tick) (PendResult, Code) {
	if m.e == nil || m.e.typ != ecbMutex {
		return 0, CodeEventType
	}
	if k.inISR() {
		return 0, CodeEventPendISR
	}

	var blocked bool
	var code Code
	k.critical(func() {
		if k.lockNest != 0 {
			code = CodeEventPendLocked
			return
		}
		e := m.e
		if !e.mutexLocked {
			if k.current.priority > e.mutexCeiling {
				code = CodeMutexLowerPCP
				return
			}
			e.mutexLocked = true
			e.mutexOwner = k.current
			return
		}
		k.raiseOwnerToCeiling(e)
		k.blockCurrent(e, StatePendMutex, timeout)
		blocked = true
	})
	if code != CodeNone || !blocked {
		return PendOK, code
	}

	t := k.current
	k.schedule()

	k.mu.Lock()
	result := t.pendResult
	k.mu.Unlock()
	if result == PendTimeout {
		return result, CodeEventTimeout
	}
	if result == PendAbort {
		return result, CodeEventPendAbort
	}
	return result, CodeNone
}

// raiseOwnerToCeiling moves e's current owner to e's ceiling priority if
// it isn't already there. Held under the critical section.
func (k *Kernel) raiseOwnerToCeiling(e *ecb) {
	owner := e.mutexOwner
	if owner.priority == e.mutexCeiling {
		return
	}
	wasReady := owner.state == StateReady
	if wasReady {
		k.ready.clear(owner.priority)
	}
	owner.priority = e.mutexCeiling
	k.prioTable[e.mutexCeiling] = owner
	if wasReady {
		k.ready.set(e.mutexCeiling)
	}
}

// restoreOwnerHome reverses raiseOwnerToCeiling. Held under the critical
// section.
func (k *Kernel) restoreOwnerHome(owner *TCB) {
	if owner.priority == owner.homeSlot {
		return
	}
	wasReady := owner.state == StateReady
	if wasReady {
		k.ready.clear(owner.priority)
	}
	raisedSlot := owner.priority
	owner.priority = owner.homeSlot
	k.prioTable[owner.homeSlot] = owner
	k.prioTable[raisedSlot] = nil
	if wasReady {
		k.ready.set(owner.homeSlot)
	}
}

// MutexPost releases m. Only the current owner may call this.
func (k *Kernel) MutexPost(m Mutex) Code {
	if m.e == nil || m.e.typ != ecbMutex {
		return CodeEventType
	}
	var code Code
	var switched bool
	k.critical(func() {
		e := m.e
		if e.mutexOwner != k.current {
			code = CodeMutexNoOwner
			return
		}
		k.restoreOwnerHome(e.mutexOwner)
		if t := k.waitPopHighest(e); t != nil {
			e.mutexOwner = t
			e.mutexLocked = true
			k.makeReady(t, PendOK)
			switched = true
			return
		}
		e.mutexLocked = false
		e.mutexOwner = nil
	})
	if switched {
		k.schedule()
	}
	return code
}
