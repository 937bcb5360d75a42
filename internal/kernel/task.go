package kernel

/*
Task lifecycle API, grounded on pretty_task.c's OS_TaskCreate/
OS_TaskDelete/OS_TaskChangePriority/OS_TaskSuspend/OS_TaskResume. Every
operation here addresses a task by its *current* priority (prioTable's
index), exactly like the original indexes by OS_tblTCBPrio. The
stable/home-versus-current split (tcb.go's homeSlot vs priority) exists
only for the priority-ceiling protocol's temporary raise; ChangePriority
is a permanent move and updates homeSlot along with priority, so a task
that later acquires a mutex restores to its new home, not its original
birth priority.
*/

// Create installs a new task at priority. The stack slice is handed to
// the port for StackInit; ownership passes to the kernel. Creating at an
// already-occupied, reserved, Idle, or mutex-marker priority fails.
func (k *Kernel) Create(priority Priority, fn func(arg any), arg any, stack []byte) Code {
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
		if k.ceilingReserved[priority] {
			code = CodePrioExist
			return
		}
		if k.prioTable[priority] != nil {
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
		}
		onReturn := func() { k.taskReturned(t) }
		t.stackTop = k.port.StackInit(fn, arg, stack, onReturn)
		k.prioTable[priority] = t
		k.ready.set(priority)
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

func (k *Kernel) taskReturned(t *TCB) {
	k.critical(func() { k.callTaskReturned(t) })
	k.Delete(t.priority)
}

// Delete removes the task at priority, unlinking it from any wait list
// or time-blocked state it was in. It may delete the calling task.
// Deleting Idle is never allowed.
func (k *Kernel) Delete(priority Priority) Code {
	if k.inISR() {
		return CodeTaskDeleteISR
	}
	if priority == IdlePriority {
		return CodeTaskDeleteIdle
	}
	if int(priority) >= k.cfg.TaskCount {
		return CodePrioInvalid
	}

	var code Code
	k.critical(func() {
		t := k.prioTable[priority]
		if t == nil || t.state == StateDeleted {
			code = CodeTaskNotExist
			return
		}
		k.ready.clear(priority)
		if t.event != nil {
			k.waitRemove(t.event, t)
		}
		if t.flagNode != nil {
			k.removeFlagWaiter(t)
		}
		if t.state.has(StateDelay) {
			k.blocked.clear(priority)
		}
		t.ticksRemaining = 0
		t.pendResult = PendOK
		t.state = StateDeleted
		t.event = nil
		k.prioTable[priority] = nil
		k.callTaskDeleted(t)
	})
	if code != CodeNone {
		return code
	}
	if k.running {
		k.schedule()
	}
	return CodeNone
}

// removeFlagWaiter unlinks t from whichever flag group's wait list its
// flagNode belongs to. There is no back-pointer from node to group, so
// this walks every live group - acceptable since MaxFlagGroups is small
// and this path only runs on Delete/abort.
func (k *Kernel) removeFlagWaiter(t *TCB) {
	node := t.flagNode
	for i := range k.flags {
		g := &k.flags[i]
		var prev *flagWaitNode
		cur := g.waitHead
		for cur != nil {
			if cur == node {
				if prev == nil {
					g.waitHead = cur.next
				} else {
					prev.next = cur.next
				}
				t.flagNode = nil
				return
			}
			prev = cur
			cur = cur.next
		}
	}
}

// Suspend puts the task at priority into the suspended state, on top of
// whatever other state it was already in. It may suspend the caller.
func (k *Kernel) Suspend(priority Priority) Code {
	if priority == IdlePriority {
		return CodeTaskSuspendIdle
	}
	if int(priority) >= k.cfg.TaskCount {
		return CodePrioInvalid
	}

	var code Code
	var self bool
	k.critical(func() {
		t := k.prioTable[priority]
		if t == nil || t.state == StateDeleted {
			code = CodeTaskSuspendPrio
			return
		}
		if t.state.has(StateSuspended) {
			code = CodeTaskSuspended
			return
		}
		self = t == k.current
		t.state |= StateSuspended
		k.ready.clear(priority)
		if k.cfg.EDFEnabled {
			k.edfRemove(t)
		}
	})
	if code != CodeNone {
		return code
	}
	if self {
		k.schedule()
	}
	return CodeNone
}

// Resume clears the suspended bit on the task at priority, admitting it
// back onto the ready bitmap if nothing else is holding it back (no
// pend, no delay). Resuming the caller or Idle is rejected.
func (k *Kernel) Resume(priority Priority) Code {
	if priority == IdlePriority {
		return CodePrioInvalid
	}
	if int(priority) >= k.cfg.TaskCount {
		return CodePrioInvalid
	}

	var code Code
	var switched bool
	k.critical(func() {
		if k.current != nil && k.current.priority == priority {
			code = CodeTaskResumePrio
			return
		}
		t := k.prioTable[priority]
		if t == nil || t.state == StateDeleted {
			code = CodeTaskResumePrio
			return
		}
		if !t.state.has(StateSuspended) {
			return
		}
		t.state &^= StateSuspended
		if !t.state.has(statePendAny) && t.ticksRemaining == 0 {
			t.state = StateReady
			k.ready.set(priority)
			if k.cfg.EDFEnabled {
				k.edfPush(t)
			}
			switched = true
		}
	})
	if code != CodeNone {
		return code
	}
	if switched && k.running {
		k.schedule()
	}
	return CodeNone
}

// ChangePriority permanently moves the task at oldPrio to newPrio,
// relocating its ready/blocked/wait-list membership as needed. Both
// priorities must be ordinary (not Idle, not a ceiling-reserved slot),
// and newPrio must currently be free.
func (k *Kernel) ChangePriority(oldPrio, newPrio Priority) Code {
	if oldPrio == newPrio {
		return CodePrioExist
	}
	if oldPrio <= MutexReservedPriority || newPrio <= MutexReservedPriority {
		return CodePrioExist
	}
	if int(oldPrio) >= k.cfg.TaskCount || int(newPrio) >= k.cfg.TaskCount {
		return CodePrioInvalid
	}

	var code Code
	k.critical(func() {
		if k.ceilingReserved[newPrio] {
			code = CodePrioExist
			return
		}
		t := k.prioTable[oldPrio]
		if t == nil || t.state == StateDeleted {
			code = CodeTaskNotExist
			return
		}
		if k.prioTable[newPrio] != nil {
			code = CodeTaskCreateExist
			return
		}

		if t.state == StateReady {
			k.ready.clear(oldPrio)
			k.ready.set(newPrio)
		} else if t.state.has(StateDelay) {
			k.blocked.clear(oldPrio)
			k.blocked.set(newPrio)
		}
		if t.event != nil {
			k.waitRemove(t.event, t)
			t.priority = newPrio
			k.waitInsert(t.event, t)
		}

		t.priority = newPrio
		t.homeSlot = newPrio
		k.prioTable[oldPrio] = nil
		k.prioTable[newPrio] = t
	})
	if code != CodeNone {
		return code
	}
	if k.running {
		k.schedule()
	}
	return CodeNone
}

// Status reports the current lifecycle state of the task at priority.
func (k *Kernel) Status(priority Priority) TaskState {
	k.mu.Lock()
	defer k.mu.Unlock()
	t := k.prioTable[priority]
	if t == nil {
		return StateDeleted
	}
	return t.state
}
