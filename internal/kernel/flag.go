package kernel

/*
Event flag group, grounded on pretty_flags.c's OS_EVENT_FlagCreate pool
scheme plus pretty_os.h's OS_FLAG_WAIT_{SET,CLEAR}_{ALL,ANY} wait kinds
and OS_FLAG_{SET,CLEAR} post options (the original's own OS_Flag_Pend/
OS_Flag_Post bodies are not present in the retained source, only their
declarations and constants - SPEC_FULL.md §5 records this).

A flag group doesn't fit the shared ecb/wait-list type: every waiter on
a flag group carries its own wait pattern and wait kind, and a single
Post can satisfy an arbitrary subset of waiters rather than just the
most urgent one, so the wake pass walks the whole list instead of
popping a single head.
*/

// FlagWaitKind selects how a wait pattern is evaluated against a group's
// current bits.
type FlagWaitKind uint8

const (
	FlagWaitSetAll FlagWaitKind = iota
	FlagWaitSetAny
	FlagWaitClearAll
	FlagWaitClearAny
)

// FlagOpt selects whether FlagPost sets or clears the given pattern.
type FlagOpt uint8

const (
	FlagOptSet FlagOpt = iota
	FlagOptClear
)

type flagWaitNode struct {
	task        *TCB
	pattern     uint64
	kind        FlagWaitKind
	resetOnExit bool
	next        *flagWaitNode
}

type flagGroup struct {
	inUse    bool
	bits     uint64
	waitHead *flagWaitNode
	next     *flagGroup // free-list link
}

func (k *Kernel) initFlagPool() {
	for i := range k.flags {
		k.flags[i].next = k.flagFree
		k.flagFree = &k.flags[i]
	}
}

func (k *Kernel) allocFlagGroup() (*flagGroup, Code) {
	if k.flagFree == nil {
		return nil, CodeFlagGrpPoolEmpty
	}
	g := k.flagFree
	k.flagFree = g.next
	*g = flagGroup{inUse: true}
	return g, CodeNone
}

func evalFlagWait(bits, pattern uint64, kind FlagWaitKind) bool {
	switch kind {
	case FlagWaitSetAll:
		return bits&pattern == pattern
	case FlagWaitSetAny:
		return bits&pattern != 0
	case FlagWaitClearAll:
		return (^bits)&pattern == pattern
	case FlagWaitClearAny:
		return (^bits)&pattern != 0
	default:
		return false
	}
}

// consumeFlagWait applies reset-on-exit semantics: a satisfied SET wait
// clears the bits it waited on, a satisfied CLEAR wait sets them back,
// so a one-shot waiter doesn't immediately re-satisfy the next waiter's
// identical condition.
func consumeFlagWait(bits, pattern uint64, kind FlagWaitKind) uint64 {
	switch kind {
	case FlagWaitSetAll, FlagWaitSetAny:
		return bits &^ pattern
	default:
		return bits | pattern
	}
}

// Flag is an opaque handle to an event flag group.
type Flag struct{ g *flagGroup }

// FlagCreate allocates a flag group with the given initial bit pattern.
func (k *Kernel) FlagCreate(initial uint64) (Flag, Code) {
	if !k.cfg.FlagEnabled {
		return Flag{}, CodeParam
	}
	initial &= k.cfg.FlagWordWidth.mask()
	var out Flag
	var code Code
	k.critical(func() {
		g, c := k.allocFlagGroup()
		if c != CodeNone {
			code = c
			return
		}
		g.bits = initial
		out = Flag{g: g}
	})
	return out, code
}

// FlagPend blocks until pattern matches kind against the group's bits (or
// timeout ticks elapse), returning the bits observed at the moment the
// wait was satisfied. resetOnExit consumes the satisfied bits as
// described on consumeFlagWait.
func (k *Kernel) FlagPend(f Flag, pattern uint64, kind FlagWaitKind, resetOnExit bool, timeout Tick) (uint64, PendResult, Code) {
	if f.g == nil {
		return 0, 0, CodeFlagGroupNil
	}
	if kind > FlagWaitClearAny {
		return 0, 0, CodeFlagWaitType
	}
	if k.inISR() {
		return 0, 0, CodeEventPendISR
	}

	var blocked bool
	var bits uint64
	var code Code
	k.critical(func() {
		if k.lockNest != 0 {
			code = CodeEventPendLocked
			return
		}
		g := f.g
		if evalFlagWait(g.bits, pattern, kind) {
			bits = g.bits
			if resetOnExit {
				g.bits = consumeFlagWait(g.bits, pattern, kind)
			}
			return
		}
		t := k.current
		node := &flagWaitNode{task: t, pattern: pattern, kind: kind, resetOnExit: resetOnExit}
		t.flagNode = node
		node.next = g.waitHead
		g.waitHead = node
		k.blockCurrent(nil, StatePendFlag, timeout)
		blocked = true
	})
	if code != CodeNone || !blocked {
		return bits, PendOK, code
	}

	t := k.current
	k.schedule()

	k.mu.Lock()
	result := t.pendResult
	if v, ok := t.deliveredMsg.(uint64); ok {
		bits = v
	}
	t.deliveredMsg = nil
	t.flagNode = nil
	k.mu.Unlock()
	if result == PendTimeout {
		return 0, result, CodeEventTimeout
	}
	if result == PendAbort {
		return 0, result, CodeEventPendAbort
	}
	return bits, result, CodeNone
}

// FlagPost applies pattern to the group per opt, then wakes every waiter
// whose condition the new bits satisfy. Returns the resulting bits.
func (k *Kernel) FlagPost(f Flag, pattern uint64, opt FlagOpt) (uint64, Code) {
	if f.g == nil {
		return 0, CodeFlagGroupNil
	}
	var code Code
	var switched bool
	var result uint64
	k.critical(func() {
		g := f.g
		switch opt {
		case FlagOptSet:
			g.bits |= pattern
		case FlagOptClear:
			g.bits &^= pattern
		default:
			code = CodeFlagOptType
			return
		}
		g.bits &= k.cfg.FlagWordWidth.mask()

		var prev *flagWaitNode
		node := g.waitHead
		for node != nil {
			next := node.next
			if evalFlagWait(g.bits, node.pattern, node.kind) {
				if prev == nil {
					g.waitHead = next
				} else {
					prev.next = next
				}
				delivered := g.bits
				if node.resetOnExit {
					g.bits = consumeFlagWait(g.bits, node.pattern, node.kind)
				}
				node.task.deliveredMsg = delivered
				k.makeReady(node.task, PendOK)
				switched = true
			} else {
				prev = node
			}
			node = next
		}
		result = g.bits
	})
	if switched {
		// see sem.go's SemPost for why this is safe to call unconditionally
		// from inside an ISR: schedule() defers to the enclosing IntExit.
		k.schedule()
	}
	return result, code
}
