package kernel

/*
Single-slot mailbox, grounded on pretty_mailbox.c's OS_MboxCreate/
OS_MboxPost/OS_MboxPend. A mailbox holds at most one message; Post into
an already-full mailbox (with no one waiting) fails rather than
overwriting, and Post to a waiting task hands the message directly to
that task rather than filling the slot, the same anti-stealing reasoning
SemPost documents in sem.go.
*/

// Mailbox is an opaque handle to a single-message mailbox.
type Mailbox struct{ e *ecb }

// MailboxCreate allocates a mailbox, optionally pre-filled with initial
// (nil means empty).
func (k *Kernel) MailboxCreate(initial any) (Mailbox, Code) {
	if !k.cfg.MailboxEnabled {
		return Mailbox{}, CodeParam
	}
	var out Mailbox
	var code Code
	k.critical(func() {
		e, c := k.allocECB(ecbMailbox)
		if c != CodeNone {
			code = c
			return
		}
		if initial != nil {
			e.mbMsg = initial
			e.mbFull = true
		}
		out = Mailbox{e: e}
	})
	return out, code
}

// MailboxPost deposits msg, either handing it straight to the
// highest-priority waiter or filling the slot if nobody is waiting. msg
// must not be nil.
func (k *Kernel) MailboxPost(mb Mailbox, msg any) Code {
	if mb.e == nil || mb.e.typ != ecbMailbox {
		return CodeEventType
	}
	if msg == nil {
		return CodeMailboxPostNull
	}
	var code Code
	var switched bool
	k.critical(func() {
		e := mb.e
		if t := k.waitPopHighest(e); t != nil {
			t.deliveredMsg = msg
			k.makeReady(t, PendOK)
			switched = true
			return
		}
		if e.mbFull {
			code = CodeMailboxFull
			return
		}
		e.mbMsg = msg
		e.mbFull = true
	})
	if switched {
		// see sem.go's SemPost for why this is safe to call unconditionally
		// from inside an ISR: schedule() defers to the enclosing IntExit.
		k.schedule()
	}
	return code
}

// MailboxPend retrieves the next message, blocking if the mailbox is
// empty. timeout 0 waits forever.
func (k *Kernel) MailboxPend(mb Mailbox, timeout Tick) (any, PendResult, Code) {
	if mb.e == nil || mb.e.typ != ecbMailbox {
		return nil, 0, CodeEventType
	}
	if k.inISR() {
		return nil, 0, CodeEventPendISR
	}

	var blocked bool
	var msg any
	var code Code
	k.critical(func() {
		if k.lockNest != 0 {
			code = CodeEventPendLocked
			return
		}
		e := mb.e
		if e.mbFull {
			msg = e.mbMsg
			e.mbMsg = nil
			e.mbFull = false
			return
		}
		k.blockCurrent(e, StatePendMailbox, timeout)
		blocked = true
	})
	if code != CodeNone || !blocked {
		return msg, PendOK, code
	}

	t := k.current
	k.schedule()

	k.mu.Lock()
	result := t.pendResult
	msg = t.deliveredMsg
	t.deliveredMsg = nil
	k.mu.Unlock()
	if result == PendTimeout {
		return nil, result, CodeEventTimeout
	}
	if result == PendAbort {
		return nil, result, CodeEventPendAbort
	}
	return msg, result, CodeNone
}
