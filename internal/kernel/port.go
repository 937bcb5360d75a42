package kernel

// Port is the kernel's only external runtime dependency (spec.md §6). It
// captures exactly the CPU-port contract: seeding a task's initial stack
// frame, switching context at task level and at interrupt-exit level,
// launching the first task, and the two primitives (critical section,
// count-leading-zeros) the kernel needs from the CPU/compiler. Everything
// about *how* a context switch happens - register save layout, the
// first-task launch trampoline, the tick timer peripheral - lives on the
// other side of this interface, per spec.md §1's scope boundary.
//
// internal/refport ships one concrete, goroutine-backed implementation
// used by tests and by cmd/prettyos-sim; a real embedded build supplies
// its own.
type Port interface {
	// StackInit seeds a saved context on stack such that resuming it
	// calls fn(arg), and calls onReturn if fn ever returns (the
	// belt-and-braces path for spec.md §4.3's "accidental return").
	StackInit(fn func(arg any), arg any, stack []byte, onReturn func()) (stackTop uintptr)

	// ContextSwitch performs a task-level switch away from current to
	// next. Called with the critical section held; must release it
	// (directly or via the scheduling point contract) before the next
	// task resumes and must not return until that task's quantum ends.
	ContextSwitch(current, next *TCB)

	// InterruptContextSwitch is ContextSwitch's counterpart invoked from
	// the tail of the outermost IntExit.
	InterruptContextSwitch(current, next *TCB)

	// FirstStart arms the switch mechanism, enables interrupts, and
	// transfers control to next. Does not return.
	FirstStart(next *TCB)

	// CriticalEnter/CriticalLeave implement the kernel's single critical
	// section. Nesting is the port's responsibility; the kernel never
	// holds a section across one of its own suspension points.
	CriticalEnter()
	CriticalLeave()

	// CountLeadingZeros64 is the CPU/compiler intrinsic; ports without a
	// dedicated instruction may fall back to math/bits, the same
	// fallback the kernel's own bitmap package uses internally.
	CountLeadingZeros64(word uint64) int
}
