package kernel

// Priority identifies both a task's scheduling priority and, for a task
// that has never been raised by the priority-ceiling protocol, its slot
// in the TCB table. Priority 0 is always Idle; priority 1 is reserved as
// the priority-ceiling marker slot (spec.md §3); ordinary tasks occupy
// LowestAppPriority..TaskCount-1. Numerically higher means more urgent.
type Priority uint16

// Tick counts timer interrupts since Init.
type Tick uint32

// TaskState is a bitset over the task lifecycle states from spec.md §4.3.
// StateDeleted is the sole value meaning "slot empty"; every other state
// is a combination of the single-bit flags below.
type TaskState uint16

const (
	StateReady       TaskState = 0x00
	StateDelay       TaskState = 0x01
	StateSuspended   TaskState = 0x02
	StatePendSem     TaskState = 0x04
	StatePendMutex   TaskState = 0x08
	StatePendMailbox TaskState = 0x10
	StatePendFlag    TaskState = 0x20
	StateDeleted     TaskState = 0xFF

	statePendAny = StatePendSem | StatePendMutex | StatePendMailbox | StatePendFlag
)

func (s TaskState) has(bit TaskState) bool { return s&bit != 0 }

// PendResult is set by whoever unblocks a pending task, telling it why it
// woke up.
type PendResult uint8

const (
	PendOK PendResult = iota
	PendTimeout
	PendAbort
)

// TaskType distinguishes EDF task arrival patterns (spec.md §3, EDF-only
// additions). Ignored entirely in priority mode.
type TaskType uint8

const (
	TaskPeriodic TaskType = iota
	TaskSporadic
	TaskAperiodic
)

// edfParams holds the EDF-only scheduling fields, nil when EDF mode is
// off so priority-mode TCBs don't carry the extra bookkeeping.
type edfParams struct {
	arrival          Tick
	relativeDeadline Tick
	absoluteDeadline Tick
	taskType         TaskType
	period           Tick
	heapIndex        int // container/heap bookkeeping, see edf.go
}

// TCB is one task's kernel record. Every field not explicitly describing
// task-creation arguments is owned exclusively by the kernel and is only
// ever touched under the kernel's critical section - see kernel.go's
// critical() guard.
type TCB struct {
	stackTop uintptr // must stay semantically "first field" for a real port; Go has no ABI reason to enforce layout

	ticksRemaining Tick
	priority       Priority // current slot; differs from homeSlot only while PCP-raised
	homeSlot       Priority // the slot Create() registered this task under
	state          TaskState
	pendResult     PendResult

	event       *ecb          // event currently pended on, nil otherwise
	nextInWait  *TCB          // intrusive next-pointer in an event's waiter list
	flagNode    *flagWaitNode // non-nil while pending on a flag group

	entryFn  func(arg any)
	entryArg any

	deliveredMsg any // set by MailboxPost/Pend hand-off, read once after wake

	edf *edfParams

	stack     []byte
	stackBase uintptr
}

// Priority returns the task's current scheduling priority.
func (t *TCB) Priority() Priority { return t.priority }

// State returns the task's current state bitset.
func (t *TCB) State() TaskState { return t.state }

// PendResult returns the outcome of the task's most recent pend.
func (t *TCB) PendResult() PendResult { return t.pendResult }
