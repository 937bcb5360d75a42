package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEDFRejectsWhenDisabled(t *testing.T) {
	k := newTestKernel(16)
	code := k.CreateEDF(5, noop, nil, make([]byte, 64), TaskPeriodic, 0, 10, 10)
	assert.Equal(t, CodeParam, code)
}

func TestCreateEDFWithZeroArrivalIsImmediatelySchedulable(t *testing.T) {
	k := newTestKernelEDF(16)
	require.True(t, k.CreateEDF(5, noop, nil, make([]byte, 64), TaskPeriodic, 0, 10, 10).OK())

	tcb := k.prioTable[5]
	require.NotNil(t, tcb.edf)
	assert.Equal(t, Tick(10), tcb.edf.absoluteDeadline)
	assert.GreaterOrEqual(t, tcb.edf.heapIndex, 0, "a zero-arrival task must already be in the EDF heap")
}

func TestCreateEDFWithFutureArrivalBlocksUntilThen(t *testing.T) {
	k := newTestKernelEDF(16)
	require.True(t, k.CreateEDF(5, noop, nil, make([]byte, 64), TaskSporadic, 5, 20, 0).OK())

	tcb := k.prioTable[5]
	assert.True(t, tcb.state.has(StateDelay))
	assert.Equal(t, Tick(5), tcb.ticksRemaining)
	assert.Equal(t, -1, tcb.edf.heapIndex, "not in the heap until its arrival tick fires")
}

// TestEDFHeapOrdersByEarliestDeadline is the heap's core invariant:
// peekEarliest always returns the task with the smallest absolute
// deadline, regardless of insertion order.
func TestEDFHeapOrdersByEarliestDeadline(t *testing.T) {
	k := newTestKernelEDF(16)
	require.True(t, k.CreateEDF(5, noop, nil, make([]byte, 64), TaskAperiodic, 0, 100, 0).OK())
	require.True(t, k.CreateEDF(6, noop, nil, make([]byte, 64), TaskAperiodic, 0, 10, 0).OK())
	require.True(t, k.CreateEDF(7, noop, nil, make([]byte, 64), TaskAperiodic, 0, 50, 0).OK())

	earliest := k.edf.peekEarliest()
	require.NotNil(t, earliest)
	assert.Same(t, k.prioTable[6], earliest, "the task with relativeDeadline 10 must sort first")
}

func TestEDFArrivalTickAdmitsTaskToHeap(t *testing.T) {
	k := newTestKernelEDF(16)
	require.True(t, k.CreateEDF(5, noop, nil, make([]byte, 64), TaskSporadic, 2, 20, 0).OK())
	tcb := k.prioTable[5]

	k.IntEnter()
	k.TickAdvance()
	k.IntExit()
	assert.Equal(t, -1, tcb.edf.heapIndex, "must not be admitted before its arrival tick")

	k.IntEnter()
	k.TickAdvance()
	k.IntExit()
	assert.GreaterOrEqual(t, tcb.edf.heapIndex, 0, "must be admitted to the heap exactly on arrival")
	assert.True(t, k.ready.isSet(5))
}

func TestEDFWaitNextPeriodRearmsDeadlineAndBlocks(t *testing.T) {
	k := newTestKernelEDF(16)
	require.True(t, k.CreateEDF(5, noop, nil, make([]byte, 64), TaskPeriodic, 0, 10, 20).OK())
	tcb := k.prioTable[5]
	k.current = tcb

	code := k.EDFWaitNextPeriod()
	require.True(t, code.OK())

	assert.Equal(t, Tick(20), tcb.edf.arrival)
	assert.Equal(t, Tick(30), tcb.edf.absoluteDeadline)
	assert.Equal(t, -1, tcb.edf.heapIndex, "must leave the heap for the remainder of this period")
	assert.True(t, tcb.state.has(StateDelay))
}

func TestEDFWaitNextPeriodNoopForNonPeriodic(t *testing.T) {
	k := newTestKernelEDF(16)
	require.True(t, k.CreateEDF(5, noop, nil, make([]byte, 64), TaskAperiodic, 0, 10, 0).OK())
	tcb := k.prioTable[5]
	k.current = tcb

	code := k.EDFWaitNextPeriod()
	require.True(t, code.OK())
	assert.False(t, tcb.state.has(StateDelay), "an aperiodic task must not be blocked by EDFWaitNextPeriod")
}
