package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemCreateValidatesBounds(t *testing.T) {
	k := newTestKernel(16)

	_, code := k.SemCreate(5, 3)
	assert.Equal(t, CodeParam, code, "initial > max must be rejected")

	s, code := k.SemCreate(2, 0)
	require.True(t, code.OK())
	assert.Equal(t, SemCountMax, s.e.semCountMax, "max=0 means SemCountMax")
}

func TestSemPendNonBlockingDecrementsAndReportsPreDecrementCount(t *testing.T) {
	k := newTestKernel(16)
	s, _ := k.SemCreate(1, 5)

	n, code := k.SemPendNonBlocking(s)
	require.True(t, code.OK())
	assert.Equal(t, uint16(1), n, "PendNonBlocking returns the count observed immediately before decrement")
	assert.Equal(t, uint16(0), k.SemCount(s))

	_, code = k.SemPendNonBlocking(s)
	assert.Equal(t, CodeEventTimeout, code)
}

func TestSemPendImmediateSuccessDecrements(t *testing.T) {
	k := newTestKernel(16)
	s, _ := k.SemCreate(1, 0)

	result, code := k.SemPend(s, 10)
	require.True(t, code.OK())
	assert.Equal(t, PendOK, result)
	assert.Equal(t, uint16(0), k.SemCount(s))
}

func TestSemPendBlocksAndQueuesByPriority(t *testing.T) {
	k := newTestKernel(16)
	s, _ := k.SemCreate(0, 0)

	require.True(t, k.Create(5, noop, nil, make([]byte, 64)).OK())
	require.True(t, k.Create(9, noop, nil, make([]byte, 64)).OK())
	low := k.prioTable[5]
	high := k.prioTable[9]

	k.current = low
	k.SemPend(s, 0)
	k.current = high
	k.SemPend(s, 0)

	require.NotNil(t, s.e.waitHead)
	assert.Same(t, high, s.e.waitHead, "higher priority waiter must be at the head")
	assert.Same(t, low, s.e.waitHead.nextInWait)
	assert.True(t, low.state.has(StatePendSem))
	assert.True(t, high.state.has(StatePendSem))
}

// TestSemPostAntiStealingRule is spec.md §9's documented rule: posting
// with a waiter present hands the unit directly to that waiter rather
// than incrementing count, so count never rises while anyone waits.
func TestSemPostAntiStealingRule(t *testing.T) {
	k := newTestKernel(16)
	s, _ := k.SemCreate(0, 5)
	require.True(t, k.Create(5, noop, nil, make([]byte, 64)).OK())
	waiter := k.prioTable[5]

	k.current = waiter
	k.SemPend(s, 0)
	require.True(t, waiter.state.has(StatePendSem))

	code := k.SemPost(s)
	require.True(t, code.OK())

	assert.Equal(t, uint16(0), k.SemCount(s), "count must stay at 0 - the unit went straight to the waiter")
	assert.Equal(t, PendOK, waiter.pendResult)
	assert.True(t, waiter.state == StateReady)
	assert.True(t, k.ready.isSet(5))
}

func TestSemPostSaturatesAndReportsOverflow(t *testing.T) {
	k := newTestKernel(16)
	s, _ := k.SemCreate(2, 2)

	code := k.SemPost(s)
	assert.Equal(t, CodeSemOverflow, code)
	assert.Equal(t, uint16(2), k.SemCount(s), "count must not change on overflow")
}

func TestSemPendAbortHighestOnly(t *testing.T) {
	k := newTestKernel(16)
	s, _ := k.SemCreate(0, 0)
	require.True(t, k.Create(5, noop, nil, make([]byte, 64)).OK())
	require.True(t, k.Create(6, noop, nil, make([]byte, 64)).OK())
	low, high := k.prioTable[5], k.prioTable[6]

	k.current = low
	k.SemPend(s, 0)
	k.current = high
	k.SemPend(s, 0)

	n, code := k.SemPendAbort(s, SemAbortHighestPrio)
	require.True(t, code.OK())
	assert.Equal(t, 1, n)
	assert.Equal(t, PendAbort, high.pendResult)
	assert.True(t, low.state.has(StatePendSem), "the non-aborted waiter stays queued")
}

func TestSemPendAbortAll(t *testing.T) {
	k := newTestKernel(16)
	s, _ := k.SemCreate(0, 0)
	require.True(t, k.Create(5, noop, nil, make([]byte, 64)).OK())
	require.True(t, k.Create(6, noop, nil, make([]byte, 64)).OK())
	low, high := k.prioTable[5], k.prioTable[6]

	k.current = low
	k.SemPend(s, 0)
	k.current = high
	k.SemPend(s, 0)

	n, _ := k.SemPendAbort(s, SemAbortAll)
	assert.Equal(t, 2, n)
	assert.Equal(t, PendAbort, low.pendResult)
	assert.Equal(t, PendAbort, high.pendResult)
	assert.Nil(t, s.e.waitHead)
}

func TestSemPendWrongTypeRejected(t *testing.T) {
	k := newTestKernel(16)
	mb, _ := k.MailboxCreate(nil)
	_, code := k.SemPend(Sem{e: mb.e}, 0)
	assert.Equal(t, CodeEventType, code)
}
