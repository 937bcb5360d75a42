package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayZeroTicksReturnsImmediately(t *testing.T) {
	k := newTestKernel(16)
	require.True(t, k.Create(5, noop, nil, make([]byte, 64)).OK())
	tcb := k.prioTable[5]
	k.current = tcb

	code := k.Delay(0)
	require.True(t, code.OK())
	assert.Equal(t, StateReady, tcb.state, "a zero-tick delay must never block the caller")
}

// TestDelayOneTickExpiresOnNextAdvance is spec.md §8's boundary case:
// Delay(1) must wake on the very next tick, not the one after.
func TestDelayOneTickExpiresOnNextAdvance(t *testing.T) {
	k := newTestKernel(16)
	require.True(t, k.Create(5, noop, nil, make([]byte, 64)).OK())
	tcb := k.prioTable[5]
	k.current = tcb

	k.critical(func() { k.blockCurrent(nil, 0, 1) })
	assert.True(t, tcb.state.has(StateDelay))
	assert.True(t, k.blocked.isSet(5))

	k.IntEnter()
	k.TickAdvance()
	k.IntExit()

	assert.Equal(t, StateReady, tcb.state)
	assert.Equal(t, PendTimeout, tcb.pendResult)
	assert.False(t, k.blocked.isSet(5))
	assert.True(t, k.ready.isSet(5))
}

func TestDelayMultipleTicksDoesNotExpireEarly(t *testing.T) {
	k := newTestKernel(16)
	require.True(t, k.Create(5, noop, nil, make([]byte, 64)).OK())
	tcb := k.prioTable[5]
	k.current = tcb

	k.critical(func() { k.blockCurrent(nil, 0, 3) })

	k.IntEnter()
	k.TickAdvance()
	k.IntExit()
	assert.True(t, tcb.state.has(StateDelay), "must still be blocked after 1 of 3 ticks")
	assert.Equal(t, Tick(2), tcb.ticksRemaining)

	k.IntEnter()
	k.TickAdvance()
	k.IntExit()
	assert.True(t, tcb.state.has(StateDelay))

	k.IntEnter()
	k.TickAdvance()
	k.IntExit()
	assert.Equal(t, StateReady, tcb.state)
}

func TestTickAdvanceWakesWithPendTimeoutOnEventWait(t *testing.T) {
	k := newTestKernel(16)
	s, _ := k.SemCreate(0, 0)
	require.True(t, k.Create(5, noop, nil, make([]byte, 64)).OK())
	tcb := k.prioTable[5]
	k.current = tcb

	k.critical(func() { k.blockCurrent(s.e, StatePendSem, 2) })
	require.Same(t, s.e, tcb.event)

	k.IntEnter()
	k.TickAdvance()
	k.IntExit()
	k.IntEnter()
	k.TickAdvance()
	k.IntExit()

	assert.Equal(t, PendTimeout, tcb.pendResult)
	assert.Nil(t, tcb.event, "the timed-out waiter must be unlinked from the event's wait list")
	assert.Nil(t, s.e.waitHead)
	assert.True(t, k.ready.isSet(5))
}

func TestTickAdvanceIncrementsCounter(t *testing.T) {
	k := newTestKernel(16)
	require.Equal(t, Tick(0), k.TickCount())
	k.IntEnter()
	k.TickAdvance()
	k.IntExit()
	assert.Equal(t, Tick(1), k.TickCount())
}
