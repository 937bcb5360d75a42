package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutexCreateValidatesCeiling(t *testing.T) {
	k := newTestKernel(16)

	_, code := k.MutexCreate(IdlePriority)
	assert.Equal(t, CodePrioInvalid, code, "ceiling below LowestAppPriority must be rejected")

	require.True(t, k.Create(7, noop, nil, make([]byte, 64)).OK())
	_, code = k.MutexCreate(7)
	assert.Equal(t, CodePrioExist, code, "ceiling already occupied by a task must be rejected")

	_, code = k.MutexCreate(8)
	require.True(t, code.OK())
	_, code = k.MutexCreate(8)
	assert.Equal(t, CodePrioExist, code, "ceiling already claimed by another mutex must be rejected")
}

func TestMutexPendUncontendedLocksImmediately(t *testing.T) {
	k := newTestKernel(16)
	m, _ := k.MutexCreate(10)
	require.True(t, k.Create(5, noop, nil, make([]byte, 64)).OK())
	owner := k.prioTable[5]
	k.current = owner

	result, code := k.MutexPend(m, 0)
	require.True(t, code.OK())
	assert.Equal(t, PendOK, result)
	assert.Same(t, owner, m.e.mutexOwner)
	assert.True(t, m.e.mutexLocked)
}

func TestMutexPendRejectsOwnerAbovePCPCeiling(t *testing.T) {
	k := newTestKernel(16)
	m, _ := k.MutexCreate(5)
	require.True(t, k.Create(9, noop, nil, make([]byte, 64)).OK())
	k.current = k.prioTable[9]

	_, code := k.MutexPend(m, 0)
	assert.Equal(t, CodeMutexLowerPCP, code, "a task above the ceiling can never safely hold this mutex")
}

// TestMutexPendRaisesOwnerToCeiling is spec.md §8's PCP scenario: a low
// priority owner contended by a higher priority waiter is raised to the
// mutex's ceiling for the duration of ownership, never to the waiter's
// own priority.
func TestMutexPendRaisesOwnerToCeiling(t *testing.T) {
	k := newTestKernel(16)
	m, _ := k.MutexCreate(10)
	require.True(t, k.Create(3, noop, nil, make([]byte, 64)).OK())
	require.True(t, k.Create(7, noop, nil, make([]byte, 64)).OK())
	owner := k.prioTable[3]
	waiter := k.prioTable[7]

	k.current = owner
	_, code := k.MutexPend(m, 0)
	require.True(t, code.OK())

	k.current = waiter
	k.MutexPend(m, 0)

	assert.Equal(t, Priority(10), owner.priority, "owner must be raised to the ceiling, not the waiter's priority")
	assert.Equal(t, Priority(3), owner.homeSlot, "homeSlot must stay put for later restore")
	assert.Same(t, owner, k.prioTable[10])
	assert.True(t, k.ready.isSet(10))
	assert.False(t, k.ready.isSet(3))
	assert.True(t, waiter.state.has(StatePendMutex))
}

// TestMutexPostRestoresOwnerAndHandsOffDirectly is spec.md §8's "Post
// restores the owner's home priority and admits the highest-priority
// waiter without an intervening window where the mutex looks unlocked."
func TestMutexPostRestoresOwnerAndHandsOffDirectly(t *testing.T) {
	k := newTestKernel(16)
	m, _ := k.MutexCreate(10)
	require.True(t, k.Create(3, noop, nil, make([]byte, 64)).OK())
	require.True(t, k.Create(7, noop, nil, make([]byte, 64)).OK())
	owner := k.prioTable[3]
	waiter := k.prioTable[7]

	k.current = owner
	k.MutexPend(m, 0)
	k.current = waiter
	k.MutexPend(m, 0)

	k.current = owner
	code := k.MutexPost(m)
	require.True(t, code.OK())

	assert.Equal(t, Priority(3), owner.priority, "owner must be restored to its home slot")
	assert.Same(t, waiter, m.e.mutexOwner, "ownership passes directly to the waiter")
	assert.True(t, m.e.mutexLocked)
	assert.Equal(t, PendOK, waiter.pendResult)
	assert.True(t, k.ready.isSet(7))
}

func TestMutexPostUnlocksWhenNoWaiters(t *testing.T) {
	k := newTestKernel(16)
	m, _ := k.MutexCreate(10)
	require.True(t, k.Create(3, noop, nil, make([]byte, 64)).OK())
	owner := k.prioTable[3]
	k.current = owner

	k.MutexPend(m, 0)
	require.True(t, k.MutexPost(m).OK())

	assert.False(t, m.e.mutexLocked)
	assert.Nil(t, m.e.mutexOwner)
}

func TestMutexPostRejectsNonOwner(t *testing.T) {
	k := newTestKernel(16)
	m, _ := k.MutexCreate(10)
	require.True(t, k.Create(3, noop, nil, make([]byte, 64)).OK())
	require.True(t, k.Create(4, noop, nil, make([]byte, 64)).OK())

	k.current = k.prioTable[3]
	k.MutexPend(m, 0)

	k.current = k.prioTable[4]
	code := k.MutexPost(m)
	assert.Equal(t, CodeMutexNoOwner, code)
}
