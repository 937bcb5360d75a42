package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestPropertyReadyBitmapMatchesTaskState is spec.md §8's invariant that
// the ready bitmap and a task's READY state are two views of the same
// fact: after any sequence of Suspend/Resume/Sem operations, a priority
// is set in the ready bitmap if and only if the task occupying it is in
// exactly the READY state.
func TestPropertyReadyBitmapMatchesTaskState(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		const taskCount = 10
		k := newTestKernel(taskCount)
		s, code := k.SemCreate(0, 0)
		require.True(t, code.OK())

		for p := LowestAppPriority; int(p) < taskCount; p++ {
			require.True(t, k.Create(p, noop, nil, make([]byte, 64)).OK())
		}

		ops := rapid.SliceOfN(rapid.IntRange(0, 3), 0, 40).Draw(t, "ops")
		prios := rapid.SliceOfN(rapid.IntRange(int(LowestAppPriority), taskCount-1), 1, 40).Draw(t, "prios")

		for i, op := range ops {
			p := Priority(prios[i%len(prios)])
			k.current = k.prioTable[p]
			switch op {
			case 0:
				k.SemPend(s, 0)
			case 1:
				k.SemPost(s)
			case 2:
				k.Suspend(p)
			case 3:
				k.Resume(p)
			}
		}

		for p := LowestAppPriority; int(p) < taskCount; p++ {
			tcb := k.prioTable[p]
			if tcb == nil {
				continue
			}
			assert.Equal(t, tcb.state == StateReady, k.ready.isSet(p),
				"priority %d: ready bit must track exactly the READY state", p)
		}
		assert.LessOrEqual(t, s.e.semCount, s.e.semCountMax)
	})
}

// TestPropertyTimeBlockedBitmapMatchesDelayState is spec.md §8's
// invariant that the time-blocked bitmap mirrors the DELAY state bit
// exactly, across arbitrary Delay lengths and intervening ticks.
func TestPropertyTimeBlockedBitmapMatchesDelayState(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		const taskCount = 6
		k := newTestKernel(taskCount)
		for p := LowestAppPriority; int(p) < taskCount; p++ {
			require.True(t, k.Create(p, noop, nil, make([]byte, 64)).OK())
		}

		delays := rapid.SliceOfN(rapid.IntRange(0, 5), int(taskCount)-int(LowestAppPriority), int(taskCount)-int(LowestAppPriority)).Draw(t, "delays")
		for i, d := range delays {
			p := LowestAppPriority + Priority(i)
			tcb := k.prioTable[p]
			k.current = tcb
			if d > 0 {
				k.critical(func() { k.blockCurrent(nil, 0, Tick(d)) })
			}
		}

		ticks := rapid.IntRange(0, 6).Draw(t, "ticks")
		for i := 0; i < ticks; i++ {
			k.IntEnter()
			k.TickAdvance()
			k.IntExit()
		}

		for p := LowestAppPriority; int(p) < taskCount; p++ {
			tcb := k.prioTable[p]
			assert.Equal(t, tcb.state.has(StateDelay), k.blocked.isSet(p),
				"priority %d: time-blocked bit must track exactly the DELAY state bit", p)
		}
	})
}

// TestPropertyWaitListStaysPrioritySorted exercises waitInsert under a
// random sequence of enqueues and dequeues; the wait list must remain
// sorted head-to-tail by descending priority at every step, per event.go.
func TestPropertyWaitListStaysPrioritySorted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		const taskCount = 16
		k := newTestKernel(taskCount)
		s, code := k.SemCreate(0, 0)
		require.True(t, code.OK())

		for p := LowestAppPriority; int(p) < taskCount; p++ {
			require.True(t, k.Create(p, noop, nil, make([]byte, 64)).OK())
		}

		prios := rapid.SliceOfN(rapid.IntRange(int(LowestAppPriority), taskCount-1), 1, 30).Draw(t, "prios")
		for _, pi := range prios {
			p := Priority(pi)
			tcb := k.prioTable[p]
			if tcb.event == nil {
				k.current = tcb
				k.critical(func() { k.blockCurrent(s.e, StatePendSem, 0) })
			} else {
				k.SemPost(s)
			}

			prev := s.e.waitHead
			for prev != nil && prev.nextInWait != nil {
				assert.GreaterOrEqual(t, prev.priority, prev.nextInWait.priority,
					"wait list must stay sorted by descending priority")
				prev = prev.nextInWait
			}
		}
	})
}
