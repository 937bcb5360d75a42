package kernel

/*
Soft stack-overflow detection, grounded on pretty_types.h's OS_TASK_TCB.
TASK_SP_Limit field and pretty_hooks.h's App_Hook_StackOverflow_Detected.
The original compares a live CPU stack pointer register against a
precomputed limit on every context switch, gated by the compile-time
OS_CONFIG_CPU_SOFT_STK_OVERFLOW_DETECTION flag; there is no equivalent
register to read here, since a goroutine's real call stack is managed
and grown by the Go runtime rather than by the []byte buffer handed to
Create/CreateEDF. What this port can do instead, and what a real
hardware Port implementation backing this same stack slice would rely
on even more directly, is paint a canary into the low end of that
buffer at creation time and check it on every switch: a port that
actually executes the task on this memory will corrupt the canary
before it corrupts anything load-bearing, the same early-warning this
field gave the original. internal/refport.SimPort never writes through
t.stack at all (see DESIGN.md), so against it the canary only confirms
"not yet touched" - but the check and the hook call are real and wired,
not dead code, and fire correctly against any port that does use the
buffer as its actual stack memory.
*/

const (
	stackGuardSize    = 16
	stackGuardPattern = 0xA5
)

// paintStackGuard marks the low end of stack with a fixed pattern. Called
// once at task creation when the kernel config has stack-overflow
// detection enabled.
func paintStackGuard(stack []byte) {
	n := stackGuardSize
	if n > len(stack) {
		n = len(stack)
	}
	for i := 0; i < n; i++ {
		stack[i] = stackGuardPattern
	}
}

// checkStackGuard inspects t's canary region and fires OnStackOverflow
// the first time it finds it disturbed. Held under the critical section,
// same as every other hook dispatch (hooks.go).
func (k *Kernel) checkStackGuard(t *TCB) {
	if !k.cfg.StackOverflowDetection || t == nil || t == k.idle || len(t.stack) == 0 {
		return
	}
	n := stackGuardSize
	if n > len(t.stack) {
		n = len(t.stack)
	}
	for i := 0; i < n; i++ {
		if t.stack[i] != stackGuardPattern {
			k.logErrorf("stack guard tripped for task at priority %d", t.priority)
			k.callStackOverflow(t)
			return
		}
	}
}
