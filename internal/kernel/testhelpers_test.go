package kernel

import "sync"

// fakePort is a non-blocking, synchronous kernel.Port used by this
// package's white-box unit tests. Context switches never actually park
// anything - test goroutines call kernel services directly and inspect
// unexported TCB/Kernel fields afterward, rather than running real task
// goroutines (internal/refport and its own tests cover the real
// goroutine-backed behavior end to end).
type fakePort struct {
	mu       sync.Mutex
	nextTop  uintptr
	switches int
	lastFrom *TCB
	lastTo   *TCB
}

func newFakePort() *fakePort { return &fakePort{} }

func (p *fakePort) StackInit(fn func(arg any), arg any, stack []byte, onReturn func()) uintptr {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextTop++
	return p.nextTop
}

func (p *fakePort) ContextSwitch(current, next *TCB) {
	p.switches++
	p.lastFrom, p.lastTo = current, next
}

func (p *fakePort) InterruptContextSwitch(current, next *TCB) {
	p.switches++
	p.lastFrom, p.lastTo = current, next
}

func (p *fakePort) FirstStart(next *TCB) {}

func (p *fakePort) CriticalEnter() {}
func (p *fakePort) CriticalLeave() {}

func (p *fakePort) CountLeadingZeros64(word uint64) int {
	n := 0
	for i := 63; i >= 0; i-- {
		if word&(1<<uint(i)) != 0 {
			return n
		}
		n++
	}
	return n
}

func newTestKernel(taskCount int) *Kernel {
	cfg := DefaultConfig()
	cfg.TaskCount = taskCount
	k, code := Init(cfg, newFakePort(), nil, Hooks{})
	if !code.OK() {
		panic("newTestKernel: init failed: " + code.String())
	}
	return k
}

func newTestKernelEDF(taskCount int) *Kernel {
	cfg := DefaultConfig()
	cfg.TaskCount = taskCount
	cfg.EDFEnabled = true
	k, code := Init(cfg, newFakePort(), nil, Hooks{})
	if !code.OK() {
		panic("newTestKernelEDF: init failed: " + code.String())
	}
	return k
}

func noop(arg any) {}
