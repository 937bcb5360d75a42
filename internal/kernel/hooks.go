package kernel

// Logger is the minimal structured-logging surface the kernel talks to.
// internal/klog implements it over charmbracelet/log; a nil Logger is
// valid and simply produces no output, which is what every unit test
// below uses.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

func (k *Kernel) logDebugf(format string, args ...any) {
	if k.log != nil {
		k.log.Debugf(format, args...)
	}
}

func (k *Kernel) logErrorf(format string, args ...any) {
	if k.log != nil {
		k.log.Errorf(format, args...)
	}
}

// Hooks is a struct of optional application callbacks, populated once at
// Init. Every hook runs with the kernel's critical section held, so it
// should be short. The pack's own original source uses two different
// spellings for the idle hook across its examples (OS_onIdle in some,
// OS_Hook_onIdle / App_Hook_TaskIdle in others); this rewrite picks one
// stable name, OnIdle, and does not special-case it further.
type Hooks struct {
	OnIdle          func()
	OnTaskSwitch    func(from, to *TCB)
	OnTaskCreated   func(t *TCB)
	OnTaskDeleted   func(t *TCB)
	OnTaskReturned  func(t *TCB)
	OnTick          func(tick Tick)
	OnStackOverflow func(t *TCB)
}

func (k *Kernel) callTaskSwitch(from, to *TCB) {
	k.logDebugf("switch: priority %d -> %d", from.priority, to.priority)
	if k.hooks.OnTaskSwitch != nil {
		k.hooks.OnTaskSwitch(from, to)
	}
}

func (k *Kernel) callTaskCreated(t *TCB) {
	if k.hooks.OnTaskCreated != nil {
		k.hooks.OnTaskCreated(t)
	}
}

func (k *Kernel) callTaskDeleted(t *TCB) {
	if k.hooks.OnTaskDeleted != nil {
		k.hooks.OnTaskDeleted(t)
	}
}

func (k *Kernel) callTaskReturned(t *TCB) {
	if k.hooks.OnTaskReturned != nil {
		k.hooks.OnTaskReturned(t)
	}
}

func (k *Kernel) callStackOverflow(t *TCB) {
	if k.hooks.OnStackOverflow != nil {
		k.hooks.OnStackOverflow(t)
	}
}

func (k *Kernel) callTick(tick Tick) {
	if k.hooks.OnTick != nil {
		k.hooks.OnTick(tick)
	}
}
