package kernel

// StackTop exposes the port-assigned stack-top handle a reference or
// real CPU port stored at StackInit time. Kernel services never read
// this value themselves; it exists purely so a Port implementation can
// correlate the *TCB it is handed at ContextSwitch time back to whatever
// per-task bookkeeping it keeps, since StackInit only returns the value
// and does not receive the eventual *TCB.
func (t *TCB) StackTop() uintptr { return t.stackTop }
