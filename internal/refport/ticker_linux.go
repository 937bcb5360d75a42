//go:build linux

package refport

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/yahiafarghaly/prettyos-go/internal/kernel"
)

// TimerfdTicker drives a kernel's tick engine from a Linux timerfd,
// bracketing each tick with IntEnter/IntExit exactly as spec.md §6
// describes the port's tick-timer contract. Grounded on x/sys/unix's
// direct TimerfdCreate/TimerfdSettime wrappers - the only unix syscalls
// the teacher's own declared golang.org/x/sys dependency is asked to
// serve here.
type TimerfdTicker struct {
	fd   int
	k    *kernel.Kernel
	stop chan struct{}
	done chan struct{}
}

// NewTimerfdTicker arms a monotonic timerfd to fire every period and
// deliver ticks to k. Call Stop to tear it down.
func NewTimerfdTicker(k *kernel.Kernel, period time.Duration) (*TimerfdTicker, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, 0)
	if err != nil {
		return nil, err
	}
	spec := unix.ItimerSpec{
		Interval: unix.NsecToTimespec(period.Nanoseconds()),
		Value:    unix.NsecToTimespec(period.Nanoseconds()),
	}
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		unix.Close(fd)
		return nil, err
	}

	t := &TimerfdTicker{fd: fd, k: k, stop: make(chan struct{}), done: make(chan struct{})}
	go t.run()
	return t, nil
}

func (t *TimerfdTicker) run() {
	defer close(t.done)
	buf := make([]byte, 8)
	for {
		select {
		case <-t.stop:
			return
		default:
		}
		n, err := unix.Read(t.fd, buf)
		if err != nil || n != 8 {
			continue
		}
		t.k.IntEnter()
		t.k.TickAdvance()
		t.k.IntExit()
	}
}

// Stop closes the timerfd and waits for the driving goroutine to exit.
func (t *TimerfdTicker) Stop() {
	close(t.stop)
	unix.Close(t.fd)
	<-t.done
}
