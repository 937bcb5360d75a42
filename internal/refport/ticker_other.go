//go:build !linux

package refport

import (
	"time"

	"github.com/yahiafarghaly/prettyos-go/internal/kernel"
)

// TimerfdTicker is a time.Ticker-backed fallback for platforms without
// timerfd. Non-Linux builds never exercise golang.org/x/sys/unix, only
// ticker_linux.go does.
type TimerfdTicker struct {
	t    *time.Ticker
	k    *kernel.Kernel
	stop chan struct{}
	done chan struct{}
}

func NewTimerfdTicker(k *kernel.Kernel, period time.Duration) (*TimerfdTicker, error) {
	t := &TimerfdTicker{t: time.NewTicker(period), k: k, stop: make(chan struct{}), done: make(chan struct{})}
	go t.run()
	return t, nil
}

func (t *TimerfdTicker) run() {
	defer close(t.done)
	for {
		select {
		case <-t.stop:
			return
		case <-t.t.C:
			t.k.IntEnter()
			t.k.TickAdvance()
			t.k.IntExit()
		}
	}
}

func (t *TimerfdTicker) Stop() {
	close(t.stop)
	t.t.Stop()
	<-t.done
}
