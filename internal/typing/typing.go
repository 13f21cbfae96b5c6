// Package typing implements the outbound typing-indicator state machine:
// IDLE -> TYPING on the first non-empty input, back to IDLE after an
// inactivity window, on cleared input, or on teardown.
package typing

import (
	"sync"
	"time"
)

const DefaultIdle = 3 * time.Second

// Notifier debounces composer input into start/stop emissions. The emit
// funcs are fire-and-continue; their errors are ignored here because a
// lost typing signal is harmless.
type Notifier struct {
	idle  time.Duration
	start func()
	stop  func()

	mu     sync.Mutex
	active bool
	timer  *time.Timer
}

func NewNotifier(idle time.Duration, start, stop func()) *Notifier {
	if idle <= 0 {
		idle = DefaultIdle
	}
	return &Notifier{idle: idle, start: start, stop: stop}
}

// InputChanged is called on every composer text change. The first
// non-empty change emits start; each further change pushes the
// inactivity timer out; an empty change stops immediately.
func (n *Notifier) InputChanged(text string) {
	n.mu.Lock()

	if text == "" {
		n.stopLocked()
		n.mu.Unlock()
		return
	}

	emitStart := !n.active
	n.active = true

	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.idle, n.timeout)

	n.mu.Unlock()

	if emitStart {
		n.start()
	}
}

func (n *Notifier) timeout() {
	n.mu.Lock()
	n.stopLocked()
	n.mu.Unlock()
}

// Close always emits stop, latched or not, so an abandoned composer
// cannot leave a stuck indicator on the remote side.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.active = false
	n.mu.Unlock()
	n.stop()
}

// stopLocked clears the timer and emits stop if currently latched.
// Caller holds n.mu; the emit happens inside the lock, which is fine
// because the emit funcs never call back into the notifier.
func (n *Notifier) stopLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	if n.active {
		n.active = false
		n.stop()
	}
}
