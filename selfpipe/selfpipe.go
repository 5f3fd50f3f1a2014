// Package selfpipe is the signal mailbox: it turns asynchronous signal
// delivery into a synchronous, timeout-bounded read event for the
// delivery engine's event loop.
//
// Go's runtime already implements the classic self-pipe trick internally
// for os/signal delivery (see runtime/sigqueue.go upstream); Mailbox is a
// thin, reusable wrapper around signal.Notify that exposes exactly the
// "wait for a registered signal, or time out" primitive the engine needs,
// grounded on the signal-forwarding goroutine in mox-/lifecycle.go's
// ForkExecUnprivileged.
package selfpipe

import (
	"os"
	"os/signal"
	"time"
)

// Mailbox receives registered signals on a buffered channel and exposes a
// blocking, timeout-bounded wait over it.
type Mailbox struct {
	ch chan os.Signal
}

// New installs signal.Notify for sigs and returns a Mailbox. Must be called
// before any child process is forked, so no SIGCHLD can be missed.
func New(sigs ...os.Signal) *Mailbox {
	ch := make(chan os.Signal, 8)
	signal.Notify(ch, sigs...)
	return &Mailbox{ch: ch}
}

// Stop unregisters the underlying signal.Notify.
func (m *Mailbox) Stop() {
	signal.Stop(m.ch)
}

// Wait blocks until a registered signal arrives or timeout elapses,
// whichever comes first. A non-positive timeout blocks indefinitely.
func (m *Mailbox) Wait(timeout time.Duration) (sig os.Signal, timedOut bool) {
	if timeout <= 0 {
		return <-m.ch, false
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case sig := <-m.ch:
		return sig, false
	case <-t.C:
		return nil, true
	}
}
