// Package trigger wraps the named-pipe trigger external writers pulse to
// wake the delivery engine for an immediate rescan, without it having to
// poll the queue directory tightly.
//
// The original daemon keeps the trigger's read end in a non-blocking
// select() loop and optionally keeps a second write end open to work
// around platforms where a FIFO with no writers delivers a spurious EOF
// (its NAMEDPIPEBUG #ifdef). Watcher always keeps a write end open — the
// Go equivalent of that workaround unconditionally — and turns "readable"
// into a buffered Go channel via a small reader goroutine, so the engine
// can select on it with time.After like any other channel instead of
// calling select(2) directly.
package trigger

import (
	"os"

	"golang.org/x/sys/unix"
)

// Watcher monitors one trigger FIFO.
type Watcher struct {
	path string
	rf   *os.File
	wf   *os.File
	sig  chan struct{}
}

// Open creates the FIFO at path if it doesn't already exist, opens both
// ends, and starts draining it into a channel. Failure to create or open
// the FIFO is startup-fatal, per the daemon's error taxonomy.
func Open(path string) (*Watcher, error) {
	if err := unix.Mkfifo(path, 0o600); err != nil && !os.IsExist(err) {
		return nil, err
	}

	// The read end is opened first and non-blocking: a blocking open of
	// either end waits for the other side. With a reader present, the
	// write-end open returns at once.
	rf, err := os.OpenFile(path, os.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	wf, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		rf.Close()
		return nil, err
	}

	w := &Watcher{path: path, rf: rf, wf: wf, sig: make(chan struct{}, 1)}
	go w.drain()
	return w, nil
}

// C returns the channel that receives a pulse whenever the trigger FIFO is
// written to. Reads are coalesced: multiple pending pulses collapse into
// one pending receive, matching "drain any pending bytes" semantics.
func (w *Watcher) C() <-chan struct{} {
	return w.sig
}

func (w *Watcher) drain() {
	buf := make([]byte, 1024)
	for {
		n, err := w.rf.Read(buf)
		if err != nil {
			return
		}
		if n > 0 {
			select {
			case w.sig <- struct{}{}:
			default:
			}
		}
	}
}

// Close closes both ends of the FIFO, stopping the drain goroutine.
func (w *Watcher) Close() error {
	err1 := w.rf.Close()
	err2 := w.wf.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
