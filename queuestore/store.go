// Package queuestore is the on-disk queue directory abstraction: the
// three-subdirectory layout (message, failed, trigger) a delivery sweep
// reads and mutates.
//
// The original daemon chdir's into the message directory once at startup
// and addresses the failed directory as "../failed/" thereafter. This
// package instead takes the queue root once and resolves both
// subdirectories to absolute paths, so a Store has no process-global
// side effect and multiple Stores (e.g. in tests) can coexist. See
// DESIGN.md for why this replaces the chdir approach.
package queuestore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/relaysend/relaysend/mlog"
)

const (
	messageSubdir = "message"
	failedSubdir  = "failed"
	triggerName   = "trigger"
)

// Message is one queued file: its basename within the message directory and
// its modification time, used as the earliest-queued proxy.
type Message struct {
	Name    string
	ModTime time.Time
}

// Store is the queue directory rooted at Dir, containing message/, failed/
// and the trigger FIFO.
type Store struct {
	Dir string
}

// Open validates that root and its message/failed subdirectories exist and
// are reachable, and returns a Store. Failure here is startup-fatal per the
// daemon's error taxonomy.
func Open(root string) (*Store, error) {
	s := &Store{Dir: root}
	if _, err := os.Stat(s.MessageDir()); err != nil {
		return nil, fmt.Errorf("queue message directory: %w", err)
	}
	if _, err := os.Stat(s.FailedDir()); err != nil {
		return nil, fmt.Errorf("queue failed directory: %w", err)
	}
	return s, nil
}

// MessageDir returns the absolute path of the message subdirectory.
func (s *Store) MessageDir() string { return filepath.Join(s.Dir, messageSubdir) }

// FailedDir returns the absolute path of the failed subdirectory.
func (s *Store) FailedDir() string { return filepath.Join(s.Dir, failedSubdir) }

// TriggerPath returns the absolute path of the trigger FIFO.
func (s *Store) TriggerPath() string { return filepath.Join(s.Dir, triggerName) }

// List enumerates regular entries of the message directory. A stat failure
// on an individual entry is logged and the entry is skipped, per the
// "transient I/O during housekeeping" policy; it does not fail the scan.
func (s *Store) List(log *mlog.Log) ([]Message, error) {
	entries, err := os.ReadDir(s.MessageDir())
	if err != nil {
		return nil, fmt.Errorf("reading queue directory: %w", err)
	}
	messages := make([]Message, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			log.Infox("could not stat queue entry, skipping", err, mlog.Field("name", e.Name()))
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		messages = append(messages, Message{Name: e.Name(), ModTime: info.ModTime()})
	}
	return messages, nil
}

// OpenMessage opens a queued message file read-only.
func (s *Store) OpenMessage(name string) (*os.File, error) {
	return os.Open(filepath.Join(s.MessageDir(), name))
}

// Unlink removes a delivered message from the queue.
func (s *Store) Unlink(name string) error {
	return os.Remove(filepath.Join(s.MessageDir(), name))
}

// Bounce moves name out of the queue into the failed directory.
func (s *Store) Bounce(name string) error {
	src := filepath.Join(s.MessageDir(), name)
	dst := filepath.Join(s.FailedDir(), name)
	return os.Rename(src, dst)
}
