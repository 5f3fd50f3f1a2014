// Package config reads relaysend's on-disk configuration: global delivery
// settings and the ordered list of remote smarthosts to try.
//
// The file format is "sconf" (github.com/mjl-/sconf), the same
// tab-indented, commented key/value format mox uses for its own
// configuration. Describe can print a fully commented example file.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/mjl-/sconf"
)

// File is the top-level configuration file layout.
type File struct {
	QueueDir string `sconf-doc:"Directory holding the queue layout. The message/ and failed/ subdirectories must already exist under it; the trigger FIFO is created if absent."`

	HeloHost string `sconf:"optional" sconf-doc:"Value for the HELOHOST environment variable passed to protocol helpers. Defaults to the discovered local hostname."`

	// A pointer distinguishes "absent from the file" (gets the default)
	// from "explicitly set to 0" (one-shot mode), which a plain int can't.
	PauseTime *int `sconf:"optional" sconf-doc:"Minimum idle wait between sweeps, and the backoff floor, in seconds. A value of 0 means one-shot: run a single sweep and exit. Default 60."`

	MaxPause int `sconf:"optional" sconf-doc:"Backoff ceiling in seconds. Default 86400 (24h)."`

	SendTimeout int `sconf:"optional" sconf-doc:"Per-delivery wall-clock budget in seconds before the protocol helper is killed. Default 3600 (1h)."`

	QueueLifetime int `sconf:"optional" sconf-doc:"Messages that keep temp-failing older than this many seconds are bounced. Default 604800 (7 days)."`

	ProtocolDir string `sconf:"optional" sconf-doc:"Directory containing protocol helper executables, one per protocol name. Default /usr/lib/relaysend."`

	LogLevel string `sconf:"optional" sconf-doc:"One of: error, info, debug. Default info."`

	Remotes []string `sconf-doc:"Remote smarthosts to attempt delivery to, in order, one per line. Each line is 'host [proto [opt...]]', shell-word-split. Options may be prefixed with '--', which is stripped. Lines starting with # are ignored."`
}

const (
	defaultPauseTime     = 60
	defaultMaxPause      = 24 * 60 * 60
	defaultSendTimeout   = 60 * 60
	defaultQueueLifetime = 7 * 24 * 60 * 60
	DefaultProtocolDir   = "/usr/lib/relaysend"
)

// SetDefaults fills in zero-valued optional fields the way load_config in
// the original daemon does when a setting is absent from the config store.
func (f *File) SetDefaults() {
	if f.PauseTime == nil {
		v := defaultPauseTime
		f.PauseTime = &v
	}
	if f.MaxPause == 0 {
		f.MaxPause = defaultMaxPause
	}
	if f.SendTimeout == 0 {
		f.SendTimeout = defaultSendTimeout
	}
	if f.QueueLifetime == 0 {
		f.QueueLifetime = defaultQueueLifetime
	}
	if f.ProtocolDir == "" {
		f.ProtocolDir = DefaultProtocolDir
	}
	if f.LogLevel == "" {
		f.LogLevel = "info"
	}
}

// PauseSeconds returns the effective pausetime. Only meaningful after
// SetDefaults has run, which guarantees PauseTime is non-nil.
func (f *File) PauseSeconds() int {
	return *f.PauseTime
}

// ParseFile reads and parses path into a File, applying defaults for any
// optional field left zero.
func ParseFile(path string) (File, error) {
	var f File
	if err := sconf.ParseFile(path, &f); err != nil {
		return File{}, fmt.Errorf("parsing config: %w", err)
	}
	f.SetDefaults()
	return f, nil
}

// Describe writes a fully commented example configuration file to w, for
// operators to start from. Mirrors "mox config describe".
func Describe(w io.Writer) error {
	pauseTime := defaultPauseTime
	example := File{
		QueueDir:      "/var/spool/relaysend",
		PauseTime:     &pauseTime,
		MaxPause:      defaultMaxPause,
		SendTimeout:   defaultSendTimeout,
		QueueLifetime: defaultQueueLifetime,
		ProtocolDir:   DefaultProtocolDir,
		LogLevel:      "info",
		Remotes:       []string{"mx.example.com smtp"},
	}
	return sconf.Describe(w, &example)
}

// WriteExample writes Describe's output to the named path, refusing to
// overwrite an existing file.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Describe(f)
}
