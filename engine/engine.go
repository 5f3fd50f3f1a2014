// Package engine is the delivery engine and main loop: it owns the working
// set of queued messages, runs a sweep over it against every configured
// remote, and idles between sweeps on the trigger FIFO and the backoff
// timer.
//
// Grounded on the shape of queue/queue.go's Start/launchWork/deliver loop,
// but rewritten to the strictly serial, remote-major/message-minor sweep
// this daemon requires in place of mox's concurrent per-domain goroutine
// pool: only one protocol helper ever runs at a time.
package engine

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relaysend/relaysend/backoff"
	"github.com/relaysend/relaysend/childproc"
	"github.com/relaysend/relaysend/config"
	"github.com/relaysend/relaysend/metrics"
	"github.com/relaysend/relaysend/mlog"
	"github.com/relaysend/relaysend/queuestore"
	"github.com/relaysend/relaysend/selfpipe"
	"github.com/relaysend/relaysend/trigger"
)

var log = mlog.New("engine")

// Engine holds the long-lived state of one daemon instance: the queue
// store, the child supervisor, the backoff schedule and the current
// working set of messages still to attempt.
type Engine struct {
	ConfigPath string
	Store      *queuestore.Store
	Supervisor *childproc.Supervisor
	Trigger    *trigger.Watcher
	Backoff    *backoff.Schedule

	cfg      config.File
	remotes  config.RemoteList
	messages []queuestore.Message
	sweepNum int64
}

// Open wires up an Engine from the configuration at configPath: it opens
// the queue store, the trigger FIFO, and installs the SIGCHLD mailbox the
// child supervisor reaps through. The mailbox must be installed before any
// helper is forked; Open forks none, so it is in place before the first.
func Open(configPath string) (*Engine, error) {
	cfg, err := config.ParseFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cfg.HeloHost == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("discovering local hostname: %w", err)
		}
		cfg.HeloHost = host
	}
	os.Setenv("HELOHOST", cfg.HeloHost)

	store, err := queuestore.Open(cfg.QueueDir)
	if err != nil {
		return nil, fmt.Errorf("opening queue: %w", err)
	}

	trig, err := trigger.Open(store.TriggerPath())
	if err != nil {
		return nil, fmt.Errorf("opening trigger: %w", err)
	}

	mailbox := selfpipe.New(syscall.SIGCHLD)

	remotes, errs := config.ParseRemotes(cfg.Remotes)
	for _, rerr := range errs {
		log.Error("ignoring malformed remotes line", mlog.Field("err", rerr.Error()))
	}

	bo := backoff.New(time.Duration(cfg.PauseSeconds())*time.Second, time.Duration(cfg.MaxPause)*time.Second)

	e := &Engine{
		ConfigPath: configPath,
		Store:      store,
		Trigger:    trig,
		Backoff:    &bo,
		Supervisor: &childproc.Supervisor{
			Mailbox:     mailbox,
			SendTimeout: time.Duration(cfg.SendTimeout) * time.Second,
			Log:         mlog.New("childproc"),
		},
		cfg:     cfg,
		remotes: remotes,
	}
	return e, nil
}

// Run executes the daemon's main loop (startup has already happened in
// Open): ignore SIGHUP, subscribe to the external reload signal, load the
// initial working set, then alternate sweeps and idle waits until a
// one-shot sweep or ctx cancellation ends it.
//
// A nil error with no further looping means a one-shot run (pausetime==0)
// completed its single sweep, per the daemon's exit-code policy: the
// caller should exit 0.
func (e *Engine) Run(ctx context.Context) error {
	signal.Ignore(syscall.SIGHUP)

	alarmCh := make(chan os.Signal, 1)
	signal.Notify(alarmCh, syscall.SIGALRM)
	defer signal.Stop(alarmCh)

	if err := e.reloadMessages(); err != nil {
		return fmt.Errorf("initial queue scan: %w", err)
	}

	for {
		e.sweep(ctx)

		if e.cfg.PauseSeconds() == 0 {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.doSelect(ctx, alarmCh); err != nil {
			return err
		}
	}
}

// LogLevel returns the configured default log level name.
func (e *Engine) LogLevel() string {
	return e.cfg.LogLevel
}

// reloadMessages rescans the queue directory into the working set.
func (e *Engine) reloadMessages() error {
	messages, err := e.Store.List(log)
	if err != nil {
		return err
	}
	e.messages = messages
	return nil
}

// reloadConfig re-reads the configuration file, applying any pausetime
// change to the backoff schedule's floor.
func (e *Engine) reloadConfig() {
	cfg, err := config.ParseFile(e.ConfigPath)
	if err != nil {
		log.Errorx("reloading config failed, keeping previous config", err)
		return
	}
	if cfg.HeloHost == "" {
		cfg.HeloHost = e.cfg.HeloHost
	}
	os.Setenv("HELOHOST", cfg.HeloHost)

	remotes, errs := config.ParseRemotes(cfg.Remotes)
	for _, rerr := range errs {
		log.Error("ignoring malformed remotes line", mlog.Field("err", rerr.Error()))
	}

	e.Backoff.SetMin(time.Duration(cfg.PauseSeconds()) * time.Second)
	e.Backoff.Max = time.Duration(cfg.MaxPause) * time.Second
	e.Supervisor.SendTimeout = time.Duration(cfg.SendTimeout) * time.Second

	e.cfg = cfg
	e.remotes = remotes
}

// sweep runs send_all: reload configuration, then for every remote in
// order, attempt every message still in the working set, applying each
// attempt's outcome to the working set before moving to the next remote.
func (e *Engine) sweep(ctx context.Context) {
	e.sweepNum++
	slog := log.WithSweep(e.sweepNum)

	e.reloadConfig()
	metrics.SweepStarted()
	metrics.QueueSize(len(e.messages))

	if len(e.remotes) == 0 {
		slog.Error("no remotes configured, nothing to do this sweep")
		return
	}
	if len(e.messages) == 0 {
		slog.Debug("working set empty, skipping sweep")
		return
	}

	slog.Info("starting sweep", mlog.Field("messages", len(e.messages)), mlog.Field("remotes", len(e.remotes)))

	for _, remote := range e.remotes {
		i := 0
		for i < len(e.messages) {
			if err := ctx.Err(); err != nil {
				return
			}
			msg := e.messages[i]

			start := time.Now()
			outcome := e.Supervisor.Deliver(e.Store, msg.Name, remote, e.cfg.ProtocolDir)
			metrics.DeliveryAttempt(outcome.String(), time.Since(start).Seconds())

			switch outcome {
			case childproc.Success:
				if err := e.Store.Unlink(msg.Name); err != nil {
					slog.Errorx("delivered message could not be unlinked", err, mlog.Field("message", msg.Name))
					i++
					continue
				}
				e.messages = e.removeAt(i)

			case childproc.PermFail:
				if err := e.Store.Bounce(msg.Name); err != nil {
					slog.Errorx("permanently failed message could not be bounced", err, mlog.Field("message", msg.Name))
					i++
					continue
				}
				e.messages = e.removeAt(i)

			default: // TempFail
				if time.Since(msg.ModTime) > time.Duration(e.cfg.QueueLifetime)*time.Second {
					if err := e.Store.Bounce(msg.Name); err != nil {
						slog.Errorx("expired message could not be bounced", err, mlog.Field("message", msg.Name))
						i++
						continue
					}
					e.messages = e.removeAt(i)
					continue
				}
				i++
			}
		}
	}

	slog.Info("sweep finished", mlog.Field("remaining", len(e.messages)))
}

// removeAt deletes the message at index i from the working set, preserving
// the order of the remainder. The caller does not advance its cursor past
// i afterwards: the successor message has been shifted into i.
func (e *Engine) removeAt(i int) []queuestore.Message {
	return append(e.messages[:i], e.messages[i+1:]...)
}

// doSelect idles until the trigger FIFO pulses, the backoff timeout
// elapses, the external reload signal arrives, or ctx is cancelled.
// A trigger pulse resets the backoff schedule to its floor and rescans the
// queue directory; the timeout and the reload signal rescan it without
// resetting. Cancellation returns ctx's error without rescanning.
func (e *Engine) doSelect(ctx context.Context, alarmCh <-chan os.Signal) error {
	timeout := e.Backoff.Next(len(e.messages) == 0)
	log.Debug("idling", mlog.Field("timeout", timeout.String()))

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.Trigger.C():
		log.Info("trigger pulsed, waking early")
		e.Backoff.Reset()
		return e.reloadMessages()
	case <-alarmCh:
		log.Info("reload signal received")
		return e.reloadMessages()
	case <-t.C:
		return e.reloadMessages()
	}
}
