// Package childproc is the child supervisor: it runs one delivery attempt
// for one (remote, message) pair by spawning the remote's protocol helper,
// feeding it the options blob and message body, and reaping it with a
// timeout enforced through the signal mailbox.
//
// Grounded on the process-spawning idioms in mox-/forkexec_unix.go and the
// signal-forwarding goroutine in mox-/lifecycle.go, adapted from "re-exec
// ourselves after dropping privileges" to "exec an arbitrary protocol
// helper with the options blob on stdin and the message on fd 3". Go has
// no portable raw fork(); os/exec.Cmd is the idiomatic replacement for the
// source's fork+dup2+execv sequence, with ExtraFiles giving us fd 3
// directly.
package childproc

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/relaysend/relaysend/config"
	"github.com/relaysend/relaysend/excode"
	"github.com/relaysend/relaysend/metrics"
	"github.com/relaysend/relaysend/mlog"
	"github.com/relaysend/relaysend/queuestore"
	"github.com/relaysend/relaysend/selfpipe"
)

// Outcome is the tri-state result of one delivery attempt.
type Outcome int

const (
	TempFail Outcome = iota - 1
	PermFail
	Success
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case PermFail:
		return "permfail"
	default:
		return "tempfail"
	}
}

// Supervisor runs delivery attempts against a shared, process-wide signal
// mailbox. Because delivery is strictly serial (spec: one child at a time),
// a single Mailbox registered for SIGCHLD is safe to reuse across attempts.
type Supervisor struct {
	Mailbox     *selfpipe.Mailbox
	SendTimeout time.Duration
	Log         *mlog.Log
}

// Deliver executes one delivery attempt of the message named msgName
// against remote, reading the body from store. A panic anywhere in one
// attempt is recovered here and turned into a tempfail, so one bad
// message or a misbehaving helper can't take the whole sweep down with
// it.
func (s *Supervisor) Deliver(store *queuestore.Store, msgName string, remote config.Remote, protocolDir string) (outcome Outcome) {
	log := s.Log

	defer func() {
		if r := recover(); r != nil {
			log.Error("recovered panic during delivery attempt", mlog.Field("message", msgName), mlog.Field("panic", fmt.Sprint(r)))
			metrics.PanicInc("childproc")
			outcome = TempFail
		}
	}()

	msgFile, err := store.OpenMessage(msgName)
	if err != nil {
		log.Infox("can't open message file", err, mlog.Field("message", msgName))
		return TempFail
	}
	defer msgFile.Close()

	pr, pw, err := os.Pipe()
	if err != nil {
		log.Infox("can't create pipe", err)
		return TempFail
	}

	program := remote.Program(protocolDir)
	log.Info("starting delivery",
		mlog.Field("proto", remote.Proto),
		mlog.Field("host", remote.Host),
		mlog.Field("message", msgName))

	cmd := exec.Command(program)
	cmd.Stdin = pr
	cmd.ExtraFiles = []*os.File{msgFile}
	cmd.Stderr = mlog.ErrWriter(log, mlog.LevelDebug, "protocol helper stderr")

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		log.Infox("fork/exec of protocol helper failed", err, mlog.Field("program", program))
		return TempFail
	}

	// The child has its own duplicated copies of pr and msgFile; drop ours.
	pr.Close()

	if n, err := pw.Write([]byte(remote.Options)); err != nil || n != len(remote.Options) {
		log.Info("warning: writing options to protocol helper failed", mlog.Field("message", msgName))
	}
	pw.Close()

	return s.wait(cmd, log, msgName)
}

// wait enters the timed wait loop on the signal mailbox, per the source's
// catchsender: a SIGCHLD reaps the child, any other caught signal is
// ignored and waited on again, and a timeout kills the child with SIGTERM
// before consuming the resulting SIGCHLD.
func (s *Supervisor) wait(cmd *exec.Cmd, log *mlog.Log, msgName string) Outcome {
	for {
		sig, timedOut := s.Mailbox.Wait(s.SendTimeout)
		if timedOut {
			log.Info("sending timed out, killing protocol helper", mlog.Field("message", msgName))
			_ = cmd.Process.Signal(syscall.SIGTERM)
			s.Mailbox.Wait(0) // consume the SIGCHLD resulting from the kill
			_, _ = cmd.Process.Wait()
			return TempFail
		}
		if sig == syscall.SIGCHLD {
			break
		}
		// Any other caught signal on this mailbox: keep waiting for SIGCHLD.
	}

	state, err := cmd.Process.Wait()
	if err != nil {
		log.Infox("error reaping protocol helper", err, mlog.Field("message", msgName))
		return TempFail
	}

	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		log.Info("could not interpret exit status", mlog.Field("message", msgName))
		return TempFail
	}
	if !ws.Exited() {
		log.Info("protocol helper crashed or was killed", mlog.Field("message", msgName))
		return TempFail
	}

	code := ws.ExitStatus()
	if code == 0 {
		log.Info("sent file", mlog.Field("message", msgName))
		return Success
	}

	log.Info("sending failed",
		mlog.Field("message", msgName),
		mlog.Field("code", code),
		mlog.Field("reason", excode.String(code)))
	if excode.Permanent(code) {
		return PermFail
	}
	return TempFail
}
