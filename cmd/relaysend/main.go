// Command relaysend is the delivery daemon: it watches a queue directory
// and attempts delivery of its messages through protocol helper
// subprocesses, retrying with backoff until each message is delivered,
// bounced, or expires.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/relaysend/relaysend/config"
	"github.com/relaysend/relaysend/engine"
	"github.com/relaysend/relaysend/metrics"
	"github.com/relaysend/relaysend/mlog"
)

var log = mlog.New("relaysend")

func main() {
	var (
		configPath  = flag.String("config", "/etc/relaysend/relaysend.conf", "configuration file path")
		metricsAddr = flag.String("metricsaddr", "", "address to serve /metrics on, e.g. 127.0.0.1:8722; empty disables it")
		logfmt      = flag.Bool("logfmt", false, "write log lines as logfmt instead of the human-readable form")
		writeConfig = flag.String("writeconfig", "", "write an example configuration file to this path and exit")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: relaysend [flags]")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *writeConfig != "" {
		if err := config.WriteExample(*writeConfig); err != nil {
			log.Fatalx("writing example config", err)
		}
		return
	}

	mlog.Logfmt = *logfmt

	e, err := engine.Open(*configPath)
	if err != nil {
		log.Fatalx("starting up", err)
	}

	mlog.SetConfig(map[string]mlog.Level{"": levelFromName(e.LogLevel())})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("received shutdown signal")
		cancel()
	}()

	if addr := *metricsAddr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr); err != nil {
				log.Errorx("metrics server stopped", err)
			}
		}()
	}

	if err := e.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalx("daemon exited with error", err)
	}
}

func levelFromName(name string) mlog.Level {
	if l, ok := mlog.Levels[name]; ok {
		return l
	}
	return mlog.LevelInfo
}
