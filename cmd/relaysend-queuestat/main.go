// Command relaysend-queuestat is a read-only introspection tool: it prints
// the number of pending and failed messages in a queue directory and the
// age of the oldest pending message, colorized by how close that age is to
// the configured queue lifetime.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/relaysend/relaysend/config"
	"github.com/relaysend/relaysend/mlog"
	"github.com/relaysend/relaysend/queuestore"
)

var log = mlog.New("relaysend-queuestat")

func main() {
	configPath := flag.String("config", "/etc/relaysend/relaysend.conf", "configuration file path")
	flag.Parse()

	cfg, err := config.ParseFile(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "relaysend-queuestat:", err)
		os.Exit(1)
	}

	store, err := queuestore.Open(cfg.QueueDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "relaysend-queuestat:", err)
		os.Exit(1)
	}

	messages, err := store.List(log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "relaysend-queuestat:", err)
		os.Exit(1)
	}

	failed, err := os.ReadDir(store.FailedDir())
	if err != nil {
		fmt.Fprintln(os.Stderr, "relaysend-queuestat:", err)
		os.Exit(1)
	}

	fmt.Printf("pending: %d\n", len(messages))
	fmt.Printf("failed:  %d\n", len(failed))

	if len(messages) == 0 {
		return
	}

	oldest := messages[0]
	for _, m := range messages[1:] {
		if m.ModTime.Before(oldest.ModTime) {
			oldest = m
		}
	}

	age := time.Since(oldest.ModTime)
	lifetime := time.Duration(cfg.QueueLifetime) * time.Second
	fmt.Printf("oldest pending message: %s (%s)\n", oldest.Name, colorizeAge(age, lifetime))
}

// colorizeAge renders age relative to lifetime: green under a third of the
// lifetime, yellow up to two thirds, red beyond that.
func colorizeAge(age, lifetime time.Duration) string {
	s := age.Round(time.Second).String()
	if lifetime <= 0 {
		return s
	}
	switch {
	case age < lifetime/3:
		return color.GreenString(s)
	case age < 2*lifetime/3:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}
