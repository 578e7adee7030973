// ABOUTME: "angler log" — prints journal events for the most recent or a named run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/orbnauticus/angler/internal/journal"
)

func cmdLog(ctx context.Context, args []string) int {
	c := &commonFlags{}
	fs := flag.NewFlagSet("angler log", flag.ContinueOnError)
	c.register(fs)
	runFlag := fs.String("run", "", "run ID to print (default: the most recent run)")
	tail := fs.Int("tail", 0, "print only the last N events (0 means all)")
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}

	m, err := openManifest(ctx, c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "angler log: %v\n", err)
		return exitFatal
	}
	defer m.Close()

	runID := *runFlag
	if runID == "" {
		runID, err = m.Journal.LatestRun()
		if err != nil {
			fmt.Fprintf(os.Stderr, "angler log: %v\n", err)
			return exitFatal
		}
		if runID == "" {
			fmt.Println("no runs recorded yet")
			return exitOK
		}
	}

	var events []journal.Event
	if *tail > 0 {
		events, err = m.Journal.Tail(runID, *tail)
	} else {
		events, err = m.Journal.All(runID)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "angler log: %v\n", err)
		return exitFatal
	}

	for _, ev := range events {
		line := fmt.Sprintf("%s %s", ev.Timestamp.Format("2006-01-02T15:04:05Z07:00"), ev.Type)
		if ev.NodeURI != "" {
			line += " node=" + ev.NodeURI
		}
		if ev.Message != "" {
			line += " msg=" + ev.Message
		}
		fmt.Println(line)
	}
	return exitOK
}
