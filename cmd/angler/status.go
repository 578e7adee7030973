// ABOUTME: "angler status" — prints node/edge totals and the most recent run's counters, without applying.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func cmdStatus(ctx context.Context, args []string) int {
	c := &commonFlags{}
	fs := flag.NewFlagSet("angler status", flag.ContinueOnError)
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}

	m, err := openManifest(ctx, c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "angler status: %v\n", err)
		return exitFatal
	}
	defer m.Close()

	nodes, edges, err := m.Store.Snapshot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "angler status: %v\n", err)
		return exitFatal
	}
	fmt.Printf("nodes: %d\n", len(nodes))
	fmt.Printf("edges: %d\n", len(edges))

	runID, err := m.Journal.LatestRun()
	if err != nil {
		fmt.Fprintf(os.Stderr, "angler status: %v\n", err)
		return exitFatal
	}
	if runID == "" {
		fmt.Println("no runs recorded yet")
		return exitOK
	}

	runs, err := m.Journal.ListRuns()
	if err != nil {
		fmt.Fprintf(os.Stderr, "angler status: %v\n", err)
		return exitFatal
	}
	for _, r := range runs {
		if r.ID == runID {
			fmt.Printf("last run: %s (%s) run=%d skipped=%d errors=%d\n",
				r.ID, r.Status, r.Counters.Run, r.Counters.Skipped, r.Counters.Errors)
			break
		}
	}
	return exitOK
}
