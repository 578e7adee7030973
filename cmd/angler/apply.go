// ABOUTME: "angler apply" — runs one reconciliation pass and exits 1 on a detected cycle.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/orbnauticus/angler/internal/manifest"
)

func cmdApply(ctx context.Context, args []string) int {
	c := &commonFlags{}
	fs := flag.NewFlagSet("angler apply", flag.ContinueOnError)
	c.register(fs)
	swap := fs.Bool("swap", false, "schedule stages in URI-descending order")
	dryRun := fs.Bool("dryrun", false, "report what would change without invoking set")
	verify := fs.Bool("verify", false, "re-invoke get after set and log whether state now matches")
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}

	m, err := openManifest(ctx, c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "angler apply: %v\n", err)
		return exitFatal
	}
	defer m.Close()

	result, err := m.RunOnce(ctx, manifest.RunOptions{
		Swap:   *swap,
		DryRun: *dryRun,
		Verify: *verify,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "angler apply: interrupted")
			return exitCycleOrIntr
		}
		fmt.Fprintf(os.Stderr, "angler apply: %v\n", err)
		return exitFatal
	}

	fmt.Printf("run %s: run=%d skipped=%d errors=%d\n", result.RunID, result.Counters.Run, result.Counters.Skipped, result.Counters.Errors)

	if result.Cycle != nil {
		fmt.Fprintf(os.Stderr, "angler apply: cycle detected among %d node(s): %v\n", len(result.Cycle.Residual), result.Cycle.Residual)
		return exitCycleOrIntr
	}
	if ctx.Err() != nil {
		return exitCycleOrIntr
	}
	return exitOK
}
