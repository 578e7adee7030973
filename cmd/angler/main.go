// ABOUTME: CLI entrypoint for the angler manifest engine — setup, add, order, apply, status, log, export, version.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/orbnauticus/angler/internal/config"
)

var version = "dev"

// Exit codes.
const (
	exitOK          = 0
	exitCycleOrIntr = 1
	exitFatal       = 2
)

func main() {
	config.LoadDotEnvAuto()
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return exitOK
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\ninterrupted, cancelling current run...")
		cancel()
	}()

	switch args[0] {
	case "setup":
		return cmdSetup(ctx, args[1:])
	case "add":
		return cmdAdd(ctx, args[1:])
	case "order":
		return cmdOrder(ctx, args[1:])
	case "apply":
		return cmdApply(ctx, args[1:])
	case "status":
		return cmdStatus(ctx, args[1:])
	case "log":
		return cmdLog(ctx, args[1:])
	case "export":
		return cmdExport(ctx, args[1:])
	case "version", "-version", "--version":
		fmt.Printf("angler %s\n", version)
		return exitOK
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "angler: unknown command %q\n\n", args[0])
		printUsage(os.Stderr)
		return exitFatal
	}
}

func printUsage(w *os.File) {
	fmt.Fprintln(w, "Usage: angler <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  setup <manifest-file>              create a fresh manifest store")
	fmt.Fprintln(w, "  add <uri> [status] [k=v...]         insert a node, optionally with edges")
	fmt.Fprintln(w, "  order <uri> <uri> [uri...]          insert a chain of ordering edges")
	fmt.Fprintln(w, "  apply [--swap] [--dryrun] [--verify] reconcile the manifest against observed state")
	fmt.Fprintln(w, "  status                              print node/edge totals and last run's counters")
	fmt.Fprintln(w, "  log [--run id] [--tail n]           print run journal events")
	fmt.Fprintln(w, "  export [--format dot|yaml] [--out f] render the graph snapshot")
	fmt.Fprintln(w, "  version                              print build version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment: ANGLER_DATA_DIR, ANGLER_MODULES, ANGLER_MANIFEST")
}
