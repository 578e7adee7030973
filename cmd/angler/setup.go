// ABOUTME: "angler setup" — creates a fresh manifest store, overwriting any existing tables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/orbnauticus/angler/internal/store"
)

func cmdSetup(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("angler setup", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: angler setup <manifest-file>")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitFatal
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitFatal
	}

	path := fs.Arg(0)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "angler setup: %v\n", err)
		return exitFatal
	}

	s, err := store.Setup(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "angler setup: %v\n", err)
		return exitFatal
	}
	defer s.Close()

	fmt.Printf("initialized manifest store at %s\n", path)
	return exitOK
}
