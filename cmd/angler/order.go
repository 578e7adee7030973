// ABOUTME: "angler order" — inserts a chain of ordering edges between consecutive URI arguments.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func cmdOrder(ctx context.Context, args []string) int {
	c := &commonFlags{}
	fs := flag.NewFlagSet("angler order", flag.ContinueOnError)
	c.register(fs)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: angler order <uri> <uri> [uri...]")
	}
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}
	if fs.NArg() < 2 {
		fs.Usage()
		return exitFatal
	}

	m, err := openManifest(ctx, c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "angler order: %v\n", err)
		return exitFatal
	}
	defer m.Close()

	if err := m.Chain(fs.Args(), nil); err != nil {
		fmt.Fprintf(os.Stderr, "angler order: %v\n", err)
		return exitFatal
	}

	fmt.Printf("ordered %d edges\n", fs.NArg()-1)
	return exitOK
}
