// ABOUTME: "angler export" — renders the current graph snapshot as DOT or flattened YAML.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/orbnauticus/angler/internal/export"
)

func cmdExport(ctx context.Context, args []string) int {
	c := &commonFlags{}
	fs := flag.NewFlagSet("angler export", flag.ContinueOnError)
	c.register(fs)
	format := fs.String("format", "dot", "output format: dot or yaml")
	out := fs.String("out", "", "output file path (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}

	m, err := openManifest(ctx, c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "angler export: %v\n", err)
		return exitFatal
	}
	defer m.Close()

	nodes, edges, err := m.Store.Snapshot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "angler export: %v\n", err)
		return exitFatal
	}

	var rendered string
	switch *format {
	case "dot":
		rendered = export.DOT(nodes, edges)
	case "yaml":
		rendered, err = export.YAML(nodes, edges)
		if err != nil {
			fmt.Fprintf(os.Stderr, "angler export: %v\n", err)
			return exitFatal
		}
	default:
		fmt.Fprintf(os.Stderr, "angler export: unknown format %q (want dot or yaml)\n", *format)
		return exitFatal
	}

	if *out == "" {
		fmt.Print(rendered)
		return exitOK
	}
	if err := os.WriteFile(*out, []byte(rendered), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "angler export: %v\n", err)
		return exitFatal
	}
	return exitOK
}
