// ABOUTME: "angler add" — inserts one node plus optional before/after ordering edges.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

func cmdAdd(ctx context.Context, args []string) int {
	c := &commonFlags{}
	var positional []string
	var before, after []string

	i := 0
	for i < len(args) {
		switch args[i] {
		case "-b", "--before":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "angler add: -b requires a value")
				return exitFatal
			}
			before = append(before, args[i+1])
			i += 2
		case "-a", "--after":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "angler add: -a requires a value")
				return exitFatal
			}
			after = append(after, args[i+1])
			i += 2
		case "-manifest", "--manifest":
			if i+1 >= len(args) {
				return exitFatal
			}
			c.manifest = args[i+1]
			i += 2
		case "-modules", "--modules":
			if i+1 >= len(args) {
				return exitFatal
			}
			c.modules = args[i+1]
			i += 2
		case "-data-dir", "--data-dir":
			if i+1 >= len(args) {
				return exitFatal
			}
			c.dataDir = args[i+1]
			i += 2
		default:
			positional = append(positional, args[i])
			i++
		}
	}

	if len(positional) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: angler add <uri> [status] [key=value ...] [-b uri]* [-a uri]*")
		return exitFatal
	}

	uri := positional[0]
	rest := positional[1:]

	stateName := ""
	if len(rest) > 0 && !strings.Contains(rest[0], "=") {
		stateName = rest[0]
		rest = rest[1:]
	}

	props := map[string]string{}
	for _, kv := range rest {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			fmt.Fprintf(os.Stderr, "angler add: invalid property %q, expected key=value\n", kv)
			return exitFatal
		}
		props[k] = v
	}

	value, err := json.Marshal(map[string]map[string]string{stateName: props})
	if err != nil {
		fmt.Fprintf(os.Stderr, "angler add: %v\n", err)
		return exitFatal
	}

	m, err := openManifest(ctx, c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "angler add: %v\n", err)
		return exitFatal
	}
	defer m.Close()

	if _, err := m.InsertNode(ctx, uri, value, nil); err != nil {
		fmt.Fprintf(os.Stderr, "angler add: %v\n", err)
		return exitFatal
	}

	for _, node := range before {
		if _, err := m.InsertEdge(uri, node, nil); err != nil {
			fmt.Fprintf(os.Stderr, "angler add: %v\n", err)
			return exitFatal
		}
	}
	for _, node := range after {
		if _, err := m.InsertEdge(node, uri, nil); err != nil {
			fmt.Fprintf(os.Stderr, "angler add: %v\n", err)
			return exitFatal
		}
	}

	fmt.Printf("added %s\n", uri)
	return exitOK
}
