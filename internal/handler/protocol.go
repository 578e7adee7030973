// ABOUTME: The handler wire protocol: list/get/set/node/incoming/outgoing subcommands over stdin/stdout.
package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/orbnauticus/angler/internal/uri"
)

// DefaultSetTimeout is applied to "set" invocations when the caller does not
// override it. "list", "get", and "node" have no default timeout.
const DefaultSetTimeout = 10 * time.Minute

// ImpliedNode is one "node <uri> <json>" line emitted by a node/incoming/outgoing hook.
type ImpliedNode struct {
	URI   string
	Value json.RawMessage
}

// ImpliedEdge is one "edge <source> <sink>" line emitted by a node/incoming/outgoing hook.
type ImpliedEdge struct {
	Source string
	Sink   string
}

// List invokes "<path> list" and returns the schemes it claims, one per
// stdout line. A non-zero exit or zero schemes is reported as an error.
func List(ctx context.Context, path string) ([]string, error) {
	stdout, stderr, err := run(ctx, path, []string{"list"}, nil, 0)
	if err != nil {
		return nil, &HandlerFailureError{Handler: path, Subcommand: "list", Stderr: stderr, Err: err}
	}
	var schemes []string
	for _, line := range splitNonEmptyLines(stdout) {
		schemes = append(schemes, strings.TrimSpace(line))
	}
	if len(schemes) == 0 {
		return nil, fmt.Errorf("handler %s: list produced no schemes", path)
	}
	return schemes, nil
}

// Get invokes "<path> get <scheme> <host> <path> <query> <fragment>" and
// parses stdout as a single JSON value.
func Get(ctx context.Context, path string, parts uri.Parts, timeout time.Duration) (json.RawMessage, error) {
	stdout, stderr, err := run(ctx, path, append([]string{"get"}, uriArgs(parts)...), nil, timeout)
	if err != nil {
		return nil, failureFor(path, "get", parts, stderr, err)
	}
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("handler %s: get produced no output", path)
	}
	var probe any
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("handler %s: get produced invalid JSON: %w", path, err)
	}
	return json.RawMessage(trimmed), nil
}

// Set invokes "<path> set <scheme> <host> <path> <query> <fragment>",
// writing old then new as two JSON lines on stdin.
func Set(ctx context.Context, path string, parts uri.Parts, old, new json.RawMessage, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultSetTimeout
	}
	stdin := append(append(append([]byte{}, old...), '\n'), new...)
	stdin = append(stdin, '\n')

	_, stderr, err := run(ctx, path, append([]string{"set"}, uriArgs(parts)...), stdin, timeout)
	if err != nil {
		return failureFor(path, "set", parts, stderr, err)
	}
	return nil
}

// NodeHook invokes "<path> node <scheme> <host> <path> <query> <fragment>"
// and parses each stdout line as an implied node or implied edge.
func NodeHook(ctx context.Context, path string, parts uri.Parts, timeout time.Duration) ([]ImpliedNode, []ImpliedEdge, error) {
	stdout, stderr, err := run(ctx, path, append([]string{"node"}, uriArgs(parts)...), nil, timeout)
	if err != nil {
		return nil, nil, failureFor(path, "node", parts, stderr, err)
	}
	return parseHookOutput(stdout)
}

// IncomingHook invokes "<path> incoming <own-uri-parts> <peer-uri-parts>",
// reacting to a first-time edge where parts is the sink's own URI and peer
// is the edge's source.
func IncomingHook(ctx context.Context, path string, parts, peer uri.Parts, timeout time.Duration) ([]ImpliedNode, []ImpliedEdge, error) {
	args := append([]string{"incoming"}, uriArgs(parts)...)
	args = append(args, uriArgs(peer)...)
	stdout, stderr, err := run(ctx, path, args, nil, timeout)
	if err != nil {
		return nil, nil, failureFor(path, "incoming", parts, stderr, err)
	}
	return parseHookOutput(stdout)
}

// OutgoingHook invokes "<path> outgoing <own-uri-parts> <peer-uri-parts>",
// reacting to a first-time edge where parts is the source's own URI and
// peer is the edge's sink.
func OutgoingHook(ctx context.Context, path string, parts, peer uri.Parts, timeout time.Duration) ([]ImpliedNode, []ImpliedEdge, error) {
	args := append([]string{"outgoing"}, uriArgs(parts)...)
	args = append(args, uriArgs(peer)...)
	stdout, stderr, err := run(ctx, path, args, nil, timeout)
	if err != nil {
		return nil, nil, failureFor(path, "outgoing", parts, stderr, err)
	}
	return parseHookOutput(stdout)
}

func uriArgs(p uri.Parts) []string {
	return []string{p.Scheme, p.Host, p.Path, p.Query, p.Fragment}
}

func failureFor(path, subcommand string, parts uri.Parts, stderr string, err error) error {
	joined, joinErr := uri.Join(parts)
	if joinErr != nil {
		joined = parts.Path
	}
	return &HandlerFailureError{
		Handler:    path,
		Subcommand: subcommand,
		URI:        joined,
		Stderr:     stderr,
		TimedOut:   err == context.DeadlineExceeded,
		Err:        err,
	}
}

// parseHookOutput parses zero or more lines, each either "node <uri> <json>"
// (strict whitespace split on the first two tokens; the remainder of the
// line is the JSON value) or "edge <source> <sink>" (exactly three tokens).
// A malformed node or edge line is rejected rather than silently ignored,
// since it usually indicates a handler bug; lines beginning with any other
// word are ignored.
func parseHookOutput(stdout []byte) ([]ImpliedNode, []ImpliedEdge, error) {
	var nodes []ImpliedNode
	var edges []ImpliedEdge

	for _, line := range splitNonEmptyLines(stdout) {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "node":
			if len(fields) < 3 {
				return nil, nil, fmt.Errorf("malformed node hook line: %q", line)
			}
			uriEnd := strings.Index(line, fields[1]) + len(fields[1])
			raw := strings.TrimSpace(line[uriEnd:])
			var probe any
			if err := json.Unmarshal([]byte(raw), &probe); err != nil {
				return nil, nil, fmt.Errorf("malformed node value in hook line %q: %w", line, err)
			}
			nodes = append(nodes, ImpliedNode{URI: fields[1], Value: json.RawMessage(raw)})
		case "edge":
			if len(fields) != 3 {
				return nil, nil, fmt.Errorf("malformed edge hook line: %q", line)
			}
			edges = append(edges, ImpliedEdge{Source: fields[1], Sink: fields[2]})
		default:
			// Any other output on stdout is ignored.
		}
	}
	return nodes, edges, nil
}

func splitNonEmptyLines(data []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// run executes path with args, feeding stdin if non-nil, and returns stdout,
// stderr, and an error describing a non-zero exit, crash, or timeout.
//
// Grounded on attractor/verify_command.go: the subprocess runs in its own
// process group so that a timeout kills the whole tree, not just the
// immediate child.
func run(ctx context.Context, path string, args []string, stdin []byte, timeout time.Duration) (stdout []byte, stderr string, err error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, path, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			if pgid, pgErr := syscall.Getpgid(cmd.Process.Pid); pgErr == nil {
				_ = syscall.Kill(-pgid, syscall.SIGKILL)
			}
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = 3 * time.Second

	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()
	stderr = stderrBuf.String()
	stdout = stdoutBuf.Bytes()

	if runErr != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return stdout, stderr, context.DeadlineExceeded
		}
		return stdout, stderr, runErr
	}
	return stdout, stderr, nil
}
