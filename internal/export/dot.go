// ABOUTME: Renders a graph snapshot as a DOT digraph, one node per URI and one edge per ordering constraint.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/orbnauticus/angler/internal/store"
)

// DOT renders nodes and edges as a digraph. Each node is labeled with its
// URI and state class (the value's single top-level key, or "null" for a
// placeholder). Nodes and edges are emitted in the order given; they are not
// re-sorted here.
func DOT(nodes []store.Node, edges []store.Edge) string {
	var out strings.Builder

	fmt.Fprintln(&out, "digraph manifest {")
	fmt.Fprintln(&out, "  rankdir=LR")
	fmt.Fprintln(&out)

	for _, n := range nodes {
		label := stateClass(n.Value)
		fmt.Fprintf(&out, "  %q [label=%q]\n", n.URI, fmt.Sprintf("%s\\n%s", n.URI, label))
	}
	fmt.Fprintln(&out)

	for _, e := range edges {
		fmt.Fprintf(&out, "  %q -> %q\n", e.Source, e.Sink)
	}

	fmt.Fprintln(&out, "}")
	return out.String()
}

// stateClass extracts the single top-level key of a node value, or "null"
// for a placeholder node, or "invalid" if the value can't be decoded.
func stateClass(value json.RawMessage) string {
	if string(value) == "null" {
		return "null"
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(value, &obj); err != nil || len(obj) != 1 {
		return "invalid"
	}
	for k := range obj {
		return k
	}
	return "invalid"
}
