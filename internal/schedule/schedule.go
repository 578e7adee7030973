// ABOUTME: Kahn's-algorithm topological scheduler producing stages of mutually-unordered nodes.
package schedule

import (
	"fmt"
	"sort"
)

// Edge is a directed ordering constraint between two node URIs.
type Edge struct {
	Source string
	Sink   string
}

// CycleError is raised when no stage can be formed while nodes remain.
// Residual is exactly the set of nodes reachable in the leftover graph,
// sorted for deterministic reporting.
type CycleError struct {
	Residual []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected among %d node(s): %v", len(e.Residual), e.Residual)
}

// Schedule computes the stream of stages for uris under edges. Each stage is
// the set of nodes with no remaining predecessor at that point; stages are
// emitted until every node has been placed. Nodes within a stage are sorted
// URI-ascending, or descending when swap is true.
//
// Edges naming a URI not present in uris are ignored: the scheduler only
// reasons about the snapshot it was given.
func Schedule(uris []string, edges []Edge, swap bool) ([][]string, error) {
	remaining := make(map[string]bool, len(uris))
	inDegree := make(map[string]int, len(uris))
	outgoing := make(map[string][]string)

	for _, u := range uris {
		remaining[u] = true
		inDegree[u] = 0
	}
	for _, e := range edges {
		if !remaining[e.Source] || !remaining[e.Sink] {
			continue
		}
		inDegree[e.Sink]++
		outgoing[e.Source] = append(outgoing[e.Source], e.Sink)
	}

	var stages [][]string
	for len(remaining) > 0 {
		var stage []string
		for u := range remaining {
			if inDegree[u] == 0 {
				stage = append(stage, u)
			}
		}
		if len(stage) == 0 {
			residual := make([]string, 0, len(remaining))
			for u := range remaining {
				residual = append(residual, u)
			}
			sort.Strings(residual)
			return stages, &CycleError{Residual: residual}
		}

		sort.Strings(stage)
		if swap {
			reverse(stage)
		}
		stages = append(stages, stage)

		for _, u := range stage {
			delete(remaining, u)
			for _, sink := range outgoing[u] {
				inDegree[sink]--
			}
			delete(outgoing, u)
		}
	}
	return stages, nil
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
