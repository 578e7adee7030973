package schedule

import (
	"reflect"
	"testing"
)

func TestLinearChain(t *testing.T) {
	uris := []string{"b", "a", "c"}
	edges := []Edge{{Source: "a", Sink: "b"}, {Source: "b", Sink: "c"}}

	stages, err := Schedule(uris, edges, false)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"a"}, {"b"}, {"c"}}
	if !reflect.DeepEqual(stages, want) {
		t.Errorf("got %v, want %v", stages, want)
	}
}

func TestStageGroupingAndSwap(t *testing.T) {
	// a and b are independent, both precede c.
	uris := []string{"a", "b", "c"}
	edges := []Edge{{Source: "a", Sink: "c"}, {Source: "b", Sink: "c"}}

	stages, err := Schedule(uris, edges, false)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(stages, [][]string{{"a", "b"}, {"c"}}) {
		t.Errorf("ascending: got %v", stages)
	}

	swapped, err := Schedule(uris, edges, true)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(swapped, [][]string{{"b", "a"}, {"c"}}) {
		t.Errorf("descending: got %v", swapped)
	}
}

func TestCycleDetection(t *testing.T) {
	uris := []string{"a", "b", "c"}
	edges := []Edge{
		{Source: "a", Sink: "b"},
		{Source: "b", Sink: "c"},
		{Source: "c", Sink: "a"},
	}

	_, err := Schedule(uris, edges, false)
	if err == nil {
		t.Fatal("expected CycleError")
	}
	cycleErr, ok := err.(*CycleError)
	if !ok {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	if !reflect.DeepEqual(cycleErr.Residual, []string{"a", "b", "c"}) {
		t.Errorf("unexpected residual: %v", cycleErr.Residual)
	}
}

func TestPartialCycleResidualExcludesAcyclicNodes(t *testing.T) {
	// d -> a, and a/b/c form a cycle. d should be scheduled first; residual
	// should be exactly {a, b, c}.
	uris := []string{"a", "b", "c", "d"}
	edges := []Edge{
		{Source: "d", Sink: "a"},
		{Source: "a", Sink: "b"},
		{Source: "b", Sink: "c"},
		{Source: "c", Sink: "a"},
	}

	stages, err := Schedule(uris, edges, false)
	cycleErr, ok := err.(*CycleError)
	if !ok {
		t.Fatalf("expected *CycleError, got %T (%v)", err, err)
	}
	if !reflect.DeepEqual(stages, [][]string{{"d"}}) {
		t.Errorf("expected d to schedule before cycle detection, got %v", stages)
	}
	if !reflect.DeepEqual(cycleErr.Residual, []string{"a", "b", "c"}) {
		t.Errorf("unexpected residual: %v", cycleErr.Residual)
	}
}

func TestEmptyGraph(t *testing.T) {
	stages, err := Schedule(nil, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(stages) != 0 {
		t.Errorf("expected zero stages, got %v", stages)
	}
}

func TestEdgeOrderingRespected(t *testing.T) {
	uris := []string{"a", "b", "c", "d"}
	edges := []Edge{
		{Source: "a", Sink: "b"},
		{Source: "b", Sink: "c"},
		{Source: "c", Sink: "d"},
	}
	stages, err := Schedule(uris, edges, false)
	if err != nil {
		t.Fatal(err)
	}
	index := map[string]int{}
	for i, stage := range stages {
		for _, u := range stage {
			index[u] = i
		}
	}
	for _, e := range edges {
		if index[e.Source] >= index[e.Sink] {
			t.Errorf("edge %s->%s: source stage %d not before sink stage %d", e.Source, e.Sink, index[e.Source], index[e.Sink])
		}
	}
}
