package store

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Setup(path)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertNodeIdempotent(t *testing.T) {
	s := openTestStore(t)
	val := json.RawMessage(`{"folder":{}}`)

	out, err := s.InsertNode("path:///tmp/a", val, nil)
	if err != nil || out != Inserted {
		t.Fatalf("first insert: out=%v err=%v", out, err)
	}

	out, err = s.InsertNode("path:///tmp/a", val, nil)
	if err != nil || out != Noop {
		t.Fatalf("second insert: out=%v err=%v", out, err)
	}

	n, ok, err := s.GetNode("path:///tmp/a")
	if err != nil || !ok {
		t.Fatalf("get node: ok=%v err=%v", ok, err)
	}
	if !jsonEqual(n.Value, val) {
		t.Errorf("value changed: %s", n.Value)
	}
}

func TestInsertNodeValueMonotonicity(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.InsertNode("x://h/p", Null, nil); err != nil {
		t.Fatal(err)
	}
	concrete := json.RawMessage(`{"on":{}}`)
	out, err := s.InsertNode("x://h/p", concrete, nil)
	if err != nil || out != Inserted {
		t.Fatalf("null->concrete: out=%v err=%v", out, err)
	}
	n, _, _ := s.GetNode("x://h/p")
	if !jsonEqual(n.Value, concrete) {
		t.Errorf("expected concrete value stored, got %s", n.Value)
	}

	// concrete -> null must never overwrite.
	out, err = s.InsertNode("x://h/p", Null, nil)
	if err != nil || out != Noop {
		t.Fatalf("concrete->null: out=%v err=%v", out, err)
	}
	n, _, _ = s.GetNode("x://h/p")
	if !jsonEqual(n.Value, concrete) {
		t.Errorf("null overwrote concrete value: %s", n.Value)
	}
}

func TestInsertNodeValueConflict(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.InsertNode("x://h/p", json.RawMessage(`{"on":{}}`), nil); err != nil {
		t.Fatal(err)
	}

	out, err := s.InsertNode("x://h/p", json.RawMessage(`{"off":{}}`), nil)
	if out != Conflict {
		t.Fatalf("expected Conflict, got %v (err=%v)", out, err)
	}
	var conflictErr *ValueConflictError
	if !isValueConflict(err, &conflictErr) {
		t.Fatalf("expected *ValueConflictError, got %T: %v", err, err)
	}
	if conflictErr.URI != "x://h/p" {
		t.Errorf("unexpected URI in conflict: %s", conflictErr.URI)
	}

	n, _, _ := s.GetNode("x://h/p")
	if !jsonEqual(n.Value, json.RawMessage(`{"on":{}}`)) {
		t.Errorf("conflicting insert mutated stored value: %s", n.Value)
	}
}

func isValueConflict(err error, target **ValueConflictError) bool {
	e, ok := err.(*ValueConflictError)
	if !ok {
		return false
	}
	*target = e
	return true
}

func TestInsertEdgeIdempotent(t *testing.T) {
	s := openTestStore(t)
	mustNode(t, s, "a://h/1")
	mustNode(t, s, "a://h/2")

	out, err := s.InsertEdge("a://h/1", "a://h/2", nil)
	if err != nil || out != Inserted {
		t.Fatalf("first insert: out=%v err=%v", out, err)
	}

	out, err = s.InsertEdge("a://h/1", "a://h/2", nil)
	if err != nil || out != Noop {
		t.Fatalf("second insert: out=%v err=%v", out, err)
	}

	_, edges, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected exactly one edge row, got %d", len(edges))
	}
}

func TestSnapshotOrdering(t *testing.T) {
	s := openTestStore(t)
	mustNode(t, s, "a://h/z")
	mustNode(t, s, "a://h/a")
	mustNode(t, s, "a://h/m")

	nodes, _, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a://h/a", "a://h/m", "a://h/z"}
	for i, n := range nodes {
		if n.URI != want[i] {
			t.Errorf("position %d: got %s, want %s", i, n.URI, want[i])
		}
	}
}

func mustNode(t *testing.T, s *Store, uri string) {
	t.Helper()
	if _, err := s.InsertNode(uri, json.RawMessage(`{"present":{}}`), nil); err != nil {
		t.Fatalf("insert node %s: %v", uri, err)
	}
}
