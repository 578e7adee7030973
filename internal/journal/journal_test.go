package journal

import (
	"testing"
	"time"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return j
}

func TestNewRunAppendAndReadBack(t *testing.T) {
	j := openTestJournal(t)

	runID, err := j.NewRun()
	if err != nil {
		t.Fatal(err)
	}
	if runID == "" {
		t.Fatal("expected non-empty run ID")
	}

	events := []Event{
		{Type: RunStarted, Message: "run begins"},
		{Type: StageStarted, StageIndex: 0},
		{Type: NodeApplied, NodeURI: "file:///tmp/x"},
	}
	for _, ev := range events {
		if err := j.Append(runID, ev); err != nil {
			t.Fatal(err)
		}
	}

	got, err := j.All(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(events) {
		t.Fatalf("expected %d events, got %d", len(events), len(got))
	}
	for i, ev := range got {
		if ev.Type != events[i].Type {
			t.Errorf("event %d: got type %s, want %s", i, ev.Type, events[i].Type)
		}
		if ev.Timestamp.IsZero() {
			t.Errorf("event %d: expected timestamp to be stamped", i)
		}
	}
}

func TestTailReturnsMostRecentEvents(t *testing.T) {
	j := openTestJournal(t)
	runID, err := j.NewRun()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := j.Append(runID, Event{Type: NodeObserved, StageIndex: i}); err != nil {
			t.Fatal(err)
		}
	}

	tail, err := j.Tail(runID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(tail) != 2 {
		t.Fatalf("expected 2 events, got %d", len(tail))
	}
	if tail[0].StageIndex != 3 || tail[1].StageIndex != 4 {
		t.Errorf("unexpected tail contents: %+v", tail)
	}

	all, err := j.Tail(runID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Errorf("Tail with n=0 should return everything, got %d", len(all))
	}
}

func TestCompleteUpdatesIndex(t *testing.T) {
	j := openTestJournal(t)
	runID, err := j.NewRun()
	if err != nil {
		t.Fatal(err)
	}
	if err := j.Complete(runID, "completed", Counters{Run: 3, Skipped: 1, Errors: 0}); err != nil {
		t.Fatal(err)
	}

	runs, err := j.ListRuns()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Status != "completed" {
		t.Errorf("expected status completed, got %s", runs[0].Status)
	}
	if runs[0].Counters.Run != 3 {
		t.Errorf("expected counters.run=3, got %d", runs[0].Counters.Run)
	}
}

func TestLatestRunReturnsMostRecentlyStarted(t *testing.T) {
	j := openTestJournal(t)

	first, err := j.NewRun()
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := j.NewRun()
	if err != nil {
		t.Fatal(err)
	}

	latest, err := j.LatestRun()
	if err != nil {
		t.Fatal(err)
	}
	if latest != second {
		t.Errorf("expected latest run to be %s, got %s (first=%s)", second, latest, first)
	}
}

func TestLatestRunEmptyJournal(t *testing.T) {
	j := openTestJournal(t)
	latest, err := j.LatestRun()
	if err != nil {
		t.Fatal(err)
	}
	if latest != "" {
		t.Errorf("expected empty string for journal with no runs, got %q", latest)
	}
}

func TestAppendStandaloneCreatesCompletedRun(t *testing.T) {
	j := openTestJournal(t)

	if err := j.AppendStandalone(Event{Type: NodeOverflow, NodeURI: "path:///a/b/c"}); err != nil {
		t.Fatal(err)
	}

	runs, err := j.ListRuns()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Status != "standalone" {
		t.Errorf("expected status standalone, got %s", runs[0].Status)
	}

	events, err := j.All(runs[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Type != NodeOverflow {
		t.Errorf("expected a single node.overflow event, got %+v", events)
	}
}

func TestPruneRemovesOldRunsOnly(t *testing.T) {
	j := openTestJournal(t)

	oldRun, err := j.NewRun()
	if err != nil {
		t.Fatal(err)
	}
	if err := j.Append(oldRun, Event{Type: RunStarted}); err != nil {
		t.Fatal(err)
	}

	idx, err := j.loadIndex()
	if err != nil {
		t.Fatal(err)
	}
	entry := idx.Runs[oldRun]
	entry.StartTime = time.Now().Add(-48 * time.Hour)
	idx.Runs[oldRun] = entry
	if err := j.saveIndex(idx); err != nil {
		t.Fatal(err)
	}

	freshRun, err := j.NewRun()
	if err != nil {
		t.Fatal(err)
	}

	pruned, err := j.Prune(24 * time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 run pruned, got %d", pruned)
	}

	runs, err := j.ListRuns()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != freshRun {
		t.Errorf("expected only %s to remain, got %+v", freshRun, runs)
	}
}
