// ABOUTME: Public façade tying store, handler registry, elaboration, scheduling, apply, and the run journal together.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orbnauticus/angler/internal/apply"
	"github.com/orbnauticus/angler/internal/elaborate"
	"github.com/orbnauticus/angler/internal/handler"
	"github.com/orbnauticus/angler/internal/journal"
	"github.com/orbnauticus/angler/internal/schedule"
	"github.com/orbnauticus/angler/internal/store"
)

// Manifest bundles an open store with a handler registry and run journal,
// and exposes the operations the CLI and any future front-end need.
type Manifest struct {
	Store     *store.Store
	Registry  *handler.Registry
	Journal   *journal.Journal
	Elaborate *elaborate.Driver
}

// Open opens (or creates) the manifest database at dbPath, discovers
// handlers under modulesDirs, and opens the run journal rooted at
// journalDir.
func Open(ctx context.Context, dbPath string, modulesDirs []string, journalDir string, maxDepth int, hookTimeout time.Duration) (*Manifest, error) {
	s, err := store.Setup(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	reg, err := handler.Discover(ctx, modulesDirs)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("discover handlers: %w", err)
	}

	j, err := journal.Open(journalDir)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}

	driver := elaborate.New(s, reg)
	if maxDepth > 0 {
		driver.MaxDepth = maxDepth
	}
	driver.Timeout = hookTimeout
	driver.OverflowFunc = func(rootURI, nodeURI string, depth int) {
		_ = j.AppendStandalone(journal.Event{
			Type:    journal.NodeOverflow,
			NodeURI: nodeURI,
			Message: fmt.Sprintf("elaboration from root %s exceeded depth %d", rootURI, depth),
		})
	}

	return &Manifest{Store: s, Registry: reg, Journal: j, Elaborate: driver}, nil
}

// Close releases the underlying store handle.
func (m *Manifest) Close() error {
	return m.Store.Close()
}

// InsertNode persists uri=value (author may be nil for operator-authored
// nodes) and, if the insert was genuinely new, elaborates it.
func (m *Manifest) InsertNode(ctx context.Context, uri string, value []byte, author *string) (store.InsertOutcome, error) {
	outcome, err := m.Store.InsertNode(uri, value, author)
	if err != nil {
		return outcome, err
	}
	if outcome == store.Inserted {
		if err := m.Elaborate.Elaborate(ctx, uri); err != nil {
			return outcome, fmt.Errorf("elaborate %s: %w", uri, err)
		}
	}
	return outcome, nil
}

// InsertEdge persists one ordering constraint.
func (m *Manifest) InsertEdge(source, sink string, author *string) (store.InsertOutcome, error) {
	return m.Store.InsertEdge(source, sink, author)
}

// Chain inserts edges between every consecutive pair in uris, implementing
// the `order` CLI command.
func (m *Manifest) Chain(uris []string, author *string) error {
	for i := 0; i+1 < len(uris); i++ {
		if _, err := m.InsertEdge(uris[i], uris[i+1], author); err != nil {
			return fmt.Errorf("order %s -> %s: %w", uris[i], uris[i+1], err)
		}
	}
	return nil
}

// RunOptions controls one reconciliation pass.
type RunOptions struct {
	Swap       bool
	DryRun     bool
	Verify     bool
	GetTimeout time.Duration
	SetTimeout time.Duration
}

// RunResult is what a completed (or cycle-aborted) run reports.
type RunResult struct {
	RunID    string
	Counters apply.Counters
	Cycle    *schedule.CycleError // non-nil if scheduling failed
}

// RunOnce takes a consistent snapshot, schedules it, and applies each stage
// in order, journaling every step under a fresh run ID.
func (m *Manifest) RunOnce(ctx context.Context, opts RunOptions) (RunResult, error) {
	runID, err := m.Journal.NewRun()
	if err != nil {
		return RunResult{}, fmt.Errorf("start run: %w", err)
	}
	if err := m.Journal.Append(runID, journal.Event{Type: journal.RunStarted}); err != nil {
		return RunResult{}, err
	}

	nodes, edges, err := m.Store.Snapshot()
	if err != nil {
		return RunResult{RunID: runID}, fmt.Errorf("snapshot: %w", err)
	}

	uris := make([]string, 0, len(nodes))
	for _, n := range nodes {
		uris = append(uris, n.URI)
	}
	schedEdges := make([]schedule.Edge, 0, len(edges))
	for _, e := range edges {
		schedEdges = append(schedEdges, schedule.Edge{Source: e.Source, Sink: e.Sink})
	}

	stages, schedErr := schedule.Schedule(uris, schedEdges, opts.Swap)
	var cycleErr *schedule.CycleError
	if schedErr != nil {
		var ok bool
		cycleErr, ok = schedErr.(*schedule.CycleError)
		if !ok {
			return RunResult{RunID: runID}, schedErr
		}
		_ = m.Journal.Append(runID, journal.Event{
			Type: journal.RunCycle,
			Data: map[string]any{"residual": cycleErr.Residual},
		})
	}

	counters, applyErr := apply.Run(ctx, m.Store, m.Registry, stages, apply.Options{
		DryRun:     opts.DryRun,
		Verify:     opts.Verify,
		GetTimeout: opts.GetTimeout,
		SetTimeout: opts.SetTimeout,
		ProgressFunc: func(r apply.Result) {
			_ = m.Journal.Append(runID, eventForResult(r))
		},
		StageFunc: func(stageIndex int) {
			_ = m.Journal.Append(runID, journal.Event{Type: journal.StageStarted, StageIndex: stageIndex})
		},
		ObserveFunc: func(nodeURI string, current json.RawMessage) {
			_ = m.Journal.Append(runID, journal.Event{Type: journal.NodeObserved, NodeURI: nodeURI})
		},
	})
	if applyErr != nil {
		return RunResult{RunID: runID}, applyErr
	}

	status := "completed"
	if cycleErr != nil {
		status = "cycle"
	}
	jc := journal.Counters{Run: counters.Run, Skipped: counters.Skipped, Errors: counters.Errors}
	if err := m.Journal.Complete(runID, status, jc); err != nil {
		return RunResult{RunID: runID, Counters: counters, Cycle: cycleErr}, err
	}
	if err := m.Journal.Append(runID, journal.Event{Type: journal.RunCompleted}); err != nil {
		return RunResult{RunID: runID, Counters: counters, Cycle: cycleErr}, err
	}

	return RunResult{RunID: runID, Counters: counters, Cycle: cycleErr}, nil
}

func eventForResult(r apply.Result) journal.Event {
	ev := journal.Event{NodeURI: r.URI}
	switch r.Outcome {
	case apply.OutcomeApplied, apply.OutcomeWouldApply:
		ev.Type = journal.NodeApplied
	case apply.OutcomeSkippedMatch, apply.OutcomeSkippedNoHandler:
		ev.Type = journal.NodeSkipped
	case apply.OutcomeSkippedGetFailed, apply.OutcomeSetFailed:
		ev.Type = journal.NodeFailed
	}
	if r.Err != nil {
		ev.Message = r.Err.Error()
	}
	return ev
}
