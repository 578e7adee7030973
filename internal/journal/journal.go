// ABOUTME: Append-only per-run JSONL event log plus a small index.json for fast run enumeration.
package journal

import (
	"bufio"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType identifies the kind of run-journal event.
type EventType string

const (
	RunStarted   EventType = "run.started"
	StageStarted EventType = "stage.started"
	NodeObserved EventType = "node.observed"
	NodeApplied  EventType = "node.applied"
	NodeSkipped  EventType = "node.skipped"
	NodeFailed   EventType = "node.failed"
	NodeOverflow EventType = "node.overflow"
	RunCompleted EventType = "run.completed"
	RunCycle     EventType = "run.cycle"
)

// Event is one line of a run's events.jsonl file.
type Event struct {
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	NodeURI    string         `json:"node_uri,omitempty"`
	StageIndex int            `json:"stage_index,omitempty"`
	Message    string         `json:"message,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Counters mirrors the apply loop's run/skipped/errors totals.
type Counters struct {
	Run     int `json:"run"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// RunEntry is one run's metadata, as stored in index.json.
type RunEntry struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"` // "running", "completed", "cycle", "standalone"
	StartTime  time.Time `json:"start_time"`
	EventCount int       `json:"event_count"`
	Counters   Counters  `json:"counters"`
}

type index struct {
	Runs    map[string]RunEntry `json:"runs"`
	Updated time.Time           `json:"updated"`
}

// Journal is a filesystem-backed run log rooted at <manifestDir>/.angler/runs.
type Journal struct {
	baseDir string
	mu      sync.Mutex
}

// Open ensures the run-log directory exists and returns a handle to it.
func Open(manifestDir string) (*Journal, error) {
	baseDir := filepath.Join(manifestDir, ".angler", "runs")
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	j := &Journal{baseDir: baseDir}
	if err := j.ensureIndex(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) indexPath() string {
	return filepath.Join(j.baseDir, "index.json")
}

func (j *Journal) runDir(runID string) string {
	return filepath.Join(j.baseDir, runID)
}

func (j *Journal) eventsPath(runID string) string {
	return filepath.Join(j.runDir(runID), "events.jsonl")
}

func (j *Journal) ensureIndex() error {
	if _, err := os.Stat(j.indexPath()); err == nil {
		return nil
	}
	return j.saveIndex(index{Runs: map[string]RunEntry{}})
}

func (j *Journal) loadIndex() (index, error) {
	data, err := os.ReadFile(j.indexPath())
	if os.IsNotExist(err) {
		return index{Runs: map[string]RunEntry{}}, nil
	}
	if err != nil {
		return index{}, fmt.Errorf("read journal index: %w", err)
	}
	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		return index{}, fmt.Errorf("parse journal index: %w", err)
	}
	if idx.Runs == nil {
		idx.Runs = map[string]RunEntry{}
	}
	return idx, nil
}

func (j *Journal) saveIndex(idx index) error {
	idx.Updated = time.Now()
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal journal index: %w", err)
	}
	return os.WriteFile(j.indexPath(), data, 0o644)
}

// NewRun allocates a fresh run ID (a ULID, for lexicographic-by-time
// ordering) and records it as running in the index.
func (j *Journal) NewRun() (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	runID := ulid.MustNew(ulid.Now(), rand.Reader).String()
	if err := os.MkdirAll(j.runDir(runID), 0o755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}

	idx, err := j.loadIndex()
	if err != nil {
		return "", err
	}
	idx.Runs[runID] = RunEntry{ID: runID, Status: "running", StartTime: time.Now()}
	if err := j.saveIndex(idx); err != nil {
		return "", err
	}
	return runID, nil
}

// Append writes one event to runID's log and bumps its index entry's event count.
func (j *Journal) Append(runID string, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	f, err := os.OpenFile(j.eventsPath(runID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	idx, err := j.loadIndex()
	if err != nil {
		return err
	}
	entry := idx.Runs[runID]
	entry.ID = runID
	entry.EventCount++
	idx.Runs[runID] = entry
	return j.saveIndex(idx)
}

// Complete marks a run finished with its final status and counters.
func (j *Journal) Complete(runID, status string, counters Counters) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	idx, err := j.loadIndex()
	if err != nil {
		return err
	}
	entry := idx.Runs[runID]
	entry.ID = runID
	entry.Status = status
	entry.Counters = counters
	idx.Runs[runID] = entry
	return j.saveIndex(idx)
}

// AppendStandalone records ev in a run of its own, immediately completed
// with status "standalone". Elaboration runs outside any apply run (it
// fires on insert), so events it reports, such as an overflow warning, have
// no enclosing run to append to; giving each one a dedicated run keeps
// every journal event visible through the same ListRuns/log plumbing.
func (j *Journal) AppendStandalone(ev Event) error {
	runID, err := j.NewRun()
	if err != nil {
		return err
	}
	if err := j.Append(runID, ev); err != nil {
		return err
	}
	return j.Complete(runID, "standalone", Counters{})
}

// All returns every event recorded for runID, in append order.
func (j *Journal) All(runID string) ([]Event, error) {
	f, err := os.Open(j.eventsPath(runID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			return nil, fmt.Errorf("parse event: %w", err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan run log: %w", err)
	}
	return events, nil
}

// Tail returns the last n events recorded for runID.
func (j *Journal) Tail(runID string, n int) ([]Event, error) {
	events, err := j.All(runID)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n >= len(events) {
		return events, nil
	}
	return events[len(events)-n:], nil
}

// LatestRun returns the most recently started run's ID, or "" if no runs exist.
func (j *Journal) LatestRun() (string, error) {
	idx, err := j.loadIndex()
	if err != nil {
		return "", err
	}
	var latest RunEntry
	found := false
	for _, entry := range idx.Runs {
		if !found || entry.StartTime.After(latest.StartTime) {
			latest = entry
			found = true
		}
	}
	if !found {
		return "", nil
	}
	return latest.ID, nil
}

// ListRuns returns every run's metadata, newest first.
func (j *Journal) ListRuns() ([]RunEntry, error) {
	idx, err := j.loadIndex()
	if err != nil {
		return nil, err
	}
	entries := make([]RunEntry, 0, len(idx.Runs))
	for _, e := range idx.Runs {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, k int) bool {
		return entries[i].StartTime.After(entries[k].StartTime)
	})
	return entries, nil
}

// Prune deletes every run directory whose start time is older than olderThan.
// Returns the number of runs pruned. Never touches the node/edge tables.
func (j *Journal) Prune(olderThan time.Duration) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	idx, err := j.loadIndex()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)
	pruned := 0
	for runID, entry := range idx.Runs {
		if entry.StartTime.Before(cutoff) {
			if err := os.RemoveAll(j.runDir(runID)); err != nil {
				continue
			}
			delete(idx.Runs, runID)
			pruned++
		}
	}

	if pruned > 0 {
		if err := j.saveIndex(idx); err != nil {
			return pruned, err
		}
	}
	return pruned, nil
}
