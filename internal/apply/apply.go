// ABOUTME: Reconciliation loop: for each node in schedule order, compare current to desired state and invoke set on mismatch.
package apply

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/orbnauticus/angler/internal/handler"
	"github.com/orbnauticus/angler/internal/store"
	"github.com/orbnauticus/angler/internal/uri"
)

// Options controls one apply run.
type Options struct {
	DryRun       bool
	Verify       bool
	GetTimeout   time.Duration
	SetTimeout   time.Duration // 0 means handler.DefaultSetTimeout
	ProgressFunc func(Result)                                  // optional per-node callback, for journaling
	StageFunc    func(stageIndex int)                          // optional, called before each stage starts
	ObserveFunc  func(nodeURI string, current json.RawMessage) // optional, called once current state is known
}

// Outcome classifies what happened to a single node during the apply pass.
type Outcome string

const (
	OutcomeSkippedNoHandler Outcome = "skipped_no_handler"
	OutcomeSkippedGetFailed Outcome = "skipped_get_failed"
	OutcomeSkippedMatch     Outcome = "skipped_match"
	OutcomeWouldApply       Outcome = "would_apply"
	OutcomeApplied          Outcome = "applied"
	OutcomeSetFailed        Outcome = "set_failed"
)

// Result records what the loop did for one node.
type Result struct {
	URI      string
	Outcome  Outcome
	Current  json.RawMessage
	Desired  json.RawMessage
	Err      error
	Verified *bool // nil unless Options.Verify was set and set succeeded
}

// Counters totals a run's per-node outcomes.
type Counters struct {
	Run     int
	Skipped int
	Errors  int
}

func (c *Counters) record(r Result) {
	switch r.Outcome {
	case OutcomeApplied, OutcomeWouldApply:
		c.Run++
	case OutcomeSkippedNoHandler, OutcomeSkippedMatch:
		c.Skipped++
	case OutcomeSkippedGetFailed, OutcomeSetFailed:
		c.Errors++
	}
}

// Run walks stages in order, applying each node serially. It never aborts on
// a single node's failure; every failure is recorded in the returned
// Counters and, if ProgressFunc is set, reported as it happens.
func Run(ctx context.Context, s *store.Store, reg *handler.Registry, stages [][]string, opts Options) (Counters, error) {
	var counters Counters
	for i, stage := range stages {
		if opts.StageFunc != nil {
			opts.StageFunc(i)
		}
		for _, u := range stage {
			if err := ctx.Err(); err != nil {
				return counters, err
			}
			result := applyOne(ctx, s, reg, u, opts)
			counters.record(result)
			if opts.ProgressFunc != nil {
				opts.ProgressFunc(result)
			}
		}
	}
	return counters, nil
}

func applyOne(ctx context.Context, s *store.Store, reg *handler.Registry, nodeURI string, opts Options) Result {
	node, ok, err := s.GetNode(nodeURI)
	if err != nil || !ok {
		log.Printf("component=apply action=missing_node node=%s err=%v", nodeURI, err)
		return Result{URI: nodeURI, Outcome: OutcomeSkippedNoHandler, Err: err}
	}

	parts, err := uri.Split(nodeURI)
	if err != nil {
		log.Printf("component=apply action=invalid_uri node=%s err=%v", nodeURI, err)
		return Result{URI: nodeURI, Outcome: OutcomeSkippedNoHandler, Err: err}
	}

	path, ok := reg.HandlerFor(parts.Scheme)
	if !ok {
		log.Printf("component=apply action=missing_handler node=%s scheme=%s", nodeURI, parts.Scheme)
		return Result{URI: nodeURI, Outcome: OutcomeSkippedNoHandler}
	}

	current, err := handler.Get(ctx, path, parts, opts.GetTimeout)
	if err != nil {
		log.Printf("component=apply action=get_failed node=%s err=%v", nodeURI, err)
		return Result{URI: nodeURI, Outcome: OutcomeSkippedGetFailed, Err: err}
	}
	if opts.ObserveFunc != nil {
		opts.ObserveFunc(nodeURI, current)
	}

	if jsonEqual(current, node.Value) {
		log.Printf("component=apply action=skip node=%s", nodeURI)
		return Result{URI: nodeURI, Outcome: OutcomeSkippedMatch, Current: current, Desired: node.Value}
	}

	if opts.DryRun {
		log.Printf("component=apply action=would_apply node=%s", nodeURI)
		return Result{URI: nodeURI, Outcome: OutcomeWouldApply, Current: current, Desired: node.Value}
	}

	setTimeout := opts.SetTimeout
	if setTimeout <= 0 {
		setTimeout = handler.DefaultSetTimeout
	}
	if err := handler.Set(ctx, path, parts, current, node.Value, setTimeout); err != nil {
		log.Printf("component=apply action=set_failed node=%s err=%v", nodeURI, err)
		return Result{URI: nodeURI, Outcome: OutcomeSetFailed, Current: current, Desired: node.Value, Err: err}
	}

	result := Result{URI: nodeURI, Outcome: OutcomeApplied, Current: current, Desired: node.Value}
	if opts.Verify {
		verified, err := handler.Get(ctx, path, parts, opts.GetTimeout)
		if err != nil {
			log.Printf("component=apply action=verify_failed node=%s err=%v", nodeURI, err)
		} else {
			ok := jsonEqual(verified, node.Value)
			result.Verified = &ok
			log.Printf("component=apply action=verify node=%s matches=%v", nodeURI, ok)
		}
	}
	return result
}

// jsonEqual compares two JSON documents by decoded value rather than by
// byte representation, so key order and whitespace never cause a spurious
// mismatch.
func jsonEqual(a, b json.RawMessage) bool {
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}
	return deepEqualJSON(av, bv)
}

func deepEqualJSON(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !deepEqualJSON(v, bvv) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqualJSON(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
