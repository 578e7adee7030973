// ABOUTME: Recursively expands freshly-inserted nodes by consulting their handler's node/incoming/outgoing hooks.
package elaborate

import (
	"context"
	"log"
	"time"

	"github.com/orbnauticus/angler/internal/handler"
	"github.com/orbnauticus/angler/internal/store"
	"github.com/orbnauticus/angler/internal/uri"
)

// DefaultMaxDepth bounds elaboration recursion per root node, guarding
// against a misbehaving handler that keeps declaring new nodes forever.
const DefaultMaxDepth = 64

// Driver runs the elaboration protocol: expand a freshly-inserted node by
// consulting its handler's node/incoming/outgoing hooks, recursively.
type Driver struct {
	Store    *store.Store
	Registry *handler.Registry
	MaxDepth int           // 0 means DefaultMaxDepth
	Timeout  time.Duration // applied to node/incoming/outgoing hook invocations; 0 means no timeout

	// OverflowFunc, if set, is called when a root node's recursion exceeds
	// MaxDepth, in addition to the warning logged unconditionally.
	OverflowFunc func(rootURI, nodeURI string, depth int)
}

// New constructs a Driver with DefaultMaxDepth.
func New(s *store.Store, reg *handler.Registry) *Driver {
	return &Driver{Store: s, Registry: reg, MaxDepth: DefaultMaxDepth}
}

func (d *Driver) maxDepth() int {
	if d.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return d.MaxDepth
}

// Elaborate expands rootURI, which must already be persisted, recursing into
// every node it implies until a fixpoint or the recursion bound is reached.
func (d *Driver) Elaborate(ctx context.Context, rootURI string) error {
	return d.elaborateNode(ctx, rootURI, rootURI, 0)
}

func (d *Driver) elaborateNode(ctx context.Context, rootURI, nodeURI string, depth int) error {
	if depth > d.maxDepth() {
		log.Printf("component=elaborate action=overflow root=%s node=%s depth=%d", rootURI, nodeURI, depth)
		if d.OverflowFunc != nil {
			d.OverflowFunc(rootURI, nodeURI, depth)
		}
		return nil
	}

	parts, err := uri.Split(nodeURI)
	if err != nil {
		return err
	}

	path, ok := d.Registry.HandlerFor(parts.Scheme)
	if !ok {
		log.Printf("component=elaborate action=missing_handler node=%s scheme=%s", nodeURI, parts.Scheme)
		return nil
	}

	nodes, edges, err := handler.NodeHook(ctx, path, parts, d.Timeout)
	if err != nil {
		log.Printf("component=elaborate action=node_hook_failed node=%s err=%v", nodeURI, err)
		return nil
	}

	author := nodeURI
	for _, implied := range nodes {
		outcome, err := d.Store.InsertNode(implied.URI, implied.Value, &author)
		if err != nil {
			log.Printf("component=elaborate action=insert_node_failed node=%s author=%s err=%v", implied.URI, author, err)
			continue
		}
		if outcome == store.Inserted {
			if err := d.elaborateNode(ctx, rootURI, implied.URI, depth+1); err != nil {
				return err
			}
		}
	}

	for _, implied := range edges {
		if err := d.insertImpliedEdge(ctx, author, implied.Source, implied.Sink, depth+1); err != nil {
			return err
		}
	}

	return nil
}

// insertImpliedEdge inserts a handler-declared edge and, when the edge is
// genuinely new, fires the sink's incoming hook and the source's outgoing
// hook so both sides may react.
func (d *Driver) insertImpliedEdge(ctx context.Context, author, source, sink string, depth int) error {
	outcome, err := d.Store.InsertEdge(source, sink, &author)
	if err != nil {
		log.Printf("component=elaborate action=insert_edge_failed source=%s sink=%s err=%v", source, sink, err)
		return nil
	}
	if outcome != store.Inserted {
		return nil
	}

	sourceParts, err := uri.Split(source)
	if err != nil {
		return nil
	}
	sinkParts, err := uri.Split(sink)
	if err != nil {
		return nil
	}

	if path, ok := d.Registry.HandlerFor(sourceParts.Scheme); ok {
		nodes, edges, err := handler.OutgoingHook(ctx, path, sourceParts, sinkParts, d.Timeout)
		if err != nil {
			log.Printf("component=elaborate action=outgoing_hook_failed source=%s sink=%s err=%v", source, sink, err)
		} else if err := d.absorb(ctx, source, nodes, edges, depth); err != nil {
			return err
		}
	}

	if path, ok := d.Registry.HandlerFor(sinkParts.Scheme); ok {
		nodes, edges, err := handler.IncomingHook(ctx, path, sinkParts, sourceParts, d.Timeout)
		if err != nil {
			log.Printf("component=elaborate action=incoming_hook_failed source=%s sink=%s err=%v", source, sink, err)
		} else if err := d.absorb(ctx, sink, nodes, edges, depth); err != nil {
			return err
		}
	}

	return nil
}

func (d *Driver) absorb(ctx context.Context, author string, nodes []handler.ImpliedNode, edges []handler.ImpliedEdge, depth int) error {
	for _, implied := range nodes {
		a := author
		outcome, err := d.Store.InsertNode(implied.URI, implied.Value, &a)
		if err != nil {
			log.Printf("component=elaborate action=insert_node_failed node=%s author=%s err=%v", implied.URI, author, err)
			continue
		}
		if outcome == store.Inserted {
			if err := d.elaborateNode(ctx, author, implied.URI, depth); err != nil {
				return err
			}
		}
	}
	for _, implied := range edges {
		if err := d.insertImpliedEdge(ctx, author, implied.Source, implied.Sink, depth); err != nil {
			return err
		}
	}
	return nil
}
