package traversal

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hashintel/hash-sub007/pkg/temporal"
)

type queueEntry struct {
	vertex VertexID
	depths GraphResolveDepths
}

// Resolve performs the BFS subgraph walk spec.md §4.6 describes:
// starting from roots, for every queue entry and every edge kind with
// a positive outgoing budget, the resolver is asked for that vertex's
// edges of that kind; once a full BFS round's edges are gathered, the
// permission checker is consulted once for the whole batch of newly
// reached endpoints, and only permitted ones are added to the
// subgraph and re-enqueued with their budget decremented.
//
// action names the permission this traversal is gated on (e.g.
// "view_entity"); maxParallel bounds the concurrent edge-resolution
// fan-out within a round, grounded on the teacher's
// SwarmPDP.EvaluateBatch semaphore-bounded parallel evaluation.
// unresolvedAxes is the caller's original request axes, before any
// server-side defaulting filled in the pinned timestamp or variable
// interval bounds that produced resolvedAxes; it is carried on the
// output Subgraph unchanged so a client can tell what was defaulted.
// Pass nil when the request already specified both axes explicitly.
func Resolve(
	ctx context.Context,
	roots []VertexID,
	initialDepths GraphResolveDepths,
	resolvedAxes temporal.Axes,
	unresolvedAxes *temporal.Axes,
	resolver EdgeResolver,
	checker PermissionChecker,
	action string,
	maxParallel int,
) (*Subgraph, error) {
	sg := newSubgraph(roots, resolvedAxes, unresolvedAxes)

	queue := make([]queueEntry, 0, len(roots))
	for _, r := range roots {
		d := initialDepths.Clone()
		sg.Depths[r.key()] = d
		queue = append(queue, queueEntry{vertex: r, depths: d})
	}

	for len(queue) > 0 {
		next, err := resolveRound(ctx, queue, sg, resolver, checker, action, maxParallel)
		if err != nil {
			return nil, err
		}
		queue = next
	}
	return sg, nil
}

type roundEdge struct {
	kind   EdgeKind
	source VertexID
	target VertexID
}

func resolveRound(
	ctx context.Context,
	queue []queueEntry,
	sg *Subgraph,
	resolver EdgeResolver,
	checker PermissionChecker,
	action string,
	maxParallel int,
) ([]queueEntry, error) {
	type job struct {
		entry queueEntry
		kind  EdgeKind
	}
	var jobs []job
	for _, e := range queue {
		if !e.depths.hasRemainingBudget() {
			continue
		}
		kinds := make([]EdgeKind, 0, len(e.depths))
		for k := range e.depths {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
		for _, k := range kinds {
			if e.depths[k].Outgoing > 0 {
				jobs = append(jobs, job{entry: e, kind: k})
			}
		}
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	edgesPerJob := make([][]roundEdge, len(jobs))
	g, gCtx := errgroup.WithContext(ctx)
	if maxParallel > 0 {
		g.SetLimit(maxParallel)
	}
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			targets, err := resolver.ResolveEdges(gCtx, j.kind, j.entry.vertex, sg.ResolvedTemporalAxes)
			if err != nil {
				return fmt.Errorf("traversal: resolve %s edges from %s: %w", j.kind, j.entry.vertex.key(), err)
			}
			out := make([]roundEdge, 0, len(targets))
			for _, t := range targets {
				out = append(out, roundEdge{kind: j.kind, source: j.entry.vertex, target: t})
			}
			edgesPerJob[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidateSet := make(map[string]VertexID)
	var allEdges []roundEdge
	for _, edges := range edgesPerJob {
		for _, e := range edges {
			allEdges = append(allEdges, e)
			candidateSet[e.target.key()] = e.target
		}
	}
	if len(allEdges) == 0 {
		return nil, nil
	}

	candidates := make([]VertexID, 0, len(candidateSet))
	for _, v := range candidateSet {
		candidates = append(candidates, v)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].key() < candidates[j].key() })

	permitted, err := checker.CheckPermissions(ctx, action, candidates)
	if err != nil {
		return nil, fmt.Errorf("traversal: permission batch: %w", err)
	}

	entryByKey := make(map[string]queueEntry, len(queue))
	for _, e := range queue {
		entryByKey[e.vertex.key()] = e
	}

	var nextQueue []queueEntry
	seenNext := make(map[string]bool)
	for _, e := range allEdges {
		if !permitted[e.target.key()] {
			continue
		}
		sg.addEdge(Edge{Kind: e.kind, Source: e.source, Target: e.target})
		isNewVertex := sg.addVertex(e.target)

		sourceEntry := entryByKey[e.source.key()]
		nextDepths := sourceEntry.depths.withDecrementedOutgoing(e.kind)
		if existing, ok := sg.Depths[e.target.key()]; ok && !isNewVertex {
			nextDepths = mergeDepths(existing, nextDepths)
		}
		sg.Depths[e.target.key()] = nextDepths

		if !seenNext[e.target.key()] {
			seenNext[e.target.key()] = true
			nextQueue = append(nextQueue, queueEntry{vertex: e.target, depths: nextDepths})
		}
	}
	return nextQueue, nil
}

// mergeDepths keeps the larger remaining budget per kind when a
// vertex is reached via more than one path in the same round.
func mergeDepths(a, b GraphResolveDepths) GraphResolveDepths {
	out := a.Clone()
	for k, v := range b {
		if cur, ok := out[k]; !ok || v.Outgoing > cur.Outgoing {
			out[k] = v
		}
	}
	return out
}
