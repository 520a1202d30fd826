// Package traversal implements subgraph resolution (C6): breadth-first
// edge expansion bounded by per-edge-kind depth budgets, with
// permission pruning interleaved batch-by-batch, grounded on the
// teacher's governance.SwarmPDP batch/parallel evaluation pattern.
package traversal

import (
	"github.com/google/uuid"

	"github.com/hashintel/hash-sub007/pkg/ontology"
)

// EdgeKind names one of the fixed ontology/entity edge kinds spec.md
// §4.6 enumerates.
type EdgeKind string

const (
	EdgeConstrainsValuesOn             EdgeKind = "constrainsValuesOn"
	EdgeConstrainsPropertiesOn         EdgeKind = "constrainsPropertiesOn"
	EdgeConstrainsLinksOn              EdgeKind = "constrainsLinksOn"
	EdgeConstrainsLinkDestinationsOn   EdgeKind = "constrainsLinkDestinationsOn"
	EdgeInheritsFrom                   EdgeKind = "inheritsFrom"
	EdgeIsOfType                       EdgeKind = "isOfType"
	EdgeHasLeftEntity                  EdgeKind = "hasLeftEntity"
	EdgeHasRightEntity                 EdgeKind = "hasRightEntity"
)

// OutgoingEdgeResolveDepth is one edge kind's remaining traversal
// budget in each direction. Resolve only walks the Outgoing budget;
// Incoming is carried for wire-shape parity with the request body and
// for resolvers that need it to decide which direction an edge kind
// points (e.g. HasLeftEntity reversed, walking from a link to its
// endpoints), but the BFS itself always decrements Outgoing.
type OutgoingEdgeResolveDepth struct {
	Outgoing int
	Incoming int
}

func (d OutgoingEdgeResolveDepth) decrementOutgoing() OutgoingEdgeResolveDepth {
	d.Outgoing--
	return d
}

// GraphResolveDepths maps each edge kind to its remaining budget. A
// kind absent from the map (or present with Outgoing<=0) is not
// traversed further.
type GraphResolveDepths map[EdgeKind]OutgoingEdgeResolveDepth

// Clone returns an independent copy so decrementing one queue entry's
// budget doesn't mutate a sibling's.
func (d GraphResolveDepths) Clone() GraphResolveDepths {
	out := make(GraphResolveDepths, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func (d GraphResolveDepths) withDecrementedOutgoing(kind EdgeKind) GraphResolveDepths {
	out := d.Clone()
	out[kind] = out[kind].decrementOutgoing()
	return out
}

// hasRemainingBudget reports whether any edge kind still has a
// positive outgoing budget.
func (d GraphResolveDepths) hasRemainingBudget() bool {
	for _, v := range d {
		if v.Outgoing > 0 {
			return true
		}
	}
	return false
}

// VertexID is a single node in the traversal graph: either an
// ontology type (versioned URL) or an entity (uuid), discriminated by
// which field is non-zero.
type VertexID struct {
	OntologyTypeID *ontology.VersionedURL
	EntityID       *uuid.UUID
}

// Key returns the string identity PermissionChecker results are keyed by.
func (v VertexID) Key() string { return v.key() }

func (v VertexID) key() string {
	if v.OntologyTypeID != nil {
		return "ontology:" + v.OntologyTypeID.String()
	}
	if v.EntityID != nil {
		return "entity:" + v.EntityID.String()
	}
	return ""
}
