package traversal

import (
	"github.com/hashintel/hash-sub007/pkg/temporal"
)

// Edge is one directed edge discovered while expanding a vertex.
type Edge struct {
	Kind   EdgeKind
	Source VertexID
	Target VertexID
}

// Subgraph is the output of Resolve: every vertex and edge reached
// within budget and permitted by policy, plus the roots the walk
// started from and the remaining depths recorded for every reached
// vertex,
// per spec.md §4.6.
type Subgraph struct {
	Roots    []VertexID
	Vertices map[string]VertexID
	Edges    []Edge
	Depths   map[string]GraphResolveDepths

	ResolvedTemporalAxes   temporal.Axes
	UnresolvedTemporalAxes *temporal.Axes
}

func newSubgraph(roots []VertexID, resolved temporal.Axes, unresolved *temporal.Axes) *Subgraph {
	sg := &Subgraph{
		Roots:                roots,
		Vertices:             make(map[string]VertexID, len(roots)),
		Depths:               make(map[string]GraphResolveDepths, len(roots)),
		ResolvedTemporalAxes: resolved,
		UnresolvedTemporalAxes: unresolved,
	}
	for _, r := range roots {
		sg.Vertices[r.key()] = r
	}
	return sg
}

func (sg *Subgraph) addVertex(v VertexID) bool {
	k := v.key()
	if _, ok := sg.Vertices[k]; ok {
		return false
	}
	sg.Vertices[k] = v
	return true
}

func (sg *Subgraph) addEdge(e Edge) {
	sg.Edges = append(sg.Edges, e)
}
