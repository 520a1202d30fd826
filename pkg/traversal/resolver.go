package traversal

import (
	"context"

	"github.com/hashintel/hash-sub007/pkg/temporal"
)

// EdgeResolver looks up one vertex's outgoing edges of a given kind,
// pinned to the query's resolved temporal axes. Decoupled from any
// concrete store so Resolve can be exercised against a fake in tests.
type EdgeResolver interface {
	ResolveEdges(ctx context.Context, kind EdgeKind, from VertexID, axes temporal.Axes) ([]VertexID, error)
}

// PermissionChecker batches a permission probe over candidate
// vertices, keyed by VertexID.Key(), per spec.md §4.6's
// "consult the policy engine once per batch" requirement. A vertex
// absent from the result, or mapped to false, is pruned from the
// subgraph.
type PermissionChecker interface {
	CheckPermissions(ctx context.Context, action string, candidates []VertexID) (map[string]bool, error)
}
