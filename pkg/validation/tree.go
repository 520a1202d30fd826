// Package validation implements the entity/property validation engine
// (C5): a depth-first walk over a decoded property tree driven by a
// closed multi-type schema, producing per-property diagnostics plus
// link-target validation (spec.md §4.3).
package validation

import "github.com/hashintel/hash-sub007/pkg/ontology"

// NodeKind discriminates a PropertyNode's shape, mirroring the
// Value/Object/Array tagging of ontology.PropertyValue.
type NodeKind int

const (
	NodeValue NodeKind = iota
	NodeObject
	NodeArray
)

// ValueMetadata carries the provenance HASH requires alongside a leaf
// scalar: the data type it was written under, and the canonical
// numeric representations computed for every convertible target
// (spec.md §4.3 rule 2). Canonical is populated/mutated in place by
// ValidateEntity.
type ValueMetadata struct {
	DataTypeID *ontology.VersionedURL
	Canonical  map[ontology.BaseURL]float64
}

// PropertyNode is one node of a decoded entity property tree.
type PropertyNode struct {
	Kind NodeKind

	// Kind == NodeValue
	Value    any
	Metadata ValueMetadata

	// Kind == NodeObject
	Object map[ontology.BaseURL]PropertyNode

	// Kind == NodeArray
	Array []PropertyNode
}

// Value builds a NodeValue leaf with freshly-allocated canonical map.
func Value(v any, dataTypeID *ontology.VersionedURL) PropertyNode {
	return PropertyNode{
		Kind:     NodeValue,
		Value:    v,
		Metadata: ValueMetadata{DataTypeID: dataTypeID, Canonical: make(map[ontology.BaseURL]float64)},
	}
}

// Object builds a NodeObject node.
func Object(fields map[ontology.BaseURL]PropertyNode) PropertyNode {
	return PropertyNode{Kind: NodeObject, Object: fields}
}

// Array builds a NodeArray node.
func Array(items []PropertyNode) PropertyNode {
	return PropertyNode{Kind: NodeArray, Array: items}
}
