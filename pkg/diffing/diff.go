// Package diffing implements the structural diff between two
// editions of an entity's property tree (the `POST /entities/diff`
// surface's business logic), grounded on the source's
// `diff_entity`/`DiffEntityResult`/`PropertyDiff` shapes.
package diffing

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Op names one structural change, matching spec.md scenario 1's
// literal wire shape (`{ op, path, from, to }`) rather than RFC 6902's
// pointer-string/"value" convention — Diff is a read-only comparison,
// not an appliable patch.
type Op string

const (
	OpAdd     Op = "add"
	OpRemove  Op = "remove"
	OpReplace Op = "replace"
)

// PropertyDiff is one structural difference between two property
// trees. Path is a sequence of object keys / array indices (as
// strings) from the tree root, matching spec.md's `path: [name]`.
type PropertyDiff struct {
	Op   Op              `json:"op"`
	Path []string        `json:"path"`
	From json.RawMessage `json:"from,omitempty"`
	To   json.RawMessage `json:"to,omitempty"`
}

// Diff computes the minimal set of structural changes turning from's
// decoded property tree into to's, walking both recursively and
// emitting one PropertyDiff per divergent leaf or missing/added key —
// not a byte-level diff, since canonical-value insertion (pkg/validation)
// means two semantically-equal trees can differ byte-for-byte.
func Diff(from, to json.RawMessage) ([]PropertyDiff, error) {
	var a, b any
	if len(from) > 0 {
		if err := json.Unmarshal(from, &a); err != nil {
			return nil, fmt.Errorf("diffing: decode from: %w", err)
		}
	}
	if len(to) > 0 {
		if err := json.Unmarshal(to, &b); err != nil {
			return nil, fmt.Errorf("diffing: decode to: %w", err)
		}
	}
	var diffs []PropertyDiff
	walk(nil, a, b, &diffs)
	return diffs, nil
}

func walk(path []string, a, b any, out *[]PropertyDiff) {
	aMap, aIsMap := a.(map[string]any)
	bMap, bIsMap := b.(map[string]any)
	if aIsMap && bIsMap {
		walkObject(path, aMap, bMap, out)
		return
	}

	aArr, aIsArr := a.([]any)
	bArr, bIsArr := b.([]any)
	if aIsArr && bIsArr {
		walkArray(path, aArr, bArr, out)
		return
	}

	if a == nil && b == nil {
		return
	}
	if a == nil {
		*out = append(*out, PropertyDiff{Op: OpAdd, Path: clonePath(path), To: mustEncode(b)})
		return
	}
	if b == nil {
		*out = append(*out, PropertyDiff{Op: OpRemove, Path: clonePath(path), From: mustEncode(a)})
		return
	}
	if !valuesEqual(a, b) {
		*out = append(*out, PropertyDiff{Op: OpReplace, Path: clonePath(path), From: mustEncode(a), To: mustEncode(b)})
	}
}

func walkObject(path []string, a, b map[string]any, out *[]PropertyDiff) {
	keys := make(map[string]bool, len(a)+len(b))
	for k := range a {
		keys[k] = true
	}
	for k := range b {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		av, aok := a[k]
		bv, bok := b[k]
		childPath := append(append([]string(nil), path...), k)
		switch {
		case aok && !bok:
			*out = append(*out, PropertyDiff{Op: OpRemove, Path: childPath, From: mustEncode(av)})
		case !aok && bok:
			*out = append(*out, PropertyDiff{Op: OpAdd, Path: childPath, To: mustEncode(bv)})
		default:
			walk(childPath, av, bv, out)
		}
	}
}

func walkArray(path []string, a, b []any, out *[]PropertyDiff) {
	max := len(a)
	if len(b) > max {
		max = len(b)
	}
	for i := 0; i < max; i++ {
		idx := fmt.Sprintf("%d", i)
		childPath := append(append([]string(nil), path...), idx)
		switch {
		case i >= len(b):
			*out = append(*out, PropertyDiff{Op: OpRemove, Path: childPath, From: mustEncode(a[i])})
		case i >= len(a):
			*out = append(*out, PropertyDiff{Op: OpAdd, Path: childPath, To: mustEncode(b[i])})
		default:
			walk(childPath, a[i], b[i], out)
		}
	}
}

func valuesEqual(a, b any) bool {
	return mustEncodeString(a) == mustEncodeString(b)
}

func mustEncode(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func mustEncodeString(v any) string { return string(mustEncode(v)) }

func clonePath(path []string) []string { return append([]string(nil), path...) }
