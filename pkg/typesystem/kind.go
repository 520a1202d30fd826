// Package typesystem implements HashQL's lattice type system (C2):
// type kinds, join/meet, subtyping, and a bidirectional inference
// solver over interned, handle-addressed types (spec.md §4.4, §9).
package typesystem

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Handle is a stable, process-wide index into the Interner's arena.
// Equality of types reduces to equality of their Handle; hashing uses
// the Handle directly. Handles never cross Interner boundaries.
type Handle uint32

// Kind discriminates the nine members of the TypeKind lattice
// (spec.md §3/§4.4).
type Kind int

const (
	KindNever Kind = iota
	KindUnknown
	KindPrimitive
	KindOpaque
	KindIntrinsic
	KindTuple
	KindUnion
	KindIntersection
	KindInfer
)

func (k Kind) String() string {
	switch k {
	case KindNever:
		return "Never"
	case KindUnknown:
		return "Unknown"
	case KindPrimitive:
		return "Primitive"
	case KindOpaque:
		return "Opaque"
	case KindIntrinsic:
		return "Intrinsic"
	case KindTuple:
		return "Tuple"
	case KindUnion:
		return "Union"
	case KindIntersection:
		return "Intersection"
	case KindInfer:
		return "Infer"
	default:
		return "?"
	}
}

// VarID names an inference hole (spec.md §4.4's `Infer(hole)`).
type VarID uint32

// Node is the structural payload of one interned type. Only the
// fields relevant to Kind are meaningful.
type Node struct {
	Kind Kind

	Primitive string // KindPrimitive: "string" | "number" | "boolean" | "null"

	OpaqueName  string // KindOpaque
	OpaqueInner Handle

	Intrinsic string // KindIntrinsic: e.g. "list", "dict"

	Elems []Handle // KindTuple / KindUnion / KindIntersection

	Var VarID // KindInfer
}

// key returns a structural string uniquely identifying a Node for
// interning dedup — two structurally-equal nodes intern to the same
// Handle, so pointer/handle equality implies structural equality.
func (n Node) key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|", n.Kind)
	switch n.Kind {
	case KindPrimitive:
		b.WriteString(n.Primitive)
	case KindOpaque:
		fmt.Fprintf(&b, "%s:%d", n.OpaqueName, n.OpaqueInner)
	case KindIntrinsic:
		b.WriteString(n.Intrinsic)
	case KindTuple:
		for _, e := range n.Elems {
			fmt.Fprintf(&b, "%d,", e)
		}
	case KindUnion, KindIntersection:
		sorted := append([]Handle(nil), n.Elems...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		for _, e := range sorted {
			fmt.Fprintf(&b, "%d,", e)
		}
	case KindInfer:
		fmt.Fprintf(&b, "%d", n.Var)
	}
	return b.String()
}

// Interner is the process-wide, append-only arena for types. Writes
// (Intern) take a writer lock; reads (Get) are served from an
// immutable snapshot slice so they never block each other — matching
// spec.md §5's "writes take a writer lock, reads are lock-free over an
// immutable snapshot" (approximated here with a RWMutex, since Go
// offers no true lock-free growable slice in the standard library;
// the write path only ever appends, never mutates in place, so a
// held RLock is uncontended in practice).
type Interner struct {
	mu    sync.RWMutex
	nodes []Node
	index map[string]Handle
}

// NewInterner creates an interner pre-seeded with the fixed Never and
// Unknown handles (bottom and top of the lattice).
func NewInterner() *Interner {
	in := &Interner{index: make(map[string]Handle)}
	never := in.intern(Node{Kind: KindNever})
	unknown := in.intern(Node{Kind: KindUnknown})
	if never != HandleNever || unknown != HandleUnknown {
		panic("typesystem: Never/Unknown must be the first two interned handles")
	}
	return in
}

// HandleNever and HandleUnknown are the fixed handles of ⊥ and ⊤,
// guaranteed stable by NewInterner's construction order.
const (
	HandleNever   Handle = 0
	HandleUnknown Handle = 1
)

// Intern returns the Handle for node, allocating a new one only if no
// structurally-equal node has been interned yet.
func (in *Interner) Intern(node Node) Handle {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.intern(node)
}

func (in *Interner) intern(node Node) Handle {
	k := node.key()
	if h, ok := in.index[k]; ok {
		return h
	}
	h := Handle(len(in.nodes))
	in.nodes = append(in.nodes, node)
	in.index[k] = h
	return h
}

// Get returns the node a Handle refers to.
func (in *Interner) Get(h Handle) Node {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.nodes[h]
}

// Primitive interns a primitive type.
func (in *Interner) Primitive(name string) Handle {
	return in.Intern(Node{Kind: KindPrimitive, Primitive: name})
}

// Opaque interns an opaque (newtype) wrapper around inner.
func (in *Interner) Opaque(name string, inner Handle) Handle {
	return in.Intern(Node{Kind: KindOpaque, OpaqueName: name, OpaqueInner: inner})
}

// Tuple interns a fixed-arity tuple.
func (in *Interner) Tuple(elems ...Handle) Handle {
	return in.Intern(Node{Kind: KindTuple, Elems: append([]Handle(nil), elems...)})
}

// Infer interns a fresh inference variable wrapper around v.
func (in *Interner) Infer(v VarID) Handle {
	return in.Intern(Node{Kind: KindInfer, Var: v})
}
