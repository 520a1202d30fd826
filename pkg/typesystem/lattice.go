package typesystem

// Lattice wraps an Interner with the join/meet/subtyping operations
// of spec.md §4.4: Unknown is top, Never is bottom, Union takes joins
// variant-wise and Intersection takes meets variant-wise.
type Lattice struct {
	in *Interner
}

// NewLattice builds a Lattice over an existing Interner.
func NewLattice(in *Interner) *Lattice {
	return &Lattice{in: in}
}

// IsSubtypeOf reports whether sub <: sup. Handle equality short-circuits
// to true; Never is bottom (subtype of everything); Unknown is top
// (everything is a subtype of it); unions are subtypes when every
// variant is; intersections are supertypes when every member is a
// supertype of sub.
func (l *Lattice) IsSubtypeOf(sub, sup Handle) bool {
	if sub == sup {
		return true
	}
	if sub == HandleNever || sup == HandleUnknown {
		return true
	}
	if sub == HandleUnknown || sup == HandleNever {
		return false
	}

	subNode := l.in.Get(sub)
	supNode := l.in.Get(sup)

	switch subNode.Kind {
	case KindUnion:
		for _, v := range subNode.Elems {
			if !l.IsSubtypeOf(v, sup) {
				return false
			}
		}
		return true
	case KindIntersection:
		for _, v := range subNode.Elems {
			if l.IsSubtypeOf(v, sup) {
				return true
			}
		}
		return false
	}

	switch supNode.Kind {
	case KindUnion:
		for _, v := range supNode.Elems {
			if l.IsSubtypeOf(sub, v) {
				return true
			}
		}
		return false
	case KindIntersection:
		for _, v := range supNode.Elems {
			if !l.IsSubtypeOf(sub, v) {
				return false
			}
		}
		return true
	}

	if subNode.Kind != supNode.Kind {
		return false
	}

	switch subNode.Kind {
	case KindPrimitive:
		return subNode.Primitive == supNode.Primitive
	case KindIntrinsic:
		return subNode.Intrinsic == supNode.Intrinsic
	case KindOpaque:
		return subNode.OpaqueName == supNode.OpaqueName && l.IsSubtypeOf(subNode.OpaqueInner, supNode.OpaqueInner)
	case KindTuple:
		if len(subNode.Elems) != len(supNode.Elems) {
			return false
		}
		for i := range subNode.Elems {
			if !l.IsSubtypeOf(subNode.Elems[i], supNode.Elems[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Join computes a ∨ b, the least upper bound. Per spec.md §4.4:
// A ∨ Never = A, A ∨ Unknown = Unknown, and joining into an existing
// Union flattens rather than nesting.
func (l *Lattice) Join(a, b Handle) Handle {
	if a == b {
		return a
	}
	if a == HandleNever {
		return b
	}
	if b == HandleNever {
		return a
	}
	if a == HandleUnknown || b == HandleUnknown {
		return HandleUnknown
	}
	if l.IsSubtypeOf(a, b) {
		return b
	}
	if l.IsSubtypeOf(b, a) {
		return a
	}

	variants := l.flattenUnion(a)
	variants = append(variants, l.flattenUnion(b)...)
	return l.simplifyUnion(variants)
}

// Meet computes a ∧ b, the greatest lower bound, dually to Join:
// A ∧ Unknown = A, A ∧ Never = Never.
func (l *Lattice) Meet(a, b Handle) Handle {
	if a == b {
		return a
	}
	if a == HandleUnknown {
		return b
	}
	if b == HandleUnknown {
		return a
	}
	if a == HandleNever || b == HandleNever {
		return HandleNever
	}
	if l.IsSubtypeOf(a, b) {
		return a
	}
	if l.IsSubtypeOf(b, a) {
		return b
	}

	members := l.flattenIntersection(a)
	members = append(members, l.flattenIntersection(b)...)
	return l.simplifyIntersection(members)
}

func (l *Lattice) flattenUnion(h Handle) []Handle {
	n := l.in.Get(h)
	if n.Kind == KindUnion {
		return append([]Handle(nil), n.Elems...)
	}
	return []Handle{h}
}

func (l *Lattice) flattenIntersection(h Handle) []Handle {
	n := l.in.Get(h)
	if n.Kind == KindIntersection {
		return append([]Handle(nil), n.Elems...)
	}
	return []Handle{h}
}

// simplifyUnion removes variants that are subtypes of another variant
// present in the set (Simplify, spec.md §4.4), then interns the result.
// A singleton union collapses to its one member.
func (l *Lattice) simplifyUnion(variants []Handle) Handle {
	kept := dedupHandles(variants)
	kept = removeRedundant(kept, func(x, y Handle) bool { return l.IsSubtypeOf(x, y) })
	if len(kept) == 1 {
		return kept[0]
	}
	return l.in.Intern(Node{Kind: KindUnion, Elems: kept})
}

// simplifyIntersection removes members that are supertypes of another
// member present in the set, then interns the result.
func (l *Lattice) simplifyIntersection(members []Handle) Handle {
	kept := dedupHandles(members)
	kept = removeRedundant(kept, func(x, y Handle) bool { return l.IsSubtypeOf(y, x) })
	if len(kept) == 1 {
		return kept[0]
	}
	return l.in.Intern(Node{Kind: KindIntersection, Elems: kept})
}

func dedupHandles(hs []Handle) []Handle {
	seen := make(map[Handle]struct{}, len(hs))
	out := make([]Handle, 0, len(hs))
	for _, h := range hs {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// removeRedundant drops hs[i] when redundant(hs[i], hs[j]) holds for
// some other j — i.e. hs[i] is absorbed by hs[j].
func removeRedundant(hs []Handle, redundant func(x, y Handle) bool) []Handle {
	out := make([]Handle, 0, len(hs))
	for i, x := range hs {
		absorbed := false
		for j, y := range hs {
			if i == j {
				continue
			}
			if redundant(x, y) && !redundant(y, x) {
				absorbed = true
				break
			}
			if redundant(x, y) && redundant(y, x) && j < i {
				// structurally-equivalent pair: keep only the earlier one
				absorbed = true
				break
			}
		}
		if !absorbed {
			out = append(out, x)
		}
	}
	return out
}

// Simplify re-normalizes a type, flattening nested unions/intersections
// and dropping redundant variants/members.
func (l *Lattice) Simplify(h Handle) Handle {
	n := l.in.Get(h)
	switch n.Kind {
	case KindUnion:
		return l.simplifyUnion(l.flattenUnion(h))
	case KindIntersection:
		return l.simplifyIntersection(l.flattenIntersection(h))
	default:
		return h
	}
}
