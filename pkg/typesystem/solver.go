package typesystem

import (
	"fmt"
	"sort"

	"github.com/hashintel/hash-sub007/pkg/diagnostics"
)

// Diagnostic codes raised by the solver (spec.md §9).
const (
	CodeUnconstrainedTypeVariable      = "HQL-UNCONSTRAINED-VAR"
	CodeConflictingEqualityConstraints = "HQL-CONFLICTING-EQ"
	CodeIncompatibleUpperEqual         = "HQL-INCOMPATIBLE-UPPER-EQ"
	CodeIncompatibleLowerEqual         = "HQL-INCOMPATIBLE-LOWER-EQ"
	CodeBoundConstraintViolation       = "HQL-BOUND-VIOLATION"
)

// Solution is the solver's per-variable verdict: the narrowest handle
// consistent with every constraint collected for that variable.
type Solution struct {
	Resolved map[VarID]Handle
}

// Solver runs the five-pass resolution pipeline described in
// spec.md §9: Upsert accumulates raw constraints per variable; the
// anti-symmetry pass unifies variables joined by an Ordering cycle;
// Collect partitions constraints by (unified) variable; Solve reduces
// each partition to a single handle via join/meet; Simplify
// re-normalizes the resulting handles.
type Solver struct {
	lattice     *Lattice
	constraints []Constraint
	declared    map[VarID]struct{}
	uf          *UnionFind
}

// NewSolver creates a solver over lattice, with an empty constraint set.
func NewSolver(lattice *Lattice) *Solver {
	return &Solver{lattice: lattice, uf: NewUnionFind(), declared: make(map[VarID]struct{})}
}

// Upsert records one constraint, merging it into the solver's working
// set. Ordering cycles are detected later, by the anti-symmetry pass
// that Solve runs once every constraint is present.
func (s *Solver) Upsert(c Constraint) {
	s.constraints = append(s.constraints, c)
	switch c.Kind {
	case ConstraintEquals, ConstraintLowerBound, ConstraintUpperBound:
		s.declared[c.Var] = struct{}{}
	case ConstraintOrdering:
		s.declared[c.Var] = struct{}{}
		s.declared[c.Lower] = struct{}{}
		s.declared[c.Upper] = struct{}{}
	case ConstraintStructuralEdge:
		s.declared[c.StructuralFrom] = struct{}{}
		s.declared[c.StructuralTo] = struct{}{}
	}
}

// Declare registers a variable as introduced during inference even if
// it never receives a bound, so Solve can report it as unconstrained
// rather than silently dropping it (spec.md §9).
func (s *Solver) Declare(v VarID) {
	s.declared[v] = struct{}{}
}

// unifyAntiSymmetry merges variables that form a Lower<:V<:Upper cycle
// — i.e. where some other constraint makes Upper a lower bound of
// Lower (or vice versa) — since mutual subtyping forces equality
// (spec.md §9 "SCC unification over the ordering graph").
func (s *Solver) unifyAntiSymmetry() {
	edges := map[VarID][]VarID{}
	for _, c := range s.constraints {
		switch c.Kind {
		case ConstraintOrdering:
			edges[c.Lower] = append(edges[c.Lower], c.Var)
			edges[c.Var] = append(edges[c.Var], c.Upper)
		case ConstraintStructuralEdge:
			edges[c.StructuralFrom] = append(edges[c.StructuralFrom], c.StructuralTo)
		}
	}

	// Tarjan-free SCC via repeated reachability is adequate here: the
	// graphs produced by a single HashQL expression's constraint set
	// are small (bounded by the number of inference variables in one
	// query), so an O(V*E) closure is acceptable per spec.md's
	// non-goal on large-scale constraint graphs.
	for v := range edges {
		for _, w := range edges[v] {
			if s.reaches(edges, w, v, map[VarID]bool{}) {
				s.uf.Union(v, w)
			}
		}
	}
}

func (s *Solver) reaches(edges map[VarID][]VarID, from, to VarID, seen map[VarID]bool) bool {
	if from == to {
		return true
	}
	if seen[from] {
		return false
	}
	seen[from] = true
	for _, w := range edges[from] {
		if s.reaches(edges, w, to, seen) {
			return true
		}
	}
	return false
}

// collected is the per-variable working state fed to Solve.
type collected struct {
	equals []Handle
	lowers []Handle
	uppers []Handle
}

// Solve runs the full pipeline and returns the resolved handles plus
// any diagnostics raised along the way (conflicting equalities,
// incompatible bound combinations, or variables left unconstrained).
func (s *Solver) Solve() (Solution, *diagnostics.Bag) {
	bag := diagnostics.NewBag()
	s.unifyAntiSymmetry()

	byVar := map[VarID]*collected{}
	ensure := func(v VarID) *collected {
		r := s.uf.Find(v)
		c, ok := byVar[r]
		if !ok {
			c = &collected{}
			byVar[r] = c
		}
		return c
	}

	for v := range s.declared {
		ensure(v)
	}

	for _, c := range s.constraints {
		switch c.Kind {
		case ConstraintEquals:
			e := ensure(c.Var)
			e.equals = append(e.equals, c.Bound)
		case ConstraintLowerBound:
			e := ensure(c.Var)
			e.lowers = append(e.lowers, c.Bound)
		case ConstraintUpperBound:
			e := ensure(c.Var)
			e.uppers = append(e.uppers, c.Bound)
		case ConstraintOrdering, ConstraintStructuralEdge:
			// used only by unifyAntiSymmetry, which merges the variables on a
			// cycle; no bound flows along them here
		}
	}

	resolved := map[VarID]Handle{}

	// Deterministic iteration order keeps diagnostic emission order
	// stable across runs.
	reps := make([]VarID, 0, len(byVar))
	for r := range byVar {
		reps = append(reps, r)
	}
	sort.Slice(reps, func(i, j int) bool { return reps[i] < reps[j] })

	for _, rep := range reps {
		c := byVar[rep]
		h, issue, ok := s.solveOne(rep, c)
		if !ok {
			bag.Push(issue)
			continue
		}
		simplified := s.lattice.Simplify(h)
		resolved[rep] = simplified
	}

	return Solution{Resolved: resolved}, bag
}

func (s *Solver) solveOne(v VarID, c *collected) (Handle, diagnostics.Issue, bool) {
	if len(c.equals) == 0 && len(c.lowers) == 0 && len(c.uppers) == 0 {
		return 0, diagnostics.Issue{
			Code:     CodeUnconstrainedTypeVariable,
			Message:  fmt.Sprintf("inference variable %d has no constraints", v),
			Severity: diagnostics.SeverityError,
		}, false
	}

	if len(c.equals) > 0 {
		eq := c.equals[0]
		for _, other := range c.equals[1:] {
			if other != eq && !(s.lattice.IsSubtypeOf(other, eq) && s.lattice.IsSubtypeOf(eq, other)) {
				return 0, diagnostics.Issue{
					Code:     CodeConflictingEqualityConstraints,
					Message:  fmt.Sprintf("inference variable %d has conflicting equality constraints", v),
					Severity: diagnostics.SeverityFatal,
				}, false
			}
		}
		for _, upper := range c.uppers {
			if !s.lattice.IsSubtypeOf(eq, upper) {
				return 0, diagnostics.Issue{
					Code:     CodeIncompatibleUpperEqual,
					Message:  fmt.Sprintf("inference variable %d's equality constraint violates an upper bound", v),
					Severity: diagnostics.SeverityFatal,
				}, false
			}
		}
		for _, lower := range c.lowers {
			if !s.lattice.IsSubtypeOf(lower, eq) {
				return 0, diagnostics.Issue{
					Code:     CodeIncompatibleLowerEqual,
					Message:  fmt.Sprintf("inference variable %d's equality constraint violates a lower bound", v),
					Severity: diagnostics.SeverityFatal,
				}, false
			}
		}
		return eq, diagnostics.Issue{}, true
	}

	hasLowers := len(c.lowers) > 0
	var result Handle
	if hasLowers {
		result = HandleNever
		for _, h := range c.lowers {
			result = s.lattice.Join(result, h)
		}
		for _, upper := range c.uppers {
			if !s.lattice.IsSubtypeOf(result, upper) {
				return 0, diagnostics.Issue{
					Code:     CodeBoundConstraintViolation,
					Message:  fmt.Sprintf("inference variable %d's lower bound is not a subtype of its upper bound", v),
					Severity: diagnostics.SeverityFatal,
				}, false
			}
		}
	} else {
		result = HandleUnknown
		for _, upper := range c.uppers {
			result = s.lattice.Meet(result, upper)
		}
	}

	return result, diagnostics.Issue{}, true
}
