// Package temporal implements the bitemporal interval algebra shared
// by the store (C3) and the filter compiler (C4): decision-time and
// transaction-time intervals, pinned/variable axis queries, and the
// partition invariants spec.md §3/§8 require of them.
package temporal

import "time"

// Axis identifies one of the two independent time dimensions a record
// carries.
type Axis string

const (
	AxisTransactionTime Axis = "transactionTime"
	AxisDecisionTime    Axis = "decisionTime"
)

// BoundKind classifies an interval endpoint.
type BoundKind string

const (
	BoundInclusive BoundKind = "inclusive"
	BoundExclusive BoundKind = "exclusive"
	BoundUnbounded BoundKind = "unbounded"
)

// Bound is one endpoint of an interval, matching the wire shape of
// spec.md §6: `{ kind, limit? }`.
type Bound struct {
	Kind  BoundKind
	Limit time.Time
}

// Unbounded returns the always-open bound.
func Unbounded() Bound { return Bound{Kind: BoundUnbounded} }

// Inclusive returns a closed bound at t.
func Inclusive(t time.Time) Bound { return Bound{Kind: BoundInclusive, Limit: t} }

// Exclusive returns an open bound at t.
func Exclusive(t time.Time) Bound { return Bound{Kind: BoundExclusive, Limit: t} }

// Interval is a half-open-by-convention [start, end) span over one
// axis. A record's transaction-time interval is always closed-open;
// decision-time intervals on a live edition carry an unbounded end.
type Interval struct {
	Start Bound
	End   Bound
}

// Contains reports whether instant t falls within the interval.
func (iv Interval) Contains(t time.Time) bool {
	return iv.afterStart(t) && iv.beforeEnd(t)
}

func (iv Interval) afterStart(t time.Time) bool {
	switch iv.Start.Kind {
	case BoundUnbounded:
		return true
	case BoundInclusive:
		return !t.Before(iv.Start.Limit)
	case BoundExclusive:
		return t.After(iv.Start.Limit)
	default:
		return false
	}
}

func (iv Interval) beforeEnd(t time.Time) bool {
	switch iv.End.Kind {
	case BoundUnbounded:
		return true
	case BoundInclusive:
		return !t.After(iv.End.Limit)
	case BoundExclusive:
		return t.Before(iv.End.Limit)
	default:
		return false
	}
}

// Overlaps reports whether two intervals share at least one instant.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.startsBeforeOrAt(other.End) && other.startsBeforeOrAt(iv.End)
}

// startsBeforeOrAt reports whether iv's start lies before the given
// end bound (or at the same instant, when both bounds are inclusive) —
// the building block for Overlaps.
func (iv Interval) startsBeforeOrAt(end Bound) bool {
	if iv.Start.Kind == BoundUnbounded || end.Kind == BoundUnbounded {
		return true
	}
	if iv.Start.Kind == BoundInclusive && end.Kind == BoundInclusive {
		return !iv.Start.Limit.After(end.Limit)
	}
	return iv.Start.Limit.Before(end.Limit)
}

// ClosedOpen builds the canonical [start, end) transaction-time
// interval shape: inclusive start, exclusive end (or unbounded end for
// the currently-open edition).
func ClosedOpen(start time.Time, end *time.Time) Interval {
	if end == nil {
		return Interval{Start: Inclusive(start), End: Unbounded()}
	}
	return Interval{Start: Inclusive(start), End: Exclusive(*end)}
}

// IsOpen reports whether the interval's end is unbounded — i.e. this
// is the transaction-time-open edition spec.md §3 allows at most one
// of, per versioned URL.
func (iv Interval) IsOpen() bool { return iv.End.Kind == BoundUnbounded }

// Axes pins one axis to an instant and leaves the other ranging over
// an interval, matching the request shape of spec.md §6.
type Axes struct {
	PinnedAxis    Axis
	PinnedAt      time.Time
	VariableAxis  Axis
	VariableRange Interval
}

// Pinned returns the instant the fixed axis is evaluated at.
func (a Axes) Pinned() time.Time { return a.PinnedAt }

// TilesWithoutGaps reports whether a set of intervals, sorted by
// start, partitions [first, +inf) with no gap and no overlap — the
// invariant spec.md §8 requires of an ontology base URL's editions.
func TilesWithoutGaps(intervals []Interval) bool {
	if len(intervals) == 0 {
		return true
	}
	for i := 1; i < len(intervals); i++ {
		prevEnd := intervals[i-1].End
		curStart := intervals[i].Start
		if prevEnd.Kind == BoundUnbounded {
			// An unbounded edition followed by another edition is a
			// violation unless it's the very last one.
			return i == len(intervals)
		}
		if curStart.Kind != BoundInclusive || prevEnd.Kind != BoundExclusive {
			return false
		}
		if !curStart.Limit.Equal(prevEnd.Limit) {
			return false
		}
	}
	last := intervals[len(intervals)-1]
	return last.End.Kind == BoundUnbounded
}
