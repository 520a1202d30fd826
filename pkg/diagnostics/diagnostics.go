// Package diagnostics implements the accumulating result monad shared by
// the validation engine and the HashQL type solver: collect non-fatal
// issues as work proceeds, short-circuit on the first fatal one.
package diagnostics

import "fmt"

// Severity ranks how serious an Issue is. Fatal issues stop a
// computation; anything below accumulates alongside a value.
type Severity int

const (
	SeverityNote Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityNote:
		return "note"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Issue is one diagnostic: a stable Code, a human Message, and the
// location it was raised at (component-defined, e.g. a JSON pointer
// path or a query-path string).
type Issue struct {
	Code     string
	Message  string
	Severity Severity
	At       string
}

func (i Issue) Error() string {
	if i.At != "" {
		return fmt.Sprintf("%s: %s (at %s)", i.Code, i.Message, i.At)
	}
	return fmt.Sprintf("%s: %s", i.Code, i.Message)
}

func (i Issue) IsFatal() bool { return i.Severity == SeverityFatal }

// Bag is an ordered collection of issues, with a fast check for
// whether any of them are fatal.
type Bag struct {
	issues     []Issue
	fatalCount int
}

// NewBag returns an empty bag.
func NewBag() *Bag { return &Bag{} }

// Push appends an issue, keeping the fatal count in sync. A nil *Bag
// discards the issue rather than panicking — callers that want the
// issue kept must push into a non-nil bag (see Err, which never hands
// out a nil secondary).
func (b *Bag) Push(i Issue) {
	if b == nil {
		return
	}
	b.issues = append(b.issues, i)
	if i.IsFatal() {
		b.fatalCount++
	}
}

// Append merges another bag's issues into this one, preserving order.
func (b *Bag) Append(other *Bag) {
	if b == nil || other == nil {
		return
	}
	b.issues = append(b.issues, other.issues...)
	b.fatalCount += other.fatalCount
}

// Issues returns the accumulated issues in push order.
func (b *Bag) Issues() []Issue {
	if b == nil {
		return nil
	}
	return b.issues
}

// HasFatal reports whether any pushed issue was fatal.
func (b *Bag) HasFatal() bool { return b != nil && b.fatalCount > 0 }

// FirstFatal returns the first fatal issue pushed, if any.
func (b *Bag) FirstFatal() (Issue, bool) {
	if b == nil {
		return Issue{}, false
	}
	for _, i := range b.issues {
		if i.IsFatal() {
			return i, true
		}
	}
	return Issue{}, false
}

// Len reports how many issues are in the bag.
func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.issues)
}

// Result is the sum type at the heart of the package: either a value
// with zero or more non-fatal issues, or a fatal primary issue with an
// optional secondary bag for additional context. A value-carrying
// Result never contains a fatal issue — PushIssue promotes the result
// to the error variant the moment one is pushed.
type Result[T any] struct {
	ok        bool
	value     T
	issues    *Bag
	primary   Issue
	secondary *Bag
}

// Ok wraps a value with a (possibly empty) bag of non-fatal issues.
// Panics if bag contains a fatal issue — callers must use
// FromBag/PushIssue to build results that might be fatal.
func Ok[T any](value T, bag *Bag) Result[T] {
	if bag.HasFatal() {
		panic("diagnostics: Ok called with a fatal issue in the bag")
	}
	return Result[T]{ok: true, value: value, issues: bag}
}

// Err constructs the error variant directly from a fatal primary issue
// and an optional secondary bag of context. A nil secondary is
// replaced with an empty bag so later PushIssue/AppendDiagnostics
// calls on the result have somewhere to accumulate into.
func Err[T any](primary Issue, secondary *Bag) Result[T] {
	if secondary == nil {
		secondary = NewBag()
	}
	return Result[T]{ok: false, primary: primary, secondary: secondary}
}

// FromValue is a convenience for the common case of no issues at all.
func FromValue[T any](value T) Result[T] {
	return Result[T]{ok: true, value: value, issues: NewBag()}
}

// PushIssue adds an issue to a value-carrying result. If the issue is
// fatal, the result is promoted to the error variant: the fatal issue
// becomes primary, and everything accumulated so far is demoted into
// the secondary bag.
func (r Result[T]) PushIssue(i Issue) Result[T] {
	if !r.ok {
		if i.IsFatal() {
			// A second fatal issue joins the secondary bag; the
			// first fatal issue found stays primary (spec.md §8:
			// "the error variant's primary is always fatal").
			r.secondary.Push(i)
			return r
		}
		r.secondary.Push(i)
		return r
	}
	if i.IsFatal() {
		secondary := r.issues
		return Result[T]{ok: false, primary: i, secondary: secondary}
	}
	bag := r.issues
	if bag == nil {
		bag = NewBag()
	}
	bag.Push(i)
	return Result[T]{ok: true, value: r.value, issues: bag}
}

// AppendDiagnostics merges another bag into this result, promoting its
// first fatal issue if the result is still in the Ok variant.
func (r Result[T]) AppendDiagnostics(bag *Bag) Result[T] {
	if bag == nil {
		return r
	}
	if !r.ok {
		r.secondary.Append(bag)
		return r
	}
	if fatal, found := bag.FirstFatal(); found {
		merged := r.issues
		merged.Append(bag)
		// Remove the promoted fatal from the visible secondary set
		// is unnecessary: secondary is allowed to also contain the
		// primary's own occurrence; downstream consumers key off
		// primary, not bag membership.
		return Result[T]{ok: false, primary: fatal, secondary: merged}
	}
	merged := r.issues
	if merged == nil {
		merged = NewBag()
	}
	merged.Append(bag)
	return Result[T]{ok: true, value: r.value, issues: merged}
}

// IsOk reports whether the result is in the value-carrying variant.
func (r Result[T]) IsOk() bool { return r.ok }

// Value returns the held value and its issue bag. Only meaningful
// when IsOk is true.
func (r Result[T]) Value() (T, *Bag) { return r.value, r.issues }

// Primary returns the fatal primary issue. Only meaningful when IsOk
// is false.
func (r Result[T]) Primary() Issue { return r.primary }

// Secondary returns the secondary context bag. May be nil.
func (r Result[T]) Secondary() *Bag { return r.secondary }

// ControlFlow is the outcome of Branch: either Continue with a value,
// or Break with the residual Result to propagate unchanged. This is
// the Go rendering of spec.md §4.7's "ternary-state short-circuit
// operator" — explicit early return instead of exception propagation.
type ControlFlow[T any] struct {
	continues bool
	value     T
	residual  Result[T]
}

func (c ControlFlow[T]) Continues() bool    { return c.continues }
func (c ControlFlow[T]) Value() T           { return c.value }
func (c ControlFlow[T]) Residual() Result[T] { return c.residual }

// Branch implements the try-operator: Ok results continue with their
// value (issues are retained on the side by the caller via Value()),
// Err results break with themselves as the residual to propagate.
func Branch[T any](r Result[T]) ControlFlow[T] {
	if r.ok {
		return ControlFlow[T]{continues: true, value: r.value}
	}
	return ControlFlow[T]{continues: false, residual: r}
}

// Map transforms the held value of an Ok result, leaving an Err result
// untouched (and retargeted to the new type parameter).
func Map[T, U any](r Result[T], f func(T) U) Result[U] {
	if !r.ok {
		return Result[U]{ok: false, primary: r.primary, secondary: r.secondary}
	}
	return Result[U]{ok: true, value: f(r.value), issues: r.issues}
}
