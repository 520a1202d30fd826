// Package filter implements the filter AST and SQL compiler (C4):
// a small boolean expression language over QueryPaths, compiled to
// parameterized SQL by SelectCompiler (spec.md §4.2).
package filter

import "fmt"

// Kind discriminates the filter AST node shapes.
type Kind int

const (
	KindAll Kind = iota
	KindAny
	KindNot
	KindEqual
	KindNotEqual
	KindIn
	KindStartsWith
	KindEndsWith
	KindContainsSegment
)

// Filter is the recursive boolean expression tree compiled by
// SelectCompiler.
type Filter struct {
	Kind Kind

	// All/Any/Not operate on Children.
	Children []Filter

	// Equal/NotEqual/StartsWith/EndsWith/ContainsSegment take two
	// operand expressions (either may be nil, matching the spec's
	// `Equal(E?, E?)` — comparing to NULL when one side is absent).
	Left, Right *Expression

	// In takes a path and a parameter list.
	Path *QueryPath
	List []Parameter
}

// All builds a conjunction.
func All(children ...Filter) Filter { return Filter{Kind: KindAll, Children: children} }

// Any builds a disjunction.
func Any(children ...Filter) Filter { return Filter{Kind: KindAny, Children: children} }

// Not negates a single filter.
func Not(f Filter) Filter { return Filter{Kind: KindNot, Children: []Filter{f}} }

// Equal builds an equality comparison between two expressions.
func Equal(left, right *Expression) Filter {
	return Filter{Kind: KindEqual, Left: left, Right: right}
}

// NotEqual builds an inequality comparison.
func NotEqual(left, right *Expression) Filter {
	return Filter{Kind: KindNotEqual, Left: left, Right: right}
}

// In builds a set-membership comparison.
func In(path QueryPath, params ...Parameter) Filter {
	return Filter{Kind: KindIn, Path: &path, List: params}
}

// StartsWith builds a prefix comparison.
func StartsWith(left, right *Expression) Filter {
	return Filter{Kind: KindStartsWith, Left: left, Right: right}
}

// EndsWith builds a suffix comparison.
func EndsWith(left, right *Expression) Filter {
	return Filter{Kind: KindEndsWith, Left: left, Right: right}
}

// ContainsSegment builds a path-segment containment comparison (e.g. a
// base URL appearing as one element of a multi-type id array).
func ContainsSegment(left, right *Expression) Filter {
	return Filter{Kind: KindContainsSegment, Left: left, Right: right}
}

// ExpressionKind discriminates a FilterExpression's variant.
type ExpressionKind int

const (
	ExprPath ExpressionKind = iota
	ExprParameter
)

// Expression is `E (FilterExpression) ::= Path(QueryPath) | Parameter(P)`.
type Expression struct {
	Kind      ExpressionKind
	Path      QueryPath
	Parameter Parameter
}

// PathExpr wraps a QueryPath as an Expression.
func PathExpr(p QueryPath) *Expression { return &Expression{Kind: ExprPath, Path: p} }

// ParamExpr wraps a Parameter as an Expression.
func ParamExpr(p Parameter) *Expression { return &Expression{Kind: ExprParameter, Parameter: p} }

// ParameterType discriminates the scalar kinds a compiled parameter
// may carry, checked against the column's declared type at compile
// time (spec.md §4.2).
type ParameterType int

const (
	ParamText ParameterType = iota
	ParamNumber
	ParamBoolean
	ParamUuid
	ParamOntologyTypeVersion
	ParamTimestamp
	ParamAny
)

// Parameter is one bound value pushed into the compiled SQL.
type Parameter struct {
	Type  ParameterType
	Value any
}

func Text(v string) Parameter  { return Parameter{Type: ParamText, Value: v} }
func Number(v float64) Parameter { return Parameter{Type: ParamNumber, Value: v} }
func Boolean(v bool) Parameter  { return Parameter{Type: ParamBoolean, Value: v} }
func Uuid(v string) Parameter   { return Parameter{Type: ParamUuid, Value: v} }
func OntologyTypeVersion(v int) Parameter {
	return Parameter{Type: ParamOntologyTypeVersion, Value: v}
}
func Timestamp(v string) Parameter { return Parameter{Type: ParamTimestamp, Value: v} }
func AnyValue(v any) Parameter     { return Parameter{Type: ParamAny, Value: v} }

func (p ParameterType) String() string {
	switch p {
	case ParamText:
		return "text"
	case ParamNumber:
		return "number"
	case ParamBoolean:
		return "boolean"
	case ParamUuid:
		return "uuid"
	case ParamOntologyTypeVersion:
		return "ontology_type_version"
	case ParamTimestamp:
		return "timestamp"
	case ParamAny:
		return "any"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}
