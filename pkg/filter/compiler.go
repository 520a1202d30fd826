package filter

import (
	"fmt"
	"strings"

	"github.com/hashintel/hash-sub007/pkg/temporal"
)

// Dialect selects placeholder rendering; mirrors pkg/store's Dialect
// so a filter.Compiled's SQL always matches the Store it is handed to.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

func (d Dialect) placeholder(i int) string {
	if d == DialectSQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", i)
}

// ErrLatestVersionWithLimit is returned by Build when the latest-version
// CTE rewrite has been triggered alongside a limit or cursor selection,
// a combination spec.md §4.2 calls out as incompatible.
var ErrLatestVersionWithLimit = fmt.Errorf("filter: the latest-version rewrite is incompatible with limit/cursor selection")

// ErrParameterTypeMismatch is returned when a Parameter's declared type
// does not match the QueryPath's declared ParamType.
type ErrParameterTypeMismatch struct {
	Path     string
	Expected ParameterType
	Got      ParameterType
}

func (e *ErrParameterTypeMismatch) Error() string {
	return fmt.Sprintf("filter: column %q expects parameter type %s, got %s", e.Path, e.Expected, e.Got)
}

// SelectCompiler compiles a Filter tree against a base record table
// into parameterized SQL (spec.md §4.2).
type SelectCompiler struct {
	dialect       Dialect
	baseTable     string
	baseAlias     string
	temporalAxes  *temporal.Axes
	includeDrafts bool

	joinAliases map[string]string // "table:foreignColumn" -> alias, reset at the start of each top-level Compile() call
	joinClauses []string
	aliasSeq    int

	whereClauses []string
	params       []any

	pinnedParamIdx   int // -1 if unset
	variableParamIdx int // -1 if unset

	orderBy          []string
	distinctCols     []string
	limit            *int
	cursorColumnName string
	latestVersion    bool
}

// NewSelectCompiler creates an empty compiler selecting from baseTable
// (aliased to itself), optionally pinned to temporalAxes and excluding
// drafts unless includeDrafts is set.
func NewSelectCompiler(dialect Dialect, baseTable string, temporalAxes *temporal.Axes, includeDrafts bool) *SelectCompiler {
	return &SelectCompiler{
		dialect:          dialect,
		baseTable:        baseTable,
		baseAlias:        baseTable,
		temporalAxes:     temporalAxes,
		includeDrafts:    includeDrafts,
		joinAliases:      make(map[string]string),
		pinnedParamIdx:   -1,
		variableParamIdx: -1,
	}
}

// SetLimit bounds the number of rows returned.
func (c *SelectCompiler) SetLimit(n int) { c.limit = &n }

// Compile walks filter, appending its condition to the compiler's
// WHERE clause (conjoined with any previously compiled filter via AND).
//
// Join-alias deduplication (resolvePath's joinAliases map) is scoped
// to this single call: two paths within the same Compile call that
// traverse the same join target share one alias, but a join touched
// again by a later, separate Compile call gets a fresh alias, since
// the two top-level filters may need to match against different rows
// of the joined table (spec.md §4.2: a fresh alias is allocated
// "scoped to the current condition"). aliasSeq is not reset, so alias
// names stay unique across the whole compiler rather than colliding.
func (c *SelectCompiler) Compile(f Filter) error {
	c.joinAliases = make(map[string]string)
	cond, err := c.compileFilter(f)
	if err != nil {
		return err
	}
	c.whereClauses = append(c.whereClauses, cond)
	return nil
}

func (c *SelectCompiler) compileFilter(f Filter) (string, error) {
	switch f.Kind {
	case KindAll:
		return c.compileConjunction(f.Children, "AND")
	case KindAny:
		return c.compileConjunction(f.Children, "OR")
	case KindNot:
		if len(f.Children) != 1 {
			return "", fmt.Errorf("filter: Not requires exactly one child")
		}
		inner, err := c.compileFilter(f.Children[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("NOT (%s)", inner), nil
	case KindEqual, KindNotEqual:
		return c.compileBinary(f, operatorFor(f.Kind))
	case KindStartsWith:
		return c.compileLike(f, false)
	case KindEndsWith:
		return c.compileLike(f, true)
	case KindContainsSegment:
		left, err := c.compileExpr(f.Left)
		if err != nil {
			return "", err
		}
		right, err := c.compileExpr(f.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s LIKE '%%' || %s || '%%')", left, right), nil
	case KindIn:
		return c.compileIn(f)
	default:
		return "", fmt.Errorf("filter: unknown filter kind %d", f.Kind)
	}
}

func operatorFor(k Kind) string {
	if k == KindNotEqual {
		return "!="
	}
	return "="
}

func (c *SelectCompiler) compileConjunction(children []Filter, joiner string) (string, error) {
	if len(children) == 0 {
		if joiner == "AND" {
			return "TRUE", nil
		}
		return "FALSE", nil
	}
	parts := make([]string, len(children))
	for i, child := range children {
		cond, err := c.compileFilter(child)
		if err != nil {
			return "", err
		}
		parts[i] = cond
	}
	return "(" + strings.Join(parts, " "+joiner+" ") + ")", nil
}

func (c *SelectCompiler) compileBinary(f Filter, op string) (string, error) {
	if f.Left == nil && f.Right == nil {
		return "", fmt.Errorf("filter: comparison requires at least one operand")
	}
	if f.Left == nil || f.Right == nil {
		side := f.Left
		if side == nil {
			side = f.Right
		}
		expr, err := c.compileExpr(side)
		if err != nil {
			return "", err
		}
		if op == "=" {
			return fmt.Sprintf("%s IS NULL", expr), nil
		}
		return fmt.Sprintf("%s IS NOT NULL", expr), nil
	}
	if err := c.checkExprPairTypes(f.Left, f.Right); err != nil {
		return "", err
	}
	left, err := c.compileExpr(f.Left)
	if err != nil {
		return "", err
	}
	right, err := c.compileExpr(f.Right)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", left, op, right), nil
}

func (c *SelectCompiler) compileLike(f Filter, suffix bool) (string, error) {
	if err := c.checkExprPairTypes(f.Left, f.Right); err != nil {
		return "", err
	}
	left, err := c.compileExpr(f.Left)
	if err != nil {
		return "", err
	}
	right, err := c.compileExpr(f.Right)
	if err != nil {
		return "", err
	}
	if suffix {
		return fmt.Sprintf("(%s LIKE '%%' || %s)", left, right), nil
	}
	return fmt.Sprintf("(%s LIKE %s || '%%')", left, right), nil
}

func (c *SelectCompiler) compileIn(f Filter) (string, error) {
	if f.Path == nil {
		return "", fmt.Errorf("filter: In requires a path")
	}
	col, err := c.resolvePath(*f.Path)
	if err != nil {
		return "", err
	}
	placeholders := make([]string, len(f.List))
	for i, p := range f.List {
		if err := c.checkParamType(*f.Path, p); err != nil {
			return "", err
		}
		placeholders[i] = c.pushParam(p.Value)
	}
	return fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")), nil
}

func (c *SelectCompiler) compileExpr(e *Expression) (string, error) {
	switch e.Kind {
	case ExprPath:
		return c.resolvePath(e.Path)
	case ExprParameter:
		return c.pushParam(e.Parameter.Value), nil
	default:
		return "", fmt.Errorf("filter: unknown expression kind %d", e.Kind)
	}
}

// checkExprPairTypes validates a Path/Parameter expression pair's
// types match, when one side is a path and the other a literal
// parameter; a path-to-path or parameter-to-parameter comparison has
// nothing to check against.
func (c *SelectCompiler) checkExprPairTypes(left, right *Expression) error {
	if left == nil || right == nil {
		return nil
	}
	if left.Kind == ExprPath && right.Kind == ExprParameter {
		return c.checkParamType(left.Path, right.Parameter)
	}
	if right.Kind == ExprPath && left.Kind == ExprParameter {
		return c.checkParamType(right.Path, left.Parameter)
	}
	return nil
}

func (c *SelectCompiler) checkParamType(path QueryPath, p Parameter) error {
	if path.ParamType != p.Type && p.Type != ParamAny {
		return &ErrParameterTypeMismatch{Path: path.Column, Expected: path.ParamType, Got: p.Type}
	}
	return nil
}

func (c *SelectCompiler) pushParam(v any) string {
	c.params = append(c.params, v)
	return c.dialect.placeholder(len(c.params))
}

// resolvePath walks path's join chain, deduplicating joins by (table,
// foreign key) against the joins already registered during the current
// Compile call, and returns the (possibly JSON-unwrapped) column reference.
func (c *SelectCompiler) resolvePath(path QueryPath) (string, error) {
	alias := c.baseAlias
	for _, j := range path.Joins {
		key := j.Table + ":" + j.ForeignColumn
		existing, ok := c.joinAliases[key]
		if ok {
			alias = existing
			continue
		}
		c.aliasSeq++
		newAlias := fmt.Sprintf("%s_%d", j.Table, c.aliasSeq)
		c.joinAliases[key] = newAlias
		c.joinClauses = append(c.joinClauses,
			fmt.Sprintf("JOIN %s AS %s ON %s.%s = %s.%s", j.Table, newAlias, alias, j.LocalColumn, newAlias, j.ForeignColumn))
		c.applyTableHook(j.Table, newAlias)
		alias = newAlias
	}

	col := fmt.Sprintf("%s.%s", alias, path.Column)
	if path.ColumnKind == ColumnJSONProperty {
		jsonPath := "$"
		for _, seg := range path.JSONPointer {
			jsonPath += "." + seg
		}
		col = fmt.Sprintf("json_extract_text(%s, '%s')", col, jsonPath)
	}
	return col, nil
}

// applyTableHook implements spec.md §4.2's "temporal hook" and
// "drafts filter": every fresh alias of a bitemporal metadata table —
// one per distinct join, whether within one condition or across
// separate top-level Compile calls — gets its own pinned-axis
// containment predicate and variable-axis overlap predicate (the
// pinned/variable values themselves are bound once and reused by
// placeholder across every alias), and the entity edition table gets
// its own `draft = false` predicate unless drafts were requested.
func (c *SelectCompiler) applyTableHook(table, alias string) {
	if table == TableEntityTemporalMetadata || table == TableOntologyTemporalMetadata {
		if c.temporalAxes != nil {
			pinnedCol, variableCol := "transaction_time", "decision_time"
			if c.temporalAxes.PinnedAxis == temporal.AxisDecisionTime {
				pinnedCol, variableCol = "decision_time", "transaction_time"
			}
			pinnedPh := c.pinnedParam()
			variablePh := c.variableParam()
			c.whereClauses = append(c.whereClauses,
				fmt.Sprintf("time_interval_contains_timestamp(%s.%s, %s)", alias, pinnedCol, pinnedPh))
			c.whereClauses = append(c.whereClauses,
				fmt.Sprintf("overlaps(%s.%s, %s)", alias, variableCol, variablePh))
		}
		if table == TableEntityTemporalMetadata && !c.includeDrafts {
			c.whereClauses = append(c.whereClauses, fmt.Sprintf("%s.draft = %s", alias, falseLiteral))
		}
	}
}

var falseLiteral = "FALSE"

func (c *SelectCompiler) pinnedParam() string {
	if c.pinnedParamIdx < 0 {
		c.params = append(c.params, c.temporalAxes.Pinned())
		c.pinnedParamIdx = len(c.params)
	}
	return c.dialect.placeholder(c.pinnedParamIdx)
}

func (c *SelectCompiler) variableParam() string {
	if c.variableParamIdx < 0 {
		c.params = append(c.params, c.temporalAxes.VariableRange)
		c.variableParamIdx = len(c.params)
	}
	return c.dialect.placeholder(c.variableParamIdx)
}

// UseLatestVersion triggers the `version = "latest"` CTE rewrite
// described in spec.md §4.2. It is incompatible with SetLimit or
// AddCursorSelection, checked at Build time.
func (c *SelectCompiler) UseLatestVersion() { c.latestVersion = true }

// PushCursorParam binds v as a query parameter and returns its
// placeholder, for use from an AddCursorSelection cond closure that
// needs to embed a decoded cursor value (spec.md §6's `after=<cursor>`).
func (c *SelectCompiler) PushCursorParam(v any) string { return c.pushParam(v) }

// AddCursorSelection pushes path as a DISTINCT, appends it to ORDER BY
// with the given ordering ("ASC"/"DESC"), and returns the SQL column
// index the store should read the cursor value from.
//
// cond mirrors spec.md §4.2's `add_cursor_selection(path, ordering,
// cond)`: given the resolved column reference, it returns the
// continuation predicate appended to WHERE — the mechanism that turns
// a decoded `after=<cursor>` value back into a page-2 filter. cond may
// be nil for a first page with no prior cursor.
func (c *SelectCompiler) AddCursorSelection(path QueryPath, ordering string, cond func(col string) string) (int, error) {
	col, err := c.resolvePath(path)
	if err != nil {
		return -1, err
	}
	c.distinctCols = append(c.distinctCols, col)
	c.orderBy = append(c.orderBy, fmt.Sprintf("%s %s", col, ordering))
	c.cursorColumnName = col
	if cond != nil {
		c.whereClauses = append(c.whereClauses, cond(col))
	}
	return len(c.distinctCols) - 1, nil
}

// Compiled is a finished, executable query plus the column index to
// read a cursor value from (-1 when AddCursorSelection was never
// called).
type Compiled struct {
	SQL         string
	Args        []any
	CursorIndex int
}

// Build assembles the final SELECT statement.
func (c *SelectCompiler) Build(selectColumns ...string) (Compiled, error) {
	if c.latestVersion && (c.limit != nil || c.cursorColumnName != "") {
		return Compiled{}, ErrLatestVersionWithLimit
	}

	var b strings.Builder

	fromTable := c.baseTable
	if c.latestVersion {
		b.WriteString(fmt.Sprintf(
			"WITH %s AS (SELECT *, MAX(version) OVER (PARTITION BY base_url) AS max_version FROM %s) ",
			c.baseTable+"_latest", c.baseTable,
		))
		fromTable = c.baseTable + "_latest"
	}

	cols := "*"
	if len(selectColumns) > 0 {
		cols = strings.Join(selectColumns, ", ")
	}

	distinctClause := ""
	if len(c.distinctCols) > 0 {
		distinctClause = "DISTINCT " + strings.Join(c.distinctCols, ", ") + ", "
	}

	fmt.Fprintf(&b, "SELECT %s%s FROM %s AS %s", distinctClause, cols, fromTable, c.baseAlias)
	for _, j := range c.joinClauses {
		b.WriteString(" ")
		b.WriteString(j)
	}

	where := c.whereClauses
	if c.latestVersion {
		where = append(where, fmt.Sprintf("%s.version = %s.max_version", c.baseAlias, c.baseAlias))
	}
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	if len(c.orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(c.orderBy, ", "))
	}

	if c.limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *c.limit)
	}

	cursorIndex := -1
	if c.cursorColumnName != "" {
		cursorIndex = 0
	}

	return Compiled{SQL: b.String(), Args: c.params, CursorIndex: cursorIndex}, nil
}
