package filter

// JoinStep describes one table hop a QueryPath must traverse to reach
// its terminal column: "JOIN <Table> ON <LocalTable>.<LocalColumn> =
// <Table>.<ForeignColumn>". Steps are deduplicated by (Table,
// ForeignColumn) within one compiled condition (spec.md §4.2).
type JoinStep struct {
	Table         string
	LocalColumn   string
	ForeignColumn string
}

// ColumnKind distinguishes an ordinary scalar column from a JSONB
// property access, which the compiler wraps in json_extract_text
// before comparing against Text parameters.
type ColumnKind int

const (
	ColumnScalar ColumnKind = iota
	ColumnJSONProperty
)

// QueryPath names a path from the record's base table, through zero or
// more joins, to a terminal column.
type QueryPath struct {
	Joins      []JoinStep
	Column     string
	ColumnKind ColumnKind
	// JSONPointer names the JSON path segments under Column when
	// ColumnKind is ColumnJSONProperty (e.g. a property's base URL).
	JSONPointer []string
	// ParamType is the declared type the column must be compared
	// against; the compiler rejects a mismatched Parameter.Type.
	ParamType ParameterType
}

// Temporal-axis well-known paths, reused by the compiler's temporal
// hook (spec.md §4.2) to recognize when a join targets the
// bitemporal metadata tables.
const (
	TableEntityTemporalMetadata   = "entity_editions"
	TableOntologyTemporalMetadata = "ontology_editions"
)
