package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hashintel/hash-sub007/pkg/filter"
	"github.com/hashintel/hash-sub007/pkg/ontology"
	"github.com/hashintel/hash-sub007/pkg/temporal"
)

// EntityID is the stable identifier of an entity across all its
// editions.
type EntityID uuid.UUID

func (id EntityID) String() string { return uuid.UUID(id).String() }

// NewEntityID mints a fresh entity id.
func NewEntityID() EntityID { return EntityID(uuid.New()) }

// EditionID identifies one bitemporal edition of an entity.
type EditionID uuid.UUID

func (id EditionID) String() string { return uuid.UUID(id).String() }

// NewEditionID mints a fresh edition id.
func NewEditionID() EditionID { return EditionID(uuid.New()) }

// LinkData marks an entity as a link between two other entities
// (spec.md §3).
type LinkData struct {
	LeftEntityID   EntityID
	RightEntityID  EntityID
	LeftConfidence *float64
	RightConfidence *float64
}

// CreateEntityParams is the input to CreateEntity.
type CreateEntityParams struct {
	EntityTypeIDs []ontology.VersionedURL
	Properties    json.RawMessage
	LinkData      *LinkData
	DecisionTime  *time.Time // overrides d_in; defaults to now
	Draft         bool
	Confidence    *float64
}

// EntityEditionMetadata describes one entity edition's bitemporal
// envelope, returned by every write operation.
type EntityEditionMetadata struct {
	EntityID        EntityID
	EditionID       EditionID
	TransactionTime temporal.Interval
	DecisionTime    temporal.Interval
	Archived        bool
	Draft           bool
}

// CreateEntity inserts a new entity and its first edition.
func (s *Store) CreateEntity(ctx context.Context, params CreateEntityParams) (EntityEditionMetadata, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return EntityEditionMetadata{}, fmt.Errorf("store: begin create_entity: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	entityID := NewEntityID()
	editionID := NewEditionID()
	now := time.Now().UTC()
	decisionStart := now
	if params.DecisionTime != nil {
		decisionStart = *params.DecisionTime
	}

	typeIDs := make([]string, len(params.EntityTypeIDs))
	for i, t := range params.EntityTypeIDs {
		typeIDs[i] = t.String()
	}

	var leftID, rightID sql.NullString
	if params.LinkData != nil {
		leftID = sql.NullString{String: params.LinkData.LeftEntityID.String(), Valid: true}
		rightID = sql.NullString{String: params.LinkData.RightEntityID.String(), Valid: true}
	}

	insertEntity := fmt.Sprintf(
		"INSERT INTO entities (entity_id, entity_type_ids, left_entity_id, right_entity_id) VALUES (%s, %s, %s, %s)",
		s.ph(1), s.ph(2), s.ph(3), s.ph(4),
	)
	if _, err := tx.ExecContext(ctx, insertEntity, entityID.String(), strings.Join(typeIDs, ","), leftID, rightID); err != nil {
		return EntityEditionMetadata{}, fmt.Errorf("store: insert entity: %w", err)
	}

	draftInt := boolToInt(params.Draft)
	insertEdition := fmt.Sprintf(
		`INSERT INTO entity_editions
			(entity_id, edition_id, properties_json, transaction_time_start, transaction_time_end,
			 decision_time_start, decision_time_end, archived, draft, confidence)
		 VALUES (%s, %s, %s, %s, NULL, %s, NULL, 0, %s, %s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7),
	)
	if _, err := tx.ExecContext(ctx, insertEdition,
		entityID.String(), editionID.String(), string(params.Properties),
		now.Format(time.RFC3339Nano), decisionStart.Format(time.RFC3339Nano),
		draftInt, params.Confidence,
	); err != nil {
		return EntityEditionMetadata{}, fmt.Errorf("store: insert entity edition: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return EntityEditionMetadata{}, fmt.Errorf("store: commit create_entity: %w", err)
	}

	return EntityEditionMetadata{
		EntityID:        entityID,
		EditionID:       editionID,
		TransactionTime: temporal.ClosedOpen(now, nil),
		DecisionTime:    temporal.ClosedOpen(decisionStart, nil),
		Draft:           params.Draft,
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// PropertyPatchOperation is one step of a JSON-Patch-shaped mutation
// applied to an entity's live property tree (spec.md §4.1).
type PropertyPatchOperation struct {
	Op    string // "add" | "replace" | "remove" | "move" | "copy" | "test"
	Path  string // JSON Pointer
	Value json.RawMessage
	From  string // JSON Pointer, for move/copy
}

// PatchEntityParams is the input to PatchEntity.
type PatchEntityParams struct {
	EntityID          EntityID
	LastSeenEditionID EditionID
	Patch             []PropertyPatchOperation
	DecisionTime      *time.Time // overrides d_in of the new edition
}

// PatchEntity applies a property patch, producing a new edition whose
// decision time begins at the provided (or current) instant and
// closing the prior edition's decision interval at the same instant.
func (s *Store) PatchEntity(ctx context.Context, params PatchEntityParams) (EntityEditionMetadata, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return EntityEditionMetadata{}, fmt.Errorf("store: begin patch_entity: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(
		`SELECT edition_id, properties_json, decision_time_start, draft
		 FROM entity_editions
		 WHERE entity_id = %s AND transaction_time_end IS NULL`,
		s.ph(1),
	)
	var currentEdition, propsJSON, decisionStartStr string
	var draftInt int
	err = tx.QueryRowContext(ctx, query, params.EntityID.String()).Scan(&currentEdition, &propsJSON, &decisionStartStr, &draftInt)
	if err != nil {
		if err == sql.ErrNoRows {
			return EntityEditionMetadata{}, ErrEntityDoesNotExist
		}
		return EntityEditionMetadata{}, fmt.Errorf("store: lookup live entity edition: %w", err)
	}
	if currentEdition != params.LastSeenEditionID.String() {
		return EntityEditionMetadata{}, ErrRaceConditionOnUpdate
	}

	var tree any
	if err := json.Unmarshal([]byte(propsJSON), &tree); err != nil {
		return EntityEditionMetadata{}, fmt.Errorf("store: decode live property tree: %w", err)
	}
	for _, op := range params.Patch {
		var err error
		tree, err = applyPatchOp(tree, op)
		if err != nil {
			return EntityEditionMetadata{}, fmt.Errorf("store: apply patch op %s %s: %w", op.Op, op.Path, err)
		}
	}
	newProps, err := json.Marshal(tree)
	if err != nil {
		return EntityEditionMetadata{}, fmt.Errorf("store: encode patched property tree: %w", err)
	}

	now := time.Now().UTC()
	decisionStart := now
	if params.DecisionTime != nil {
		decisionStart = *params.DecisionTime
	}

	closePrior := fmt.Sprintf(
		`UPDATE entity_editions SET transaction_time_end = %s, decision_time_end = %s
		 WHERE edition_id = %s`,
		s.ph(1), s.ph(2), s.ph(3),
	)
	if _, err := tx.ExecContext(ctx, closePrior, now.Format(time.RFC3339Nano), decisionStart.Format(time.RFC3339Nano), currentEdition); err != nil {
		return EntityEditionMetadata{}, fmt.Errorf("store: close prior entity edition: %w", err)
	}

	newEditionID := NewEditionID()
	insertEdition := fmt.Sprintf(
		`INSERT INTO entity_editions
			(entity_id, edition_id, properties_json, transaction_time_start, transaction_time_end,
			 decision_time_start, decision_time_end, archived, draft, confidence)
		 VALUES (%s, %s, %s, %s, NULL, %s, NULL, 0, %s, NULL)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6),
	)
	if _, err := tx.ExecContext(ctx, insertEdition,
		params.EntityID.String(), newEditionID.String(), string(newProps),
		now.Format(time.RFC3339Nano), decisionStart.Format(time.RFC3339Nano), draftInt,
	); err != nil {
		return EntityEditionMetadata{}, fmt.Errorf("store: insert patched entity edition: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return EntityEditionMetadata{}, fmt.Errorf("store: commit patch_entity: %w", err)
	}

	return EntityEditionMetadata{
		EntityID:        params.EntityID,
		EditionID:       newEditionID,
		TransactionTime: temporal.ClosedOpen(now, nil),
		DecisionTime:    temporal.ClosedOpen(decisionStart, nil),
		Draft:           draftInt != 0,
	}, nil
}

// QueryResult is one row of a compiled entity query. Columns holds
// every selected column by name — the compiler (pkg/filter) controls
// the projection, so the store does not assume a fixed column set —
// and Cursor, when requested, is read from CursorIndex for keyset
// pagination.
type QueryResult struct {
	Columns map[string]string
	Cursor  string
}

// CompiledQuery is a type alias (not a parallel redeclaration) for
// filter.Compiled: the output of pkg/filter's SelectCompiler is handed
// to QueryEntities verbatim, SQL/Args/CursorIndex fields and all, with
// no conversion step in between.
type CompiledQuery = filter.Compiled

// QueryEntities executes a compiled filter query and decodes each row
// as a QueryResult.
func (s *Store) QueryEntities(ctx context.Context, q CompiledQuery) ([]QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("store: query_entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("store: query_entities columns: %w", err)
	}

	var results []QueryResult
	for rows.Next() {
		scanTargets := make([]any, len(cols))
		scanValues := make([]sql.NullString, len(cols))
		for i := range scanValues {
			scanTargets[i] = &scanValues[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("store: query_entities scan: %w", err)
		}

		var cursor string
		if q.CursorIndex >= 0 && q.CursorIndex < len(scanValues) {
			cursor = scanValues[q.CursorIndex].String
		}
		columns := make(map[string]string, len(cols))
		for i, name := range cols {
			columns[name] = scanValues[i].String
		}
		results = append(results, QueryResult{Columns: columns, Cursor: cursor})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: query_entities rows: %w", err)
	}
	return results, nil
}

// applyPatchOp applies one JSON-Patch (RFC 6902) operation to tree,
// returning the mutated tree. Supports the subset spec.md §4.1 names:
// add, replace, remove, move, copy, test.
func applyPatchOp(tree any, op PropertyPatchOperation) (any, error) {
	switch op.Op {
	case "test":
		current, err := pointerGet(tree, op.Path)
		if err != nil {
			return nil, err
		}
		currentJSON, err := json.Marshal(current)
		if err != nil {
			return nil, err
		}
		if string(currentJSON) != string(op.Value) {
			return nil, fmt.Errorf("test failed at %s", op.Path)
		}
		return tree, nil
	case "remove":
		return pointerRemove(tree, op.Path)
	case "add", "replace":
		var val any
		if err := json.Unmarshal(op.Value, &val); err != nil {
			return nil, fmt.Errorf("decode value: %w", err)
		}
		return pointerSet(tree, op.Path, val)
	case "move":
		val, err := pointerGet(tree, op.From)
		if err != nil {
			return nil, err
		}
		tree, err = pointerRemove(tree, op.From)
		if err != nil {
			return nil, err
		}
		return pointerSet(tree, op.Path, val)
	case "copy":
		val, err := pointerGet(tree, op.From)
		if err != nil {
			return nil, err
		}
		return pointerSet(tree, op.Path, val)
	default:
		return nil, fmt.Errorf("unsupported patch op %q", op.Op)
	}
}

func splitPointer(path string) []string {
	if path == "" || path == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		p = strings.ReplaceAll(p, "~0", "~")
		parts[i] = p
	}
	return parts
}

func pointerGet(tree any, path string) (any, error) {
	segs := splitPointer(path)
	cur := tree
	for _, seg := range segs {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, fmt.Errorf("path %s: missing key %q", path, seg)
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("path %s: bad array index %q", path, seg)
			}
			cur = node[idx]
		default:
			return nil, fmt.Errorf("path %s: cannot descend into scalar", path)
		}
	}
	return cur, nil
}

func pointerSet(tree any, path string, value any) (any, error) {
	segs := splitPointer(path)
	if len(segs) == 0 {
		return value, nil
	}
	return pointerMutate(tree, segs, func(parent any, last string) (any, error) {
		switch node := parent.(type) {
		case map[string]any:
			node[last] = value
			return node, nil
		case []any:
			if last == "-" {
				return append(node, value), nil
			}
			idx, err := strconv.Atoi(last)
			if err != nil || idx < 0 || idx > len(node) {
				return nil, fmt.Errorf("path %s: bad array index %q", path, last)
			}
			if idx == len(node) {
				return append(node, value), nil
			}
			node[idx] = value
			return node, nil
		default:
			return nil, fmt.Errorf("path %s: cannot set on scalar", path)
		}
	})
}

func pointerRemove(tree any, path string) (any, error) {
	segs := splitPointer(path)
	if len(segs) == 0 {
		return nil, fmt.Errorf("cannot remove root")
	}
	return pointerMutate(tree, segs, func(parent any, last string) (any, error) {
		switch node := parent.(type) {
		case map[string]any:
			delete(node, last)
			return node, nil
		case []any:
			idx, err := strconv.Atoi(last)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("path %s: bad array index %q", path, last)
			}
			return append(node[:idx], node[idx+1:]...), nil
		default:
			return nil, fmt.Errorf("path %s: cannot remove from scalar", path)
		}
	})
}

// pointerMutate walks to the parent of the final path segment and
// applies mutate, returning the (possibly new, for array growth) root.
func pointerMutate(tree any, segs []string, mutate func(parent any, last string) (any, error)) (any, error) {
	if len(segs) == 1 {
		return mutate(tree, segs[0])
	}

	head, rest := segs[0], segs[1:]
	switch node := tree.(type) {
	case map[string]any:
		child, ok := node[head]
		if !ok {
			return nil, fmt.Errorf("missing key %q", head)
		}
		newChild, err := pointerMutate(child, rest, mutate)
		if err != nil {
			return nil, err
		}
		node[head] = newChild
		return node, nil
	case []any:
		idx, err := strconv.Atoi(head)
		if err != nil || idx < 0 || idx >= len(node) {
			return nil, fmt.Errorf("bad array index %q", head)
		}
		newChild, err := pointerMutate(node[idx], rest, mutate)
		if err != nil {
			return nil, err
		}
		node[idx] = newChild
		return node, nil
	default:
		return nil, fmt.Errorf("cannot descend into scalar at %q", head)
	}
}
