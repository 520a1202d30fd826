package store_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashintel/hash-sub007/pkg/filter"
	"github.com/hashintel/hash-sub007/pkg/ontology"
	"github.com/hashintel/hash-sub007/pkg/store"
)

// TestQueryEntitiesEndToEndThroughSelectCompiler drives a filter.Filter
// through filter.SelectCompiler into store.Store.QueryEntities,
// exercising the join between C4 (pkg/filter) and C3 (pkg/store) that
// store.CompiledQuery's alias to filter.Compiled makes possible.
func TestQueryEntitiesEndToEndThroughSelectCompiler(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.CreateEntity(ctx, store.CreateEntityParams{
		EntityTypeIDs: []ontology.VersionedURL{{BaseURL: "https://example.com/person", Version: 1}},
		Properties:    json.RawMessage(`{"https://example.com/name":{"value":"Ada"}}`),
	})
	require.NoError(t, err)

	_, err = s.CreateEntity(ctx, store.CreateEntityParams{
		EntityTypeIDs: []ontology.VersionedURL{{BaseURL: "https://example.com/person", Version: 1}},
		Properties:    json.RawMessage(`{"https://example.com/name":{"value":"Grace"}}`),
	})
	require.NoError(t, err)

	path := filter.QueryPath{
		Joins: []filter.JoinStep{
			{Table: "entity_editions", LocalColumn: "entity_id", ForeignColumn: "entity_id"},
		},
		Column:    "entity_id",
		ParamType: filter.ParamUuid,
	}
	f := filter.Equal(filter.PathExpr(path), filter.ParamExpr(filter.Uuid(created.EntityID.String())))

	c := filter.NewSelectCompiler(filter.DialectSQLite, "entities", nil, true)
	require.NoError(t, c.Compile(f))

	compiled, err := c.Build("entities.entity_id AS entity_id", "entity_editions.properties_json AS properties_json")
	require.NoError(t, err)

	results, err := s.QueryEntities(ctx, compiled)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, created.EntityID.String(), results[0].Columns["entity_id"])
	assert.JSONEq(t, `{"https://example.com/name":{"value":"Ada"}}`, results[0].Columns["properties_json"])
}
