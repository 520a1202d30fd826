package store_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashintel/hash-sub007/pkg/ontology"
	"github.com/hashintel/hash-sub007/pkg/store"
)

func TestCreateEntityThenPatchAppliesAdd(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.CreateEntity(ctx, store.CreateEntityParams{
		EntityTypeIDs: []ontology.VersionedURL{{BaseURL: "https://example.com/person", Version: 1}},
		Properties:    json.RawMessage(`{"https://example.com/name":{"value":"Ada"}}`),
	})
	require.NoError(t, err)

	patched, err := s.PatchEntity(ctx, store.PatchEntityParams{
		EntityID:          created.EntityID,
		LastSeenEditionID: created.EditionID,
		Patch: []store.PropertyPatchOperation{
			{Op: "add", Path: "/https:~1~1example.com~1age", Value: json.RawMessage(`{"value":30}`)},
		},
	})
	require.NoError(t, err)
	assert.NotEqual(t, created.EditionID, patched.EditionID)
}

func TestPatchEntityRejectsStaleEdition(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.CreateEntity(ctx, store.CreateEntityParams{
		EntityTypeIDs: []ontology.VersionedURL{{BaseURL: "https://example.com/person", Version: 1}},
		Properties:    json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	_, err = s.PatchEntity(ctx, store.PatchEntityParams{
		EntityID:          created.EntityID,
		LastSeenEditionID: store.NewEditionID(),
		Patch:             []store.PropertyPatchOperation{{Op: "remove", Path: "/x"}},
	})
	require.ErrorIs(t, err, store.ErrRaceConditionOnUpdate)
}

func TestPatchEntityRejectsUnknownEntity(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.PatchEntity(ctx, store.PatchEntityParams{
		EntityID:          store.NewEntityID(),
		LastSeenEditionID: store.NewEditionID(),
		Patch:             []store.PropertyPatchOperation{{Op: "remove", Path: "/x"}},
	})
	require.ErrorIs(t, err, store.ErrEntityDoesNotExist)
}

func TestCreateEntityWithLinkData(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	left, err := s.CreateEntity(ctx, store.CreateEntityParams{
		EntityTypeIDs: []ontology.VersionedURL{{BaseURL: "https://example.com/person", Version: 1}},
		Properties:    json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	right, err := s.CreateEntity(ctx, store.CreateEntityParams{
		EntityTypeIDs: []ontology.VersionedURL{{BaseURL: "https://example.com/person", Version: 1}},
		Properties:    json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	link, err := s.CreateEntity(ctx, store.CreateEntityParams{
		EntityTypeIDs: []ontology.VersionedURL{{BaseURL: "https://example.com/friend-of", Version: 1}},
		Properties:    json.RawMessage(`{}`),
		LinkData: &store.LinkData{
			LeftEntityID:  left.EntityID,
			RightEntityID: right.EntityID,
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, link.EntityID.String())
}
