package ontology_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashintel/hash-sub007/pkg/ontology"
)

type fakeResolver struct {
	types map[ontology.VersionedURL]*ontology.EntityType
}

func (f *fakeResolver) ResolveEntityType(id ontology.VersionedURL) (*ontology.EntityType, error) {
	et, ok := f.types[id]
	if !ok {
		return nil, &ontology.ErrUnresolvableReference{Ref: id}
	}
	return et, nil
}

func vurl(base string, v int) ontology.VersionedURL {
	return ontology.VersionedURL{BaseURL: ontology.BaseURL(base), Version: v}
}

func TestCloseMultiEntityTypeMergesProperties(t *testing.T) {
	person := vurl("https://example.com/person", 1)
	employee := vurl("https://example.com/employee", 1)
	nameProp := vurl("https://example.com/name", 1)

	resolver := &fakeResolver{types: map[ontology.VersionedURL]*ontology.EntityType{
		person: {
			ID: person,
			Properties: map[ontology.BaseURL]ontology.PropertyDef{
				"https://example.com/name": {PropertyType: nameProp, Required: true},
			},
		},
		employee: {
			ID:    employee,
			AllOf: []ontology.VersionedURL{person},
			Properties: map[ontology.BaseURL]ontology.PropertyDef{
				"https://example.com/employee-id": {PropertyType: vurl("https://example.com/employee-id", 1), Required: true},
			},
		},
	}}

	closed, err := ontology.CloseMultiEntityType(resolver, []ontology.VersionedURL{employee})
	require.NoError(t, err)
	assert.Len(t, closed.Properties, 2)
	assert.True(t, closed.Properties["https://example.com/name"].Required)
}

func TestCloseMultiEntityTypeContradictoryProperty(t *testing.T) {
	a := vurl("https://example.com/a", 1)
	b := vurl("https://example.com/b", 1)

	resolver := &fakeResolver{types: map[ontology.VersionedURL]*ontology.EntityType{
		a: {ID: a, Properties: map[ontology.BaseURL]ontology.PropertyDef{
			"https://example.com/age": {PropertyType: vurl("https://example.com/number", 1)},
		}},
		b: {ID: b, Properties: map[ontology.BaseURL]ontology.PropertyDef{
			"https://example.com/age": {PropertyType: vurl("https://example.com/string", 1)},
		}},
	}}

	_, err := ontology.CloseMultiEntityType(resolver, []ontology.VersionedURL{a, b})
	require.Error(t, err)
	var contra *ontology.ErrContradictoryMultiType
	assert.ErrorAs(t, err, &contra)
}

func TestCloseMultiEntityTypeCycleFailsClosed(t *testing.T) {
	a := vurl("https://example.com/a", 1)
	b := vurl("https://example.com/b", 1)

	resolver := &fakeResolver{types: map[ontology.VersionedURL]*ontology.EntityType{
		a: {ID: a, AllOf: []ontology.VersionedURL{b}},
		b: {ID: b, AllOf: []ontology.VersionedURL{a}},
	}}

	// A cycle in the AllOf chain fails closed, and so does a reference
	// to a type absent from the resolver.
	_, err := ontology.CloseMultiEntityType(resolver, []ontology.VersionedURL{a})
	require.Error(t, err)

	missing := vurl("https://example.com/missing", 1)
	_, err = ontology.CloseMultiEntityType(resolver, []ontology.VersionedURL{missing})
	require.Error(t, err)
	var unresolved *ontology.ErrUnresolvableReference
	assert.ErrorAs(t, err, &unresolved)
}

func TestAllowsLinkTo(t *testing.T) {
	closed := &ontology.ClosedMultiEntityType{
		Links: map[ontology.BaseURL]ontology.LinkDestinations{
			"https://example.com/friend-of": {
				Destinations: map[ontology.BaseURL]struct{}{
					"https://example.com/person": {},
				},
			},
		},
	}
	assert.True(t, closed.AllowsLinkTo("https://example.com/friend-of", "https://example.com/person"))
	assert.False(t, closed.AllowsLinkTo("https://example.com/friend-of", "https://example.com/book"))
}
