package validation_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashintel/hash-sub007/pkg/diagnostics"
	"github.com/hashintel/hash-sub007/pkg/ontology"
	"github.com/hashintel/hash-sub007/pkg/validation"
)

type fakeDataTypes struct {
	byID map[ontology.VersionedURL]*ontology.DataType
}

func (f *fakeDataTypes) ResolveDataType(_ context.Context, id ontology.VersionedURL) (*ontology.DataType, error) {
	dt, ok := f.byID[id]
	if !ok {
		return nil, errNotFound(id)
	}
	return dt, nil
}

type fakeParentLookup struct {
	// parents[child] = candidate ancestor ids that are parents of child
	parents map[ontology.VersionedURL][]ontology.VersionedURL
}

func (f *fakeParentLookup) IsParentOf(_ context.Context, candidate, child ontology.VersionedURL) (bool, error) {
	for _, p := range f.parents[child] {
		if p == candidate {
			return true, nil
		}
	}
	return false, nil
}

type fakePropertyTypes struct {
	byID map[ontology.VersionedURL]*ontology.PropertyType
}

func (f *fakePropertyTypes) ResolvePropertyType(_ context.Context, id ontology.VersionedURL) (*ontology.PropertyType, error) {
	pt, ok := f.byID[id]
	if !ok {
		return nil, errNotFound(id)
	}
	return pt, nil
}

type notFoundErr struct{ id ontology.VersionedURL }

func (e notFoundErr) Error() string { return "not found: " + e.id.String() }
func errNotFound(id ontology.VersionedURL) error { return notFoundErr{id: id} }

var ageDataType = ontology.VersionedURL{BaseURL: "https://graphd.local/data-type/age/", Version: 1}
var integerDataType = ontology.VersionedURL{BaseURL: "https://graphd.local/data-type/integer/", Version: 1}
var textDataType = ontology.VersionedURL{BaseURL: "https://graphd.local/data-type/text/", Version: 1}
var metersDataType = ontology.VersionedURL{BaseURL: "https://graphd.local/data-type/meters/", Version: 1}
var millimetersBase = ontology.BaseURL("https://graphd.local/data-type/millimeters/")

var agePropertyType = ontology.VersionedURL{BaseURL: "https://graphd.local/property-type/age/", Version: 1}
var namePropertyType = ontology.VersionedURL{BaseURL: "https://graphd.local/property-type/name/", Version: 1}
var heightPropertyType = ontology.VersionedURL{BaseURL: "https://graphd.local/property-type/height/", Version: 1}

func newTestValidator() (*validation.Validator, *fakeDataTypes, *fakeParentLookup) {
	dataTypes := &fakeDataTypes{byID: map[ontology.VersionedURL]*ontology.DataType{
		integerDataType: {ID: integerDataType, RawSchema: []byte(`{"type":"integer"}`)},
		ageDataType:     {ID: ageDataType, RawSchema: []byte(`{"type":"integer","minimum":0}`)},
		textDataType:    {ID: textDataType, RawSchema: []byte(`{"type":"string"}`)},
		metersDataType: {
			ID:        metersDataType,
			RawSchema: []byte(`{"type":"number"}`),
			Conversions: map[ontology.BaseURL]*ontology.Conversion{
				millimetersBase: {To: millimetersBase, Expression: "value * 1000.0"},
			},
		},
	}}
	lookup := &fakeParentLookup{parents: map[ontology.VersionedURL][]ontology.VersionedURL{
		ageDataType: {integerDataType},
	}}
	propertyTypes := &fakePropertyTypes{byID: map[ontology.VersionedURL]*ontology.PropertyType{
		agePropertyType: {
			ID:    agePropertyType,
			OneOf: []ontology.PropertyValue{{Kind: ontology.PropertyValueData, DataType: integerDataType}},
		},
		namePropertyType: {
			ID: namePropertyType,
			OneOf: []ontology.PropertyValue{
				{Kind: ontology.PropertyValueData, DataType: textDataType},
				{Kind: ontology.PropertyValueData, DataType: integerDataType},
			},
		},
		heightPropertyType: {
			ID:    heightPropertyType,
			OneOf: []ontology.PropertyValue{{Kind: ontology.PropertyValueData, DataType: metersDataType}},
		},
	}}
	v := validation.NewValidator(dataTypes, lookup, propertyTypes)
	return v, dataTypes, lookup
}

func closedWith(base ontology.BaseURL, ref ontology.VersionedURL, required bool) *ontology.ClosedMultiEntityType {
	return &ontology.ClosedMultiEntityType{
		Properties: map[ontology.BaseURL]ontology.PropertyDef{
			base: {PropertyType: ref, Ref: ontology.ValueOrArray{Ref: ref}, Required: required},
		},
	}
}

func TestValidateEntityDetectsMissingRequiredProperty(t *testing.T) {
	v, _, _ := newTestValidator()
	closed := closedWith("https://graphd.local/property-type/age/base", agePropertyType, true)

	report := v.ValidateEntity(context.Background(), closed, map[ontology.BaseURL]validation.PropertyNode{})
	require.Equal(t, 1, report.Bag.Len())
	assert.Equal(t, validation.CodeMissingRequiredProperty, report.Bag.Issues()[0].Code)
}

func TestValidateEntityRejectsUnknownProperty(t *testing.T) {
	v, _, _ := newTestValidator()
	closed := &ontology.ClosedMultiEntityType{Properties: map[ontology.BaseURL]ontology.PropertyDef{}}

	props := map[ontology.BaseURL]validation.PropertyNode{
		"https://graphd.local/property-type/age/base": validation.Value(float64(30), &integerDataType),
	}
	report := v.ValidateEntity(context.Background(), closed, props)
	require.Equal(t, 1, report.Bag.Len())
	assert.Equal(t, validation.CodeUnknownProperty, report.Bag.Issues()[0].Code)
}

func TestValidateScalarInfersSingletonDataType(t *testing.T) {
	v, _, _ := newTestValidator()
	base := ontology.BaseURL("https://graphd.local/property-type/age/base")
	closed := closedWith(base, agePropertyType, true)

	node := validation.Value(float64(42), nil)
	props := map[ontology.BaseURL]validation.PropertyNode{base: node}
	report := v.ValidateEntity(context.Background(), closed, props)
	assert.Equal(t, 0, report.Bag.Len())
}

func TestValidateScalarRejectsAmbiguousDataType(t *testing.T) {
	v, _, _ := newTestValidator()
	base := ontology.BaseURL("https://graphd.local/property-type/name/base")
	closed := closedWith(base, namePropertyType, true)

	node := validation.Value("Ava", nil)
	report := v.ValidateEntity(context.Background(), closed, map[ontology.BaseURL]validation.PropertyNode{base: node})
	require.Equal(t, 1, report.Bag.Len())
	assert.Equal(t, validation.CodeAmbiguousDataType, report.Bag.Issues()[0].Code)
}

func TestValidateScalarAcceptsDeclaredParentDataType(t *testing.T) {
	v, _, _ := newTestValidator()
	base := ontology.BaseURL("https://graphd.local/property-type/age/base")
	closed := closedWith(base, agePropertyType, true)

	declared := ageDataType
	node := validation.Value(float64(10), &declared)
	report := v.ValidateEntity(context.Background(), closed, map[ontology.BaseURL]validation.PropertyNode{base: node})
	assert.Equal(t, 0, report.Bag.Len())
}

func TestValidateScalarRejectsUnrelatedDeclaredDataType(t *testing.T) {
	v, _, _ := newTestValidator()
	base := ontology.BaseURL("https://graphd.local/property-type/age/base")
	closed := closedWith(base, agePropertyType, true)

	declared := textDataType
	node := validation.Value("nope", &declared)
	report := v.ValidateEntity(context.Background(), closed, map[ontology.BaseURL]validation.PropertyNode{base: node})
	require.Equal(t, 1, report.Bag.Len())
	assert.Equal(t, validation.CodeInvalidDataType, report.Bag.Issues()[0].Code)
}

func TestEvaluateConversionsInsertsCanonicalValue(t *testing.T) {
	v, _, _ := newTestValidator()
	base := ontology.BaseURL("https://graphd.local/property-type/height/base")
	closed := closedWith(base, heightPropertyType, true)

	node := validation.Value(float64(2), nil)
	props := map[ontology.BaseURL]validation.PropertyNode{base: node}
	report := v.ValidateEntity(context.Background(), closed, props)
	require.Equal(t, 0, report.Bag.Len())
	assert.InDelta(t, 2000.0, props[base].Metadata.Canonical[millimetersBase], 1e-9)
}

func TestEvaluateConversionsDetectsCanonicalMismatch(t *testing.T) {
	v, _, _ := newTestValidator()
	base := ontology.BaseURL("https://graphd.local/property-type/height/base")
	closed := closedWith(base, heightPropertyType, true)

	node := validation.Value(float64(2), nil)
	node.Metadata.Canonical[millimetersBase] = 1.0 // wrong on purpose
	props := map[ontology.BaseURL]validation.PropertyNode{base: node}
	report := v.ValidateEntity(context.Background(), closed, props)
	require.Equal(t, 1, report.Bag.Len())
	assert.Equal(t, validation.CodeCanonicalMismatch, report.Bag.Issues()[0].Code)
}

func TestValidateArrayBounds(t *testing.T) {
	v, _, _ := newTestValidator()
	base := ontology.BaseURL("https://graphd.local/property-type/age/base")
	minItems := 2
	closed := &ontology.ClosedMultiEntityType{
		Properties: map[ontology.BaseURL]ontology.PropertyDef{
			base: {
				PropertyType: agePropertyType,
				Ref:          ontology.ValueOrArray{Ref: agePropertyType, IsArray: true, Array: ontology.ArraySchema{MinItems: &minItems}},
				Required:     true,
			},
		},
	}
	node := validation.Array([]validation.PropertyNode{validation.Value(float64(1), nil)})
	report := v.ValidateEntity(context.Background(), closed, map[ontology.BaseURL]validation.PropertyNode{base: node})
	require.Equal(t, 1, report.Bag.Len())
	assert.Equal(t, validation.CodeArrayBounds, report.Bag.Issues()[0].Code)
}

type fakeClosedTypeResolver struct {
	byEntity map[uuid.UUID]*ontology.ClosedMultiEntityType
}

func (f *fakeClosedTypeResolver) ResolveEntityClosedType(_ context.Context, id uuid.UUID) (*ontology.ClosedMultiEntityType, error) {
	closed, ok := f.byEntity[id]
	if !ok {
		return nil, notFoundErr{}
	}
	return closed, nil
}

func TestValidateLinkRequiresEndpointsWhenIsLink(t *testing.T) {
	v, _, _ := newTestValidator()
	closed := &ontology.ClosedMultiEntityType{IsLink: true}
	bag := diagnostics.NewBag()
	v.ValidateLink(context.Background(), closed, nil, &fakeClosedTypeResolver{}, bag)
	require.Equal(t, 1, bag.Len())
	assert.Equal(t, validation.CodeMissingLinkData, bag.Issues()[0].Code)
}

func TestValidateLinkChecksDestinationEntityType(t *testing.T) {
	v, _, _ := newTestValidator()
	linkTypeBase := ontology.BaseURL("https://graphd.local/entity-type/friend-of/")
	closed := &ontology.ClosedMultiEntityType{
		IsLink:  true,
		TypeIDs: []ontology.VersionedURL{{BaseURL: linkTypeBase, Version: 1}},
	}

	personBase := ontology.BaseURL("https://graphd.local/entity-type/person/")
	dogBase := ontology.BaseURL("https://graphd.local/entity-type/dog/")

	left := uuid.New()
	right := uuid.New()
	resolver := &fakeClosedTypeResolver{byEntity: map[uuid.UUID]*ontology.ClosedMultiEntityType{
		left: {
			TypeIDs: []ontology.VersionedURL{{BaseURL: personBase, Version: 1}},
			Links: map[ontology.BaseURL]ontology.LinkDestinations{
				linkTypeBase: {LinkType: closed.TypeIDs[0], Destinations: map[ontology.BaseURL]struct{}{personBase: {}}},
			},
		},
		right: {TypeIDs: []ontology.VersionedURL{{BaseURL: dogBase, Version: 1}}},
	}}

	bag := diagnostics.NewBag()
	v.ValidateLink(context.Background(), closed, &validation.Endpoints{LeftEntityID: left, RightEntityID: right}, resolver, bag)
	require.Equal(t, 1, bag.Len())
	assert.Equal(t, validation.CodeUnexpectedEntityType, bag.Issues()[0].Code)
}
