package ontology_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashintel/hash-sub007/pkg/ontology"
)

func TestDataTypeCompileAndValidateScalar(t *testing.T) {
	dt := &ontology.DataType{
		ID:        vurl("https://example.com/celsius", 1),
		Title:     "Celsius",
		RawSchema: []byte(`{"type":"number"}`),
		Conversions: map[ontology.BaseURL]*ontology.Conversion{
			"https://example.com/fahrenheit": {
				To:         "https://example.com/fahrenheit",
				Expression: "value * 9.0/5.0 + 32.0",
			},
		},
	}

	require.NoError(t, dt.Compile())
	assert.NoError(t, dt.ValidateScalar(20.0))
	assert.Error(t, dt.ValidateScalar("not a number"))

	conv := dt.Conversions["https://example.com/fahrenheit"]
	f, err := conv.Evaluate(0)
	require.NoError(t, err)
	assert.InDelta(t, 32.0, f, 1e-9)
}

func TestPropertyTypeValidateRejectsEmptyOneOf(t *testing.T) {
	pt := &ontology.PropertyType{ID: vurl("https://example.com/name", 1)}
	assert.Error(t, pt.Validate())
}

func TestPropertyTypeSingletonDataType(t *testing.T) {
	dtRef := vurl("https://example.com/text", 1)
	pt := &ontology.PropertyType{
		ID: vurl("https://example.com/name", 1),
		OneOf: []ontology.PropertyValue{
			{Kind: ontology.PropertyValueData, DataType: dtRef},
		},
	}
	got, ok := pt.SingletonDataType()
	require.True(t, ok)
	assert.Equal(t, dtRef, got)
}

func TestArraySchemaValidate(t *testing.T) {
	min, max := 1, 3
	schema := ontology.ArraySchema{MinItems: &min, MaxItems: &max}
	assert.NoError(t, schema.Validate(2))
	assert.Error(t, schema.Validate(0))
	assert.Error(t, schema.Validate(4))
}
