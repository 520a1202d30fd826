package ontology

import "fmt"

// PropertyValueKind discriminates the tagged sum a PropertyType's
// `one_of` entries resolve to (spec.md §3).
type PropertyValueKind int

const (
	PropertyValueData PropertyValueKind = iota
	PropertyValueObject
	PropertyValueArray
)

// ValueOrArray wraps a PropertyTypeRef that may additionally be
// constrained to appear as an array of that ref.
type ValueOrArray struct {
	Ref     VersionedURL
	IsArray bool
	Array   ArraySchema // only meaningful when IsArray
}

// ArraySchema constrains an array-typed property value.
type ArraySchema struct {
	MinItems *int
	MaxItems *int
}

// Validate checks a slice length against min/max, when set.
func (a ArraySchema) Validate(length int) error {
	if a.MinItems != nil && length < *a.MinItems {
		return fmt.Errorf("ontology: array has %d items, fewer than minItems %d", length, *a.MinItems)
	}
	if a.MaxItems != nil && length > *a.MaxItems {
		return fmt.Errorf("ontology: array has %d items, more than maxItems %d", length, *a.MaxItems)
	}
	return nil
}

// PropertyValue is one entry of a PropertyType's `one_of` list: a
// reference to a data type, a nested object of further property
// types, or an array of PropertyValues.
type PropertyValue struct {
	Kind PropertyValueKind

	// Kind == PropertyValueData
	DataType VersionedURL

	// Kind == PropertyValueObject
	Object map[BaseURL]ValueOrArray

	// Kind == PropertyValueArray
	Array ArraySchema
	Items []PropertyValue // the OneOf<PropertyValues> the array holds
}

// PropertyType is a titled schema whose value conforms to one of its
// OneOf entries.
type PropertyType struct {
	ID          VersionedURL
	Title       string
	Description string
	OneOf       []PropertyValue
}

// Validate checks the structural invariant from spec.md §3: `one_of`
// must be non-empty.
func (p *PropertyType) Validate() error {
	if len(p.OneOf) == 0 {
		return fmt.Errorf("ontology: property type %s has empty one_of", p.ID)
	}
	return nil
}

// SingletonDataType returns the lone data type reference when OneOf
// has exactly one PropertyValueData entry — used by the validation
// engine to infer an ambiguous value's data type (spec.md §4.3 rule 1).
func (p *PropertyType) SingletonDataType() (VersionedURL, bool) {
	if len(p.OneOf) != 1 {
		return VersionedURL{}, false
	}
	if p.OneOf[0].Kind != PropertyValueData {
		return VersionedURL{}, false
	}
	return p.OneOf[0].DataType, true
}
