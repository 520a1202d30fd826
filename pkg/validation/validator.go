package validation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/hashintel/hash-sub007/pkg/diagnostics"
	"github.com/hashintel/hash-sub007/pkg/ontology"
)

// Diagnostic codes raised by the property walk (spec.md §4.3).
const (
	CodeInvalidDataType          = "VALIDATION/INVALID_DATA_TYPE"
	CodeAmbiguousDataType        = "VALIDATION/AMBIGUOUS_DATA_TYPE"
	CodeScalarConstraintViolated = "VALIDATION/SCALAR_CONSTRAINT_VIOLATED"
	CodeInvalidType              = "VALIDATION/INVALID_TYPE"
	CodeCanonicalMismatch        = "VALIDATION/CANONICAL_MISMATCH"
	CodeArrayBounds              = "VALIDATION/ARRAY_BOUNDS"
	CodeMissingRequiredProperty  = "VALIDATION/MISSING_REQUIRED_PROPERTY"
	CodeUnknownProperty          = "VALIDATION/UNKNOWN_PROPERTY"
	CodeUnresolvableReference    = "VALIDATION/UNRESOLVABLE_REFERENCE"
	CodeStructuralMismatch       = "VALIDATION/STRUCTURAL_MISMATCH"
)

// epsilonF64 matches Rust's f64::EPSILON, the tolerance spec.md §4.3
// rule 2 compares canonical conversions within.
const epsilonF64 = 2.220446049250313e-16

// DataTypeResolver fetches a data type definition by versioned URL —
// distinct from ontology.DataTypeLookup, which only answers
// parent/child questions without returning the full definition.
type DataTypeResolver interface {
	ResolveDataType(ctx context.Context, id ontology.VersionedURL) (*ontology.DataType, error)
}

// PropertyTypeResolver fetches a property type definition by
// versioned URL.
type PropertyTypeResolver interface {
	ResolvePropertyType(ctx context.Context, id ontology.VersionedURL) (*ontology.PropertyType, error)
}

// Validator runs the property-tree walk and link validation described
// in spec.md §4.3 against a caller-supplied set of ontology resolvers.
type Validator struct {
	DataTypes     DataTypeResolver
	DataTypeLinks ontology.DataTypeLookup
	PropertyTypes PropertyTypeResolver
}

// NewValidator builds a Validator from its three resolver dependencies.
func NewValidator(dataTypes DataTypeResolver, lookup ontology.DataTypeLookup, propertyTypes PropertyTypeResolver) *Validator {
	return &Validator{DataTypes: dataTypes, DataTypeLinks: lookup, PropertyTypes: propertyTypes}
}

// Report is the PostInsertionEntityValidationReport of spec.md §4.3:
// the accumulated diagnostics from the property walk and (when
// ValidateLink is called alongside) link validation.
type Report struct {
	Bag *diagnostics.Bag
}

// ValidateEntity walks properties against closed's merged property
// schema: required-property presence (rule 4), unknown-property
// rejection, and recursive per-property validation.
func (v *Validator) ValidateEntity(ctx context.Context, closed *ontology.ClosedMultiEntityType, properties map[ontology.BaseURL]PropertyNode) *Report {
	bag := diagnostics.NewBag()

	required := closed.RequiredPropertyBases()
	sort.Slice(required, func(i, j int) bool { return required[i] < required[j] })
	for _, base := range required {
		if _, ok := properties[base]; !ok {
			bag.Push(diagnostics.Issue{
				Code: CodeMissingRequiredProperty, Severity: diagnostics.SeverityError,
				Message: fmt.Sprintf("required property %s is missing", base),
				At:      "/" + string(base),
			})
		}
	}

	bases := make([]ontology.BaseURL, 0, len(properties))
	for base := range properties {
		bases = append(bases, base)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })

	for _, base := range bases {
		node := properties[base]
		def, ok := closed.Properties[base]
		if !ok {
			bag.Push(diagnostics.Issue{
				Code: CodeUnknownProperty, Severity: diagnostics.SeverityError,
				Message: fmt.Sprintf("property %s is not declared by any component of the multi-type", base),
				At:      "/" + string(base),
			})
			continue
		}
		v.validateValueOrArray(ctx, def.Ref, node, "/"+string(base), bag)
	}

	return &Report{Bag: bag}
}

func (v *Validator) validateValueOrArray(ctx context.Context, ref ontology.ValueOrArray, node PropertyNode, path string, bag *diagnostics.Bag) {
	if ref.IsArray {
		if node.Kind != NodeArray {
			bag.Push(diagnostics.Issue{
				Code: CodeStructuralMismatch, Severity: diagnostics.SeverityError,
				Message: "expected an array value", At: path,
			})
			return
		}
		if err := ref.Array.Validate(len(node.Array)); err != nil {
			bag.Push(diagnostics.Issue{Code: CodeArrayBounds, Severity: diagnostics.SeverityError, Message: err.Error(), At: path})
		}
		for i, item := range node.Array {
			v.validatePropertyTypeRef(ctx, ref.Ref, item, fmt.Sprintf("%s/%d", path, i), bag)
		}
		return
	}
	v.validatePropertyTypeRef(ctx, ref.Ref, node, path, bag)
}

func (v *Validator) validatePropertyTypeRef(ctx context.Context, ref ontology.VersionedURL, node PropertyNode, path string, bag *diagnostics.Bag) {
	pt, err := v.PropertyTypes.ResolvePropertyType(ctx, ref)
	if err != nil {
		bag.Push(diagnostics.Issue{
			Code: CodeUnresolvableReference, Severity: diagnostics.SeverityFatal,
			Message: fmt.Sprintf("property type %s: %v", ref, err), At: path,
		})
		return
	}
	v.validateOneOf(ctx, pt.OneOf, &node, path, bag)
}

// validateOneOf matches node against the oneOf union, recursing into
// whichever PropertyValue variant structurally fits (spec.md §4.3
// rules 1-3). This is shared between a PropertyType's top-level
// `one_of` and the `items` of an array-typed PropertyValue, since both
// are OneOf<PropertyValue> unions in the ontology model.
func (v *Validator) validateOneOf(ctx context.Context, oneOf []ontology.PropertyValue, node *PropertyNode, path string, bag *diagnostics.Bag) {
	switch node.Kind {
	case NodeValue:
		v.validateScalar(ctx, oneOf, node, path, bag)
	case NodeObject:
		entry, ok := findKind(oneOf, ontology.PropertyValueObject)
		if !ok {
			bag.Push(diagnostics.Issue{Code: CodeStructuralMismatch, Severity: diagnostics.SeverityError, Message: "value is an object but schema declares none", At: path})
			return
		}
		for base, child := range entry.Object {
			if sub, ok := node.Object[base]; ok {
				v.validateValueOrArray(ctx, child, sub, path+"/"+string(base), bag)
			}
		}
	case NodeArray:
		entry, ok := findKind(oneOf, ontology.PropertyValueArray)
		if !ok {
			bag.Push(diagnostics.Issue{Code: CodeStructuralMismatch, Severity: diagnostics.SeverityError, Message: "value is an array but schema declares none", At: path})
			return
		}
		if err := entry.Array.Validate(len(node.Array)); err != nil {
			bag.Push(diagnostics.Issue{Code: CodeArrayBounds, Severity: diagnostics.SeverityError, Message: err.Error(), At: path})
		}
		for i := range node.Array {
			item := node.Array[i]
			v.validateOneOf(ctx, entry.Items, &item, fmt.Sprintf("%s/%d", path, i), bag)
			node.Array[i] = item
		}
	}
}

func findKind(oneOf []ontology.PropertyValue, kind ontology.PropertyValueKind) (ontology.PropertyValue, bool) {
	for _, v := range oneOf {
		if v.Kind == kind {
			return v, true
		}
	}
	return ontology.PropertyValue{}, false
}

// validateScalar implements rules 1 and 2 of spec.md §4.3: data-type
// resolution (exact match, parent/child relation, or singleton
// inference) followed by scalar schema validation and conversion
// evaluation.
func (v *Validator) validateScalar(ctx context.Context, oneOf []ontology.PropertyValue, node *PropertyNode, path string, bag *diagnostics.Bag) {
	candidates := make([]ontology.VersionedURL, 0, len(oneOf))
	for _, entry := range oneOf {
		if entry.Kind == ontology.PropertyValueData {
			candidates = append(candidates, entry.DataType)
		}
	}

	resolved, ok := v.resolveDeclaredDataType(ctx, candidates, node, path, bag)
	if !ok {
		return
	}

	dt, err := v.DataTypes.ResolveDataType(ctx, resolved)
	if err != nil {
		bag.Push(diagnostics.Issue{Code: CodeUnresolvableReference, Severity: diagnostics.SeverityFatal, Message: fmt.Sprintf("data type %s: %v", resolved, err), At: path})
		return
	}

	if err := dt.ValidateScalar(node.Value); err != nil {
		bag.Push(diagnostics.Issue{Code: CodeScalarConstraintViolated, Severity: diagnostics.SeverityError, Message: err.Error(), At: path})
	}

	v.evaluateConversions(dt, node, path, bag)
}

func (v *Validator) resolveDeclaredDataType(ctx context.Context, candidates []ontology.VersionedURL, node *PropertyNode, path string, bag *diagnostics.Bag) (ontology.VersionedURL, bool) {
	if node.Metadata.DataTypeID != nil {
		declared := *node.Metadata.DataTypeID
		for _, c := range candidates {
			if c == declared {
				return declared, true
			}
		}
		for _, c := range candidates {
			isParent, err := v.DataTypeLinks.IsParentOf(ctx, c, declared)
			if err == nil && isParent {
				return declared, true
			}
		}
		bag.Push(diagnostics.Issue{
			Code: CodeInvalidDataType, Severity: diagnostics.SeverityError,
			Message: fmt.Sprintf("declared data type %s is not (or does not descend from) any of the schema's declared data types", declared),
			At:      path,
		})
		return ontology.VersionedURL{}, false
	}

	if len(candidates) == 1 {
		dt, err := v.DataTypes.ResolveDataType(ctx, candidates[0])
		if err == nil && !dt.Abstract {
			node.Metadata.DataTypeID = &candidates[0]
			return candidates[0], true
		}
	}

	bag.Push(diagnostics.Issue{
		Code: CodeAmbiguousDataType, Severity: diagnostics.SeverityError,
		Message: "value has no declared data type and none can be inferred from a singleton non-abstract one_of entry",
		At:      path,
	})
	return ontology.VersionedURL{}, false
}

func (v *Validator) evaluateConversions(dt *ontology.DataType, node *PropertyNode, path string, bag *diagnostics.Bag) {
	if len(dt.Conversions) == 0 {
		return
	}
	numeric, ok := asFloat64(node.Value)
	if !ok {
		bag.Push(diagnostics.Issue{
			Code: CodeInvalidType, Severity: diagnostics.SeverityError,
			Message: fmt.Sprintf("data type %s declares conversions but the value is not numeric", dt.ID), At: path,
		})
		return
	}

	targets := make([]ontology.BaseURL, 0, len(dt.Conversions))
	for target := range dt.Conversions {
		targets = append(targets, target)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })

	if node.Metadata.Canonical == nil {
		node.Metadata.Canonical = make(map[ontology.BaseURL]float64)
	}
	for _, target := range targets {
		conv := dt.Conversions[target]
		computed, err := conv.Evaluate(numeric)
		if err != nil {
			bag.Push(diagnostics.Issue{Code: CodeInvalidType, Severity: diagnostics.SeverityError, Message: err.Error(), At: path})
			continue
		}
		if existing, ok := node.Metadata.Canonical[target]; ok {
			if math.Abs(existing-computed) > epsilonF64 {
				bag.Push(diagnostics.Issue{
					Code: CodeCanonicalMismatch, Severity: diagnostics.SeverityError,
					Message: fmt.Sprintf("canonical value for %s is %g, conversion computed %g", target, existing, computed),
					At:      path,
				})
			}
			continue
		}
		node.Metadata.Canonical[target] = computed
	}
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
