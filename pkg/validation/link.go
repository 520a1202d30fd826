package validation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hashintel/hash-sub007/pkg/diagnostics"
	"github.com/hashintel/hash-sub007/pkg/ontology"
)

// Link-specific diagnostic codes, named after spec.md §4.3's
// `LinkTargetError` variants.
const (
	CodeMissingLinkData     = "VALIDATION/MISSING_LINK_DATA"
	CodeUnexpectedLinkData  = "VALIDATION/UNEXPECTED_LINK_DATA"
	CodeUnexpectedEntityType = "VALIDATION/LINK_TARGET_UNEXPECTED_ENTITY_TYPE"
)

// Endpoints names the two entities a link entity connects. It is kept
// independent of pkg/store's EntityID so this package has no storage
// dependency; callers holding a store.EntityID can convert via
// uuid.UUID(id).
type Endpoints struct {
	LeftEntityID  uuid.UUID
	RightEntityID uuid.UUID
}

// ClosedTypeResolver fetches the closed multi-type of an already
// stored entity, needed to validate a link's endpoints against each
// other's declared entity types.
type ClosedTypeResolver interface {
	ResolveEntityClosedType(ctx context.Context, entityID uuid.UUID) (*ontology.ClosedMultiEntityType, error)
}

// ValidateLink implements spec.md §4.3/§4.6's link-validation rule: an
// entity whose closed type declares IsLink must carry Endpoints (and
// vice versa); when both endpoints resolve, the left entity's closed
// type must declare a links entry keyed by one of this entity's own
// type ids, and the right entity's closed type must have one of that
// entry's allowed destinations among its own declared type ids.
//
// Note: spec.md additionally asks for an ancestor match "along the
// all-of chain" for the right endpoint — ClosedMultiEntityType does
// not retain the expanded ancestor list (only the merged property/link
// maps), so this checks the right entity's directly-declared type ids
// only. Recording the full ancestor chain would require
// CloseMultiEntityType to additionally return the flattened visited
// set; deferred as an open question (see DESIGN.md).
func (v *Validator) ValidateLink(ctx context.Context, closed *ontology.ClosedMultiEntityType, endpoints *Endpoints, resolver ClosedTypeResolver, bag *diagnostics.Bag) {
	if closed.IsLink && endpoints == nil {
		bag.Push(diagnostics.Issue{Code: CodeMissingLinkData, Severity: diagnostics.SeverityFatal, Message: "entity type declares is_link but no link data was supplied"})
		return
	}
	if !closed.IsLink && endpoints != nil {
		bag.Push(diagnostics.Issue{Code: CodeUnexpectedLinkData, Severity: diagnostics.SeverityFatal, Message: "link data supplied but entity type does not declare is_link"})
		return
	}
	if endpoints == nil {
		return
	}

	leftClosed, err := resolver.ResolveEntityClosedType(ctx, endpoints.LeftEntityID)
	if err != nil {
		bag.Push(diagnostics.Issue{Code: CodeUnresolvableReference, Severity: diagnostics.SeverityFatal, Message: fmt.Sprintf("left entity %s: %v", endpoints.LeftEntityID, err)})
		return
	}
	rightClosed, err := resolver.ResolveEntityClosedType(ctx, endpoints.RightEntityID)
	if err != nil {
		bag.Push(diagnostics.Issue{Code: CodeUnresolvableReference, Severity: diagnostics.SeverityFatal, Message: fmt.Sprintf("right entity %s: %v", endpoints.RightEntityID, err)})
		return
	}

	var dest *ontology.LinkDestinations
	for _, linkTypeID := range closed.TypeIDs {
		if d, ok := leftClosed.Links[linkTypeID.BaseURL]; ok {
			dest = &d
			break
		}
	}
	if dest == nil {
		bag.Push(diagnostics.Issue{
			Code: CodeUnexpectedEntityType, Severity: diagnostics.SeverityError,
			Message: "left entity's type does not declare a links entry for this link type",
		})
		return
	}

	for _, rightTypeID := range rightClosed.TypeIDs {
		if _, ok := dest.Destinations[rightTypeID.BaseURL]; ok {
			return
		}
	}
	bag.Push(diagnostics.Issue{
		Code: CodeUnexpectedEntityType, Severity: diagnostics.SeverityError,
		Message: "right entity's type is not an allowed destination of the left entity's declared link",
	})
}
