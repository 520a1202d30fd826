package ontology

import "fmt"

// ClosedMultiEntityType is the intersection (all-of) of one or more
// entity types with every AllOf ancestor expanded and merged —
// spec.md §3's "Multi-type closure".
type ClosedMultiEntityType struct {
	TypeIDs    []VersionedURL
	IsLink     bool
	Properties map[BaseURL]PropertyDef
	Links      map[BaseURL]LinkDestinations
}

// ErrContradictoryMultiType is returned when the component entity
// types of a multi-type cannot be intersected without contradiction.
type ErrContradictoryMultiType struct {
	Property BaseURL
	Reason   string
}

func (e *ErrContradictoryMultiType) Error() string {
	return fmt.Sprintf("ontology: contradictory multi-type at property %s: %s", e.Property, e.Reason)
}

// CloseMultiEntityType resolves ts (and every AllOf ancestor,
// transitively) into a single closed type. Cycles in the AllOf chain
// fail closed with ErrUnresolvableReference, per spec.md §9.
func CloseMultiEntityType(resolver EntityTypeResolver, ts []VersionedURL) (*ClosedMultiEntityType, error) {
	if len(ts) == 0 {
		return nil, fmt.Errorf("ontology: multi-type must name at least one entity type")
	}

	visited := make(map[VersionedURL]bool)
	onPath := make(map[VersionedURL]bool)
	flat := make([]*EntityType, 0, len(ts))

	var expand func(id VersionedURL) error
	expand = func(id VersionedURL) error {
		if onPath[id] {
			return &ErrUnresolvableReference{Ref: id}
		}
		if visited[id] {
			return nil
		}
		visited[id] = true
		onPath[id] = true
		defer delete(onPath, id)
		et, err := resolver.ResolveEntityType(id)
		if err != nil {
			return &ErrUnresolvableReference{Ref: id}
		}
		flat = append(flat, et)
		for _, parent := range et.AllOf {
			if err := expand(parent); err != nil {
				return err
			}
		}
		return nil
	}

	for _, id := range ts {
		if err := expand(id); err != nil {
			return nil, err
		}
	}

	closed := &ClosedMultiEntityType{
		TypeIDs:    append([]VersionedURL(nil), ts...),
		Properties: make(map[BaseURL]PropertyDef),
		Links:      make(map[BaseURL]LinkDestinations),
	}

	for _, et := range flat {
		if et.IsLink {
			closed.IsLink = true
		}
		if err := mergeProperties(closed.Properties, et.Properties); err != nil {
			return nil, err
		}
		if err := mergeLinks(closed.Links, et.Links); err != nil {
			return nil, err
		}
	}

	return closed, nil
}

// mergeProperties merges one entity type's property definitions into
// the accumulator. Two components declaring the same property base
// URL must agree on the property type referenced; required wins over
// optional across the merge (a property is required in the closure if
// any component requires it).
func mergeProperties(acc map[BaseURL]PropertyDef, in map[BaseURL]PropertyDef) error {
	for base, def := range in {
		existing, ok := acc[base]
		if !ok {
			acc[base] = def
			continue
		}
		if existing.PropertyType != def.PropertyType {
			return &ErrContradictoryMultiType{
				Property: base,
				Reason:   fmt.Sprintf("conflicting property type refs %s and %s", existing.PropertyType, def.PropertyType),
			}
		}
		merged := existing
		merged.Required = existing.Required || def.Required
		acc[base] = merged
	}
	return nil
}

// mergeLinks merges one entity type's link declarations into the
// accumulator. Two components declaring the same link-type key must
// have a non-empty intersection of allowed destinations; the merged
// destination set is that intersection.
func mergeLinks(acc map[BaseURL]LinkDestinations, in map[BaseURL]LinkDestinations) error {
	for linkBase, dest := range in {
		existing, ok := acc[linkBase]
		if !ok {
			acc[linkBase] = dest
			continue
		}
		intersection := make(map[BaseURL]struct{})
		for d := range existing.Destinations {
			if _, ok := dest.Destinations[d]; ok {
				intersection[d] = struct{}{}
			}
		}
		if len(intersection) == 0 {
			return &ErrContradictoryMultiType{
				Property: linkBase,
				Reason:   "link destination sets do not intersect",
			}
		}
		acc[linkBase] = LinkDestinations{LinkType: existing.LinkType, Destinations: intersection}
	}
	return nil
}

// RequiredPropertyBases returns the base URLs of every property the
// closed type's merge marked required (spec.md §4.3 rule 4).
func (c *ClosedMultiEntityType) RequiredPropertyBases() []BaseURL {
	var out []BaseURL
	for base, def := range c.Properties {
		if def.Required {
			out = append(out, base)
		}
	}
	return out
}

// AllowsLinkTo reports whether the closed type permits a link of
// linkType to reach an entity type whose base URL is destBase —
// spec.md §4.3's link-validation match rule ("base URL match").
func (c *ClosedMultiEntityType) AllowsLinkTo(linkType BaseURL, destBase BaseURL) bool {
	dests, ok := c.Links[linkType]
	if !ok {
		return false
	}
	_, ok = dests.Destinations[destBase]
	return ok
}
