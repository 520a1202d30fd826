// Package ontology implements the immutable type layer (C1):
// data types, property types, entity types, versioned identifiers, and
// closed multi-type resolution.
package ontology

import (
	"fmt"

	"github.com/google/uuid"
)

// BaseURL is the canonical URL prefix identifying a type family,
// independent of version.
type BaseURL string

// VersionedURL is a (base URL, version) pair — the stable identifier
// of one edition of a type.
type VersionedURL struct {
	BaseURL BaseURL
	Version int
}

func (v VersionedURL) String() string {
	return fmt.Sprintf("%s/v/%d", v.BaseURL, v.Version)
}

// Next returns the versioned URL one version ahead, the only version
// update_ontology is allowed to target (spec.md §4.1).
func (v VersionedURL) Next() VersionedURL {
	return VersionedURL{BaseURL: v.BaseURL, Version: v.Version + 1}
}

// OntologyID is the opaque 128-bit identifier interning a
// VersionedURL, per spec.md §3.
type OntologyID uuid.UUID

func (id OntologyID) String() string { return uuid.UUID(id).String() }

// NewOntologyID mints a fresh ontology ID.
func NewOntologyID() OntologyID { return OntologyID(uuid.New()) }

// Kind discriminates the three ontology record shapes that share the
// same identifier and temporal-metadata machinery.
type Kind string

const (
	KindDataType     Kind = "dataType"
	KindPropertyType Kind = "propertyType"
	KindEntityType   Kind = "entityType"
)

// OnConflict controls create_ontology's behavior when a conflicting
// edition already exists.
type OnConflict int

const (
	OnConflictFail OnConflict = iota
	OnConflictSkip
)

// ErrVersionedURLAlreadyExists is returned by create_ontology under
// OnConflictFail when a conflicting edition already exists.
type ErrVersionedURLAlreadyExists struct {
	URL VersionedURL
}

func (e *ErrVersionedURLAlreadyExists) Error() string {
	return fmt.Sprintf("ontology: versioned URL already exists: %s", e.URL)
}
