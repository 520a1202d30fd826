package ontology

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// SchemaCompatibility expresses a consumer's tolerance for ontology
// type drift as a semver range over a synthetic "major.version.0"
// triple (version is the type's dense integer version; "major" is a
// consumer-declared compatibility epoch bumped only on a
// breaking schema change, since ontology versions themselves carry no
// semantic-versioning information per spec.md §3).
type SchemaCompatibility struct {
	constraints *semver.Constraints
}

// NewSchemaCompatibility builds a compatibility check accepting any
// version within the given major epoch.
func NewSchemaCompatibility(major int) (*SchemaCompatibility, error) {
	c, err := semver.NewConstraint(fmt.Sprintf(">= %d.0.0, < %d.0.0", major, major+1))
	if err != nil {
		return nil, fmt.Errorf("ontology: schema compatibility constraint: %w", err)
	}
	return &SchemaCompatibility{constraints: c}, nil
}

// Accepts reports whether a versioned URL's version falls within the
// accepted compatibility epoch.
func (s *SchemaCompatibility) Accepts(major int, v VersionedURL) bool {
	candidate, err := semver.NewVersion(fmt.Sprintf("%d.%d.0", major, v.Version))
	if err != nil {
		return false
	}
	return s.constraints.Check(candidate)
}
