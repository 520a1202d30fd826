package store

import (
	"github.com/google/uuid"

	"github.com/hashintel/hash-sub007/pkg/ontology"
)

func parseOntologyID(s string) (ontology.OntologyID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ontology.OntologyID{}, err
	}
	return ontology.OntologyID(u), nil
}
