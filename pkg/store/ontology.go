package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hashintel/hash-sub007/pkg/ontology"
)

// OntologyTemporalMetadata is the transaction-time envelope returned
// by every ontology write (spec.md §4.1).
type OntologyTemporalMetadata struct {
	TransactionTimeStart time.Time
	TransactionTimeEnd   *time.Time
	Archived             bool
}

// ErrRaceConditionOnUpdate is returned by PatchEntity when the
// caller's last-seen edition is not the currently-open one.
var ErrRaceConditionOnUpdate = errors.New("store: race condition on update")

// ErrEntityDoesNotExist is returned when an operation targets an
// unknown entity id.
var ErrEntityDoesNotExist = errors.New("store: entity does not exist")

// CreateOntology inserts a fresh edition of a type document
// identified by id, under the given on-conflict policy. raw is the
// canonical JSON document for the type (a DataType, PropertyType, or
// EntityType marshaled by the caller).
func (s *Store) CreateOntology(ctx context.Context, id ontology.VersionedURL, kind ontology.Kind, webID string, raw []byte, onConflict ontology.OnConflict) (ontology.OntologyID, OntologyTemporalMetadata, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ontology.OntologyID{}, OntologyTemporalMetadata{}, fmt.Errorf("store: begin create_ontology: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exists, err := s.ontologyIDExists(ctx, tx, id)
	if err != nil {
		return ontology.OntologyID{}, OntologyTemporalMetadata{}, err
	}
	if exists {
		switch onConflict {
		case ontology.OnConflictSkip:
			oid, meta, err := s.currentOntologyEdition(ctx, tx, id)
			if err != nil {
				return ontology.OntologyID{}, OntologyTemporalMetadata{}, err
			}
			return oid, meta, tx.Commit()
		default:
			return ontology.OntologyID{}, OntologyTemporalMetadata{}, &ontology.ErrVersionedURLAlreadyExists{URL: id}
		}
	}

	oid := ontology.NewOntologyID()
	now := time.Now().UTC()

	insertID := fmt.Sprintf(
		"INSERT INTO ontology_ids (ontology_id, base_url, version, kind) VALUES (%s, %s, %s, %s)",
		s.ph(1), s.ph(2), s.ph(3), s.ph(4),
	)
	if _, err := tx.ExecContext(ctx, insertID, oid.String(), string(id.BaseURL), id.Version, string(kind)); err != nil {
		return ontology.OntologyID{}, OntologyTemporalMetadata{}, fmt.Errorf("store: insert ontology_ids: %w", err)
	}

	insertEdition := fmt.Sprintf(
		"INSERT INTO ontology_editions (ontology_id, schema_json, web_id, transaction_time_start, transaction_time_end, archived) VALUES (%s, %s, %s, %s, NULL, 0)",
		s.ph(1), s.ph(2), s.ph(3), s.ph(4),
	)
	if _, err := tx.ExecContext(ctx, insertEdition, oid.String(), string(raw), webID, now.Format(time.RFC3339Nano)); err != nil {
		return ontology.OntologyID{}, OntologyTemporalMetadata{}, fmt.Errorf("store: insert ontology_editions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ontology.OntologyID{}, OntologyTemporalMetadata{}, fmt.Errorf("store: commit create_ontology: %w", err)
	}

	return oid, OntologyTemporalMetadata{TransactionTimeStart: now}, nil
}

// UpdateOntology closes the prior edition's transaction interval and
// opens a new one at now, enforcing that newSchemaID.Version equals
// the prior version + 1 (spec.md §4.1).
func (s *Store) UpdateOntology(ctx context.Context, newSchemaID ontology.VersionedURL, kind ontology.Kind, webID string, raw []byte) (ontology.OntologyID, OntologyTemporalMetadata, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ontology.OntologyID{}, OntologyTemporalMetadata{}, fmt.Errorf("store: begin update_ontology: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	prior := ontology.VersionedURL{BaseURL: newSchemaID.BaseURL, Version: newSchemaID.Version - 1}
	priorID, err := s.lookupOntologyID(ctx, tx, prior)
	if err != nil {
		return ontology.OntologyID{}, OntologyTemporalMetadata{}, fmt.Errorf("store: prior edition %s not found: %w", prior, err)
	}

	now := time.Now().UTC()
	closePrior := fmt.Sprintf(
		"UPDATE ontology_editions SET transaction_time_end = %s WHERE ontology_id = %s AND transaction_time_end IS NULL",
		s.ph(1), s.ph(2),
	)
	if _, err := tx.ExecContext(ctx, closePrior, now.Format(time.RFC3339Nano), priorID.String()); err != nil {
		return ontology.OntologyID{}, OntologyTemporalMetadata{}, fmt.Errorf("store: close prior ontology edition: %w", err)
	}

	oid := ontology.NewOntologyID()
	insertID := fmt.Sprintf(
		"INSERT INTO ontology_ids (ontology_id, base_url, version, kind) VALUES (%s, %s, %s, %s)",
		s.ph(1), s.ph(2), s.ph(3), s.ph(4),
	)
	if _, err := tx.ExecContext(ctx, insertID, oid.String(), string(newSchemaID.BaseURL), newSchemaID.Version, string(kind)); err != nil {
		return ontology.OntologyID{}, OntologyTemporalMetadata{}, fmt.Errorf("store: insert new ontology_ids: %w", err)
	}

	insertEdition := fmt.Sprintf(
		"INSERT INTO ontology_editions (ontology_id, schema_json, web_id, transaction_time_start, transaction_time_end, archived) VALUES (%s, %s, %s, %s, NULL, 0)",
		s.ph(1), s.ph(2), s.ph(3), s.ph(4),
	)
	if _, err := tx.ExecContext(ctx, insertEdition, oid.String(), string(raw), webID, now.Format(time.RFC3339Nano)); err != nil {
		return ontology.OntologyID{}, OntologyTemporalMetadata{}, fmt.Errorf("store: insert new ontology_editions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ontology.OntologyID{}, OntologyTemporalMetadata{}, fmt.Errorf("store: commit update_ontology: %w", err)
	}

	return oid, OntologyTemporalMetadata{TransactionTimeStart: now}, nil
}

// Archive closes the transaction interval of id's open edition
// without producing a new version.
func (s *Store) Archive(ctx context.Context, id ontology.VersionedURL) (OntologyTemporalMetadata, error) {
	return s.setArchived(ctx, id, true)
}

// Unarchive re-opens the transaction interval of id's edition.
func (s *Store) Unarchive(ctx context.Context, id ontology.VersionedURL) (OntologyTemporalMetadata, error) {
	return s.setArchived(ctx, id, false)
}

func (s *Store) setArchived(ctx context.Context, id ontology.VersionedURL, archived bool) (OntologyTemporalMetadata, error) {
	oid, err := s.lookupOntologyID(ctx, s.db, id)
	if err != nil {
		return OntologyTemporalMetadata{}, fmt.Errorf("store: lookup ontology id %s: %w", id, err)
	}

	var query string
	var args []any
	if archived {
		query = fmt.Sprintf(
			"UPDATE ontology_editions SET archived = 1, transaction_time_end = %s WHERE ontology_id = %s AND transaction_time_end IS NULL",
			s.ph(1), s.ph(2),
		)
		args = []any{time.Now().UTC().Format(time.RFC3339Nano), oid.String()}
	} else {
		query = fmt.Sprintf(
			"UPDATE ontology_editions SET archived = 0, transaction_time_end = NULL WHERE ontology_id = %s AND archived = 1",
			s.ph(1),
		)
		args = []any{oid.String()}
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return OntologyTemporalMetadata{}, fmt.Errorf("store: set archived: %w", err)
	}
	return OntologyTemporalMetadata{Archived: archived}, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx, letting lookup
// helpers run inside or outside an open transaction.
type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) lookupOntologyID(ctx context.Context, q execer, id ontology.VersionedURL) (ontology.OntologyID, error) {
	query := fmt.Sprintf(
		"SELECT ontology_id FROM ontology_ids WHERE base_url = %s AND version = %s",
		s.ph(1), s.ph(2),
	)
	var idStr string
	if err := q.QueryRowContext(ctx, query, string(id.BaseURL), id.Version).Scan(&idStr); err != nil {
		return ontology.OntologyID{}, err
	}
	parsed, err := parseOntologyID(idStr)
	if err != nil {
		return ontology.OntologyID{}, err
	}
	return parsed, nil
}

func (s *Store) ontologyIDExists(ctx context.Context, q execer, id ontology.VersionedURL) (bool, error) {
	_, err := s.lookupOntologyID(ctx, q, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("store: check ontology existence: %w", err)
	}
	return true, nil
}

func (s *Store) currentOntologyEdition(ctx context.Context, q execer, id ontology.VersionedURL) (ontology.OntologyID, OntologyTemporalMetadata, error) {
	oid, err := s.lookupOntologyID(ctx, q, id)
	if err != nil {
		return ontology.OntologyID{}, OntologyTemporalMetadata{}, err
	}
	query := fmt.Sprintf(
		"SELECT transaction_time_start, archived FROM ontology_editions WHERE ontology_id = %s AND transaction_time_end IS NULL",
		s.ph(1),
	)
	var start string
	var archivedInt int
	if err := q.QueryRowContext(ctx, query, oid.String()).Scan(&start, &archivedInt); err != nil {
		return ontology.OntologyID{}, OntologyTemporalMetadata{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, start)
	if err != nil {
		return ontology.OntologyID{}, OntologyTemporalMetadata{}, err
	}
	return oid, OntologyTemporalMetadata{TransactionTimeStart: t, Archived: archivedInt != 0}, nil
}
