// SPDX-License-Identifier: Apache-2.0

// Package postgres is the PostgreSQL-backed Schema Repository (spec §4.4,
// §6.1), built on the same lock_timeout-retrying transaction wrapper the
// teacher repository uses against its own state schema.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/forgemodel/forge-model/pkg/db"
	"github.com/forgemodel/forge-model/pkg/forgeerr"
	"github.com/forgemodel/forge-model/pkg/store"
)

const uniqueViolation pq.ErrorCode = "23505"

var _ store.SchemaStore = (*Store)(nil)

// Store is the PostgreSQL store.SchemaStore implementation.
type Store struct {
	db    db.DB
	clock store.Clock
}

// New wraps an already-open *sql.DB with retry semantics and the given
// clock. Pass nil for clock to use time.Now.
func New(conn *sql.DB, clock store.Clock) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{db: &db.RDB{DB: conn}, clock: clock}
}

func (s *Store) Close() error { return s.db.Close() }

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// CreateSchema inserts a draft SchemaRecord, its derived dependency edges,
// and a "created" ChangeLogEntry, all within one transaction (spec §4.4).
func (s *Store) CreateSchema(ctx context.Context, rec store.SchemaRecord, edges []store.DependencyEdge, actor string) (*store.SchemaRecord, error) {
	rec.ID = newID()
	now := s.clock()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = store.SchemaDraft
	}

	err := s.db.WithRetryableTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO forge_schemas
				(id, model_id, version, name, table_name, definition, status, is_system, created_by, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			rec.ID, rec.ModelID, rec.Version, rec.Name, rec.TableName, rec.Definition,
			rec.Status, rec.IsSystem, rec.CreatedBy, rec.CreatedAt, rec.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return forgeerr.DuplicateVersion{ModelID: rec.ModelID, Version: rec.Version}
			}
			return err
		}

		for i := range edges {
			edges[i].FromSchemaID = rec.ID
			if err := insertEdge(ctx, tx, edges[i]); err != nil {
				return err
			}
		}

		return insertChangeLog(ctx, tx, store.ChangeLogEntry{
			ID:         newID(),
			SchemaID:   rec.ID,
			ChangeType: store.ChangeCreated,
			NewState:   rec.Definition,
			Actor:      actor,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func insertEdge(ctx context.Context, tx *sql.Tx, e store.DependencyEdge) error {
	var toID interface{}
	if e.ToSchemaID != "" {
		toID = e.ToSchemaID
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO forge_schema_edges (id, from_schema_id, to_schema_id, to_model_id, dependency_type, field_name, config)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		newID(), e.FromSchemaID, toID, e.ToModelID, e.Type, nullStr(e.FieldName), e.Config)
	return err
}

func insertChangeLog(ctx context.Context, tx *sql.Tx, entry store.ChangeLogEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO forge_change_log (id, schema_id, change_type, previous_state, new_state, actor, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		entry.ID, entry.SchemaID, entry.ChangeType, entry.PreviousState, entry.NewState, entry.Actor, entry.OccurredAt)
	return err
}

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func newID() string { return uuid.NewString() }

// GetSchema reads one SchemaRecord by id.
func (s *Store) GetSchema(ctx context.Context, id string) (*store.SchemaRecord, error) {
	return s.querySchemaOne(ctx, schemaSelectSQL+" WHERE id = $1", id)
}

// GetActiveSchema reads the currently-active SchemaRecord for modelID, or
// forgeerr.NotFound if none is active.
func (s *Store) GetActiveSchema(ctx context.Context, modelID string) (*store.SchemaRecord, error) {
	return s.querySchemaOne(ctx, schemaSelectSQL+" WHERE model_id = $1 AND status = 'active'", modelID)
}

func (s *Store) querySchemaOne(ctx context.Context, query string, args ...interface{}) (*store.SchemaRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, forgeerr.NotFound{Kind: "schema", Key: ""}
	}
	return scanSchemaRow(rows)
}

// ListSchemas lists all versions of modelID (or every schema, if modelID is
// empty) ordered by created_at ascending.
func (s *Store) ListSchemas(ctx context.Context, modelID string) ([]*store.SchemaRecord, error) {
	query := schemaSelectSQL
	var args []interface{}
	if modelID != "" {
		query += " WHERE model_id = $1"
		args = append(args, modelID)
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*store.SchemaRecord
	for rows.Next() {
		rec, err := scanSchemaRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const schemaSelectSQL = `
	SELECT id, model_id, version, name, table_name, definition, status, is_system, created_by, created_at, updated_at
	FROM forge_schemas`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSchema(row scanner) (*store.SchemaRecord, error) {
	rec, err := scanSchemaRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, forgeerr.NotFound{Kind: "schema", Key: ""}
	}
	return rec, err
}

func scanSchemaRow(row scanner) (*store.SchemaRecord, error) {
	var rec store.SchemaRecord
	err := row.Scan(&rec.ID, &rec.ModelID, &rec.Version, &rec.Name, &rec.TableName,
		&rec.Definition, &rec.Status, &rec.IsSystem, &rec.CreatedBy, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateSchema replaces a draft SchemaRecord's mutable fields. Only
// permitted while status = draft (spec §4.4).
func (s *Store) UpdateSchema(ctx context.Context, rec store.SchemaRecord, actor string) (*store.SchemaRecord, error) {
	now := s.clock()

	err := s.db.WithRetryableTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		existing, err := scanSchema(tx.QueryRowContext(ctx, schemaSelectSQL+" WHERE id = $1 FOR UPDATE", rec.ID))
		if err != nil {
			return err
		}
		if existing.IsSystem {
			return forgeerr.ImmutableSystem{SchemaID: rec.ID}
		}
		if existing.Status != store.SchemaDraft {
			return forgeerr.ImmutableActive{SchemaID: rec.ID, Status: string(existing.Status)}
		}

		prev := existing.Definition
		rec.UpdatedAt = now
		_, err = tx.ExecContext(ctx, `
			UPDATE forge_schemas SET name=$1, table_name=$2, definition=$3, updated_at=$4 WHERE id=$5`,
			rec.Name, rec.TableName, rec.Definition, rec.UpdatedAt, rec.ID)
		if err != nil {
			return err
		}

		return insertChangeLog(ctx, tx, store.ChangeLogEntry{
			ID: newID(), SchemaID: rec.ID, ChangeType: store.ChangeUpdated,
			PreviousState: prev, NewState: rec.Definition, Actor: actor, OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetSchema(ctx, rec.ID)
}

// ActivateSchema demotes any other active schema for the same model_id and
// activates id (spec §4.4: "atomically demotes any other active schema").
func (s *Store) ActivateSchema(ctx context.Context, id string, actor string) (*store.SchemaRecord, error) {
	now := s.clock()

	err := s.db.WithRetryableTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		target, err := scanSchema(tx.QueryRowContext(ctx, schemaSelectSQL+" WHERE id = $1 FOR UPDATE", id))
		if err != nil {
			return err
		}
		if target.Status == store.SchemaActive {
			return nil // activate is a no-op on an already-active schema
		}

		prior, err := scanSchema(tx.QueryRowContext(ctx,
			schemaSelectSQL+" WHERE model_id = $1 AND status = 'active' FOR UPDATE", target.ModelID))
		var notFound forgeerr.NotFound
		if err != nil && !errors.As(err, &notFound) {
			return err
		}
		if prior != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE forge_schemas SET status='deprecated', updated_at=$1 WHERE id=$2`, now, prior.ID); err != nil {
				return err
			}
			if err := insertChangeLog(ctx, tx, store.ChangeLogEntry{
				ID: newID(), SchemaID: prior.ID, ChangeType: store.ChangeDeprecate,
				PreviousState: []byte(`{"status":"active"}`), NewState: []byte(`{"status":"deprecated"}`),
				Actor: actor, OccurredAt: now,
			}); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE forge_schemas SET status='active', updated_at=$1 WHERE id=$2`, now, id); err != nil {
			return err
		}
		return insertChangeLog(ctx, tx, store.ChangeLogEntry{
			ID: newID(), SchemaID: id, ChangeType: store.ChangeActivated,
			PreviousState: []byte(`{"status":"` + string(target.Status) + `"}`), NewState: []byte(`{"status":"active"}`),
			Actor: actor, OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetSchema(ctx, id)
}

// DeprecateSchema transitions an active schema to deprecated.
func (s *Store) DeprecateSchema(ctx context.Context, id string, actor string) (*store.SchemaRecord, error) {
	now := s.clock()
	err := s.db.WithRetryableTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		existing, err := scanSchema(tx.QueryRowContext(ctx, schemaSelectSQL+" WHERE id = $1 FOR UPDATE", id))
		if err != nil {
			return err
		}
		if existing.IsSystem {
			return forgeerr.ImmutableSystem{SchemaID: id}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE forge_schemas SET status='deprecated', updated_at=$1 WHERE id=$2`, now, id); err != nil {
			return err
		}
		return insertChangeLog(ctx, tx, store.ChangeLogEntry{
			ID: newID(), SchemaID: id, ChangeType: store.ChangeDeprecate,
			PreviousState: []byte(`{"status":"`+string(existing.Status)+`"}`), NewState: []byte(`{"status":"deprecated"}`),
			Actor: actor, OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetSchema(ctx, id)
}

// DeleteSchema refuses on an active schema or one with live dependents
// (spec §4.4).
func (s *Store) DeleteSchema(ctx context.Context, id string, actor string) error {
	now := s.clock()
	return s.db.WithRetryableTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		existing, err := scanSchema(tx.QueryRowContext(ctx, schemaSelectSQL+" WHERE id = $1 FOR UPDATE", id))
		if err != nil {
			return err
		}
		if existing.IsSystem {
			return forgeerr.ImmutableSystem{SchemaID: id}
		}
		if existing.Status == store.SchemaActive {
			return forgeerr.ActiveNotDeletable{SchemaID: id}
		}

		rows, err := tx.QueryContext(ctx, `SELECT from_schema_id FROM forge_schema_edges WHERE to_schema_id = $1`, id)
		if err != nil {
			return err
		}
		var dependents []string
		for rows.Next() {
			var dep string
			if err := rows.Scan(&dep); err != nil {
				rows.Close()
				return err
			}
			dependents = append(dependents, dep)
		}
		rows.Close()
		if len(dependents) > 0 {
			return forgeerr.HasDependents{SchemaID: id, Dependents: dependents}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM forge_schema_edges WHERE from_schema_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM forge_schemas WHERE id = $1`, id); err != nil {
			return err
		}
		return insertChangeLog(ctx, tx, store.ChangeLogEntry{
			ID: newID(), SchemaID: id, ChangeType: store.ChangeDeleted,
			PreviousState: existing.Definition, Actor: actor, OccurredAt: now,
		})
	})
}

// ListEdges returns every dependency edge in the repository.
func (s *Store) ListEdges(ctx context.Context) ([]store.DependencyEdge, error) {
	return s.queryEdges(ctx, "", nil)
}

// EdgesFrom returns the edges originating at schemaID (its dependencies).
func (s *Store) EdgesFrom(ctx context.Context, schemaID string) ([]store.DependencyEdge, error) {
	return s.queryEdges(ctx, "WHERE from_schema_id = $1", []interface{}{schemaID})
}

// EdgesTo returns the edges pointing at schemaID (its dependents).
func (s *Store) EdgesTo(ctx context.Context, schemaID string) ([]store.DependencyEdge, error) {
	return s.queryEdges(ctx, "WHERE to_schema_id = $1", []interface{}{schemaID})
}

func (s *Store) queryEdges(ctx context.Context, where string, args []interface{}) ([]store.DependencyEdge, error) {
	query := "SELECT from_schema_id, COALESCE(to_schema_id, ''), to_model_id, dependency_type, COALESCE(field_name, ''), config FROM forge_schema_edges " + where
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.DependencyEdge
	for rows.Next() {
		var e store.DependencyEdge
		if err := rows.Scan(&e.FromSchemaID, &e.ToSchemaID, &e.ToModelID, &e.Type, &e.FieldName, &e.Config); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateMigration inserts a MigrationRecord. A name collision with a
// non-pending existing record returns that record instead of erroring
// (spec §4.7).
func (s *Store) CreateMigration(ctx context.Context, rec store.MigrationRecord) (*store.MigrationRecord, error) {
	rec.ID = newID()
	if rec.Status == "" {
		rec.Status = store.MigrationPending
	}

	existing, err := s.GetMigrationByName(ctx, rec.Name)
	if err == nil && existing.Status != store.MigrationPending {
		return existing, nil
	}

	var fromSchemaID interface{}
	if rec.FromSchemaID != "" {
		fromSchemaID = rec.FromSchemaID
	}
	var fromVersion interface{}
	if rec.FromVersion != "" {
		fromVersion = rec.FromVersion
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO forge_migrations
			(id, name, from_schema_id, to_schema_id, from_version, to_version, forward_sql, rollback_sql, is_breaking, status, checksum)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		rec.ID, rec.Name, fromSchemaID, rec.ToSchemaID, fromVersion, rec.ToVersion,
		rec.ForwardSQL, rec.RollbackSQL, rec.IsBreaking, rec.Status, rec.Checksum)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, forgeerr.MigrationNameConflict{Name: rec.Name}
		}
		return nil, err
	}
	return &rec, nil
}

const migrationSelectSQL = `
	SELECT id, name, COALESCE(from_schema_id::text,''), to_schema_id, COALESCE(from_version,''), to_version,
		forward_sql, rollback_sql, is_breaking, status, applied_at, checksum
	FROM forge_migrations`

// GetMigrationByName looks up a MigrationRecord by its deterministic name.
func (s *Store) GetMigrationByName(ctx context.Context, name string) (*store.MigrationRecord, error) {
	return s.queryMigrationOne(ctx, migrationSelectSQL+" WHERE name = $1", name)
}

func (s *Store) queryMigrationOne(ctx context.Context, query string, args ...interface{}) (*store.MigrationRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, forgeerr.NotFound{Kind: "migration", Key: ""}
	}
	return scanMigration(rows)
}

// ListMigrations lists migrations targeting toSchemaID, newest last (names
// begin with their UTC creation timestamp).
func (s *Store) ListMigrations(ctx context.Context, toSchemaID string) ([]*store.MigrationRecord, error) {
	rows, err := s.db.QueryContext(ctx, migrationSelectSQL+" WHERE to_schema_id = $1 ORDER BY name", toSchemaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*store.MigrationRecord
	for rows.Next() {
		rec, err := scanMigration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanMigration(row scanner) (*store.MigrationRecord, error) {
	var rec store.MigrationRecord
	err := row.Scan(&rec.ID, &rec.Name, &rec.FromSchemaID, &rec.ToSchemaID, &rec.FromVersion, &rec.ToVersion,
		&rec.ForwardSQL, &rec.RollbackSQL, &rec.IsBreaking, &rec.Status, &rec.AppliedAt, &rec.Checksum)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkMigrationApplied transitions a pending migration to applied.
func (s *Store) MarkMigrationApplied(ctx context.Context, id string) (*store.MigrationRecord, error) {
	now := s.clock()
	_, err := s.db.ExecContext(ctx, `UPDATE forge_migrations SET status='applied', applied_at=$1 WHERE id=$2`, now, id)
	if err != nil {
		return nil, err
	}
	return s.getMigrationByID(ctx, id)
}

// MarkMigrationRolledBack transitions an applied migration to rolled_back.
func (s *Store) MarkMigrationRolledBack(ctx context.Context, id string) (*store.MigrationRecord, error) {
	_, err := s.db.ExecContext(ctx, `UPDATE forge_migrations SET status='rolled_back' WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	return s.getMigrationByID(ctx, id)
}

func (s *Store) getMigrationByID(ctx context.Context, id string) (*store.MigrationRecord, error) {
	return s.queryMigrationOne(ctx, migrationSelectSQL+" WHERE id = $1", id)
}

// ChangeHistory returns the full append-only log for one schema, in
// occurred_at order.
func (s *Store) ChangeHistory(ctx context.Context, schemaID string) ([]*store.ChangeLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, schema_id, change_type, previous_state, new_state, actor, occurred_at
		FROM forge_change_log WHERE schema_id = $1 ORDER BY occurred_at ASC`, schemaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChangeLog(rows)
}

// RecentChanges returns the most recent `limit` changes across all schemas.
func (s *Store) RecentChanges(ctx context.Context, limit int) ([]*store.ChangeLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, schema_id, change_type, previous_state, new_state, actor, occurred_at
		FROM forge_change_log ORDER BY occurred_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChangeLog(rows)
}

func scanChangeLog(rows *sql.Rows) ([]*store.ChangeLogEntry, error) {
	var out []*store.ChangeLogEntry
	for rows.Next() {
		var e store.ChangeLogEntry
		if err := rows.Scan(&e.ID, &e.SchemaID, &e.ChangeType, &e.PreviousState, &e.NewState, &e.Actor, &e.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
