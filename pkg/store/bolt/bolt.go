// SPDX-License-Identifier: Apache-2.0

// Package bolt is an embedded-database Schema Repository (spec §4.4),
// backed by go.etcd.io/bbolt. It implements the same store.SchemaStore
// contract as store/postgres, for single-binary deployments and local
// development where a standalone PostgreSQL instance is impractical — the
// embedded-KV registry pattern is grounded on the teacher corpus's
// boltdb-backed repository implementation.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/forgemodel/forge-model/pkg/forgeerr"
	"github.com/forgemodel/forge-model/pkg/store"
)

var (
	bucketSchemas      = []byte("schemas")
	bucketSchemaEdges  = []byte("schema_edges")
	bucketMigrations   = []byte("migrations")
	bucketMigrationIdx = []byte("migration_names")
	bucketChangeLog    = []byte("change_log")
)

var _ store.SchemaStore = (*Store)(nil)

// Store is the bbolt-backed store.SchemaStore implementation.
type Store struct {
	db    *bolt.DB
	clock store.Clock
}

// Open creates (if absent) and opens the bbolt file at path, ensuring every
// top-level bucket exists.
func Open(path string, clock store.Clock) (*Store, error) {
	if clock == nil {
		clock = time.Now
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create bolt store directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketSchemas, bucketSchemaEdges, bucketMigrations, bucketMigrationIdx, bucketChangeLog} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, clock: clock}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func newID() string { return uuid.NewString() }

// CreateSchema inserts a draft SchemaRecord, its derived dependency edges,
// and a "created" ChangeLogEntry, all in a single bbolt write transaction.
func (s *Store) CreateSchema(_ context.Context, rec store.SchemaRecord, edges []store.DependencyEdge, actor string) (*store.SchemaRecord, error) {
	rec.ID = newID()
	now := s.clock()
	rec.CreatedAt, rec.UpdatedAt = now, now
	if rec.Status == "" {
		rec.Status = store.SchemaDraft
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSchemas)

		existing, err := listSchemas(b, rec.ModelID)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.Version == rec.Version {
				return forgeerr.DuplicateVersion{ModelID: rec.ModelID, Version: rec.Version}
			}
		}

		if err := putJSON(b, []byte(rec.ID), rec); err != nil {
			return err
		}

		edgeBucket := tx.Bucket(bucketSchemaEdges)
		for i := range edges {
			edges[i].FromSchemaID = rec.ID
			if err := putJSON(edgeBucket, []byte(newID()), edges[i]); err != nil {
				return err
			}
		}

		return appendChangeLog(tx.Bucket(bucketChangeLog), store.ChangeLogEntry{
			ID: newID(), SchemaID: rec.ID, ChangeType: store.ChangeCreated,
			NewState: rec.Definition, Actor: actor, OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetSchema reads one SchemaRecord by id.
func (s *Store) GetSchema(_ context.Context, id string) (*store.SchemaRecord, error) {
	var rec store.SchemaRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(bucketSchemas), []byte(id), &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetActiveSchema reads the active SchemaRecord for modelID.
func (s *Store) GetActiveSchema(_ context.Context, modelID string) (*store.SchemaRecord, error) {
	var found *store.SchemaRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		all, err := listSchemas(tx.Bucket(bucketSchemas), modelID)
		if err != nil {
			return err
		}
		for _, rec := range all {
			if rec.Status == store.SchemaActive {
				r := rec
				found = &r
				return nil
			}
		}
		return forgeerr.NotFound{Kind: "schema", Key: modelID}
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ListSchemas lists all versions of modelID (or every schema if empty),
// ordered by created_at ascending.
func (s *Store) ListSchemas(_ context.Context, modelID string) ([]*store.SchemaRecord, error) {
	var out []*store.SchemaRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		recs, err := listSchemas(tx.Bucket(bucketSchemas), modelID)
		if err != nil {
			return err
		}
		sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
		for _, r := range recs {
			r := r
			out = append(out, &r)
		}
		return nil
	})
	return out, err
}

// listSchemas returns every schema in b, optionally filtered to modelID
// (empty modelID returns everything). Ordering is caller responsibility.
func listSchemas(b *bolt.Bucket, modelID string) ([]store.SchemaRecord, error) {
	var out []store.SchemaRecord
	err := b.ForEach(func(_, v []byte) error {
		var rec store.SchemaRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		if modelID == "" || rec.ModelID == modelID {
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

// UpdateSchema replaces a draft SchemaRecord's mutable fields.
func (s *Store) UpdateSchema(_ context.Context, rec store.SchemaRecord, actor string) (*store.SchemaRecord, error) {
	now := s.clock()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSchemas)
		var existing store.SchemaRecord
		if err := getJSON(b, []byte(rec.ID), &existing); err != nil {
			return err
		}
		if existing.IsSystem {
			return forgeerr.ImmutableSystem{SchemaID: rec.ID}
		}
		if existing.Status != store.SchemaDraft {
			return forgeerr.ImmutableActive{SchemaID: rec.ID, Status: string(existing.Status)}
		}

		prev := existing.Definition
		existing.Name, existing.TableName, existing.Definition, existing.UpdatedAt = rec.Name, rec.TableName, rec.Definition, now
		if err := putJSON(b, []byte(rec.ID), existing); err != nil {
			return err
		}
		return appendChangeLog(tx.Bucket(bucketChangeLog), store.ChangeLogEntry{
			ID: newID(), SchemaID: rec.ID, ChangeType: store.ChangeUpdated,
			PreviousState: prev, NewState: existing.Definition, Actor: actor, OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetSchema(context.Background(), rec.ID)
}

// ActivateSchema demotes any other active schema for the same model_id and
// activates id.
func (s *Store) ActivateSchema(_ context.Context, id string, actor string) (*store.SchemaRecord, error) {
	now := s.clock()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSchemas)
		var target store.SchemaRecord
		if err := getJSON(b, []byte(id), &target); err != nil {
			return err
		}
		if target.Status == store.SchemaActive {
			return nil
		}

		all, err := listSchemas(b, target.ModelID)
		if err != nil {
			return err
		}
		for _, other := range all {
			if other.Status == store.SchemaActive {
				other.Status = store.SchemaDeprecated
				other.UpdatedAt = now
				if err := putJSON(b, []byte(other.ID), other); err != nil {
					return err
				}
				if err := appendChangeLog(tx.Bucket(bucketChangeLog), store.ChangeLogEntry{
					ID: newID(), SchemaID: other.ID, ChangeType: store.ChangeDeprecate,
					PreviousState: []byte(`{"status":"active"}`), NewState: []byte(`{"status":"deprecated"}`),
					Actor: actor, OccurredAt: now,
				}); err != nil {
					return err
				}
			}
		}

		prevStatus := target.Status
		target.Status = store.SchemaActive
		target.UpdatedAt = now
		if err := putJSON(b, []byte(id), target); err != nil {
			return err
		}
		return appendChangeLog(tx.Bucket(bucketChangeLog), store.ChangeLogEntry{
			ID: newID(), SchemaID: id, ChangeType: store.ChangeActivated,
			PreviousState: []byte(`{"status":"` + string(prevStatus) + `"}`), NewState: []byte(`{"status":"active"}`),
			Actor: actor, OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetSchema(context.Background(), id)
}

// DeprecateSchema transitions an active schema to deprecated.
func (s *Store) DeprecateSchema(_ context.Context, id string, actor string) (*store.SchemaRecord, error) {
	now := s.clock()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSchemas)
		var existing store.SchemaRecord
		if err := getJSON(b, []byte(id), &existing); err != nil {
			return err
		}
		if existing.IsSystem {
			return forgeerr.ImmutableSystem{SchemaID: id}
		}
		prevStatus := existing.Status
		existing.Status = store.SchemaDeprecated
		existing.UpdatedAt = now
		if err := putJSON(b, []byte(id), existing); err != nil {
			return err
		}
		return appendChangeLog(tx.Bucket(bucketChangeLog), store.ChangeLogEntry{
			ID: newID(), SchemaID: id, ChangeType: store.ChangeDeprecate,
			PreviousState: []byte(`{"status":"` + string(prevStatus) + `"}`), NewState: []byte(`{"status":"deprecated"}`),
			Actor: actor, OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetSchema(context.Background(), id)
}

// DeleteSchema refuses on an active schema or one with live dependents.
func (s *Store) DeleteSchema(_ context.Context, id string, actor string) error {
	now := s.clock()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSchemas)
		var existing store.SchemaRecord
		if err := getJSON(b, []byte(id), &existing); err != nil {
			return err
		}
		if existing.IsSystem {
			return forgeerr.ImmutableSystem{SchemaID: id}
		}
		if existing.Status == store.SchemaActive {
			return forgeerr.ActiveNotDeletable{SchemaID: id}
		}

		edgeBucket := tx.Bucket(bucketSchemaEdges)
		var dependents []string
		var toDelete [][]byte
		err := edgeBucket.ForEach(func(k, v []byte) error {
			var e store.DependencyEdge
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if e.ToSchemaID == id {
				dependents = append(dependents, e.FromSchemaID)
			}
			if e.FromSchemaID == id {
				toDelete = append(toDelete, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(dependents) > 0 {
			return forgeerr.HasDependents{SchemaID: id, Dependents: dependents}
		}

		for _, k := range toDelete {
			if err := edgeBucket.Delete(k); err != nil {
				return err
			}
		}
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}
		return appendChangeLog(tx.Bucket(bucketChangeLog), store.ChangeLogEntry{
			ID: newID(), SchemaID: id, ChangeType: store.ChangeDeleted,
			PreviousState: existing.Definition, Actor: actor, OccurredAt: now,
		})
	})
}

// ListEdges returns every dependency edge in the repository.
func (s *Store) ListEdges(_ context.Context) ([]store.DependencyEdge, error) {
	return s.filterEdges(func(store.DependencyEdge) bool { return true })
}

// EdgesFrom returns the edges originating at schemaID.
func (s *Store) EdgesFrom(_ context.Context, schemaID string) ([]store.DependencyEdge, error) {
	return s.filterEdges(func(e store.DependencyEdge) bool { return e.FromSchemaID == schemaID })
}

// EdgesTo returns the edges pointing at schemaID.
func (s *Store) EdgesTo(_ context.Context, schemaID string) ([]store.DependencyEdge, error) {
	return s.filterEdges(func(e store.DependencyEdge) bool { return e.ToSchemaID == schemaID })
}

func (s *Store) filterEdges(pred func(store.DependencyEdge) bool) ([]store.DependencyEdge, error) {
	var out []store.DependencyEdge
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSchemaEdges).ForEach(func(_, v []byte) error {
			var e store.DependencyEdge
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if pred(e) {
				out = append(out, e)
			}
			return nil
		})
	})
	return out, err
}

// CreateMigration inserts a MigrationRecord, returning the existing
// non-pending record instead of erroring on a name collision.
func (s *Store) CreateMigration(_ context.Context, rec store.MigrationRecord) (*store.MigrationRecord, error) {
	rec.ID = newID()
	if rec.Status == "" {
		rec.Status = store.MigrationPending
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		idx := tx.Bucket(bucketMigrationIdx)
		if existingID := idx.Get([]byte(rec.Name)); existingID != nil {
			var existing store.MigrationRecord
			if err := getJSON(tx.Bucket(bucketMigrations), existingID, &existing); err != nil {
				return err
			}
			if existing.Status != store.MigrationPending {
				rec = existing
				return nil
			}
			return forgeerr.MigrationNameConflict{Name: rec.Name}
		}

		if err := putJSON(tx.Bucket(bucketMigrations), []byte(rec.ID), rec); err != nil {
			return err
		}
		return idx.Put([]byte(rec.Name), []byte(rec.ID))
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetMigrationByName looks up a MigrationRecord by its deterministic name.
func (s *Store) GetMigrationByName(_ context.Context, name string) (*store.MigrationRecord, error) {
	var rec store.MigrationRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketMigrationIdx).Get([]byte(name))
		if id == nil {
			return forgeerr.NotFound{Kind: "migration", Key: name}
		}
		return getJSON(tx.Bucket(bucketMigrations), id, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListMigrations lists migrations targeting toSchemaID.
func (s *Store) ListMigrations(_ context.Context, toSchemaID string) ([]*store.MigrationRecord, error) {
	var out []*store.MigrationRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMigrations).ForEach(func(_, v []byte) error {
			var rec store.MigrationRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.ToSchemaID == toSchemaID {
				out = append(out, &rec)
			}
			return nil
		})
	})
	return out, err
}

// MarkMigrationApplied transitions a pending migration to applied.
func (s *Store) MarkMigrationApplied(ctx context.Context, id string) (*store.MigrationRecord, error) {
	now := s.clock()
	return s.updateMigrationStatus(ctx, id, store.MigrationApplied, &now)
}

// MarkMigrationRolledBack transitions an applied migration to rolled_back.
func (s *Store) MarkMigrationRolledBack(ctx context.Context, id string) (*store.MigrationRecord, error) {
	return s.updateMigrationStatus(ctx, id, store.MigrationRolledBack, nil)
}

func (s *Store) updateMigrationStatus(_ context.Context, id string, status store.MigrationStatus, appliedAt *time.Time) (*store.MigrationRecord, error) {
	var rec store.MigrationRecord
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMigrations)
		if err := getJSON(b, []byte(id), &rec); err != nil {
			return err
		}
		rec.Status = status
		if appliedAt != nil {
			t := *appliedAt
			rec.AppliedAt = &t
		}
		return putJSON(b, []byte(id), rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ChangeHistory returns the full append-only log for one schema.
func (s *Store) ChangeHistory(_ context.Context, schemaID string) ([]*store.ChangeLogEntry, error) {
	var out []*store.ChangeLogEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChangeLog).ForEach(func(_, v []byte) error {
			var e store.ChangeLogEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if e.SchemaID == schemaID {
				out = append(out, &e)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

// RecentChanges returns the most recent `limit` changes across all schemas.
func (s *Store) RecentChanges(_ context.Context, limit int) ([]*store.ChangeLogEntry, error) {
	var out []*store.ChangeLogEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChangeLog).ForEach(func(_, v []byte) error {
			var e store.ChangeLogEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			out = append(out, &e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func appendChangeLog(b *bolt.Bucket, entry store.ChangeLogEntry) error {
	// Keyed by the bucket's increasing sequence so ForEach walks entries in
	// append order, which the stable sorts keep for equal OccurredAt values.
	seq, err := b.NextSequence()
	if err != nil {
		return err
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return putJSON(b, key, entry)
}

func putJSON(b *bolt.Bucket, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

func getJSON(b *bolt.Bucket, key []byte, v interface{}) error {
	data := b.Get(key)
	if data == nil {
		return forgeerr.NotFound{Kind: "record", Key: string(key)}
	}
	return json.Unmarshal(data, v)
}
