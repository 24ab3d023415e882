// SPDX-License-Identifier: Apache-2.0

// Package store is the Schema Repository (spec §4.4): persistence for
// SchemaRecord, SchemaDependencyEdge, MigrationRecord and ChangeLogEntry,
// guarded by the invariants of spec §3.4. Store is an interface so the
// lifecycle engine can run against either the postgres or bolt backend
// (subpackages store/postgres and store/bolt) interchangeably.
package store

import (
	"context"
	"time"
)

// SchemaStatus is SchemaRecord.status.
type SchemaStatus string

const (
	SchemaDraft      SchemaStatus = "draft"
	SchemaActive     SchemaStatus = "active"
	SchemaDeprecated SchemaStatus = "deprecated"
)

// MigrationStatus is MigrationRecord.status.
type MigrationStatus string

const (
	MigrationPending    MigrationStatus = "pending"
	MigrationApplied    MigrationStatus = "applied"
	MigrationRolledBack MigrationStatus = "rolled_back"
	MigrationFailed     MigrationStatus = "failed"
)

// ChangeType is ChangeLogEntry.change_type.
type ChangeType string

const (
	ChangeCreated   ChangeType = "created"
	ChangeUpdated   ChangeType = "updated"
	ChangeActivated ChangeType = "activated"
	ChangeDeprecate ChangeType = "deprecated"
	ChangeDeleted   ChangeType = "deleted"
)

// SchemaRecord is the persisted, versioned schema (spec §3.4).
type SchemaRecord struct {
	ID         string
	ModelID    string
	Version    string
	Name       string
	TableName  string
	Definition []byte // immutable blob: the canonical JSON wire form
	Status     SchemaStatus
	IsSystem   bool
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DependencyType mirrors depgraph.DependencyType; duplicated here (rather
// than imported) to keep store free of a dependency on the resolver.
type DependencyType string

const (
	DependencyForeignKey DependencyType = "foreign_key"
	DependencyReference  DependencyType = "reference"
)

// DependencyEdge is SchemaDependencyEdge (spec §3.4).
type DependencyEdge struct {
	FromSchemaID string
	ToSchemaID   string // empty when unresolved
	ToModelID    string
	Type         DependencyType
	FieldName    string
	Config       []byte // opaque, e.g. onDelete/onUpdate
}

// MigrationRecord is the persisted migration (spec §3.4).
type MigrationRecord struct {
	ID            string
	Name          string
	FromSchemaID  string // empty for an initial creation
	ToSchemaID    string
	FromVersion   string
	ToVersion     string
	ForwardSQL    string
	RollbackSQL   string
	IsBreaking    bool
	Status        MigrationStatus
	AppliedAt     *time.Time
	Checksum      string
}

// ChangeLogEntry is one append-only audit record (spec §3.4).
type ChangeLogEntry struct {
	ID            string
	SchemaID      string
	ChangeType    ChangeType
	PreviousState []byte
	NewState      []byte
	Actor         string
	OccurredAt    time.Time
}

// ChangeEvent is the payload delivered to the host's event hook (spec
// §6.5); lifecycle.EventHook describes when it is sent and which fields
// are filled.
type ChangeEvent struct {
	ChangeType    ChangeType
	SchemaID      string
	PreviousState []byte
	NewState      []byte
}

// Clock supplies timestamps for created_at/updated_at/occurred_at. Tests
// inject a fixed clock for deterministic assertions.
type Clock func() time.Time

// SchemaStore is the Schema Repository's persistence contract.
type SchemaStore interface {
	CreateSchema(ctx context.Context, rec SchemaRecord, edges []DependencyEdge, actor string) (*SchemaRecord, error)
	GetSchema(ctx context.Context, id string) (*SchemaRecord, error)
	GetActiveSchema(ctx context.Context, modelID string) (*SchemaRecord, error)
	ListSchemas(ctx context.Context, modelID string) ([]*SchemaRecord, error)
	UpdateSchema(ctx context.Context, rec SchemaRecord, actor string) (*SchemaRecord, error)
	ActivateSchema(ctx context.Context, id string, actor string) (*SchemaRecord, error)
	DeprecateSchema(ctx context.Context, id string, actor string) (*SchemaRecord, error)
	DeleteSchema(ctx context.Context, id string, actor string) error

	ListEdges(ctx context.Context) ([]DependencyEdge, error)
	EdgesFrom(ctx context.Context, schemaID string) ([]DependencyEdge, error)
	EdgesTo(ctx context.Context, schemaID string) ([]DependencyEdge, error)

	CreateMigration(ctx context.Context, rec MigrationRecord) (*MigrationRecord, error)
	GetMigrationByName(ctx context.Context, name string) (*MigrationRecord, error)
	ListMigrations(ctx context.Context, toSchemaID string) ([]*MigrationRecord, error)
	MarkMigrationApplied(ctx context.Context, id string) (*MigrationRecord, error)
	MarkMigrationRolledBack(ctx context.Context, id string) (*MigrationRecord, error)

	ChangeHistory(ctx context.Context, schemaID string) ([]*ChangeLogEntry, error)
	RecentChanges(ctx context.Context, limit int) ([]*ChangeLogEntry, error)

	Close() error
}
