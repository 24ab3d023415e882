// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/forgemodel/forge-model/pkg/ddl"
	"github.com/forgemodel/forge-model/pkg/depgraph"
	"github.com/forgemodel/forge-model/pkg/forgeerr"
	"github.com/forgemodel/forge-model/pkg/forgemodel"
	"github.com/forgemodel/forge-model/pkg/migrate"
	"github.com/forgemodel/forge-model/pkg/store"
	"github.com/forgemodel/forge-model/pkg/validator"
)

// EventHook is called once after each successful engine mutation (create,
// update, activate, deprecate, delete), carrying the change type and schema
// id. NewState holds the definition for create and update; PreviousState is
// not set. An activation that also deprecates the previously active version
// yields one event, for the activated schema only. It is fire-and-forget
// with respect to the engine: the engine does not inspect or await it
// beyond invoking it.
type EventHook func(store.ChangeEvent)

// Engine is the operation surface described in spec §6.4: list/get/create/
// update/activate/deprecate/delete schemas; validate without storing;
// emit DDL; generate/list/read migrations; dependency queries; change
// history.
type Engine struct {
	store  store.SchemaStore
	logger Logger
	clock  func() time.Time
	hook   EventHook
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the default no-op Logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides time.Now, for deterministic tests.
func WithClock(c func() time.Time) Option {
	return func(e *Engine) { e.clock = c }
}

// WithEventHook registers the host's change-notification hook.
func WithEventHook(h EventHook) Option {
	return func(e *Engine) { e.hook = h }
}

// New builds an Engine over the given store.
func New(s store.SchemaStore, opts ...Option) *Engine {
	e := &Engine{store: s, logger: NewNoopLogger(), clock: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) fire(ev store.ChangeEvent) {
	if e.hook != nil {
		e.hook(ev)
	}
}

// ValidateDefinition runs the Schema Validator against def without storing
// it (spec §6.4's "validate a draft definition without storing it").
func (e *Engine) ValidateDefinition(def *forgemodel.SchemaDefinition, mode validator.Mode) error {
	return validator.Validate(def, mode)
}

// CreateSchema validates def, derives its dependency edges against the
// currently active schemas, and persists it as a draft SchemaRecord (spec
// §4.4).
func (e *Engine) CreateSchema(ctx context.Context, def *forgemodel.SchemaDefinition, actor string) (*store.SchemaRecord, error) {
	if err := validator.Validate(def, validator.Strict); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}

	edges, err := e.deriveEdges(ctx, def)
	if err != nil {
		return nil, err
	}

	rec := store.SchemaRecord{
		ModelID:    def.ModelID,
		Version:    def.Version,
		Name:       def.ModelID,
		TableName:  def.Table,
		Definition: raw,
		Status:     store.SchemaDraft,
		CreatedBy:  actor,
	}

	created, err := e.store.CreateSchema(ctx, rec, edges, actor)
	if err != nil {
		return nil, err
	}

	e.logger.LogSchemaCreated(def.ModelID, def.Version)
	e.fire(store.ChangeEvent{ChangeType: store.ChangeCreated, SchemaID: created.ID, NewState: raw})
	return created, nil
}

// deriveEdges builds dependency edges from def's foreign keys and
// relationships, binding to_schema_id to the latest active schema for the
// referenced model_id where one exists (spec §4.4).
func (e *Engine) deriveEdges(ctx context.Context, def *forgemodel.SchemaDefinition) ([]store.DependencyEdge, error) {
	var edges []store.DependencyEdge

	for _, name := range def.PropertyOrder {
		field, ok := def.Properties[name]
		if !ok || field.Database == nil || field.Database.ForeignKey == nil {
			continue
		}
		fk := field.Database.ForeignKey
		edge := store.DependencyEdge{ToModelID: fk.Table, Type: store.DependencyForeignKey, FieldName: name}
		if target, err := e.store.GetActiveSchema(ctx, fk.Table); err == nil {
			edge.ToSchemaID = target.ID
		}
		edges = append(edges, edge)
	}

	for _, name := range def.PropertyOrder {
		field, ok := def.Properties[name]
		if !ok || field.Relationship == nil {
			continue
		}
		rel := field.Relationship
		edge := store.DependencyEdge{ToModelID: rel.Model, Type: store.DependencyReference, FieldName: name}
		if target, err := e.store.GetActiveSchema(ctx, rel.Model); err == nil {
			edge.ToSchemaID = target.ID
		}
		edges = append(edges, edge)
	}

	return edges, nil
}

// GetSchema reads one SchemaRecord by id.
func (e *Engine) GetSchema(ctx context.Context, id string) (*store.SchemaRecord, error) {
	return e.store.GetSchema(ctx, id)
}

// ListSchemas lists all versions of modelID, or every schema if empty.
func (e *Engine) ListSchemas(ctx context.Context, modelID string) ([]*store.SchemaRecord, error) {
	return e.store.ListSchemas(ctx, modelID)
}

// UpdateSchema replaces a draft schema's definition (spec §4.4: "permitted
// only while status = draft").
func (e *Engine) UpdateSchema(ctx context.Context, id string, def *forgemodel.SchemaDefinition, actor string) (*store.SchemaRecord, error) {
	if err := validator.Validate(def, validator.Strict); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}

	updated, err := e.store.UpdateSchema(ctx, store.SchemaRecord{
		ID: id, Name: def.ModelID, TableName: def.Table, Definition: raw,
	}, actor)
	if err != nil {
		return nil, err
	}
	e.fire(store.ChangeEvent{ChangeType: store.ChangeUpdated, SchemaID: id, NewState: raw})
	return updated, nil
}

// ActivateSchema promotes a draft/deprecated schema to active, demoting
// any prior active version of the same model.
func (e *Engine) ActivateSchema(ctx context.Context, id string, actor string) (*store.SchemaRecord, error) {
	rec, err := e.store.ActivateSchema(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	e.logger.LogSchemaActivated(rec.ModelID, rec.ID)
	e.fire(store.ChangeEvent{ChangeType: store.ChangeActivated, SchemaID: id})
	return rec, nil
}

// DeprecateSchema transitions an active schema to deprecated.
func (e *Engine) DeprecateSchema(ctx context.Context, id string, actor string) (*store.SchemaRecord, error) {
	rec, err := e.store.DeprecateSchema(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	e.logger.LogSchemaDeprecated(rec.ModelID, rec.ID)
	e.fire(store.ChangeEvent{ChangeType: store.ChangeDeprecate, SchemaID: id})
	return rec, nil
}

// DeleteSchema permanently removes a draft or deprecated schema with no
// live dependents.
func (e *Engine) DeleteSchema(ctx context.Context, id string, actor string) error {
	if err := e.store.DeleteSchema(ctx, id, actor); err != nil {
		return err
	}
	e.logger.LogSchemaDeleted(id)
	e.fire(store.ChangeEvent{ChangeType: store.ChangeDeleted, SchemaID: id})
	return nil
}

// EmitDDL returns the emit_create statements for a stored schema (spec
// §6.4: "emit DDL for a stored schema").
func (e *Engine) EmitDDL(ctx context.Context, schemaID string) ([]ddl.Statement, error) {
	rec, err := e.store.GetSchema(ctx, schemaID)
	if err != nil {
		return nil, err
	}
	def, err := unmarshalDefinition(rec.Definition)
	if err != nil {
		return nil, err
	}
	return ddl.EmitCreate(def)
}

// GenerateMigration produces and persists a MigrationRecord transitioning
// from fromSchemaID (empty for an initial creation) to toSchemaID (spec
// §4.7). A name collision with a non-pending record returns that record.
func (e *Engine) GenerateMigration(ctx context.Context, fromSchemaID, toSchemaID string) (*store.MigrationRecord, error) {
	toRec, err := e.store.GetSchema(ctx, toSchemaID)
	if err != nil {
		return nil, err
	}
	toDef, err := unmarshalDefinition(toRec.Definition)
	if err != nil {
		return nil, err
	}

	var result *migrate.Result
	var fromVersion string

	if fromSchemaID == "" {
		result, err = migrate.GenerateCreate(e.clock, toDef)
	} else {
		var fromRec *store.SchemaRecord
		fromRec, err = e.store.GetSchema(ctx, fromSchemaID)
		if err != nil {
			return nil, err
		}
		var fromDef *forgemodel.SchemaDefinition
		fromDef, err = unmarshalDefinition(fromRec.Definition)
		if err != nil {
			return nil, err
		}
		fromVersion = fromDef.Version
		result, err = migrate.Generate(e.clock, fromDef, toDef)
	}
	if err != nil {
		return nil, err
	}

	rec, err := e.store.CreateMigration(ctx, store.MigrationRecord{
		Name:         result.Name,
		FromSchemaID: fromSchemaID,
		ToSchemaID:   toSchemaID,
		FromVersion:  fromVersion,
		ToVersion:    toDef.Version,
		ForwardSQL:   result.ForwardSQL,
		RollbackSQL:  result.RollbackSQL,
		IsBreaking:   result.IsBreaking,
		Checksum:     checksum(result.ForwardSQL),
	})
	if err != nil {
		return nil, err
	}
	e.logger.LogMigrationGenerated(rec.Name, rec.IsBreaking)
	return rec, nil
}

// ListMigrations lists migrations targeting toSchemaID.
func (e *Engine) ListMigrations(ctx context.Context, toSchemaID string) ([]*store.MigrationRecord, error) {
	return e.store.ListMigrations(ctx, toSchemaID)
}

// GetMigration reads a migration by its deterministic name.
func (e *Engine) GetMigration(ctx context.Context, name string) (*store.MigrationRecord, error) {
	return e.store.GetMigrationByName(ctx, name)
}

// ChangeHistory reads a schema's append-only audit log.
func (e *Engine) ChangeHistory(ctx context.Context, schemaID string) ([]*store.ChangeLogEntry, error) {
	return e.store.ChangeHistory(ctx, schemaID)
}

// RecentChanges reads the most recent changes across every schema.
func (e *Engine) RecentChanges(ctx context.Context, limit int) ([]*store.ChangeLogEntry, error) {
	return e.store.RecentChanges(ctx, limit)
}

// graph rebuilds a depgraph.Graph from the repository's full edge set and
// schema list, for the dependency-query operations below.
func (e *Engine) graph(ctx context.Context) (*depgraph.Graph, error) {
	schemas, err := e.store.ListSchemas(ctx, "")
	if err != nil {
		return nil, err
	}
	edgesRaw, err := e.store.ListEdges(ctx)
	if err != nil {
		return nil, err
	}

	nodes := make([]depgraph.Node, 0, len(schemas))
	for _, s := range schemas {
		nodes = append(nodes, depgraph.Node{ID: s.ID, ModelID: s.ModelID})
	}

	edges := make([]depgraph.Edge, 0, len(edgesRaw))
	for _, ed := range edgesRaw {
		edges = append(edges, depgraph.Edge{
			From: ed.FromSchemaID, To: ed.ToSchemaID, ToModelID: ed.ToModelID,
			Type: depgraph.DependencyType(ed.Type), FieldName: ed.FieldName,
		})
	}

	return depgraph.New(nodes, edges), nil
}

// ExecutionOrder returns a dependency-respecting ordering of schemaIDs.
func (e *Engine) ExecutionOrder(ctx context.Context, schemaIDs []string) ([]string, error) {
	g, err := e.graph(ctx)
	if err != nil {
		return nil, err
	}
	return g.ExecutionOrder(schemaIDs)
}

// Dependents returns schemas depending on schemaID.
func (e *Engine) Dependents(ctx context.Context, schemaID string, recursive bool) ([]string, error) {
	g, err := e.graph(ctx)
	if err != nil {
		return nil, err
	}
	return g.Dependents(schemaID, recursive, 10), nil
}

// DependencyChain walks outward from schemaID along dependency edges.
func (e *Engine) DependencyChain(ctx context.Context, schemaID string) ([]depgraph.ChainEntry, error) {
	g, err := e.graph(ctx)
	if err != nil {
		return nil, err
	}
	return g.DependencyChain(schemaID, 10), nil
}

// CanDelete reports whether schemaID has no live dependents.
func (e *Engine) CanDelete(ctx context.Context, schemaID string) (bool, []string, error) {
	g, err := e.graph(ctx)
	if err != nil {
		return false, nil, err
	}
	ok, dependents := g.CanDelete(schemaID)
	return ok, dependents, nil
}

// ValidateGraph checks the full dependency graph against the set of
// currently active schemas.
func (e *Engine) ValidateGraph(ctx context.Context) (*depgraph.ValidationReport, error) {
	g, err := e.graph(ctx)
	if err != nil {
		return nil, err
	}

	active, err := e.store.ListSchemas(ctx, "")
	if err != nil {
		return nil, err
	}
	activeIDs := make(map[string]bool)
	for _, s := range active {
		if s.Status == store.SchemaActive {
			activeIDs[s.ID] = true
		}
	}

	return g.ValidateGraph(activeIDs), nil
}

// Statistics summarizes the full dependency graph's shape.
func (e *Engine) Statistics(ctx context.Context) (depgraph.Stats, error) {
	g, err := e.graph(ctx)
	if err != nil {
		return depgraph.Stats{}, err
	}
	return g.Statistics(), nil
}

// checksum returns the migration integrity digest stored alongside a
// MigrationRecord (spec §3.4's "checksum guards against a hand-edited
// forward_sql drifting from what was generated").
func checksum(forwardSQL string) string {
	sum := sha256.Sum256([]byte(forwardSQL))
	return hex.EncodeToString(sum[:])
}

func unmarshalDefinition(raw []byte) (*forgemodel.SchemaDefinition, error) {
	var def forgemodel.SchemaDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, forgeerr.ValidationError{Message: fmt.Sprintf("corrupt stored definition: %v", err)}
	}
	return &def, nil
}
