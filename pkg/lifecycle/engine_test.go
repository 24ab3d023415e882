// SPDX-License-Identifier: Apache-2.0

package lifecycle_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgemodel/forge-model/pkg/forgemodel"
	"github.com/forgemodel/forge-model/pkg/lifecycle"
	"github.com/forgemodel/forge-model/pkg/store"
	boltstore "github.com/forgemodel/forge-model/pkg/store/bolt"
)

func testEngine(t *testing.T) (*lifecycle.Engine, *boltstore.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forge.db")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := boltstore.Open(path, func() time.Time { return now })
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	var events []store.ChangeEvent
	e := lifecycle.New(s,
		lifecycle.WithClock(func() time.Time { return now }),
		lifecycle.WithEventHook(func(ev store.ChangeEvent) { events = append(events, ev) }),
	)
	return e, s
}

func accountDefinition() *forgemodel.SchemaDefinition {
	return &forgemodel.SchemaDefinition{
		Schema:  forgemodel.MetaSchemaID,
		ModelID: "Account",
		Version: "1.0.0",
		Name:    "Account",
		Table:   "accounts",
		Properties: map[string]forgemodel.FieldDefinition{
			"id": {Type: forgemodel.FieldTypeInteger, Database: &forgemodel.Database{PrimaryKey: true}},
		},
		PropertyOrder: []string{"id"},
	}
}

func customerDefinition() *forgemodel.SchemaDefinition {
	return &forgemodel.SchemaDefinition{
		Schema:  forgemodel.MetaSchemaID,
		ModelID: "Customer",
		Version: "1.0.0",
		Name:    "Customer",
		Table:   "customers",
		Properties: map[string]forgemodel.FieldDefinition{
			"id": {Type: forgemodel.FieldTypeInteger, Database: &forgemodel.Database{PrimaryKey: true}},
			"account_id": {
				Type: forgemodel.FieldTypeInteger,
				Database: &forgemodel.Database{
					NotNull:    true,
					ForeignKey: &forgemodel.ForeignKey{Table: "Account", Column: "id"},
				},
			},
		},
		PropertyOrder: []string{"id", "account_id"},
	}
}

func TestCreateSchema_DerivesEdgesAgainstActive(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	account, err := e.CreateSchema(ctx, accountDefinition(), "alice")
	require.NoError(t, err)
	_, err = e.ActivateSchema(ctx, account.ID, "alice")
	require.NoError(t, err)

	customer, err := e.CreateSchema(ctx, customerDefinition(), "alice")
	require.NoError(t, err)

	deps, err := e.DependencyChain(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, account.ID, deps[0].SchemaID)
}

func TestCreateSchema_RejectsInvalidDefinition(t *testing.T) {
	e, _ := testEngine(t)
	def := accountDefinition()
	delete(def.Properties, "id")
	def.Properties["id"] = forgemodel.FieldDefinition{Type: forgemodel.FieldTypeInteger}

	_, err := e.CreateSchema(context.Background(), def, "alice")
	require.Error(t, err)
}

func TestActivateThenGenerateMigration_InitialCreation(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	account, err := e.CreateSchema(ctx, accountDefinition(), "alice")
	require.NoError(t, err)

	mig, err := e.GenerateMigration(ctx, "", account.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, mig.ForwardSQL)
	assert.NotEmpty(t, mig.RollbackSQL)
	assert.False(t, mig.IsBreaking)
	assert.NotEmpty(t, mig.Checksum)
}

func TestDeleteSchema_BlockedByDependent(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	account, err := e.CreateSchema(ctx, accountDefinition(), "alice")
	require.NoError(t, err)
	_, err = e.ActivateSchema(ctx, account.ID, "alice")
	require.NoError(t, err)

	_, err = e.CreateSchema(ctx, customerDefinition(), "alice")
	require.NoError(t, err)

	canDelete, dependents, err := e.CanDelete(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, canDelete)
	assert.NotEmpty(t, dependents)

	err = e.DeleteSchema(ctx, account.ID, "alice")
	require.Error(t, err)
}

func TestEmitDDL(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	account, err := e.CreateSchema(ctx, accountDefinition(), "alice")
	require.NoError(t, err)

	stmts, err := e.EmitDDL(ctx, account.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stmts)
}

func TestChangeHistory_RecordsLifecycle(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	account, err := e.CreateSchema(ctx, accountDefinition(), "alice")
	require.NoError(t, err)
	_, err = e.ActivateSchema(ctx, account.ID, "alice")
	require.NoError(t, err)
	_, err = e.DeprecateSchema(ctx, account.ID, "alice")
	require.NoError(t, err)

	history, err := e.ChangeHistory(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, store.ChangeCreated, history[0].ChangeType)
	assert.Equal(t, store.ChangeActivated, history[1].ChangeType)
	assert.Equal(t, store.ChangeDeprecate, history[2].ChangeType)
}

func TestStatistics(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	account, err := e.CreateSchema(ctx, accountDefinition(), "alice")
	require.NoError(t, err)
	_, err = e.ActivateSchema(ctx, account.ID, "alice")
	require.NoError(t, err)
	_, err = e.CreateSchema(ctx, customerDefinition(), "alice")
	require.NoError(t, err)

	stats, err := e.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 1, stats.EdgeCount)
	assert.Equal(t, 1, stats.MaxFanIn)
	assert.Equal(t, 1, stats.MaxFanOut)
	assert.Equal(t, account.ID, stats.MostDependedOn)
	assert.InDelta(t, 0.5, stats.AvgFanIn, 0.001)
}
