// SPDX-License-Identifier: Apache-2.0

package bolt_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boltstore "github.com/forgemodel/forge-model/pkg/store/bolt"
	"github.com/forgemodel/forge-model/pkg/store"
)

func openTestStore(t *testing.T) *boltstore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forge.db")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := boltstore.Open(path, func() time.Time { return now })
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetSchema(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.CreateSchema(ctx, store.SchemaRecord{
		ModelID: "User", Version: "1.0.0", Name: "User", TableName: "users",
		Definition: []byte(`{"model_id":"User"}`),
	}, nil, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, store.SchemaDraft, rec.Status)

	got, err := s.GetSchema(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ModelID, got.ModelID)
}

func TestCreateSchema_DuplicateVersion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	def := store.SchemaRecord{ModelID: "User", Version: "1.0.0", Name: "User", TableName: "users", Definition: []byte(`{}`)}

	_, err := s.CreateSchema(ctx, def, nil, "alice")
	require.NoError(t, err)

	_, err = s.CreateSchema(ctx, def, nil, "alice")
	require.Error(t, err)
}

func TestActivateSchema_DemotesPrior(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v1, err := s.CreateSchema(ctx, store.SchemaRecord{ModelID: "User", Version: "1.0.0", Name: "User", TableName: "users", Definition: []byte(`{}`)}, nil, "alice")
	require.NoError(t, err)
	v2, err := s.CreateSchema(ctx, store.SchemaRecord{ModelID: "User", Version: "1.1.0", Name: "User", TableName: "users", Definition: []byte(`{}`)}, nil, "alice")
	require.NoError(t, err)

	_, err = s.ActivateSchema(ctx, v1.ID, "alice")
	require.NoError(t, err)
	_, err = s.ActivateSchema(ctx, v2.ID, "alice")
	require.NoError(t, err)

	got1, err := s.GetSchema(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SchemaDeprecated, got1.Status)

	active, err := s.GetActiveSchema(ctx, "User")
	require.NoError(t, err)
	assert.Equal(t, v2.ID, active.ID)
}

func TestDeleteSchema_RefusesActiveAndDependents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	account, err := s.CreateSchema(ctx, store.SchemaRecord{ModelID: "Account", Version: "1.0.0", Name: "Account", TableName: "accounts", Definition: []byte(`{}`)}, nil, "alice")
	require.NoError(t, err)

	_, err = s.CreateSchema(ctx, store.SchemaRecord{ModelID: "Customer", Version: "1.0.0", Name: "Customer", TableName: "customers", Definition: []byte(`{}`)},
		[]store.DependencyEdge{{ToSchemaID: account.ID, ToModelID: "Account", Type: store.DependencyForeignKey, FieldName: "account_id"}}, "alice")
	require.NoError(t, err)

	err = s.DeleteSchema(ctx, account.ID, "alice")
	require.Error(t, err)

	_, err = s.ActivateSchema(ctx, account.ID, "alice")
	require.NoError(t, err)
	err = s.DeleteSchema(ctx, account.ID, "alice")
	require.Error(t, err)
}

func TestCreateMigration_NameCollision(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.CreateMigration(ctx, store.MigrationRecord{Name: "m1", ToSchemaID: "s1", ToVersion: "1.0.0", ForwardSQL: "CREATE TABLE x();", RollbackSQL: "DROP TABLE x;"})
	require.NoError(t, err)

	applied, err := s.MarkMigrationApplied(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, store.MigrationApplied, applied.Status)
	require.NotNil(t, applied.AppliedAt)

	again, err := s.CreateMigration(ctx, store.MigrationRecord{Name: "m1", ToSchemaID: "s1", ToVersion: "1.0.0"})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)
}

func TestChangeHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.CreateSchema(ctx, store.SchemaRecord{ModelID: "User", Version: "1.0.0", Name: "User", TableName: "users", Definition: []byte(`{}`)}, nil, "alice")
	require.NoError(t, err)
	_, err = s.ActivateSchema(ctx, rec.ID, "alice")
	require.NoError(t, err)

	history, err := s.ChangeHistory(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, store.ChangeCreated, history[0].ChangeType)
	assert.Equal(t, store.ChangeActivated, history[1].ChangeType)
}
