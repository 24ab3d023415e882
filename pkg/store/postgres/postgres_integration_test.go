// SPDX-License-Identifier: Apache-2.0

//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgemodel/forge-model/pkg/store"
	pgstore "github.com/forgemodel/forge-model/pkg/store/postgres"
	"github.com/forgemodel/forge-model/pkg/testutils"
)

func TestMain(m *testing.M) {
	testutils.SharedTestMain(m)
}

func openStore(t *testing.T, db *sql.DB) *pgstore.Store {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := pgstore.New(db, func() time.Time { return now })
	require.NoError(t, s.EnsureSchema(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateActivateDeprecate(t *testing.T) {
	testutils.WithConnectionToContainer(t, func(db *sql.DB, _ string) {
		s := openStore(t, db)
		ctx := context.Background()

		v1, err := s.CreateSchema(ctx, store.SchemaRecord{
			ModelID: "User", Version: "1.0.0", Name: "User", TableName: "users",
			Definition: []byte(`{"model_id":"User"}`),
		}, nil, "alice")
		require.NoError(t, err)

		_, err = s.ActivateSchema(ctx, v1.ID, "alice")
		require.NoError(t, err)

		v2, err := s.CreateSchema(ctx, store.SchemaRecord{
			ModelID: "User", Version: "1.1.0", Name: "User", TableName: "users",
			Definition: []byte(`{"model_id":"User"}`),
		}, nil, "alice")
		require.NoError(t, err)

		_, err = s.ActivateSchema(ctx, v2.ID, "alice")
		require.NoError(t, err)

		got1, err := s.GetSchema(ctx, v1.ID)
		require.NoError(t, err)
		assert.Equal(t, store.SchemaDeprecated, got1.Status)

		got2, err := s.GetSchema(ctx, v2.ID)
		require.NoError(t, err)
		assert.Equal(t, store.SchemaActive, got2.Status)

		history, err := s.ChangeHistory(ctx, v1.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, history)
	})
}

func TestDuplicateVersionRejected(t *testing.T) {
	testutils.WithConnectionToContainer(t, func(db *sql.DB, _ string) {
		s := openStore(t, db)
		ctx := context.Background()

		rec := store.SchemaRecord{
			ModelID: "Post", Version: "1.0.0", Name: "Post", TableName: "posts",
			Definition: []byte(`{}`),
		}
		_, err := s.CreateSchema(ctx, rec, nil, "bob")
		require.NoError(t, err)

		_, err = s.CreateSchema(ctx, rec, nil, "bob")
		assert.Error(t, err)
	})
}

func TestDeleteRefusesActiveAndDependents(t *testing.T) {
	testutils.WithConnectionToContainer(t, func(db *sql.DB, _ string) {
		s := openStore(t, db)
		ctx := context.Background()

		user, err := s.CreateSchema(ctx, store.SchemaRecord{
			ModelID: "User", Version: "1.0.0", Name: "User", TableName: "users",
			Definition: []byte(`{}`),
		}, nil, "carol")
		require.NoError(t, err)

		_, err = s.ActivateSchema(ctx, user.ID, "carol")
		require.NoError(t, err)

		err = s.DeleteSchema(ctx, user.ID, "carol")
		assert.Error(t, err)

		_, err = s.DeprecateSchema(ctx, user.ID, "carol")
		require.NoError(t, err)

		post, err := s.CreateSchema(ctx, store.SchemaRecord{
			ModelID: "Post", Version: "1.0.0", Name: "Post", TableName: "posts",
			Definition: []byte(`{}`),
		}, []store.DependencyEdge{{ToSchemaID: user.ID, ToModelID: "User", Type: store.DependencyForeignKey}}, "carol")
		require.NoError(t, err)
		_ = post

		err = s.DeleteSchema(ctx, user.ID, "carol")
		assert.Error(t, err)
	})
}
