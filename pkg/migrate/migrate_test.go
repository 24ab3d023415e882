// SPDX-License-Identifier: Apache-2.0

package migrate_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgemodel/forge-model/pkg/forgemodel"
	"github.com/forgemodel/forge-model/pkg/migrate"
)

func fixedClock(t time.Time) migrate.Clock {
	return func() time.Time { return t }
}

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func usersV1() *forgemodel.SchemaDefinition {
	return &forgemodel.SchemaDefinition{
		ModelID: "User",
		Table:   "users",
		Version: "1.0.0",
		Properties: map[string]forgemodel.FieldDefinition{
			"id":    {Type: forgemodel.FieldTypeInteger, Database: &forgemodel.Database{PrimaryKey: true}},
			"email": {Type: forgemodel.FieldTypeString},
		},
		PropertyOrder: []string{"id", "email"},
	}
}

func TestGenerateCreate(t *testing.T) {
	to := usersV1()
	res, err := migrate.GenerateCreate(fixedClock(testNow), to)
	require.NoError(t, err)

	assert.Equal(t, "20260102030405_create_user_1_0_0", res.Name)
	assert.Contains(t, res.ForwardSQL, "CREATE TABLE")
	assert.Contains(t, res.RollbackSQL, "DROP TABLE")
	assert.False(t, res.IsBreaking)
}

func TestGenerate_AddNullableColumn(t *testing.T) {
	from := usersV1()
	to := usersV1()
	to.Version = "1.1.0"
	to.Properties["name"] = forgemodel.FieldDefinition{Type: forgemodel.FieldTypeString}
	to.PropertyOrder = append(to.PropertyOrder, "name")

	res, err := migrate.Generate(fixedClock(testNow), from, to)
	require.NoError(t, err)

	assert.Equal(t, `ALTER TABLE "users" ADD COLUMN "name" VARCHAR;`, res.ForwardSQL)
	assert.Equal(t, `ALTER TABLE "users" DROP COLUMN "name" CASCADE;`, res.RollbackSQL)
	assert.False(t, res.IsBreaking)
}

func TestGenerate_BreakingTypeChange(t *testing.T) {
	from := usersV1()
	from.Properties["age"] = forgemodel.FieldDefinition{Type: forgemodel.FieldTypeString}
	from.PropertyOrder = append(from.PropertyOrder, "age")

	to := usersV1()
	to.Properties["age"] = forgemodel.FieldDefinition{Type: forgemodel.FieldTypeInteger}
	to.PropertyOrder = append(to.PropertyOrder, "age")

	res, err := migrate.Generate(fixedClock(testNow), from, to)
	require.NoError(t, err)

	assert.True(t, strings.Contains(res.ForwardSQL, `ALTER COLUMN "age" TYPE INTEGER USING "age"::INTEGER`))
	assert.True(t, strings.Contains(res.RollbackSQL, `ALTER COLUMN "age" TYPE VARCHAR USING "age"::VARCHAR`))
	assert.True(t, res.IsBreaking)
}

func TestGenerate_NoChanges(t *testing.T) {
	from := usersV1()
	to := usersV1()

	res, err := migrate.Generate(fixedClock(testNow), from, to)
	require.NoError(t, err)

	assert.Equal(t, migrate.NoChangesMarker, res.ForwardSQL)
	assert.Equal(t, migrate.NoChangesMarker, res.RollbackSQL)
	assert.False(t, res.IsBreaking)
}

func TestName_Create(t *testing.T) {
	name := migrate.Name(testNow, "Invoice", "", "2.0.0")
	assert.Equal(t, "20260102030405_create_invoice_2_0_0", name)
}

func TestName_Migrate(t *testing.T) {
	name := migrate.Name(testNow, "Invoice", "1.0.0", "1.1.0")
	assert.Equal(t, "20260102030405_migrate_invoice_1_0_0_to_1_1_0", name)
}
