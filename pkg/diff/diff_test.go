// SPDX-License-Identifier: Apache-2.0

package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgemodel/forge-model/pkg/diff"
	"github.com/forgemodel/forge-model/pkg/forgemodel"
)

func baseUsers() *forgemodel.SchemaDefinition {
	return &forgemodel.SchemaDefinition{
		Table:   "users",
		Version: "1.0.0",
		Properties: map[string]forgemodel.FieldDefinition{
			"id":    {Type: forgemodel.FieldTypeInteger, Database: &forgemodel.Database{PrimaryKey: true}},
			"email": {Type: forgemodel.FieldTypeString},
		},
		PropertyOrder: []string{"id", "email"},
	}
}

func TestDiff_AddNullableColumn(t *testing.T) {
	from := baseUsers()
	to := baseUsers()
	to.Version = "1.1.0"
	to.Properties["name"] = forgemodel.FieldDefinition{Type: forgemodel.FieldTypeString}
	to.PropertyOrder = append(to.PropertyOrder, "name")

	changes, err := diff.Diff(from, to)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, diff.ColumnAdded, changes[0].Kind)
	assert.False(t, changes[0].Breaking)
	assert.False(t, diff.IsBreaking(changes))
}

func TestDiff_AddNotNullColumnWithoutDefault_IsBreaking(t *testing.T) {
	from := baseUsers()
	to := baseUsers()
	to.Properties["age"] = forgemodel.FieldDefinition{
		Type:     forgemodel.FieldTypeInteger,
		Database: &forgemodel.Database{NotNull: true},
	}
	to.PropertyOrder = append(to.PropertyOrder, "age")

	changes, err := diff.Diff(from, to)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Breaking)
	assert.True(t, diff.IsBreaking(changes))
}

func TestDiff_BreakingTypeChange(t *testing.T) {
	from := baseUsers()
	from.Properties["age"] = forgemodel.FieldDefinition{Type: forgemodel.FieldTypeString}
	from.PropertyOrder = append(from.PropertyOrder, "age")

	to := baseUsers()
	to.Properties["age"] = forgemodel.FieldDefinition{Type: forgemodel.FieldTypeInteger}
	to.PropertyOrder = append(to.PropertyOrder, "age")

	changes, err := diff.Diff(from, to)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, diff.ColumnTypeChanged, changes[0].Kind)
	assert.Equal(t, "VARCHAR", changes[0].OldType)
	assert.Equal(t, "INTEGER", changes[0].NewType)
	assert.True(t, changes[0].Breaking)
}

func TestDiff_ColumnDrop_IsAlwaysBreaking(t *testing.T) {
	from := baseUsers()
	to := baseUsers()
	delete(to.Properties, "email")
	to.PropertyOrder = []string{"id"}

	changes, err := diff.Diff(from, to)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, diff.ColumnDropped, changes[0].Kind)
	assert.True(t, changes[0].Breaking)
}

func TestDiff_NoChanges(t *testing.T) {
	from := baseUsers()
	to := baseUsers()

	changes, err := diff.Diff(from, to)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestDiff_CompatibleTypeChangeIsNonBreaking(t *testing.T) {
	from := baseUsers()
	from.Properties["bio"] = forgemodel.FieldDefinition{
		Type:     forgemodel.FieldTypeString,
		Database: &forgemodel.Database{Type: "VARCHAR"},
	}
	from.PropertyOrder = append(from.PropertyOrder, "bio")

	to := baseUsers()
	to.Properties["bio"] = forgemodel.FieldDefinition{
		Type:     forgemodel.FieldTypeString,
		Database: &forgemodel.Database{Type: "TEXT"},
	}
	to.PropertyOrder = append(to.PropertyOrder, "bio")

	changes, err := diff.Diff(from, to)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.False(t, changes[0].Breaking)
}
