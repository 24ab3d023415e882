// SPDX-License-Identifier: Apache-2.0

package ddl_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgemodel/forge-model/pkg/ddl"
	"github.com/forgemodel/forge-model/pkg/forgemodel"
)

func fmtPtr(f forgemodel.FieldFormat) *forgemodel.FieldFormat { return &f }

func TestEmitCreate_UsersTable(t *testing.T) {
	now := "NOW()"
	def := &forgemodel.SchemaDefinition{
		Schema:  forgemodel.MetaSchemaID,
		ModelID: "User",
		Version: "1.0.0",
		Name:    "User",
		Table:   "users",
		Properties: map[string]forgemodel.FieldDefinition{
			"id": {
				Type:     forgemodel.FieldTypeInteger,
				Database: &forgemodel.Database{PrimaryKey: true},
			},
			"email": {
				Type:   forgemodel.FieldTypeString,
				Format: fmtPtr(forgemodel.FormatEmail),
				Database: &forgemodel.Database{
					NotNull: true,
					Unique:  true,
				},
			},
			"created_at": {
				Type:   forgemodel.FieldTypeString,
				Format: fmtPtr(forgemodel.FormatDateTime),
				Database: &forgemodel.Database{
					Default: &now,
				},
			},
		},
		PropertyOrder: []string{"id", "email", "created_at"},
	}

	stmts, err := ddl.EmitCreate(def)
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	out := string(stmts[0])
	assert.True(t, strings.HasPrefix(out, `CREATE TABLE "users"`))
	assert.Contains(t, out, `"id" INTEGER PRIMARY KEY`)
	assert.Contains(t, out, `"email" VARCHAR NOT NULL UNIQUE`)
	assert.Contains(t, out, `"created_at" TIMESTAMPTZ DEFAULT NOW()`)
}

func TestEmitCreate_EnumBeforeTable(t *testing.T) {
	def := &forgemodel.SchemaDefinition{
		Table: "widgets",
		Properties: map[string]forgemodel.FieldDefinition{
			"id": {Type: forgemodel.FieldTypeInteger, Database: &forgemodel.Database{PrimaryKey: true}},
			"status": {
				Type: forgemodel.FieldTypeString,
				Enum: []string{"draft", "active"},
				Database: &forgemodel.Database{
					EnumType: "widget_status",
				},
			},
		},
		PropertyOrder: []string{"id", "status"},
	}

	stmts, err := ddl.EmitCreate(def)
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assert.True(t, strings.HasPrefix(string(stmts[0]), `CREATE TYPE "widget_status" AS ENUM`))
	assert.True(t, strings.HasPrefix(string(stmts[1]), `CREATE TABLE "widgets"`))
	assert.Contains(t, string(stmts[1]), `"status" "widget_status"`)

	enumCount := 0
	for _, s := range stmts {
		if strings.HasPrefix(string(s), "CREATE TYPE") {
			enumCount++
		}
	}
	assert.Equal(t, 1, enumCount)
}

func TestEmitCreate_ForeignKeyAfterTable(t *testing.T) {
	def := &forgemodel.SchemaDefinition{
		Table: "posts",
		Properties: map[string]forgemodel.FieldDefinition{
			"id": {Type: forgemodel.FieldTypeInteger, Database: &forgemodel.Database{PrimaryKey: true}},
			"user_id": {
				Type: forgemodel.FieldTypeInteger,
				Database: &forgemodel.Database{
					ForeignKey: &forgemodel.ForeignKey{Table: "users", Column: "id"},
				},
			},
		},
		PropertyOrder: []string{"id", "user_id"},
	}

	stmts, err := ddl.EmitCreate(def)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(string(stmts[0]), `CREATE TABLE "posts"`))
	assert.NotContains(t, string(stmts[0]), "REFERENCES")
	assert.Contains(t, string(stmts[1]), `ALTER TABLE "posts" ADD CONSTRAINT "fk_posts_user_id" FOREIGN KEY ("user_id") REFERENCES "users" ("id")`)
}

func TestEmitDrop(t *testing.T) {
	stmts, err := ddl.EmitDrop("users", true)
	require.NoError(t, err)
	assert.Equal(t, ddl.Statement(`DROP TABLE IF EXISTS "users" CASCADE;`), stmts[0])
}

func TestIdentifierRejection(t *testing.T) {
	def := &forgemodel.SchemaDefinition{
		Table: "users; DROP TABLE",
		Properties: map[string]forgemodel.FieldDefinition{
			"id": {Type: forgemodel.FieldTypeInteger, Database: &forgemodel.Database{PrimaryKey: true}},
		},
		PropertyOrder: []string{"id"},
	}
	_, err := ddl.EmitCreate(def)
	require.Error(t, err)
}
