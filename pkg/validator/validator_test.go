// SPDX-License-Identifier: Apache-2.0

package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgemodel/forge-model/pkg/forgemodel"
	"github.com/forgemodel/forge-model/pkg/validator"
)

func usersDefinition() *forgemodel.SchemaDefinition {
	return &forgemodel.SchemaDefinition{
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
		},
		PropertyOrder: []string{"id", "email"},
		Required:      []string{"email"},
	}
}

func fmtPtr(f forgemodel.FieldFormat) *forgemodel.FieldFormat { return &f }

func TestValidate_Valid(t *testing.T) {
	def := usersDefinition()
	err := validator.Validate(def, validator.Strict)
	require.NoError(t, err)
}

func TestValidate_MissingPrimaryKey(t *testing.T) {
	def := usersDefinition()
	delete(def.Properties, "id")
	def.Properties["id"] = forgemodel.FieldDefinition{Type: forgemodel.FieldTypeInteger}

	err := validator.Validate(def, validator.Strict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primaryKey")
}

func TestValidate_InvalidTableIdentifier(t *testing.T) {
	def := usersDefinition()
	def.Table = "users; DROP TABLE"

	err := validator.Validate(def, validator.Strict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SQL identifier")
}

func TestValidate_UnknownRequiredField(t *testing.T) {
	def := usersDefinition()
	def.Required = append(def.Required, "missing_field")

	err := validator.Validate(def, validator.Strict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing_field")
}

func TestValidate_BadVersion(t *testing.T) {
	def := usersDefinition()
	def.Version = "not-a-version"

	err := validator.Validate(def, validator.Strict)
	require.Error(t, err)
}
