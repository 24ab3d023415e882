// SPDX-License-Identifier: Apache-2.0

// Package forgemodel defines the wire format for schema definitions accepted
// by the lifecycle engine: the constrained JSON Schema dialect described by
// the forge-model meta-schema.
package forgemodel

import "encoding/json"

// MetaSchemaID is the dialect constant every SchemaDefinition must declare.
const MetaSchemaID = "https://forge-model.dev/schema/v1"

// FieldType enumerates the abstract field types accepted by the dialect.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeInteger FieldType = "integer"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeArray   FieldType = "array"
	FieldTypeObject  FieldType = "object"
	FieldTypeNull    FieldType = "null"
)

// FieldFormat enumerates the recognized `format` values.
type FieldFormat string

const (
	FormatDate     FieldFormat = "date"
	FormatDateTime FieldFormat = "date-time"
	FormatTime     FieldFormat = "time"
	FormatEmail    FieldFormat = "email"
	FormatUUID     FieldFormat = "uuid"
	FormatURI      FieldFormat = "uri"
	FormatHostname FieldFormat = "hostname"
	FormatIPv4     FieldFormat = "ipv4"
	FormatIPv6     FieldFormat = "ipv6"
)

// ReferentialAction enumerates the closed set of FK ON DELETE/ON UPDATE
// actions.
type ReferentialAction string

const (
	ActionCascade  ReferentialAction = "CASCADE"
	ActionSetNull  ReferentialAction = "SET NULL"
	ActionRestrict ReferentialAction = "RESTRICT"
	ActionNoAction ReferentialAction = "NO ACTION"
)

// RelationshipType enumerates the informational relationship kinds.
type RelationshipType string

const (
	RelationshipBelongsTo     RelationshipType = "belongsTo"
	RelationshipHasMany       RelationshipType = "hasMany"
	RelationshipHasOne        RelationshipType = "hasOne"
	RelationshipBelongsToMany RelationshipType = "belongsToMany"
)

// IndexMethod enumerates supported Postgres index access methods.
type IndexMethod string

const (
	IndexMethodBTree IndexMethod = "btree"
	IndexMethodHash  IndexMethod = "hash"
	IndexMethodGiST  IndexMethod = "gist"
	IndexMethodGIN   IndexMethod = "gin"
	IndexMethodBRIN  IndexMethod = "brin"
)

// SchemaDefinition is the immutable, validated document describing a model.
//
// SchemaDefinition corresponds to the "forge-model" JSON schema dialect
// field "$schema" onward. Field order here mirrors the order fields are
// expected to appear in `properties` iteration for deterministic DDL.
type SchemaDefinition struct {
	// Schema is the `$schema` field and must equal MetaSchemaID.
	Schema string `json:"$schema" yaml:"$schema" mapstructure:"$schema"`

	ModelID     string `json:"model_id" yaml:"model_id" mapstructure:"model_id"`
	Version     string `json:"version" yaml:"version" mapstructure:"version"`
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description,omitempty"`
	Table       string `json:"table" yaml:"table" mapstructure:"table"`

	// Properties maps field name to definition. Represented with an
	// auxiliary ordered key slice (PropertyOrder) because Go maps do not
	// preserve insertion order and DDL emission order is load-bearing.
	Properties    map[string]FieldDefinition `json:"properties" yaml:"properties" mapstructure:"properties"`
	PropertyOrder []string                   `json:"-" yaml:"-" mapstructure:"-"`

	Required          []string           `json:"required,omitempty" yaml:"required,omitempty" mapstructure:"required,omitempty"`
	Indexes           []IndexDefinition  `json:"indexes,omitempty" yaml:"indexes,omitempty" mapstructure:"indexes,omitempty"`
	UniqueConstraints []UniqueConstraint `json:"unique_constraints,omitempty" yaml:"unique_constraints,omitempty" mapstructure:"unique_constraints,omitempty"`

	// Opaque sections, preserved verbatim on round-trip.
	Workflows   json.RawMessage `json:"workflows,omitempty" yaml:"workflows,omitempty" mapstructure:"workflows,omitempty"`
	Permissions json.RawMessage `json:"permissions,omitempty" yaml:"permissions,omitempty" mapstructure:"permissions,omitempty"`
	SeedData    json.RawMessage `json:"seed_data,omitempty" yaml:"seed_data,omitempty" mapstructure:"seed_data,omitempty"`

	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty" mapstructure:"dependencies,omitempty"`
}

// UniqueConstraint is a composite UNIQUE constraint over one or more columns.
type UniqueConstraint struct {
	Name    string   `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name,omitempty"`
	Columns []string `json:"columns" yaml:"columns" mapstructure:"columns"`
}

// IndexDefinition describes one entry in SchemaDefinition.Indexes.
type IndexDefinition struct {
	Name        string      `json:"name" yaml:"name" mapstructure:"name"`
	Columns     []string    `json:"columns" yaml:"columns" mapstructure:"columns"`
	Unique      bool        `json:"unique,omitempty" yaml:"unique,omitempty" mapstructure:"unique,omitempty"`
	Method      IndexMethod `json:"method,omitempty" yaml:"method,omitempty" mapstructure:"method,omitempty"`
	Partial     *string     `json:"partial,omitempty" yaml:"partial,omitempty" mapstructure:"partial,omitempty"`
	Include     []string    `json:"include,omitempty" yaml:"include,omitempty" mapstructure:"include,omitempty"`
	FillFactor  *int        `json:"fillFactor,omitempty" yaml:"fillFactor,omitempty" mapstructure:"fillFactor,omitempty"`
	Concurrent  bool        `json:"concurrent,omitempty" yaml:"concurrent,omitempty" mapstructure:"concurrent,omitempty"`
}

// ForeignKey describes a field-level foreign key reference.
type ForeignKey struct {
	Table    string             `json:"table" yaml:"table" mapstructure:"table"`
	Column   string             `json:"column" yaml:"column" mapstructure:"column"`
	OnDelete *ReferentialAction `json:"onDelete,omitempty" yaml:"onDelete,omitempty" mapstructure:"onDelete,omitempty"`
	OnUpdate *ReferentialAction `json:"onUpdate,omitempty" yaml:"onUpdate,omitempty" mapstructure:"onUpdate,omitempty"`
}

// Database holds storage hints for a field: everything that influences DDL.
type Database struct {
	Type       string      `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type,omitempty"`
	Length     *int        `json:"length,omitempty" yaml:"length,omitempty" mapstructure:"length,omitempty"`
	Precision  *int        `json:"precision,omitempty" yaml:"precision,omitempty" mapstructure:"precision,omitempty"`
	Scale      *int        `json:"scale,omitempty" yaml:"scale,omitempty" mapstructure:"scale,omitempty"`
	PrimaryKey bool        `json:"primaryKey,omitempty" yaml:"primaryKey,omitempty" mapstructure:"primaryKey,omitempty"`
	NotNull    bool        `json:"notNull,omitempty" yaml:"notNull,omitempty" mapstructure:"notNull,omitempty"`
	Unique     bool        `json:"unique,omitempty" yaml:"unique,omitempty" mapstructure:"unique,omitempty"`
	Index      bool        `json:"index,omitempty" yaml:"index,omitempty" mapstructure:"index,omitempty"`
	Default    *string     `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default,omitempty"`
	Check      *string     `json:"check,omitempty" yaml:"check,omitempty" mapstructure:"check,omitempty"`
	ForeignKey *ForeignKey `json:"foreignKey,omitempty" yaml:"foreignKey,omitempty" mapstructure:"foreignKey,omitempty"`
	EnumType   string      `json:"enumType,omitempty" yaml:"enumType,omitempty" mapstructure:"enumType,omitempty"`
}

// Validation holds validation-only constraints; they never affect emitted
// DDL unless mirrored explicitly in Database.Check.
type Validation struct {
	MinLength *int    `json:"minLength,omitempty" yaml:"minLength,omitempty" mapstructure:"minLength,omitempty"`
	MaxLength *int    `json:"maxLength,omitempty" yaml:"maxLength,omitempty" mapstructure:"maxLength,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty" mapstructure:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty" mapstructure:"maximum,omitempty"`
	Pattern   *string `json:"pattern,omitempty" yaml:"pattern,omitempty" mapstructure:"pattern,omitempty"`
}

// Relationship is informational; foreign-key semantics live under
// Database.ForeignKey.
type Relationship struct {
	Model   string           `json:"model" yaml:"model" mapstructure:"model"`
	Type    RelationshipType `json:"type" yaml:"type" mapstructure:"type"`
	Through *string          `json:"through,omitempty" yaml:"through,omitempty" mapstructure:"through,omitempty"`
}

// FieldDefinition describes one entry in SchemaDefinition.Properties.
type FieldDefinition struct {
	Type   FieldType     `json:"type" yaml:"type" mapstructure:"type"`
	Format *FieldFormat  `json:"format,omitempty" yaml:"format,omitempty" mapstructure:"format,omitempty"`
	Enum   []string      `json:"enum,omitempty" yaml:"enum,omitempty" mapstructure:"enum,omitempty"`

	Database     *Database       `json:"database,omitempty" yaml:"database,omitempty" mapstructure:"database,omitempty"`
	Validation   *Validation     `json:"validation,omitempty" yaml:"validation,omitempty" mapstructure:"validation,omitempty"`
	Relationship *Relationship   `json:"relationship,omitempty" yaml:"relationship,omitempty" mapstructure:"relationship,omitempty"`
	Description  string          `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description,omitempty"`
	UI           json.RawMessage `json:"ui,omitempty" yaml:"ui,omitempty" mapstructure:"ui,omitempty"`
}

// RequiredSet returns Required as a lookup set.
func (d *SchemaDefinition) RequiredSet() map[string]bool {
	out := make(map[string]bool, len(d.Required))
	for _, r := range d.Required {
		out[r] = true
	}
	return out
}

// IsRequired reports whether name is listed in Required.
func (d *SchemaDefinition) IsRequired(name string) bool {
	for _, r := range d.Required {
		if r == name {
			return true
		}
	}
	return false
}
