// SPDX-License-Identifier: Apache-2.0

package sqlfmt

import (
	"fmt"
	"strings"

	"github.com/forgemodel/forge-model/pkg/forgemodel"
)

// ColumnType resolves the PostgreSQL column type for a field, per spec
// §4.2's resolution order: explicit database.type, then format, then
// abstract type. When the field carries both Enum and Database.EnumType,
// the column type is the quoted enum type name instead (the enum's
// CREATE TYPE statement is emitted separately by the DDL Generator).
func ColumnType(f forgemodel.FieldDefinition) (string, error) {
	if len(f.Enum) > 0 && f.Database != nil && f.Database.EnumType != "" {
		return QuoteIdent(f.Database.EnumType)
	}

	if f.Database != nil && f.Database.Type != "" {
		return decorate(f.Database.Type, f), nil
	}

	if f.Format != nil {
		if t, ok := byFormat[*f.Format]; ok {
			return decorate(t, f), nil
		}
	}

	t, ok := byFieldType[f.Type]
	if !ok {
		return "", fmt.Errorf("sqlfmt: unsupported field type %q", f.Type)
	}
	return decorate(t, f), nil
}

var byFormat = map[forgemodel.FieldFormat]string{
	forgemodel.FormatDate:     "DATE",
	forgemodel.FormatDateTime: "TIMESTAMPTZ",
	forgemodel.FormatTime:     "TIME",
	forgemodel.FormatUUID:     "UUID",
	forgemodel.FormatURI:      "TEXT",
	forgemodel.FormatIPv4:     "INET",
	forgemodel.FormatIPv6:     "INET",
	forgemodel.FormatEmail:    "VARCHAR",
	forgemodel.FormatHostname: "VARCHAR",
}

var byFieldType = map[forgemodel.FieldType]string{
	forgemodel.FieldTypeString:  "VARCHAR",
	forgemodel.FieldTypeInteger: "INTEGER",
	forgemodel.FieldTypeNumber:  "DOUBLE PRECISION",
	forgemodel.FieldTypeBoolean: "BOOLEAN",
	forgemodel.FieldTypeArray:   "JSONB",
	forgemodel.FieldTypeObject:  "JSONB",
	forgemodel.FieldTypeNull:    "VARCHAR",
}

// decorate appends (length) or (precision[,scale]) where applicable.
func decorate(baseType string, f forgemodel.FieldDefinition) string {
	if f.Database == nil {
		return baseType
	}
	upper := strings.ToUpper(strings.TrimSpace(baseType))
	base := strings.Fields(upper)
	if len(base) == 0 {
		return baseType
	}
	switch base[0] {
	case "VARCHAR", "CHAR":
		if f.Database.Length != nil {
			return fmt.Sprintf("%s(%d)", baseType, *f.Database.Length)
		}
	case "DECIMAL", "NUMERIC":
		if f.Database.Precision != nil {
			if f.Database.Scale != nil {
				return fmt.Sprintf("%s(%d,%d)", baseType, *f.Database.Precision, *f.Database.Scale)
			}
			return fmt.Sprintf("%s(%d)", baseType, *f.Database.Precision)
		}
	}
	return baseType
}
