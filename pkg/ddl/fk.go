// SPDX-License-Identifier: Apache-2.0

package ddl

import (
	"fmt"

	"github.com/forgemodel/forge-model/internal/sqlfmt"
	"github.com/forgemodel/forge-model/pkg/forgemodel"
)

// emitForeignKeys emits one ALTER TABLE ... ADD CONSTRAINT fk_<table>_<field>
// FOREIGN KEY statement per field carrying database.foreignKey, always
// after the table and never inline (spec §4.5 step 4), so referenced tables
// can be created independently of creation order.
func emitForeignKeys(def *forgemodel.SchemaDefinition) ([]Statement, error) {
	var stmts []Statement
	for _, name := range orderedFieldNames(def) {
		f := def.Properties[name]
		if f.Database == nil || f.Database.ForeignKey == nil {
			continue
		}
		stmt, err := ForeignKeySQL(def.Table, name, f.Database.ForeignKey)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// ForeignKeySQL renders the ALTER TABLE ... ADD CONSTRAINT statement for a
// single field-level foreign key.
func ForeignKeySQL(table, field string, fk *forgemodel.ForeignKey) (Statement, error) {
	tableIdent, err := sqlfmt.QuoteIdent(table)
	if err != nil {
		return "", err
	}
	constraintName := ConstraintName(table, field)
	constraintIdent, err := sqlfmt.QuoteIdent(constraintName)
	if err != nil {
		return "", err
	}
	fieldIdent, err := sqlfmt.QuoteIdent(field)
	if err != nil {
		return "", err
	}
	refTable, err := sqlfmt.QuoteIdent(fk.Table)
	if err != nil {
		return "", err
	}
	refCol, err := sqlfmt.QuoteIdent(fk.Column)
	if err != nil {
		return "", err
	}

	sql := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		tableIdent, constraintIdent, fieldIdent, refTable, refCol)

	if fk.OnDelete != nil {
		sql += fmt.Sprintf(" ON DELETE %s", *fk.OnDelete)
	}
	if fk.OnUpdate != nil {
		sql += fmt.Sprintf(" ON UPDATE %s", *fk.OnUpdate)
	}
	sql += ";"

	return Statement(sql), nil
}

// ConstraintName returns the deterministic fk_<table>_<field> name used for
// field-level foreign key constraints.
func ConstraintName(table, field string) string {
	return fmt.Sprintf("fk_%s_%s", table, field)
}
