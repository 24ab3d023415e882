// SPDX-License-Identifier: Apache-2.0

package ddl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forgemodel/forge-model/internal/sqlfmt"
	"github.com/forgemodel/forge-model/pkg/forgemodel"
)

// EmitCreate produces, in the exact order required by spec §4.5:
//  1. CREATE TYPE ... AS ENUM for every enum field
//  2. a single CREATE TABLE
//  3. index statements (explicit + implicit database.index columns)
//  4. ALTER TABLE ... ADD CONSTRAINT ... FOREIGN KEY, emitted after the table
//  5. COMMENT ON TABLE / COMMENT ON COLUMN
func EmitCreate(def *forgemodel.SchemaDefinition) ([]Statement, error) {
	var stmts []Statement

	enumStmts, err := emitEnumTypes(def)
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, enumStmts...)

	tableStmt, err := emitCreateTable(def)
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, tableStmt)

	idxStmts, err := emitIndexes(def)
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, idxStmts...)

	fkStmts, err := emitForeignKeys(def)
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, fkStmts...)

	commentStmts, err := emitComments(def)
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, commentStmts...)

	return stmts, nil
}

// EmitCreateWithTimestamps injects created_at/updated_at TIMESTAMPTZ NOT
// NULL DEFAULT NOW() columns when missing, before delegating to EmitCreate.
func EmitCreateWithTimestamps(def *forgemodel.SchemaDefinition) ([]Statement, error) {
	withTimestamps := *def
	withTimestamps.Properties = make(map[string]forgemodel.FieldDefinition, len(def.Properties)+2)
	for k, v := range def.Properties {
		withTimestamps.Properties[k] = v
	}
	withTimestamps.PropertyOrder = append([]string{}, def.PropertyOrder...)

	now := "NOW()"
	for _, col := range []string{"created_at", "updated_at"} {
		if _, ok := withTimestamps.Properties[col]; ok {
			continue
		}
		withTimestamps.Properties[col] = forgemodel.FieldDefinition{
			Type:   forgemodel.FieldTypeString,
			Format: formatPtr(forgemodel.FormatDateTime),
			Database: &forgemodel.Database{
				NotNull: true,
				Default: &now,
			},
		}
		withTimestamps.PropertyOrder = append(withTimestamps.PropertyOrder, col)
	}

	return EmitCreate(&withTimestamps)
}

func formatPtr(f forgemodel.FieldFormat) *forgemodel.FieldFormat { return &f }

func emitEnumTypes(def *forgemodel.SchemaDefinition) ([]Statement, error) {
	var stmts []Statement
	for _, name := range orderedFieldNames(def) {
		f := def.Properties[name]
		if len(f.Enum) == 0 || f.Database == nil || f.Database.EnumType == "" {
			continue
		}
		ident, err := sqlfmt.QuoteIdent(f.Database.EnumType)
		if err != nil {
			return nil, err
		}
		values := make([]string, len(f.Enum))
		for i, v := range f.Enum {
			values[i] = sqlfmt.EscapeString(v)
		}
		stmts = append(stmts, Statement(fmt.Sprintf(
			"CREATE TYPE %s AS ENUM (%s);", ident, strings.Join(values, ", "))))
	}
	return stmts, nil
}

func emitCreateTable(def *forgemodel.SchemaDefinition) (Statement, error) {
	table, err := sqlfmt.QuoteIdent(def.Table)
	if err != nil {
		return "", err
	}

	var cols []string
	for _, name := range orderedFieldNames(def) {
		colSQL, err := ColumnDefinitionSQL(name, def.Properties[name])
		if err != nil {
			return "", err
		}
		cols = append(cols, colSQL)
	}

	for _, uc := range def.UniqueConstraints {
		ucSQL, err := uniqueConstraintSQL(def.Table, uc)
		if err != nil {
			return "", err
		}
		cols = append(cols, ucSQL)
	}

	return Statement(fmt.Sprintf("CREATE TABLE %s (%s);", table, strings.Join(cols, ", "))), nil
}

// ColumnDefinitionSQL renders one column per the grammar in spec §4.5:
// ident type [PRIMARY KEY] [NOT NULL] [UNIQUE] [DEFAULT expr] [CHECK (expr)],
// with PRIMARY KEY suppressing the redundant NOT NULL/UNIQUE.
func ColumnDefinitionSQL(name string, f forgemodel.FieldDefinition) (string, error) {
	ident, err := sqlfmt.QuoteIdent(name)
	if err != nil {
		return "", err
	}
	colType, err := sqlfmt.ColumnType(f)
	if err != nil {
		return "", err
	}

	sql := fmt.Sprintf("%s %s", ident, colType)

	db := f.Database
	isPK := db != nil && db.PrimaryKey
	if isPK {
		sql += " PRIMARY KEY"
	} else {
		if db != nil && db.NotNull {
			sql += " NOT NULL"
		}
		if db != nil && db.Unique {
			sql += " UNIQUE"
		}
	}

	if db != nil && db.Default != nil {
		sql += fmt.Sprintf(" DEFAULT %s", sqlfmt.FormatDefaultRaw(*db.Default, colType))
	}

	if db != nil && db.Check != nil {
		sql += fmt.Sprintf(" CHECK (%s)", *db.Check)
	}

	return sql, nil
}

func uniqueConstraintSQL(table string, uc forgemodel.UniqueConstraint) (string, error) {
	name := uc.Name
	if name == "" {
		name = fmt.Sprintf("uq_%s_%s", table, strings.Join(uc.Columns, "_"))
	}
	nameIdent, err := sqlfmt.QuoteIdent(name)
	if err != nil {
		return "", err
	}
	cols, err := quoteColumns(uc.Columns)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", nameIdent, strings.Join(cols, ", ")), nil
}

func quoteColumns(cols []string) ([]string, error) {
	out := make([]string, len(cols))
	for i, c := range cols {
		q, err := sqlfmt.QuoteIdent(c)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

// orderedFieldNames returns field names in declaration order (PropertyOrder),
// with any names missing from PropertyOrder appended at the end in
// alphabetical order, so a programmatically-built definition (no
// PropertyOrder set) still emits every field in a repeatable order.
func orderedFieldNames(def *forgemodel.SchemaDefinition) []string {
	seen := make(map[string]bool, len(def.Properties))
	names := make([]string, 0, len(def.Properties))
	for _, n := range def.PropertyOrder {
		if _, ok := def.Properties[n]; ok && !seen[n] {
			names = append(names, n)
			seen[n] = true
		}
	}
	var leftover []string
	for n := range def.Properties {
		if !seen[n] {
			leftover = append(leftover, n)
		}
	}
	sort.Strings(leftover)
	names = append(names, leftover...)
	return names
}
