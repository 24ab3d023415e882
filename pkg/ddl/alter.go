// SPDX-License-Identifier: Apache-2.0

package ddl

import (
	"fmt"
	"strings"

	"github.com/forgemodel/forge-model/internal/sqlfmt"
	"github.com/forgemodel/forge-model/pkg/forgemodel"
)

// Alteration is one element of the uniform alteration vocabulary accepted by
// EmitAlter (spec §4.5). Each implementation renders to exactly one SQL
// statement.
type Alteration interface {
	SQL(table string) (Statement, error)
}

// EmitAlter yields exactly one statement per element of alterations, in the
// order given.
func EmitAlter(table string, alterations []Alteration) ([]Statement, error) {
	stmts := make([]Statement, 0, len(alterations))
	for _, a := range alterations {
		stmt, err := a.SQL(table)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// AddColumn adds a new column described by Field.
type AddColumn struct {
	Name  string
	Field forgemodel.FieldDefinition
}

func (a AddColumn) SQL(table string) (Statement, error) {
	tableIdent, err := sqlfmt.QuoteIdent(table)
	if err != nil {
		return "", err
	}
	colSQL, err := ColumnDefinitionSQL(a.Name, a.Field)
	if err != nil {
		return "", err
	}
	return Statement(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", tableIdent, colSQL)), nil
}

// DropColumn drops an existing column, optionally cascading.
type DropColumn struct {
	Name    string
	Cascade bool
}

func (a DropColumn) SQL(table string) (Statement, error) {
	tableIdent, err := sqlfmt.QuoteIdent(table)
	if err != nil {
		return "", err
	}
	colIdent, err := sqlfmt.QuoteIdent(a.Name)
	if err != nil {
		return "", err
	}
	suffix := ""
	if a.Cascade {
		suffix = " CASCADE"
	}
	return Statement(fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s%s;", tableIdent, colIdent, suffix)), nil
}

// AlterColumnType changes a column's type. Using, if empty, defaults to
// `name::new_type`; ComputeUsing derives it from a small table of known
// stock casts for callers that know the old type.
type AlterColumnType struct {
	Name    string
	NewType string
	Using   string
}

// stockCasts maps "FROM->TO" (uppercased, base type only) to the USING
// expression template applied to it.
var stockCasts = map[string]string{
	"VARCHAR->INTEGER":  "%s::INTEGER",
	"TIMESTAMP->DATE":   "%s::DATE",
	"TIMESTAMPTZ->DATE": "%s::DATE",
}

func (a AlterColumnType) SQL(table string) (Statement, error) {
	tableIdent, err := sqlfmt.QuoteIdent(table)
	if err != nil {
		return "", err
	}
	colIdent, err := sqlfmt.QuoteIdent(a.Name)
	if err != nil {
		return "", err
	}

	using := a.Using
	if using == "" {
		using = fmt.Sprintf("%s::%s", colIdent, a.NewType)
	} else if strings.Contains(using, "%s") {
		using = fmt.Sprintf(using, colIdent)
	}

	return Statement(fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s;",
		tableIdent, colIdent, a.NewType, using)), nil
}

// ComputeUsing returns the USING clause for a FROM->TO type change, per
// spec §4.5: a handful of stock casts are recognized by base type name,
// otherwise the identity cast `name::new_type` is used.
func ComputeUsing(fromType, toType, quotedColumn string) string {
	fromBase := baseTypeName(fromType)
	toBase := baseTypeName(toType)
	key := fromBase + "->" + toBase
	if tmpl, ok := stockCasts[key]; ok {
		return fmt.Sprintf(tmpl, quotedColumn)
	}
	return fmt.Sprintf("%s::%s", quotedColumn, toType)
}

func baseTypeName(sqlType string) string {
	fields := strings.Fields(strings.ToUpper(sqlType))
	if len(fields) == 0 {
		return ""
	}
	base := fields[0]
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = base[:i]
	}
	return base
}

// AlterColumnNull flips a column's NOT NULL constraint.
type AlterColumnNull struct {
	Name    string
	NotNull bool
}

func (a AlterColumnNull) SQL(table string) (Statement, error) {
	tableIdent, err := sqlfmt.QuoteIdent(table)
	if err != nil {
		return "", err
	}
	colIdent, err := sqlfmt.QuoteIdent(a.Name)
	if err != nil {
		return "", err
	}
	verb := "DROP NOT NULL"
	if a.NotNull {
		verb = "SET NOT NULL"
	}
	return Statement(fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s;", tableIdent, colIdent, verb)), nil
}

// AlterColumnDefault sets or drops a column default. NewDefault == nil means
// DROP DEFAULT.
type AlterColumnDefault struct {
	Name       string
	NewDefault *string
	SQLType    string
}

func (a AlterColumnDefault) SQL(table string) (Statement, error) {
	tableIdent, err := sqlfmt.QuoteIdent(table)
	if err != nil {
		return "", err
	}
	colIdent, err := sqlfmt.QuoteIdent(a.Name)
	if err != nil {
		return "", err
	}
	if a.NewDefault == nil {
		return Statement(fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT;", tableIdent, colIdent)), nil
	}
	return Statement(fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;",
		tableIdent, colIdent, sqlfmt.FormatDefaultRaw(*a.NewDefault, a.SQLType))), nil
}

// RenameColumn renames a column.
type RenameColumn struct {
	Old string
	New string
}

func (a RenameColumn) SQL(table string) (Statement, error) {
	tableIdent, err := sqlfmt.QuoteIdent(table)
	if err != nil {
		return "", err
	}
	oldIdent, err := sqlfmt.QuoteIdent(a.Old)
	if err != nil {
		return "", err
	}
	newIdent, err := sqlfmt.QuoteIdent(a.New)
	if err != nil {
		return "", err
	}
	return Statement(fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;", tableIdent, oldIdent, newIdent)), nil
}

// AddConstraint adds a named table-level constraint verbatim.
type AddConstraint struct {
	Name       string
	Definition string
}

func (a AddConstraint) SQL(table string) (Statement, error) {
	tableIdent, err := sqlfmt.QuoteIdent(table)
	if err != nil {
		return "", err
	}
	nameIdent, err := sqlfmt.QuoteIdent(a.Name)
	if err != nil {
		return "", err
	}
	return Statement(fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s;", tableIdent, nameIdent, a.Definition)), nil
}

// DropConstraint drops a named constraint, optionally cascading.
type DropConstraint struct {
	Name    string
	Cascade bool
}

func (a DropConstraint) SQL(table string) (Statement, error) {
	tableIdent, err := sqlfmt.QuoteIdent(table)
	if err != nil {
		return "", err
	}
	nameIdent, err := sqlfmt.QuoteIdent(a.Name)
	if err != nil {
		return "", err
	}
	suffix := ""
	if a.Cascade {
		suffix = " CASCADE"
	}
	return Statement(fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s%s;", tableIdent, nameIdent, suffix)), nil
}
