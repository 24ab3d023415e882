// SPDX-License-Identifier: Apache-2.0

package ddl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forgemodel/forge-model/internal/sqlfmt"
	"github.com/forgemodel/forge-model/pkg/forgemodel"
)

// emitIndexes emits one statement per entry in def.Indexes, plus one
// implicit index per field with database.index = true, skipping implicit
// indexes on the primary key column (spec §4.5 step 3).
func emitIndexes(def *forgemodel.SchemaDefinition) ([]Statement, error) {
	var stmts []Statement

	for _, idx := range def.Indexes {
		stmt, err := IndexSQL(def.Table, idx)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}

	var implicitFields []string
	for name, f := range def.Properties {
		if f.Database == nil || !f.Database.Index {
			continue
		}
		if f.Database.PrimaryKey {
			continue
		}
		implicitFields = append(implicitFields, name)
	}
	sort.Strings(implicitFields)

	for _, name := range implicitFields {
		idx := forgemodel.IndexDefinition{
			Name:    fmt.Sprintf("idx_%s_%s", def.Table, name),
			Columns: []string{name},
		}
		stmt, err := IndexSQL(def.Table, idx)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}

	return stmts, nil
}

// IndexSQL renders a single CREATE INDEX statement for idx on table.
func IndexSQL(table string, idx forgemodel.IndexDefinition) (Statement, error) {
	tableIdent, err := sqlfmt.QuoteIdent(table)
	if err != nil {
		return "", err
	}
	nameIdent, err := sqlfmt.QuoteIdent(idx.Name)
	if err != nil {
		return "", err
	}
	cols, err := quoteColumns(idx.Columns)
	if err != nil {
		return "", err
	}

	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}

	method := ""
	if idx.Method != "" {
		method = fmt.Sprintf("USING %s ", idx.Method)
	}

	var include string
	if len(idx.Include) > 0 {
		incCols, err := quoteColumns(idx.Include)
		if err != nil {
			return "", err
		}
		include = fmt.Sprintf(" INCLUDE (%s)", strings.Join(incCols, ", "))
	}

	var with string
	if idx.FillFactor != nil {
		with = fmt.Sprintf(" WITH (fillfactor = %d)", *idx.FillFactor)
	}

	var where string
	if idx.Partial != nil && *idx.Partial != "" {
		where = fmt.Sprintf(" WHERE %s", *idx.Partial)
	}

	concurrently := ""
	if idx.Concurrent {
		concurrently = "CONCURRENTLY "
	}

	sql := fmt.Sprintf("CREATE %sINDEX %s%s ON %s %s(%s)%s%s%s;",
		unique, concurrently, nameIdent, tableIdent, method, strings.Join(cols, ", "), include, with, where)

	return Statement(sql), nil
}
