// SPDX-License-Identifier: Apache-2.0

package ddl

import (
	"fmt"

	"github.com/forgemodel/forge-model/internal/sqlfmt"
	"github.com/forgemodel/forge-model/pkg/forgemodel"
)

// emitComments emits COMMENT ON TABLE (if description is set) and COMMENT ON
// COLUMN for every field with a description (spec §4.5 step 5).
func emitComments(def *forgemodel.SchemaDefinition) ([]Statement, error) {
	var stmts []Statement

	tableIdent, err := sqlfmt.QuoteIdent(def.Table)
	if err != nil {
		return nil, err
	}

	if def.Description != "" {
		stmts = append(stmts, Statement(fmt.Sprintf(
			"COMMENT ON TABLE %s IS %s;", tableIdent, sqlfmt.EscapeString(def.Description))))
	}

	for _, name := range orderedFieldNames(def) {
		f := def.Properties[name]
		if f.Description == "" {
			continue
		}
		colIdent, err := sqlfmt.QuoteIdent(name)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, Statement(fmt.Sprintf(
			"COMMENT ON COLUMN %s.%s IS %s;", tableIdent, colIdent, sqlfmt.EscapeString(f.Description))))
	}

	return stmts, nil
}
