// SPDX-License-Identifier: Apache-2.0

package ddl

import (
	"fmt"

	"github.com/forgemodel/forge-model/internal/sqlfmt"
)

// EmitDrop produces a DROP TABLE statement for table, optionally cascading.
func EmitDrop(table string, cascade bool) ([]Statement, error) {
	ident, err := sqlfmt.QuoteIdent(table)
	if err != nil {
		return nil, err
	}
	suffix := ""
	if cascade {
		suffix = " CASCADE"
	}
	return []Statement{Statement(fmt.Sprintf("DROP TABLE IF EXISTS %s%s;", ident, suffix))}, nil
}
