// SPDX-License-Identifier: Apache-2.0

// Package migrate is the Migration Generator (spec §4.7): combines the Diff
// Engine and DDL Generator into a named, persisted pair of forward/rollback
// scripts plus a breakage classification.
package migrate

import (
	"github.com/forgemodel/forge-model/internal/sqlfmt"
	"github.com/forgemodel/forge-model/pkg/ddl"
	"github.com/forgemodel/forge-model/pkg/diff"
	"github.com/forgemodel/forge-model/pkg/forgemodel"
)

// pair is the forward/rollback statement pair for a single Change.
type pair struct {
	forward  ddl.Statement
	rollback ddl.Statement
}

// toPair maps one diff.Change to its forward and rollback statements.
func toPair(table string, c diff.Change) (pair, error) {
	switch c.Kind {
	case diff.ColumnAdded:
		fwd, err := (ddl.AddColumn{Name: c.Field, Field: *c.NewField}).SQL(table)
		if err != nil {
			return pair{}, err
		}
		back, err := (ddl.DropColumn{Name: c.Field, Cascade: true}).SQL(table)
		if err != nil {
			return pair{}, err
		}
		return pair{fwd, back}, nil

	case diff.ColumnDropped:
		colSQL, err := ddl.ColumnDefinitionSQL(c.Field, *c.OldField)
		if err != nil {
			return pair{}, err
		}
		fwd, err := (ddl.DropColumn{Name: c.Field, Cascade: true}).SQL(table)
		if err != nil {
			return pair{}, err
		}
		back := ddl.Statement("ALTER TABLE " + mustQuote(table) + " ADD COLUMN " + colSQL + ";")
		return pair{fwd, back}, nil

	case diff.ColumnTypeChanged:
		colIdent, err := sqlfmt.QuoteIdent(c.Field)
		if err != nil {
			return pair{}, err
		}
		fwdUsing := ddl.ComputeUsing(c.OldType, c.NewType, colIdent)
		backUsing := ddl.ComputeUsing(c.NewType, c.OldType, colIdent)

		fwd, err := (ddl.AlterColumnType{Name: c.Field, NewType: c.NewType, Using: fwdUsing}).SQL(table)
		if err != nil {
			return pair{}, err
		}
		back, err := (ddl.AlterColumnType{Name: c.Field, NewType: c.OldType, Using: backUsing}).SQL(table)
		if err != nil {
			return pair{}, err
		}
		return pair{fwd, back}, nil

	case diff.ColumnNullChanged:
		fwd, err := (ddl.AlterColumnNull{Name: c.Field, NotNull: c.NewNotNull}).SQL(table)
		if err != nil {
			return pair{}, err
		}
		back, err := (ddl.AlterColumnNull{Name: c.Field, NotNull: !c.NewNotNull}).SQL(table)
		if err != nil {
			return pair{}, err
		}
		return pair{fwd, back}, nil

	case diff.ColumnDefaultChanged:
		sqlType, err := sqlfmt.ColumnType(*c.NewField)
		if err != nil {
			return pair{}, err
		}
		fwd, err := (ddl.AlterColumnDefault{Name: c.Field, NewDefault: c.NewDefault, SQLType: sqlType}).SQL(table)
		if err != nil {
			return pair{}, err
		}
		back, err := (ddl.AlterColumnDefault{Name: c.Field, NewDefault: c.OldDefault, SQLType: sqlType}).SQL(table)
		if err != nil {
			return pair{}, err
		}
		return pair{fwd, back}, nil

	case diff.ColumnUniqueChanged:
		return uniqueFlipPair(table, c)

	case diff.IndexAdded:
		fwd, err := ddl.IndexSQL(table, *c.Index)
		if err != nil {
			return pair{}, err
		}
		back, err := dropIndexStatement(*c.Index)
		if err != nil {
			return pair{}, err
		}
		return pair{fwd, back}, nil

	case diff.IndexDropped:
		fwd, err := dropIndexStatement(*c.Index)
		if err != nil {
			return pair{}, err
		}
		back, err := ddl.IndexSQL(table, *c.Index)
		if err != nil {
			return pair{}, err
		}
		return pair{fwd, back}, nil

	case diff.ForeignKeyAdded:
		fwd, err := ddl.ForeignKeySQL(table, c.Field, c.ForeignKey)
		if err != nil {
			return pair{}, err
		}
		back, err := (ddl.DropConstraint{Name: ddl.ConstraintName(table, c.Field)}).SQL(table)
		if err != nil {
			return pair{}, err
		}
		return pair{fwd, back}, nil

	case diff.ForeignKeyDropped:
		fwd, err := (ddl.DropConstraint{Name: ddl.ConstraintName(table, c.Field)}).SQL(table)
		if err != nil {
			return pair{}, err
		}
		back, err := ddl.ForeignKeySQL(table, c.Field, c.ForeignKey)
		if err != nil {
			return pair{}, err
		}
		return pair{fwd, back}, nil
	}

	return pair{}, nil
}

func uniqueFlipPair(table string, c diff.Change) (pair, error) {
	name := "uq_" + table + "_" + c.Field
	if c.NewUnique {
		fwd, err := (ddl.AddConstraint{Name: name, Definition: "UNIQUE (" + mustQuote(c.Field) + ")"}).SQL(table)
		if err != nil {
			return pair{}, err
		}
		back, err := (ddl.DropConstraint{Name: name}).SQL(table)
		if err != nil {
			return pair{}, err
		}
		return pair{fwd, back}, nil
	}
	fwd, err := (ddl.DropConstraint{Name: name}).SQL(table)
	if err != nil {
		return pair{}, err
	}
	back, err := (ddl.AddConstraint{Name: name, Definition: "UNIQUE (" + mustQuote(c.Field) + ")"}).SQL(table)
	if err != nil {
		return pair{}, err
	}
	return pair{fwd, back}, nil
}

func dropIndexStatement(idx forgemodel.IndexDefinition) (ddl.Statement, error) {
	ident, err := sqlfmt.QuoteIdent(idx.Name)
	if err != nil {
		return "", err
	}
	return ddl.Statement("DROP INDEX IF EXISTS " + ident + ";"), nil
}

func mustQuote(s string) string {
	q, err := sqlfmt.QuoteIdent(s)
	if err != nil {
		return `"` + s + `"`
	}
	return q
}
