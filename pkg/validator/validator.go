// SPDX-License-Identifier: Apache-2.0

// Package validator is the Schema Validator (spec §4.3): structural
// validation of a SchemaDefinition against the fixed forge-model
// meta-schema, followed by the cross-cutting invariants the meta-schema
// cannot express on its own (exactly one primary key, identifier safety,
// cross-references between properties/required/indexes/unique_constraints).
package validator

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"

	"github.com/forgemodel/forge-model/internal/sqlfmt"
	"github.com/forgemodel/forge-model/pkg/forgeerr"
	"github.com/forgemodel/forge-model/pkg/forgemodel"
)

//go:embed metaschema.json
var metaSchemaJSON []byte

const metaSchemaURL = "forge-model://schema/v1"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func metaSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(metaSchemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal meta-schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(metaSchemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add meta-schema resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(metaSchemaURL)
	})
	return compiled, compileErr
}

// Mode controls whether Validate aggregates every failure or returns on the
// first one.
type Mode int

const (
	// Strict aggregates all errors (the default per spec §4.3).
	Strict Mode = iota
	// Lenient returns as soon as the first error is found.
	Lenient
)

// Validate runs the structural meta-schema pass followed by the
// cross-cutting invariants against def, returning a forgeerr.InvalidDefinition
// aggregating every failure found (in Strict mode) or the first one found
// (in Lenient mode). A nil return means the definition is valid.
func Validate(def *forgemodel.SchemaDefinition, mode Mode) error {
	var errs []forgeerr.ValidationError

	if err := structural(def); err != nil {
		errs = append(errs, forgeerr.ValidationError{Message: err.Error()})
		if mode == Lenient {
			return forgeerr.InvalidDefinition{Errors: errs}
		}
	}

	for _, e := range invariants(def) {
		errs = append(errs, e)
		if mode == Lenient {
			return forgeerr.InvalidDefinition{Errors: errs}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return forgeerr.InvalidDefinition{Errors: errs}
}

// structural runs the embedded meta-schema against def's JSON form.
func structural(def *forgemodel.SchemaDefinition) error {
	sch, err := metaSchema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("unmarshal definition: %w", err)
	}

	if err := sch.Validate(inst); err != nil {
		return err
	}
	return nil
}

// invariants runs the cross-cutting checks listed in spec §4.3 that the
// meta-schema's structural shape cannot express.
func invariants(def *forgemodel.SchemaDefinition) []forgeerr.ValidationError {
	var errs []forgeerr.ValidationError

	if def.Schema != forgemodel.MetaSchemaID {
		errs = append(errs, forgeerr.ValidationError{
			Path:    "$schema",
			Message: fmt.Sprintf("must equal %q", forgemodel.MetaSchemaID),
		})
	}

	if !semver.IsValid("v" + def.Version) {
		errs = append(errs, forgeerr.ValidationError{
			Path:    "version",
			Message: fmt.Sprintf("%q is not a well-formed MAJOR.MINOR.PATCH version", def.Version),
		})
	}

	if !sqlfmt.IsValidIdent(def.Table) {
		errs = append(errs, forgeerr.ValidationError{Path: "table", Message: fmt.Sprintf("%q is not a safe SQL identifier", def.Table)})
	}

	if len(def.Properties) == 0 {
		errs = append(errs, forgeerr.ValidationError{Path: "properties", Message: "must be non-empty"})
	}

	errs = append(errs, primaryKeyInvariant(def)...)
	errs = append(errs, crossReferenceInvariants(def)...)
	errs = append(errs, foreignKeyInvariants(def)...)

	return errs
}

func primaryKeyInvariant(def *forgemodel.SchemaDefinition) []forgeerr.ValidationError {
	count := 0
	for _, f := range def.Properties {
		if f.Database != nil && f.Database.PrimaryKey {
			count++
		}
	}
	if count == 0 {
		return []forgeerr.ValidationError{{Path: "properties", Message: "exactly one field must declare database.primaryKey = true"}}
	}
	if count > 1 {
		return []forgeerr.ValidationError{{Path: "properties", Message: fmt.Sprintf("only one field may carry the column-level PRIMARY KEY, found %d", count)}}
	}
	return nil
}

func crossReferenceInvariants(def *forgemodel.SchemaDefinition) []forgeerr.ValidationError {
	var errs []forgeerr.ValidationError

	for _, name := range def.Required {
		if _, ok := def.Properties[name]; !ok {
			errs = append(errs, forgeerr.ValidationError{Path: "required", Message: fmt.Sprintf("%q is not declared in properties", name)})
		}
	}

	for _, idx := range def.Indexes {
		for _, col := range idx.Columns {
			if _, ok := def.Properties[col]; !ok {
				errs = append(errs, forgeerr.ValidationError{Path: fmt.Sprintf("indexes[%s]", idx.Name), Message: fmt.Sprintf("column %q is not declared in properties", col)})
			}
		}
	}

	for _, uc := range def.UniqueConstraints {
		for _, col := range uc.Columns {
			if _, ok := def.Properties[col]; !ok {
				errs = append(errs, forgeerr.ValidationError{Path: "unique_constraints", Message: fmt.Sprintf("column %q is not declared in properties", col)})
			}
		}
	}

	return errs
}

func foreignKeyInvariants(def *forgemodel.SchemaDefinition) []forgeerr.ValidationError {
	var errs []forgeerr.ValidationError
	for name, f := range def.Properties {
		if f.Database == nil || f.Database.ForeignKey == nil {
			continue
		}
		fk := f.Database.ForeignKey
		if !sqlfmt.IsValidIdent(fk.Table) {
			errs = append(errs, forgeerr.ValidationError{Path: fmt.Sprintf("properties.%s.database.foreignKey.table", name), Message: fmt.Sprintf("%q is not a safe SQL identifier", fk.Table)})
		}
		if !sqlfmt.IsValidIdent(fk.Column) {
			errs = append(errs, forgeerr.ValidationError{Path: fmt.Sprintf("properties.%s.database.foreignKey.column", name), Message: fmt.Sprintf("%q is not a safe SQL identifier", fk.Column)})
		}
	}
	return errs
}
