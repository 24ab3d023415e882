// SPDX-License-Identifier: Apache-2.0

// Package diff is the Diff Engine (spec §4.6): structural comparison of two
// SchemaDefinitions producing an ordered list of typed Changes, each
// carrying a breaking-change classification and enough context for the
// Migration Generator to emit forward/rollback SQL.
package diff

import (
	"fmt"
	"sort"

	"github.com/forgemodel/forge-model/internal/sqlfmt"
	"github.com/forgemodel/forge-model/pkg/forgemodel"
)

// Kind identifies the shape of a Change.
type Kind string

const (
	ColumnAdded          Kind = "column_added"
	ColumnDropped        Kind = "column_dropped"
	ColumnTypeChanged    Kind = "column_type_changed"
	ColumnNullChanged    Kind = "column_null_changed"
	ColumnDefaultChanged Kind = "column_default_changed"
	ColumnUniqueChanged  Kind = "column_unique_changed"
	IndexAdded           Kind = "index_added"
	IndexDropped         Kind = "index_dropped"
	ForeignKeyAdded      Kind = "foreign_key_added"
	ForeignKeyDropped    Kind = "foreign_key_dropped"
)

// Change is one typed, ordered entry in a diff's output.
type Change struct {
	Kind     Kind
	Breaking bool

	// Column-shaped changes.
	Field       string
	NewField    *forgemodel.FieldDefinition
	OldField    *forgemodel.FieldDefinition
	OldType     string
	NewType     string
	NewNotNull  bool
	NewDefault  *string
	OldDefault  *string
	NewUnique   bool

	// Index-shaped changes.
	Index *forgemodel.IndexDefinition

	// Foreign-key-shaped changes, keyed by field.
	ForeignKey *forgemodel.ForeignKey
}

// typeCompatibility is the closed set of non-breaking FROM->TO base type
// changes named in spec §4.6.
var typeCompatibility = map[string]bool{
	"VARCHAR->TEXT":        true,
	"INTEGER->BIGINT":      true,
	"DATE->TIMESTAMPTZ":    true,
	"TIME->TIMETZ":         true,
}

// Diff computes the ordered change list between from and to. Comparisons
// key column changes by field name, index changes by index name, and
// foreign-key changes by fk_<table>_<field>.
func Diff(from, to *forgemodel.SchemaDefinition) ([]Change, error) {
	var changes []Change

	colChanges, err := diffColumns(from, to)
	if err != nil {
		return nil, err
	}
	changes = append(changes, colChanges...)

	changes = append(changes, diffIndexes(from, to)...)

	fkChanges, err := diffForeignKeys(from, to)
	if err != nil {
		return nil, err
	}
	changes = append(changes, fkChanges...)

	return changes, nil
}

func diffColumns(from, to *forgemodel.SchemaDefinition) ([]Change, error) {
	var drops, adds, mods []Change

	fromNames := sortedKeys(from.Properties)
	toNames := sortedKeys(to.Properties)

	for _, name := range fromNames {
		if _, ok := to.Properties[name]; !ok {
			f := from.Properties[name]
			drops = append(drops, Change{
				Kind:     ColumnDropped,
				Breaking: true,
				Field:    name,
				OldField: &f,
			})
		}
	}

	for _, name := range toNames {
		nf := to.Properties[name]
		if _, ok := from.Properties[name]; !ok {
			breaking := nf.Database != nil && nf.Database.NotNull && nf.Database.Default == nil
			adds = append(adds, Change{
				Kind:     ColumnAdded,
				Breaking: breaking,
				Field:    name,
				NewField: &nf,
			})
			continue
		}

		of := from.Properties[name]
		fieldMods, err := diffField(name, of, nf)
		if err != nil {
			return nil, err
		}
		mods = append(mods, fieldMods...)
	}

	out := append([]Change{}, drops...)
	out = append(out, adds...)
	out = append(out, mods...)
	return out, nil
}

// diffField emits, in deterministic order, type change, null flip, default
// change, then unique flip for a single shared field.
func diffField(name string, of, nf forgemodel.FieldDefinition) ([]Change, error) {
	var out []Change

	oldType, err := sqlfmt.ColumnType(of)
	if err != nil {
		return nil, err
	}
	newType, err := sqlfmt.ColumnType(nf)
	if err != nil {
		return nil, err
	}

	if oldType != newType {
		out = append(out, Change{
			Kind:     ColumnTypeChanged,
			Breaking: !isCompatibleTypeChange(oldType, newType),
			Field:    name,
			OldType:  oldType,
			NewType:  newType,
			OldField: &of,
			NewField: &nf,
		})
	}

	oldNotNull := of.Database != nil && of.Database.NotNull
	newNotNull := nf.Database != nil && nf.Database.NotNull
	if oldNotNull != newNotNull {
		out = append(out, Change{
			Kind:       ColumnNullChanged,
			Breaking:   !oldNotNull && newNotNull,
			Field:      name,
			NewNotNull: newNotNull,
			OldField:   &of,
			NewField:   &nf,
		})
	}

	oldDefault := fieldDefault(of)
	newDefault := fieldDefault(nf)
	if !strPtrEqual(oldDefault, newDefault) {
		out = append(out, Change{
			Kind:       ColumnDefaultChanged,
			Breaking:   false,
			Field:      name,
			NewDefault: newDefault,
			OldDefault: oldDefault,
			NewField:   &nf,
		})
	}

	oldUnique := of.Database != nil && of.Database.Unique
	newUnique := nf.Database != nil && nf.Database.Unique
	if oldUnique != newUnique {
		out = append(out, Change{
			Kind:      ColumnUniqueChanged,
			Breaking:  oldUnique && !newUnique,
			Field:     name,
			NewUnique: newUnique,
			OldField:  &of,
			NewField:  &nf,
		})
	}

	return out, nil
}

func isCompatibleTypeChange(oldType, newType string) bool {
	return typeCompatibility[fmt.Sprintf("%s->%s", baseType(oldType), baseType(newType))]
}

func baseType(t string) string {
	for i, c := range t {
		if c == '(' {
			return t[:i]
		}
	}
	return t
}

func fieldDefault(f forgemodel.FieldDefinition) *string {
	if f.Database == nil {
		return nil
	}
	return f.Database.Default
}

func strPtrEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func diffIndexes(from, to *forgemodel.SchemaDefinition) []Change {
	fromIdx := indexByName(from.Indexes)
	toIdx := indexByName(to.Indexes)

	var drops, adds []Change

	for _, name := range sortedIndexNames(fromIdx) {
		oi := fromIdx[name]
		ni, ok := toIdx[name]
		if !ok {
			idx := oi
			drops = append(drops, Change{Kind: IndexDropped, Breaking: false, Index: &idx})
			continue
		}
		if !indexEqual(oi, ni) {
			oldCopy := oi
			newCopy := ni
			drops = append(drops, Change{Kind: IndexDropped, Breaking: false, Index: &oldCopy})
			adds = append(adds, Change{Kind: IndexAdded, Breaking: false, Index: &newCopy})
		}
	}

	for _, name := range sortedIndexNames(toIdx) {
		if _, ok := fromIdx[name]; ok {
			continue
		}
		idx := toIdx[name]
		adds = append(adds, Change{Kind: IndexAdded, Breaking: false, Index: &idx})
	}

	out := append([]Change{}, drops...)
	out = append(out, adds...)
	return out
}

func indexByName(idxs []forgemodel.IndexDefinition) map[string]forgemodel.IndexDefinition {
	m := make(map[string]forgemodel.IndexDefinition, len(idxs))
	for _, i := range idxs {
		m[i.Name] = i
	}
	return m
}

func sortedIndexNames(m map[string]forgemodel.IndexDefinition) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func indexEqual(a, b forgemodel.IndexDefinition) bool {
	if a.Unique != b.Unique || a.Method != b.Method || a.Concurrent != b.Concurrent {
		return false
	}
	if len(a.Columns) != len(b.Columns) {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}
	return true
}

func diffForeignKeys(from, to *forgemodel.SchemaDefinition) ([]Change, error) {
	fromFK := fkByField(from)
	toFK := fkByField(to)

	var drops, adds []Change

	for _, field := range sortedFKFields(fromFK) {
		of := fromFK[field]
		nf, ok := toFK[field]
		if !ok {
			fk := of
			drops = append(drops, Change{Kind: ForeignKeyDropped, Breaking: false, Field: field, ForeignKey: &fk})
			continue
		}
		if !fkEqual(of, nf) {
			oldCopy := of
			newCopy := nf
			drops = append(drops, Change{Kind: ForeignKeyDropped, Breaking: false, Field: field, ForeignKey: &oldCopy})
			adds = append(adds, Change{Kind: ForeignKeyAdded, Breaking: false, Field: field, ForeignKey: &newCopy})
		}
	}

	for _, field := range sortedFKFields(toFK) {
		if _, ok := fromFK[field]; ok {
			continue
		}
		fk := toFK[field]
		adds = append(adds, Change{Kind: ForeignKeyAdded, Breaking: false, Field: field, ForeignKey: &fk})
	}

	out := append([]Change{}, drops...)
	out = append(out, adds...)
	return out, nil
}

func fkByField(def *forgemodel.SchemaDefinition) map[string]forgemodel.ForeignKey {
	m := make(map[string]forgemodel.ForeignKey)
	for name, f := range def.Properties {
		if f.Database != nil && f.Database.ForeignKey != nil {
			m[name] = *f.Database.ForeignKey
		}
	}
	return m
}

func sortedFKFields(m map[string]forgemodel.ForeignKey) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func fkEqual(a, b forgemodel.ForeignKey) bool {
	if a.Table != b.Table || a.Column != b.Column {
		return false
	}
	if !refActionEqual(a.OnDelete, b.OnDelete) || !refActionEqual(a.OnUpdate, b.OnUpdate) {
		return false
	}
	return true
}

func refActionEqual(a, b *forgemodel.ReferentialAction) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func sortedKeys(m map[string]forgemodel.FieldDefinition) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsBreaking reports whether any change in changes is breaking.
func IsBreaking(changes []Change) bool {
	for _, c := range changes {
		if c.Breaking {
			return true
		}
	}
	return false
}
