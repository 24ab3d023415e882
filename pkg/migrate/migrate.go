// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"time"

	"github.com/forgemodel/forge-model/pkg/ddl"
	"github.com/forgemodel/forge-model/pkg/diff"
	"github.com/forgemodel/forge-model/pkg/forgemodel"
)

// NoChangesMarker is the forward/rollback body emitted for an empty diff
// (spec §4.7's "Empty diffs produce a `-- No changes detected` pair").
const NoChangesMarker = "-- No changes detected"

// Clock supplies the current time to Generate. Production callers use
// time.Now; tests inject a fixed clock to keep migration names deterministic
// (spec §9: "The clock is the only impure dependency; tests inject it.").
type Clock func() time.Time

// Result is the computed content of a migration: everything the Migration
// Generator contract (spec §4.7) produces before a repository attaches
// identity (ids, schema references, status).
type Result struct {
	Name        string
	ForwardSQL  string
	RollbackSQL string
	IsBreaking  bool
	Changes     []diff.Change
}

// GenerateCreate produces the initial-creation migration for to (spec §4.7:
// "If from_schema_id is absent, the migration is an initial creation").
func GenerateCreate(clock Clock, to *forgemodel.SchemaDefinition) (*Result, error) {
	stmts, err := ddl.EmitCreate(to)
	if err != nil {
		return nil, err
	}
	dropStmts, err := ddl.EmitDrop(to.Table, true)
	if err != nil {
		return nil, err
	}

	return &Result{
		Name:        Name(clock(), to.ModelID, "", to.Version),
		ForwardSQL:  ddl.Join(stmts),
		RollbackSQL: ddl.Join(dropStmts),
		IsBreaking:  false,
	}, nil
}

// Generate produces the forward/rollback migration transitioning from
// `from` to `to`. The change list is computed via the Diff Engine; each
// change is mapped to a (forward, rollback) statement pair via the DDL
// Generator. forward_sql concatenates forwards in change order;
// rollback_sql concatenates rollbacks in reverse order.
func Generate(clock Clock, from, to *forgemodel.SchemaDefinition) (*Result, error) {
	changes, err := diff.Diff(from, to)
	if err != nil {
		return nil, err
	}

	name := Name(clock(), to.ModelID, from.Version, to.Version)

	if len(changes) == 0 {
		return &Result{
			Name:        name,
			ForwardSQL:  NoChangesMarker,
			RollbackSQL: NoChangesMarker,
			IsBreaking:  false,
			Changes:     nil,
		}, nil
	}

	forwards := make([]ddl.Statement, 0, len(changes))
	rollbacks := make([]ddl.Statement, 0, len(changes))

	for _, c := range changes {
		p, err := toPair(to.Table, c)
		if err != nil {
			return nil, err
		}
		forwards = append(forwards, p.forward)
		rollbacks = append(rollbacks, p.rollback)
	}

	// rollback_sql concatenates rollbacks in reverse order.
	reversed := make([]ddl.Statement, len(rollbacks))
	for i, s := range rollbacks {
		reversed[len(rollbacks)-1-i] = s
	}

	return &Result{
		Name:        name,
		ForwardSQL:  ddl.Join(forwards),
		RollbackSQL: ddl.Join(reversed),
		IsBreaking:  diff.IsBreaking(changes),
		Changes:     changes,
	}, nil
}
