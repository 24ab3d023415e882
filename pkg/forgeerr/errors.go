// SPDX-License-Identifier: Apache-2.0

// Package forgeerr holds the exhaustive set of typed error kinds returned by
// the lifecycle engine (validator, repository, migration generator and
// dependency resolver). Callers type-switch or errors.As against these
// rather than matching on error strings.
package forgeerr

import "fmt"

// ValidationError is one structural or invariant failure surfaced by the
// Schema Validator.
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// InvalidDefinition aggregates one or more ValidationErrors.
type InvalidDefinition struct {
	Errors []ValidationError
}

func (e InvalidDefinition) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("invalid definition: %d errors (first: %s)", len(e.Errors), e.Errors[0].Error())
}

// DuplicateVersion is returned when (model_id, version) already exists.
type DuplicateVersion struct {
	ModelID string
	Version string
}

func (e DuplicateVersion) Error() string {
	return fmt.Sprintf("schema %q version %q already exists", e.ModelID, e.Version)
}

// NotFound is returned when a requested entity does not exist.
type NotFound struct {
	Kind string
	Key  string
}

func (e NotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// ImmutableSystem is returned when a mutation targets an is_system record.
type ImmutableSystem struct {
	SchemaID string
}

func (e ImmutableSystem) Error() string {
	return fmt.Sprintf("schema %q is a system schema and is immutable", e.SchemaID)
}

// ImmutableActive is returned when update is attempted on a non-draft record.
type ImmutableActive struct {
	SchemaID string
	Status   string
}

func (e ImmutableActive) Error() string {
	return fmt.Sprintf("schema %q cannot be modified in status %q", e.SchemaID, e.Status)
}

// ActiveNotDeletable is returned when delete targets an active record.
type ActiveNotDeletable struct {
	SchemaID string
}

func (e ActiveNotDeletable) Error() string {
	return fmt.Sprintf("schema %q is active and cannot be deleted", e.SchemaID)
}

// HasDependents is returned when delete targets a record other schemas
// depend on.
type HasDependents struct {
	SchemaID   string
	Dependents []string
}

func (e HasDependents) Error() string {
	return fmt.Sprintf("schema %q has %d dependent schema(s): %v", e.SchemaID, len(e.Dependents), e.Dependents)
}

// CircularDependency is returned by the dependency resolver when a subgraph
// cannot be fully ordered.
type CircularDependency struct {
	Residual []string
}

func (e CircularDependency) Error() string {
	return fmt.Sprintf("circular dependency among schemas: %v", e.Residual)
}

// InvalidIdentifier is returned by the identifier encoder.
type InvalidIdentifier struct {
	Value string
}

func (e InvalidIdentifier) Error() string {
	return fmt.Sprintf("invalid SQL identifier: %q", e.Value)
}

// IncompatibleTypeChange is surfaced informationally by the diff engine; it
// is not fatal (the change is still emitted, flagged breaking) but is
// available for callers that want to reject breaking changes outright.
type IncompatibleTypeChange struct {
	From string
	To   string
}

func (e IncompatibleTypeChange) Error() string {
	return fmt.Sprintf("incompatible type change from %q to %q", e.From, e.To)
}

// MigrationNameConflict is returned when a generated migration name
// collides with a non-pending existing record and regeneration was not
// requested.
type MigrationNameConflict struct {
	Name string
}

func (e MigrationNameConflict) Error() string {
	return fmt.Sprintf("migration name %q already exists", e.Name)
}

// UnresolvedDependency is returned when a dependency edge cannot be bound to
// an active schema.
type UnresolvedDependency struct {
	ToModelID string
}

func (e UnresolvedDependency) Error() string {
	return fmt.Sprintf("unresolved dependency on model %q", e.ToModelID)
}
