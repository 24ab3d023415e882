// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/forgemodel/forge-model/pkg/forgeerr"
)

// errResponse is the JSON envelope rendered for every failed request.
// StatusCode is carried out of band via render.Render/render.Status so it
// also becomes the actual HTTP status line.
type errResponse struct {
	HTTPStatusCode int    `json:"-"`
	Kind           string `json:"kind"`
	Message        string `json:"message"`
	Details        any    `json:"details,omitempty"`
}

func (e *errResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// renderError maps a forgeerr kind to the status codes table in the error
// handling design (validation -> 400, not-found -> 404, conflict -> 409,
// integrity -> 409, cycle -> 422) and renders it.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	resp := &errResponse{Message: err.Error()}

	switch e := err.(type) {
	case forgeerr.InvalidDefinition:
		resp.HTTPStatusCode = http.StatusBadRequest
		resp.Kind = "invalid_definition"
		resp.Details = e.Errors
	case forgeerr.InvalidIdentifier:
		resp.HTTPStatusCode = http.StatusBadRequest
		resp.Kind = "invalid_identifier"
	case forgeerr.NotFound:
		resp.HTTPStatusCode = http.StatusNotFound
		resp.Kind = "not_found"
	case forgeerr.DuplicateVersion:
		resp.HTTPStatusCode = http.StatusConflict
		resp.Kind = "duplicate_version"
	case forgeerr.ImmutableSystem:
		resp.HTTPStatusCode = http.StatusConflict
		resp.Kind = "immutable_system"
	case forgeerr.ImmutableActive:
		resp.HTTPStatusCode = http.StatusConflict
		resp.Kind = "immutable_active"
	case forgeerr.ActiveNotDeletable:
		resp.HTTPStatusCode = http.StatusConflict
		resp.Kind = "active_not_deletable"
	case forgeerr.HasDependents:
		resp.HTTPStatusCode = http.StatusConflict
		resp.Kind = "has_dependents"
		resp.Details = e.Dependents
	case forgeerr.MigrationNameConflict:
		resp.HTTPStatusCode = http.StatusConflict
		resp.Kind = "migration_name_conflict"
	case forgeerr.CircularDependency:
		resp.HTTPStatusCode = http.StatusUnprocessableEntity
		resp.Kind = "circular_dependency"
		resp.Details = e.Residual
	case forgeerr.UnresolvedDependency:
		resp.HTTPStatusCode = http.StatusUnprocessableEntity
		resp.Kind = "unresolved_dependency"
	default:
		resp.HTTPStatusCode = http.StatusInternalServerError
		resp.Kind = "internal"
	}

	_ = render.Render(w, r, resp)
}
