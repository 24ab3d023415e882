// SPDX-License-Identifier: Apache-2.0

// Package httpapi is a thin chi/render HTTP shim over pkg/lifecycle.Engine,
// exposing the consumer-facing operation surface (spec.md §6.4) as JSON
// endpoints. It is intentionally minimal: no auth, no pagination, no
// content negotiation beyond JSON — the orchestration-only surface the
// specification allows ("reimplementable straightforwardly").
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/cors"

	"github.com/forgemodel/forge-model/pkg/forgemodel"
	"github.com/forgemodel/forge-model/pkg/lifecycle"
	"github.com/forgemodel/forge-model/pkg/validator"
)

// New builds the full HTTP handler for the given engine.
func New(engine *lifecycle.Engine) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.AllowAll().Handler)

	a := &api{engine: engine}

	r.Get("/healthz", a.healthz)

	r.Route("/schemas", func(r chi.Router) {
		r.Post("/validate", a.validateDefinition)
		r.Get("/", a.listSchemas)
		r.Post("/", a.createSchema)
		r.Get("/recent-changes", a.recentChanges)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getSchema)
			r.Put("/", a.updateSchema)
			r.Post("/activate", a.activateSchema)
			r.Post("/deprecate", a.deprecateSchema)
			r.Delete("/", a.deleteSchema)
			r.Get("/ddl", a.emitDDL)
			r.Get("/history", a.changeHistory)
			r.Get("/migrations", a.listMigrations)
			r.Post("/migrations", a.generateMigration)
		})
	})

	r.Route("/deps", func(r chi.Router) {
		r.Post("/order", a.executionOrder)
		r.Get("/{id}/dependents", a.dependents)
		r.Get("/{id}/can-delete", a.canDelete)
		r.Get("/validate", a.validateGraph)
		r.Get("/stats", a.statistics)
	})

	return r
}

type api struct {
	engine *lifecycle.Engine
}

func (a *api) healthz(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func decodeDefinition(r *http.Request) (*forgemodel.SchemaDefinition, error) {
	var def forgemodel.SchemaDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

func actorOf(r *http.Request) string {
	if a := r.Header.Get("X-Forge-Actor"); a != "" {
		return a
	}
	return "http"
}

func (a *api) validateDefinition(w http.ResponseWriter, r *http.Request) {
	def, err := decodeDefinition(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	mode := validator.Strict
	if r.URL.Query().Get("mode") == "lenient" {
		mode = validator.Lenient
	}
	if err := a.engine.ValidateDefinition(def, mode); err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]bool{"ok": true})
}

func (a *api) listSchemas(w http.ResponseWriter, r *http.Request) {
	recs, err := a.engine.ListSchemas(r.Context(), r.URL.Query().Get("model_id"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, recs)
}

func (a *api) createSchema(w http.ResponseWriter, r *http.Request) {
	def, err := decodeDefinition(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	rec, err := a.engine.CreateSchema(r.Context(), def, actorOf(r))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rec)
}

func (a *api) getSchema(w http.ResponseWriter, r *http.Request) {
	rec, err := a.engine.GetSchema(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, rec)
}

func (a *api) updateSchema(w http.ResponseWriter, r *http.Request) {
	def, err := decodeDefinition(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	rec, err := a.engine.UpdateSchema(r.Context(), chi.URLParam(r, "id"), def, actorOf(r))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, rec)
}

func (a *api) activateSchema(w http.ResponseWriter, r *http.Request) {
	rec, err := a.engine.ActivateSchema(r.Context(), chi.URLParam(r, "id"), actorOf(r))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, rec)
}

func (a *api) deprecateSchema(w http.ResponseWriter, r *http.Request) {
	rec, err := a.engine.DeprecateSchema(r.Context(), chi.URLParam(r, "id"), actorOf(r))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, rec)
}

func (a *api) deleteSchema(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.DeleteSchema(r.Context(), chi.URLParam(r, "id"), actorOf(r)); err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusNoContent)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) emitDDL(w http.ResponseWriter, r *http.Request) {
	stmts, err := a.engine.EmitDDL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, stmts)
}

func (a *api) changeHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := a.engine.ChangeHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, entries)
}

func (a *api) recentChanges(w http.ResponseWriter, r *http.Request) {
	limit := 20
	entries, err := a.engine.RecentChanges(r.Context(), limit)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, entries)
}

func (a *api) listMigrations(w http.ResponseWriter, r *http.Request) {
	recs, err := a.engine.ListMigrations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, recs)
}

func (a *api) generateMigration(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	rec, err := a.engine.GenerateMigration(r.Context(), from, chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rec)
}

func (a *api) executionOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SchemaIDs []string `json:"schema_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		renderError(w, r, err)
		return
	}
	order, err := a.engine.ExecutionOrder(r.Context(), body.SchemaIDs)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string][]string{"order": order})
}

func (a *api) dependents(w http.ResponseWriter, r *http.Request) {
	recursive := r.URL.Query().Get("recursive") == "true"
	deps, err := a.engine.Dependents(r.Context(), chi.URLParam(r, "id"), recursive)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string][]string{"dependents": deps})
}

func (a *api) canDelete(w http.ResponseWriter, r *http.Request) {
	ok, dependents, err := a.engine.CanDelete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"can_delete": ok, "dependents": dependents})
}

func (a *api) validateGraph(w http.ResponseWriter, r *http.Request) {
	report, err := a.engine.ValidateGraph(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	if !report.OK() {
		render.Status(r, http.StatusUnprocessableEntity)
	}
	render.JSON(w, r, report)
}

func (a *api) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := a.engine.Statistics(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}
