// SPDX-License-Identifier: Apache-2.0

package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgemodel/forge-model/pkg/forgemodel"
	"github.com/forgemodel/forge-model/pkg/httpapi"
	"github.com/forgemodel/forge-model/pkg/lifecycle"
	boltstore "github.com/forgemodel/forge-model/pkg/store/bolt"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forge.db")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := boltstore.Open(path, func() time.Time { return now })
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	engine := lifecycle.New(s, lifecycle.WithLogger(lifecycle.NewNoopLogger()))
	return httpapi.New(engine)
}

func usersDefinitionJSON() []byte {
	def := &forgemodel.SchemaDefinition{
		Schema:  forgemodel.MetaSchemaID,
		ModelID: "User",
		Version: "1.0.0",
		Name:    "User",
		Table:   "users",
		Properties: map[string]forgemodel.FieldDefinition{
			"id": {
				Type:     forgemodel.FieldTypeInteger,
				Database: &forgemodel.Database{PrimaryKey: true},
			},
		},
		PropertyOrder: []string{"id"},
	}
	b, _ := json.Marshal(def)
	return b
}

func TestCreateAndGetSchema(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/schemas/", bytes.NewReader(usersDefinitionJSON()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	req = httptest.NewRequest(http.MethodGet, "/schemas/"+created.ID+"/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateSchema_InvalidDefinitionReturns400(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/schemas/", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_definition", body["kind"])
}

func TestGetSchema_NotFoundReturns404(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/schemas/does-not-exist/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteActiveSchemaReturns409(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/schemas/", bytes.NewReader(usersDefinitionJSON()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	req = httptest.NewRequest(http.MethodPost, "/schemas/"+created.ID+"/activate", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/schemas/"+created.ID+"/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDepsStats(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/deps/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
