// SPDX-License-Identifier: Apache-2.0

package postgres

import "context"

// DDL for the repository's own bookkeeping tables, per spec §6.1: the
// schema, edge, migration and change-log tables plus the required indexes. Table names are fixed
// (not user-controlled), so they are inlined rather than routed through
// sqlfmt.QuoteIdent.
const bootstrapSQL = `
CREATE TABLE IF NOT EXISTS forge_schemas (
	id          UUID PRIMARY KEY,
	model_id    VARCHAR NOT NULL,
	version     VARCHAR NOT NULL,
	name        VARCHAR NOT NULL,
	table_name  VARCHAR NOT NULL,
	definition  JSONB NOT NULL,
	status      VARCHAR NOT NULL,
	is_system   BOOLEAN NOT NULL DEFAULT FALSE,
	created_by  VARCHAR NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS forge_schemas_model_version
	ON forge_schemas (model_id, version);

CREATE UNIQUE INDEX IF NOT EXISTS forge_schemas_model_active
	ON forge_schemas (model_id)
	WHERE status = 'active';

CREATE TABLE IF NOT EXISTS forge_schema_edges (
	id               UUID PRIMARY KEY,
	from_schema_id   UUID NOT NULL REFERENCES forge_schemas (id),
	to_schema_id     UUID REFERENCES forge_schemas (id),
	to_model_id      VARCHAR NOT NULL,
	dependency_type  VARCHAR NOT NULL,
	field_name       VARCHAR,
	config           JSONB
);

CREATE INDEX IF NOT EXISTS forge_schema_edges_from ON forge_schema_edges (from_schema_id);
CREATE INDEX IF NOT EXISTS forge_schema_edges_to ON forge_schema_edges (to_schema_id);

CREATE TABLE IF NOT EXISTS forge_migrations (
	id             UUID PRIMARY KEY,
	name           VARCHAR NOT NULL,
	from_schema_id UUID REFERENCES forge_schemas (id),
	to_schema_id   UUID NOT NULL REFERENCES forge_schemas (id),
	from_version   VARCHAR,
	to_version     VARCHAR NOT NULL,
	forward_sql    TEXT NOT NULL,
	rollback_sql   TEXT NOT NULL,
	is_breaking    BOOLEAN NOT NULL,
	status         VARCHAR NOT NULL,
	applied_at     TIMESTAMPTZ,
	checksum       VARCHAR NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS forge_migrations_name ON forge_migrations (name);

CREATE TABLE IF NOT EXISTS forge_change_log (
	id             UUID PRIMARY KEY,
	schema_id      UUID NOT NULL REFERENCES forge_schemas (id),
	change_type    VARCHAR NOT NULL,
	previous_state JSONB,
	new_state      JSONB,
	actor          VARCHAR NOT NULL,
	occurred_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS forge_change_log_schema_time ON forge_change_log (schema_id, occurred_at);
`

// EnsureSchema creates the repository's bookkeeping tables if absent. It is
// idempotent and safe to call on every startup, mirroring the teacher's
// `init` bootstrap of the pgroll state schema.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, bootstrapSQL)
	return err
}
