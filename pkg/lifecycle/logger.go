// SPDX-License-Identifier: Apache-2.0

// Package lifecycle is the orchestration facade (spec §6.4): it wires the
// Validator, Schema Repository, DDL Generator, Diff Engine, Migration
// Generator, and Dependency Resolver into the transport-agnostic operation
// surface consumed by the CLI and HTTP shim.
package lifecycle

import "github.com/pterm/pterm"

// Logger is the facade's structured logger, mirroring the teacher's
// migrations.Logger interface shape but scoped to lifecycle operations.
type Logger interface {
	LogSchemaCreated(modelID, version string)
	LogSchemaActivated(modelID, schemaID string)
	LogSchemaDeprecated(modelID, schemaID string)
	LogSchemaDeleted(schemaID string)
	LogMigrationGenerated(name string, breaking bool)
	Info(msg string, args ...any)
}

type ptermLogger struct {
	logger pterm.Logger
}

// NewLogger returns the production Logger, backed by pterm's structured
// logger.
func NewLogger() Logger {
	return &ptermLogger{logger: pterm.DefaultLogger}
}

func (l *ptermLogger) LogSchemaCreated(modelID, version string) {
	l.logger.Info("schema created", l.logger.Args([]any{
		"model_id", modelID,
		"version", version,
	}))
}

func (l *ptermLogger) LogSchemaActivated(modelID, schemaID string) {
	l.logger.Info("schema activated", l.logger.Args([]any{
		"model_id", modelID,
		"schema_id", schemaID,
	}))
}

func (l *ptermLogger) LogSchemaDeprecated(modelID, schemaID string) {
	l.logger.Info("schema deprecated", l.logger.Args([]any{
		"model_id", modelID,
		"schema_id", schemaID,
	}))
}

func (l *ptermLogger) LogSchemaDeleted(schemaID string) {
	l.logger.Info("schema deleted", l.logger.Args([]any{"schema_id", schemaID}))
}

func (l *ptermLogger) LogMigrationGenerated(name string, breaking bool) {
	l.logger.Info("migration generated", l.logger.Args([]any{
		"name", name,
		"breaking", breaking,
	}))
}

func (l *ptermLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, l.logger.Args(args))
}

// NewNoopLogger returns a Logger that discards everything, for tests.
func NewNoopLogger() Logger { return noopLogger{} }

type noopLogger struct{}

func (noopLogger) LogSchemaCreated(string, string)    {}
func (noopLogger) LogSchemaActivated(string, string)  {}
func (noopLogger) LogSchemaDeprecated(string, string) {}
func (noopLogger) LogSchemaDeleted(string)            {}
func (noopLogger) LogMigrationGenerated(string, bool) {}
func (noopLogger) Info(string, ...any)                {}
