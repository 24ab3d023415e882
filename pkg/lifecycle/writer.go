// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"
)

// Format selects the on-disk encoding for written schema definitions and
// migration records.
type Format int

const (
	InvalidFormat Format = iota
	YAMLFormat
	JSONFormat
)

// ErrInvalidFormat is returned by Writer.Write when the Writer was built
// with an unrecognized Format.
var ErrInvalidFormat = errors.New("invalid output format")

// FormatFromJSON returns JSONFormat when useJSON, else YAMLFormat.
func FormatFromJSON(useJSON bool) Format {
	if useJSON {
		return JSONFormat
	}
	return YAMLFormat
}

// Extension returns the file extension conventionally used for f.
func (f Format) Extension() string {
	switch f {
	case YAMLFormat:
		return "yaml"
	case JSONFormat:
		return "json"
	}
	return ""
}

// Writer serializes SchemaDefinition and MigrationRecord values to an
// io.Writer; the CLI's `create` and `show` commands use it to print records.
type Writer struct {
	w      io.Writer
	format Format
}

// NewWriter builds a Writer for the given destination and format.
func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

// Write encodes v (a *forgemodel.SchemaDefinition, *store.MigrationRecord,
// or any JSON/YAML-marshalable value) per the Writer's configured format.
func (w *Writer) Write(v any) error {
	switch w.format {
	case YAMLFormat:
		out, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = w.w.Write(out)
		return err
	case JSONFormat:
		enc := json.NewEncoder(w.w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	default:
		return ErrInvalidFormat
	}
}
