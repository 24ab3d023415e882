// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/forgemodel/forge-model/pkg/forgemodel"
	"github.com/forgemodel/forge-model/pkg/lifecycle"
)

// loadDefinition reads a SchemaDefinition from path, dispatching on
// extension. YAML is decoded through yaml.v3 directly so
// SchemaDefinition.UnmarshalYAML's node-walk preserves `properties`
// declaration order; JSON goes through the custom UnmarshalJSON for the
// same reason.
func loadDefinition(path string) (*forgemodel.SchemaDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var def forgemodel.SchemaDefinition
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &def); err != nil {
			return nil, fmt.Errorf("parse yaml %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(raw, &def); err != nil {
			return nil, fmt.Errorf("parse json %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unrecognized definition extension for %s (want .yaml, .yml or .json)", path)
	}
	return &def, nil
}

// outputFormat returns the Writer Format selected by --json.
func outputFormat(useJSON bool) lifecycle.Format {
	return lifecycle.FormatFromJSON(useJSON)
}
