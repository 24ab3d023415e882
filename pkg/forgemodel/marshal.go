// SPDX-License-Identifier: Apache-2.0

package forgemodel

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// schemaDefinitionAlias avoids infinite recursion through
// UnmarshalJSON/MarshalJSON while reusing the struct tags on SchemaDefinition.
type schemaDefinitionAlias SchemaDefinition

// UnmarshalJSON preserves the declaration order of the `properties` object,
// which the default map-based decoding loses. Declaration order drives
// deterministic column order in emitted DDL (§4.5).
func (d *SchemaDefinition) UnmarshalJSON(data []byte) error {
	var alias schemaDefinitionAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*d = SchemaDefinition(alias)

	order, err := propertyOrder(data)
	if err != nil {
		return fmt.Errorf("reading properties order: %w", err)
	}
	d.PropertyOrder = order

	return nil
}

// propertyOrder walks the raw JSON token stream to recover the key order of
// the top-level "properties" object without relying on map iteration.
func propertyOrder(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	// Find the "properties" key at depth 1.
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case json.Delim:
			if t == '{' || t == '[' {
				depth++
			} else {
				depth--
			}
		case string:
			if depth == 1 && t == "properties" {
				return readObjectKeys(dec)
			}
		}
		if depth == 0 {
			return nil, nil
		}
	}
}

// readObjectKeys assumes the next token is the opening '{' of an object and
// returns its keys in declaration order.
func readObjectKeys(dec *json.Decoder) ([]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", keyTok)
		}
		keys = append(keys, key)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
	}
	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return keys, nil
}

// MarshalJSON re-serializes properties in PropertyOrder so round-tripped
// documents keep their original field ordering.
func (d SchemaDefinition) MarshalJSON() ([]byte, error) {
	alias := schemaDefinitionAlias(d)

	var buf bytes.Buffer
	tmp, err := json.Marshal(alias)
	if err != nil {
		return nil, err
	}
	if len(d.PropertyOrder) == 0 {
		return tmp, nil
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(tmp, &generic); err != nil {
		return nil, err
	}

	propsRaw, ok := generic["properties"]
	if !ok {
		return tmp, nil
	}
	var props map[string]json.RawMessage
	if err := json.Unmarshal(propsRaw, &props); err != nil {
		return nil, err
	}

	buf.WriteByte('{')
	first := true
	writeKey := func(k string, v json.RawMessage) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(v)
	}

	orderedProps := &bytes.Buffer{}
	orderedProps.WriteByte('{')
	pfirst := true
	seen := make(map[string]bool, len(d.PropertyOrder))
	for _, name := range d.PropertyOrder {
		v, ok := props[name]
		if !ok {
			continue
		}
		if !pfirst {
			orderedProps.WriteByte(',')
		}
		pfirst = false
		kb, _ := json.Marshal(name)
		orderedProps.Write(kb)
		orderedProps.WriteByte(':')
		orderedProps.Write(v)
		seen[name] = true
	}
	for name, v := range props {
		if seen[name] {
			continue
		}
		if !pfirst {
			orderedProps.WriteByte(',')
		}
		pfirst = false
		kb, _ := json.Marshal(name)
		orderedProps.Write(kb)
		orderedProps.WriteByte(':')
		orderedProps.Write(v)
	}
	orderedProps.WriteByte('}')

	for k, v := range generic {
		if k == "properties" {
			writeKey(k, json.RawMessage(orderedProps.Bytes()))
			continue
		}
		writeKey(k, v)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalYAML mirrors the teacher's RawMigration.UnmarshalYAML: it decodes
// through YAML's node tree rather than through Go maps so that `properties`
// key order survives a YAML round trip the same way it does for JSON.
func (d *SchemaDefinition) UnmarshalYAML(value *yaml.Node) error {
	jsonBytes, err := yamlNodeToJSON(value)
	if err != nil {
		return fmt.Errorf("converting definition to JSON: %w", err)
	}
	return d.UnmarshalJSON(jsonBytes)
}

// yamlNodeToJSON converts a yaml.Node to JSON bytes while preserving mapping
// key order, exactly as pkg/migrations/migrations.go does for RawMigration.
func yamlNodeToJSON(node *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) > 0 {
			return yamlNodeToJSON(node.Content[0])
		}
		return []byte("null"), nil

	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i < len(node.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, err := yamlNodeToJSON(node.Content[i])
			if err != nil {
				return nil, err
			}
			buf.Write(keyBytes)
			buf.WriteByte(':')
			valueBytes, err := yamlNodeToJSON(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			buf.Write(valueBytes)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil

	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, c := range node.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			cb, err := yamlNodeToJSON(c)
			if err != nil {
				return nil, err
			}
			buf.Write(cb)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil

	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return json.Marshal(v)

	case yaml.AliasNode:
		return yamlNodeToJSON(node.Alias)
	}

	return nil, fmt.Errorf("unsupported yaml node kind %v", node.Kind)
}
