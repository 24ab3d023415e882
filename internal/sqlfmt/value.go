// SPDX-License-Identifier: Apache-2.0

package sqlfmt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// functionConstants are bare identifiers/calls that must pass through a
// DEFAULT clause unquoted rather than being treated as string literals.
var functionConstants = map[string]bool{
	"NOW":               true,
	"CURRENT_TIMESTAMP": true,
	"CURRENT_DATE":      true,
	"CURRENT_TIME":      true,
	"uuid_generate_v4":  true,
	"gen_random_uuid":   true,
}

// looksLikeFunctionCall reports whether s has the shape of a SQL function
// invocation (`foo()`, `foo(1, 2)`) or is one of the well-known constant
// identifiers that must never be quoted.
func looksLikeFunctionCall(s string) bool {
	trimmed := strings.TrimSpace(s)
	if functionConstants[trimmed] {
		return true
	}
	upper := strings.ToUpper(trimmed)
	if upper == "NOW()" || upper == "CURRENT_TIMESTAMP" || upper == "CURRENT_DATE" || upper == "CURRENT_TIME" {
		return true
	}
	return strings.HasSuffix(trimmed, "()")
}

// FormatDefault formats value (as decoded from a definition's JSON) into a
// SQL expression suitable for use after DEFAULT, given the target column's
// SQL type. See spec §4.1 for the exact resolution rules.
func FormatDefault(value any, sqlType string) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return formatNumber(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		if looksLikeFunctionCall(v) {
			return v
		}
		return EscapeString(v)
	case []any, map[string]any:
		return formatJSONLiteral(v)
	default:
		return formatJSONLiteral(v)
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatJSONLiteral serializes value as canonical JSON and quotes it as a
// string literal, for object/array defaults destined for JSONB columns.
func formatJSONLiteral(value any) string {
	b, err := json.Marshal(value)
	if err != nil {
		return EscapeString(fmt.Sprintf("%v", value))
	}
	return EscapeString(string(b))
}

// FormatDefaultRaw is like FormatDefault but takes the raw string form found
// in a FieldDefinition.Database.Default pointer (the wire format stores
// defaults pre-rendered as strings, not as typed JSON values, since a
// default may legitimately be the bare text of a SQL expression).
func FormatDefaultRaw(raw string, sqlType string) string {
	if looksLikeFunctionCall(raw) {
		return raw
	}
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "TRUE", "FALSE":
		return strings.ToUpper(strings.TrimSpace(raw))
	}
	if isNumericType(sqlType) && isNumericLiteral(raw) {
		return raw
	}
	return EscapeString(raw)
}

func isNumericType(sqlType string) bool {
	switch strings.ToUpper(strings.Fields(sqlType)[0]) {
	case "INTEGER", "BIGINT", "SMALLINT", "DOUBLE", "DECIMAL", "NUMERIC", "REAL":
		return true
	}
	return false
}

func isNumericLiteral(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}
