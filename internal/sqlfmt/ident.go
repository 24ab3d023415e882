// SPDX-License-Identifier: Apache-2.0

// Package sqlfmt is the Identifier/Value Encoder (spec §4.1): the single
// place that quotes identifiers, escapes string literals, and formats typed
// default values. Every SQL-emitting package in this repository routes
// through these primitives, the way pkg/migrations in the teacher routes
// every statement through pq.QuoteIdentifier/pq.QuoteLiteral.
package sqlfmt

import (
	"regexp"
	"strings"

	"github.com/forgemodel/forge-model/pkg/forgeerr"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// IsValidIdent reports whether s is safe to use as an unquoted-source SQL
// identifier once quoted (no embedded quote-escaping surprises, no leading
// digit, no disallowed characters).
func IsValidIdent(s string) bool {
	return identPattern.MatchString(s)
}

// QuoteIdent double-quotes s, doubling any internal `"`. It rejects any s
// that does not match the identifier pattern, returning
// forgeerr.InvalidIdentifier — callers must not emit SQL built from an
// identifier that failed this check.
func QuoteIdent(s string) (string, error) {
	if !IsValidIdent(s) {
		return "", forgeerr.InvalidIdentifier{Value: s}
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`, nil
}

// MustQuoteIdent panics if s is not a valid identifier. It exists for call
// sites that have already validated s (e.g. after Schema Validator has run)
// and would rather fail loudly than propagate an error that "can't happen".
func MustQuoteIdent(s string) string {
	q, err := QuoteIdent(s)
	if err != nil {
		panic(err)
	}
	return q
}

// EscapeString returns the single-quoted, internally-doubled form of s for
// use as a SQL string literal.
func EscapeString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
