package util

import (
	"fmt"
	"strings"
)

// NormalizeBaseURL trims surrounding whitespace and guarantees a single
// trailing slash, so key joins never double up separators.
func NormalizeBaseURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimRight(trimmed, "/")
	return trimmed + "/"
}

// DeriveTableName joins the configured prefix and a base table name. An
// empty prefix yields the bare table name.
func DeriveTableName(prefix string, table string) string {
	if prefix == "" {
		return table
	}

	return fmt.Sprintf("%s_%s", prefix, table)
}
