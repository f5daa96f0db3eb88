// Package sql implements the report template engine: placeholder
// extraction, default value resolution, and substitution of values into
// SQL template text.
package sql

import (
	"regexp"
	"sort"
	"strings"
)

// placeholderRegex matches {NAME} placeholders in SQL templates.
// Placeholder names are uppercase-with-underscores only; the full set of
// placeholders a template needs is always derived by scanning its body for
// this shape, never from a separately maintained list.
var placeholderRegex = regexp.MustCompile(`\{([A-Z_]+)\}`)

// ExtractPlaceholders finds all {NAME} placeholders in a SQL body and
// returns the distinct names sorted lexicographically ascending.
//
// Example:
//
//	sql := "SELECT * FROM {TABLE_NAME} WHERE d > '{START_DATE}'"
//	names := ExtractPlaceholders(sql)
//	// names == []string{"START_DATE", "TABLE_NAME"}
//
// An empty body, or a body with no placeholders, yields an empty slice.
func ExtractPlaceholders(sqlBody string) []string {
	matches := placeholderRegex.FindAllStringSubmatch(sqlBody, -1)
	seen := make(map[string]bool)
	names := make([]string, 0, len(matches))

	for _, match := range matches {
		name := match[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names
}

// Render replaces every {KEY} occurrence in the SQL body with the value's
// string form. Single-quote characters in values are doubled before
// substitution (SQL literal escaping). This is defense in depth, not a
// substitute for bind parameters: the output is concatenated into an
// executable SQL string.
//
// Keys present in values but absent from the body are ignored. Placeholders
// in the body with no matching key are left as literal {KEY} text — callers
// must union extracted placeholders with resolved defaults before rendering,
// or the output SQL is malformed.
func Render(sqlBody string, values map[string]string) string {
	result := sqlBody
	for key, value := range values {
		escaped := strings.ReplaceAll(value, "'", "''")
		result = strings.ReplaceAll(result, "{"+key+"}", escaped)
	}
	return result
}
