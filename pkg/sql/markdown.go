package sql

import (
	"regexp"
	"strings"
)

// fencedSQLRegex matches the first ```sql fenced code block in a markdown
// template and captures its body.
var fencedSQLRegex = regexp.MustCompile("(?s)```sql\\s*(.*?)\\s*```")

// headingRegex matches the first-level heading that carries the report's
// display name.
var headingRegex = regexp.MustCompile(`(?m)^# (.*)$`)

// lineCommentRegex matches SQL line comments including their trailing
// newline, so stripping a comment keeps the line structure intact.
var lineCommentRegex = regexp.MustCompile(`--[^\n]*\n`)

// tenantTableRegex matches concrete per-tenant table names. Bodies authored
// against one tenant's table are rewritten to the canonical {TABLE_NAME}
// placeholder so the same template works for every tenant.
var tenantTableRegex = regexp.MustCompile(`customer_\w+`)

// tenantTableNameRegex anchors the full shape of a configurable tenant data
// table name.
var tenantTableNameRegex = regexp.MustCompile(`^customer_[a-z0-9]+$`)

// IsTenantTableName reports whether name is a valid tenant data table name.
// The configured value is spliced into report SQL, so anything outside the
// customer_<id> shape is rejected.
func IsTenantTableName(name string) bool {
	return tenantTableNameRegex.MatchString(name)
}

// TemplateMeta holds the human-facing metadata scraped from a markdown
// template: the first-level heading and the free text between the heading
// and the first fenced block or next heading.
type TemplateMeta struct {
	Title       string
	Description string
}

// ExtractMeta scrapes title and description from markdown template content.
// When the file has no heading, fallbackTitle (normally the report name)
// is used and the description is left empty.
func ExtractMeta(content, fallbackTitle string) TemplateMeta {
	loc := headingRegex.FindStringSubmatchIndex(content)
	if loc == nil {
		return TemplateMeta{Title: fallbackTitle}
	}

	meta := TemplateMeta{Title: content[loc[2]:loc[3]]}

	rest := content[loc[1]:]
	if idx := strings.Index(rest, "\n```"); idx >= 0 {
		rest = rest[:idx]
	}
	if idx := strings.Index(rest, "\n#"); idx >= 0 {
		rest = rest[:idx]
	}
	meta.Description = strings.TrimSpace(rest)
	return meta
}

// ExtractSQLBody pulls the SQL out of markdown template content: the first
// ```sql fenced block, or the whole content when the author forgot to fence
// the SQL.
func ExtractSQLBody(content string) string {
	if m := fencedSQLRegex.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(content)
}

// NormalizeBody strips SQL line comments from a markdown-sourced body and
// rewrites concrete tenant table names to the {TABLE_NAME} placeholder.
// Derived plain-SQL files are written in this form so they never need
// normalizing again on load.
func NormalizeBody(sqlBody string) string {
	normalized := lineCommentRegex.ReplaceAllString(sqlBody, "\n")
	normalized = tenantTableRegex.ReplaceAllString(normalized, "{TABLE_NAME}")
	return strings.TrimSpace(normalized)
}
