package sql

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knowhy-io/knowhy-engine/pkg/apperrors"
)

// DerivedSubdir is the subdirectory of the scripts directory holding
// derived plain-SQL files produced by the converter.
const DerivedSubdir = "sql_files"

// reservedMarkdownPrefix names markdown files in the scripts directory that
// are not report templates.
const reservedMarkdownPrefix = "checklist"

// Loader resolves a logical report name to its template content. It is the
// only component that touches the filesystem for templates: everything else
// goes through it.
type Loader struct {
	// ScriptsDir is the root template directory, holding <name>.md files
	// directly and derived <name>.sql files under DerivedSubdir.
	ScriptsDir string
}

// DerivedDir returns the directory derived plain-SQL files live in.
func (l Loader) DerivedDir() string {
	return filepath.Join(l.ScriptsDir, DerivedSubdir)
}

// Locate returns the path of the template file backing a report name.
// Derived plain-SQL files win over markdown sources; when neither exists
// the error wraps apperrors.ErrNotFound.
func (l Loader) Locate(reportName string) (string, error) {
	sqlPath := filepath.Join(l.DerivedDir(), reportName+".sql")
	if _, err := os.Stat(sqlPath); err == nil {
		return sqlPath, nil
	}

	mdPath := filepath.Join(l.ScriptsDir, reportName+".md")
	if _, err := os.Stat(mdPath); err == nil {
		return mdPath, nil
	}

	return "", fmt.Errorf("report template %q: %w", reportName, apperrors.ErrNotFound)
}

// Load reads the SQL body for a report name. Markdown sources have the
// body extracted from the first ```sql fenced block (the whole file when
// unfenced) and normalized via NormalizeBody. Plain-SQL files are assumed
// already normalized by the converter and are returned verbatim.
func (l Loader) Load(reportName string) (string, error) {
	path, err := l.Locate(reportName)
	if err != nil {
		return "", err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template %q: %w", path, err)
	}
	content := string(raw)

	if strings.HasSuffix(path, ".md") {
		return NormalizeBody(ExtractSQLBody(content)), nil
	}

	return strings.TrimSpace(content), nil
}

// ReadMarkdownSource returns the raw markdown content for a report name,
// for callers that need title and description scraped from the source.
// Wraps apperrors.ErrNotFound when no markdown file exists.
func (l Loader) ReadMarkdownSource(reportName string) (string, error) {
	path := filepath.Join(l.ScriptsDir, reportName+".md")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("markdown template %q: %w", reportName, apperrors.ErrNotFound)
		}
		return "", fmt.Errorf("read markdown template %q: %w", path, err)
	}
	return string(raw), nil
}

// ListMarkdownReports returns the report names of all markdown templates in
// the scripts directory, excluding reserved files (README.md and
// checklist-prefixed notes).
func (l Loader) ListMarkdownReports() ([]string, error) {
	entries, err := os.ReadDir(l.ScriptsDir)
	if err != nil {
		return nil, fmt.Errorf("read scripts directory %q: %w", l.ScriptsDir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		filename := entry.Name()
		if !strings.HasSuffix(filename, ".md") {
			continue
		}
		if filename == "README.md" || strings.HasPrefix(filename, reservedMarkdownPrefix) {
			continue
		}
		names = append(names, strings.TrimSuffix(filename, ".md"))
	}
	return names, nil
}
