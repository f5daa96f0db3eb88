package sql

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertAllWritesDerivedFile(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "daily.md", sampleMarkdown)

	loader := Loader{ScriptsDir: dir}
	converter := Converter{Loader: loader, Defaults: Defaults{Now: fixedClock}}
	mustConvertAll(t, converter)

	raw, err := os.ReadFile(filepath.Join(dir, DerivedSubdir, "daily.sql"))
	require.NoError(t, err)
	derived := string(raw)

	assert.True(t, strings.HasPrefix(derived, "-- Daily Message Volume\n"))
	assert.Contains(t, derived, "-- Counts messages per day for the selected window.\n")
	assert.Contains(t, derived, "-- Parameters:\n")
	assert.Contains(t, derived, "-- {START_DATE} - Start Date (e.g. 2024-05-13)\n")
	assert.Contains(t, derived, "-- {TABLE_NAME} - Table Name (e.g. "+FallbackTableName+")\n")
	assert.Contains(t, derived, "FROM {TABLE_NAME}")
	assert.NotContains(t, derived, "customer_acme123")
}

func TestConvertAllUsesConfiguredTable(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "daily.md", sampleMarkdown)

	converter := Converter{
		Loader:   Loader{ScriptsDir: dir},
		Defaults: Defaults{TableName: "customer_widgets"},
	}
	mustConvertAll(t, converter)

	raw, err := os.ReadFile(filepath.Join(dir, DerivedSubdir, "daily.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "-- {TABLE_NAME} - Table Name (e.g. customer_widgets)\n")
	assert.NotContains(t, string(raw), FallbackTableName)
}

func TestConvertAllTransliteratesStem(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "günlük_rapor.md", sampleMarkdown)

	converter := Converter{Loader: Loader{ScriptsDir: dir}}
	mustConvertAll(t, converter)

	_, err := os.Stat(filepath.Join(dir, DerivedSubdir, "gunluk_rapor.sql"))
	assert.NoError(t, err)
}

func TestConvertAllOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "daily.md", sampleMarkdown)

	converter := Converter{Loader: Loader{ScriptsDir: dir}}
	mustConvertAll(t, converter)

	// Hand edits to derived files do not survive regeneration.
	derivedPath := filepath.Join(dir, DerivedSubdir, "daily.sql")
	require.NoError(t, os.WriteFile(derivedPath, []byte("-- edited by hand\n"), 0o644))

	mustConvertAll(t, converter)
	raw, err := os.ReadFile(derivedPath)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "edited by hand")
	assert.Contains(t, string(raw), "FROM {TABLE_NAME}")
}

func TestConvertAllSkipsReservedFiles(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "README.md", "# readme\n")
	writeTemplate(t, dir, "checklist_qa.md", "# checklist\n")

	converter := Converter{Loader: Loader{ScriptsDir: dir}}
	mustConvertAll(t, converter)

	entries, err := os.ReadDir(filepath.Join(dir, DerivedSubdir))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// Converting then loading the derived file keeps the placeholder verbatim:
// only comments and table literals are altered by conversion.
func TestConvertLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "daily.md", sampleMarkdown)

	loader := Loader{ScriptsDir: dir}
	converter := Converter{Loader: loader, Defaults: Defaults{Now: fixedClock}}
	mustConvertAll(t, converter)

	body, err := loader.Load("daily")
	require.NoError(t, err)
	assert.Contains(t, body, "{START_DATE}")
	assert.Contains(t, body, "FROM {TABLE_NAME}")
}

func TestConvertAllIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "daily.md", sampleMarkdown)

	converter := Converter{Loader: Loader{ScriptsDir: dir}, Defaults: Defaults{Now: fixedClock}}
	mustConvertAll(t, converter)

	derivedPath := filepath.Join(dir, DerivedSubdir, "daily.sql")
	first, err := os.ReadFile(derivedPath)
	require.NoError(t, err)

	mustConvertAll(t, converter)
	second, err := os.ReadFile(derivedPath)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func mustConvertAll(t *testing.T, c Converter) []string {
	t.Helper()
	converted, err := c.ConvertAll()
	require.NoError(t, err)
	return converted
}
