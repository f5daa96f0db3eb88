package sql

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// stemTransliterator maps Turkish characters in template filenames to ASCII
// so derived file names are safe on every filesystem.
var stemTransliterator = strings.NewReplacer(
	"İ", "I", "ı", "i",
	"Ğ", "G", "ğ", "g",
	"Ü", "U", "ü", "u",
	"Ş", "S", "ş", "s",
	"Ç", "C", "ç", "c",
	"Ö", "O", "ö", "o",
)

var labelCaser = cases.Title(language.English)

// Converter materializes derived plain-SQL files from markdown templates.
// It runs at process start and on demand from the admin API; every run is a
// full regeneration, so hand edits to derived files are not preserved. The
// markdown is the single source of truth.
type Converter struct {
	Loader   Loader
	Defaults Defaults
	Logger   *zap.Logger
}

// ConvertAll scans every markdown template and writes its derived plain-SQL
// companion, overwriting unconditionally. A template that fails to convert
// is logged and skipped; the remaining templates still convert. Returns the
// names of the templates that converted.
func (c Converter) ConvertAll() ([]string, error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	derivedDir := c.Loader.DerivedDir()
	if err := os.MkdirAll(derivedDir, 0o755); err != nil {
		return nil, fmt.Errorf("create derived directory %q: %w", derivedDir, err)
	}

	names, err := c.Loader.ListMarkdownReports()
	if err != nil {
		return nil, err
	}

	converted := make([]string, 0, len(names))
	for _, name := range names {
		if err := c.convertOne(name, derivedDir); err != nil {
			logger.Error("Failed to convert markdown template",
				zap.String("report", name),
				zap.Error(err))
			continue
		}
		logger.Info("Converted markdown template",
			zap.String("report", name))
		converted = append(converted, name)
	}
	return converted, nil
}

// convertOne extracts body and metadata from one markdown template and
// writes the derived file with the annotated header format.
func (c Converter) convertOne(name, derivedDir string) error {
	content, err := c.Loader.ReadMarkdownSource(name)
	if err != nil {
		return err
	}

	body := NormalizeBody(ExtractSQLBody(content))
	meta := ExtractMeta(content, name)
	placeholders := ExtractPlaceholders(body)

	var sb strings.Builder
	fmt.Fprintf(&sb, "-- %s\n", meta.Title)
	if meta.Description != "" {
		fmt.Fprintf(&sb, "-- %s\n", meta.Description)
	}
	sb.WriteString("-- Parameters:\n")
	for _, param := range placeholders {
		fmt.Fprintf(&sb, "-- {%s} - %s", param, HumanizeLabel(param))
		if def := c.Defaults.For(param); def != "" {
			fmt.Fprintf(&sb, " (e.g. %s)", def)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(body)
	sb.WriteString("\n")

	derivedPath := filepath.Join(derivedDir, TransliterateStem(name)+".sql")
	if err := os.WriteFile(derivedPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write derived file %q: %w", derivedPath, err)
	}
	return nil
}

// TransliterateStem converts a template file stem to its ASCII derived-file
// counterpart.
func TransliterateStem(stem string) string {
	return stemTransliterator.Replace(stem)
}

// HumanizeLabel turns a placeholder name into a display label, e.g.
// MIN_WORD_COUNT becomes "Min Word Count".
func HumanizeLabel(placeholder string) string {
	return labelCaser.String(strings.ToLower(strings.ReplaceAll(placeholder, "_", " ")))
}
