package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/knowhy-io/knowhy-engine/pkg/apperrors"
	secaudit "github.com/knowhy-io/knowhy-engine/pkg/audit"
	"github.com/knowhy-io/knowhy-engine/pkg/models"
	"github.com/knowhy-io/knowhy-engine/pkg/repositories"
	sqlpkg "github.com/knowhy-io/knowhy-engine/pkg/sql"
)

type reportFixture struct {
	svc      ReportService
	reports  *fakeReportRepo
	configs  *fakeConfigRepo
	executor *fakeExecutor
	audit    *fakeAudit
	dir      string
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	dir := t.TempDir()
	f := &reportFixture{
		reports:  newFakeReportRepo(),
		configs:  newFakeConfigRepo(),
		executor: &fakeExecutor{},
		audit:    &fakeAudit{},
		dir:      dir,
	}
	f.svc = NewReportService(
		f.reports, f.configs,
		sqlpkg.Loader{ScriptsDir: dir},
		f.executor, f.audit,
		secaudit.NewSecurityAuditor(zap.NewNop()), zap.NewNop())
	return f
}

func (f *reportFixture) writeMarkdown(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name+".md"), []byte(content), 0o644))
}

const volumeTemplate = "# Daily Volume\n\nMessages per day.\n\n```sql\nSELECT COUNT(*) FROM customer_acme\nWHERE created_at >= '{START_DATE}';\n```\n"

func TestListMergesRegisteredAndDiskReports(t *testing.T) {
	f := newReportFixture(t)
	f.writeMarkdown(t, "daily_volume", volumeTemplate)
	f.writeMarkdown(t, "weekly_summary", "# Weekly Summary\n\n```sql\nSELECT 1;\n```\n")

	require.NoError(t, f.reports.Upsert(context.Background(), &models.Report{
		ReportName:  "daily_volume",
		DisplayName: "Daily Volume",
		Category:    "traffic",
		Parameters:  map[string]any{"START_DATE": map[string]any{"type": "date"}},
		IsActive:    true,
	}))

	catalog, warnings, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, catalog, 2)

	assert.Equal(t, "daily_volume", catalog[0].ReportName)
	assert.True(t, catalog[0].IsRegistered)
	assert.Equal(t, "traffic", catalog[0].Category)

	assert.Equal(t, "weekly_summary", catalog[1].ReportName)
	assert.False(t, catalog[1].IsRegistered)
	assert.Equal(t, "Weekly Summary", catalog[1].DisplayName)
}

func TestListSurvivesRepositoryFailure(t *testing.T) {
	f := newReportFixture(t)
	f.writeMarkdown(t, "daily_volume", volumeTemplate)
	f.reports.listErr = assert.AnError

	catalog, warnings, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Len(t, catalog, 1)
	assert.False(t, catalog[0].IsRegistered)
}

func TestListSortsByDisplayName(t *testing.T) {
	f := newReportFixture(t)
	f.writeMarkdown(t, "zebra", "# Alpha Report\n\n```sql\nSELECT 1;\n```\n")
	f.writeMarkdown(t, "alpha", "# Zulu Report\n\n```sql\nSELECT 1;\n```\n")

	catalog, _, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	assert.Equal(t, "Alpha Report", catalog[0].DisplayName)
	assert.Equal(t, "Zulu Report", catalog[1].DisplayName)
}

func TestRunSubstitutesConfiguredTableAndDefaults(t *testing.T) {
	f := newReportFixture(t)
	f.writeMarkdown(t, "daily_volume", volumeTemplate)
	f.configs.values[repositories.ConfigKeyTableName] = "customer_widgets"

	result, err := f.svc.Run(context.Background(), "daily_volume", nil)
	require.NoError(t, err)

	assert.Contains(t, f.executor.lastSQL, "customer_widgets")
	assert.NotContains(t, f.executor.lastSQL, "{START_DATE}")
	assert.NotContains(t, f.executor.lastSQL, "{TABLE_NAME}")
	assert.Equal(t, "customer_widgets", result.Parameters["TABLE_NAME"])
	assert.Contains(t, f.audit.actions, models.ActionRunReport)
}

func TestRunCallerValuesOverrideDefaults(t *testing.T) {
	f := newReportFixture(t)
	f.writeMarkdown(t, "daily_volume", volumeTemplate)

	_, err := f.svc.Run(context.Background(), "daily_volume", map[string]string{
		"START_DATE": "2024-01-01",
		"IGNORED":    "whatever",
	})
	require.NoError(t, err)
	assert.Contains(t, f.executor.lastSQL, "'2024-01-01'")
}

func TestRunEscapesQuotesInCallerValues(t *testing.T) {
	f := newReportFixture(t)
	f.writeMarkdown(t, "greeting", "# Greeting\n\n```sql\nSELECT * FROM customer_acme WHERE name = '{START_DATE}';\n```\n")

	_, err := f.svc.Run(context.Background(), "greeting", map[string]string{
		"START_DATE": "O'Brien",
	})
	require.NoError(t, err)
	assert.Contains(t, f.executor.lastSQL, "O''Brien")
}

func TestRunRejectsInjectionInCallerValues(t *testing.T) {
	f := newReportFixture(t)
	f.writeMarkdown(t, "daily_volume", volumeTemplate)

	_, err := f.svc.Run(context.Background(), "daily_volume", map[string]string{
		"START_DATE": "' OR 1=1 --",
	})
	require.ErrorIs(t, err, apperrors.ErrInjectionDetected)
	assert.Empty(t, f.executor.lastSQL)
}

func TestRunUnknownReport(t *testing.T) {
	f := newReportFixture(t)

	_, err := f.svc.Run(context.Background(), "missing", nil)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDetailForDiskOnlyTemplate(t *testing.T) {
	f := newReportFixture(t)
	f.writeMarkdown(t, "daily_volume", volumeTemplate)

	detail, err := f.svc.Detail(context.Background(), "daily_volume")
	require.NoError(t, err)
	assert.False(t, detail.IsRegistered)
	assert.Equal(t, []string{"START_DATE", "TABLE_NAME"}, detail.Placeholders)
	assert.Equal(t, sqlpkg.FallbackTableName, detail.Defaults["TABLE_NAME"])
}

func TestRegisterInfersParameters(t *testing.T) {
	f := newReportFixture(t)
	f.writeMarkdown(t, "daily_volume", volumeTemplate)

	report := &models.Report{ReportName: "daily_volume", IsActive: true}
	require.NoError(t, f.svc.Register(context.Background(), report))

	stored, err := f.reports.GetByName(context.Background(), "daily_volume")
	require.NoError(t, err)
	assert.Equal(t, "Daily Volume", stored.DisplayName)

	start, ok := stored.Parameters["START_DATE"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "date", start["type"])
}

func TestCreateWritesTemplateAndRegisters(t *testing.T) {
	f := newReportFixture(t)

	report := &models.Report{
		ReportName:  "top_topics",
		Description: "Most frequent topics.",
		IsActive:    true,
	}
	err := f.svc.Create(context.Background(), report,
		"SELECT topic, COUNT(*) FROM {TABLE_NAME} GROUP BY topic")
	require.NoError(t, err)

	source, err := os.ReadFile(filepath.Join(f.dir, "top_topics.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(source), "# Top Topics\n"))
	assert.Contains(t, string(source), "```sql")

	_, err = f.reports.GetByName(context.Background(), "top_topics")
	require.NoError(t, err)

	// Creating over an existing template is rejected.
	err = f.svc.Create(context.Background(), &models.Report{ReportName: "top_topics"}, "SELECT 1")
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUpdateSQLPreservesExistingDescriptors(t *testing.T) {
	f := newReportFixture(t)
	f.writeMarkdown(t, "daily_volume", volumeTemplate)

	require.NoError(t, f.reports.Upsert(context.Background(), &models.Report{
		ReportName: "daily_volume",
		Parameters: map[string]any{
			"START_DATE": map[string]any{"type": "date", "label": "Beginning"},
		},
		IsActive: true,
	}))

	err := f.svc.UpdateSQL(context.Background(), "daily_volume",
		"SELECT COUNT(*) FROM {TABLE_NAME} WHERE created_at BETWEEN '{START_DATE}' AND '{END_DATE}'")
	require.NoError(t, err)

	// The hand-written file now wins over the markdown source.
	body, err := f.svc.RawSQL(context.Background(), "daily_volume")
	require.NoError(t, err)
	assert.Contains(t, body, "{END_DATE}")

	stored, err := f.reports.GetByName(context.Background(), "daily_volume")
	require.NoError(t, err)
	start, ok := stored.Parameters["START_DATE"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Beginning", start["label"], "existing descriptor should survive")
	assert.Contains(t, stored.Parameters, "END_DATE")
	assert.Contains(t, stored.Parameters, "TABLE_NAME")
}

func TestUpdateSQLSurvivesReconversion(t *testing.T) {
	f := newReportFixture(t)
	f.writeMarkdown(t, "daily_volume", volumeTemplate)
	require.NoError(t, f.reports.Upsert(context.Background(), &models.Report{
		ReportName:  "daily_volume",
		DisplayName: "Daily Volume",
		IsActive:    true,
	}))

	err := f.svc.UpdateSQL(context.Background(), "daily_volume",
		"SELECT COUNT(*) FROM {TABLE_NAME} WHERE created_at >= '{START_DATE}' LIMIT 10")
	require.NoError(t, err)

	// The markdown source is the converter's input, so the edit must
	// land there too or the next conversion reverts it.
	loader := sqlpkg.Loader{ScriptsDir: f.dir}
	source, err := loader.ReadMarkdownSource("daily_volume")
	require.NoError(t, err)
	assert.Contains(t, source, "LIMIT 10")
	assert.Contains(t, source, "# Daily Volume", "title survives the rewrite")
	assert.Contains(t, source, "Messages per day.", "description survives the rewrite")

	converter := sqlpkg.Converter{Loader: loader, Logger: zap.NewNop()}
	_, err = converter.ConvertAll()
	require.NoError(t, err)

	body, err := f.svc.RawSQL(context.Background(), "daily_volume")
	require.NoError(t, err)
	assert.Contains(t, body, "LIMIT 10", "edit survives re-deriving from markdown")
}

func TestUpdateSQLUnregisteredReport(t *testing.T) {
	f := newReportFixture(t)
	f.writeMarkdown(t, "daily_volume", volumeTemplate)

	err := f.svc.UpdateSQL(context.Background(), "daily_volume", "SELECT 1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteRemovesRegistrationOnly(t *testing.T) {
	f := newReportFixture(t)
	f.writeMarkdown(t, "daily_volume", volumeTemplate)
	require.NoError(t, f.reports.Upsert(context.Background(), &models.Report{
		ReportName: "daily_volume", DisplayName: "Daily Volume", IsActive: true,
	}))

	require.NoError(t, f.svc.Delete(context.Background(), "daily_volume"))

	catalog, _, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.False(t, catalog[0].IsRegistered, "report should reappear as unregistered")
}
