package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/knowhy-io/knowhy-engine/pkg/apperrors"
	secaudit "github.com/knowhy-io/knowhy-engine/pkg/audit"
	"github.com/knowhy-io/knowhy-engine/pkg/auth"
	"github.com/knowhy-io/knowhy-engine/pkg/database"
	"github.com/knowhy-io/knowhy-engine/pkg/models"
	"github.com/knowhy-io/knowhy-engine/pkg/repositories"
	sqlpkg "github.com/knowhy-io/knowhy-engine/pkg/sql"
)

// RunResult holds the outcome of executing a report.
type RunResult struct {
	ReportName string                `json:"report_name"`
	Parameters map[string]string     `json:"parameters"`
	Result     *database.QueryResult `json:"result"`
}

// ReportDetail combines a report's registration, template placeholders and
// the resolved default value for each placeholder.
type ReportDetail struct {
	Report       *models.Report    `json:"report,omitempty"`
	ReportName   string            `json:"report_name"`
	IsRegistered bool              `json:"is_registered"`
	Placeholders []string          `json:"placeholders"`
	Defaults     map[string]string `json:"defaults"`
}

// ReportService is the reporting core: it reconciles the report catalog,
// renders templates and executes them against the warehouse.
type ReportService interface {
	// List returns the merged catalog of registered reports and disk
	// templates. Catalog assembly is best-effort: per-source failures
	// are returned as warnings alongside whatever could be listed.
	List(ctx context.Context) ([]*models.CatalogEntry, []string, error)

	// Run renders and executes a report with caller-supplied parameter
	// values layered over resolved defaults.
	Run(ctx context.Context, reportName string, params map[string]string) (*RunResult, error)

	// Detail returns a report's registration and template parameters.
	Detail(ctx context.Context, reportName string) (*ReportDetail, error)

	// RawSQL returns the SQL body the engine would execute defaults for.
	RawSQL(ctx context.Context, reportName string) (string, error)

	// Register upserts a report's catalog registration, inferring
	// parameter metadata from the template when none is supplied.
	Register(ctx context.Context, report *models.Report) error

	// Create writes a new markdown template and registers it.
	Create(ctx context.Context, report *models.Report, sqlBody string) error

	// UpdateSQL rewrites a registered report's markdown source and
	// derived SQL file and refreshes its registered parameter metadata,
	// preserving descriptors for placeholders that survive the edit.
	// Unregistered reports return ErrNotFound.
	UpdateSQL(ctx context.Context, reportName, sqlBody string) error

	// SetActive toggles a registered report.
	SetActive(ctx context.Context, reportName string, active bool) error

	// Delete removes a report's registration. Template files stay on
	// disk so the report reappears as unregistered.
	Delete(ctx context.Context, reportName string) error
}

type reportService struct {
	reports  repositories.ReportRepository
	configs  repositories.ConfigRepository
	loader   sqlpkg.Loader
	executor database.Executor
	audit    AuditService
	security *secaudit.SecurityAuditor
	logger   *zap.Logger
}

// NewReportService creates a ReportService with dependencies.
func NewReportService(
	reports repositories.ReportRepository,
	configs repositories.ConfigRepository,
	loader sqlpkg.Loader,
	executor database.Executor,
	audit AuditService,
	security *secaudit.SecurityAuditor,
	logger *zap.Logger,
) ReportService {
	return &reportService{
		reports:  reports,
		configs:  configs,
		loader:   loader,
		executor: executor,
		audit:    audit,
		security: security,
		logger:   logger,
	}
}

var _ ReportService = (*reportService)(nil)

func (s *reportService) List(ctx context.Context) ([]*models.CatalogEntry, []string, error) {
	warnings := make([]string, 0)
	entries := make(map[string]*models.CatalogEntry)

	registered, err := s.reports.List(ctx)
	if err != nil {
		s.logger.Warn("Failed to list registered reports, continuing with disk templates", zap.Error(err))
		warnings = append(warnings, fmt.Sprintf("registered reports unavailable: %v", err))
	}
	for _, rep := range registered {
		entries[rep.ReportName] = &models.CatalogEntry{
			ReportName:   rep.ReportName,
			DisplayName:  rep.DisplayName,
			Description:  rep.Description,
			Category:     rep.Category,
			Parameters:   rep.Parameters,
			IsActive:     rep.IsActive,
			IsRegistered: true,
		}
	}

	names, err := s.loader.ListMarkdownReports()
	if err != nil {
		s.logger.Warn("Failed to scan template directory", zap.Error(err))
		warnings = append(warnings, fmt.Sprintf("template directory unavailable: %v", err))
	}
	for _, name := range names {
		if _, ok := entries[name]; ok {
			continue
		}
		entry, err := s.diskEntry(ctx, name)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("template %s unreadable: %v", name, err))
			continue
		}
		entries[name] = entry
	}

	catalog := make([]*models.CatalogEntry, 0, len(entries))
	for _, entry := range entries {
		catalog = append(catalog, entry)
	}
	sort.SliceStable(catalog, func(i, j int) bool {
		if catalog[i].DisplayName != catalog[j].DisplayName {
			return catalog[i].DisplayName < catalog[j].DisplayName
		}
		return catalog[i].ReportName < catalog[j].ReportName
	})
	return catalog, warnings, nil
}

// diskEntry builds a catalog entry for a template that exists only on disk.
func (s *reportService) diskEntry(ctx context.Context, name string) (*models.CatalogEntry, error) {
	source, err := s.loader.ReadMarkdownSource(name)
	if err != nil {
		return nil, err
	}
	meta := sqlpkg.ExtractMeta(source, sqlpkg.HumanizeLabel(name))

	body := sqlpkg.NormalizeBody(sqlpkg.ExtractSQLBody(source))
	defaults, err := s.templateDefaults(ctx)
	if err != nil {
		return nil, err
	}
	params := inferParameters(sqlpkg.ExtractPlaceholders(body), defaults, nil)

	return &models.CatalogEntry{
		ReportName:   name,
		DisplayName:  meta.Title,
		Description:  meta.Description,
		Category:     "general",
		Parameters:   params,
		IsActive:     true,
		IsRegistered: false,
	}, nil
}

func (s *reportService) Run(ctx context.Context, reportName string, params map[string]string) (*RunResult, error) {
	body, err := s.loader.Load(reportName)
	if err != nil {
		return nil, err
	}

	placeholders := sqlpkg.ExtractPlaceholders(body)
	defaults, err := s.templateDefaults(ctx)
	if err != nil {
		return nil, err
	}
	values := defaults.ResolveAll(placeholders)

	// Caller values override defaults; keys outside the template's
	// placeholder set are ignored. Only caller-supplied values are
	// screened: resolved defaults are engine-owned SQL fragments.
	callerValues := make(map[string]string)
	for _, name := range placeholders {
		if v, ok := params[name]; ok {
			callerValues[name] = v
		}
	}
	if findings := sqlpkg.ScreenValues(callerValues); len(findings) > 0 {
		username, _ := auth.UsernameFromContext(ctx)
		for _, f := range findings {
			s.security.LogInjectionAttempt(username, secaudit.SQLInjectionDetails{
				ReportName:  reportName,
				ParamName:   f.ParamName,
				ParamValue:  f.ParamValue,
				Fingerprint: f.Fingerprint,
			})
		}
		return nil, fmt.Errorf("parameter %s: %w", findings[0].ParamName, apperrors.ErrInjectionDetected)
	}
	for name, v := range callerValues {
		values[name] = v
	}

	rendered := sqlpkg.Render(body, values)
	result, err := s.executor.Query(ctx, rendered)
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", reportName, err)
	}

	s.audit.Record(ctx, nil, models.ActionRunReport, reportName)
	return &RunResult{
		ReportName: reportName,
		Parameters: values,
		Result:     result,
	}, nil
}

func (s *reportService) Detail(ctx context.Context, reportName string) (*ReportDetail, error) {
	body, err := s.loader.Load(reportName)
	if err != nil {
		return nil, err
	}

	placeholders := sqlpkg.ExtractPlaceholders(body)
	defaults, err := s.templateDefaults(ctx)
	if err != nil {
		return nil, err
	}

	detail := &ReportDetail{
		ReportName:   reportName,
		Placeholders: placeholders,
		Defaults:     defaults.ResolveAll(placeholders),
	}

	report, err := s.reports.GetByName(ctx, reportName)
	switch {
	case err == nil:
		detail.Report = report
		detail.IsRegistered = true
	case errors.Is(err, apperrors.ErrNotFound):
		// Disk-only template.
	default:
		return nil, err
	}
	return detail, nil
}

func (s *reportService) RawSQL(ctx context.Context, reportName string) (string, error) {
	return s.loader.Load(reportName)
}

func (s *reportService) Register(ctx context.Context, report *models.Report) error {
	if len(report.Parameters) == 0 {
		body, err := s.loader.Load(report.ReportName)
		if err != nil {
			return err
		}
		defaults, err := s.templateDefaults(ctx)
		if err != nil {
			return err
		}
		report.Parameters = inferParameters(sqlpkg.ExtractPlaceholders(body), defaults, nil)
	}
	if report.DisplayName == "" {
		report.DisplayName = sqlpkg.HumanizeLabel(report.ReportName)
	}
	if report.Category == "" {
		report.Category = "general"
	}
	if err := s.reports.Upsert(ctx, report); err != nil {
		return err
	}
	s.audit.Record(ctx, nil, models.ActionCreateReport, report.ReportName)
	return nil
}

func (s *reportService) Create(ctx context.Context, report *models.Report, sqlBody string) error {
	if report.ReportName == "" {
		return fmt.Errorf("report name is required")
	}
	if strings.TrimSpace(sqlBody) == "" {
		return fmt.Errorf("sql body is required")
	}
	if _, err := s.loader.Locate(report.ReportName); err == nil {
		return fmt.Errorf("report %q: %w", report.ReportName, apperrors.ErrConflict)
	}

	if report.DisplayName == "" {
		report.DisplayName = sqlpkg.HumanizeLabel(report.ReportName)
	}

	source := fmt.Sprintf("# %s\n\n%s\n\n```sql\n%s\n```\n",
		report.DisplayName, report.Description, strings.TrimSpace(sqlBody))
	path := filepath.Join(s.loader.ScriptsDir, report.ReportName+".md")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}

	return s.Register(ctx, report)
}

func (s *reportService) UpdateSQL(ctx context.Context, reportName, sqlBody string) error {
	if strings.TrimSpace(sqlBody) == "" {
		return fmt.Errorf("sql body is required")
	}

	report, err := s.reports.GetByName(ctx, reportName)
	if err != nil {
		return err
	}

	body := strings.TrimSpace(sqlBody)

	// Rewrite the markdown source first. The converter regenerates
	// derived files from markdown on every run, so an edit written only
	// to the derived file would be reverted at the next conversion.
	title := report.DisplayName
	description := report.Description
	if source, srcErr := s.loader.ReadMarkdownSource(reportName); srcErr == nil {
		meta := sqlpkg.ExtractMeta(source, title)
		title = meta.Title
		description = meta.Description
	}
	if title == "" {
		title = sqlpkg.HumanizeLabel(reportName)
	}
	source := fmt.Sprintf("# %s\n\n%s\n\n```sql\n%s\n```\n", title, description, body)
	mdPath := filepath.Join(s.loader.ScriptsDir, reportName+".md")
	if err := os.WriteFile(mdPath, []byte(source), 0o644); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}

	if err := os.MkdirAll(s.loader.DerivedDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create derived directory: %w", err)
	}
	path := filepath.Join(s.loader.DerivedDir(), reportName+".sql")
	if err := os.WriteFile(path, []byte(body+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}

	// Refresh registered parameter metadata against the new body.
	defaults, derr := s.templateDefaults(ctx)
	if derr != nil {
		return derr
	}
	report.Parameters = inferParameters(
		sqlpkg.ExtractPlaceholders(sqlpkg.NormalizeBody(sqlBody)), defaults, report.Parameters)
	if err := s.reports.Upsert(ctx, report); err != nil {
		return err
	}
	s.audit.Record(ctx, nil, models.ActionUpdateReport, reportName)
	return nil
}

func (s *reportService) SetActive(ctx context.Context, reportName string, active bool) error {
	return s.reports.SetActive(ctx, reportName, active)
}

func (s *reportService) Delete(ctx context.Context, reportName string) error {
	if err := s.reports.Delete(ctx, reportName); err != nil {
		return err
	}
	s.audit.Record(ctx, nil, models.ActionDeleteReport, reportName)
	return nil
}

// templateDefaults builds the default-value resolver with the tenant's
// configured data table.
func (s *reportService) templateDefaults(ctx context.Context) (sqlpkg.Defaults, error) {
	tableName, err := s.configs.GetOrDefault(ctx, repositories.ConfigKeyTableName, sqlpkg.FallbackTableName)
	if err != nil {
		return sqlpkg.Defaults{}, err
	}
	return sqlpkg.Defaults{TableName: tableName}, nil
}

// inferParameters builds parameter metadata for a set of placeholders.
// Existing descriptors are preserved for placeholders that survive; new
// placeholders get a type inferred from their name and the engine default.
func inferParameters(placeholders []string, defaults sqlpkg.Defaults, existing map[string]any) map[string]any {
	params := make(map[string]any, len(placeholders))
	for _, name := range placeholders {
		if prev, ok := existing[name]; ok {
			params[name] = prev
			continue
		}
		paramType := "string"
		if strings.Contains(name, "DATE") {
			paramType = "date"
		}
		params[name] = map[string]any{
			"type":    paramType,
			"default": defaults.For(name),
		}
	}
	return params
}
