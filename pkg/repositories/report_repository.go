package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knowhy-io/knowhy-engine/pkg/apperrors"
	"github.com/knowhy-io/knowhy-engine/pkg/database"
	"github.com/knowhy-io/knowhy-engine/pkg/jsonutil"
	"github.com/knowhy-io/knowhy-engine/pkg/models"
)

// ReportRepository provides data access for a tenant's reports table.
type ReportRepository interface {
	// Upsert registers a report, updating metadata when the name exists.
	Upsert(ctx context.Context, report *models.Report) error

	// GetByName returns the registered report with the given name.
	GetByName(ctx context.Context, reportName string) (*models.Report, error)

	// List returns all registered reports ordered by display name.
	List(ctx context.Context) ([]*models.Report, error)

	// SetActive toggles a report's active flag.
	SetActive(ctx context.Context, reportName string, active bool) error

	// Delete removes a report registration.
	Delete(ctx context.Context, reportName string) error
}

type reportRepository struct {
	pool   *pgxpool.Pool
	tables database.SystemTables
}

// NewReportRepository creates a ReportRepository for the given tenant tables.
func NewReportRepository(pool *pgxpool.Pool, tables database.SystemTables) ReportRepository {
	return &reportRepository{pool: pool, tables: tables}
}

var _ ReportRepository = (*reportRepository)(nil)

func (r *reportRepository) Upsert(ctx context.Context, report *models.Report) error {
	params := report.Parameters
	if params == nil {
		params = map[string]any{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (report_name, display_name, description, category, parameters, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (report_name) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			parameters = EXCLUDED.parameters,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`, r.tables.Reports())

	err = r.pool.QueryRow(ctx, query,
		report.ReportName, report.DisplayName, report.Description,
		report.Category, paramsJSON, report.IsActive,
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert report: %w", err)
	}
	return nil
}

func (r *reportRepository) GetByName(ctx context.Context, reportName string) (*models.Report, error) {
	query := fmt.Sprintf(`
		SELECT id, report_name, display_name, description, category, parameters::text, is_active, created_at, updated_at
		FROM %s WHERE report_name = $1`, r.tables.Reports())

	report, err := scanReport(r.pool.QueryRow(ctx, query, reportName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("report %q: %w", reportName, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

func (r *reportRepository) List(ctx context.Context) ([]*models.Report, error) {
	query := fmt.Sprintf(`
		SELECT id, report_name, display_name, description, category, parameters::text, is_active, created_at, updated_at
		FROM %s ORDER BY display_name`, r.tables.Reports())

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*models.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (r *reportRepository) SetActive(ctx context.Context, reportName string, active bool) error {
	query := fmt.Sprintf(
		"UPDATE %s SET is_active = $1, updated_at = NOW() WHERE report_name = $2",
		r.tables.Reports())

	tag, err := r.pool.Exec(ctx, query, active, reportName)
	if err != nil {
		return fmt.Errorf("failed to toggle report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("report %q: %w", reportName, apperrors.ErrNotFound)
	}
	return nil
}

func (r *reportRepository) Delete(ctx context.Context, reportName string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE report_name = $1", r.tables.Reports())

	tag, err := r.pool.Exec(ctx, query, reportName)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("report %q: %w", reportName, apperrors.ErrNotFound)
	}
	return nil
}

func scanReport(row pgx.Row) (*models.Report, error) {
	var rep models.Report
	var paramsText string
	err := row.Scan(&rep.ID, &rep.ReportName, &rep.DisplayName, &rep.Description,
		&rep.Category, &paramsText, &rep.IsActive, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return nil, err
	}
	// Malformed metadata degrades to an empty map rather than failing reads.
	rep.Parameters = jsonutil.ParameterMapFromString(paramsText)
	return &rep, nil
}
