package handlers

import (
	"context"
	"fmt"

	"github.com/knowhy-io/knowhy-engine/pkg/apperrors"
	"github.com/knowhy-io/knowhy-engine/pkg/auth"
	"github.com/knowhy-io/knowhy-engine/pkg/database"
	"github.com/knowhy-io/knowhy-engine/pkg/models"
	"github.com/knowhy-io/knowhy-engine/pkg/services"
)

// fakeReportService is a scriptable services.ReportService.
type fakeReportService struct {
	catalog   []*models.CatalogEntry
	warnings  []string
	runResult *services.RunResult
	runErr    error
	lastRun   string
	lastParam map[string]string
}

var _ services.ReportService = (*fakeReportService)(nil)

func (f *fakeReportService) List(_ context.Context) ([]*models.CatalogEntry, []string, error) {
	return f.catalog, f.warnings, nil
}

func (f *fakeReportService) Run(_ context.Context, name string, params map[string]string) (*services.RunResult, error) {
	f.lastRun = name
	f.lastParam = params
	if f.runErr != nil {
		return nil, f.runErr
	}
	if f.runResult != nil {
		return f.runResult, nil
	}
	return &services.RunResult{
		ReportName: name,
		Parameters: params,
		Result:     &database.QueryResult{Columns: []string{}, Rows: []map[string]any{}},
	}, nil
}

func (f *fakeReportService) Detail(_ context.Context, name string) (*services.ReportDetail, error) {
	for _, e := range f.catalog {
		if e.ReportName == name {
			return &services.ReportDetail{ReportName: name, IsRegistered: e.IsRegistered}, nil
		}
	}
	return nil, fmt.Errorf("report %q: %w", name, apperrors.ErrNotFound)
}

func (f *fakeReportService) RawSQL(_ context.Context, name string) (string, error) {
	return "SELECT 1", nil
}

func (f *fakeReportService) Register(_ context.Context, report *models.Report) error { return nil }

func (f *fakeReportService) Create(_ context.Context, report *models.Report, sqlBody string) error {
	return nil
}

func (f *fakeReportService) UpdateSQL(_ context.Context, name, sqlBody string) error { return nil }

func (f *fakeReportService) SetActive(_ context.Context, name string, active bool) error {
	return nil
}

func (f *fakeReportService) Delete(_ context.Context, name string) error { return nil }

// fakeAuthService is a scriptable services.AuthService.
type fakeAuthService struct {
	loginResult *services.LoginResult
	loginErr    error
	user        *models.User
}

var _ services.AuthService = (*fakeAuthService)(nil)

func (f *fakeAuthService) Login(_ context.Context, username, password string) (*services.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginResult, nil
}

func (f *fakeAuthService) Refresh(_ context.Context, claims *auth.Claims) (string, error) {
	return "refreshed-token", nil
}

func (f *fakeAuthService) Me(_ context.Context, claims *auth.Claims) (*models.User, error) {
	if f.user == nil {
		return nil, apperrors.ErrNotFound
	}
	return f.user, nil
}

func (f *fakeAuthService) ChangePassword(_ context.Context, _ *auth.Claims, _, _ string) error {
	return nil
}
