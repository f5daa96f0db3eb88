package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/knowhy-io/knowhy-engine/pkg/apperrors"
	"github.com/knowhy-io/knowhy-engine/pkg/database"
	"github.com/knowhy-io/knowhy-engine/pkg/models"
)

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	users  map[int64]*models.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*models.User), nextID: 1}
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	for _, u := range f.users {
		if u.Username == user.Username {
			return fmt.Errorf("username %q: %w", user.Username, apperrors.ErrConflict)
		}
	}
	user.ID = f.nextID
	f.nextID++
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, apperrors.ErrNotFound)
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, apperrors.ErrNotFound)
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserRepo) List(_ context.Context) ([]*models.User, error) {
	out := make([]*models.User, 0, len(f.users))
	for _, u := range f.users {
		clone := *u
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	u, ok := f.users[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	u, ok := f.users[user.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.Email, u.Role, u.IsActive = user.Email, user.Role, user.IsActive
	return nil
}

func (f *fakeUserRepo) TouchLastLogin(_ context.Context, _ int64) error { return nil }

func (f *fakeUserRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) CountAdmins(_ context.Context) (int, error) {
	count := 0
	for _, u := range f.users {
		if u.Role == models.RoleAdmin && u.IsActive {
			count++
		}
	}
	return count, nil
}

// fakeConfigRepo is an in-memory ConfigRepository.
type fakeConfigRepo struct {
	values map[string]string
	err    error
}

func newFakeConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{values: make(map[string]string)}
}

func (f *fakeConfigRepo) Get(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.values[key]
	if !ok {
		return "", fmt.Errorf("config key %q: %w", key, apperrors.ErrNotFound)
	}
	return v, nil
}

func (f *fakeConfigRepo) GetOrDefault(ctx context.Context, key, fallback string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return fallback, nil
}

func (f *fakeConfigRepo) Set(_ context.Context, key, value string) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] = value
	return nil
}

func (f *fakeConfigRepo) All(_ context.Context) (map[string]string, error) {
	return f.values, f.err
}

// fakeReportRepo is an in-memory ReportRepository.
type fakeReportRepo struct {
	reports map[string]*models.Report
	listErr error
	nextID  int64
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[string]*models.Report), nextID: 1}
}

func (f *fakeReportRepo) Upsert(_ context.Context, report *models.Report) error {
	if existing, ok := f.reports[report.ReportName]; ok {
		report.ID = existing.ID
	} else {
		report.ID = f.nextID
		f.nextID++
	}
	clone := *report
	f.reports[report.ReportName] = &clone
	return nil
}

func (f *fakeReportRepo) GetByName(_ context.Context, name string) (*models.Report, error) {
	r, ok := f.reports[name]
	if !ok {
		return nil, fmt.Errorf("report %q: %w", name, apperrors.ErrNotFound)
	}
	clone := *r
	return &clone, nil
}

func (f *fakeReportRepo) List(_ context.Context) ([]*models.Report, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.Report, 0, len(f.reports))
	for _, r := range f.reports {
		clone := *r
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}

func (f *fakeReportRepo) SetActive(_ context.Context, name string, active bool) error {
	r, ok := f.reports[name]
	if !ok {
		return apperrors.ErrNotFound
	}
	r.IsActive = active
	return nil
}

func (f *fakeReportRepo) Delete(_ context.Context, name string) error {
	if _, ok := f.reports[name]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.reports, name)
	return nil
}

// fakeExecutor records the SQL it was asked to run.
type fakeExecutor struct {
	lastSQL string
	result  *database.QueryResult
	err     error
}

func (f *fakeExecutor) Query(_ context.Context, sqlQuery string) (*database.QueryResult, error) {
	f.lastSQL = sqlQuery
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &database.QueryResult{Columns: []string{}, Rows: []map[string]any{}}, nil
}

// fakeAudit records audit actions.
type fakeAudit struct {
	actions []string
}

func (f *fakeAudit) Record(_ context.Context, _ *int64, action, _ string) {
	f.actions = append(f.actions, action)
}

func (f *fakeAudit) List(_ context.Context, _, _ int) ([]*models.AuditLog, error) {
	return nil, nil
}

// fakeSetup reports a fixed setup state.
type fakeSetup struct {
	done bool
}

func (f *fakeSetup) IsSetupDone(_ context.Context) (bool, error) { return f.done, nil }
func (f *fakeSetup) Status(_ context.Context) (*SetupStatus, error) {
	return &SetupStatus{SetupDone: f.done}, nil
}
func (f *fakeSetup) Run(_ context.Context, _ *SetupRequest) error { return nil }
func (f *fakeSetup) Reset(_ context.Context) error                { return nil }
