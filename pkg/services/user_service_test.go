package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/knowhy-io/knowhy-engine/pkg/apperrors"
	"github.com/knowhy-io/knowhy-engine/pkg/auth"
	"github.com/knowhy-io/knowhy-engine/pkg/models"
)

func newUserFixture(t *testing.T) (UserService, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo()
	return NewUserService(repo, zap.NewNop()), repo
}

func TestUserCreateValidation(t *testing.T) {
	svc, _ := newUserFixture(t)

	_, err := svc.Create(context.Background(), "", "s3cret1", "", models.RoleUser)
	assert.Error(t, err)

	_, err = svc.Create(context.Background(), "alice", "ab", "", models.RoleUser)
	assert.Error(t, err)

	_, err = svc.Create(context.Background(), "alice", "s3cret1", "", "superuser")
	assert.Error(t, err)

	user, err := svc.Create(context.Background(), "alice", "s3cret1", "a@example.com", models.RoleUser)
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "s3cret1", user.PasswordHash)

	_, err = svc.Create(context.Background(), "alice", "s3cret1", "", models.RoleUser)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUserUpdateProtectsLastAdmin(t *testing.T) {
	svc, _ := newUserFixture(t)

	admin, err := svc.Create(context.Background(), "root", "s3cret1", "", models.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), admin.ID, "", models.RoleUser, true)
	assert.ErrorIs(t, err, apperrors.ErrLastAdmin)

	_, err = svc.Update(context.Background(), admin.ID, "", models.RoleAdmin, false)
	assert.ErrorIs(t, err, apperrors.ErrLastAdmin)

	// A second admin unblocks the demotion.
	_, err = svc.Create(context.Background(), "root2", "s3cret1", "", models.RoleAdmin)
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), admin.ID, "", models.RoleUser, true)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, updated.Role)
}

func TestUserDeleteProtectsLastAdmin(t *testing.T) {
	svc, repo := newUserFixture(t)

	admin, err := svc.Create(context.Background(), "root", "s3cret1", "", models.RoleAdmin)
	require.NoError(t, err)
	user, err := svc.Create(context.Background(), "alice", "s3cret1", "", models.RoleUser)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(context.Background(), admin.ID), apperrors.ErrLastAdmin)
	require.NoError(t, svc.Delete(context.Background(), user.ID))

	remaining, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestUserDeleteRejectsSelf(t *testing.T) {
	svc, _ := newUserFixture(t)

	_, err := svc.Create(context.Background(), "root", "s3cret1", "", models.RoleAdmin)
	require.NoError(t, err)
	admin2, err := svc.Create(context.Background(), "root2", "s3cret1", "", models.RoleAdmin)
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), auth.ClaimsKey, &auth.Claims{
		Username: "root2",
		Role:     models.RoleAdmin,
	})
	assert.ErrorIs(t, svc.Delete(ctx, admin2.ID), apperrors.ErrConflict)

	// A different admin may delete the account.
	otherCtx := context.WithValue(context.Background(), auth.ClaimsKey, &auth.Claims{
		Username: "root",
		Role:     models.RoleAdmin,
	})
	require.NoError(t, svc.Delete(otherCtx, admin2.ID))
}
