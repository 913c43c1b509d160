package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"keeper/internal/database/dbtest"
	"keeper/internal/models"
	"keeper/internal/rbac"
	apperrors "keeper/pkg/errors"
	"keeper/pkg/jwt"
	"keeper/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seededUsers() []rbac.SeedUser {
	return []rbac.SeedUser{
		{Email: "admin@email.com", StudentID: "ADMIN001", Name: "System Administrator", Password: "Admin1234!", Status: models.UserStatusActive, RoleName: models.RoleAdmin},
		{Email: "user@email.com", StudentID: "USER001", Name: "Member User", Password: "User1234!", Status: models.UserStatusActive, RoleName: models.RoleMember},
		{Email: "applicant@email.com", StudentID: "APPLY001", Name: "Applicant", Password: "Apply1234!", Status: models.UserStatusPendingApproval, RoleName: models.RoleNonMember},
	}
}

func newUserService(t *testing.T) (*UserService, *rbac.Store, *jwt.Manager, *gorm.DB) {
	t.Helper()
	db := dbtest.New(t)
	store := rbac.NewStore(db, rbac.DefaultCatalog())
	require.NoError(t, rbac.NewBootstrapper(store, rbac.DefaultRoles(), seededUsers(), nil).Run(context.Background()))
	tokens := jwt.NewManager("service-test-secret", time.Hour)
	return NewUserService(db, store, tokens), store, tokens, db
}

func TestLoginIssuesTokenForActiveUser(t *testing.T) {
	svc, store, tokens, _ := newUserService(t)
	member, ok := store.RoleByName(models.RoleMember)
	require.True(t, ok)

	res, err := svc.Login(context.Background(), " User@Email.com ", "User1234!")
	require.NoError(t, err)
	assert.Equal(t, "user@email.com", res.User.Email)
	assert.True(t, res.ExpiresAt.After(time.Now()))

	claims, err := tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, member.ID, claims.RoleID)
}

func TestLoginFailures(t *testing.T) {
	svc, _, _, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "nobody@email.com", "whatever1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "admin@email.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// 待审核用户密码正确也不能登录
	_, err = svc.Login(ctx, "applicant@email.com", "Apply1234!")
	assert.ErrorIs(t, err, ErrUserNotActive)
}

func TestRegisterCreatesPendingUserOnDefaultRole(t *testing.T) {
	svc, store, _, _ := newUserService(t)
	ctx := context.Background()
	nonMember, ok := store.RoleByName(rbac.DefaultRoleName)
	require.True(t, ok)

	user, err := svc.Register(ctx, RegisterParams{
		Email:     "New@Email.com",
		StudentID: "20260001",
		Password:  "Secret123!",
		Name:      "New Student",
		Major:     "Computer Science",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@email.com", user.Email)
	assert.Equal(t, models.UserStatusPendingApproval, user.Status)
	assert.Equal(t, nonMember.ID, user.RoleID)
	assert.NotEqual(t, "Secret123!", user.PasswordHash)

	stored, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.CheckPassword("Secret123!"))

	_, err = svc.Login(ctx, "new@email.com", "Secret123!")
	assert.ErrorIs(t, err, ErrUserNotActive)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _, _, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{Email: "admin@email.com", StudentID: "X1", Password: "Secret123!", Name: "Dup"})
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = svc.Register(ctx, RegisterParams{Email: "fresh@email.com", StudentID: "USER001", Password: "Secret123!", Name: "Dup"})
	assert.ErrorIs(t, err, ErrStudentIDExists)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newUserService(t)
	ctx := context.Background()

	cases := []RegisterParams{
		{Email: "not-an-email", StudentID: "1", Password: "Secret123!", Name: "A"},
		{Email: "a@email.com", StudentID: "", Password: "Secret123!", Name: "A"},
		{Email: "a@email.com", StudentID: "1", Password: "short", Name: "A"},
		{Email: "a@email.com", StudentID: "1", Password: "Secret123!", Name: " "},
	}
	for _, p := range cases {
		_, err := svc.Register(ctx, p)
		assert.ErrorIs(t, err, ErrInvalidParams, "%+v", p)
	}
}

func TestRegisterRecreatesMissingDefaultRole(t *testing.T) {
	db := dbtest.New(t)
	store := rbac.NewStore(db, rbac.DefaultCatalog())
	svc := NewUserService(db, store, jwt.NewManager("secret", time.Hour))

	user, err := svc.Register(context.Background(), RegisterParams{Email: "a@email.com", StudentID: "1", Password: "Secret123!", Name: "A"})
	require.NoError(t, err)

	role, ok := store.RoleByName(rbac.DefaultRoleName)
	require.True(t, ok)
	assert.Equal(t, role.ID, user.RoleID)
}

type brokenResolver struct{}

func (brokenResolver) FindOrCreateDefaultRole(context.Context, string) (uint, error) {
	return 0, &apperrors.ConfigurationError{Op: "resolve default role", Err: errors.New("database unavailable")}
}

func (brokenResolver) Role(uint) (rbac.RoleView, bool) { return rbac.RoleView{}, false }

func (brokenResolver) RoleByName(string) (rbac.RoleView, bool) { return rbac.RoleView{}, false }

func (brokenResolver) Has(uint, string) bool { return false }

func TestRegisterSurfacesConfigurationError(t *testing.T) {
	db := dbtest.New(t)
	svc := NewUserService(db, brokenResolver{}, jwt.NewManager("secret", time.Hour))

	_, err := svc.Register(context.Background(), RegisterParams{Email: "a@email.com", StudentID: "1", Password: "Secret123!", Name: "A"})
	assert.True(t, apperrors.IsConfigurationError(err))

	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestApproveActivatesPendingUser(t *testing.T) {
	svc, store, _, db := newUserService(t)
	ctx := context.Background()
	member, _ := store.RoleByName(models.RoleMember)
	admin, _ := store.RoleByName(models.RoleAdmin)

	pending, page, err := svc.ListPending(ctx, pagination.PageParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, "applicant@email.com", pending[0].Email)

	user, err := svc.Approve(ctx, ApproveParams{ActorID: 1, ActorRoleID: admin.ID, UserID: pending[0].ID})
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, user.Status)
	assert.Equal(t, member.ID, user.RoleID)

	res, err := svc.Login(ctx, "applicant@email.com", "Apply1234!")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	_, err = svc.Approve(ctx, ApproveParams{ActorID: 1, ActorRoleID: admin.ID, UserID: pending[0].ID})
	assert.ErrorIs(t, err, ErrUserNotPending)

	_, err = svc.Approve(ctx, ApproveParams{ActorID: 1, ActorRoleID: admin.ID, UserID: 9999})
	assert.ErrorIs(t, err, ErrUserNotFound)

	var n int64
	require.NoError(t, db.Model(&models.User{}).Where("status = ?", models.UserStatusPendingApproval).Count(&n).Error)
	assert.Zero(t, n)
}

func TestApproveWithRoleRequiresTransferRole(t *testing.T) {
	svc, store, _, _ := newUserService(t)
	ctx := context.Background()
	admin, _ := store.RoleByName(models.RoleAdmin)
	member, _ := store.RoleByName(models.RoleMember)

	reviewer, err := store.CreateRole(ctx, 1, "reviewer", "", []string{"approve_users"})
	require.NoError(t, err)

	pending, _, err := svc.ListPending(ctx, pagination.PageParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	id := pending[0].ID

	_, err = svc.Approve(ctx, ApproveParams{ActorID: 2, ActorRoleID: reviewer.ID, UserID: id, RoleName: models.RoleAdmin})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	// 未知角色同样先校验权限
	_, err = svc.Approve(ctx, ApproveParams{ActorID: 2, ActorRoleID: reviewer.ID, UserID: id, RoleName: "no-such-role"})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	still, err := svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusPendingApproval, still.Status)

	user, err := svc.Approve(ctx, ApproveParams{ActorID: 2, ActorRoleID: reviewer.ID, UserID: id, RoleName: models.RoleMember})
	require.NoError(t, err)
	assert.Equal(t, member.ID, user.RoleID)

	other, err := svc.Register(ctx, RegisterParams{Email: "o@email.com", StudentID: "O1", Password: "Secret123!", Name: "O"})
	require.NoError(t, err)
	promoted, err := svc.Approve(ctx, ApproveParams{ActorID: 1, ActorRoleID: admin.ID, UserID: other.ID, RoleName: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, promoted.RoleID)
}

func TestRejectAndUnknownRole(t *testing.T) {
	svc, store, _, _ := newUserService(t)
	ctx := context.Background()
	admin, _ := store.RoleByName(models.RoleAdmin)

	user, err := svc.Register(ctx, RegisterParams{Email: "r@email.com", StudentID: "R1", Password: "Secret123!", Name: "R"})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, ApproveParams{ActorID: 1, ActorRoleID: admin.ID, UserID: user.ID, RoleName: "no-such-role"})
	assert.ErrorIs(t, err, ErrRoleUnknown)

	rejected, err := svc.Reject(ctx, 1, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusInactive, rejected.Status)

	_, err = svc.Login(ctx, "r@email.com", "Secret123!")
	assert.ErrorIs(t, err, ErrUserNotActive)
}

func TestAssignRole(t *testing.T) {
	svc, store, tokens, _ := newUserService(t)
	ctx := context.Background()
	admin, _ := store.RoleByName(models.RoleAdmin)

	res, err := svc.Login(ctx, "user@email.com", "User1234!")
	require.NoError(t, err)

	updated, err := svc.AssignRole(ctx, 1, res.User.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, updated.RoleID)

	// 新令牌才携带新角色
	old, err := tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.NotEqual(t, admin.ID, old.RoleID)
	fresh, err := svc.Login(ctx, "user@email.com", "User1234!")
	require.NoError(t, err)
	claims, err := tokens.Verify(fresh.Token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.RoleID)

	_, err = svc.AssignRole(ctx, 1, res.User.ID, 9999)
	assert.ErrorIs(t, err, ErrRoleUnknown)
	_, err = svc.AssignRole(ctx, 1, 9999, admin.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
