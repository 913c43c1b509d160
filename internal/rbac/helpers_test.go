package rbac

import (
	"context"
	"testing"

	"keeper/internal/database/dbtest"
	"keeper/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	return dbtest.New(t)
}

func testUsers() []SeedUser {
	return []SeedUser{
		{Email: "admin@email.com", StudentID: "ADMIN001", Name: "System Administrator", Password: "Admin1234!", Status: models.UserStatusActive, RoleName: models.RoleAdmin},
		{Email: "user@email.com", StudentID: "USER001", Name: "Member User", Password: "User1234!", Status: models.UserStatusActive, RoleName: models.RoleMember},
		{Email: "applicant@email.com", StudentID: "APPLY001", Name: "Applicant", Password: "Apply1234!", Status: models.UserStatusPendingApproval, RoleName: models.RoleNonMember},
	}
}

func testCategories() []SeedCategory {
	return []SeedCategory{
		{Name: "notice", Description: "notice"},
		{Name: "team-building", Description: "team building"},
		{Name: "seminar", Description: "seminar"},
	}
}

func bootstrapped(t *testing.T, db *gorm.DB) *Store {
	t.Helper()
	store := NewStore(db, DefaultCatalog())
	require.NoError(t, NewBootstrapper(store, DefaultRoles(), testUsers(), testCategories()).Run(context.Background()))
	return store
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
