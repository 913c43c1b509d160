package main

import (
	"context"

	"keeper/internal/models"
	"keeper/internal/rbac"
	"keeper/pkg/config"
	"keeper/pkg/logger"
)

// seedUsers 初始账号，密码来自配置
func seedUsers(cfg *config.Config) []rbac.SeedUser {
	return []rbac.SeedUser{
		{
			Email:     "admin@email.com",
			StudentID: "ADMIN001",
			Name:      "System Administrator",
			Password:  cfg.Seed.AdminPassword,
			Status:    models.UserStatusActive,
			RoleName:  models.RoleAdmin,
		},
		{
			Email:     "user@email.com",
			StudentID: "USER001",
			Name:      "Member User",
			Password:  cfg.Seed.MemberPassword,
			Status:    models.UserStatusActive,
			RoleName:  models.RoleMember,
		},
		{
			Email:     "applicant@email.com",
			StudentID: "APPLY001",
			Name:      "Applicant",
			Password:  cfg.Seed.ApplicantPassword,
			Status:    models.UserStatusPendingApproval,
			RoleName:  models.RoleNonMember,
		},
	}
}

// seedCategories 公告必须排第一，公开的公告列表按 categoryId=1 匹配
func seedCategories() []rbac.SeedCategory {
	return []rbac.SeedCategory{
		{Name: "notice", Description: "공지"},
		{Name: "team-building", Description: "팀빌딩"},
		{Name: "keeper-seminar", Description: "Keeper 세미나"},
		{Name: "info-sharing-seminar", Description: "정보공유세미나"},
		{Name: "special-lecture", Description: "특강"},
		{Name: "inquiry", Description: "문의"},
	}
}

// seedData 初始化种子数据
func seedData(ctx context.Context, cfg *config.Config, store *rbac.Store) error {
	logger.GetLogger().Info("Starting seed data initialization...")
	b := rbac.NewBootstrapper(store, rbac.DefaultRoles(), seedUsers(cfg), seedCategories())
	return b.Run(ctx)
}
