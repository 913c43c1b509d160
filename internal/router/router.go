package router

import (
	"time"

	"keeper/internal/handlers"
	"keeper/internal/middleware"
	"keeper/internal/rbac"
	"keeper/internal/services"
	"keeper/pkg/config"
	"keeper/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Dependencies 路由依赖
type Dependencies struct {
	Config   *config.Config
	DB       *gorm.DB
	Store    *rbac.Store
	Tokens   *jwt.Manager
	Registry *prometheus.Registry
}

// SetupRouter 设置路由
func SetupRouter(deps Dependencies) (*gin.Engine, error) {
	if err := handlers.RegisterValidators(deps.Store.Catalog()); err != nil {
		return nil, err
	}

	router := gin.New()

	gate := middleware.NewGate(middleware.GateConfig{
		APIPrefix: deps.Config.Server.APIPrefix,
		Rules:     middleware.DefaultPublicRules(),
		CORS: middleware.NewCORSPolicy(
			deps.Config.CORS.AllowOrigins,
			deps.Config.CORS.DefaultOrigin,
			time.Duration(deps.Config.CORS.MaxAge)*time.Second,
		),
	}, deps.Tokens, middleware.WithGateMetrics(middleware.NewGateMetrics(deps.Registry)))

	// 中间件，网关必须全局挂载
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery())
	router.Use(gate.Handler())

	registerRoutes(router, deps)
	return router, nil
}

// 注册所有路由
func registerRoutes(router *gin.Engine, deps Dependencies) {
	auth := middleware.NewAuthMiddleware(deps.Store)

	systemHandler := handlers.NewSystemHandler(deps.DB)
	router.GET("/health", systemHandler.Health)
	if deps.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	userService := services.NewUserService(deps.DB, deps.Store, deps.Tokens)
	roleService := services.NewRoleService(deps.Store)

	api := router.Group(deps.Config.Server.APIPrefix)
	{
		authHandler := handlers.NewAuthHandler(userService, deps.Store)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/register", authHandler.Register)
			authGroup.GET("/me", auth.RequireLogin(), authHandler.Me)
		}

		roleHandler := handlers.NewRoleHandler(roleService)
		roles := api.Group("/roles")
		{
			roles.GET("", auth.RequirePermission("view_roles"), roleHandler.GetAll)
			roles.GET("/:id", auth.RequirePermission("view_roles"), roleHandler.GetByID)
			roles.POST("", auth.RequirePermission("create_role"), roleHandler.Create)
			roles.PUT("/:id/permissions", auth.RequirePermission("update_role"), roleHandler.SetPermissions)
		}

		userHandler := handlers.NewUserHandler(userService)
		users := api.Group("/users")
		{
			users.GET("/pending", auth.RequirePermission("view_pending_users"), userHandler.GetPending)
			users.POST("/:id/approve", auth.RequirePermission("approve_users"), userHandler.Approve)
			users.POST("/:id/reject", auth.RequirePermission("approve_users"), userHandler.Reject)
			users.PUT("/:id/role", auth.RequirePermission("transfer_role"), userHandler.AssignRole)
		}

		permissionHandler := handlers.NewPermissionHandler(roleService)
		api.GET("/permissions", auth.RequirePermission("view_roles"), permissionHandler.GetAll)
	}
}
