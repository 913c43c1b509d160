package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"keeper/internal/database"
	"keeper/internal/rbac"
	"keeper/internal/router"
	"keeper/pkg/config"
	apperrors "keeper/pkg/errors"
	"keeper/pkg/jwt"
	"keeper/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting keeper API gateway...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := database.Open(cfg)
	if err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			appLogger.Error("Failed to close database:", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	var storeOpts []rbac.StoreOption
	var notifier *rbac.RedisNotifier
	if cfg.Redis.Enabled {
		client, err := database.NewRedisClient(ctx, cfg)
		if err != nil {
			appLogger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer client.Close()
		notifier = rbac.NewRedisNotifier(client, cfg.Redis.Channel)
		storeOpts = append(storeOpts, rbac.WithNotifier(notifier))
	}

	store := rbac.NewStore(db, rbac.DefaultCatalog(), storeOpts...)

	// 种子数据失败时不对外提供服务
	if err := seedData(ctx, cfg, store); err != nil {
		if apperrors.IsConfigurationError(err) {
			appLogger.Fatalf("RBAC configuration invalid, refusing to serve: %v", err)
		}
		appLogger.Fatalf("Failed to initialize seed data: %v", err)
	}

	if notifier != nil {
		if err := notifier.Listen(ctx, store); err != nil {
			appLogger.Fatalf("Failed to subscribe to role invalidations: %v", err)
		}
	}

	if cfg.Refresh.Schedule != "" {
		refresher, err := rbac.NewRefresher(cfg.Refresh.Schedule, store)
		if err != nil {
			appLogger.Fatalf("Failed to create RBAC refresher: %v", err)
		}
		refresher.Start()
		defer refresher.Stop()
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r, err := router.SetupRouter(router.Dependencies{
		Config:   cfg,
		DB:       db,
		Store:    store,
		Tokens:   jwt.NewManager(cfg.JWT.SecretKey, cfg.JWT.TokenDuration, jwt.WithIssuer(cfg.JWT.Issuer)),
		Registry: registry,
	})
	if err != nil {
		appLogger.Fatalf("Failed to set up router: %v", err)
	}

	// 启动服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s", cfg.Server.Port)

	// 优雅关闭
	<-ctx.Done()

	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
}
