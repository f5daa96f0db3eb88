package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	secaudit "github.com/knowhy-io/knowhy-engine/pkg/audit"
	"github.com/knowhy-io/knowhy-engine/pkg/auth"
	"github.com/knowhy-io/knowhy-engine/pkg/config"
	"github.com/knowhy-io/knowhy-engine/pkg/database"
	"github.com/knowhy-io/knowhy-engine/pkg/handlers"
	"github.com/knowhy-io/knowhy-engine/pkg/logging"
	"github.com/knowhy-io/knowhy-engine/pkg/middleware"
	"github.com/knowhy-io/knowhy-engine/pkg/repositories"
	"github.com/knowhy-io/knowhy-engine/pkg/retry"
	"github.com/knowhy-io/knowhy-engine/pkg/services"
	sqlpkg "github.com/knowhy-io/knowhy-engine/pkg/sql"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("scripts_dir", cfg.Reports.ScriptsDir),
		zap.String("table_prefix", cfg.Reports.TablePrefix))

	ctx := context.Background()

	var db *database.DB
	err = retry.Do(ctx, retry.DefaultConfig(), func() error {
		var connErr error
		db, connErr = database.NewConnection(ctx, &database.Config{
			Host:           cfg.Database.Host,
			Port:           cfg.Database.Port,
			User:           cfg.Database.User,
			Password:       cfg.Database.Password,
			Database:       cfg.Database.Database,
			SSLMode:        cfg.Database.SSLMode,
			MaxConnections: cfg.Database.MaxConnections,
		})
		if connErr != nil {
			logger.Warn("Database connection failed, retrying",
				zap.String("error", logging.SanitizeError(connErr)))
		}
		return connErr
	})
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	tables := database.NewSystemTables(cfg.Reports.TablePrefix)
	configRepo := repositories.NewConfigRepository(db.Pool, tables)

	// The tenant's data table is config; before setup the config table
	// itself may not exist yet, so fall back to the engine default.
	tableName, err := configRepo.GetOrDefault(ctx, repositories.ConfigKeyTableName, sqlpkg.FallbackTableName)
	if err != nil {
		logger.Warn("Configured table name unavailable, using fallback",
			zap.String("error", logging.SanitizeError(err)))
		tableName = sqlpkg.FallbackTableName
	}

	// Derive plain-SQL templates from their markdown sources before the
	// first request can load one.
	loader := sqlpkg.Loader{ScriptsDir: cfg.Reports.ScriptsDir}
	converter := &sqlpkg.Converter{
		Loader:   loader,
		Defaults: sqlpkg.Defaults{TableName: tableName},
		Logger:   logger,
	}
	converted, err := converter.ConvertAll()
	if err != nil {
		logger.Fatal("Failed to convert report templates", zap.Error(err))
	}
	logger.Info("Report templates converted", zap.Int("count", len(converted)))

	security := secaudit.NewSecurityAuditor(logger)

	userRepo := repositories.NewUserRepository(db.Pool, tables)
	reportRepo := repositories.NewReportRepository(db.Pool, tables)
	auditRepo := repositories.NewAuditRepository(db.Pool, tables)
	favoriteRepo := repositories.NewFavoriteRepository(db.Pool, tables)

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLSeconds)*time.Second, logger)
	authMW := auth.NewMiddleware(tokens, logger)

	auditService := services.NewAuditService(auditRepo, userRepo, logger)
	setupService := services.NewSetupService(db.Pool, tables, configRepo, userRepo, security, logger)
	authService := services.NewAuthService(userRepo, setupService, tokens, auditService, security, cfg.Auth, logger)
	userService := services.NewUserService(userRepo, logger)
	reportService := services.NewReportService(reportRepo, configRepo, loader,
		database.NewExecutor(db.Pool), auditService, security, logger)
	favoriteService := services.NewFavoriteService(favoriteRepo)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(authService, logger).RegisterRoutes(mux, authMW)
	handlers.NewReportsHandler(reportService, logger).RegisterRoutes(mux, authMW)
	handlers.NewFavoritesHandler(favoriteService, authService, logger).RegisterRoutes(mux, authMW)
	handlers.NewAdminHandler(setupService, userService, auditService, configRepo, reportRepo, converter, logger).RegisterRoutes(mux, authMW)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("Starting knowhy-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))

	handler := middleware.RequestLogger(logger)(mux)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// newLogger builds a production JSON logger, or a human-friendly console
// logger for local development.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
