package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"neovidya/internal/catalogue"
	"neovidya/internal/config"
	"neovidya/internal/database"
	"neovidya/internal/handlers"
	"neovidya/internal/logger"
	"neovidya/internal/models"
	"neovidya/internal/repository"
	"neovidya/internal/security"
	"neovidya/internal/service"
	"neovidya/migrations"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (default: ./config.yaml if present)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg.Database)
	if err != nil {
		zl.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	zl.Info("Database connection established", zap.String("type", db.Dialect.DriverName()))

	ctx := context.Background()

	// Run migrations
	applied, err := db.RunMigrations(ctx, migrations.FS)
	if err != nil {
		zl.Fatal("Failed to run migrations", zap.Error(err))
	}
	zl.Info("Migrations completed successfully", zap.Strings("applied", applied))

	cat, err := loadCatalogue(cfg.Catalogue)
	if err != nil {
		zl.Fatal("Failed to load course catalogue", zap.Error(err))
	}
	zl.Info("Course catalogue loaded", zap.Int("subjects", cat.Len()))

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	// Initialize services
	tokens := security.NewTokenManager(cfg.Auth)
	authService := service.NewAuthService(userRepo, schoolRepo, tokens)
	progressService := service.NewProgressService(courseRepo, progressRepo, cat)
	statsService := service.NewStatsService(userRepo, progressRepo)
	schoolService := service.NewSchoolService(schoolRepo, userRepo)
	backupService := service.NewBackupService(db, zl)

	seed(ctx, zl, cfg.Seed, db, authService)

	limiter, closeLimiter := newLimiter(ctx, zl, cfg)
	defer closeLimiter()

	clientIP, err := security.NewClientIP(cfg.Server.TrustedProxies)
	if err != nil {
		zl.Fatal("Invalid server.trusted_proxies", zap.Error(err))
	}

	// Initialize handlers
	middleware := handlers.NewMiddleware(authService, limiter, zl, handlers.MiddlewareOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		BodyLimit:      cfg.Server.BodyLimit,
		ClientIP:       clientIP,
	})
	router := handlers.NewRouter(handlers.Handlers{
		Auth:     handlers.NewAuthHandler(authService, zl),
		Courses:  handlers.NewCourseHandler(cat, progressService, zl),
		Progress: handlers.NewProgressHandler(progressService, statsService, zl),
		Admin:    handlers.NewAdminHandler(schoolService, backupService, zl),
		Health:   handlers.NewHealthHandler(db, zl),
		Static:   handlers.NewStaticHandler(cfg.Server.StaticFilesPath, cfg.Server.IndexFile),
	}, middleware)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zl.Info("Server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		zl.Info("Server shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		zl.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("Graceful shutdown failed", zap.Error(err))
	}
	zl.Info("Server stopped")
}

func loadCatalogue(cfg config.CatalogueConfig) (*catalogue.Catalogue, error) {
	if cfg.Path == "" {
		return catalogue.Default()
	}
	return catalogue.LoadFile(cfg.Path)
}

// seed writes the sample schools and accounts enabled in config. Failures are
// logged and startup continues.
func seed(ctx context.Context, zl *zap.Logger, cfg config.SeedConfig, db *database.DB, authService *service.AuthService) {
	if cfg.Schools {
		added, err := db.SeedSchools(ctx, database.DefaultSchools)
		if err != nil {
			zl.Warn("Failed to seed schools", zap.Error(err))
		} else if added > 0 {
			zl.Info("Seeded schools", zap.Int("added", added))
		}
	}

	var users []service.SeedUser
	if cfg.DemoUser {
		users = append(users, service.SeedUser{
			Username: "demo",
			Email:    "demo@example.com",
			Password: cfg.DemoPassword,
			Role:     models.RoleStudent,
		})
	}
	if cfg.AdminUsername != "" {
		users = append(users, service.SeedUser{
			Username: cfg.AdminUsername,
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
			Role:     models.RoleAdmin,
		})
	}

	for _, u := range users {
		created, err := authService.EnsureUser(ctx, u)
		if err != nil {
			zl.Warn("Failed to seed user", zap.String("username", u.Username), zap.Error(err))
			continue
		}
		if created {
			zl.Info("Seeded user", zap.String("username", u.Username), zap.String("role", string(u.Role)))
		}
	}
}

// newLimiter returns the Redis-backed limiter when redis.addr is set and
// reachable, otherwise the in-memory one.
func newLimiter(ctx context.Context, zl *zap.Logger, cfg *config.Config) (security.Limiter, func()) {
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		err := client.Ping(pingCtx).Err()
		if err == nil {
			zl.Info("Using Redis rate limiter", zap.String("addr", cfg.Redis.Addr))
			limiter := security.NewRedisRateLimiter(client, "neovidya:ratelimit", cfg.Server.RateLimit, cfg.Server.RateWindow)
			return limiter, func() {
				if err := client.Close(); err != nil {
					zl.Warn("Failed to close redis client", zap.Error(err))
				}
			}
		}

		zl.Warn("Redis unavailable, falling back to in-memory rate limiter",
			zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = client.Close()
	}

	limiter := security.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)
	return limiter, limiter.Stop
}
