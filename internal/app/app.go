package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/templui/formdesk/internal/config"
	"github.com/templui/formdesk/internal/db"
	"github.com/templui/formdesk/internal/middleware"
	"github.com/templui/formdesk/internal/repository"
	"github.com/templui/formdesk/internal/service"
	"github.com/templui/formdesk/internal/storage"
)

type App struct {
	Cfg               *config.Config
	DB                *sqlx.DB
	Storage           storage.Storage
	AuthService       *service.AuthService
	SubmissionService *service.SubmissionService
	EmailService      *service.EmailService
	LoginLimiter      *middleware.RateLimiter
	APILimiter        *middleware.RateLimiter
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repositories
	submissionRepository := repository.NewSubmissionRepository(database)
	adminRepository := repository.NewAdminRepository(database)

	// Storage
	fileStorage, err := storage.New(cfg)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Admin credential, one mode per deployment
	verifier, err := newVerifier(ctx, cfg, adminRepository)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.NotifyEmail,
		cfg.AppName,
		cfg.IsDevelopment(),
	)

	var notifier service.Notifier
	if emailService.Enabled() {
		notifier = emailService
	}

	submissionService := service.NewSubmissionService(submissionRepository, fileStorage, notifier, service.SubmissionOptions{
		MaxUploadSize: cfg.MaxUploadSize,
		MaxPageSize:   cfg.MaxPageSize,
	})
	authService := service.NewAuthService(verifier, cfg.JWTSecret, cfg.AdminTokenExpiry)

	return &App{
		Cfg:               cfg,
		DB:                database,
		Storage:           fileStorage,
		AuthService:       authService,
		SubmissionService: submissionService,
		EmailService:      emailService,
		LoginLimiter:      middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow),
		APILimiter:        middleware.NewRateLimiter(cfg.APIRateLimit, cfg.APIRateWindow),
	}, nil
}

func newVerifier(ctx context.Context, cfg *config.Config, admins repository.AdminRepository) (service.CredentialVerifier, error) {
	switch cfg.AdminAuthMode {
	case config.AuthModeSecret:
		slog.Info("admin auth using configured secret")
		return service.NewConfiguredSecret(cfg.AdminUsername, cfg.AdminPassword), nil
	case config.AuthModeHashed, "":
		cred, err := service.NewHashedStoreCredential(admins, cfg.AdminUsername)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize admin credential: %w", err)
		}
		_, err = cred.Seed(ctx, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to seed admin credential: %w", err)
		}
		slog.Info("admin auth using hashed credential", "username", cfg.AdminUsername)
		return cred, nil
	default:
		return nil, fmt.Errorf("unknown admin auth mode %q", cfg.AdminAuthMode)
	}
}

// Close waits for background work, then releases the database.
func (a *App) Close() error {
	var errs []error
	if a.LoginLimiter != nil {
		a.LoginLimiter.Stop()
	}
	if a.APILimiter != nil {
		a.APILimiter.Stop()
	}
	if a.SubmissionService != nil {
		a.SubmissionService.Wait()
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
