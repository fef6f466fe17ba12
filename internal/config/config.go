package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	AuthModeHashed = "hashed"
	AuthModeSecret = "secret"

	StorageLocal = "local"
	StorageS3    = "s3"
)

type Config struct {
	// Application
	AppName         string
	AppEnv          string
	Port            string
	StaticDir       string
	ShutdownTimeout time.Duration

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Admin auth
	JWTSecret        string
	AdminTokenExpiry time.Duration
	AdminAuthMode    string // "hashed" or "secret"
	AdminUsername    string
	AdminPassword    string

	// Rate limiting
	TrustProxy      bool // behind one trusted proxy: key on the address it appended
	LoginRateLimit  int
	LoginRateWindow time.Duration
	APIRateLimit    int
	APIRateWindow   time.Duration

	// Submissions
	MaxUploadSize int64
	MaxPageSize   int // 0 = unbounded

	// Storage
	StorageDriver   string // "local" or "s3"
	UploadDir       string
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string        // Optional: for S3-compatible services (MinIO, R2, etc.)
	S3PresignExpiry time.Duration // Expiry for presigned download links

	// Notifications (optional)
	EmailFrom    string
	ResendAPIKey string
	NotifyEmail  string

	// Backups (formctl)
	BackupDir  string
	MaxBackups int

	// Observability (optional)
	SentryDSN string
}

// Load reads the server configuration. JWT_SECRET is required.
func Load() *Config {
	return load(true)
}

// LoadTool reads the configuration for operator tooling, which never signs tokens.
func LoadTool() *Config {
	return load(false)
}

func load(server bool) *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:         envString("APP_NAME", "Formdesk"),
		AppEnv:          envString("APP_ENV", "development"),
		Port:            envString("PORT", "3000"),
		StaticDir:       envString("STATIC_DIR", ""),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/submissions.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),

		// Admin auth
		JWTSecret:        envString("JWT_SECRET", ""),
		AdminTokenExpiry: envDuration("ADMIN_TOKEN_EXPIRY", 2*time.Hour),
		AdminAuthMode:    envString("ADMIN_AUTH_MODE", AuthModeHashed),
		AdminUsername:    envString("ADMIN_USERNAME", "admin"),
		AdminPassword:    envString("ADMIN_PASSWORD", ""),

		// Rate limiting
		TrustProxy:      envBool("TRUST_PROXY", false),
		LoginRateLimit:  envInt("LOGIN_RATE_LIMIT", 5),
		LoginRateWindow: envDuration("LOGIN_RATE_WINDOW", 15*time.Minute),
		APIRateLimit:    envInt("API_RATE_LIMIT", 100),
		APIRateWindow:   envDuration("API_RATE_WINDOW", 15*time.Minute),

		// Submissions
		MaxUploadSize: envInt64("MAX_UPLOAD_SIZE", 1<<20), // 1 MiB
		MaxPageSize:   envInt("MAX_PAGE_SIZE", 0),

		// Storage
		StorageDriver:   envString("STORAGE_DRIVER", StorageLocal),
		UploadDir:       envString("UPLOAD_DIR", "./uploads"),
		S3Region:        envString("S3_REGION", ""),
		S3Bucket:        envString("S3_BUCKET", ""),
		S3AccessKey:     envString("S3_ACCESS_KEY", ""),
		S3SecretKey:     envString("S3_SECRET_KEY", ""),
		S3Endpoint:      envString("S3_ENDPOINT", ""),
		S3PresignExpiry: envDuration("S3_PRESIGN_EXPIRY", 1*time.Hour),

		// Notifications
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),
		NotifyEmail:  envString("NOTIFY_EMAIL", ""),

		// Backups
		BackupDir:  envString("BACKUP_DIR", "./backups"),
		MaxBackups: envInt("MAX_BACKUPS", 7),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),
	}

	if !server {
		return cfg
	}

	cfg.JWTSecret = envRequired("JWT_SECRET")

	if cfg.AdminAuthMode == AuthModeSecret && cfg.AdminPassword == "" {
		slog.Error("ADMIN_AUTH_MODE=secret requires ADMIN_PASSWORD")
		os.Exit(1)
	}

	if cfg.StorageDriver == StorageS3 {
		cfg.S3Region = envRequired("S3_REGION")
		cfg.S3Bucket = envRequired("S3_BUCKET")
	}

	// Production: validate secrets
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction rejects configurations that are only acceptable for local testing.
func validateProduction(cfg *Config) {
	if len(cfg.JWTSecret) < 32 {
		slog.Error("production deployment requires JWT_SECRET of at least 32 bytes")
		os.Exit(1)
	}
	if cfg.AdminAuthMode == AuthModeHashed && cfg.AdminPassword == "" {
		slog.Warn("ADMIN_PASSWORD not set, the first-start admin credential uses the built-in default",
			"hint", "rotate it with: formctl admin set-password")
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("config invalid int64, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Sanitized returns a copy of the config without secrets, safe to log.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:       c.AppName,
		AppEnv:        c.AppEnv,
		Port:          c.Port,
		DBDriver:      c.DBDriver,
		AdminAuthMode: c.AdminAuthMode,
		AdminUsername: c.AdminUsername,
		StorageDriver: c.StorageDriver,
		UploadDir:     c.UploadDir,
		S3Bucket:      c.S3Bucket,
		S3Endpoint:    c.S3Endpoint,
		MaxUploadSize: c.MaxUploadSize,
		MaxPageSize:   c.MaxPageSize,
	}
}
