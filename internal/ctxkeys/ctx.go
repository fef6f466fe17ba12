package ctxkeys

import (
	"context"

	"github.com/templui/formdesk/internal/config"
	"github.com/templui/formdesk/internal/model"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	AdminKey     contextKey = "admin"
	RequestIDKey contextKey = "request_id"
	ConfigKey    contextKey = "config"
)

func Admin(ctx context.Context) *model.AdminClaims {
	admin, _ := ctx.Value(AdminKey).(*model.AdminClaims)
	return admin
}

func WithAdmin(ctx context.Context, admin *model.AdminClaims) context.Context {
	return context.WithValue(ctx, AdminKey, admin)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func Config(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(ConfigKey).(*config.Config)
	return cfg
}

func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, ConfigKey, cfg)
}
