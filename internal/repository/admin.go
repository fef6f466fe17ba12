package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/formdesk/internal/model"
)

type AdminRepository interface {
	ByUsername(ctx context.Context, username string) (*model.Admin, error)
	Create(ctx context.Context, admin *model.Admin) error
	UpdatePassword(ctx context.Context, username, passwordHash string) error
}

type adminRepository struct {
	db *sqlx.DB
}

func NewAdminRepository(db *sqlx.DB) *adminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) ByUsername(ctx context.Context, username string) (*model.Admin, error) {
	admin := &model.Admin{}
	query := `SELECT id, username, password_hash, created_at, updated_at FROM admins WHERE username = $1`

	err := r.db.GetContext(ctx, admin, query, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, storageErr("get admin", 0, err)
	}

	return admin, nil
}

func (r *adminRepository) Create(ctx context.Context, admin *model.Admin) error {
	now := time.Now().UTC()
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = now
	}
	admin.UpdatedAt = admin.CreatedAt

	query := `INSERT INTO admins (username, password_hash, created_at, updated_at)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id`

	err := r.db.QueryRowxContext(ctx, query, admin.Username, admin.PasswordHash, admin.CreatedAt, admin.UpdatedAt).Scan(&admin.ID)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate") {
			return ErrAdminExists
		}
		return storageErr("create admin", 0, err)
	}

	return nil
}

func (r *adminRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	query := `UPDATE admins SET password_hash = $1, updated_at = $2 WHERE username = $3`

	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now().UTC(), username)
	if err != nil {
		return storageErr("update admin password", 0, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storageErr("update admin password", 0, err)
	}
	if rows == 0 {
		return ErrAdminNotFound
	}

	return nil
}
