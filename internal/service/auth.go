package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/templui/formdesk/internal/model"
	"github.com/templui/formdesk/internal/repository"
	"github.com/templui/formdesk/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = fmt.Errorf("%w: invalid password", ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: invalid or expired token", ErrUnauthorized)
)

// DefaultAdminPassword seeds the stored credential when ADMIN_PASSWORD is unset.
// It must be rotated after the first start.
const DefaultAdminPassword = "change-me-admin"

const tokenIssuer = "formdesk"

// CredentialVerifier checks an admin secret. Both a wrong secret and an
// unknown admin return ErrInvalidCredentials.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (string, error)
}

// ConfiguredSecret compares against a single secret held in configuration.
type ConfiguredSecret struct {
	username string
	digest   [sha256.Size]byte
}

func NewConfiguredSecret(username, secret string) *ConfiguredSecret {
	return &ConfiguredSecret{
		username: username,
		digest:   sha256.Sum256([]byte(secret)),
	}
}

// Verify ignores the submitted username, there is only one secret.
func (c *ConfiguredSecret) Verify(_ context.Context, _ string, password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	if subtle.ConstantTimeCompare(sum[:], c.digest[:]) != 1 {
		return "", ErrInvalidCredentials
	}
	return c.username, nil
}

// HashedStoreCredential checks a bcrypt hash kept in the admins table.
type HashedStoreCredential struct {
	admins          repository.AdminRepository
	defaultUsername string
	dummyHash       []byte
}

func NewHashedStoreCredential(admins repository.AdminRepository, defaultUsername string) (*HashedStoreCredential, error) {
	// Compared against for unknown usernames so both failures cost one bcrypt run
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare credential verifier: %w", err)
	}

	return &HashedStoreCredential{
		admins:          admins,
		defaultUsername: defaultUsername,
		dummyHash:       dummy,
	}, nil
}

func (h *HashedStoreCredential) Verify(ctx context.Context, username, password string) (string, error) {
	if username == "" {
		username = h.defaultUsername
	}

	admin, err := h.admins.ByUsername(ctx, username)
	if errors.Is(err, repository.ErrAdminNotFound) {
		_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to load admin: %w", err)
	}

	err = ComparePassword(password, admin.PasswordHash)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	return admin.Username, nil
}

// Seed creates the admin row on first start. An empty password falls back to
// DefaultAdminPassword. It reports whether a row was created.
func (h *HashedStoreCredential) Seed(ctx context.Context, username, password string) (bool, error) {
	_, err := h.admins.ByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrAdminNotFound) {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}

	usingDefault := password == ""
	if usingDefault {
		password = DefaultAdminPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	err = h.admins.Create(ctx, &model.Admin{Username: username, PasswordHash: hash})
	if errors.Is(err, repository.ErrAdminExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create admin: %w", err)
	}

	if usingDefault {
		slog.Warn("admin credential created with the default password, rotate it now",
			"username", username, "hint", "formctl admin set-password")
	} else {
		slog.Info("admin credential created", "username", username)
	}
	return true, nil
}

// SetPassword rotates the stored credential, creating it when missing.
func (h *HashedStoreCredential) SetPassword(ctx context.Context, username, password string) error {
	err := validation.ValidateAdminPassword(password)
	if err != nil {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = h.admins.UpdatePassword(ctx, username, hash)
	if errors.Is(err, repository.ErrAdminNotFound) {
		return h.admins.Create(ctx, &model.Admin{Username: username, PasswordHash: hash})
	}
	return err
}

func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

type adminTokenClaims struct {
	IsAdmin bool `json:"isAdmin"`
	jwt.RegisteredClaims
}

// AuthService issues and checks admin bearer tokens. It keeps no session state.
type AuthService struct {
	verifier  CredentialVerifier
	jwtSecret []byte
	expiry    time.Duration
	now       func() time.Time
}

func NewAuthService(verifier CredentialVerifier, jwtSecret string, expiry time.Duration) *AuthService {
	return &AuthService{
		verifier:  verifier,
		jwtSecret: []byte(jwtSecret),
		expiry:    expiry,
		now:       time.Now,
	}
}

// Login checks the password and returns a signed token and its expiry.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	if password == "" {
		return "", time.Time{}, ErrInvalidCredentials
	}

	subject, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	expiresAt := now.Add(s.expiry)
	claims := adminTokenClaims{
		IsAdmin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Verify checks signature, issuer and expiry. Any failure is ErrInvalidToken.
func (s *AuthService) Verify(tokenString string) (*model.AdminClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &adminTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid || !claims.IsAdmin {
		slog.Debug("admin token rejected", "error", err)
		return nil, ErrInvalidToken
	}

	out := &model.AdminClaims{
		Subject: claims.Subject,
		IsAdmin: claims.IsAdmin,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	out.ExpiresAt = claims.ExpiresAt.Time
	return out, nil
}

// Expiry is the lifetime of issued tokens.
func (s *AuthService) Expiry() time.Duration {
	return s.expiry
}
