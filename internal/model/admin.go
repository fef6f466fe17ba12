package model

import "time"

// Admin is the stored admin credential used in hashed mode.
type Admin struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// AdminClaims is the identity carried by a verified admin token.
type AdminClaims struct {
	Subject   string    `json:"sub"`
	IsAdmin   bool      `json:"isAdmin"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}
