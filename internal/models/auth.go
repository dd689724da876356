package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the payload of portal-issued access tokens.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Admin  bool   `json:"admin"`
	jwt.RegisteredClaims
}

// AuthCode is a one-time code authorising a single bulk download.
type AuthCode struct {
	Code      int       `json:"auth_code"`
	UserID    string    `json:"-"`
	TTL       int       `json:"time_interval"`
	ExpiresAt time.Time `json:"-"`
}
