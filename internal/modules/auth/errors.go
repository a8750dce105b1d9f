package auth

import "errors"

var (
	ErrMissingIdentifier   = errors.New("username or email is required")
	ErrUserNotFound        = errors.New("user does not exist")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserAlreadyExists   = errors.New("username or email already exists")
	ErrInvalidRefreshToken = errors.New("refresh token is invalid")
	ErrRefreshTokenReused  = errors.New("refresh token is stale or already used")
)
