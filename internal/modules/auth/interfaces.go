package auth

import (
	"context"

	"vidtube/internal/domain"
)

// UserRepositoryInterface — only the methods the auth service uses
type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Update(ctx context.Context, u *domain.User) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// SessionStoreInterface — the single refresh-token slot kept per user record.
// At most one refresh token is valid for a user at any instant: the value
// most recently written here.
type SessionStoreInterface interface {
	GetRefreshToken(ctx context.Context, id int64) (string, error)
	SetRefreshToken(ctx context.Context, id int64, token string) error
	ClearRefreshToken(ctx context.Context, id int64) error
	ReplaceRefreshToken(ctx context.Context, id int64, previous, next string) (bool, error)
}
