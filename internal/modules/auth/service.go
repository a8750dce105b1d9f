package auth

import (
	"context"
	"errors"
	"log"
	"strings"

	"vidtube/internal/domain"
	"vidtube/internal/pkg/jwt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type tokenCodec interface {
	Mint(kind jwt.Kind, userID int64, extra map[string]string) (string, error)
	Verify(kind jwt.Kind, token string) (*jwt.Claims, error)
}

// Service contains all business logic for authentication
type Service struct {
	users    UserRepositoryInterface
	sessions SessionStoreInterface
	codec    tokenCodec
}

func NewService(users UserRepositoryInterface, sessions SessionStoreInterface, codec tokenCodec) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		codec:    codec,
	}
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type LoginResult struct {
	User   *domain.User
	Tokens TokenPair
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

// Login verifies the credential and issues a fresh token pair. Persisting the
// new refresh token overwrites the slot, so every previously issued refresh
// token for this user stops working the moment this returns.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" && email == "" {
		return nil, ErrMissingIdentifier
	}

	user, err := s.users.GetByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.mintPair(user)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	user.CurrentRefreshToken = ""
	return &LoginResult{User: user, Tokens: pair}, nil
}

// Refresh rotates a presented refresh token. The token must verify against
// the refresh profile AND be byte-for-byte equal to the stored slot value; a
// signature-valid token that no longer matches the slot was superseded by a
// later login or rotation and is a strong theft signal.
func (s *Service) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	claims, err := s.codec.Verify(jwt.KindRefresh, presented)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	stored, err := s.sessions.GetRefreshToken(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if stored == "" || stored != presented {
		log.Printf("refresh_token_reuse user_id=%d", claims.UserID)
		return nil, ErrRefreshTokenReused
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	pair, err := s.mintPair(user)
	if err != nil {
		return nil, err
	}

	// Compare-and-set: only overwrite the slot if it still holds the token
	// we just validated. Losing the race means someone else rotated first,
	// which is the same condition as a replay.
	ok, err := s.sessions.ReplaceRefreshToken(ctx, user.ID, presented, pair.RefreshToken)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Printf("refresh_token_reuse user_id=%d", user.ID)
		return nil, ErrRefreshTokenReused
	}

	return &pair, nil
}

// Logout clears the refresh-token slot. Clearing an empty slot is fine.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.sessions.ClearRefreshToken(ctx, userID)
}

func (s *Service) GetCurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	user.CurrentRefreshToken = ""
	return user, nil
}

func (s *Service) UpdateAccount(ctx context.Context, userID int64, req UpdateAccountRequest) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.FullName = strings.TrimSpace(req.FullName)
	user.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	user.CurrentRefreshToken = ""
	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.users.UpdatePasswordHash(ctx, userID, hash)
}

// mintPair is the shared minting step used by login and refresh. Access
// tokens carry denormalized display fields; refresh tokens carry the subject
// only.
func (s *Service) mintPair(user *domain.User) (TokenPair, error) {
	access, err := s.codec.Mint(jwt.KindAccess, user.ID, map[string]string{
		"username":  user.Username,
		"email":     user.Email,
		"full_name": user.FullName,
	})
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := s.codec.Mint(jwt.KindRefresh, user.ID, nil)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
