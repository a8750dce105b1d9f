package repository

import (
	"context"
	"strings"
	"time"

	"vidtube/internal/domain"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userModel struct {
	ID                  int64     `gorm:"column:id;primaryKey"`
	Username            string    `gorm:"column:username;uniqueIndex"`
	Email               string    `gorm:"column:email;uniqueIndex"`
	FullName            string    `gorm:"column:full_name"`
	AvatarURL           *string   `gorm:"column:avatar_url"`
	CoverImageURL       *string   `gorm:"column:cover_image_url"`
	PasswordHash        string    `gorm:"column:password_hash"`
	CurrentRefreshToken *string   `gorm:"column:current_refresh_token"`
	CreatedAt           time.Time `gorm:"column:created_at"`
	UpdatedAt           time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

func toDomainUser(m userModel) *domain.User {
	var avatar, cover, refresh string
	if m.AvatarURL != nil {
		avatar = *m.AvatarURL
	}
	if m.CoverImageURL != nil {
		cover = *m.CoverImageURL
	}
	if m.CurrentRefreshToken != nil {
		refresh = *m.CurrentRefreshToken
	}

	return &domain.User{
		ID:                  m.ID,
		Username:            m.Username,
		Email:               m.Email,
		FullName:            m.FullName,
		AvatarURL:           avatar,
		CoverImageURL:       cover,
		PasswordHash:        m.PasswordHash,
		CurrentRefreshToken: refresh,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func toUserModel(u *domain.User) userModel {
	var avatar, cover, refresh *string
	if u.AvatarURL != "" {
		v := u.AvatarURL
		avatar = &v
	}
	if u.CoverImageURL != "" {
		v := u.CoverImageURL
		cover = &v
	}
	if u.CurrentRefreshToken != "" {
		v := u.CurrentRefreshToken
		refresh = &v
	}

	return userModel{
		ID:                  u.ID,
		Username:            strings.ToLower(strings.TrimSpace(u.Username)),
		Email:               strings.ToLower(strings.TrimSpace(u.Email)),
		FullName:            u.FullName,
		AvatarURL:           avatar,
		CoverImageURL:       cover,
		PasswordHash:        u.PasswordHash,
		CurrentRefreshToken: refresh,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

// Migrate creates the users table. Used by main and the tests.
func (r *UserRepository) Migrate() error {
	return r.db.AutoMigrate(&userModel{})
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	m := toUserModel(u)
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return tx.Error
	}
	*u = *toDomainUser(m)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainUser(m), nil
}

// GetByUsernameOrEmail looks a user up by either identifier. At least one of
// the two must be non-empty; callers validate that before reaching the store.
func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))

	q := r.db.WithContext(ctx)
	switch {
	case username != "" && email != "":
		q = q.Where("username = ? OR LOWER(email) = ?", username, email)
	case username != "":
		q = q.Where("username = ?", username)
	default:
		q = q.Where("LOWER(email) = ?", email)
	}

	var m userModel
	if tx := q.First(&m); tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	tx := r.db.WithContext(ctx).Model(&userModel{}).
		Where("username = ? OR LOWER(email) = ?", username, email).
		Count(&count)
	if tx.Error != nil {
		return false, tx.Error
	}
	return count > 0, nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	m := toUserModel(u)
	return r.db.WithContext(ctx).Model(&userModel{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"full_name":       m.FullName,
			"email":           m.Email,
			"avatar_url":      m.AvatarURL,
			"cover_image_url": m.CoverImageURL,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return r.db.WithContext(ctx).Model(&userModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"password_hash": hash, "updated_at": time.Now().UTC()}).Error
}

// GetRefreshToken reads the single refresh-token slot for a user. An empty
// string means no active session.
func (r *UserRepository) GetRefreshToken(ctx context.Context, id int64) (string, error) {
	var m userModel
	tx := r.db.WithContext(ctx).Select("id", "current_refresh_token").First(&m, id)
	if tx.Error != nil {
		return "", tx.Error
	}
	if m.CurrentRefreshToken == nil {
		return "", nil
	}
	return *m.CurrentRefreshToken, nil
}

// SetRefreshToken overwrites the slot unconditionally. Whatever token was
// stored before becomes permanently unusable.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id int64, token string) error {
	return r.db.WithContext(ctx).Model(&userModel{}).
		Where("id = ?", id).
		Update("current_refresh_token", token).Error
}

// ClearRefreshToken empties the slot. Clearing an already-empty slot is not
// an error.
func (r *UserRepository) ClearRefreshToken(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&userModel{}).
		Where("id = ?", id).
		Update("current_refresh_token", nil).Error
}

// ActiveSessions returns the ids and slot values of users that currently
// hold a refresh token. Used by the cleanup command.
func (r *UserRepository) ActiveSessions(ctx context.Context) (map[int64]string, error) {
	var rows []userModel
	tx := r.db.WithContext(ctx).
		Select("id", "current_refresh_token").
		Where("current_refresh_token IS NOT NULL AND current_refresh_token != ''").
		Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}

	sessions := make(map[int64]string, len(rows))
	for _, m := range rows {
		if m.CurrentRefreshToken != nil {
			sessions[m.ID] = *m.CurrentRefreshToken
		}
	}
	return sessions, nil
}

// ReplaceRefreshToken swaps the slot from previous to next only if the stored
// value still equals previous. Returns false when a concurrent login or
// rotation got there first.
func (r *UserRepository) ReplaceRefreshToken(ctx context.Context, id int64, previous, next string) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&userModel{}).
		Where("id = ? AND current_refresh_token = ?", id, previous).
		Update("current_refresh_token", next)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}
