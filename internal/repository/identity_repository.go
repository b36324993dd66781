package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "medcircle/internal/errors"
	"medcircle/internal/model"
)

// ErrIdentityNotFound is returned when no credential matches.
var ErrIdentityNotFound = errors.New("identity not found")

// IdentityRepository defines persistence operations for sign-in credentials.
type IdentityRepository interface {
	Create(ctx context.Context, identity *model.AuthIdentity) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.AuthIdentity, error)
	FindByEmail(ctx context.Context, email string) (*model.AuthIdentity, error)
	FindByProviderSubject(ctx context.Context, provider, subject string) (*model.AuthIdentity, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	Delete(ctx context.Context, id uuid.UUID) error
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo IdentityRepository) error) error
}

type identityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository builds a GORM-backed repository.
func NewIdentityRepository(db *gorm.DB) IdentityRepository {
	return &identityRepository{db: db}
}

func (r *identityRepository) Create(ctx context.Context, identity *model.AuthIdentity) error {
	err := r.db.WithContext(ctx).Create(identity).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.ErrEmailTaken
	}
	return err
}

func (r *identityRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.AuthIdentity, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *identityRepository) FindByEmail(ctx context.Context, email string) (*model.AuthIdentity, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *identityRepository) FindByProviderSubject(ctx context.Context, provider, subject string) (*model.AuthIdentity, error) {
	return r.first(ctx, "provider = ? AND provider_subject = ?", provider, subject)
}

func (r *identityRepository) first(ctx context.Context, query string, args ...interface{}) (*model.AuthIdentity, error) {
	var identity model.AuthIdentity
	if err := r.db.WithContext(ctx).Where(query, args...).First(&identity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return &identity, nil
}

func (r *identityRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	res := r.db.WithContext(ctx).Model(&model.AuthIdentity{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

func (r *identityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.AuthIdentity{}).Error
}

// WithTransaction executes fn within a database transaction.
func (r *identityRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo IdentityRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &identityRepository{db: tx})
	})
}
