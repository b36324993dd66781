package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "medcircle/internal/errors"
	"medcircle/internal/model"
	"medcircle/internal/realtime"
	"medcircle/internal/repository"
	"medcircle/internal/storage"
)

const (
	userCacheTTL   = 5 * time.Minute
	maxAvatarBytes = 5 << 20
	maxPhotoURLLen = 2048
)

var avatarTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// UserService exposes profile operations.
type UserService interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	// IsAdmin always reads the store, never the cache.
	IsAdmin(ctx context.Context, id string) (bool, error)
	UpdateProfile(ctx context.Context, id string, displayName, photoURL *string) (*model.User, error)
	UploadAvatar(ctx context.Context, id string, file Upload) (*model.User, error)
	PromoteAdmin(ctx context.Context, email string) (*model.User, error)
}

type userService struct {
	repo    repository.UserRepository
	objects storage.ObjectStore
	cache   Cache
	pub     realtime.Publisher
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, objects storage.ObjectStore, cache Cache, pub realtime.Publisher) UserService {
	return &userService{repo: repo, objects: objects, cache: cache, pub: pub}
}

func userCacheKey(id string) string {
	return "user:" + id
}

func (s *userService) GetUser(ctx context.Context, id string) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, userCacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetJSON(ctx, userCacheKey(id), user, userCacheTTL)
	return user, nil
}

func (s *userService) IsAdmin(ctx context.Context, id string) (bool, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id string, displayName, photoURL *string) (*model.User, error) {
	upd := repository.ProfileUpdate{}
	if displayName != nil {
		name, err := requireText("display name", *displayName, maxNameRunes)
		if err != nil {
			return nil, err
		}
		upd.DisplayName = &name
	}
	if photoURL != nil {
		u := strings.TrimSpace(*photoURL)
		if len(u) > maxPhotoURLLen {
			return nil, fmt.Errorf("%w: photo url is too long", apperrors.ErrValidation)
		}
		upd.PhotoURL = &u
	}
	return s.save(ctx, id, upd)
}

// UploadAvatar stores the image at profile-pictures/{userId} and points the profile at it.
func (s *userService) UploadAvatar(ctx context.Context, id string, file Upload) (*model.User, error) {
	if file.Size > maxAvatarBytes {
		return nil, fmt.Errorf("%w: avatar must be at most 5 MiB", apperrors.ErrValidation)
	}
	contentType, body, err := sniff(file.Reader)
	if err != nil {
		return nil, err
	}
	if !avatarTypes[contentType] {
		return nil, fmt.Errorf("%w: avatar must be a JPEG, PNG, GIF or WebP image", apperrors.ErrValidation)
	}

	key := storage.AvatarKey(id)
	if err := s.objects.Put(ctx, key, body, file.Size, contentType); err != nil {
		return nil, fmt.Errorf("store avatar: %w", err)
	}

	photoURL := s.objects.PublicURL(key)
	return s.save(ctx, id, repository.ProfileUpdate{PhotoURL: &photoURL})
}

// PromoteAdmin grants admin rights to an existing account. Only the seed command calls it.
func (s *userService) PromoteAdmin(ctx context.Context, email string) (*model.User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetAdmin(ctx, user.ID, true); err != nil {
		return nil, err
	}
	user.IsAdmin = true
	_ = s.cache.Delete(ctx, userCacheKey(user.ID))
	publish(ctx, s.pub, realtime.UserEvent(user.ID))
	return user, nil
}

func (s *userService) save(ctx context.Context, id string, upd repository.ProfileUpdate) (*model.User, error) {
	user, err := s.repo.UpdateProfile(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Delete(ctx, userCacheKey(id))
	publish(ctx, s.pub, realtime.UserEvent(id))
	return user, nil
}
