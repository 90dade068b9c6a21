package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"accountsvc/internal/cache"
	apperrors "accountsvc/internal/errors"
	"accountsvc/internal/media"
	"accountsvc/internal/model"
	"accountsvc/internal/repository"
)

const userCacheTTL = 5 * time.Minute

var (
	// ErrProfileFieldsRequired is returned when full name or email is blank.
	ErrProfileFieldsRequired = apperrors.Validation("full name and email are required")
	// ErrFileRequired is returned when an image update has no file.
	ErrFileRequired = apperrors.Validation("file is required")
	// ErrEmailTaken is returned when the new email belongs to another user.
	ErrEmailTaken = apperrors.Conflict("email already in use")
)

// UserService exposes profile reads and updates for an authenticated user.
type UserService interface {
	GetCurrentUser(ctx context.Context, userID string) (*model.PublicUser, error)
	UpdateProfile(ctx context.Context, userID, fullName, email string) (*model.PublicUser, error)
	UpdateAvatar(ctx context.Context, userID string, file *media.File) (*model.PublicUser, error)
	UpdateCoverImage(ctx context.Context, userID string, file *media.File) (*model.PublicUser, error)
}

type userService struct {
	repo   repository.UserRepository
	media  media.Host
	cache  userCache
	logger *slog.Logger
}

// NewUserService builds a UserService with repository, media host and cache.
func NewUserService(repo repository.UserRepository, mediaHost media.Host, cacheClient *cache.Client, logger *slog.Logger) UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &userService{repo: repo, media: mediaHost, cache: userCache{client: cacheClient}, logger: logger}
}

func (s *userService) GetCurrentUser(ctx context.Context, userID string) (*model.PublicUser, error) {
	if cached := s.cache.get(ctx, userID); cached != nil {
		return cached, nil
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapFindError(err)
	}

	public := user.Public()
	s.cache.set(ctx, public)
	return public, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID, fullName, email string) (*model.PublicUser, error) {
	fullName = strings.TrimSpace(fullName)
	email = normalizeEmail(email)
	if fullName == "" || email == "" {
		return nil, ErrProfileFieldsRequired
	}

	other, err := s.repo.FindByUsernameOrEmail(ctx, "", email)
	if err == nil && other != nil && other.ID != userID {
		return nil, ErrEmailTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("check email", err)
	}

	user, err := s.repo.UpdateFields(ctx, userID, map[string]interface{}{
		"full_name": fullName,
		"email":     email,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, mapFindError(err)
	}

	s.cache.invalidate(ctx, userID)
	return user.Public(), nil
}

func (s *userService) UpdateAvatar(ctx context.Context, userID string, file *media.File) (*model.PublicUser, error) {
	return s.replaceImage(ctx, userID, file, avatarFolder, "avatar", "avatar_public_id",
		func(u *model.User) string { return u.AvatarPublicID })
}

func (s *userService) UpdateCoverImage(ctx context.Context, userID string, file *media.File) (*model.PublicUser, error) {
	return s.replaceImage(ctx, userID, file, coverFolder, "cover_image", "cover_image_public_id",
		func(u *model.User) string { return u.CoverImagePublicID })
}

// replaceImage uploads the new image, patches the record and then removes the
// previous image. If the patch fails the new image is removed instead.
func (s *userService) replaceImage(
	ctx context.Context,
	userID string,
	file *media.File,
	folder, urlColumn, idColumn string,
	previousID func(*model.User) string,
) (*model.PublicUser, error) {
	if file == nil || len(file.Data) == 0 {
		return nil, ErrFileRequired
	}

	current, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapFindError(err)
	}
	if s.media == nil {
		return nil, apperrors.Upstream("something went wrong while updating "+folder, errors.New("media host not configured"))
	}

	asset, err := s.media.Upload(ctx, folder, file)
	if err == nil {
		err = asset.Validate()
	}
	if err != nil {
		return nil, apperrors.Upstream("something went wrong while updating "+folder, err)
	}

	updated, err := s.repo.UpdateFields(ctx, userID, map[string]interface{}{
		urlColumn: asset.URL,
		idColumn:  asset.PublicID,
	})
	if err != nil {
		discardAssets(ctx, s.media, s.logger, asset)
		return nil, mapFindError(err)
	}

	if old := previousID(current); old != "" && old != asset.PublicID {
		discardAssets(ctx, s.media, s.logger, &media.Asset{PublicID: old})
	}

	s.cache.invalidate(ctx, userID)
	return updated.Public(), nil
}

func mapFindError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return apperrors.Internal("load user", err)
}

// userCache keeps public projections in redis. A nil client makes every call a miss.
type userCache struct {
	client *cache.Client
}

func (c userCache) key(id string) string {
	return "user:" + id
}

func (c userCache) get(ctx context.Context, id string) *model.PublicUser {
	data, _ := c.client.Get(ctx, c.key(id))
	if data == nil {
		return nil
	}
	var cached model.PublicUser
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil
	}
	return &cached
}

func (c userCache) set(ctx context.Context, user *model.PublicUser) {
	if payload, err := json.Marshal(user); err == nil {
		_ = c.client.Set(ctx, c.key(user.ID), payload, userCacheTTL)
	}
}

func (c userCache) invalidate(ctx context.Context, id string) {
	_ = c.client.Delete(ctx, c.key(id))
}
