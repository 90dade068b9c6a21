package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"accountsvc/internal/auth"
	"accountsvc/internal/cache"
	apperrors "accountsvc/internal/errors"
	"accountsvc/internal/media"
	"accountsvc/internal/model"
	"accountsvc/internal/repository"
)

const bcryptCost = 10

const (
	avatarFolder = "avatars"
	coverFolder  = "covers"
)

var (
	// ErrMissingFields is returned when a required text field is blank.
	ErrMissingFields = apperrors.Validation("all fields are required")
	// ErrAvatarRequired is returned when registration has no avatar file.
	ErrAvatarRequired = apperrors.Validation("avatar file is missing")
	// ErrUserAlreadyExists is returned when username or email is taken.
	ErrUserAlreadyExists = apperrors.Conflict("user with email or username already exists")
	// ErrUserNotFound is returned when no user matches.
	ErrUserNotFound = apperrors.NotFound("user not found")
	// ErrAmbiguousLogin is returned when the username and email given at login name different users.
	ErrAmbiguousLogin = apperrors.Validation("username and email belong to different users")
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = apperrors.Unauthorized("invalid credentials")
	// ErrIncorrectPassword is returned by ChangePassword when the old password does not match.
	ErrIncorrectPassword = apperrors.Unauthorized("old password is incorrect")
	// ErrRefreshTokenRequired is returned when no refresh token is presented.
	ErrRefreshTokenRequired = apperrors.Unauthorized("refresh token is required")
	// ErrInvalidRefreshToken is returned when refresh token is invalid, expired or superseded.
	ErrInvalidRefreshToken = apperrors.Unauthorized("invalid refresh token")
)

// RegisterInput carries the registration form.
type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	Avatar     *media.File
	CoverImage *media.File
}

// LoginInput identifies the user by username or email.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	User         *model.PublicUser `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

// AuthService handles the credential and token lifecycle.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.PublicUser, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, userID, accessTokenID string, accessExpiresAt time.Time) error
	RefreshAccessToken(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	media      media.Host
	cache      userCache
	logger     *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	userRepo repository.UserRepository,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	mediaHost media.Host,
	cacheClient *cache.Client,
	logger *slog.Logger,
) AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		tokenStore: tokenStore,
		media:      mediaHost,
		cache:      userCache{client: cacheClient},
		logger:     logger,
	}
}

// Register uploads the images, then creates the user. Uploaded images are
// removed again if the record cannot be created.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.PublicUser, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := normalizeEmail(in.Email)
	username := normalizeUsername(in.Username)
	if fullName == "" || email == "" || username == "" || strings.TrimSpace(in.Password) == "" {
		return nil, ErrMissingFields
	}

	existing, err := s.userRepo.FindByUsernameOrEmail(ctx, username, email)
	if (err == nil && existing != nil) || errors.Is(err, repository.ErrAmbiguousIdentifier) {
		return nil, ErrUserAlreadyExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("check user existence", err)
	}

	if in.Avatar == nil || len(in.Avatar.Data) == 0 {
		return nil, ErrAvatarRequired
	}

	avatar, err := s.upload(ctx, avatarFolder, in.Avatar)
	if err != nil {
		return nil, apperrors.Upstream("failed to upload avatar", err)
	}
	s.logger.InfoContext(ctx, "uploaded avatar", "public_id", avatar.PublicID)

	var cover *media.Asset
	if in.CoverImage != nil && len(in.CoverImage.Data) > 0 {
		cover, err = s.upload(ctx, coverFolder, in.CoverImage)
		if err != nil {
			s.discard(ctx, avatar)
			return nil, apperrors.Upstream("failed to upload cover image", err)
		}
		s.logger.InfoContext(ctx, "uploaded cover image", "public_id", cover.PublicID)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		s.discard(ctx, avatar, cover)
		return nil, apperrors.Internal("hash password", err)
	}

	user := &model.User{
		Username:       username,
		Email:          email,
		FullName:       fullName,
		Password:       string(hashedPassword),
		Avatar:         avatar.URL,
		AvatarPublicID: avatar.PublicID,
	}
	if cover != nil {
		user.CoverImage = cover.URL
		user.CoverImagePublicID = cover.PublicID
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "user creation failed", "username", username, "error", err)
		s.discard(ctx, avatar, cover)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserAlreadyExists
		}
		return nil, apperrors.Internal("something went wrong while registering user and images were deleted", err)
	}

	created, err := s.userRepo.FindByID(ctx, user.ID)
	if err != nil {
		return nil, apperrors.Internal("something went wrong while registering user", err)
	}
	return created.Public(), nil
}

// Login authenticates a user and rotates the stored refresh token.
func (s *authService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	username := normalizeUsername(in.Username)
	email := normalizeEmail(in.Email)
	if username == "" && email == "" {
		return nil, apperrors.Validation("username or email is required")
	}
	if in.Password == "" {
		return nil, apperrors.Validation("password is required")
	}

	user, err := s.userRepo.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		if errors.Is(err, repository.ErrAmbiguousIdentifier) {
			return nil, ErrAmbiguousLogin
		}
		return nil, apperrors.Internal("find user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:         user.Public(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout clears the stored refresh token and revokes the presented access token.
// Logging out twice is not an error.
func (s *authService) Logout(ctx context.Context, userID, accessTokenID string, accessExpiresAt time.Time) error {
	if err := s.userRepo.SetRefreshToken(ctx, userID, nil); err != nil {
		return apperrors.Internal("clear refresh token", err)
	}
	if s.tokenStore != nil {
		if err := s.tokenStore.BlacklistAccessToken(ctx, accessTokenID, time.Until(accessExpiresAt)); err != nil {
			s.logger.WarnContext(ctx, "blacklist access token", "user_id", userID, "error", err)
		}
	}
	return nil
}

// RefreshAccessToken verifies the presented refresh token, requires it to match
// the stored value exactly and rotates both tokens.
func (s *authService) RefreshAccessToken(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrRefreshTokenRequired
	}

	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, apperrors.Internal("find user", err)
	}

	if !user.HasRefreshToken(refreshToken) {
		s.logger.WarnContext(ctx, "refresh token reuse or mismatch", "user_id", user.ID)
		return nil, ErrInvalidRefreshToken
	}

	return s.issueTokens(ctx, user)
}

// ChangePassword replaces the hash once the old password verifies.
func (s *authService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || strings.TrimSpace(newPassword) == "" {
		return apperrors.Validation("old and new password are required")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return apperrors.Internal("find user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return ErrIncorrectPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return apperrors.Internal("hash password", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
		return apperrors.Internal("update password", err)
	}
	s.cache.invalidate(ctx, user.ID)
	return nil
}

// issueTokens mints a pair and persists its refresh token, superseding any earlier one.
func (s *authService) issueTokens(ctx context.Context, user *model.User) (*auth.TokenPair, error) {
	pair, err := s.jwtService.GeneratePair(auth.Subject{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
	})
	if err != nil {
		return nil, apperrors.Upstream("something went wrong while generating access and refresh token", err)
	}

	if err := s.userRepo.SetRefreshToken(ctx, user.ID, &pair.RefreshToken); err != nil {
		return nil, apperrors.Internal("store refresh token", err)
	}
	return pair, nil
}

func (s *authService) upload(ctx context.Context, folder string, file *media.File) (*media.Asset, error) {
	if s.media == nil {
		return nil, errors.New("media host not configured")
	}
	asset, err := s.media.Upload(ctx, folder, file)
	if err != nil {
		return nil, err
	}
	if err := asset.Validate(); err != nil {
		return nil, fmt.Errorf("upload %s: %w", file.Filename, err)
	}
	return asset, nil
}

// discard deletes uploaded assets best-effort. Failures are logged only.
func (s *authService) discard(ctx context.Context, assets ...*media.Asset) {
	discardAssets(ctx, s.media, s.logger, assets...)
}

func discardAssets(ctx context.Context, host media.Host, logger *slog.Logger, assets ...*media.Asset) {
	for _, asset := range assets {
		if asset == nil || asset.PublicID == "" || host == nil {
			continue
		}
		if err := host.Delete(ctx, asset.PublicID); err != nil {
			logger.ErrorContext(ctx, "failed to delete uploaded media", "public_id", asset.PublicID, "error", err)
		}
	}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
