package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"accountsvc/internal/media"
	"accountsvc/internal/model"
	"accountsvc/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Save(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) SetRefreshToken(ctx context.Context, id string, token *string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*model.User, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// fakeMediaHost records uploads and deletions in memory.
type fakeMediaHost struct {
	mu         sync.Mutex
	uploads    []string
	deleted    []string
	failFolder string
	failDelete bool
	seq        int
}

func (f *fakeMediaHost) Upload(ctx context.Context, folder string, file *media.File) (*media.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if folder == f.failFolder {
		return nil, errors.New("media host unavailable")
	}
	f.seq++
	id := folder + "/" + strings.Repeat("x", f.seq) + "-" + file.Filename
	f.uploads = append(f.uploads, id)
	return &media.Asset{URL: "https://cdn.test/" + id, PublicID: id}, nil
}

func (f *fakeMediaHost) Delete(ctx context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, publicID)
	if f.failDelete {
		return errors.New("delete failed")
	}
	return nil
}

// memUserRepository is an in-memory user directory with unique username and email.
type memUserRepository struct {
	mu        sync.Mutex
	users     map[string]model.User
	createErr error
}

func newMemUserRepository() *memUserRepository {
	return &memUserRepository{users: map[string]model.User{}}
}

func (r *memUserRepository) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if err := user.BeforeCreate(nil); err != nil {
		return err
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepository) Save(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *memUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []model.User
	for _, u := range r.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			found = append(found, u)
		}
	}
	switch len(found) {
	case 0:
		return nil, gorm.ErrRecordNotFound
	case 1:
		return &found[0], nil
	default:
		return nil, repository.ErrAmbiguousIdentifier
	}
}

func (r *memUserRepository) SetRefreshToken(ctx context.Context, id string, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	if token != nil {
		v := *token
		token = &v
	}
	u.RefreshToken = token
	r.users[id] = u
	return nil
}

func (r *memUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Password = passwordHash
	u.RefreshToken = nil
	r.users[id] = u
	return nil
}

func (r *memUserRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for col, v := range fields {
		s, _ := v.(string)
		switch col {
		case "full_name":
			u.FullName = s
		case "email":
			u.Email = s
		case "avatar":
			u.Avatar = s
		case "avatar_public_id":
			u.AvatarPublicID = s
		case "cover_image":
			u.CoverImage = s
		case "cover_image_public_id":
			u.CoverImagePublicID = s
		}
	}
	u.UpdatedAt = time.Now()
	r.users[id] = u
	return &u, nil
}

func (r *memUserRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}
