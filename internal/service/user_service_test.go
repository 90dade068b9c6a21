package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"accountsvc/internal/cache"
	apperrors "accountsvc/internal/errors"
	"accountsvc/internal/media"
	"accountsvc/internal/model"
)

type userFixture struct {
	svc   UserService
	repo  *memUserRepository
	media *fakeMediaHost
	user  *model.PublicUser
	mr    *miniredis.Miniredis
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	cacheClient := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cacheClient.Close() })

	f := &userFixture{repo: newMemUserRepository(), media: &fakeMediaHost{}, mr: mr}
	authSvc := NewAuthService(f.repo, newJWT(), nil, f.media, cacheClient, discardLogger)
	user, err := authSvc.Register(context.Background(), aliceInput())
	require.NoError(t, err)
	f.user = user
	f.media.uploads = nil
	f.svc = NewUserService(f.repo, f.media, cacheClient, discardLogger)
	return f
}

func TestUserService_GetCurrentUser(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	got, err := f.svc.GetCurrentUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, f.user.Username, got.Username)
	assert.True(t, f.mr.Exists("user:"+f.user.ID))

	// Served from cache once populated.
	f.repo.mu.Lock()
	u := f.repo.users[f.user.ID]
	u.FullName = "changed behind the cache"
	f.repo.users[f.user.ID] = u
	f.repo.mu.Unlock()

	got, err = f.svc.GetCurrentUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", got.FullName)

	_, err = f.svc.GetCurrentUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestUserService_UpdateProfile(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	_, err := f.svc.GetCurrentUser(ctx, f.user.ID)
	require.NoError(t, err)

	updated, err := f.svc.UpdateProfile(ctx, f.user.ID, " Alice L. ", "ALICE@new.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice L.", updated.FullName)
	assert.Equal(t, "alice@new.com", updated.Email)
	assert.False(t, f.mr.Exists("user:"+f.user.ID))

	got, err := f.svc.GetCurrentUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@new.com", got.Email)
}

func TestUserService_UpdateProfileRejects(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	other := aliceInput()
	other.Username, other.Email = "bob", "bob@x.com"
	authSvc := NewAuthService(f.repo, newJWT(), nil, f.media, nil, discardLogger)
	_, err := authSvc.Register(ctx, other)
	require.NoError(t, err)

	tests := []struct {
		name     string
		fullName string
		email    string
		want     error
	}{
		{name: "missing full name", fullName: "", email: "a@x.com", want: ErrProfileFieldsRequired},
		{name: "missing email", fullName: "Alice", email: "  ", want: ErrProfileFieldsRequired},
		{name: "email taken", fullName: "Alice", email: "bob@x.com", want: ErrEmailTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpdateProfile(ctx, f.user.ID, tt.fullName, tt.email)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// Keeping one's own email is fine.
	_, err = f.svc.UpdateProfile(ctx, f.user.ID, "Alice", "alice@x.com")
	assert.NoError(t, err)
}

func TestUserService_UpdateAvatar(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	before, err := f.repo.FindByID(ctx, f.user.ID)
	require.NoError(t, err)

	updated, err := f.svc.UpdateAvatar(ctx, f.user.ID, &media.File{Filename: "new.png", Data: []byte("new")})
	require.NoError(t, err)

	require.Len(t, f.media.uploads, 1)
	assert.Equal(t, "https://cdn.test/"+f.media.uploads[0], updated.Avatar)
	assert.Equal(t, []string{before.AvatarPublicID}, f.media.deleted)

	after, err := f.repo.FindByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, f.media.uploads[0], after.AvatarPublicID)
}

func TestUserService_UpdateCoverImage(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	updated, err := f.svc.UpdateCoverImage(ctx, f.user.ID, &media.File{Filename: "c.jpg", Data: []byte("c")})
	require.NoError(t, err)
	assert.Contains(t, updated.CoverImage, "covers/")
	// No previous cover, nothing to delete.
	assert.Empty(t, f.media.deleted)

	_, err = f.svc.UpdateCoverImage(ctx, f.user.ID, nil)
	assert.ErrorIs(t, err, ErrFileRequired)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestUserService_UpdateAvatarUploadFails(t *testing.T) {
	f := newUserFixture(t)
	f.media.failFolder = avatarFolder

	_, err := f.svc.UpdateAvatar(context.Background(), f.user.ID, &media.File{Filename: "n.png", Data: []byte("n")})

	assert.Equal(t, apperrors.KindUpstream, apperrors.KindOf(err))
	assert.Empty(t, f.media.deleted)
}

func TestUserService_UpdateAvatarPatchFailsDeletesUpload(t *testing.T) {
	mockRepo := new(MockUserRepository)
	host := &fakeMediaHost{}
	svc := NewUserService(mockRepo, host, nil, discardLogger)

	mockRepo.On("FindByID", mock.Anything, "u-1").Return(&model.User{ID: "u-1", AvatarPublicID: "avatars/old"}, nil)
	mockRepo.On("UpdateFields", mock.Anything, "u-1", mock.Anything).Return(nil, errors.New("deadlock"))

	_, err := svc.UpdateAvatar(context.Background(), "u-1", &media.File{Filename: "n.png", Data: []byte("n")})

	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
	assert.Equal(t, host.uploads, host.deleted)
	assert.NotContains(t, host.deleted, "avatars/old")
	mockRepo.AssertExpectations(t)
}
