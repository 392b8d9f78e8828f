package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
	"github.com/akylbek/ar-system/discrepancy-service/internal/interfaces/mocks"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

func newAuth(t *testing.T) (*AuthService, *mocks.MockUserRepository) {
	users := mocks.NewMockUserRepository(gomock.NewController(t))
	return NewAuthService(users, "test-secret", time.Hour), users
}

func TestRegisterAndAuthenticate(t *testing.T) {
	auth, users := newAuth(t)
	ctx := context.Background()

	var stored *models.User
	users.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
		stored = u
		return nil
	})

	u, token, err := auth.Register(ctx, RegisterInput{Email: " Clerk@Example.TEST ", Password: "s3cret!", Name: "Clerk"})
	require.NoError(t, err)
	assert.Equal(t, "clerk@example.test", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.NotEqual(t, "s3cret!", stored.PasswordHash)

	actor, err := auth.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, actor.UserID)
	assert.Equal(t, models.RoleUser, actor.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	auth, users := newAuth(t)

	users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(apperror.ErrDuplicate)

	_, _, err := auth.Register(context.Background(), RegisterInput{Email: "a@b.test", Password: "longenough"})
	requireAppError(t, err, http.StatusConflict, "USER_EXISTS")
}

func TestLogin(t *testing.T) {
	auth, users := newAuth(t)
	ctx := context.Background()
	hash, err := hashPassword("correct horse")
	require.NoError(t, err)
	user := &models.User{ID: "u-1", Email: "m@example.test", PasswordHash: hash, Role: models.RoleManager, IsActive: true}

	users.EXPECT().GetByEmail(gomock.Any(), "m@example.test").Return(user, nil).Times(2)

	_, token, err := auth.Login(ctx, "M@example.test", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, _, err = auth.Login(ctx, "m@example.test", "wrong")
	requireAppError(t, err, http.StatusUnauthorized, "")
}

func TestLoginUnknownUser(t *testing.T) {
	auth, users := newAuth(t)

	users.EXPECT().GetByEmail(gomock.Any(), "ghost@example.test").Return(nil, apperror.ErrNotFound)

	_, _, err := auth.Login(context.Background(), "ghost@example.test", "x")
	requireAppError(t, err, http.StatusUnauthorized, "")
}

func TestAuthenticateRejectsExpiredAndForeignTokens(t *testing.T) {
	auth, _ := newAuth(t)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return issued }

	token, err := auth.issue(&models.User{ID: "u-1", Role: models.RoleAdmin})
	require.NoError(t, err)

	auth.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = auth.Authenticate(token)
	requireAppError(t, err, http.StatusUnauthorized, "")

	other := NewAuthService(nil, "other-secret", time.Hour)
	other.now = func() time.Time { return issued }
	_, err = other.Authenticate(token)
	requireAppError(t, err, http.StatusUnauthorized, "")

	_, err = auth.Authenticate("not-a-jwt")
	requireAppError(t, err, http.StatusUnauthorized, "")
}

func TestChangePassword(t *testing.T) {
	auth, users := newAuth(t)
	ctx := context.Background()
	hash, err := hashPassword("old-password")
	require.NoError(t, err)

	users.EXPECT().GetByID(gomock.Any(), "u-1").Return(&models.User{ID: "u-1", PasswordHash: hash}, nil).Times(2)
	users.EXPECT().UpdatePassword(gomock.Any(), "u-1", gomock.Any()).DoAndReturn(func(_ context.Context, _ string, h string) error {
		assert.NoError(t, comparePassword(h, "new-password"))
		return nil
	})

	err = auth.ChangePassword(ctx, "u-1", "bad-guess", "new-password")
	requireAppError(t, err, http.StatusBadRequest, "INVALID_PASSWORD")

	require.NoError(t, auth.ChangePassword(ctx, "u-1", "old-password", "new-password"))
}
