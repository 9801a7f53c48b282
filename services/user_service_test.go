package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "github.com/gonzalo-olmedo/comicstore/common/errors"
	"github.com/gonzalo-olmedo/comicstore/models"
)

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	current := &models.User{ID: userID, Email: "ana@example.com", FirstName: "Eva"}

	t.Run("only editable columns are written", func(t *testing.T) {
		repo := new(MockUserRepository)
		uploader := &fakeUploader{url: "https://cdn.example.com/products/me.png"}
		svc := NewUserService(repo, uploader, testLogger)

		repo.On("UpdateProfile", ctx, userID, mock.MatchedBy(func(fields map[string]interface{}) bool {
			for _, forbidden := range []string{"role_id", "is_staff", "is_superuser", "is_active", "email"} {
				if _, ok := fields[forbidden]; ok {
					return false
				}
			}
			return fields["first_name"] == "Eva" && fields["image"] == uploader.url && len(fields) == 2
		})).Return(nil).Once()
		repo.On("FindByID", ctx, userID).Return(current, nil).Once()

		user, err := svc.UpdateProfile(ctx, userID, UpdateProfileInput{FirstName: strPtr(" Eva ")},
			newFileHeader("me.png", "image/png", 100))
		require.NoError(t, err)
		assert.Equal(t, "Eva", user.FirstName)
		assert.Equal(t, 1, uploader.calls)
		repo.AssertExpectations(t)
	})

	t.Run("password is rehashed and sessions revoked", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewUserService(repo, nil, testLogger)

		repo.On("UpdateProfile", ctx, userID, mock.MatchedBy(func(fields map[string]interface{}) bool {
			hash, ok := fields["password"].(string)
			return ok && bcrypt.CompareHashAndPassword([]byte(hash), []byte("newpass123")) == nil
		})).Return(nil).Once()
		repo.On("RevokeAllUserRefreshTokens", ctx, userID).Return(nil).Once()
		repo.On("FindByID", ctx, userID).Return(current, nil).Once()

		_, err := svc.UpdateProfile(ctx, userID, UpdateProfileInput{Password: strPtr("newpass123")}, nil)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("weak password rejected", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewUserService(repo, nil, testLogger)

		_, err := svc.UpdateProfile(ctx, userID, UpdateProfileInput{Password: strPtr("short")}, nil)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		repo.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("password beyond the bcrypt limit rejected", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewUserService(repo, nil, testLogger)

		_, err := svc.UpdateProfile(ctx, userID, UpdateProfileInput{Password: strPtr(strings.Repeat("a1", 40))}, nil)
		require.ErrorIs(t, err, apperrors.ErrValidation)
		appErr, _ := apperrors.As(err)
		assert.Equal(t, ErrPasswordTooLong.Error(), appErr.Fields["password"])
		repo.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("oversized avatar rejected", func(t *testing.T) {
		repo := new(MockUserRepository)
		uploader := &fakeUploader{}
		svc := NewUserService(repo, uploader, testLogger)

		_, err := svc.UpdateProfile(ctx, userID, UpdateProfileInput{}, newFileHeader("me.png", "image/png", int(MaxImageSize)+1))
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Zero(t, uploader.calls)
	})
}

func TestGetProfileNotFound(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewUserService(repo, nil, testLogger)
	id := uuid.New()
	repo.On("FindByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound).Once()

	_, err := svc.GetProfile(context.Background(), id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
