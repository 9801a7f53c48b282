package services

import (
	"context"
	stderrors "errors"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "github.com/gonzalo-olmedo/comicstore/common/errors"
	"github.com/gonzalo-olmedo/comicstore/models"
	"github.com/gonzalo-olmedo/comicstore/repository"
)

// UpdateProfileInput lists the only fields a user may change on their own
// account. Nil means "leave as is".
type UpdateProfileInput struct {
	FirstName *string `json:"first_name" form:"first_name" binding:"omitempty,max=30"`
	LastName  *string `json:"last_name" form:"last_name" binding:"omitempty,max=30"`
	Address   *string `json:"address" form:"address" binding:"omitempty,max=255"`
	Phone     *string `json:"phone" form:"phone" binding:"omitempty,max=20"`
	Password  *string `json:"password" form:"password"`
}

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput, image *multipart.FileHeader) (*models.User, error)
}

type userServiceImpl struct {
	repo      repository.UserRepository
	uploader  ImageUploader
	passwords *PasswordValidator
	logger    *zap.Logger
}

func NewUserService(repo repository.UserRepository, uploader ImageUploader, logger *zap.Logger) UserService {
	return &userServiceImpl{
		repo:      repo,
		uploader:  uploader,
		passwords: NewPasswordValidator(),
		logger:    logger,
	}
}

func (s *userServiceImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrNotFound, "user not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user, nil
}

func (s *userServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput, image *multipart.FileHeader) (*models.User, error) {
	if err := ValidateImage(image); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	setTrimmed := func(column string, v *string) {
		if v != nil {
			fields[column] = strings.TrimSpace(*v)
		}
	}
	setTrimmed("first_name", in.FirstName)
	setTrimmed("last_name", in.LastName)
	setTrimmed("address", in.Address)
	setTrimmed("phone", in.Phone)

	if in.Password != nil && *in.Password != "" {
		if err := s.passwords.ValidatePassword(*in.Password); err != nil {
			return nil, apperrors.Validation("Validation error", map[string]string{"password": err.Error()})
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		fields["password"] = string(hashed)
	}

	if image != nil {
		url, err := uploadImage(ctx, s.uploader, image, s.logger)
		if err != nil {
			return nil, err
		}
		fields["image"] = url
	}

	if err := s.repo.UpdateProfile(ctx, userID, fields); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrNotFound, "user not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if _, ok := fields["password"]; ok {
		// a new password ends every existing session
		if err := s.repo.RevokeAllUserRefreshTokens(ctx, userID); err != nil {
			s.logger.Warn("Failed to revoke refresh tokens after password change", zap.Error(err))
		}
	}

	return s.GetProfile(ctx, userID)
}
