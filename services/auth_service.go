package services

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "github.com/gonzalo-olmedo/comicstore/common/errors"
	"github.com/gonzalo-olmedo/comicstore/models"
	"github.com/gonzalo-olmedo/comicstore/repository"
)

type ITokenService interface {
	GenerateTokenPair(userID, email, role string) (*IssuedTokens, error)
	ValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error)
}

type RegisterInput struct {
	Email     string `json:"email" form:"email" binding:"required,email,max=254"`
	Password  string `json:"password" form:"password" binding:"required"`
	FirstName string `json:"first_name" form:"first_name" binding:"required,max=30"`
	LastName  string `json:"last_name" form:"last_name" binding:"required,max=30"`
	Address   string `json:"address" form:"address" binding:"required,max=255"`
	Phone     string `json:"phone" form:"phone" binding:"required,max=20"`
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Tokens *TokenPair
	User   *models.User
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error
	VerifyToken(token string) error
	EnsureAdmin(ctx context.Context, email, password string) error
}

type authServiceImpl struct {
	userRepo     repository.UserRepository
	roleRepo     repository.RoleRepository
	tokenService ITokenService
	passwords    *PasswordValidator
	defaultRole  string
	logger       *zap.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	tokenService ITokenService,
	defaultRole string,
	logger *zap.Logger,
) AuthService {
	if defaultRole == "" {
		defaultRole = string(models.RoleCustomer)
	}
	return &authServiceImpl{
		userRepo:     userRepo,
		roleRepo:     roleRepo,
		tokenService: tokenService,
		passwords:    NewPasswordValidator(),
		defaultRole:  defaultRole,
		logger:       logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authServiceImpl) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if err := s.passwords.ValidatePassword(in.Password); err != nil {
		return nil, apperrors.Validation("Validation error", map[string]string{"password": err.Error()})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Email:     email,
		Password:  string(hashed),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Address:   strings.TrimSpace(in.Address),
		Phone:     strings.TrimSpace(in.Phone),
		IsActive:  true,
	}

	role, err := s.roleRepo.FindByName(ctx, s.defaultRole)
	switch {
	case err == nil:
		user.RoleID = &role.ID
		user.Role = role
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Warn("Default role missing, registering without role", zap.String("role", s.defaultRole))
	default:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	err = s.userRepo.Transaction(ctx, func(tx repository.UserRepository) error {
		if _, err := tx.FindByEmail(ctx, email); err == nil {
			return apperrors.WithMessage(apperrors.ErrConflict, "email already registered")
		} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(ctx, user)
	})
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Login answers every failure with the same message so callers cannot discover
// which emails exist.
func (s *authServiceImpl) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("Login lookup failed", zap.Error(err))
		}
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	tokens, err := s.issue(ctx, user.ID, user.Email, string(user.RoleKind()))
	if err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: tokens, User: user}, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new pair issued.
func (s *authServiceImpl) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenService.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidToken, err)
	}
	tokenID, _ := claims["jti"].(string)
	if tokenID == "" {
		return nil, apperrors.ErrInvalidToken
	}

	stored, err := s.userRepo.GetRefreshTokenByTokenID(ctx, tokenID)
	if err != nil || !stored.Usable(timeNow()) {
		return nil, apperrors.ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, stored.UserID)
	if err != nil || !user.IsActive {
		return nil, apperrors.ErrInvalidToken
	}

	revoked, err := s.userRepo.RevokeRefreshTokenByTokenID(ctx, tokenID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if revoked == 0 {
		// lost a race with another refresh or a logout
		return nil, apperrors.ErrInvalidToken
	}

	return s.issue(ctx, user.ID, user.Email, string(user.RoleKind()))
}

func (s *authServiceImpl) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	if refreshToken == "" {
		if err := s.userRepo.RevokeAllUserRefreshTokens(ctx, userID); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	}

	claims, err := s.tokenService.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidToken, err)
	}
	tokenID, _ := claims["jti"].(string)
	stored, err := s.userRepo.GetRefreshTokenByTokenID(ctx, tokenID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidToken
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if stored.UserID != userID {
		return apperrors.WithMessage(apperrors.ErrForbidden, "refresh token does not belong to the current user")
	}

	if _, err := s.userRepo.RevokeRefreshTokenByTokenID(ctx, tokenID); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.logger.Info("User logged out", zap.String("user_id", userID.String()))
	return nil
}

func (s *authServiceImpl) VerifyToken(token string) error {
	if _, err := s.tokenService.ValidateToken(token, ""); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidToken, err)
	}
	return nil
}

// EnsureAdmin creates a superuser with the given credentials unless the email is
// already taken. Empty credentials skip the bootstrap.
func (s *authServiceImpl) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &models.User{
		Email:       email,
		Password:    string(hashed),
		FirstName:   "Admin",
		LastName:    "Admin",
		IsActive:    true,
		IsStaff:     true,
		IsSuperuser: true,
	}
	if role, err := s.roleRepo.FindByName(ctx, string(models.RoleAdmin)); err == nil {
		admin.RoleID = &role.ID
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return err
	}
	s.logger.Info("Bootstrap admin created", zap.String("email", email))
	return nil
}

func (s *authServiceImpl) issue(ctx context.Context, userID uuid.UUID, email, role string) (*TokenPair, error) {
	issued, err := s.tokenService.GenerateTokenPair(userID.String(), email, role)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	rt := &models.RefreshToken{
		TokenID:   issued.RefreshTokenID,
		UserID:    userID,
		ExpiresAt: issued.RefreshExpiresAt,
	}
	if err := s.userRepo.CreateRefreshToken(ctx, rt); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &issued.TokenPair, nil
}
