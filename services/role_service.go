package services

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/gonzalo-olmedo/comicstore/common/errors"
	"github.com/gonzalo-olmedo/comicstore/models"
	"github.com/gonzalo-olmedo/comicstore/repository"
)

type RoleInput struct {
	Name  string  `json:"name" binding:"required,max=45"`
	Group *string `json:"group" binding:"omitempty,max=45"`
}

type RoleService interface {
	List(ctx context.Context) ([]models.Role, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Role, error)
	Create(ctx context.Context, in RoleInput) (*models.Role, error)
	Update(ctx context.Context, id uuid.UUID, in RoleInput) (*models.Role, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SeedDefaults(ctx context.Context) error
}

type roleServiceImpl struct {
	repo   repository.RoleRepository
	logger *zap.Logger
}

func NewRoleService(repo repository.RoleRepository, logger *zap.Logger) RoleService {
	return &roleServiceImpl{repo: repo, logger: logger}
}

var errRoleNotFound = apperrors.WithMessage(apperrors.ErrNotFound, "role not found")

func (s *roleServiceImpl) List(ctx context.Context) ([]models.Role, error) {
	roles, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return roles, nil
}

func (s *roleServiceImpl) Get(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errRoleNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return role, nil
}

func (s *roleServiceImpl) Create(ctx context.Context, in RoleInput) (*models.Role, error) {
	name := strings.TrimSpace(in.Name)
	if err := s.ensureNameFree(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}
	role := &models.Role{Name: name, Group: in.Group}
	if err := s.repo.Create(ctx, role); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.logger.Info("Role created", zap.String("name", role.Name))
	return role, nil
}

func (s *roleServiceImpl) Update(ctx context.Context, id uuid.UUID, in RoleInput) (*models.Role, error) {
	role, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if err := s.ensureNameFree(ctx, name, id); err != nil {
		return nil, err
	}
	role.Name = name
	role.Group = in.Group
	if err := s.repo.Update(ctx, role); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return role, nil
}

func (s *roleServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if n == 0 {
		return errRoleNotFound
	}
	s.logger.Info("Role deleted", zap.String("role_id", id.String()))
	return nil
}

// SeedDefaults creates the built-in roles that do not exist yet.
func (s *roleServiceImpl) SeedDefaults(ctx context.Context) error {
	for _, name := range models.DefaultRoleNames {
		_, err := s.repo.FindByName(ctx, name)
		if err == nil {
			continue
		}
		if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := s.repo.Create(ctx, &models.Role{Name: name}); err != nil {
			return err
		}
		s.logger.Info("Seeded role", zap.String("name", name))
	}
	return nil
}

func (s *roleServiceImpl) ensureNameFree(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.repo.FindByName(ctx, name)
	if err == nil && existing.ID != self {
		return apperrors.WithMessage(apperrors.ErrConflict, "role name already exists")
	}
	if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
