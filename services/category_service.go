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

type CategoryService interface {
	List(ctx context.Context) ([]models.Category, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Create(ctx context.Context, in CategoryInput) (*models.Category, error)
	Update(ctx context.Context, id uuid.UUID, in CategoryInput) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type categoryServiceImpl struct {
	repo   repository.CategoryRepo
	cache  CatalogCache
	logger *zap.Logger
}

func NewCategoryService(repo repository.CategoryRepo, cache CatalogCache, logger *zap.Logger) CategoryService {
	return &categoryServiceImpl{repo: repo, cache: cache, logger: logger}
}

var errCategoryNotFound = apperrors.WithMessage(apperrors.ErrNotFound, "category not found")

func (s *categoryServiceImpl) List(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

func (s *categoryServiceImpl) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return category, nil
}

func (s *categoryServiceImpl) Create(ctx context.Context, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.Validation("Validation error", map[string]string{"name": "name is required"})
	}
	category := &models.Category{Name: name}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.invalidate(ctx)
	return category, nil
}

func (s *categoryServiceImpl) Update(ctx context.Context, id uuid.UUID, in CategoryInput) (*models.Category, error) {
	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.Validation("Validation error", map[string]string{"name": "name is required"})
	}
	category.Name = name
	if err := s.repo.Update(ctx, category); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.invalidate(ctx)
	return category, nil
}

// Delete also removes the category's products through the foreign key.
func (s *categoryServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if n == 0 {
		return errCategoryNotFound
	}
	s.invalidate(ctx)
	s.logger.Info("Category deleted", zap.String("category_id", id.String()))
	return nil
}

func (s *categoryServiceImpl) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("Catalog cache invalidation failed", zap.Error(err))
	}
}
