package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gonzalo-olmedo/comicstore/models"
)

type GormCategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

func (r *GormCategoryRepository) FindAll(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *GormCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *GormCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *GormCategoryRepository) Update(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Model(category).Update("name", category.Name).Error
}

// Delete removes the category; its products go with it through the foreign key.
func (r *GormCategoryRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Category{})
	return result.RowsAffected, result.Error
}
