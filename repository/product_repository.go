package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gonzalo-olmedo/comicstore/models"
)

type GormProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindAll(ctx context.Context, filter ProductFilter, offset, limit int) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})

	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		query = query.Where("name ILIKE ?", "%"+s+"%")
	}
	if filter.InStock != nil {
		if *filter.InStock {
			query = query.Where("stock > 0")
		} else {
			query = query.Where("stock = 0")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormProductRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Category").Create(product).Error
}

// Update writes only the given columns, so stock decremented by a concurrent
// checkout is never written back unless the caller sets it.
func (r *GormProductRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormProductRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	return result.RowsAffected, result.Error
}
