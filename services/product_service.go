package services

import (
	"context"
	stderrors "errors"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/gonzalo-olmedo/comicstore/common/errors"
	"github.com/gonzalo-olmedo/comicstore/models"
	aws_pkg "github.com/gonzalo-olmedo/comicstore/pkg/aws"
	"github.com/gonzalo-olmedo/comicstore/repository"
)

type ProductService interface {
	List(ctx context.Context, params ListProductsParams) ([]models.Product, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, in ProductInput, image *multipart.FileHeader) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, in ProductInput, image *multipart.FileHeader) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type productServiceImpl struct {
	productRepo  repository.ProductRepo
	categoryRepo repository.CategoryRepo
	uploader     ImageUploader
	cache        CatalogCache
	metrics      MetricsRecorder
	logger       *zap.Logger
}

func NewProductService(
	productRepo repository.ProductRepo,
	categoryRepo repository.CategoryRepo,
	uploader ImageUploader,
	cache CatalogCache,
	metrics MetricsRecorder,
	logger *zap.Logger,
) ProductService {
	return &productServiceImpl{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		uploader:     uploader,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
	}
}

var (
	errProductNotFound = apperrors.WithMessage(apperrors.ErrNotFound, "product not found")
	maxRating          = decimal.NewFromInt(5)
)

func (s *productServiceImpl) List(ctx context.Context, params ListProductsParams) ([]models.Product, int64, error) {
	filter := repository.ProductFilter{
		CategoryID: params.CategoryID,
		Search:     params.Search,
		InStock:    params.InStock,
	}
	offset := (params.Page - 1) * params.PerPage
	products, total, err := s.productRepo.FindAll(ctx, filter, offset, params.PerPage)
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return products, total, nil
}

func (s *productServiceImpl) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errProductNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return product, nil
}

func (s *productServiceImpl) Create(ctx context.Context, in ProductInput, image *multipart.FileHeader) (*models.Product, error) {
	fields := map[string]string{}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		fields["name"] = "name is required"
	}
	if in.Description == nil {
		fields["description"] = "description is required"
	}
	if in.Price == nil {
		fields["price"] = "price is required"
	}
	if in.Stock == nil {
		fields["stock"] = "stock is required"
	}
	if in.CategoryID == nil {
		fields["category"] = "category is required"
	}
	validateProductValues(in, fields)
	if len(fields) > 0 {
		return nil, apperrors.Validation("Validation error", fields)
	}
	if err := ValidateImage(image); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, *in.CategoryID); err != nil {
		return nil, err
	}

	product := &models.Product{}
	applyProductInput(product, in)

	if image != nil {
		url, err := uploadImage(ctx, s.uploader, image, s.logger)
		if err != nil {
			return nil, err
		}
		product.Image = &url
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.logger.Info("Product created", zap.String("product_id", product.ID.String()), zap.String("name", product.Name))
	if s.metrics != nil {
		_ = s.metrics.RecordCount(ctx, aws_pkg.MetricProductsCreated, nil)
	}
	s.invalidate(ctx, product.ID)
	return product, nil
}

func (s *productServiceImpl) Update(ctx context.Context, id uuid.UUID, in ProductInput, image *multipart.FileHeader) (*models.Product, error) {
	fields := map[string]string{}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		fields["name"] = "name must not be empty"
	}
	validateProductValues(in, fields)
	if len(fields) > 0 {
		return nil, apperrors.Validation("Validation error", fields)
	}
	if err := ValidateImage(image); err != nil {
		return nil, err
	}

	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.CategoryID != nil && *in.CategoryID != product.CategoryID {
		if err := s.ensureCategory(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
	}

	changes := productChanges(in)
	if image != nil {
		url, err := uploadImage(ctx, s.uploader, image, s.logger)
		if err != nil {
			return nil, err
		}
		changes["image"] = url
	}

	if err := s.productRepo.Update(ctx, product.ID, changes); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errProductNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.invalidate(ctx, product.ID)
	return s.Get(ctx, id)
}

func (s *productServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.productRepo.Delete(ctx, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if n == 0 {
		return errProductNotFound
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *productServiceImpl) ensureCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.categoryRepo.FindByID(ctx, id); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Validation("Validation error", map[string]string{"category": "category does not exist"})
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *productServiceImpl) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache != nil {
		s.cache.InvalidateProduct(ctx, id.String())
	}
}

func validateProductValues(in ProductInput, fields map[string]string) {
	if in.Name != nil && len(*in.Name) > 100 {
		fields["name"] = "name must be at most 100 characters"
	}
	if in.Description != nil && len(*in.Description) > 5000 {
		fields["description"] = "description must be at most 5000 characters"
	}
	if in.Price != nil && !in.Price.IsPositive() {
		fields["price"] = "price must be greater than zero"
	}
	if in.Stock != nil && *in.Stock < 0 {
		fields["stock"] = "stock must not be negative"
	}
	if in.Discount != nil && (*in.Discount < 0 || *in.Discount > 100) {
		fields["discount"] = "discount must be between 0 and 100"
	}
	if in.Pages != nil && *in.Pages < 0 {
		fields["pages"] = "pages must not be negative"
	}
	if in.Weight != nil && in.Weight.IsNegative() {
		fields["weight"] = "weight must not be negative"
	}
	if in.Rating != nil && (in.Rating.IsNegative() || in.Rating.GreaterThan(maxRating)) {
		fields["rating"] = "rating must be between 0 and 5"
	}
}

// productChanges maps the supplied fields of a partial update onto their
// columns. Absent fields are left out so the row keeps its current values.
func productChanges(in ProductInput) map[string]interface{} {
	fields := map[string]interface{}{}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Price != nil {
		fields["price"] = in.Price.Round(2)
	}
	if in.Discount != nil {
		fields["discount"] = *in.Discount
	}
	if in.Stock != nil {
		fields["stock"] = *in.Stock
	}
	if in.Pages != nil {
		fields["pages"] = *in.Pages
	}
	if in.Format != nil {
		fields["format"] = *in.Format
	}
	if in.Weight != nil {
		fields["weight"] = *in.Weight
	}
	if in.ISBN != nil {
		fields["isbn"] = *in.ISBN
	}
	if in.CategoryID != nil {
		fields["category_id"] = *in.CategoryID
	}
	if in.Rating != nil {
		fields["rating"] = in.Rating.Round(1)
	}
	return fields
}

func applyProductInput(p *models.Product, in ProductInput) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = in.Price.Round(2)
	}
	if in.Discount != nil {
		p.Discount = in.Discount
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Pages != nil {
		p.Pages = in.Pages
	}
	if in.Format != nil {
		p.Format = in.Format
	}
	if in.Weight != nil {
		p.Weight = in.Weight
	}
	if in.ISBN != nil {
		p.ISBN = in.ISBN
	}
	if in.CategoryID != nil {
		p.CategoryID = *in.CategoryID
	}
	if in.Rating != nil {
		r := in.Rating.Round(1)
		p.Rating = &r
	}
}
