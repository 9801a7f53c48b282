package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogCache is the invalidation side of the catalog read cache.
type CatalogCache interface {
	Invalidate(ctx context.Context) error
	InvalidateProduct(ctx context.Context, productID string)
}

// MetricsRecorder receives business counters.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

// ListProductsParams contains parameters for listing products with filters
type ListProductsParams struct {
	Page       int
	PerPage    int
	CategoryID *uuid.UUID
	Search     string
	InStock    *bool
}

// ProductInput carries product fields for create and partial update. Nil
// fields are left untouched on update and must be present on create where
// the column is required.
type ProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Discount    *int
	Stock       *int
	Pages       *int
	Format      *string
	Weight      *decimal.Decimal
	ISBN        *string
	CategoryID  *uuid.UUID
	Rating      *decimal.Decimal
}

type CategoryInput struct {
	Name string `json:"name" binding:"required,max=45"`
}
