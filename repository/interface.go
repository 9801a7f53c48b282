package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/gonzalo-olmedo/comicstore/models"
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Transaction(ctx context.Context, fn func(repo UserRepository) error) error

	CreateRefreshToken(ctx context.Context, rt *models.RefreshToken) error
	GetRefreshTokenByTokenID(ctx context.Context, tokenID string) (*models.RefreshToken, error)
	RevokeRefreshTokenByTokenID(ctx context.Context, tokenID string) (int64, error)
	RevokeAllUserRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

type RoleRepository interface {
	FindAll(ctx context.Context) ([]models.Role, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Role, error)
	FindByName(ctx context.Context, name string) (*models.Role, error)
	Create(ctx context.Context, role *models.Role) error
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type CategoryRepo interface {
	FindAll(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

// ProductFilter narrows product listings. Zero values mean "no filter".
type ProductFilter struct {
	CategoryID *uuid.UUID
	Search     string
	InStock    *bool
}

type ProductRepo interface {
	FindAll(ctx context.Context, filter ProductFilter, offset, limit int) ([]models.Product, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

// OrderTx exposes the locked primitives order placement needs. It is only valid
// inside OrderRepository.Transaction.
type OrderTx interface {
	LockProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (bool, error)
	CreateOrder(ctx context.Context, order *models.Order) error
}

type OrderRepository interface {
	Transaction(ctx context.Context, fn func(tx OrderTx) error) error
	FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Order, int64, error)
	FindByIDAndUserID(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
}
