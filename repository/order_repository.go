package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gonzalo-olmedo/comicstore/models"
)

type GormOrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Transaction runs fn inside a single database transaction. Any error returned by
// fn rolls back every write made through the OrderTx.
func (r *GormOrderRepository) Transaction(ctx context.Context, fn func(tx OrderTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormOrderTx{db: tx})
	})
}

func (r *GormOrderRepository) FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Order, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("OrderItems.Product").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *GormOrderRepository) FindByIDAndUserID(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("OrderItems.Product").
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

type gormOrderTx struct {
	db *gorm.DB
}

// LockProducts takes row locks in primary key order so concurrent checkouts over
// overlapping carts cannot deadlock.
func (t *gormOrderTx) LockProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&products).Error
	return products, err
}

// DecrementStock reports false when the row no longer holds enough stock.
func (t *gormOrderTx) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (bool, error) {
	result := t.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CreateOrder inserts the header and then its items.
func (t *gormOrderTx) CreateOrder(ctx context.Context, order *models.Order) error {
	items := order.OrderItems
	order.OrderItems = nil
	defer func() { order.OrderItems = items }()

	if err := t.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
		if err := t.db.WithContext(ctx).Omit(clause.Associations).Create(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
