package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Defaults applied to order metadata the buyer leaves empty.
const (
	DefaultOrderState     = "in progress"
	DefaultPaymentMethod  = "credit card"
	DefaultShippingMethod = "express"
	DefaultPaymentStatus  = "paid"
)

// Order is written once at checkout. TotalAmount is computed server side from the
// line prices at that moment and never recomputed.
type Order struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         *uuid.UUID      `gorm:"type:uuid;index"`
	User           *User           `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	State          string          `gorm:"size:45;not null"`
	OrderDate      time.Time       `gorm:"type:date"`
	PaymentMethod  string          `gorm:"size:45;not null"`
	ShippingMethod string          `gorm:"size:45"`
	PaymentStatus  string          `gorm:"size:45"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;index"`
	OrderItems     []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID *uuid.UUID      `gorm:"type:uuid;index"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Quantity  int             `gorm:"not null;check:chk_order_items_quantity,quantity > 0"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}

// ProductLabel is the human readable name shown in order history.
func (i *OrderItem) ProductLabel() string {
	if i.Product == nil {
		return "deleted product"
	}
	return i.Product.String()
}

// Subtotal is unit price times quantity.
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
