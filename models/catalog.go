package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name string    `gorm:"size:45;not null" json:"name"`
}

// Product is a sellable catalog entry. Stock never drops below zero; the check
// constraint backs up the conditional decrement done at checkout.
type Product struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string           `gorm:"size:100;not null;index" json:"name"`
	Description string           `gorm:"size:5000;not null" json:"description"`
	Price       decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"price"`
	Discount    *int             `json:"discount"`
	Stock       int              `gorm:"not null;check:chk_products_stock,stock >= 0" json:"stock"`
	Image       *string          `gorm:"size:500" json:"image"`
	Pages       *int             `json:"pages"`
	Format      *string          `gorm:"size:45" json:"format"`
	Weight      *decimal.Decimal `gorm:"type:decimal(10,2)" json:"weight"`
	ISBN        *string          `gorm:"column:isbn;size:45" json:"isbn"`
	CategoryID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"category"`
	Category    *Category        `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Rating      *decimal.Decimal `gorm:"type:decimal(4,1);check:chk_products_rating,rating >= 0 AND rating <= 5" json:"rating"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) String() string {
	return p.Name
}
