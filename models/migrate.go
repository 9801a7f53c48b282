package models

import "gorm.io/gorm"

// All lists every persisted model in dependency order.
func All() []interface{} {
	return []interface{}{
		&Role{},
		&User{},
		&RefreshToken{},
		&Category{},
		&Product{},
		&Order{},
		&OrderItem{},
	}
}

// Migrate function for auto migration
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
