package entity

import "gorm.io/gorm"

// AutoMigrate creates all procurement tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&PurchaseRequest{},
		&PRLine{},
		&SupplierQuote{},
		&QuoteLine{},
	)
}
