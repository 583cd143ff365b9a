package entity

import "gorm.io/gorm"

// AutoMigrate creates all stock tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Profile{},
		&ProfileRemnant{},
		&ProfileUsage{},
		&Sheet{},
		&SheetUsage{},
		&MaterialReservation{},
	)
}
