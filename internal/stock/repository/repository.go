package repository

import "gorm.io/gorm"

// Repositories is the stock repository collection.
type Repositories struct {
	Profile     *ProfileRepository
	Remnant     *RemnantRepository
	Usage       *UsageRepository
	Sheet       *SheetRepository
	Reservation *ReservationRepository
}

// NewRepositories wires all stock repositories onto one DB handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Profile:     NewProfileRepository(db),
		Remnant:     NewRemnantRepository(db),
		Usage:       NewUsageRepository(db),
		Sheet:       NewSheetRepository(db),
		Reservation: NewReservationRepository(db),
	}
}
