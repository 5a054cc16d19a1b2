package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
)

var (
	ErrNotFound       = errors.New("not_found")
	ErrEmailTaken     = errors.New("email_taken")
	ErrNotOwner       = errors.New("not_owner")
	ErrAlreadyDecided = errors.New("already_decided")
	ErrListingGone    = errors.New("listing_gone")
)

// Migrate creates or updates every marketplace table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.UserProfile{},
		&domain.Credential{},
		&domain.Listing{},
		&domain.Reservation{},
		&domain.Notification{},
		&domain.EventConsumed{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func paginate(page, size int) (limit, offset int) {
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	if page < 0 {
		page = 0
	}
	return size, page * size
}
