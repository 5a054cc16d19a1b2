package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
)

type ReservationRepo struct{ db *gorm.DB }

func NewReservationRepo(db *gorm.DB) *ReservationRepo {
	return &ReservationRepo{db: db}
}

// CreateWithNotification persists a pending reservation and the owner's request
// notification in one transaction.
func (r *ReservationRepo) CreateWithNotification(ctx context.Context, res *domain.Reservation, n *domain.Notification) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.ReservationID = res.ID
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(res).Error; err != nil {
			return err
		}
		return tx.Create(n).Error
	})
}

func (r *ReservationRepo) ByID(ctx context.Context, id string) (*domain.Reservation, error) {
	var res domain.Reservation
	if err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}

// ByOwner lists reservations on the listings posted by ownerID.
func (r *ReservationRepo) ByOwner(ctx context.Context, ownerID string) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *ReservationRepo) ByRenter(ctx context.Context, renterID string) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := r.db.WithContext(ctx).Where("renter_id = ?", renterID).Order("created_at DESC").Find(&out).Error
	return out, err
}

// Decision moves a pending reservation to a terminal status.
type Decision struct {
	ReservationID string
	ActorID       string
	To            domain.ReservationStatus
	// BookListing marks the listing booked for the renter.
	BookListing bool
	// Notify builds the renter's notification from the updated reservation.
	Notify func(*domain.Reservation) *domain.Notification
}

// Decide applies d atomically: status, optional listing booking and the notification
// either all commit or none do. Only the reservation's owner may decide, and only once.
func (r *ReservationRepo) Decide(ctx context.Context, d Decision) (*domain.Reservation, error) {
	var res domain.Reservation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&res, "id = ?", d.ReservationID).Error; err != nil {
			return notFound(err)
		}
		if res.OwnerID == "" || res.OwnerID != d.ActorID {
			return ErrNotOwner
		}
		now := time.Now().UTC()
		upd := tx.Model(&domain.Reservation{}).
			Where("id = ? AND status = ?", res.ID, domain.StatusPending).
			Updates(map[string]any{"status": d.To, "updated_at": now})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return ErrAlreadyDecided
		}
		res.Status = d.To
		res.UpdatedAt = now

		if d.BookListing {
			fields := map[string]any{"is_booked": true, "updated_at": now}
			if res.RenterID != "" {
				fields["booked_user_ref"] = domain.UserRef(res.RenterID)
			}
			lu := tx.Model(&domain.Listing{}).Where("id = ?", res.ListingID).Updates(fields)
			if lu.Error != nil {
				return lu.Error
			}
			if lu.RowsAffected == 0 {
				return ErrListingGone
			}
		}

		if d.Notify != nil {
			n := d.Notify(&res)
			if n.ID == "" {
				n.ID = uuid.NewString()
			}
			if err := tx.Create(n).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}
