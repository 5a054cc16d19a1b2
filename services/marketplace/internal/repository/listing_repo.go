package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
)

type ListingRepo struct{ db *gorm.DB }

func NewListingRepo(db *gorm.DB) *ListingRepo {
	return &ListingRepo{db: db}
}

func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *ListingRepo) ByID(ctx context.Context, id string) (*domain.Listing, error) {
	var l domain.Listing
	if err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

type ListingFilter struct {
	// Destination matches title, description, street, city or country, case-insensitively.
	Destination string
	MinRooms    int
	OwnerEmail  string
	Page        int
	Size        int
}

// List returns matching listings newest first. Size 0 returns every match.
func (r *ListingRepo) List(ctx context.Context, f ListingFilter) ([]domain.Listing, error) {
	qb := r.db.WithContext(ctx).Model(&domain.Listing{})
	if d := strings.ToLower(strings.TrimSpace(f.Destination)); d != "" {
		like := "%" + d + "%"
		qb = qb.Where(
			"(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(address_street) LIKE ? OR LOWER(address_city) LIKE ? OR LOWER(address_country) LIKE ?)",
			like, like, like, like, like,
		)
	}
	if f.MinRooms > 0 {
		qb = qb.Where("bedrooms >= ?", f.MinRooms)
	}
	if f.OwnerEmail != "" {
		qb = qb.Where("owner_email = ?", f.OwnerEmail)
	}
	qb = qb.Order("created_at DESC")
	if f.Size > 0 {
		limit, offset := paginate(f.Page, f.Size)
		qb = qb.Limit(limit).Offset(offset)
	}
	var out []domain.Listing
	if err := qb.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ListingRepo) Counts(ctx context.Context) (total, booked int64, err error) {
	db := r.db.WithContext(ctx).Model(&domain.Listing{})
	if err = db.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.WithContext(ctx).Model(&domain.Listing{}).Where("is_booked = ?", true).Count(&booked).Error
	return total, booked, err
}
