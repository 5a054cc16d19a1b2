package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
)

type NotificationRepo struct{ db *gorm.DB }

func NewNotificationRepo(db *gorm.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepo) Unread(ctx context.Context, email string) ([]domain.Notification, error) {
	out := []domain.Notification{}
	err := r.db.WithContext(ctx).
		Where("to_email = ? AND is_read = ?", email, false).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *NotificationRepo) CountUnread(ctx context.Context, email string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("to_email = ? AND is_read = ?", email, false).
		Count(&n).Error
	return n, err
}

// MarkAllRead flips every unread notification for email in a single statement.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, email string) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Notification{}).
			Where("to_email = ? AND is_read = ?", email, false).
			Update("is_read", true)
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// MarkRead flips one notification, scoped to its addressee.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, email string) error {
	res := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND to_email = ?", id, email).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
