package domain

import "time"

type NotificationType string

const (
	NotificationReservationRequest NotificationType = "reservation_request"
	NotificationReservationStatus  NotificationType = "reservation_status"
)

type Notification struct {
	ID            string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ToEmail       string           `gorm:"index:idx_notifications_inbox;not null" json:"toEmail"`
	Type          NotificationType `gorm:"not null" json:"type"`
	Message       string           `json:"message"`
	ListingID     string           `json:"listingId,omitempty"`
	ReservationID string           `json:"reservationId,omitempty"`
	Read          bool             `gorm:"column:is_read;index:idx_notifications_inbox;not null;default:false" json:"read"`
	CreatedAt     time.Time        `json:"createdAt"`
}
