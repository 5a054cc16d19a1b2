package domain

// Routing keys on the marketplace exchange.
const (
	RKUserCreated            = "user.created"
	RKPasswordResetRequested = "user.password_reset_requested"
	RKReservationRequested   = "reservation.requested"
	RKReservationApproved    = "reservation.approved"
	RKReservationDenied      = "reservation.denied"
)

type UserCreated struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

type PasswordResetRequested struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

type ReservationEvent struct {
	ReservationID string  `json:"reservation_id"`
	ListingID     string  `json:"listing_id"`
	ListingTitle  string  `json:"listing_title"`
	OwnerEmail    string  `json:"owner_email"`
	RenterEmail   string  `json:"renter_email"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	TotalPrice    float64 `json:"total_price"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
}

func NewReservationEvent(r *Reservation) ReservationEvent {
	return ReservationEvent{
		ReservationID: r.ID,
		ListingID:     r.ListingID,
		ListingTitle:  r.ListingTitle,
		OwnerEmail:    r.OwnerEmail,
		RenterEmail:   r.RenterEmail,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		TotalPrice:    r.TotalPrice,
		Currency:      r.Currency,
		Status:        string(r.Status),
	}
}
