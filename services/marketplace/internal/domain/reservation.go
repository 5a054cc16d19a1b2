package domain

import (
	"errors"
	"math"
	"strings"
	"time"
)

type ReservationStatus string

const (
	StatusPending  ReservationStatus = "pending"
	StatusApproved ReservationStatus = "approved"
	StatusDenied   ReservationStatus = "denied"
)

func (s ReservationStatus) Terminal() bool {
	return s == StatusApproved || s == StatusDenied
}

type Reservation struct {
	ID              string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ListingID       string            `gorm:"index;not null" json:"listingId"`
	ListingTitle    string            `json:"listingTitle"`
	OwnerID         string            `gorm:"index;not null" json:"ownerId"`
	OwnerEmail      string            `gorm:"index;not null" json:"ownerEmail"`
	RenterEmail     string            `gorm:"index;not null" json:"renterEmail"`
	RenterID        string            `gorm:"index" json:"renterId"`
	StartDate       string            `gorm:"type:varchar(10)" json:"startDate"`
	EndDate         string            `gorm:"type:varchar(10)" json:"endDate"`
	EstimatedDays   int               `json:"estimatedDays"`
	EstimatedMonths int               `json:"estimatedMonths"`
	TotalPrice      float64           `json:"totalPrice"`
	Currency        string            `json:"currency"`
	Status          ReservationStatus `gorm:"index;not null" json:"status"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

const DateLayout = "2006-01-02"

var (
	ErrMissingDates = errors.New("start and end dates are required")
	ErrBadDate      = errors.New("dates must be YYYY-MM-DD or RFC3339")
	ErrEndNotAfter  = errors.New("end date must be after start date")
)

// ParseDate accepts a calendar date or an RFC3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, ErrBadDate
}

// Stay is the priced length of a reservation request.
type Stay struct {
	Start  time.Time
	End    time.Time
	Days   int
	Months int
}

// NewStay parses and validates a date range. Days is the ceiling of the elapsed
// days with a minimum of one.
func NewStay(start, end string) (Stay, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return Stay{}, ErrMissingDates
	}
	s, err := ParseDate(start)
	if err != nil {
		return Stay{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return Stay{}, err
	}
	if !e.After(s) {
		return Stay{}, ErrEndNotAfter
	}
	days := int(math.Ceil(e.Sub(s).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return Stay{Start: s, End: e, Days: days, Months: MonthsFor(days)}, nil
}

func MonthsFor(days int) int {
	m := int(math.Ceil(float64(days) / 30))
	if m < 1 {
		m = 1
	}
	return m
}

func (s Stay) Total(unitPerDay float64) float64 {
	return float64(s.Days) * unitPerDay
}
