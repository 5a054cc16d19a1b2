package domain

import (
	"encoding/json"
	"log"
	"time"

	"gorm.io/datatypes"
)

type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

type Contact struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type Location struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type Listing struct {
	ID            string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title         string         `gorm:"not null" json:"title"`
	Description   string         `json:"description"`
	PricePerDay   float64        `json:"pricePerDay"`
	PricePerMonth float64        `json:"pricePerMonth"`
	Currency      string         `json:"currency"`
	Photos        datatypes.JSON `json:"photos"`
	Address       Address        `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Contact       Contact        `gorm:"embedded;embeddedPrefix:contact_" json:"contact"`
	Location      Location       `gorm:"embedded" json:"location"`
	Bedrooms      int            `gorm:"index" json:"bedrooms"`
	Bathrooms     int            `json:"bathrooms"`
	IsBooked      bool           `gorm:"index" json:"isBooked"`
	BookedUserRef string         `json:"bookedUserRef,omitempty"`
	OwnerEmail    string         `gorm:"index;not null" json:"ownerEmail"`
	PosterID      string         `gorm:"index" json:"posterId"`
	CreatedAt     time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func (Listing) TableName() string { return "annonces" }

// UnitPricePerDay prefers the per-day price and falls back to a 30-day month.
func (l *Listing) UnitPricePerDay() float64 {
	if l.PricePerDay > 0 {
		return l.PricePerDay
	}
	return l.PricePerMonth / 30
}

func (l *Listing) MonthlyPrice() float64 {
	if l.PricePerMonth > 0 {
		return l.PricePerMonth
	}
	return l.PricePerDay * 30
}

func (l *Listing) PhotoURLs() []string {
	var urls []string
	if len(l.Photos) == 0 {
		return urls
	}
	if err := json.Unmarshal(l.Photos, &urls); err != nil {
		log.Printf("[listing] bad photos on %s: %v", l.ID, err)
		return nil
	}
	return urls
}

func (l *Listing) SetPhotoURLs(urls []string) {
	if urls == nil {
		urls = []string{}
	}
	b, _ := json.Marshal(urls)
	l.Photos = datatypes.JSON(b)
}

// UserRef is the document-style reference stored on a booked listing.
func UserRef(userID string) string { return "/users/" + userID }
