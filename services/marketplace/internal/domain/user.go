package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// UserProfile is the public record of an account. Role is authoritative for access checks.
type UserProfile struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName string    `json:"displayName"`
	Phone       string    `json:"phone"`
	Role        Role      `gorm:"index;not null" json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (UserProfile) TableName() string { return "users" }

// Credential is the auth-provider side of an account.
type Credential struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	DisplayName  string
	RoleClaim    Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the authenticated caller resolved for one request.
type Principal struct {
	UserID    string
	Email     string
	SessionID string
}

// Session is a live login registered in the session store.
type Session struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	Email    string    `json:"email"`
	IssuedAt time.Time `json:"issuedAt"`
}

// SessionState is one element of the live session sequence; Session is nil when signed out.
type SessionState struct {
	Session *Session `json:"session"`
	Role    Role     `json:"role,omitempty"`
}

// EventConsumed records a processed message id for idempotent consumers.
type EventConsumed struct {
	ID          string `gorm:"primaryKey"`
	EventKey    string `gorm:"index"`
	ProcessedAt time.Time
}
