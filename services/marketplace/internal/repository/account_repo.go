package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
)

// AccountRepo owns the users (profiles) and credentials tables.
type AccountRepo struct{ db *gorm.DB }

func NewAccountRepo(db *gorm.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// Create writes the credential and its profile together.
func (r *AccountRepo) Create(ctx context.Context, c *domain.Credential, p *domain.UserProfile) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	p.ID = c.ID
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Credential{}).Where("email = ?", c.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return tx.Create(p).Error
	})
}

func (r *AccountRepo) CredentialByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	var c domain.Credential
	if err := r.db.WithContext(ctx).First(&c, "email = ?", email).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *AccountRepo) CredentialByID(ctx context.Context, id string) (*domain.Credential, error) {
	var c domain.Credential
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *AccountRepo) ProfileByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *AccountRepo) ProfileByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := r.db.WithContext(ctx).First(&p, "email = ?", email).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// AccountChanges lists fields to update; empty strings are left untouched.
type AccountChanges struct {
	Email        string
	DisplayName  string
	Phone        string
	PasswordHash string
}

// Update applies changes to both the credential and profile rows. Role is never touched here.
// An email change also moves every row addressed to the old email in the same transaction.
func (r *AccountRepo) Update(ctx context.Context, id string, ch AccountChanges) (*domain.UserProfile, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur domain.Credential
		if err := tx.First(&cur, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		cred := map[string]any{}
		prof := map[string]any{}
		if ch.Email != "" && ch.Email != cur.Email {
			var n int64
			if err := tx.Model(&domain.Credential{}).Where("email = ? AND id <> ?", ch.Email, id).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return ErrEmailTaken
			}
			cred["email"] = ch.Email
			prof["email"] = ch.Email
		}
		if ch.DisplayName != "" {
			cred["display_name"] = ch.DisplayName
			prof["display_name"] = ch.DisplayName
		}
		if ch.Phone != "" {
			prof["phone"] = ch.Phone
		}
		if ch.PasswordHash != "" {
			cred["password_hash"] = ch.PasswordHash
		}
		if len(cred) > 0 {
			res := tx.Model(&domain.Credential{}).Where("id = ?", id).Updates(cred)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
		}
		if len(prof) > 0 {
			if err := tx.Model(&domain.UserProfile{}).Where("id = ?", id).Updates(prof).Error; err != nil {
				return err
			}
		}
		if _, ok := cred["email"]; ok {
			return moveEmail(tx, id, cur.Email, ch.Email)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.ProfileByID(ctx, id)
}

func (r *AccountRepo) SetRole(ctx context.Context, id string, role domain.Role) (*domain.UserProfile, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.UserProfile{}).Where("id = ?", id).Update("role", role)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&domain.Credential{}).Where("id = ?", id).Update("role_claim", role).Error
	})
	if err != nil {
		return nil, err
	}
	return r.ProfileByID(ctx, id)
}

// moveEmail rewrites the denormalized copies of an account's email.
func moveEmail(tx *gorm.DB, id, from, to string) error {
	steps := []struct {
		model  any
		where  string
		args   []any
		column string
	}{
		{&domain.Listing{}, "poster_id = ?", []any{id}, "owner_email"},
		{&domain.Listing{}, "poster_id = ? AND contact_email = ?", []any{id, from}, "contact_email"},
		{&domain.Reservation{}, "owner_id = ?", []any{id}, "owner_email"},
		{&domain.Reservation{}, "renter_id = ?", []any{id}, "renter_email"},
		{&domain.Notification{}, "to_email = ?", []any{from}, "to_email"},
	}
	for _, st := range steps {
		if err := tx.Model(st.model).Where(st.where, st.args...).Update(st.column, to).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the profile, the credential and the account's inbox. Missing rows are
// not an error. Listings and reservations stay as history, bound to the old user id.
func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var credEmails, profEmails []string
		if err := tx.Model(&domain.Credential{}).Where("id = ?", id).Pluck("email", &credEmails).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.UserProfile{}).Where("id = ?", id).Pluck("email", &profEmails).Error; err != nil {
			return err
		}
		if emails := append(credEmails, profEmails...); len(emails) > 0 {
			if err := tx.Where("to_email IN ?", emails).Delete(&domain.Notification{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&domain.UserProfile{}, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Credential{}, "id = ?", id).Error
	})
}

func (r *AccountRepo) List(ctx context.Context, page, size int, query string, role domain.Role) ([]domain.UserProfile, int64, error) {
	qb := r.db.WithContext(ctx).Model(&domain.UserProfile{})
	if role != "" {
		qb = qb.Where("role = ?", role)
	}
	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		qb = qb.Where("(LOWER(email) LIKE ? OR LOWER(display_name) LIKE ?)", "%"+q+"%", "%"+q+"%")
	}
	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit, offset := paginate(page, size)
	var users []domain.UserProfile
	if err := qb.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *AccountRepo) CountProfiles(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.UserProfile{}).Count(&n).Error
	return n, err
}

// ApplyAccountCreated provisions the profile for a new account. The role is forced to
// user while existing email and display name are kept. It returns false when the event
// was already processed.
func (r *AccountRepo) ApplyAccountCreated(ctx context.Context, eventID string, evt domain.UserCreated) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.Model(&domain.EventConsumed{}).Where("id = ?", eventID).Count(&seen).Error; err != nil {
			return err
		}
		if seen > 0 {
			return nil
		}

		var p domain.UserProfile
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", evt.UserID).Error
		switch {
		case err == nil:
			fields := map[string]any{"role": domain.RoleUser}
			if p.Email == "" && evt.Email != "" {
				fields["email"] = evt.Email
			}
			if p.DisplayName == "" && evt.DisplayName != "" {
				fields["display_name"] = evt.DisplayName
			}
			if err := tx.Model(&p).Updates(fields).Error; err != nil {
				return err
			}
		case notFound(err) == ErrNotFound:
			p = domain.UserProfile{
				ID:          evt.UserID,
				Email:       evt.Email,
				DisplayName: evt.DisplayName,
				Role:        domain.RoleUser,
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
		default:
			return err
		}

		if err := tx.Model(&domain.Credential{}).Where("id = ?", evt.UserID).
			Update("role_claim", domain.RoleUser).Error; err != nil {
			return err
		}
		rec := domain.EventConsumed{ID: eventID, EventKey: domain.RKUserCreated, ProcessedAt: time.Now().UTC()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}
