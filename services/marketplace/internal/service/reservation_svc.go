package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nawar-b-tek/booking-app/pkg/apperr"
	"github.com/nawar-b-tek/booking-app/pkg/feed"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/repository"
)

type ReservationSvc struct {
	listings     *repository.ListingRepo
	reservations *repository.ReservationRepo
	pub          EventPublisher
	feed         feed.Feed
	currency     string
}

func NewReservationSvc(listings *repository.ListingRepo, reservations *repository.ReservationRepo, pub EventPublisher, f feed.Feed, defaultCurrency string) *ReservationSvc {
	if defaultCurrency == "" {
		defaultCurrency = "TND"
	}
	return &ReservationSvc{listings: listings, reservations: reservations, pub: pub, feed: f, currency: defaultCurrency}
}

type RequestInput struct {
	ListingID string
	StartDate string
	EndDate   string
}

// Request creates a pending reservation priced from the listing and notifies its owner.
// Availability is not checked.
func (s *ReservationSvc) Request(ctx context.Context, p *domain.Principal, in RequestInput) (*domain.Reservation, error) {
	ctx, span := tracer.Start(ctx, "reservation.Request")
	defer span.End()

	if p == nil {
		return nil, apperr.Unauthenticated("sign in to request a reservation")
	}
	if strings.TrimSpace(in.ListingID) == "" {
		return nil, apperr.Validation("listing id is required")
	}
	stay, err := domain.NewStay(in.StartDate, in.EndDate)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	listing, err := s.listings.ByID(ctx, in.ListingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("listing not found")
	}
	if err != nil {
		return nil, apperr.Provider(err, "load listing")
	}

	currency := listing.Currency
	if currency == "" {
		currency = s.currency
	}
	res := &domain.Reservation{
		ListingID:       listing.ID,
		ListingTitle:    listing.Title,
		OwnerID:         listing.PosterID,
		OwnerEmail:      listing.OwnerEmail,
		RenterEmail:     p.Email,
		RenterID:        p.UserID,
		StartDate:       stay.Start.Format(domain.DateLayout),
		EndDate:         stay.End.Format(domain.DateLayout),
		EstimatedDays:   stay.Days,
		EstimatedMonths: stay.Months,
		TotalPrice:      stay.Total(listing.UnitPricePerDay()),
		Currency:        currency,
		Status:          domain.StatusPending,
	}
	n := &domain.Notification{
		ToEmail:   listing.OwnerEmail,
		Type:      domain.NotificationReservationRequest,
		Message:   requestMessage(res),
		ListingID: listing.ID,
	}
	if err := s.reservations.CreateWithNotification(ctx, res, n); err != nil {
		return nil, apperr.Provider(err, "create reservation")
	}
	span.SetAttributes(attribute.String("reservation.id", res.ID))

	publish(ctx, s.pub, domain.RKReservationRequested, domain.NewReservationEvent(res))
	signal(ctx, s.feed, topicInbox(res.OwnerEmail), topicReservations(res.OwnerEmail), topicReservations(res.RenterEmail))
	return res, nil
}

// Approve marks the reservation approved, books the listing for the renter and
// notifies the renter, all in one transaction.
func (s *ReservationSvc) Approve(ctx context.Context, p *domain.Principal, id string) (*domain.Reservation, error) {
	ctx, span := tracer.Start(ctx, "reservation.Approve")
	defer span.End()
	span.SetAttributes(attribute.String("reservation.id", id))

	res, err := s.decide(ctx, p, id, domain.StatusApproved, true)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.pub, domain.RKReservationApproved, domain.NewReservationEvent(res))
	signal(ctx, s.feed, TopicListings)
	return res, nil
}

// Deny requires explicit confirmation from the caller. The listing is untouched.
func (s *ReservationSvc) Deny(ctx context.Context, p *domain.Principal, id string, confirmed bool) (*domain.Reservation, error) {
	ctx, span := tracer.Start(ctx, "reservation.Deny")
	defer span.End()
	span.SetAttributes(attribute.String("reservation.id", id))

	if p == nil {
		return nil, apperr.Unauthenticated("not signed in")
	}
	if !confirmed {
		return nil, apperr.Validation("denying a reservation must be confirmed")
	}
	res, err := s.decide(ctx, p, id, domain.StatusDenied, false)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.pub, domain.RKReservationDenied, domain.NewReservationEvent(res))
	return res, nil
}

func (s *ReservationSvc) decide(ctx context.Context, p *domain.Principal, id string, to domain.ReservationStatus, book bool) (*domain.Reservation, error) {
	if p == nil {
		return nil, apperr.Unauthenticated("not signed in")
	}
	res, err := s.reservations.Decide(ctx, repository.Decision{
		ReservationID: id,
		ActorID:       p.UserID,
		To:            to,
		BookListing:   book,
		Notify: func(r *domain.Reservation) *domain.Notification {
			return &domain.Notification{
				ToEmail:       r.RenterEmail,
				Type:          domain.NotificationReservationStatus,
				Message:       statusMessage(r),
				ListingID:     r.ListingID,
				ReservationID: r.ID,
			}
		},
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.NotFound("reservation not found")
	case errors.Is(err, repository.ErrNotOwner):
		return nil, apperr.Unauthorized("only the listing owner can decide this reservation")
	case errors.Is(err, repository.ErrAlreadyDecided):
		return nil, apperr.Conflict("reservation has already been decided")
	case errors.Is(err, repository.ErrListingGone):
		return nil, apperr.NotFound("listing no longer exists")
	case err != nil:
		trace.SpanFromContext(ctx).RecordError(err)
		return nil, apperr.Provider(err, "decide reservation")
	}
	signal(ctx, s.feed, topicInbox(res.RenterEmail), topicReservations(res.OwnerEmail), topicReservations(res.RenterEmail))
	return res, nil
}

// Box selects which side of the caller's reservations to read.
type Box string

const (
	BoxIncoming Box = "incoming"
	BoxMine     Box = "mine"
)

// List returns reservations on the caller's listings (incoming) or made by the caller (mine).
func (s *ReservationSvc) List(ctx context.Context, p *domain.Principal, box Box) ([]domain.Reservation, error) {
	if p == nil {
		return nil, apperr.Unauthenticated("not signed in")
	}
	var (
		out []domain.Reservation
		err error
	)
	switch box {
	case BoxIncoming:
		out, err = s.reservations.ByOwner(ctx, p.UserID)
	case BoxMine, "":
		out, err = s.reservations.ByRenter(ctx, p.UserID)
	default:
		return nil, apperr.Validation("box must be incoming or mine")
	}
	if err != nil {
		return nil, apperr.Provider(err, "list reservations")
	}
	return out, nil
}

func (s *ReservationSvc) Watch(ctx context.Context, p *domain.Principal, box Box) (<-chan []domain.Reservation, error) {
	if _, err := s.List(ctx, p, box); err != nil {
		return nil, err
	}
	load := func(ctx context.Context) ([]domain.Reservation, error) { return s.List(ctx, p, box) }
	ch, err := feed.Watch(ctx, s.feed, load, topicReservations(p.Email))
	if err != nil {
		return nil, apperr.Provider(err, "watch reservations")
	}
	return ch, nil
}

// Get is visible to the reservation's owner and renter only.
func (s *ReservationSvc) Get(ctx context.Context, p *domain.Principal, id string) (*domain.Reservation, error) {
	if p == nil {
		return nil, apperr.Unauthenticated("not signed in")
	}
	res, err := s.reservations.ByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("reservation not found")
	}
	if err != nil {
		return nil, apperr.Provider(err, "load reservation")
	}
	if res.OwnerID != p.UserID && res.RenterID != p.UserID {
		return nil, apperr.NotFound("reservation not found")
	}
	return res, nil
}

func requestMessage(r *domain.Reservation) string {
	return fmt.Sprintf("New reservation request for %q from %s to %s by %s.",
		r.ListingTitle, r.StartDate, r.EndDate, r.RenterEmail)
}

func statusMessage(r *domain.Reservation) string {
	return fmt.Sprintf("Your reservation for %q (%s to %s) was %s.",
		r.ListingTitle, r.StartDate, r.EndDate, r.Status)
}
