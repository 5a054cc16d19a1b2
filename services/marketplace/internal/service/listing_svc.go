package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nawar-b-tek/booking-app/pkg/apperr"
	"github.com/nawar-b-tek/booking-app/pkg/feed"
	"github.com/nawar-b-tek/booking-app/pkg/upload"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/repository"
)

type ListingSvc struct {
	repo     *repository.ListingRepo
	sink     upload.Sink
	feed     feed.Feed
	currency string
	now      func() time.Time
}

// NewListingSvc accepts a nil sink; listings with photos are then refused.
func NewListingSvc(repo *repository.ListingRepo, sink upload.Sink, f feed.Feed, defaultCurrency string) *ListingSvc {
	if defaultCurrency == "" {
		defaultCurrency = "TND"
	}
	return &ListingSvc{repo: repo, sink: sink, feed: f, currency: defaultCurrency, now: time.Now}
}

type CreateListingInput struct {
	Title         string  `validate:"required,max=140"`
	Description   string  `validate:"max=5000"`
	PricePerDay   float64 `validate:"gte=0"`
	PricePerMonth float64 `validate:"gte=0"`
	Currency      string  `validate:"omitempty,len=3"`
	// Photos are data URLs or bare base64 images, in display order.
	Photos    []string `validate:"max=20"`
	Address   domain.Address
	Contact   domain.Contact
	Location  domain.Location
	Bedrooms  int `validate:"gte=0"`
	Bathrooms int `validate:"gte=0"`
}

// Create uploads every photo, then stores the listing. Any upload failure aborts
// creation and nothing is persisted.
func (s *ListingSvc) Create(ctx context.Context, p *domain.Principal, in CreateListingInput) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "listing.Create")
	defer span.End()

	if p == nil {
		return nil, apperr.Unauthenticated("sign in to post a listing")
	}
	if err := validate.Struct(in); err != nil {
		return nil, validationErr(err)
	}
	if in.PricePerDay <= 0 && in.PricePerMonth <= 0 {
		return nil, apperr.Validation("a daily or monthly price is required")
	}

	images := make([]*upload.Image, len(in.Photos))
	for i, src := range in.Photos {
		img, err := upload.DecodeDataURL(src)
		if err != nil {
			return nil, apperr.Validation("photo %d: %v", i+1, err)
		}
		images[i] = img
	}
	urls, err := s.uploadAll(ctx, p.UserID, images)
	if err != nil {
		return nil, err
	}

	l := &domain.Listing{
		Title:         in.Title,
		Description:   in.Description,
		PricePerDay:   in.PricePerDay,
		PricePerMonth: in.PricePerMonth,
		Currency:      in.Currency,
		Address:       in.Address,
		Contact:       in.Contact,
		Location:      in.Location,
		Bedrooms:      in.Bedrooms,
		Bathrooms:     in.Bathrooms,
		OwnerEmail:    p.Email,
		PosterID:      p.UserID,
	}
	if l.Currency == "" {
		l.Currency = s.currency
	}
	if l.Contact.Email == "" {
		l.Contact.Email = p.Email
	}
	l.SetPhotoURLs(urls)
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, apperr.Provider(err, "create listing")
	}
	signal(ctx, s.feed, TopicListings)
	return l, nil
}

func (s *ListingSvc) uploadAll(ctx context.Context, posterID string, images []*upload.Image) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}
	if s.sink == nil {
		return nil, apperr.Provider(errors.New("no upload sink configured"), "photo upload is unavailable")
	}
	ts := s.now().UnixMilli()
	urls := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			path := fmt.Sprintf("ads/%s/%d-%d%s", posterID, ts, i, img.Extension)
			u, err := s.sink.Upload(gctx, path, img.Blob)
			if err != nil {
				return fmt.Errorf("photo %d: %w", i+1, err)
			}
			urls[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Provider(err, "photo upload failed")
	}
	return urls, nil
}

func (s *ListingSvc) Get(ctx context.Context, id string) (*domain.Listing, error) {
	l, err := s.repo.ByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("listing not found")
	}
	if err != nil {
		return nil, apperr.Provider(err, "load listing")
	}
	return l, nil
}

func (s *ListingSvc) List(ctx context.Context, f repository.ListingFilter) ([]domain.Listing, error) {
	if f.MinRooms < 0 {
		return nil, apperr.Validation("min rooms must not be negative")
	}
	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, apperr.Provider(err, "list listings")
	}
	return out, nil
}

// Watch pushes the filtered list now and after every listing change.
func (s *ListingSvc) Watch(ctx context.Context, f repository.ListingFilter) (<-chan []domain.Listing, error) {
	load := func(ctx context.Context) ([]domain.Listing, error) { return s.repo.List(ctx, f) }
	ch, err := feed.Watch(ctx, s.feed, load, TopicListings)
	if err != nil {
		return nil, apperr.Provider(err, "watch listings")
	}
	return ch, nil
}
