package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nawar-b-tek/booking-app/pkg/mq"
	"github.com/nawar-b-tek/booking-app/services/notification-service/internal/events"
	"github.com/nawar-b-tek/booking-app/services/notification-service/internal/notifier"
)

func body(t *testing.T, key string, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(mq.Envelope{ID: "evt", Event: key, Version: 1, OccurredAt: time.Now(), Data: data})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHandleDeliveryRoutesToRecipient(t *testing.T) {
	res := events.Reservation{
		ListingTitle: "Beach house",
		OwnerEmail:   "owner@example.com",
		RenterEmail:  "renter@example.com",
		StartDate:    "2024-07-01",
		EndDate:      "2024-07-04T00:00:00Z",
		TotalPrice:   300,
		Currency:     "tnd",
	}
	cases := []struct {
		key     string
		payload any
		to      string
		subject string
		contain string
	}{
		{events.RKReservationRequested, res, "owner@example.com", "New reservation request", "2024-07-01 to 2024-07-04 (300.00 TND)"},
		{events.RKReservationApproved, withStatus(res, "approved"), "renter@example.com", "Reservation approved", "was approved"},
		{events.RKReservationDenied, withStatus(res, "denied"), "renter@example.com", "Reservation denied", "was denied"},
		{events.RKUserCreated, events.UserCreated{Email: "new@example.com"}, "new@example.com", "Welcome", "Hi new@example.com"},
		{events.RKPasswordResetRequested, events.PasswordResetRequested{Email: "a@example.com", Token: "t+1"}, "a@example.com", "Reset your password", "https://app.example.com/reset-password?token=t%2B1"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			rec := &notifier.Recorder{}
			c := NewConsumer(Config{AppBaseURL: "https://app.example.com/"}, nil, rec)
			if err := c.handleDelivery(context.Background(), tc.key, body(t, tc.key, tc.payload)); err != nil {
				t.Fatal(err)
			}
			if len(rec.Sent) != 1 {
				t.Fatalf("sent %d messages", len(rec.Sent))
			}
			m := rec.Sent[0]
			if m.To != tc.to || m.Subject != tc.subject || !strings.Contains(m.Body, tc.contain) {
				t.Fatalf("message = %+v, want to=%s subject=%s containing %q", m, tc.to, tc.subject, tc.contain)
			}
		})
	}
}

func withStatus(r events.Reservation, s string) events.Reservation {
	r.Status = s
	return r
}

func TestHandleDeliveryClassifiesFailures(t *testing.T) {
	rec := &notifier.Recorder{}
	c := NewConsumer(Config{}, nil, rec)

	err := c.handleDelivery(context.Background(), events.RKReservationRequested, []byte("{"))
	if !errors.Is(err, errPoison) {
		t.Fatalf("malformed body err = %v, want poison", err)
	}

	rec.Err = errors.New("smtp down")
	err = c.handleDelivery(context.Background(), events.RKUserCreated, body(t, events.RKUserCreated, events.UserCreated{Email: "a@example.com"}))
	if err == nil || errors.Is(err, errPoison) {
		t.Fatalf("delivery failure err = %v, want retryable", err)
	}

	if err := c.handleDelivery(context.Background(), "listing.created", []byte("{}")); err != nil {
		t.Fatalf("unknown key err = %v", err)
	}
}

type chanSource chan amqp.Delivery

func (s chanSource) Deliveries(context.Context) (<-chan amqp.Delivery, error) { return s, nil }

func TestRunReturnsWhenContextEnds(t *testing.T) {
	c := NewConsumer(Config{}, make(chanSource), &notifier.Recorder{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}
