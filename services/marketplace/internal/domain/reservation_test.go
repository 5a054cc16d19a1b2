package domain

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestNewStay(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
		days       int
		months     int
		err        error
	}{
		{"three nights", "2024-06-01", "2024-06-04", 3, 1, nil},
		{"one night", "2024-06-01", "2024-06-02", 1, 1, nil},
		{"partial day rounds up", "2024-06-01T10:00:00Z", "2024-06-02T12:00:00Z", 2, 1, nil},
		{"sub-day stay is one day", "2024-06-01T10:00:00Z", "2024-06-01T11:00:00Z", 1, 1, nil},
		{"thirty one days", "2024-01-01", "2024-02-01", 31, 2, nil},
		{"same day", "2024-06-01", "2024-06-01", 0, 0, ErrEndNotAfter},
		{"reversed", "2024-06-04", "2024-06-01", 0, 0, ErrEndNotAfter},
		{"missing", "", "2024-06-01", 0, 0, ErrMissingDates},
		{"garbage", "june", "2024-06-01", 0, 0, ErrBadDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewStay(tc.start, tc.end)
			if !errors.Is(err, tc.err) {
				t.Fatalf("err = %v, want %v", err, tc.err)
			}
			if err != nil {
				return
			}
			if s.Days != tc.days || s.Months != tc.months {
				t.Fatalf("days=%d months=%d, want %d/%d", s.Days, s.Months, tc.days, tc.months)
			}
		})
	}
}

func TestStayTotalIsDaysTimesUnit(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 500; i++ {
		start := base.Add(time.Duration(rng.Int63n(int64(365 * 24 * time.Hour))))
		end := start.Add(time.Duration(1 + rng.Int63n(int64(90*24*time.Hour))))
		s, err := NewStay(start.Format(time.RFC3339), end.Format(time.RFC3339))
		if err != nil {
			// second-resolution formatting can collapse very short ranges
			if errors.Is(err, ErrEndNotAfter) {
				continue
			}
			t.Fatal(err)
		}
		if s.Days < 1 {
			t.Fatalf("days = %d for %v..%v", s.Days, start, end)
		}
		unit := float64(rng.Intn(500) + 1)
		if got, want := s.Total(unit), float64(s.Days)*unit; got != want {
			t.Fatalf("total = %v, want %v", got, want)
		}
		if s.Months < 1 {
			t.Fatalf("months = %d", s.Months)
		}
	}
}

func TestUnitPriceFallsBackToMonthly(t *testing.T) {
	l := Listing{PricePerMonth: 900}
	if got := l.UnitPricePerDay(); got != 30 {
		t.Fatalf("unit = %v, want 30", got)
	}
	l.PricePerDay = 100
	if got := l.UnitPricePerDay(); got != 100 {
		t.Fatalf("unit = %v, want 100", got)
	}
	if got := (&Listing{PricePerDay: 10}).MonthlyPrice(); got != 300 {
		t.Fatalf("monthly = %v, want 300", got)
	}
}
