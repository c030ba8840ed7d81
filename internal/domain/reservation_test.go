package domain

import (
	"strings"
	"testing"
	"time"
)

func validReservation() Reservation {
	return Reservation{
		ID:            "res-1",
		RestaurantID:  "rest-1",
		CustomerName:  "Anna Petrova",
		CustomerEmail: "anna@example.com",
		CustomerPhone: "+7 900 123-45-67",
		Date:          time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		PartySize:     4,
	}
}

func TestReservation_ValidateInvariants_Valid(t *testing.T) {
	res := validReservation()
	if verr := res.ValidateInvariants(); verr != nil {
		t.Fatalf("expected no violations, got %v", verr)
	}
}

func TestReservation_ValidateInvariants_OptionalContactsMayBeEmpty(t *testing.T) {
	res := validReservation()
	res.CustomerEmail = ""
	res.CustomerPhone = ""

	if verr := res.ValidateInvariants(); verr != nil {
		t.Fatalf("expected no violations, got %v", verr)
	}
}

func TestReservation_ValidateInvariants_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Reservation)
		field  string
	}{
		{
			name:   "missing restaurant id",
			mutate: func(r *Reservation) { r.RestaurantID = "" },
			field:  "restaurant_id",
		},
		{
			name:   "missing customer name",
			mutate: func(r *Reservation) { r.CustomerName = "   " },
			field:  "customer_name",
		},
		{
			name:   "customer name too long",
			mutate: func(r *Reservation) { r.CustomerName = strings.Repeat("a", 101) },
			field:  "customer_name",
		},
		{
			name:   "invalid email",
			mutate: func(r *Reservation) { r.CustomerEmail = "not-an-email" },
			field:  "customer_email",
		},
		{
			name:   "phone too long",
			mutate: func(r *Reservation) { r.CustomerPhone = strings.Repeat("1", 21) },
			field:  "customer_phone",
		},
		{
			name:   "missing date",
			mutate: func(r *Reservation) { r.Date = time.Time{} },
			field:  "reservation_date",
		},
		{
			name:   "party size too small",
			mutate: func(r *Reservation) { r.PartySize = 0 },
			field:  "number_of_people",
		},
		{
			name:   "party size too large",
			mutate: func(r *Reservation) { r.PartySize = 21 },
			field:  "number_of_people",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validReservation()
			tt.mutate(&res)

			verr := res.ValidateInvariants()
			if verr == nil {
				t.Fatal("expected violations, got nil")
			}
			if len(verr.Fields[tt.field]) == 0 {
				t.Errorf("expected violation for field %s, got %v", tt.field, verr.Fields)
			}
		})
	}
}

// Лимиты длины считаются в символах: многобайтовая кириллица не должна
// упираться в границу раньше латиницы.
func TestReservation_ValidateInvariants_LengthLimitsCountRunes(t *testing.T) {
	res := validReservation()
	res.CustomerName = strings.Repeat("Я", 60)
	res.CustomerPhone = strings.Repeat("б", 20)

	if verr := res.ValidateInvariants(); verr != nil {
		t.Fatalf("expected no violations for 60-rune name, got %v", verr)
	}

	res.CustomerName = strings.Repeat("Я", 101)
	verr := res.ValidateInvariants()
	if verr == nil || len(verr.Fields["customer_name"]) == 0 {
		t.Fatalf("expected customer_name violation for 101 runes, got %v", verr)
	}
}

func TestReservation_ValidateInvariants_PartySizeBoundaries(t *testing.T) {
	for _, size := range []int{PartySizeMin, PartySizeMax} {
		res := validReservation()
		res.PartySize = size
		if verr := res.ValidateInvariants(); verr != nil {
			t.Errorf("party size %d should be valid, got %v", size, verr)
		}
	}
}

func TestParseDate(t *testing.T) {
	date, err := ParseDate("2026-09-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	if !date.Equal(want) {
		t.Errorf("expected %v, got %v", want, date)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, value := range []string{"", "15-09-2026", "2026/09/15", "2026-13-40", "not a date"} {
		if _, err := ParseDate(value); err == nil {
			t.Errorf("expected error for %q", value)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)
	moment := time.Date(2026, 9, 15, 1, 30, 0, 0, msk)

	got := NormalizeDate(moment)
	// 01:30 MSK = 22:30 UTC предыдущего дня
	want := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestValidationError_Error(t *testing.T) {
	verr := NewValidationError()
	verr.Add("name", "name is required")
	verr.Add("city", "city is required")

	msg := verr.Error()
	if !strings.Contains(msg, "city") || !strings.Contains(msg, "name") {
		t.Errorf("expected both fields in message, got %q", msg)
	}
}

func TestValidationError_ErrOrNil(t *testing.T) {
	if err := NewValidationError().ErrOrNil(); err != nil {
		t.Errorf("expected nil for empty accumulator, got %v", err)
	}

	verr := NewValidationError()
	verr.Add("name", "name is required")
	if verr.ErrOrNil() == nil {
		t.Error("expected non-nil for accumulated violations")
	}
}
