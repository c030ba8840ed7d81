package domain

import (
	"time"
	"unicode/utf8"
)

// Ограничения полей брони.
const (
	CustomerNameMaxLen  = 100
	CustomerEmailMaxLen = 100
	CustomerPhoneMaxLen = 20
	PartySizeMin        = 1
	PartySizeMax        = 20
)

// DateLayout — формат календарной даты в API и хранилище.
const DateLayout = "2006-01-02"

// Reservation представляет бронь столика на календарную дату.
type Reservation struct {
	ID           string
	RestaurantID string
	CustomerName string
	// CustomerEmail и CustomerPhone опциональны.
	CustomerEmail string
	CustomerPhone string
	// Date — календарная дата брони, нормализованная к полуночи UTC.
	Date time.Time
	// PartySize — количество гостей, 1..20.
	PartySize int
	// CreatedAt выставляется один раз при создании и больше не меняется.
	CreatedAt time.Time
}

// ValidateInvariants проверяет инварианты уже собранной брони.
// Правило "дата не в прошлом" проверяется отдельно на приёме запроса:
// уже сохранённые брони при течении времени заново не проверяются.
func (r *Reservation) ValidateInvariants() *ValidationError {
	verr := NewValidationError()

	if r.RestaurantID == "" {
		verr.Add("restaurant_id", "restaurant_id is required")
	}
	requireText(verr, "customer_name", r.CustomerName, CustomerNameMaxLen)
	if r.CustomerEmail != "" {
		checkEmail(verr, "customer_email", r.CustomerEmail)
	}
	if utf8.RuneCountInString(r.CustomerPhone) > CustomerPhoneMaxLen {
		verr.Add("customer_phone", "must be at most 20 characters")
	}
	if r.Date.IsZero() {
		verr.Add("reservation_date", "reservation_date is required")
	}
	if r.PartySize < PartySizeMin || r.PartySize > PartySizeMax {
		verr.Add("number_of_people", "must be between 1 and 20")
	}

	return verr.ErrOrNil()
}

// ReservationFilter описывает опциональные фильтры списка броней.
type ReservationFilter struct {
	RestaurantID string
	// Date фильтрует по календарной дате; nil — без фильтра.
	Date *time.Time
}

// NormalizeDate приводит момент времени к календарной дате (полночь UTC).
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate разбирает дату в формате YYYY-MM-DD.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return NormalizeDate(t), nil
}

// Today возвращает текущую календарную дату (UTC).
func Today() time.Time {
	return NormalizeDate(time.Now())
}
