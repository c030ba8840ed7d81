package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRestaurantNotFound возвращается, если ресторан не найден в хранилище.
	ErrRestaurantNotFound = errors.New("restaurant not found")
	// ErrReservationNotFound возвращается, если бронь не найдена в хранилище.
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrOutboxNotFound возвращается при попытке пометить несуществующее
	// outbox-сообщение.
	ErrOutboxNotFound = errors.New("outbox message not found")
)

// CapacityScope указывает, какой из двух лимитов вместимости сработал.
type CapacityScope string

const (
	// CapacityScopeRestaurant — исчерпаны столики ресторана на дату.
	CapacityScopeRestaurant CapacityScope = "restaurant"
	// CapacityScopeDaily — достигнут общий дневной лимит по всем ресторанам.
	CapacityScopeDaily CapacityScope = "daily"
)

// CapacityError сигнализирует отказ проверки вместимости и несёт счётчики,
// которые видела отклонившая транзакция.
type CapacityError struct {
	Scope CapacityScope
	// Limit — сработавший лимит.
	Limit int
	// AvailableTables — свободные столики ресторана на дату (scope=restaurant).
	AvailableTables int
	// TotalReservations — всего броней на дату (scope=daily).
	TotalReservations int
}

func (e *CapacityError) Error() string {
	switch e.Scope {
	case CapacityScopeDaily:
		return fmt.Sprintf("daily reservation limit of %d reached (total %d)", e.Limit, e.TotalReservations)
	default:
		return fmt.Sprintf("no tables available for the selected date (limit %d)", e.Limit)
	}
}

// AsCapacityError извлекает CapacityError из цепочки ошибок.
func AsCapacityError(err error) (*CapacityError, bool) {
	var capErr *CapacityError
	if errors.As(err, &capErr) {
		return capErr, true
	}
	return nil, false
}

// AsValidationError извлекает ValidationError из цепочки ошибок.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
