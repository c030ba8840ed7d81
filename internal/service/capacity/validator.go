package capacity

import (
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/rms/internal/domain"
)

// Лимиты по умолчанию (бизнес-модель).
const (
	DefaultMaxTablesPerRestaurant = 15
	DefaultMaxReservationsPerDay  = 20
)

// Limits задаёт лимиты вместимости. Передаётся явно при конструировании,
// а не через глобальное состояние, чтобы тесты могли менять лимиты локально.
type Limits struct {
	// MaxTablesPerRestaurant — максимум броней одного ресторана на одну дату.
	MaxTablesPerRestaurant int
	// MaxReservationsPerDay — максимум броней на одну дату по всем ресторанам.
	MaxReservationsPerDay int
}

// DefaultLimits возвращает лимиты бизнес-модели: 15 столиков, 20 броней в день.
func DefaultLimits() Limits {
	return Limits{
		MaxTablesPerRestaurant: DefaultMaxTablesPerRestaurant,
		MaxReservationsPerDay:  DefaultMaxReservationsPerDay,
	}
}

// RestaurantCheck — результат проверки вместимости ресторана на дату.
type RestaurantCheck struct {
	Admit bool
	// AvailableTables — свободные столики; 0 при отказе.
	AvailableTables int
}

// DailyCheck — результат проверки общего дневного лимита.
type DailyCheck struct {
	Admit bool
	// TotalReservations — текущее число броней на дату.
	TotalReservations int
	// Remaining — остаток дневного лимита; 0 при отказе.
	Remaining int
}

// Availability — комбинированный результат обеих проверок для read-only запроса.
type Availability struct {
	Available  bool
	Restaurant RestaurantCheck
	Daily      DailyCheck
}

// Validator принимает решения admit/reject по снимкам счётчиков занятости.
// Сами решения — чистые функции; атомарность со вставкой обеспечивает
// хранилище, вызывая Admit внутри транзакции записи.
type Validator struct {
	limits       Limits
	reservations domain.ReservationRepository
}

// NewValidator конструирует валидатор с заданными лимитами.
func NewValidator(limits Limits, reservations domain.ReservationRepository) (*Validator, error) {
	if limits.MaxTablesPerRestaurant <= 0 {
		return nil, fmt.Errorf("max tables per restaurant must be positive, got %d", limits.MaxTablesPerRestaurant)
	}
	if limits.MaxReservationsPerDay <= 0 {
		return nil, fmt.Errorf("max reservations per day must be positive, got %d", limits.MaxReservationsPerDay)
	}
	return &Validator{limits: limits, reservations: reservations}, nil
}

// Limits возвращает лимиты, с которыми сконструирован валидатор.
func (v *Validator) Limits() Limits {
	return v.limits
}

// CheckRestaurant решает, остались ли столики ресторана при данном счётчике.
func (v *Validator) CheckRestaurant(existingCount int) RestaurantCheck {
	available := v.limits.MaxTablesPerRestaurant - existingCount
	if available < 0 {
		available = 0
	}
	return RestaurantCheck{
		Admit:           existingCount < v.limits.MaxTablesPerRestaurant,
		AvailableTables: available,
	}
}

// CheckDaily решает, не исчерпан ли общий дневной лимит при данном счётчике.
func (v *Validator) CheckDaily(totalCount int) DailyCheck {
	remaining := v.limits.MaxReservationsPerDay - totalCount
	if remaining < 0 {
		remaining = 0
	}
	return DailyCheck{
		Admit:             totalCount < v.limits.MaxReservationsPerDay,
		TotalReservations: totalCount,
		Remaining:         remaining,
	}
}

// Admit применяет обе проверки к снимку счётчиков. Проверка ресторана идёт
// первой, как в исходном потоке создания брони. Возвращает *domain.CapacityError
// при отказе, nil при допуске.
func (v *Validator) Admit(counts domain.CapacityCounts) error {
	if rc := v.CheckRestaurant(counts.Restaurant); !rc.Admit {
		return &domain.CapacityError{
			Scope:           domain.CapacityScopeRestaurant,
			Limit:           v.limits.MaxTablesPerRestaurant,
			AvailableTables: rc.AvailableTables,
		}
	}
	if dc := v.CheckDaily(counts.Daily); !dc.Admit {
		return &domain.CapacityError{
			Scope:             domain.CapacityScopeDaily,
			Limit:             v.limits.MaxReservationsPerDay,
			TotalReservations: dc.TotalReservations,
		}
	}
	return nil
}

// Availability выполняет read-only проверку обеих размерностей для пары
// (ресторан, дата). Результат советующий: к моменту вставки счётчики могут
// измениться, поэтому создание брони перепроверяет их транзакционно.
func (v *Validator) Availability(restaurantID string, date time.Time) (Availability, error) {
	restaurantCount, err := v.reservations.CountByRestaurantDate(restaurantID, date)
	if err != nil {
		return Availability{}, fmt.Errorf("count restaurant reservations: %w", err)
	}
	dailyCount, err := v.reservations.CountByDate(date)
	if err != nil {
		return Availability{}, fmt.Errorf("count daily reservations: %w", err)
	}

	rc := v.CheckRestaurant(restaurantCount)
	dc := v.CheckDaily(dailyCount)
	return Availability{
		Available:  rc.Admit && dc.Admit,
		Restaurant: rc,
		Daily:      dc,
	}, nil
}
