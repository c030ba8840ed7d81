package booking

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/rms/internal/domain"
	"github.com/vladislavdragonenkov/rms/internal/service/capacity"
	"github.com/vladislavdragonenkov/rms/internal/storage/memory"
)

// Фиксированное "сегодня" для правила прошедшей даты.
var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memory.Store
	outbox  domain.OutboxRepository
	service *Service
}

func newFixture(t *testing.T, limits capacity.Limits) *fixture {
	t.Helper()

	store := memory.NewStore()
	validator, err := capacity.NewValidator(limits, store.Reservations())
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	outboxRepo := memory.NewOutboxRepository()

	svc := NewService(
		store.Restaurants(),
		store.Reservations(),
		validator,
		log.WithField("test", "booking"),
		WithOutbox(outboxRepo),
		WithClock(func() time.Time { return testNow }),
	)
	return &fixture{store: store, outbox: outboxRepo, service: svc}
}

func (f *fixture) addRestaurant(t *testing.T, id string) {
	t.Helper()
	err := f.store.Restaurants().Create(domain.Restaurant{
		ID:        id,
		Name:      "Restaurant " + id,
		Address:   "addr",
		City:      "city",
		CreatedAt: testNow,
	})
	if err != nil {
		t.Fatalf("create restaurant %s: %v", id, err)
	}
}

func validInput(restaurantID string) CreateInput {
	return CreateInput{
		RestaurantID:  restaurantID,
		CustomerName:  "Anna Petrova",
		CustomerEmail: "anna@example.com",
		CustomerPhone: "+79001234567",
		Date:          "2026-09-15",
		PartySize:     4,
	}
}

func TestService_Create(t *testing.T) {
	f := newFixture(t, capacity.DefaultLimits())
	f.addRestaurant(t, "rest-1")

	result, err := f.service.Create(validInput("rest-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Reservation.ID == "" {
		t.Error("expected generated reservation id")
	}
	if result.Reservation.Date.Format(domain.DateLayout) != "2026-09-15" {
		t.Errorf("unexpected date: %v", result.Reservation.Date)
	}
	if result.AvailableTablesRemaining != 14 {
		t.Errorf("expected 14 tables remaining, got %d", result.AvailableTablesRemaining)
	}
	// CreatedAt идёт от инжектированных часов, а не от системного времени.
	if !result.Reservation.CreatedAt.Equal(testNow) {
		t.Errorf("expected created_at %v, got %v", testNow, result.Reservation.CreatedAt)
	}

	stats, err := f.outbox.Stats()
	if err != nil {
		t.Fatalf("outbox stats: %v", err)
	}
	if stats.PendingCount != 1 {
		t.Errorf("expected 1 outbox event, got %d", stats.PendingCount)
	}
}

func TestService_Create_UnknownRestaurant(t *testing.T) {
	f := newFixture(t, capacity.DefaultLimits())

	_, err := f.service.Create(validInput("missing"))
	if !errors.Is(err, domain.ErrRestaurantNotFound) {
		t.Errorf("expected ErrRestaurantNotFound, got %v", err)
	}
}

func TestService_Create_ValidationErrors(t *testing.T) {
	f := newFixture(t, capacity.DefaultLimits())
	f.addRestaurant(t, "rest-1")

	tests := []struct {
		name   string
		mutate func(*CreateInput)
		field  string
	}{
		{
			name:   "missing date",
			mutate: func(in *CreateInput) { in.Date = "" },
			field:  "reservation_date",
		},
		{
			name:   "malformed date",
			mutate: func(in *CreateInput) { in.Date = "15.09.2026" },
			field:  "reservation_date",
		},
		{
			name:   "missing customer name",
			mutate: func(in *CreateInput) { in.CustomerName = "" },
			field:  "customer_name",
		},
		{
			name:   "party size out of range",
			mutate: func(in *CreateInput) { in.PartySize = 21 },
			field:  "number_of_people",
		},
		{
			name:   "invalid email",
			mutate: func(in *CreateInput) { in.CustomerEmail = "nope" },
			field:  "customer_email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput("rest-1")
			tt.mutate(&input)

			_, err := f.service.Create(input)
			verr, ok := domain.AsValidationError(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if len(verr.Fields[tt.field]) == 0 {
				t.Errorf("expected violation for %s, got %v", tt.field, verr.Fields)
			}
		})
	}
}

// Прошедшая дата отклоняется на валидации входа и до проверок вместимости
// не доходит: бронь не появляется даже при свободных лимитах.
func TestService_Create_PastDate(t *testing.T) {
	f := newFixture(t, capacity.DefaultLimits())
	f.addRestaurant(t, "rest-1")

	input := validInput("rest-1")
	input.Date = "2026-08-31"

	_, err := f.service.Create(input)
	verr, ok := domain.AsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Fields["reservation_date"]) == 0 {
		t.Errorf("expected past date violation, got %v", verr.Fields)
	}
}

func TestService_Create_TodayIsAllowed(t *testing.T) {
	f := newFixture(t, capacity.DefaultLimits())
	f.addRestaurant(t, "rest-1")

	input := validInput("rest-1")
	input.Date = "2026-09-01"

	if _, err := f.service.Create(input); err != nil {
		t.Errorf("expected today to be accepted, got %v", err)
	}
}

func TestService_Create_RestaurantLimit(t *testing.T) {
	f := newFixture(t, capacity.Limits{MaxTablesPerRestaurant: 3, MaxReservationsPerDay: 100})
	f.addRestaurant(t, "rest-1")
	f.addRestaurant(t, "rest-2")

	for i := 0; i < 3; i++ {
		if _, err := f.service.Create(validInput("rest-1")); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	_, err := f.service.Create(validInput("rest-1"))
	capErr, ok := domain.AsCapacityError(err)
	if !ok {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if capErr.Scope != domain.CapacityScopeRestaurant {
		t.Errorf("expected restaurant scope, got %s", capErr.Scope)
	}
	if capErr.AvailableTables != 0 {
		t.Errorf("expected 0 available tables, got %d", capErr.AvailableTables)
	}

	// Лимит ресторана не мешает другим ресторанам на ту же дату
	if _, err := f.service.Create(validInput("rest-2")); err != nil {
		t.Errorf("expected other restaurant to accept, got %v", err)
	}
}

func TestService_Create_DailyLimitSpansRestaurants(t *testing.T) {
	f := newFixture(t, capacity.Limits{MaxTablesPerRestaurant: 10, MaxReservationsPerDay: 4})
	f.addRestaurant(t, "rest-1")
	f.addRestaurant(t, "rest-2")
	f.addRestaurant(t, "rest-3")

	for i, restaurantID := range []string{"rest-1", "rest-1", "rest-2", "rest-2"} {
		if _, err := f.service.Create(validInput(restaurantID)); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	_, err := f.service.Create(validInput("rest-3"))
	capErr, ok := domain.AsCapacityError(err)
	if !ok {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if capErr.Scope != domain.CapacityScopeDaily {
		t.Errorf("expected daily scope, got %s", capErr.Scope)
	}
	if capErr.TotalReservations != 4 {
		t.Errorf("expected total 4, got %d", capErr.TotalReservations)
	}

	// Другая дата свободна
	input := validInput("rest-3")
	input.Date = "2026-09-16"
	if _, err := f.service.Create(input); err != nil {
		t.Errorf("expected other date to accept, got %v", err)
	}
}

// Гонка за последние столики: из N конкурентных запросов проходит ровно лимит.
func TestService_Create_ConcurrentRequestsNeverOversell(t *testing.T) {
	const limit = 5
	const attempts = 25

	f := newFixture(t, capacity.Limits{MaxTablesPerRestaurant: limit, MaxReservationsPerDay: 100})
	f.addRestaurant(t, "rest-1")

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded, rejected int

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Create(validInput("rest-1"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			default:
				if _, ok := domain.AsCapacityError(err); !ok {
					t.Errorf("unexpected error kind: %v", err)
				}
				rejected++
			}
		}()
	}
	wg.Wait()

	if succeeded != limit {
		t.Errorf("expected exactly %d admitted, got %d", limit, succeeded)
	}
	if rejected != attempts-limit {
		t.Errorf("expected %d rejected, got %d", attempts-limit, rejected)
	}

	count, err := f.store.Reservations().CountByRestaurantDate("rest-1", mustDate(t, "2026-09-15"))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != limit {
		t.Errorf("expected %d stored reservations, got %d", limit, count)
	}
}

// Гонка за дневной пул: конкурентные запросы в разные рестораны делят
// один лимит дня, и проходит ровно лимит.
func TestService_Create_ConcurrentDailyLimitAcrossRestaurants(t *testing.T) {
	const dailyLimit = 6
	const attempts = 30

	f := newFixture(t, capacity.Limits{MaxTablesPerRestaurant: 100, MaxReservationsPerDay: dailyLimit})
	restaurants := []string{"rest-1", "rest-2", "rest-3"}
	for _, id := range restaurants {
		f.addRestaurant(t, id)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded, rejected int

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(restaurantID string) {
			defer wg.Done()
			_, err := f.service.Create(validInput(restaurantID))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			default:
				capErr, ok := domain.AsCapacityError(err)
				if !ok {
					t.Errorf("unexpected error kind: %v", err)
				} else if capErr.Scope != domain.CapacityScopeDaily {
					t.Errorf("expected daily scope, got %s", capErr.Scope)
				}
				rejected++
			}
		}(restaurants[i%len(restaurants)])
	}
	wg.Wait()

	if succeeded != dailyLimit {
		t.Errorf("expected exactly %d admitted, got %d", dailyLimit, succeeded)
	}
	if rejected != attempts-dailyLimit {
		t.Errorf("expected %d rejected, got %d", attempts-dailyLimit, rejected)
	}

	count, err := f.store.Reservations().CountByDate(mustDate(t, "2026-09-15"))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != dailyLimit {
		t.Errorf("expected %d stored reservations across restaurants, got %d", dailyLimit, count)
	}
}

func TestService_Delete_FreesCapacitySlot(t *testing.T) {
	f := newFixture(t, capacity.Limits{MaxTablesPerRestaurant: 1, MaxReservationsPerDay: 100})
	f.addRestaurant(t, "rest-1")

	result, err := f.service.Create(validInput("rest-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.service.Create(validInput("rest-1")); err == nil {
		t.Fatal("expected rejection at limit")
	}

	if _, err := f.service.Delete(result.Reservation.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := f.service.Create(validInput("rest-1")); err != nil {
		t.Errorf("expected slot to be freed, got %v", err)
	}
}

func TestService_Delete_Unknown(t *testing.T) {
	f := newFixture(t, capacity.DefaultLimits())

	if _, err := f.service.Delete("missing"); !errors.Is(err, domain.ErrReservationNotFound) {
		t.Errorf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestService_Update_PartialFields(t *testing.T) {
	f := newFixture(t, capacity.DefaultLimits())
	f.addRestaurant(t, "rest-1")

	result, err := f.service.Create(validInput("rest-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "Boris Ivanov"
	size := 6
	updated, err := f.service.Update(result.Reservation.ID, UpdateInput{
		CustomerName: &name,
		PartySize:    &size,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.CustomerName != name {
		t.Errorf("expected name %s, got %s", name, updated.CustomerName)
	}
	if updated.PartySize != size {
		t.Errorf("expected party size %d, got %d", size, updated.PartySize)
	}
	// Незаданные поля не тронуты
	if updated.CustomerEmail != result.Reservation.CustomerEmail {
		t.Errorf("expected email unchanged, got %s", updated.CustomerEmail)
	}
	if !updated.Date.Equal(result.Reservation.Date) {
		t.Errorf("expected date unchanged, got %v", updated.Date)
	}
}

// Правка без смены ресторана и даты не перепроверяет вместимость: бронь
// уже занимает свой слот, даже когда день полностью занят.
func TestService_Update_NoKeyChangeSkipsCapacityCheck(t *testing.T) {
	f := newFixture(t, capacity.Limits{MaxTablesPerRestaurant: 1, MaxReservationsPerDay: 1})
	f.addRestaurant(t, "rest-1")

	result, err := f.service.Create(validInput("rest-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "Renamed Guest"
	if _, err := f.service.Update(result.Reservation.ID, UpdateInput{CustomerName: &name}); err != nil {
		t.Errorf("expected rename on a full day to pass, got %v", err)
	}
}

func TestService_Update_MoveToFullDateRejectedAndOriginalKept(t *testing.T) {
	f := newFixture(t, capacity.Limits{MaxTablesPerRestaurant: 10, MaxReservationsPerDay: 1})
	f.addRestaurant(t, "rest-1")

	busy := validInput("rest-1")
	busy.Date = "2026-09-20"
	if _, err := f.service.Create(busy); err != nil {
		t.Fatalf("create busy day: %v", err)
	}

	result, err := f.service.Create(validInput("rest-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	fullDate := "2026-09-20"
	_, err = f.service.Update(result.Reservation.ID, UpdateInput{Date: &fullDate})
	if _, ok := domain.AsCapacityError(err); !ok {
		t.Fatalf("expected capacity error, got %v", err)
	}

	// Оригинальная бронь не изменилась
	kept, err := f.service.Get(result.Reservation.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if kept.Date.Format(domain.DateLayout) != "2026-09-15" {
		t.Errorf("expected original date kept, got %v", kept.Date)
	}
}

// Перенос внутри той же даты в другой ресторан считает счётчики без учёта
// переносимой брони: дневной лимит из-за самой брони не срабатывает.
func TestService_Update_MoveRestaurantSameDateExcludesOwnRow(t *testing.T) {
	f := newFixture(t, capacity.Limits{MaxTablesPerRestaurant: 10, MaxReservationsPerDay: 1})
	f.addRestaurant(t, "rest-1")
	f.addRestaurant(t, "rest-2")

	result, err := f.service.Create(validInput("rest-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	target := "rest-2"
	updated, err := f.service.Update(result.Reservation.ID, UpdateInput{RestaurantID: &target})
	if err != nil {
		t.Fatalf("expected move to pass, got %v", err)
	}
	if updated.RestaurantID != "rest-2" {
		t.Errorf("expected restaurant rest-2, got %s", updated.RestaurantID)
	}
}

func TestService_Update_DateToPastRejected(t *testing.T) {
	f := newFixture(t, capacity.DefaultLimits())
	f.addRestaurant(t, "rest-1")

	result, err := f.service.Create(validInput("rest-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	past := "2026-08-20"
	_, err = f.service.Update(result.Reservation.ID, UpdateInput{Date: &past})
	verr, ok := domain.AsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Fields["reservation_date"]) == 0 {
		t.Errorf("expected past date violation, got %v", verr.Fields)
	}
}

func TestService_Update_UnknownTargetRestaurant(t *testing.T) {
	f := newFixture(t, capacity.DefaultLimits())
	f.addRestaurant(t, "rest-1")

	result, err := f.service.Create(validInput("rest-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	missing := "missing"
	_, err = f.service.Update(result.Reservation.ID, UpdateInput{RestaurantID: &missing})
	if !errors.Is(err, domain.ErrRestaurantNotFound) {
		t.Errorf("expected ErrRestaurantNotFound, got %v", err)
	}
}

func TestService_List(t *testing.T) {
	f := newFixture(t, capacity.DefaultLimits())
	f.addRestaurant(t, "rest-1")
	f.addRestaurant(t, "rest-2")

	for i, restaurantID := range []string{"rest-1", "rest-1", "rest-2"} {
		input := validInput(restaurantID)
		input.Date = fmt.Sprintf("2026-09-%02d", 15+i)
		if _, err := f.service.Create(input); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	all, err := f.service.List(domain.ReservationFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 reservations, got %d", len(all))
	}

	byRestaurant, err := f.service.List(domain.ReservationFilter{RestaurantID: "rest-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byRestaurant) != 2 {
		t.Errorf("expected 2 reservations for rest-1, got %d", len(byRestaurant))
	}
}

func TestService_Availability(t *testing.T) {
	f := newFixture(t, capacity.DefaultLimits())
	f.addRestaurant(t, "rest-1")

	if _, err := f.service.Create(validInput("rest-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	availability, err := f.service.Availability("rest-1", mustDate(t, "2026-09-15"))
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if !availability.Available {
		t.Error("expected available")
	}
	if availability.Restaurant.AvailableTables != 14 {
		t.Errorf("expected 14 tables, got %d", availability.Restaurant.AvailableTables)
	}
	if availability.Daily.Remaining != 19 {
		t.Errorf("expected 19 remaining, got %d", availability.Daily.Remaining)
	}

	if _, err := f.service.Availability("missing", mustDate(t, "2026-09-15")); !errors.Is(err, domain.ErrRestaurantNotFound) {
		t.Errorf("expected ErrRestaurantNotFound, got %v", err)
	}
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(value)
	if err != nil {
		t.Fatalf("parse date %s: %v", value, err)
	}
	return d
}
