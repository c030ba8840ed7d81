package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/rms/internal/domain"
	"github.com/vladislavdragonenkov/rms/internal/metrics"
	"github.com/vladislavdragonenkov/rms/internal/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store, domain.OutboxRepository) {
	t.Helper()
	store := memory.NewStore()
	outbox := memory.NewOutboxRepository()
	svc := NewService(store.Restaurants(), outbox, log.WithField("test", "registry"))
	return svc, store, outbox
}

func validCreateInput() CreateInput {
	return CreateInput{
		Name:        "La Piazza",
		Description: "Итальянская кухня",
		Address:     "ул. Ленина, 1",
		City:        "Москва",
		PhotoURL:    "https://example.com/photo.jpg",
	}
}

func TestService_Create(t *testing.T) {
	svc, _, outbox := newTestService(t)

	restaurant, err := svc.Create(validCreateInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if restaurant.ID == "" {
		t.Error("expected generated id")
	}
	if restaurant.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	got, err := svc.Get(restaurant.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "La Piazza" {
		t.Errorf("expected name La Piazza, got %s", got.Name)
	}

	stats, err := outbox.Stats()
	if err != nil {
		t.Fatalf("outbox stats: %v", err)
	}
	if stats.PendingCount != 1 {
		t.Errorf("expected 1 outbox event, got %d", stats.PendingCount)
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)

	input := validCreateInput()
	input.Name = ""
	input.City = ""

	_, err := svc.Create(input)
	verr, ok := domain.AsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"name", "city"} {
		if len(verr.Fields[field]) == 0 {
			t.Errorf("expected violation for %s", field)
		}
	}
}

func TestService_Create_OptionalFields(t *testing.T) {
	svc, _, _ := newTestService(t)

	input := validCreateInput()
	input.Description = ""
	input.PhotoURL = ""

	if _, err := svc.Create(input); err != nil {
		t.Errorf("expected optional fields to be omittable, got %v", err)
	}
}

func TestService_Update_Partial(t *testing.T) {
	svc, _, _ := newTestService(t)

	restaurant, err := svc.Create(validCreateInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	city := "Казань"
	updated, err := svc.Update(restaurant.ID, UpdateInput{City: &city})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.City != "Казань" {
		t.Errorf("expected city Казань, got %s", updated.City)
	}
	if updated.Name != restaurant.Name {
		t.Errorf("expected name unchanged, got %s", updated.Name)
	}
	if !updated.CreatedAt.Equal(restaurant.CreatedAt) {
		t.Errorf("expected created_at unchanged")
	}
}

func TestService_Update_RejectsInvalidPatch(t *testing.T) {
	svc, _, _ := newTestService(t)

	restaurant, err := svc.Create(validCreateInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	empty := ""
	_, err = svc.Update(restaurant.ID, UpdateInput{Name: &empty})
	if _, ok := domain.AsValidationError(err); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}

	// Неудачный patch не записан
	kept, err := svc.Get(restaurant.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if kept.Name != restaurant.Name {
		t.Errorf("expected name kept, got %s", kept.Name)
	}
}

func TestService_Update_Unknown(t *testing.T) {
	svc, _, _ := newTestService(t)

	name := "X"
	if _, err := svc.Update("missing", UpdateInput{Name: &name}); !errors.Is(err, domain.ErrRestaurantNotFound) {
		t.Errorf("expected ErrRestaurantNotFound, got %v", err)
	}
}

func TestService_Delete_CascadesReservations(t *testing.T) {
	svc, store, outbox := newTestService(t)

	restaurant, err := svc.Create(validCreateInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	day := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	for _, id := range []string{"res-1", "res-2"} {
		err := store.Reservations().Create(domain.Reservation{
			ID:           id,
			RestaurantID: restaurant.ID,
			CustomerName: "Guest",
			Date:         day,
			PartySize:    2,
		}, nil)
		if err != nil {
			t.Fatalf("create reservation: %v", err)
		}
	}

	deleted, removed, err := svc.Delete(restaurant.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.ID != restaurant.ID {
		t.Errorf("expected deleted restaurant %s, got %s", restaurant.ID, deleted.ID)
	}
	if removed != 2 {
		t.Errorf("expected 2 cascaded reservations, got %d", removed)
	}

	if _, err := svc.Get(restaurant.ID); !errors.Is(err, domain.ErrRestaurantNotFound) {
		t.Errorf("expected restaurant to be gone, got %v", err)
	}

	// create + delete события
	stats, err := outbox.Stats()
	if err != nil {
		t.Fatalf("outbox stats: %v", err)
	}
	if stats.PendingCount != 2 {
		t.Errorf("expected 2 outbox events, got %d", stats.PendingCount)
	}
}

// Каскад списывает снятые брони из метрик, иначе gauge активных броней
// никогда не уменьшается при удалении ресторана.
func TestService_Delete_ReportsRemovedToMetrics(t *testing.T) {
	registerer := prometheus.NewRegistry()
	m := metrics.NewBookingMetricsWithRegisterer(registerer)
	m.RecordReservationCreated()
	m.RecordReservationCreated()

	store := memory.NewStore()
	svc := NewService(store.Restaurants(), nil, log.WithField("test", "registry"), WithMetrics(m))

	restaurant, err := svc.Create(validCreateInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	day := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	for _, id := range []string{"res-1", "res-2"} {
		err := store.Reservations().Create(domain.Reservation{
			ID:           id,
			RestaurantID: restaurant.ID,
			CustomerName: "Guest",
			Date:         day,
			PartySize:    2,
		}, nil)
		if err != nil {
			t.Fatalf("create reservation: %v", err)
		}
	}

	if _, _, err := svc.Delete(restaurant.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if got := gatherGauge(t, registerer, "rms_reservations_on_books"); got != 0 {
		t.Errorf("expected 0 reservations on books after cascade, got %v", got)
	}
	if got := gatherCounter(t, registerer, "rms_reservations_canceled_total"); got != 2 {
		t.Errorf("expected 2 canceled, got %v", got)
	}
}

func gatherGauge(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	for _, family := range mustGather(t, g) {
		if family.GetName() == name {
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func gatherCounter(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	for _, family := range mustGather(t, g) {
		if family.GetName() == name {
			return family.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func mustGather(t *testing.T, g prometheus.Gatherer) []*dto.MetricFamily {
	t.Helper()
	families, err := g.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	return families
}

func TestService_Delete_Unknown(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, _, err := svc.Delete("missing"); !errors.Is(err, domain.ErrRestaurantNotFound) {
		t.Errorf("expected ErrRestaurantNotFound, got %v", err)
	}
}

func TestService_List_Filters(t *testing.T) {
	svc, _, _ := newTestService(t)

	for _, input := range []CreateInput{
		{Name: "Bistro Nord", Address: "a", City: "Санкт-Петербург"},
		{Name: "Bistro Sud", Address: "a", City: "Москва"},
		{Name: "Чайхана", Address: "a", City: "Москва"},
	} {
		if _, err := svc.Create(input); err != nil {
			t.Fatalf("create %s: %v", input.Name, err)
		}
	}

	all, err := svc.List(domain.RestaurantFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 restaurants, got %d", len(all))
	}

	filtered, err := svc.List(domain.RestaurantFilter{NamePrefix: "Bistro", City: "Москва"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Name != "Bistro Sud" {
		t.Errorf("expected only Bistro Sud, got %v", filtered)
	}
}
