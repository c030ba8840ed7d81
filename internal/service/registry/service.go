package registry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/rms/internal/domain"
	"github.com/vladislavdragonenkov/rms/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/rms/internal/metrics"
)

// Service реализует реестр ресторанов: CRUD без бизнес-правил,
// кроме каскадного удаления броней вместе с рестораном.
type Service struct {
	restaurants domain.RestaurantRepository
	outbox      domain.OutboxRepository
	logger      *log.Entry
	metrics     *metrics.BookingMetrics
}

// Option настраивает Service при создании.
type Option func(*Service)

// WithMetrics подключает метрики броней: каскадное удаление ресторана
// списывает снятые брони из gauge активных.
func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService конструирует реестр с зависимостями. outbox может быть nil —
// тогда события жизненного цикла ресторанов не публикуются.
func NewService(restaurants domain.RestaurantRepository, outbox domain.OutboxRepository, logger *log.Entry, opts ...Option) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "registry-service")
	}
	s := &Service{
		restaurants: restaurants,
		outbox:      outbox,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput — поля нового ресторана.
type CreateInput struct {
	Name        string
	Description string
	Address     string
	City        string
	PhotoURL    string
}

// UpdateInput — частичное обновление: применяются только заданные поля.
type UpdateInput struct {
	Name        *string
	Description *string
	Address     *string
	City        *string
	PhotoURL    *string
}

// Create валидирует вход и сохраняет новый ресторан.
func (s *Service) Create(input CreateInput) (domain.Restaurant, error) {
	restaurant := domain.Restaurant{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		Address:     input.Address,
		City:        input.City,
		PhotoURL:    input.PhotoURL,
		CreatedAt:   time.Now().UTC(),
	}

	if verr := restaurant.ValidateInvariants(); verr != nil {
		return domain.Restaurant{}, verr
	}

	if err := s.restaurants.Create(restaurant); err != nil {
		return domain.Restaurant{}, fmt.Errorf("create restaurant: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"restaurant_id": restaurant.ID,
		"name":          restaurant.Name,
	}).Info("restaurant created")
	s.enqueueEvent(kafka.EventTypeRestaurantCreated, restaurant, 0)

	return restaurant, nil
}

// Get возвращает ресторан по идентификатору.
func (s *Service) Get(id string) (domain.Restaurant, error) {
	return s.restaurants.Get(id)
}

// List возвращает рестораны по фильтру, по имени по возрастанию.
func (s *Service) List(filter domain.RestaurantFilter) ([]domain.Restaurant, error) {
	return s.restaurants.List(filter)
}

// Update применяет частичное обновление: отсутствующие поля не трогаются.
func (s *Service) Update(id string, input UpdateInput) (domain.Restaurant, error) {
	restaurant, err := s.restaurants.Get(id)
	if err != nil {
		return domain.Restaurant{}, err
	}

	if input.Name != nil {
		restaurant.Name = *input.Name
	}
	if input.Description != nil {
		restaurant.Description = *input.Description
	}
	if input.Address != nil {
		restaurant.Address = *input.Address
	}
	if input.City != nil {
		restaurant.City = *input.City
	}
	if input.PhotoURL != nil {
		restaurant.PhotoURL = *input.PhotoURL
	}

	if verr := restaurant.ValidateInvariants(); verr != nil {
		return domain.Restaurant{}, verr
	}

	if err := s.restaurants.Save(restaurant); err != nil {
		return domain.Restaurant{}, fmt.Errorf("save restaurant: %w", err)
	}

	s.logger.WithField("restaurant_id", restaurant.ID).Info("restaurant updated")
	return restaurant, nil
}

// Delete удаляет ресторан и каскадно его брони; возвращает удалённый
// ресторан и количество снятых броней.
func (s *Service) Delete(id string) (domain.Restaurant, int, error) {
	restaurant, err := s.restaurants.Get(id)
	if err != nil {
		return domain.Restaurant{}, 0, err
	}

	removed, err := s.restaurants.Delete(id)
	if err != nil {
		return domain.Restaurant{}, 0, err
	}

	s.logger.WithFields(log.Fields{
		"restaurant_id":        id,
		"removed_reservations": removed,
	}).Info("restaurant deleted")
	if s.metrics != nil {
		s.metrics.RecordReservationsRemoved(removed)
	}
	s.enqueueEvent(kafka.EventTypeRestaurantDeleted, restaurant, removed)

	return restaurant, removed, nil
}

func (s *Service) enqueueEvent(eventType kafka.EventType, restaurant domain.Restaurant, removed int) {
	if s.outbox == nil {
		return
	}

	event := kafka.NewRestaurantEvent(eventType, restaurant.ID, restaurant.Name, removed)
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).Warn("failed to marshal restaurant event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: kafka.AggregateTypeRestaurant,
		AggregateID:   restaurant.ID,
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).Warn("failed to enqueue restaurant event")
	}
}
