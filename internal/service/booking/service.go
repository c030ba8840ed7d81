package booking

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/rms/internal/domain"
	"github.com/vladislavdragonenkov/rms/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/rms/internal/metrics"
	"github.com/vladislavdragonenkov/rms/internal/service/capacity"
)

// Service управляет жизненным циклом брони: загружает данные кандидата,
// спрашивает решение у валидатора вместимости и применяет изменение
// состояния через репозиторий. Проверка и запись выполняются атомарно:
// решение admit/reject принимается внутри транзакции записи.
type Service struct {
	restaurants  domain.RestaurantRepository
	reservations domain.ReservationRepository
	validator    *capacity.Validator
	outbox       domain.OutboxRepository
	metrics      *metrics.BookingMetrics
	logger       *log.Entry
	now          func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithOutbox включает публикацию событий жизненного цикла через outbox.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(s *Service) {
		s.outbox = outbox
	}
}

// WithMetrics включает метрики бронирования.
func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock подменяет источник текущего времени (для тестов правила
// «дата не в прошлом»).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService конструирует сервис с зависимостями.
func NewService(
	restaurants domain.RestaurantRepository,
	reservations domain.ReservationRepository,
	validator *capacity.Validator,
	logger *log.Entry,
	options ...Option,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "booking-service")
	}
	s := &Service{
		restaurants:  restaurants,
		reservations: reservations,
		validator:    validator,
		logger:       logger,
		now:          time.Now,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// CreateInput — поля новой брони. Дата приходит строкой YYYY-MM-DD.
type CreateInput struct {
	RestaurantID  string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Date          string
	PartySize     int
}

// UpdateInput — частичное обновление: применяются только заданные поля.
type UpdateInput struct {
	RestaurantID  *string
	CustomerName  *string
	CustomerEmail *string
	CustomerPhone *string
	Date          *string
	PartySize     *int
}

// CreateResult несёт записанную бронь и подсказку об остатке столиков.
type CreateResult struct {
	Reservation domain.Reservation
	// AvailableTablesRemaining — остаток столиков ресторана на дату по
	// снимку, который видела допустившая транзакция, за вычетом этой
	// брони. Подсказка best-effort, после коммита не перечитывается.
	AvailableTablesRemaining int
}

// Create проводит кандидата через обе проверки вместимости и записывает
// бронь. Состояний у отклонённого кандидата нет: либо бронь записана,
// либо возвращена ошибка и хранилище не изменилось.
func (s *Service) Create(input CreateInput) (CreateResult, error) {
	date, verr := s.validateCreate(input)
	if verr != nil {
		return CreateResult{}, verr
	}

	if _, err := s.restaurants.Get(input.RestaurantID); err != nil {
		return CreateResult{}, err
	}

	res := domain.Reservation{
		ID:            uuid.NewString(),
		RestaurantID:  input.RestaurantID,
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		CustomerPhone: input.CustomerPhone,
		Date:          date,
		PartySize:     input.PartySize,
		CreatedAt:     s.now().UTC(),
	}

	var seen domain.CapacityCounts
	err := s.admitTimed(func() error {
		return s.reservations.Create(res, func(counts domain.CapacityCounts) error {
			seen = counts
			return s.validator.Admit(counts)
		})
	})
	if err != nil {
		return CreateResult{}, s.observeWriteErr("create", res, err)
	}

	s.logger.WithFields(log.Fields{
		"reservation_id": res.ID,
		"restaurant_id":  res.RestaurantID,
		"date":           res.Date.Format(domain.DateLayout),
		"party_size":     res.PartySize,
	}).Info("reservation created")

	if s.metrics != nil {
		s.metrics.RecordReservationCreated()
	}
	s.enqueueEvent(kafka.EventTypeReservationCreated, res)

	remaining := s.validator.Limits().MaxTablesPerRestaurant - seen.Restaurant - 1
	if remaining < 0 {
		remaining = 0
	}
	return CreateResult{Reservation: res, AvailableTablesRemaining: remaining}, nil
}

// Get возвращает бронь по идентификатору.
func (s *Service) Get(id string) (domain.Reservation, error) {
	return s.reservations.Get(id)
}

// List возвращает брони по фильтру: свежие даты первыми.
func (s *Service) List(filter domain.ReservationFilter) ([]domain.Reservation, error) {
	return s.reservations.List(filter)
}

// Update применяет частичное обновление. Проверки вместимости повторяются
// только если меняется ресторан или дата; счётчики при этом берутся по
// новому ключу без учёта самой перемещаемой брони. Чистая правка полей
// (например, переименование гостя) проходит без перепроверки, даже если
// ключ сейчас полностью занят: бронь уже учтена в его счётчиках.
func (s *Service) Update(id string, input UpdateInput) (domain.Reservation, error) {
	existing, err := s.reservations.Get(id)
	if err != nil {
		return domain.Reservation{}, err
	}

	updated, effDate, verr := s.applyUpdate(existing, input)
	if verr != nil {
		return domain.Reservation{}, verr
	}

	revalidate := updated.RestaurantID != existing.RestaurantID || !effDate.Equal(existing.Date)

	if updated.RestaurantID != existing.RestaurantID {
		if _, err := s.restaurants.Get(updated.RestaurantID); err != nil {
			return domain.Reservation{}, err
		}
	}

	var admit domain.AdmitFunc
	if revalidate {
		admit = s.validator.Admit
	}

	err = s.admitTimed(func() error {
		return s.reservations.Save(updated, admit)
	})
	if err != nil {
		return domain.Reservation{}, s.observeWriteErr("update", updated, err)
	}

	s.logger.WithFields(log.Fields{
		"reservation_id": updated.ID,
		"revalidated":    revalidate,
	}).Info("reservation updated")
	if s.metrics != nil {
		s.metrics.RecordReservationUpdated()
	}
	s.enqueueEvent(kafka.EventTypeReservationUpdated, updated)

	return updated, nil
}

// Delete удаляет бронь безусловно; слот в обоих счётчиках освобождается
// самим удалением строки.
func (s *Service) Delete(id string) (domain.Reservation, error) {
	res, err := s.reservations.Get(id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := s.reservations.Delete(id); err != nil {
		return domain.Reservation{}, err
	}

	s.logger.WithField("reservation_id", id).Info("reservation canceled")
	if s.metrics != nil {
		s.metrics.RecordReservationCanceled()
	}
	s.enqueueEvent(kafka.EventTypeReservationCanceled, res)

	return res, nil
}

// Availability — read-only обёртка над комбинированной проверкой
// вместимости для пары (ресторан, дата).
func (s *Service) Availability(restaurantID string, date time.Time) (capacity.Availability, error) {
	if _, err := s.restaurants.Get(restaurantID); err != nil {
		return capacity.Availability{}, err
	}
	return s.validator.Availability(restaurantID, date)
}

// validateCreate собирает все нарушения входа, включая правило
// «дата не раньше сегодняшней». Прошедшая дата отсекается здесь и до
// проверок вместимости не доходит.
func (s *Service) validateCreate(input CreateInput) (time.Time, *domain.ValidationError) {
	candidate := domain.Reservation{
		ID:            "candidate",
		RestaurantID:  input.RestaurantID,
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		CustomerPhone: input.CustomerPhone,
		PartySize:     input.PartySize,
	}

	var date time.Time
	verr := domain.NewValidationError()
	if input.Date == "" {
		verr.Add("reservation_date", "reservation_date is required")
	} else {
		parsed, err := domain.ParseDate(input.Date)
		if err != nil {
			verr.Add("reservation_date", "must be a date in YYYY-MM-DD format")
		} else {
			date = parsed
			candidate.Date = parsed
			if parsed.Before(domain.NormalizeDate(s.now())) {
				verr.Add("reservation_date", "cannot be in the past")
			}
		}
	}

	if fieldErr := candidate.ValidateInvariants(); fieldErr != nil {
		for field, messages := range fieldErr.Fields {
			if field == "reservation_date" && len(verr.Fields[field]) > 0 {
				continue
			}
			for _, msg := range messages {
				verr.Add(field, msg)
			}
		}
	}

	if v := verr.ErrOrNil(); v != nil {
		return time.Time{}, v
	}
	return date, nil
}

// applyUpdate накладывает заданные поля на существующую бронь и валидирует
// результат; возвращает эффективную дату для решения о перепроверке.
func (s *Service) applyUpdate(existing domain.Reservation, input UpdateInput) (domain.Reservation, time.Time, *domain.ValidationError) {
	updated := existing
	verr := domain.NewValidationError()

	if input.RestaurantID != nil {
		updated.RestaurantID = *input.RestaurantID
	}
	if input.CustomerName != nil {
		updated.CustomerName = *input.CustomerName
	}
	if input.CustomerEmail != nil {
		updated.CustomerEmail = *input.CustomerEmail
	}
	if input.CustomerPhone != nil {
		updated.CustomerPhone = *input.CustomerPhone
	}
	if input.PartySize != nil {
		updated.PartySize = *input.PartySize
	}
	if input.Date != nil {
		parsed, err := domain.ParseDate(*input.Date)
		if err != nil {
			verr.Add("reservation_date", "must be a date in YYYY-MM-DD format")
		} else {
			updated.Date = parsed
			if !parsed.Equal(existing.Date) && parsed.Before(domain.NormalizeDate(s.now())) {
				verr.Add("reservation_date", "cannot be in the past")
			}
		}
	}

	if fieldErr := updated.ValidateInvariants(); fieldErr != nil {
		for field, messages := range fieldErr.Fields {
			if field == "reservation_date" && len(verr.Fields[field]) > 0 {
				continue
			}
			for _, msg := range messages {
				verr.Add(field, msg)
			}
		}
	}

	if v := verr.ErrOrNil(); v != nil {
		return domain.Reservation{}, time.Time{}, v
	}
	return updated, updated.Date, nil
}

func (s *Service) admitTimed(fn func() error) error {
	start := time.Now()
	err := fn()
	if s.metrics != nil {
		s.metrics.RecordAdmitDuration(time.Since(start))
	}
	return err
}

// observeWriteErr учитывает отказ вместимости в метриках и логе,
// остальные ошибки пропускает как есть.
func (s *Service) observeWriteErr(op string, res domain.Reservation, err error) error {
	if capErr, ok := domain.AsCapacityError(err); ok {
		if s.metrics != nil {
			s.metrics.RecordCapacityRejection(string(capErr.Scope))
		}
		s.logger.WithFields(log.Fields{
			"op":            op,
			"restaurant_id": res.RestaurantID,
			"date":          res.Date.Format(domain.DateLayout),
			"scope":         string(capErr.Scope),
		}).Info("reservation rejected: capacity exceeded")
		return err
	}
	return fmt.Errorf("%s reservation: %w", op, err)
}

func (s *Service) enqueueEvent(eventType kafka.EventType, res domain.Reservation) {
	if s.outbox == nil {
		return
	}

	event := kafka.NewReservationEvent(
		eventType,
		res.ID,
		res.RestaurantID,
		res.Date.Format(domain.DateLayout),
		res.PartySize,
	)
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).Warn("failed to marshal reservation event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: kafka.AggregateTypeReservation,
		AggregateID:   res.ID,
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).Warn("failed to enqueue reservation event")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}
