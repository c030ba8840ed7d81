package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics содержит метрики жизненного цикла броней.
type BookingMetrics struct {
	// Счётчики операций
	reservationsCreated  prometheus.Counter
	reservationsUpdated  prometheus.Counter
	reservationsCanceled prometheus.Counter

	// Отказы проверки вместимости по размерности лимита
	capacityRejections *prometheus.CounterVec

	// Гистограмма времени решения admit/reject вместе с записью
	admitDuration prometheus.Histogram

	// Счётчик событий outbox
	outboxEvents prometheus.Counter

	// Gauge активных (записанных и не отменённых) броней
	reservationsOnBooks prometheus.Gauge
}

// NewBookingMetrics создаёт и регистрирует метрики бронирования.
func NewBookingMetrics() *BookingMetrics {
	return newBookingMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewBookingMetricsWithRegisterer регистрирует метрики в переданном
// Registerer. Используется в тестах с изолированным реестром.
func NewBookingMetricsWithRegisterer(registerer prometheus.Registerer) *BookingMetrics {
	return newBookingMetricsWithRegisterer(registerer)
}

func newBookingMetricsWithRegisterer(registerer prometheus.Registerer) *BookingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &BookingMetrics{
		reservationsCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "rms_reservations_created_total",
			Help: "Total number of reservations admitted and persisted",
		}),
		reservationsUpdated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "rms_reservations_updated_total",
			Help: "Total number of reservation updates applied",
		}),
		reservationsCanceled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "rms_reservations_canceled_total",
			Help: "Total number of reservations deleted",
		}),
		capacityRejections: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "rms_capacity_rejections_total",
			Help: "Total number of capacity check rejections grouped by limit scope",
		}, []string{"scope"}),
		admitDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "rms_reservation_admit_duration_seconds",
			Help:    "Duration of the transactional admit-and-write path in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "rms_booking_outbox_events_total",
			Help: "Total number of booking events enqueued to the outbox",
		}),
		reservationsOnBooks: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "rms_reservations_on_books",
			Help: "Number of reservations currently on the books",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordReservationCreated учитывает допущенную и записанную бронь.
func (m *BookingMetrics) RecordReservationCreated() {
	m.reservationsCreated.Inc()
	m.reservationsOnBooks.Inc()
}

// RecordReservationUpdated учитывает применённое обновление брони.
func (m *BookingMetrics) RecordReservationUpdated() {
	m.reservationsUpdated.Inc()
}

// RecordReservationCanceled учитывает удаление брони.
func (m *BookingMetrics) RecordReservationCanceled() {
	m.reservationsCanceled.Inc()
	m.reservationsOnBooks.Dec()
}

// RecordReservationsRemoved учитывает брони, снятые каскадным удалением
// ресторана: счётчик отмен и gauge активных броней уменьшаются на пачку.
func (m *BookingMetrics) RecordReservationsRemoved(count int) {
	if count <= 0 {
		return
	}
	m.reservationsCanceled.Add(float64(count))
	m.reservationsOnBooks.Sub(float64(count))
}

// RecordCapacityRejection учитывает отказ проверки вместимости.
func (m *BookingMetrics) RecordCapacityRejection(scope string) {
	m.capacityRejections.WithLabelValues(scope).Inc()
}

// RecordAdmitDuration записывает длительность транзакции admit+write.
func (m *BookingMetrics) RecordAdmitDuration(duration time.Duration) {
	m.admitDuration.Observe(duration.Seconds())
}

// RecordOutboxEvent учитывает событие, поставленное в outbox.
func (m *BookingMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
