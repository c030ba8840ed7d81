package httpapi

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/rms/internal/metrics"
	"github.com/vladislavdragonenkov/rms/internal/service/booking"
	"github.com/vladislavdragonenkov/rms/internal/service/registry"
)

// Server — HTTP-слой API: маршрутизация, формат ответа и сквозные
// middleware. Бизнес-логика целиком живёт в сервисах.
type Server struct {
	registry *registry.Service
	booking  *booking.Service
	metrics  *metrics.HTTPMetrics
	limiter  *clientLimiter
	logger   *log.Entry
}

// Option настраивает Server.
type Option func(*Server)

// WithHTTPMetrics включает метрики запросов.
func WithHTTPMetrics(m *metrics.HTTPMetrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRateLimit включает ограничение частоты запросов на клиента.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.limiter = newClientLimiter(rps, burst)
	}
}

// NewServer конструирует HTTP-слой поверх сервисов.
func NewServer(registrySvc *registry.Service, bookingSvc *booking.Service, logger *log.Entry, options ...Option) *Server {
	if logger == nil {
		logger = log.New().WithField("component", "http-api")
	}
	s := &Server{
		registry: registrySvc,
		booking:  bookingSvc,
		logger:   logger,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Handler собирает маршруты и навешивает middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/restaurants", s.handleListRestaurants)
	mux.HandleFunc("POST /api/restaurants", s.handleCreateRestaurant)
	mux.HandleFunc("GET /api/restaurants/{id}", s.handleGetRestaurant)
	mux.HandleFunc("PUT /api/restaurants/{id}", s.handleUpdateRestaurant)
	mux.HandleFunc("DELETE /api/restaurants/{id}", s.handleDeleteRestaurant)

	mux.HandleFunc("GET /api/reservations", s.handleListReservations)
	mux.HandleFunc("POST /api/reservations", s.handleCreateReservation)
	mux.HandleFunc("GET /api/reservations/availability/{restaurant_id}/{date}", s.handleAvailability)
	mux.HandleFunc("GET /api/reservations/{id}", s.handleGetReservation)
	mux.HandleFunc("PUT /api/reservations/{id}", s.handleUpdateReservation)
	mux.HandleFunc("DELETE /api/reservations/{id}", s.handleDeleteReservation)

	var handler http.Handler = mux
	handler = s.withObservability(handler)
	if s.limiter != nil {
		handler = s.withRateLimit(handler)
	}
	handler = s.withRecovery(handler)
	return handler
}
