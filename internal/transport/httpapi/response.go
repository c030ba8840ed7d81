package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/vladislavdragonenkov/rms/internal/domain"
)

// envelope — единый формат ответа API. Необязательные поля опускаются,
// чтобы форма ответа зависела только от исхода операции.
type envelope struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
	// Count сопровождает списочные ответы.
	Count *int `json:"count,omitempty"`
	// AvailableTables присутствует при отказе по столикам ресторана (всегда 0).
	AvailableTables *int `json:"available_tables,omitempty"`
	// TotalReservations присутствует при отказе по дневному лимиту.
	TotalReservations *int `json:"total_reservations,omitempty"`
	// AvailableTablesRemaining — подсказка в ответе на создание брони.
	AvailableTablesRemaining *int `json:"available_tables_remaining,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Warn("failed to encode response body")
	}
}

func (s *Server) respondData(w http.ResponseWriter, status int, data any, message string) {
	s.writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

func (s *Server) respondList(w http.ResponseWriter, data any, count int) {
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Count: &count})
}

func (s *Server) respondMessage(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, envelope{Success: true, Message: message})
}

func (s *Server) respondBadRequest(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: message})
}

// respondError переводит доменную ошибку в статус и тело ответа.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	if verr, ok := domain.AsValidationError(err); ok {
		s.writeJSON(w, http.StatusBadRequest, envelope{
			Success: false,
			Message: "Validation failed",
			Errors:  verr.Fields,
		})
		return
	}

	if capErr, ok := domain.AsCapacityError(err); ok {
		body := envelope{Success: false}
		switch capErr.Scope {
		case domain.CapacityScopeDaily:
			body.Message = fmt.Sprintf("Daily reservation limit of %d reached for the selected date", capErr.Limit)
			total := capErr.TotalReservations
			body.TotalReservations = &total
		default:
			body.Message = "No available tables at this restaurant for the selected date"
			available := capErr.AvailableTables
			body.AvailableTables = &available
		}
		s.writeJSON(w, http.StatusBadRequest, body)
		return
	}

	switch {
	case errors.Is(err, domain.ErrRestaurantNotFound):
		s.writeJSON(w, http.StatusNotFound, envelope{Success: false, Message: "Restaurant not found"})
	case errors.Is(err, domain.ErrReservationNotFound):
		s.writeJSON(w, http.StatusNotFound, envelope{Success: false, Message: "Reservation not found"})
	default:
		s.logger.WithError(err).Error("request failed")
		s.writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: "Internal server error"})
	}
}

// decodeBody читает JSON-тело запроса, отклоняя неизвестные поля.
func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
