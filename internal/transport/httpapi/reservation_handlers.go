package httpapi

import (
	"net/http"

	"github.com/vladislavdragonenkov/rms/internal/domain"
	"github.com/vladislavdragonenkov/rms/internal/service/booking"
)

type reservationPayload struct {
	RestaurantID  *string `json:"restaurant_id"`
	CustomerName  *string `json:"customer_name"`
	CustomerEmail *string `json:"customer_email"`
	CustomerPhone *string `json:"customer_phone"`
	Date          *string `json:"reservation_date"`
	PartySize     *int    `json:"number_of_people"`
}

func (s *Server) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var payload reservationPayload
	if err := decodeBody(r, &payload); err != nil {
		s.respondBadRequest(w, "Invalid JSON body")
		return
	}

	input := booking.CreateInput{}
	if payload.RestaurantID != nil {
		input.RestaurantID = *payload.RestaurantID
	}
	if payload.CustomerName != nil {
		input.CustomerName = *payload.CustomerName
	}
	if payload.CustomerEmail != nil {
		input.CustomerEmail = *payload.CustomerEmail
	}
	if payload.CustomerPhone != nil {
		input.CustomerPhone = *payload.CustomerPhone
	}
	if payload.Date != nil {
		input.Date = *payload.Date
	}
	if payload.PartySize != nil {
		input.PartySize = *payload.PartySize
	}

	result, err := s.booking.Create(input)
	if err != nil {
		s.respondError(w, err)
		return
	}

	remaining := result.AvailableTablesRemaining
	s.writeJSON(w, http.StatusCreated, envelope{
		Success:                  true,
		Data:                     s.reservationWithRestaurant(result.Reservation),
		Message:                  "Reservation created successfully",
		AvailableTablesRemaining: &remaining,
	})
}

func (s *Server) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	reservation, err := s.booking.Get(r.PathValue("id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondData(w, http.StatusOK, s.reservationWithRestaurant(reservation), "")
}

func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	filter := domain.ReservationFilter{
		RestaurantID: r.URL.Query().Get("restaurant_id"),
	}
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := domain.ParseDate(raw)
		if err != nil {
			s.respondBadRequest(w, "Invalid date format. Use YYYY-MM-DD")
			return
		}
		filter.Date = &date
	}

	reservations, err := s.booking.List(filter)
	if err != nil {
		s.respondError(w, err)
		return
	}

	dtos := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		dtos = append(dtos, s.reservationWithRestaurant(reservation))
	}
	s.respondList(w, dtos, len(dtos))
}

func (s *Server) handleUpdateReservation(w http.ResponseWriter, r *http.Request) {
	var payload reservationPayload
	if err := decodeBody(r, &payload); err != nil {
		s.respondBadRequest(w, "Invalid JSON body")
		return
	}

	reservation, err := s.booking.Update(r.PathValue("id"), booking.UpdateInput{
		RestaurantID:  payload.RestaurantID,
		CustomerName:  payload.CustomerName,
		CustomerEmail: payload.CustomerEmail,
		CustomerPhone: payload.CustomerPhone,
		Date:          payload.Date,
		PartySize:     payload.PartySize,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondData(w, http.StatusOK, s.reservationWithRestaurant(reservation), "Reservation updated successfully")
}

func (s *Server) handleDeleteReservation(w http.ResponseWriter, r *http.Request) {
	if _, err := s.booking.Delete(r.PathValue("id")); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondMessage(w, http.StatusOK, "Reservation deleted successfully")
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	date, err := domain.ParseDate(r.PathValue("date"))
	if err != nil {
		s.respondBadRequest(w, "Invalid date format. Use YYYY-MM-DD")
		return
	}

	availability, err := s.booking.Availability(r.PathValue("restaurant_id"), date)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toAvailabilityDTO(availability))
}

// reservationWithRestaurant прикладывает карточку ресторана к брони.
// Отсутствующий ресторан (гонка с удалением) не считается ошибкой ответа.
func (s *Server) reservationWithRestaurant(reservation domain.Reservation) reservationDTO {
	restaurant, err := s.registry.Get(reservation.RestaurantID)
	if err != nil {
		return toReservationDTO(reservation, nil)
	}
	return toReservationDTO(reservation, &restaurant)
}
