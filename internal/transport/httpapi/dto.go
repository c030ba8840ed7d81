package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/rms/internal/domain"
	"github.com/vladislavdragonenkov/rms/internal/service/capacity"
)

type restaurantDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	City        string `json:"city"`
	PhotoURL    string `json:"photo_url"`
	CreatedAt   string `json:"created_at"`
}

type reservationDTO struct {
	ID            string         `json:"id"`
	RestaurantID  string         `json:"restaurant_id"`
	Restaurant    *restaurantDTO `json:"restaurant,omitempty"`
	CustomerName  string         `json:"customer_name"`
	CustomerEmail string         `json:"customer_email"`
	CustomerPhone string         `json:"customer_phone"`
	Date          string         `json:"reservation_date"`
	PartySize     int            `json:"number_of_people"`
	CreatedAt     string         `json:"created_at"`
}

type availabilityDTO struct {
	Success    bool                      `json:"success"`
	Available  bool                      `json:"available"`
	Restaurant restaurantAvailabilityDTO `json:"restaurant"`
	DailyLimit dailyLimitDTO             `json:"daily_limit"`
}

type restaurantAvailabilityDTO struct {
	AvailableTables int    `json:"available_tables"`
	Message         string `json:"message"`
}

type dailyLimitDTO struct {
	TotalReservations int    `json:"total_reservations"`
	Remaining         int    `json:"remaining"`
	Message           string `json:"message"`
}

func toRestaurantDTO(r domain.Restaurant) restaurantDTO {
	return restaurantDTO{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Address:     r.Address,
		City:        r.City,
		PhotoURL:    r.PhotoURL,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

func toReservationDTO(res domain.Reservation, restaurant *domain.Restaurant) reservationDTO {
	dto := reservationDTO{
		ID:            res.ID,
		RestaurantID:  res.RestaurantID,
		CustomerName:  res.CustomerName,
		CustomerEmail: res.CustomerEmail,
		CustomerPhone: res.CustomerPhone,
		Date:          res.Date.Format(domain.DateLayout),
		PartySize:     res.PartySize,
		CreatedAt:     res.CreatedAt.Format(time.RFC3339),
	}
	if restaurant != nil {
		nested := toRestaurantDTO(*restaurant)
		dto.Restaurant = &nested
	}
	return dto
}

func toAvailabilityDTO(a capacity.Availability) availabilityDTO {
	restaurantMsg := "Tables available"
	if !a.Restaurant.Admit {
		restaurantMsg = "No tables available for this date"
	}
	dailyMsg := "Daily capacity available"
	if !a.Daily.Admit {
		dailyMsg = "Daily reservation limit reached"
	}
	return availabilityDTO{
		Success:   true,
		Available: a.Available,
		Restaurant: restaurantAvailabilityDTO{
			AvailableTables: a.Restaurant.AvailableTables,
			Message:         restaurantMsg,
		},
		DailyLimit: dailyLimitDTO{
			TotalReservations: a.Daily.TotalReservations,
			Remaining:         a.Daily.Remaining,
			Message:           dailyMsg,
		},
	}
}
