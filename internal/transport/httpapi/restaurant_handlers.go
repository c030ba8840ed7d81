package httpapi

import (
	"fmt"
	"net/http"

	"github.com/vladislavdragonenkov/rms/internal/domain"
	"github.com/vladislavdragonenkov/rms/internal/service/registry"
)

type restaurantPayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	PhotoURL    *string `json:"photo_url"`
}

func (s *Server) handleCreateRestaurant(w http.ResponseWriter, r *http.Request) {
	var payload restaurantPayload
	if err := decodeBody(r, &payload); err != nil {
		s.respondBadRequest(w, "Invalid JSON body")
		return
	}

	input := registry.CreateInput{}
	if payload.Name != nil {
		input.Name = *payload.Name
	}
	if payload.Description != nil {
		input.Description = *payload.Description
	}
	if payload.Address != nil {
		input.Address = *payload.Address
	}
	if payload.City != nil {
		input.City = *payload.City
	}
	if payload.PhotoURL != nil {
		input.PhotoURL = *payload.PhotoURL
	}

	restaurant, err := s.registry.Create(input)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondData(w, http.StatusCreated, toRestaurantDTO(restaurant), "Restaurant created successfully")
}

func (s *Server) handleGetRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurant, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondData(w, http.StatusOK, toRestaurantDTO(restaurant), "")
}

func (s *Server) handleListRestaurants(w http.ResponseWriter, r *http.Request) {
	filter := domain.RestaurantFilter{
		NamePrefix: r.URL.Query().Get("letter"),
		City:       r.URL.Query().Get("city"),
	}

	restaurants, err := s.registry.List(filter)
	if err != nil {
		s.respondError(w, err)
		return
	}

	dtos := make([]restaurantDTO, 0, len(restaurants))
	for _, restaurant := range restaurants {
		dtos = append(dtos, toRestaurantDTO(restaurant))
	}
	s.respondList(w, dtos, len(dtos))
}

func (s *Server) handleUpdateRestaurant(w http.ResponseWriter, r *http.Request) {
	var payload restaurantPayload
	if err := decodeBody(r, &payload); err != nil {
		s.respondBadRequest(w, "Invalid JSON body")
		return
	}

	restaurant, err := s.registry.Update(r.PathValue("id"), registry.UpdateInput{
		Name:        payload.Name,
		Description: payload.Description,
		Address:     payload.Address,
		City:        payload.City,
		PhotoURL:    payload.PhotoURL,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondData(w, http.StatusOK, toRestaurantDTO(restaurant), "Restaurant updated successfully")
}

func (s *Server) handleDeleteRestaurant(w http.ResponseWriter, r *http.Request) {
	_, removed, err := s.registry.Delete(r.PathValue("id"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	message := "Restaurant deleted successfully"
	if removed > 0 {
		message = fmt.Sprintf("Restaurant deleted successfully along with %d reservations", removed)
	}
	s.respondMessage(w, http.StatusOK, message)
}
