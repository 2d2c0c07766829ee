package controller

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hotelier-app/hotelier/internal/domain"
)

// CityLister is the slice of the store the preview endpoint reads.
type CityLister interface {
	HotelsByCity(city string) []domain.Hotel
}

// CityHotels serves the ranked catalog for one city, best hotel first. The
// HTTP counterpart of the protocol's searchAllHotels command.
type CityHotels struct {
	Catalog CityLister
}

type CityHotelsResponse struct {
	Data []domain.Hotel `json:"data"`
}

func (c CityHotels) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	city := mux.Vars(r)["city"]

	hotels := c.Catalog.HotelsByCity(city)
	if len(hotels) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(CityHotelsResponse{Data: hotels}); err != nil {
		ctx := r.Context()
		logger := domain.LoggerFromContext(ctx)
		logger.ErrorContext(ctx, "unable to write hotels to response", "error", err)
	}
}
