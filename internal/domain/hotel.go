package domain

// Ratings holds the four per-category sub-scores of a review, or the
// per-category means of a hotel. Values are conventionally 0.0–5.0; range
// validation is a caller concern.
type Ratings struct {
	Cleaning float64 `json:"cleaning"`
	Position float64 `json:"position"`
	Services float64 `json:"services"`
	Quality  float64 `json:"quality"`
}

// Hotel is one catalog entry. Rate and Ratings are aggregate means over the
// hotel's full review set, rounded to 2 decimals. Rank is the hotel's 1-based
// position within its city as of the last ranking pass.
//
// The recency-weighted score that orders hotels within a city is transient:
// it is computed per ranking pass and never stored on the entity.
type Hotel struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	City        string   `json:"city"`
	Phone       string   `json:"phone"`
	Services    []string `json:"services"`
	Rate        float64  `json:"rate"`
	Ratings     Ratings  `json:"ratings"`
	Rank        int      `json:"rank"`
}
