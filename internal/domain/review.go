package domain

// ReviewKey addresses a review uniquely: at most one review exists per
// (username, hotel) pair. A typed key rather than a joined string, so a
// username containing a separator character cannot collide.
type ReviewKey struct {
	Username string
	HotelID  int
}

// Review is one user's review of one hotel. Timestamp is Unix milliseconds;
// the ranking pass derives review age in whole days from it. A resubmission
// by the same user for the same hotel replaces the previous review in place.
type Review struct {
	Username  string  `json:"username"`
	HotelID   int     `json:"hotel_id"`
	Rate      float64 `json:"rate"`
	Ratings   Ratings `json:"ratings"`
	Timestamp int64   `json:"timestamp"`
}

// Key returns the storage key for the review.
func (r Review) Key() ReviewKey {
	return ReviewKey{Username: r.Username, HotelID: r.HotelID}
}
