// Package store holds the authoritative state of the server: users, the
// hotel catalog, reviews, and the per-city rankings derived from them. All
// mutation funnels through Store methods; callers only ever receive copies
// of stored entities.
package store

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hotelier-app/hotelier/internal/auth"
	"github.com/hotelier-app/hotelier/internal/domain"
)

// Store is the concurrent map of users, hotels and reviews, plus the
// per-city leader tracking used by the ranking pass.
//
// Lock order: reviewsMu before hotelsMu, always. Review insertion and the
// ranking pass take both; everything that touches a hotel's aggregate fields
// goes through that pair, so a ranking pass never observes a half-applied
// aggregate update. usersMu is independent and never held across the other
// two being acquired.
type Store struct {
	usersMu sync.RWMutex
	users   map[string]*domain.User

	reviewsMu sync.RWMutex
	reviews   map[domain.ReviewKey]*domain.Review

	hotelsMu sync.RWMutex
	hotels   map[int]*domain.Hotel
	leaders  map[string]int // city -> id of the current rank-1 hotel, guarded by hotelsMu

	usersDirty   atomic.Bool
	hotelsDirty  atomic.Bool
	reviewsDirty atomic.Bool

	digest auth.PasswordDigest
}

// New returns an empty Store. Production code loads state from snapshots via
// Load instead; New is the seam for tests and for Load itself.
func New(digest auth.PasswordDigest) *Store {
	return &Store{
		users:   map[string]*domain.User{},
		reviews: map[domain.ReviewKey]*domain.Review{},
		hotels:  map[int]*domain.Hotel{},
		leaders: map[string]int{},
		digest:  digest,
	}
}

// RegisterUser creates a new account with the hashed password and returns
// the stored user. The existence check and the insert happen under one
// critical section, so concurrent registrations of the same name produce
// exactly one winner.
func (s *Store) RegisterUser(username, password string) (domain.User, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return domain.User{}, fmt.Errorf("registering user: %w", domain.ErrValidation)
	}

	digest, err := s.digest.Hash(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("registering user %q: %w", username, err)
	}

	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	if _, exists := s.users[username]; exists {
		return domain.User{}, fmt.Errorf("registering user %q: %w", username, domain.ErrUsernameConflict)
	}

	user := &domain.User{Username: username, Password: digest}
	s.users[username] = user
	s.usersDirty.Store(true)

	return *user, nil
}

// LookupUser returns the user with the given username, if present.
func (s *Store) LookupUser(username string) (domain.User, bool) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return domain.User{}, false
	}
	return *user, true
}

// LookupHotel returns the first hotel matching (name, city) exactly. The
// catalog is small and read-mostly, so a linear scan is fine.
func (s *Store) LookupHotel(name, city string) (domain.Hotel, bool) {
	s.hotelsMu.RLock()
	defer s.hotelsMu.RUnlock()

	for _, h := range s.hotels {
		if h.Name == name && h.City == city {
			return cloneHotel(h), true
		}
	}
	return domain.Hotel{}, false
}

// HotelsByCity returns the city's hotels ordered by current rank, best first.
func (s *Store) HotelsByCity(city string) []domain.Hotel {
	s.hotelsMu.RLock()
	defer s.hotelsMu.RUnlock()

	var hotels []domain.Hotel
	for _, h := range s.hotels {
		if h.City == city {
			hotels = append(hotels, cloneHotel(h))
		}
	}

	sort.Slice(hotels, func(i, j int) bool {
		if hotels[i].Rank != hotels[j].Rank {
			return hotels[i].Rank < hotels[j].Rank
		}
		return hotels[i].ID < hotels[j].ID
	})

	return hotels
}

// InsertOrUpdateHotel upserts a hotel by id. Idempotent.
func (s *Store) InsertOrUpdateHotel(hotel domain.Hotel) {
	s.hotelsMu.Lock()
	defer s.hotelsMu.Unlock()

	stored := cloneHotel(&hotel)
	s.hotels[hotel.ID] = &stored
	s.hotelsDirty.Store(true)
}

// InsertReview upserts the review under its (username, hotel) key,
// increments the author's review counter, and recomputes the target hotel's
// aggregate rate and sub-rating means from its full current review set.
// The aggregate update holds both coarse locks, serializing it against other
// insertions for the same hotel and against the ranking pass.
func (s *Store) InsertReview(review domain.Review) error {
	s.reviewsMu.Lock()
	defer s.reviewsMu.Unlock()
	s.hotelsMu.Lock()
	defer s.hotelsMu.Unlock()

	hotel, ok := s.hotels[review.HotelID]
	if !ok {
		return fmt.Errorf("inserting review for hotel %d: %w", review.HotelID, domain.ErrHotelNotFound)
	}

	s.reviews[review.Key()] = &review
	s.reviewsDirty.Store(true)

	s.usersMu.Lock()
	if user, ok := s.users[review.Username]; ok {
		user.ReviewCount++
		s.usersDirty.Store(true)
	}
	s.usersMu.Unlock()

	reviews := s.hotelReviewsLocked(review.HotelID)
	var rate float64
	var sums domain.Ratings
	for _, r := range reviews {
		rate += r.Rate
		sums.Cleaning += r.Ratings.Cleaning
		sums.Position += r.Ratings.Position
		sums.Services += r.Ratings.Services
		sums.Quality += r.Ratings.Quality
	}

	n := float64(len(reviews))
	hotel.Rate = round2(rate / n)
	hotel.Ratings = domain.Ratings{
		Cleaning: round2(sums.Cleaning / n),
		Position: round2(sums.Position / n),
		Services: round2(sums.Services / n),
		Quality:  round2(sums.Quality / n),
	}
	s.hotelsDirty.Store(true)

	return nil
}

// HotelReviews returns all reviews for the given hotel.
func (s *Store) HotelReviews(hotelID int) []domain.Review {
	s.reviewsMu.RLock()
	defer s.reviewsMu.RUnlock()

	return s.hotelReviewsLocked(hotelID)
}

// hotelReviewsLocked filters the review map; the caller holds reviewsMu.
func (s *Store) hotelReviewsLocked(hotelID int) []domain.Review {
	var reviews []domain.Review
	for _, r := range s.reviews {
		if r.HotelID == hotelID {
			reviews = append(reviews, *r)
		}
	}
	return reviews
}

// round2 rounds to 2 decimal places, halves up.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// cloneHotel copies a hotel including its services slice, so callers never
// alias store-owned memory.
func cloneHotel(h *domain.Hotel) domain.Hotel {
	clone := *h
	if h.Services != nil {
		clone.Services = append([]string(nil), h.Services...)
	}
	return clone
}
