package store

import (
	"sort"
	"time"

	"github.com/hotelier-app/hotelier/internal/domain"
)

const millisPerDay = 86_400_000

// hotelScore is the transient per-pass scoring state for one hotel. A hotel
// with no reviews has no defined score and sorts strictly after any hotel
// that has one.
type hotelScore struct {
	defined    bool
	rankValue  float64
	minAgeDays int64
}

// RecomputeRankings reorders every city's hotels by recency-weighted score,
// assigns 1-based ranks, and returns the cities whose leader changed in this
// pass, mapped to their new rank-1 hotel.
//
// The pass holds the review lock (read) and the hotel lock (write) for its
// whole duration, in the same order as InsertReview, so it observes either
// all of a concurrent insertion's effects or none of them.
func (s *Store) RecomputeRankings(now time.Time) map[string]domain.Hotel {
	nowMillis := now.UnixMilli()
	changed := map[string]domain.Hotel{}

	s.reviewsMu.RLock()
	defer s.reviewsMu.RUnlock()
	s.hotelsMu.Lock()
	defer s.hotelsMu.Unlock()

	reviewsByHotel := map[int][]*domain.Review{}
	for _, r := range s.reviews {
		reviewsByHotel[r.HotelID] = append(reviewsByHotel[r.HotelID], r)
	}

	scores := map[int]hotelScore{}
	cities := map[string][]int{}
	for id, h := range s.hotels {
		scores[id] = scoreHotel(reviewsByHotel[id], nowMillis)
		cities[h.City] = append(cities[h.City], id)
	}

	for city, ids := range cities {
		sort.Slice(ids, func(i, j int) bool {
			return ranksBefore(scores[ids[i]], scores[ids[j]], ids[i], ids[j])
		})

		for i, id := range ids {
			s.hotels[id].Rank = i + 1
		}

		leader := ids[0]
		if s.leaders[city] != leader {
			s.leaders[city] = leader
			changed[city] = cloneHotel(s.hotels[leader])
		}
	}

	s.hotelsDirty.Store(true)

	return changed
}

// scoreHotel computes the recency-weighted score for one hotel's reviews.
// Each review weighs 1/ageDays, where ageDays is the floor of the review's
// age in whole days plus one; the plus one keeps same-day reviews from
// producing a zero divisor. The weighted mean is clamped to 5.0 to absorb
// floating-point overshoot, then the review count is added so that at equal
// quality more-reviewed hotels rank higher.
func scoreHotel(reviews []*domain.Review, nowMillis int64) hotelScore {
	if len(reviews) == 0 {
		return hotelScore{}
	}

	var weightedSum, weightSum float64
	minAgeDays := int64(-1)
	for _, r := range reviews {
		ageDays := (nowMillis-r.Timestamp)/millisPerDay + 1
		if minAgeDays < 0 || ageDays < minAgeDays {
			minAgeDays = ageDays
		}
		weightedSum += r.Rate / float64(ageDays)
		weightSum += 1.0 / float64(ageDays)
	}

	mean := weightedSum / weightSum
	if mean > 5.0 {
		mean = 5.0
	}

	return hotelScore{
		defined:    true,
		rankValue:  mean + float64(len(reviews)),
		minAgeDays: minAgeDays,
	}
}

// ranksBefore reports whether hotel a sorts before hotel b within a city.
// Higher rank value first; at equal rank value the more recently reviewed
// hotel first; at full equality the lower id first. An undefined score loses
// to any defined one on both rules.
func ranksBefore(a, b hotelScore, aID, bID int) bool {
	switch {
	case a.defined && !b.defined:
		return true
	case !a.defined && b.defined:
		return false
	case a.defined && b.defined && a.rankValue != b.rankValue:
		return a.rankValue > b.rankValue
	}

	if a.defined && b.defined && a.minAgeDays != b.minAgeDays {
		return a.minAgeDays < b.minAgeDays
	}

	return aID < bID
}
