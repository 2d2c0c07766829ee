package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hotelier-app/hotelier/internal/auth"
	"github.com/hotelier-app/hotelier/internal/domain"
)

// Snapshot file names, one per collection. Each is a pretty-printed JSON
// array, overwritten in full on every dirty cycle.
const (
	usersFile   = "Users.json"
	hotelsFile  = "Hotels.json"
	reviewsFile = "Reviews.json"
)

// Load builds a Store from the snapshots in dir. The hotel catalog must
// exist and parse; users and reviews are created empty when absent. Per-city
// leaders are initialized from the persisted ranks so that the first ranking
// pass after startup only reports genuine leadership changes.
func Load(dir string, digest auth.PasswordDigest) (*Store, error) {
	s := New(digest)

	var hotels []domain.Hotel
	data, err := os.ReadFile(filepath.Join(dir, hotelsFile))
	if err != nil {
		return nil, fmt.Errorf("reading hotel catalog: %w", err)
	}
	if err := json.Unmarshal(data, &hotels); err != nil {
		return nil, fmt.Errorf("parsing hotel catalog: %w", err)
	}
	for i := range hotels {
		h := hotels[i]
		s.hotels[h.ID] = &h
	}

	var users []domain.User
	if err := loadOptional(filepath.Join(dir, usersFile), &users); err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	for i := range users {
		u := users[i]
		s.users[u.Username] = &u
	}

	var reviews []domain.Review
	if err := loadOptional(filepath.Join(dir, reviewsFile), &reviews); err != nil {
		return nil, fmt.Errorf("loading reviews: %w", err)
	}
	for i := range reviews {
		r := reviews[i]
		s.reviews[r.Key()] = &r
	}

	s.initLeaders()

	return s, nil
}

// loadOptional reads a snapshot that is allowed to be missing, creating it
// as an empty array so the first persistence cycle has a file to replace.
func loadOptional(path string, out any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return os.WriteFile(path, []byte("[]"), 0o644)
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// initLeaders records each city's rank-1 hotel from the persisted ranks;
// ties (fresh catalogs persist rank 0 everywhere) break on the lower id.
func (s *Store) initLeaders() {
	for id, h := range s.hotels {
		leaderID, ok := s.leaders[h.City]
		if !ok {
			s.leaders[h.City] = id
			continue
		}
		leader := s.hotels[leaderID]
		if h.Rank < leader.Rank || (h.Rank == leader.Rank && id < leaderID) {
			s.leaders[h.City] = id
		}
	}
}

// SaveDirty writes every collection whose dirty flag is set. Each flag is
// cleared before its write; a failed write re-arms the flag so the mutation
// is retried on the next cycle rather than silently dropped. Collections
// fail independently; the joined error covers all failures in the cycle.
func (s *Store) SaveDirty(dir string) error {
	var errs []error

	if s.usersDirty.Swap(false) {
		if err := writeSnapshot(filepath.Join(dir, usersFile), s.usersSnapshot()); err != nil {
			s.usersDirty.Store(true)
			snapshotWrites.WithLabelValues("users", "error").Inc()
			errs = append(errs, fmt.Errorf("persisting users: %w", err))
		} else {
			snapshotWrites.WithLabelValues("users", "ok").Inc()
		}
	}

	if s.hotelsDirty.Swap(false) {
		if err := writeSnapshot(filepath.Join(dir, hotelsFile), s.hotelsSnapshot()); err != nil {
			s.hotelsDirty.Store(true)
			snapshotWrites.WithLabelValues("hotels", "error").Inc()
			errs = append(errs, fmt.Errorf("persisting hotels: %w", err))
		} else {
			snapshotWrites.WithLabelValues("hotels", "ok").Inc()
		}
	}

	if s.reviewsDirty.Swap(false) {
		if err := writeSnapshot(filepath.Join(dir, reviewsFile), s.reviewsSnapshot()); err != nil {
			s.reviewsDirty.Store(true)
			snapshotWrites.WithLabelValues("reviews", "error").Inc()
			errs = append(errs, fmt.Errorf("persisting reviews: %w", err))
		} else {
			snapshotWrites.WithLabelValues("reviews", "ok").Inc()
		}
	}

	return errors.Join(errs...)
}

// Dirty reports whether any collection has unsaved mutations. Used by tests
// and the final flush on shutdown.
func (s *Store) Dirty() bool {
	return s.usersDirty.Load() || s.hotelsDirty.Load() || s.reviewsDirty.Load()
}

// usersSnapshot copies the user collection, ordered by username.
func (s *Store) usersSnapshot() []domain.User {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()

	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users
}

// hotelsSnapshot copies the hotel collection, ordered by id. It takes the
// same lock pair as the ranking pass so it never observes a half-applied
// aggregate update.
func (s *Store) hotelsSnapshot() []domain.Hotel {
	s.reviewsMu.RLock()
	defer s.reviewsMu.RUnlock()
	s.hotelsMu.RLock()
	defer s.hotelsMu.RUnlock()

	hotels := make([]domain.Hotel, 0, len(s.hotels))
	for _, h := range s.hotels {
		hotels = append(hotels, cloneHotel(h))
	}
	sort.Slice(hotels, func(i, j int) bool { return hotels[i].ID < hotels[j].ID })
	return hotels
}

// reviewsSnapshot copies the review collection, ordered by key.
func (s *Store) reviewsSnapshot() []domain.Review {
	s.reviewsMu.RLock()
	defer s.reviewsMu.RUnlock()

	reviews := make([]domain.Review, 0, len(s.reviews))
	for _, r := range s.reviews {
		reviews = append(reviews, *r)
	}
	sort.Slice(reviews, func(i, j int) bool {
		if reviews[i].Username != reviews[j].Username {
			return reviews[i].Username < reviews[j].Username
		}
		return reviews[i].HotelID < reviews[j].HotelID
	})
	return reviews
}

// writeSnapshot writes the collection to a temporary file and renames it
// into place, so a crash mid-write never truncates the previous snapshot.
func writeSnapshot(path string, collection any) error {
	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}
