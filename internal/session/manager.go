// Package session tracks which usernames currently hold an active
// connection-bound session, enforcing at most one per user.
package session

import (
	"fmt"
	"sync"

	"github.com/hotelier-app/hotelier/internal/auth"
	"github.com/hotelier-app/hotelier/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "hotelier_active_sessions",
	Help: "Number of usernames currently logged in.",
})

// UserLookup is the slice of the store the manager needs for credential
// checks.
type UserLookup interface {
	LookupUser(username string) (domain.User, bool)
}

// Manager holds the set of logged-in usernames. Independent of the store's
// data; it only consults it to resolve credentials.
type Manager struct {
	users  UserLookup
	digest auth.PasswordDigest

	mu     sync.Mutex
	active map[string]domain.User
}

func NewManager(users UserLookup, digest auth.PasswordDigest) *Manager {
	return &Manager{
		users:  users,
		digest: digest,
		active: map[string]domain.User{},
	}
}

// Login authenticates the user and claims their session slot. The claim is
// an insert-if-absent under the manager's lock, so concurrent logins for the
// same username produce exactly one winner.
func (m *Manager) Login(username, password string) (domain.User, error) {
	user, ok := m.users.LookupUser(username)
	if !ok {
		return domain.User{}, fmt.Errorf("logging in %q: %w", username, domain.ErrUserNotFound)
	}

	if !m.digest.Verify(password, user.Password) {
		return domain.User{}, fmt.Errorf("logging in %q: %w", username, domain.ErrIncorrectPassword)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, logged := m.active[username]; logged {
		return domain.User{}, fmt.Errorf("logging in %q: %w", username, domain.ErrAlreadyLoggedIn)
	}

	m.active[username] = user
	activeSessions.Set(float64(len(m.active)))

	return user, nil
}

// Logout releases the user's session slot. Idempotent; logging out a
// username with no active session is a no-op.
func (m *Manager) Logout(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.active, username)
	activeSessions.Set(float64(len(m.active)))
}

// IsLoggedIn reports whether the username holds an active session.
func (m *Manager) IsLoggedIn(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, logged := m.active[username]
	return logged
}
