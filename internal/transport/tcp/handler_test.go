package tcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hotelier-app/hotelier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	mu     sync.Mutex
	users  map[string]domain.User
	hotels []domain.Hotel
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		users: map[string]domain.User{
			"alice": {Username: "alice", Password: "pw1", ReviewCount: 12},
		},
		hotels: []domain.Hotel{
			{ID: 1, Name: "Hotel Genova 1", City: "Genova", Rank: 2, Rate: 3.5},
			{ID: 2, Name: "Hotel Genova 2", City: "Genova", Rank: 1, Rate: 4.2},
		},
	}
}

func (f *fakeCatalog) RegisterUser(username, password string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if strings.TrimSpace(username) == "" || password == "" {
		return domain.User{}, domain.ErrValidation
	}
	if _, ok := f.users[username]; ok {
		return domain.User{}, domain.ErrUsernameConflict
	}
	user := domain.User{Username: username, Password: password}
	f.users[username] = user
	return user, nil
}

func (f *fakeCatalog) LookupUser(username string) (domain.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	return u, ok
}

func (f *fakeCatalog) LookupHotel(name, city string) (domain.Hotel, bool) {
	for _, h := range f.hotels {
		if h.Name == name && h.City == city {
			return h, true
		}
	}
	return domain.Hotel{}, false
}

func (f *fakeCatalog) HotelsByCity(city string) []domain.Hotel {
	var out []domain.Hotel
	for _, h := range f.hotels {
		if h.City == city {
			out = append(out, h)
		}
	}
	return out
}

func (f *fakeCatalog) InsertReview(review domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	found := false
	for _, h := range f.hotels {
		if h.ID == review.HotelID {
			found = true
		}
	}
	if !found {
		return domain.ErrHotelNotFound
	}

	u := f.users[review.Username]
	u.ReviewCount++
	f.users[review.Username] = u
	return nil
}

type fakeSessions struct {
	catalog *fakeCatalog

	mu     sync.Mutex
	active map[string]bool
}

func newFakeSessions(catalog *fakeCatalog) *fakeSessions {
	return &fakeSessions{catalog: catalog, active: map[string]bool{}}
}

func (f *fakeSessions) Login(username, password string) (domain.User, error) {
	user, ok := f.catalog.LookupUser(username)
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	if user.Password != password {
		return domain.User{}, domain.ErrIncorrectPassword
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active[username] {
		return domain.User{}, domain.ErrAlreadyLoggedIn
	}
	f.active[username] = true
	return user, nil
}

func (f *fakeSessions) Logout(username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, username)
}

func (f *fakeSessions) isActive(username string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active[username]
}

// client drives one side of a protocol conversation in a test.
type client struct {
	t    *testing.T
	conn net.Conn
	in   *bufio.Scanner
}

// dialHandler wires a handler to one end of a pipe and returns a client on
// the other end. The serve loop runs until the client side closes.
func dialHandler(t *testing.T, catalog Catalog, sessions Sessions) *client {
	t.Helper()

	server, clientSide := net.Pipe()
	h := &handler{
		catalog:        catalog,
		sessions:       sessions,
		multicastGroup: "226.226.226.226",
		multicastPort:  4444,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.serve(context.Background(), server)
	}()
	t.Cleanup(func() {
		clientSide.Close()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("serve loop did not stop after client disconnect")
		}
	})

	return &client{t: t, conn: clientSide, in: bufio.NewScanner(clientSide)}
}

// roundTrip sends one request and returns the status line and body line (or
// "" when the response has no body).
func (c *client) roundTrip(command string, body any) (string, string) {
	c.t.Helper()

	request := command + "\n"
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		request += string(data) + "\n"
	}
	request += "\n"

	_, err := fmt.Fprint(c.conn, request)
	require.NoError(c.t, err)

	require.True(c.t, c.in.Scan(), "no status line: %v", c.in.Err())
	status := c.in.Text()

	var responseBody string
	for c.in.Scan() {
		line := c.in.Text()
		if line == "" {
			break
		}
		responseBody = line
	}
	return status, responseBody
}

func credentials(username, password string) map[string]string {
	return map[string]string{"username": username, "password": password}
}

func TestHandler_Register(t *testing.T) {
	cases := []struct {
		name       string
		body       any
		rawBody    string
		wantStatus string
	}{
		{name: "created", body: credentials("carol", "pw3"), wantStatus: statusCreated},
		{name: "conflict", body: credentials("alice", "pw1"), wantStatus: statusConflict},
		{name: "blank_username", body: credentials("  ", "pw"), wantStatus: statusBadRequest},
		{name: "empty_password", body: credentials("carol", ""), wantStatus: statusBadRequest},
		{name: "malformed_body", rawBody: "{not json", wantStatus: statusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			catalog := newFakeCatalog()
			c := dialHandler(t, catalog, newFakeSessions(catalog))

			var status string
			if tc.rawBody != "" {
				status, _ = c.roundTrip("register", json.RawMessage(tc.rawBody))
			} else {
				status, _ = c.roundTrip("register", tc.body)
			}
			assert.Equal(t, tc.wantStatus, status)
		})
	}
}

func TestHandler_Login(t *testing.T) {
	cases := []struct {
		name       string
		body       map[string]string
		wantStatus string
	}{
		{name: "ok", body: credentials("alice", "pw1"), wantStatus: statusOK},
		{name: "unknown_user", body: credentials("mallory", "pw1"), wantStatus: statusNotFound},
		{name: "wrong_password", body: credentials("alice", "nope"), wantStatus: statusUnauthorized},
		{name: "missing_password", body: credentials("alice", ""), wantStatus: statusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			catalog := newFakeCatalog()
			c := dialHandler(t, catalog, newFakeSessions(catalog))

			status, body := c.roundTrip("login", tc.body)
			assert.Equal(t, tc.wantStatus, status)

			if tc.wantStatus == statusOK {
				var subscription struct {
					Group string `json:"group"`
					Port  int    `json:"port"`
				}
				require.NoError(t, json.Unmarshal([]byte(body), &subscription))
				assert.Equal(t, "226.226.226.226", subscription.Group)
				assert.Equal(t, 4444, subscription.Port)
			}
		})
	}
}

func TestHandler_LoginTwiceOnSameConnection(t *testing.T) {
	catalog := newFakeCatalog()
	c := dialHandler(t, catalog, newFakeSessions(catalog))

	status, _ := c.roundTrip("login", credentials("alice", "pw1"))
	require.Equal(t, statusOK, status)

	status, _ = c.roundTrip("login", credentials("alice", "pw1"))
	assert.Equal(t, statusConflict, status)
}

func TestHandler_LoginSameUserAcrossConnections(t *testing.T) {
	catalog := newFakeCatalog()
	sessions := newFakeSessions(catalog)

	first := dialHandler(t, catalog, sessions)
	status, _ := first.roundTrip("login", credentials("alice", "pw1"))
	require.Equal(t, statusOK, status)

	second := dialHandler(t, catalog, sessions)
	status, _ = second.roundTrip("login", credentials("alice", "pw1"))
	assert.Equal(t, statusConflict, status)
}

func TestHandler_Logout(t *testing.T) {
	catalog := newFakeCatalog()
	sessions := newFakeSessions(catalog)
	c := dialHandler(t, catalog, sessions)

	status, _ := c.roundTrip("logout", nil)
	assert.Equal(t, statusUnauthorized, status)

	status, _ = c.roundTrip("login", credentials("alice", "pw1"))
	require.Equal(t, statusOK, status)

	status, _ = c.roundTrip("logout", nil)
	assert.Equal(t, statusOK, status)
	assert.False(t, sessions.isActive("alice"))

	// The connection can log in again after logging out.
	status, _ = c.roundTrip("login", credentials("alice", "pw1"))
	assert.Equal(t, statusOK, status)
}

func TestHandler_SearchHotel(t *testing.T) {
	catalog := newFakeCatalog()
	c := dialHandler(t, catalog, newFakeSessions(catalog))

	status, body := c.roundTrip("searchHotel", map[string]string{
		"hotel": "Hotel Genova 1", "city": "Genova",
	})
	require.Equal(t, statusOK, status)

	var hotel domain.Hotel
	require.NoError(t, json.Unmarshal([]byte(body), &hotel))
	assert.Equal(t, 1, hotel.ID)
	assert.InDelta(t, 3.5, hotel.Rate, 1e-9)

	status, _ = c.roundTrip("searchHotel", map[string]string{
		"hotel": "No Such Hotel", "city": "Genova",
	})
	assert.Equal(t, statusNotFound, status)

	status, _ = c.roundTrip("searchHotel", map[string]string{"hotel": "Hotel Genova 1"})
	assert.Equal(t, statusBadRequest, status)
}

func TestHandler_SearchAllHotels(t *testing.T) {
	catalog := newFakeCatalog()
	c := dialHandler(t, catalog, newFakeSessions(catalog))

	status, body := c.roundTrip("searchAllHotels", map[string]string{"city": "Genova"})
	require.Equal(t, statusOK, status)

	var hotels []domain.Hotel
	require.NoError(t, json.Unmarshal([]byte(body), &hotels))
	assert.Len(t, hotels, 2)

	status, _ = c.roundTrip("searchAllHotels", map[string]string{"city": "Roma"})
	assert.Equal(t, statusNotFound, status)

	status, _ = c.roundTrip("searchAllHotels", map[string]string{})
	assert.Equal(t, statusBadRequest, status)
}

func TestHandler_InsertReview(t *testing.T) {
	catalog := newFakeCatalog()
	c := dialHandler(t, catalog, newFakeSessions(catalog))

	review := map[string]any{
		"hotel": "Hotel Genova 1", "city": "Genova",
		"rate":    4.0,
		"ratings": domain.Ratings{Cleaning: 4, Position: 4, Services: 4, Quality: 4},
	}

	// Not logged in yet.
	status, _ := c.roundTrip("insertReview", review)
	assert.Equal(t, statusUnauthorized, status)

	status, _ = c.roundTrip("login", credentials("alice", "pw1"))
	require.Equal(t, statusOK, status)

	status, _ = c.roundTrip("insertReview", review)
	assert.Equal(t, statusOK, status)

	user, ok := catalog.LookupUser("alice")
	require.True(t, ok)
	assert.Equal(t, 13, user.ReviewCount)

	status, _ = c.roundTrip("insertReview", map[string]any{
		"hotel": "No Such Hotel", "city": "Genova",
		"rate": 4.0, "ratings": domain.Ratings{},
	})
	assert.Equal(t, statusNotFound, status)

	// rate and ratings are both mandatory.
	status, _ = c.roundTrip("insertReview", map[string]any{
		"hotel": "Hotel Genova 1", "city": "Genova", "rate": 4.0,
	})
	assert.Equal(t, statusBadRequest, status)
}

func TestHandler_ShowMyBadges(t *testing.T) {
	catalog := newFakeCatalog()
	c := dialHandler(t, catalog, newFakeSessions(catalog))

	status, _ := c.roundTrip("showMyBadges", nil)
	assert.Equal(t, statusUnauthorized, status)

	status, _ = c.roundTrip("login", credentials("alice", "pw1"))
	require.Equal(t, statusOK, status)

	status, body := c.roundTrip("showMyBadges", nil)
	require.Equal(t, statusOK, status)

	var response map[string]domain.Badge
	require.NoError(t, json.Unmarshal([]byte(body), &response))
	assert.Equal(t, domain.BadgeExpertReviewer, response["badge"])

	// The badge tracks reviews submitted during the session.
	for i := 0; i < 8; i++ {
		status, _ = c.roundTrip("insertReview", map[string]any{
			"hotel": "Hotel Genova 1", "city": "Genova",
			"rate": 4.0, "ratings": domain.Ratings{},
		})
		require.Equal(t, statusOK, status)
	}

	_, body = c.roundTrip("showMyBadges", nil)
	require.NoError(t, json.Unmarshal([]byte(body), &response))
	assert.Equal(t, domain.BadgeContributor, response["badge"])
}

func TestHandler_UnknownCommand(t *testing.T) {
	catalog := newFakeCatalog()
	c := dialHandler(t, catalog, newFakeSessions(catalog))

	status, _ := c.roundTrip("dropTables", nil)
	assert.Equal(t, statusBadRequest, status)

	// The loop survives and keeps serving.
	status, _ = c.roundTrip("login", credentials("alice", "pw1"))
	assert.Equal(t, statusOK, status)
}

func TestHandler_DisconnectReleasesSession(t *testing.T) {
	catalog := newFakeCatalog()
	sessions := newFakeSessions(catalog)
	c := dialHandler(t, catalog, sessions)

	status, _ := c.roundTrip("login", credentials("alice", "pw1"))
	require.Equal(t, statusOK, status)
	require.True(t, sessions.isActive("alice"))

	// Abrupt disconnect, no logout command.
	require.NoError(t, c.conn.Close())

	assert.Eventually(t, func() bool {
		return !sessions.isActive("alice")
	}, 5*time.Second, 10*time.Millisecond, "session must be released on disconnect")
}
