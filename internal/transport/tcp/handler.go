package tcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hotelier-app/hotelier/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var commandsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hotelier_commands_total",
		Help: "Count of protocol commands per command word and response status.",
	},
	[]string{"command", "status"},
)

// Protocol status lines. The transport maps core errors onto these; the
// taxonomy mirrors HTTP because clients find it familiar, not because this
// is HTTP.
const (
	statusOK           = "200 OK"
	statusCreated      = "201 CREATED"
	statusBadRequest   = "400 BAD REQUEST"
	statusUnauthorized = "401 UNAUTHORIZED"
	statusNotFound     = "404 NOT FOUND"
	statusConflict     = "409 CONFLICT"
)

// Catalog is the slice of the store the handler drives.
type Catalog interface {
	RegisterUser(username, password string) (domain.User, error)
	LookupUser(username string) (domain.User, bool)
	LookupHotel(name, city string) (domain.Hotel, bool)
	HotelsByCity(city string) []domain.Hotel
	InsertReview(review domain.Review) error
}

// Sessions is the slice of the session manager the handler drives.
type Sessions interface {
	Login(username, password string) (domain.User, error)
	Logout(username string)
}

// handler serves one connection's command loop. It holds at most one
// logged-in identity, released when the connection ends for any reason.
type handler struct {
	catalog        Catalog
	sessions       Sessions
	multicastGroup string
	multicastPort  int

	current *domain.User
}

// serve reads commands until the client disconnects. Each request is a
// command word line followed by body lines terminated by a blank line; each
// response is a status line, an optional JSON body line, and a blank line.
func (h *handler) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer func() {
		// Abnormal or normal, the connection's identity never outlives it.
		if h.current != nil {
			h.sessions.Logout(h.current.Username)
		}
	}()

	logger := domain.LoggerFromContext(ctx).With("remote", conn.RemoteAddr().String())
	logger.DebugContext(ctx, "connection open")

	in := bufio.NewScanner(conn)
	out := bufio.NewWriter(conn)

	for in.Scan() {
		command := strings.TrimSpace(in.Text())
		body := readBody(in)

		response := h.dispatch(command, body)
		commandsTotal.WithLabelValues(command, statusCode(response)).Inc()

		if _, err := fmt.Fprintf(out, "%s\n\n", response); err != nil {
			break
		}
		if err := out.Flush(); err != nil {
			break
		}
	}

	logger.DebugContext(ctx, "connection closed")
}

// readBody collects request lines up to the first blank line.
func readBody(in *bufio.Scanner) string {
	var b strings.Builder
	for in.Scan() {
		line := in.Text()
		if line == "" {
			break
		}
		b.WriteString(line)
	}
	return b.String()
}

func (h *handler) dispatch(command, body string) string {
	switch command {
	case "register":
		return h.register(body)
	case "login":
		return h.login(body)
	case "logout":
		return h.logout()
	case "searchHotel":
		return h.searchHotel(body)
	case "searchAllHotels":
		return h.searchAllHotels(body)
	case "insertReview":
		return h.insertReview(body)
	case "showMyBadges":
		return h.showMyBadges()
	default:
		return statusBadRequest
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *handler) register(body string) string {
	var req credentialsRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return statusBadRequest
	}

	_, err := h.catalog.RegisterUser(req.Username, req.Password)
	switch {
	case errors.Is(err, domain.ErrValidation):
		return statusBadRequest
	case errors.Is(err, domain.ErrUsernameConflict):
		return statusConflict
	case err != nil:
		return statusBadRequest
	}

	return statusCreated
}

func (h *handler) login(body string) string {
	// This connection already carries an identity.
	if h.current != nil {
		return statusConflict
	}

	var req credentialsRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return statusBadRequest
	}
	if req.Username == "" || req.Password == "" {
		return statusBadRequest
	}

	user, err := h.sessions.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return statusNotFound
	case errors.Is(err, domain.ErrIncorrectPassword):
		return statusUnauthorized
	case errors.Is(err, domain.ErrAlreadyLoggedIn):
		return statusConflict
	case err != nil:
		return statusBadRequest
	}

	h.current = &user

	// The client subscribes here for ranking change notifications.
	subscription, err := json.Marshal(map[string]any{
		"group": h.multicastGroup,
		"port":  h.multicastPort,
	})
	if err != nil {
		return statusOK
	}
	return statusOK + "\n" + string(subscription)
}

func (h *handler) logout() string {
	if h.current == nil {
		return statusUnauthorized
	}

	h.sessions.Logout(h.current.Username)
	h.current = nil

	return statusOK
}

type hotelRequest struct {
	Hotel string `json:"hotel"`
	City  string `json:"city"`
}

func (h *handler) searchHotel(body string) string {
	var req hotelRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return statusBadRequest
	}
	if req.Hotel == "" || req.City == "" {
		return statusBadRequest
	}

	hotel, ok := h.catalog.LookupHotel(req.Hotel, req.City)
	if !ok {
		return statusNotFound
	}

	return okWithBody(hotel)
}

func (h *handler) searchAllHotels(body string) string {
	var req hotelRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return statusBadRequest
	}
	if req.City == "" {
		return statusBadRequest
	}

	hotels := h.catalog.HotelsByCity(req.City)
	if len(hotels) == 0 {
		return statusNotFound
	}

	return okWithBody(hotels)
}

type reviewRequest struct {
	Hotel   string          `json:"hotel"`
	City    string          `json:"city"`
	Rate    *float64        `json:"rate"`
	Ratings *domain.Ratings `json:"ratings"`
}

func (h *handler) insertReview(body string) string {
	if h.current == nil {
		return statusUnauthorized
	}

	var req reviewRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return statusBadRequest
	}
	if req.Hotel == "" || req.City == "" || req.Rate == nil || req.Ratings == nil {
		return statusBadRequest
	}

	hotel, ok := h.catalog.LookupHotel(req.Hotel, req.City)
	if !ok {
		return statusNotFound
	}

	err := h.catalog.InsertReview(domain.Review{
		Username:  h.current.Username,
		HotelID:   hotel.ID,
		Rate:      *req.Rate,
		Ratings:   *req.Ratings,
		Timestamp: time.Now().UnixMilli(),
	})
	switch {
	case errors.Is(err, domain.ErrHotelNotFound):
		return statusNotFound
	case err != nil:
		return statusBadRequest
	}

	return statusOK
}

func (h *handler) showMyBadges() string {
	if h.current == nil {
		return statusUnauthorized
	}

	// Re-read the user so the badge reflects reviews inserted during this
	// session, not the count captured at login.
	user, ok := h.catalog.LookupUser(h.current.Username)
	if !ok {
		user = *h.current
	}

	return okWithBody(map[string]domain.Badge{"badge": user.Badge()})
}

// okWithBody renders a 200 response with a single-line JSON body.
func okWithBody(body any) string {
	data, err := json.Marshal(body)
	if err != nil {
		return statusOK
	}
	return statusOK + "\n" + string(data)
}

// statusCode extracts the numeric code from a status line for metrics.
func statusCode(response string) string {
	code, _, _ := strings.Cut(response, " ")
	return code
}
