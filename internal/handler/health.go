package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/templui/formdesk/internal/response"
)

// Pinger is satisfied by *sql.DB and *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type healthHandler struct {
	db          Pinger
	environment string
	startedAt   time.Time
	now         func() time.Time
}

func NewHealthHandler(db Pinger, environment string) *healthHandler {
	return &healthHandler{
		db:          db,
		environment: environment,
		startedAt:   time.Now(),
		now:         time.Now,
	}
}

type healthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Uptime      float64   `json:"uptime"` // seconds
	Environment string    `json:"environment"`
	Error       string    `json:"error,omitempty"`
}

func (h *healthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	now := h.now()
	body := healthResponse{
		Status:      "healthy",
		Timestamp:   now.UTC(),
		Uptime:      now.Sub(h.startedAt).Seconds(),
		Environment: h.environment,
	}

	err := h.db.PingContext(ctx)
	if err != nil {
		slog.Error("health check failed", "error", err)
		body.Status = "unhealthy"
		body.Error = "database unavailable"
		response.JSON(w, http.StatusServiceUnavailable, body)
		return
	}

	response.JSON(w, http.StatusOK, body)
}

// NotFound answers every unmatched route.
func NotFound(w http.ResponseWriter, r *http.Request) {
	response.Error(w, http.StatusNotFound, "Route not found")
}
