package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/dukerupert/ekklesia/internal/store"
)

const (
	defaultUpcomingLimit = 3
	maxUpcomingLimit     = 20
)

// PublicHandler serves the unauthenticated endpoints used by the church
// website.
type PublicHandler struct {
	events        *store.EventStore
	settings      *store.SettingsStore
	congregations *store.CongregationStore
	now           func() time.Time
	logger        *slog.Logger
}

func NewPublicHandler(es *store.EventStore, ss *store.SettingsStore, cs *store.CongregationStore, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{events: es, settings: ss, congregations: cs, now: time.Now, logger: logger}
}

// UpcomingEvents lists events dated today or later. ?limit= defaults to 3
// and is capped at 20.
func (h *PublicHandler) UpcomingEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultUpcomingLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = min(n, maxUpcomingLimit)
	}

	today := h.now().Format("2006-01-02")
	events, err := h.events.ListUpcoming(today, limit)
	if err != nil {
		serverError(w, h.logger, "failed to list events", err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *PublicHandler) Profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.settings.GetProfile()
	if err != nil {
		serverError(w, h.logger, "failed to get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PublicHandler) Congregations(w http.ResponseWriter, r *http.Request) {
	list, err := h.congregations.List()
	if err != nil {
		serverError(w, h.logger, "failed to list congregations", err)
		return
	}
	if list == nil {
		list = []model.Congregation{}
	}
	writeJSON(w, http.StatusOK, list)
}
