package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/dukerupert/ekklesia/internal/store"
	"github.com/dukerupert/ekklesia/internal/websocket"
)

type EventHandler struct {
	store  *store.EventStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewEventHandler(es *store.EventStore, hub *websocket.Hub, logger *slog.Logger) *EventHandler {
	return &EventHandler{store: es, hub: hub, logger: logger}
}

type eventRequest struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Date        string `json:"date" validate:"required,ymd"`
	Time        string `json:"time" validate:"required,hhmm"`
	Location    string `json:"location" validate:"max=200"`
	Description string `json:"description" validate:"max=5000"`
}

func (req *eventRequest) trim() {
	req.Title = strings.TrimSpace(req.Title)
	req.Location = strings.TrimSpace(req.Location)
	req.Description = strings.TrimSpace(req.Description)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.List()
	if err != nil {
		serverError(w, h.logger, "failed to list events", err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	event, err := h.store.GetByID(id)
	if err != nil {
		serverError(w, h.logger, "failed to get event", err)
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.trim()

	event, err := h.store.Create(req.Title, req.Date, req.Time, req.Location, req.Description)
	if err != nil {
		serverError(w, h.logger, "failed to create event", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("event", "created", event.ID, nil))
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		serverError(w, h.logger, "failed to get event", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.trim()

	event, err := h.store.Update(id, req.Title, req.Date, req.Time, req.Location, req.Description)
	if err != nil {
		serverError(w, h.logger, "failed to update event", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("event", "updated", event.ID, nil))
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		serverError(w, h.logger, "failed to get event", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	if err := h.store.Delete(id); err != nil {
		serverError(w, h.logger, "failed to delete event", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("event", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
