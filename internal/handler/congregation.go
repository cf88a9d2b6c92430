package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/dukerupert/ekklesia/internal/store"
	"github.com/dukerupert/ekklesia/internal/websocket"
)

type CongregationHandler struct {
	store  *store.CongregationStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewCongregationHandler(cs *store.CongregationStore, hub *websocket.Hub, logger *slog.Logger) *CongregationHandler {
	return &CongregationHandler{store: cs, hub: hub, logger: logger}
}

type congregationRequest struct {
	Name       string `json:"name" validate:"notblank,max=200"`
	PastorName string `json:"pastor_name" validate:"max=200"`
	Address    string `json:"address" validate:"max=500"`
}

func (h *CongregationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List()
	if err != nil {
		serverError(w, h.logger, "failed to list congregations", err)
		return
	}
	if list == nil {
		list = []model.Congregation{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CongregationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req congregationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)

	exists, err := h.store.NameExists(name, 0)
	if err != nil {
		serverError(w, h.logger, "failed to check name", err)
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "a congregation with this name already exists")
		return
	}

	c, err := h.store.Create(name, strings.TrimSpace(req.PastorName), strings.TrimSpace(req.Address))
	if err != nil {
		serverError(w, h.logger, "failed to create congregation", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("congregation", "created", c.ID, nil))
	writeJSON(w, http.StatusCreated, c)
}

func (h *CongregationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		serverError(w, h.logger, "failed to get congregation", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "congregation not found")
		return
	}

	var req congregationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)

	exists, err := h.store.NameExists(name, id)
	if err != nil {
		serverError(w, h.logger, "failed to check name", err)
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "a congregation with this name already exists")
		return
	}

	c, err := h.store.Update(id, name, strings.TrimSpace(req.PastorName), strings.TrimSpace(req.Address))
	if err != nil {
		serverError(w, h.logger, "failed to update congregation", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("congregation", "updated", c.ID, nil))
	writeJSON(w, http.StatusOK, c)
}

func (h *CongregationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		serverError(w, h.logger, "failed to get congregation", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "congregation not found")
		return
	}

	if err := h.store.Delete(id); err != nil {
		serverError(w, h.logger, "failed to delete congregation", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("congregation", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *CongregationHandler) UpdateSortOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids" validate:"required,min=1,unique"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.store.UpdateSortOrder(req.IDs); err != nil {
		serverError(w, h.logger, "failed to update sort order", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("congregation", "reordered", 0, nil))
	w.WriteHeader(http.StatusNoContent)
}
