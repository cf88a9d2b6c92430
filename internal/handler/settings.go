package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/dukerupert/ekklesia/internal/store"
	"github.com/dukerupert/ekklesia/internal/websocket"
)

type SettingsHandler struct {
	settingsStore *store.SettingsStore
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, hub *websocket.Hub, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settingsStore: ss, hub: hub, logger: logger}
}

type profileRequest struct {
	Name         string `json:"church_name" validate:"notblank,max=200"`
	Tagline      string `json:"tagline" validate:"max=300"`
	History      string `json:"history" validate:"max=20000"`
	Address      string `json:"address" validate:"max=500"`
	ServiceTimes string `json:"service_times" validate:"max=2000"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string `json:"contact_phone" validate:"max=50"`
	AccentColor  string `json:"accent_color" validate:"hexcolor"`
}

func (h *SettingsHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.settingsStore.GetProfile()
	if err != nil {
		serverError(w, h.logger, "failed to get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *SettingsHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := &model.ChurchProfile{
		Name:         strings.TrimSpace(req.Name),
		Tagline:      strings.TrimSpace(req.Tagline),
		History:      strings.TrimSpace(req.History),
		Address:      strings.TrimSpace(req.Address),
		ServiceTimes: strings.TrimSpace(req.ServiceTimes),
		ContactEmail: strings.TrimSpace(req.ContactEmail),
		ContactPhone: strings.TrimSpace(req.ContactPhone),
		AccentColor:  strings.ToLower(req.AccentColor),
	}
	if err := h.settingsStore.SetProfile(p); err != nil {
		serverError(w, h.logger, "failed to save profile", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("settings", "updated", 0, nil))
	writeJSON(w, http.StatusOK, p)
}
