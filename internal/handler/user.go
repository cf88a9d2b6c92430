package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/ekklesia/internal/auth"
	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/dukerupert/ekklesia/internal/store"
	"github.com/dukerupert/ekklesia/internal/websocket"
)

type UserHandler struct {
	store  *store.UserStore
	mailer Mailer
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewUserHandler(us *store.UserStore, mailer Mailer, hub *websocket.Hub, logger *slog.Logger) *UserHandler {
	return &UserHandler{store: us, mailer: mailer, hub: hub, logger: logger}
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"max=200"`
	Role     string `json:"role" validate:"required,oneof=admin secretary treasurer"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
}

type updateUserRequest struct {
	Name string `json:"name" validate:"max=200"`
	Role string `json:"role" validate:"required,oneof=admin secretary treasurer"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.List()
	if err != nil {
		serverError(w, h.logger, "failed to list users", err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// Create adds a user. Without a password the user signs in for the first
// time through password reset.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	emailAddr := strings.TrimSpace(req.Email)

	existing, err := h.store.GetByEmail(emailAddr)
	if err != nil {
		serverError(w, h.logger, "failed to check email", err)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "a user with this email already exists")
		return
	}

	var hash string
	if req.Password != "" {
		hash, err = auth.HashPassword(req.Password)
		if err != nil {
			serverError(w, h.logger, "failed to hash password", err)
			return
		}
	}

	user, err := h.store.Create(emailAddr, strings.TrimSpace(req.Name), req.Role, hash)
	if err != nil {
		serverError(w, h.logger, "failed to create user", err)
		return
	}

	if h.mailer.Configured() {
		// The request context ends with the response.
		go func(u model.User) {
			if err := h.mailer.SendWelcome(context.Background(), u.Email, u.Name, u.Role); err != nil {
				h.logger.Error("send welcome email", "error", err, "user_id", u.ID)
			}
		}(*user)
	}

	broadcast(h.hub, websocket.NewMessage("user", "created", user.ID, nil))
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		serverError(w, h.logger, "failed to get user", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.store.Update(id, strings.TrimSpace(req.Name), req.Role)
	if errors.Is(err, store.ErrLastAdmin) {
		writeError(w, http.StatusConflict, "cannot demote the last admin")
		return
	}
	if err != nil {
		serverError(w, h.logger, "failed to update user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	broadcast(h.hub, websocket.NewMessage("user", "updated", user.ID, nil))
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if id == auth.UserID(r.Context()) {
		writeError(w, http.StatusConflict, "you cannot delete your own account")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		serverError(w, h.logger, "failed to get user", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	// Sessions go with the user through ON DELETE CASCADE.
	err = h.store.Delete(id)
	if errors.Is(err, store.ErrLastAdmin) {
		writeError(w, http.StatusConflict, "cannot delete the last admin")
		return
	}
	if err != nil {
		serverError(w, h.logger, "failed to delete user", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("user", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
