package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/ekklesia/internal/auth"
	"github.com/dukerupert/ekklesia/internal/middleware"
	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/dukerupert/ekklesia/internal/store"
)

const maxCodeAttempts = 5

// Mailer sends account email.
type Mailer interface {
	Configured() bool
	SendResetCode(ctx context.Context, to, code string) error
	SendWelcome(ctx context.Context, to, name, role string) error
}

type AuthHandler struct {
	userStore      *store.UserStore
	sessionStore   *store.SessionStore
	resetCodeStore *store.ResetCodeStore
	mailer         Mailer
	sessionTTL     time.Duration
	logger         *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	ss *store.SessionStore,
	rcs *store.ResetCodeStore,
	mailer Mailer,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		userStore:      us,
		sessionStore:   ss,
		resetCodeStore: rcs,
		mailer:         mailer,
		sessionTTL:     sessionTTL,
		logger:         logger,
	}
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, sess *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userStore.GetByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		serverError(w, h.logger, "login lookup failed", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}

	hash, err := h.userStore.GetPasswordHash(user.ID)
	if err != nil {
		serverError(w, h.logger, "login lookup failed", err)
		return
	}
	if err := auth.CheckPassword(hash, req.Password); err != nil {
		h.logger.Info("failed login", "user_id", user.ID)
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}

	sess, err := h.sessionStore.Create(user.ID)
	if err != nil {
		serverError(w, h.logger, "failed to create session", err)
		return
	}

	h.setSessionCookie(w, r, sess)
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if ac, ok := auth.FromContext(r.Context()); ok {
		if err := h.sessionStore.Delete(ac.SessionID); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}
	clearSessionCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil {
		serverError(w, h.logger, "failed to get user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// RequestReset mails a reset code when the address belongs to a user. The
// response is 202 either way so accounts cannot be discovered.
func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	defer writeJSON(w, http.StatusAccepted, map[string]string{"status": "if the address exists, a code was sent"})

	emailAddr := strings.TrimSpace(req.Email)
	user, err := h.userStore.GetByEmail(emailAddr)
	if err != nil {
		h.logger.Error("reset lookup", "error", err)
		return
	}
	if user == nil {
		return
	}

	rc, err := h.resetCodeStore.Create(user.Email)
	if err != nil {
		h.logger.Error("create reset code", "error", err)
		return
	}

	if !h.mailer.Configured() {
		h.logger.Warn("email not configured; reset code not sent", "user_id", user.ID)
		return
	}
	if err := h.mailer.SendResetCode(r.Context(), user.Email, rc.Code); err != nil {
		h.logger.Error("send reset code", "error", err)
	}
}

type confirmResetRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,max=72"`
}

func (h *AuthHandler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req confirmResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	emailAddr := strings.TrimSpace(req.Email)
	latest, err := h.resetCodeStore.GetLatestByEmail(emailAddr)
	if err != nil {
		serverError(w, h.logger, "failed to check code", err)
		return
	}
	if latest == nil {
		writeError(w, http.StatusBadRequest, "code has expired or already been used")
		return
	}

	if latest.Attempts >= maxCodeAttempts {
		h.resetCodeStore.MarkUsed(latest.ID)
		writeError(w, http.StatusBadRequest, "too many incorrect attempts; request a new code")
		return
	}

	if subtle.ConstantTimeCompare([]byte(latest.Code), []byte(req.Code)) != 1 {
		attempts, err := h.resetCodeStore.IncrementAttempts(latest.ID)
		if err != nil {
			serverError(w, h.logger, "failed to check code", err)
			return
		}
		if attempts >= maxCodeAttempts {
			h.resetCodeStore.MarkUsed(latest.ID)
			writeError(w, http.StatusBadRequest, "too many incorrect attempts; request a new code")
			return
		}
		writeError(w, http.StatusBadRequest, "incorrect code")
		return
	}

	user, err := h.userStore.GetByEmail(emailAddr)
	if err != nil {
		serverError(w, h.logger, "failed to get user", err)
		return
	}
	if user == nil {
		h.resetCodeStore.MarkUsed(latest.ID)
		writeError(w, http.StatusBadRequest, "code has expired or already been used")
		return
	}

	if !h.setPassword(w, user.ID, req.Password) {
		return
	}
	if err := h.resetCodeStore.MarkUsed(latest.ID); err != nil {
		h.logger.Error("mark reset code used", "error", err)
	}
	if err := h.sessionStore.DeleteByUserID(user.ID); err != nil {
		h.logger.Error("revoke sessions after reset", "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,max=72"`
}

// ChangePassword replaces the caller's password, signs out their other
// sessions and issues a fresh one.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := auth.UserID(r.Context())
	hash, err := h.userStore.GetPasswordHash(userID)
	if err != nil {
		serverError(w, h.logger, "failed to get user", err)
		return
	}
	if err := auth.CheckPassword(hash, req.CurrentPassword); err != nil {
		writeError(w, http.StatusBadRequest, "current password is incorrect")
		return
	}

	if !h.setPassword(w, userID, req.NewPassword) {
		return
	}
	if err := h.sessionStore.DeleteByUserID(userID); err != nil {
		serverError(w, h.logger, "failed to revoke sessions", err)
		return
	}

	sess, err := h.sessionStore.Create(userID)
	if err != nil {
		serverError(w, h.logger, "failed to create session", err)
		return
	}
	h.setSessionCookie(w, r, sess)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) setPassword(w http.ResponseWriter, userID int64, password string) bool {
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrWeakPassword) {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err != nil {
		serverError(w, h.logger, "failed to hash password", err)
		return false
	}
	if err := h.userStore.SetPasswordHash(userID, hash); err != nil {
		serverError(w, h.logger, "failed to save password", err)
		return false
	}
	return true
}
