package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/ekklesia/internal/auth"
	"github.com/dukerupert/ekklesia/internal/bible"
	"github.com/dukerupert/ekklesia/internal/hymnal"
	"github.com/dukerupert/ekklesia/internal/live"
	"github.com/dukerupert/ekklesia/internal/model"
)

type LiveHandler struct {
	live       *live.Service
	tokens     *auth.DisplayTokens
	displayTTL time.Duration
	logger     *slog.Logger
}

func NewLiveHandler(svc *live.Service, tokens *auth.DisplayTokens, displayTTL time.Duration, logger *slog.Logger) *LiveHandler {
	return &LiveHandler{live: svc, tokens: tokens, displayTTL: displayTTL, logger: logger}
}

// respond writes the new slide or maps the service error to a status.
func (h *LiveHandler) respond(w http.ResponseWriter, slide model.Slide, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, slide)
	case errors.Is(err, hymnal.ErrNotFound),
		errors.Is(err, bible.ErrBookNotFound),
		errors.Is(err, bible.ErrChapterOutOfRange),
		errors.Is(err, bible.ErrVerseOutOfRange):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, live.ErrPositionOutOfRange),
		errors.Is(err, live.ErrEmptyHymn),
		errors.Is(err, live.ErrEmptyText):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, live.ErrNothingToNavigate):
		writeError(w, http.StatusConflict, err.Error())
	default:
		serverError(w, h.logger, "failed to update live slide", err)
	}
}

func (h *LiveHandler) Current(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.live.Current())
}

func (h *LiveHandler) ShowHymn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Number   int `json:"number" validate:"required,min=1"`
		Position int `json:"position" validate:"min=0"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	slide, err := h.live.ShowHymn(r.Context(), req.Number, req.Position)
	h.respond(w, slide, err)
}

func (h *LiveHandler) ShowVerse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Book    string `json:"book" validate:"required"`
		Chapter int    `json:"chapter" validate:"required,min=1"`
		Verse   int    `json:"verse" validate:"required,min=1"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	slide, err := h.live.ShowVerse(r.Context(), req.Book, req.Chapter, req.Verse)
	h.respond(w, slide, err)
}

func (h *LiveHandler) ShowText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title" validate:"max=200"`
		Body  string `json:"body" validate:"max=5000"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	slide, err := h.live.ShowText(r.Context(), req.Title, req.Body)
	h.respond(w, slide, err)
}

func (h *LiveHandler) Next(w http.ResponseWriter, r *http.Request) {
	slide, err := h.live.Next(r.Context())
	h.respond(w, slide, err)
}

func (h *LiveHandler) Prev(w http.ResponseWriter, r *http.Request) {
	slide, err := h.live.Prev(r.Context())
	h.respond(w, slide, err)
}

func (h *LiveHandler) Blank(w http.ResponseWriter, r *http.Request) {
	slide, err := h.live.Blank(r.Context())
	h.respond(w, slide, err)
}

// DisplayToken issues a token a projector can use to open the display feed
// without signing in.
func (h *LiveHandler) DisplayToken(w http.ResponseWriter, r *http.Request) {
	token, expires, err := h.tokens.Issue(h.displayTTL)
	if errors.Is(err, auth.ErrDisplayTokensDisabled) {
		writeError(w, http.StatusServiceUnavailable, "display tokens are not configured")
		return
	}
	if err != nil {
		serverError(w, h.logger, "failed to issue display token", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"token":      token,
		"expires_at": expires,
	})
}
