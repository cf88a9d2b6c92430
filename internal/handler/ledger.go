package handler

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/ekklesia/internal/auth"
	"github.com/dukerupert/ekklesia/internal/ledger"
	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/dukerupert/ekklesia/internal/report"
	"github.com/dukerupert/ekklesia/internal/store"
	"github.com/dukerupert/ekklesia/internal/validate"
	"github.com/dukerupert/ekklesia/internal/websocket"
)

type LedgerHandler struct {
	store    *store.LedgerStore
	members  *store.MemberStore
	settings *store.SettingsStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewLedgerHandler(ls *store.LedgerStore, ms *store.MemberStore, ss *store.SettingsStore, hub *websocket.Hub, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{store: ls, members: ms, settings: ss, hub: hub, logger: logger}
}

type ledgerRequest struct {
	Kind        model.EntryKind `json:"kind" validate:"required,oneof=income expense"`
	Category    string          `json:"category" validate:"required"`
	Description string          `json:"description" validate:"notblank,max=500"`
	Amount      string          `json:"amount" validate:"required"`
	Date        string          `json:"date" validate:"required,ymd"`
	MemberID    *int64          `json:"member_id"`
}

// parseEntry validates the request beyond struct tags. Amounts arrive as
// strings so no precision is lost in JSON.
func (h *LedgerHandler) parseEntry(w http.ResponseWriter, req *ledgerRequest) (*model.LedgerEntry, bool) {
	if !ledger.ValidCategory(req.Kind, req.Category) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("category %q is not valid for %s", req.Category, req.Kind))
		return nil, false
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a number")
		return nil, false
	}
	if !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be greater than zero")
		return nil, false
	}

	if req.MemberID != nil {
		m, err := h.members.GetByID(*req.MemberID)
		if err != nil {
			h.logger.Error("check ledger member", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to check member")
			return nil, false
		}
		if m == nil {
			writeError(w, http.StatusBadRequest, "member not found")
			return nil, false
		}
	}

	return &model.LedgerEntry{
		Kind:        req.Kind,
		Category:    req.Category,
		Description: strings.TrimSpace(req.Description),
		Amount:      amount,
		Date:        req.Date,
		MemberID:    req.MemberID,
	}, true
}

type filterQuery struct {
	From string `json:"from" validate:"ymd"`
	To   string `json:"to" validate:"ymd"`
}

// parseFilter reads from, to, kind, category and member_id query parameters.
func parseFilter(r *http.Request) (model.LedgerFilter, error) {
	q := r.URL.Query()
	f := model.LedgerFilter{
		From:     q.Get("from"),
		To:       q.Get("to"),
		Kind:     model.EntryKind(q.Get("kind")),
		Category: q.Get("category"),
	}
	if err := validate.Struct(filterQuery{From: f.From, To: f.To}); err != nil {
		return f, errors.New("from and to must be YYYY-MM-DD dates")
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return f, errors.New("from must not be after to")
	}
	if f.Kind != "" && !ledger.ValidKind(f.Kind) {
		return f, errors.New("kind must be income or expense")
	}
	if s := q.Get("member_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return f, errors.New("invalid member_id")
		}
		f.MemberID = &id
	}
	return f, nil
}

func (h *LedgerHandler) list(w http.ResponseWriter, r *http.Request) (model.LedgerFilter, []model.LedgerEntry, bool) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return f, nil, false
	}
	entries, err := h.store.List(f)
	if err != nil {
		serverError(w, h.logger, "failed to list ledger entries", err)
		return f, nil, false
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	return f, entries, true
}

func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, entries, ok := h.list(w, r); ok {
		writeJSON(w, http.StatusOK, entries)
	}
}

// Summary returns totals for the filtered entries.
func (h *LedgerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if _, entries, ok := h.list(w, r); ok {
		writeJSON(w, http.StatusOK, ledger.Summarize(entries))
	}
}

func (h *LedgerHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		string(model.KindIncome):  ledger.Categories(model.KindIncome),
		string(model.KindExpense): ledger.Categories(model.KindExpense),
	})
}

func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	e, err := h.store.GetByID(id)
	if err != nil {
		serverError(w, h.logger, "failed to get ledger entry", err)
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "ledger entry not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *LedgerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ledgerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, ok := h.parseEntry(w, &req)
	if !ok {
		return
	}
	if uid := auth.UserID(r.Context()); uid != 0 {
		entry.CreatedBy = &uid
	}

	e, err := h.store.Create(entry)
	if err != nil {
		serverError(w, h.logger, "failed to create ledger entry", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("ledger_entry", "created", e.ID, nil))
	writeJSON(w, http.StatusCreated, e)
}

func (h *LedgerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		serverError(w, h.logger, "failed to get ledger entry", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "ledger entry not found")
		return
	}

	var req ledgerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, ok := h.parseEntry(w, &req)
	if !ok {
		return
	}

	e, err := h.store.Update(id, entry)
	if err != nil {
		serverError(w, h.logger, "failed to update ledger entry", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("ledger_entry", "updated", e.ID, nil))
	writeJSON(w, http.StatusOK, e)
}

func (h *LedgerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		serverError(w, h.logger, "failed to get ledger entry", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "ledger entry not found")
		return
	}

	if err := h.store.Delete(id); err != nil {
		serverError(w, h.logger, "failed to delete ledger entry", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("ledger_entry", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// PDF renders the financial report for the filtered entries.
func (h *LedgerHandler) PDF(w http.ResponseWriter, r *http.Request) {
	f, entries, ok := h.list(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.LedgerPDF(&buf, churchName(h.settings, h.logger), f, entries, ledger.Summarize(entries)); err != nil {
		serverError(w, h.logger, "failed to render ledger report", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="ledger.pdf"`)
	w.Write(buf.Bytes())
}

// CSV exports the filtered entries.
func (h *LedgerHandler) CSV(w http.ResponseWriter, r *http.Request) {
	_, entries, ok := h.list(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.LedgerCSV(&buf, entries); err != nil {
		serverError(w, h.logger, "failed to export ledger", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger.csv"`)
	w.Write(buf.Bytes())
}
