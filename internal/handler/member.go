package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/dukerupert/ekklesia/internal/objectstore"
	"github.com/dukerupert/ekklesia/internal/report"
	"github.com/dukerupert/ekklesia/internal/store"
	"github.com/dukerupert/ekklesia/internal/websocket"
)

const maxPhotoSize = 5 << 20

var photoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type MemberHandler struct {
	store    *store.MemberStore
	settings *store.SettingsStore
	objects  ObjectStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewMemberHandler(ms *store.MemberStore, ss *store.SettingsStore, objects ObjectStore, hub *websocket.Hub, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{store: ms, settings: ss, objects: objects, hub: hub, logger: logger}
}

type memberRequest struct {
	Name             string             `json:"name" validate:"notblank,max=200"`
	Street           string             `json:"street" validate:"max=200"`
	Number           string             `json:"number" validate:"max=20"`
	Complement       string             `json:"complement" validate:"max=100"`
	Neighborhood     string             `json:"neighborhood" validate:"max=100"`
	City             string             `json:"city" validate:"max=100"`
	State            string             `json:"state" validate:"max=50"`
	PostalCode       string             `json:"postal_code" validate:"max=20"`
	RG               string             `json:"rg" validate:"max=30"`
	CPF              string             `json:"cpf" validate:"max=20"`
	BirthDate        string             `json:"birth_date" validate:"ymd"`
	MaritalStatus    string             `json:"marital_status" validate:"max=30"`
	Phone            string             `json:"phone" validate:"max=30"`
	Mobile           string             `json:"mobile" validate:"max=30"`
	MotherName       string             `json:"mother_name" validate:"max=200"`
	FatherName       string             `json:"father_name" validate:"max=200"`
	SpiritBaptized   bool               `json:"spirit_baptized"`
	WaterBaptismDate string             `json:"water_baptism_date" validate:"ymd"`
	ChurchRole       string             `json:"church_role" validate:"max=100"`
	MinistryDate     string             `json:"ministry_date" validate:"ymd"`
	Status           model.MemberStatus `json:"status" validate:"omitempty,oneof=active inactive"`
	Congregation     string             `json:"congregation" validate:"max=100"`
	Notes            string             `json:"notes" validate:"max=5000"`
}

func (req *memberRequest) toModel() *model.Member {
	status := req.Status
	if status == "" {
		status = model.MemberActive
	}
	return &model.Member{
		Name:             strings.TrimSpace(req.Name),
		Street:           strings.TrimSpace(req.Street),
		Number:           strings.TrimSpace(req.Number),
		Complement:       strings.TrimSpace(req.Complement),
		Neighborhood:     strings.TrimSpace(req.Neighborhood),
		City:             strings.TrimSpace(req.City),
		State:            strings.TrimSpace(req.State),
		PostalCode:       strings.TrimSpace(req.PostalCode),
		RG:               strings.TrimSpace(req.RG),
		CPF:              strings.TrimSpace(req.CPF),
		BirthDate:        req.BirthDate,
		MaritalStatus:    strings.TrimSpace(req.MaritalStatus),
		Phone:            strings.TrimSpace(req.Phone),
		Mobile:           strings.TrimSpace(req.Mobile),
		MotherName:       strings.TrimSpace(req.MotherName),
		FatherName:       strings.TrimSpace(req.FatherName),
		SpiritBaptized:   req.SpiritBaptized,
		WaterBaptismDate: req.WaterBaptismDate,
		ChurchRole:       strings.TrimSpace(req.ChurchRole),
		MinistryDate:     req.MinistryDate,
		Status:           status,
		Congregation:     strings.TrimSpace(req.Congregation),
		Notes:            strings.TrimSpace(req.Notes),
	}
}

// getMember loads the member named by the path. It writes the response and
// returns nil when the member cannot be loaded.
func (h *MemberHandler) getMember(w http.ResponseWriter, r *http.Request) *model.Member {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil
	}

	m, err := h.store.GetByID(id)
	if err != nil {
		serverError(w, h.logger, "failed to get member", err)
		return nil
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return nil
	}
	return m
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.MemberFilter{
		Status:       model.MemberStatus(q.Get("status")),
		Congregation: q.Get("congregation"),
		Search:       q.Get("q"),
	}
	if filter.Status != "" && filter.Status != model.MemberActive && filter.Status != model.MemberInactive {
		writeError(w, http.StatusBadRequest, "status must be active or inactive")
		return
	}

	members, err := h.store.List(filter)
	if err != nil {
		serverError(w, h.logger, "failed to list members", err)
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	if m := h.getMember(w, r); m != nil {
		writeJSON(w, http.StatusOK, m)
	}
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := h.store.Create(req.toModel())
	if err != nil {
		serverError(w, h.logger, "failed to create member", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("member", "created", m.ID, nil))
	writeJSON(w, http.StatusCreated, m)
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing := h.getMember(w, r)
	if existing == nil {
		return
	}

	var req memberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := h.store.Update(existing.ID, req.toModel())
	if err != nil {
		serverError(w, h.logger, "failed to update member", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("member", "updated", m.ID, nil))
	writeJSON(w, http.StatusOK, m)
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing := h.getMember(w, r)
	if existing == nil {
		return
	}

	if err := h.store.Delete(existing.ID); err != nil {
		serverError(w, h.logger, "failed to delete member", err)
		return
	}

	if existing.PhotoKey != "" && h.objects.Configured() {
		if err := h.objects.Delete(r.Context(), existing.PhotoKey); err != nil {
			h.logger.Warn("delete member photo", "error", err, "key", existing.PhotoKey)
		}
	}

	broadcast(h.hub, websocket.NewMessage("member", "deleted", existing.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Stats returns member counts per status.
func (h *MemberHandler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.Count()
	if err != nil {
		serverError(w, h.logger, "failed to count members", err)
		return
	}
	active, inactive := counts[model.MemberActive], counts[model.MemberInactive]
	writeJSON(w, http.StatusOK, map[string]int{
		"active":   active,
		"inactive": inactive,
		"total":    active + inactive,
	})
}

// Congregations lists the distinct congregation tags used by members.
func (h *MemberHandler) Congregations(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.Congregations()
	if err != nil {
		serverError(w, h.logger, "failed to list congregations", err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, tags)
}

// UploadPhoto replaces the member's photo with the multipart "photo" file.
func (h *MemberHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	if !h.objects.Configured() {
		writeError(w, http.StatusServiceUnavailable, "photo storage is not configured")
		return
	}

	existing := h.getMember(w, r)
	if existing == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize+(64<<10))
	file, _, err := r.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "photo must be 5 MB or smaller")
			return
		}
		writeError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read photo")
		return
	}
	if len(data) > maxPhotoSize {
		writeError(w, http.StatusRequestEntityTooLarge, "photo must be 5 MB or smaller")
		return
	}

	contentType := http.DetectContentType(data)
	ext, ok := photoTypes[contentType]
	if !ok {
		writeError(w, http.StatusBadRequest, "photo must be JPEG, PNG or WebP")
		return
	}

	key := objectstore.NewKey(fmt.Sprintf("members/%d", existing.ID), ext)
	if err := h.objects.Put(r.Context(), key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		serverError(w, h.logger, "failed to store photo", err)
		return
	}
	if err := h.store.SetPhotoKey(existing.ID, key); err != nil {
		serverError(w, h.logger, "failed to save photo", err)
		return
	}

	if existing.PhotoKey != "" {
		if err := h.objects.Delete(r.Context(), existing.PhotoKey); err != nil {
			h.logger.Warn("delete old member photo", "error", err, "key", existing.PhotoKey)
		}
	}

	existing.PhotoKey = key
	broadcast(h.hub, websocket.NewMessage("member", "updated", existing.ID, nil))
	writeJSON(w, http.StatusOK, existing)
}

// Photo streams the member's photo.
func (h *MemberHandler) Photo(w http.ResponseWriter, r *http.Request) {
	existing := h.getMember(w, r)
	if existing == nil {
		return
	}
	if existing.PhotoKey == "" || !h.objects.Configured() {
		writeError(w, http.StatusNotFound, "member has no photo")
		return
	}

	body, err := h.objects.Get(r.Context(), existing.PhotoKey)
	if errors.Is(err, objectstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "member has no photo")
		return
	}
	if err != nil {
		serverError(w, h.logger, "failed to load photo", err)
		return
	}
	defer body.Close()

	ct := "application/octet-stream"
	for t, ext := range photoTypes {
		if strings.HasSuffix(existing.PhotoKey, ext) {
			ct = t
		}
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	io.Copy(w, body)
}

// PDF renders the member's record sheet.
func (h *MemberHandler) PDF(w http.ResponseWriter, r *http.Request) {
	existing := h.getMember(w, r)
	if existing == nil {
		return
	}

	church := churchName(h.settings, h.logger)
	var buf bytes.Buffer
	if err := report.MemberPDF(&buf, church, existing); err != nil {
		serverError(w, h.logger, "failed to render member sheet", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="member-%d.pdf"`, existing.ID))
	w.Write(buf.Bytes())
}

// churchName returns the configured church name for report headings.
func churchName(ss *store.SettingsStore, logger *slog.Logger) string {
	p, err := ss.GetProfile()
	if err != nil {
		logger.Warn("load church profile", "error", err)
	}
	if p == nil || p.Name == "" {
		return "Church"
	}
	return p.Name
}
