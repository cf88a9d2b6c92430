package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/ekklesia/internal/backup"
	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/dukerupert/ekklesia/internal/store"
)

type BackupHandler struct {
	manager *backup.Manager
	store   *store.BackupStore
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, store: bs, logger: logger}
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	list, err := h.store.List(limit)
	if err != nil {
		serverError(w, h.logger, "failed to list backups", err)
		return
	}
	if list == nil {
		list = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Status reports the scheduler state and storage usage.
func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	total, err := h.store.TotalSize()
	if err != nil {
		serverError(w, h.logger, "failed to get backup size", err)
		return
	}
	latest, err := h.store.LatestCompleted()
	if err != nil {
		serverError(w, h.logger, "failed to get latest backup", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      h.manager.Status(),
		"total_bytes": total,
		"latest":      latest,
	})
}

// Run starts a backup immediately and waits for it to finish.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	id, err := h.manager.RunNow(r.Context())
	if errors.Is(err, backup.ErrNotConfigured) {
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}
	if err != nil {
		serverError(w, h.logger, "backup failed", err)
		return
	}

	b, err := h.store.GetByID(id)
	if err != nil {
		serverError(w, h.logger, "failed to get backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// Download streams the encrypted backup file.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	body, record, err := h.manager.Download(r.Context(), id)
	switch {
	case errors.Is(err, backup.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	case errors.Is(err, backup.ErrNotFound):
		writeError(w, http.StatusNotFound, "backup not found")
		return
	case err != nil:
		serverError(w, h.logger, "failed to download backup", err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, record.Filename))
	if record.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(record.SizeBytes, 10))
	}
	if record.Checksum != "" {
		w.Header().Set("X-Checksum-Sha256", record.Checksum)
	}
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("backup download interrupted", "error", err, "id", id)
	}
}
