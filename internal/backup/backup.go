// Package backup snapshots the SQLite database, encrypts it and stores it in
// object storage on a daily schedule.
package backup

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/dukerupert/ekklesia/internal/store"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	ErrNotConfigured = errors.New("backup not configured")
	ErrNotFound      = errors.New("backup not found")
	ErrCorrupt       = errors.New("backup checksum mismatch")
)

// ObjectStore is where encrypted snapshots are kept.
type ObjectStore interface {
	Configured() bool
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type Config struct {
	Passphrase    string
	ScheduleHour  int
	RetentionDays int
	Prefix        string
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Manager runs encrypted backups. It is disabled unless object storage is
// configured and a passphrase is set.
type Manager struct {
	mu       sync.RWMutex
	runMu    sync.Mutex
	cfg      Config
	status   Status
	callback StatusCallback
	lastRun  string

	db      *sql.DB
	backups *store.BackupStore
	objects ObjectStore
	logger  *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, db *sql.DB, bs *store.BackupStore, objects ObjectStore, logger *slog.Logger, callback StatusCallback) *Manager {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "backups"
	}
	m := &Manager{
		cfg:      cfg,
		db:       db,
		backups:  bs,
		objects:  objects,
		logger:   logger,
		callback: callback,
		status:   Status{State: StateDisabled},
	}
	if m.enabled() {
		m.status.State = StateIdle
	}
	return m
}

func (m *Manager) enabled() bool {
	return m.objects != nil && m.objects.Configured() && m.cfg.Passphrase != ""
}

// Start begins the scheduled backup loop. It is a no-op when disabled.
func (m *Manager) Start(ctx context.Context) {
	if !m.enabled() {
		m.logger.Info("scheduled backups disabled")
		return
	}

	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				m.checkSchedule(ctx, now)
			}
		}
	}()
}

// Stop gracefully stops the scheduler and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()

	if m.callback != nil {
		m.callback(s)
	}
}

// checkSchedule runs at most one backup per local day, at the configured hour.
func (m *Manager) checkSchedule(ctx context.Context, now time.Time) {
	if now.Hour() != m.cfg.ScheduleHour {
		return
	}
	day := now.Format("2006-01-02")
	m.mu.Lock()
	if m.lastRun == day {
		m.mu.Unlock()
		return
	}
	m.lastRun = day
	m.mu.Unlock()

	if _, err := m.run(ctx, model.BackupTriggerScheduled); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	}
	if err := m.Cleanup(ctx); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	}
}

// RunNow takes a backup immediately and returns its record ID. Concurrent
// calls run one after the other.
func (m *Manager) RunNow(ctx context.Context) (int64, error) {
	return m.run(ctx, model.BackupTriggerManual)
}

func (m *Manager) run(ctx context.Context, trigger model.BackupTrigger) (int64, error) {
	if !m.enabled() {
		return 0, ErrNotConfigured
	}
	m.runMu.Lock()
	defer m.runMu.Unlock()

	m.setStatus(Status{State: StateRunning, InProgress: true})

	stamp := time.Now().UTC().Format("20060102T150405Z")
	filename := fmt.Sprintf("ekklesia-%s.db.enc", stamp)
	key := fmt.Sprintf("%s/%s-%s.db.enc", m.cfg.Prefix, stamp, uuid.NewString()[:8])

	record, err := m.backups.Create(filename, key, trigger)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("create backup record: %w", err)
	}

	size, sum, err := m.snapshotAndUpload(ctx, record.ID, key)
	if err != nil {
		m.backups.UpdateStatus(record.ID, model.BackupStatusFailed, err.Error())
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, err
	}

	if err := m.backups.UpdateCompleted(record.ID, size, sum); err != nil {
		m.logger.Error("mark backup completed", "error", err, "id", record.ID)
	}
	now := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	m.logger.Info("backup completed", "id", record.ID, "trigger", trigger, "key", key, "bytes", size)
	return record.ID, nil
}

func (m *Manager) snapshotAndUpload(ctx context.Context, id int64, key string) (int64, string, error) {
	snapshot := filepath.Join(os.TempDir(), fmt.Sprintf("ekklesia-backup-%d-%s.db", id, uuid.NewString()))
	defer os.Remove(snapshot)

	// VACUUM INTO produces a consistent copy without pausing writers.
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", snapshot); err != nil {
		return 0, "", fmt.Errorf("snapshot database: %w", err)
	}

	plaintext, err := os.ReadFile(snapshot)
	if err != nil {
		return 0, "", fmt.Errorf("read snapshot: %w", err)
	}
	sealed, err := Encrypt(plaintext, m.cfg.Passphrase)
	if err != nil {
		return 0, "", fmt.Errorf("encrypt: %w", err)
	}

	m.backups.UpdateStatus(id, model.BackupStatusUploading, "")
	size := int64(len(sealed))
	if err := m.objects.Put(ctx, key, "application/octet-stream", bytes.NewReader(sealed), size); err != nil {
		return 0, "", fmt.Errorf("upload: %w", err)
	}
	return size, checksum(sealed), nil
}

// Download streams an encrypted backup as stored.
func (m *Manager) Download(ctx context.Context, id int64) (io.ReadCloser, *model.Backup, error) {
	if m.objects == nil || !m.objects.Configured() {
		return nil, nil, ErrNotConfigured
	}
	record, err := m.backups.GetByID(id)
	if err != nil {
		return nil, nil, fmt.Errorf("get backup: %w", err)
	}
	if record == nil || record.Status != model.BackupStatusCompleted {
		return nil, nil, ErrNotFound
	}
	body, err := m.objects.Get(ctx, record.ObjectKey)
	if err != nil {
		return nil, nil, fmt.Errorf("download: %w", err)
	}
	return body, record, nil
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Fetch downloads and decrypts a backup into dstPath, then checks that the
// result is an intact SQLite database. The running database is not touched.
func (m *Manager) Fetch(ctx context.Context, id int64, dstPath string) error {
	body, record, err := m.Download(ctx, id)
	if err != nil {
		return err
	}
	defer body.Close()

	sealed, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	if record.Checksum != "" && checksum(sealed) != record.Checksum {
		return ErrCorrupt
	}
	plaintext, err := Decrypt(sealed, m.cfg.Passphrase)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dstPath, plaintext, 0600); err != nil {
		removeDB(dstPath)
		return fmt.Errorf("write restored database: %w", err)
	}
	if err := verifyDB(ctx, dstPath); err != nil {
		removeDB(dstPath)
		return err
	}
	return nil
}

func verifyDB(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var integrity string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if integrity != "ok" {
		return fmt.Errorf("integrity check failed: %s", integrity)
	}
	return nil
}

// removeDB deletes a rejected restore along with any sidecar files SQLite
// left next to it.
func removeDB(path string) {
	for _, suffix := range []string{"", "-journal", "-wal", "-shm"} {
		os.Remove(path + suffix)
	}
}

// Cleanup deletes backups older than the retention period.
func (m *Manager) Cleanup(ctx context.Context) error {
	if m.objects == nil || !m.objects.Configured() {
		return nil
	}

	before := time.Now().UTC().AddDate(0, 0, -m.cfg.RetentionDays)
	keys, err := m.backups.DeleteOlderThan(before)
	if err != nil {
		return fmt.Errorf("delete old backups: %w", err)
	}

	for _, key := range keys {
		if err := m.objects.Delete(ctx, key); err != nil {
			m.logger.Warn("delete backup object", "key", key, "error", err)
		}
	}
	if len(keys) > 0 {
		m.logger.Info("removed expired backups", "count", len(keys))
	}
	return nil
}
