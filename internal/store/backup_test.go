package store

import (
	"testing"
	"time"

	"github.com/dukerupert/ekklesia/internal/model"
)

func setupBackupTestDB(t *testing.T) *BackupStore {
	t.Helper()
	return NewBackupStore(openTestDB(t))
}

func TestBackupCreate(t *testing.T) {
	bs := setupBackupTestDB(t)

	b, err := bs.Create("ekklesia-20260101.db.enc", "backups/20260101.db.enc", model.BackupTriggerScheduled)
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if b.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if b.Filename != "ekklesia-20260101.db.enc" {
		t.Errorf("filename = %q, want %q", b.Filename, "ekklesia-20260101.db.enc")
	}
	if b.ObjectKey != "backups/20260101.db.enc" {
		t.Errorf("object_key = %q", b.ObjectKey)
	}
	if b.Status != model.BackupStatusPending {
		t.Errorf("status = %q, want %q", b.Status, model.BackupStatusPending)
	}
	if b.StartedAt == nil {
		t.Error("expected started_at to be set")
	}
	if b.Trigger != model.BackupTriggerScheduled {
		t.Errorf("trigger = %q, want scheduled", b.Trigger)
	}
}

func TestBackupGetByIDNotFound(t *testing.T) {
	bs := setupBackupTestDB(t)

	b, err := bs.GetByID(999)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b != nil {
		t.Errorf("expected nil, got %+v", b)
	}
}

func TestBackupUpdateStatus(t *testing.T) {
	bs := setupBackupTestDB(t)

	b, _ := bs.Create("test.db.enc", "backups/test.db.enc", model.BackupTriggerManual)

	if err := bs.UpdateStatus(b.ID, model.BackupStatusUploading, ""); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ := bs.GetByID(b.ID)
	if got.Status != model.BackupStatusUploading {
		t.Errorf("status = %q, want %q", got.Status, model.BackupStatusUploading)
	}

	if err := bs.UpdateStatus(b.ID, model.BackupStatusFailed, "upload failed"); err != nil {
		t.Fatalf("update status with error: %v", err)
	}
	got, _ = bs.GetByID(b.ID)
	if got.Status != model.BackupStatusFailed {
		t.Errorf("status = %q, want %q", got.Status, model.BackupStatusFailed)
	}
	if got.ErrorMessage != "upload failed" {
		t.Errorf("error_message = %q, want %q", got.ErrorMessage, "upload failed")
	}
}

func TestBackupUpdateCompleted(t *testing.T) {
	bs := setupBackupTestDB(t)

	b, _ := bs.Create("test.db.enc", "backups/test.db.enc", model.BackupTriggerManual)
	if err := bs.UpdateCompleted(b.ID, 1024*1024, "abc123"); err != nil {
		t.Fatalf("update completed: %v", err)
	}

	got, _ := bs.GetByID(b.ID)
	if got.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q, want %q", got.Status, model.BackupStatusCompleted)
	}
	if got.SizeBytes != 1024*1024 {
		t.Errorf("size_bytes = %d, want %d", got.SizeBytes, 1024*1024)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
	if got.Checksum != "abc123" {
		t.Errorf("checksum = %q, want abc123", got.Checksum)
	}

	latest, err := bs.LatestCompleted()
	if err != nil {
		t.Fatalf("latest completed: %v", err)
	}
	if latest == nil || latest.ID != b.ID {
		t.Errorf("latest completed = %+v, want id %d", latest, b.ID)
	}

	total, err := bs.TotalSize()
	if err != nil {
		t.Fatalf("total size: %v", err)
	}
	if total != 1024*1024 {
		t.Errorf("total size = %d, want %d", total, 1024*1024)
	}
}

func TestBackupListOrderAndLimit(t *testing.T) {
	bs := setupBackupTestDB(t)

	bs.Create("first.db.enc", "backups/first.db.enc", model.BackupTriggerManual)
	time.Sleep(10 * time.Millisecond)
	bs.Create("second.db.enc", "backups/second.db.enc", model.BackupTriggerManual)
	time.Sleep(10 * time.Millisecond)
	bs.Create("third.db.enc", "backups/third.db.enc", model.BackupTriggerManual)

	all, err := bs.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].Filename != "third.db.enc" {
		t.Errorf("first entry = %q, want %q", all[0].Filename, "third.db.enc")
	}

	limited, err := bs.List(2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("len = %d, want 2", len(limited))
	}
}

func TestBackupDeleteOlderThan(t *testing.T) {
	bs := setupBackupTestDB(t)

	bs.Create("old.db.enc", "backups/old.db.enc", model.BackupTriggerManual)
	time.Sleep(50 * time.Millisecond)
	cutoff := time.Now().UTC()
	time.Sleep(50 * time.Millisecond)
	bs.Create("new.db.enc", "backups/new.db.enc", model.BackupTriggerManual)

	keys, err := bs.DeleteOlderThan(cutoff)
	if err != nil {
		t.Fatalf("delete older than: %v", err)
	}
	if len(keys) != 1 || keys[0] != "backups/old.db.enc" {
		t.Errorf("deleted keys = %v, want [backups/old.db.enc]", keys)
	}

	remaining, _ := bs.List(10)
	if len(remaining) != 1 {
		t.Fatalf("remaining = %d, want 1", len(remaining))
	}
	if remaining[0].Filename != "new.db.enc" {
		t.Errorf("remaining = %q, want %q", remaining[0].Filename, "new.db.enc")
	}
}
