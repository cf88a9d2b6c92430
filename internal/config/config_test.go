package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ekklesia.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromPathDefaults(t *testing.T) {
	cfg, err := LoadFromPath("")
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.SessionTTL != 30*24*time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.Backup.ScheduleHour != 3 || cfg.Backup.RetentionDays != 30 {
		t.Errorf("Backup = %+v", cfg.Backup)
	}
	if cfg.S3.Region != "us-east-1" {
		t.Errorf("S3.Region = %q", cfg.S3.Region)
	}
}

func TestLoadFromPathYAML(t *testing.T) {
	path := writeFile(t, `
port: "9090"
db_path: /var/lib/ekklesia/data.db
log_format: json
session_ttl: 48h
display_secret: 0123456789abcdef0123
s3:
  bucket: church
  access_key: AK
  secret_key: SK
backup:
  schedule_hour: 4
  passphrase: secret
bootstrap_admin:
  email: pastor@example.com
  password: changeme123
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Port != "9090" || cfg.DBPath != "/var/lib/ekklesia/data.db" || cfg.LogFormat != "json" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.SessionTTL != 48*time.Hour {
		t.Errorf("SessionTTL = %v, want 48h", cfg.SessionTTL)
	}
	if cfg.S3.Bucket != "church" || cfg.S3.Region != "us-east-1" {
		t.Errorf("S3 = %+v", cfg.S3)
	}
	if cfg.Backup.ScheduleHour != 4 || cfg.Backup.RetentionDays != 30 || cfg.Backup.Passphrase != "secret" {
		t.Errorf("Backup = %+v", cfg.Backup)
	}
	if cfg.Admin.Email != "pastor@example.com" {
		t.Errorf("Admin = %+v", cfg.Admin)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "port: \"9090\"\n")
	t.Setenv("EKKLESIA_PORT", "7070")
	t.Setenv("EKKLESIA_BACKUP_HOUR", "22")
	t.Setenv("EKKLESIA_SESSION_TTL", "2h")
	t.Setenv("EKKLESIA_S3_BUCKET", "from-env")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Port != "7070" {
		t.Errorf("Port = %q, want 7070", cfg.Port)
	}
	if cfg.Backup.ScheduleHour != 22 {
		t.Errorf("ScheduleHour = %d, want 22", cfg.Backup.ScheduleHour)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("SessionTTL = %v, want 2h", cfg.SessionTTL)
	}
	if cfg.S3.Bucket != "from-env" {
		t.Errorf("S3.Bucket = %q", cfg.S3.Bucket)
	}
}

func TestEnvBadNumber(t *testing.T) {
	t.Setenv("EKKLESIA_BACKUP_HOUR", "three")
	if _, err := LoadFromPath(""); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadFromPathBadYAML(t *testing.T) {
	path := writeFile(t, "port: [unterminated\n")
	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadUsesConfigEnv(t *testing.T) {
	path := writeFile(t, "port: \"6060\"\n")
	t.Setenv("EKKLESIA_CONFIG", path)
	t.Chdir(t.TempDir())

	cfg, used, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if used != path {
		t.Errorf("used = %q, want %q", used, path)
	}
	if cfg.Port != "6060" {
		t.Errorf("Port = %q, want 6060", cfg.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty port", func(c *Config) { c.Port = "" }, "port is required"},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }, "session_ttl"},
		{"hour too big", func(c *Config) { c.Backup.ScheduleHour = 24 }, "schedule_hour"},
		{"hour negative", func(c *Config) { c.Backup.ScheduleHour = -1 }, "schedule_hour"},
		{"short secret", func(c *Config) { c.DisplaySecret = "short" }, "display_secret"},
		{"half admin", func(c *Config) { c.Admin.Email = "a@b.c" }, "bootstrap_admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
