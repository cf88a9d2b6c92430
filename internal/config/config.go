// Package config loads server settings from defaults, an optional YAML file
// and EKKLESIA_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dukerupert/ekklesia/internal/objectstore"
)

const defaultConfigFile = "ekklesia.yaml"

type Config struct {
	Port      string `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	BaseURL   string `yaml:"base_url"`
	StaticDir string `yaml:"static_dir"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	HymnalPath string `yaml:"hymnal_path"`
	BiblePath  string `yaml:"bible_path"`

	SessionTTL time.Duration `yaml:"session_ttl"`

	DisplaySecret   string        `yaml:"display_secret"`
	DisplayTokenTTL time.Duration `yaml:"display_token_ttl"`

	S3       objectstore.Config `yaml:"s3"`
	Backup   BackupConfig       `yaml:"backup"`
	Postmark PostmarkConfig     `yaml:"postmark"`
	Admin    AdminConfig        `yaml:"bootstrap_admin"`
}

type BackupConfig struct {
	ScheduleHour  int    `yaml:"schedule_hour"`
	RetentionDays int    `yaml:"retention_days"`
	Passphrase    string `yaml:"passphrase"`
}

type PostmarkConfig struct {
	ServerToken string `yaml:"server_token"`
	From        string `yaml:"from"`
}

// AdminConfig seeds the first admin account when the users table is empty.
type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

func Default() *Config {
	return &Config{
		Port:            "8080",
		DBPath:          "ekklesia.db",
		BaseURL:         "http://localhost:8080",
		StaticDir:       "web/static",
		LogLevel:        "info",
		LogFormat:       "text",
		SessionTTL:      30 * 24 * time.Hour,
		DisplayTokenTTL: 12 * time.Hour,
		S3:              objectstore.Config{Region: "us-east-1"},
		Backup:          BackupConfig{ScheduleHour: 3, RetentionDays: 30},
	}
}

// Load reads .env when present, then the YAML file named by EKKLESIA_CONFIG
// (or ./ekklesia.yaml if it exists), then the environment. It returns the
// path of the YAML file used, or "" when none was read.
func Load() (*Config, string, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("load .env: %w", err)
	}

	path := os.Getenv("EKKLESIA_CONFIG")
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// LoadFromPath is Load without .env handling. An empty path skips the file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"EKKLESIA_PORT":              &c.Port,
		"EKKLESIA_DB_PATH":           &c.DBPath,
		"EKKLESIA_BASE_URL":          &c.BaseURL,
		"EKKLESIA_STATIC_DIR":        &c.StaticDir,
		"EKKLESIA_LOG_LEVEL":         &c.LogLevel,
		"EKKLESIA_LOG_FORMAT":        &c.LogFormat,
		"EKKLESIA_HYMNAL_PATH":       &c.HymnalPath,
		"EKKLESIA_BIBLE_PATH":        &c.BiblePath,
		"EKKLESIA_DISPLAY_SECRET":    &c.DisplaySecret,
		"EKKLESIA_S3_ENDPOINT":       &c.S3.Endpoint,
		"EKKLESIA_S3_BUCKET":         &c.S3.Bucket,
		"EKKLESIA_S3_REGION":         &c.S3.Region,
		"EKKLESIA_S3_ACCESS_KEY":     &c.S3.AccessKey,
		"EKKLESIA_S3_SECRET_KEY":     &c.S3.SecretKey,
		"EKKLESIA_BACKUP_PASSPHRASE": &c.Backup.Passphrase,
		"EKKLESIA_POSTMARK_TOKEN":    &c.Postmark.ServerToken,
		"EKKLESIA_POSTMARK_FROM":     &c.Postmark.From,
		"EKKLESIA_ADMIN_EMAIL":       &c.Admin.Email,
		"EKKLESIA_ADMIN_PASSWORD":    &c.Admin.Password,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"EKKLESIA_BACKUP_HOUR":           &c.Backup.ScheduleHour,
		"EKKLESIA_BACKUP_RETENTION_DAYS": &c.Backup.RetentionDays,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"EKKLESIA_SESSION_TTL":       &c.SessionTTL,
		"EKKLESIA_DISPLAY_TOKEN_TTL": &c.DisplayTokenTTL,
	}
	for key, dst := range durations {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	if c.Backup.ScheduleHour < 0 || c.Backup.ScheduleHour > 23 {
		errs = append(errs, fmt.Errorf("backup.schedule_hour %d out of range 0-23", c.Backup.ScheduleHour))
	}
	if c.Backup.RetentionDays < 0 {
		errs = append(errs, errors.New("backup.retention_days cannot be negative"))
	}
	if c.DisplaySecret != "" && len(c.DisplaySecret) < 16 {
		errs = append(errs, errors.New("display_secret must be at least 16 bytes"))
	}
	if c.DisplayTokenTTL <= 0 {
		errs = append(errs, errors.New("display_token_ttl must be positive"))
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		errs = append(errs, errors.New("bootstrap_admin needs both email and password"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
