package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/ekklesia/internal/model"
)

const (
	keyChurchName   = "church_name"
	keyTagline      = "tagline"
	keyHistory      = "history"
	keyAddress      = "address"
	keyServiceTimes = "service_times"
	keyContactEmail = "contact_email"
	keyContactPhone = "contact_phone"
	keyAccentColor  = "accent_color"
)

var profileKeys = []string{
	keyChurchName,
	keyTagline,
	keyHistory,
	keyAddress,
	keyServiceTimes,
	keyContactEmail,
	keyContactPhone,
	keyAccentColor,
}

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) GetAll() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("get all settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// GetProfile assembles the church profile. Missing keys are left empty.
func (s *SettingsStore) GetProfile() (*model.ChurchProfile, error) {
	values := make(map[string]string)
	for _, key := range profileKeys {
		var value string
		err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get profile setting %q: %w", key, err)
		}
		values[key] = value
	}
	return &model.ChurchProfile{
		Name:         values[keyChurchName],
		Tagline:      values[keyTagline],
		History:      values[keyHistory],
		Address:      values[keyAddress],
		ServiceTimes: values[keyServiceTimes],
		ContactEmail: values[keyContactEmail],
		ContactPhone: values[keyContactPhone],
		AccentColor:  values[keyAccentColor],
	}, nil
}

// SetProfile writes every profile field in one transaction.
func (s *SettingsStore) SetProfile(p *model.ChurchProfile) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	fields := map[string]string{
		keyChurchName:   p.Name,
		keyTagline:      p.Tagline,
		keyHistory:      p.History,
		keyAddress:      p.Address,
		keyServiceTimes: p.ServiceTimes,
		keyContactEmail: p.ContactEmail,
		keyContactPhone: p.ContactPhone,
		keyAccentColor:  p.AccentColor,
	}
	for key, value := range fields {
		_, err := tx.Exec(
			`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, now,
		)
		if err != nil {
			return fmt.Errorf("set profile setting %q: %w", key, err)
		}
	}
	return tx.Commit()
}
