package model

import "time"

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChurchProfile is the public-facing description of the church.
type ChurchProfile struct {
	Name         string `json:"church_name"`
	Tagline      string `json:"tagline"`
	History      string `json:"history"`
	Address      string `json:"address"`
	ServiceTimes string `json:"service_times"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	AccentColor  string `json:"accent_color"`
}
