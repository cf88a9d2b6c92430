package model

import "time"

type Congregation struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	PastorName string    `json:"pastor_name"`
	Address    string    `json:"address"`
	SortOrder  int       `json:"sort_order"`
	CreatedAt  time.Time `json:"created_at"`
}
