package model

import "time"

const (
	RoleAdmin     = "admin"
	RoleSecretary = "secretary"
	RoleTreasurer = "treasurer"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
