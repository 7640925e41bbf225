package model

import "time"

// Manager is an operator account allowed to use the dashboard API.
type Manager struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
