package entities

import (
	"time"
)

// Profile represents extended user attributes, one-to-one with an Identity.
// Rows are created by the backend on sign-up; this layer only reads them.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	IsAdmin   bool      `json:"is_admin"`
}
