package entities

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether s is one of the known status values
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCancelled:
		return true
	}
	return false
}

// Appointment represents a scheduled booking record owned by an Identity.
// UserID is immutable after creation; Time and Notes are optional and
// stored as null when absent. Profile is populated only on joined reads.
type Appointment struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Date      string            `json:"date"`
	Time      *string           `json:"time"`
	Status    AppointmentStatus `json:"status"`
	Notes     *string           `json:"notes,omitempty"`
	CreatedAt time.Time         `json:"created_at,omitzero"`
	Profile   *Profile          `json:"profile,omitempty"`
}
