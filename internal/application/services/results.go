package services

import (
	"github.com/citasalud/bookingcore/internal/domain/entities"
)

// Result is the uniform envelope every operation resolves to: failures
// are reported in Error, never raised past the operation boundary.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SignUpResult is the envelope for registration. EmailConfirmationRequired
// marks a successful sign-up that issued no session: the user exists but
// no identity is established until the email is confirmed.
type SignUpResult struct {
	Success                   bool               `json:"success"`
	EmailConfirmationRequired bool               `json:"email_confirmation_required,omitempty"`
	Identity                  *entities.Identity `json:"identity,omitempty"`
	Error                     string             `json:"error,omitempty"`
}

// AppointmentResult is the envelope for single-appointment operations
type AppointmentResult struct {
	Success bool                  `json:"success"`
	Data    *entities.Appointment `json:"data,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// AppointmentsResult is the envelope for list operations
type AppointmentsResult struct {
	Success bool                   `json:"success"`
	Data    []entities.Appointment `json:"data"`
	Error   string                 `json:"error,omitempty"`
}
