package repositories

import (
	"context"

	"github.com/citasalud/bookingcore/internal/domain/entities"
)

// AppointmentRepository defines the interface for appointment data operations.
// The access token scopes every call: the backend applies row-level policy
// against it, and no further authorization happens on this side.
type AppointmentRepository interface {
	// Insert creates a new appointment row and returns the stored row
	Insert(ctx context.Context, accessToken string, appointment *entities.Appointment) (*entities.Appointment, error)

	// ListByUser retrieves appointments owned by userID joined with the
	// owner profile, ordered by date ascending. Zero matches is an empty
	// slice, not an error.
	ListByUser(ctx context.Context, accessToken, userID string) ([]entities.Appointment, error)

	// ListAll retrieves every appointment visible to the token, joined
	// with the owner profile, ordered by date ascending
	ListAll(ctx context.Context, accessToken string) ([]entities.Appointment, error)

	// UpdateStatus updates the status of the single row matching id.
	// Zero matched rows is nil with no error, not a failure.
	UpdateStatus(ctx context.Context, accessToken, id string, status entities.AppointmentStatus) (*entities.Appointment, error)
}
