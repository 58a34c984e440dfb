package database

import (
	"context"

	"github.com/citasalud/bookingcore/internal/domain/entities"
	"github.com/citasalud/bookingcore/internal/domain/repositories"
	"github.com/citasalud/bookingcore/internal/infrastructure/clients/supabase"
	apperrors "github.com/citasalud/bookingcore/pkg/errors"
)

// appointmentColumns embeds the owner profile on every read
const appointmentColumns = "*, profile:profiles(*)"

// AppointmentAdapter implements AppointmentRepository over the hosted
// table API. Authorization is entirely the backend's row-level policy:
// the adapter forwards the caller's token and performs no ownership
// checks of its own.
type AppointmentAdapter struct {
	client *supabase.Client
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *supabase.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{client: client}
}

// Insert creates a new appointment row and returns the stored row
func (a *AppointmentAdapter) Insert(ctx context.Context, accessToken string, appointment *entities.Appointment) (*entities.Appointment, error) {
	var rows []entities.Appointment
	err := a.client.From("appointments").
		Auth(accessToken).
		Select("*").
		Insert(ctx, []*entities.Appointment{appointment}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewExternalError("insert returned no representation", nil)
	}
	return &rows[0], nil
}

// ListByUser retrieves appointments owned by userID, profile joined,
// ordered by date ascending
func (a *AppointmentAdapter) ListByUser(ctx context.Context, accessToken, userID string) ([]entities.Appointment, error) {
	rows := []entities.Appointment{}
	err := a.client.From("appointments").
		Auth(accessToken).
		Select(appointmentColumns).
		Eq("user_id", userID).
		Order("date", true).
		Get(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAll retrieves every appointment the token may see, profile joined,
// ordered by date ascending
func (a *AppointmentAdapter) ListAll(ctx context.Context, accessToken string) ([]entities.Appointment, error) {
	rows := []entities.Appointment{}
	err := a.client.From("appointments").
		Auth(accessToken).
		Select(appointmentColumns).
		Order("date", true).
		Get(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus patches the status of the single row matching id. Zero
// matched rows (missing id, or a row the policy hides) is not a
// failure; the update simply landed on nothing and the caller gets
// back no data.
func (a *AppointmentAdapter) UpdateStatus(ctx context.Context, accessToken, id string, status entities.AppointmentStatus) (*entities.Appointment, error) {
	var rows []entities.Appointment
	err := a.client.From("appointments").
		Auth(accessToken).
		Select("*").
		Eq("id", id).
		Update(ctx, map[string]entities.AppointmentStatus{"status": status}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
