package services

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/citasalud/bookingcore/internal/domain/entities"
	"github.com/citasalud/bookingcore/internal/domain/repositories"
	"github.com/citasalud/bookingcore/internal/infrastructure/observability"
)

// identitySource is the slice of the session manager the appointment
// service depends on. Appointments never mutate session state.
type identitySource interface {
	Identity() *entities.Identity
}

// AppointmentService owns the in-memory snapshot of appointment records
// for the current viewer. The snapshot mirrors the last successful list
// call, replaced wholesale; there is no merging with prior contents.
type AppointmentService struct {
	repo     repositories.AppointmentRepository
	sessions identitySource

	mu       sync.RWMutex
	snapshot []entities.Appointment
	loading  bool
	lastErr  string
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(repo repositories.AppointmentRepository, sessions identitySource) *AppointmentService {
	return &AppointmentService{
		repo:     repo,
		sessions: sessions,
	}
}

// CreateAppointment inserts a new appointment owned by the current
// identity. Status always starts as pending regardless of caller context;
// empty time and notes are stored as null.
func (s *AppointmentService) CreateAppointment(ctx context.Context, date, timeOfDay, notes string) AppointmentResult {
	s.begin()
	logger := observability.LoggerFromContext(ctx)

	ident := s.sessions.Identity()
	if ident == nil {
		s.finish(msgNotAuthenticated)
		return AppointmentResult{Error: msgNotAuthenticated}
	}

	appointment := &entities.Appointment{
		ID:     uuid.New().String(),
		UserID: ident.ID,
		Date:   strings.TrimSpace(date),
		Time:   optional(timeOfDay),
		Status: entities.AppointmentStatusPending,
		Notes:  optional(notes),
	}

	created, err := s.repo.Insert(ctx, ident.AccessToken, appointment)
	if err != nil {
		msg := userMessage(err)
		logger.Error().Err(err).Str("user_id", ident.ID).Msg("appointment create failed")
		s.finish(msg)
		return AppointmentResult{Error: msg}
	}

	logger.Info().Str("appointment_id", created.ID).Str("user_id", ident.ID).Msg("appointment created")
	s.finish("")
	return AppointmentResult{Success: true, Data: created}
}

// GetUserAppointments lists the current identity's appointments, profile
// joined, ordered by date ascending, and replaces the snapshot with the
// result. Zero matches is a success with an empty list.
func (s *AppointmentService) GetUserAppointments(ctx context.Context) AppointmentsResult {
	s.begin()
	logger := observability.LoggerFromContext(ctx)

	ident := s.sessions.Identity()
	if ident == nil {
		s.finish(msgNotAuthenticated)
		return AppointmentsResult{Error: msgNotAuthenticated}
	}

	rows, err := s.repo.ListByUser(ctx, ident.AccessToken, ident.ID)
	if err != nil {
		msg := userMessage(err)
		logger.Error().Err(err).Str("user_id", ident.ID).Msg("appointment list failed")
		s.finish(msg)
		return AppointmentsResult{Error: msg}
	}

	s.replaceSnapshot(rows)
	s.finish("")
	return AppointmentsResult{Success: true, Data: rows}
}

// GetAllAppointments lists every appointment, profile joined, ordered by
// date ascending, and replaces the snapshot. No admin check happens here:
// callers are expected to have verified IsAdmin, and the backend's
// row-level policy is the actual authorization boundary.
func (s *AppointmentService) GetAllAppointments(ctx context.Context) AppointmentsResult {
	s.begin()
	logger := observability.LoggerFromContext(ctx)

	rows, err := s.repo.ListAll(ctx, s.token())
	if err != nil {
		msg := userMessage(err)
		logger.Error().Err(err).Msg("appointment list-all failed")
		s.finish(msg)
		return AppointmentsResult{Error: msg}
	}

	s.replaceSnapshot(rows)
	s.finish("")
	return AppointmentsResult{Success: true, Data: rows}
}

// UpdateAppointmentStatus moves the single matching appointment to
// confirmed or cancelled. Ownership is not checked locally; the backend's
// row-level policy decides whether the write lands, and an update that
// matched no row is a success with no data.
func (s *AppointmentService) UpdateAppointmentStatus(ctx context.Context, id string, status entities.AppointmentStatus) AppointmentResult {
	s.begin()
	logger := observability.LoggerFromContext(ctx)

	if status != entities.AppointmentStatusConfirmed && status != entities.AppointmentStatusCancelled {
		s.finish(msgInvalidStatus)
		return AppointmentResult{Error: msgInvalidStatus}
	}

	updated, err := s.repo.UpdateStatus(ctx, s.token(), id, status)
	if err != nil {
		msg := userMessage(err)
		logger.Error().Err(err).Str("appointment_id", id).Msg("appointment status update failed")
		s.finish(msg)
		return AppointmentResult{Error: msg}
	}

	logger.Info().Str("appointment_id", id).Str("status", string(status)).Msg("appointment status updated")
	s.finish("")
	return AppointmentResult{Success: true, Data: updated}
}

// Appointments returns a copy of the current snapshot
func (s *AppointmentService) Appointments() []entities.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Appointment, len(s.snapshot))
	copy(out, s.snapshot)
	return out
}

// Loading reports whether an operation is in flight. The flag is shared
// across operations, last writer wins.
func (s *AppointmentService) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError returns the message of the most recent failure, empty after
// a successful operation
func (s *AppointmentService) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *AppointmentService) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *AppointmentService) finish(errMsg string) {
	s.mu.Lock()
	s.loading = false
	s.lastErr = errMsg
	s.mu.Unlock()
}

func (s *AppointmentService) replaceSnapshot(rows []entities.Appointment) {
	s.mu.Lock()
	s.snapshot = rows
	s.mu.Unlock()
}

func (s *AppointmentService) token() string {
	if ident := s.sessions.Identity(); ident != nil {
		return ident.AccessToken
	}
	return ""
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
