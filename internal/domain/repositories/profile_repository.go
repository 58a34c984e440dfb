package repositories

import (
	"context"

	"github.com/citasalud/bookingcore/internal/domain/entities"
)

// ProfileRepository defines the interface for profile reads
type ProfileRepository interface {
	// GetByID retrieves a single profile by its identity id
	GetByID(ctx context.Context, accessToken, id string) (*entities.Profile, error)
}
