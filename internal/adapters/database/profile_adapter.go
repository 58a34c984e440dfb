package database

import (
	"context"

	"github.com/citasalud/bookingcore/internal/domain/entities"
	"github.com/citasalud/bookingcore/internal/domain/repositories"
	"github.com/citasalud/bookingcore/internal/infrastructure/clients/supabase"
)

// ProfileAdapter implements ProfileRepository over the hosted table API
type ProfileAdapter struct {
	client *supabase.Client
}

// NewProfileAdapter creates a new profile adapter
func NewProfileAdapter(client *supabase.Client) repositories.ProfileRepository {
	return &ProfileAdapter{client: client}
}

// GetByID retrieves a single profile by its identity id
func (a *ProfileAdapter) GetByID(ctx context.Context, accessToken, id string) (*entities.Profile, error) {
	var profile entities.Profile
	err := a.client.From("profiles").
		Auth(accessToken).
		Select("*").
		Eq("id", id).
		Single().
		Get(ctx, &profile)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
