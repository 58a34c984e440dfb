package identity

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/citasalud/bookingcore/internal/domain/entities"
	"github.com/citasalud/bookingcore/internal/domain/providers"
	"github.com/citasalud/bookingcore/internal/infrastructure/clients/supabase"
	apperrors "github.com/citasalud/bookingcore/pkg/errors"
)

// SupabaseProvider implements AuthProvider over the hosted auth API
type SupabaseProvider struct {
	client *supabase.Client
}

// NewSupabaseProvider creates a new auth provider backed by the hosted API
func NewSupabaseProvider(client *supabase.Client) providers.AuthProvider {
	return &SupabaseProvider{client: client}
}

// SignUp registers a new user with profile metadata attached
func (p *SupabaseProvider) SignUp(ctx context.Context, params providers.SignUpParams) (*providers.AuthResult, error) {
	metadata := map[string]string{
		"full_name": params.FullName,
	}
	if params.Phone != "" {
		metadata["phone"] = params.Phone
	}

	resp, err := p.client.SignUp(ctx, params.Email, params.Password, metadata)
	if err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeExternal, "sign-up response carried no user", providers.ErrInvalidAuthResponse)
	}
	return toAuthResult(resp), nil
}

// SignInWithPassword exchanges credentials for a session
func (p *SupabaseProvider) SignInWithPassword(ctx context.Context, email, password string) (*providers.AuthResult, error) {
	resp, err := p.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if resp.User == nil || resp.Session == nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeExternal, "sign-in response carried no session", providers.ErrInvalidAuthResponse)
	}
	return toAuthResult(resp), nil
}

// SignOut terminates the backend session
func (p *SupabaseProvider) SignOut(ctx context.Context, accessToken string) error {
	return p.client.SignOut(ctx, accessToken)
}

// GetUser fetches the identity behind the given access token
func (p *SupabaseProvider) GetUser(ctx context.Context, accessToken string) (*entities.Identity, error) {
	user, err := p.client.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &entities.Identity{
		ID:          user.ID,
		Email:       user.Email,
		AccessToken: accessToken,
		ExpiresAt:   tokenExpiry(accessToken),
	}, nil
}

func toAuthResult(resp *supabase.AuthResponse) *providers.AuthResult {
	result := &providers.AuthResult{}
	if resp.Session == nil {
		return result
	}

	result.SessionIssued = true
	result.Identity = &entities.Identity{
		ID:           resp.User.ID,
		Email:        resp.User.Email,
		AccessToken:  resp.Session.AccessToken,
		RefreshToken: resp.Session.RefreshToken,
		ExpiresAt:    tokenExpiry(resp.Session.AccessToken),
	}
	if result.Identity.ExpiresAt.IsZero() && resp.Session.ExpiresIn > 0 {
		result.Identity.ExpiresAt = time.Now().Add(time.Duration(resp.Session.ExpiresIn) * time.Second)
	}
	return result
}

// tokenExpiry decodes the expiry claim from a backend-issued access token.
// The token is not verified here; trust in its contents belongs to the
// backend, this is only a local hint for expiry bookkeeping.
func tokenExpiry(raw string) time.Time {
	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
