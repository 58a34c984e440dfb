package providers

import (
	"context"
	"errors"

	"github.com/citasalud/bookingcore/internal/domain/entities"
)

// Typed variants for the backend auth failure modes this layer reacts
// to. The adapter maps backend failure payloads onto these exactly once;
// services branch with errors.Is instead of re-matching message strings.
var (
	ErrUserAlreadyRegistered = errors.New("user already registered")
	ErrWeakPassword          = errors.New("password does not meet requirements")
	ErrInvalidEmail          = errors.New("email address is invalid")
	ErrInvalidCredentials    = errors.New("invalid login credentials")
	ErrEmailNotConfirmed     = errors.New("email not confirmed")
	ErrTooManyRequests       = errors.New("too many requests")
	ErrRefreshTokenInvalid   = errors.New("refresh token invalid or missing")

	// ErrInvalidAuthResponse marks a backend auth response that carried
	// no user where one was required
	ErrInvalidAuthResponse = errors.New("auth response carried no user")
)

// SignUpParams carries registration inputs plus the profile metadata the
// backend attaches to the new user.
type SignUpParams struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

// AuthResult is the outcome of a registration or credential sign-in.
// SessionIssued is false when the backend created the user but requires
// email confirmation before issuing tokens; Identity is nil in that case.
type AuthResult struct {
	Identity      *entities.Identity
	SessionIssued bool
}

// AuthProvider defines the interface for the hosted authentication service.
// Implementations map backend failure payloads to typed variants exactly
// once; callers decide on user-facing wording.
type AuthProvider interface {
	// SignUp registers a new user with profile metadata attached
	SignUp(ctx context.Context, params SignUpParams) (*AuthResult, error)

	// SignInWithPassword exchanges credentials for a session
	SignInWithPassword(ctx context.Context, email, password string) (*AuthResult, error)

	// SignOut terminates the backend session for the given access token
	SignOut(ctx context.Context, accessToken string) error

	// GetUser fetches the identity for the currently valid session
	GetUser(ctx context.Context, accessToken string) (*entities.Identity, error)
}
