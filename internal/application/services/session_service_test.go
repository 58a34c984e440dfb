package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/citasalud/bookingcore/internal/adapters/cache"
	"github.com/citasalud/bookingcore/internal/adapters/events"
	"github.com/citasalud/bookingcore/internal/application/services"
	"github.com/citasalud/bookingcore/internal/domain/entities"
	"github.com/citasalud/bookingcore/internal/domain/providers"
	apperrors "github.com/citasalud/bookingcore/pkg/errors"
)

// Mocks

type MockAuthProvider struct {
	mock.Mock
}

func (m *MockAuthProvider) SignUp(ctx context.Context, params providers.SignUpParams) (*providers.AuthResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.AuthResult), args.Error(1)
}

func (m *MockAuthProvider) SignInWithPassword(ctx context.Context, email, password string) (*providers.AuthResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.AuthResult), args.Error(1)
}

func (m *MockAuthProvider) SignOut(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

func (m *MockAuthProvider) GetUser(ctx context.Context, accessToken string) (*entities.Identity, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Identity), args.Error(1)
}

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByID(ctx context.Context, accessToken, id string) (*entities.Profile, error) {
	args := m.Called(ctx, accessToken, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Profile), args.Error(1)
}

func testIdentity() *entities.Identity {
	return &entities.Identity{
		ID:           "user-1",
		Email:        "ana@example.com",
		AccessToken:  "token-1",
		RefreshToken: "refresh-1",
	}
}

func sessionResult() *providers.AuthResult {
	return &providers.AuthResult{Identity: testIdentity(), SessionIssued: true}
}

// Tests

func TestSessionService_SignIn(t *testing.T) {
	t.Run("establishes identity on success", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignInWithPassword", mock.Anything, "ana@example.com", "secret").Return(sessionResult(), nil)
		svc := services.NewSessionService(auth, nil, nil, nil, time.Second)

		result := svc.SignIn(context.Background(), "ana@example.com", "secret")

		assert.True(t, result.Success)
		assert.Empty(t, result.Error)
		ident := svc.Identity()
		assert.NotNil(t, ident)
		assert.Equal(t, "user-1", ident.ID)
		assert.False(t, svc.Loading())
	})

	t.Run("trims credential whitespace", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignInWithPassword", mock.Anything, "ana@example.com", "secret").Return(sessionResult(), nil)
		svc := services.NewSessionService(auth, nil, nil, nil, time.Second)

		result := svc.SignIn(context.Background(), "  ana@example.com ", " secret ")

		assert.True(t, result.Success)
		auth.AssertExpectations(t)
	})

	t.Run("maps invalid credentials to localized wording", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignInWithPassword", mock.Anything, "ana@example.com", "wrong").
			Return(nil, apperrors.Wrap(apperrors.ErrorTypeUnauthorized, "Invalid login credentials", providers.ErrInvalidCredentials))
		svc := services.NewSessionService(auth, nil, nil, nil, time.Second)

		result := svc.SignIn(context.Background(), "ana@example.com", "wrong")

		assert.False(t, result.Success)
		assert.Equal(t, "Correo electrónico o contraseña incorrectos", result.Error)
		assert.Nil(t, svc.Identity())
		assert.Equal(t, result.Error, svc.LastError())
	})

	t.Run("maps unconfirmed email to localized wording", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignInWithPassword", mock.Anything, "ana@example.com", "secret").
			Return(nil, apperrors.Wrap(apperrors.ErrorTypeUnauthorized, "Email not confirmed", providers.ErrEmailNotConfirmed))
		svc := services.NewSessionService(auth, nil, nil, nil, time.Second)

		result := svc.SignIn(context.Background(), "ana@example.com", "secret")

		assert.Equal(t, "Por favor, confirma tu correo electrónico antes de iniciar sesión", result.Error)
	})

	t.Run("maps deadline to timeout wording", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignInWithPassword", mock.Anything, "ana@example.com", "secret").
			Run(func(args mock.Arguments) {
				ctx := args.Get(0).(context.Context)
				<-ctx.Done()
			}).
			Return(nil, context.DeadlineExceeded)
		svc := services.NewSessionService(auth, nil, nil, nil, 30*time.Millisecond)

		result := svc.SignIn(context.Background(), "ana@example.com", "secret")

		assert.False(t, result.Success)
		assert.Equal(t, "La conexión está tardando demasiado. Por favor, intenta de nuevo.", result.Error)
		assert.Nil(t, svc.Identity())
	})
}

func TestSessionService_SignUp(t *testing.T) {
	t.Run("reports pending email confirmation without identity", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignUp", mock.Anything, mock.Anything).
			Return(&providers.AuthResult{SessionIssued: false}, nil)
		svc := services.NewSessionService(auth, nil, nil, nil, time.Second)

		result := svc.SignUp(context.Background(), "ana@example.com", "secret", "Ana Pérez", "")

		assert.True(t, result.Success)
		assert.True(t, result.EmailConfirmationRequired)
		assert.Nil(t, result.Identity)
		assert.Nil(t, svc.Identity())
	})

	t.Run("establishes identity when a session is issued", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignUp", mock.Anything, providers.SignUpParams{
			Email:    "ana@example.com",
			Password: "secret",
			FullName: "Ana Pérez",
			Phone:    "555-1234",
		}).Return(sessionResult(), nil)
		svc := services.NewSessionService(auth, nil, nil, nil, time.Second)

		result := svc.SignUp(context.Background(), "ana@example.com", "secret", "Ana Pérez", "555-1234")

		assert.True(t, result.Success)
		assert.False(t, result.EmailConfirmationRequired)
		assert.NotNil(t, svc.Identity())
		auth.AssertExpectations(t)
	})

	t.Run("maps duplicate registration to localized wording", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignUp", mock.Anything, mock.Anything).
			Return(nil, apperrors.Wrap(apperrors.ErrorTypeConflict, "User already registered", providers.ErrUserAlreadyRegistered))
		svc := services.NewSessionService(auth, nil, nil, nil, time.Second)

		result := svc.SignUp(context.Background(), "ana@example.com", "secret", "Ana Pérez", "")

		assert.Equal(t, "Este correo electrónico ya está registrado. Por favor, inicia sesión o usa otro correo.", result.Error)
	})

	t.Run("maps weak password to localized wording", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignUp", mock.Anything, mock.Anything).
			Return(nil, apperrors.Wrap(apperrors.ErrorTypeValidation, "Password should be at least 6 characters", providers.ErrWeakPassword))
		svc := services.NewSessionService(auth, nil, nil, nil, time.Second)

		result := svc.SignUp(context.Background(), "ana@example.com", "123", "Ana Pérez", "")

		assert.Equal(t, "La contraseña debe tener al menos 6 caracteres", result.Error)
	})

	t.Run("prefixes unrecognized failures with the sign-up wording", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignUp", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewExternalError("database unavailable", nil))
		svc := services.NewSessionService(auth, nil, nil, nil, time.Second)

		result := svc.SignUp(context.Background(), "ana@example.com", "secret", "Ana Pérez", "")

		assert.Equal(t, "Error al crear el usuario: database unavailable", result.Error)
	})
}

func TestSessionService_SignOut(t *testing.T) {
	t.Run("clears identity when the backend accepts", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignInWithPassword", mock.Anything, "ana@example.com", "secret").Return(sessionResult(), nil)
		auth.On("SignOut", mock.Anything, "token-1").Return(nil)
		svc := services.NewSessionService(auth, nil, cache.NewMemoryAdapter(), nil, time.Second)

		svc.SignIn(context.Background(), "ana@example.com", "secret")
		result := svc.SignOut(context.Background())

		assert.True(t, result.Success)
		assert.Nil(t, svc.Identity())
	})

	t.Run("keeps identity when the backend rejects", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignInWithPassword", mock.Anything, "ana@example.com", "secret").Return(sessionResult(), nil)
		auth.On("SignOut", mock.Anything, "token-1").
			Return(apperrors.NewExternalError("logout failed", nil))
		svc := services.NewSessionService(auth, nil, nil, nil, time.Second)

		svc.SignIn(context.Background(), "ana@example.com", "secret")
		result := svc.SignOut(context.Background())

		assert.False(t, result.Success)
		assert.Equal(t, "logout failed", result.Error)
		assert.NotNil(t, svc.Identity())
	})
}

func TestSessionService_Restore(t *testing.T) {
	t.Run("seeds the identity without a backend call", func(t *testing.T) {
		auth := new(MockAuthProvider)
		svc := services.NewSessionService(auth, nil, nil, nil, time.Second)

		svc.Restore(testIdentity())

		ident := svc.Identity()
		assert.NotNil(t, ident)
		assert.Equal(t, "user-1", ident.ID)
		auth.AssertNotCalled(t, "SignInWithPassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("restored tokens scope later calls", func(t *testing.T) {
		auth := new(MockAuthProvider)
		profiles := new(MockProfileRepository)
		profiles.On("GetByID", mock.Anything, "token-1", "user-1").
			Return(&entities.Profile{ID: "user-1", IsAdmin: true}, nil)
		svc := services.NewSessionService(auth, profiles, nil, nil, time.Second)

		svc.Restore(testIdentity())

		assert.True(t, svc.IsAdmin(context.Background()))
		profiles.AssertExpectations(t)
	})
}

func TestSessionService_CurrentUser(t *testing.T) {
	t.Run("returns nil without a session and skips the backend", func(t *testing.T) {
		auth := new(MockAuthProvider)
		svc := services.NewSessionService(auth, nil, nil, nil, time.Second)

		assert.Nil(t, svc.CurrentUser(context.Background()))
		auth.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	})

	t.Run("refreshes identity and preserves the refresh token", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignInWithPassword", mock.Anything, "ana@example.com", "secret").Return(sessionResult(), nil)
		auth.On("GetUser", mock.Anything, "token-1").Return(&entities.Identity{
			ID:          "user-1",
			Email:       "ana.new@example.com",
			AccessToken: "token-1",
		}, nil)
		svc := services.NewSessionService(auth, nil, nil, nil, time.Second)

		svc.SignIn(context.Background(), "ana@example.com", "secret")
		refreshed := svc.CurrentUser(context.Background())

		assert.NotNil(t, refreshed)
		assert.Equal(t, "ana.new@example.com", refreshed.Email)
		assert.Equal(t, "refresh-1", refreshed.RefreshToken)
	})

	t.Run("forces local sign-out on a locally expired token", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignOut", mock.Anything, "token-1").Return(nil)
		svc := services.NewSessionService(auth, nil, nil, nil, time.Second)

		stale := testIdentity()
		stale.ExpiresAt = time.Now().Add(-time.Minute)
		svc.Restore(stale)

		got := svc.CurrentUser(context.Background())

		assert.Nil(t, got)
		assert.Nil(t, svc.Identity())
		assert.Equal(t, "Sesión expirada. Por favor, inicia sesión nuevamente.", svc.LastError())
		auth.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	})

	t.Run("forces local sign-out when the refresh token is rejected", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignInWithPassword", mock.Anything, "ana@example.com", "secret").Return(sessionResult(), nil)
		auth.On("GetUser", mock.Anything, "token-1").
			Return(nil, apperrors.Wrap(apperrors.ErrorTypeSessionExpired, "Invalid Refresh Token", providers.ErrRefreshTokenInvalid))
		auth.On("SignOut", mock.Anything, "token-1").Return(nil)
		svc := services.NewSessionService(auth, nil, nil, nil, time.Second)

		svc.SignIn(context.Background(), "ana@example.com", "secret")
		got := svc.CurrentUser(context.Background())

		assert.Nil(t, got)
		assert.Nil(t, svc.Identity())
		assert.Equal(t, "Sesión expirada. Por favor, inicia sesión nuevamente.", svc.LastError())
	})

	t.Run("stays signed in on other failures", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignInWithPassword", mock.Anything, "ana@example.com", "secret").Return(sessionResult(), nil)
		auth.On("GetUser", mock.Anything, "token-1").
			Return(nil, apperrors.NewExternalError("backend flaked", nil))
		svc := services.NewSessionService(auth, nil, nil, nil, time.Second)

		svc.SignIn(context.Background(), "ana@example.com", "secret")
		got := svc.CurrentUser(context.Background())

		assert.Nil(t, got)
		assert.NotNil(t, svc.Identity())
	})
}

func TestSessionService_IsAdmin(t *testing.T) {
	t.Run("false without an identity and no profile query", func(t *testing.T) {
		profiles := new(MockProfileRepository)
		svc := services.NewSessionService(new(MockAuthProvider), profiles, nil, nil, time.Second)

		assert.False(t, svc.IsAdmin(context.Background()))
		profiles.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("false when the profile query fails", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignInWithPassword", mock.Anything, "ana@example.com", "secret").Return(sessionResult(), nil)
		profiles := new(MockProfileRepository)
		profiles.On("GetByID", mock.Anything, "token-1", "user-1").
			Return(nil, apperrors.NewExternalError("profiles unavailable", nil))
		svc := services.NewSessionService(auth, profiles, nil, nil, time.Second)

		svc.SignIn(context.Background(), "ana@example.com", "secret")
		assert.False(t, svc.IsAdmin(context.Background()))
	})

	t.Run("caches the flag after the first lookup", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignInWithPassword", mock.Anything, "ana@example.com", "secret").Return(sessionResult(), nil)
		profiles := new(MockProfileRepository)
		profiles.On("GetByID", mock.Anything, "token-1", "user-1").
			Return(&entities.Profile{ID: "user-1", IsAdmin: true}, nil).Once()
		svc := services.NewSessionService(auth, profiles, cache.NewMemoryAdapter(), nil, time.Second)

		svc.SignIn(context.Background(), "ana@example.com", "secret")
		assert.True(t, svc.IsAdmin(context.Background()))
		assert.True(t, svc.IsAdmin(context.Background()))
		profiles.AssertExpectations(t)
	})

	t.Run("sign-out drops the cached flag", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignInWithPassword", mock.Anything, "ana@example.com", "secret").Return(sessionResult(), nil)
		auth.On("SignOut", mock.Anything, "token-1").Return(nil)
		profiles := new(MockProfileRepository)
		profiles.On("GetByID", mock.Anything, "token-1", "user-1").
			Return(&entities.Profile{ID: "user-1", IsAdmin: true}, nil)
		svc := services.NewSessionService(auth, profiles, cache.NewMemoryAdapter(), nil, time.Second)

		svc.SignIn(context.Background(), "ana@example.com", "secret")
		assert.True(t, svc.IsAdmin(context.Background()))
		svc.SignOut(context.Background())

		assert.False(t, svc.IsAdmin(context.Background()))
		profiles.AssertNumberOfCalls(t, "GetByID", 1)
	})
}

func TestSessionService_Run(t *testing.T) {
	t.Run("applies a remote sign-out", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignInWithPassword", mock.Anything, "ana@example.com", "secret").Return(sessionResult(), nil)
		bus := events.NewMemoryEventBus()
		defer bus.Close()
		svc := services.NewSessionService(auth, nil, nil, bus, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = svc.Run(ctx) }()
		time.Sleep(20 * time.Millisecond) // let Run subscribe

		svc.SignIn(context.Background(), "ana@example.com", "secret")
		assert.NotNil(t, svc.Identity())

		err := bus.Publish(context.Background(), &entities.SessionEvent{
			Type:   entities.SessionEventSignedOut,
			Origin: "another-instance",
			At:     time.Now(),
		})
		assert.NoError(t, err)

		assert.Eventually(t, func() bool {
			return svc.Identity() == nil
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("ignores echoes of its own events", func(t *testing.T) {
		auth := new(MockAuthProvider)
		auth.On("SignInWithPassword", mock.Anything, "ana@example.com", "secret").Return(sessionResult(), nil)
		bus := events.NewMemoryEventBus()
		defer bus.Close()
		svc := services.NewSessionService(auth, nil, nil, bus, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = svc.Run(ctx) }()

		// The sign-in publishes a SIGNED_IN event tagged with this
		// instance's own id; Run must not reprocess it.
		svc.SignIn(context.Background(), "ana@example.com", "secret")

		time.Sleep(50 * time.Millisecond)
		assert.NotNil(t, svc.Identity())
	})
}
