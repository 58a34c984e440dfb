package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/citasalud/bookingcore/internal/domain/entities"
	"github.com/citasalud/bookingcore/internal/domain/providers"
	"github.com/citasalud/bookingcore/internal/domain/repositories"
	"github.com/citasalud/bookingcore/internal/infrastructure/observability"
	apperrors "github.com/citasalud/bookingcore/pkg/errors"
)

const adminCacheTTLSeconds = 300

// SessionService owns the current authenticated identity. All state lives
// on the instance, injected where it is needed; there are no package-level
// singletons. Operations resolve to envelope results and never panic past
// their own frame.
type SessionService struct {
	auth     providers.AuthProvider
	profiles repositories.ProfileRepository
	cache    providers.CacheProvider
	bus      providers.SessionEventBus
	timeout  time.Duration
	metrics  *observability.Metrics

	// instanceID tags published events so Run can skip echoes of this
	// instance's own transitions.
	instanceID string

	mu       sync.RWMutex
	identity *entities.Identity
	loading  bool
	lastErr  string
}

// NewSessionService creates a new session service
func NewSessionService(
	auth providers.AuthProvider,
	profiles repositories.ProfileRepository,
	cache providers.CacheProvider,
	bus providers.SessionEventBus,
	timeout time.Duration,
) *SessionService {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SessionService{
		auth:       auth,
		profiles:   profiles,
		cache:      cache,
		bus:        bus,
		timeout:    timeout,
		instanceID: uuid.New().String(),
	}
}

// SetMetrics attaches cache hit/miss metrics recording
func (s *SessionService) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// SignUp registers a new user. A successful registration without a session
// means the backend wants the email confirmed first; no identity is
// established in that case.
func (s *SessionService) SignUp(ctx context.Context, email, password, fullName, phone string) SignUpResult {
	s.begin()
	logger := observability.LoggerFromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.auth.SignUp(ctx, providers.SignUpParams{
		Email:    strings.TrimSpace(email),
		Password: strings.TrimSpace(password),
		FullName: strings.TrimSpace(fullName),
		Phone:    strings.TrimSpace(phone),
	})
	if err != nil {
		msg := signUpMessage(err)
		logger.Error().Err(err).Str("email", email).Msg("sign-up failed")
		s.finish(msg)
		return SignUpResult{Error: msg}
	}

	if !result.SessionIssued {
		logger.Info().Str("email", email).Msg("sign-up pending email confirmation")
		s.finish("")
		return SignUpResult{Success: true, EmailConfirmationRequired: true}
	}

	s.setIdentity(result.Identity)
	s.publish(ctx, entities.SessionEventSignedIn, result.Identity)
	logger.Info().Str("user_id", result.Identity.ID).Msg("sign-up established session")
	s.finish("")
	return SignUpResult{Success: true, Identity: result.Identity}
}

// SignIn exchanges credentials for a session and establishes the identity
func (s *SessionService) SignIn(ctx context.Context, email, password string) Result {
	s.begin()
	logger := observability.LoggerFromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.auth.SignInWithPassword(ctx, strings.TrimSpace(email), strings.TrimSpace(password))
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.ErrorTypeSessionExpired {
			// Stale local tokens; drop them before surfacing the error
			s.forceLocalSignOut(ctx)
		}
		msg := signInMessage(err)
		logger.Error().Err(err).Str("email", email).Msg("sign-in failed")
		s.finish(msg)
		return Result{Error: msg}
	}

	s.setIdentity(result.Identity)
	s.publish(ctx, entities.SessionEventSignedIn, result.Identity)
	logger.Info().Str("user_id", result.Identity.ID).Msg("sign-in succeeded")
	s.finish("")
	return Result{Success: true}
}

// SignOut terminates the backend session. The local identity is cleared
// only when the backend accepted the termination.
func (s *SessionService) SignOut(ctx context.Context) Result {
	s.begin()
	logger := observability.LoggerFromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.auth.SignOut(ctx, s.accessToken()); err != nil {
		msg := userMessage(err)
		logger.Error().Err(err).Msg("sign-out failed")
		s.finish(msg)
		return Result{Error: msg}
	}

	s.clearIdentity(ctx)
	s.publish(ctx, entities.SessionEventSignedOut, nil)
	s.finish("")
	return Result{Success: true}
}

// Restore seeds the identity from tokens issued in an earlier session,
// without a backend round-trip. CurrentUser validates the restored
// tokens on first use.
func (s *SessionService) Restore(ident *entities.Identity) {
	s.setIdentity(ident)
}

// CurrentUser refreshes the identity from the backend, best effort: a
// locally expired token or a rejected refresh token forces a local
// sign-out, every other failure resolves to an absent identity without
// surfacing an error.
func (s *SessionService) CurrentUser(ctx context.Context) *entities.Identity {
	logger := observability.LoggerFromContext(ctx)

	ident := s.Identity()
	if ident == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if ident.Expired(time.Now()) {
		logger.Warn().Time("expired_at", ident.ExpiresAt).Msg("access token past expiry, forcing local sign-out")
		s.forceLocalSignOut(ctx)
		s.setLastError(msgSessionExpired)
		return nil
	}

	refreshed, err := s.auth.GetUser(ctx, ident.AccessToken)
	if err != nil {
		if errors.Is(err, providers.ErrRefreshTokenInvalid) || apperrors.TypeOf(err) == apperrors.ErrorTypeSessionExpired {
			logger.Warn().Err(err).Msg("session expired, forcing local sign-out")
			s.forceLocalSignOut(ctx)
			s.setLastError(msgSessionExpired)
			return nil
		}
		logger.Debug().Err(err).Msg("current-user check failed")
		return nil
	}

	s.mu.Lock()
	if s.identity != nil {
		refreshed.RefreshToken = s.identity.RefreshToken
	}
	s.identity = refreshed
	s.mu.Unlock()

	copied := *refreshed
	return &copied
}

// IsAdmin reports whether the current identity has the administrative
// flag. Absent identity or any query failure resolves to false.
func (s *SessionService) IsAdmin(ctx context.Context) bool {
	ident := s.Identity()
	if ident == nil {
		return false
	}

	logger := observability.LoggerFromContext(ctx)
	cacheKey := "admin:" + ident.ID

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			observability.RecordCacheHit(ctx, s.metrics, cacheKey)
			return string(cached) == "1"
		}
		observability.RecordCacheMiss(ctx, s.metrics, cacheKey)
	}

	profile, err := s.profiles.GetByID(ctx, ident.AccessToken, ident.ID)
	if err != nil {
		// Fails closed
		logger.Warn().Err(err).Str("user_id", ident.ID).Msg("admin check failed")
		return false
	}

	if s.cache != nil {
		value := []byte("0")
		if profile.IsAdmin {
			value = []byte("1")
		}
		if err := s.cache.Set(ctx, cacheKey, value, adminCacheTTLSeconds); err != nil {
			logger.Debug().Err(err).Msg("admin flag cache write failed")
		}
	}
	return profile.IsAdmin
}

// Run applies auth-state-change events from the bus to local state for
// the life of ctx. Token refresh or sign-out elsewhere lands here; local
// identity is updated to match whatever the event reports.
func (s *SessionService) Run(ctx context.Context) error {
	if s.bus == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	events, err := s.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	logger := observability.LoggerFromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Origin == s.instanceID {
				continue
			}
			logger.Info().Str("event", string(event.Type)).Msg("applying remote session event")
			s.apply(ctx, event)
		}
	}
}

// Identity returns a copy of the current identity, or nil
func (s *SessionService) Identity() *entities.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	copied := *s.identity
	return &copied
}

// Loading reports whether an operation is in flight. The flag is shared
// across operations, last writer wins.
func (s *SessionService) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError returns the message of the most recent failure, empty after
// a successful operation
func (s *SessionService) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *SessionService) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *SessionService) finish(errMsg string) {
	s.mu.Lock()
	s.loading = false
	s.lastErr = errMsg
	s.mu.Unlock()
}

func (s *SessionService) setLastError(errMsg string) {
	s.mu.Lock()
	s.lastErr = errMsg
	s.mu.Unlock()
}

func (s *SessionService) setIdentity(ident *entities.Identity) {
	s.mu.Lock()
	s.identity = ident
	s.mu.Unlock()
}

func (s *SessionService) accessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return ""
	}
	return s.identity.AccessToken
}

func (s *SessionService) clearIdentity(ctx context.Context) {
	s.mu.Lock()
	ident := s.identity
	s.identity = nil
	s.mu.Unlock()

	if ident != nil && s.cache != nil {
		_ = s.cache.Delete(ctx, "admin:"+ident.ID)
	}
}

// forceLocalSignOut drops local session state and tells the backend,
// best effort, to revoke the tokens
func (s *SessionService) forceLocalSignOut(ctx context.Context) {
	token := s.accessToken()
	if token != "" {
		_ = s.auth.SignOut(ctx, token)
	}
	s.clearIdentity(ctx)
	s.publish(ctx, entities.SessionEventSignedOut, nil)
}

func (s *SessionService) apply(ctx context.Context, event *entities.SessionEvent) {
	switch event.Type {
	case entities.SessionEventSignedOut:
		s.clearIdentity(ctx)
	default:
		s.setIdentity(event.Identity)
	}
}

func (s *SessionService) publish(ctx context.Context, eventType entities.SessionEventType, ident *entities.Identity) {
	if s.bus == nil {
		return
	}
	event := &entities.SessionEvent{
		Type:     eventType,
		Identity: ident,
		Origin:   s.instanceID,
		At:       time.Now(),
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("event", string(eventType)).Msg("session event publish failed")
	}
}

// signUpMessage translates a typed sign-up failure to its user-facing
// wording
func signUpMessage(err error) string {
	switch {
	case apperrors.TypeOf(err) == apperrors.ErrorTypeTimeout || errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	case errors.Is(err, providers.ErrUserAlreadyRegistered):
		return msgAlreadyRegistered
	case errors.Is(err, providers.ErrWeakPassword):
		return msgWeakPassword
	case errors.Is(err, providers.ErrInvalidEmail):
		return msgInvalidEmail
	case errors.Is(err, providers.ErrInvalidAuthResponse):
		return msgSignUpNoUser
	default:
		return msgSignUpPrefix + backendMessage(err)
	}
}

// signInMessage translates a typed sign-in failure to its user-facing
// wording
func signInMessage(err error) string {
	switch {
	case apperrors.TypeOf(err) == apperrors.ErrorTypeTimeout || errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	case errors.Is(err, providers.ErrInvalidCredentials):
		return msgInvalidLogin
	case errors.Is(err, providers.ErrEmailNotConfirmed):
		return msgEmailNotConfirmed
	case errors.Is(err, providers.ErrTooManyRequests):
		return msgTooManyRequests
	case errors.Is(err, providers.ErrRefreshTokenInvalid):
		return msgSessionExpired
	case errors.Is(err, providers.ErrInvalidAuthResponse):
		return msgSignInNoUser
	default:
		if msg := backendMessage(err); msg != "" {
			return msg
		}
		return msgSignInFallback
	}
}

// userMessage surfaces the backend wording when there is no specific
// translation
func userMessage(err error) string {
	if apperrors.TypeOf(err) == apperrors.ErrorTypeTimeout || errors.Is(err, context.DeadlineExceeded) {
		return msgTimeout
	}
	return backendMessage(err)
}

func backendMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}
