package supabase

import (
	"context"
	"net/http"
	"net/url"
)

// User is the backend's representation of an authenticated user
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session carries the tokens issued by the backend
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse is the outcome of sign-up or password sign-in. Session is
// nil when the backend created the user but withheld tokens pending email
// confirmation.
type AuthResponse struct {
	User    *User
	Session *Session
}

type signUpRequest struct {
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Data     map[string]string `json:"data,omitempty"`
}

type passwordGrantRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse is the session-bearing response shape. Sign-up responses
// degenerate to a bare user object when confirmation is pending, so the
// user fields appear both nested and at the top level.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`

	ID    string `json:"id"`
	Email string `json:"email"`
}

func (r *tokenResponse) toAuthResponse() *AuthResponse {
	out := &AuthResponse{User: r.User}
	if out.User == nil && r.ID != "" {
		out.User = &User{ID: r.ID, Email: r.Email}
	}
	if r.AccessToken != "" {
		out.Session = &Session{
			AccessToken:  r.AccessToken,
			TokenType:    r.TokenType,
			ExpiresIn:    r.ExpiresIn,
			RefreshToken: r.RefreshToken,
		}
	}
	return out
}

// SignUp registers a new user. The metadata map is attached to the user
// record and copied into the profile row by the backend.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*AuthResponse, error) {
	var resp tokenResponse
	err := c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/auth/v1/signup",
		body:      signUpRequest{Email: email, Password: password, Data: metadata},
		operation: "auth.signUp",
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.toAuthResponse(), nil
}

// SignInWithPassword exchanges credentials for a session
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*AuthResponse, error) {
	q := url.Values{}
	q.Set("grant_type", "password")

	var resp tokenResponse
	err := c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/auth/v1/token",
		query:     q,
		body:      passwordGrantRequest{Email: email, Password: password},
		operation: "auth.signInWithPassword",
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.toAuthResponse(), nil
}

// SignOut revokes the session behind the given access token
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/auth/v1/logout",
		token:     accessToken,
		operation: "auth.signOut",
	}, nil)
}

// GetUser fetches the user behind the given access token
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	err := c.do(ctx, call{
		method:    http.MethodGet,
		path:      "/auth/v1/user",
		token:     accessToken,
		operation: "auth.getUser",
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
