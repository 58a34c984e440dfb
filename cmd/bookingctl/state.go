package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/citasalud/bookingcore/internal/domain/entities"
)

// storedSession is the on-disk shape of a persisted session. Identity
// never serializes its tokens, so the file format is its own struct.
type storedSession struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

// sessionPath returns the session file location. Each invocation is a
// fresh process, so the identity issued by signin has to survive here
// for the other commands to see it.
func sessionPath() string {
	if path := os.Getenv("BOOKINGCTL_SESSION_FILE"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bookingctl-session.json"
	}
	return filepath.Join(home, ".bookingctl-session.json")
}

// loadSession rehydrates the identity persisted by a previous
// invocation, or nil when there is none
func loadSession(path string) *entities.Identity {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil || stored.AccessToken == "" {
		return nil
	}
	return &entities.Identity{
		ID:           stored.ID,
		Email:        stored.Email,
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		ExpiresAt:    stored.ExpiresAt,
	}
}

// saveSession persists the identity for the next invocation. A nil
// identity removes the file, so a signed-out state stays signed out.
func saveSession(path string, ident *entities.Identity) error {
	if ident == nil {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}

	data, err := json.Marshal(storedSession{
		ID:           ident.ID,
		Email:        ident.Email,
		AccessToken:  ident.AccessToken,
		RefreshToken: ident.RefreshToken,
		ExpiresAt:    ident.ExpiresAt,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
