package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/citasalud/bookingcore/internal/domain/providers"
	apperrors "github.com/citasalud/bookingcore/pkg/errors"
)

// errorPayload covers the shapes the backend uses for failures:
// {"message":...}, {"msg":...} and {"error":...,"error_description":...}.
type errorPayload struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	ErrorField       string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Code             string `json:"error_code"`
}

func (p errorPayload) text() string {
	for _, s := range []string{p.Message, p.Msg, p.ErrorDescription, p.ErrorField} {
		if s != "" {
			return s
		}
	}
	return ""
}

func decodeAPIError(resp *http.Response) error {
	var payload errorPayload
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = json.Unmarshal(body, &payload)

	msg := payload.text()
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = resp.Status
	}
	return mapAPIError(resp.StatusCode, msg)
}

// mapAPIError is the single place backend failure wording is inspected.
// Everything downstream branches on the typed variant, not the text.
func mapAPIError(status int, msg string) *apperrors.AppError {
	switch {
	case strings.Contains(msg, "User already registered"):
		return apperrors.Wrap(apperrors.ErrorTypeConflict, msg, providers.ErrUserAlreadyRegistered)
	case strings.Contains(msg, "Invalid login credentials"):
		return apperrors.Wrap(apperrors.ErrorTypeUnauthorized, msg, providers.ErrInvalidCredentials)
	case strings.Contains(msg, "Email not confirmed"):
		return apperrors.Wrap(apperrors.ErrorTypeUnauthorized, msg, providers.ErrEmailNotConfirmed)
	case strings.Contains(msg, "Too many requests") || status == http.StatusTooManyRequests:
		return apperrors.Wrap(apperrors.ErrorTypeRateLimited, msg, providers.ErrTooManyRequests)
	case strings.Contains(msg, "Invalid Refresh Token") || strings.Contains(msg, "Refresh Token Not Found"):
		return apperrors.Wrap(apperrors.ErrorTypeSessionExpired, msg, providers.ErrRefreshTokenInvalid)
	case strings.Contains(strings.ToLower(msg), "password"):
		return apperrors.Wrap(apperrors.ErrorTypeValidation, msg, providers.ErrWeakPassword)
	case strings.Contains(strings.ToLower(msg), "invalid email") || strings.Contains(msg, "invalid format"):
		return apperrors.Wrap(apperrors.ErrorTypeValidation, msg, providers.ErrInvalidEmail)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.NewUnauthorizedError(msg)
	case status == http.StatusNotFound || status == http.StatusNotAcceptable:
		// 406 is the single-object representation of "no rows"
		return apperrors.NewNotFoundError(msg)
	default:
		return apperrors.NewExternalError(msg, nil)
	}
}

func mapTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("backend call exceeded deadline", err)
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.NewInternalError("backend call cancelled", err)
	}
	return apperrors.NewExternalError("backend unreachable", err)
}
