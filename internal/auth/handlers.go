package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/maths-quiz/pkg/http/errors"
)

const maxLoginBody = 4 << 10

// HTTPHandlers provides the admin login endpoint.
type HTTPHandlers struct {
	authSvc *Service
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for auth endpoints.
func NewHTTPHandlers(authSvc *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		authSvc: authSvc,
		logger:  logger,
	}
}

// Login handles POST /api/admin/login
func (h *HTTPHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.Password == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "password is required", "password")
		return
	}

	tokens, err := h.authSvc.Login(r.Context(), req)
	switch {
	case err == nil:
		httperrors.RespondJSON(w, http.StatusOK, tokens)
	case errors.Is(err, ErrAuthDisabled):
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "Admin login is not configured")
	case errors.Is(err, ErrTooManyAttempts):
		httperrors.RespondTooManyRequests(w, httperrors.ErrCodeTooManyAttempts,
			"Too many failed attempts, try again later", int(h.authSvc.lockout.Seconds()))
	case errors.Is(err, ErrInvalidCredentials):
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeLoginFailed, "Invalid password")
	default:
		h.logger.Error().Err(err).Msg("admin login failed")
		httperrors.RespondInternalError(w, "Login failed")
	}
}
