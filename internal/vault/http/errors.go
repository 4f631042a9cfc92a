package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/opencustody/strongroom/internal/vault/policy"
	"github.com/opencustody/strongroom/internal/vault/service"
	"github.com/opencustody/strongroom/internal/vault/store"
	"github.com/opencustody/strongroom/pkg/cryptox"
	"github.com/opencustody/strongroom/pkg/httpx"
	"github.com/opencustody/strongroom/pkg/tokenx"
)

// writeServiceError maps the service error taxonomy onto HTTP statuses. Any
// error not in the taxonomy is logged and reported as an opaque 500.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials",
			"invalid email or password")
	case errors.Is(err, service.ErrInvalidCode):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_code",
			"invalid TOTP code")
	case errors.Is(err, tokenx.ErrExpired):
		httpx.WriteError(w, http.StatusUnauthorized, "expired_token",
			"token has expired")
	case errors.Is(err, tokenx.ErrWrongKind):
		httpx.WriteError(w, http.StatusUnauthorized, "wrong_token_kind",
			"token kind not valid for this operation")
	case errors.Is(err, tokenx.ErrBadSignature), errors.Is(err, tokenx.ErrMalformed):
		httpx.WriteError(w, http.StatusUnauthorized, "malformed_token",
			"token could not be verified")
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrInvalidFileName),
		errors.Is(err, service.ErrInvalidLinkTTL),
		errors.Is(err, service.ErrUnknownRole):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, service.ErrEmailTaken), errors.Is(err, store.ErrAlreadyExists):
		httpx.WriteError(w, http.StatusConflict, "conflict", "resource already exists")
	case errors.Is(err, service.ErrDeleteSelf),
		errors.Is(err, service.ErrDeleteAdmin),
		errors.Is(err, policy.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "not allowed")
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, cryptox.ErrCryptoFailure):
		// Deliberately no detail; unwrap failures are indistinguishable.
		log.Error("crypto failure", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "crypto_failure",
			"cryptographic operation failed")
	default:
		log.Error("unhandled service error", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"internal server error")
	}
}

// decodeJSON reads a JSON request body, reporting a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"request body must be valid JSON")
		return false
	}
	return true
}
