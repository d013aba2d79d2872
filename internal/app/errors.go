package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"notespace/api/internal/access"
	"notespace/api/internal/auth"
	"notespace/api/internal/authpw"
	"notespace/api/internal/export"
	"notespace/api/internal/history"
	"notespace/api/internal/locations"
	"notespace/api/internal/oauth"
	"notespace/api/internal/rbac"
	"notespace/api/internal/storage"
	"notespace/api/internal/store"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// mapError translates service errors into a response status and body.
// Anything unrecognised is a 500 with an opaque message.
func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *authpw.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Message, nil
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Request body too large", nil
	}

	switch {
	case errors.Is(err, access.ErrInsufficientPermission):
		return http.StatusUnauthorized, "INSUFFICIENT_PERMISSION", "insufficient permission", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", nil
	case errors.Is(err, authpw.ErrUsernameTaken):
		return http.StatusConflict, "USERNAME_EXISTS", "Username already exists", nil
	case errors.Is(err, authpw.ErrEmailTaken):
		return http.StatusConflict, "EMAIL_EXISTS", "Email already exists", nil
	case errors.Is(err, authpw.ErrCodeNotFound):
		return http.StatusNotFound, "CODE_NOT_FOUND", err.Error(), nil
	case errors.Is(err, authpw.ErrCodeMismatch):
		return http.StatusBadRequest, "CODE_MISMATCH", err.Error(), nil
	case errors.Is(err, authpw.ErrCodeExpired):
		return http.StatusBadRequest, "CODE_EXPIRED", err.Error(), nil
	case errors.Is(err, authpw.ErrCodeUsed):
		return http.StatusBadRequest, "CODE_USED", err.Error(), nil
	case errors.Is(err, rbac.ErrInvalidRole), errors.Is(err, rbac.ErrInvalidPermission):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err.Error(), nil
	case errors.Is(err, storage.ErrEmptyFile), errors.Is(err, storage.ErrInvalidName):
		return http.StatusBadRequest, "INVALID_FILE", err.Error(), nil
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "attachment content not found", nil
	case errors.Is(err, history.ErrNoHistory), errors.Is(err, history.ErrUnknownRevision):
		return http.StatusNotFound, "NOT_FOUND", err.Error(), nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error(), nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export format is not available on this server", nil
	case errors.Is(err, locations.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error(), nil
	case errors.Is(err, oauth.ErrDisabled):
		return http.StatusServiceUnavailable, "OAUTH_UNAVAILABLE", "Google login is not configured", nil
	case errors.Is(err, oauth.ErrEmailNotVerified):
		return http.StatusUnauthorized, "EMAIL_NOT_VERIFIED", err.Error(), nil
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict, "DUPLICATE", "Already exists", nil
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
