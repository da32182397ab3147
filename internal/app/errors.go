package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/HariSeldon343/NexioSolution-sub003/internal/auth"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/authpw"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/domain"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/export"
)

// DomainError is an HTTP-shaped error raised by the transport layer itself,
// e.g. for malformed paths or bodies.
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

// mapError turns any service error into a response. Permission failures
// never say whether the resource exists.
func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}

	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", validationErr.Error(), validationDetails(validationErr)
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, domain.ErrPermission):
		return http.StatusForbidden, "FORBIDDEN", "Not authorized", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export format is not available on this server", nil
	default:
		return http.StatusInternalServerError, "SERVER_ERROR", "Operation failed, try again", nil
	}
}

func validationDetails(err *domain.ValidationError) any {
	if len(err.Details) > 0 {
		return err.Details
	}
	if err.Field != "" {
		return map[string]string{err.Field: err.Message}
	}
	return nil
}
