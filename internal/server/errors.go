package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	chatdomain "github.com/smallbiznis/quoteshare/internal/chat/domain"
	jobdomain "github.com/smallbiznis/quoteshare/internal/job/domain"
	offerdomain "github.com/smallbiznis/quoteshare/internal/offer/domain"
	sharelinkdomain "github.com/smallbiznis/quoteshare/internal/sharelink/domain"
	"github.com/smallbiznis/quoteshare/pkg/db/pagination"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrOrgRequired        = errors.New("organization_required")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrEditInProgress     = errors.New("edit_in_progress")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrInternal           = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if target := validationTarget(err); target != nil {
		code := target.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrOrgRequired),
		errors.Is(err, jobdomain.ErrInvalidOrganization),
		errors.Is(err, offerdomain.ErrInvalidOrganization),
		errors.Is(err, sharelinkdomain.ErrInvalidOrganization),
		errors.Is(err, chatdomain.ErrInvalidOrganization):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "organization context required",
		}
	case errors.Is(err, sharelinkdomain.ErrInvalidToken):
		return http.StatusNotFound, errorPayload{
			Type:    "invalid_token",
			Message: "share link not found",
		}
	case errors.Is(err, sharelinkdomain.ErrLinkExpired):
		return http.StatusGone, errorPayload{
			Type:    "link_expired",
			Message: "share link is no longer available",
		}
	case errors.Is(err, sharelinkdomain.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, jobdomain.ErrDuplicateID):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "job id already exists",
		}
	case errors.Is(err, ErrEditInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "edit_in_progress",
			Message: "another edit through this link is in progress",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, jobdomain.ErrCascadeFailed),
		errors.Is(err, chatdomain.ErrCascadeFailed):
		return http.StatusInternalServerError, errorPayload{
			Type:    "cascade_failed",
			Message: "delete did not complete; nothing was removed",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger with the response type and the
// most specific error code.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationErrors = []error{
	ErrInvalidRequest,
	pagination.ErrInvalidPageToken,

	jobdomain.ErrInvalidID,
	jobdomain.ErrInvalidSubjectRef,
	jobdomain.ErrInvalidProductLine,

	offerdomain.ErrInvalidID,
	offerdomain.ErrInvalidInsurer,
	offerdomain.ErrInvalidCoverage,
	offerdomain.ErrInvalidSubjectRef,
	offerdomain.ErrSubjectRefMismatch,
	offerdomain.ErrInvalidCurrency,
	offerdomain.ErrInvalidAmount,
	offerdomain.ErrInvalidPeriod,
	offerdomain.ErrInvalidProductLine,

	sharelinkdomain.ErrInvalidProductLine,
	sharelinkdomain.ErrProductLineMismatch,
	sharelinkdomain.ErrInvalidExpiry,
	sharelinkdomain.ErrInvalidViewPrefs,

	chatdomain.ErrInvalidUserID,
	chatdomain.ErrInvalidSource,
	chatdomain.ErrInvalidRole,
}

// validationTarget returns the sentinel err matches, or nil.
func validationTarget(err error) error {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target
		}
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, jobdomain.ErrNotFound),
		errors.Is(err, offerdomain.ErrNotFound),
		errors.Is(err, offerdomain.ErrJobNotFound),
		errors.Is(err, sharelinkdomain.ErrJobNotFound),
		errors.Is(err, sharelinkdomain.ErrNotFound),
		errors.Is(err, chatdomain.ErrNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "subject_ref_mismatch":
		return "subject_ref"
	case "product_line_mismatch":
		return "product_line"
	}
	return strings.TrimPrefix(code, "invalid_")
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "subject_ref_mismatch":
		return "subject_ref differs from the job's subject"
	case "product_line_mismatch":
		return "product_line differs from the job's product line"
	default:
		return "invalid value"
	}
}
