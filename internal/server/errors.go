package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	obsmetrics "github.com/smallbiznis/stripesync/internal/observability/metrics"
	webhookdomain "github.com/smallbiznis/stripesync/internal/webhook/domain"
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
	ErrNotFound        = errors.New("not_found")
	ErrPayloadTooLarge = errors.New("payload_too_large")
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
	return &ValidationErrors{
		Errors: []ValidationError{{
			Field:   "body",
			Code:    "invalid_request",
			Message: "request body could not be read",
		}},
	}
}

// mapError renders every failure that Stripe should redeliver as a 5xx.
func mapError(err error) (int, errorPayload) {
	var vErr *ValidationErrors
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	case errors.As(err, &vErr):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	case errors.Is(err, webhookdomain.ErrVerification):
		return http.StatusBadRequest, errorPayload{
			Type:    "signature_error",
			Message: err.Error(),
		}
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, errorPayload{
			Type:    "payload_too_large",
			Message: "payload too large",
		}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, webhookdomain.ErrEventInFlight):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "event is already being processed",
		}
	case errors.Is(err, webhookdomain.ErrStoreUnavailable):
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

// classifyErrorForLog returns the error_type and error_code request log fields.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case errors.Is(err, webhookdomain.ErrVerification):
		return "signature_error", obsmetrics.WebhookReasonVerification
	case errors.Is(err, webhookdomain.ErrLookup):
		return "lookup_error", obsmetrics.WebhookReasonLookup
	case errors.Is(err, webhookdomain.ErrInvalidPayload):
		return "payload_error", obsmetrics.WebhookReasonInvalidPayload
	case errors.Is(err, webhookdomain.ErrStoreUnavailable):
		return "store_error", obsmetrics.WebhookReasonStoreUnavailable
	case errors.Is(err, webhookdomain.ErrEventInFlight):
		return "conflict", obsmetrics.WebhookReasonInFlight
	case errors.Is(err, ErrPayloadTooLarge):
		return "request_error", "payload_too_large"
	default:
		return "internal_error", obsmetrics.ClassifyWebhookErrorReason(err)
	}
}
