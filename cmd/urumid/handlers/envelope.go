// Package handlers is the admission surface of §4.10: one handler
// factory per route, taking the collaborator it needs as an argument,
// grounded on the teacher's cmd/knitd/handlers shape. The JSON envelope
// below is the contract's own (§6), not the teacher's
// {"message":{"reason":...}} shape — only the small-composable-option
// style of building a sanitized message is kept.
package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kshitizz36/Urumi-AI/pkg/domain"
)

// successEnvelope is the §6 response shape for every non-error response.
type successEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// apiError is the §6 error envelope's inner object.
type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type errorEnvelope struct {
	Success bool     `json:"success"`
	Error   apiError `json:"error"`
}

type errOption func(*apiError)

func withDetails(details interface{}) errOption {
	return func(e *apiError) {
		if details != nil {
			e.Details = details
		}
	}
}

// apiErr builds an echo.HTTPError carrying the §6 error envelope, so a
// single custom HTTPErrorHandler can render every error the same way.
func apiErr(status int, code, message string, opts ...errOption) *echo.HTTPError {
	e := apiError{Code: code, Message: message}
	for _, opt := range opts {
		opt(&e)
	}
	return echo.NewHTTPError(status, errorEnvelope{Success: false, Error: e})
}

// respondFromError maps the §7 error taxonomy to the §6 status/code
// table. The admission surface never surfaces an internal message
// verbatim — it emits a stable code and a sanitized message instead.
func respondFromError(err error) *echo.HTTPError {
	var validation *domain.ErrValidation
	var conflict *domain.ErrConflict
	switch {
	case errors.As(err, &validation):
		return apiErr(http.StatusBadRequest, "validation-error", validation.Error())
	case domain.AsNotFound(err):
		return apiErr(http.StatusNotFound, "not-found", "store not found")
	case errors.As(err, &conflict):
		return apiErr(http.StatusConflict, "conflict", conflict.Error())
	case domain.AsInvalidStateChange(err):
		return apiErr(http.StatusConflict, "conflict", "store is not in a state that allows this operation")
	case domain.AsRateLimited(err):
		return apiErr(http.StatusTooManyRequests, "rate-limited", "too many requests")
	case domain.AsGatewayError(err):
		return apiErr(http.StatusBadGateway, "gateway-error", "cluster operation failed after retries")
	case domain.AsDeadlineExceeded(err):
		return apiErr(http.StatusGatewayTimeout, "deadline-exceeded", "provisioning deadline exceeded")
	default:
		return apiErr(http.StatusInternalServerError, "internal-error", "internal error")
	}
}

// HTTPErrorHandler renders every error (apiErr or otherwise) as the §6
// error envelope, replacing echo's default plain-text/HTML rendering.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he, ok := err.(*echo.HTTPError)
	if !ok {
		he = respondFromError(err)
	}

	if env, ok := he.Message.(errorEnvelope); ok {
		c.JSON(he.Code, env)
		return
	}

	// echo's own framework errors (unmatched route, wrong method, bad
	// JSON body) arrive as a plain string Message; render them in the
	// same envelope rather than echo's default text/HTML body.
	msg, ok := he.Message.(string)
	if !ok {
		msg = http.StatusText(he.Code)
	}
	c.JSON(he.Code, errorEnvelope{
		Success: false,
		Error:   apiError{Code: "request-error", Message: msg},
	})
}

func ok(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, successEnvelope{Success: true, Data: data})
}
