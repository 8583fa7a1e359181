package ailink

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tutorlink/tutorlink/internal/ailink/driver"
)

// Provider failure codes.
const (
	CodeTimeout     = "AILINK_PROVIDER_TIMEOUT"
	CodeAuth        = "AILINK_PROVIDER_AUTH"
	CodeRateLimit   = "AILINK_PROVIDER_RATE_LIMIT"
	CodeUnavailable = "AILINK_PROVIDER_UNAVAILABLE"
	CodeBadRequest  = "AILINK_PROVIDER_BAD_REQUEST"
	CodeError       = "AILINK_PROVIDER_ERROR"
	CodeNotReady    = "AILINK_NOT_CONFIGURED"
)

// ProviderFailure is a classified provider error.
type ProviderFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *ProviderFailure) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

func (e *ProviderFailure) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrorCode returns the classification code.
func (e *ProviderFailure) ErrorCode() string {
	if e == nil {
		return ""
	}
	return e.Code
}

// ClassifyProviderError maps a driver error onto a ProviderFailure.
func ClassifyProviderError(err error) *ProviderFailure {
	if err == nil {
		return nil
	}
	var already *ProviderFailure
	if errors.As(err, &already) {
		return already
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderFailure{Code: CodeTimeout, Message: "provider request timed out", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &ProviderFailure{Code: CodeError, Message: "provider request canceled", Err: err}
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		status := perr.StatusCode
		details := strings.TrimSpace(perr.Message)
		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return &ProviderFailure{Code: CodeAuth, Message: "provider authentication failed", Details: details, Err: err}
		case status == http.StatusTooManyRequests:
			return &ProviderFailure{Code: CodeRateLimit, Message: "provider rate limited", Details: details, Err: err}
		case status >= 500 && status <= 599:
			return &ProviderFailure{Code: CodeUnavailable, Message: "provider unavailable", Details: details, Err: err}
		case status >= 400 && status <= 499:
			return &ProviderFailure{Code: CodeBadRequest, Message: "provider rejected request", Details: details, Err: err}
		default:
			return &ProviderFailure{Code: CodeError, Message: "provider request failed", Details: details, Err: err}
		}
	}

	return &ProviderFailure{Code: CodeError, Message: "provider request failed", Details: err.Error(), Err: err}
}
