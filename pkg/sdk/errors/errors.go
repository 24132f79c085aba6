// Package errors provides SDK-specific error types for the fullstori API client.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
)

// Error codes the server reports in the error envelope.
const (
	CodeNotFound               = "not_found"
	CodeValidation             = "validation_error"
	CodeBadRequest             = "bad_request"
	CodeConflict               = "conflict"
	CodeReferentialIntegrity   = "referential_integrity"
	CodeTransactionInterrupted = "transaction_interrupted"
	CodeUnauthorized           = "unauthorized"
)

// Error represents an error returned by the fullstori API.
type Error struct {
	StatusCode int            `json:"status_code"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%d] %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("[%d] %s", e.StatusCode, e.Message)
}

// Field returns the offending field of a validation error, if reported.
func (e *Error) Field() string {
	if f, ok := e.Details["field"].(string); ok {
		return f
	}
	return ""
}

// As returns the API error wrapped in err.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func hasStatus(err error, status int) bool {
	e, ok := As(err)
	return ok && e.StatusCode == status
}

func hasCode(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// IsNotFound returns true if the error is a 404 Not Found error.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

// IsUnauthorized returns true if the error is a 401 Unauthorized error.
func IsUnauthorized(err error) bool { return hasStatus(err, http.StatusUnauthorized) }

// IsBadRequest returns true if the error is a 400 Bad Request error.
func IsBadRequest(err error) bool { return hasStatus(err, http.StatusBadRequest) }

// IsValidation returns true if the server rejected the input.
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

// IsConflict returns true for unique-constraint conflicts.
func IsConflict(err error) bool { return hasCode(err, CodeConflict) }

// IsReferentialIntegrity returns true when a write referenced a missing row.
func IsReferentialIntegrity(err error) bool { return hasCode(err, CodeReferentialIntegrity) }

// IsTransactionInterrupted returns true when the server aborted a
// transaction and the same request may be retried.
func IsTransactionInterrupted(err error) bool { return hasCode(err, CodeTransactionInterrupted) }

// IsRetryable returns true when the server marked the error retryable.
func IsRetryable(err error) bool {
	e, ok := As(err)
	if !ok {
		return false
	}
	retry, _ := e.Details["retryable"].(bool)
	return retry || e.Code == CodeTransactionInterrupted
}

// ParseErrorResponse parses an HTTP error response into an Error.
func ParseErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("failed to read error response: %v", err),
		}
	}

	var apiErr struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &Error{
			StatusCode: resp.StatusCode,
			Code:       apiErr.Error.Code,
			Message:    apiErr.Error.Message,
			Details:    apiErr.Error.Details,
		}
	}

	return &Error{
		StatusCode: resp.StatusCode,
		Message:    string(body),
	}
}
