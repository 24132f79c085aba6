package errors

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestParseErrorResponse_Envelope(t *testing.T) {
	err := ParseErrorResponse(response(http.StatusUnprocessableEntity,
		`{"error":{"code":"validation_error","message":"title is required","details":{"field":"title"}}}`))

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, e.StatusCode)
	assert.Equal(t, "validation_error", e.Code)
	assert.Equal(t, "title", e.Field())
	assert.Equal(t, "[422] validation_error: title is required", e.Error())
	assert.True(t, IsValidation(err))
	assert.False(t, IsNotFound(err))
}

func TestParseErrorResponse_PlainText(t *testing.T) {
	err := ParseErrorResponse(response(http.StatusBadGateway, "upstream down"))

	e, ok := As(err)
	require.True(t, ok)
	assert.Empty(t, e.Code)
	assert.Equal(t, "[502] upstream down", e.Error())
}

func TestPredicates(t *testing.T) {
	interrupted := &Error{StatusCode: 503, Code: CodeTransactionInterrupted, Details: map[string]any{"retryable": true}}
	wrapped := fmt.Errorf("save graph: %w", interrupted)

	assert.True(t, IsTransactionInterrupted(wrapped))
	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(&Error{StatusCode: 409, Code: CodeConflict}))
	assert.True(t, IsConflict(&Error{StatusCode: 409, Code: CodeConflict}))
	assert.True(t, IsReferentialIntegrity(&Error{StatusCode: 409, Code: CodeReferentialIntegrity}))
	assert.True(t, IsNotFound(&Error{StatusCode: 404, Code: CodeNotFound}))
	assert.True(t, IsUnauthorized(&Error{StatusCode: 401}))
	assert.True(t, IsBadRequest(&Error{StatusCode: 400}))
	assert.False(t, IsNotFound(fmt.Errorf("plain")))
	assert.False(t, IsRetryable(nil))
}
