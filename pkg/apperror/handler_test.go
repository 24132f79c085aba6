package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHandler(t *testing.T, method string, err error) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/api/graphs/g1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(slog.Default())(err, c)

	if method == http.MethodHead {
		return rec, nil
	}
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	errObj, ok := resp["error"].(map[string]any)
	require.True(t, ok, "response must carry an error object")
	return rec, errObj
}

func TestHTTPErrorHandler_AppError(t *testing.T) {
	rec, errObj := runHandler(t, http.MethodGet, NewValidation("title", "title is required"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation_error", errObj["code"])
	assert.Equal(t, "title is required", errObj["message"])
	assert.Equal(t, map[string]any{"field": "title"}, errObj["details"])
}

func TestHTTPErrorHandler_WrappedAppError(t *testing.T) {
	err := fmt.Errorf("save graph: %w", ErrTransactionInterrupted.WithInternal(errors.New("40001")))
	rec, errObj := runHandler(t, http.MethodPut, err)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "transaction_interrupted", errObj["code"])
	assert.Equal(t, map[string]any{"retryable": true}, errObj["details"])
}

func TestHTTPErrorHandler_EchoError(t *testing.T) {
	tests := []struct {
		status   int
		wantCode string
	}{
		{http.StatusBadRequest, "bad_request"},
		{http.StatusUnauthorized, "unauthorized"},
		{http.StatusForbidden, "forbidden"},
		{http.StatusNotFound, "not_found"},
		{http.StatusConflict, "conflict"},
		{http.StatusUnprocessableEntity, "validation_error"},
		{http.StatusTooManyRequests, "rate_limited"},
		{http.StatusTeapot, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			rec, errObj := runHandler(t, http.MethodGet, echo.NewHTTPError(tt.status, "nope"))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.wantCode, errObj["code"])
			assert.Equal(t, "nope", errObj["message"])
		})
	}
}

func TestHTTPErrorHandler_StructuredEchoError(t *testing.T) {
	rec, errObj := runHandler(t, http.MethodGet, NewNotFound("graph", "g1").ToEchoError())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errObj["code"])
	assert.Equal(t, "graph 'g1' not found", errObj["message"])
}

func TestHTTPErrorHandler_UnknownError(t *testing.T) {
	rec, errObj := runHandler(t, http.MethodGet, errors.New("driver exploded"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", errObj["code"])
	assert.Equal(t, "An internal error occurred", errObj["message"])
}

func TestHTTPErrorHandler_Head(t *testing.T) {
	rec, _ := runHandler(t, http.MethodHead, ErrNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}
