package registry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tatenda/fullstori/internal/config"
	"github.com/Tatenda/fullstori/internal/server"
	"github.com/Tatenda/fullstori/internal/testutil"
	"github.com/Tatenda/fullstori/pkg/apperror"
	"github.com/Tatenda/fullstori/pkg/auth"
)

func newRegistryEcho(t *testing.T) *echo.Echo {
	t.Helper()
	db := testutil.SetupTestDB(t).DB
	log := testutil.Logger()

	e := echo.New()
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(log)
	e.Validator = server.NewValidator()

	h := NewHandler(NewService(NewStore(db), log))
	RegisterRoutes(e, h, auth.NewMiddleware(&config.Config{}, log))
	return e
}

func request(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_RoleLifecycle(t *testing.T) {
	e := newRegistryEcho(t)

	rec := request(e, http.MethodPost, "/api/roles", `{"name":"Detective","category":"law_enforcement"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = request(e, http.MethodPost, "/api/roles", `{"name":"Detective","category":"suspect"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var role Role
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &role))
	assert.Equal(t, CategoryLawEnforcement, role.Category)

	rec = request(e, http.MethodGet, "/api/roles?grouped=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var grouped map[string][]Role
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grouped))
	assert.Len(t, grouped["law_enforcement"], 1)
	assert.Contains(t, grouped, "victim", "every category is listed")
	assert.Empty(t, grouped["victim"])
}

func TestHandler_Validation(t *testing.T) {
	e := newRegistryEcho(t)

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"missing name", "/api/roles", `{"category":"civilian"}`, http.StatusUnprocessableEntity},
		{"unknown category", "/api/roles", `{"name":"X","category":"alien"}`, http.StatusUnprocessableEntity},
		{"malformed json", "/api/relationships", `{"name":`, http.StatusBadRequest},
		{"blank event type", "/api/event-types", `{"name":"   "}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := request(e, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_RelationshipsGrouped(t *testing.T) {
	e := newRegistryEcho(t)

	for _, body := range []string{
		`{"name":"Sibling Of","category":"family"}`,
		`{"name":"Paid","category":"financial"}`,
		`{"name":"Knows"}`,
	} {
		rec := request(e, http.MethodPost, "/api/relationships", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := request(e, http.MethodGet, "/api/relationships?grouped=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var grouped map[string][]RelationshipType
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grouped))
	assert.Len(t, grouped["family"], 1)
	assert.Len(t, grouped["financial"], 1)
	assert.Len(t, grouped["other"], 1)

	rec = request(e, http.MethodGet, "/api/relationships", "")
	var flat []RelationshipType
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flat))
	assert.Len(t, flat, 3)
	assert.Equal(t, "Knows", flat[0].Name)
}
