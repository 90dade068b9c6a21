package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "accountsvc/internal/errors"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
		wantCode    string
	}{
		{name: "typed", err: apperrors.Conflict("email already in use"), wantStatus: http.StatusConflict, wantMessage: "email already in use", wantCode: "CONFLICT"},
		{name: "echo http error", err: echo.NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed"), wantStatus: http.StatusMethodNotAllowed, wantMessage: "Method Not Allowed", wantCode: "METHOD_NOT_ALLOWED"},
		{name: "echo not found", err: echo.ErrNotFound, wantStatus: http.StatusNotFound, wantMessage: "Not Found", wantCode: "NOT_FOUND"},
		{name: "body too large", err: echo.ErrStatusRequestEntityTooLarge, wantStatus: http.StatusRequestEntityTooLarge, wantMessage: "Request Entity Too Large", wantCode: "REQUEST_ENTITY_TOO_LARGE"},
		{name: "untyped hides cause", err: errors.New("dial tcp 10.0.0.1:3306"), wantStatus: http.StatusInternalServerError, wantMessage: "internal server error", wantCode: "INTERNAL_ERROR"},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			ErrorHandler(logger)(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantMessage, resp.Message)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.False(t, resp.Success)
			assert.NotContains(t, rec.Body.String(), "10.0.0.1")
		})
	}
}

func TestRespond_EmptyData(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	require.NoError(t, respond(c, http.StatusOK, nil, "User logged out successfully"))
	assert.JSONEq(t, `{"statusCode":200,"data":{},"message":"User logged out successfully","success":true}`, rec.Body.String())
}

func TestCookieOptions(t *testing.T) {
	opts := CookieOptions{Secure: true, AccessMaxAge: time.Hour, RefreshMaxAge: 24 * time.Hour}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	opts.setTokens(c, "a", "r")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, accessTokenCookie, cookies[0].Name)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.Equal(t, refreshTokenCookie, cookies[1].Name)
	assert.Equal(t, "r", cookies[1].Value)
	for _, ck := range cookies {
		assert.True(t, ck.HttpOnly)
		assert.True(t, ck.Secure)
		assert.Equal(t, "/", ck.Path)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	opts.clearTokens(c)
	for _, ck := range rec.Result().Cookies() {
		assert.Empty(t, ck.Value)
		assert.Less(t, ck.MaxAge, 0)
	}
}

func TestNotFound(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/missing", nil), rec)

	require.NoError(t, NotFound(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "404 page not found", rec.Body.String())
}
