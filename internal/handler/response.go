package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "accountsvc/internal/errors"
)

// APIResponse is the uniform success envelope.
type APIResponse struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

func respond(c echo.Context, status int, data interface{}, message string) error {
	if data == nil {
		data = struct{}{}
	}
	return c.JSON(status, APIResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// ErrorHandler renders every failure as an errors.ErrorResponse.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var resp apperrors.ErrorResponse
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg, ok := he.Message.(string)
			if !ok {
				msg = http.StatusText(he.Code)
			}
			resp = apperrors.ErrorResponse{
				StatusCode: he.Code,
				Message:    msg,
				Code:       apperrors.CodeForStatus(he.Code),
				Errors:     []string{},
			}
		} else {
			resp = apperrors.ToErrorResponse(err)
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request().Context(), "request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"error", err,
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(resp.StatusCode)
		} else {
			err = c.JSON(resp.StatusCode, resp)
		}
		if err != nil {
			logger.ErrorContext(c.Request().Context(), "write error response", "error", err)
		}
	}
}

// NotFound answers unmatched routes with plain text rather than the error envelope.
func NotFound(c echo.Context) error {
	return c.String(http.StatusNotFound, "404 page not found")
}

// CookieOptions control the session-channel cookies.
type CookieOptions struct {
	Secure        bool
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

func (o CookieOptions) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge / time.Second),
	}
}

func (o CookieOptions) setTokens(c echo.Context, accessToken, refreshToken string) {
	c.SetCookie(o.cookie(accessTokenCookie, accessToken, o.AccessMaxAge))
	c.SetCookie(o.cookie(refreshTokenCookie, refreshToken, o.RefreshMaxAge))
}

func (o CookieOptions) clearTokens(c echo.Context) {
	c.SetCookie(o.cookie(accessTokenCookie, "", -time.Second))
	c.SetCookie(o.cookie(refreshTokenCookie, "", -time.Second))
}
