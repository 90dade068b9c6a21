package router

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"accountsvc/internal/auth"
	"accountsvc/internal/config"
	"accountsvc/internal/handler"
)

// Handlers groups everything the routing table dispatches to.
type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Health *handler.HealthHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger *slog.Logger,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	h Handlers,
) {
	e.HTTPErrorHandler = handler.ErrorHandler(logger)
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(requestLoggerConfig(logger)))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowCredentials: cfg.CORSOrigin != "*",
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	if cfg.StaticDir != "" {
		e.Use(middleware.StaticWithConfig(middleware.StaticConfig{Root: cfg.StaticDir}))
	}

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api/v1")
	api.GET("/healthcheck", h.Health.Healthcheck)

	users := api.Group("/users")
	users.POST("/register", h.Auth.Register)
	users.POST("/login", h.Auth.Login)
	users.POST("/refresh-token", h.Auth.RefreshToken)

	// Secured routes (require a live access token). The gate is attached per
	// route so unmatched paths under /users stay plain 404s.
	gate := []echo.MiddlewareFunc{
		echojwt.WithConfig(echojwt.Config{
			SigningKey:  jwtService.AccessSecret(),
			ContextKey:  handler.JWTContextKey,
			TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ,cookie:accessToken",
			NewClaimsFunc: func(c echo.Context) jwt.Claims {
				return new(auth.Claims)
			},
			ErrorHandler: handler.JWTErrorHandler,
		}),
		handler.RequireActiveToken(tokenStore),
	}
	users.POST("/logout", h.Auth.Logout, gate...)
	users.POST("/change-password", h.Auth.ChangePassword, gate...)
	users.GET("/current-user", h.User.GetCurrentUser, gate...)
	users.PATCH("/update-account", h.User.UpdateAccount, gate...)
	users.PATCH("/avatar", h.User.UpdateAvatar, gate...)
	users.PATCH("/cover-image", h.User.UpdateCoverImage, gate...)

	e.RouteNotFound("/*", handler.NotFound)
}

func requestLoggerConfig(logger *slog.Logger) middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
