package handler

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"accountsvc/internal/auth"
	apperrors "accountsvc/internal/errors"
)

const (
	// JWTContextKey is where the auth gate stores the parsed *jwt.Token.
	JWTContextKey    = "user"
	claimsContextKey = "claims"
)

var errUnauthorizedRequest = apperrors.Unauthorized("unauthorized request")

// RequireActiveToken runs after the JWT gate and rejects access tokens revoked by logout.
func RequireActiveToken(store auth.TokenStoreInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get(JWTContextKey).(*jwt.Token)
			if !ok {
				return errUnauthorizedRequest
			}
			claims, ok := token.Claims.(*auth.Claims)
			if !ok || claims.UserID == "" {
				return errUnauthorizedRequest
			}
			if store != nil && claims.ID != "" {
				revoked, _ := store.IsAccessTokenBlacklisted(c.Request().Context(), claims.ID)
				if revoked {
					return apperrors.Unauthorized("access token has been revoked")
				}
			}
			c.Set(claimsContextKey, claims)
			return next(c)
		}
	}
}

// JWTErrorHandler maps auth gate failures onto the typed Unauthorized error.
func JWTErrorHandler(c echo.Context, err error) error {
	return apperrors.Wrap(apperrors.KindUnauthorized, "invalid access token", err)
}

func currentClaims(c echo.Context) (*auth.Claims, error) {
	claims, ok := c.Get(claimsContextKey).(*auth.Claims)
	if !ok {
		return nil, errUnauthorizedRequest
	}
	return claims, nil
}
