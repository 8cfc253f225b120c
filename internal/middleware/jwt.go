package middleware // middleware holds the echo middleware shared by the router

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/model"
)

// TokenVerifier turns a bearer token into an identity.
type TokenVerifier func(token string) (*model.Identity, error)

// BearerIdentity reads an optional "Authorization: Bearer" header.  With
// no header the request continues anonymously; a token that does not
// verify is rejected with 401 so clients notice expired sessions.
func BearerIdentity(verify TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if auth == "" {
				return next(c)
			}
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			who, err := verify(strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
			if err != nil || who == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			setIdentity(c, who)
			return next(c)
		}
	}
}

// RequireIdentity rejects anonymous requests.  It must run after
// BearerIdentity.
func RequireIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IdentityFrom(c) == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "sign in required"})
			}
			return next(c)
		}
	}
}
