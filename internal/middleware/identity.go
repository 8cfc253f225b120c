package middleware

// identity.go keeps the signed-in visitor on the echo context.  Handlers
// read it with IdentityFrom and pass it on explicitly.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/model"
)

const identityKey = "identity"

func setIdentity(c echo.Context, who *model.Identity) {
	c.Set(identityKey, who)
	c.Set("user_id", who.UserID)
}

// IdentityFrom returns the visitor identity or nil when signed out.
func IdentityFrom(c echo.Context) *model.Identity {
	who, _ := c.Get(identityKey).(*model.Identity)
	return who
}

// userID is the rate limit subject: the user id or "anon".
func userID(c echo.Context) string {
	if who := IdentityFrom(c); who != nil && who.UserID != "" {
		return who.UserID
	}
	return "anon"
}
