package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/identity"
	"github.com/iliyamo/movie-booking/internal/logging"
	"github.com/iliyamo/movie-booking/internal/middleware"
	"github.com/iliyamo/movie-booking/internal/session"
)

// AuthHandler exposes the identity provider adapter.  Sessions, when set,
// lose the identity of a user that signs out.
type AuthHandler struct {
	Svc      *identity.Service
	Sessions *session.Manager
}

func NewAuthHandler(svc *identity.Service, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{Svc: svc, Sessions: sessions}
}

// ----- DTOs -----

type signUpReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}
type signInReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    any       `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func sessionResp(s identity.Session) authResp {
	return authResp{
		User:    s.Identity,
		Access:  tokenPart{Token: s.Access.Token, Expires: s.Access.Exp},
		Refresh: tokenPart{Token: s.Refresh.Raw, Expires: s.Refresh.Exp}, // raw back to client
	}
}

// authError writes the sign-in form error.  switch_to_sign_in tells the
// form to flip modes after a duplicate sign-up.
func authError(c echo.Context, err error) error {
	status := http.StatusBadRequest
	switch identity.Code(err) {
	case identity.CodeEmailInUse:
		status = http.StatusConflict
	case identity.CodeWrongPassword, identity.CodeInvalidToken:
		status = http.StatusUnauthorized
	case identity.CodeUserNotFound:
		status = http.StatusNotFound
	case identity.CodeInternal, "":
		status = http.StatusInternalServerError
		logging.FromContext(c.Request().Context()).WithError(err).Error("identity provider failure")
	}
	return c.JSON(status, echo.Map{
		"error":             identity.Describe(err),
		"code":              identity.Code(err),
		"switch_to_sign_in": identity.SwitchToSignIn(err),
	})
}

// SignUp creates the account and returns a token pair immediately.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Svc.SignUp(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		return authError(c, err)
	}
	return c.JSON(http.StatusCreated, sessionResp(s))
}

// SignIn verifies credentials and returns a new pair.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Svc.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return authError(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp(s))
}

// Refresh rotates the refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return authError(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp(s))
}

// SignOut revokes the given refresh token, or every token of the bearer
// when the body carries none.
func (h *AuthHandler) SignOut(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Svc.SignOut(ctx, middleware.IdentityFrom(c), req.RefreshToken)
	if err != nil {
		return authError(c, err)
	}
	if h.Sessions != nil {
		h.Sessions.ForgetIdentity(userID)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the identity of the bearer token.
func (h *AuthHandler) Me(c echo.Context) error {
	who := middleware.IdentityFrom(c)
	if who == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "sign in required"})
	}
	return c.JSON(http.StatusOK, who)
}
