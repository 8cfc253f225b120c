// Package identity is the identity provider adapter: accounts, sign-in and
// the bearer tokens the booking flow reads the current visitor from.
package identity

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/utils"
)

// UserStore is implemented by repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, email, displayName, password string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore is implemented by repository.TokenRepo.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// Config holds token and hashing settings.
type Config struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// Session is the result of a successful sign-up or sign-in.
type Session struct {
	Identity model.Identity
	Access   utils.AccessToken
	Refresh  utils.RefreshToken
}

type Service struct {
	cfg      Config
	users    UserStore
	tokens   TokenStore
	validate *validator.Validate
}

func NewService(cfg Config, users UserStore, tokens TokenStore) *Service {
	return &Service{cfg: cfg, users: users, tokens: tokens, validate: validator.New()}
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (Session, error) {
	email = normalizeEmail(email)
	if err := s.checkEmail(email); err != nil {
		return Session{}, err
	}
	if len(password) < utils.MinPasswordLength {
		return Session{}, newError(CodeWeakPassword, nil)
	}

	id, err := s.users.Create(ctx, email, displayName, password, s.cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return Session{}, newError(CodeEmailInUse, err)
	}
	if err != nil {
		return Session{}, newError(CodeInternal, err)
	}
	who := model.Identity{UserID: strconv.FormatUint(id, 10), DisplayName: strings.TrimSpace(displayName), Email: email}
	return s.issue(ctx, id, who)
}

// SignIn verifies the credentials and issues a new token pair.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if err := s.checkEmail(email); err != nil {
		return Session{}, err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, newError(CodeUserNotFound, err)
	}
	if err != nil {
		return Session{}, newError(CodeInternal, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, newError(CodeWrongPassword, nil)
	}
	return s.issue(ctx, u.ID, identityOf(u))
}

// Refresh rotates a refresh token.
func (s *Service) Refresh(ctx context.Context, raw string) (Session, error) {
	hash := utils.HashRefreshRaw(strings.TrimSpace(raw))
	userID, err := s.tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrTokenInvalid) {
		return Session{}, newError(CodeInvalidToken, err)
	}
	if err != nil {
		return Session{}, newError(CodeInternal, err)
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, newError(CodeInvalidToken, err)
	}
	if err != nil {
		return Session{}, newError(CodeInternal, err)
	}
	if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
		return Session{}, newError(CodeInternal, err)
	}
	return s.issue(ctx, u.ID, identityOf(u))
}

// SignOut revokes refreshRaw when given, otherwise every refresh token of
// who.  It returns the id of the user that was signed out.
func (s *Service) SignOut(ctx context.Context, who *model.Identity, refreshRaw string) (string, error) {
	if raw := strings.TrimSpace(refreshRaw); raw != "" {
		hash := utils.HashRefreshRaw(raw)
		userID, err := s.tokens.ValidateRefresh(ctx, hash)
		if err != nil {
			return "", newError(CodeInvalidToken, err)
		}
		if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
			return "", newError(CodeInternal, err)
		}
		return strconv.FormatUint(userID, 10), nil
	}
	if who == nil {
		return "", newError(CodeInvalidToken, nil)
	}
	id, err := strconv.ParseUint(who.UserID, 10, 64)
	if err != nil {
		return "", newError(CodeInvalidToken, err)
	}
	if err := s.tokens.RevokeAllForUser(ctx, id); err != nil {
		return "", newError(CodeInternal, err)
	}
	return who.UserID, nil
}

// Verify returns the identity carried by a bearer access token.
func (s *Service) Verify(token string) (*model.Identity, error) {
	who, err := utils.ParseAccessToken(s.cfg.JWTSecret, token)
	if err != nil {
		return nil, newError(CodeInvalidToken, err)
	}
	return who, nil
}

func (s *Service) issue(ctx context.Context, userID uint64, who model.Identity) (Session, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, who, s.cfg.AccessTTLMin)
	if err != nil {
		return Session{}, newError(CodeInternal, err)
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return Session{}, newError(CodeInternal, err)
	}
	if err := s.tokens.StoreRefresh(ctx, userID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, newError(CodeInternal, err)
	}
	return Session{Identity: who, Access: access, Refresh: refresh}, nil
}

func (s *Service) checkEmail(email string) error {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return newError(CodeInvalidEmail, err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func identityOf(u model.User) model.Identity {
	return model.Identity{
		UserID:      strconv.FormatUint(u.ID, 10),
		DisplayName: u.DisplayName,
		Email:       u.Email,
	}
}
