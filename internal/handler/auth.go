package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-resource-booking/internal/config"
	"github.com/iliyamo/office-resource-booking/internal/model"
	"github.com/iliyamo/office-resource-booking/internal/repository"
	"github.com/iliyamo/office-resource-booking/internal/utils"
)

// CredentialStore looks up accounts for authentication.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (string, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  CredentialStore
	Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u CredentialStore, t TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResp struct {
	User         userView  `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

var errBadCredentials = echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
var errBadRefresh = echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")

// issue signs an access token for u and stores a fresh refresh token.
func (h *AuthHandler) issue(ctx context.Context, u *model.User) (tokenResp, error) {
	p := u.Principal()
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, utils.AccessClaims{
		UserID:      p.UserID,
		Role:        string(p.Role),
		ManagerType: string(p.ManagerType),
	}, h.Cfg.AccessTTLMin)
	if err != nil {
		return tokenResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return tokenResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return tokenResp{}, err
	}
	return tokenResp{
		User:         viewUser(u),
		AccessToken:  access.Token,
		RefreshToken: refresh.Raw, // raw back to client
		TokenType:    "bearer",
		ExpiresAt:    access.Exp,
	}, nil
}

// Login: verify and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fieldError("body", "malformed request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		utils.BurnPasswordCheck(req.Password)
		return errBadCredentials
	}
	if err != nil {
		return err
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return errBadCredentials
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp, "login successful")
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return fieldError("refresh_token", "is required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return errBadRefresh
	}
	if err != nil {
		return err
	}
	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return errBadRefresh
	}
	if err != nil {
		return err
	}
	if !u.IsActive {
		return errBadRefresh
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); errors.Is(err, repository.ErrNotFound) {
		return errBadRefresh
	} else if err != nil {
		return err
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp, "token refreshed")
}

// Logout revokes the refresh token in the body, or every refresh token of
// the caller when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if raw == "" {
		if err := h.Tokens.RevokeAllForUser(ctx, p.UserID); err != nil {
			return err
		}
		return ok(c, http.StatusOK, nil, "logged out of all sessions")
	}
	hash := utils.HashRefreshRaw(raw)
	owner, err := h.Tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && owner != p.UserID) {
		return errBadRefresh
	}
	if err != nil {
		return err
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return ok(c, http.StatusOK, nil, "logged out")
}

// Me returns the caller's account.
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	u, err := h.Users.GetByID(c.Request().Context(), p.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return errUnauthenticated
	}
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, viewUser(u), "")
}
