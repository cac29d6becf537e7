package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/wedding-planner/internal/config"
	"github.com/iliyamo/wedding-planner/internal/logging"
	"github.com/iliyamo/wedding-planner/internal/middleware"
	"github.com/iliyamo/wedding-planner/internal/model"
	"github.com/iliyamo/wedding-planner/internal/repository"
	"github.com/iliyamo/wedding-planner/internal/utils"
)

// UserStore is the user persistence used by AuthHandler.
type UserStore interface {
	UserFinder
	Create(ctx context.Context, email, password, role, displayName string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ConsumeRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeAllForUser(ctx context.Context, userID uint64) (int64, error)
}

// SessionRevoker records a signout so outstanding access tokens stop
// working before they expire.
type SessionRevoker interface {
	Revoke(ctx context.Context, userID uint64, at time.Time) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    UserStore
	Tokens   TokenStore
	Sessions SessionRevoker
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, s SessionRevoker) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Sessions: s}
}

// ----- DTOs -----

type registerReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"` // COUPLE | VENDOR
	DisplayName string `json:"display_name"`
}
type loginReq struct {
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
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func unauthorized(c echo.Context, code, message string) error {
	return fail(c, http.StatusUnauthorized, KindUnauthorized, code, message)
}

// issue creates an access/refresh pair and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u userPart) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, model.CodeInvalidField, "", "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return badRequest(c, model.CodeRequired, "email", "email/password required")
	}
	if err := model.CheckLength("email", req.Email, model.MaxEmailLen); err != nil {
		return writeError(c, err)
	}
	if err := utils.CheckPasswordPolicy(req.Password); err != nil {
		return badRequest(c, model.CodeInvalidField, "password", err.Error())
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role != model.RoleCouple && role != model.RoleVendor {
		role = model.RoleCouple
	}
	display := strings.TrimSpace(req.DisplayName)
	if display == "" {
		display = strings.SplitN(req.Email, "@", 2)[0]
		if r := []rune(display); len(r) > model.MaxDisplayNameLen {
			display = string(r[:model.MaxDisplayNameLen])
		}
	}
	if err := model.CheckLength("display_name", display, model.MaxDisplayNameLen); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, role, display, h.Cfg.BcryptCost)
	if err != nil {
		return writeError(c, err)
	}
	resp, err := h.issue(ctx, userPart{ID: uid, Email: req.Email, Role: role})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, model.CodeInvalidField, "", "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return badRequest(c, model.CodeRequired, "email", "email/password required")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return unauthorized(c, "invalid_credentials", "invalid credentials")
		}
		return writeError(c, err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return unauthorized(c, "invalid_credentials", "invalid credentials")
	}

	resp, err := h.issue(ctx, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh: consume the old token by hash, issue a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, model.CodeRequired, "refresh_token", "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := requestCtx(c)
	defer cancel()

	userID, err := h.Tokens.ConsumeRefresh(ctx, hash)
	if errors.Is(err, repository.ErrInvalidRefresh) {
		return unauthorized(c, "invalid_refresh", "invalid refresh")
	}
	if err != nil {
		return writeError(c, err)
	}

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return unauthorized(c, "invalid_refresh", "invalid refresh")
		}
		return writeError(c, err)
	}
	resp, err := h.issue(ctx, userPart{ID: userID, Email: u.Email, Role: u.Role})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Signout ends every session of the caller: refresh tokens are revoked and
// access tokens issued up to now are refused by the JWT middleware.
func (h *AuthHandler) Signout(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "missing_user", "authentication required")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	n, err := h.Tokens.RevokeAllForUser(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	if h.Sessions != nil {
		if err := h.Sessions.Revoke(ctx, uid, time.Now().UTC()); err != nil {
			zerolog.Ctx(c.Request().Context()).Warn().Err(err).Uint64(logging.USER, uid).
				Msg("signout: access token revocation not recorded")
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "revoked": n})
}

// Me returns the identity carried by the access token.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": uid,
		"role":    middleware.Role(c),
	})
}
