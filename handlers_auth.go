package blogapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogapi/internal/apperr"
	"github.com/eringen/blogapi/internal/auth"
	"github.com/eringen/blogapi/internal/store"
)

type registerRequest struct {
	Username  string  `json:"username" form:"username" validate:"required,max=64,excludesall=/?#"`
	Password  string  `json:"password" form:"password" validate:"required,max=72"`
	Email     *string `json:"email" form:"email" validate:"omitempty,email"`
	FirstName string  `json:"first_name" form:"first_name" validate:"max=100"`
	LastName  string  `json:"last_name" form:"last_name" validate:"max=100"`
	Bio       string  `json:"bio" form:"bio" validate:"max=2000"`
}

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

// handleRegister is public self-registration. The role is always user.
func (a *App) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}
	_, err = inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Account, error) {
		return tx.Users().Create(ctx, store.NewAccount{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hash,
			Role:         auth.RoleUser,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Bio:          req.Bio,
		})
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, messageResponse{Message: "User created"})
}

// handleLogin accepts JSON or form credentials, returns a bearer token and
// stores the same token in the session cookie. Only failures count against
// the per-IP limit.
func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts, try again later")
	}

	var req loginRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	acct, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Account, error) {
		acct, err := tx.Users().GetByName(ctx, req.Username)
		if err != nil {
			if apperr.KindOf(err) == apperr.NotFound {
				return store.Account{}, apperr.E(apperr.InvalidCredentials, "Invalid username or password")
			}
			return store.Account{}, err
		}
		if !auth.VerifyPassword(req.Password, acct.PasswordHash) {
			return store.Account{}, apperr.E(apperr.InvalidCredentials, "Invalid username or password")
		}
		return acct, nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.InvalidCredentials {
			a.loginLimiter.Record(ip)
			a.Logger.Warn("failed login", "username", req.Username, "ip", ip)
		}
		return err
	}
	a.loginLimiter.Reset(ip)

	token, err := a.Tokens.Issue(acct.Username, acct.Role, 0)
	if err != nil {
		return err
	}
	if err := setSessionToken(c, token); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (a *App) handleLogout(c echo.Context) error {
	if err := clearSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detailResponse{Detail: "Logged out"})
}

func (a *App) handleMe(c echo.Context) error {
	acct, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Account, error) {
		return a.principal(ctx, c, tx)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a.accountView(acct))
}

func (a *App) handleProtected(c echo.Context) error {
	acct, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Account, error) {
		return a.principal(ctx, c, tx)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{
		Message: "Hello, " + acct.Username + ". You are authorized!",
	})
}
