package blogapi

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogapi/internal/apperr"
	"github.com/eringen/blogapi/internal/auth"
	"github.com/eringen/blogapi/internal/store"
)

const claimsKey = "blogapi.claims"

// tokenFromRequest looks for a bearer token in the Authorization header, then
// the token query parameter, then the login session cookie.
func tokenFromRequest(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if t := c.QueryParam("token"); t != "" {
		return t
	}
	return sessionToken(c)
}

// requireToken rejects requests without a valid, unexpired token and stores
// its claims on the context.
func (a *App) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := tokenFromRequest(c)
		if token == "" {
			return apperr.E(apperr.InvalidCredentials, "Not authenticated")
		}
		claims, err := a.Tokens.Parse(token)
		if err != nil {
			return err
		}
		c.Set(claimsKey, claims)
		return next(c)
	}
}

// requireRole is requireToken plus an exact role match on the token claim.
func (a *App) requireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return a.requireToken(func(c echo.Context) error {
			if err := auth.CheckRole(claimsFrom(c).Role, role); err != nil {
				return err
			}
			return next(c)
		})
	}
}

func claimsFrom(c echo.Context) *auth.Claims {
	claims, _ := c.Get(claimsKey).(*auth.Claims)
	return claims
}

// principal re-resolves the token subject inside tx. A deleted account, or
// one whose role changed since the token was issued, no longer authenticates.
func (a *App) principal(ctx context.Context, c echo.Context, tx *store.Tx) (store.Account, error) {
	claims := claimsFrom(c)
	if claims == nil {
		return store.Account{}, apperr.E(apperr.InvalidCredentials, "Not authenticated")
	}
	acct, err := tx.Users().GetByName(ctx, claims.Subject)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return store.Account{}, apperr.Wrap(apperr.InvalidCredentials, err, "Invalid credentials")
		}
		return store.Account{}, err
	}
	if acct.Role != claims.Role {
		return store.Account{}, apperr.E(apperr.InvalidCredentials, "Invalid credentials")
	}
	return acct, nil
}

// inTx runs fn in one request transaction and returns its result after the
// commit, so handlers write responses only for committed work.
func inTx[T any](c echo.Context, s *store.Store, fn func(ctx context.Context, tx *store.Tx) (T, error)) (T, error) {
	return collect(c.Request().Context(), s.WithTx, fn)
}

// inView is inTx for handlers that only read.
func inView[T any](c echo.Context, s *store.Store, fn func(ctx context.Context, tx *store.Tx) (T, error)) (T, error) {
	return collect(c.Request().Context(), s.View, fn)
}

func collect[T any](
	ctx context.Context,
	run func(context.Context, func(context.Context, *store.Tx) error) error,
	fn func(ctx context.Context, tx *store.Tx) (T, error),
) (T, error) {
	var out T
	err := run(ctx, func(ctx context.Context, tx *store.Tx) error {
		var err error
		out, err = fn(ctx, tx)
		return err
	})
	return out, err
}
