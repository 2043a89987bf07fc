package blogapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogapi/internal/auth"
	"github.com/eringen/blogapi/internal/store"
)

type createUserRequest struct {
	registerRequest
	Role string `json:"role" form:"role" validate:"omitempty,oneof=admin user"`
}

// updateUserRequest serves both PUT and PATCH; absent fields stay unchanged.
type updateUserRequest struct {
	Username  *string `json:"username" validate:"omitempty,min=1,max=64,excludesall=/?#"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Password  *string `json:"password" validate:"omitempty,min=1,max=72"`
	Role      *string `json:"role" validate:"omitempty,oneof=admin user"`
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Bio       *string `json:"bio" validate:"omitempty,max=2000"`
}

type accountView struct {
	store.Account
	IsAdmin   bool   `json:"is_admin"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func (a *App) accountView(acct store.Account) accountView {
	v := accountView{Account: acct, IsAdmin: acct.Role == auth.RoleAdmin}
	if acct.AvatarKey != "" {
		v.AvatarURL = "/users/" + acct.Username + "/avatar"
	}
	return v
}

func (a *App) handleListUsers(c echo.Context) error {
	accts, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) ([]store.Account, error) {
		if _, err := a.principal(ctx, c, tx); err != nil {
			return nil, err
		}
		return tx.Users().List(ctx)
	})
	if err != nil {
		return err
	}
	out := make([]accountView, 0, len(accts))
	for _, acct := range accts {
		out = append(out, a.accountView(acct))
	}
	return c.JSON(http.StatusOK, out)
}

func (a *App) handleCreateUser(c echo.Context) error {
	var req createUserRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	role := req.Role
	if role == "" {
		role = auth.RoleUser
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}
	acct, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Account, error) {
		if _, err := a.principal(ctx, c, tx); err != nil {
			return store.Account{}, err
		}
		return tx.Users().Create(ctx, store.NewAccount{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hash,
			Role:         role,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Bio:          req.Bio,
		})
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a.accountView(acct))
}

func (a *App) handleGetUser(c echo.Context) error {
	acct, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Account, error) {
		return tx.Users().GetByName(ctx, c.Param("username"))
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a.accountView(acct))
}

// handleUpdateUser lets users edit themselves and admins edit anyone. Only an
// admin may change a role.
func (a *App) handleUpdateUser(c echo.Context) error {
	var req updateUserRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	patch := store.AccountPatch{
		Username:  req.Username,
		Email:     req.Email,
		Role:      req.Role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return err
		}
		patch.PasswordHash = &hash
	}

	acct, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Account, error) {
		actor, err := a.principal(ctx, c, tx)
		if err != nil {
			return store.Account{}, err
		}
		target, err := tx.Users().GetByName(ctx, c.Param("username"))
		if err != nil {
			return store.Account{}, err
		}
		if err := auth.CheckOwner(actor.ID, actor.Role, target.ID, "user"); err != nil {
			return store.Account{}, err
		}
		if req.Role != nil && *req.Role != target.Role {
			if err := auth.CheckRole(actor.Role, auth.RoleAdmin); err != nil {
				return store.Account{}, err
			}
		}
		return tx.Users().Update(ctx, target.Username, patch)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a.accountView(acct))
}

func (a *App) handleDeleteUser(c echo.Context) error {
	acct, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Account, error) {
		if _, err := a.principal(ctx, c, tx); err != nil {
			return store.Account{}, err
		}
		target, err := tx.Users().GetByName(ctx, c.Param("username"))
		if err != nil {
			return store.Account{}, err
		}
		return target, tx.Users().Delete(ctx, target.Username)
	})
	if err != nil {
		return err
	}
	a.Feed.Invalidate()
	a.dropAvatar(c.Request().Context(), acct.AvatarKey)
	return c.JSON(http.StatusOK, a.accountView(acct))
}

func (a *App) handleUserPosts(c echo.Context) error {
	skip, limit, err := pagination(c)
	if err != nil {
		return err
	}
	posts, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) ([]store.Post, error) {
		author, err := tx.Users().GetByName(ctx, c.Param("username"))
		if err != nil {
			return nil, err
		}
		return tx.Posts().List(ctx, store.PostFilter{AuthorID: author.ID, Skip: skip, Limit: limit})
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}
