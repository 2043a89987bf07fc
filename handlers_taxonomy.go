package blogapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogapi/internal/apperr"
	"github.com/eringen/blogapi/internal/store"
)

type createCategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Slug string `json:"slug" validate:"max=100"`
}

type updateCategoryRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=100"`
	Slug *string `json:"slug" validate:"omitempty,min=1,max=100"`
}

type tagRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

type updateTagRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=50"`
}

func (a *App) handleListCategories(c echo.Context) error {
	cats, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) ([]store.Category, error) {
		return tx.Categories().List(ctx)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cats)
}

func (a *App) handleCreateCategory(c echo.Context) error {
	var req createCategoryRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	base := Slugify(req.Slug)
	if base == "" {
		base = Slugify(req.Name)
	}
	cat, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Category, error) {
		if _, err := a.principal(ctx, c, tx); err != nil {
			return store.Category{}, err
		}
		return tx.Categories().Create(ctx, req.Name, base)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cat)
}

func (a *App) handleGetCategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cat, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Category, error) {
		return tx.Categories().Get(ctx, id)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cat)
}

func (a *App) handleUpdateCategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updateCategoryRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if req.Slug != nil {
		slug := Slugify(*req.Slug)
		if slug == "" {
			return apperr.E(apperr.Validation, "slug must contain letters or digits")
		}
		req.Slug = &slug
	}
	cat, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Category, error) {
		if _, err := a.principal(ctx, c, tx); err != nil {
			return store.Category{}, err
		}
		return tx.Categories().Update(ctx, id, store.CategoryPatch{Name: req.Name, Slug: req.Slug})
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cat)
}

func (a *App) handleDeleteCategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cat, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Category, error) {
		if _, err := a.principal(ctx, c, tx); err != nil {
			return store.Category{}, err
		}
		cat, err := tx.Categories().Get(ctx, id)
		if err != nil {
			return store.Category{}, err
		}
		return cat, tx.Categories().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	a.Feed.Invalidate()
	return c.JSON(http.StatusOK, cat)
}

func (a *App) handleListTags(c echo.Context) error {
	tags, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) ([]store.Tag, error) {
		return tx.Tags().List(ctx)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tags)
}

func (a *App) handleCreateTag(c echo.Context) error {
	var req tagRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	tag, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Tag, error) {
		if _, err := a.principal(ctx, c, tx); err != nil {
			return store.Tag{}, err
		}
		return tx.Tags().Create(ctx, req.Name)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tag)
}

func (a *App) handleGetTag(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	tag, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Tag, error) {
		return tx.Tags().Get(ctx, id)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tag)
}

func (a *App) handleUpdateTag(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updateTagRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	tag, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Tag, error) {
		if _, err := a.principal(ctx, c, tx); err != nil {
			return store.Tag{}, err
		}
		return tx.Tags().Update(ctx, id, req.Name)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tag)
}

func (a *App) handleDeleteTag(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	tag, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Tag, error) {
		if _, err := a.principal(ctx, c, tx); err != nil {
			return store.Tag{}, err
		}
		tag, err := tx.Tags().Get(ctx, id)
		if err != nil {
			return store.Tag{}, err
		}
		return tag, tx.Tags().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	a.Feed.Invalidate()
	return c.JSON(http.StatusOK, tag)
}
