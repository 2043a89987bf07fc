package blogapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogapi/internal/apperr"
	"github.com/eringen/blogapi/internal/auth"
	"github.com/eringen/blogapi/internal/store"
)

type createPostRequest struct {
	Title      string `json:"title" validate:"required,max=200"`
	Slug       string `json:"slug" validate:"max=200"`
	Content    string `json:"content" validate:"required"`
	Status     string `json:"status" validate:"omitempty,oneof=draft published"`
	CategoryID *int64 `json:"category_id" validate:"omitempty,gt=0"`
}

type updatePostRequest struct {
	Title      *string `json:"title" validate:"omitempty,min=1,max=200"`
	Slug       *string `json:"slug" validate:"omitempty,min=1,max=200"`
	Content    *string `json:"content" validate:"omitempty,min=1"`
	Status     *string `json:"status" validate:"omitempty,oneof=draft published"`
	CategoryID *int64  `json:"category_id" validate:"omitempty,gt=0"`
}

type postTagsRequest struct {
	TagIDs []int64 `json:"tag_ids" validate:"dive,gt=0"`
}

func (a *App) handleListPosts(c echo.Context) error {
	skip, limit, err := pagination(c)
	if err != nil {
		return err
	}
	status := c.QueryParam("status")
	if status != "" && status != store.PostDraft && status != store.PostPublished {
		return apperr.E(apperr.Validation, "status must be draft or published")
	}
	posts, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) ([]store.Post, error) {
		return tx.Posts().List(ctx, store.PostFilter{Skip: skip, Limit: limit, Status: status})
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleCreatePost(c echo.Context) error {
	var req createPostRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	base := Slugify(req.Slug)
	if base == "" {
		base = Slugify(req.Title)
	}
	post, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Post, error) {
		author, err := a.principal(ctx, c, tx)
		if err != nil {
			return store.Post{}, err
		}
		return tx.Posts().Create(ctx, store.NewPost{
			Title:      req.Title,
			Slug:       base,
			Content:    req.Content,
			Status:     req.Status,
			AuthorID:   author.ID,
			CategoryID: req.CategoryID,
		})
	})
	if err != nil {
		return err
	}
	a.Feed.Invalidate()
	return c.JSON(http.StatusCreated, post)
}

func (a *App) handlePostsByTags(c echo.Context) error {
	ids, err := queryIDs(c, "tag_ids")
	if err != nil {
		return err
	}
	posts, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) ([]store.Post, error) {
		return tx.Posts().ByTags(ctx, ids)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handlePostsByCategories(c echo.Context) error {
	ids, err := queryIDs(c, "category_ids")
	if err != nil {
		return err
	}
	posts, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) ([]store.Post, error) {
		return tx.Posts().ByCategories(ctx, ids)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleGetPost(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	post, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Post, error) {
		return tx.Posts().Get(ctx, id)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

// ownedPost loads post id and checks that the caller may modify it.
func (a *App) ownedPost(ctx context.Context, c echo.Context, tx *store.Tx, id int64) (store.Post, error) {
	actor, err := a.principal(ctx, c, tx)
	if err != nil {
		return store.Post{}, err
	}
	post, err := tx.Posts().Get(ctx, id)
	if err != nil {
		return store.Post{}, err
	}
	return post, auth.CheckOwner(actor.ID, actor.Role, post.AuthorID, "post")
}

func (a *App) handleUpdatePost(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updatePostRequest
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
	post, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Post, error) {
		if _, err := a.ownedPost(ctx, c, tx, id); err != nil {
			return store.Post{}, err
		}
		return tx.Posts().Update(ctx, id, store.PostPatch{
			Title:      req.Title,
			Slug:       req.Slug,
			Content:    req.Content,
			Status:     req.Status,
			CategoryID: req.CategoryID,
		})
	})
	if err != nil {
		return err
	}
	a.Feed.Invalidate()
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleDeletePost(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	post, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Post, error) {
		post, err := a.ownedPost(ctx, c, tx, id)
		if err != nil {
			return store.Post{}, err
		}
		return post, tx.Posts().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	a.Feed.Invalidate()
	return c.JSON(http.StatusOK, post)
}

// handleSetPostTags replaces the post's whole tag set. Any unknown tag id
// fails the request and leaves the existing tags untouched.
func (a *App) handleSetPostTags(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req postTagsRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	post, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Post, error) {
		if _, err := a.ownedPost(ctx, c, tx, id); err != nil {
			return store.Post{}, err
		}
		return tx.Posts().ReplaceTags(ctx, id, req.TagIDs)
	})
	if err != nil {
		return err
	}
	a.Feed.Invalidate()
	return c.JSON(http.StatusOK, post)
}

func (a *App) handlePostComments(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	comments, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) ([]store.Comment, error) {
		if _, err := tx.Posts().Get(ctx, id); err != nil {
			return nil, err
		}
		return tx.Comments().List(ctx, id)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comments)
}
