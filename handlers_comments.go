package blogapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogapi/internal/auth"
	"github.com/eringen/blogapi/internal/store"
)

type createCommentRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
	PostID  int64  `json:"post_id" validate:"required,gt=0"`
}

type updateCommentRequest struct {
	Content *string `json:"content" validate:"omitempty,min=1,max=5000"`
}

func (a *App) handleListComments(c echo.Context) error {
	comments, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) ([]store.Comment, error) {
		return tx.Comments().List(ctx, 0)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comments)
}

func (a *App) handleCreateComment(c echo.Context) error {
	var req createCommentRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	comment, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Comment, error) {
		author, err := a.principal(ctx, c, tx)
		if err != nil {
			return store.Comment{}, err
		}
		return tx.Comments().Create(ctx, store.NewComment{
			Content:  req.Content,
			AuthorID: author.ID,
			PostID:   req.PostID,
		})
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, comment)
}

func (a *App) handleGetComment(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	comment, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Comment, error) {
		return tx.Comments().Get(ctx, id)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comment)
}

func (a *App) ownedComment(ctx context.Context, c echo.Context, tx *store.Tx, id int64) (store.Comment, error) {
	actor, err := a.principal(ctx, c, tx)
	if err != nil {
		return store.Comment{}, err
	}
	comment, err := tx.Comments().Get(ctx, id)
	if err != nil {
		return store.Comment{}, err
	}
	return comment, auth.CheckOwner(actor.ID, actor.Role, comment.AuthorID, "comment")
}

func (a *App) handleUpdateComment(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updateCommentRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	comment, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Comment, error) {
		if _, err := a.ownedComment(ctx, c, tx, id); err != nil {
			return store.Comment{}, err
		}
		return tx.Comments().Update(ctx, id, store.CommentPatch{Content: req.Content})
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comment)
}

func (a *App) handleDeleteComment(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	comment, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Comment, error) {
		comment, err := a.ownedComment(ctx, c, tx, id)
		if err != nil {
			return store.Comment{}, err
		}
		return comment, tx.Comments().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comment)
}
