package store

import (
	"context"
	"fmt"
	"time"
)

const commentColumns = `id, content, created_at, author_id, post_id`

type Comments struct {
	c conn
}

func scanComment(s scanner) (Comment, error) {
	var c Comment
	err := s.Scan(&c.ID, &c.Content, scanTime(&c.CreatedAt), &c.AuthorID, &c.PostID)
	return c, err
}

func commentNotFound(id int64) string { return fmt.Sprintf("Comment not found ID:%d", id) }

// List returns all comments, or only those of postID when it is non-zero.
func (r *Comments) List(ctx context.Context, postID int64) ([]Comment, error) {
	var w where
	if postID != 0 {
		w.add("post_id = ?", postID)
	}
	return queryAll(ctx, r.c, scanComment,
		`SELECT `+commentColumns+` FROM comments`+w.String()+` ORDER BY id`, w.args...)
}

func (r *Comments) Get(ctx context.Context, id int64) (Comment, error) {
	return queryOne(ctx, r.c, commentNotFound(id), scanComment,
		`SELECT `+commentColumns+` FROM comments WHERE id = ?`, id)
}

// Create fails with NotFound when the post does not exist.
func (r *Comments) Create(ctx context.Context, in NewComment) (Comment, error) {
	if _, err := (&Posts{c: r.c}).Get(ctx, in.PostID); err != nil {
		return Comment{}, err
	}
	id, err := r.c.insert(ctx,
		`INSERT INTO comments (content, created_at, author_id, post_id) VALUES (?, ?, ?, ?) RETURNING id`,
		in.Content, time.Now().UTC(), in.AuthorID, in.PostID)
	if err != nil {
		return Comment{}, err
	}
	return r.Get(ctx, id)
}

func (r *Comments) Update(ctx context.Context, id int64, p CommentPatch) (Comment, error) {
	var a assignments
	setIf(&a, "content", p.Content)
	if !a.empty() {
		if err := r.c.execAffected(ctx, commentNotFound(id),
			`UPDATE comments SET `+a.clause()+` WHERE id = ?`, append(a.args, id)...); err != nil {
			return Comment{}, err
		}
	}
	return r.Get(ctx, id)
}

func (r *Comments) Delete(ctx context.Context, id int64) error {
	return r.c.execAffected(ctx, commentNotFound(id), `DELETE FROM comments WHERE id = ?`, id)
}
