package store

import (
	"context"
	"fmt"

	"github.com/eringen/blogapi/internal/apperr"
)

type Tags struct {
	c conn
}

func scanTag(s scanner) (Tag, error) {
	var t Tag
	err := s.Scan(&t.ID, &t.Name)
	return t, err
}

func tagNotFound(id int64) string { return fmt.Sprintf("Tag with '%d' not found", id) }

func (r *Tags) List(ctx context.Context) ([]Tag, error) {
	return queryAll(ctx, r.c, scanTag, `SELECT id, name FROM tags ORDER BY id`)
}

func (r *Tags) Get(ctx context.Context, id int64) (Tag, error) {
	return queryOne(ctx, r.c, tagNotFound(id), scanTag, `SELECT id, name FROM tags WHERE id = ?`, id)
}

func (r *Tags) Create(ctx context.Context, name string) (Tag, error) {
	id, err := r.c.insert(ctx, `INSERT INTO tags (name) VALUES (?) RETURNING id`, name)
	if err != nil {
		return Tag{}, relabel(err, apperr.Conflict, "Tag already exists")
	}
	return Tag{ID: id, Name: name}, nil
}

func (r *Tags) Update(ctx context.Context, id int64, name *string) (Tag, error) {
	if name != nil {
		err := r.c.execAffected(ctx, tagNotFound(id), `UPDATE tags SET name = ? WHERE id = ?`, *name, id)
		if err != nil {
			return Tag{}, relabel(err, apperr.Conflict, "Tag already exists")
		}
	}
	return r.Get(ctx, id)
}

func (r *Tags) Delete(ctx context.Context, id int64) error {
	return r.c.execAffected(ctx, tagNotFound(id), `DELETE FROM tags WHERE id = ?`, id)
}
