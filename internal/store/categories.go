package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/eringen/blogapi/internal/apperr"
)

type Categories struct {
	c conn
}

func scanCategory(s scanner) (Category, error) {
	var c Category
	err := s.Scan(&c.ID, &c.Name, &c.Slug)
	return c, err
}

func categoryNotFound(id int64) string { return fmt.Sprintf("Category not found ID:%d", id) }

func (r *Categories) List(ctx context.Context) ([]Category, error) {
	return queryAll(ctx, r.c, scanCategory, `SELECT id, name, slug FROM categories ORDER BY id`)
}

func (r *Categories) Get(ctx context.Context, id int64) (Category, error) {
	return queryOne(ctx, r.c, categoryNotFound(id), scanCategory,
		`SELECT id, name, slug FROM categories WHERE id = ?`, id)
}

// Create uses the same provisional-then-final slug assignment as posts.
// slug is the derived base.
func (r *Categories) Create(ctx context.Context, name, slug string) (Category, error) {
	if slug == "" {
		slug = "category"
	}
	id, err := r.c.insert(ctx,
		`INSERT INTO categories (name, slug) VALUES (?, ?) RETURNING id`,
		name, slug+"-"+uuid.NewString())
	if err != nil {
		return Category{}, relabel(err, apperr.Conflict, "Category already exists")
	}
	final := fmt.Sprintf("%s-%d", slug, id)
	return r.Update(ctx, id, CategoryPatch{Slug: &final})
}

func (r *Categories) Update(ctx context.Context, id int64, p CategoryPatch) (Category, error) {
	var a assignments
	setIf(&a, "name", p.Name)
	setIf(&a, "slug", p.Slug)
	if !a.empty() {
		err := r.c.execAffected(ctx, categoryNotFound(id),
			`UPDATE categories SET `+a.clause()+` WHERE id = ?`, append(a.args, id)...)
		if err != nil {
			return Category{}, relabel(err, apperr.Conflict, "Category already exists")
		}
	}
	return r.Get(ctx, id)
}

// Delete detaches the category from its posts rather than deleting them.
func (r *Categories) Delete(ctx context.Context, id int64) error {
	return r.c.execAffected(ctx, categoryNotFound(id), `DELETE FROM categories WHERE id = ?`, id)
}
