package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eringen/blogapi/internal/apperr"
)

const postColumns = `id, title, slug, content, status, publication_date, author_id, category_id`

// Posts is the post repository. Every read attaches the post's tags.
type Posts struct {
	c conn
}

func scanPost(s scanner) (Post, error) {
	var p Post
	err := s.Scan(&p.ID, &p.Title, &p.Slug, &p.Content, &p.Status,
		scanTime(&p.PublicationDate), &p.AuthorID, &p.CategoryID)
	return p, err
}

func postNotFound(id int64) string { return fmt.Sprintf("Post not found ID:%d", id) }

// List returns posts newest first, optionally restricted to one status or one
// author. Skip and Limit page the result only when Limit is positive.
func (r *Posts) List(ctx context.Context, f PostFilter) ([]Post, error) {
	var w where
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.AuthorID != 0 {
		w.add("author_id = ?", f.AuthorID)
	}
	q := `SELECT ` + postColumns + ` FROM posts` + w.String() + ` ORDER BY publication_date DESC, id DESC`
	args := w.args
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Skip)
	}
	posts, err := queryAll(ctx, r.c, scanPost, q, args...)
	if err != nil {
		return nil, err
	}
	return posts, r.attachTags(ctx, posts)
}

// ByTags returns posts carrying at least one of tagIDs.
func (r *Posts) ByTags(ctx context.Context, tagIDs []int64) ([]Post, error) {
	if len(tagIDs) == 0 {
		return []Post{}, nil
	}
	posts, err := queryAll(ctx, r.c, scanPost,
		`SELECT `+postColumns+` FROM posts WHERE id IN (
			SELECT post_id FROM post_tags WHERE tag_id IN (`+placeholders(len(tagIDs))+`)
		) ORDER BY id`, int64Args(tagIDs)...)
	if err != nil {
		return nil, err
	}
	return posts, r.attachTags(ctx, posts)
}

// ByCategories returns posts filed under any of categoryIDs.
func (r *Posts) ByCategories(ctx context.Context, categoryIDs []int64) ([]Post, error) {
	if len(categoryIDs) == 0 {
		return []Post{}, nil
	}
	posts, err := queryAll(ctx, r.c, scanPost,
		`SELECT `+postColumns+` FROM posts WHERE category_id IN (`+placeholders(len(categoryIDs))+`) ORDER BY id`,
		int64Args(categoryIDs)...)
	if err != nil {
		return nil, err
	}
	return posts, r.attachTags(ctx, posts)
}

func (r *Posts) Get(ctx context.Context, id int64) (Post, error) {
	p, err := queryOne(ctx, r.c, postNotFound(id), scanPost,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	if err != nil {
		return Post{}, err
	}
	posts := []Post{p}
	if err := r.attachTags(ctx, posts); err != nil {
		return Post{}, err
	}
	return posts[0], nil
}

// Create inserts the post under a provisional slug, then rewrites the slug to
// "{base}-{id}" once the id is known. Both writes happen in the caller's
// transaction so the provisional value is never visible elsewhere.
func (r *Posts) Create(ctx context.Context, in NewPost) (Post, error) {
	base := in.Slug
	if base == "" {
		base = "post"
	}
	status := in.Status
	if status == "" {
		status = PostDraft
	}
	id, err := r.c.insert(ctx,
		`INSERT INTO posts (title, slug, content, status, publication_date, author_id, category_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		in.Title, base+"-"+uuid.NewString(), in.Content, status, time.Now().UTC(), in.AuthorID, in.CategoryID)
	if err != nil {
		return Post{}, err
	}
	final := fmt.Sprintf("%s-%d", base, id)
	return r.Update(ctx, id, PostPatch{Slug: &final})
}

// Update applies the non-nil fields of p. An empty patch changes nothing.
func (r *Posts) Update(ctx context.Context, id int64, p PostPatch) (Post, error) {
	var a assignments
	setIf(&a, "title", p.Title)
	setIf(&a, "slug", p.Slug)
	setIf(&a, "content", p.Content)
	setIf(&a, "status", p.Status)
	setIf(&a, "category_id", p.CategoryID)
	if !a.empty() {
		err := r.c.execAffected(ctx, postNotFound(id),
			`UPDATE posts SET `+a.clause()+` WHERE id = ?`, append(a.args, id)...)
		if err != nil {
			return Post{}, relabel(err, apperr.Conflict, "Slug already in use")
		}
	}
	return r.Get(ctx, id)
}

func (r *Posts) Delete(ctx context.Context, id int64) error {
	return r.c.execAffected(ctx, postNotFound(id), `DELETE FROM posts WHERE id = ?`, id)
}

// ReplaceTags swaps the post's whole tag set for tagIDs. The post and every
// tag must exist; duplicates in tagIDs are ignored.
func (r *Posts) ReplaceTags(ctx context.Context, postID int64, tagIDs []int64) (Post, error) {
	if _, err := r.Get(ctx, postID); err != nil {
		return Post{}, err
	}
	tags := &Tags{c: r.c}
	seen := make(map[int64]bool, len(tagIDs))
	for _, id := range tagIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := tags.Get(ctx, id); err != nil {
			return Post{}, err
		}
	}
	if _, err := r.c.exec(ctx, `DELETE FROM post_tags WHERE post_id = ?`, postID); err != nil {
		return Post{}, err
	}
	for id := range seen {
		if _, err := r.c.exec(ctx, `INSERT INTO post_tags (post_id, tag_id) VALUES (?, ?)`, postID, id); err != nil {
			return Post{}, err
		}
	}
	return r.Get(ctx, postID)
}

func (r *Posts) attachTags(ctx context.Context, posts []Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]int64, len(posts))
	index := make(map[int64]int, len(posts))
	for i := range posts {
		posts[i].Tags = []Tag{}
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
	}
	type postTag struct {
		postID int64
		tag    Tag
	}
	rows, err := queryAll(ctx, r.c, func(s scanner) (postTag, error) {
		var pt postTag
		err := s.Scan(&pt.postID, &pt.tag.ID, &pt.tag.Name)
		return pt, err
	}, `SELECT pt.post_id, t.id, t.name FROM post_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id IN (`+placeholders(len(ids))+`)
		ORDER BY t.id`, int64Args(ids)...)
	if err != nil {
		return err
	}
	for _, pt := range rows {
		i := index[pt.postID]
		posts[i].Tags = append(posts[i].Tags, pt.tag)
	}
	return nil
}
