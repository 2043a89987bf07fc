package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/eringen/blogapi/internal/apperr"
)

type Products struct {
	c conn
}

func scanProduct(s scanner) (Product, error) {
	var p Product
	err := s.Scan(&p.ID, &p.Name, &p.Category, &p.Price)
	return p, err
}

func productNotFound(id int64) string { return fmt.Sprintf("Product not found ID:%d", id) }

func (r *Products) List(ctx context.Context, f ProductFilter) ([]Product, error) {
	var w where
	if f.Category != "" {
		w.add("category = ?", f.Category)
	}
	if f.MaxPrice != nil {
		w.add("price <= CAST(? AS DOUBLE PRECISION)", *f.MaxPrice)
	}
	return queryAll(ctx, r.c, scanProduct,
		`SELECT product_id, name, category, price FROM products`+w.String()+` ORDER BY product_id`, w.args...)
}

func (r *Products) Get(ctx context.Context, id int64) (Product, error) {
	return queryOne(ctx, r.c, productNotFound(id), scanProduct,
		`SELECT product_id, name, category, price FROM products WHERE product_id = ?`, id)
}

func (r *Products) Create(ctx context.Context, in ProductInput) (Product, error) {
	id, err := r.c.insert(ctx,
		`INSERT INTO products (name, category, price) VALUES (?, ?, ?) RETURNING product_id`,
		in.Name, in.Category, in.Price)
	if err != nil {
		return Product{}, err
	}
	return Product{ID: id, Name: in.Name, Category: in.Category, Price: in.Price}, nil
}

func (r *Products) Replace(ctx context.Context, id int64, in ProductInput) (Product, error) {
	err := r.c.execAffected(ctx, productNotFound(id),
		`UPDATE products SET name = ?, category = ?, price = ? WHERE product_id = ?`,
		in.Name, in.Category, in.Price, id)
	if err != nil {
		return Product{}, err
	}
	return Product{ID: id, Name: in.Name, Category: in.Category, Price: in.Price}, nil
}

func (r *Products) Update(ctx context.Context, id int64, p ProductPatch) (Product, error) {
	var a assignments
	setIf(&a, "name", p.Name)
	setIf(&a, "category", p.Category)
	setIf(&a, "price", p.Price)
	if !a.empty() {
		if err := r.c.execAffected(ctx, productNotFound(id),
			`UPDATE products SET `+a.clause()+` WHERE product_id = ?`, append(a.args, id)...); err != nil {
			return Product{}, err
		}
	}
	return r.Get(ctx, id)
}

// Delete refuses to remove a product that an order still references.
func (r *Products) Delete(ctx context.Context, id int64) error {
	err := r.c.execAffected(ctx, productNotFound(id), `DELETE FROM products WHERE product_id = ?`, id)
	if errors.Is(err, errForeignKey) {
		return apperr.Wrap(apperr.Conflict, err, "Product is referenced by an order")
	}
	return err
}
