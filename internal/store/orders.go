package store

import (
	"context"
	"fmt"

	"github.com/eringen/blogapi/internal/apperr"
)

// Orders is the order repository. Items are stored one row per position in
// order_items so the list keeps its order and may repeat a product.
type Orders struct {
	c conn
}

func scanOrder(s scanner) (Order, error) {
	var o Order
	err := s.Scan(&o.ID, &o.CustomerID, &o.Status)
	return o, err
}

func orderNotFound(customerID, orderID int64) string {
	return fmt.Sprintf("Order %d not found for customer %d", orderID, customerID)
}

func (r *Orders) List(ctx context.Context, f OrderFilter) ([]Order, error) {
	var w where
	if f.CustomerID != nil {
		w.add("customer_id = ?", *f.CustomerID)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	orders, err := queryAll(ctx, r.c, scanOrder,
		`SELECT id, customer_id, status FROM orders`+w.String()+` ORDER BY id`, w.args...)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].Items, err = r.items(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// Get looks an order up by customer and order id together, so an order is
// never reachable through another customer's path.
func (r *Orders) Get(ctx context.Context, customerID, orderID int64) (Order, error) {
	o, err := queryOne(ctx, r.c, orderNotFound(customerID, orderID), scanOrder,
		`SELECT id, customer_id, status FROM orders WHERE id = ? AND customer_id = ?`, orderID, customerID)
	if err != nil {
		return Order{}, err
	}
	o.Items, err = r.items(ctx, o.ID)
	return o, err
}

func (r *Orders) Create(ctx context.Context, customerID int64, in OrderInput) (Order, error) {
	id, err := r.c.insert(ctx,
		`INSERT INTO orders (customer_id, status) VALUES (?, ?) RETURNING id`, customerID, in.Status)
	if err != nil {
		return Order{}, err
	}
	if err := r.setItems(ctx, id, in.Items); err != nil {
		return Order{}, err
	}
	return r.Get(ctx, customerID, id)
}

func (r *Orders) Replace(ctx context.Context, customerID, orderID int64, in OrderInput) (Order, error) {
	return r.Update(ctx, customerID, orderID, OrderPatch{Status: &in.Status, Items: &in.Items})
}

func (r *Orders) Update(ctx context.Context, customerID, orderID int64, p OrderPatch) (Order, error) {
	if _, err := r.Get(ctx, customerID, orderID); err != nil {
		return Order{}, err
	}
	if p.Status != nil {
		if _, err := r.c.exec(ctx, `UPDATE orders SET status = ? WHERE id = ?`, *p.Status, orderID); err != nil {
			return Order{}, err
		}
	}
	if p.Items != nil {
		if _, err := r.c.exec(ctx, `DELETE FROM order_items WHERE order_id = ?`, orderID); err != nil {
			return Order{}, err
		}
		if err := r.setItems(ctx, orderID, *p.Items); err != nil {
			return Order{}, err
		}
	}
	return r.Get(ctx, customerID, orderID)
}

func (r *Orders) Delete(ctx context.Context, customerID, orderID int64) error {
	return r.c.execAffected(ctx, orderNotFound(customerID, orderID),
		`DELETE FROM orders WHERE id = ? AND customer_id = ?`, orderID, customerID)
}

func (r *Orders) setItems(ctx context.Context, orderID int64, items []int64) error {
	for pos, productID := range items {
		_, err := r.c.exec(ctx,
			`INSERT INTO order_items (order_id, position, product_id) VALUES (?, ?, ?)`,
			orderID, pos, productID)
		if err != nil {
			return relabel(err, apperr.NotFound, fmt.Sprintf("Product not found ID:%d", productID))
		}
	}
	return nil
}

func (r *Orders) items(ctx context.Context, orderID int64) ([]int64, error) {
	return queryAll(ctx, r.c, func(s scanner) (int64, error) {
		var id int64
		err := s.Scan(&id)
		return id, err
	}, `SELECT product_id FROM order_items WHERE order_id = ? ORDER BY position`, orderID)
}
