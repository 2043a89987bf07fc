package blogapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogapi/internal/apperr"
	"github.com/eringen/blogapi/internal/store"
)

type productRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Category string `json:"category" validate:"required,max=100"`
	Price    int    `json:"price" validate:"gte=0"`
}

type patchProductRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	Category *string `json:"category" validate:"omitempty,min=1,max=100"`
	Price    *int    `json:"price" validate:"omitempty,gte=0"`
}

type orderRequest struct {
	ID         *int64  `json:"id"`
	CustomerID *int64  `json:"customer_id"`
	Status     string  `json:"status" validate:"omitempty,max=32"`
	Items      []int64 `json:"items" validate:"dive,gt=0"`
}

type patchOrderRequest struct {
	ID         *int64   `json:"id"`
	CustomerID *int64   `json:"customer_id"`
	Status     *string  `json:"status" validate:"omitempty,min=1,max=32"`
	Items      *[]int64 `json:"items" validate:"omitempty,dive,gt=0"`
}

const defaultOrderStatus = "pending"

// checkOrderIDs rejects a body that names a different order or customer than
// the path it was sent to.
func checkOrderIDs(id, customerID *int64, orderID, pathCustomer int64) error {
	if id != nil && *id != orderID {
		return apperr.E(apperr.Validation, "Order ID mismatch")
	}
	if customerID != nil && *customerID != pathCustomer {
		return apperr.E(apperr.Validation, "Customer ID mismatch")
	}
	return nil
}

func orderPath(c echo.Context) (customerID, orderID int64, err error) {
	if customerID, err = paramID(c, "customer_id"); err != nil {
		return 0, 0, err
	}
	if orderID, err = paramID(c, "order_id"); err != nil {
		return 0, 0, err
	}
	return customerID, orderID, nil
}

func (a *App) handleListProducts(c echo.Context) error {
	f := store.ProductFilter{Category: c.QueryParam("category")}
	if raw := c.QueryParam("max_price"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return apperr.E(apperr.Validation, "max_price must be a number")
		}
		f.MaxPrice = &p
	}
	products, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) ([]store.Product, error) {
		return tx.Products().List(ctx, f)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

func (a *App) handleCreateProduct(c echo.Context) error {
	var req productRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	product, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Product, error) {
		if _, err := a.principal(ctx, c, tx); err != nil {
			return store.Product{}, err
		}
		return tx.Products().Create(ctx, store.ProductInput(req))
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, product)
}

func (a *App) handleGetProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	product, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Product, error) {
		return tx.Products().Get(ctx, id)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

func (a *App) handleReplaceProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req productRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	product, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Product, error) {
		if _, err := a.principal(ctx, c, tx); err != nil {
			return store.Product{}, err
		}
		return tx.Products().Replace(ctx, id, store.ProductInput(req))
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

func (a *App) handlePatchProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req patchProductRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	product, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Product, error) {
		if _, err := a.principal(ctx, c, tx); err != nil {
			return store.Product{}, err
		}
		return tx.Products().Update(ctx, id, store.ProductPatch(req))
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

func (a *App) handleDeleteProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	_, err = inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (struct{}, error) {
		if _, err := a.principal(ctx, c, tx); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, tx.Products().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detailResponse{Detail: "Product deleted"})
}

func (a *App) handleListOrders(c echo.Context) error {
	var f store.OrderFilter
	if raw := c.QueryParam("customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return apperr.E(apperr.Validation, "customer_id must be an integer")
		}
		f.CustomerID = &id
	}
	f.Status = c.QueryParam("status")
	orders, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) ([]store.Order, error) {
		return tx.Orders().List(ctx, f)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orders)
}

func (a *App) handleCreateOrder(c echo.Context) error {
	customerID, err := paramID(c, "customer_id")
	if err != nil {
		return err
	}
	var req orderRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if req.CustomerID != nil && *req.CustomerID != customerID {
		return apperr.E(apperr.Validation, "Customer ID mismatch")
	}
	in := store.OrderInput{Status: req.Status, Items: req.Items}
	if in.Status == "" {
		in.Status = defaultOrderStatus
	}
	order, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Order, error) {
		if _, err := a.principal(ctx, c, tx); err != nil {
			return store.Order{}, err
		}
		return tx.Orders().Create(ctx, customerID, in)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, order)
}

func (a *App) handleGetOrder(c echo.Context) error {
	customerID, orderID, err := orderPath(c)
	if err != nil {
		return err
	}
	order, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Order, error) {
		return tx.Orders().Get(ctx, customerID, orderID)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

func (a *App) handleReplaceOrder(c echo.Context) error {
	customerID, orderID, err := orderPath(c)
	if err != nil {
		return err
	}
	var req orderRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if err := checkOrderIDs(req.ID, req.CustomerID, orderID, customerID); err != nil {
		return err
	}
	in := store.OrderInput{Status: req.Status, Items: req.Items}
	if in.Status == "" {
		in.Status = defaultOrderStatus
	}
	if in.Items == nil {
		in.Items = []int64{}
	}
	order, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Order, error) {
		if _, err := a.principal(ctx, c, tx); err != nil {
			return store.Order{}, err
		}
		return tx.Orders().Replace(ctx, customerID, orderID, in)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

func (a *App) handlePatchOrder(c echo.Context) error {
	customerID, orderID, err := orderPath(c)
	if err != nil {
		return err
	}
	var req patchOrderRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if err := checkOrderIDs(req.ID, req.CustomerID, orderID, customerID); err != nil {
		return err
	}
	order, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Order, error) {
		if _, err := a.principal(ctx, c, tx); err != nil {
			return store.Order{}, err
		}
		return tx.Orders().Update(ctx, customerID, orderID, store.OrderPatch{
			Status: req.Status,
			Items:  req.Items,
		})
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

func (a *App) handleDeleteOrder(c echo.Context) error {
	customerID, orderID, err := orderPath(c)
	if err != nil {
		return err
	}
	_, err = inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (struct{}, error) {
		if _, err := a.principal(ctx, c, tx); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, tx.Orders().Delete(ctx, customerID, orderID)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detailResponse{Detail: "Order deleted"})
}
