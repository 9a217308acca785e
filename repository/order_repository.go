package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/HanWeiOng/ESDG10T4/models"
)

var ErrNotFound = errors.New("order not found")

const (
	orderColumns = `order_id, cart_amt, user_id, payment_id, shipping_id, error_id, status, created, modified`
	itemColumns  = `item_id, order_id, book_id, quantity`
)

// OrderRepository persists orders and their items in MySQL. Writes touching
// more than one row run in a single transaction.
type OrderRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db, now: defaultNow}
}

// timestamps are stored as DATETIME(6)
func defaultNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (r *OrderRepository) List(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.SelectContext(ctx, &orders, `SELECT `+orderColumns+` FROM order_detail ORDER BY order_id`); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	if len(orders) == 0 {
		return []models.Order{}, nil
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.OrderID
	}
	query, args, err := sqlx.In(`SELECT `+itemColumns+` FROM order_item WHERE order_id IN (?) ORDER BY item_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("build item query: %w", err)
	}
	var items []models.OrderItem
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}

	byOrder := make(map[int64][]models.OrderItem, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].OrderID]
		if orders[i].Items == nil {
			orders[i].Items = []models.OrderItem{}
		}
	}
	return orders, nil
}

// GetByID returns ErrNotFound when no order has the given id.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.GetContext(ctx, &order, `SELECT `+orderColumns+` FROM order_detail WHERE order_id = ? LIMIT 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order %d: %w", id, err)
	}

	if order.Items, err = selectItems(ctx, r.db, id); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM order_detail WHERE order_id = ?)`, id); err != nil {
		return false, fmt.Errorf("check order %d: %w", id, err)
	}
	return exists, nil
}

// Create inserts the order and all of its items atomically. On success the
// generated ids and timestamps are written back into order.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) (err error) {
	now := r.now()
	row := *order
	row.Created, row.Modified = now, now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.NamedExecContext(ctx, `
		INSERT INTO order_detail (cart_amt, user_id, payment_id, shipping_id, error_id, status, created, modified)
		VALUES (:cart_amt, :user_id, :payment_id, :shipping_id, :error_id, :status, :created, :modified)`, &row)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if row.OrderID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("order id: %w", err)
	}

	row.Items = make([]models.OrderItem, len(order.Items))
	for i, it := range order.Items {
		it.OrderID = row.OrderID
		res, err = tx.NamedExecContext(ctx, `
			INSERT INTO order_item (order_id, book_id, quantity)
			VALUES (:order_id, :book_id, :quantity)`, &it)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		if it.ItemID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("order item id: %w", err)
		}
		row.Items[i] = it
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	*order = row
	return nil
}

// UpdateStatus sets the status of an existing order and refreshes its
// modified timestamp. It returns ErrNotFound when the order does not exist.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status string) (_ *models.Order, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var order models.Order
	err = tx.GetContext(ctx, &order, `SELECT `+orderColumns+` FROM order_detail WHERE order_id = ? LIMIT 1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order %d: %w", id, err)
	}

	modified := nextModified(order.Modified, r.now())
	if _, err = tx.ExecContext(ctx, `UPDATE order_detail SET status = ?, modified = ? WHERE order_id = ?`, status, modified, id); err != nil {
		return nil, fmt.Errorf("update order %d: %w", id, err)
	}
	if order.Items, err = selectItems(ctx, tx, id); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order %d: %w", id, err)
	}

	order.Status = status
	order.Modified = modified
	return &order, nil
}

// nextModified keeps modified strictly increasing even when the clock has
// not advanced past the stored value.
func nextModified(prev, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Microsecond)
}

func selectItems(ctx context.Context, q sqlx.QueryerContext, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	if err := sqlx.SelectContext(ctx, q, &items, `SELECT `+itemColumns+` FROM order_item WHERE order_id = ? ORDER BY item_id`, orderID); err != nil {
		return nil, fmt.Errorf("select items of order %d: %w", orderID, err)
	}
	return items, nil
}
