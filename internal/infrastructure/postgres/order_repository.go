package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ryzenix/pharmacart/internal/domain/errs"
	domain "github.com/ryzenix/pharmacart/internal/domain/order"
)

// createTimeout bounds the multi-item creation transaction so a slow
// connection cannot hold row versions indefinitely.
const createTimeout = 10 * time.Second

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists the order aggregate and reserves stock in one transaction.
// The stock decrement is a single conditional UPDATE guarded by
// stock_quantity >= quantity; zero rows affected means another transaction
// got there first, and the whole order rolls back. This removes the
// check-then-act race without explicit row locks.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, createTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback()

	insertOrder := `
		INSERT INTO orders (
			id, user_id, status, total_amount, payment_method, payment_status,
			shipping_method, shipping_cost, shipping_address, billing_address,
			notes, prescription_required, prescription_id,
			estimated_delivery_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = tx.ExecContext(ctx, insertOrder,
		o.ID, o.UserID, o.Status, o.TotalAmount, o.PaymentMethod, o.PaymentStatus,
		o.ShippingMethod, o.ShippingCost, o.ShippingAddress, nullString(o.BillingAddress),
		nullString(o.Notes), o.PrescriptionRequired, nullString(o.PrescriptionID),
		nullTime(o.EstimatedDeliveryDate), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	selectProduct := `
		SELECT title, sku, requires_prescription
		FROM products
		WHERE id = $1
	`
	insertItem := `
		INSERT INTO order_items (
			id, order_id, product_id, quantity, unit_price, total_price,
			product_title, product_sku, requires_prescription
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	decrementStock := `
		UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = $3
		WHERE id = $1 AND stock_quantity >= $2
	`

	for i := range o.Items {
		item := &o.Items[i]

		var title, sku string
		var requiresRx bool
		err := tx.QueryRowContext(ctx, selectProduct, item.ProductID).Scan(&title, &sku, &requiresRx)
		if errors.Is(err, sql.ErrNoRows) {
			return errs.NotFound(errs.ResourceProduct, item.ProductID)
		}
		if err != nil {
			return fmt.Errorf("snapshot product %s: %w", item.ProductID, err)
		}

		item.ProductTitle = title
		if item.ProductSKU == "" {
			item.ProductSKU = sku
		}
		item.RequiresPrescription = requiresRx

		_, err = tx.ExecContext(ctx, insertItem,
			item.ID, o.ID, item.ProductID, item.Quantity, item.UnitPrice,
			item.TotalPrice, item.ProductTitle, nullString(item.ProductSKU),
			item.RequiresPrescription,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}

		res, err := tx.ExecContext(ctx, decrementStock, item.ProductID, item.Quantity, o.CreatedAt)
		if err != nil {
			return fmt.Errorf("decrement stock for %s: %w", item.ProductID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("decrement stock for %s: %w", item.ProductID, err)
		}
		if affected == 0 {
			var available int
			if scanErr := tx.QueryRowContext(ctx,
				`SELECT stock_quantity FROM products WHERE id = $1`,
				item.ProductID).Scan(&available); scanErr != nil {
				available = 0
			}
			return errs.InsufficientStock(item.ProductID, available, item.Quantity, 0)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, user_id, status, total_amount, payment_method, payment_status,
		       shipping_method, shipping_cost, shipping_address,
		       COALESCE(billing_address, ''), COALESCE(notes, ''),
		       prescription_required, COALESCE(prescription_id, ''),
		       COALESCE(cancellation_reason, ''), estimated_delivery_date,
		       created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	o := &domain.Order{}
	var estimated sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.PaymentMethod,
		&o.PaymentStatus, &o.ShippingMethod, &o.ShippingCost, &o.ShippingAddress,
		&o.BillingAddress, &o.Notes, &o.PrescriptionRequired, &o.PrescriptionID,
		&o.CancellationReason, &estimated, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	if estimated.Valid {
		o.EstimatedDeliveryDate = estimated.Time
	}

	items, err := r.loadItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]domain.Item, error) {
	query := `
		SELECT id, order_id, product_id, quantity, unit_price, total_price,
		       product_title, COALESCE(product_sku, ''), requires_prescription
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Quantity,
			&item.UnitPrice, &item.TotalPrice, &item.ProductTitle,
			&item.ProductSKU, &item.RequiresPrescription,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

func (r *OrderRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Order, int, error) {
	where, args := buildListFilter(f)

	var total int
	countQuery := "SELECT COUNT(*) FROM orders" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	listQuery := fmt.Sprintf(`
		SELECT id, user_id, status, total_amount, payment_method, payment_status,
		       shipping_method, shipping_cost, shipping_address,
		       COALESCE(billing_address, ''), COALESCE(notes, ''),
		       prescription_required, COALESCE(prescription_id, ''),
		       COALESCE(cancellation_reason, ''), estimated_delivery_date,
		       created_at, updated_at
		FROM orders%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o := &domain.Order{}
		var estimated sql.NullTime
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.PaymentMethod,
			&o.PaymentStatus, &o.ShippingMethod, &o.ShippingCost, &o.ShippingAddress,
			&o.BillingAddress, &o.Notes, &o.PrescriptionRequired, &o.PrescriptionID,
			&o.CancellationReason, &estimated, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		if estimated.Valid {
			o.EstimatedDeliveryDate = estimated.Time
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate orders: %w", err)
	}

	for _, o := range orders {
		items, err := r.loadItems(ctx, o.ID)
		if err != nil {
			return nil, 0, err
		}
		o.Items = items
	}
	return orders, total, nil
}

func buildListFilter(f domain.ListFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.PaymentStatus != "" {
		add("payment_status = $%d", f.PaymentStatus)
	}
	if !f.CreatedFrom.IsZero() {
		add("created_at >= $%d", f.CreatedFrom)
	}
	if !f.CreatedTo.IsZero() {
		add("created_at <= $%d", f.CreatedTo)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	return r.updateColumn(ctx, id, "status", string(status))
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	return r.updateColumn(ctx, id, "payment_status", string(status))
}

func (r *OrderRepository) updateColumn(ctx context.Context, id, column, value string) error {
	query := fmt.Sprintf(`UPDATE orders SET %s = $2, updated_at = $3 WHERE id = $1`, column)

	res, err := r.db.ExecContext(ctx, query, id, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update order %s: %w", column, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order %s: %w", column, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Cancel marks the order cancelled and restores stock for every item in one
// transaction. The status guard sits in the UPDATE's WHERE clause, so a
// racing second cancel affects zero rows and releases nothing.
func (r *OrderRepository) Cancel(ctx context.Context, o *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, createTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cancel order: %w", err)
	}
	defer tx.Rollback()

	markCancelled := `
		UPDATE orders
		SET status = $2, cancellation_reason = $3, notes = $4, updated_at = $5
		WHERE id = $1 AND status IN ($6, $7)
	`
	res, err := tx.ExecContext(ctx, markCancelled,
		o.ID, domain.StatusCancelled, nullString(string(o.CancellationReason)),
		nullString(o.Notes), o.UpdatedAt, domain.StatusPending, domain.StatusConfirmed,
	)
	if err != nil {
		return fmt.Errorf("mark order cancelled: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark order cancelled: %w", err)
	}
	if affected == 0 {
		var status string
		scanErr := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, o.ID).Scan(&status)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return domain.ErrNotCancellable
	}

	restoreStock := `
		UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = $3
		WHERE id = $1
	`
	for i := range o.Items {
		item := &o.Items[i]
		if _, err := tx.ExecContext(ctx, restoreStock, item.ProductID, item.Quantity, o.UpdatedAt); err != nil {
			return fmt.Errorf("restore stock for %s: %w", item.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cancel order: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

var _ domain.Repository = (*OrderRepository)(nil)
