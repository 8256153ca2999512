package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-catalog-orders/internal/orders"
)

// lock_not_available, raised by FOR UPDATE NOWAIT.
const sqlStateLockNotAvailable = "55P03"

const productColumns = `id, name, description, price, stock, trashed, created_at, updated_at`

var _ orders.Store = (*Store)(nil)

type Store struct{ DB *pgxpool.Pool }

func NewStore(db *pgxpool.Pool) *Store { return &Store{DB: db} }

func scanProduct(row pgx.Row) (orders.Product, error) {
	var p orders.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Trashed, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectProducts(rows pgx.Rows) ([]orders.Product, error) {
	defer rows.Close()
	out := []orders.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ---- products ----

func (s *Store) ListProducts(ctx context.Context) ([]orders.Product, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+productColumns+` FROM products WHERE trashed = FALSE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return collectProducts(rows)
}

func (s *Store) GetProduct(ctx context.Context, id int64) (orders.Product, error) {
	p, err := scanProduct(s.DB.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND trashed = FALSE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, orders.ErrNotFound
	}
	if err != nil {
		return orders.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p orders.Product) (orders.Product, error) {
	created, err := scanProduct(s.DB.QueryRow(ctx, `
		INSERT INTO products (name, description, price, stock)
		VALUES ($1, $2, $3::text::numeric, $4)
		RETURNING `+productColumns,
		p.Name, p.Description, p.Price.String(), p.Stock))
	if err != nil {
		return orders.Product{}, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p orders.Product) (orders.Product, error) {
	updated, err := scanProduct(s.DB.QueryRow(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4::text::numeric, stock = $5, updated_at = NOW()
		WHERE id = $1 AND trashed = FALSE
		RETURNING `+productColumns,
		p.ID, p.Name, p.Description, p.Price.String(), p.Stock))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, orders.ErrNotFound
	}
	if err != nil {
		return orders.Product{}, fmt.Errorf("update product %d: %w", p.ID, err)
	}
	return updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64, opts ...orders.DeleteOption) error {
	q := `UPDATE products SET trashed = TRUE, updated_at = NOW() WHERE id = $1 AND trashed = FALSE`
	if orders.ApplyDeleteOptions(opts...) {
		q = `DELETE FROM products WHERE id = $1 AND trashed = FALSE`
	}
	ct, err := s.DB.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrNotFound
	}
	return nil
}

// ---- orders ----

func (s *Store) ListOrders(ctx context.Context) ([]orders.Order, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, total_price, status, trashed, created_at, updated_at
		FROM orders WHERE trashed = FALSE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var list []orders.Order
	for rows.Next() {
		var o orders.Order
		if err := rows.Scan(&o.ID, &o.TotalPrice, &o.Status, &o.Trashed, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if len(list) == 0 {
		return []orders.Order{}, nil
	}

	ids := make([]int64, len(list))
	for i, o := range list {
		ids[i] = o.ID
	}
	items, err := s.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Items = items[list[i].ID]
	}
	return list, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (orders.Order, error) {
	var o orders.Order
	err := s.DB.QueryRow(ctx, `
		SELECT id, total_price, status, trashed, created_at, updated_at
		FROM orders WHERE id = $1 AND trashed = FALSE`, id).
		Scan(&o.ID, &o.TotalPrice, &o.Status, &o.Trashed, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrNotFound
	}
	if err != nil {
		return orders.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}

	items, err := s.itemsFor(ctx, []int64{id})
	if err != nil {
		return orders.Order{}, err
	}
	o.Items = items[id]
	return o, nil
}

// itemsFor loads the items of the given orders together with their products,
// trashed products included.
func (s *Store) itemsFor(ctx context.Context, orderIDs []int64) (map[int64][]orders.OrderItem, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, i.quantity, i.created_at, i.updated_at,
		       p.id, p.name, p.description, p.price, p.stock, p.trashed, p.created_at, p.updated_at
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1)
		ORDER BY i.id`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]orders.OrderItem, len(orderIDs))
	for rows.Next() {
		var it orders.OrderItem
		var p orders.Product
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Trashed, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		it.Product = &p
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func (s *Store) DeleteOrder(ctx context.Context, id int64, opts ...orders.DeleteOption) error {
	q := `UPDATE orders SET trashed = TRUE, updated_at = NOW() WHERE id = $1 AND trashed = FALSE`
	if orders.ApplyDeleteOptions(opts...) {
		// order_items go with it (ON DELETE CASCADE)
		q = `DELETE FROM orders WHERE id = $1 AND trashed = FALSE`
	}
	ct, err := s.DB.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrNotFound
	}
	return nil
}

func (s *Store) FindProducts(ctx context.Context, ids []int64) ([]orders.Product, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE trashed = FALSE AND id = ANY($1)
		ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	return collectProducts(rows)
}

func (s *Store) ItemProducts(ctx context.Context, ids []int64) ([]orders.Product, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("load item products: %w", err)
	}
	return collectProducts(rows)
}

func (s *Store) CreateOrder(ctx context.Context, items []orders.OrderItem) (orders.Order, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return orders.Order{}, fmt.Errorf("begin create order: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var o orders.Order
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (total_price, status) VALUES (0, $1)
		RETURNING id, total_price, status, trashed, created_at, updated_at`, orders.StatusPending).
		Scan(&o.ID, &o.TotalPrice, &o.Status, &o.Trashed, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return orders.Order{}, fmt.Errorf("insert order: %w", err)
	}

	// bulk insert, one round trip
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`
			INSERT INTO order_items (order_id, product_id, quantity) VALUES ($1, $2, $3)
			RETURNING id, order_id, product_id, quantity, created_at, updated_at`,
			o.ID, it.ProductID, it.Quantity)
	}
	br := tx.SendBatch(ctx, batch)
	o.Items = make([]orders.OrderItem, 0, len(items))
	for range items {
		var row orders.OrderItem
		if err := br.QueryRow().Scan(&row.ID, &row.OrderID, &row.ProductID, &row.Quantity, &row.CreatedAt, &row.UpdatedAt); err != nil {
			_ = br.Close()
			return orders.Order{}, fmt.Errorf("insert order item: %w", err)
		}
		o.Items = append(o.Items, row)
	}
	if err := br.Close(); err != nil {
		return orders.Order{}, fmt.Errorf("insert order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return orders.Order{}, fmt.Errorf("commit order: %w", err)
	}
	return o, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status orders.Status) error {
	ct, err := s.DB.Exec(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update order %d status: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrNotFound
	}
	return nil
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) LockProducts(ctx context.Context, ids []int64) ([]orders.Product, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE trashed = FALSE AND id = ANY($1)
		ORDER BY id
		FOR UPDATE NOWAIT`, ids)
	if err != nil {
		return nil, lockError(err)
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, lockError(err)
	}
	return products, nil
}

func (t *pgTx) UpdateStock(ctx context.Context, productID int64, stock int) error {
	ct, err := t.tx.Exec(ctx, `UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1`, productID, stock)
	if err != nil {
		return fmt.Errorf("update products: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return orders.ErrNotFound
	}
	return nil
}

func (t *pgTx) FinalizeOrder(ctx context.Context, orderID int64, total decimal.Decimal, status orders.Status) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE orders SET total_price = $2::text::numeric, status = $3, updated_at = NOW()
		WHERE id = $1`, orderID, total.String(), status)
	if err != nil {
		return fmt.Errorf("update orders: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return orders.ErrNotFound
	}
	return nil
}

func lockError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateLockNotAvailable {
		return orders.LockUnavailable(err)
	}
	return fmt.Errorf("lock products: %w", err)
}
