package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Queries struct {
	db DBTX
}

func unixNow() int64 { return time.Now().Unix() }
func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
func i2b(i int) bool { return i != 0 }

func tFromUnix(u int64) time.Time {
	if u <= 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

/* ---------------- Users ---------------- */

const userColumns = `id,email,password_hash,role,display_name,is_active,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	var isActive int
	var ca, ua int64
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.DisplayName, &isActive, &ca, &ua); err != nil {
		return User{}, err
	}
	u.IsActive = i2b(isActive)
	u.CreatedAt = tFromUnix(ca)
	u.UpdatedAt = tFromUnix(ua)
	return u, nil
}

func (q *Queries) HasAnyAdmin(ctx context.Context) (bool, error) {
	row := q.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE role='admin'`)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (q *Queries) CountActiveAdmins(ctx context.Context) (int, error) {
	row := q.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE role='admin' AND is_active=1`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY display_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (q *Queries) CreateUser(ctx context.Context, p CreateUserParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO users(email,password_hash,role,display_name,is_active,created_at,updated_at)
		VALUES(?,?,?,?,?,?,?)`,
		p.Email, p.PasswordHash, p.Role, p.DisplayName, b2i(p.IsActive), unixNow(), unixNow())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q *Queries) SetUserActive(ctx context.Context, id int64, active bool) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET is_active=?, updated_at=? WHERE id=?`, b2i(active), unixNow(), id)
	return err
}

/* ---------------- Products ---------------- */

const productColumns = `p.id,p.name,p.category,p.price,COALESCE(p.description,''),p.is_available,p.prep_minutes,p.stock,p.min_stock,p.created_at,p.updated_at`

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	var isAvail int
	var ca, ua int64
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Description, &isAvail, &p.PrepMinutes, &p.Stock, &p.MinStock, &ca, &ua); err != nil {
		return Product{}, err
	}
	p.IsAvailable = i2b(isAvail)
	p.CreatedAt = tFromUnix(ca)
	p.UpdatedAt = tFromUnix(ua)
	return p, nil
}

func (q *Queries) ListProducts(ctx context.Context, onlyAvailable bool) ([]Product, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products p
		WHERE (? = 0 OR p.is_available = 1)
		ORDER BY p.category, p.name`, b2i(onlyAvailable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) GetProductByID(ctx context.Context, id int64) (*Product, error) {
	p, err := scanProduct(q.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id=?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// GetProductsByIDs returns the products that exist, keyed by id. Missing ids are simply absent.
func (q *Queries) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]Product, error) {
	out := map[int64]Product{}
	if len(ids) == 0 {
		return out, nil
	}
	seen := map[int64]bool{}
	var args []any
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
	rows, err := q.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (q *Queries) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM products`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (q *Queries) CreateProduct(ctx context.Context, p CreateProductParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO products(name,category,price,description,is_available,prep_minutes,stock,min_stock,created_at,updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?)`,
		p.Name, p.Category, p.Price.String(), p.Description, b2i(p.IsAvailable), p.PrepMinutes, p.Stock, p.MinStock, unixNow(), unixNow())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q *Queries) UpdateProduct(ctx context.Context, p UpdateProductParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE products
		SET name=?, category=?, price=?, description=?, is_available=?, prep_minutes=?, min_stock=?, updated_at=?
		WHERE id=?`,
		p.Name, p.Category, p.Price.String(), p.Description, b2i(p.IsAvailable), p.PrepMinutes, p.MinStock, unixNow(), p.ID)
	return err
}

func (q *Queries) SetProductStock(ctx context.Context, id int64, stock int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE products SET stock=?, updated_at=? WHERE id=?`, stock, unixNow(), id)
	return err
}

func (q *Queries) ListLowStock(ctx context.Context) ([]Product, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products p
		WHERE p.min_stock IS NOT NULL AND p.stock <= p.min_stock
		ORDER BY p.stock ASC, p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

/* ---------------- Orders ---------------- */

const orderColumns = `
	o.id,o.table_number,o.waiter_id,o.waiter_name,o.status,COALESCE(o.note,''),o.total,o.prep_minutes,
	o.modified,o.without_stock,o.shortages,o.approved_by_id,COALESCE(o.approval_reason,''),o.printed,
	o.created_at,o.updated_at,COALESCE(ua.display_name,'')`

const orderFrom = `FROM orders o LEFT JOIN users ua ON ua.id=o.approved_by_id`

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	var modified, withoutStock, printed int
	var shortages sql.NullString
	var ca, ua int64
	if err := row.Scan(&o.ID, &o.TableNumber, &o.WaiterID, &o.WaiterName, &o.Status, &o.Note, &o.Total, &o.PrepMinutes,
		&modified, &withoutStock, &shortages, &o.ApprovedByID, &o.ApprovalReason, &printed,
		&ca, &ua, &o.ApprovedByName); err != nil {
		return Order{}, err
	}
	o.Modified = i2b(modified)
	o.WithoutStock = i2b(withoutStock)
	o.Printed = i2b(printed)
	o.CreatedAt = tFromUnix(ca)
	o.UpdatedAt = tFromUnix(ua)
	if shortages.Valid && shortages.String != "" {
		if err := json.Unmarshal([]byte(shortages.String), &o.Shortages); err != nil {
			return Order{}, fmt.Errorf("decode shortages of order %d: %w", o.ID, err)
		}
	}
	return o, nil
}

func (q *Queries) CreateOrder(ctx context.Context, p CreateOrderParams) (int64, error) {
	var shortages any
	if len(p.Shortages) > 0 {
		b, err := json.Marshal(p.Shortages)
		if err != nil {
			return 0, err
		}
		shortages = string(b)
	}
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO orders(table_number,waiter_id,waiter_name,status,note,total,prep_minutes,shortages,created_at,updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?)`,
		p.TableNumber, p.WaiterID, p.WaiterName, p.Status, p.Note, p.Total.String(), p.PrepMinutes, shortages, unixNow(), unixNow())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetOrderByID loads the order together with its items.
func (q *Queries) GetOrderByID(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(q.db.QueryRowContext(ctx, `SELECT `+orderColumns+` `+orderFrom+` WHERE o.id=?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	items, err := q.ListOrderItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

// ListOrders returns orders newest first, optionally filtered by status. Items are attached.
func (q *Queries) ListOrders(ctx context.Context, status string, oldestFirst bool) ([]Order, error) {
	dir := "DESC"
	if oldestFirst {
		dir = "ASC"
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+orderColumns+` `+orderFrom+`
		WHERE (? = '' OR o.status = ?)
		ORDER BY o.created_at `+dir+`, o.id `+dir, status, status)
	if err != nil {
		return nil, err
	}

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		items, err := q.ListOrderItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (q *Queries) ListOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT
			i.id,i.order_id,i.product_id,i.quantity,i.unit_price,i.subtotal,COALESCE(i.note,''),i.stock_taken,
			COALESCE(p.name,''),COALESCE(p.category,''),p.prep_minutes
		FROM order_items i
		JOIN products p ON p.id=i.product_id
		WHERE i.order_id=?
		ORDER BY i.id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Subtotal, &it.Note, &it.StockTaken,
			&it.ProductName, &it.ProductCategory, &it.PrepMinutes); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (q *Queries) CreateOrderItem(ctx context.Context, p CreateOrderItemParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO order_items(order_id,product_id,quantity,unit_price,subtotal,note,stock_taken)
		VALUES(?,?,?,?,?,?,?)`,
		p.OrderID, p.ProductID, p.Quantity, p.UnitPrice.String(), p.Subtotal.String(), p.Note, p.StockTaken)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q *Queries) DeleteOrderItem(ctx context.Context, orderID, itemID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM order_items WHERE id=? AND order_id=?`, itemID, orderID)
	return err
}

func (q *Queries) UpdateOrderItemQuantity(ctx context.Context, orderID, itemID, quantity int64, subtotal decimal.Decimal) error {
	_, err := q.db.ExecContext(ctx, `UPDATE order_items SET quantity=?, subtotal=? WHERE id=? AND order_id=?`,
		quantity, subtotal.String(), itemID, orderID)
	return err
}

func (q *Queries) SetOrderItemStockTaken(ctx context.Context, orderID, itemID, taken int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE order_items SET stock_taken=? WHERE id=? AND order_id=?`,
		taken, itemID, orderID)
	return err
}

func (q *Queries) UpdateOrderTotals(ctx context.Context, p UpdateOrderTotalsParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE orders SET total=?, prep_minutes=?, modified=?, updated_at=? WHERE id=?`,
		p.Total.String(), p.PrepMinutes, b2i(p.Modified), unixNow(), p.ID)
	return err
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE orders SET status=?, updated_at=? WHERE id=?`, status, unixNow(), orderID)
	return err
}

func (q *Queries) ApproveOrder(ctx context.Context, p ApproveOrderParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE orders
		SET status='pending', without_stock=1, approved_by_id=?, approval_reason=?, updated_at=?
		WHERE id=?`, p.ApprovedBy, p.Reason, unixNow(), p.ID)
	return err
}

func (q *Queries) SetOrderPrinted(ctx context.Context, orderID int64, printed bool) error {
	_, err := q.db.ExecContext(ctx, `UPDATE orders SET printed=?, updated_at=? WHERE id=?`, b2i(printed), unixNow(), orderID)
	return err
}

/* ---------------- History ---------------- */

// AppendHistory inserts audit rows. History is append-only.
func (q *Queries) AppendHistory(ctx context.Context, entries ...AppendHistoryParams) error {
	for _, e := range entries {
		payload := e.Payload
		if len(payload) == 0 {
			payload = json.RawMessage(`{}`)
		}
		if _, err := q.db.ExecContext(ctx, `
			INSERT INTO order_history(order_id,kind,description,payload,actor_name,actor_role,reason,total_delta,created_at)
			VALUES(?,?,?,?,?,?,?,?,?)`,
			e.OrderID, e.Kind, e.Description, string(payload), e.ActorName, e.ActorRole, e.Reason, e.TotalDelta.String(), unixNow()); err != nil {
			return fmt.Errorf("append history %s: %w", e.Kind, err)
		}
	}
	return nil
}

func (q *Queries) ListHistory(ctx context.Context, orderID int64) ([]HistoryEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id,order_id,kind,description,payload,actor_name,actor_role,COALESCE(reason,''),total_delta,created_at
		FROM order_history
		WHERE order_id=?
		ORDER BY created_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var payload string
		var ca int64
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Kind, &e.Description, &payload, &e.ActorName, &e.ActorRole, &e.Reason, &e.TotalDelta, &ca); err != nil {
			return nil, err
		}
		e.Payload = json.RawMessage(payload)
		e.CreatedAt = tFromUnix(ca)
		out = append(out, e)
	}
	return out, rows.Err()
}

/* ---------------- Push subscriptions ---------------- */

func (q *Queries) SavePushSubscription(ctx context.Context, p SavePushSubscriptionParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO push_subscriptions(user_id,endpoint,p256dh,auth,created_at)
		VALUES(?,?,?,?,?)
		ON CONFLICT(endpoint) DO UPDATE SET user_id=excluded.user_id, p256dh=excluded.p256dh, auth=excluded.auth`,
		p.UserID, p.Endpoint, p.P256dh, p.Auth, unixNow())
	return err
}

func (q *Queries) DeletePushSubscription(ctx context.Context, endpoint string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint=?`, endpoint)
	return err
}

// ListPushSubscriptionsByRole returns subscriptions of active users holding role.
func (q *Queries) ListPushSubscriptionsByRole(ctx context.Context, role string) ([]PushSubscription, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT s.id,s.user_id,s.endpoint,s.p256dh,s.auth
		FROM push_subscriptions s
		JOIN users u ON u.id=s.user_id
		WHERE u.role=? AND u.is_active=1
		ORDER BY s.id`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PushSubscription
	for rows.Next() {
		var s PushSubscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Endpoint, &s.P256dh, &s.Auth); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

/* ---------------- Diagnostics ---------------- */

// Counts returns row counts per table plus orders waiting for stock approval.
func (q *Queries) Counts(ctx context.Context) (map[string]int, error) {
	checks := []struct {
		name string
		qry  string
	}{
		{"users", "SELECT COUNT(1) FROM users"},
		{"products", "SELECT COUNT(1) FROM products"},
		{"orders", "SELECT COUNT(1) FROM orders"},
		{"pending_approvals", "SELECT COUNT(1) FROM orders WHERE status='pending_stock_approval'"},
		{"history", "SELECT COUNT(1) FROM order_history"},
		{"push_subscriptions", "SELECT COUNT(1) FROM push_subscriptions"},
	}
	out := make(map[string]int, len(checks))
	for _, it := range checks {
		var n int
		if err := q.db.QueryRowContext(ctx, it.qry).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", it.name, err)
		}
		out[it.name] = n
	}
	return out, nil
}
