package db

import (
	"database/sql"
	"fmt"
)

func Migrate(db *sql.DB) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,

		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('admin','waiter','kitchen')),
			display_name TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s','now')),
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		);`,

		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			category TEXT NOT NULL,
			price TEXT NOT NULL DEFAULT '0',
			description TEXT NOT NULL DEFAULT '',
			is_available INTEGER NOT NULL DEFAULT 1,
			prep_minutes INTEGER NULL,
			stock INTEGER NOT NULL DEFAULT 0 CHECK(stock >= 0),
			min_stock INTEGER NULL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s','now')),
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		);`,

		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_number INTEGER NOT NULL CHECK(table_number > 0),
			waiter_id INTEGER NULL,
			waiter_name TEXT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('pending_stock_approval','pending','in_preparation','ready','completed','cancelled')),
			note TEXT NOT NULL DEFAULT '',
			total TEXT NOT NULL DEFAULT '0',
			prep_minutes INTEGER NOT NULL DEFAULT 0,
			modified INTEGER NOT NULL DEFAULT 0,
			without_stock INTEGER NOT NULL DEFAULT 0,
			shortages TEXT NULL,
			approved_by_id INTEGER NULL,
			approval_reason TEXT NOT NULL DEFAULT '',
			printed INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s','now')),
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now')),
			FOREIGN KEY(waiter_id) REFERENCES users(id) ON DELETE SET NULL,
			FOREIGN KEY(approved_by_id) REFERENCES users(id) ON DELETE SET NULL
		);`,

		`CREATE TABLE IF NOT EXISTS order_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			quantity INTEGER NOT NULL CHECK(quantity > 0),
			unit_price TEXT NOT NULL,
			subtotal TEXT NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			stock_taken INTEGER NOT NULL DEFAULT 0 CHECK(stock_taken >= 0),
			FOREIGN KEY(order_id) REFERENCES orders(id) ON DELETE CASCADE,
			FOREIGN KEY(product_id) REFERENCES products(id) ON DELETE RESTRICT
		);`,

		// History rows pin their order: RESTRICT keeps an order with an audit trail from being deleted.
		`CREATE TABLE IF NOT EXISTS order_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			description TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT '{}',
			actor_name TEXT NOT NULL,
			actor_role TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			total_delta TEXT NOT NULL DEFAULT '0',
			created_at INTEGER NOT NULL DEFAULT (strftime('%s','now')),
			FOREIGN KEY(order_id) REFERENCES orders(id) ON DELETE RESTRICT
		);`,

		`CREATE TABLE IF NOT EXISTS push_subscriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			endpoint TEXT NOT NULL UNIQUE,
			p256dh TEXT NOT NULL,
			auth TEXT NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s','now')),
			FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
		);`,

		`CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);`,
		`CREATE INDEX IF NOT EXISTS idx_order_history_order_created ON order_history(order_id, created_at);`,
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	// Databases created before items tracked their deducted stock.
	if err := addColumnIfMissing(tx, "order_items", "stock_taken", "INTEGER NOT NULL DEFAULT 0 CHECK(stock_taken >= 0)"); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func addColumnIfMissing(tx *sql.Tx, table, column, decl string) error {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_, err = tx.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}
