/*
Package sqlite provides the SQLite-backed persistence for the sales engine.

PURPOSE:
  Implements every engine source (products, prices, sales, lines, audit
  events) plus the CRUD writes the surrounding application performs. The
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  engine.ProductSource, engine.PriceSource, engine.SalesSource,
  engine.EventSource

UNIQUENESS BOUNDARY:
  External transaction identifiers are generated by the PURE
  engine.NextIdentifier; collision avoidance for two simultaneous creates
  lives HERE, in the UNIQUE constraint on sales.external_id. CreateSale
  surfaces a conflict as engine.ErrDuplicateIdentifier so callers can
  regenerate from the new last identifier and retry.

APPEND-ONLY TABLES:
  price_records and audit_events are append-only: inserts and ordered
  selects only, no UPDATE or DELETE statements exist for them. Every CRUD
  write on sales appends the matching audit event in the same database
  transaction, so the log can never disagree with the data it describes.

KEY TABLES:
  products:       Reference catalog (unit label is editable post-hoc)
  price_records:  Effective-dated price history (append-only)
  sales:          Transaction headers, external_id UNIQUE
  sale_lines:     Line items, deleted before their sale (referential order)
  audit_events:   Append-only actor/action/timestamp log

WAL MODE:
  SQLite is opened with WAL for better read concurrency: readers don't
  block, single writer at a time.

USAGE:
  st, err := sqlite.New("./sales.db")
  eng := engine.New(st, st, st, st, logger)

SEE ALSO:
  - engine/sources.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/sachifps/sell-smart-start-sub000/engine"
)

// TableSales and TableProducts name the audited tables in audit_events.
const (
	TableSales    = "sales"
	TableProducts = "products"
)

// Store implements all engine sources and the CRUD write surface.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		unit TEXT NOT NULL
	);

	-- Append-only price history. No UPDATE, no DELETE.
	CREATE TABLE IF NOT EXISTS price_records (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL REFERENCES products(id),
		effective_date TEXT NOT NULL,
		unit_price TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_price_records_product_date
		ON price_records(product_id, effective_date);

	-- One external identifier maps to exactly one sale. The UNIQUE
	-- constraint is the collision barrier for concurrent creators.
	CREATE TABLE IF NOT EXISTS sales (
		external_id TEXT PRIMARY KEY,
		sale_date TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		employee_id TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sales_date ON sales(sale_date);

	CREATE TABLE IF NOT EXISTS sale_lines (
		id TEXT PRIMARY KEY,
		sale_id TEXT NOT NULL REFERENCES sales(external_id),
		product_id TEXT NOT NULL REFERENCES products(id),
		quantity TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sale_lines_sale ON sale_lines(sale_id);

	-- Append-only audit log, ordered by (occurred_at, rowid).
	CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		table_name TEXT NOT NULL,
		record_id TEXT NOT NULL,
		action TEXT NOT NULL,
		actor TEXT NOT NULL,
		occurred_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_events_table_record
		ON audit_events(table_name, record_id, occurred_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PRODUCTS - Reference data
// =============================================================================

// SaveProduct inserts or replaces a product and appends the audit event.
func (s *Store) SaveProduct(ctx context.Context, p engine.Product, actor string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM products WHERE id = ?`, string(p.ID)).Scan(&exists)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO products (id, name, unit) VALUES (?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name, unit = excluded.unit`,
			string(p.ID), p.Name, string(p.Unit))
		if err != nil {
			return err
		}
		action := engine.ActionCreated
		if exists > 0 {
			action = engine.ActionUpdated
		}
		return appendEvent(ctx, tx, TableProducts, engine.RecordID(p.ID), action, actor)
	})
}

func (s *Store) ListProducts(ctx context.Context) ([]engine.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, unit FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []engine.Product
	for rows.Next() {
		var p engine.Product
		var id, unit string
		if err := rows.Scan(&id, &p.Name, &unit); err != nil {
			return nil, err
		}
		p.ID = engine.ProductID(id)
		p.Unit = engine.Unit(unit)
		products = append(products, p)
	}
	return products, rows.Err()
}

// =============================================================================
// PRICE HISTORY - Append-only
// =============================================================================

// AddPriceRecord appends one record to the product's price history.
func (s *Store) AddPriceRecord(ctx context.Context, r engine.PriceRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO price_records (id, product_id, effective_date, unit_price) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), string(r.ProductID), r.EffectiveDate.String(), r.UnitPrice.String())
	return err
}

// ListPrices returns price history, ordered by effective date then insertion
// order (rowid) so the engine's latest-inserted tie-break holds.
func (s *Store) ListPrices(ctx context.Context, productIDs ...engine.ProductID) ([]engine.PriceRecord, error) {
	query := `SELECT product_id, effective_date, unit_price FROM price_records`
	var args []any
	if len(productIDs) > 0 {
		query += ` WHERE product_id IN (` + placeholders(len(productIDs)) + `)`
		for _, id := range productIDs {
			args = append(args, string(id))
		}
	}
	query += ` ORDER BY effective_date, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []engine.PriceRecord
	for rows.Next() {
		var productID, dateStr, priceStr string
		if err := rows.Scan(&productID, &dateStr, &priceStr); err != nil {
			return nil, err
		}
		date, err := engine.ParseDate(dateStr)
		if err != nil {
			return nil, err
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt unit_price %q: %w", priceStr, err)
		}
		records = append(records, engine.PriceRecord{
			ProductID:     engine.ProductID(productID),
			EffectiveDate: date,
			UnitPrice:     price,
		})
	}
	return records, rows.Err()
}

// =============================================================================
// SALES - CRUD writes with audit events in the same transaction
// =============================================================================

// CreateSale inserts a sale with its lines and appends the created event.
// Returns engine.ErrDuplicateIdentifier when the external identifier is
// already taken; the caller regenerates and retries.
func (s *Store) CreateSale(ctx context.Context, sale engine.Sale, lines []engine.SaleLine, actor string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sales (external_id, sale_date, customer_id, employee_id) VALUES (?, ?, ?, ?)`,
			string(sale.ID), sale.Date.String(), sale.CustomerID, sale.EmployeeID)
		if err != nil {
			if isUniqueViolation(err) {
				return engine.ErrDuplicateIdentifier
			}
			return err
		}
		for _, line := range lines {
			if err := insertLine(ctx, tx, sale.ID, line); err != nil {
				return err
			}
		}
		return appendEvent(ctx, tx, TableSales, engine.RecordID(sale.ID), engine.ActionCreated, actor)
	})
}

// UpdateSale rewrites the header (date/customer/employee) and, when lines
// is non-nil, replaces the line set. Appends the updated event.
func (s *Store) UpdateSale(ctx context.Context, sale engine.Sale, lines []engine.SaleLine, actor string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE sales SET sale_date = ?, customer_id = ?, employee_id = ? WHERE external_id = ?`,
			sale.Date.String(), sale.CustomerID, sale.EmployeeID, string(sale.ID))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return engine.ErrSaleNotFound
		}
		if lines != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM sale_lines WHERE sale_id = ?`, string(sale.ID)); err != nil {
				return err
			}
			for _, line := range lines {
				if err := insertLine(ctx, tx, sale.ID, line); err != nil {
					return err
				}
			}
		}
		return appendEvent(ctx, tx, TableSales, engine.RecordID(sale.ID), engine.ActionUpdated, actor)
	})
}

// DeleteSale removes the dependent lines first, then the header, and
// appends the deleted event. The audit log keeps the record's history.
func (s *Store) DeleteSale(ctx context.Context, id engine.SaleID, actor string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sale_lines WHERE sale_id = ?`, string(id)); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE external_id = ?`, string(id))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return engine.ErrSaleNotFound
		}
		return appendEvent(ctx, tx, TableSales, engine.RecordID(id), engine.ActionDeleted, actor)
	})
}

// GetSale loads one sale header and its lines.
func (s *Store) GetSale(ctx context.Context, id engine.SaleID) (engine.Sale, []engine.SaleLine, error) {
	var sale engine.Sale
	var extID, dateStr string
	err := s.db.QueryRowContext(ctx,
		`SELECT external_id, sale_date, customer_id, employee_id FROM sales WHERE external_id = ?`,
		string(id)).Scan(&extID, &dateStr, &sale.CustomerID, &sale.EmployeeID)
	if err == sql.ErrNoRows {
		return engine.Sale{}, nil, engine.ErrSaleNotFound
	}
	if err != nil {
		return engine.Sale{}, nil, err
	}
	sale.ID = engine.SaleID(extID)
	if sale.Date, err = engine.ParseDate(dateStr); err != nil {
		return engine.Sale{}, nil, err
	}
	lines, err := s.ListLines(ctx, id)
	if err != nil {
		return engine.Sale{}, nil, err
	}
	return sale, lines, nil
}

// LastIdentifier returns the most recently created external identifier,
// or "" when no sale exists yet. Creation order, not lexical order: the
// identifier scheme's width can grow, which breaks string comparison.
func (s *Store) LastIdentifier(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT external_id FROM sales ORDER BY rowid DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

func (s *Store) ListSales(ctx context.Context, from, to engine.Date) ([]engine.Sale, error) {
	query := `SELECT external_id, sale_date, customer_id, employee_id FROM sales`
	var clauses []string
	var args []any
	if !from.IsZero() {
		clauses = append(clauses, `sale_date >= ?`)
		args = append(args, from.String())
	}
	if !to.IsZero() {
		clauses = append(clauses, `sale_date <= ?`)
		args = append(args, to.String())
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	query += ` ORDER BY sale_date, external_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []engine.Sale
	for rows.Next() {
		var sale engine.Sale
		var extID, dateStr string
		if err := rows.Scan(&extID, &dateStr, &sale.CustomerID, &sale.EmployeeID); err != nil {
			return nil, err
		}
		sale.ID = engine.SaleID(extID)
		if sale.Date, err = engine.ParseDate(dateStr); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (s *Store) ListLines(ctx context.Context, saleIDs ...engine.SaleID) ([]engine.SaleLine, error) {
	query := `SELECT sale_id, product_id, quantity FROM sale_lines`
	var args []any
	if len(saleIDs) > 0 {
		query += ` WHERE sale_id IN (` + placeholders(len(saleIDs)) + `)`
		for _, id := range saleIDs {
			args = append(args, string(id))
		}
	}
	query += ` ORDER BY sale_id, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []engine.SaleLine
	for rows.Next() {
		var saleID, productID, qtyStr string
		if err := rows.Scan(&saleID, &productID, &qtyStr); err != nil {
			return nil, err
		}
		qty, err := decimal.NewFromString(qtyStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt quantity %q: %w", qtyStr, err)
		}
		lines = append(lines, engine.SaleLine{
			SaleID:    engine.SaleID(saleID),
			ProductID: engine.ProductID(productID),
			Quantity:  qty,
		})
	}
	return lines, rows.Err()
}

// =============================================================================
// AUDIT EVENTS - Append-only
// =============================================================================

// ListEvents returns a table's audit log ordered by timestamp then
// insertion order, the ordering the attribution fold requires.
func (s *Store) ListEvents(ctx context.Context, table string, recordIDs ...engine.RecordID) ([]engine.AuditEvent, error) {
	query := `SELECT id, table_name, record_id, action, actor, occurred_at FROM audit_events WHERE table_name = ?`
	args := []any{table}
	if len(recordIDs) > 0 {
		query += ` AND record_id IN (` + placeholders(len(recordIDs)) + `)`
		for _, id := range recordIDs {
			args = append(args, string(id))
		}
	}
	query += ` ORDER BY occurred_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []engine.AuditEvent
	for rows.Next() {
		var e engine.AuditEvent
		var recordID, action, atStr string
		if err := rows.Scan(&e.ID, &e.Table, &recordID, &action, &e.Actor, &atStr); err != nil {
			return nil, err
		}
		e.RecordID = engine.RecordID(recordID)
		e.Action = engine.AuditAction(action)
		if e.At, err = time.Parse(time.RFC3339Nano, atStr); err != nil {
			return nil, fmt.Errorf("corrupt occurred_at %q: %w", atStr, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertLine(ctx context.Context, tx *sql.Tx, saleID engine.SaleID, line engine.SaleLine) error {
	if line.Quantity.IsNegative() {
		return &engine.InvalidQuantityError{
			SaleID:    saleID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		}
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sale_lines (id, sale_id, product_id, quantity) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), string(saleID), string(line.ProductID), line.Quantity.String())
	return err
}

func appendEvent(ctx context.Context, tx *sql.Tx, table string, recordID engine.RecordID, action engine.AuditAction, actor string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO audit_events (id, table_name, record_id, action, actor, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), table, string(recordID), string(action), actor,
		time.Now().UTC().Format(eventTimeLayout))
	return err
}

// eventTimeLayout keeps a fixed-width fraction so the TEXT column's
// lexical order is chronological order. RFC3339Nano trims trailing
// zeros, which breaks that.
const eventTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
