/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

INTERFACES IMPLEMENTED:
  ledger.Store:           transaction log + entities
  ledger.CheckpointStore: derived-state checkpoints

APPEND-ONLY ENFORCEMENT:
  No UPDATE and no DELETE ever touch the transactions table. The only
  deletable tables are the checkpoint tables, which are a disposable cache
  by contract.

KEY TABLES:
  transactions:        the immutable log; UNIQUE(time_ns) enforces the
                       globally-unique-time invariant at the database level
  users, products:     entities with unique identity fields
  checkpoints,
  checkpoint_balances,
  checkpoint_products: cached derived state keyed by the covered tx id

TIME ENCODING:
  Timestamps are stored as unix nanoseconds (INTEGER). Because time is
  globally unique, ORDER BY time_ns alone realizes the (time, id) total
  order; id stays in the ORDER BY as the documented secondary key.

WAL MODE:
  SQLite is opened with WAL so derivation reads don't block the single
  writer.

SEE ALSO:
  - ledger/store.go: interface definitions
  - ledger/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/kiosk-ledger/ledger"
)

// Store implements ledger.Store and ledger.CheckpointStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: the store serializes writes anyway, and a pooled
	// ":memory:" DSN would otherwise open a fresh empty database per
	// connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		card TEXT NOT NULL DEFAULT '',
		rfid TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bar_code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL UNIQUE,
		hidden INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- The append-only log. UNIQUE(time_ns) is the total-order backbone.
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		time_ns INTEGER NOT NULL UNIQUE,
		tx_type TEXT NOT NULL,
		user_id INTEGER NOT NULL REFERENCES users(id),
		product_id INTEGER REFERENCES products(id),
		transfer_user_id INTEGER REFERENCES users(id),
		joint_tx_id INTEGER REFERENCES transactions(id),
		amount INTEGER NOT NULL DEFAULT 0,
		per_product INTEGER NOT NULL DEFAULT 0,
		product_count INTEGER NOT NULL DEFAULT 0,
		interest_rate_percent INTEGER NOT NULL DEFAULT 0,
		penalty_threshold INTEGER NOT NULL DEFAULT 0,
		penalty_multiplier_percent INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT ''
	);

	-- Balance derivation (hot path: one user's history in order)
	CREATE INDEX IF NOT EXISTS idx_transactions_user_time
		ON transactions(user_id, time_ns);
	CREATE INDEX IF NOT EXISTS idx_transactions_transfer_time
		ON transactions(transfer_user_id, time_ns)
		WHERE transfer_user_id IS NOT NULL;

	-- Price/stock derivation and ownership inference
	CREATE INDEX IF NOT EXISTS idx_transactions_product_time
		ON transactions(product_id, time_ns)
		WHERE product_id IS NOT NULL;

	-- Parameter resolution (latest adjustment at or before a bound)
	CREATE INDEX IF NOT EXISTS idx_transactions_type_time
		ON transactions(tx_type, time_ns);

	-- Joint share counting
	CREATE INDEX IF NOT EXISTS idx_transactions_joint
		ON transactions(joint_tx_id)
		WHERE joint_tx_id IS NOT NULL;

	-- Checkpoints: the disposable cache
	CREATE TABLE IF NOT EXISTS checkpoints (
		tx_id INTEGER PRIMARY KEY,
		tx_time_ns INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS checkpoint_balances (
		tx_id INTEGER NOT NULL REFERENCES checkpoints(tx_id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL,
		balance INTEGER NOT NULL,
		PRIMARY KEY (tx_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_checkpoint_balances_user
		ON checkpoint_balances(user_id, tx_id DESC);

	CREATE TABLE IF NOT EXISTS checkpoint_products (
		tx_id INTEGER NOT NULL REFERENCES checkpoints(tx_id) ON DELETE CASCADE,
		product_id INTEGER NOT NULL,
		price INTEGER NOT NULL,
		stock INTEGER NOT NULL,
		PRIMARY KEY (tx_id, product_id)
	);

	CREATE INDEX IF NOT EXISTS idx_checkpoint_products_product
		ON checkpoint_products(product_id, tx_id DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTION LOG (ledger.Store interface)
// =============================================================================

const txColumns = `id, time_ns, tx_type, user_id, product_id, transfer_user_id, joint_tx_id,
	amount, per_product, product_count, interest_rate_percent, penalty_threshold,
	penalty_multiplier_percent, message`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Append persists one transaction and returns its assigned id.
func (s *Store) Append(ctx context.Context, tx ledger.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return appendTx(ctx, s.db, tx)
}

func appendTx(ctx context.Context, db execer, tx ledger.Transaction) (int64, error) {
	query := `
		INSERT INTO transactions
		(time_ns, tx_type, user_id, product_id, transfer_user_id, joint_tx_id,
		 amount, per_product, product_count, interest_rate_percent,
		 penalty_threshold, penalty_multiplier_percent, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := db.ExecContext(ctx, query,
		tx.Time.UnixNano(),
		tx.Type,
		tx.UserID,
		nullInt(tx.ProductID),
		nullInt(tx.TransferUserID),
		nullInt(tx.JointTxID),
		tx.Amount,
		tx.PerProduct,
		tx.ProductCount,
		tx.InterestRatePercent,
		tx.PenaltyThreshold,
		tx.PenaltyMultiplierPercent,
		tx.Message,
	)
	if err != nil {
		return 0, mapTxError(err)
	}
	return res.LastInsertId()
}

// AppendJoint persists the parent and its children in one database
// transaction, linking each child to the parent's assigned id. All-or-nothing.
func (s *Store) AppendJoint(ctx context.Context, parent ledger.Transaction, children []ledger.Transaction) ([]ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	parentID, err := appendTx(ctx, sqlTx, parent)
	if err != nil {
		return nil, err
	}
	parent.ID = parentID

	out := append(make([]ledger.Transaction, 0, len(children)+1), parent)
	for _, c := range children {
		c.JointTxID = &parentID
		id, err := appendTx(ctx, sqlTx, c)
		if err != nil {
			return nil, err
		}
		c.ID = id
		out = append(out, c)
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a transaction by id, or nil.
func (s *Store) Get(ctx context.Context, id int64) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryOneTransaction(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE id = ?", id)
}

// Latest returns the most recent transaction, or nil for an empty log.
func (s *Store) Latest(ctx context.Context) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryOneTransaction(ctx,
		"SELECT "+txColumns+" FROM transactions ORDER BY time_ns DESC, id DESC LIMIT 1")
}

// Range returns transactions matching the filter in ascending (time, id)
// order.
func (s *Store) Range(ctx context.Context, f ledger.Filter) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if f.UserID != nil {
		where = append(where, "(user_id = ? OR transfer_user_id = ?)")
		args = append(args, *f.UserID, *f.UserID)
	}
	if f.ProductID != nil {
		where = append(where, "product_id = ?")
		args = append(args, *f.ProductID)
	}
	if len(f.Types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Types)), ",")
		where = append(where, "tx_type IN ("+placeholders+")")
		for _, t := range f.Types {
			args = append(args, t)
		}
	}
	if f.AfterNS != nil {
		where = append(where, "time_ns > ?")
		args = append(args, *f.AfterNS)
	}
	if f.Until != nil {
		if f.Until.Inclusive {
			where = append(where, "time_ns <= ?")
		} else {
			where = append(where, "time_ns < ?")
		}
		args = append(args, f.Until.TimeNS)
	}

	query := "SELECT " + txColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	if f.Limit > 0 {
		// Limit keeps the most recent matches; the result stays ascending.
		query = "SELECT " + txColumns + " FROM (" + query +
			" ORDER BY time_ns DESC, id DESC LIMIT ?) ORDER BY time_ns ASC, id ASC"
		args = append(args, f.Limit)
	} else {
		query += " ORDER BY time_ns ASC, id ASC"
	}

	return s.queryTransactions(ctx, query, args...)
}

// LatestOfType returns the most recent transaction of the given type within
// the bound, or nil.
func (s *Store) LatestOfType(ctx context.Context, t ledger.TxType, until *ledger.Position) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + txColumns + " FROM transactions WHERE tx_type = ?"
	args := []any{t}
	if until != nil {
		if until.Inclusive {
			query += " AND time_ns <= ?"
		} else {
			query += " AND time_ns < ?"
		}
		args = append(args, until.TimeNS)
	}
	query += " ORDER BY time_ns DESC, id DESC LIMIT 1"

	return s.queryOneTransaction(ctx, query, args...)
}

// JointShares counts JOINT_BUY_PRODUCT children per participant.
func (s *Store) JointShares(ctx context.Context, jointTxID int64) (map[int64]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, COUNT(*) FROM transactions
		 WHERE tx_type = ? AND joint_tx_id = ?
		 GROUP BY user_id`,
		ledger.TxJointBuy, jointTxID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shares := make(map[int64]int64)
	for rows.Next() {
		var userID, n int64
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, err
		}
		shares[userID] = n
	}
	return shares, rows.Err()
}

func (s *Store) queryOneTransaction(ctx context.Context, query string, args ...any) (*ledger.Transaction, error) {
	txs, err := s.queryTransactions(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}
	return &txs[0], nil
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (ledger.Transaction, error) {
	var (
		tx                                   ledger.Transaction
		timeNS                               int64
		productID, transferUserID, jointTxID sql.NullInt64
	)

	err := rows.Scan(
		&tx.ID, &timeNS, &tx.Type, &tx.UserID,
		&productID, &transferUserID, &jointTxID,
		&tx.Amount, &tx.PerProduct, &tx.ProductCount,
		&tx.InterestRatePercent, &tx.PenaltyThreshold, &tx.PenaltyMultiplierPercent,
		&tx.Message,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.Time = time.Unix(0, timeNS).UTC()
	tx.ProductID = fromNullInt(productID)
	tx.TransferUserID = fromNullInt(transferUserID)
	tx.JointTxID = fromNullInt(jointTxID)
	return tx, nil
}

// =============================================================================
// ENTITIES
// =============================================================================

// CreateUser persists a user and returns it with its assigned id.
func (s *Store) CreateUser(ctx context.Context, u ledger.User) (ledger.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (name, card, rfid, created_at) VALUES (?, ?, ?, ?)",
		u.Name, u.Card, u.RFID, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.User{}, ledger.ErrDuplicateUser
		}
		return ledger.User{}, err
	}
	u.ID, err = res.LastInsertId()
	return u, err
}

// GetUser returns a user by id, or nil.
func (s *Store) GetUser(ctx context.Context, id int64) (*ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		u         ledger.User
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, card, rfid, created_at FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Name, &u.Card, &u.RFID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, card, rfid, created_at FROM users ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []ledger.User
	for rows.Next() {
		var (
			u         ledger.User
			createdAt string
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Card, &u.RFID, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateProduct persists a product and returns it with its assigned id.
func (s *Store) CreateProduct(ctx context.Context, p ledger.Product) (ledger.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO products (bar_code, name, hidden, created_at) VALUES (?, ?, ?, ?)",
		p.BarCode, p.Name, p.Hidden, p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.Product{}, ledger.ErrDuplicateProduct
		}
		return ledger.Product{}, err
	}
	p.ID, err = res.LastInsertId()
	return p, err
}

// GetProduct returns a product by id, or nil.
func (s *Store) GetProduct(ctx context.Context, id int64) (*ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryProduct(ctx,
		"SELECT id, bar_code, name, hidden, created_at FROM products WHERE id = ?", id)
}

// GetProductByBarCode returns a product by barcode, or nil.
func (s *Store) GetProductByBarCode(ctx context.Context, barCode string) (*ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryProduct(ctx,
		"SELECT id, bar_code, name, hidden, created_at FROM products WHERE bar_code = ?", barCode)
}

func (s *Store) queryProduct(ctx context.Context, query string, args ...any) (*ledger.Product, error) {
	var (
		p         ledger.Product
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&p.ID, &p.BarCode, &p.Name, &p.Hidden, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// ListProducts returns all products ordered by name.
func (s *Store) ListProducts(ctx context.Context) ([]ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, bar_code, name, hidden, created_at FROM products ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []ledger.Product
	for rows.Next() {
		var (
			p         ledger.Product
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.BarCode, &p.Name, &p.Hidden, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		products = append(products, p)
	}
	return products, rows.Err()
}

// =============================================================================
// CHECKPOINT STORE (ledger.CheckpointStore interface)
// =============================================================================

// SaveCheckpoint persists the checkpoint and its entity rows atomically.
// Re-saving the same tx_id upserts, which keeps cache updates idempotent.
func (s *Store) SaveCheckpoint(ctx context.Context, cp ledger.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx,
		`INSERT INTO checkpoints (tx_id, tx_time_ns, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(tx_id) DO UPDATE SET created_at = excluded.created_at`,
		cp.TxID, cp.TxTimeNS, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}

	for userID, balance := range cp.Balances {
		_, err = sqlTx.ExecContext(ctx,
			`INSERT INTO checkpoint_balances (tx_id, user_id, balance) VALUES (?, ?, ?)
			 ON CONFLICT(tx_id, user_id) DO UPDATE SET balance = excluded.balance`,
			cp.TxID, userID, balance)
		if err != nil {
			return err
		}
	}
	for productID, ps := range cp.Products {
		_, err = sqlTx.ExecContext(ctx,
			`INSERT INTO checkpoint_products (tx_id, product_id, price, stock) VALUES (?, ?, ?, ?)
			 ON CONFLICT(tx_id, product_id) DO UPDATE SET price = excluded.price, stock = excluded.stock`,
			cp.TxID, productID, ps.Price, ps.Stock)
		if err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

// LatestCheckpoint returns the newest checkpoint without its entity maps.
func (s *Store) LatestCheckpoint(ctx context.Context) (*ledger.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryCheckpoint(ctx,
		"SELECT tx_id, tx_time_ns FROM checkpoints ORDER BY tx_id DESC LIMIT 1")
}

// LatestCheckpointAtOrBefore returns the newest checkpoint admitted by the
// bound, or nil.
func (s *Store) LatestCheckpointAtOrBefore(ctx context.Context, until *ledger.Position) (*ledger.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT tx_id, tx_time_ns FROM checkpoints"
	var args []any
	if until != nil {
		if until.Inclusive {
			query += " WHERE tx_time_ns <= ?"
		} else {
			query += " WHERE tx_time_ns < ?"
		}
		args = append(args, until.TimeNS)
	}
	query += " ORDER BY tx_id DESC LIMIT 1"

	return s.queryCheckpoint(ctx, query, args...)
}

func (s *Store) queryCheckpoint(ctx context.Context, query string, args ...any) (*ledger.Checkpoint, error) {
	var cp ledger.Checkpoint
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&cp.TxID, &cp.TxTimeNS)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// CachedBalance merges backward through the checkpoint chain: the newest
// row at or before asOfTxID wins.
func (s *Store) CachedBalance(ctx context.Context, asOfTxID, userID int64) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM checkpoint_balances
		 WHERE user_id = ? AND tx_id <= ?
		 ORDER BY tx_id DESC LIMIT 1`,
		userID, asOfTxID,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return balance, true, nil
}

// CachedPriceStock is the product analog of CachedBalance.
func (s *Store) CachedPriceStock(ctx context.Context, asOfTxID, productID int64) (ledger.PriceStock, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ps ledger.PriceStock
	err := s.db.QueryRowContext(ctx,
		`SELECT price, stock FROM checkpoint_products
		 WHERE product_id = ? AND tx_id <= ?
		 ORDER BY tx_id DESC LIMIT 1`,
		productID, asOfTxID,
	).Scan(&ps.Price, &ps.Stock)
	if err == sql.ErrNoRows {
		return ledger.PriceStock{}, false, nil
	}
	if err != nil {
		return ledger.PriceStock{}, false, err
	}
	return ps, true, nil
}

// DeleteCheckpoints drops every checkpoint. By the cache-transparency
// contract this must not change any query result.
func (s *Store) DeleteCheckpoints(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"checkpoint_balances", "checkpoint_products", "checkpoints"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func fromNullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func mapTxError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "transactions.time_ns"):
		return ledger.ErrDuplicateTime
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("dangling reference: %w", err)
	default:
		return fmt.Errorf("failed to append transaction: %w", err)
	}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
