package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"frugal/internal/core"

	_ "modernc.org/sqlite"
)

// TimestampLayout is how ledger rows record their creation time.
const TimestampLayout = "2006-01-02 15:04:05"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// AddTransaction implements TransactionWriter
func (r *SQLiteRepository) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := r.prepareTransaction(ctx, &t); err != nil {
		return core.Transaction{}, err
	}
	if err := insertTransaction(ctx, r.db, &t); err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"description", t.Description,
		"amount", t.Amount.StringFixed(2),
		"category", t.Category)

	return t, nil
}

func (r *SQLiteRepository) prepareTransaction(ctx context.Context, t *core.Transaction) error {
	if !t.Amount.IsPositive() {
		return core.ErrInvalidAmount
	}
	name, err := r.categoryName(ctx, t.Category)
	if err != nil {
		return err
	}
	t.Category = name
	if t.Timestamp == "" {
		t.Timestamp = time.Now().Format(TimestampLayout)
	}
	return nil
}

func insertTransaction(ctx context.Context, db execer, t *core.Transaction) error {
	var split sql.NullString
	if t.SplitDetails != nil {
		split = sql.NullString{String: *t.SplitDetails, Valid: true}
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO "transaction" (timestamp, description, amount_cents, category, split_details) VALUES (?, ?, ?, ?, ?)`,
		t.Timestamp, t.Description, toCents(t.Amount), t.Category, split)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("read transaction id: %w", err)
	}
	return nil
}

// AddSplit implements SplitWriter. The transaction and its debts are written
// in one database transaction.
func (r *SQLiteRepository) AddSplit(ctx context.Context, t core.Transaction, debts []core.Debt) (core.Transaction, []core.Debt, error) {
	if err := r.prepareTransaction(ctx, &t); err != nil {
		return core.Transaction{}, nil, err
	}
	saved := make([]core.Debt, len(debts))
	for i, d := range debts {
		if err := prepareDebt(&d); err != nil {
			return core.Transaction{}, nil, err
		}
		saved[i] = d
	}

	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, nil, fmt.Errorf("begin split: %w", err)
	}
	defer dbtx.Rollback()

	if err := insertTransaction(ctx, dbtx, &t); err != nil {
		return core.Transaction{}, nil, err
	}
	for i := range saved {
		if err := insertDebt(ctx, dbtx, &saved[i]); err != nil {
			return core.Transaction{}, nil, err
		}
	}
	if err := dbtx.Commit(); err != nil {
		return core.Transaction{}, nil, fmt.Errorf("commit split: %w", err)
	}

	slog.InfoContext(ctx, "Split saved to SQLite",
		"id", t.ID,
		"description", t.Description,
		"amount", t.Amount.StringFixed(2),
		"debts", len(saved))
	return t, saved, nil
}

// ListTransactions implements TransactionLister
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, timestamp, description, amount_cents, category, split_details FROM "transaction" ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var (
			t     core.Transaction
			cents int64
			split sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.Description, &cents, &t.Category, &split); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Amount = fromCents(cents)
		if split.Valid {
			s := split.String
			t.SplitDetails = &s
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListCategories implements CategoryReader
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, budget_cents FROM category ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c     core.Category
			cents int64
		)
		if err := rows.Scan(&c.Name, &cents); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Budget = fromCents(cents)
		out = append(out, c)
	}
	return out, rows.Err()
}

func prepareDebt(d *core.Debt) error {
	if d.Status == "" {
		d.Status = core.DebtUnsettled
	}
	if d.Timestamp == "" {
		d.Timestamp = time.Now().Format(TimestampLayout)
	}
	return d.Validate()
}

func insertDebt(ctx context.Context, db execer, d *core.Debt) error {
	res, err := db.ExecContext(ctx,
		`INSERT INTO debt (debtor, creditor, amount_cents, description, timestamp, status) VALUES (?, ?, ?, ?, ?, ?)`,
		d.Debtor, d.Creditor, toCents(d.Amount), d.Description, d.Timestamp, d.Status)
	if err != nil {
		return fmt.Errorf("create debt: %w", err)
	}
	if d.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("read debt id: %w", err)
	}
	return nil
}

// ListDebts implements DebtLister
func (r *SQLiteRepository) ListDebts(ctx context.Context) ([]core.Debt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, debtor, creditor, amount_cents, description, timestamp, status FROM debt ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	var out []core.Debt
	for rows.Next() {
		var (
			d     core.Debt
			cents int64
		)
		if err := rows.Scan(&d.ID, &d.Debtor, &d.Creditor, &cents, &d.Description, &d.Timestamp, &d.Status); err != nil {
			return nil, fmt.Errorf("scan debt: %w", err)
		}
		d.Amount = fromCents(cents)
		out = append(out, d)
	}
	return out, rows.Err()
}

// categoryName resolves name case-insensitively to the stored spelling.
func (r *SQLiteRepository) categoryName(ctx context.Context, name string) (string, error) {
	var stored string
	err := r.db.QueryRowContext(ctx, `SELECT name FROM category WHERE name = ? COLLATE NOCASE`, name).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	if err != nil {
		return "", fmt.Errorf("lookup category: %w", err)
	}
	return stored, nil
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
