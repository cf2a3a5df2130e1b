package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"frugal/internal/core"
)

var _ Ledger = (*SQLiteRepository)(nil)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "frugal.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestMigrationsSeedCategories(t *testing.T) {
	repo, path := newTestRepo(t)

	cats, err := repo.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(cats) != len(core.DefaultCategories) {
		t.Fatalf("expected %d categories, got %d", len(core.DefaultCategories), len(cats))
	}
	for i, c := range cats {
		want := core.DefaultCategories[i]
		if c.Name != want.Name || !c.Budget.Equal(want.Budget) {
			t.Errorf("category %d = %+v, want %+v", i, c, want)
		}
	}

	version, dirty, err := SchemaVersion(path)
	if err != nil || dirty || version != 1 {
		t.Fatalf("SchemaVersion() = %d, %v, %v", version, dirty, err)
	}

	// Re-running is a no-op
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}
}

func TestTransactionsRoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	split := "Me, Ana"

	first, err := repo.AddTransaction(ctx, core.Transaction{Description: "Groceries run", Amount: decimal.RequireFromString("45.99"), Category: "groceries"})
	if err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}
	if first.ID == 0 || first.Category != "Groceries" || first.Timestamp == "" {
		t.Fatalf("unexpected transaction: %+v", first)
	}
	if _, err := repo.AddTransaction(ctx, core.Transaction{Timestamp: "2025-01-01 20:00:00", Description: "Pizza", Amount: decimal.NewFromInt(60), Category: "Dining", SplitDetails: &split}); err != nil {
		t.Fatal(err)
	}

	txs, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 2 || txs[0].Description != "Pizza" {
		t.Fatalf("expected newest first, got %+v", txs)
	}
	if txs[0].SplitDetails == nil || *txs[0].SplitDetails != split {
		t.Errorf("split details lost: %+v", txs[0])
	}
	if txs[1].SplitDetails != nil {
		t.Errorf("expected nil split details")
	}
	if !txs[1].Amount.Equal(decimal.RequireFromString("45.99")) {
		t.Errorf("amount = %s, want 45.99", txs[1].Amount)
	}
}

func TestAddTransactionRejects(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.AddTransaction(ctx, core.Transaction{Amount: decimal.NewFromInt(5), Category: "Yachts"}); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if _, err := repo.AddTransaction(ctx, core.Transaction{Amount: decimal.NewFromInt(-5), Category: "Dining"}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestDebts(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	tx := core.Transaction{Description: "Pizza", Amount: decimal.NewFromInt(90), Category: "Dining"}
	if _, _, err := repo.AddSplit(ctx, tx, core.EqualSplit(tx.Amount, []string{"Ana", "Bob"}, "Pizza", "")); err != nil {
		t.Fatalf("AddSplit() error = %v", err)
	}
	debts, err := repo.ListDebts(ctx)
	if err != nil {
		t.Fatalf("ListDebts() error = %v", err)
	}
	if len(debts) != 2 {
		t.Fatalf("expected 2 debts, got %d", len(debts))
	}
	stats := core.NewDashboardStats(nil, nil, debts)
	if !stats.ActiveDebts.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("active debts = %s, want 60", stats.ActiveDebts)
	}
}

func TestAddSplitRollsBack(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	split := "Me, Ana, Bob"
	tx := core.Transaction{Description: "Pizza", Amount: decimal.NewFromInt(60), Category: "Dining", SplitDetails: &split}

	// Rounds to zero cents, so the insert fails the amount check after the
	// transaction row is already written.
	debts := []core.Debt{
		{Debtor: "Ana", Creditor: core.Me, Amount: decimal.NewFromInt(20)},
		{Debtor: "Bob", Creditor: core.Me, Amount: decimal.RequireFromString("0.001")},
	}
	if _, _, err := repo.AddSplit(ctx, tx, debts); err == nil {
		t.Fatal("expected AddSplit to fail")
	}
	txs, _ := repo.ListTransactions(ctx)
	saved, _ := repo.ListDebts(ctx)
	if len(txs) != 0 || len(saved) != 0 {
		t.Fatalf("rolled back split left %d transactions and %d debts", len(txs), len(saved))
	}

	debts[1].Amount = decimal.NewFromInt(20)
	got, gotDebts, err := repo.AddSplit(ctx, tx, debts)
	if err != nil {
		t.Fatalf("AddSplit() error = %v", err)
	}
	if got.ID == 0 || len(gotDebts) != 2 || gotDebts[1].ID == 0 {
		t.Fatalf("unexpected split: %+v %+v", got, gotDebts)
	}
	saved, _ = repo.ListDebts(ctx)
	if len(saved) != 2 {
		t.Fatalf("expected 2 debts, got %d", len(saved))
	}
}
