package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"frugal/internal/core"
	"frugal/internal/storage"
)

var _ storage.Ledger = (*Store)(nil)

func TestMemoryStoreAddAndList(t *testing.T) {
	s := NewDefault()
	s.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }
	ctx := context.Background()

	first, err := s.AddTransaction(ctx, core.Transaction{Description: "Lunch", Amount: decimal.NewFromInt(12), Category: "dining"})
	if err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}
	if first.ID != 1 || first.Category != "Dining" || first.Timestamp != "2025-03-04 05:06:07" {
		t.Fatalf("unexpected transaction: %+v", first)
	}
	if _, err := s.AddTransaction(ctx, core.Transaction{Description: "Bus", Amount: decimal.NewFromInt(2), Category: "Transport"}); err != nil {
		t.Fatal(err)
	}

	txs, _ := s.ListTransactions(ctx)
	if len(txs) != 2 || txs[0].Description != "Bus" || txs[1].Description != "Lunch" {
		t.Fatalf("expected newest first, got %+v", txs)
	}
}

func TestMemoryStoreRejects(t *testing.T) {
	s := NewDefault()
	ctx := context.Background()

	if _, err := s.AddTransaction(ctx, core.Transaction{Amount: decimal.NewFromInt(1), Category: "Yachts"}); !errors.Is(err, storage.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if _, err := s.AddTransaction(ctx, core.Transaction{Amount: decimal.Zero, Category: "Dining"}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	lunch := core.Transaction{Amount: decimal.NewFromInt(1), Category: "Dining"}
	if _, _, err := s.AddSplit(ctx, lunch, []core.Debt{{Debtor: "Ana", Creditor: core.Me}}); err == nil {
		t.Fatal("expected error for zero debt")
	}
}

func TestMemoryStoreDebts(t *testing.T) {
	s := NewDefault()
	ctx := context.Background()
	taxi := core.Transaction{Amount: decimal.NewFromInt(30), Category: "Transport"}
	_, saved, err := s.AddSplit(ctx, taxi, []core.Debt{{Debtor: "Ana", Creditor: core.Me, Amount: decimal.NewFromInt(15)}})
	if err != nil {
		t.Fatalf("AddSplit() error = %v", err)
	}
	d := saved[0]
	if d.ID != 1 || d.Status != core.DebtUnsettled || d.Timestamp == "" {
		t.Fatalf("unexpected debt: %+v", d)
	}
	debts, _ := s.ListDebts(ctx)
	if len(debts) != 1 || !debts[0].OwedToMe() {
		t.Fatalf("unexpected debts: %+v", debts)
	}
}

func TestMemoryStoreAddSplit(t *testing.T) {
	s := NewDefault()
	ctx := context.Background()
	split := "Me, Ana"
	tx := core.Transaction{Description: "Taxi", Amount: decimal.NewFromInt(30), Category: "Transport", SplitDetails: &split}

	bad := []core.Debt{
		{Debtor: "Ana", Creditor: core.Me, Amount: decimal.NewFromInt(15)},
		{Debtor: "", Creditor: core.Me, Amount: decimal.NewFromInt(15)},
	}
	if _, _, err := s.AddSplit(ctx, tx, bad); !errors.Is(err, core.ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
	txs, _ := s.ListTransactions(ctx)
	debts, _ := s.ListDebts(ctx)
	if len(txs) != 0 || len(debts) != 0 {
		t.Fatalf("rejected split left %d transactions and %d debts", len(txs), len(debts))
	}

	saved, savedDebts, err := s.AddSplit(ctx, tx, bad[:1])
	if err != nil {
		t.Fatalf("AddSplit() error = %v", err)
	}
	if saved.ID != 1 || len(savedDebts) != 1 || savedDebts[0].ID != 1 || savedDebts[0].Status != core.DebtUnsettled {
		t.Fatalf("unexpected split: %+v %+v", saved, savedDebts)
	}
}

func TestDefaultCategories(t *testing.T) {
	cats, _ := NewDefault().ListCategories(context.Background())
	if len(cats) != 7 {
		t.Fatalf("expected 7 default categories, got %d", len(cats))
	}
	total := decimal.Zero
	for _, c := range cats {
		total = total.Add(c.Budget)
	}
	if !total.Equal(decimal.NewFromInt(1550)) {
		t.Fatalf("total budget = %s, want 1550", total)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	if cats, _ := NewFromFile(filepath.Join(dir, "missing.txt")).ListCategories(context.Background()); len(cats) != 7 {
		t.Fatalf("expected defaults when file missing, got %v", cats)
	}

	path := filepath.Join(dir, "categories.txt")
	content := "# name budget\nDining 250\nPet Care 40.5\ndining 10\n\nGifts\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cats, _ := NewFromFile(path).ListCategories(context.Background())
	if len(cats) != 3 {
		t.Fatalf("unexpected categories: %+v", cats)
	}
	if cats[1].Name != "Pet Care" || !cats[1].Budget.Equal(decimal.RequireFromString("40.5")) {
		t.Errorf("unexpected category: %+v", cats[1])
	}
	if cats[2].Name != "Gifts" || !cats[2].Budget.IsZero() {
		t.Errorf("unexpected category: %+v", cats[2])
	}
}
