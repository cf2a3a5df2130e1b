// Package storage persists the development ledger behind the fixture
// backend: transactions, category budgets and debts.
package storage

import (
	"context"
	"errors"

	"frugal/internal/core"
)

var ErrUnknownCategory = errors.New("unknown category")

// Ports for ledger backends.
type (
	TransactionWriter interface {
		// AddTransaction stores t and returns it with its assigned ID.
		AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	}

	// TransactionLister returns every transaction, newest first.
	TransactionLister interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	CategoryReader interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	DebtLister interface {
		ListDebts(ctx context.Context) ([]core.Debt, error)
	}

	// SplitWriter stores a shared expense together with the debts it
	// creates. Either everything is saved or nothing is.
	SplitWriter interface {
		AddSplit(ctx context.Context, t core.Transaction, debts []core.Debt) (core.Transaction, []core.Debt, error)
	}

	// Ledger is the full set of operations the fixture backend needs.
	Ledger interface {
		TransactionWriter
		TransactionLister
		CategoryReader
		DebtLister
		SplitWriter
		Close() error
	}
)
