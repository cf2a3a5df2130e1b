package dashboard

import (
	"strings"

	"frugal/internal/core"
)

const (
	TransactionsTitle = "Recent Transactions"
	NoTransactions    = "No transactions yet."
)

type TransactionRow struct {
	ID          int64
	Description string
	Timestamp   string
	Category    string
	Amount      string
	Split       string
}

type TransactionList struct {
	Title string
	Rows  []TransactionRow
	Empty bool
	// Filtered is set when rows were narrowed by a query or category.
	Filtered bool
	Total    int
}

// Filter keeps transactions whose description, category or split details
// contain query (case-insensitive) and, when category is set, whose
// category matches it exactly ignoring case.
func Filter(txs []core.Transaction, query, category string) []core.Transaction {
	query = strings.ToLower(strings.TrimSpace(query))
	category = strings.TrimSpace(category)
	if query == "" && category == "" {
		return txs
	}

	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if category != "" && !strings.EqualFold(t.Category, category) {
			continue
		}
		if query != "" && !matches(t, query) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matches(t core.Transaction, query string) bool {
	if strings.Contains(strings.ToLower(t.Description), query) ||
		strings.Contains(strings.ToLower(t.Category), query) {
		return true
	}
	return t.SplitDetails != nil && strings.Contains(strings.ToLower(*t.SplitDetails), query)
}

func BuildTransactionList(txs []core.Transaction, query, category string) TransactionList {
	shown := Filter(txs, query, category)
	list := TransactionList{
		Title:    TransactionsTitle,
		Empty:    len(shown) == 0,
		Filtered: len(shown) != len(txs) || strings.TrimSpace(query) != "" || strings.TrimSpace(category) != "",
		Total:    len(txs),
	}
	for _, t := range shown {
		row := TransactionRow{
			ID:          t.ID,
			Description: t.Description,
			Timestamp:   t.Timestamp,
			Category:    t.Category,
			Amount:      core.FormatUSD(t.Amount),
		}
		if t.SplitDetails != nil {
			row.Split = *t.SplitDetails
		}
		list.Rows = append(list.Rows, row)
	}
	return list
}
