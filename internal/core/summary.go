package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// SummarizeByCategory sums transaction amounts per category, ordered by
// category name so repeated calls are stable.
func SummarizeByCategory(txs []Transaction) []CategoryTotal {
	sums := make(map[string]decimal.Decimal)
	for _, t := range txs {
		sums[t.Category] = sums[t.Category].Add(t.Amount)
	}

	out := make([]CategoryTotal, 0, len(sums))
	for cat, total := range sums {
		out = append(out, CategoryTotal{Category: cat, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// TotalOf sums every category total.
func TotalOf(totals []CategoryTotal) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range totals {
		sum = sum.Add(c.Total)
	}
	return sum
}
