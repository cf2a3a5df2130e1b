package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Me is the name the ledger uses for the dashboard's owner.
const Me = "Me"

const (
	DebtUnsettled = "unsettled"
	DebtSettled   = "settled"
)

// DefaultCategories are the spending categories and monthly budgets a fresh
// ledger starts with.
var DefaultCategories = []Category{
	{Name: "Dining", Budget: decimal.NewFromInt(200)},
	{Name: "Groceries", Budget: decimal.NewFromInt(300)},
	{Name: "Transport", Budget: decimal.NewFromInt(100)},
	{Name: "Entertainment", Budget: decimal.NewFromInt(150)},
	{Name: "Shopping", Budget: decimal.NewFromInt(200)},
	{Name: "Bills", Budget: decimal.NewFromInt(500)},
	{Name: "Others", Budget: decimal.NewFromInt(100)},
}

type (
	Category struct {
		Name   string
		Budget decimal.Decimal
	}

	// Debt records that Debtor owes Creditor Amount.
	Debt struct {
		ID          int64
		Debtor      string
		Creditor    string
		Amount      decimal.Decimal
		Description string
		Timestamp   string
		Status      string
	}
)

func (d Debt) Validate() error {
	if strings.TrimSpace(d.Debtor) == "" || strings.TrimSpace(d.Creditor) == "" {
		return fmt.Errorf("%w: debt needs a debtor and a creditor", ErrInvalidField)
	}
	if !d.Amount.IsPositive() {
		return fmt.Errorf("%w: debt amount must be positive", ErrInvalidAmount)
	}
	if d.Status != DebtUnsettled && d.Status != DebtSettled {
		return fmt.Errorf("%w: debt status %q", ErrInvalidField, d.Status)
	}
	return nil
}

// OwedToMe reports whether the debt is still outstanding in the owner's favour.
func (d Debt) OwedToMe() bool {
	return d.Creditor == Me && d.Status == DebtUnsettled
}

// NewDashboardStats derives the summary figures from the ledger contents.
func NewDashboardStats(txs []Transaction, cats []Category, debts []Debt) DashboardStats {
	spent := decimal.Zero
	for _, t := range txs {
		spent = spent.Add(t.Amount)
	}
	budget := decimal.Zero
	for _, c := range cats {
		budget = budget.Add(c.Budget)
	}
	owed := decimal.Zero
	for _, d := range debts {
		if d.OwedToMe() {
			owed = owed.Add(d.Amount)
		}
	}
	return DashboardStats{
		TotalSpent:  spent,
		Budget:      budget,
		Remaining:   budget.Sub(spent),
		ActiveDebts: owed,
	}
}

// EqualSplit divides total evenly between Me and others, returning one
// unsettled debt per other participant owed to Me. Shares are rounded to
// cents; shares of a cent or less are dropped.
func EqualSplit(total decimal.Decimal, others []string, description, timestamp string) []Debt {
	var names []string
	seen := map[string]bool{strings.ToLower(Me): true}
	for _, n := range others {
		n = strings.TrimSpace(n)
		if n == "" || seen[strings.ToLower(n)] {
			continue
		}
		seen[strings.ToLower(n)] = true
		names = append(names, n)
	}
	if len(names) == 0 || !total.IsPositive() {
		return nil
	}

	share := total.Div(decimal.NewFromInt(int64(len(names) + 1))).Round(2)
	if share.LessThanOrEqual(decimal.RequireFromString("0.01")) {
		return nil
	}
	debts := make([]Debt, 0, len(names))
	for _, n := range names {
		debts = append(debts, Debt{
			Debtor:      n,
			Creditor:    Me,
			Amount:      share,
			Description: description,
			Timestamp:   timestamp,
			Status:      DebtUnsettled,
		})
	}
	return debts
}
