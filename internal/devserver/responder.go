package devserver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"frugal/internal/core"
	applog "frugal/internal/log"
	"frugal/internal/storage"
)

var (
	spentRe    = regexp.MustCompile(`(?i)\b(?:spent|paid|bought)\s+(\S+)\s+(?:on|for)\s+(.+)$`)
	splitRe    = regexp.MustCompile(`(?i)\bsplit\s+(\S+)\s+(?:(?:on|for)\s+(.+?)\s+)?with\s+(.+)$`)
	howMuchRe  = regexp.MustCompile(`(?i)\bhow\s+much\b`)
	insightsRe = regexp.MustCompile(`(?i)\b(?:insights?|summary|breakdown)\b`)
	debtsRe    = regexp.MustCompile(`(?i)\b(?:debts?|owe[sd]?)\b`)
	namesSepRe = regexp.MustCompile(`(?i)\s*(?:,|\band\b|&)\s*`)
)

// categoryKeywords maps description words to a default category.
var categoryKeywords = map[string]string{
	"lunch": "Dining", "dinner": "Dining", "breakfast": "Dining", "coffee": "Dining",
	"restaurant": "Dining", "pizza": "Dining", "sushi": "Dining", "burger": "Dining",
	"groceries": "Groceries", "grocery": "Groceries", "supermarket": "Groceries", "market": "Groceries",
	"taxi": "Transport", "uber": "Transport", "bus": "Transport", "train": "Transport",
	"fuel": "Transport", "gas": "Transport", "metro": "Transport", "cab": "Transport",
	"movie": "Entertainment", "movies": "Entertainment", "cinema": "Entertainment",
	"concert": "Entertainment", "netflix": "Entertainment", "game": "Entertainment",
	"clothes": "Shopping", "shoes": "Shopping", "amazon": "Shopping", "shirt": "Shopping",
	"rent": "Bills", "electricity": "Bills", "internet": "Bills", "phone": "Bills", "water": "Bills",
}

// Responder is a rule-based stand-in for the assistant. It understands a
// few sentence shapes, records what they describe in the ledger and answers
// simple questions about it.
type Responder struct {
	ledger storage.Ledger
	logger *applog.Logger
	now    func() time.Time
}

func NewResponder(ledger storage.Ledger, logger *applog.Logger) *Responder {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Responder{ledger: ledger, logger: logger.WithComponent(applog.ComponentDevServer), now: time.Now}
}

// Reply answers one user message. Errors are reserved for ledger failures;
// anything the rules do not understand gets a help text.
func (r *Responder) Reply(ctx context.Context, message string) (string, error) {
	msg := strings.TrimSpace(message)
	lower := strings.ToLower(msg)

	switch {
	case howMuchRe.MatchString(msg):
		return r.answerHowMuch(ctx, lower)
	case splitRe.MatchString(msg):
		return r.recordSplit(ctx, splitRe.FindStringSubmatch(msg))
	case spentRe.MatchString(msg):
		return r.recordExpense(ctx, spentRe.FindStringSubmatch(msg))
	case strings.Contains(lower, "add an expense"):
		return `Sure! Tell me what you spent, for example "spent 12.50 on lunch".`, nil
	case strings.Contains(lower, "split an expense"):
		return `Who did you share it with? For example "split 60 for pizza with Ana, Bob".`, nil
	case insightsRe.MatchString(msg):
		return r.answerInsights(ctx)
	case debtsRe.MatchString(msg):
		return r.answerDebts(ctx)
	default:
		return `I can record expenses ("spent 20 on lunch"), split bills ("split 60 for pizza with Ana, Bob") ` +
			`and answer questions like "how much did I spend on Dining?".`, nil
	}
}

func (r *Responder) recordExpense(ctx context.Context, m []string) (string, error) {
	amount, err := core.ParseAmount(m[1])
	if err != nil {
		return fmt.Sprintf("I couldn't read %q as an amount. Please use a positive number like 12.50.", m[1]), nil
	}
	description := strings.TrimRight(strings.TrimSpace(m[2]), ".!?")

	category, err := r.categorize(ctx, description)
	if err != nil {
		return "", err
	}

	tx, err := r.ledger.AddTransaction(ctx, core.Transaction{
		Timestamp:   r.now().Format(storage.TimestampLayout),
		Description: description,
		Amount:      amount,
		Category:    category,
	})
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}
	r.logger.InfoContext(ctx, "Expense recorded",
		applog.FieldAmount, tx.Amount.StringFixed(2),
		applog.FieldCategory, tx.Category)

	reply := fmt.Sprintf("Recorded transaction #%d: %s - %s (%s).", tx.ID, tx.Description, core.FormatUSD(tx.Amount), tx.Category)
	warning, err := r.budgetWarning(ctx, tx.Category)
	if err != nil {
		return "", err
	}
	return reply + warning, nil
}

func (r *Responder) recordSplit(ctx context.Context, m []string) (string, error) {
	amount, err := core.ParseAmount(m[1])
	if err != nil {
		return fmt.Sprintf("I couldn't read %q as an amount. Please use a positive number like 60.", m[1]), nil
	}
	description := strings.TrimSpace(m[2])
	if description == "" {
		description = "Shared expense"
	}
	names := namesSepRe.Split(strings.TrimRight(strings.TrimSpace(m[3]), ".!?"), -1)

	ts := r.now().Format(storage.TimestampLayout)
	debts := core.EqualSplit(amount, names, description, ts)
	if len(debts) == 0 {
		if onlyMe(names) {
			return "Me is the only participant, so there is nothing to split.", nil
		}
		return "Each share would be a cent or less, so there is nothing to split.", nil
	}

	category, err := r.categorize(ctx, description)
	if err != nil {
		return "", err
	}
	participants := []string{core.Me}
	for _, d := range debts {
		participants = append(participants, d.Debtor)
	}
	split := strings.Join(participants, ", ")

	tx, _, err := r.ledger.AddSplit(ctx, core.Transaction{
		Timestamp:    ts,
		Description:  description,
		Amount:       amount,
		Category:     category,
		SplitDetails: &split,
	}, debts)
	if err != nil {
		return "", fmt.Errorf("save split: %w", err)
	}

	return fmt.Sprintf("Recorded transaction #%d: %s - %s (%s), split with %s. Each owes you %s.",
		tx.ID, tx.Description, core.FormatUSD(tx.Amount), tx.Category,
		strings.Join(participants[1:], ", "), core.FormatUSD(debts[0].Amount)), nil
}

// onlyMe reports whether names holds nobody besides the owner.
func onlyMe(names []string) bool {
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" && !strings.EqualFold(n, core.Me) {
			return false
		}
	}
	return true
}

func (r *Responder) answerHowMuch(ctx context.Context, lower string) (string, error) {
	txs, err := r.ledger.ListTransactions(ctx)
	if err != nil {
		return "", err
	}
	cats, err := r.ledger.ListCategories(ctx)
	if err != nil {
		return "", err
	}

	for _, c := range cats {
		if strings.Contains(lower, strings.ToLower(c.Name)) {
			spent := decimal.Zero
			for _, t := range txs {
				if t.Category == c.Name {
					spent = spent.Add(t.Amount)
				}
			}
			return fmt.Sprintf("You have spent %s on %s out of a %s budget.", core.FormatUSD(spent), c.Name, core.FormatUSD(c.Budget)), nil
		}
	}

	stats := core.NewDashboardStats(txs, cats, nil)
	return fmt.Sprintf("You have spent %s in total; %s of your %s budget is left.",
		core.FormatUSD(stats.TotalSpent), core.FormatUSD(stats.Remaining), core.FormatUSD(stats.Budget)), nil
}

func (r *Responder) answerInsights(ctx context.Context) (string, error) {
	txs, err := r.ledger.ListTransactions(ctx)
	if err != nil {
		return "", err
	}
	totals := core.SummarizeByCategory(txs)
	if len(totals) == 0 {
		return "You have no transactions yet, so there is nothing to analyse.", nil
	}

	sum := core.TotalOf(totals)
	parts := make([]string, 0, len(totals))
	for _, t := range totals {
		parts = append(parts, fmt.Sprintf("%s %s (%s%%)", t.Category, core.FormatUSD(t.Total), core.Percent(t.Total, sum).StringFixed(1)))
	}
	return fmt.Sprintf("You have spent %s so far: %s.", core.FormatUSD(sum), strings.Join(parts, ", ")), nil
}

func (r *Responder) answerDebts(ctx context.Context) (string, error) {
	debts, err := r.ledger.ListDebts(ctx)
	if err != nil {
		return "", err
	}
	owed := map[string]decimal.Decimal{}
	var order []string
	for _, d := range debts {
		if !d.OwedToMe() {
			continue
		}
		if _, ok := owed[d.Debtor]; !ok {
			order = append(order, d.Debtor)
		}
		owed[d.Debtor] = owed[d.Debtor].Add(d.Amount)
	}
	if len(order) == 0 {
		return "Nobody owes you anything right now.", nil
	}
	parts := make([]string, 0, len(order))
	for _, name := range order {
		parts = append(parts, fmt.Sprintf("%s owes you %s", name, core.FormatUSD(owed[name])))
	}
	return strings.Join(parts, "; ") + ".", nil
}

// categorize picks a category for a description: an explicit category name
// wins, then keyword hints, then Others.
func (r *Responder) categorize(ctx context.Context, description string) (string, error) {
	cats, err := r.ledger.ListCategories(ctx)
	if err != nil {
		return "", fmt.Errorf("list categories: %w", err)
	}
	lower := strings.ToLower(description)
	for _, c := range cats {
		if strings.Contains(lower, strings.ToLower(c.Name)) {
			return c.Name, nil
		}
	}
	for _, word := range strings.FieldsFunc(lower, func(c rune) bool { return c == ' ' || c == ',' || c == '.' }) {
		if cat, ok := categoryKeywords[word]; ok {
			return cat, nil
		}
	}
	return "Others", nil
}

// budgetWarning returns a sentence when category spending exceeds its budget.
func (r *Responder) budgetWarning(ctx context.Context, category string) (string, error) {
	cats, err := r.ledger.ListCategories(ctx)
	if err != nil {
		return "", err
	}
	var budget decimal.Decimal
	found := false
	for _, c := range cats {
		if c.Name == category {
			budget, found = c.Budget, true
		}
	}
	if !found || !budget.IsPositive() {
		return "", nil
	}

	txs, err := r.ledger.ListTransactions(ctx)
	if err != nil {
		return "", err
	}
	spent := decimal.Zero
	for _, t := range txs {
		if t.Category == category {
			spent = spent.Add(t.Amount)
		}
	}
	if spent.GreaterThan(budget) {
		return fmt.Sprintf(" Warning: you have exceeded your %s budget of %s!", category, core.FormatUSD(budget)), nil
	}
	return "", nil
}

// isClientError reports whether err came from bad input rather than the
// ledger itself.
func isClientError(err error) bool {
	return errors.Is(err, storage.ErrUnknownCategory) || errors.Is(err, core.ErrInvalidAmount)
}
