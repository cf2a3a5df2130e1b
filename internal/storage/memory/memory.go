package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"frugal/internal/core"
	"frugal/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	cats   []core.Category
	txs    []core.Transaction
	debts  []core.Debt
	nextTx int64
	nextDb int64
	now    func() time.Time
}

func New(cats []core.Category) *Store {
	return &Store{cats: dedupe(cats), now: time.Now}
}

// NewDefault seeds the store with core.DefaultCategories.
func NewDefault() *Store {
	return New(core.DefaultCategories)
}

// NewFromFile reads "<name> <budget>" lines from path, skipping blanks and
// # comments. A missing or empty file falls back to the default categories.
func NewFromFile(path string) *Store {
	cats := readCategories(path)
	if len(cats) == 0 {
		return NewDefault()
	}
	return New(cats)
}

// AddTransaction stores the transaction and assigns the next ID.
func (s *Store) AddTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if !t.Amount.IsPositive() {
		return core.Transaction{}, core.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.lookup(t.Category)
	if !ok {
		return core.Transaction{}, fmt.Errorf("%w: %q", storage.ErrUnknownCategory, t.Category)
	}
	t.Category = name
	if t.Timestamp == "" {
		t.Timestamp = s.now().Format(storage.TimestampLayout)
	}
	s.nextTx++
	t.ID = s.nextTx
	s.txs = append(s.txs, t)
	return t, nil
}

// ListTransactions returns transactions newest first.
func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.txs))
	for i := len(s.txs) - 1; i >= 0; i-- {
		out = append(out, s.txs[i])
	}
	return out, nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.cats...), nil
}

// AddSplit stores t and its debts under one lock. Nothing is stored when any
// of them is rejected.
func (s *Store) AddSplit(_ context.Context, t core.Transaction, debts []core.Debt) (core.Transaction, []core.Debt, error) {
	if !t.Amount.IsPositive() {
		return core.Transaction{}, nil, core.ErrInvalidAmount
	}
	saved := make([]core.Debt, len(debts))
	for i, d := range debts {
		if d.Status == "" {
			d.Status = core.DebtUnsettled
		}
		if err := d.Validate(); err != nil {
			return core.Transaction{}, nil, err
		}
		saved[i] = d
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.lookup(t.Category)
	if !ok {
		return core.Transaction{}, nil, fmt.Errorf("%w: %q", storage.ErrUnknownCategory, t.Category)
	}
	stamp := s.now().Format(storage.TimestampLayout)
	t.Category = name
	if t.Timestamp == "" {
		t.Timestamp = stamp
	}
	s.nextTx++
	t.ID = s.nextTx
	s.txs = append(s.txs, t)
	for i := range saved {
		if saved[i].Timestamp == "" {
			saved[i].Timestamp = stamp
		}
		s.nextDb++
		saved[i].ID = s.nextDb
		s.debts = append(s.debts, saved[i])
	}
	return t, saved, nil
}

func (s *Store) ListDebts(_ context.Context) ([]core.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Debt(nil), s.debts...), nil
}

func (s *Store) Close() error { return nil }

func (s *Store) lookup(name string) (string, bool) {
	for _, c := range s.cats {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return c.Name, true
		}
	}
	return "", false
}

func readCategories(path string) []core.Category {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.Category
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		budget := decimal.Zero
		if len(fields) > 1 {
			if b, err := decimal.NewFromString(fields[len(fields)-1]); err == nil {
				budget = b
				fields = fields[:len(fields)-1]
			}
		}
		out = append(out, core.Category{Name: strings.Join(fields, " "), Budget: budget})
	}
	return dedupe(out)
}

func dedupe(in []core.Category) []core.Category {
	seen := map[string]struct{}{}
	out := make([]core.Category, 0, len(in))
	for _, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		key := strings.ToLower(c.Name)
		if c.Name == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	// Preserve input order
	return out
}
