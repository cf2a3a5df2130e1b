// Package dashboard composes the chat session and the three data views into
// one page that shares a refresh signal.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"frugal/internal/chat"
	"frugal/internal/core"
	applog "frugal/internal/log"
	"frugal/internal/refresh"
	"frugal/internal/view"
)

// Backend is everything the page reads from or sends to the API.
type Backend interface {
	chat.Sender
	Transactions(ctx context.Context) ([]core.Transaction, error)
	Insights(ctx context.Context) ([]core.CategoryTotal, error)
	Stats(ctx context.Context) (core.DashboardStats, error)
}

type Page struct {
	Signal       *refresh.Signal
	Chat         *chat.Session
	Insights     *view.View[[]core.CategoryTotal]
	Transactions *view.View[[]core.Transaction]
	Stats        *view.View[core.DashboardStats]

	logger *applog.Logger

	mu       sync.Mutex
	unbind   []func()
	query    string
	category string
}

func NewPage(api Backend, logger *applog.Logger) *Page {
	if logger == nil {
		logger = applog.Discard()
	}
	sig := refresh.NewSignal(logger)
	return &Page{
		Signal:       sig,
		Chat:         chat.NewSession(api, sig, logger),
		Insights:     view.New("insights", api.Insights, logger),
		Transactions: view.New("transactions", api.Transactions, logger),
		Stats:        view.New("stats", api.Stats, logger),
		logger:       logger.WithComponent(applog.ComponentDashboard),
	}
}

// Bind subscribes every view to the page signal. Calling it again is a
// no-op until Close.
func (p *Page) Bind(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unbind != nil {
		return
	}
	p.unbind = []func(){
		p.Insights.Bind(ctx, p.Signal),
		p.Transactions.Bind(ctx, p.Signal),
		p.Stats.Bind(ctx, p.Signal),
	}
}

// Mount binds the views and performs the initial load of all three in
// parallel. A failing view does not stop the others; the first error is
// returned after all have finished.
func (p *Page) Mount(ctx context.Context) error {
	p.Bind(ctx)

	var g errgroup.Group
	g.Go(func() error { return p.Insights.Load(ctx) })
	g.Go(func() error { return p.Transactions.Load(ctx) })
	g.Go(func() error { return p.Stats.Load(ctx) })
	err := g.Wait()

	p.logger.Info("Dashboard mounted",
		applog.FieldOperation, applog.OpMount,
		applog.FieldSuccess, err == nil,
		applog.FieldError, err)
	return err
}

// Refresh bumps the signal, reloading every bound view.
func (p *Page) Refresh() uint64 {
	return p.Signal.Bump()
}

// OnChange registers fn to run whenever any view applies a new result.
func (p *Page) OnChange(fn func()) {
	p.Insights.OnChange(fn)
	p.Transactions.OnChange(fn)
	p.Stats.OnChange(fn)
}

// Wait blocks until every background reload has finished.
func (p *Page) Wait() {
	p.Insights.Wait()
	p.Transactions.Wait()
	p.Stats.Wait()
}

// Close unsubscribes the views and waits for in-flight reloads.
func (p *Page) Close() {
	p.mu.Lock()
	unbind := p.unbind
	p.unbind = nil
	p.mu.Unlock()

	for _, fn := range unbind {
		fn()
	}
	p.Wait()
}

// SetFilter narrows the transaction list shown by Model.
func (p *Page) SetFilter(query, category string) {
	p.mu.Lock()
	p.query, p.category = query, category
	p.mu.Unlock()
}

// Model is a render-ready snapshot of the whole page.
type Model struct {
	Stats        StatsPanel
	Insights     InsightsChart
	Transactions TransactionList
	Messages     []core.Message
	Sending      bool
	Loading      bool
	Errors       []string
}

func (p *Page) Model() Model {
	p.mu.Lock()
	query, category := p.query, p.category
	p.mu.Unlock()

	ins := p.Insights.Snapshot()
	txs := p.Transactions.Snapshot()
	st := p.Stats.Snapshot()

	m := Model{
		Stats:        BuildStatsPanel(st.Data),
		Insights:     BuildInsights(ins.Data),
		Transactions: BuildTransactionList(txs.Data, query, category),
		Messages:     p.Chat.Messages(),
		Sending:      p.Chat.IsSending(),
		Loading:      ins.Loading || txs.Loading || st.Loading,
	}
	for name, err := range map[string]error{
		p.Insights.Name():     ins.Err,
		p.Transactions.Name(): txs.Err,
		p.Stats.Name():        st.Err,
	} {
		if err != nil {
			m.Errors = append(m.Errors, fmt.Sprintf("%s: %v", name, err))
		}
	}
	sort.Strings(m.Errors)
	return m
}
