package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	applog "frugal/internal/log"
	"frugal/internal/refresh"
)

// Poller bumps a refresh signal on a fixed interval so views pick up changes
// made outside the chat.
type Poller struct {
	signal   *refresh.Signal
	interval time.Duration
	logger   *applog.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewPoller(signal *refresh.Signal, interval time.Duration, logger *applog.Logger) *Poller {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Poller{
		signal:   signal,
		interval: interval,
		logger:   logger.WithComponent(applog.ComponentPoller),
	}
}

// Start begins the polling loop. Returns an error if already running or if
// the interval is not positive.
func (p *Poller) Start(ctx context.Context) error {
	if p.interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", p.interval)
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	p.logger.InfoContext(ctx, "Poller started", "poll_interval", p.interval)
	return nil
}

// Stop stops the loop and waits for it to exit.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.stopCh = nil
	p.mu.Unlock()

	// A previous Stop may have timed out after closing stopCh.
	if stopCh != nil {
		close(stopCh)
	}

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Poller stopped")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Poller stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			v := p.signal.Bump()
			p.logger.DebugContext(ctx, "Poll tick", applog.FieldOperation, applog.OpPoll, applog.FieldSignal, v)
		}
	}
}
