package workshop

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPollInterval is the cadence at which the event queue is drained.
const DefaultPollInterval = 100 * time.Millisecond

// Pump drains a platform event queue so registered completion handlers fire.
// It either runs its own background loop (Start/Stop) or is driven inline
// through Tick by whoever is waiting.
type Pump struct {
	queue    EventQueue
	interval time.Duration
	onTick   func()
	logger   *slog.Logger
	metrics  Metrics

	// tickMu serializes RunCallbacks between the loop and inline callers.
	tickMu  sync.Mutex
	hooking atomic.Bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	wg      sync.WaitGroup
}

// PumpOption configures a Pump.
type PumpOption func(*Pump)

// WithPumpInterval overrides DefaultPollInterval.
func WithPumpInterval(d time.Duration) PumpOption {
	return func(p *Pump) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithTickHook runs fn on every background tick. A hook that is still
// running when the next tick arrives is skipped for that tick.
func WithTickHook(fn func()) PumpOption {
	return func(p *Pump) {
		p.onTick = fn
	}
}

// WithPumpLogger sets the logger.
func WithPumpLogger(l *slog.Logger) PumpOption {
	return func(p *Pump) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPumpMetrics sets the metrics sink.
func WithPumpMetrics(m Metrics) PumpOption {
	return func(p *Pump) {
		if m != nil {
			p.metrics = m
		}
	}
}

// NewPump creates a stopped pump over q.
func NewPump(q EventQueue, opts ...PumpOption) *Pump {
	p := &Pump{
		queue:    q,
		interval: DefaultPollInterval,
		logger:   slog.Default(),
		metrics:  NoopMetrics{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "pump")
	return p
}

// Interval returns the polling cadence.
func (p *Pump) Interval() time.Duration {
	return p.interval
}

// Running reports whether the background loop is active.
func (p *Pump) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Done returns a channel that is closed when the current background loop
// exits. If no loop is running the channel is already closed.
func (p *Pump) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running || p.doneCh == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return p.doneCh
}

// Start launches the background loop. Starting a running pump is a no-op.
func (p *Pump) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.wg.Add(1)
	go p.loop(ctx, p.stopCh, p.doneCh)
	p.logger.Debug("pump started", "interval", p.interval)
}

// Stop halts the background loop and waits for it and any tick hook still
// in flight to exit. It is safe to call more than once.
func (p *Pump) Stop() {
	p.mu.Lock()
	wasRunning := p.running
	if wasRunning {
		p.running = false
		close(p.stopCh)
	}
	p.mu.Unlock()

	// A loop that exited on context cancellation may have left a hook behind.
	p.wg.Wait()
	if wasRunning {
		p.logger.Debug("pump stopped")
	}
}

// Tick drains the queue once.
func (p *Pump) Tick() {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()
	p.queue.RunCallbacks()
	p.metrics.IncPumpTick()
}

func (p *Pump) loop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer p.wg.Done()
	defer close(doneCh)

	p.Tick()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.runHook()
			p.Tick()
		case <-stopCh:
			return
		case <-ctx.Done():
			p.logger.Warn("pump context cancelled, stopping loop")
			p.mu.Lock()
			p.running = false
			p.mu.Unlock()
			return
		}
	}
}

func (p *Pump) runHook() {
	if p.onTick == nil || !p.hooking.CompareAndSwap(false, true) {
		return
	}
	// Called from the loop, which holds a wg slot, so Add never races Wait.
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.hooking.Store(false)
		p.onTick()
	}()
}
