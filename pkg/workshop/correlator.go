package workshop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Correlator maps issued platform calls to one-shot results. Any number of
// handles may be outstanding at once; each resolves exactly once.
type Correlator struct {
	queue   EventQueue
	pump    *Pump
	timeout time.Duration
	logger  *slog.Logger
	metrics Metrics

	mu      sync.Mutex
	pending map[CallHandle]*pendingOp

	// orphans are timed-out calls whose completion has not arrived yet.
	orphans   map[CallHandle]*pendingOp
	abandoned atomic.Int64
}

type pendingOp struct {
	op     string
	handle CallHandle
	done   chan Completion
	once   sync.Once
	cancel func()

	mu       sync.Mutex
	resolved bool
}

// CorrelatorOption configures a Correlator.
type CorrelatorOption func(*Correlator)

// WithCorrelatorTimeout bounds every wait. Zero disables the bound; a
// context deadline still applies.
func WithCorrelatorTimeout(d time.Duration) CorrelatorOption {
	return func(c *Correlator) {
		c.timeout = d
	}
}

// WithCorrelatorLogger sets the logger.
func WithCorrelatorLogger(l *slog.Logger) CorrelatorOption {
	return func(c *Correlator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCorrelatorMetrics sets the metrics sink.
func WithCorrelatorMetrics(m Metrics) CorrelatorOption {
	return func(c *Correlator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewCorrelator creates a correlator that registers handlers on q. When pump
// is not running, waits drive it inline.
func NewCorrelator(q EventQueue, pump *Pump, opts ...CorrelatorOption) *Correlator {
	c := &Correlator{
		queue:   q,
		pump:    pump,
		logger:  slog.Default(),
		metrics: NoopMetrics{},
		pending: make(map[CallHandle]*pendingOp),
		orphans: make(map[CallHandle]*pendingOp),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "correlator")
	return c
}

// Pending returns the number of unresolved handles.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Abandoned returns how many calls have timed out over the correlator's
// lifetime, including those whose late completion has since arrived.
func (c *Correlator) Abandoned() int {
	return int(c.abandoned.Load())
}

// Outstanding returns the number of timed-out calls still waiting for their
// late completion.
func (c *Correlator) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.orphans)
}

// Drain ticks the pump inline until every timed-out call has completed or
// ctx ends, and returns how many are still outstanding. The background loop
// must be stopped.
func (c *Correlator) Drain(ctx context.Context) int {
	if c.pump == nil {
		return c.Outstanding()
	}
	ticker := time.NewTicker(c.pump.Interval())
	defer ticker.Stop()

	for {
		c.pump.Tick()
		n := c.Outstanding()
		if n == 0 {
			return 0
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return n
		}
	}
}

// Await issues a call, waits for its completion and converts it with
// onComplete. A completion with the I/O failure flag set or a non-OK result
// fails with KindOperationFailed before onComplete is consulted.
func Await[T any](ctx context.Context, c *Correlator, op string, issue func() CallHandle, onComplete func(Completion) (T, error)) (T, error) {
	var zero T
	start := time.Now()

	p, err := c.register(op, issue)
	if err != nil {
		c.metrics.ObserveOperation(op, statusOf(err), time.Since(start))
		return zero, err
	}

	comp, err := c.wait(ctx, p)
	if err == nil {
		err = checkCompletion(op, comp)
	}
	if err != nil {
		c.metrics.ObserveOperation(op, statusOf(err), time.Since(start))
		return zero, err
	}

	v, err := onComplete(comp)
	c.metrics.ObserveOperation(op, statusOf(err), time.Since(start))
	return v, err
}

func checkCompletion(op string, comp Completion) error {
	if comp.IOFailure {
		return &Error{Kind: KindOperationFailed, Op: op, Code: comp.Result, IOFailure: true, Msg: "transport failure"}
	}
	if comp.Result != ResultOK {
		return &Error{Kind: KindOperationFailed, Op: op, Code: comp.Result, Msg: "failed with result " + comp.Result.String()}
	}
	return nil
}

func (c *Correlator) register(op string, issue func() CallHandle) (*pendingOp, error) {
	h := issue()
	if h == InvalidCallHandle {
		return nil, rejected(op, errors.New("platform returned an invalid call handle"))
	}

	p := &pendingOp{
		op:     op,
		handle: h,
		done:   make(chan Completion, 1),
	}

	c.mu.Lock()
	if _, exists := c.pending[h]; exists {
		c.mu.Unlock()
		return nil, rejected(op, fmt.Errorf("call handle %d is already outstanding", h))
	}
	c.pending[h] = p
	c.mu.Unlock()

	cancel := c.queue.SetCallResult(h, func(comp Completion) {
		c.deliver(p, comp)
	})
	p.mu.Lock()
	if p.resolved {
		// Delivered while registering.
		p.mu.Unlock()
		cancel()
	} else {
		p.cancel = cancel
		p.mu.Unlock()
	}

	c.logger.Debug("call issued", "op", op, "handle", h)
	return p, nil
}

func (c *Correlator) deliver(p *pendingOp, comp Completion) {
	delivered := false
	p.once.Do(func() {
		delivered = true
		p.done <- comp
		c.release(p)
	})
	if !delivered {
		if c.settleOrphan(p) {
			c.logger.Info("late completion after timeout", "op", p.op, "handle", p.handle, "result", comp.Result)
			return
		}
		c.logger.Warn("duplicate completion ignored", "op", p.op, "handle", p.handle, "result", comp.Result)
		c.metrics.IncDuplicateCompletion(p.op)
	}
}

// release marks p resolved, removes it from the table and drops the
// platform subscription.
func (c *Correlator) release(p *pendingOp) {
	c.mu.Lock()
	if cur, ok := c.pending[p.handle]; ok && cur == p {
		delete(c.pending, p.handle)
	}
	c.mu.Unlock()

	p.mu.Lock()
	p.resolved = true
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Correlator) wait(ctx context.Context, p *pendingOp) (Completion, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var stopped <-chan struct{}
	if c.pump != nil {
		stopped = c.pump.Done()
	}

	select {
	case comp := <-p.done:
		return comp, nil
	case <-stopped:
		// No loop is draining the queue, or it went away mid-wait.
		return c.waitInline(ctx, p)
	case <-ctx.Done():
		return c.abandon(ctx, p)
	}
}

func (c *Correlator) waitInline(ctx context.Context, p *pendingOp) (Completion, error) {
	ticker := time.NewTicker(c.pump.Interval())
	defer ticker.Stop()

	for {
		c.pump.Tick()
		select {
		case comp := <-p.done:
			return comp, nil
		default:
		}
		select {
		case comp := <-p.done:
			return comp, nil
		case <-ticker.C:
		case <-ctx.Done():
			return c.abandon(ctx, p)
		}
	}
}

// abandon resolves p as timed out. A completion that raced the deadline
// wins. The platform subscription stays until the late completion arrives
// so Drain can tell when the call's side effects have landed.
func (c *Correlator) abandon(ctx context.Context, p *pendingOp) (Completion, error) {
	timedOut := false
	p.once.Do(func() {
		timedOut = true
		c.orphan(p)
	})
	if !timedOut {
		return <-p.done, nil
	}
	c.logger.Warn("call timed out", "op", p.op, "handle", p.handle)
	return Completion{}, &Error{Kind: KindTimeout, Op: p.op, Msg: "no completion received", Err: ctx.Err()}
}

func (c *Correlator) orphan(p *pendingOp) {
	c.mu.Lock()
	if cur, ok := c.pending[p.handle]; ok && cur == p {
		delete(c.pending, p.handle)
	}
	c.orphans[p.handle] = p
	c.mu.Unlock()
	c.abandoned.Add(1)
}

// settleOrphan drops a timed-out call once its completion shows up. It
// reports false if p was not waiting as an orphan.
func (c *Correlator) settleOrphan(p *pendingOp) bool {
	c.mu.Lock()
	cur, ok := c.orphans[p.handle]
	if !ok || cur != p {
		c.mu.Unlock()
		return false
	}
	delete(c.orphans, p.handle)
	c.mu.Unlock()

	p.mu.Lock()
	p.resolved = true
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return true
}
