package workshop

import (
	"sync"
	"sync/atomic"
	"time"
)

// fakeQueue is a minimal EventQueue. Completions queued with complete are
// delivered on the next RunCallbacks once a handler is registered.
type fakeQueue struct {
	mu       sync.Mutex
	handlers map[CallHandle]func(Completion)
	ready    []Completion
	copies   int
	runs     atomic.Int64
	cancels  atomic.Int64
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{handlers: make(map[CallHandle]func(Completion)), copies: 1}
}

func (q *fakeQueue) RunCallbacks() {
	q.runs.Add(1)
	q.mu.Lock()
	var fns []func(Completion)
	var comps []Completion
	var keep []Completion
	for _, c := range q.ready {
		fn, ok := q.handlers[c.Handle]
		if !ok {
			keep = append(keep, c)
			continue
		}
		fns = append(fns, fn)
		comps = append(comps, c)
	}
	q.ready = keep
	copies := q.copies
	q.mu.Unlock()

	for i, fn := range fns {
		for j := 0; j < copies; j++ {
			fn(comps[i])
		}
	}
}

func (q *fakeQueue) SetCallResult(h CallHandle, fn func(Completion)) func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[h] = fn
	return func() {
		q.cancels.Add(1)
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.handlers, h)
	}
}

func (q *fakeQueue) complete(c Completion) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ready = append(q.ready, c)
}

func (q *fakeQueue) registered() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.handlers)
}

// countingMetrics records what the correlator and pump report.
type countingMetrics struct {
	NoopMetrics
	mu         sync.Mutex
	duplicates int
	ticks      int
	purged     int
	denied     int
	statuses   map[string][]string
	publishes  map[Variant][]string
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{statuses: map[string][]string{}, publishes: map[Variant][]string{}}
}

func (m *countingMetrics) ObserveOperation(op, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[op] = append(m.statuses[op], status)
}

func (m *countingMetrics) IncDuplicateCompletion(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duplicates++
}

func (m *countingMetrics) IncPumpTick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks++
}

func (m *countingMetrics) AddStalePurged(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged += n
}

func (m *countingMetrics) IncSafetyDenied(AppID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied++
}

func (m *countingMetrics) IncPublish(v Variant, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishes[v] = append(m.publishes[v], status)
}
