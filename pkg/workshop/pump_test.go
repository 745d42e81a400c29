package workshop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPumpStartStop(t *testing.T) {
	q := newFakeQueue()
	m := newCountingMetrics()
	p := NewPump(q, WithPumpInterval(2*time.Millisecond), WithPumpMetrics(m))

	assert.Equal(t, 2*time.Millisecond, p.Interval())
	assert.False(t, p.Running())

	p.Start(context.Background())
	p.Start(context.Background())
	assert.True(t, p.Running())

	require.Eventually(t, func() bool { return q.runs.Load() >= 3 }, time.Second, time.Millisecond)

	p.Stop()
	p.Stop()
	assert.False(t, p.Running())

	runs := q.runs.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, runs, q.runs.Load(), "no ticks after Stop")

	m.mu.Lock()
	assert.EqualValues(t, runs, m.ticks)
	m.mu.Unlock()
}

func TestPumpDefaultInterval(t *testing.T) {
	p := NewPump(newFakeQueue(), WithPumpInterval(0))
	assert.Equal(t, DefaultPollInterval, p.Interval())
	assert.Equal(t, 100*time.Millisecond, DefaultPollInterval)
}

func TestPumpStopsWithContext(t *testing.T) {
	q := newFakeQueue()
	p := NewPump(q, WithPumpInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()

	require.Eventually(t, func() bool { return !p.Running() }, time.Second, time.Millisecond)
	p.Stop()
}

func TestPumpSlowTickHookDoesNotBlock(t *testing.T) {
	q := newFakeQueue()
	release := make(chan struct{})
	var hookRuns atomic.Int64
	p := NewPump(q, WithPumpInterval(time.Millisecond), WithTickHook(func() {
		hookRuns.Add(1)
		<-release
	}))
	p.Start(context.Background())

	require.Eventually(t, func() bool { return q.runs.Load() >= 20 }, time.Second, time.Millisecond)
	assert.Equal(t, int64(1), hookRuns.Load(), "a running hook is not started again")

	close(release)
	p.Stop()
}

func TestPumpStopWaitsForTickHook(t *testing.T) {
	q := newFakeQueue()
	var started, inHook atomic.Bool
	p := NewPump(q, WithPumpInterval(time.Millisecond), WithTickHook(func() {
		started.Store(true)
		inHook.Store(true)
		time.Sleep(50 * time.Millisecond)
		inHook.Store(false)
	}))
	p.Start(context.Background())

	require.Eventually(t, started.Load, time.Second, time.Millisecond)
	p.Stop()
	assert.False(t, inHook.Load(), "hook still running after Stop returned")
	started.Store(false)
	time.Sleep(10 * time.Millisecond)
	assert.False(t, started.Load(), "no hook starts after Stop")
}

func TestPumpStopAfterContextCancelWaitsForHook(t *testing.T) {
	q := newFakeQueue()
	var started, finished atomic.Bool
	p := NewPump(q, WithPumpInterval(time.Millisecond), WithTickHook(func() {
		started.Store(true)
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
	}))
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	require.Eventually(t, started.Load, time.Second, time.Millisecond)
	cancel()
	require.Eventually(t, func() bool { return !p.Running() }, time.Second, time.Millisecond)

	p.Stop()
	assert.True(t, finished.Load())
}

func TestPumpDone(t *testing.T) {
	q := newFakeQueue()
	p := NewPump(q, WithPumpInterval(time.Millisecond))

	select {
	case <-p.Done():
	default:
		t.Fatal("Done of a stopped pump must be closed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	done := p.Done()
	select {
	case <-done:
		t.Fatal("Done closed while the loop runs")
	default:
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Done not closed after context cancellation")
	}
	p.Stop()
}

func TestPumpInlineTick(t *testing.T) {
	q := newFakeQueue()
	p := NewPump(q)
	p.Tick()
	p.Tick()
	assert.Equal(t, int64(2), q.runs.Load())
	assert.False(t, p.Running())
}
