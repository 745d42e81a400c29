package workshop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDrainTimeout is how long Close waits for calls that timed out.
const DefaultDrainTimeout = 10 * time.Second

// Session brackets one connection to the platform. It owns the event pump,
// the correlator and the stager, and guarantees Shutdown runs exactly once.
type Session struct {
	id       string
	app      AppID
	platform Platform
	pump     *Pump
	corr     *Correlator
	stager   *Stager
	guard    Guard
	hooks    *Hooks
	logger   *slog.Logger
	metrics  Metrics

	installDir   string
	drainTimeout time.Duration
	closeOnce    sync.Once
}

// Open initializes the platform for app, starts the event pump and reaps
// staging files left behind by earlier runs.
func Open(ctx context.Context, p Platform, app AppID, opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.NewString()
	logger := o.logger.With("session_id", id, "app", app)

	if err := p.Init(ctx, app); err != nil {
		return nil, fmt.Errorf("could not initialize platform for app %s: %w", app, err)
	}

	s := &Session{
		id:           id,
		app:          app,
		platform:     p,
		guard:        o.guard,
		hooks:        o.hooks,
		logger:       logger,
		metrics:      o.metrics,
		installDir:   o.installDir,
		drainTimeout: o.drainTimeout,
	}

	pumpOpts := []PumpOption{
		WithPumpInterval(o.pollInterval),
		WithPumpLogger(logger),
		WithPumpMetrics(o.metrics),
	}
	if o.restartCheck {
		pumpOpts = append(pumpOpts, WithTickHook(func() {
			if p.RestartAppIfNecessary(app) {
				logger.Warn("platform requested an application restart")
			}
		}))
	}
	s.pump = NewPump(p, pumpOpts...)
	s.corr = NewCorrelator(p, s.pump,
		WithCorrelatorTimeout(o.timeout),
		WithCorrelatorLogger(logger),
		WithCorrelatorMetrics(o.metrics),
	)
	s.stager = NewStager(p, s.corr, o.prefix, logger, o.metrics)

	if !o.inline {
		s.pump.Start(ctx)
	}
	logger.Info("session opened", "user", p.UserID(), "inline_pump", o.inline)

	if o.purgeOnOpen {
		if stale := p.FileCount(); stale > 0 {
			logger.Info("found stale staging files", "count", stale)
		}
		if _, err := s.stager.PurgeStale(); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// App returns the application the session is scoped to.
func (s *Session) App() AppID { return s.app }

// Stager returns the session's staging file manager.
func (s *Session) Stager() *Stager { return s.stager }

// Correlator returns the session's operation correlator.
func (s *Session) Correlator() *Correlator { return s.corr }

// PurgeStale removes every temporary file of the current identity.
func (s *Session) PurgeStale() (int, error) {
	return s.stager.PurgeStale()
}

// Close stops the pump and shuts the platform down. If any call timed out,
// its late completion is awaited and temporary storage is purged again
// first, since an abandoned write can land after the publish's own cleanup.
// Only the first call has any effect.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.pump.Stop()
		if s.corr.Abandoned() > 0 {
			s.reapAbandoned()
		}
		s.platform.Shutdown()
		if n := s.corr.Pending(); n > 0 {
			s.logger.Warn("session closed with unresolved calls", "pending", n)
		}
		s.logger.Info("session closed")
	})
}

func (s *Session) reapAbandoned() {
	ctx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
	defer cancel()

	if n := s.corr.Drain(ctx); n > 0 {
		s.logger.Warn("timed-out calls still outstanding at close", "count", n)
	}
	n, err := s.stager.PurgeStale()
	if err != nil {
		s.logger.Error("purging staging files at close", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("purged staging files left by timed-out calls", "count", n)
	}
}

// Upload opens a session, runs one publish and closes the session on every
// exit path.
func Upload(ctx context.Context, p Platform, app AppID, req Request, opts ...Option) (PublishResult, error) {
	s, err := Open(ctx, p, app, opts...)
	if err != nil {
		return PublishResult{Variant: req.Variant()}, err
	}
	defer s.Close()
	return s.Publish(ctx, req)
}
