package emulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-workshop/pkg/workshop"
)

// Emulator is an in-process platform. Every asynchronous call returns a
// handle at once, does its work in the background and queues a completion
// that is only delivered from RunCallbacks.
type Emulator struct {
	store       BlobStore
	repo        Repository
	user        string
	logger      *slog.Logger
	latency     time.Duration
	installRoot string
	legal       bool
	restart     bool
	duplicate   bool

	mu          sync.Mutex
	app         workshop.AppID
	initialized bool
	nextHandle  uint64
	nextToken   uint64
	handlers    map[workshop.CallHandle]handler
	ready       []queued
	faults      map[Call]Fault
	calls       []Call
	updates     map[workshop.UpdateHandle]*fileUpdate
	sessions    map[workshop.UpdateHandle]*itemUpdate
	queries     map[workshop.QueryHandle]*query

	work sync.WaitGroup
}

type handler struct {
	token uint64
	fn    func(workshop.Completion)
}

type queued struct {
	comp   workshop.Completion
	copies int
}

type fileUpdate struct {
	item    workshop.ItemID
	file    string
	preview string
	tags    []string
	setTags bool
}

type itemUpdate struct {
	app     workshop.AppID
	item    workshop.ItemID
	content string
}

type query struct {
	items   []workshop.ItemID
	results []workshop.ItemDetails
}

// Option represents a functional option for configuring the emulator
type Option func(*Emulator)

// WithBlobStore sets the storage for remote files and item content
func WithBlobStore(store BlobStore) Option {
	return func(e *Emulator) {
		e.store = store
	}
}

// WithRepository sets the item catalog
func WithRepository(repo Repository) Option {
	return func(e *Emulator) {
		e.repo = repo
	}
}

// WithUser sets the identity owning published items and remote files
func WithUser(user string) Option {
	return func(e *Emulator) {
		if user != "" {
			e.user = user
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Emulator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLatency delays every completion
func WithLatency(d time.Duration) Option {
	return func(e *Emulator) {
		e.latency = d
	}
}

// WithInstallRoot sets where DownloadItem places items when no directory is given
func WithInstallRoot(dir string) Option {
	return func(e *Emulator) {
		if dir != "" {
			e.installRoot = dir
		}
	}
}

// WithLegalAgreementPending flags every publish as needing the legal agreement
func WithLegalAgreementPending() Option {
	return func(e *Emulator) {
		e.legal = true
	}
}

// WithRestartRequired makes RestartAppIfNecessary report true
func WithRestartRequired() Option {
	return func(e *Emulator) {
		e.restart = true
	}
}

// WithDuplicateCompletions delivers every completion twice
func WithDuplicateCompletions() Option {
	return func(e *Emulator) {
		e.duplicate = true
	}
}

// WithFault installs a fault for call
func WithFault(call Call, f Fault) Option {
	return func(e *Emulator) {
		e.faults[call] = f
	}
}

// New creates an emulator. A BlobStore and a Repository are required.
func New(options ...Option) (*Emulator, error) {
	e := &Emulator{
		user:        uuid.NewString(),
		logger:      slog.Default(),
		installRoot: filepath.Join(os.TempDir(), "workshop-content"),
		handlers:    make(map[workshop.CallHandle]handler),
		faults:      make(map[Call]Fault),
		updates:     make(map[workshop.UpdateHandle]*fileUpdate),
		sessions:    make(map[workshop.UpdateHandle]*itemUpdate),
		queries:     make(map[workshop.QueryHandle]*query),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("blob store is required")
	}
	if e.repo == nil {
		return nil, errors.New("repository is required")
	}
	e.logger = e.logger.With("component", "emulator", "user", e.user)
	return e, nil
}

// SetFault installs or replaces the fault for call.
func (e *Emulator) SetFault(call Call, f Fault) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.faults[call] = f
}

// ClearFaults removes every installed fault.
func (e *Emulator) ClearFaults() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.faults = make(map[Call]Fault)
}

// Calls returns the log of platform calls in order.
func (e *Emulator) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// CallCount returns how often call was made.
func (e *Emulator) CallCount(call Call) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if c == call {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (e *Emulator) ResetCalls() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = nil
}

// Handlers returns the number of registered completion handlers.
func (e *Emulator) Handlers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}

// Store returns the blob store.
func (e *Emulator) Store() BlobStore { return e.store }

// Repository returns the item catalog.
func (e *Emulator) Repository() Repository { return e.repo }

// record logs call and returns its fault. Callers hold e.mu.
func (e *Emulator) record(call Call) Fault {
	e.calls = append(e.calls, call)
	return e.faults[call]
}

func (e *Emulator) enter(call Call) Fault {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record(call)
}

// Init connects the emulator for app.
func (e *Emulator) Init(ctx context.Context, app workshop.AppID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f := e.record(CallInit); f.Reject {
		return errors.New("platform client is not running")
	}
	if app == 0 {
		return errors.New("invalid app id 0")
	}
	e.app = app
	e.initialized = true
	e.logger.Info("platform initialized", "app", app)
	return nil
}

// Shutdown drops pending completions and waits for background work.
func (e *Emulator) Shutdown() {
	e.mu.Lock()
	e.record(CallShutdown)
	e.initialized = false
	e.ready = nil
	e.handlers = make(map[workshop.CallHandle]handler)
	e.mu.Unlock()

	e.work.Wait()
	e.logger.Info("platform shut down")
}

// RestartAppIfNecessary reports whether WithRestartRequired was set.
func (e *Emulator) RestartAppIfNecessary(app workshop.AppID) bool {
	e.enter(CallRestartIfNecessary)
	return e.restart
}

// AppID returns the app passed to Init.
func (e *Emulator) AppID() workshop.AppID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.app
}

// UserID returns the emulated identity.
func (e *Emulator) UserID() string {
	return e.user
}

// RunCallbacks delivers queued completions that have a handler. Handlers
// are one-shot and run without the emulator lock held. Completions nobody
// listens for yet stay queued.
func (e *Emulator) RunCallbacks() {
	type delivery struct {
		fn     func(workshop.Completion)
		comp   workshop.Completion
		copies int
	}

	e.mu.Lock()
	var deliveries []delivery
	var keep []queued
	for _, q := range e.ready {
		h, ok := e.handlers[q.comp.Handle]
		if !ok {
			keep = append(keep, q)
			continue
		}
		delete(e.handlers, q.comp.Handle)
		deliveries = append(deliveries, delivery{fn: h.fn, comp: q.comp, copies: q.copies})
	}
	e.ready = keep
	e.mu.Unlock()

	for _, d := range deliveries {
		for i := 0; i < d.copies; i++ {
			d.fn(d.comp)
		}
	}
}

// SetCallResult registers fn for the completion of h.
func (e *Emulator) SetCallResult(h workshop.CallHandle, fn func(workshop.Completion)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextToken++
	token := e.nextToken
	e.handlers[h] = handler{token: token, fn: fn}
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if cur, ok := e.handlers[h]; ok && cur.token == token {
			delete(e.handlers, h)
		}
	}
}

// issue starts an asynchronous call. work runs in the background unless a
// fault replaces it.
func (e *Emulator) issue(call Call, work func(ctx context.Context) (workshop.Result, any)) workshop.CallHandle {
	e.mu.Lock()
	f := e.record(call)
	if !e.initialized || f.Reject {
		e.mu.Unlock()
		return workshop.InvalidCallHandle
	}
	e.nextHandle++
	h := workshop.CallHandle(e.nextHandle)
	copies := 1
	if e.duplicate || f.Duplicate {
		copies = 2
	}
	e.work.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.work.Done()
		if e.latency > 0 {
			time.Sleep(e.latency)
		}

		comp := workshop.Completion{Handle: h, IOFailure: f.IOFailure}
		if f.fails() {
			comp.Result = f.Result
			if comp.Result == workshop.ResultNone {
				comp.Result = workshop.ResultFail
			}
		} else {
			comp.Result, comp.Payload = work(context.Background())
		}
		if f.Drop {
			e.logger.Debug("completion dropped", "call", call, "handle", h)
			return
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		if !e.initialized {
			return
		}
		e.ready = append(e.ready, queued{comp: comp, copies: copies})
	}()
	return h
}

func (e *Emulator) currentApp() workshop.AppID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.app
}

func (e *Emulator) resultFor(err error) workshop.Result {
	switch {
	case err == nil:
		return workshop.ResultOK
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrObjectNotFound):
		return workshop.ResultFileNotFound
	default:
		e.logger.Error("emulated call failed", "error", err)
		return workshop.ResultFail
	}
}

func (e *Emulator) String() string {
	return fmt.Sprintf("emulator(app=%s, user=%s)", e.currentApp(), e.user)
}
