// Package services provides the sync engine: the state shown to the user and the
// orchestration of local and remote writes behind every expense operation.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"gastos/internal/amqp"
	"gastos/internal/auth"
	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/remote"
	"gastos/internal/storage"
	"gastos/internal/stream"
)

var ErrAlreadyStarted = errors.New("sync engine already started")

// Publisher receives change events. Publishing is best-effort.
type Publisher interface {
	Publish(ctx context.Context, ev amqp.ExpenseEvent) error
}

// Recorder receives operation metrics.
type Recorder interface {
	ObserveOperation(op string, ok bool, seconds float64)
	RemoteStepFailed(step string)
	SetLocalRecords(n int)
}

// State is the view presented to the UI. Records is newest first and Total is always
// the sum of its amounts. Records must be treated as read-only.
type State struct {
	Records      []core.Expense
	Total        decimal.Decimal
	DisplayName  string
	CurrentEmail string
}

type Options struct {
	// PushWithoutPhoto also inserts the remote row for expenses added without a photo.
	PushWithoutPhoto bool
	// ClearOnSessionLoss clears the local store when the session ends without an
	// explicit SignOut, e.g. on a failed token refresh.
	ClearOnSessionLoss bool
}

type Deps struct {
	Local   storage.LocalStore
	Rows    remote.RowStore
	Bucket  remote.Bucket
	Session auth.Provider
	Photos  PhotoReader

	Events  Publisher        // optional
	Metrics Recorder         // optional
	Logger  *applog.Logger   // optional
	Now     func() time.Time // optional
}

// SyncEngine owns the state shown to the user and mediates every mutation between
// the local store, the remote table and the photo bucket.
type SyncEngine struct {
	local   storage.LocalStore
	rows    remote.RowStore
	bucket  remote.Bucket
	session auth.Provider
	photos  PhotoReader
	events  Publisher
	metrics Recorder
	log     *applog.Logger
	steps   *applog.StructuredLogger
	now     func() time.Time
	opts    Options

	mu          sync.RWMutex
	state       State
	lastSession core.Session
	hub         *stream.Hub[State]

	// applyMu serialises record reloads so a slower reload never overwrites a newer one.
	applyMu sync.Mutex

	runMu   sync.Mutex
	started bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

func NewSyncEngine(d Deps, opts Options) *SyncEngine {
	logger := d.Logger
	if logger == nil {
		logger = applog.Default(applog.ComponentEngine)
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	photos := d.Photos
	if photos == nil {
		photos = FilePhotoReader{}
	}
	initial := State{Total: decimal.Zero, DisplayName: core.GuestName}
	return &SyncEngine{
		local:   d.Local,
		rows:    d.Rows,
		bucket:  d.Bucket,
		session: d.Session,
		photos:  photos,
		events:  d.Events,
		metrics: d.Metrics,
		log:     logger,
		steps:   applog.NewStructuredLogger(logger),
		now:     now,
		opts:    opts,
		state:   initial,
		hub:     stream.NewHubWith(initial),
	}
}

// Start loads the initial state and establishes the two long-lived subscriptions:
// local store changes and session transitions. It may be called once.
func (e *SyncEngine) Start(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.started {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	if err := e.reloadRecords(ctx); err != nil {
		cancel()
		return fmt.Errorf("load local records: %w", err)
	}
	current := e.session.Current()
	e.applySession(current)

	records := e.local.Watch(ctx)
	sessions := e.session.Status(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for range records {
			if err := e.reloadRecords(gctx); err != nil && gctx.Err() == nil {
				e.log.ErrorContext(gctx, "Failed to reload local records", applog.FieldError, err)
			}
		}
		return nil
	})
	g.Go(func() error {
		for s := range sessions {
			e.onSession(gctx, s)
		}
		return nil
	})

	e.started = true
	e.cancel = cancel
	e.group = g
	e.log.InfoContext(ctx, "Sync engine started",
		applog.FieldOperation, applog.OpStartup,
		applog.FieldEmail, current.Email,
		applog.FieldCount, len(e.Snapshot().Records))
	return nil
}

// Close cancels the subscriptions and waits for them to exit.
func (e *SyncEngine) Close() error {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if !e.started {
		return nil
	}
	e.cancel()
	err := e.group.Wait()
	e.started = false
	e.hub.Close()
	return err
}

// Snapshot returns the current state.
func (e *SyncEngine) Snapshot() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Watch streams state changes, latest value first, until ctx is done.
func (e *SyncEngine) Watch(ctx context.Context) <-chan State {
	return e.hub.Subscribe(ctx)
}

func (e *SyncEngine) update(fn func(*State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.state)
	e.hub.Publish(e.state)
}

// reloadRecords replaces Records with the store's current content and recomputes
// Total from scratch. Store emissions only trigger a reload, so concurrent reloads
// observe the store in order.
func (e *SyncEngine) reloadRecords(ctx context.Context) error {
	e.applyMu.Lock()
	defer e.applyMu.Unlock()

	records, err := e.local.List(ctx)
	if err != nil {
		return err
	}
	total := core.SumAmounts(records)
	e.update(func(s *State) {
		s.Records = records
		s.Total = total
	})
	if e.metrics != nil {
		e.metrics.SetLocalRecords(len(records))
	}
	return nil
}

// applySession updates the session-derived fields and returns the previous session.
func (e *SyncEngine) applySession(s core.Session) core.Session {
	e.mu.Lock()
	prev := e.lastSession
	e.lastSession = s
	e.mu.Unlock()

	e.update(func(st *State) {
		st.DisplayName = core.ResolveDisplayName(s)
		st.CurrentEmail = ""
		if s.IsAuthenticated() {
			st.CurrentEmail = s.Email
		}
	})
	return prev
}

func (e *SyncEngine) onSession(ctx context.Context, s core.Session) {
	prev := e.applySession(s)

	if s.IsAuthenticated() {
		e.log.InfoContext(ctx, "Session active", applog.FieldEmail, s.Email)
		if _, _, err := e.PullRemote(ctx); err != nil && ctx.Err() == nil {
			e.log.ErrorContext(ctx, "Pull after sign-in failed", applog.FieldError, err)
		}
		return
	}

	if prev.IsAuthenticated() {
		e.log.InfoContext(ctx, "Session ended", applog.FieldEmail, prev.Email)
		if e.opts.ClearOnSessionLoss {
			if err := e.clearLocal(ctx); err != nil && ctx.Err() == nil {
				e.log.ErrorContext(ctx, "Failed to clear local data after session loss", applog.FieldError, err)
			}
		}
	}
}

func (e *SyncEngine) clearLocal(ctx context.Context) error {
	if err := e.local.Clear(ctx); err != nil {
		return fmt.Errorf("clear local store: %w", err)
	}
	return e.reloadRecords(ctx)
}

func (e *SyncEngine) currentSession() (core.Session, string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSession, e.state.DisplayName
}

// finish logs absorbed failures and records metrics for an operation.
func (e *SyncEngine) finish(ctx context.Context, res Result, start time.Time, fields applog.LogFields) {
	for _, s := range res.Steps {
		if s.Err == nil {
			continue
		}
		e.steps.LogStepFailure(ctx, res.Op, s.Name, s.Err, fields)
		if e.metrics != nil {
			e.metrics.RemoteStepFailed(s.Name)
		}
	}
	if e.metrics != nil {
		e.metrics.ObserveOperation(res.Op, res.OK(), e.now().Sub(start).Seconds())
	}
}

func (e *SyncEngine) publish(ctx context.Context, ev amqp.ExpenseEvent) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(ctx, ev); err != nil {
		e.log.WarnContext(ctx, "Failed to publish event",
			"type", ev.Type,
			applog.FieldExpenseID, ev.ExpenseID,
			applog.FieldError, err)
	}
}
