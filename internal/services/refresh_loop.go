package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	applog "gastos/internal/log"
)

// Puller is the part of the engine the refresh loop drives.
type Puller interface {
	PullRemote(ctx context.Context) (int, Result, error)
}

// RefreshLoopConfig holds configuration for the refresh loop
type RefreshLoopConfig struct {
	// Interval is how often to pull remote changes (default: 5m)
	Interval time.Duration

	// PullOnStart pulls once immediately when the loop starts (default: false; the
	// engine already pulls when a session becomes active)
	PullOnStart bool
}

func DefaultRefreshLoopConfig() RefreshLoopConfig {
	return RefreshLoopConfig{Interval: 5 * time.Minute}
}

// RefreshLoop periodically pulls remote changes so shared expenses show up without
// a manual refresh.
type RefreshLoop struct {
	puller Puller
	config RefreshLoopConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	pulls   int
}

func NewRefreshLoop(puller Puller, config RefreshLoopConfig) *RefreshLoop {
	if config.Interval <= 0 {
		config.Interval = DefaultRefreshLoopConfig().Interval
	}
	return &RefreshLoop{puller: puller, config: config}
}

// Start begins the loop. Returns an error if already running.
func (l *RefreshLoop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("refresh loop is already running")
	}
	l.running = true
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	l.mu.Unlock()

	go l.runLoop(ctx)

	slog.InfoContext(ctx, "Refresh loop started", "interval", l.config.Interval)
	return nil
}

// Stop signals the loop and waits for it to exit or for ctx to expire.
func (l *RefreshLoop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	stopCh, doneCh := l.stopCh, l.doneCh
	l.running = false
	l.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Refresh loop stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Refresh loop stop timed out")
		return ctx.Err()
	}
}

func (l *RefreshLoop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Pulls returns how many pulls the loop has issued.
func (l *RefreshLoop) Pulls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pulls
}

func (l *RefreshLoop) runLoop(ctx context.Context) {
	defer close(l.doneCh)

	ticker := time.NewTicker(l.config.Interval)
	defer ticker.Stop()

	if l.config.PullOnStart {
		l.pull(ctx)
	}

	for {
		select {
		case <-l.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.pull(ctx)
		}
	}
}

func (l *RefreshLoop) pull(ctx context.Context) {
	l.mu.Lock()
	l.pulls++
	l.mu.Unlock()

	n, res, err := l.puller.PullRemote(ctx)
	switch {
	case err != nil:
		slog.ErrorContext(ctx, "Periodic pull failed", applog.FieldOperation, applog.OpRefresh, applog.FieldError, err)
	case !res.OK():
		slog.WarnContext(ctx, "Periodic pull incomplete", applog.FieldOperation, applog.OpRefresh, applog.FieldError, res.Err())
	default:
		slog.DebugContext(ctx, "Periodic pull finished", applog.FieldOperation, applog.OpRefresh, applog.FieldCount, n)
	}
}
