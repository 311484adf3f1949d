package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingPuller struct {
	calls atomic.Int32
	err   error
}

func (p *countingPuller) PullRemote(context.Context) (int, Result, error) {
	p.calls.Add(1)
	return 1, Result{Op: "pull"}, p.err
}

func TestDefaultRefreshLoopConfig(t *testing.T) {
	config := DefaultRefreshLoopConfig()
	if config.Interval != 5*time.Minute {
		t.Errorf("expected Interval 5m, got %v", config.Interval)
	}
	if config.PullOnStart {
		t.Error("PullOnStart should default to false")
	}

	loop := NewRefreshLoop(&countingPuller{}, RefreshLoopConfig{})
	if loop.config.Interval != 5*time.Minute {
		t.Errorf("zero interval should fall back to default, got %v", loop.config.Interval)
	}
}

func TestRefreshLoop_PullsPeriodically(t *testing.T) {
	puller := &countingPuller{err: errors.New("local store closed")}
	loop := NewRefreshLoop(puller, RefreshLoopConfig{Interval: 10 * time.Millisecond, PullOnStart: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := loop.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !loop.IsRunning() {
		t.Error("loop should be running after Start")
	}
	if err := loop.Start(ctx); err == nil {
		t.Error("expected error when starting an already running loop")
	}

	deadline := time.Now().Add(2 * time.Second)
	for puller.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected at least 3 pulls, got %d", puller.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := loop.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if loop.IsRunning() {
		t.Error("loop should not be running after Stop")
	}
	if loop.Pulls() < 3 {
		t.Errorf("Pulls() = %d", loop.Pulls())
	}
}

func TestRefreshLoop_StopNotRunning(t *testing.T) {
	loop := NewRefreshLoop(&countingPuller{}, DefaultRefreshLoopConfig())
	if err := loop.Stop(context.Background()); err != nil {
		t.Errorf("Stop on idle loop should be a no-op, got %v", err)
	}
}

func TestRefreshLoop_LogsRefreshOperation(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	loop := NewRefreshLoop(&countingPuller{err: errors.New("local store closed")}, RefreshLoopConfig{})
	loop.pull(context.Background())
	loop.puller = &countingPuller{}
	loop.pull(context.Background())

	out := buf.String()
	if n := strings.Count(out, `"operation":"refresh"`); n != 2 {
		t.Errorf("refresh operation logged %d times, want 2:\n%s", n, out)
	}
	if loop.Pulls() != 2 {
		t.Errorf("Pulls() = %d", loop.Pulls())
	}
}
