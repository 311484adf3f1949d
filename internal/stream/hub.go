// Package stream provides the long-lived subscriptions used between the stores,
// the session provider and the sync engine.
//
// A Hub keeps the latest value and fans it out to subscribers. Each subscriber owns
// a one-slot channel: a publish replaces any value the subscriber has not read yet,
// so a slow reader always observes the newest state and never blocks a writer.
package stream

import (
	"context"
	"sync"
)

type Hub[T any] struct {
	mu      sync.Mutex
	subs    map[chan T]struct{}
	current T
	has     bool
	closed  bool
}

func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[chan T]struct{})}
}

// NewHubWith returns a hub whose subscribers immediately receive initial.
func NewHubWith[T any](initial T) *Hub[T] {
	h := NewHub[T]()
	h.current = initial
	h.has = true
	return h
}

// Subscribe registers a subscriber until ctx is done. The returned channel first
// yields the current value, when one exists, then every subsequent publish. It is
// closed when ctx is cancelled or the hub is closed.
func (h *Hub[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch
	}
	if h.has {
		ch <- h.current
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.unsubscribe(ch)
	}()

	return ch
}

// Publish stores v as the current value and delivers it to every subscriber.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.current = v
	h.has = true
	for ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// Current returns the latest published value and whether one exists.
func (h *Hub[T]) Current() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current, h.has
}

// Len returns the number of live subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Later publishes are ignored.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *Hub[T]) unsubscribe(ch chan T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}
