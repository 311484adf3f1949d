package auth

import (
	"context"
	"sync"

	"gastos/internal/core"
	"gastos/internal/stream"
)

// MemoryProvider is a scriptable Provider for offline mode and tests. SignIn
// publishes SignInSession. SignOut publishes Anonymous unless SignOutErr is set.
type MemoryProvider struct {
	hub *stream.Hub[core.Session]

	mu            sync.Mutex
	signInSession core.Session
	signInErr     error
	signOutErr    error
	signIns       int
	signOuts      int
}

func NewMemoryProvider(initial core.Session) *MemoryProvider {
	return &MemoryProvider{hub: stream.NewHubWith(initial)}
}

// SetSignIn configures the outcome of the next SignIn calls.
func (p *MemoryProvider) SetSignIn(s core.Session, err error) {
	p.mu.Lock()
	p.signInSession, p.signInErr = s, err
	p.mu.Unlock()
}

func (p *MemoryProvider) SetSignOutErr(err error) {
	p.mu.Lock()
	p.signOutErr = err
	p.mu.Unlock()
}

// Emit publishes a session transition as if observed from the backend.
func (p *MemoryProvider) Emit(s core.Session) {
	p.hub.Publish(s)
}

func (p *MemoryProvider) Current() core.Session {
	s, _ := p.hub.Current()
	return s
}

func (p *MemoryProvider) Status(ctx context.Context) <-chan core.Session {
	return p.hub.Subscribe(ctx)
}

func (p *MemoryProvider) SignIn(context.Context) error {
	p.mu.Lock()
	p.signIns++
	s, err := p.signInSession, p.signInErr
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.hub.Publish(s)
	return nil
}

func (p *MemoryProvider) SignOut(context.Context) error {
	p.mu.Lock()
	p.signOuts++
	err := p.signOutErr
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.hub.Publish(core.Anonymous)
	return nil
}

// Calls returns how many times SignIn and SignOut were invoked.
func (p *MemoryProvider) Calls() (signIns, signOuts int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signIns, p.signOuts
}

var _ Provider = (*MemoryProvider)(nil)
