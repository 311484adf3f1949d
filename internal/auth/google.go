package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gastos/internal/core"
	"gastos/internal/remote/supabase"
	"gastos/internal/stream"
)

var ErrNoEmailClaim = errors.New("id token carries no email claim")

// GoogleProvider uses the Google identity directly, for backends that have no auth
// service of their own. The ID token is kept as the session token and the session
// ends when it expires.
type GoogleProvider struct {
	broker   Broker
	verifier *Verifier
	file     *SessionFile
	now      func() time.Time
	log      *slog.Logger

	mu     sync.Mutex
	expiry time.Time
	hub    *stream.Hub[core.Session]
}

func NewGoogleProvider(broker Broker, verifier *Verifier, file *SessionFile) *GoogleProvider {
	return &GoogleProvider{
		broker:   broker,
		verifier: verifier,
		file:     file,
		now:      time.Now,
		log:      slog.With("component", "auth"),
		hub:      stream.NewHubWith(core.Anonymous),
	}
}

func (p *GoogleProvider) Current() core.Session {
	s, _ := p.hub.Current()
	return s
}

func (p *GoogleProvider) Status(ctx context.Context) <-chan core.Session {
	return p.hub.Subscribe(ctx)
}

// Restore loads a saved identity unless it has already expired.
func (p *GoogleProvider) Restore(ctx context.Context) error {
	if p.file == nil {
		return nil
	}
	saved, ok, err := p.file.Load()
	if err != nil || !ok {
		return err
	}
	sess, expiry, err := ParseAccessToken(saved.AccessToken)
	if err != nil || p.expired(expiry) {
		p.drop(ctx)
		return err
	}
	p.set(sess, expiry)
	p.log.InfoContext(ctx, "Session restored", "email", sess.Email)
	return nil
}

func (p *GoogleProvider) SignIn(ctx context.Context) error {
	if p.broker == nil {
		return ErrNoIDToken
	}
	idToken, err := p.broker.IDToken(ctx)
	if err != nil {
		return fmt.Errorf("obtain id token: %w", err)
	}
	if _, err := p.verifier.Verify(ctx, idToken); err != nil {
		return err
	}
	sess, expiry, err := ParseAccessToken(idToken)
	if err != nil {
		return err
	}
	if sess.Email == "" {
		return ErrNoEmailClaim
	}
	if p.file != nil {
		saved := supabase.AuthSession{AccessToken: idToken, TokenType: "id_token"}
		if !expiry.IsZero() {
			saved.ExpiresAt = expiry.Unix()
		}
		if err := p.file.Save(saved); err != nil {
			p.log.WarnContext(ctx, "Failed to persist session", "error", err)
		}
	}
	p.set(sess, expiry)
	p.log.InfoContext(ctx, "Signed in", "email", sess.Email)
	return nil
}

func (p *GoogleProvider) SignOut(ctx context.Context) error {
	p.drop(ctx)
	return nil
}

// KeepAlive ends the session once the ID token expires.
func (p *GoogleProvider) KeepAlive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			expiry := p.expiry
			p.mu.Unlock()
			if p.Current().IsAuthenticated() && p.expired(expiry) {
				p.log.InfoContext(ctx, "Session expired")
				p.drop(ctx)
			}
		}
	}
}

func (p *GoogleProvider) expired(expiry time.Time) bool {
	return !expiry.IsZero() && !expiry.After(p.now())
}

func (p *GoogleProvider) set(sess core.Session, expiry time.Time) {
	p.mu.Lock()
	p.expiry = expiry
	p.mu.Unlock()
	p.hub.Publish(sess)
}

func (p *GoogleProvider) drop(ctx context.Context) {
	p.mu.Lock()
	p.expiry = time.Time{}
	p.mu.Unlock()
	if p.file != nil {
		if err := p.file.Clear(); err != nil {
			p.log.WarnContext(ctx, "Failed to remove session file", "error", err)
		}
	}
	p.hub.Publish(core.Anonymous)
}

var _ Provider = (*GoogleProvider)(nil)
