package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gastos/internal/core"
	"gastos/internal/remote/supabase"
	"gastos/internal/stream"
)

// GoTrue is the slice of the Supabase client the provider needs.
type GoTrue interface {
	SignInWithIDToken(ctx context.Context, provider, idToken string) (supabase.AuthSession, error)
	RefreshSession(ctx context.Context, refreshToken string) (supabase.AuthSession, error)
	SignOut(ctx context.Context, accessToken string) error
	SetAccessToken(token string)
}

// refreshMargin is how long before expiry a session is renewed.
const refreshMargin = time.Minute

// SupabaseProvider signs in with a Google ID token and keeps the resulting session
// fresh. The session survives restarts when a session file is configured.
type SupabaseProvider struct {
	client   GoTrue
	broker   Broker
	verifier *Verifier
	file     *SessionFile
	now      func() time.Time
	log      *slog.Logger

	mu      sync.Mutex
	session supabase.AuthSession
	hub     *stream.Hub[core.Session]
}

type Option func(*SupabaseProvider)

func WithVerifier(v *Verifier) Option       { return func(p *SupabaseProvider) { p.verifier = v } }
func WithSessionFile(f *SessionFile) Option { return func(p *SupabaseProvider) { p.file = f } }
func WithClock(now func() time.Time) Option { return func(p *SupabaseProvider) { p.now = now } }

func NewSupabaseProvider(client GoTrue, broker Broker, opts ...Option) *SupabaseProvider {
	p := &SupabaseProvider{
		client: client,
		broker: broker,
		now:    time.Now,
		log:    slog.With("component", "auth"),
		hub:    stream.NewHubWith(core.Anonymous),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *SupabaseProvider) Current() core.Session {
	s, _ := p.hub.Current()
	return s
}

func (p *SupabaseProvider) Status(ctx context.Context) <-chan core.Session {
	return p.hub.Subscribe(ctx)
}

// Restore loads a saved session, renewing it when it is about to expire. A session
// that cannot be renewed is discarded.
func (p *SupabaseProvider) Restore(ctx context.Context) error {
	if p.file == nil {
		return nil
	}
	saved, ok, err := p.file.Load()
	if err != nil || !ok {
		return err
	}
	p.mu.Lock()
	p.session = saved
	p.mu.Unlock()

	if p.needsRefresh(saved) {
		return p.Refresh(ctx)
	}
	p.apply(saved)
	p.log.InfoContext(ctx, "Session restored", "email", p.Current().Email)
	return nil
}

func (p *SupabaseProvider) SignIn(ctx context.Context) error {
	idToken, err := p.broker.IDToken(ctx)
	if err != nil {
		return fmt.Errorf("obtain id token: %w", err)
	}
	if _, err := p.verifier.Verify(ctx, idToken); err != nil {
		return err
	}
	sess, err := p.client.SignInWithIDToken(ctx, "google", idToken)
	if err != nil {
		return fmt.Errorf("exchange id token: %w", err)
	}
	p.apply(sess)
	p.log.InfoContext(ctx, "Signed in", "email", p.Current().Email)
	return nil
}

// SignOut always drops the local session. The remote revocation error, if any, is
// returned after the transition to anonymous has been published.
func (p *SupabaseProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	token := p.session.AccessToken
	p.mu.Unlock()

	var err error
	if token != "" {
		if err = p.client.SignOut(ctx, token); err != nil {
			p.log.WarnContext(ctx, "Remote sign-out failed", "error", err)
			err = fmt.Errorf("sign out: %w", err)
		}
	}
	p.drop(ctx)
	return err
}

// Refresh renews the session with its refresh token. On failure the session is
// dropped and subscribers observe a transition to anonymous.
func (p *SupabaseProvider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	refresh := p.session.RefreshToken
	p.mu.Unlock()
	if refresh == "" {
		return nil
	}
	sess, err := p.client.RefreshSession(ctx, refresh)
	if err != nil {
		p.log.WarnContext(ctx, "Session refresh failed", "error", err)
		p.drop(ctx)
		return fmt.Errorf("refresh session: %w", err)
	}
	p.apply(sess)
	return nil
}

// KeepAlive renews the session shortly before it expires until ctx is done.
func (p *SupabaseProvider) KeepAlive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			sess := p.session
			p.mu.Unlock()
			if sess.AccessToken != "" && p.needsRefresh(sess) {
				_ = p.Refresh(ctx)
			}
		}
	}
}

func (p *SupabaseProvider) needsRefresh(s supabase.AuthSession) bool {
	expiry := s.Expiry(p.now())
	if s.ExpiresAt == 0 && s.ExpiresIn == 0 {
		if _, exp, err := ParseAccessToken(s.AccessToken); err == nil && !exp.IsZero() {
			expiry = exp
		}
	}
	return !expiry.After(p.now().Add(refreshMargin))
}

func (p *SupabaseProvider) apply(sess supabase.AuthSession) {
	if sess.ExpiresAt == 0 && sess.ExpiresIn > 0 {
		sess.ExpiresAt = sess.Expiry(p.now()).Unix()
	}
	p.mu.Lock()
	p.session = sess
	p.mu.Unlock()

	p.client.SetAccessToken(sess.AccessToken)
	if p.file != nil {
		if err := p.file.Save(sess); err != nil {
			p.log.Warn("Failed to persist session", "error", err)
		}
	}
	p.hub.Publish(SessionFrom(sess))
}

func (p *SupabaseProvider) drop(ctx context.Context) {
	p.mu.Lock()
	p.session = supabase.AuthSession{}
	p.mu.Unlock()

	p.client.SetAccessToken("")
	if p.file != nil {
		if err := p.file.Clear(); err != nil {
			p.log.WarnContext(ctx, "Failed to remove session file", "error", err)
		}
	}
	p.hub.Publish(core.Anonymous)
}

// SessionFrom derives the app session from a backend session, preferring the user
// object and falling back to access token claims.
func SessionFrom(sess supabase.AuthSession) core.Session {
	s, _, err := ParseAccessToken(sess.AccessToken)
	if err != nil {
		s = core.Session{}
	}
	if sess.User.ID != "" {
		s.UserID = sess.User.ID
	}
	if sess.User.Email != "" {
		s.Email = sess.User.Email
	}
	if name := metadataName(sess.User.UserMetadata); name != "" {
		s.DisplayName = name
	}
	return s
}

var _ Provider = (*SupabaseProvider)(nil)
