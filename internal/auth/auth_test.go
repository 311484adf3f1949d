package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/api/idtoken"

	"gastos/internal/core"
	"gastos/internal/remote/supabase"
)

func signToken(t *testing.T, sub, email, name string, exp time.Time) string {
	t.Helper()
	claims := AccessClaims{
		Email:        email,
		UserMetadata: map[string]any{"full_name": name},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestParseAccessToken(t *testing.T) {
	exp := time.Unix(1_900_000_000, 0)
	s, gotExp, err := ParseAccessToken(signToken(t, "u1", "ana@x.com", " Ana Ruiz ", exp))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := core.Session{UserID: "u1", Email: "ana@x.com", DisplayName: "Ana Ruiz"}
	if s != want {
		t.Fatalf("got %+v, want %+v", s, want)
	}
	if !gotExp.Equal(exp) {
		t.Fatalf("expiry %v, want %v", gotExp, exp)
	}

	if _, _, err := ParseAccessToken("not-a-jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestSessionFromPrefersUserObject(t *testing.T) {
	tok := signToken(t, "claim-id", "claim@x.com", "", time.Now().Add(time.Hour))
	s := SessionFrom(supabase.AuthSession{
		AccessToken: tok,
		User:        supabase.User{ID: "u1", Email: "ana@x.com", UserMetadata: map[string]any{"name": "Ana"}},
	})
	if s.UserID != "u1" || s.Email != "ana@x.com" || s.DisplayName != "Ana" {
		t.Fatalf("unexpected session %+v", s)
	}

	s = SessionFrom(supabase.AuthSession{AccessToken: tok})
	if s.UserID != "claim-id" || s.Email != "claim@x.com" {
		t.Fatalf("expected claims fallback, got %+v", s)
	}
}

func TestStaticBroker(t *testing.T) {
	if _, err := StaticBroker("").IDToken(context.Background()); !errors.Is(err, ErrNoIDToken) {
		t.Fatalf("expected ErrNoIDToken, got %v", err)
	}
	tok, err := StaticBroker("gid").IDToken(context.Background())
	if err != nil || tok != "gid" {
		t.Fatalf("got %q %v", tok, err)
	}
}

func TestLoadOAuthClient(t *testing.T) {
	if b, err := LoadOAuthClient(`{"installed":{}}`, ""); err != nil || string(b) != `{"installed":{}}` {
		t.Fatalf("inline json: %q %v", b, err)
	}
	path := filepath.Join(t.TempDir(), "client.json")
	if err := os.WriteFile(path, []byte(`{"web":{}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if b, err := LoadOAuthClient("", path); err != nil || string(b) != `{"web":{}}` {
		t.Fatalf("file: %q %v", b, err)
	}
	if _, err := LoadOAuthClient("", ""); err == nil {
		t.Fatal("expected error without any source")
	}
}

func TestVerifier(t *testing.T) {
	var nilVerifier *Verifier
	if _, err := nilVerifier.Verify(context.Background(), "x"); err != nil {
		t.Fatalf("nil verifier must accept: %v", err)
	}
	if NewVerifier("") != nil {
		t.Fatal("empty audience must disable verification")
	}

	v := &Verifier{audience: "client-id", validate: func(_ context.Context, token, aud string) (*idtoken.Payload, error) {
		if token != "good" || aud != "client-id" {
			return nil, errors.New("bad token")
		}
		return &idtoken.Payload{Claims: map[string]any{"email": "ana@x.com"}}, nil
	}}
	if email, err := v.Verify(context.Background(), "good"); err != nil || email != "ana@x.com" {
		t.Fatalf("got %q %v", email, err)
	}
	if _, err := v.Verify(context.Background(), "bad"); err == nil {
		t.Fatal("expected verification error")
	}
}

func TestSessionFile(t *testing.T) {
	f := NewSessionFile(filepath.Join(t.TempDir(), "nested", "session.json"))

	if _, ok, err := f.Load(); ok || err != nil {
		t.Fatalf("expected empty load, got ok=%v err=%v", ok, err)
	}
	if err := f.Save(supabase.AuthSession{AccessToken: "at", RefreshToken: "rt"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(f.path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("session file mode %v, want 0600", info.Mode().Perm())
	}
	s, ok, err := f.Load()
	if err != nil || !ok || s.RefreshToken != "rt" {
		t.Fatalf("load: %+v ok=%v err=%v", s, ok, err)
	}
	if err := f.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := f.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

type fakeGoTrue struct {
	mu         sync.Mutex
	signIn     supabase.AuthSession
	signInErr  error
	refresh    supabase.AuthSession
	refreshErr error
	signOutErr error
	token      string
	signOuts   int
	idTokens   []string
}

func (f *fakeGoTrue) SignInWithIDToken(_ context.Context, provider, idToken string) (supabase.AuthSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idTokens = append(f.idTokens, provider+":"+idToken)
	return f.signIn, f.signInErr
}

func (f *fakeGoTrue) RefreshSession(context.Context, string) (supabase.AuthSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh, f.refreshErr
}

func (f *fakeGoTrue) SignOut(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	return f.signOutErr
}

func (f *fakeGoTrue) SetAccessToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeGoTrue) accessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func recv(t *testing.T, ch <-chan core.Session) core.Session {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for session")
		return core.Session{}
	}
}

func TestSupabaseProviderSignInAndOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gt := &fakeGoTrue{signIn: supabase.AuthSession{
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresIn:    3600,
		User:         supabase.User{ID: "u1", Email: "ana@x.com", UserMetadata: map[string]any{"full_name": "Ana"}},
	}}
	file := NewSessionFile(filepath.Join(t.TempDir(), "session.json"))
	p := NewSupabaseProvider(gt, StaticBroker("gid"), WithSessionFile(file))

	status := p.Status(ctx)
	if s := recv(t, status); s.IsAuthenticated() {
		t.Fatalf("expected anonymous first, got %+v", s)
	}

	if err := p.SignIn(ctx); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if s := recv(t, status); s.Email != "ana@x.com" || s.DisplayName != "Ana" {
		t.Fatalf("unexpected session %+v", s)
	}
	if gt.accessToken() != "at" || gt.idTokens[0] != "google:gid" {
		t.Fatalf("client not updated: token=%q ids=%v", gt.accessToken(), gt.idTokens)
	}
	if _, ok, _ := file.Load(); !ok {
		t.Fatal("session not persisted")
	}

	gt.signOutErr = errors.New("network down")
	if err := p.SignOut(ctx); err == nil {
		t.Fatal("expected remote sign-out error to be returned")
	}
	if s := recv(t, status); s.IsAuthenticated() {
		t.Fatalf("expected anonymous after sign-out, got %+v", s)
	}
	if gt.accessToken() != "" {
		t.Fatal("access token must be cleared")
	}
	if _, ok, _ := file.Load(); ok {
		t.Fatal("session file must be removed")
	}
}

func TestSupabaseProviderSignInFailureKeepsAnonymous(t *testing.T) {
	gt := &fakeGoTrue{signInErr: errors.New("invalid id token")}
	p := NewSupabaseProvider(gt, StaticBroker("gid"))
	if err := p.SignIn(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if p.Current().IsAuthenticated() {
		t.Fatal("session must stay anonymous")
	}
}

func TestSupabaseProviderRestore(t *testing.T) {
	now := time.Unix(1_800_000_000, 0)
	dir := t.TempDir()

	tests := []struct {
		name       string
		saved      supabase.AuthSession
		refreshErr error
		wantEmail  string
		wantErr    bool
	}{
		{
			name:      "valid session restored",
			saved:     supabase.AuthSession{AccessToken: "old", RefreshToken: "rt", ExpiresAt: now.Add(time.Hour).Unix(), User: supabase.User{ID: "u1", Email: "ana@x.com"}},
			wantEmail: "ana@x.com",
		},
		{
			name:      "expired session refreshed",
			saved:     supabase.AuthSession{AccessToken: "old", RefreshToken: "rt", ExpiresAt: now.Add(-time.Hour).Unix()},
			wantEmail: "new@x.com",
		},
		{
			name:       "unrefreshable session dropped",
			saved:      supabase.AuthSession{AccessToken: "old", RefreshToken: "rt", ExpiresAt: now.Add(-time.Hour).Unix()},
			refreshErr: errors.New("refresh token revoked"),
			wantErr:    true,
		},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := NewSessionFile(filepath.Join(dir, tt.name+".json"))
			if err := file.Save(tt.saved); err != nil {
				t.Fatal(err)
			}
			gt := &fakeGoTrue{
				refresh:    supabase.AuthSession{AccessToken: "new", RefreshToken: "rt2", ExpiresIn: 3600, User: supabase.User{ID: "u1", Email: "new@x.com"}},
				refreshErr: tt.refreshErr,
			}
			p := NewSupabaseProvider(gt, nil, WithSessionFile(file), WithClock(func() time.Time { return now }))

			err := p.Restore(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("case %d: err = %v, wantErr %v", i, err, tt.wantErr)
			}
			if got := p.Current().Email; got != tt.wantEmail {
				t.Fatalf("email = %q, want %q", got, tt.wantEmail)
			}
			if tt.wantErr {
				if _, ok, _ := file.Load(); ok {
					t.Fatal("dropped session must be removed from disk")
				}
			}
		})
	}
}

func TestMemoryProvider(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewMemoryProvider(core.Anonymous)
	status := p.Status(ctx)
	recv(t, status)

	ana := core.Session{UserID: "u1", Email: "ana@x.com"}
	p.SetSignIn(ana, nil)
	if err := p.SignIn(ctx); err != nil {
		t.Fatal(err)
	}
	if s := recv(t, status); s != ana {
		t.Fatalf("got %+v", s)
	}

	p.SetSignOutErr(errors.New("offline"))
	if err := p.SignOut(ctx); err == nil {
		t.Fatal("expected sign-out error")
	}
	if !p.Current().IsAuthenticated() {
		t.Fatal("failed sign-out must not emit anonymous")
	}
	if in, out := p.Calls(); in != 1 || out != 1 {
		t.Fatalf("calls = %d/%d", in, out)
	}
}
