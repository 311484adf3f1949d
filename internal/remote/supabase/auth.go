package supabase

import (
	"context"
	"net/http"
	"time"
)

// User is the subset of the GoTrue user object the app reads.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// AuthSession is the token pair returned by GoTrue.
type AuthSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

// Expiry returns the absolute expiry, deriving it from ExpiresIn when the server
// omitted expires_at.
func (s AuthSession) Expiry(now time.Time) time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	return now.Add(time.Duration(s.ExpiresIn) * time.Second)
}

// SignInWithIDToken exchanges a third-party OIDC ID token (Google) for a session.
func (c *Client) SignInWithIDToken(ctx context.Context, provider, idToken string) (AuthSession, error) {
	var out AuthSession
	body := map[string]string{"provider": provider, "id_token": idToken}
	err := c.doJSON(ctx, http.MethodPost, "/auth/v1/token",
		map[string]string{"grant_type": "id_token"}, body, nil, &out)
	return out, err
}

// RefreshSession trades a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (AuthSession, error) {
	var out AuthSession
	body := map[string]string{"refresh_token": refreshToken}
	err := c.doJSON(ctx, http.MethodPost, "/auth/v1/token",
		map[string]string{"grant_type": "refresh_token"}, body, nil, &out)
	return out, err
}

// SignOut revokes the session identified by accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		bearer: accessToken,
	}, nil)
}
