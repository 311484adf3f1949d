package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gastos/internal/core"
)

// AccessClaims are the claims carried by a backend access token.
type AccessClaims struct {
	Email        string         `json:"email"`
	Name         string         `json:"name"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// ParseAccessToken reads the session identity out of an access token without
// verifying its signature. The backend verifies it on every call, the client only
// needs the identity and expiry.
func ParseAccessToken(token string) (core.Session, time.Time, error) {
	var claims AccessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return core.Anonymous, time.Time{}, fmt.Errorf("parse access token: %w", err)
	}
	var expiry time.Time
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	name := metadataName(claims.UserMetadata)
	if name == "" {
		name = strings.TrimSpace(claims.Name)
	}
	return core.Session{
		UserID:      claims.Subject,
		Email:       claims.Email,
		DisplayName: name,
	}, expiry, nil
}

// metadataName picks the display name Google-linked accounts carry in user metadata.
func metadataName(md map[string]any) string {
	for _, key := range []string{"full_name", "name"} {
		if v, ok := md[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
