// Package auth owns the user session: obtaining an identity token from a credential
// broker, exchanging it for a backend session and publishing session transitions.
package auth

import (
	"context"
	"errors"

	"gastos/internal/core"
)

var (
	ErrNoIDToken     = errors.New("credential broker returned no id token")
	ErrSignInTimeout = errors.New("sign-in timed out")
)

// Provider is the session port consumed by the sync engine.
type Provider interface {
	// Current returns the latest known session, Anonymous when signed out.
	Current() core.Session
	// Status streams session transitions. The current session is delivered first and
	// the channel closes when ctx is done.
	Status(ctx context.Context) <-chan core.Session
	SignIn(ctx context.Context) error
	SignOut(ctx context.Context) error
}
