package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Broker obtains a Google ID token for the user.
type Broker interface {
	IDToken(ctx context.Context) (string, error)
}

// StaticBroker hands out a pre-obtained ID token.
type StaticBroker string

func (b StaticBroker) IDToken(context.Context) (string, error) {
	if b == "" {
		return "", ErrNoIDToken
	}
	return string(b), nil
}

// LoadOAuthClient reads a Google OAuth client definition from inline JSON or a file.
func LoadOAuthClient(clientJSON, clientFile string) ([]byte, error) {
	switch {
	case clientJSON != "":
		return []byte(clientJSON), nil
	case clientFile != "":
		b, err := os.ReadFile(clientFile)
		if err != nil {
			return nil, fmt.Errorf("read client file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
	}
}

// OAuthBroker runs the installed-app authorization code flow against a loopback
// redirect and returns the ID token from the exchanged token.
type OAuthBroker struct {
	config  *oauth2.Config
	port    string
	out     io.Writer
	timeout time.Duration
}

func NewOAuthBroker(clientJSON []byte, port string, out io.Writer) (*OAuthBroker, error) {
	cfg, err := google.ConfigFromJSON(clientJSON, "openid", "email", "profile")
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	if port == "" {
		port = "8085"
	}
	cfg.RedirectURL = "http://localhost:" + port + "/callback"
	if out == nil {
		out = os.Stdout
	}
	return &OAuthBroker{config: cfg, port: port, out: out, timeout: 5 * time.Minute}, nil
}

func (b *OAuthBroker) IDToken(ctx context.Context) (string, error) {
	ln, err := net.Listen("tcp", "localhost:"+b.port)
	if err != nil {
		return "", fmt.Errorf("listen for oauth redirect: %w", err)
	}

	state := uuid.NewString()
	type result struct {
		code string
		err  error
	}
	resCh := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			resCh <- result{err: fmt.Errorf("oauth error: %s", q.Get("error"))}
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			resCh <- result{err: errors.New("oauth state mismatch")}
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			resCh <- result{code: q.Get("code")}
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	fmt.Fprintf(b.out, "Open this URL to sign in:\n%s\n", b.config.AuthCodeURL(state))

	var res result
	select {
	case res = <-resCh:
	case <-time.After(b.timeout):
		return "", ErrSignInTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if res.err != nil {
		return "", res.err
	}

	tok, err := b.config.Exchange(ctx, res.code)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return "", ErrNoIDToken
	}
	return idToken, nil
}
