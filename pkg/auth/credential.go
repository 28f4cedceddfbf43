// Package auth obtains and refreshes the bearer credential used by HTTP
// remote stores. The engine treats the credential as opaque.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoCredential is returned when there is no token to hand out
var ErrNoCredential = errors.New("no credential available, run 'syncbase login'")

// Credential is the persisted form of an OAuth token pair
type Credential struct {
	AccessToken  string    `json:"access_token" yaml:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty" yaml:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero" yaml:"expiry,omitempty"`
}

// Token converts the credential for use with oauth2
func (c Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// FromToken keeps the parts of t worth persisting
func FromToken(t *oauth2.Token) Credential {
	if t == nil {
		return Credential{}
	}
	return Credential{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken, Expiry: t.Expiry}
}

// Valid reports whether the access token can still be used
func (c Credential) Valid() bool {
	return c.Token().Valid()
}

// NewTokenSource returns a source for cred. When cfg can refresh it, the
// source refreshes expired tokens and passes every new one to onRefresh so
// it can be persisted. Otherwise the stored access token is used as is.
func NewTokenSource(ctx context.Context, cfg *oauth2.Config, cred Credential, onRefresh func(Credential)) (oauth2.TokenSource, error) {
	if cred.AccessToken == "" && cred.RefreshToken == "" {
		return nil, ErrNoCredential
	}
	if cred.RefreshToken == "" || cfg == nil || cfg.ClientID == "" {
		if !cred.Valid() {
			return nil, errors.New("access token expired and cannot be refreshed, run 'syncbase login'")
		}
		return oauth2.StaticTokenSource(cred.Token()), nil
	}
	return &notifyingSource{
		src:       cfg.TokenSource(ctx, cred.Token()),
		last:      cred.AccessToken,
		onRefresh: onRefresh,
	}, nil
}

// notifyingSource reports tokens it has not handed out before
type notifyingSource struct {
	src oauth2.TokenSource

	mu        sync.Mutex
	last      string
	onRefresh func(Credential)
}

func (s *notifyingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if s.onRefresh != nil {
			s.onRefresh(FromToken(tok))
		}
	}
	return tok, nil
}
