package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Login runs the authorization code flow with PKCE: it starts a loopback
// callback, hands the consent URL to prompt and exchanges the returned
// code. cfg is not modified.
func Login(ctx context.Context, cfg *oauth2.Config, prompt func(consentURL string) error) (Credential, error) {
	state := uuid.New().String()
	cb, err := NewCallback(state)
	if err != nil {
		return Credential{}, err
	}
	defer func() {
		_ = cb.Close()
	}()

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     cfg.Endpoint,
		Scopes:       cfg.Scopes,
		RedirectURL:  cb.RedirectURL(),
	}
	verifier := oauth2.GenerateVerifier()

	// Offline access with forced consent makes Google return a refresh token
	// on every login.
	consentURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce, oauth2.S256ChallengeOption(verifier))
	if err := prompt(consentURL); err != nil {
		return Credential{}, err
	}

	code, err := cb.Wait(ctx)
	if err != nil {
		return Credential{}, fmt.Errorf("authorization failed: %w", err)
	}
	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return Credential{}, fmt.Errorf("token exchange failed: %w", err)
	}
	return FromToken(tok), nil
}
