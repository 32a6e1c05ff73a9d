package adapthttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"styleguides/internal/config"
	"styleguides/internal/domain"
	"styleguides/internal/logger"
)

// OAuthIdentity is what the callback learns about the signed-in user.
type OAuthIdentity struct {
	Provider domain.Provider
	Email    string
	Name     string
}

type googleProvider struct {
	oidc   *oidc.Provider
	oauth2 oauth2.Config
}

// Providers holds the configured OAuth providers. Either may be absent; a
// login attempt against an unconfigured provider fails cleanly.
type Providers struct {
	google *googleProvider
	github *oauth2.Config
	log    *logger.Logger
}

// NewProviders builds the OAuth configuration from the app config. Google
// uses OIDC discovery; GitHub uses the plain OAuth2 endpoint.
func NewProviders(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Providers, error) {
	p := &Providers{log: log}

	if cfg.GoogleEnabled() {
		provider, err := oidc.NewProvider(ctx, "https://accounts.google.com")
		if err != nil {
			return nil, fmt.Errorf("google oidc discovery: %w", err)
		}
		p.google = &googleProvider{
			oidc: provider,
			oauth2: oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RedirectURL:  cfg.BaseURL + "/api/auth/callback/google",
				Endpoint:     provider.Endpoint(),
				Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
			},
		}
	}

	if cfg.GitHubEnabled() {
		p.github = &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.BaseURL + "/api/auth/callback/github",
			Endpoint:     githuboauth.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		}
	}

	return p, nil
}

// Enabled reports whether the named provider is configured.
func (p *Providers) Enabled(provider domain.Provider) bool {
	switch provider {
	case domain.ProviderGoogle:
		return p.google != nil
	case domain.ProviderGitHub:
		return p.github != nil
	}
	return false
}

// AuthCodeURL returns the provider's authorization redirect for a state.
func (p *Providers) AuthCodeURL(provider domain.Provider, state string) (string, error) {
	switch provider {
	case domain.ProviderGoogle:
		if p.google == nil {
			return "", errors.New("google oauth not configured")
		}
		return p.google.oauth2.AuthCodeURL(state), nil
	case domain.ProviderGitHub:
		if p.github == nil {
			return "", errors.New("github oauth not configured")
		}
		return p.github.AuthCodeURL(state), nil
	}
	return "", fmt.Errorf("unknown provider %q", provider)
}

// Exchange trades the authorization code for the user's identity.
func (p *Providers) Exchange(ctx context.Context, provider domain.Provider, code string) (*OAuthIdentity, error) {
	switch provider {
	case domain.ProviderGoogle:
		return p.exchangeGoogle(ctx, code)
	case domain.ProviderGitHub:
		return p.exchangeGitHub(ctx, code)
	}
	return nil, fmt.Errorf("unknown provider %q", provider)
}

func (p *Providers) exchangeGoogle(ctx context.Context, code string) (*OAuthIdentity, error) {
	if p.google == nil {
		return nil, errors.New("google oauth not configured")
	}

	token, err := p.google.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google exchange: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("google: no id_token in response")
	}

	verifier := p.google.oidc.Verifier(&oidc.Config{ClientID: p.google.oauth2.ClientID})
	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("google: verify id_token: %w", err)
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("google: parse claims: %w", err)
	}
	if claims.Email == "" {
		return nil, errors.New("google: no email claim")
	}

	return &OAuthIdentity{Provider: domain.ProviderGoogle, Email: claims.Email, Name: claims.Name}, nil
}

func (p *Providers) exchangeGitHub(ctx context.Context, code string) (*OAuthIdentity, error) {
	if p.github == nil {
		return nil, errors.New("github oauth not configured")
	}

	token, err := p.github.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("github exchange: %w", err)
	}
	client := p.github.Client(ctx, token)

	var user struct {
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := getJSON(client, "https://api.github.com/user", &user); err != nil {
		return nil, fmt.Errorf("github user: %w", err)
	}

	email := user.Email
	if email == "" {
		// The profile email can be hidden; the emails endpoint still
		// exposes the primary address under the user:email scope.
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(client, "https://api.github.com/user/emails", &emails); err != nil {
			return nil, fmt.Errorf("github emails: %w", err)
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}
	if email == "" {
		return nil, errors.New("github: no verified primary email")
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}

	return &OAuthIdentity{Provider: domain.ProviderGitHub, Email: email, Name: name}, nil
}

func getJSON(client *http.Client, url string, dst any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
