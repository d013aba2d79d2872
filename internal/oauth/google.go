// Package oauth implements the Google authorization code flow.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const userInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

var (
	ErrDisabled         = errors.New("google login is not configured")
	ErrEmailNotVerified = errors.New("google account email is not verified")
)

// Identity is the subset of the Google userinfo response we rely on.
type Identity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Google exchanges authorization codes and loads the user's identity.
type Google struct {
	oauth       *oauth2.Config
	userInfoURL string
}

func NewGoogle(cfg Config) *Google {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return &Google{}
	}
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: userInfoURL,
	}
}

func (g *Google) Enabled() bool {
	return g != nil && g.oauth != nil
}

// AuthCodeURL returns the consent page URL carrying state.
func (g *Google) AuthCodeURL(state string) (string, error) {
	if !g.Enabled() {
		return "", ErrDisabled
	}
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Exchange trades code for a token and returns the verified identity.
func (g *Google) Exchange(ctx context.Context, code string) (Identity, error) {
	if !g.Enabled() {
		return Identity{}, ErrDisabled
	}
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("build userinfo request: %w", err)
	}
	resp, err := g.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Identity{}, fmt.Errorf("userinfo status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return Identity{}, fmt.Errorf("decode userinfo: %w", err)
	}
	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))
	if identity.Email == "" || !identity.EmailVerified {
		return Identity{}, ErrEmailNotVerified
	}
	return identity, nil
}
