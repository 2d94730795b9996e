package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"

	"codeberg.org/gatekeep/server/internal/config"
)

// sets up the OAuth providers for social login using goth. Google is
// mandatory; GitHub joins only when its credentials are configured
func InitializeProviders(cfg *config.Config) error {
	if cfg.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET must be set")
	}

	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
	}

	// gothic needs a cookie session store for the OAuth redirect dance;
	// the cookie only has to survive the flow itself
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   strings.HasPrefix(cfg.BaseURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	}

	gothic.Store = store

	providers := []goth.Provider{
		google.New(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			callbackURL(cfg.BaseURL, "google"),
			"email", "profile",
		),
	}

	if cfg.GithubClientID != "" && cfg.GithubClientSecret != "" {
		providers = append(providers, github.New(
			cfg.GithubClientID,
			cfg.GithubClientSecret,
			callbackURL(cfg.BaseURL, "github"),
			"user:email",
		))
	}

	goth.UseProviders(providers...)
	return nil
}

func callbackURL(baseURL, provider string) string {
	return fmt.Sprintf("%s/api/v1/auth/%s/callback", baseURL, provider)
}
