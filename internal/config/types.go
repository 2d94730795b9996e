package config

import "time"

// Config holds everything the server reads from the environment at startup.
// The OAuth fields are loaded here but validated by provider initialization,
// which knows which providers are mandatory
type Config struct {
	DatabaseURL    string
	AccessSecret   string
	RefreshSecret  string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	AllowedOrigins []string
	Environment    string

	BaseURL            string
	SessionSecret      string
	GoogleClientID     string
	GoogleClientSecret string
	GithubClientID     string
	GithubClientSecret string
}
