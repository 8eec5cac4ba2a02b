package config

import (
	"fmt"
	"log"
	"net/url"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ServerConfig holds configuration variables for the server.
type ServerConfig struct {
	Scheme string
	Host   string
	Port   string
}

// URL returns the main gateway URL for the server.
func (s *ServerConfig) URL() string {
	host := s.Host
	includePort := func() bool {
		if s.Port == "" {
			return false
		}
		if s.Scheme == "http" {
			return s.Port != "80"
		}
		// s.Scheme == "https"
		return s.Port != "443"
	}()
	if includePort {
		host = fmt.Sprintf("%s:%s", host, s.Port)
	}
	uri := url.URL{
		Scheme: s.Scheme,
		Host:   host,
	}
	return uri.String()
}

// DatabaseConfig holds configuration variables for the database.
type DatabaseConfig struct {
	Dir string // Path to store data in (embedded Badger)
}

// ProviderConfig holds the OAuth client credentials for one
// identity provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OAuthConfig holds per-provider credential configuration.
type OAuthConfig struct {
	Google   ProviderConfig
	Facebook ProviderConfig
}

// TokenConfig holds settings for session token signing.
type TokenConfig struct {
	Secret   string
	Lifetime time.Duration
	Issuer   string
}

// Config holds configuration information for the program.
type Config struct {
	Server   *ServerConfig
	Database *DatabaseConfig
	OAuth    *OAuthConfig
	Tokens   *TokenConfig
	Remain   map[string]interface{} `mapstructure:",remain"`
}

// Current is the current configuration for the server.
var Current Config

func setConfigDefaults() {
	viper.SetDefault("server", map[string]interface{}{
		"scheme": "http",
		"host":   "localhost",
		"port":   "8000",
	})

	viper.SetDefault("database.dir", "~/.idlink/data")

	viper.SetDefault("oauth.google", map[string]interface{}{
		"clientID":     "",
		"clientSecret": "",
		"redirectURL":  "",
	})
	viper.SetDefault("oauth.facebook", map[string]interface{}{
		"clientID":     "",
		"clientSecret": "",
		"redirectURL":  "",
	})

	viper.SetDefault("tokens.secret", "development-secret")
	viper.SetDefault("tokens.lifetime", "1h")
	viper.SetDefault("tokens.issuer", "idlink")
}

// LoadConfig loads the config file from disk.
func LoadConfig() {
	viper.AddConfigPath("/etc/idlink/")
	viper.AddConfigPath("$HOME/.idlink")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	setConfigDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No configuration found. Running with defaults...")
		} else {
			log.Fatalf("Error reading config file: %v", err)
		}
	}

	err := viper.Unmarshal(
		&Current,
		viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc()),
	)
	if err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	dir, err := homedir.Expand(Current.Database.Dir)
	if err != nil {
		log.Fatalf("Could not expand database dir: %v", err)
	}
	Current.Database.Dir = dir

	// Provider callbacks live under the server's own URL unless
	// configured explicitly.
	if Current.OAuth.Google.RedirectURL == "" {
		Current.OAuth.Google.RedirectURL = Current.Server.URL() + "/auth/google/callback"
	}
	if Current.OAuth.Facebook.RedirectURL == "" {
		Current.OAuth.Facebook.RedirectURL = Current.Server.URL() + "/auth/facebook/callback"
	}
}
