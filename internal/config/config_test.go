package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerURL(t *testing.T) {
	tt := []struct {
		name   string
		server ServerConfig
		want   string
	}{
		{
			name:   "default dev server",
			server: ServerConfig{Scheme: "http", Host: "localhost", Port: "8000"},
			want:   "http://localhost:8000",
		},
		{
			name:   "http default port omitted",
			server: ServerConfig{Scheme: "http", Host: "example.com", Port: "80"},
			want:   "http://example.com",
		},
		{
			name:   "https default port omitted",
			server: ServerConfig{Scheme: "https", Host: "example.com", Port: "443"},
			want:   "https://example.com",
		},
		{
			name:   "https custom port",
			server: ServerConfig{Scheme: "https", Host: "example.com", Port: "8443"},
			want:   "https://example.com:8443",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.server.URL())
		})
	}
}

func TestLoadConfigDerivesRedirectURLs(t *testing.T) {
	LoadConfig()

	assert.Equal(t, "http://localhost:8000/auth/google/callback", Current.OAuth.Google.RedirectURL)
	assert.Equal(t, "http://localhost:8000/auth/facebook/callback", Current.OAuth.Facebook.RedirectURL)
}
