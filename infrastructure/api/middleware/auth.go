package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// AuthConfig holds the accepted API keys.
type AuthConfig struct {
	apiKeys [][]byte
}

// NewAuthConfigWithKeys creates an AuthConfig. Empty keys are ignored; with
// no keys left, authentication is disabled.
func NewAuthConfigWithKeys(apiKeys []string) AuthConfig {
	var keys [][]byte
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}
	return AuthConfig{apiKeys: keys}
}

// Enabled returns true if authentication is enabled.
func (c AuthConfig) Enabled() bool { return len(c.apiKeys) > 0 }

func (c AuthConfig) valid(key string) bool {
	candidate := []byte(key)
	for _, k := range c.apiKeys {
		if subtle.ConstantTimeCompare(k, candidate) == 1 {
			return true
		}
	}
	return false
}

// APIKey returns a middleware that requires a key in the X-API-KEY header
// or an "Authorization: Bearer" header. CORS preflight requests pass.
func APIKey(config AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled() || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := requestKey(r)
			if key == "" {
				WriteError(w, r, NewAuthenticationError("X-API-KEY header is required"), logger)
				return
			}
			if !config.valid(key) {
				WriteError(w, r, NewAuthenticationError("invalid API key"), logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// APIKeyAuth creates auth middleware from a slice of API keys.
func APIKeyAuth(apiKeys []string, logger *slog.Logger) func(http.Handler) http.Handler {
	return APIKey(NewAuthConfigWithKeys(apiKeys), logger)
}

func requestKey(r *http.Request) string {
	if key := r.Header.Get("X-API-KEY"); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
