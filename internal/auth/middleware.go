// Package auth guards the HTTP API with an X-API-Key header check.
package auth

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyHeader carries the caller's key.
const APIKeyHeader = "X-API-Key"

// Service handles API key authentication. An empty hash disables auth
// (dev mode).
type Service struct {
	apiKeyHash string
}

// NewService creates an auth service comparing keys against a bcrypt
// hash of the expected key.
func NewService(apiKeyHash string) *Service {
	return &Service{apiKeyHash: apiKeyHash}
}

// Middleware creates an authentication middleware
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKeyHash == "" {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get(APIKeyHeader)
		if apiKey == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing api key")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(s.apiKeyHash), []byte(apiKey)); err != nil {
			log.Debug().Str("path", r.URL.Path).Msg("Rejected invalid API key")
			writeJSONError(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
