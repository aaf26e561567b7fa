package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Strob0t/actions-bridge/internal/domain"
)

// DefaultTokenHeader carries the shared secret.
const DefaultTokenHeader = "X-Bridge-Token"

// ErrInvalidToken is returned for a missing or mismatched token.
var ErrInvalidToken = domain.Unauthorized("invalid token")

// CheckToken compares presented with expected in constant time. An empty
// expected secret rejects everything.
func CheckToken(presented, expected string) error {
	if expected == "" || presented == "" {
		return ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// Token returns middleware that rejects requests whose header does not carry
// the expected token. Rejected requests get a 401 envelope and never reach
// next. onReject, if set, is called for every rejection.
func Token(expected, header string, onReject func(*http.Request, error)) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultTokenHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := CheckToken(r.Header.Get(header), expected); err != nil {
				slog.WarnContext(r.Context(), "request rejected", "reason", err.Error(), "path", r.URL.Path)
				if onReject != nil {
					onReject(r, err)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "detail": err.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
