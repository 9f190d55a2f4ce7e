// Package authmw provides HTTP middleware for bearer token authentication.
package authmw

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// BearerTokens returns middleware that accepts a request when its
// Authorization header carries any of tokens. Empty tokens are ignored; with
// no usable tokens every request is rejected. Tokens are compared as SHA-256
// digests in constant time so neither length nor content leaks through timing.
func BearerTokens(tokens ...string) func(http.Handler) http.Handler {
	var digests [][sha256.Size]byte
	for _, t := range tokens {
		if t == "" {
			continue
		}
		digests = append(digests, sha256.Sum256([]byte(t)))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, bearerPrefix) {
				http.Error(w, `{"error":"missing or malformed authorization header"}`, http.StatusUnauthorized)
				return
			}

			got := sha256.Sum256([]byte(auth[len(bearerPrefix):]))
			match := 0
			for i := range digests {
				match |= subtle.ConstantTimeCompare(got[:], digests[i][:])
			}
			if match != 1 {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SplitTokens parses a comma-separated token list, trimming blanks.
func SplitTokens(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
