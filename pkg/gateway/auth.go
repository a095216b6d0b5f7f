package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// ExtractBearerToken pulls the token out of an Authorization header
// value. Only the Bearer scheme is recognized.
func ExtractBearerToken(header string) (string, bool) {
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token, true
	}
	if token, ok := strings.CutPrefix(header, "bearer "); ok {
		return token, true
	}
	return "", false
}

// VerifyToken compares in constant time with respect to content. A
// length mismatch rejects immediately; within equal lengths, timing does
// not depend on where the first differing byte is.
func VerifyToken(provided, expected string) bool {
	if len(provided) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

// health paths are always reachable without credentials.
func isAuthExempt(path string) bool {
	return path == "/health" || path == "/v1/health"
}

// authorized checks the request credentials against the configured token.
// The Authorization header wins when present; the token query parameter
// is the fallback. With no token configured everything is allowed.
func (s *State) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	if isAuthExempt(r.URL.Path) {
		return true
	}

	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := ExtractBearerToken(header)
		return ok && VerifyToken(token, s.authToken)
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return VerifyToken(token, s.authToken)
	}
	return false
}

// authMiddleware rejects unauthenticated requests with a bare 401. The
// response does not distinguish a missing token from a wrong one.
func (s *State) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
