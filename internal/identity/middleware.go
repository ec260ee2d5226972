package identity

import (
	"net/http"
	"strings"

	"github.com/mvoicu/dansport/internal/platform/httpx"
)

// Middleware resolves the Authorization bearer token into a request actor.
//
// Requests without credentials continue anonymously; requests with a token
// that fails verification are rejected so a caller never proceeds with a
// role it cannot prove.
func Middleware(cfg VerifierConfig) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			actor, err := VerifyToken(token, cfg)
			if err != nil {
				httpx.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
