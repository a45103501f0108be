package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/haskel/variantlab/internal/config"
)

// BasicAuth guards every path except excludePaths when cfg.Enabled is set.
func BasicAuth(cfg config.AuthConfig, excludePaths ...string) Middleware {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	skip := newExcluded(excludePaths)
	wantUser := []byte(cfg.User)
	wantPass := []byte(cfg.Password)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip.match(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}

			// Evaluate both comparisons so timing does not reveal which one failed.
			userOK := subtle.ConstantTimeCompare([]byte(user), wantUser)
			passOK := subtle.ConstantTimeCompare([]byte(pass), wantPass)
			if userOK&passOK != 1 {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="variantlab"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
