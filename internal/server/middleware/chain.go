// Package middleware holds the HTTP wrappers used by the status server.
package middleware

import (
	"net/http"
	"strings"
)

type Middleware func(http.Handler) http.Handler

// Chain wraps h so that the first middleware is the outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// excluded matches exact paths and, for entries ending in "*", prefixes.
type excluded struct {
	exact    map[string]bool
	prefixes []string
}

func newExcluded(paths []string) excluded {
	ex := excluded{exact: make(map[string]bool, len(paths))}
	for _, p := range paths {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			ex.prefixes = append(ex.prefixes, prefix)
			continue
		}
		ex.exact[p] = true
	}
	return ex
}

func (e excluded) match(path string) bool {
	if e.exact[path] {
		return true
	}
	for _, p := range e.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
